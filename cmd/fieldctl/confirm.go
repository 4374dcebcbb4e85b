package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mbolis/quick-fields/model"
)

// terminalConfirmer asks for deletions on the terminal. Anything but an
// explicit yes declines.
type terminalConfirmer struct {
	in     *bufio.Reader
	out    io.Writer
	assume bool
}

func newTerminalConfirmer(in io.Reader, out io.Writer, assumeYes bool) *terminalConfirmer {
	return &terminalConfirmer{in: bufio.NewReader(in), out: out, assume: assumeYes}
}

func (c *terminalConfirmer) ConfirmDelete(ctx context.Context, f *model.Field) (bool, error) {
	if c.assume {
		return true, nil
	}

	label := f.Label
	if label == "" {
		label = f.ID
	}
	fmt.Fprintf(c.out, "Delete %s %q and everything under it? [y/N] ", f.Type, label)

	answer := make(chan string, 1)
	go func() {
		line, _ := c.in.ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

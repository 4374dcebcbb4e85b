package editor

import (
	"context"
	"sync"

	"github.com/mbolis/quick-fields/model"
)

// Pending is a save in progress.
type Pending struct {
	done  chan struct{}
	field *model.Field
	err   error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func failed(err error) *Pending {
	p := newPending()
	p.finish(nil, err)
	return p
}

func (p *Pending) finish(echo *model.Field, err error) {
	p.field, p.err = echo, err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the save completes and returns the server echo.
func (p *Pending) Wait() (*model.Field, error) {
	<-p.done
	return p.field, p.err
}

type saveSlot struct {
	running *Pending
	queued  *Pending

	// arguments of the most recent call, used by the queued save
	ctx   context.Context
	save  saveFunc
	apply func(*model.Field)
}

type saveFunc func(ctx context.Context) (*model.Field, error)

// saveGuard serializes the saves of each field. While a save is in
// flight, later saves of the same field collapse into a single queued save
// that snapshots the field only when it starts; the echo of a save is
// applied only when no newer save is queued behind it.
type saveGuard struct {
	mu    sync.Mutex
	slots map[string]*saveSlot
	wg    sync.WaitGroup
}

func newSaveGuard() *saveGuard {
	return &saveGuard{slots: map[string]*saveSlot{}}
}

// start runs save now or queues it behind the save in flight for id.
// save snapshots the field when called; apply receives echoes that are
// still current.
func (g *saveGuard) start(ctx context.Context, id string, save saveFunc, apply func(*model.Field)) *Pending {
	g.mu.Lock()
	slot, busy := g.slots[id]
	if busy {
		if slot.queued == nil {
			slot.queued = newPending()
			g.wg.Add(1)
		}
		slot.ctx, slot.save, slot.apply = ctx, save, apply
		p := slot.queued
		g.mu.Unlock()
		return p
	}

	p := newPending()
	slot = &saveSlot{running: p}
	g.slots[id] = slot
	g.wg.Add(1)
	g.mu.Unlock()

	go g.run(ctx, id, slot, p, save, apply)
	return p
}

func (g *saveGuard) run(ctx context.Context, id string, slot *saveSlot, p *Pending, save saveFunc, apply func(*model.Field)) {
	for {
		echo, err := save(ctx)

		g.mu.Lock()
		next := slot.queued
		var nextCtx context.Context
		var nextSave saveFunc
		var nextApply func(*model.Field)
		if next == nil {
			if err == nil {
				apply(echo)
			}
			delete(g.slots, id)
		} else {
			slot.running, slot.queued = next, nil
			nextCtx, nextSave, nextApply = slot.ctx, slot.save, slot.apply
		}
		g.mu.Unlock()

		p.finish(echo, err)
		g.wg.Done()

		if next == nil {
			return
		}
		ctx, save, apply, p = nextCtx, nextSave, nextApply, next
	}
}

// cancel drops the save queued for id, which fails with ErrDeleted, and
// returns the save still in flight, if any.
func (g *saveGuard) cancel(id string) *Pending {
	g.mu.Lock()
	defer g.mu.Unlock()
	slot, ok := g.slots[id]
	if !ok {
		return nil
	}
	if slot.queued != nil {
		slot.queued.finish(nil, ErrDeleted)
		slot.queued = nil
		g.wg.Done()
	}
	return slot.running
}

func (g *saveGuard) wait() {
	g.wg.Wait()
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mbolis/quick-fields/editor"
	"github.com/mbolis/quick-fields/fieldtree"
	"github.com/mbolis/quick-fields/model"
)

func newTreeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the tree under --root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), e.Tree())
			return nil
		},
	}
}

func newTemplatesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the top level field templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.connect(cmd.Context())
			if err != nil {
				return err
			}
			list, err := s.templates.Query(cmd.Context(), nil)
			if err != nil {
				return err
			}
			for _, t := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %q\n", t.ID, t.Type, t.Label)
			}
			return nil
		},
	}
}

func newAddFieldCmd(g *globals) *cobra.Command {
	var draft editor.Draft
	var typ string
	cmd := &cobra.Command{
		Use:   "add-field PARENT_ID",
		Short: "Add a question under a fieldgroup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if draft.Type, err = model.ParseFieldType(typ); err != nil {
				return err
			}
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			parent, err := find(e, args[0])
			if err != nil {
				return err
			}
			f, err := e.AddField(cmd.Context(), parent, &draft)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Label, "label", "", "question label")
	cmd.Flags().StringVar(&typ, "type", string(model.TypeInputbox), "field type")
	cmd.Flags().BoolVar(&draft.MultiEntry, "multi-entry", false, "accept more than one answer")
	return cmd
}

func newAddFromTemplateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "add-from-template PARENT_ID TEMPLATE_ID",
		Short: "Add a reference to a template under a fieldgroup",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			parent, err := find(e, args[0])
			if err != nil {
				return err
			}
			f, err := e.AddFieldFromTemplate(cmd.Context(), parent, &editor.Draft{TemplateID: args[1]})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.ID)
			return nil
		},
	}
}

func newAddTemplateCmd(g *globals) *cobra.Command {
	var draft editor.Draft
	var typ, parentID string
	cmd := &cobra.Command{
		Use:   "add-template",
		Short: "Create a field template, at top level or under --parent of the --root template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if draft.Type, err = model.ParseFieldType(typ); err != nil {
				return err
			}

			var e *editor.Editor
			var parent *model.Field
			if parentID == "" {
				s, err := g.connect(cmd.Context())
				if err != nil {
					return err
				}
				e = editor.New(fieldtree.NewTree(&model.Field{}), s.fields, nil, editor.WithTemplates(s.templates))
			} else {
				if e, err = g.edit(cmd); err != nil {
					return err
				}
				if parent, err = find(e, parentID); err != nil {
					return err
				}
			}

			f, err := e.AddFieldTemplate(cmd.Context(), parent, &draft)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Label, "label", "", "template label")
	cmd.Flags().StringVar(&typ, "type", string(model.TypeInputbox), "field type")
	cmd.Flags().StringVar(&parentID, "parent", "", "fieldgroup template to nest the template into")
	return cmd
}

func newAddOptionCmd(g *globals) *cobra.Command {
	var label string
	var points, scoreType int
	var block bool
	var receivers []string
	cmd := &cobra.Command{
		Use:   "add-option FIELD_ID",
		Short: "Add an option to a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			f, err := find(e, args[0])
			if err != nil {
				return err
			}
			if !fieldtree.HasOptionsEditor(f) {
				return errors.Errorf("%s fields have no options", f.Type)
			}

			o := e.AddOption(f)
			o.Label = label
			o.ScorePoints = points
			o.ScoreType = model.ScoreType(scoreType)
			if block {
				e.FlipBlockSubmission(o)
			}
			for _, r := range receivers {
				e.AddTriggerReceiver(o, r)
			}
			if err = waitAll(e.SaveField(cmd.Context(), f)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), o.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "option label")
	cmd.Flags().IntVar(&points, "points", 0, "score points")
	cmd.Flags().IntVar(&scoreType, "score-type", int(model.ScoreNone), "0 none, 1 addition, 2 multiplication")
	cmd.Flags().BoolVar(&block, "block", false, "selecting the option blocks the submission")
	cmd.Flags().StringSliceVar(&receivers, "receiver", nil, "receiver to involve when the option is selected")
	return cmd
}

func newRemoveOptionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-option OPTION_ID",
		Short: "Remove an option, along with the triggers pointing at it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			owner, o := e.Tree().FindOption(args[0])
			if o == nil {
				return errors.Errorf("no option %s in this tree", args[0])
			}

			affected := e.RemoveOption(owner, o)
			pending := []*editor.Pending{e.SaveField(cmd.Context(), owner)}
			for _, f := range affected {
				pending = append(pending, e.SaveField(cmd.Context(), f))
			}
			return waitAll(pending...)
		},
	}
}

func newAddTriggerCmd(g *globals) *cobra.Command {
	var sufficient bool
	cmd := &cobra.Command{
		Use:   "add-trigger FIELD_ID SOURCE_FIELD_ID OPTION_ID",
		Short: "Show a field only when an option of another field is selected",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			f, err := find(e, args[0])
			if err != nil {
				return err
			}
			draft := model.Trigger{Field: args[1], Option: args[2], Sufficient: sufficient}
			e.AddTrigger(f, &draft)
			return waitAll(e.SaveField(cmd.Context(), f))
		},
	}
	cmd.Flags().BoolVar(&sufficient, "sufficient", true, "the trigger alone is enough to show the field")
	return cmd
}

func newRemoveTriggerCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-trigger FIELD_ID SOURCE_FIELD_ID OPTION_ID",
		Short: "Remove a trigger from a field",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			f, err := find(e, args[0])
			if err != nil {
				return err
			}
			for _, tr := range f.TriggeredByOptions {
				if tr.Field == args[1] && tr.Option == args[2] {
					e.RemoveTrigger(f, tr)
					return waitAll(e.SaveField(cmd.Context(), f))
				}
			}
			return errors.Errorf("field %s has no such trigger", f.ID)
		},
	}
}

func newMoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:       "move FIELD_ID up|down|left|right",
		Short:     "Move a field among its siblings, or in and out of fieldgroups",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"up", "down", "left", "right"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			f, err := find(e, args[0])
			if err != nil {
				return err
			}

			var move func(ctx context.Context, f *model.Field) []*editor.Pending
			switch args[1] {
			case "up":
				move = e.MoveUpAndSave
			case "down":
				move = e.MoveDownAndSave
			case "left":
				move = e.MoveLeftAndSave
			case "right":
				move = e.MoveRightAndSave
			default:
				return errors.Errorf("unknown direction %q", args[1])
			}

			pending := move(cmd.Context(), f)
			if len(pending) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "nothing to move")
			}
			return waitAll(pending...)
		},
	}
}

func newDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete FIELD_ID",
		Short: "Delete a field and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.edit(cmd)
			if err != nil {
				return err
			}
			f, err := find(e, args[0])
			if err != nil {
				return err
			}
			return e.DeleteField(cmd.Context(), f)
		},
	}
}

func waitAll(pending ...*editor.Pending) error {
	var result *multierror.Error
	for _, p := range pending {
		if _, err := p.Wait(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func printTree(w io.Writer, t *fieldtree.Tree) {
	t.Walk(func(f *model.Field, depth int) bool {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(w, "%s%s [%s/%s] %q\n", indent, f.ID, f.Instance, f.Type, f.Label)
		for _, o := range f.Options {
			flags := ""
			if o.BlockSubmission {
				flags = " blocks"
			}
			fmt.Fprintf(w, "%s  - %s %q%s\n", indent, o.ID, o.Label, flags)
		}
		for _, tr := range f.TriggeredByOptions {
			fmt.Fprintf(w, "%s  ? %s=%s\n", indent, tr.Field, tr.Option)
		}
		return true
	})
}

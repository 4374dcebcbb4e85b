// Command fieldctl edits the questionnaire fields of a quick-fields server
// from the terminal.
package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mbolis/quick-fields/editor"
	"github.com/mbolis/quick-fields/fieldtree"
	"github.com/mbolis/quick-fields/log"
	"github.com/mbolis/quick-fields/model"
	"github.com/mbolis/quick-fields/resource"
)

type globals struct {
	server    string
	user      string
	password  string
	root      string
	templates bool
	yes       bool
	debug     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:          "fieldctl",
		Short:        "Edit questionnaire fields on a quick-fields server",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.server, "server", envOr("QFIELDS_SERVER", "http://localhost"), "server base URL (env QFIELDS_SERVER)")
	flags.StringVar(&g.user, "user", envOr("QFIELDS_USER", "admin"), "admin account name (env QFIELDS_USER)")
	flags.StringVar(&g.password, "password", os.Getenv("QFIELDS_PASSWORD"), "admin account password (env QFIELDS_PASSWORD)")
	flags.StringVar(&g.root, "root", "", "id of the field tree to edit")
	flags.BoolVar(&g.templates, "templates", false, "the tree to edit is a template")
	flags.BoolVarP(&g.yes, "yes", "y", false, "do not ask before deleting")
	flags.BoolVar(&g.debug, "debug", false, "log at DEBUG level")

	rootCmd.AddCommand(
		newTreeCmd(g),
		newTemplatesCmd(g),
		newAddFieldCmd(g),
		newAddFromTemplateCmd(g),
		newAddTemplateCmd(g),
		newAddOptionCmd(g),
		newRemoveOptionCmd(g),
		newAddTriggerCmd(g),
		newRemoveTriggerCmd(g),
		newMoveCmd(g),
		newDeleteCmd(g),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

type session struct {
	client    *resource.Client
	fields    *resource.Resource[model.Field]
	templates *resource.Resource[model.Field]
}

func (g *globals) connect(ctx context.Context) (*session, error) {
	client := resource.NewClient(g.server)
	client.OnUnauthenticated = func(ctx context.Context, err *model.APIError) {
		log.With("fieldctl.auth", log.Fields{"user": g.user}).Warn(err.Message)
	}
	if err := client.Login(ctx, g.user, g.password); err != nil {
		return nil, errors.Wrap(err, "login")
	}
	return &session{
		client:    client,
		fields:    resource.Fields(client),
		templates: resource.FieldTemplates(client),
	}, nil
}

// edit loads the tree under --root and binds an editor to it.
func (g *globals) edit(cmd *cobra.Command) (*editor.Editor, error) {
	if g.root == "" {
		return nil, errors.New("--root is required")
	}
	ctx := cmd.Context()
	s, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}

	res := s.fields
	if g.templates {
		res = s.templates
	}
	root, err := res.Get(ctx, g.root)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", g.root)
	}

	confirm := newTerminalConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), g.yes)
	return editor.New(fieldtree.NewTree(root), s.fields, confirm, editor.WithTemplates(s.templates)), nil
}

func find(e *editor.Editor, id string) (*model.Field, error) {
	f := e.Tree().Find(id)
	if f == nil {
		return nil, errors.Errorf("no field %s in this tree", id)
	}
	return f, nil
}

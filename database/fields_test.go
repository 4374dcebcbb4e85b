package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/quick-fields/config"
	"github.com/mbolis/quick-fields/model"
)

func openTestDB(t *testing.T) *sql.DB {
	db, err := Open(config.Config{DBUrl: filepath.Join(t.TempDir(), "fields.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func group(label string) *model.Field {
	return &model.Field{Instance: model.InstanceQuestion, Type: model.TypeFieldgroup, Label: label}
}

func TestCreateAndGetSubtree(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fields := NewFields(openTestDB(t))

	root, err := fields.Create(ctx, group("step"))
	require.NoError(err)
	require.NotEmpty(root.ID)

	q, err := fields.Create(ctx, &model.Field{
		ID:       "client-id",
		ParentID: root.ID,
		Instance: model.InstanceQuestion,
		Type:     model.TypeSelectbox,
		Label:    "Pick one",
		Y:        1,
		Attrs:    map[string]model.Attr{"min_len": {Type: "int", Value: float64(2)}},
		Options: []*model.Option{
			{ID: "ignored", Label: "yes", TriggerReceiver: []string{"r1"}},
			{Label: "no", PresentationOrder: 1},
		},
	})
	require.NoError(err)
	require.NotEqual("client-id", q.ID)
	require.Len(q.Options, 2)
	require.NotEqual("ignored", q.Options[0].ID)
	require.Equal([]string{"r1"}, q.Options[0].TriggerReceiver)
	require.Equal(float64(2), q.Attrs["min_len"].Value)

	_, err = fields.Create(ctx, &model.Field{
		ParentID: root.ID,
		Instance: model.InstanceQuestion,
		Type:     model.TypeTextarea,
		Y:        0,
		TriggeredByOptions: []model.Trigger{
			{Field: q.ID, Option: q.Options[0].ID, Sufficient: true},
		},
	})
	require.NoError(err)

	got, err := fields.Get(ctx, root.ID)
	require.NoError(err)
	require.Len(got.Children, 2)
	require.Equal(model.TypeTextarea, got.Children[0].Type)
	require.Equal(q.Options[0].ID, got.Children[0].TriggeredByOptions[0].Option)
	require.Equal(q.ID, got.Children[1].ID)
}

func TestCreateRefusesBadParents(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fields := NewFields(openTestDB(t))

	leaf, err := fields.Create(ctx, &model.Field{Instance: model.InstanceQuestion, Type: model.TypeDate})
	require.NoError(err)

	_, err = fields.Create(ctx, &model.Field{ParentID: leaf.ID, Instance: model.InstanceQuestion, Type: model.TypeDate})
	var invalidErr *InvalidError
	require.True(errors.As(err, &invalidErr))
	require.Contains(invalidErr.Problems[0], "is not a fieldgroup")

	_, err = fields.Create(ctx, &model.Field{ParentID: "missing", Instance: model.InstanceQuestion, Type: model.TypeDate})
	require.True(errors.As(err, &invalidErr))

	_, err = fields.Create(ctx, &model.Field{Instance: model.InstanceQuestion, Type: "slider"})
	require.True(errors.As(err, &invalidErr))
}

func TestReferenceResolvesTemplate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fields := NewFields(openTestDB(t))

	tpl, err := fields.Create(ctx, &model.Field{
		Instance: model.InstanceTemplate,
		Type:     model.TypeCheckbox,
		Label:    "Consent",
		Options:  []*model.Option{{Label: "agree"}},
	})
	require.NoError(err)

	root, err := fields.Create(ctx, group("step"))
	require.NoError(err)

	ref, err := fields.Create(ctx, &model.Field{ParentID: root.ID, Instance: model.InstanceReference, TemplateID: tpl.ID, Required: true})
	require.NoError(err)
	require.Equal(model.TypeCheckbox, ref.Type)
	require.Equal("Consent", ref.Label)
	require.Equal(tpl.Options[0].ID, ref.Options[0].ID)
	require.True(ref.Required)

	// triggers may name the template option through the reference
	_, err = fields.Create(ctx, &model.Field{
		ParentID:           root.ID,
		Instance:           model.InstanceQuestion,
		Type:               model.TypeInputbox,
		TriggeredByOptions: []model.Trigger{{Field: ref.ID, Option: tpl.Options[0].ID}},
	})
	require.NoError(err)

	_, err = fields.Create(ctx, &model.Field{ParentID: root.ID, Instance: model.InstanceReference, TemplateID: root.ID})
	var invalidErr *InvalidError
	require.True(errors.As(err, &invalidErr))

	require.True(errors.Is(fields.Delete(ctx, tpl.ID), ErrConflict))
	require.NoError(fields.Delete(ctx, ref.ID))
	require.NoError(fields.Delete(ctx, tpl.ID))

	templates, err := fields.List(ctx, "", true)
	require.NoError(err)
	require.Empty(templates)
}

func TestUpdateSyncsOptionsAndCascadesTriggers(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fields := NewFields(openTestDB(t))

	root, err := fields.Create(ctx, group("step"))
	require.NoError(err)
	src, err := fields.Create(ctx, &model.Field{
		ParentID: root.ID,
		Instance: model.InstanceQuestion,
		Type:     model.TypeMultichoice,
		Options:  []*model.Option{{Label: "a"}, {Label: "b", PresentationOrder: 1}},
	})
	require.NoError(err)
	dst, err := fields.Create(ctx, &model.Field{
		ParentID:           root.ID,
		Instance:           model.InstanceQuestion,
		Type:               model.TypeInputbox,
		Y:                  1,
		TriggeredByOptions: []model.Trigger{{Field: src.ID, Option: src.Options[1].ID}},
	})
	require.NoError(err)

	kept := src.Options[0]
	src.Options = []*model.Option{kept, {Label: "c", PresentationOrder: 1}}
	src.Label = "renamed"
	updated, err := fields.Update(ctx, src.ID, src)
	require.NoError(err)
	require.Equal("renamed", updated.Label)
	require.Len(updated.Options, 2)
	require.Equal(kept.ID, updated.Options[0].ID)
	require.NotEmpty(updated.Options[1].ID)

	dst, err = fields.Get(ctx, dst.ID)
	require.NoError(err)
	require.Empty(dst.TriggeredByOptions)

	dst.TriggeredByOptions = []model.Trigger{{Field: src.ID, Option: "not-an-option"}}
	_, err = fields.Update(ctx, dst.ID, dst)
	var invalidErr *InvalidError
	require.True(errors.As(err, &invalidErr))

	_, err = fields.Update(ctx, "missing", dst)
	require.True(errors.Is(err, ErrNotFound))
}

func TestUpdateRefusesCycles(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fields := NewFields(openTestDB(t))

	outer, err := fields.Create(ctx, group("outer"))
	require.NoError(err)
	inner := group("inner")
	inner.ParentID = outer.ID
	inner, err = fields.Create(ctx, inner)
	require.NoError(err)

	outer.ParentID = inner.ID
	_, err = fields.Update(ctx, outer.ID, outer)
	var invalidErr *InvalidError
	require.True(errors.As(err, &invalidErr))
}

func TestDeleteCascadesSubtree(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	fields := NewFields(openTestDB(t))

	root, err := fields.Create(ctx, group("step"))
	require.NoError(err)
	child, err := fields.Create(ctx, &model.Field{ParentID: root.ID, Instance: model.InstanceQuestion, Type: model.TypeDate})
	require.NoError(err)

	list, err := fields.List(ctx, "", false)
	require.NoError(err)
	require.Len(list, 1)

	require.NoError(fields.Delete(ctx, root.ID))
	_, err = fields.Get(ctx, child.ID)
	require.True(errors.Is(err, ErrNotFound))
	require.True(errors.Is(fields.Delete(ctx, root.ID), ErrNotFound))
}

func TestEnsureAdmin(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	db := openTestDB(t)

	require.Error(EnsureAdmin(ctx, db, "admin", ""))
	require.NoError(EnsureAdmin(ctx, db, "admin", "first"))
	require.NoError(EnsureAdmin(ctx, db, "admin", "second"))

	var hash []byte
	require.NoError(db.QueryRow("SELECT password_hash FROM user WHERE username = ?", "admin").Scan(&hash))
	require.NoError(bcrypt.CompareHashAndPassword(hash, []byte("second")))
}

package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-fields/fieldtree"
	"github.com/mbolis/quick-fields/model"
)

type mockResource struct {
	mock.Mock
}

func (m *mockResource) Create(ctx context.Context, f *model.Field) (*model.Field, error) {
	args := m.Called(ctx, f)
	created, _ := args.Get(0).(*model.Field)
	return created, args.Error(1)
}

func (m *mockResource) Update(ctx context.Context, id string, f *model.Field) (*model.Field, error) {
	args := m.Called(ctx, id, f)
	echo, _ := args.Get(0).(*model.Field)
	return echo, args.Error(1)
}

func (m *mockResource) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) ConfirmDelete(ctx context.Context, f *model.Field) (bool, error) {
	args := m.Called(ctx, f)
	return args.Bool(0), args.Error(1)
}

// neverConfirms models a dialog left open until the caller gives up.
type neverConfirms struct{}

func (neverConfirms) ConfirmDelete(ctx context.Context, f *model.Field) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func newTree() (*fieldtree.Tree, *model.Field) {
	root := &model.Field{
		ID:       "root",
		Type:     model.TypeFieldgroup,
		Instance: model.InstanceQuestion,
		Children: []*model.Field{
			{ID: "a", ParentID: "root", Type: model.TypeSelectbox, Instance: model.InstanceQuestion, Y: 0,
				Options: []*model.Option{{ID: "yes", PresentationOrder: 0}}},
			{ID: "b", ParentID: "root", Type: model.TypeTextarea, Instance: model.InstanceQuestion, Y: 1,
				TriggeredByOptions: []model.Trigger{{Field: "a", Option: "yes", Sufficient: true}}},
		},
	}
	return fieldtree.NewTree(root), root
}

func TestPanels(t *testing.T) {
	require := require.New(t)
	tree, _ := newTree()
	e := New(tree, &mockResource{}, &mockConfirmer{})

	require.Equal(Panels{}, e.Panels())

	p := e.ToggleAddQuestion()
	require.True(p.AddingQuestion)

	p = e.ToggleAddQuestionFromTemplate()
	require.True(p.AddingQuestionFromTemplate)
	require.False(p.AddingQuestion)

	p = e.ToggleAddQuestion()
	require.True(p.AddingQuestion)
	require.False(p.AddingQuestionFromTemplate)

	p = e.ToggleAddTrigger()
	require.True(p.AddingTrigger)
	require.True(p.AddingQuestion)

	p = e.ToggleEditing()
	require.True(p.Editing)
	p = e.ToggleEditing()
	require.False(p.Editing)
}

func TestAddOptionAndSave(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res := &mockResource{}
	e := New(tree, res, &mockConfirmer{})
	a := root.Children[0]

	added := e.AddOption(a)
	require.Equal(1, added.PresentationOrder)
	require.Equal("", added.ID)
	require.Len(a.Options, 2)

	res.On("Update", mock.Anything, "a", mock.MatchedBy(func(f *model.Field) bool {
		return len(f.Options) == 2 && f.Options[0].PresentationOrder == 0 && f.Options[1].PresentationOrder == 1 && len(f.Children) == 0
	})).Return(&model.Field{ID: "a", Options: []*model.Option{{ID: "yes"}, {ID: "server-id"}}}, nil).Once()

	echo, err := e.SaveField(context.Background(), a).Wait()
	require.NoError(err)
	require.Equal("a", echo.ID)
	require.Equal("server-id", added.ID)
	res.AssertExpectations(t)
}

func TestSaveUnsavedField(t *testing.T) {
	tree, _ := newTree()
	e := New(tree, &mockResource{}, &mockConfirmer{})

	_, err := e.SaveField(context.Background(), &model.Field{}).Wait()
	require.ErrorIs(t, err, ErrNotSaved)
}

func TestRemoveOptionDropsTriggers(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	e := New(tree, &mockResource{}, &mockConfirmer{})
	a, b := root.Children[0], root.Children[1]

	require.Nil(e.RemoveOption(a, &model.Option{ID: "yes"}))
	require.Len(a.Options, 1)

	changed := e.RemoveOption(a, a.Options[0])
	require.Empty(a.Options)
	require.Equal([]*model.Field{b}, changed)
	require.Empty(b.TriggeredByOptions)
}

func TestTriggers(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	e := New(tree, &mockResource{}, &mockConfirmer{})
	a, b := root.Children[0], root.Children[1]

	e.ToggleAddTrigger()
	draft := &model.Trigger{Field: "b", Option: "x"}
	e.AddTrigger(a, draft)
	require.Equal([]model.Trigger{{Field: "b", Option: "x"}}, a.TriggeredByOptions)
	require.Equal(model.Trigger{}, *draft)
	require.False(e.Panels().AddingTrigger)

	require.False(e.RemoveTrigger(b, model.Trigger{Field: "a", Option: "no"}))
	require.True(e.RemoveTrigger(b, model.Trigger{Field: "a", Option: "yes", Sufficient: true}))
	require.Empty(b.TriggeredByOptions)
}

func TestOptionAffordances(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	e := New(tree, &mockResource{}, &mockConfirmer{})
	a := root.Children[0]
	e.AddOption(a)

	require.True(e.MoveOptionUp(a, 1))
	require.Equal("yes", a.Options[1].ID)
	require.False(e.MoveOptionUp(a, 0))
	require.True(e.MoveOptionDown(a, 0))
	require.Equal("yes", a.Options[0].ID)

	o := a.Options[0]
	e.FlipBlockSubmission(o)
	require.True(o.BlockSubmission)
	e.AddTriggerReceiver(o, "r1")
	e.AddTriggerReceiver(o, "r1")
	require.Equal([]string{"r1"}, o.TriggerReceiver)
}

func TestAddFieldFileuploadForcesMultiEntry(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res := &mockResource{}
	e := New(tree, res, &mockConfirmer{})

	res.On("Create", mock.Anything, mock.MatchedBy(func(f *model.Field) bool {
		return f.Type == model.TypeFileupload && f.MultiEntry && f.ParentID == "root" && f.Y == 2 && f.Instance == model.InstanceQuestion
	})).Return(&model.Field{ID: "c", Type: model.TypeFileupload, MultiEntry: true, Y: 2}, nil).Once()

	draft := &Draft{Label: "Attachments", Type: model.TypeFileupload, MultiEntry: false}
	created, err := e.AddField(context.Background(), root, draft)
	require.NoError(err)
	require.True(created.MultiEntry)
	require.Equal(Draft{}, *draft)
	require.Same(created, root.Children[2])
	require.Same(root, tree.Parent(created))
	res.AssertExpectations(t)
}

func TestAddFieldFailureKeepsDraft(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res := &mockResource{}
	e := New(tree, res, &mockConfirmer{})

	invalid := &model.APIError{Code: model.CodeValidation, Message: "invalid"}
	res.On("Create", mock.Anything, mock.Anything).Return(nil, invalid).Once()

	draft := &Draft{Label: "Name", Type: model.TypeInputbox}
	_, err := e.AddField(context.Background(), root, draft)
	require.Same(invalid, err)
	require.Equal("Name", draft.Label)
	require.Len(root.Children, 2)
}

func TestAddFieldUsesDefaultAttrs(t *testing.T) {
	tree, root := newTree()
	res := &mockResource{}
	e := New(tree, res, &mockConfirmer{})

	res.On("Create", mock.Anything, mock.MatchedBy(func(f *model.Field) bool {
		_, ok := f.Attrs["max_len"]
		return ok && !f.MultiEntry
	})).Return(&model.Field{ID: "c"}, nil).Once()

	_, err := e.AddField(context.Background(), root, &Draft{Type: model.TypeTextarea})
	require.NoError(t, err)
	res.AssertExpectations(t)
}

func TestAddFieldFromTemplate(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res := &mockResource{}
	e := New(tree, res, &mockConfirmer{})

	res.On("Create", mock.Anything, mock.MatchedBy(func(f *model.Field) bool {
		return f.Instance == model.InstanceReference && f.TemplateID == "whistleblower_identity" && f.Type == "" && f.Y == 2
	})).Return(&model.Field{ID: "ref", Instance: model.InstanceReference, TemplateID: "whistleblower_identity"}, nil).Once()

	draft := &Draft{TemplateID: "whistleblower_identity"}
	created, err := e.AddFieldFromTemplate(context.Background(), root, draft)
	require.NoError(err)
	require.Equal("ref", created.ID)
	require.Empty(draft.TemplateID)
	res.AssertExpectations(t)
}

func TestAddFieldTemplateUsesTemplateResource(t *testing.T) {
	require := require.New(t)
	tree, _ := newTree()
	fields, templates := &mockResource{}, &mockResource{}
	e := New(tree, fields, &mockConfirmer{}, WithTemplates(templates))

	templates.On("Create", mock.Anything, mock.MatchedBy(func(f *model.Field) bool {
		return f.Instance == model.InstanceTemplate && f.ParentID == "" && f.Label == "Identity"
	})).Return(&model.Field{ID: "tpl", Instance: model.InstanceTemplate}, nil).Once()

	created, err := e.AddFieldTemplate(context.Background(), nil, &Draft{Label: "Identity", Type: model.TypeFieldgroup})
	require.NoError(err)
	require.Equal("tpl", created.ID)
	templates.AssertExpectations(t)
	fields.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDeleteFieldConfirmed(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res, confirm := &mockResource{}, &mockConfirmer{}
	e := New(tree, res, confirm)
	b := root.Children[1]

	confirm.On("ConfirmDelete", mock.Anything, b).Return(true, nil).Once()
	res.On("Delete", mock.Anything, "b").Return(nil).Once()

	require.NoError(e.DeleteField(context.Background(), b))
	require.Len(root.Children, 1)
	require.False(tree.Contains(b))
	res.AssertExpectations(t)
}

func TestDeleteFieldDeclined(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res, confirm := &mockResource{}, &mockConfirmer{}
	e := New(tree, res, confirm)

	confirm.On("ConfirmDelete", mock.Anything, mock.Anything).Return(false, nil).Once()

	require.NoError(e.DeleteField(context.Background(), root.Children[0]))
	require.Len(root.Children, 2)
	res.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteFieldNeverConfirmed(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res := &mockResource{}
	e := New(tree, res, neverConfirms{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.DeleteField(ctx, root.Children[0])
	require.ErrorIs(err, context.DeadlineExceeded)
	require.Len(root.Children, 2)
	res.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteFieldFailureRestoresTree(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res, confirm := &mockResource{}, &mockConfirmer{}
	e := New(tree, res, confirm)
	a := root.Children[0]

	boom := errors.New("boom")
	confirm.On("ConfirmDelete", mock.Anything, a).Return(true, nil).Once()
	res.On("Delete", mock.Anything, "a").Return(boom).Once()

	require.ErrorIs(e.DeleteField(context.Background(), a), boom)
	require.Same(a, root.Children[0])
	require.Len(root.Children, 2)
	require.True(tree.Contains(a))
}

func TestMoveDownAndSaveSavesBothSiblings(t *testing.T) {
	require := require.New(t)
	tree, root := newTree()
	res := &mockResource{}
	e := New(tree, res, &mockConfirmer{})
	a := root.Children[0]

	res.On("Update", mock.Anything, "a", mock.MatchedBy(func(f *model.Field) bool { return f.Y == 1 })).
		Return(&model.Field{ID: "a", Y: 1}, nil).Once()
	res.On("Update", mock.Anything, "b", mock.MatchedBy(func(f *model.Field) bool { return f.Y == 0 })).
		Return(&model.Field{ID: "b", Y: 0}, nil).Once()

	pending := e.MoveDownAndSave(context.Background(), a)
	require.Len(pending, 2)
	e.Wait()
	res.AssertExpectations(t)

	require.Empty(e.MoveDownAndSave(context.Background(), a))
}

func TestMoveSaveFailureIsReported(t *testing.T) {
	tree, root := newTree()
	res := &mockResource{}
	e := New(tree, res, &mockConfirmer{})

	boom := errors.New("boom")
	res.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	for _, p := range e.MoveUpAndSave(context.Background(), root.Children[1]) {
		_, err := p.Wait()
		require.ErrorIs(t, err, boom)
	}
	// the in-memory move stays
	require.Equal(t, "b", root.Children[0].ID)
}

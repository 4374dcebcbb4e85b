// Package editor binds admin actions on a questionnaire field tree to
// tree mutations and persists them through the field resources.
package editor

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-fields/fieldtree"
	"github.com/mbolis/quick-fields/log"
	"github.com/mbolis/quick-fields/model"
)

var (
	ErrNotSaved = errors.New("editor: field has not been saved yet")
	ErrDeleted  = errors.New("editor: field was deleted")
)

// FieldResource is the remote collection fields are persisted to.
type FieldResource interface {
	Create(ctx context.Context, f *model.Field) (*model.Field, error)
	Update(ctx context.Context, id string, f *model.Field) (*model.Field, error)
	Delete(ctx context.Context, id string) error
}

// Confirmer asks the user to confirm a deletion. A dismissed dialog
// reports false with a nil error.
type Confirmer interface {
	ConfirmDelete(ctx context.Context, f *model.Field) (bool, error)
}

// Draft holds the user input of the add-question panels.
type Draft struct {
	Label      string
	Type       model.FieldType
	Instance   model.Instance
	TemplateID string
	MultiEntry bool
}

func (d *Draft) Reset() {
	*d = Draft{}
}

type Editor struct {
	mu     sync.Mutex
	tree   *fieldtree.Tree
	panels Panels

	fields    FieldResource
	templates FieldResource
	confirm   Confirmer
	attrs     func(model.FieldType) map[string]model.Attr

	saves *saveGuard
}

type Option func(*Editor)

// WithTemplates sets the resource template fields are persisted to.
// Without it templates go through the field resource.
func WithTemplates(r FieldResource) Option {
	return func(e *Editor) { e.templates = r }
}

// WithAttrs replaces the source of default attributes for new fields.
func WithAttrs(fn func(model.FieldType) map[string]model.Attr) Option {
	return func(e *Editor) { e.attrs = fn }
}

func New(tree *fieldtree.Tree, fields FieldResource, confirm Confirmer, opts ...Option) *Editor {
	e := &Editor{
		tree:    tree,
		fields:  fields,
		confirm: confirm,
		attrs:   fieldtree.DefaultAttrs,
		saves:   newSaveGuard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Editor) Tree() *fieldtree.Tree {
	return e.tree
}

func (e *Editor) resourceFor(f *model.Field) FieldResource {
	if f.Instance == model.InstanceTemplate && e.templates != nil {
		return e.templates
	}
	return e.fields
}

// AddOption appends a zeroed option to f. Nothing is saved.
func (e *Editor) AddOption(f *model.Field) *model.Option {
	e.mu.Lock()
	defer e.mu.Unlock()

	o := fieldtree.NewOption()
	o.PresentationOrder = fieldtree.NextOrderValue(f.Options, fieldtree.PresentationOrder)
	f.Options = append(f.Options, o)
	return o
}

func (e *Editor) MoveOptionUp(f *model.Field, index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fieldtree.Swap(f.Options, index, -1)
}

func (e *Editor) MoveOptionDown(f *model.Field, index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fieldtree.Swap(f.Options, index, 1)
}

// RemoveOption removes o from f, along with every trigger of the tree
// pointing at it. Nothing is saved: the caller saves f and the returned
// fields, which lost a trigger.
func (e *Editor) RemoveOption(f *model.Field, o *model.Option) []*model.Field {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := -1
	for j, candidate := range f.Options {
		if candidate == o {
			i = j
			break
		}
	}
	if i < 0 {
		return nil
	}
	f.Options = append(f.Options[:i], f.Options[i+1:]...)

	if o.ID == "" {
		return nil
	}
	return e.tree.RemoveTriggersOn(o.ID)
}

func (e *Editor) FlipBlockSubmission(o *model.Option) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o.BlockSubmission = !o.BlockSubmission
}

func (e *Editor) AddTriggerReceiver(o *model.Option, receiverID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range o.TriggerReceiver {
		if r == receiverID {
			return
		}
	}
	o.TriggerReceiver = append(o.TriggerReceiver, receiverID)
}

// AddTrigger appends draft to the triggers of f, closes the trigger panel
// and resets draft. Nothing is saved.
func (e *Editor) AddTrigger(f *model.Field, draft *model.Trigger) {
	e.mu.Lock()
	f.TriggeredByOptions = append(f.TriggeredByOptions, *draft)
	e.mu.Unlock()

	e.ToggleAddTrigger()
	*draft = model.Trigger{}
}

// RemoveTrigger removes the first trigger of f equal to tr. Nothing is saved.
func (e *Editor) RemoveTrigger(f *model.Field, tr model.Trigger) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, candidate := range f.TriggeredByOptions {
		if candidate == tr {
			f.TriggeredByOptions = append(f.TriggeredByOptions[:i], f.TriggeredByOptions[i+1:]...)
			return true
		}
	}
	return false
}

// AddField creates a new question under parent from draft. On success the
// server echo is appended to parent and draft is reset; on failure both
// are left alone and the error is returned as is.
func (e *Editor) AddField(ctx context.Context, parent *model.Field, draft *Draft) (*model.Field, error) {
	e.mu.Lock()
	f := fieldtree.NewField(draft.Label, parent.ID)
	f.Type = draft.Type
	f.Instance = draft.Instance
	if f.Instance == "" {
		f.Instance = parent.Instance
	}
	if f.Instance == "" || f.Instance == model.InstanceReference {
		f.Instance = model.InstanceQuestion
	}
	f.Attrs = e.attrs(f.Type)
	f.Y = fieldtree.NextOrderValue(parent.Children, fieldtree.YOrder)
	f.MultiEntry = draft.MultiEntry || f.Type == model.TypeFileupload
	e.mu.Unlock()

	return e.create(ctx, parent, f, draft)
}

// AddFieldFromTemplate creates a reference to the template of draft under
// parent. The server resolves what the reference renders as.
func (e *Editor) AddFieldFromTemplate(ctx context.Context, parent *model.Field, draft *Draft) (*model.Field, error) {
	e.mu.Lock()
	f := fieldtree.NewField("", parent.ID)
	f.TemplateID = draft.TemplateID
	f.Instance = model.InstanceReference
	f.Y = fieldtree.NextOrderValue(parent.Children, fieldtree.YOrder)
	e.mu.Unlock()

	return e.create(ctx, parent, f, draft)
}

// AddFieldTemplate creates a template from draft, nested into parent when
// parent is not nil.
func (e *Editor) AddFieldTemplate(ctx context.Context, parent *model.Field, draft *Draft) (*model.Field, error) {
	e.mu.Lock()
	parentID := ""
	if parent != nil {
		parentID = parent.ID
	}
	f := fieldtree.NewFieldTemplate(parentID)
	f.Label = draft.Label
	f.Type = draft.Type
	f.Attrs = e.attrs(f.Type)
	f.MultiEntry = draft.MultiEntry || f.Type == model.TypeFileupload
	if parent != nil {
		f.Y = fieldtree.NextOrderValue(parent.Children, fieldtree.YOrder)
	}
	e.mu.Unlock()

	return e.create(ctx, parent, f, draft)
}

func (e *Editor) create(ctx context.Context, parent, f *model.Field, draft *Draft) (*model.Field, error) {
	created, err := e.resourceFor(f).Create(ctx, f)
	if err != nil {
		log.With("editor.create_field", log.Fields{"parent": f.ParentID, "type": f.Type}).Debug(err)
		return nil, err
	}

	e.mu.Lock()
	if parent != nil {
		e.tree.Append(parent, created)
	}
	draft.Reset()
	e.mu.Unlock()

	return created, nil
}

// SaveField renumbers the options of f and persists it. Saves of the same
// field never overlap: see saveGuard.
func (e *Editor) SaveField(ctx context.Context, f *model.Field) *Pending {
	if f.ID == "" {
		return failed(ErrNotSaved)
	}
	res := e.resourceFor(f)
	id := f.ID

	// sent holds the options of the snapshot in the order they were sent;
	// the echo lists them in the same order.
	var sent []*model.Option
	save := func(ctx context.Context) (*model.Field, error) {
		e.mu.Lock()
		fieldtree.AssignUniqueOrderIndex(f.Options)
		sent = append([]*model.Option(nil), f.Options...)
		snapshot := f.Clone()
		e.mu.Unlock()
		snapshot.Children = []*model.Field{}

		echo, err := res.Update(ctx, id, snapshot)
		if err != nil {
			log.With("editor.save_field", log.Fields{"field": id}).Debug(err)
		}
		return echo, err
	}
	apply := func(echo *model.Field) {
		e.mu.Lock()
		defer e.mu.Unlock()
		applyEcho(f, sent, echo)
	}

	return e.saves.start(ctx, id, save, apply)
}

// applyEcho copies server-assigned option ids onto the options that were
// sent without one. Options removed from f since then are skipped, and the
// current order of f does not matter.
func applyEcho(f *model.Field, sent []*model.Option, echo *model.Field) {
	if echo == nil {
		return
	}
	for i, o := range echo.Options {
		if i >= len(sent) {
			break
		}
		live := sent[i]
		if live.ID == "" && containsOption(f.Options, live) {
			live.ID = o.ID
		}
	}
}

func containsOption(options []*model.Option, o *model.Option) bool {
	for _, candidate := range options {
		if candidate == o {
			return true
		}
	}
	return false
}

// Wait blocks until every save started so far has completed.
func (e *Editor) Wait() {
	e.saves.wait()
}

func (e *Editor) MoveUpAndSave(ctx context.Context, f *model.Field) []*Pending {
	return e.moveAndSave(ctx, f, e.tree.MoveUp)
}

func (e *Editor) MoveDownAndSave(ctx context.Context, f *model.Field) []*Pending {
	return e.moveAndSave(ctx, f, e.tree.MoveDown)
}

func (e *Editor) MoveLeftAndSave(ctx context.Context, f *model.Field) []*Pending {
	return e.moveAndSave(ctx, f, e.tree.MoveLeft)
}

func (e *Editor) MoveRightAndSave(ctx context.Context, f *model.Field) []*Pending {
	return e.moveAndSave(ctx, f, e.tree.MoveRight)
}

// moveAndSave applies move and saves every field whose order or parent
// changed. A move that does not apply saves nothing.
func (e *Editor) moveAndSave(ctx context.Context, f *model.Field, move func(*model.Field) []*model.Field) []*Pending {
	e.mu.Lock()
	changed := move(f)
	e.mu.Unlock()

	pending := make([]*Pending, 0, len(changed))
	for _, c := range changed {
		pending = append(pending, e.SaveField(ctx, c))
	}
	return pending
}

// DeleteField asks for confirmation, then removes f from the tree and
// deletes it remotely. A declined confirmation does nothing. Saves queued
// for f or its subtree are dropped, and those in flight are waited for
// before the delete is sent. If the delete fails f is put back.
func (e *Editor) DeleteField(ctx context.Context, f *model.Field) error {
	ok, err := e.confirm.ConfirmDelete(ctx, f)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	e.mu.Lock()
	parent, at := e.tree.Detach(f)
	e.mu.Unlock()

	if f.ID == "" {
		return nil
	}
	if err = e.settleSaves(ctx, f); err == nil {
		err = e.resourceFor(f).Delete(ctx, f.ID)
	}
	if err != nil {
		log.With("editor.delete_field", log.Fields{"field": f.ID}).Debug(err)
		if parent != nil {
			e.mu.Lock()
			e.tree.Restore(parent, f, at)
			e.mu.Unlock()
		}
		return err
	}
	return nil
}

func (e *Editor) settleSaves(ctx context.Context, f *model.Field) error {
	var ids []string
	var visit func(f *model.Field)
	visit = func(f *model.Field) {
		if f.ID != "" {
			ids = append(ids, f.ID)
		}
		for _, child := range f.Children {
			visit(child)
		}
	}
	e.mu.Lock()
	visit(f)
	e.mu.Unlock()

	// the guard applies echoes under e.mu: never call it holding e.mu
	for _, id := range ids {
		p := e.saves.cancel(id)
		if p == nil {
			continue
		}
		select {
		case <-p.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

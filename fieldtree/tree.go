package fieldtree

import "github.com/mbolis/quick-fields/model"

// Tree owns a root field and its subtree. Nodes are tracked by pointer,
// since fields that are not saved yet have no id.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	root    *model.Field
	parents map[*model.Field]*model.Field
}

func NewTree(root *model.Field) *Tree {
	t := &Tree{
		root:    root,
		parents: map[*model.Field]*model.Field{},
	}
	t.index(nil, root)
	return t
}

func (t *Tree) index(parent, f *model.Field) {
	t.parents[f] = parent
	for _, child := range f.Children {
		t.index(f, child)
	}
}

func (t *Tree) unindex(f *model.Field) {
	delete(t.parents, f)
	for _, child := range f.Children {
		t.unindex(child)
	}
}

func (t *Tree) Root() *model.Field {
	return t.root
}

func (t *Tree) Contains(f *model.Field) bool {
	_, ok := t.parents[f]
	return ok
}

// Parent returns the parent of f, or nil for the root and unknown fields.
func (t *Tree) Parent(f *model.Field) *model.Field {
	return t.parents[f]
}

// Siblings returns the children list f belongs to. The root has none.
func (t *Tree) Siblings(f *model.Field) []*model.Field {
	p := t.parents[f]
	if p == nil {
		return nil
	}
	return p.Children
}

// Walk visits the tree depth first, parents before children, until fn
// returns false.
func (t *Tree) Walk(fn func(f *model.Field, depth int) bool) {
	walk(t.root, 0, fn)
}

func walk(f *model.Field, depth int, fn func(*model.Field, int) bool) bool {
	if !fn(f, depth) {
		return false
	}
	for _, child := range f.Children {
		if !walk(child, depth+1, fn) {
			return false
		}
	}
	return true
}

func (t *Tree) Find(id string) (found *model.Field) {
	if id == "" {
		return nil
	}
	t.Walk(func(f *model.Field, _ int) bool {
		if f.ID == id {
			found = f
			return false
		}
		return true
	})
	return found
}

// FindOption returns the option with the given id and the field owning it.
func (t *Tree) FindOption(id string) (owner *model.Field, option *model.Option) {
	if id == "" {
		return nil, nil
	}
	t.Walk(func(f *model.Field, _ int) bool {
		for _, o := range f.Options {
			if o.ID == id {
				owner, option = f, o
				return false
			}
		}
		return true
	})
	return owner, option
}

// Append adds child as the last child of parent.
func (t *Tree) Append(parent, child *model.Field) {
	child.ParentID = parent.ID
	parent.Children = append(parent.Children, child)
	t.index(parent, child)
}

// Remove detaches f and its subtree. The root cannot be removed.
func (t *Tree) Remove(f *model.Field) bool {
	p, _ := t.Detach(f)
	return p != nil
}

// Restore puts f back under parent at index, as it was before Remove.
func (t *Tree) Restore(parent, f *model.Field, index int) {
	if index < 0 || index > len(parent.Children) {
		index = len(parent.Children)
	}
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[index+1:], parent.Children[index:])
	parent.Children[index] = f
	f.ParentID = parent.ID
	t.index(parent, f)
}

// Detach removes f like Remove and returns where it was: its parent,
// nil if nothing was removed, and its index among the siblings.
func (t *Tree) Detach(f *model.Field) (parent *model.Field, index int) {
	p := t.parents[f]
	if p == nil {
		return nil, -1
	}
	i := indexOf(p.Children, f)
	if i < 0 {
		return nil, -1
	}
	p.Children = append(p.Children[:i], p.Children[i+1:]...)
	t.unindex(f)
	return p, i
}

// MoveUp swaps f with its previous sibling and renumbers the siblings.
// It returns the fields whose order changed.
func (t *Tree) MoveUp(f *model.Field) []*model.Field {
	return t.moveVertical(f, -1)
}

func (t *Tree) MoveDown(f *model.Field) []*model.Field {
	return t.moveVertical(f, 1)
}

func (t *Tree) moveVertical(f *model.Field, delta int) []*model.Field {
	p := t.parents[f]
	if p == nil {
		return nil
	}
	if !Swap(p.Children, indexOf(p.Children, f), delta) {
		return nil
	}
	return Renumber(p.Children, YOrder)
}

// MoveLeft moves f one level up, right after its former parent. Children
// of the root stay where they are, and so do the template fields under a
// reference.
func (t *Tree) MoveLeft(f *model.Field) []*model.Field {
	p := t.parents[f]
	if p == nil || p.Instance == model.InstanceReference {
		return nil
	}
	g := t.parents[p]
	if g == nil {
		return nil
	}

	i := indexOf(p.Children, f)
	p.Children = append(p.Children[:i], p.Children[i+1:]...)

	at := indexOf(g.Children, p) + 1
	g.Children = append(g.Children, nil)
	copy(g.Children[at+1:], g.Children[at:])
	g.Children[at] = f

	f.ParentID = g.ID
	t.parents[f] = g

	changed := []*model.Field{f}
	changed = union(changed, Renumber(p.Children, YOrder))
	return union(changed, Renumber(g.Children, YOrder))
}

// MoveRight moves f into its previous sibling, as its last child. The
// previous sibling must be a fieldgroup owned by this tree, not a reference
// whose children belong to a template, and f must not be one of those
// children.
func (t *Tree) MoveRight(f *model.Field) []*model.Field {
	p := t.parents[f]
	if p == nil || p.Instance == model.InstanceReference {
		return nil
	}
	i := indexOf(p.Children, f)
	if i < 1 {
		return nil
	}
	target := p.Children[i-1]
	if target.Type != model.TypeFieldgroup || target.Instance == model.InstanceReference {
		return nil
	}

	p.Children = append(p.Children[:i], p.Children[i+1:]...)
	f.Y = NextOrderValue(target.Children, YOrder)
	target.Children = append(target.Children, f)

	f.ParentID = target.ID
	t.parents[f] = target

	changed := []*model.Field{f}
	changed = union(changed, Renumber(p.Children, YOrder))
	return union(changed, Renumber(target.Children, YOrder))
}

// RemoveTriggersOn drops every trigger pointing at optionID and returns
// the fields that lost one.
func (t *Tree) RemoveTriggersOn(optionID string) (changed []*model.Field) {
	t.Walk(func(f *model.Field, _ int) bool {
		kept := f.TriggeredByOptions[:0]
		for _, tr := range f.TriggeredByOptions {
			if tr.Option != optionID {
				kept = append(kept, tr)
			}
		}
		if len(kept) != len(f.TriggeredByOptions) {
			f.TriggeredByOptions = kept
			changed = append(changed, f)
		}
		return true
	})
	return changed
}

func indexOf[T comparable](seq []T, v T) int {
	for i, x := range seq {
		if x == v {
			return i
		}
	}
	return -1
}

func union(a, b []*model.Field) []*model.Field {
	for _, f := range b {
		if indexOf(a, f) < 0 {
			a = append(a, f)
		}
	}
	return a
}

package fieldtree

import (
	"sort"

	"github.com/mbolis/quick-fields/model"
)

// Node is a field ready to be rendered: children and options sorted,
// render group resolved.
type Node struct {
	*model.Field
	Group    RenderGroup `json:"render_group"`
	Children []*Node     `json:"children"`
}

type Parsed struct {
	Root *Node `json:"root"`

	// Both indexes keep the first node parsed for each id: the references
	// to one template share the ids of its options and fields.
	FieldsByID  map[string]*model.Field  `json:"-"`
	OptionsByID map[string]*model.Option `json:"-"`
}

// ParseFields builds the renderable form of the tree under root. The
// input is left untouched.
func ParseFields(root *model.Field) *Parsed {
	p := &Parsed{
		FieldsByID:  map[string]*model.Field{},
		OptionsByID: map[string]*model.Option{},
	}
	p.Root = p.parse(root.Clone())
	return p
}

func (p *Parsed) parse(f *model.Field) *Node {
	sort.SliceStable(f.Options, func(i, j int) bool {
		return f.Options[i].PresentationOrder < f.Options[j].PresentationOrder
	})
	sort.SliceStable(f.Children, func(i, j int) bool {
		return f.Children[i].Y < f.Children[j].Y
	})

	if _, seen := p.FieldsByID[f.ID]; f.ID != "" && !seen {
		p.FieldsByID[f.ID] = f
	}
	for _, o := range f.Options {
		if _, seen := p.OptionsByID[o.ID]; o.ID != "" && !seen {
			p.OptionsByID[o.ID] = o
		}
	}

	n := &Node{
		Field:    f,
		Group:    ClassifyType(f.Type),
		Children: make([]*Node, 0, len(f.Children)),
	}
	for _, child := range f.Children {
		n.Children = append(n.Children, p.parse(child))
	}
	return n
}

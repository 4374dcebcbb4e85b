package fieldtree

import "github.com/mbolis/quick-fields/model"

// OrderKey reads and writes the sibling order key of an element.
type OrderKey[T any] struct {
	Get func(T) int
	Set func(T, int)
}

var (
	PresentationOrder = OrderKey[*model.Option]{
		Get: func(o *model.Option) int { return o.PresentationOrder },
		Set: func(o *model.Option, v int) { o.PresentationOrder = v },
	}
	YOrder = OrderKey[*model.Field]{
		Get: func(f *model.Field) int { return f.Y },
		Set: func(f *model.Field, v int) { f.Y = v },
	}
)

// AssignUniqueOrderIndex renumbers options 0..n-1 following slice order.
func AssignUniqueOrderIndex(options []*model.Option) {
	Renumber(options, PresentationOrder)
}

// Renumber sets key to the element index and reports the elements whose
// key changed.
func Renumber[T any](items []T, key OrderKey[T]) (changed []T) {
	for i, item := range items {
		if key.Get(item) != i {
			key.Set(item, i)
			changed = append(changed, item)
		}
	}
	return changed
}

// NextOrderValue is the key of an element appended after siblings.
func NextOrderValue[T any](siblings []T, key OrderKey[T]) int {
	if len(siblings) == 0 {
		return 0
	}
	highest := key.Get(siblings[0])
	for _, s := range siblings[1:] {
		if v := key.Get(s); v > highest {
			highest = v
		}
	}
	return highest + 1
}

// Swap exchanges seq[index] with seq[index+delta]. It does nothing and
// returns false when either position is out of range.
func Swap[T any](seq []T, index, delta int) bool {
	target := index + delta
	if index < 0 || index >= len(seq) || target < 0 || target >= len(seq) {
		return false
	}
	seq[index], seq[target] = seq[target], seq[index]
	return true
}

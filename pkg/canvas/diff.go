package canvas

import "sort"

// ChangeType classifies a single structural modification.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeUpdated ChangeType = "updated"
	ChangeMoved   ChangeType = "moved"
)

// Change is one modification found by Diff.
type Change struct {
	Type ChangeType
	ID   string
	Kind NodeKind
}

// DiffResult is the structural difference between two canvases.
type DiffResult struct {
	Changes []Change
}

// Count returns the number of modifications.
func (d DiffResult) Count() int {
	return len(d.Changes)
}

// CountOf returns the number of modifications of one type.
func (d DiffResult) CountOf(t ChangeType) int {
	n := 0
	for _, c := range d.Changes {
		if c.Type == t {
			n++
		}
	}
	return n
}

// Diff compares a modified canvas against its base, aligning nodes by id at every
// level of the tree. Each of the following counts as one modification:
//   - a node present only in modified (added; its subtree is not counted again)
//   - a node present only in base (removed)
//   - a shared node whose own attributes differ (updated)
//   - a shared node outside the longest run of siblings that kept their relative order (moved)
func Diff(base, modified []Item) DiffResult {
	var d DiffResult
	diffSiblings(&d, base, modified, Item.ID, itemKindOf, func(a, b Item) {
		diffItem(&d, a, b)
	})
	return d
}

// DiffCount returns Diff(base, modified).Count().
func DiffCount(base, modified []Item) int {
	return Diff(base, modified).Count()
}

// Equal reports whether two canvases are structurally identical, ids included.
func Equal(a, b []Item) bool {
	return DiffCount(a, b) == 0
}

func itemKindOf(it Item) NodeKind {
	switch it.Kind() {
	case KindSection:
		return NodeSection
	default:
		return NodeWidget
	}
}

func diffItem(d *DiffResult, a, b Item) {
	switch {
	case a.Kind() != b.Kind():
		d.Changes = append(d.Changes, Change{Type: ChangeUpdated, ID: b.ID(), Kind: itemKindOf(b)})
	case a.Kind() == KindSection:
		diffSection(d, a.Section, b.Section)
	case a.Kind() == KindWidget:
		diffWidget(d, *a.Widget, *b.Widget)
	}
}

func diffSection(d *DiffResult, a, b *Section) {
	if a.Name != b.Name || a.Layout != b.Layout {
		d.Changes = append(d.Changes, Change{Type: ChangeUpdated, ID: b.ID, Kind: NodeSection})
	}
	diffSiblings(d, a.Areas, b.Areas,
		func(x Area) string { return x.ID },
		func(Area) NodeKind { return NodeArea },
		func(x, y Area) {
			if x.Name != y.Name {
				d.Changes = append(d.Changes, Change{Type: ChangeUpdated, ID: y.ID, Kind: NodeArea})
			}
			diffWidgetList(d, x.Widgets, y.Widgets)
		})
}

func diffWidgetList(d *DiffResult, a, b []Widget) {
	diffSiblings(d, a, b,
		func(w Widget) string { return w.ID },
		func(Widget) NodeKind { return NodeWidget },
		func(x, y Widget) { diffWidget(d, x, y) })
}

func diffWidget(d *DiffResult, a, b Widget) {
	if a.Kind != b.Kind || !propsEqual(a.Props, b.Props) {
		d.Changes = append(d.Changes, Change{Type: ChangeUpdated, ID: b.ID, Kind: NodeWidget})
	}
	diffWidgetList(d, a.Children, b.Children)
}

func propsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// diffSiblings aligns two ordered sibling lists by id, records additions, removals
// and moves, and hands each shared pair to recurse.
func diffSiblings[T any](d *DiffResult, base, modified []T, id func(T) string, kind func(T) NodeKind, recurse func(a, b T)) {
	baseIdx := make(map[string]int, len(base))
	for i, x := range base {
		if _, dup := baseIdx[id(x)]; !dup {
			baseIdx[id(x)] = i
		}
	}

	matched := make(map[int]bool, len(base))
	var order []int // base positions of shared nodes, in modified order
	var shared []int
	for j, y := range modified {
		i, ok := baseIdx[id(y)]
		if !ok || matched[i] {
			d.Changes = append(d.Changes, Change{Type: ChangeAdded, ID: id(y), Kind: kind(y)})
			continue
		}
		matched[i] = true
		order = append(order, i)
		shared = append(shared, j)
	}

	for i, x := range base {
		if !matched[i] {
			d.Changes = append(d.Changes, Change{Type: ChangeRemoved, ID: id(x), Kind: kind(x)})
		}
	}

	stable := longestIncreasing(order)
	for k, j := range shared {
		y := modified[j]
		if !stable[k] {
			d.Changes = append(d.Changes, Change{Type: ChangeMoved, ID: id(y), Kind: kind(y)})
		}
		recurse(base[order[k]], y)
	}
}

// longestIncreasing marks the positions of seq that belong to one longest strictly
// increasing subsequence.
func longestIncreasing(seq []int) []bool {
	keep := make([]bool, len(seq))
	if len(seq) == 0 {
		return keep
	}

	tails := []int{} // tails[l] = index in seq of the smallest tail of a run of length l+1
	prev := make([]int, len(seq))
	for i, v := range seq {
		l := sort.Search(len(tails), func(k int) bool { return seq[tails[k]] >= v })
		if l > 0 {
			prev[i] = tails[l-1]
		} else {
			prev[i] = -1
		}
		if l == len(tails) {
			tails = append(tails, i)
		} else {
			tails[l] = i
		}
	}

	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}

package canvas

// NodeKind identifies the type of a node visited by Walk.
type NodeKind string

const (
	NodeSection NodeKind = "section"
	NodeArea    NodeKind = "area"
	NodeWidget  NodeKind = "widget"
)

// Node is one visited position in a canvas tree. Exactly one of Section, Area or
// Widget is set, pointing into the walked tree so callers may edit in place.
type Node struct {
	ID      string
	Kind    NodeKind
	Depth   int      // 0 for top-level items
	Path    []string // ids of the ancestors, outermost first
	Section *Section
	Area    *Area
	Widget  *Widget
}

// Walk visits every node in pre-order. Returning false from fn stops the walk.
func Walk(items []Item, fn func(Node) bool) {
	w := walker{fn: fn}
	for i := range items {
		if !w.item(&items[i]) {
			return
		}
	}
}

type walker struct {
	fn   func(Node) bool
	path []string
}

func (w *walker) visit(n Node) bool {
	n.Depth = len(w.path)
	n.Path = append([]string(nil), w.path...)
	return w.fn(n)
}

func (w *walker) item(it *Item) bool {
	switch it.Kind() {
	case KindSection:
		return w.section(it.Section)
	case KindWidget:
		return w.widget(it.Widget)
	default:
		return true
	}
}

func (w *walker) section(s *Section) bool {
	if !w.visit(Node{ID: s.ID, Kind: NodeSection, Section: s}) {
		return false
	}
	w.path = append(w.path, s.ID)
	defer func() { w.path = w.path[:len(w.path)-1] }()

	for i := range s.Areas {
		a := &s.Areas[i]
		if !w.visit(Node{ID: a.ID, Kind: NodeArea, Area: a}) {
			return false
		}
		w.path = append(w.path, a.ID)
		for j := range a.Widgets {
			if !w.widget(&a.Widgets[j]) {
				w.path = w.path[:len(w.path)-1]
				return false
			}
		}
		w.path = w.path[:len(w.path)-1]
	}
	return true
}

func (w *walker) widget(wd *Widget) bool {
	if !w.visit(Node{ID: wd.ID, Kind: NodeWidget, Widget: wd}) {
		return false
	}
	w.path = append(w.path, wd.ID)
	defer func() { w.path = w.path[:len(w.path)-1] }()

	for i := range wd.Children {
		if !w.widget(&wd.Children[i]) {
			return false
		}
	}
	return true
}

// Find returns the node with the given id.
func Find(items []Item, id string) (Node, bool) {
	var found Node
	ok := false
	Walk(items, func(n Node) bool {
		if n.ID == id {
			found, ok = n, true
			return false
		}
		return true
	})
	return found, ok
}

// Count returns the number of nodes (sections, areas and widgets) in a canvas.
func Count(items []Item) int {
	n := 0
	Walk(items, func(Node) bool {
		n++
		return true
	})
	return n
}

// IDs lists every node id in pre-order.
func IDs(items []Item) []string {
	var ids []string
	Walk(items, func(n Node) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

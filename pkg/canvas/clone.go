package canvas

// Clone deep-copies a canvas, keeping every id.
// A nil canvas clones to nil; an empty one to an empty, non-nil slice.
func Clone(items []Item) []Item {
	return cloneItems(items, func(id string) string { return id })
}

// CloneWithNewIDs deep-copies a canvas and regenerates every id recursively, so
// the copy can live in another scope without identity collisions.
func CloneWithNewIDs(items []Item) []Item {
	return cloneItems(items, func(string) string { return NewID() })
}

func cloneItems(items []Item, id func(string) string) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		switch it.Kind() {
		case KindSection:
			s := cloneSection(it.Section, id)
			out[i] = Item{Section: &s}
		case KindWidget:
			w := cloneWidget(*it.Widget, id)
			out[i] = Item{Widget: &w}
		default:
			// Malformed items are copied shallowly so Validate still reports them.
			out[i] = it
		}
	}
	return out
}

func cloneSection(s *Section, id func(string) string) Section {
	c := Section{
		ID:     id(s.ID),
		Name:   s.Name,
		Layout: s.Layout,
	}
	if s.Areas != nil {
		c.Areas = make([]Area, len(s.Areas))
		for i, a := range s.Areas {
			c.Areas[i] = Area{
				ID:      id(a.ID),
				Name:    a.Name,
				Widgets: cloneWidgets(a.Widgets, id),
			}
		}
	}
	return c
}

func cloneWidgets(ws []Widget, id func(string) string) []Widget {
	if ws == nil {
		return nil
	}
	out := make([]Widget, len(ws))
	for i, w := range ws {
		out[i] = cloneWidget(w, id)
	}
	return out
}

func cloneWidget(w Widget, id func(string) string) Widget {
	return Widget{
		ID:       id(w.ID),
		Kind:     w.Kind,
		Props:    cloneProps(w.Props),
		Children: cloneWidgets(w.Children, id),
	}
}

func cloneProps(p map[string]string) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

package canvas

import "github.com/google/uuid"

// NewID returns a fresh node identifier.
func NewID() string {
	return uuid.New().String()
}

// NewSection creates a section item with a fresh id.
func NewSection(name string, layout Layout, areas ...Area) Item {
	return Item{Section: &Section{
		ID:     NewID(),
		Name:   name,
		Layout: layout,
		Areas:  areas,
	}}
}

// NewArea creates an area with a fresh id.
func NewArea(name string, widgets ...Widget) Area {
	return Area{ID: NewID(), Name: name, Widgets: widgets}
}

// NewWidget creates a widget with a fresh id. Props is copied.
func NewWidget(kind WidgetKind, props map[string]string, children ...Widget) Widget {
	return Widget{
		ID:       NewID(),
		Kind:     kind,
		Props:    cloneProps(props),
		Children: children,
	}
}

// WidgetItem wraps a widget as a standalone top-level item.
func WidgetItem(w Widget) Item {
	return Item{Widget: &w}
}

// EnsureIDs assigns fresh ids to every node that has none, in place.
// Trees authored by hand (folio.yml seeds, edit files) usually omit ids.
// Returns the number of ids assigned.
func EnsureIDs(items []Item) int {
	assigned := 0
	fill := func(id *string) {
		if *id == "" {
			*id = NewID()
			assigned++
		}
	}

	var widgets func(ws []Widget)
	widgets = func(ws []Widget) {
		for i := range ws {
			fill(&ws[i].ID)
			widgets(ws[i].Children)
		}
	}

	for i := range items {
		switch items[i].Kind() {
		case KindSection:
			s := items[i].Section
			fill(&s.ID)
			for j := range s.Areas {
				fill(&s.Areas[j].ID)
				widgets(s.Areas[j].Widgets)
			}
		case KindWidget:
			fill(&items[i].Widget.ID)
			widgets(items[i].Widget.Children)
		}
	}
	return assigned
}

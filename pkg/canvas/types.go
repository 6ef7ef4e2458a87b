package canvas

import (
	"fmt"
)

// MaxWidgetDepth bounds widget nesting (tabs inside tab panels inside tabs...).
// A top-level widget has depth 1.
const MaxWidgetDepth = 4

// Kind identifies which variant of the Item union is populated.
type Kind string

const (
	// KindSection marks an Item holding a Section
	KindSection Kind = "section"

	// KindWidget marks an Item holding a standalone Widget
	KindWidget Kind = "widget"
)

// Item is one top-level entry of a canvas. Exactly one of Section or Widget is set.
type Item struct {
	Section *Section `json:"section,omitempty" yaml:"section,omitempty"`
	Widget  *Widget  `json:"widget,omitempty" yaml:"widget,omitempty"`
}

// Section is a full-width band of the page split into areas (columns).
type Section struct {
	ID     string `json:"id" yaml:"id,omitempty"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Layout Layout `json:"layout,omitempty" yaml:"layout,omitempty"`
	Areas  []Area `json:"areas,omitempty" yaml:"areas,omitempty"`
}

// Area is a column inside a section holding an ordered list of widgets.
type Area struct {
	ID      string   `json:"id" yaml:"id,omitempty"`
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Widgets []Widget `json:"widgets,omitempty" yaml:"widgets,omitempty"`
}

// Widget is a content block. Props carry the widget's editable properties as
// opaque strings; container kinds may own Children.
type Widget struct {
	ID       string            `json:"id" yaml:"id,omitempty"`
	Kind     WidgetKind        `json:"kind" yaml:"kind"`
	Props    map[string]string `json:"props,omitempty" yaml:"props,omitempty"`
	Children []Widget          `json:"children,omitempty" yaml:"children,omitempty"`
}

// Layout is the column arrangement of a section.
type Layout string

const (
	LayoutOneColumn    Layout = "one-column"
	LayoutTwoColumn    Layout = "two-column"
	LayoutThreeColumn  Layout = "three-column"
	LayoutSidebarLeft  Layout = "sidebar-left"
	LayoutSidebarRight Layout = "sidebar-right"
)

// WidgetKind is the closed set of widget types the builder knows how to render.
type WidgetKind string

const (
	WidgetHeading         WidgetKind = "heading"
	WidgetText            WidgetKind = "text"
	WidgetImage           WidgetKind = "image"
	WidgetButton          WidgetKind = "button"
	WidgetBanner          WidgetKind = "banner"
	WidgetMenu            WidgetKind = "menu"
	WidgetPublicationList WidgetKind = "publication-list"
	WidgetHTML            WidgetKind = "html"
	WidgetDivider         WidgetKind = "divider"
	WidgetSpacer          WidgetKind = "spacer"
	WidgetTabs            WidgetKind = "tabs"
	WidgetTabPanel        WidgetKind = "tab-panel"
)

// Kind reports which variant is populated, or "" for a malformed item.
func (it Item) Kind() Kind {
	switch {
	case it.Section != nil && it.Widget == nil:
		return KindSection
	case it.Widget != nil && it.Section == nil:
		return KindWidget
	default:
		return ""
	}
}

// ID returns the identifier of the populated variant.
func (it Item) ID() string {
	switch it.Kind() {
	case KindSection:
		return it.Section.ID
	case KindWidget:
		return it.Widget.ID
	default:
		return ""
	}
}

// Validate checks if the Layout is a valid enum value. Empty means the renderer default.
func (l Layout) Validate() error {
	switch l {
	case "", LayoutOneColumn, LayoutTwoColumn, LayoutThreeColumn, LayoutSidebarLeft, LayoutSidebarRight:
		return nil
	default:
		return fmt.Errorf("unknown layout: %q", l)
	}
}

// Validate checks if the WidgetKind is a valid enum value.
func (k WidgetKind) Validate() error {
	switch k {
	case WidgetHeading, WidgetText, WidgetImage, WidgetButton, WidgetBanner,
		WidgetMenu, WidgetPublicationList, WidgetHTML, WidgetDivider,
		WidgetSpacer, WidgetTabs, WidgetTabPanel:
		return nil
	default:
		return fmt.Errorf("unknown widget kind: %q", k)
	}
}

// AcceptsChildren reports whether widgets of this kind may own nested widgets.
func (k WidgetKind) AcceptsChildren() bool {
	return k == WidgetTabs || k == WidgetTabPanel
}

// Validate checks a whole canvas: every item well-formed and every id unique.
func Validate(items []Item) error {
	seen := make(map[string]struct{})
	for i, it := range items {
		if err := it.validate(seen); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks a single item in isolation.
func (it Item) Validate() error {
	return it.validate(make(map[string]struct{}))
}

func (it Item) validate(seen map[string]struct{}) error {
	switch it.Kind() {
	case KindSection:
		return it.Section.validate(seen)
	case KindWidget:
		return it.Widget.validate(seen, 1)
	default:
		return fmt.Errorf("item must hold exactly one of section or widget")
	}
}

func (s *Section) validate(seen map[string]struct{}) error {
	if err := claimID(seen, s.ID); err != nil {
		return fmt.Errorf("section: %w", err)
	}
	if err := s.Layout.Validate(); err != nil {
		return fmt.Errorf("section %s: %w", s.ID, err)
	}
	for i := range s.Areas {
		a := &s.Areas[i]
		if err := claimID(seen, a.ID); err != nil {
			return fmt.Errorf("section %s area %d: %w", s.ID, i, err)
		}
		for j := range a.Widgets {
			if err := a.Widgets[j].validate(seen, 1); err != nil {
				return fmt.Errorf("section %s area %s: %w", s.ID, a.ID, err)
			}
		}
	}
	return nil
}

func (w *Widget) validate(seen map[string]struct{}, depth int) error {
	if err := claimID(seen, w.ID); err != nil {
		return fmt.Errorf("widget: %w", err)
	}
	if err := w.Kind.Validate(); err != nil {
		return fmt.Errorf("widget %s: %w", w.ID, err)
	}
	if depth > MaxWidgetDepth {
		return fmt.Errorf("widget %s: nesting depth %d exceeds %d", w.ID, depth, MaxWidgetDepth)
	}
	if len(w.Children) > 0 && !w.Kind.AcceptsChildren() {
		return fmt.Errorf("widget %s: kind %q cannot own children", w.ID, w.Kind)
	}
	for i := range w.Children {
		if err := w.Children[i].validate(seen, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func claimID(seen map[string]struct{}, id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("duplicate id %q", id)
	}
	seen[id] = struct{}{}
	return nil
}

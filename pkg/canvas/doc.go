// Package canvas defines the page content tree edited on the page-builder canvas.
//
// # Overview
//
// Page content is an ordered list of Items. An Item is a closed tagged union of a
// Section or a standalone Widget. Sections own ordered Areas, Areas own ordered
// Widgets, and container widgets (tabs, tab panels) own nested widgets up to
// MaxWidgetDepth levels deep.
//
// Every node carries a stable identifier assigned at creation and never reused.
// Clone keeps identifiers so an override copied from its inherited tree can be
// diffed against it node by node. CloneWithNewIDs regenerates every identifier and
// is used whenever content is detached into a new template.
//
// # Usage Example
//
//	items := []canvas.Item{
//		canvas.NewSection("Header", canvas.LayoutOneColumn,
//			canvas.NewArea("main",
//				canvas.NewWidget(canvas.WidgetBanner, map[string]string{"color": "black"}),
//			),
//		),
//	}
//
//	if err := canvas.Validate(items); err != nil {
//		log.Fatal(err)
//	}
//
//	edited := canvas.Clone(items)
//	edited[0].Section.Areas[0].Widgets[0].Props["color"] = "orange"
//
//	canvas.DiffCount(items, edited) // 1
//
// # Design Principles
//
// - Closed union: code that walks the tree switches on Item.Kind and NodeKind
// - Identity: ids are unique within a tree and survive Clone
// - Value semantics: helpers never alias the input tree in their results
package canvas

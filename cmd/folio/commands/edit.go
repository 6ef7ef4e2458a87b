package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dyluth/folio/internal/itemref"
	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/internal/session"
	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type editOptions struct {
	file  string
	tier  string
	item  string
	set   []string
	unset []string
}

func newEditCmd(g *globalOptions) *cobra.Command {
	o := &editOptions{}

	cmd := &cobra.Command{
		Use:   "edit TEMPLATE ROUTE",
		Short: "Store an override for a route",
		Long: `Store an override of a template's canvas for a route.

Whole canvas (--file):
  Replaces the override with the items in a YAML or JSON file. Nodes without
  an id get a fresh one.

Single item (--item with --set/--unset):
  Starts from the route's effective canvas and changes one node. Widgets take
  any prop; sections accept name and layout; areas accept name. --item takes a
  full node id or a prefix of at least 6 characters as shown by 'folio resolve'.

The override lands at the route's own tier unless --tier names a less specific
one (editing the journal tier from an issue route writes the journal override).

Examples:
  folio edit toc journal/embo --file toc-embo.yml
  folio edit toc journal/embo --item 3f2a9c --set color=blue
  folio edit toc journal/embo/issue/2024-1 --tier journal --file shared.yml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, g, o, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&o.file, "file", "f", "", "YAML or JSON file holding the canvas items")
	cmd.Flags().StringVar(&o.tier, "tier", "", "Tier to write (default: the route's own tier)")
	cmd.Flags().StringVar(&o.item, "item", "", "Node id or id prefix to change")
	cmd.Flags().StringArrayVar(&o.set, "set", nil, "key=value to set on --item (repeatable)")
	cmd.Flags().StringArrayVar(&o.unset, "unset", nil, "Prop key to remove from --item (repeatable)")
	return cmd
}

func runEdit(cmd *cobra.Command, g *globalOptions, o *editOptions, templateID, routeArg string) error {
	if (o.file == "") == (o.item == "") {
		return printer.Error("nothing to edit", "Exactly one of --file or --item is required.", nil)
	}
	if o.item != "" && len(o.set) == 0 && len(o.unset) == 0 {
		return printer.Error("nothing to edit", "--item needs at least one --set or --unset.", nil)
	}

	route, err := parseRoute(routeArg)
	if err != nil {
		return err
	}
	tier, err := parseTier(route, o.tier)
	if err != nil {
		return err
	}

	var items []canvas.Item
	if o.file != "" {
		if items, err = readCanvasFile(o.file); err != nil {
			return printer.Error("invalid canvas file", err.Error(), nil)
		}
	}

	ctx := cmd.Context()
	s, closeFn, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	var saved *site.Override
	if items != nil {
		if saved, err = s.Governance.EditAt(route, templateID, tier, items); err != nil {
			return printer.EngineError("edit failed", err)
		}
	} else if saved, err = editItem(s, templateID, route, tier, o); err != nil {
		return err
	}
	if err := commit(ctx, s); err != nil {
		return err
	}

	printer.Success("Saved %s override of '%s' at %s (%d modifications)\n",
		printer.Tier(saved.Tier), templateID, saved.Route, saved.ModificationCount)
	return nil
}

// editItem changes one node of the canvas the route renders from tier outward
// and stores the result at tier (copy-on-write).
func editItem(s *session.Session, templateID string, route site.Route, tier site.Tier, o *editOptions) (*site.Override, error) {
	res, err := s.Engine.ResolveFrom(route, templateID, tier)
	if err != nil {
		return nil, printer.EngineError("edit failed", err)
	}

	node, err := itemref.Resolve(res.Items, o.item)
	if err != nil {
		var amb *itemref.AmbiguousError
		if errors.As(err, &amb) {
			return nil, printer.Error("ambiguous item", itemref.FormatAmbiguousError(amb), nil)
		}
		return nil, printer.Error("item not found", err.Error(), []string{
			fmt.Sprintf("List node ids:\n  folio resolve %s %s", templateID, route),
		})
	}

	mutate := func(n canvas.Node) error { return applyChanges(n, o.set, o.unset) }

	var saved *site.Override
	if own, _ := site.OwnTier(route); tier == own {
		saved, err = s.Governance.EditItem(route, templateID, node.ID, mutate)
	} else {
		if err = mutate(node); err == nil {
			saved, err = s.Governance.EditAt(route, templateID, tier, res.Items)
		}
	}
	if err != nil {
		if site.IsNotFound(err) || site.IsInvalidScope(err) {
			return nil, printer.EngineError("edit failed", err)
		}
		return nil, printer.Error("invalid change", err.Error(), nil)
	}
	return saved, nil
}

// readCanvasFile parses a list of canvas items. YAML is a superset of JSON, so
// one decoder serves both.
func readCanvasFile(path string) ([]canvas.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var items []canvas.Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if items == nil {
		items = []canvas.Item{}
	}

	canvas.EnsureIDs(items)
	if err := canvas.Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

// applyChanges edits one node in place.
func applyChanges(n canvas.Node, set, unset []string) error {
	pairs := make(map[string]string, len(set))
	for _, kv := range set {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("--set %q: expected key=value", kv)
		}
		pairs[k] = v
	}

	switch n.Kind {
	case canvas.NodeWidget:
		if n.Widget.Props == nil {
			n.Widget.Props = make(map[string]string)
		}
		for k, v := range pairs {
			n.Widget.Props[k] = v
		}
		for _, k := range unset {
			delete(n.Widget.Props, k)
		}
		return nil

	case canvas.NodeSection:
		if len(unset) > 0 {
			return fmt.Errorf("sections have no props to unset")
		}
		for k, v := range pairs {
			switch k {
			case "name":
				n.Section.Name = v
			case "layout":
				l := canvas.Layout(v)
				if err := l.Validate(); err != nil {
					return err
				}
				n.Section.Layout = l
			default:
				return fmt.Errorf("sections accept name and layout, not %q", k)
			}
		}
		return nil

	case canvas.NodeArea:
		if len(unset) > 0 {
			return fmt.Errorf("areas have no props to unset")
		}
		for k, v := range pairs {
			if k != "name" {
				return fmt.Errorf("areas accept name, not %q", k)
			}
			n.Area.Name = v
		}
		return nil

	default:
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
}

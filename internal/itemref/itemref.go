// Package itemref turns the short node ids shown by the CLI back into the full
// ids stored in a canvas.
package itemref

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/folio/pkg/canvas"
)

// MinShortIDLength is the minimum length of a short id prefix.
const MinShortIDLength = 6

// ShortIDLength is the length the CLI uses when printing node ids.
const ShortIDLength = 8

// Short truncates id for display.
func Short(id string) string {
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}

// Resolve finds the node of items whose id is ref or starts with ref.
// An exact id match always wins, whatever its length.
func Resolve(items []canvas.Item, ref string) (canvas.Node, error) {
	ref = strings.TrimSpace(ref)
	if node, ok := canvas.Find(items, ref); ok {
		return node, nil
	}

	if len(ref) < MinShortIDLength {
		return canvas.Node{}, fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(ref))
	}

	var matches []canvas.Node
	canvas.Walk(items, func(n canvas.Node) bool {
		if strings.HasPrefix(n.ID, ref) {
			matches = append(matches, n)
		}
		return true
	})

	switch len(matches) {
	case 0:
		return canvas.Node{}, &NotFoundError{ShortID: ref}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		sort.Strings(ids)
		return canvas.Node{}, &AmbiguousError{ShortID: ref, Matches: ids}
	}
}

// NotFoundError indicates no node matched the short id.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no canvas items found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several nodes matched the short id.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d items", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists the matching ids (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ambiguous short ID '%s' matches %d items:\n", err.ShortID, len(err.Matches))

	shown := err.Matches
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, id := range shown {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse a longer prefix to identify the item.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var target *AmbiguousError
	return errors.As(err, &target)
}

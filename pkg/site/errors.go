package site

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError indicates a template, override or route with no registry entry.
// It is never defaulted silently: a missing base template is a configuration bug,
// unlike a missing override which simply falls through to the next tier.
type NotFoundError struct {
	Kind string // "template", "override", ...
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Key)
}

// CyclicInheritanceError indicates a template whose inheritsFrom chain revisits itself.
type CyclicInheritanceError struct {
	TemplateID string
	Chain      []string // ids in visit order, ending with the repeated id
}

func (e *CyclicInheritanceError) Error() string {
	return fmt.Sprintf("cyclic inheritance for template '%s': %s", e.TemplateID, strings.Join(e.Chain, " -> "))
}

// InvalidScopeError indicates a tier requested for a route kind it does not apply to.
type InvalidScopeError struct {
	Route  Route
	Tier   Tier
	Reason string
}

func (e *InvalidScopeError) Error() string {
	if e.Tier == "" {
		return fmt.Sprintf("invalid scope for route '%s': %s", e.Route, e.Reason)
	}
	return fmt.Sprintf("invalid scope %s for route '%s': %s", e.Tier, e.Route, e.Reason)
}

// IsNotFound returns true if err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsCyclicInheritance returns true if err is or wraps a *CyclicInheritanceError.
func IsCyclicInheritance(err error) bool {
	var target *CyclicInheritanceError
	return errors.As(err, &target)
}

// IsInvalidScope returns true if err is or wraps an *InvalidScopeError.
func IsInvalidScope(err error) bool {
	var target *InvalidScopeError
	return errors.As(err, &target)
}

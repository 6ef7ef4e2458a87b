package site

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	notFound := &NotFoundError{Kind: "template", Key: "toc"}
	cyclic := &CyclicInheritanceError{TemplateID: "a", Chain: []string{"a", "b", "a"}}
	scope := &InvalidScopeError{Route: GlobalRoute, Tier: TierJournal, Reason: "no journal"}

	assert.EqualError(t, notFound, "template 'toc' not found")
	assert.EqualError(t, cyclic, "cyclic inheritance for template 'a': a -> b -> a")
	assert.EqualError(t, scope, "invalid scope journal for route 'global': no journal")

	wrapped := fmt.Errorf("resolve: %w", notFound)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsCyclicInheritance(wrapped))
	assert.True(t, IsCyclicInheritance(fmt.Errorf("register: %w", cyclic)))
	assert.True(t, IsInvalidScope(fmt.Errorf("promote: %w", scope)))
	assert.False(t, IsInvalidScope(errors.New("plain")))
}

package livesync

import (
	"strings"

	"github.com/google/uuid"
)

// MessageScope is the unordered set of negotiation ids a message feed
// covers. Equality is by set membership, never by ordering.
type MessageScope map[uuid.UUID]struct{}

// NewMessageScope builds a scope from a possibly duplicated id list.
func NewMessageScope(ids []uuid.UUID) MessageScope {
	scope := make(MessageScope, len(ids))
	for _, id := range ids {
		scope[id] = struct{}{}
	}
	return scope
}

// Equal reports set equality with another scope.
func (s MessageScope) Equal(other MessageScope) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// IDs returns the scope members in unspecified order.
func (s MessageScope) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// ErrorCategory buckets feed errors for user-facing surfacing.
type ErrorCategory string

const (
	ErrorCategoryIndex      ErrorCategory = "index"
	ErrorCategoryPermission ErrorCategory = "permission"
	ErrorCategoryGeneric    ErrorCategory = "sync"
)

// Classify maps known error text fragments to categories; anything
// unrecognized is a generic sync error.
func Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryGeneric
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "index"):
		return ErrorCategoryIndex
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied") || strings.Contains(msg, "forbidden"):
		return ErrorCategoryPermission
	default:
		return ErrorCategoryGeneric
	}
}

package application

import (
	"github.com/oksasatya/tripdesk/internal/domain/entity"
)

// The ownership policy for every owner-scoped resource lives here:
// owners see and mutate their own rows, admins see and mutate everything.

// CanAccess reports whether actor may read or mutate a row owned by ownerID.
func CanAccess(actor *entity.User, ownerID int64) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || actor.ID == ownerID
}

// ScopeFilter narrows a list filter to the actor's own rows unless the actor is an admin.
func ScopeFilter(actor *entity.User, schema *entity.Schema, filter entity.Filter) entity.Filter {
	if !schema.Owned() {
		return filter
	}
	out := entity.Filter{}
	for k, v := range filter {
		out[k] = v
	}
	if !actor.IsAdmin() {
		out[schema.OwnerField] = actor.ID
	}
	return out
}

// ClaimOwnership sets the owner of new input. Admins may name another owner.
func ClaimOwnership(actor *entity.User, schema *entity.Schema, input map[string]any) map[string]any {
	if !schema.Owned() {
		return input
	}
	out := make(map[string]any, len(input)+1)
	for k, v := range input {
		out[k] = v
	}
	if requested, ok := out[schema.OwnerField]; ok && requested != nil && actor.IsAdmin() {
		return out
	}
	out[schema.OwnerField] = actor.ID
	return out
}

// GuardOwnerChange drops an owner reassignment attempted by a non-admin.
func GuardOwnerChange(actor *entity.User, schema *entity.Schema, partial map[string]any) map[string]any {
	if !schema.Owned() || actor.IsAdmin() {
		return partial
	}
	if _, ok := partial[schema.OwnerField]; !ok {
		return partial
	}
	out := make(map[string]any, len(partial))
	for k, v := range partial {
		if k != schema.OwnerField {
			out[k] = v
		}
	}
	return out
}

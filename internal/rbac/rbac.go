package rbac

import (
	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
)

// Role names are ranked by an explicit priority table; a higher priority
// implies every capability of the roles below it.
const (
	RoleCustomer = "customer"
	RoleAgent    = "agent"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

var rolePriority = map[string]int{
	RoleCustomer: 10,
	RoleAgent:    40,
	RoleManager:  70,
	RoleAdmin:    100,
}

var rolePermissions = map[string][]string{
	RoleCustomer: {"tickets:read:own", "tickets:create"},
	RoleAgent:    {"tickets:read", "tickets:update", "contacts:read"},
	RoleManager:  {"tickets:read", "tickets:update", "tickets:assign", "contacts:read", "contacts:update", "reports:read"},
	RoleAdmin:    {"*"},
}

// Priority returns the numeric rank of a role, or -1 for unknown roles.
func Priority(role string) int {
	p, ok := rolePriority[role]
	if !ok {
		return -1
	}
	return p
}

// Permissions returns the permission set carried in token claims for a role.
func Permissions(role string) []string {
	return rolePermissions[role]
}

// IsValidRole reports whether a role name appears in the priority table.
func IsValidRole(role string) bool {
	_, ok := rolePriority[role]
	return ok
}

// RequireRole authorizes when the caller's priority is at least the priority
// of any allowed role. An empty caller role is an unauthenticated caller.
// An unknown *allowed* role is a programming slip and degrades to a generic
// authorization failure without detail.
func RequireRole(callerRole string, allowed ...string) error {
	if callerRole == "" {
		return autherrors.ErrNotAuthenticated
	}
	callerPriority, ok := rolePriority[callerRole]
	if !ok {
		return autherrors.ErrNotAuthenticated
	}

	for _, role := range allowed {
		required, ok := rolePriority[role]
		if !ok {
			return autherrors.ErrAuthorizationFailed
		}
		if callerPriority >= required {
			return nil
		}
	}
	return autherrors.ErrInsufficientRole
}

// RequireExactRole authorizes only on exact membership, ignoring hierarchy.
func RequireExactRole(callerRole string, allowed ...string) error {
	if callerRole == "" {
		return autherrors.ErrNotAuthenticated
	}
	if _, ok := rolePriority[callerRole]; !ok {
		return autherrors.ErrNotAuthenticated
	}

	for _, role := range allowed {
		if _, ok := rolePriority[role]; !ok {
			return autherrors.ErrAuthorizationFailed
		}
		if callerRole == role {
			return nil
		}
	}
	return autherrors.ErrInsufficientRole
}

// RequireSelfOrAdmin authorizes the resource owner, or any caller with
// admin-tier priority or above.
func RequireSelfOrAdmin(callerRole, callerID, ownerID string) error {
	if callerRole == "" || callerID == "" {
		return autherrors.ErrNotAuthenticated
	}
	if callerID == ownerID {
		return nil
	}
	callerPriority, ok := rolePriority[callerRole]
	if !ok {
		return autherrors.ErrNotAuthenticated
	}
	if callerPriority >= rolePriority[RoleAdmin] {
		return nil
	}
	return autherrors.ErrInsufficientRole
}

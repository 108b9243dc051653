package auth

import (
	"slices"

	appledger "github.com/erp/ledger/internal/application/ledger"
)

const permissionPrefix = "ledger:"

// PermissionAll grants every ledger action
const PermissionAll = "ledger:*"

// Permission returns the token permission that grants action
func Permission(action appledger.Action) string {
	return permissionPrefix + string(action)
}

// PermissionAuthorizer grants an action when the actor holds ledger:<action> or ledger:*
type PermissionAuthorizer struct{}

// NewPermissionAuthorizer creates a new PermissionAuthorizer
func NewPermissionAuthorizer() *PermissionAuthorizer {
	return &PermissionAuthorizer{}
}

// Can implements appledger.Authorizer
func (PermissionAuthorizer) Can(actor appledger.Actor, action appledger.Action) bool {
	return slices.Contains(actor.Permissions, PermissionAll) ||
		slices.Contains(actor.Permissions, Permission(action))
}

// ActorFromClaims builds the ledger actor for a validated token
func ActorFromClaims(c *Claims) appledger.Actor {
	return appledger.Actor{
		ID:          c.UserID,
		Username:    c.Username,
		Permissions: c.Permissions,
	}
}

var _ appledger.Authorizer = PermissionAuthorizer{}

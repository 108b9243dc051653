package auth

import (
	"testing"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/stretchr/testify/assert"
)

func TestPermission(t *testing.T) {
	assert.Equal(t, "ledger:approve", Permission(appledger.ActionApprove))
	assert.Equal(t, "ledger:inward", Permission(appledger.ActionInward))
}

func TestPermissionAuthorizer_Can(t *testing.T) {
	authz := NewPermissionAuthorizer()

	maker := appledger.Actor{ID: "u-1", Permissions: []string{"ledger:create", "ledger:revise", "ledger:read"}}
	checker := appledger.Actor{ID: "u-2", Permissions: []string{"ledger:approve", "ledger:reject"}}
	admin := appledger.Actor{ID: "u-3", Permissions: []string{"ledger:*"}}
	nobody := appledger.Actor{ID: "u-4"}

	assert.True(t, authz.Can(maker, appledger.ActionCreate))
	assert.False(t, authz.Can(maker, appledger.ActionApprove))
	assert.True(t, authz.Can(checker, appledger.ActionReject))
	assert.False(t, authz.Can(checker, appledger.ActionResubmit))
	assert.True(t, authz.Can(admin, appledger.ActionResubmit))
	assert.False(t, authz.Can(nobody, appledger.ActionRead))
}

func TestActorFromClaims(t *testing.T) {
	actor := ActorFromClaims(&Claims{UserID: "u-9", Username: "gatekeeper", Permissions: []string{"ledger:create"}})

	assert.Equal(t, appledger.Actor{ID: "u-9", Username: "gatekeeper", Permissions: []string{"ledger:create"}}, actor)
}

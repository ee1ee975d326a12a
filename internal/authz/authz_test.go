package authz

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteret/internal/identity"
	"carteret/internal/platform/logger"
	"carteret/internal/platform/metrics"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

func TestAllowed(t *testing.T) {
	admin := &identity.Identity{ID: id.NewUserID(), Role: identity.RoleAdmin}
	user := &identity.Identity{ID: id.NewUserID(), Role: identity.RoleUser}

	for _, action := range []Action{
		ActionApproveListing, ActionRejectListing, ActionSuspendListing,
		ActionReactivateListing, ActionDeleteListing, ActionReviewVerification,
		ActionManageUsers, ActionViewDashboard,
	} {
		assert.True(t, Allowed(admin, action), string(action))
		assert.False(t, Allowed(user, action), string(action))
		assert.False(t, Allowed(nil, action), string(action))
	}
}

func TestRequire_DenialsAreIndistinguishable(t *testing.T) {
	gate := NewGate(logger.New(), metrics.NewWith(prometheus.NewRegistry()))

	anonymous := gate.Require(nil, ActionApproveListing)
	nonAdmin := gate.Require(&identity.Identity{ID: id.NewUserID(), Role: identity.RoleUser}, ActionApproveListing)

	require.Error(t, anonymous)
	require.Error(t, nonAdmin)
	assert.True(t, dErrors.HasCode(anonymous, dErrors.CodePermissionDenied))
	assert.True(t, dErrors.HasCode(nonAdmin, dErrors.CodePermissionDenied))
	assert.Equal(t, anonymous.Error(), nonAdmin.Error())
}

func TestRequire_AdminPasses(t *testing.T) {
	gate := NewGate(logger.New(), metrics.NewWith(prometheus.NewRegistry()))
	admin := &identity.Identity{ID: id.NewUserID(), Role: identity.RoleAdmin}
	assert.NoError(t, gate.Require(admin, ActionManageUsers))
}

package postgres

import (
	"context"
	"log/slog"

	"github.com/gametaverns/gametaverns/internal/observability/logger"
)

// PolicyView implements policy.View over the directory tables. Lookup
// failures report false: policy evaluation fails closed.
type PolicyView struct {
	db *DB
}

// NewPolicyView creates a new policy view
func NewPolicyView(db *DB) *PolicyView {
	return &PolicyView{db: db}
}

// TenantActive reports whether the tenant exists and is active
func (v *PolicyView) TenantActive(ctx context.Context, tenantID string) bool {
	var active bool
	err := v.db.pool.QueryRow(ctx, `SELECT active FROM tenants WHERE id = $1`, tenantID).Scan(&active)
	if err != nil {
		v.miss(ctx, "tenant_active", err)
		return false
	}
	return active
}

// TenantDiscoverable reports whether the tenant is listed for public discovery
func (v *PolicyView) TenantDiscoverable(ctx context.Context, tenantID string) bool {
	var discoverable bool
	err := v.db.pool.QueryRow(ctx, `SELECT discoverable FROM tenants WHERE id = $1`, tenantID).Scan(&discoverable)
	if err != nil {
		v.miss(ctx, "tenant_discoverable", err)
		return false
	}
	return discoverable
}

// TenantOwner returns the tenant's owner user ID
func (v *PolicyView) TenantOwner(ctx context.Context, tenantID string) (string, bool) {
	var ownerID string
	err := v.db.pool.QueryRow(ctx, `SELECT owner_id FROM tenants WHERE id = $1`, tenantID).Scan(&ownerID)
	if err != nil {
		v.miss(ctx, "tenant_owner", err)
		return "", false
	}
	return ownerID, true
}

// RoleOf returns the user's membership role in the tenant
func (v *PolicyView) RoleOf(ctx context.Context, userID, tenantID string) (string, bool) {
	var role string
	err := v.db.pool.QueryRow(ctx, `
		SELECT role FROM memberships WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID).Scan(&role)
	if err != nil {
		return "", false
	}
	return role, true
}

func (v *PolicyView) miss(ctx context.Context, lookup string, err error) {
	slog.DebugContext(ctx, "policy view lookup miss",
		logger.Operation(lookup),
		logger.Error(err),
	)
}

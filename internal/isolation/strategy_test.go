package isolation

import (
	"testing"

	"github.com/gametaverns/gametaverns/internal/config"
	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates strategy selection by configured mode.
// Scope: Unit Test
// Expected: Known modes return their strategy; anything else errors.
// Test Case ID: ISO-01
func TestIsolation_ForMode(t *testing.T) {
	shared, err := ForMode(config.IsolationShared, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, config.IsolationShared, shared.Mode())

	schema, err := ForMode(config.IsolationSchema, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, config.IsolationSchema, schema.Mode())

	_, err = ForMode("hybrid", nil, nil)
	assert.Error(t, err)
}

// TestPurpose: Validates query scoping in the shared-schema mode.
// Scope: Unit Test
// Security: Every tenant-scoped query must carry the tenant discriminator.
// Expected: Plain table name, tenant_id filter bound to the tenant's ID.
// Test Case ID: ISO-02
func TestIsolation_SharedSchema_ScopeQuery(t *testing.T) {
	strategy := &SharedSchema{}
	tnt := &tenant.Tenant{ID: "t-1", Slug: "game-night"}

	scoped := strategy.ScopeQuery("games", tnt)

	assert.Equal(t, "games", scoped.Table)
	assert.Equal(t, "tenant_id = $1", scoped.Filter)
	assert.Equal(t, "t-1", scoped.Arg)
}

// TestPurpose: Validates query scoping in the schema-per-tenant mode.
// Scope: Unit Test
// Security: Structural isolation; the schema name, not a filter, confines the query.
// Expected: Schema-qualified table derived from the slug, no filter.
// Test Case ID: ISO-03
func TestIsolation_SchemaPerTenant_ScopeQuery(t *testing.T) {
	strategy := &SchemaPerTenant{}
	tnt := &tenant.Tenant{ID: "t-1", Slug: "game-night"}

	scoped := strategy.ScopeQuery("games", tnt)

	assert.Equal(t, "tenant_game_night.games", scoped.Table)
	assert.Empty(t, scoped.Filter)
	assert.Nil(t, scoped.Arg)
}

package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates the built-in reserved slug list and operator additions.
// Scope: Unit Test
// Security: Reserved labels guard infrastructure hostnames (www, api, mail)
// from being claimed by tenants.
// Expected: Built-ins and configured extras are reserved, case-insensitively.
// Test Case ID: RSV-01
func TestTenant_ReservedSlugs(t *testing.T) {
	reserved := NewReservedSlugs([]string{"vip", "Partners"})

	for _, s := range []string{"www", "api", "admin", "mail", "smtp", "status"} {
		assert.True(t, reserved.IsReserved(s), s)
	}

	assert.True(t, reserved.IsReserved("vip"))
	assert.True(t, reserved.IsReserved("partners"))
	assert.True(t, reserved.IsReserved("WWW"))
	assert.True(t, reserved.IsReserved("Api"))

	assert.False(t, reserved.IsReserved("tzolak"))
	assert.False(t, reserved.IsReserved("game-night"))
}

// TestPurpose: Validates that the reserved set is fixed after construction.
// Scope: Unit Test
// Expected: Mutating the slice passed to the constructor does not alter the set.
// Test Case ID: RSV-02
func TestTenant_ReservedSlugs_ImmutableAfterConstruction(t *testing.T) {
	extra := []string{"vip"}
	reserved := NewReservedSlugs(extra)

	extra[0] = "tzolak"

	assert.True(t, reserved.IsReserved("vip"))
	assert.False(t, reserved.IsReserved("tzolak"))
}

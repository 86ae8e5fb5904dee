package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gametaverns/gametaverns/internal/audit"
	"github.com/gametaverns/gametaverns/internal/identity"
	"github.com/gametaverns/gametaverns/internal/policy"
	"github.com/gametaverns/gametaverns/internal/provision"
	"github.com/gametaverns/gametaverns/internal/session"
	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubView backs the policy engine with fixed directory data.
type stubView struct {
	owner string // owner of every tenant
}

func (v *stubView) TenantActive(ctx context.Context, tenantID string) bool       { return true }
func (v *stubView) TenantDiscoverable(ctx context.Context, tenantID string) bool { return true }
func (v *stubView) TenantOwner(ctx context.Context, tenantID string) (string, bool) {
	return v.owner, v.owner != ""
}
func (v *stubView) RoleOf(ctx context.Context, userID, tenantID string) (string, bool) {
	return "", false
}

// fakeUserRepo is an in-memory identity.Repository.
type fakeUserRepo struct {
	byEmail map[string]*identity.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *identity.User) error {
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *identity.User) error {
	f.byEmail[u.Email] = u
	return nil
}

func testHasher() *identity.PasswordHasher {
	return identity.NewPasswordHasher(16*1024, 1, 1, 16, 32)
}

// TestPurpose: Validates provisioning status mapping at the HTTP surface.
// Scope: Integration-style handler test
// Expected: 201 on success, 409 for reserved or taken slugs, 400 for shape
// errors, 500 for rolled-back partial failures.
// Test Case ID: HND-01
func TestTransport_ProvisionTenant_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		storeErr   error
		wantStatus int
	}{
		{"created", `{"slug":"newclub","name":"New Club","owner_email":"o@example.org","owner_password":"pw"}`, nil, http.StatusCreated},
		{"reserved", `{"slug":"newclub","name":"New Club","owner_email":"o@example.org","owner_password":"pw"}`, tenant.ErrSlugReserved, http.StatusConflict},
		{"taken", `{"slug":"newclub","name":"New Club","owner_email":"o@example.org","owner_password":"pw"}`, tenant.ErrSlugTaken, http.StatusConflict},
		{"bad slug", `{"slug":"newclub","name":"New Club","owner_email":"o@example.org","owner_password":"pw"}`, tenant.ValidateSlug("ab"), http.StatusBadRequest},
		{"partial failure", `{"slug":"newclub","name":"New Club","owner_email":"o@example.org","owner_password":"pw"}`, provision.ErrIncomplete, http.StatusInternalServerError},
		{"no password", `{"slug":"newclub","name":"New Club","owner_email":"o@example.org"}`, nil, http.StatusBadRequest},
		{"bad json", `{`, nil, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			strategy := &stubStrategy{}
			if tc.storeErr != nil {
				strategy.provisionFn = func(req provision.Request) (*provision.Result, error) {
					return nil, tc.storeErr
				}
			}
			h := &Handler{strategy: strategy, hasher: testHasher(), auditLogger: audit.NewSlogLogger()}

			r := httptest.NewRequest(http.MethodPost, "http://gametaverns.com/api/v1/taverns", strings.NewReader(tc.body))
			r.Host = "gametaverns.com"
			rec := httptest.NewRecorder()

			h.ProvisionTenant(rec, r)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

// TestPurpose: Validates that provisioning is an apex-only operation.
// Scope: Unit Test
// Security: A tenant must not create tenants from its own subdomain.
// Expected: 404 on a request carrying a tenant context; strategy untouched.
// Test Case ID: HND-02
func TestTransport_ProvisionTenant_RejectedOnTenantHost(t *testing.T) {
	strategy := &stubStrategy{}
	h := &Handler{strategy: strategy, hasher: testHasher()}

	body := `{"slug":"newclub","name":"New Club","owner_email":"o@example.org","owner_password":"pw"}`
	r := httptest.NewRequest(http.MethodPost, "http://tzolak.gametaverns.com/api/v1/taverns", strings.NewReader(body))
	r = r.WithContext(WithTenant(r.Context(), &tenant.Tenant{ID: "t-1", Slug: "tzolak"}))
	rec := httptest.NewRecorder()

	h.ProvisionTenant(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, strategy.provisionLog)
}

// TestPurpose: Validates that the password is hashed before it leaves the handler.
// Scope: Unit Test
// Security: Plaintext credentials must not reach storage.
// Expected: The provisioning request carries an argon2id hash, not the password.
// Test Case ID: HND-03
func TestTransport_ProvisionTenant_PasswordHashedBeforeStore(t *testing.T) {
	strategy := &stubStrategy{}
	h := &Handler{strategy: strategy, hasher: testHasher(), auditLogger: audit.NewSlogLogger()}

	body := `{"slug":"newclub","name":"New Club","owner_email":"o@example.org","owner_password":"hunter22"}`
	r := httptest.NewRequest(http.MethodPost, "http://gametaverns.com/api/v1/taverns", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ProvisionTenant(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, strategy.provisionLog, 1)
	assert.True(t, strings.HasPrefix(strategy.provisionLog[0].OwnerPasswordHash, "$argon2id$"))
	assert.NotContains(t, strategy.provisionLog[0].OwnerPasswordHash, "hunter22")
}

// TestPurpose: Validates that policy denial renders the not-found shape.
// Scope: Unit Test
// Security: An unauthorized caller must not learn the resource exists.
// Expected: A non-owner PATCH gets the identical 404 body an unknown host gets.
// Test Case ID: HND-04
func TestTransport_UpdateCurrentTenant_PolicyDenialIsNotFound(t *testing.T) {
	engine := policy.NewDefaultEngine(&stubView{owner: "owner-1"})
	h := &Handler{engine: engine}

	tnt := &tenant.Tenant{ID: "t-1", Slug: "tzolak", OwnerID: "owner-1"}

	r := httptest.NewRequest(http.MethodPatch, "http://tzolak.gametaverns.com/api/v1/taverns/current", strings.NewReader(`{"name":"X"}`))
	ctx := WithTenant(r.Context(), tnt)
	ctx = WithPrincipal(ctx, policy.Principal{UserID: "mallory"})
	rec := httptest.NewRecorder()

	h.UpdateCurrentTenant(rec, r.WithContext(ctx))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

// TestPurpose: Validates login success and failure paths.
// Scope: Integration-style handler test
// Expected: Correct credentials return the session and set the bridge cookie;
// wrong password and unknown email both return 401 with no cookie.
// Test Case ID: HND-05
func TestTransport_Login(t *testing.T) {
	hasher := testHasher()
	hash, err := hasher.Hash("correct-password")
	require.NoError(t, err)

	users := &fakeUserRepo{byEmail: map[string]*identity.User{
		"alice@example.org": {ID: "user-1", Email: "alice@example.org", PasswordHash: hash},
	}}

	h := &Handler{
		userRepo:    users,
		hasher:      hasher,
		issuer:      session.NewIssuer([]byte("test-key"), time.Hour, "gametaverns.com"),
		bridge:      session.NewBridge("gt_auth", "gametaverns.com", true),
		auditLogger: audit.NewSlogLogger(),
	}

	login := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "https://gametaverns.com/api/v1/auth/login", strings.NewReader(body))
		r.Host = "gametaverns.com"
		rec := httptest.NewRecorder()
		h.Login(rec, r)
		return rec
	}

	rec := login(`{"email":"alice@example.org","password":"correct-password"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gt_auth", cookies[0].Name)
	assert.Equal(t, ".gametaverns.com", cookies[0].Domain)

	rec = login(`{"email":"alice@example.org","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = login(`{"email":"nobody@example.org","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestPurpose: Validates logout clears the parent-domain cookie.
// Scope: Unit Test
// Expected: 204 with an expired cookie at parent-domain scope.
// Test Case ID: HND-06
func TestTransport_Logout_ClearsBridgeCookie(t *testing.T) {
	h := &Handler{
		bridge:      session.NewBridge("gt_auth", "gametaverns.com", true),
		auditLogger: audit.NewSlogLogger(),
	}

	r := httptest.NewRequest(http.MethodPost, "https://tzolak.gametaverns.com/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

// TestPurpose: Validates the current-tenant endpoint payload.
// Scope: Unit Test
// Expected: Directory fields rendered; internal timestamps not exposed.
// Test Case ID: HND-07
func TestTransport_CurrentTenant(t *testing.T) {
	h := &Handler{}

	tnt := &tenant.Tenant{ID: "t-1", Slug: "tzolak", Name: "Tzolak's Tavern", Active: true, Discoverable: true}
	r := httptest.NewRequest(http.MethodGet, "http://tzolak.gametaverns.com/api/v1/taverns/current", nil)
	rec := httptest.NewRecorder()

	h.CurrentTenant(rec, r.WithContext(WithTenant(r.Context(), tnt)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"t-1","slug":"tzolak","name":"Tzolak's Tavern","active":true,"discoverable":true}`, rec.Body.String())
}

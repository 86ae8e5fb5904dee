package tenant

import (
	"context"
	"testing"

	"github.com/gametaverns/gametaverns/internal/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetActiveBySlug(ctx context.Context, slug string) (*Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetActiveByCustomDomain(ctx context.Context, domain string) (*Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*Tenant), args.Error(1)
}

type mockMembershipRepo struct {
	mock.Mock
}

func (m *mockMembershipRepo) Create(ctx context.Context, membership *Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *mockMembershipRepo) Get(ctx context.Context, tenantID, userID string) (*Membership, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func (m *mockMembershipRepo) UpdateRole(ctx context.Context, tenantID, userID, role string) error {
	args := m.Called(ctx, tenantID, userID, role)
	return args.Error(0)
}

func (m *mockMembershipRepo) Delete(ctx context.Context, tenantID, userID string) error {
	args := m.Called(ctx, tenantID, userID)
	return args.Error(0)
}

func (m *mockMembershipRepo) ListForTenant(ctx context.Context, tenantID string) ([]*Membership, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*Membership), args.Error(1)
}

func (m *mockMembershipRepo) ListForUser(ctx context.Context, userID string) ([]*Membership, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*Membership), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func newTestService(repo Repository, memberRepo MembershipRepository, auditLogger audit.Logger) *Service {
	return NewService(repo, memberRepo, NewReservedSlugs(nil), "gametaverns.com", auditLogger)
}

// TestPurpose: Validates that tenant creation generates UUIDv7 IDs and an owner membership.
// Scope: Unit Test
// Security: Every tavern must have exactly one owner from the moment it exists.
// Expected: Tenant created with a valid UUIDv7 ID; owner membership row written;
// audit event emitted.
// Test Case ID: TEN-01
func TestTenant_Service_CreateTenant_UUIDv7AndOwnerMembership(t *testing.T) {
	repo := new(mockRepo)
	memberRepo := new(mockMembershipRepo)
	auditLogger := new(mockAudit)
	service := newTestService(repo, memberRepo, auditLogger)
	ctx := context.Background()

	ownerID := "user-123"

	repo.On("Create", ctx, mock.MatchedBy(func(created *Tenant) bool {
		uid, err := uuid.Parse(created.ID)
		if err != nil {
			return false
		}
		return uid.Version() == 7 && created.Slug == "tzolak" && created.Active && created.Discoverable
	})).Return(nil)

	memberRepo.On("Create", ctx, mock.MatchedBy(func(m *Membership) bool {
		return m.UserID == ownerID && m.Role == RoleOwner
	})).Return(nil)

	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantCreated
	})).Return()

	created, err := service.CreateTenant(ctx, "tzolak", "Tzolak's Tavern", ownerID)

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, ownerID, created.OwnerID)

	repo.AssertExpectations(t)
	memberRepo.AssertExpectations(t)
}

// TestPurpose: Validates that reserved slugs are rejected before any storage call.
// Scope: Unit Test
// Security: Reserved infrastructure labels must never become tenants.
// Expected: ErrSlugReserved; repository untouched.
// Test Case ID: TEN-02
func TestTenant_Service_CreateTenant_ReservedSlugRejected(t *testing.T) {
	repo := new(mockRepo)
	memberRepo := new(mockMembershipRepo)
	service := newTestService(repo, memberRepo, new(mockAudit))

	created, err := service.CreateTenant(context.Background(), "www", "WWW Club", "user-1")

	assert.Nil(t, created)
	assert.ErrorIs(t, err, ErrSlugReserved)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestPurpose: Validates slug shape enforcement on creation.
// Scope: Unit Test
// Expected: A 2-character slug is rejected without touching the repository.
// Test Case ID: TEN-03
func TestTenant_Service_CreateTenant_InvalidSlugRejected(t *testing.T) {
	repo := new(mockRepo)
	service := newTestService(repo, new(mockMembershipRepo), new(mockAudit))

	created, err := service.CreateTenant(context.Background(), "ab", "Tiny", "user-1")

	assert.Nil(t, created)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that custom domains inside the platform domain are rejected.
// Scope: Unit Test
// Security: A custom domain under the root would shadow subdomain routing.
// Expected: "evil.gametaverns.com" and the apex itself are rejected.
// Test Case ID: TEN-04
func TestTenant_Service_AssignCustomDomain_RejectsPlatformDomain(t *testing.T) {
	repo := new(mockRepo)
	service := newTestService(repo, new(mockMembershipRepo), new(mockAudit))
	ctx := context.Background()

	for _, domain := range []string{"gametaverns.com", "evil.gametaverns.com"} {
		_, err := service.AssignCustomDomain(ctx, "t-1", domain, "user-1")
		assert.Error(t, err, domain)
	}
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestPurpose: Validates custom domain assignment for an external domain.
// Scope: Unit Test
// Expected: Domain normalized, persisted, and audited.
// Test Case ID: TEN-05
func TestTenant_Service_AssignCustomDomain_External(t *testing.T) {
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	service := newTestService(repo, new(mockMembershipRepo), auditLogger)
	ctx := context.Background()

	existing := &Tenant{ID: "t-1", Slug: "tzolak"}
	repo.On("GetByID", ctx, "t-1").Return(existing, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(updated *Tenant) bool {
		return updated.CustomDomain == "boardgames.example.org"
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeDomainAssigned && e.Resource == "boardgames.example.org"
	})).Return()

	updated, err := service.AssignCustomDomain(ctx, "t-1", "BoardGames.Example.ORG", "user-1")

	assert.NoError(t, err)
	assert.Equal(t, "boardgames.example.org", updated.CustomDomain)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates that the owner role cannot be granted through role assignment.
// Scope: Unit Test
// Security: Exactly-one-owner is a structural invariant, not a grantable role.
// Expected: ErrOwnerRoleImmutable on granting owner; also on changing the
// owner's existing role.
// Test Case ID: TEN-06
func TestTenant_Service_AssignRole_OwnerImmutable(t *testing.T) {
	repo := new(mockRepo)
	memberRepo := new(mockMembershipRepo)
	service := newTestService(repo, memberRepo, new(mockAudit))
	ctx := context.Background()

	err := service.AssignRole(ctx, "t-1", "user-2", RoleOwner, "user-1")
	assert.ErrorIs(t, err, ErrOwnerRoleImmutable)

	memberRepo.On("Get", ctx, "t-1", "owner-1").
		Return(&Membership{TenantID: "t-1", UserID: "owner-1", Role: RoleOwner}, nil)

	err = service.AssignRole(ctx, "t-1", "owner-1", RoleMember, "user-1")
	assert.ErrorIs(t, err, ErrOwnerRoleImmutable)
	memberRepo.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates role assignment updates an existing membership in place.
// Scope: Unit Test
// Expected: Existing member is promoted via UpdateRole, not a duplicate Create.
// Test Case ID: TEN-07
func TestTenant_Service_AssignRole_PromotesExistingMember(t *testing.T) {
	memberRepo := new(mockMembershipRepo)
	auditLogger := new(mockAudit)
	service := newTestService(new(mockRepo), memberRepo, auditLogger)
	ctx := context.Background()

	memberRepo.On("Get", ctx, "t-1", "user-2").
		Return(&Membership{TenantID: "t-1", UserID: "user-2", Role: RoleMember}, nil)
	memberRepo.On("UpdateRole", ctx, "t-1", "user-2", RoleModerator).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeRoleAssigned && e.Resource == RoleModerator
	})).Return()

	err := service.AssignRole(ctx, "t-1", "user-2", RoleModerator, "user-1")

	assert.NoError(t, err)
	memberRepo.AssertExpectations(t)
	memberRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that the owner cannot be removed from their tavern.
// Scope: Unit Test
// Security: An ownerless tenant would be unmanageable.
// Expected: ErrOwnerRoleImmutable; membership not deleted.
// Test Case ID: TEN-08
func TestTenant_Service_RemoveMember_OwnerCannotBeRemoved(t *testing.T) {
	memberRepo := new(mockMembershipRepo)
	service := newTestService(new(mockRepo), memberRepo, new(mockAudit))
	ctx := context.Background()

	memberRepo.On("Get", ctx, "t-1", "owner-1").
		Return(&Membership{TenantID: "t-1", UserID: "owner-1", Role: RoleOwner}, nil)

	err := service.RemoveMember(ctx, "t-1", "owner-1", "owner-1")

	assert.ErrorIs(t, err, ErrOwnerRoleImmutable)
	memberRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates deactivation flips the active flag and audits it.
// Scope: Unit Test
// Expected: Active becomes false; tenant_deactivated audit event emitted.
// Test Case ID: TEN-09
func TestTenant_Service_SetActive_Deactivation(t *testing.T) {
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	service := newTestService(repo, new(mockMembershipRepo), auditLogger)
	ctx := context.Background()

	repo.On("GetByID", ctx, "t-1").Return(&Tenant{ID: "t-1", Active: true}, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(updated *Tenant) bool {
		return !updated.Active
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantDeactivated
	})).Return()

	updated, err := service.SetActive(ctx, "t-1", false, "admin-1")

	assert.NoError(t, err)
	assert.False(t, updated.Active)
	repo.AssertExpectations(t)
	auditLogger.AssertExpectations(t)
}

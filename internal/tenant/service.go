// Copyright 2026 The GameTaverns Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gametaverns/gametaverns/internal/audit"
	"github.com/google/uuid"
)

// Service provides tenant directory and membership business logic
type Service struct {
	repo        Repository
	memberRepo  MembershipRepository
	reserved    ReservedSlugs
	rootDomain  string
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, memberRepo MembershipRepository, reserved ReservedSlugs, rootDomain string, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		memberRepo:  memberRepo,
		reserved:    reserved,
		rootDomain:  strings.ToLower(rootDomain),
		auditLogger: auditLogger,
	}
}

// CreateTenant creates a new tenant with ownerID as its single owner.
// Used by the shared-schema mode; the schema-per-tenant mode goes through
// the provisioner instead.
func (s *Service) CreateTenant(ctx context.Context, slug, name, ownerID string) (*Tenant, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if s.reserved.IsReserved(slug) {
		return nil, fmt.Errorf("%w: %q", ErrSlugReserved, slug)
	}
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}

	now := time.Now()
	t := &Tenant{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Slug:         slug,
		Name:         name,
		OwnerID:      ownerID,
		Active:       true,
		Discoverable: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	m := &Membership{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  t.ID,
		UserID:    ownerID,
		Role:      RoleOwner,
		GrantedAt: now,
		GrantedBy: ownerID,
	}
	if err := s.memberRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		ActorID:  ownerID,
		Resource: slug,
	})

	return t, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	if id == "" {
		return nil, ErrTenantNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Rename changes a tenant's display name
func (s *Service) Rename(ctx context.Context, tenantID, name, actorID string) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	t.Name = name
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to rename tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantRenamed,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: name,
	})
	return t, nil
}

// AssignCustomDomain attaches a custom domain to a tenant. Domains under the
// platform root are rejected: they would shadow subdomain routing.
func (s *Service) AssignCustomDomain(ctx context.Context, tenantID, domain, actorID string) (*Tenant, error) {
	domain = NormalizeHost(domain)
	if domain == "" {
		return nil, fmt.Errorf("custom domain is required")
	}
	if domain == s.rootDomain || strings.HasSuffix(domain, "."+s.rootDomain) {
		return nil, fmt.Errorf("custom domain %q is within the platform domain", domain)
	}

	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	t.CustomDomain = domain
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to assign custom domain: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeDomainAssigned,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: domain,
	})
	return t, nil
}

// ClearCustomDomain detaches a tenant's custom domain
func (s *Service) ClearCustomDomain(ctx context.Context, tenantID, actorID string) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	domain := t.CustomDomain
	t.CustomDomain = ""
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to clear custom domain: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeDomainCleared,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: domain,
	})
	return t, nil
}

// SetActive toggles a tenant's active flag. Tenants are never hard-deleted
// in the shared-schema mode; deactivation is the terminal state.
func (s *Service) SetActive(ctx context.Context, tenantID string, active bool, actorID string) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	t.Active = active
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant status: %w", err)
	}

	eventType := audit.TypeTenantDeactivated
	if active {
		eventType = audit.TypeTenantActivated
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: tenantID,
		ActorID:  actorID,
	})
	return t, nil
}

// SetDiscoverable toggles whether a tenant's catalog shows up in public discovery
func (s *Service) SetDiscoverable(ctx context.Context, tenantID string, discoverable bool, actorID string) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	t.Discoverable = discoverable
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant discoverability: %w", err)
	}
	return t, nil
}

// AssignRole grants a membership role to a user. The owner role is set once
// at creation and cannot be granted here.
func (s *Service) AssignRole(ctx context.Context, tenantID, userID, role, grantedBy string) error {
	if !ValidRole(role) {
		return fmt.Errorf("invalid role: %s", role)
	}
	if role == RoleOwner {
		return ErrOwnerRoleImmutable
	}

	if existing, err := s.memberRepo.Get(ctx, tenantID, userID); err == nil {
		if existing.Role == RoleOwner {
			return ErrOwnerRoleImmutable
		}
		if err := s.memberRepo.UpdateRole(ctx, tenantID, userID, role); err != nil {
			return err
		}
	} else {
		m := &Membership{
			ID:        uuid.Must(uuid.NewV7()).String(),
			TenantID:  tenantID,
			UserID:    userID,
			Role:      role,
			GrantedAt: time.Now(),
			GrantedBy: grantedBy,
		}
		if err := s.memberRepo.Create(ctx, m); err != nil {
			return err
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		TenantID: tenantID,
		ActorID:  grantedBy,
		Resource: role,
		Metadata: map[string]any{"user_id": userID},
	})
	return nil
}

// RemoveMember removes a user's membership. The owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, tenantID, userID, actorID string) error {
	m, err := s.memberRepo.Get(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if m.Role == RoleOwner {
		return ErrOwnerRoleImmutable
	}
	if err := s.memberRepo.Delete(ctx, tenantID, userID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleRevoked,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: m.Role,
		Metadata: map[string]any{"user_id": userID},
	})
	return nil
}

// GetMembership retrieves a single membership
func (s *Service) GetMembership(ctx context.Context, tenantID, userID string) (*Membership, error) {
	return s.memberRepo.Get(ctx, tenantID, userID)
}

// ListMembers retrieves all memberships of a tenant
func (s *Service) ListMembers(ctx context.Context, tenantID string) ([]*Membership, error) {
	return s.memberRepo.ListForTenant(ctx, tenantID)
}

// ListTenantsForUser retrieves all tenants a user belongs to
func (s *Service) ListTenantsForUser(ctx context.Context, userID string) ([]*Membership, error) {
	return s.memberRepo.ListForUser(ctx, userID)
}

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

package system

import (
	"context"
	"sync"
	"time"

	"github.com/gametaverns/gametaverns/internal/identity"
	"github.com/gametaverns/gametaverns/internal/provision"
	"github.com/gametaverns/gametaverns/internal/tenant"
)

// memStore is an in-memory stand-in for the postgres store. Uniqueness is
// enforced under one mutex the way the database enforces it with unique
// indexes, so concurrent provisioning races behave the same: one insert
// wins, the rest see the conflict.
type memStore struct {
	mu          sync.Mutex
	tenantsByID map[string]*tenant.Tenant
	slugIndex   map[string]string // slug -> tenant ID
	domainIndex map[string]string // custom domain -> tenant ID
	memberships map[string]map[string]*tenant.Membership
	usersByID   map[string]*identity.User
	emailIndex  map[string]string
	schemas     map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		tenantsByID: make(map[string]*tenant.Tenant),
		slugIndex:   make(map[string]string),
		domainIndex: make(map[string]string),
		memberships: make(map[string]map[string]*tenant.Membership),
		usersByID:   make(map[string]*identity.User),
		emailIndex:  make(map[string]string),
		schemas:     make(map[string]bool),
	}
}

// tenant.Repository

func (s *memStore) Create(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTenantLocked(t)
}

func (s *memStore) createTenantLocked(t *tenant.Tenant) error {
	if _, taken := s.slugIndex[t.Slug]; taken {
		return tenant.ErrSlugTaken
	}
	cp := *t
	s.tenantsByID[t.ID] = &cp
	s.slugIndex[t.Slug] = t.ID
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tenantsByID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *memStore) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.slugIndex[slug]; ok {
		cp := *s.tenantsByID[id]
		return &cp, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *memStore) GetActiveBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := s.GetBySlug(ctx, slug)
	if err != nil || !t.Active {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (s *memStore) GetActiveByCustomDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.domainIndex[domain]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	t := s.tenantsByID[id]
	if !t.Active {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) Update(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tenantsByID[t.ID]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	if old.CustomDomain != "" {
		delete(s.domainIndex, old.CustomDomain)
	}
	if t.CustomDomain != "" {
		if owner, taken := s.domainIndex[t.CustomDomain]; taken && owner != t.ID {
			return tenant.ErrDomainTaken
		}
		s.domainIndex[t.CustomDomain] = t.ID
	}
	cp := *t
	s.tenantsByID[t.ID] = &cp
	return nil
}

func (s *memStore) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*tenant.Tenant, 0, len(s.tenantsByID))
	for _, t := range s.tenantsByID {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// membershipRepo adapts memStore to tenant.MembershipRepository.
type membershipRepo struct{ s *memStore }

func (r *membershipRepo) Create(ctx context.Context, m *tenant.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.createMembershipLocked(m)
}

func (s *memStore) createMembershipLocked(m *tenant.Membership) error {
	if s.memberships[m.TenantID] == nil {
		s.memberships[m.TenantID] = make(map[string]*tenant.Membership)
	}
	if _, exists := s.memberships[m.TenantID][m.UserID]; exists {
		return tenant.ErrMembershipExists
	}
	cp := *m
	s.memberships[m.TenantID][m.UserID] = &cp
	return nil
}

func (r *membershipRepo) Get(ctx context.Context, tenantID, userID string) (*tenant.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.memberships[tenantID][userID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, tenant.ErrMembershipNotFound
}

func (r *membershipRepo) UpdateRole(ctx context.Context, tenantID, userID, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memberships[tenantID][userID]
	if !ok {
		return tenant.ErrMembershipNotFound
	}
	m.Role = role
	return nil
}

func (r *membershipRepo) Delete(ctx context.Context, tenantID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.memberships[tenantID][userID]; !ok {
		return tenant.ErrMembershipNotFound
	}
	delete(r.s.memberships[tenantID], userID)
	return nil
}

func (r *membershipRepo) ListForTenant(ctx context.Context, tenantID string) ([]*tenant.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*tenant.Membership, 0, len(r.s.memberships[tenantID]))
	for _, m := range r.s.memberships[tenantID] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *membershipRepo) ListForUser(ctx context.Context, userID string) ([]*tenant.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*tenant.Membership
	for _, members := range r.s.memberships {
		if m, ok := members[userID]; ok {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// userRepo adapts memStore to identity.Repository.
type userRepo struct{ s *memStore }

func (r *userRepo) Create(ctx context.Context, u *identity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.emailIndex[u.Email]; taken {
		return identity.ErrEmailTaken
	}
	cp := *u
	r.s.usersByID[u.ID] = &cp
	r.s.emailIndex[u.Email] = u.ID
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.usersByID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, identity.ErrUserNotFound
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id, ok := r.s.emailIndex[email]; ok {
		cp := *r.s.usersByID[id]
		return &cp, nil
	}
	return nil, identity.ErrUserNotFound
}

func (r *userRepo) Update(ctx context.Context, u *identity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.usersByID[u.ID]; !ok {
		return identity.ErrUserNotFound
	}
	cp := *u
	r.s.usersByID[u.ID] = &cp
	return nil
}

// provisionStore adapts memStore to provision.Store. The whole plan executes
// under one lock: either everything lands or nothing does, mirroring the
// transactional store.
type provisionStore struct{ s *memStore }

func (p *provisionStore) ProvisionTenant(ctx context.Context, plan provision.Plan) (*provision.Result, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	now := time.Now()

	ownerID := plan.NewOwnerID
	ownerCreated := true
	if existing, ok := p.s.emailIndex[plan.OwnerEmail]; ok {
		ownerID = existing
		ownerCreated = false
	}

	t := &tenant.Tenant{
		ID:           plan.TenantID,
		Slug:         plan.Slug,
		Name:         plan.DisplayName,
		OwnerID:      ownerID,
		Active:       true,
		Discoverable: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.s.createTenantLocked(t); err != nil {
		return nil, err
	}

	rollback := func() {
		delete(p.s.tenantsByID, t.ID)
		delete(p.s.slugIndex, t.Slug)
		if ownerCreated {
			delete(p.s.usersByID, ownerID)
			delete(p.s.emailIndex, plan.OwnerEmail)
		}
	}

	if ownerCreated {
		p.s.usersByID[ownerID] = &identity.User{
			ID:           ownerID,
			Email:        plan.OwnerEmail,
			PasswordHash: plan.OwnerPasswordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		p.s.emailIndex[plan.OwnerEmail] = ownerID
	}

	if err := p.s.createMembershipLocked(&tenant.Membership{
		ID:        plan.MembershipID,
		TenantID:  plan.TenantID,
		UserID:    ownerID,
		Role:      tenant.RoleOwner,
		GrantedAt: now,
		GrantedBy: ownerID,
	}); err != nil {
		rollback()
		return nil, err
	}

	if plan.SchemaName != "" {
		p.s.schemas[plan.SchemaName] = true
	}

	return &provision.Result{Tenant: t, OwnerID: ownerID, OwnerCreated: ownerCreated}, nil
}

// policyView adapts memStore to policy.View.
type policyView struct{ s *memStore }

func (v *policyView) TenantActive(ctx context.Context, tenantID string) bool {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.tenantsByID[tenantID]
	return ok && t.Active
}

func (v *policyView) TenantDiscoverable(ctx context.Context, tenantID string) bool {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.tenantsByID[tenantID]
	return ok && t.Discoverable
}

func (v *policyView) TenantOwner(ctx context.Context, tenantID string) (string, bool) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.tenantsByID[tenantID]
	if !ok {
		return "", false
	}
	return t.OwnerID, true
}

func (v *policyView) RoleOf(ctx context.Context, userID, tenantID string) (string, bool) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	m, ok := v.s.memberships[tenantID][userID]
	if !ok {
		return "", false
	}
	return m.Role, true
}

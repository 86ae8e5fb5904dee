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

// Package provision creates new tenants atomically: directory row, owner
// identity, owner membership, and — in the schema-per-tenant mode — the
// isolated schema materialized from the template. Any step failing rolls
// the whole attempt back; a half-created tenant is an invariant violation.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gametaverns/gametaverns/internal/audit"
	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/google/uuid"
)

// ErrIncomplete signals that a provisioning attempt failed partway and was
// rolled back. Nothing of the attempt persists.
var ErrIncomplete = errors.New("provisioning incomplete, rolled back")

// Request carries the caller-supplied provisioning inputs
type Request struct {
	Slug              string
	DisplayName       string
	OwnerEmail        string
	OwnerPasswordHash string
}

// Plan is the fully-resolved provisioning work handed to the store.
// Candidate IDs are generated up front so the store stays a pure executor.
type Plan struct {
	TenantID          string
	Slug              string
	DisplayName       string
	SchemaName        string // empty in the shared-schema mode
	OwnerEmail        string
	OwnerPasswordHash string
	NewOwnerID        string // used only when the email has no existing identity
	MembershipID      string
}

// Result reports what a provisioning attempt created
type Result struct {
	Tenant       *tenant.Tenant
	OwnerID      string
	OwnerCreated bool
}

// Store executes a provisioning plan in a single transaction. Concurrent
// attempts for the same slug are serialized by the directory's unique index
// on slug: the loser fails at the insert. No separate distributed lock.
type Store interface {
	ProvisionTenant(ctx context.Context, plan Plan) (*Result, error)
}

// Provisioner validates requests and orchestrates tenant creation
type Provisioner struct {
	store           Store
	reserved        tenant.ReservedSlugs
	schemaPerTenant bool
	auditLogger     audit.Logger
}

// New creates a provisioner. schemaPerTenant selects the isolated-schema
// deployment mode.
func New(store Store, reserved tenant.ReservedSlugs, schemaPerTenant bool, auditLogger audit.Logger) *Provisioner {
	return &Provisioner{
		store:           store,
		reserved:        reserved,
		schemaPerTenant: schemaPerTenant,
		auditLogger:     auditLogger,
	}
}

// Provision creates a new tenant. Validation happens before the store is
// touched. If the owner email already has an identity, the new tenant is
// attached to that existing user instead of erroring.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Result, error) {
	if err := tenant.ValidateSlug(req.Slug); err != nil {
		return nil, err
	}
	if p.reserved.IsReserved(req.Slug) {
		return nil, fmt.Errorf("%w: %q", tenant.ErrSlugReserved, req.Slug)
	}
	if req.DisplayName == "" {
		return nil, fmt.Errorf("display name is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.OwnerEmail))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid owner email %q", req.OwnerEmail)
	}
	if req.OwnerPasswordHash == "" {
		return nil, fmt.Errorf("owner password hash is required")
	}

	plan := Plan{
		TenantID:          uuid.Must(uuid.NewV7()).String(),
		Slug:              req.Slug,
		DisplayName:       req.DisplayName,
		OwnerEmail:        email,
		OwnerPasswordHash: req.OwnerPasswordHash,
		NewOwnerID:        uuid.Must(uuid.NewV7()).String(),
		MembershipID:      uuid.Must(uuid.NewV7()).String(),
	}
	if p.schemaPerTenant {
		plan.SchemaName = tenant.SchemaName(req.Slug)
	}

	result, err := p.store.ProvisionTenant(ctx, plan)
	if err != nil {
		if errors.Is(err, tenant.ErrSlugTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}

	p.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantProvisioned,
		TenantID: result.Tenant.ID,
		ActorID:  result.OwnerID,
		Resource: req.Slug,
		Metadata: map[string]any{
			"schema":        plan.SchemaName,
			"owner_created": result.OwnerCreated,
		},
	})
	return result, nil
}

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

package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/gametaverns/gametaverns/internal/provision"
	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/jackc/pgx/v5"
)

// Template DDL for a tenant's isolated schema: same table shapes as the
// shared-schema mode minus the tenant_id discriminator, since isolation is
// structural. %[1]s is the sanitized schema name.
//
//go:embed migrations/tenant_schema_template.sql
var tenantSchemaTemplate string

// ProvisionStore implements provision.Store: every provisioning attempt is
// one transaction, so a failing step leaves nothing behind. Duplicate slugs
// are serialized by the unique index on tenants.slug, not by any
// application-level lock.
type ProvisionStore struct {
	db *DB
}

// NewProvisionStore creates a new provisioning store
func NewProvisionStore(db *DB) *ProvisionStore {
	return &ProvisionStore{db: db}
}

// ProvisionTenant executes a provisioning plan atomically
func (s *ProvisionStore) ProvisionTenant(ctx context.Context, plan provision.Plan) (*provision.Result, error) {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin provisioning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	// Reuse the owner identity when the email is already registered:
	// provisioning another library for an existing owner is not an error.
	ownerID := plan.NewOwnerID
	ownerCreated := false
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, plan.OwnerEmail).Scan(&ownerID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		ownerCreated = true
		_, err = tx.Exec(ctx, `
			INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, plan.NewOwnerID, plan.OwnerEmail, plan.OwnerEmail, plan.OwnerPasswordHash, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create owner: %w", err)
		}
		ownerID = plan.NewOwnerID
	case err != nil:
		return nil, fmt.Errorf("failed to look up owner: %w", err)
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
	_, err = tx.Exec(ctx, `
		INSERT INTO tenants (id, slug, name, custom_domain, owner_id, active, discoverable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.Slug, t.Name, sql.NullString{}, t.OwnerID, t.Active, t.Discoverable, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "tenants_slug_key") {
			return nil, tenant.ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to insert tenant: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (id, tenant_id, user_id, role, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, plan.MembershipID, t.ID, ownerID, tenant.RoleOwner, now, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if plan.SchemaName != "" {
		schema := pgx.Identifier{plan.SchemaName}.Sanitize()
		if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
			return nil, fmt.Errorf("failed to create tenant schema: %w", err)
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(tenantSchemaTemplate, schema)); err != nil {
			return nil, fmt.Errorf("failed to materialize tenant schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit provisioning transaction: %w", err)
	}

	return &provision.Result{
		Tenant:       t,
		OwnerID:      ownerID,
		OwnerCreated: ownerCreated,
	}, nil
}

// DropTenantSchema removes a tenant's isolated schema. Only the
// schema-per-tenant mode hard-deletes tenants.
func (s *ProvisionStore) DropTenantSchema(ctx context.Context, slug string) error {
	schema := pgx.Identifier{tenant.SchemaName(slug)}.Sanitize()
	if _, err := s.db.pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)); err != nil {
		return fmt.Errorf("failed to drop tenant schema: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/jackc/pgx/v5"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = "id, slug, name, custom_domain, owner_id, active, discoverable, created_at, updated_at"

// Create inserts a tenant directory row
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenants (id, slug, name, custom_domain, owner_id, active, discoverable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.Slug, t.Name, nullable(t.CustomDomain), t.OwnerID, t.Active, t.Discoverable, t.CreatedAt, t.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "tenants_slug_key") {
			return tenant.ErrSlugTaken
		}
		if isUniqueViolation(err, "tenants_custom_domain_key") {
			return tenant.ErrDomainTaken
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return r.get(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetBySlug retrieves a tenant by slug regardless of status
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return r.get(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
}

// GetActiveBySlug retrieves an active tenant by slug
func (r *TenantRepository) GetActiveBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return r.get(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1 AND active = true`, slug)
}

// GetActiveByCustomDomain retrieves an active tenant by custom domain
func (r *TenantRepository) GetActiveByCustomDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return r.get(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE custom_domain = $1 AND active = true`, domain)
}

// Update persists tenant mutations
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants
		SET name = $2, custom_domain = $3, active = $4, discoverable = $5, updated_at = $6
		WHERE id = $1
	`, t.ID, t.Name, nullable(t.CustomDomain), t.Active, t.Discoverable, t.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "tenants_custom_domain_key") {
			return tenant.ErrDomainTaken
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List lists tenants with pagination
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+tenantColumns+` FROM tenants ORDER BY created_at LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *TenantRepository) get(ctx context.Context, query string, arg any) (*tenant.Tenant, error) {
	row := r.db.pool.QueryRow(ctx, query, arg)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, err
	}
	return t, nil
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var customDomain sql.NullString
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &customDomain, &t.OwnerID, &t.Active, &t.Discoverable, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	if customDomain.Valid {
		t.CustomDomain = customDomain.String
	}
	return &t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

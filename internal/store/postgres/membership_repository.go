package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/jackc/pgx/v5"
)

// MembershipRepository implements tenant.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Create inserts a membership row
func (r *MembershipRepository) Create(ctx context.Context, m *tenant.Membership) error {
	var grantedBy sql.NullString
	if m.GrantedBy != "" {
		grantedBy = sql.NullString{String: m.GrantedBy, Valid: true}
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO memberships (id, tenant_id, user_id, role, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.TenantID, m.UserID, m.Role, m.GrantedAt, grantedBy)

	if err != nil {
		if isUniqueViolation(err, "") {
			return tenant.ErrMembershipExists
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// Get retrieves a user's membership in a tenant
func (r *MembershipRepository) Get(ctx context.Context, tenantID, userID string) (*tenant.Membership, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, user_id, role, granted_at, granted_by
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID)

	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrMembershipNotFound
		}
		return nil, err
	}
	return m, nil
}

// UpdateRole changes a membership's role
func (r *MembershipRepository) UpdateRole(ctx context.Context, tenantID, userID, role string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE memberships SET role = $3 WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update membership role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrMembershipNotFound
	}
	return nil
}

// Delete removes a membership
func (r *MembershipRepository) Delete(ctx context.Context, tenantID, userID string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM memberships WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrMembershipNotFound
	}
	return nil
}

// ListForTenant retrieves all memberships of a tenant
func (r *MembershipRepository) ListForTenant(ctx context.Context, tenantID string) ([]*tenant.Membership, error) {
	return r.list(ctx, `
		SELECT id, tenant_id, user_id, role, granted_at, granted_by
		FROM memberships WHERE tenant_id = $1
	`, tenantID)
}

// ListForUser retrieves all memberships a user holds across tenants
func (r *MembershipRepository) ListForUser(ctx context.Context, userID string) ([]*tenant.Membership, error) {
	return r.list(ctx, `
		SELECT id, tenant_id, user_id, role, granted_at, granted_by
		FROM memberships WHERE user_id = $1
	`, userID)
}

func (r *MembershipRepository) list(ctx context.Context, query string, arg any) ([]*tenant.Membership, error) {
	rows, err := r.db.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var members []*tenant.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanMembership(row pgx.Row) (*tenant.Membership, error) {
	var m tenant.Membership
	var grantedBy sql.NullString
	if err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.GrantedAt, &grantedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan membership: %w", err)
	}
	if grantedBy.Valid {
		m.GrantedBy = grantedBy.String
	}
	return &m, nil
}

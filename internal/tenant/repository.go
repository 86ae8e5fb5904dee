package tenant

import (
	"context"
	"errors"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrSlugTaken          = errors.New("slug already taken")
	ErrSlugReserved       = errors.New("slug is reserved")
	ErrDomainTaken        = errors.New("custom domain already taken")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMembershipExists   = errors.New("membership already exists")
	ErrOwnerRoleImmutable = errors.New("owner role cannot be granted or revoked")

	// ErrResolutionFailed signals that the directory could not be consulted.
	// Callers must not treat it as "no tenant".
	ErrResolutionFailed = errors.New("tenant resolution failed")
)

// Repository defines the interface for tenant directory storage
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetActiveBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetActiveByCustomDomain(ctx context.Context, domain string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}

// MembershipRepository defines the interface for membership storage
type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	Get(ctx context.Context, tenantID, userID string) (*Membership, error)
	UpdateRole(ctx context.Context, tenantID, userID, role string) error
	Delete(ctx context.Context, tenantID, userID string) error
	ListForTenant(ctx context.Context, tenantID string) ([]*Membership, error)
	ListForUser(ctx context.Context, userID string) ([]*Membership, error)
}

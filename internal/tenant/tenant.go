package tenant

import (
	"time"
)

// Tenant represents one library: an isolated community instance on the platform
type Tenant struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	CustomDomain string    `json:"custom_domain,omitempty"`
	OwnerID      string    `json:"owner_id"`
	Active       bool      `json:"active"`
	Discoverable bool      `json:"discoverable"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

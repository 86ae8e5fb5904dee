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

package policy

import (
	"github.com/gametaverns/gametaverns/internal/tenant"
)

// Tenant-scoped tables of the platform schema
const (
	TableGames      = "games"
	TablePlays      = "plays"
	TableForumPosts = "forum_posts"
	TablePolls      = "polls"
	TableEvents     = "events"
	TableProfiles   = "profiles"
)

// Service-only tables: no principal-facing rules exist for them, so every
// direct request path is denied. Only the trusted backend process, which
// operates outside this engine, touches them.
const (
	TablePasswordResetTokens     = "password_reset_tokens"
	TableEmailConfirmationTokens = "email_confirmation_tokens"
)

// NewDefaultEngine builds the engine with the platform rule set.
//
// Rule categories per table:
//   - public read: anonymous access to active, discoverable tenants' catalog
//   - member-scoped: qualifying membership role required
//   - self-scoped: rows whose user column equals the principal
//   - service-only: no rules; denied for everyone by the default-deny
//
// The memberships rules deliberately avoid HasRole: it reads the
// memberships table, and a policy predicate must never query the table it
// protects. Ownership is checked against the tenants table instead.
func NewDefaultEngine(view View) *Engine {
	e := NewEngine(view)

	// tenants: the directory itself is publicly readable while active
	// (hostname resolution and discovery depend on it); only the owner
	// mutates it. The tenants rules must not use TenantActive/IsTenantOwner
	// helpers, which read tenants; the row carries what they need.
	e.MustRegister(Rule{
		Table: TableTenants, Operation: OpSelect, Name: "tenants_public_read",
		Predicate: func(q *Query) bool { return true },
	})
	e.MustRegister(Rule{
		Table: TableTenants, Operation: OpUpdate, Name: "tenants_owner_write",
		Predicate: func(q *Query) bool { return q.OwnsRow() },
	})

	// memberships: self-read, owner-read and owner-write. Tenant ownership
	// comes from the tenants table, never from memberships itself.
	e.MustRegister(Rule{
		Table: TableMemberships, Operation: OpSelect, Name: "memberships_self_read",
		Predicate: func(q *Query) bool { return q.OwnsRow() },
	})
	e.MustRegister(Rule{
		Table: TableMemberships, Operation: OpSelect, Name: "memberships_owner_read",
		Predicate: func(q *Query) bool { return q.IsTenantOwner(q.Row.TenantID) },
	})
	e.MustRegister(Rule{
		Table: TableMemberships, Operation: OpInsert, Name: "memberships_owner_manage",
		Predicate: func(q *Query) bool { return q.IsTenantOwner(q.Row.TenantID) },
	})
	e.MustRegister(Rule{
		Table: TableMemberships, Operation: OpUpdate, Name: "memberships_owner_manage",
		Predicate: func(q *Query) bool { return q.IsTenantOwner(q.Row.TenantID) },
	})
	e.MustRegister(Rule{
		Table: TableMemberships, Operation: OpDelete, Name: "memberships_owner_manage",
		Predicate: func(q *Query) bool { return q.IsTenantOwner(q.Row.TenantID) },
	})
	e.MustRegister(Rule{
		Table: TableMemberships, Operation: OpDelete, Name: "memberships_self_leave",
		Predicate: func(q *Query) bool { return q.OwnsRow() },
	})

	// Catalog tables: public read for discoverable tenants, member read
	// otherwise, writes gated by role.
	for _, table := range []string{TableGames, TableEvents, TablePolls, TableForumPosts} {
		registerCatalogRules(e, table)
	}

	// plays: session logs are member-visible, not public
	e.MustRegister(Rule{
		Table: TablePlays, Operation: OpSelect, Name: "plays_member_read",
		Predicate: memberAnyRole,
	})
	e.MustRegister(Rule{
		Table: TablePlays, Operation: OpInsert, Name: "plays_member_write",
		Predicate: memberAnyRole,
	})
	e.MustRegister(Rule{
		Table: TablePlays, Operation: OpUpdate, Name: "plays_self_write",
		Predicate: func(q *Query) bool { return q.OwnsRow() },
	})
	e.MustRegister(Rule{
		Table: TablePlays, Operation: OpDelete, Name: "plays_moderator_delete",
		Predicate: moderatorOrOwner,
	})

	// profiles: strictly self-scoped, independent of tenant membership
	e.MustRegister(Rule{
		Table: TableProfiles, Operation: OpSelect, Name: "profiles_self",
		Predicate: func(q *Query) bool { return q.OwnsRow() },
	})
	e.MustRegister(Rule{
		Table: TableProfiles, Operation: OpInsert, Name: "profiles_self",
		Predicate: func(q *Query) bool { return q.OwnsRow() },
	})
	e.MustRegister(Rule{
		Table: TableProfiles, Operation: OpUpdate, Name: "profiles_self",
		Predicate: func(q *Query) bool { return q.OwnsRow() },
	})

	// password_reset_tokens, email_confirmation_tokens: no rules on purpose.

	return e
}

func registerCatalogRules(e *Engine, table string) {
	e.MustRegister(Rule{
		Table: table, Operation: OpSelect, Name: table + "_public_read",
		Predicate: func(q *Query) bool { return q.TenantDiscoverable(q.Row.TenantID) },
	})
	e.MustRegister(Rule{
		Table: table, Operation: OpSelect, Name: table + "_member_read",
		Predicate: memberAnyRole,
	})
	e.MustRegister(Rule{
		Table: table, Operation: OpInsert, Name: table + "_member_write",
		Predicate: memberAnyRole,
	})
	e.MustRegister(Rule{
		Table: table, Operation: OpUpdate, Name: table + "_moderator_write",
		Predicate: moderatorOrOwner,
	})
	e.MustRegister(Rule{
		Table: table, Operation: OpDelete, Name: table + "_moderator_delete",
		Predicate: moderatorOrOwner,
	})
}

func memberAnyRole(q *Query) bool {
	return q.HasRole(q.Row.TenantID, tenant.RoleOwner, tenant.RoleModerator, tenant.RoleMember)
}

func moderatorOrOwner(q *Query) bool {
	return q.HasRole(q.Row.TenantID, tenant.RoleOwner, tenant.RoleModerator)
}

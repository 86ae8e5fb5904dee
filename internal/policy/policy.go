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

// Package policy implements the row-level isolation policy engine.
//
// Every tenant-scoped table carries a set of rules per operation. Rules are
// permissive and OR-combined: an operation is granted if any rule's predicate
// holds, and denied by default when no rule matches — including when a table
// has no rules at all for an operation (fail closed).
//
// Hard rule: a predicate must never query the table it protects, even
// transitively. The evaluation context tracks which tables are on the
// evaluation stack and turns any re-entrant read into a deny instead of
// recursing.
package policy

import (
	"context"
	"fmt"
	"log/slog"
)

// Operation is a data-store operation a rule applies to
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Tables the built-in predicate helpers read from. Rules protecting these
// tables must not use the helpers that read them.
const (
	TableTenants     = "tenants"
	TableMemberships = "memberships"
)

// Principal is the acting identity a request is evaluated as.
// A zero UserID means the caller is anonymous.
type Principal struct {
	UserID string
}

// Anonymous reports whether the principal is unauthenticated.
func (p Principal) Anonymous() bool {
	return p.UserID == ""
}

// Row is the target row's tenant linkage as seen by predicates. UserID is
// the row's own user column (empty for tables without one), not the caller.
type Row struct {
	TenantID string
	UserID   string
}

// Predicate is a rule condition evaluated against the acting principal and
// target row. Data reads go through the Query helpers so re-entrant table
// access is caught.
type Predicate func(q *Query) bool

// Rule attaches a named predicate to a (table, operation) pair
type Rule struct {
	Table     string
	Operation Operation
	Name      string
	Predicate Predicate
}

// View is the directory data predicates may consult. Implementations report
// false on lookup failure; policy evaluation fails closed.
type View interface {
	// TenantActive reads from the tenants table.
	TenantActive(ctx context.Context, tenantID string) bool
	// TenantDiscoverable reads from the tenants table.
	TenantDiscoverable(ctx context.Context, tenantID string) bool
	// TenantOwner reads from the tenants table.
	TenantOwner(ctx context.Context, tenantID string) (string, bool)
	// RoleOf reads from the memberships table.
	RoleOf(ctx context.Context, userID, tenantID string) (string, bool)
}

// Engine holds the rule registry and evaluates operations against it.
// The registry is populated at startup and read-only afterwards, so
// evaluation is safe under concurrent request volume.
type Engine struct {
	rules map[string]map[Operation][]Rule
	view  View
}

// NewEngine creates an empty engine over the given directory view
func NewEngine(view View) *Engine {
	return &Engine{
		rules: make(map[string]map[Operation][]Rule),
		view:  view,
	}
}

// Register adds a rule to the registry. Registration happens once at
// startup; it is not safe to call concurrently with Allows.
func (e *Engine) Register(r Rule) error {
	if r.Table == "" {
		return fmt.Errorf("policy rule %q: table is required", r.Name)
	}
	switch r.Operation {
	case OpSelect, OpInsert, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("policy rule %q: invalid operation %q", r.Name, r.Operation)
	}
	if r.Predicate == nil {
		return fmt.Errorf("policy rule %q: predicate is required", r.Name)
	}
	ops := e.rules[r.Table]
	if ops == nil {
		ops = make(map[Operation][]Rule)
		e.rules[r.Table] = ops
	}
	ops[r.Operation] = append(ops[r.Operation], r)
	return nil
}

// MustRegister registers a rule and panics on a malformed definition
func (e *Engine) MustRegister(r Rule) {
	if err := e.Register(r); err != nil {
		panic(err)
	}
}

// Rules returns the rules registered for a (table, operation) pair
func (e *Engine) Rules(table string, op Operation) []Rule {
	return e.rules[table][op]
}

// Allows evaluates whether principal may perform op on the given row of
// table. Rules are OR-combined; no matching rule means deny.
func (e *Engine) Allows(ctx context.Context, principal Principal, table string, op Operation, row Row) bool {
	q := &Query{
		ctx:       ctx,
		engine:    e,
		Principal: principal,
		Row:       row,
	}
	return q.evaluate(table, op)
}

// Query is the evaluation context handed to predicates. It tracks the stack
// of tables currently under evaluation so a predicate that reads the table
// it protects is denied instead of recursing forever.
type Query struct {
	ctx       context.Context
	engine    *Engine
	stack     []string
	Principal Principal
	Row       Row
}

func (q *Query) evaluate(table string, op Operation) bool {
	if !q.enter(table) {
		return false
	}
	defer q.exit()

	for _, rule := range q.engine.rules[table][op] {
		if rule.Predicate(q) {
			return true
		}
	}
	return false
}

// enter pushes a table onto the evaluation stack. It refuses re-entry:
// the self-referential read is logged once and denied.
func (q *Query) enter(table string) bool {
	for _, t := range q.stack {
		if t == table {
			slog.WarnContext(q.ctx, "recursive policy predicate denied",
				slog.String("table", table),
				slog.String("component", "policy"),
			)
			return false
		}
	}
	q.stack = append(q.stack, table)
	return true
}

func (q *Query) exit() {
	q.stack = q.stack[:len(q.stack)-1]
}

// HasRole reports whether the principal holds one of the given roles in the
// tenant. Reads the memberships table: rules protecting memberships must not
// use it.
func (q *Query) HasRole(tenantID string, roles ...string) bool {
	if q.Principal.Anonymous() || tenantID == "" {
		return false
	}
	if !q.enter(TableMemberships) {
		return false
	}
	defer q.exit()

	role, ok := q.engine.view.RoleOf(q.ctx, q.Principal.UserID, tenantID)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// TenantActive reports whether the tenant is active. Reads the tenants table.
func (q *Query) TenantActive(tenantID string) bool {
	if tenantID == "" {
		return false
	}
	if !q.enter(TableTenants) {
		return false
	}
	defer q.exit()
	return q.engine.view.TenantActive(q.ctx, tenantID)
}

// TenantDiscoverable reports whether the tenant is active and listed for
// public discovery. Reads the tenants table.
func (q *Query) TenantDiscoverable(tenantID string) bool {
	if tenantID == "" {
		return false
	}
	if !q.enter(TableTenants) {
		return false
	}
	defer q.exit()
	return q.engine.view.TenantActive(q.ctx, tenantID) && q.engine.view.TenantDiscoverable(q.ctx, tenantID)
}

// IsTenantOwner reports whether the principal owns the tenant. Reads the
// tenants table only, so it is safe inside memberships rules.
func (q *Query) IsTenantOwner(tenantID string) bool {
	if q.Principal.Anonymous() || tenantID == "" {
		return false
	}
	if !q.enter(TableTenants) {
		return false
	}
	defer q.exit()
	owner, ok := q.engine.view.TenantOwner(q.ctx, tenantID)
	return ok && owner == q.Principal.UserID
}

// OwnsRow reports whether the target row's user column equals the principal.
// Pure comparison, no table reads.
func (q *Query) OwnsRow() bool {
	return !q.Principal.Anonymous() && q.Row.UserID == q.Principal.UserID
}

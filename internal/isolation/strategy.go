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

// Package isolation abstracts over the two tenant isolation strategies:
// shared schema with row-level policies, and one schema per tenant. Both
// resolve hostnames the same way; they differ in how a tenant's rows are
// addressed and how provisioning materializes storage.
package isolation

import (
	"context"
	"fmt"

	"github.com/gametaverns/gametaverns/internal/config"
	"github.com/gametaverns/gametaverns/internal/provision"
	"github.com/gametaverns/gametaverns/internal/tenant"
)

// ScopedTable tells the query layer how to address and filter a
// tenant-scoped table for one tenant.
type ScopedTable struct {
	// Table is how the table is addressed in SQL, schema-qualified when
	// isolation is structural.
	Table string
	// Filter is the discriminator predicate with a single placeholder,
	// empty when isolation is structural.
	Filter string
	// Arg is the value bound to the filter placeholder.
	Arg any
}

// Strategy is one tenant isolation strategy, selected by deployment
// configuration.
type Strategy interface {
	Mode() string
	Provision(ctx context.Context, req provision.Request) (*provision.Result, error)
	Resolve(ctx context.Context, hostname string) (*tenant.Tenant, error)
	ScopeQuery(table string, t *tenant.Tenant) ScopedTable
}

// ForMode selects the strategy configured for the deployment.
func ForMode(mode string, resolver *tenant.Resolver, provisioner *provision.Provisioner) (Strategy, error) {
	switch mode {
	case config.IsolationShared:
		return &SharedSchema{resolver: resolver, provisioner: provisioner}, nil
	case config.IsolationSchema:
		return &SchemaPerTenant{resolver: resolver, provisioner: provisioner}, nil
	default:
		return nil, fmt.Errorf("unknown isolation mode %q", mode)
	}
}

// SharedSchema keeps all tenants in one schema; every tenant-scoped table
// carries a tenant_id discriminator enforced by row-level policies.
type SharedSchema struct {
	resolver    *tenant.Resolver
	provisioner *provision.Provisioner
}

func (s *SharedSchema) Mode() string { return config.IsolationShared }

func (s *SharedSchema) Provision(ctx context.Context, req provision.Request) (*provision.Result, error) {
	return s.provisioner.Provision(ctx, req)
}

func (s *SharedSchema) Resolve(ctx context.Context, hostname string) (*tenant.Tenant, error) {
	return s.resolver.Resolve(ctx, hostname)
}

func (s *SharedSchema) ScopeQuery(table string, t *tenant.Tenant) ScopedTable {
	return ScopedTable{
		Table:  table,
		Filter: "tenant_id = $1",
		Arg:    t.ID,
	}
}

// SchemaPerTenant gives each tenant an isolated schema copied from the
// template; isolation is structural, so scoped tables carry no
// discriminator column.
type SchemaPerTenant struct {
	resolver    *tenant.Resolver
	provisioner *provision.Provisioner
}

func (s *SchemaPerTenant) Mode() string { return config.IsolationSchema }

func (s *SchemaPerTenant) Provision(ctx context.Context, req provision.Request) (*provision.Result, error) {
	return s.provisioner.Provision(ctx, req)
}

func (s *SchemaPerTenant) Resolve(ctx context.Context, hostname string) (*tenant.Tenant, error) {
	return s.resolver.Resolve(ctx, hostname)
}

func (s *SchemaPerTenant) ScopeQuery(table string, t *tenant.Tenant) ScopedTable {
	return ScopedTable{
		Table: tenant.SchemaName(t.Slug) + "." + table,
	}
}

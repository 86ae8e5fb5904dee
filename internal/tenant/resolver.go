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

package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Directory is the read side of the tenant directory the resolver consults.
// Lookups are filtered to active tenants only.
type Directory interface {
	GetActiveBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetActiveByCustomDomain(ctx context.Context, domain string) (*Tenant, error)
}

// Resolver maps an inbound hostname to the tenant it belongs to.
//
// A nil tenant with a nil error means the request is platform-level (root
// domain, localhost, reserved slug, or unknown host). ErrResolutionFailed is
// returned when the directory itself cannot be consulted; callers must
// distinguish that from "no tenant".
type Resolver struct {
	dir        Directory
	reserved   ReservedSlugs
	rootDomain string
}

// NewResolver creates a resolver for the given canonical root domain.
func NewResolver(dir Directory, reserved ReservedSlugs, rootDomain string) *Resolver {
	return &Resolver{
		dir:        dir,
		reserved:   reserved,
		rootDomain: strings.ToLower(rootDomain),
	}
}

// Resolve maps the raw Host header value to a tenant. The port, if present,
// is stripped here, so "tavern.gametaverns.com:8443" resolves the same as
// its portless form.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (*Tenant, error) {
	host := NormalizeHost(hostname)
	if host == "" {
		return nil, nil
	}

	// Platform-level: the root domain itself, or local development hosts.
	if host == r.rootDomain || host == "localhost" || isLoopback(host) {
		return nil, nil
	}

	if label, ok := strings.CutSuffix(host, "."+r.rootDomain); ok {
		// Only a single label before the root is a tenant subdomain;
		// deeper hostnames like a.b.root.com are ambiguous, not tenants.
		if strings.Contains(label, ".") {
			return nil, nil
		}
		if r.reserved.IsReserved(label) {
			return nil, nil
		}
		t, err := r.dir.GetActiveBySlug(ctx, label)
		return mapLookup(t, err)
	}

	// Not under the root domain: the whole hostname is a candidate custom domain.
	t, err := r.dir.GetActiveByCustomDomain(ctx, host)
	return mapLookup(t, err)
}

func mapLookup(t *Tenant, err error) (*Tenant, error) {
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	return t, nil
}

// NormalizeHost lowercases a Host header value and strips any port and
// trailing dot.
func NormalizeHost(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]") // bare IPv6 literal
	return strings.TrimSuffix(host, ".")
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

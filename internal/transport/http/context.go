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

package http

import (
	"context"

	"github.com/gametaverns/gametaverns/internal/policy"
	"github.com/gametaverns/gametaverns/internal/tenant"
)

type contextKey string

const (
	tenantKey    contextKey = "tenant"
	principalKey contextKey = "principal"
)

// WithTenant attaches the resolved tenant to the context.
func WithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// GetTenant retrieves the resolved tenant from context, nil for
// platform-level requests.
func GetTenant(ctx context.Context) *tenant.Tenant {
	if t, ok := ctx.Value(tenantKey).(*tenant.Tenant); ok {
		return t
	}
	return nil
}

// WithPrincipal attaches the acting principal to the context.
func WithPrincipal(ctx context.Context, p policy.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the acting principal from context. The zero value
// is the anonymous principal.
func GetPrincipal(ctx context.Context) policy.Principal {
	if p, ok := ctx.Value(principalKey).(policy.Principal); ok {
		return p
	}
	return policy.Principal{}
}

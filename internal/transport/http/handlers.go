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
	"encoding/json"
	"net/http"
	"time"

	"github.com/gametaverns/gametaverns/internal/audit"
	"github.com/gametaverns/gametaverns/internal/identity"
	"github.com/gametaverns/gametaverns/internal/isolation"
	"github.com/gametaverns/gametaverns/internal/observability/metrics"
	"github.com/gametaverns/gametaverns/internal/policy"
	"github.com/gametaverns/gametaverns/internal/session"
	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	tenantService *tenant.Service
	strategy      isolation.Strategy
	engine        *policy.Engine
	bridge        *session.Bridge
	issuer        *session.Issuer
	userRepo      identity.Repository
	hasher        *identity.PasswordHasher
	auditLogger   audit.Logger
	meter         *metrics.Meter
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tenantService *tenant.Service,
	strategy isolation.Strategy,
	engine *policy.Engine,
	bridge *session.Bridge,
	issuer *session.Issuer,
	userRepo identity.Repository,
	hasher *identity.PasswordHasher,
	auditLogger audit.Logger,
	meter *metrics.Meter,
) *Handler {
	return &Handler{
		tenantService: tenantService,
		strategy:      strategy,
		engine:        engine,
		bridge:        bridge,
		issuer:        issuer,
		userRepo:      userRepo,
		hasher:        hasher,
		auditLogger:   auditLogger,
		meter:         meter,
	}
}

// NewRouter creates the HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.TenantContext)
		r.Use(h.AuthContext)

		r.Post("/taverns", h.ProvisionTenant)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/session", h.Session)
		})

		r.Route("/taverns/current", func(r chi.Router) {
			r.Use(RequireTenant)
			r.Get("/", h.CurrentTenant)
			r.With(RequireUser).Patch("/", h.UpdateCurrentTenant)
			r.With(RequireUser).Get("/members", h.ListMembers)
			r.With(RequireUser).Put("/members/{userID}", h.AssignMemberRole)
			r.With(RequireUser).Delete("/members/{userID}", h.RemoveMember)
		})
	})

	return r
}

// HealthCheck reports liveness
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondNotFound is the single not-found shape. Policy denials render it
// too: an unauthorized caller must not learn whether the resource exists.
func respondNotFound(w http.ResponseWriter) {
	respondError(w, http.StatusNotFound, "not found")
}

type handlerMetric int

const (
	resolutionAttempt handlerMetric = iota
	resolutionError
	policyDenial
	tenantProvisioned
)

// countMetric increments one of the platform counters. A nil meter makes
// every count a no-op, so handlers built without one stay usable.
func (h *Handler) countMetric(ctx context.Context, which handlerMetric) {
	if h.meter == nil {
		return
	}
	switch which {
	case resolutionAttempt:
		h.meter.ResolutionsTotal.Add(ctx, 1)
	case resolutionError:
		h.meter.ResolutionErrors.Add(ctx, 1)
	case policyDenial:
		h.meter.PolicyDenials.Add(ctx, 1)
	case tenantProvisioned:
		h.meter.TenantsProvisions.Add(ctx, 1)
	}
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

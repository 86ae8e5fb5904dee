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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gametaverns/gametaverns/internal/observability/logger"
	"github.com/gametaverns/gametaverns/internal/policy"
	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/go-chi/chi/v5/middleware"
)

// Tenant context is derived EXCLUSIVELY from the Host header via the
// resolver. Headers like X-Tenant-ID are never consulted: a client-supplied
// tenant would bypass hostname-based isolation.

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.Hostname(r.Host),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// TenantContext resolves the Host header to a tenant and attaches it to the
// request context. Platform-level hosts pass through with no tenant. A
// directory failure is a 503: "couldn't tell" must never be served as
// "no tenant".
func (h *Handler) TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.countMetric(r.Context(), resolutionAttempt)
		t, err := h.strategy.Resolve(r.Context(), r.Host)
		if err != nil {
			if errors.Is(err, tenant.ErrResolutionFailed) {
				h.countMetric(r.Context(), resolutionError)
				slog.ErrorContext(r.Context(), "tenant resolution failed",
					logger.Hostname(r.Host),
					logger.Error(err),
				)
				respondError(w, http.StatusServiceUnavailable, "temporarily unavailable")
				return
			}
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if t != nil {
			r = r.WithContext(WithTenant(r.Context(), t))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenant enforces that the request resolved to a tenant. Unresolvable
// hosts render the generic not-found shape.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetTenant(r.Context()) == nil {
			respondNotFound(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthContext derives the acting principal from the session bridge cookie.
// An absent or invalid credential leaves the request anonymous; handlers
// that need identity use RequireUser.
func (h *Handler) AuthContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pair := h.bridge.Read(r); pair != nil {
			if claims, err := h.issuer.ParseAccessToken(pair.AccessToken); err == nil {
				ctx := WithPrincipal(r.Context(), policy.Principal{UserID: claims.Subject})
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser enforces an authenticated principal
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipal(r.Context()).Anonymous() {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

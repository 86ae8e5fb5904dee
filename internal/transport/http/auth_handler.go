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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gametaverns/gametaverns/internal/audit"
	"github.com/gametaverns/gametaverns/internal/identity"
	"github.com/gametaverns/gametaverns/internal/observability/logger"
	"github.com/gametaverns/gametaverns/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Login verifies credentials and writes the session bridge cookie so
// the session carries across every tavern subdomain.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "user lookup failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ok, err := h.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tenantID := ""
	if t := GetTenant(r.Context()); t != nil {
		tenantID = t.ID
	}

	access, expiresAt, err := h.issuer.IssueAccessToken(user.ID, tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "access token issuance failed",
			logger.UserID(user.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	refresh, err := session.NewRefreshToken()
	if err != nil {
		slog.ErrorContext(r.Context(), "refresh token generation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	pair := &session.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.Unix(),
	}
	if err := h.bridge.Write(w, r, pair); err != nil {
		slog.ErrorContext(r.Context(), "session bridge write failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeSessionBridgeWrite,
		TenantID:  tenantID,
		ActorID:   user.ID,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, sessionResponse{
		UserID:    user.ID,
		Email:     user.Email,
		TenantID:  tenantID,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Logout clears the bridge cookie on the parent domain, ending the
// session for every subdomain at once.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.bridge.Clear(w, r)

	principal := GetPrincipal(r.Context())
	if !principal.Anonymous() {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeSessionBridgeClear,
			ActorID:   principal.UserID,
			IPAddress: getIPAddress(r),
			UserAgent: r.UserAgent(),
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session reports the authenticated principal, if any.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	if principal.Anonymous() {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	resp := sessionResponse{UserID: principal.UserID}
	if t := GetTenant(r.Context()); t != nil {
		resp.TenantID = t.ID
	}
	respondJSON(w, http.StatusOK, resp)
}

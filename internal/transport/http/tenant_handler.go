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

	"github.com/gametaverns/gametaverns/internal/observability/logger"
	"github.com/gametaverns/gametaverns/internal/policy"
	"github.com/gametaverns/gametaverns/internal/provision"
	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/go-chi/chi/v5"
)

type provisionRequest struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	OwnerEmail    string `json:"owner_email"`
	OwnerPassword string `json:"owner_password"`
}

type tenantResponse struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	CustomDomain string `json:"custom_domain,omitempty"`
	Active       bool   `json:"active"`
	Discoverable bool   `json:"discoverable"`
}

func toTenantResponse(t *tenant.Tenant) tenantResponse {
	return tenantResponse{
		ID:           t.ID,
		Slug:         t.Slug,
		Name:         t.Name,
		CustomDomain: t.CustomDomain,
		Active:       t.Active,
		Discoverable: t.Discoverable,
	}
}

// ProvisionTenant creates a new tavern with its owner account.
// The endpoint is only reachable on the platform apex, never on a
// tenant subdomain.
func (h *Handler) ProvisionTenant(w http.ResponseWriter, r *http.Request) {
	if GetTenant(r.Context()) != nil {
		respondNotFound(w)
		return
	}

	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OwnerPassword == "" {
		respondError(w, http.StatusBadRequest, "owner password is required")
		return
	}

	hash, err := h.hasher.Hash(req.OwnerPassword)
	if err != nil {
		slog.ErrorContext(r.Context(), "password hashing failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	result, err := h.strategy.Provision(r.Context(), provision.Request{
		Slug:              req.Slug,
		DisplayName:       req.Name,
		OwnerEmail:        req.OwnerEmail,
		OwnerPasswordHash: hash,
	})
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrSlugReserved):
			respondError(w, http.StatusConflict, "slug is reserved")
		case errors.Is(err, tenant.ErrSlugTaken):
			respondError(w, http.StatusConflict, "slug is already taken")
		case errors.Is(err, provision.ErrIncomplete):
			slog.ErrorContext(r.Context(), "tenant provisioning failed",
				logger.Slug(req.Slug), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "provisioning failed")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.countMetric(r.Context(), tenantProvisioned)
	respondJSON(w, http.StatusCreated, toTenantResponse(result.Tenant))
}

// CurrentTenant returns the tavern resolved from the request hostname.
func (h *Handler) CurrentTenant(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())
	respondJSON(w, http.StatusOK, toTenantResponse(t))
}

type updateTenantRequest struct {
	Name         *string `json:"name"`
	Discoverable *bool   `json:"discoverable"`
	CustomDomain *string `json:"custom_domain"`
}

// UpdateCurrentTenant applies owner-gated changes to the resolved tavern.
func (h *Handler) UpdateCurrentTenant(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())
	principal := GetPrincipal(r.Context())

	row := policy.Row{TenantID: t.ID, UserID: t.OwnerID}
	if !h.engine.Allows(r.Context(), principal, policy.TableTenants, policy.OpUpdate, row) {
		h.countMetric(r.Context(), policyDenial)
		respondNotFound(w)
		return
	}

	var req updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated := t
	var err error
	if req.Name != nil {
		updated, err = h.tenantService.Rename(r.Context(), t.ID, *req.Name, principal.UserID)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Discoverable != nil {
		updated, err = h.tenantService.SetDiscoverable(r.Context(), t.ID, *req.Discoverable, principal.UserID)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.CustomDomain != nil {
		if *req.CustomDomain == "" {
			updated, err = h.tenantService.ClearCustomDomain(r.Context(), t.ID, principal.UserID)
		} else {
			updated, err = h.tenantService.AssignCustomDomain(r.Context(), t.ID, *req.CustomDomain, principal.UserID)
		}
		if err != nil {
			if errors.Is(err, tenant.ErrDomainTaken) {
				respondError(w, http.StatusConflict, "domain is already in use")
				return
			}
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	respondJSON(w, http.StatusOK, toTenantResponse(updated))
}

type memberResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// ListMembers returns the membership roster. Owners see the full list;
// everyone else sees only their own row.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())
	principal := GetPrincipal(r.Context())

	fullRoster := h.engine.Allows(r.Context(), principal, policy.TableMemberships, policy.OpSelect,
		policy.Row{TenantID: t.ID})

	members, err := h.tenantService.ListMembers(r.Context(), t.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "listing members failed",
			logger.TenantID(t.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		if !fullRoster && m.UserID != principal.UserID {
			continue
		}
		out = append(out, memberResponse{UserID: m.UserID, Role: m.Role})
	}

	respondJSON(w, http.StatusOK, map[string]any{"members": out})
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

// AssignMemberRole grants or changes a member role. Owner-only.
func (h *Handler) AssignMemberRole(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())
	principal := GetPrincipal(r.Context())
	userID := chi.URLParam(r, "userID")

	row := policy.Row{TenantID: t.ID, UserID: userID}
	if !h.engine.Allows(r.Context(), principal, policy.TableMemberships, policy.OpInsert, row) {
		h.countMetric(r.Context(), policyDenial)
		respondNotFound(w)
		return
	}

	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tenantService.AssignRole(r.Context(), t.ID, userID, req.Role, principal.UserID); err != nil {
		switch {
		case errors.Is(err, tenant.ErrOwnerRoleImmutable):
			respondError(w, http.StatusConflict, "owner role cannot be changed")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, memberResponse{UserID: userID, Role: req.Role})
}

// RemoveMember deletes a membership. Owners can remove anyone but
// themselves; members can remove their own row.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())
	principal := GetPrincipal(r.Context())
	userID := chi.URLParam(r, "userID")

	row := policy.Row{TenantID: t.ID, UserID: userID}
	if !h.engine.Allows(r.Context(), principal, policy.TableMemberships, policy.OpDelete, row) {
		h.countMetric(r.Context(), policyDenial)
		respondNotFound(w)
		return
	}

	if err := h.tenantService.RemoveMember(r.Context(), t.ID, userID, principal.UserID); err != nil {
		switch {
		case errors.Is(err, tenant.ErrOwnerRoleImmutable):
			respondError(w, http.StatusConflict, "owner cannot be removed")
		case errors.Is(err, tenant.ErrMembershipNotFound):
			respondNotFound(w)
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tessera.org/internal/audit"
	"tessera.org/internal/authz"
)

type assignRoleRequest struct {
	Role            string     `json:"role"`
	SystemEditionID string     `json:"system_edition_id"`
	CompanyID       string     `json:"company_id"`
	ChannelID       string     `json:"channel_id"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

type grantListResponse struct {
	Items []authz.RoleGrant `json:"items"`
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[1] != "roles" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	userID := parts[0]

	switch len(parts) {
	case 2:
		a.handleUserGrants(w, r, userID)
	case 3:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.revokeGrant(w, r, userID, parts[2])
	case 4:
		if parts[3] != "reactivate" {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.reactivateGrant(w, r, userID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUserGrants(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodPost:
		a.assignRole(w, r, userID)
	case http.MethodGet:
		a.listGrants(w, r, userID)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request, userID string) {
	rc, _, ok := a.authorize(w, r, authz.PermManageRoles, targets{UserID: userID})
	if !ok {
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	uid, _ := a.principal(w, r)
	grant, err := a.service.AssignRole(r.Context(), userID, authz.Role(strings.TrimSpace(req.Role)), authz.AssignOptions{
		SystemEditionID: req.SystemEditionID,
		CompanyID:       req.CompanyID,
		ChannelID:       req.ChannelID,
		GrantedBy:       uid,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventGrantAssign, map[string]any{
		"grant_id":   grant.ID,
		"user_id":    userID,
		"role":       string(grant.Role),
		"granted_by": uid,
		"acting_as":  string(rc.Role),
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s/roles/%s", userID, grant.ID))
	writeJSON(w, http.StatusCreated, grant)
}

func (a *API) listGrants(w http.ResponseWriter, r *http.Request, userID string) {
	if _, _, ok := a.authorize(w, r, authz.PermManageRoles, targets{UserID: userID}); !ok {
		return
	}
	grants, err := a.service.ListGrants(r.Context(), userID)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	if grants == nil {
		grants = []authz.RoleGrant{}
	}
	writeJSON(w, http.StatusOK, grantListResponse{Items: grants})
}

func (a *API) revokeGrant(w http.ResponseWriter, r *http.Request, userID, grantID string) {
	if _, _, ok := a.authorize(w, r, authz.PermManageRoles, targets{UserID: userID}); !ok {
		return
	}
	uid, _ := a.principal(w, r)
	if err := a.service.RevokeGrant(r.Context(), grantID, uid); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventGrantRevoke, map[string]any{
		"grant_id":   grantID,
		"user_id":    userID,
		"revoked_by": uid,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) reactivateGrant(w http.ResponseWriter, r *http.Request, userID, grantID string) {
	if _, _, ok := a.authorize(w, r, authz.PermManageRoles, targets{UserID: userID}); !ok {
		return
	}
	if err := a.service.ReactivateGrant(r.Context(), grantID); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventGrantReactivate, map[string]any{
		"grant_id": grantID,
		"user_id":  userID,
	})
	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import (
	"net/http"
	"strings"

	"tessera.org/internal/audit"
	"tessera.org/internal/authz"
)

type setActiveRoleRequest struct {
	GrantID string `json:"grant_id"`
}

type contextResponse struct {
	HasActiveRole bool               `json:"has_active_role"`
	Context       *authz.RoleContext `json:"context,omitempty"`
}

// handleMyRoles lists the caller's currently usable grants.
func (a *API) handleMyRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	uid, ok := a.principal(w, r)
	if !ok {
		return
	}
	grants, err := a.selector.AvailableRoles(r.Context(), uid)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	if grants == nil {
		grants = []authz.RoleGrant{}
	}
	writeJSON(w, http.StatusOK, grantListResponse{Items: grants})
}

func (a *API) handleActiveRole(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		a.setActiveRole(w, r)
	case http.MethodDelete:
		a.clearActiveRole(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) setActiveRole(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req setActiveRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	grantID := strings.TrimSpace(req.GrantID)
	if err := a.selector.SetActiveRole(r.Context(), uid, grantID); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventActiveRoleSet, map[string]any{
		"user_id":  uid,
		"grant_id": grantID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) clearActiveRole(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.selector.ClearActiveRole(r.Context(), uid); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventActiveRoleClear, map[string]any{
		"user_id": uid,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleActiveRoleSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req setActiveRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	grantID := strings.TrimSpace(req.GrantID)
	if err := a.selector.SwitchRole(r.Context(), uid, grantID); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventActiveRoleSwitch, map[string]any{
		"user_id":  uid,
		"grant_id": grantID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleMyContext validates the caller's active-role pointer and returns
// the resolved role context. A stale pointer is healed here, surfacing as
// has_active_role=false rather than an error.
func (a *API) handleMyContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	uid, ok := a.principal(w, r)
	if !ok {
		return
	}
	valid, err := a.selector.ValidateActiveRole(r.Context(), uid)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	if !valid {
		writeJSON(w, http.StatusOK, contextResponse{HasActiveRole: false})
		return
	}
	rc, err := a.selector.CurrentContext(r.Context(), uid)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{HasActiveRole: true, Context: &rc})
}

package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tessera.org/internal/audit"
	"tessera.org/internal/authz"
)

type createDelegationRequest struct {
	SystemEditionID string     `json:"system_edition_id"`
	DelegateID      string     `json:"delegate_id"`
	Permissions     []string   `json:"permissions"`
	ExpirationDate  *time.Time `json:"expiration_date"`
}

type delegationListResponse struct {
	Items []authz.DelegateAccessGrant `json:"items"`
}

func (a *API) handleDelegationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createDelegation(w, r)
	case http.MethodGet:
		a.listDelegations(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

// createDelegation delegates a permission subset from the caller to
// another user. The caller is always the delegator.
func (a *API) createDelegation(w http.ResponseWriter, r *http.Request) {
	var req createDelegationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if _, _, ok := a.authorize(w, r, authz.PermCreateDelegate, targets{
		UserID:    strings.TrimSpace(req.DelegateID),
		EditionID: strings.TrimSpace(req.SystemEditionID),
	}); !ok {
		return
	}
	uid, _ := a.principal(w, r)
	perms := make([]authz.Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, authz.Permission(p))
	}
	grant, err := a.service.CreateDelegation(r.Context(), req.SystemEditionID, uid, req.DelegateID, perms, req.ExpirationDate)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventDelegationCreate, map[string]any{
		"delegation_id": grant.ID,
		"delegator_id":  grant.DelegatorID,
		"delegate_id":   grant.DelegateID,
		"permissions":   grant.Permissions,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/delegations/%s", grant.ID))
	writeJSON(w, http.StatusCreated, grant)
}

// listDelegations returns the delegations visible to the caller's scope.
func (a *API) listDelegations(w http.ResponseWriter, r *http.Request) {
	rc, actingID, ok := a.authorize(w, r, authz.PermReadDelegate, targets{})
	if !ok {
		return
	}
	filter, err := a.filters.ResourceFilter(r.Context(), rc.Role, actingID, authz.ResourceDelegate)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	items, err := a.store.ListDelegations(r.Context(), filter)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	if items == nil {
		items = []authz.DelegateAccessGrant{}
	}
	writeJSON(w, http.StatusOK, delegationListResponse{Items: items})
}

func (a *API) handleDelegationResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/delegations/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if _, _, ok := a.authorize(w, r, authz.PermRevokeDelegate, targets{}); !ok {
		return
	}
	if err := a.service.RevokeDelegation(r.Context(), id); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	uid, _ := a.principal(w, r)
	_ = audit.LogEvent(r.Context(), audit.EventDelegationRevoke, map[string]any{
		"delegation_id": id,
		"revoked_by":    uid,
	})
	w.WriteHeader(http.StatusNoContent)
}

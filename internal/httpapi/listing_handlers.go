package httpapi

import (
	"net/http"

	"tessera.org/internal/authz"
	"tessera.org/internal/store/pg"
)

type userListResponse struct {
	Items []pg.UserRow `json:"items"`
}

type companyListResponse struct {
	Items []pg.CompanyRow `json:"items"`
}

// handleUsersCollection lists users, restricted by the filter the caller's
// scope produces. A SELF-scoped caller sees only their own row.
func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rc, actingID, ok := a.authorize(w, r, authz.PermReadUser, targets{})
	if !ok {
		return
	}
	filter, err := a.filters.ResourceFilter(r.Context(), rc.Role, actingID, authz.ResourceUser)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	items, err := a.store.ListUsers(r.Context(), filter)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	if items == nil {
		items = []pg.UserRow{}
	}
	writeJSON(w, http.StatusOK, userListResponse{Items: items})
}

func (a *API) handleCompaniesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rc, actingID, ok := a.authorize(w, r, authz.PermReadCompany, targets{})
	if !ok {
		return
	}
	filter, err := a.filters.ResourceFilter(r.Context(), rc.Role, actingID, authz.ResourceCompany)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	items, err := a.store.ListCompanies(r.Context(), filter)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	if items == nil {
		items = []pg.CompanyRow{}
	}
	writeJSON(w, http.StatusOK, companyListResponse{Items: items})
}

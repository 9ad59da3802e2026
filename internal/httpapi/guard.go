package httpapi

import (
	"net/http"
	"strings"

	"tessera.org/internal/audit"
	"tessera.org/internal/auth"
	"tessera.org/internal/authz"
	"tessera.org/internal/obs"
)

// delegatorHeader marks a request made on behalf of another user. The
// delegation grant is checked first; on success the delegator becomes the
// acting user for scope evaluation.
const delegatorHeader = "X-Delegator-Id"

// targets carries the optional target references of a guarded operation.
type targets struct {
	UserID    string
	CompanyID string
	EditionID string
}

// principal returns the authenticated user id or writes 401.
func (a *API) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return uid, true
}

// authorize runs the decision pipeline for perm. The caller proceeds only
// on true; denials and errors have already been written. The returned
// context and acting id belong to the delegator on delegated requests, so
// downstream filters see the delegator's scope.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, perm authz.Permission, tg targets) (authz.RoleContext, string, bool) {
	ctx := r.Context()
	uid, ok := a.principal(w, r)
	if !ok {
		return authz.RoleContext{}, "", false
	}

	actingID := uid
	if delegator := strings.TrimSpace(r.Header.Get(delegatorHeader)); delegator != "" {
		decision, err := a.evaluator.CheckDelegateAccess(ctx, delegator, uid, perm)
		if err != nil {
			obs.ObserveAuthzDecision(string(perm), "error")
			handleAuthzError(w, r, err)
			return authz.RoleContext{}, "", false
		}
		if !decision.Granted {
			a.deny(w, r, perm, uid, decision.Reason)
			return authz.RoleContext{}, "", false
		}
		actingID = delegator
	}

	valid, err := a.selector.ValidateActiveRole(ctx, actingID)
	if err != nil {
		obs.ObserveAuthzDecision(string(perm), "error")
		handleAuthzError(w, r, err)
		return authz.RoleContext{}, "", false
	}
	if !valid {
		a.deny(w, r, perm, uid, "no active role selected")
		return authz.RoleContext{}, "", false
	}

	rc, err := a.selector.CurrentContext(ctx, actingID)
	if err != nil {
		obs.ObserveAuthzDecision(string(perm), "error")
		handleAuthzError(w, r, err)
		return authz.RoleContext{}, "", false
	}

	decision, err := a.evaluator.CheckPermission(ctx, perm, authz.PermissionContext{
		UserID:                actingID,
		Role:                  rc.Role,
		CompanyID:             rc.CompanyID,
		SystemEditionID:       rc.SystemEditionID,
		TargetUserID:          tg.UserID,
		TargetCompanyID:       tg.CompanyID,
		TargetSystemEditionID: tg.EditionID,
	})
	if err != nil {
		obs.ObserveAuthzDecision(string(perm), "error")
		handleAuthzError(w, r, err)
		return authz.RoleContext{}, "", false
	}
	if !decision.Granted {
		a.deny(w, r, perm, uid, decision.Reason)
		return authz.RoleContext{}, "", false
	}

	obs.ObserveAuthzDecision(string(perm), "granted")
	return rc, actingID, true
}

func (a *API) deny(w http.ResponseWriter, r *http.Request, perm authz.Permission, userID, reason string) {
	obs.ObserveAuthzDecision(string(perm), "denied")
	_ = audit.LogEvent(r.Context(), audit.EventPermissionDenied, map[string]any{
		"user_id":    userID,
		"permission": string(perm),
		"reason":     reason,
	})
	writeError(w, r, http.StatusForbidden, reason)
}

package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"tessera.org/internal/authz"
	"tessera.org/internal/obs"
	"tessera.org/internal/store/pg"
)

// ReadyProbe reports whether the backing database is reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// DataStore is the slice of persistence the HTTP layer talks to directly:
// scope-filtered listings and credential lookup for login. *pg.Store
// satisfies it.
type DataStore interface {
	ListUsers(ctx context.Context, filter authz.FilterSpec) ([]pg.UserRow, error)
	ListCompanies(ctx context.Context, filter authz.FilterSpec) ([]pg.CompanyRow, error)
	ListDelegations(ctx context.Context, filter authz.FilterSpec) ([]authz.DelegateAccessGrant, error)
	FindCredentialsByEmail(ctx context.Context, email string) (pg.Credentials, error)
}

// Deps carries the collaborators the API serves.
type Deps struct {
	Ready     ReadyProbe
	Selector  *authz.Selector
	Evaluator *authz.Evaluator
	Service   *authz.Service
	Filters   *authz.FilterBuilder
	Store     DataStore
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	ready     ReadyProbe
	selector  *authz.Selector
	evaluator *authz.Evaluator
	service   *authz.Service
	filters   *authz.FilterBuilder
	store     DataStore
	version   string
}

func New(deps Deps, version string) *API {
	a := &API{
		mux:       http.NewServeMux(),
		ready:     deps.Ready,
		selector:  deps.Selector,
		evaluator: deps.Evaluator,
		service:   deps.Service,
		filters:   deps.Filters,
		store:     deps.Store,
		version:   version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/companies", a.handleCompaniesCollection)

	a.mux.HandleFunc("/v1/me/roles", a.handleMyRoles)
	a.mux.HandleFunc("/v1/me/active-role", a.handleActiveRole)
	a.mux.HandleFunc("/v1/me/active-role/switch", a.handleActiveRoleSwitch)
	a.mux.HandleFunc("/v1/me/context", a.handleMyContext)

	a.mux.HandleFunc("/v1/delegations", a.handleDelegationsCollection)
	a.mux.HandleFunc("/v1/delegations/", a.handleDelegationResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler: metrics outermost, then
// request id, logging, hardening and authentication.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 100, 50)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tessera-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "tessera-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleAuthzError maps engine errors onto HTTP statuses.
func handleAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrInvalidInput), errors.Is(err, authz.ErrUnknownRole):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, authz.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, authz.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

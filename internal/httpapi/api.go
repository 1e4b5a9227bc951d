// Package httpapi is the HTTP boundary: routing, middleware, request
// decoding and the single place classified errors become wire envelopes.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"backoffice.org/api/spec"
	"backoffice.org/internal/auth"
	"backoffice.org/internal/engine"
	"backoffice.org/internal/files"
	"backoffice.org/internal/obs"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// ReadyProbe pings the backing database for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// resource wires one business entity into the generic handlers.
type resource struct {
	entity string
	// transitions maps a PATCH path suffix to the foreign-key field it
	// moves.
	transitions map[string]string
	// flags are PATCH path suffixes toggling a boolean column.
	flags     []string
	flagLabel string
	// owner names the foreign-key field preset to the acting user on
	// create.
	owner string
	// readOnly resources expose list and getOne only.
	readOnly bool
}

var resources = []resource{
	{entity: "users"},
	{entity: "roles", flags: []string{"status"}, flagLabel: "status"},
	{entity: "features", flags: []string{"featureCreate", "featureRead", "featureUpdate", "featureDelete"}, flagLabel: "feature"},
	{entity: "privileges", flags: []string{"privilegeCreate", "privilegeRead", "privilegeUpdate", "privilegeDelete"}, flagLabel: "privilege"},
	{entity: "priorities"},
	{entity: "phases"},
	{entity: "stages"},
	{entity: "currencies"},
	{entity: "clients"},
	{entity: "tasks", transitions: map[string]string{"priority": "priority", "phase": "phase"}, owner: "author"},
	{entity: "taskhistories", readOnly: true},
	{entity: "events"},
	{entity: "schedules"},
	{entity: "transactions", transitions: map[string]string{"stage": "stage", "client": "client", "currency": "currency"}, owner: "user"},
	{entity: "transactionhistories", readOnly: true},
}

// API is the HTTP layer.
type API struct {
	mux     *http.ServeMux
	engine  *engine.Engine
	auth    *auth.Service
	gw      store.Gateway
	storage *files.Storage
	probe   ReadyProbe
	version string
	// loginRPM caps attempts on the credential endpoints.
	loginRPM int
	// requestRPS caps the general per-client request rate.
	requestRPS   int
	maxBodyBytes int64
}

// Config carries the API collaborators and knobs.
type Config struct {
	Engine   *engine.Engine
	Auth     *auth.Service
	Gateway  store.Gateway
	Storage  *files.Storage
	Probe    ReadyProbe
	Version      string
	LoginRPM     int
	RequestRPS   int
	MaxBodyBytes int64
}

func New(cfg Config) *API {
	a := &API{
		mux:      http.NewServeMux(),
		engine:   cfg.Engine,
		auth:     cfg.Auth,
		gw:       cfg.Gateway,
		storage:  cfg.Storage,
		probe:    cfg.Probe,
		version:  cfg.Version,
		loginRPM: cfg.LoginRPM,
	}
	a.requestRPS = cfg.RequestRPS
	a.maxBodyBytes = cfg.MaxBodyBytes
	if a.loginRPM <= 0 {
		a.loginRPM = 10
	}
	if a.requestRPS <= 0 {
		a.requestRPS = 50
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 10 << 20
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)
	a.mux.Handle("/metrics", obs.Handler())

	// Uploaded images and files
	if a.storage != nil {
		a.mux.Handle("/public/", http.StripPrefix("/public/", http.FileServer(http.Dir(a.storage.Root()))))
	}

	a.registerAuthRoutes()

	for _, res := range resources {
		res := res
		base := "/api/" + res.entity
		a.mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
			a.handleCollection(w, r, res)
		})
		a.mux.HandleFunc(base+"/", func(w http.ResponseWriter, r *http.Request) {
			a.handleSub(w, r, res)
		})
	}

	a.mux.HandleFunc("/api/dashboard", a.Dashboard)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "No API routes detected")
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.requestRPS, a.requestRPS*2)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "backoffice-api",
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.probe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// Dashboard reports the task total and the per-phase breakdown.
func (a *API) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ctx := r.Context()
	total, err := a.gw.Count(ctx, "tasks", store.Filter{})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	phases, err := a.gw.FindMany(ctx, "phases", store.Query{
		Sort: []store.SortKey{{Field: "id", Direction: "asc"}},
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	counts := map[string]int64{}
	for _, phase := range phases {
		id, _ := store.Int64(phase, "id")
		name, _ := store.String(phase, "name")
		n, err := a.gw.Count(ctx, "tasks", store.Filter{Equals: map[string]any{"phaseId": id}})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		counts[name] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":  total,
		"phases": counts,
	})
}

// entityOf panics on unknown resource entities; the table above is wired at
// startup so a bad name is a programming error.
func entityOf(res resource) *schema.Entity {
	return schema.MustLookup(res.entity)
}

// Package httptransport is the thin HTTP layer. Handlers validate input,
// resolve the acting user from context, and delegate to the engines; no
// business logic lives here.
package httptransport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"domainhub/internal/audit"
	"domainhub/internal/credentials"
	"domainhub/internal/inventory/store"
	"domainhub/internal/platform/middleware"
	"domainhub/internal/registrar/adapters"
	"domainhub/internal/sync"
	"domainhub/internal/verification"
	dErrors "domainhub/pkg/domain-errors"
	"domainhub/pkg/platform/httputil"
	"domainhub/pkg/platform/sentinel"
)

// Handler carries the engine dependencies for all routes.
type Handler struct {
	engine   *sync.Engine
	verifier *verification.Service
	vault    *credentials.Vault
	factory  *adapters.Factory
	domains  store.DomainStore
	accounts store.AccountStore
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewHandler constructs the HTTP handler set.
func NewHandler(engine *sync.Engine, verifier *verification.Service, vault *credentials.Vault, factory *adapters.Factory, domains store.DomainStore, accounts store.AccountStore, recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		verifier: verifier,
		vault:    vault,
		factory:  factory,
		domains:  domains,
		accounts: accounts,
		recorder: recorder,
		logger:   logger,
	}
}

// NewRouter wires all endpoints. Everything under /api requires a bearer
// token; health, metrics, and registrar discovery are public.
func NewRouter(h *Handler, validator middleware.JWTValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/registrars", h.handleSupportedRegistrars)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.handleConnectAccount)
			r.Get("/", h.handleListAccounts)
			r.Delete("/{accountID}", h.handleDisconnectAccount)
			r.Post("/{accountID}/sync", h.handleSyncAccount)
			r.Post("/{accountID}/verify", h.handleVerifyAccount)
			r.Post("/{accountID}/test", h.handleTestConnection)
			r.Get("/{accountID}/history", h.handleSyncHistory)
		})

		r.Post("/sync", h.handleSyncUser)
		r.Post("/verify", h.handleVerifyUser)

		r.Route("/domains", func(r chi.Router) {
			r.Get("/", h.handleListDomains)
			r.Post("/{name}/verify", h.handleVerifyDomain)
			r.Get("/{name}/instructions", h.handleInstructions)
			r.Get("/{name}/history", h.handleVerificationHistory)
			r.Get("/{name}/access", h.handleCanPerformAction)
		})
	})

	return r
}

func (h *Handler) handleSupportedRegistrars(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"registrars": h.factory.Supported()})
}

// writeErr translates store sentinels before handing off to the shared
// error writer, so absent rows surface as 404 rather than 500.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, sentinel.ErrNotFound) {
		err = dErrors.New(dErrors.CodeNotFound, "not found")
	}
	httputil.WriteError(w, err)
}

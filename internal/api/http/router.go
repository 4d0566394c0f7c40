package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arkilian/vaultquery/internal/vault"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	DefaultPageSize int

	// Sessions, when set, adds store usage to /v1/vault/stats
	Sessions SessionStatter

	// Gatherer, when set, is served on /metrics
	Gatherer prometheus.Gatherer

	// Wrap is applied outside the default middleware, e.g. shutdown tracking
	Wrap   func(http.Handler) http.Handler
	Logger *slog.Logger
}

// NewRouter mounts the vault API, /health and optionally /metrics.
func NewRouter(svc *vault.Service, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	middleware := DefaultMiddleware(logger)
	if opts.Wrap != nil {
		middleware = ChainMiddleware(opts.Wrap, middleware)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/vault/query", middleware(NewQueryHandler(svc, opts.DefaultPageSize, logger)))
	mux.Handle("/v1/vault/stats", middleware(NewStatsHandler(svc.Stats(), opts.Sessions)))
	mux.Handle("/v1/vault/types", middleware(NewTypesHandler(svc)))
	mux.HandleFunc("/health", healthHandler)
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "vaultquery"})
}

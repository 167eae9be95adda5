// Package router assembles the HTTP surface of the server: Connect
// services, the event stream, health and metrics.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aayan-infotech/bitcoin-admin/internal/middleware"
	"github.com/Aayan-infotech/bitcoin-admin/pkg/api"
)

const healthTimeout = 2 * time.Second

// Deps are the handlers and settings the router mounts.
type Deps struct {
	Auth   api.AuthServiceHandler
	Claims api.ClaimServiceHandler
	Events http.Handler

	// Interceptors run on every Connect procedure, outermost first.
	Interceptors []connect.Interceptor

	// Health reports whether dependencies are reachable. Nil means always
	// healthy.
	Health func(ctx context.Context) error

	AllowedOrigins []string
	Logger         *slog.Logger
}

// New builds the root handler.
func New(d Deps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthHandler(d.Health)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if d.Events != nil {
		r.Handle("/events", d.Events).Methods(http.MethodGet)
	}

	opts := connect.WithInterceptors(d.Interceptors...)
	authPath, authHandler := api.NewAuthServiceHandler(d.Auth, opts)
	r.PathPrefix(authPath).Handler(authHandler)
	claimPath, claimHandler := api.NewClaimServiceHandler(d.Claims, opts)
	r.PathPrefix(claimPath).Handler(claimHandler)

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return middleware.RequestLogger(logger)(middleware.CORS(d.AllowedOrigins)(r))
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

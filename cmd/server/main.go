package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Aayan-infotech/bitcoin-admin/internal/auth"
	"github.com/Aayan-infotech/bitcoin-admin/internal/config"
	"github.com/Aayan-infotech/bitcoin-admin/internal/events"
	"github.com/Aayan-infotech/bitcoin-admin/internal/middleware"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/platform"
	"github.com/Aayan-infotech/bitcoin-admin/internal/router"
	"github.com/Aayan-infotech/bitcoin-admin/internal/service"
	"github.com/Aayan-infotech/bitcoin-admin/internal/settlement"
	"github.com/Aayan-infotech/bitcoin-admin/internal/storage"
	"github.com/Aayan-infotech/bitcoin-admin/internal/storage/sqlstore"
	"github.com/Aayan-infotech/bitcoin-admin/pkg/api"
	"github.com/Aayan-infotech/bitcoin-admin/pkg/logging"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = 10 * time.Minute
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	if err := run(*envFile); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	store, err := sqlstore.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.DatabaseDriver)

	client := platform.New(platform.Options{
		BaseURL:            cfg.PlatformBaseURL,
		Timeout:            cfg.PlatformTimeout,
		SettlementEndpoint: cfg.SettlementEndpoint,
		Logger:             logger.With("component", "platform"),
	})

	hub := events.NewHub(logger.With("component", "events"))
	defer hub.Close()

	initiator := settlement.NewInitiator(client, settlement.Options{
		MaxInFlight: cfg.MaxInFlight,
		Logger:      logger.With("component", "settlement"),
	})
	// Every successful payout invalidates the claim list of every open
	// dashboard.
	initiator.OnSettled(func(req models.SettlementRequest) {
		hub.Publish(events.Event{Type: events.TypeClaimsInvalidated, UserID: req.ClaimUserID})
	})

	jwtManager := auth.NewJWTManager(cfg.JWTSecret)
	resolver := middleware.NewSessionResolver(jwtManager, store)

	handler := router.New(router.Deps{
		Auth: service.NewAuthService(
			auth.NewPlatformAuthenticator(client, cfg.SessionTTL),
			store, jwtManager, logger,
		),
		Claims: service.NewClaimService(client, initiator, store, logger),
		Events: events.NewHandler(hub, resolver, cfg.AllowedOrigins),
		Interceptors: []connect.Interceptor{
			middleware.LoggingInterceptor(logger),
			middleware.RequireAuth(resolver, api.AuthServiceLoginProcedure),
		},
		Health:         store.Ping,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, store, logger)

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		// h2c serves HTTP/2 without TLS, which Connect clients use.
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting",
			"address", server.Addr,
			"env", cfg.Env,
			"platform", cfg.PlatformBaseURL,
			"settlement_endpoint", cfg.SettlementEndpoint,
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sweepSessions deletes expired sessions until ctx ends.
func sweepSessions(ctx context.Context, sessions storage.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := sessions.DeleteExpiredSessions(ctx, now)
			if err != nil {
				logger.Warn("Session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Expired sessions removed", "count", n)
			}
		}
	}
}

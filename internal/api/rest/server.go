// Package rest provides functionality for initializing a server.
package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/api/rest/handlers"
	"github.com/danilovkiri/dk-go-donations/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-donations/internal/client"
	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/service/initiator/initiator"
	"github.com/danilovkiri/dk-go-donations/internal/service/janitor"
	"github.com/danilovkiri/dk-go-donations/internal/service/processor/processor"
	"github.com/danilovkiri/dk-go-donations/internal/service/reconciler/reconciler"
	"github.com/danilovkiri/dk-go-donations/internal/service/reporter/reporter"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary/secretary"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/inmemory"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/inpsql"
	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// initStorage picks PostgreSQL when a DSN is configured and process memory otherwise.
func initStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger, wg *sync.WaitGroup) (storage.Storage, error) {
	if cfg.DatabaseDSN == "" {
		log.Warn().Msg("no database DSN configured, donations will not survive a restart")
		return inmemory.InitStorage(log), nil
	}
	st, err := inpsql.InitStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("closing storage failed")
			return
		}
		log.Info().Msg("storage closed")
	}()
	return st, nil
}

// NewRouter sets routing and middleware.
func NewRouter(urlHandler *handlers.Handler, tokenHandler *middleware.TokenHandler, log *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(*log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request served")
	}))
	r.Use(middleware.CompressHandle)
	r.Use(middleware.DecompressHandle)
	r.Get("/ping", urlHandler.HandlePing())
	loginGroup := r.Group(nil)
	mainGroup := r.Group(nil)
	mainGroup.Use(tokenHandler.TokenHandle)
	loginGroup.Post("/api/auth/register", urlHandler.HandleRegister())
	loginGroup.Post("/api/auth/login", urlHandler.HandleLogin())
	mainGroup.Post("/api/create-order", urlHandler.HandleCreateOrder())
	mainGroup.Post("/api/verify-payment", urlHandler.HandleVerifyPayment())
	mainGroup.Post("/api/payment-failed", urlHandler.HandlePaymentFailed())
	mainGroup.Post("/api/user/history", urlHandler.HandleHistory())
	adminGroup := mainGroup.Group(nil)
	adminGroup.Use(middleware.AdminOnly)
	adminGroup.Get("/api/admin/stats", urlHandler.HandleAdminStats())
	return r
}

// InitServer returns a http.Server object ready to be listening and serving.
func InitServer(ctx context.Context, cfg *config.Config, log *zerolog.Logger, wg *sync.WaitGroup) (server *http.Server, err error) {
	// initialize secretary
	secretaryService, err := secretary.NewSecretaryService(cfg.SecretConfig)
	if err != nil {
		return nil, err
	}

	// initialize token handler
	tokenHandler, err := middleware.NewTokenHandler(secretaryService)
	if err != nil {
		return nil, err
	}

	// initialize storage
	st, err := initStorage(ctx, cfg.StorageConfig, log, wg)
	if err != nil {
		return nil, err
	}

	// initialize user service
	userService, err := processor.InitService(st, secretaryService)
	if err != nil {
		return nil, err
	}

	// initialize gateway client and order service
	gatewayClient := client.InitClient(cfg.GatewayConfig, log)
	orderService, err := initiator.InitService(st, gatewayClient, cfg.GatewayConfig.Currency, log)
	if err != nil {
		return nil, err
	}

	// initialize reconciliation and reporting services
	reconciliationService, err := reconciler.InitService(st, cfg.GatewayConfig.KeySecret, cfg.SweepConfig.PendingTimeout, log)
	if err != nil {
		return nil, err
	}
	reportingService, err := reporter.InitService(st, reconciliationService, log)
	if err != nil {
		return nil, err
	}

	// initialize scheduled sweeps
	janitorService, err := janitor.InitJanitor(ctx, reconciliationService, cfg.SweepConfig, log, wg)
	if err != nil {
		return nil, err
	}
	janitorService.ListenAndSweep()

	// initialize handlers
	urlHandler, err := handlers.InitHandlers(userService, orderService, reconciliationService, reportingService, cfg.GatewayConfig.Timeout+time.Second, log)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:         cfg.ServerConfig.ServerAddress,
		Handler:      NewRouter(urlHandler, tokenHandler, log),
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}

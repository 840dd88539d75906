package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"facility-checklist/internal/apiclient"
	"facility-checklist/internal/auth"
	"facility-checklist/internal/cache"
	"facility-checklist/internal/config"
	"facility-checklist/internal/dashboard"
	"facility-checklist/internal/handlers"
	"facility-checklist/internal/hub"
	"facility-checklist/internal/ingest"
	"facility-checklist/internal/natsbus"
	"facility-checklist/internal/services"
	"facility-checklist/internal/storage"
	"facility-checklist/internal/workers"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API, dashboard and single-page UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(true)
			if err != nil {
				return err
			}
			defer log.Sync()
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, log *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting", zap.Stringer("config", cfg))

	if cfg.Database.AutoMigrate {
		if err := storage.MigrateUp(cfg.Database.Driver, cfg.Database.URL, log); err != nil {
			return err
		}
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.URL, cfg.Database.Attempts, log)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	if cfg.Audit.Retention > 0 {
		workers.StartAuditRetention(ctx, store, cfg.Audit.Retention, cfg.Audit.PruneInterval, log)
	}

	liveHub := hub.NewHub(log)

	var notifier ingest.Notifier
	if slack := services.NewSlackClient(cfg.Slack.WebhookURL); slack.Enabled() {
		notifier = slack
		log.Info("Slack notifications enabled")
	}
	processor := ingest.NewProcessor(store, liveHub, notifier, log)

	var events handlers.EventPublisher = ingest.NewLocalPublisher(processor)
	var consumer *ingest.EventsConsumer
	if cfg.NATS.URL != "" {
		var creds *natsbus.Credentials
		if cfg.NATS.CredsFile != "" {
			if creds, err = natsbus.LoadCredentials(cfg.NATS.CredsFile); err != nil {
				return err
			}
			log.Info("Using NATS credentials", zap.String("user", creds.Name), zap.Time("expires", creds.Expires))
		}

		natsClient, err := natsbus.Connect(cfg.NATS.URL, creds, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		consumer = ingest.NewEventsConsumer(natsClient.JS(), processor, log)
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("start events consumer: %w", err)
		}
		events = natsbus.NewPublisher(natsClient.JS())
	} else {
		log.Info("NATS_URL not set; inspection events are applied in process")
	}

	var rateCache cache.Client
	if cfg.Redis.URL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		rateCache = redisClient
	} else {
		log.Info("REDIS_URL not set; login rate limiting disabled")
	}

	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = selfURL(cfg.HTTP.Addr)
	}
	dash, err := dashboard.New(apiclient.New(apiBase), log)
	if err != nil {
		return err
	}

	router, err := newRouter(routerDeps{
		cfg:       cfg,
		log:       log,
		auth:      auth.NewHandler(store, tokens, log),
		tokens:    tokens,
		api:       handlers.New(store, events, liveHub, tokens, log),
		dashboard: dash,
		rateCache: rateCache,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", cfg.HTTP.Addr), zap.String("api_base", apiBase))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			log.Warn("events consumer stop", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
	return nil
}

// selfURL is the loopback URL of the listen address, used when the dashboard
// calls the API hosted by this same process.
func selfURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://127.0.0.1:8000"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

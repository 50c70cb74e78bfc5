// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"warden/internal/adapter/platformhttp"
	"warden/internal/captcha"
	"warden/internal/jwtauth"
	"warden/internal/platform/config"
	"warden/internal/platform/httpserver"
	"warden/internal/platform/logger"
	"warden/internal/platform/metrics"
	"warden/internal/platform/middleware"
	"warden/internal/verification/handler"
	"warden/internal/verification/ports"
	"warden/internal/verification/service"
	"warden/internal/verification/store/memory"
	"warden/internal/verification/store/postgres"
	"warden/internal/verification/store/sqlite"
	audit "warden/pkg/platform/audit"
	auditkafka "warden/pkg/platform/audit/kafka"
	auditmemory "warden/pkg/platform/audit/store/memory"
	auditworker "warden/pkg/platform/audit/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.DefaultPath, "path to the JSON configuration file")
	flag.Parse()

	log := logger.New(false)
	cfg, err := config.Load(*configPath, log)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log = logger.New(cfg.Server.Debug)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	store, err := openStore(cfg.Verification)
	if err != nil {
		return fmt.Errorf("open verification store: %w", err)
	}
	defer store.Close()
	log.Info("verification store ready", "driver", cfg.Verification.StoreDriver)

	group, ctx := errgroup.WithContext(ctx)

	publisher, err := buildAuditPublisher(ctx, cfg.Audit, log, group)
	if err != nil {
		return fmt.Errorf("build audit publisher: %w", err)
	}

	var adapter ports.PlatformAdapter = platformhttp.Noop{}
	if cfg.Platform.BaseURL != "" {
		adapter = platformhttp.New(cfg.Platform.BaseURL, cfg.Platform.Token, cfg.VerifiedRoleID,
			platformhttp.WithLogger(log))
	}

	generator := captcha.New(cfg.Captcha, log)

	svc, err := service.New(store, adapter, generator, service.Config{
		MaxAttempts:    cfg.Verification.MaxAttempts,
		Timeout:        cfg.Verification.Timeout(),
		RoleConfigured: cfg.VerifiedRoleID != "",
	},
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(publisher),
	)
	if err != nil {
		return fmt.Errorf("build verification service: %w", err)
	}

	// Replay persisted affordances before accepting traffic so buttons
	// rendered before the restart work again.
	result, err := svc.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}
	log.Info("startup reconciliation finished",
		"rearmed", result.Rearmed, "pruned", result.Pruned, "skipped", result.Skipped)

	router := buildRouter(cfg, svc, m, log)
	srv := httpserver.New(cfg.Server.Addr, router)

	group.Go(func() error {
		log.Info("starting warden", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func openStore(cfg config.VerificationConfig) (ports.Store, error) {
	switch cfg.StoreDriver {
	case "", "sqlite":
		return sqlite.Open(cfg.StoreLocation)
	case "postgres":
		return postgres.Open(cfg.PostgresURL)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// buildAuditPublisher selects the Kafka sink when brokers are configured and
// otherwise falls back to the in-process store with a background worker.
func buildAuditPublisher(ctx context.Context, cfg config.AuditConfig, log *slog.Logger, group *errgroup.Group) (audit.Publisher, error) {
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := auditkafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return nil, err
		}
		group.Go(func() error {
			<-ctx.Done()
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.Close(closeCtx); err != nil {
				log.Warn("failed to close audit publisher", "error", err)
			}
			return nil
		})
		log.Info("audit events flowing to kafka", "topic", cfg.KafkaTopic)
		return publisher, nil
	}

	auditStore := auditmemory.NewInMemoryStore()
	inbox := make(chan audit.Event, 256)
	worker := auditworker.NewWorker(auditStore, inbox)
	group.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("audit worker: %w", err)
		}
		return nil
	})
	return audit.NewChannelPublisher(inbox, log), nil
}

func buildRouter(cfg *config.Config, svc *service.Service, m *metrics.Metrics, log *slog.Logger) http.Handler {
	h := handler.New(svc, svc, cfg.Messages, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(15 * time.Second))
		api.Use(middleware.ContentTypeJSON)
		h.Register(api)
	})

	// Admin routes only exist when a signing key is configured.
	if cfg.Server.JWTSigningKey != "" {
		tokens := jwtauth.New(cfg.Server.JWTSigningKey, "warden")
		r.Group(func(admin chi.Router) {
			admin.Use(middleware.Timeout(30 * time.Second))
			admin.Use(middleware.ContentTypeJSON)
			admin.Use(middleware.RequireAuth(tokens, log))
			h.RegisterAdmin(admin)
		})
	} else {
		log.Warn("no jwt signing key configured, admin routes disabled")
	}

	return r
}

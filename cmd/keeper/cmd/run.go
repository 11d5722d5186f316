package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keeper/internal/analytics"
	"keeper/internal/bot"
	"keeper/internal/config"
	"keeper/internal/httpserver"
	"keeper/internal/moderation"
	"keeper/internal/modules/audit"
	"keeper/internal/modules/autorole"
	"keeper/internal/modules/guard"
	"keeper/internal/platform/discord"
	"keeper/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve moderation commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func runBot(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		logger.Error("storage init failed", zap.Error(err))
		return err
	}
	defer store.Close()
	applied, err := store.Migrate()
	if err != nil {
		logger.Error("migrations failed", zap.Error(err))
		return err
	}
	logger.Info("database ready", zap.String("driver", cfg.Database.Driver), zap.Int("migrations", applied))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.Tracing.Enabled {
		provider := sdktrace.NewTracerProvider(sdktrace.WithResource(
			resource.NewSchemaless(attribute.String("service.name", cfg.Tracing.ServiceName)),
		))
		otel.SetTracerProvider(provider)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = provider.Shutdown(ctx)
		}()
	}

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.Error("discord session failed", zap.Error(err))
		return err
	}

	auditLogger := audit.NewLogger(store, logger)
	tracker := moderation.NewTracker(discord.FromSession(session, logger), logger,
		moderation.WithJournal(moderation.StoreJournal(store)),
		moderation.WithNotifier(auditLogger),
		moderation.WithMetrics(moderation.NewMetrics(registry)),
		moderation.WithTracer(otel.Tracer("keeper/moderation")),
	)
	defer tracker.Close()

	roles := autorole.New(store, session, logger, autorole.WithRegisterer(registry))
	defer roles.Close()

	actionGuard := guard.Disabled()
	if cfg.Moderation.Guard.Enabled {
		actionGuard = guard.New(cfg.Moderation.Guard.MaxActions, time.Duration(cfg.Moderation.Guard.WindowSeconds)*time.Second)
	}

	botSvc, err := bot.New(bot.Dependencies{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Session:    session,
		Tracker:    tracker,
		Audit:      auditLogger,
		Analytics:  analytics.New(store),
		Guard:      actionGuard,
		Autorole:   roles,
		Registerer: registry,
	})
	if err != nil {
		logger.Error("bot init failed", zap.Error(err))
		return err
	}
	if err := botSvc.Start(); err != nil {
		logger.Error("bot start failed", zap.Error(err))
		return err
	}
	logger.Info("bot started")

	// Overdue entries fire as soon as they are restored, so the mod-log
	// notifier must already be registered.
	if cfg.Moderation.RestoreOnStart {
		entries, err := moderation.LoadJournal(parent, store)
		if err != nil {
			logger.Warn("timer journal unreadable", zap.Error(err))
		} else {
			logger.Info("timers restored", zap.Int("count", tracker.Restore(entries)))
		}
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return botSvc.RunMaintenance(ctx)
	})

	if cfg.HTTP.Enabled {
		server := httpserver.New(cfg.HTTP.Addr, httpserver.Dependencies{
			Timers:   tracker,
			Store:    store,
			Gatherer: registry,
			Logger:   logger,
		})
		group.Go(func() error {
			logger.Info("http endpoint enabled", zap.String("addr", cfg.HTTP.Addr))
			return server.Run()
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = group.Wait()
	logger.Info("shutdown requested")

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	botSvc.Close(closeCtx)
	return err
}

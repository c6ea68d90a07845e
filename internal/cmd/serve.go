package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bargainbliss/linkbot/internal/config"
	"github.com/bargainbliss/linkbot/internal/core/affiliate"
	"github.com/bargainbliss/linkbot/internal/core/keepalive"
	"github.com/bargainbliss/linkbot/internal/core/messages"
	"github.com/bargainbliss/linkbot/internal/core/quota"
	"github.com/bargainbliss/linkbot/internal/core/relay"
	"github.com/bargainbliss/linkbot/internal/core/store"
	errwrap "github.com/bargainbliss/linkbot/internal/errors"
	"github.com/bargainbliss/linkbot/internal/observability"
	"github.com/bargainbliss/linkbot/internal/server"
	"github.com/bargainbliss/linkbot/internal/server/handlers"
	"github.com/bargainbliss/linkbot/internal/transport/telegram"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// storeHealthChecker pings the reply template database
type storeHealthChecker struct {
	db *store.Store
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if s.db == nil || s.db.DB == nil {
		return errwrap.NewDatabaseError("template store not initialized")
	}
	if err := s.db.DB.PingContext(ctx); err != nil {
		return errwrap.WrapDatabaseError(ctx, err, "template store unreachable")
	}
	return nil
}

// gatewayHealthChecker reports the last observed affiliate gateway state.
// Healthy until the first gateway call has actually been made.
type gatewayHealthChecker struct {
	builder *affiliate.Builder
}

func (g gatewayHealthChecker) CheckHealth(ctx context.Context) error {
	reachable, checked := g.builder.Reachability()
	if checked.IsZero() || reachable {
		return nil
	}
	return errwrap.NewNetworkError("affiliate gateway unreachable since " + checked.UTC().Format(time.RFC3339))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and its HTTP server",
	Long: `Start the Telegram poller, the keep-alive scheduler, and the HTTP
server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload config and reply templates

On shutdown the poller drains in-flight replies, the HTTP server stops
accepting connections, and logs are flushed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
		}
		if err := cfg.ValidateCredentials(); err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Missing required credentials", err)
		}

		if !cmd.Flags().Changed("host") && cfg.Server.Host != "" {
			serverHost = cfg.Server.Host
		}
		if !cmd.Flags().Changed("port") && cfg.Server.Port != 0 {
			serverPort = cfg.Server.Port
		}

		logLevel := cfg.Logging.Level
		if verbose {
			logLevel = "debug"
		}
		observability.InitServerLogger(appName, logLevel)
		logger := observability.ServerLogger

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}
		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(appName, metricsPort); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		logger.Info("Initializing bot",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("host", serverHost),
			zap.Int("port", serverPort),
			zap.Int("metrics_port", metricsPort),
			zap.String("tracking_id", cfg.Affiliate.TrackingID),
			zap.Int("quota_limit", cfg.Quota.Limit),
			zap.Duration("quota_window", cfg.Quota.Window))

		// runCtx governs the poller and keep-alive scheduler. It is
		// cancelled by the shutdown handler before the HTTP server stops.
		runCtx, cancelRun := context.WithCancel(cmd.Context())
		defer cancelRun()

		db, err := store.Open(runCtx, cfg.Store)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to open template store", err)
		}
		if err := db.Migrate(runCtx); err != nil {
			_ = db.Close()
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to migrate template store", err)
		}

		catalog := messages.New(db)
		if err := catalog.Reload(runCtx); err != nil {
			logger.Warn("Failed to load template overrides, using built-in replies", zap.Error(err))
		}

		limiter := quota.New(cfg.Quota.Limit, cfg.Quota.Window)

		builder := &affiliate.Builder{
			AppKey:      cfg.Affiliate.AppKey,
			Secret:      cfg.Affiliate.Secret,
			TrackingID:  cfg.Affiliate.TrackingID,
			BaseURL:     cfg.Affiliate.BaseURL,
			Timeout:     cfg.Affiliate.Timeout,
			MaxAttempts: cfg.Affiliate.MaxAttempts,
			Backoff:     cfg.Affiliate.Backoff,
		}

		botClient := &telegram.Client{
			Token:   cfg.Telegram.Token,
			BaseURL: cfg.Telegram.APIBaseURL,
		}
		me, err := botClient.GetMe(runCtx)
		if err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Telegram credentials rejected", err)
		}
		logger.Info("Telegram identity confirmed",
			zap.String("bot_username", me.Username),
			zap.Int64("bot_id", me.ID))

		poller := &telegram.Poller{
			Client: botClient,
			Handler: &relay.Handler{
				Quota:   limiter,
				Builder: builder,
				Catalog: catalog,
				Logger:  logger,
			},
			Catalog:     catalog,
			Logger:      logger,
			PollTimeout: cfg.Telegram.PollTimeout,
		}
		if cfg.Telegram.Paused {
			poller.Pause()
			logger.Warn("Bot starting in paused mode, every message gets the maintenance reply")
		}

		var heartbeat *keepalive.Scheduler
		if cfg.KeepAlive.Enabled && cfg.KeepAlive.PrimaryURL != "" {
			heartbeat = keepalive.New(
				keepalive.Chain(cfg.KeepAlive.PrimaryURL, cfg.KeepAlive.FallbackURLs),
				cfg.KeepAlive.Interval,
				cfg.KeepAlive.Timeout,
			)
			heartbeat.Logger = logger
		} else {
			logger.Info("Keep-alive scheduler disabled")
		}

		// Health surface
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("template_store", storeHealthChecker{db: db})
		hm.RegisterChecker("affiliate_gateway", gatewayHealthChecker{builder: builder})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
		if heartbeat != nil {
			hm.RegisterChecker("keepalive", heartbeat)
		}

		startedAt := time.Now()
		handlers.SetStatusProvider(func() handlers.StatusResponse {
			resp := handlers.StatusResponse{
				Status:    "running",
				Uptime:    time.Since(startedAt).Round(time.Second).String(),
				StartedAt: startedAt,
				Paused:    poller.Paused(),
				Quota: handlers.QuotaStatus{
					Limit:       cfg.Quota.Limit,
					Window:      cfg.Quota.Window.String(),
					ActiveUsers: limiter.Users(),
				},
			}
			if reachable, checked := builder.Reachability(); !checked.IsZero() {
				resp.Affiliate = handlers.AffiliateStatus{Reachable: reachable, LastChecked: &checked}
			}
			if heartbeat != nil {
				status := heartbeat.Status()
				resp.Heartbeat = &status
			}
			return resp
		})

		srv := server.New(serverHost, serverPort)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run in LIFO order.
		// Handler 1: flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		// Handler 2: close template store
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Closing template store...")
			if err := db.Close(); err != nil {
				logger.Warn("Template store close returned error", zap.Error(err))
			}
			return nil
		})

		// Handler 3: shutdown HTTP server
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Handler 4: stop poller and keep-alive scheduler (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Stopping Telegram poller...")
			cancelRun()
			return nil
		})

		// SIGHUP reloads config and reply template overrides
		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: reloading configuration and templates")

			reloaded, err := config.Load(ctx)
			if err != nil {
				logger.Error("Failed to reload configuration", zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			if reloaded.Telegram.Paused != poller.Paused() {
				if reloaded.Telegram.Paused {
					poller.Pause()
					logger.Warn("Bot paused via config reload")
				} else {
					poller.Resume()
					logger.Info("Bot resumed via config reload")
				}
			}

			if err := catalog.Reload(ctx); err != nil {
				logger.Error("Failed to reload reply templates", zap.Error(err))
				return errwrap.WrapDatabaseError(ctx, err, "template reload failed")
			}

			logger.Info("Configuration and templates reloaded")
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)

		go func() {
			logger.Info("Starting HTTP server...",
				zap.String("host", serverHost),
				zap.Int("port", serverPort))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			logger.Info("Starting Telegram poller...",
				zap.Duration("poll_timeout", cfg.Telegram.PollTimeout))
			if err := poller.Run(runCtx); err != nil && runCtx.Err() == nil {
				errChan <- fmt.Errorf("telegram poller: %w", err)
			}
		}()

		if heartbeat != nil {
			go func() {
				logger.Info("Starting keep-alive scheduler...",
					zap.Duration("interval", cfg.KeepAlive.Interval),
					zap.Int("targets", len(heartbeat.Targets)))
				heartbeat.Run(runCtx)
			}()
		}

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

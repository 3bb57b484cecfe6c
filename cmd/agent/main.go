package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/storyforge-ai/workflow-agent/internal/api"
	"github.com/storyforge-ai/workflow-agent/internal/config"
	"github.com/storyforge-ai/workflow-agent/internal/health"
	"github.com/storyforge-ai/workflow-agent/internal/metrics"
	"github.com/storyforge-ai/workflow-agent/internal/mgmt"
	"github.com/storyforge-ai/workflow-agent/internal/notify"
	"github.com/storyforge-ai/workflow-agent/internal/realtime"
	"github.com/storyforge-ai/workflow-agent/internal/session"
	"github.com/storyforge-ai/workflow-agent/internal/workflow"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("api_base_url", cfg.APIBase()).
		Str("realtime_url", cfg.RealtimeURL).
		Str("mgmt_addr", cfg.MgmtListenAddr).
		Msg("starting workflow agent")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Settings presets (optional)
	presets, err := config.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.PresetsPath).Msg("failed to load presets (non-fatal)")
	} else if presets != nil && len(presets.Presets) > 0 {
		logger.Info().Int("count", len(presets.Presets)).Msg("settings presets loaded")
	}

	// Core state
	store := workflow.NewStore()
	notices := notify.NewCenter()
	collector := metrics.New()
	notices.SetMetrics(collector)

	// Backend facade
	client := api.NewClient(cfg.APIBase(), cfg.APITimeout, logger)
	client.SetMetrics(collector)

	// Realtime channel
	channel := realtime.NewChannel(realtime.Config{
		URL:                  cfg.RealtimeURL,
		MaxReconnectAttempts: cfg.ReconnectMaxAttempts,
		BackoffUnit:          cfg.ReconnectUnit,
	}, store, notices, collector, logger)

	// Session coordinator
	coordinator := session.New(client, channel, store, notices, logger)

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("backend", func(ctx context.Context) health.Status {
		if err := client.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})
	checker.Register("realtime", func(ctx context.Context) health.Status {
		// Degraded, not down: the agent stays usable from polled state.
		if store.CurrentProject() != nil && !channel.IsConnected() {
			return health.StatusDegraded
		}
		return health.StatusOK
	})

	// --- Management API ---
	rtCfg := &mgmt.RuntimeConfig{
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
		APIBaseURL:     cfg.APIBase(),
		RealtimeURL:    cfg.RealtimeURL,
		MgmtListenAddr: cfg.MgmtListenAddr,
		RateLimitRPS:   cfg.MgmtRateLimitRPS,
		RateLimitBurst: cfg.MgmtRateLimitBurst,
		AuthMode:       cfg.MgmtAuthMode,
	}

	handlers := mgmt.NewHandlers(store, notices, coordinator, checker, rtCfg, logger)
	handlers.SetPresets(presets)

	mgmtServer := mgmt.NewServer(mgmt.ServerConfig{
		ListenAddr: cfg.MgmtListenAddr,
		AuthConfig: mgmt.AuthConfig{
			Mode:      cfg.MgmtAuthMode,
			APIKey:    cfg.MgmtAPIKey,
			JWTSecret: cfg.MgmtJWTSecret,
		},
		RateLimit: mgmt.RateLimitConfig{
			RPS:   cfg.MgmtRateLimitRPS,
			Burst: cfg.MgmtRateLimitBurst,
		},
		CORSOrigins: cfg.MgmtCORSOrigins,
	}, handlers, collector, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mgmtServer.Start(); err != nil {
			logger.Error().Err(err).Msg("management API server error")
		}
	}()

	// Warm the project list so the first workflow snapshot is populated.
	if err := coordinator.RefreshProjects(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial project list fetch failed (non-fatal)")
	}

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	coordinator.CloseProject()

	if err := mgmtServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("management API server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("workflow agent stopped")
}

// Command wizardd is the entry point for the document wizard engine's HTTP
// server: it loads configuration, wires storage and the provider registry,
// starts the Scheduler's background dequeue loop, and serves the session
// API until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/docwizard/engine/internal/config"
	"github.com/docwizard/engine/internal/conversation"
	"github.com/docwizard/engine/internal/executor"
	"github.com/docwizard/engine/internal/filestore"
	"github.com/docwizard/engine/internal/logging"
	"github.com/docwizard/engine/internal/promptstore"
	"github.com/docwizard/engine/internal/provider"
	"github.com/docwizard/engine/internal/queue"
	"github.com/docwizard/engine/internal/result"
	"github.com/docwizard/engine/internal/scheduler"
	"github.com/docwizard/engine/internal/server"
	"github.com/docwizard/engine/internal/sessionstore"
	"github.com/docwizard/engine/internal/storage"
)

var (
	port      = flag.Int("port", 8080, "Server port")
	directory = flag.String("directory", "", "Working directory for per-project config and .env")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("wizardd %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to get working directory: %v\n", err)
			os.Exit(1)
		}
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data directories: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:      logging.ParseLevel(cfg.LogLevel),
		LogToFile:  cfg.LogToFile,
		LogDir:     paths.State,
		TimeFormat: time.RFC3339,
	})
	defer logging.Close()
	log := logging.Logger

	log.Info().Str("version", Version).Str("workDir", workDir).Msg("starting wizardd")

	durable, err := storage.OpenDurable(paths.DBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open durable storage")
	}
	defer durable.Close()
	hot := storage.New(filepath.Join(paths.Cache, "hot"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watcher, err := config.NewWatcher(workDir, func(reloaded *config.Config) {
		log.Info().Msg("configuration file changed on disk; restart wizardd to apply it")
	}); err != nil {
		log.Warn().Err(err).Msg("failed to start config watcher")
	} else if watcher != nil {
		watcher.Start()
		defer watcher.Stop()
	}

	reg := provider.New(durable, hot, cfg.Engine.ModelCacheTTL(), log)
	registerProviders(ctx, reg, cfg, log)
	gw := provider.NewGateway(reg, rate.NewLimiter(rate.Limit(10), 20), log)

	sessions := sessionstore.New(hot, durable, cfg.Engine.SessionTTL(), log)
	if err := sessions.SetCleanupSchedule(cfg.Engine.CleanupCronExpr); err != nil {
		log.Fatal().Err(err).Msg("invalid cleanup cron expression")
	}
	files := filestore.New(durable)
	prompts := promptstore.New(durable)
	convLog := conversation.New(durable)
	assembler := result.New(durable)
	q := queue.New(durable)
	if err := q.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to restore queue from durable storage")
	}

	exec := executor.New(executor.Config{
		Prompts:   prompts,
		Files:     files,
		Log:       convLog,
		Sessions:  sessions,
		Gateway:   gw,
		Assembler: assembler,
		Logger:    log,
	})

	sched := scheduler.New(scheduler.Config{
		Queue:           q,
		Prompts:         prompts,
		Sessions:        sessions,
		Executor:        exec,
		Logger:          log,
		MaxConcurrent:   cfg.Engine.MaxConcurrentProcessing,
		CleanupInterval: cfg.Engine.CleanupInterval(),
	})

	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(ctx) }()

	serverConfig := server.DefaultConfig()
	serverConfig.Port = *port

	srv := server.New(serverConfig, server.Deps{
		Sessions:  sessions,
		Files:     files,
		Prompts:   prompts,
		Conv:      convLog,
		Assembler: assembler,
		Queue:     q,
		Executor:  exec,
		Notify:    sched,
		Logger:    log,
	})

	go func() {
		log.Info().Int("port", *port).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	select {
	case err := <-schedDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("scheduler stopped with error")
		}
	case <-time.After(5 * time.Second):
		log.Warn().Msg("scheduler did not stop within grace period")
	}

	log.Info().Msg("stopped")
}

// registerProviders constructs and registers a backend for every entry in
// cfg.Provider that is not explicitly disabled and carries an API key, then
// syncs its model list. A provider that fails to construct or sync is
// logged and skipped so one bad credential cannot block startup.
func registerProviders(ctx context.Context, reg *provider.Registry, cfg *config.Config, log zerolog.Logger) {
	for name, pc := range cfg.Provider {
		if pc.Disabled || pc.APIKey == "" {
			continue
		}

		model := ""
		if len(pc.Models) > 0 {
			model = pc.Models[0]
		}

		var p provider.Provider
		var err error
		switch name {
		case "anthropic":
			p, err = provider.NewAnthropicProvider(ctx, &provider.AnthropicConfig{
				ID: name, APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: model, MaxTokens: 4096,
			})
		case "ark":
			var ap *provider.ArkProvider
			ap, err = provider.NewArkProvider(ctx, &provider.ArkConfig{
				APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: model, MaxTokens: 4096,
			})
			p = ap
		default:
			// openai and any OpenAI-compatible provider (including gemini's
			// OpenAI-compatible endpoint) share the same client shape.
			p, err = provider.NewOpenAIProvider(ctx, &provider.OpenAIConfig{
				ID: name, APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: model, MaxTokens: 4096,
			})
		}
		if err != nil {
			log.Warn().Err(err).Str("provider", name).Msg("failed to construct provider, skipping")
			continue
		}

		reg.RegisterProvider(p)
		if _, err := reg.SyncModels(ctx, name); err != nil {
			log.Warn().Err(err).Str("provider", name).Msg("failed to sync models")
		}
	}
}

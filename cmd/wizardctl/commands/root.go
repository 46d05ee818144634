// Package commands provides the wizardctl CLI commands.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/docwizard/engine/internal/config"
	"github.com/docwizard/engine/internal/conversation"
	"github.com/docwizard/engine/internal/logging"
	"github.com/docwizard/engine/internal/promptstore"
	"github.com/docwizard/engine/internal/queue"
	"github.com/docwizard/engine/internal/sessionstore"
	"github.com/docwizard/engine/internal/storage"
)

var (
	// Version information set at build time.
	Version   = "0.1.0"
	BuildTime = "dev"
)

var (
	printLogs bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:     "wizardctl",
	Short:   "Operator control for the document wizard engine",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCfg := logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Output: os.Stderr,
			Pretty: printLogs,
		}
		if !printLogs {
			logCfg.Level = logging.FatalLevel
		}
		logging.Init(logCfg)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.SetVersionTemplate("wizardctl " + Version + " (" + BuildTime + ")\n")

	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(resolveClarificationsCmd)
	rootCmd.AddCommand(cleanupCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// engineHandles bundles the stores wizardctl's subcommands operate on,
// opened directly against the same durable database wizardd writes to —
// these commands are local operator tools, not an HTTP client.
type engineHandles struct {
	durable  *storage.Durable
	sessions *sessionstore.Store
	prompts  *promptstore.Store
	conv     *conversation.Log
	queue    *queue.Queue
}

func (h *engineHandles) Close() {
	h.durable.Close()
}

// openEngine opens the engine's durable storage and the stores operator
// commands need. Failing to create the data directories or open the
// database is fatal for a CLI invocation.
func openEngine() (*engineHandles, error) {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}
	durable, err := storage.OpenDurable(paths.DBPath())
	if err != nil {
		return nil, err
	}
	hot := storage.New(filepath.Join(paths.Cache, "hot"))

	q := queue.New(durable)
	if err := q.Restore(context.Background()); err != nil {
		durable.Close()
		return nil, fmt.Errorf("restore queue: %w", err)
	}

	return &engineHandles{
		durable:  durable,
		sessions: sessionstore.New(hot, durable, time.Hour, zerolog.Nop()),
		prompts:  promptstore.New(durable),
		conv:     conversation.New(durable),
		queue:    q,
	}, nil
}

// Package cli implements the kensaku command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/vector"
	"github.com/hyperjump/kensaku/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X github.com/hyperjump/kensaku/internal/cli.Version=...".
var Version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kensaku/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// app carries global flags and the state loaded from them.
type app struct {
	configPath string
	serverURL  string
	debug      bool

	cfg          *config.Config
	resolvedPath string
	logger       *zap.Logger
}

// NewRootCommand builds the kensaku command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kensaku",
		Short: "Kensaku - collection-scoped semantic search with reranking",
		Long: `Kensaku stores short texts in named collections, embeds them into vectors,
and answers queries in two stages: vector similarity picks candidates and a
relevance scorer reorders them.

Example usage:
  kensaku server                               # Start the HTTP server
  kensaku collections create docs              # Create a collection
  kensaku index docs intro "Kensaku is fast"   # Index one item
  kensaku import docs "data/**/*.jsonl"        # Bulk import JSONL files
  kensaku search docs how fast is it           # Search`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(cmd.Name() == "server")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path (.yaml or .toml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.serverURL, "server", defaultServerURL, `server URL (empty = use the local sqlite or bolt store directly)`)

	root.AddCommand(
		newServerCommand(a),
		newCollectionsCommand(a),
		newIndexCommand(a),
		newImportCommand(a),
		newSearchCommand(a),
		newStatusCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) load(serverMode bool) error {
	cfg, resolved, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg, a.resolvedPath = cfg, resolved
	debug := cfg.Debug || a.debug
	if serverMode {
		a.logger, err = utils.NewLogger(debug)
	} else {
		a.logger, err = utils.NewCLILogger(debug)
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	return nil
}

var errMemoryLocal = errors.New(`storage.backend "memory" does not persist between commands; ` +
	`run "kensaku server" and use --server, or configure a sqlite or bolt backend`)

// backend returns a server client when --server is set, otherwise an in-process backend.
func (a *app) backend() (Backend, error) {
	if a.serverURL != "" {
		return NewClient(a.serverURL), nil
	}
	if a.cfg.Storage.Backend == string(vector.BackendMemory) {
		return nil, errMemoryLocal
	}
	components, err := NewComponents(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return &localBackend{
		components: components,
		storage:    a.cfg.Storage.Backend,
		embedding:  a.cfg.Embedding.Provider,
		rerank:     a.cfg.Rerank.Provider,
	}, nil
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). A missing default file
// means built-in defaults. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

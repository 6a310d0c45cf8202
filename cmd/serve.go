package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agenthub/internal/config"
	"agenthub/internal/credstore"
	"agenthub/internal/oauth"
	"agenthub/internal/server"
	"agenthub/internal/tools"
	"agenthub/pkg/logging"

	"github.com/spf13/cobra"
)

// serveConfigPath specifies the configuration file to load.
var serveConfigPath string

// serveDebug enables verbose logging regardless of the configured level.
var serveDebug bool

// serveCmd defines the serve command structure.
// This is the main command of agenthub: it starts the HTTP API that handles
// OAuth connect/callback flows and tool resolution for agents.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agenthub API server",
	Long: `Starts the agenthub server and serves the OAuth and tool APIs.

The server exposes:
  - OAuth connect and callback endpoints for linking user accounts
  - integration status and revocation endpoints
  - tool resolution and invocation endpoints backed by the configured
    MCP tool servers

Configuration is read from a single YAML file (see --config). Provider
client secrets may be supplied via environment variables referenced by
the clientSecretEnv field, keeping them out of the file itself.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	store, err := credstore.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer store.Close()

	registry := oauth.NewRegistry(cfg.Providers, cfg.Server.PublicURL, cfg.Server.CallbackPath)
	manager := oauth.NewManager(registry, store)

	toolRegistry := tools.NewRegistry(cfg.ToolServers)
	cache := tools.NewCache(time.Duration(cfg.ToolCache.TTLSeconds) * time.Second)
	defer cache.Stop()
	resolver := tools.NewResolver(toolRegistry, manager, cache)

	srv := server.New(cfg.Server, manager, resolver)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("Serve", "agenthub %s starting (providers: %d, tool servers: %d)",
		GetVersion(), len(cfg.Providers), len(cfg.ToolServers))

	return srv.Run(ctx)
}

// init registers the serve command and its flags with the root command.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveConfigPath, "config", "agenthub.yaml", "Path to the configuration file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/alucardeht/morse-mcp/internal/config"
	"github.com/alucardeht/morse-mcp/internal/daemon"
	"github.com/alucardeht/morse-mcp/internal/logger"
	"github.com/alucardeht/morse-mcp/internal/mcp"
	"github.com/alucardeht/morse-mcp/internal/tools/history"
	"github.com/alucardeht/morse-mcp/pkg/version"
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "YAML config file (default $"+config.EnvConfigPath+")")
		socketPath  = pflag.String("socket", "", "Forward to the daemon listening on this socket instead of serving in-process")
		logLevel    = pflag.String("log-level", "", "Override log.level (debug, info, warn, error)")
		showVersion = pflag.BoolP("version", "v", false, "Print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println("morse-mcp", version.Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	// stdout carries the protocol.
	logger.Init(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *socketPath != "" {
		err = bridge(ctx, *socketPath)
	} else {
		err = serve(ctx, cfg)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("stdio session failed", "error", err)
		os.Exit(1)
	}
}

func bridge(ctx context.Context, socketPath string) error {
	client, err := daemon.Dial(ctx, socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer client.Close()

	go func() {
		select {
		case <-client.DisconnectNotify():
			logger.Error("daemon connection lost")
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	return mcp.ServeStream(ctx, client, os.Stdin, os.Stdout)
}

func serve(ctx context.Context, cfg *config.Config) error {
	var store *history.Store
	if cfg.History.Enabled {
		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to ensure directories: %w", err)
		}
		s, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer s.Close()
		store = s
	}

	registry, err := daemon.NewRegistry(cfg, store)
	if err != nil {
		return err
	}

	server := mcp.NewServer(registry, cfg.Translate.CallTimeout)
	return server.ProcessStream(ctx, os.Stdin, os.Stdout)
}

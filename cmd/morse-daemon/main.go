//go:build unix

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/alucardeht/morse-mcp/internal/config"
	"github.com/alucardeht/morse-mcp/internal/daemon"
	"github.com/alucardeht/morse-mcp/internal/logger"
	"github.com/alucardeht/morse-mcp/pkg/version"
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "YAML config file (default $"+config.EnvConfigPath+")")
		socketPath  = pflag.String("socket", "", "Override daemon.socket_path")
		logLevel    = pflag.String("log-level", "", "Override log.level (debug, info, warn, error)")
		metricsAddr = pflag.String("metrics-addr", "", "Override metrics.addr, e.g. 127.0.0.1:9464")
		showVersion = pflag.BoolP("version", "v", false, "Print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println("morse-daemon", version.Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *socketPath != "" {
		cfg.Daemon.SocketPath = *socketPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	if err := run(cfg); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Println("Daemon already running")
			return
		}
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	lifecycle := daemon.NewLifecycle(cfg.Daemon.BaseDir, cfg.Daemon.SocketPath)
	if err := lifecycle.Acquire(); err != nil {
		return err
	}
	defer lifecycle.Release()

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	defer d.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return d.Shutdown()
}

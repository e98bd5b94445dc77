package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "MORSE_MCP_CONFIG"

type DaemonConfig struct {
	BaseDir        string `yaml:"base_dir"`
	SocketPath     string `yaml:"socket_path"`
	MaxConnections int    `yaml:"max_connections"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TranslateConfig struct {
	MaxInputBytes int           `yaml:"max_input_bytes"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
}

type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
	ListLimit     int    `yaml:"list_limit"`
}

type WatchRule struct {
	Dir       string `yaml:"dir"`
	Pattern   string `yaml:"pattern"`
	Mode      string `yaml:"mode"`
	OutputDir string `yaml:"output_dir"`
}

type WatchConfig struct {
	Enabled        bool          `yaml:"enabled"`
	DebounceWindow time.Duration `yaml:"debounce_window"`
	MaxBatchSize   int           `yaml:"max_batch_size"`
	Rules          []WatchRule   `yaml:"rules"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	Log       LogConfig       `yaml:"log"`
	Translate TranslateConfig `yaml:"translate"`
	History   HistoryConfig   `yaml:"history"`
	Watch     WatchConfig     `yaml:"watch"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".morse-mcp")

	return &Config{
		Daemon: DaemonConfig{
			BaseDir:        baseDir,
			SocketPath:     filepath.Join(baseDir, "daemon.sock"),
			MaxConnections: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Translate: TranslateConfig{
			MaxInputBytes: 1 << 20,
			CallTimeout:   30 * time.Second,
		},
		History: HistoryConfig{
			Enabled:       true,
			DBPath:        filepath.Join(baseDir, "history.db"),
			RetentionDays: 30,
			ListLimit:     50,
		},
		Watch: WatchConfig{
			Enabled:        false,
			DebounceWindow: 300 * time.Millisecond,
			MaxBatchSize:   100,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path falls back to $MORSE_MCP_CONFIG; when neither is set the defaults are
// returned as is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Daemon.SocketPath == "" {
		return fmt.Errorf("daemon.socket_path is required")
	}
	if c.Daemon.MaxConnections < 1 {
		return fmt.Errorf("daemon.max_connections must be positive, got %d", c.Daemon.MaxConnections)
	}
	if c.Translate.MaxInputBytes < 0 {
		return fmt.Errorf("translate.max_input_bytes cannot be negative")
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path is required when history is enabled")
	}
	if c.History.ListLimit < 1 {
		return fmt.Errorf("history.list_limit must be positive, got %d", c.History.ListLimit)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Watch.Enabled {
		if c.Watch.MaxBatchSize < 1 {
			return fmt.Errorf("watch.max_batch_size must be positive")
		}
		for i, rule := range c.Watch.Rules {
			if rule.Dir == "" || rule.OutputDir == "" {
				return fmt.Errorf("watch.rules[%d]: dir and output_dir are required", i)
			}
			if rule.Mode != "encode" && rule.Mode != "decode" {
				return fmt.Errorf("watch.rules[%d]: mode must be encode or decode, got %q", i, rule.Mode)
			}
			if filepath.Clean(rule.Dir) == filepath.Clean(rule.OutputDir) {
				return fmt.Errorf("watch.rules[%d]: output_dir must differ from dir", i)
			}
		}
	}

	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Daemon.BaseDir, filepath.Dir(c.Daemon.SocketPath)}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.DBPath))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

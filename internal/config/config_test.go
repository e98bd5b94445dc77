package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Translate.MaxInputBytes != 1<<20 {
		t.Errorf("expected default max input, got %d", cfg.Translate.MaxInputBytes)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log:
  level: debug
  format: json
translate:
  max_input_bytes: 4096
  call_timeout: 5s
history:
  enabled: false
watch:
  enabled: true
  debounce_window: 50ms
  rules:
    - dir: /tmp/in
      pattern: "**/*.txt"
      mode: encode
      output_dir: /tmp/out
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log section not applied: %+v", cfg.Log)
	}
	if cfg.Translate.MaxInputBytes != 4096 {
		t.Errorf("expected 4096, got %d", cfg.Translate.MaxInputBytes)
	}
	if cfg.Translate.CallTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.Translate.CallTimeout)
	}
	if cfg.History.Enabled {
		t.Error("history should be disabled")
	}
	if cfg.Watch.DebounceWindow != 50*time.Millisecond {
		t.Errorf("expected 50ms, got %v", cfg.Watch.DebounceWindow)
	}
	if len(cfg.Watch.Rules) != 1 || cfg.Watch.Rules[0].Mode != "encode" {
		t.Errorf("rules not parsed: %+v", cfg.Watch.Rules)
	}
	if cfg.Daemon.MaxConnections != 100 {
		t.Errorf("untouched defaults should survive, got %d", cfg.Daemon.MaxConnections)
	}
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("metrics:\n  addr: 127.0.0.1:9109\n"), 0644)
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9109" {
		t.Errorf("expected metrics addr from env file, got %q", cfg.Metrics.Addr)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("log: [unclosed"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"negative max input", func(c *Config) { c.Translate.MaxInputBytes = -1 }},
		{"zero connections", func(c *Config) { c.Daemon.MaxConnections = 0 }},
		{"history without path", func(c *Config) { c.History.DBPath = "" }},
		{"watch rule bad mode", func(c *Config) {
			c.Watch.Enabled = true
			c.Watch.Rules = []WatchRule{{Dir: "/a", OutputDir: "/b", Mode: "reverse"}}
		}},
		{"watch rule same dirs", func(c *Config) {
			c.Watch.Enabled = true
			c.Watch.Rules = []WatchRule{{Dir: "/a", OutputDir: "/a/", Mode: "encode"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Daemon.BaseDir = filepath.Join(dir, "base")
	cfg.Daemon.SocketPath = filepath.Join(dir, "run", "d.sock")
	cfg.History.DBPath = filepath.Join(dir, "data", "h.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, d := range []string{"base", "run", "data"} {
		if _, err := os.Stat(filepath.Join(dir, d)); err != nil {
			t.Errorf("expected %s to exist: %v", d, err)
		}
	}
}

package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alucardeht/morse-mcp/internal/config"
	"github.com/alucardeht/morse-mcp/internal/convert"
)

// DefaultPattern matches every file below a rule's directory.
const DefaultPattern = "**"

type Rule struct {
	Dir       string
	Pattern   string
	Mode      convert.Mode
	OutputDir string
}

type Config struct {
	DebounceWindow time.Duration
	MaxBatchSize   int
	// MaxBytes caps the size of a single source file. Zero disables the cap.
	MaxBytes int64
	Rules    []Rule
}

// FromConfig resolves the watch section of the daemon configuration into
// absolute, validated rules.
func FromConfig(wc config.WatchConfig, maxBytes int64) (Config, error) {
	cfg := Config{
		DebounceWindow: wc.DebounceWindow,
		MaxBatchSize:   wc.MaxBatchSize,
		MaxBytes:       maxBytes,
		Rules:          make([]Rule, 0, len(wc.Rules)),
	}
	if cfg.MaxBatchSize < 1 {
		cfg.MaxBatchSize = 1
	}

	for i, r := range wc.Rules {
		mode, err := convert.ParseMode(r.Mode)
		if err != nil {
			return Config{}, fmt.Errorf("rule %d: %w", i, err)
		}

		pattern := r.Pattern
		if pattern == "" {
			pattern = DefaultPattern
		}
		if !doublestar.ValidatePattern(pattern) {
			return Config{}, fmt.Errorf("rule %d: invalid pattern %q", i, pattern)
		}

		dir, err := filepath.Abs(r.Dir)
		if err != nil {
			return Config{}, fmt.Errorf("rule %d: %w", i, err)
		}
		out, err := filepath.Abs(r.OutputDir)
		if err != nil {
			return Config{}, fmt.Errorf("rule %d: %w", i, err)
		}
		if dir == out {
			return Config{}, fmt.Errorf("rule %d: output_dir must differ from dir", i)
		}

		cfg.Rules = append(cfg.Rules, Rule{Dir: dir, Pattern: pattern, Mode: mode, OutputDir: out})
	}

	return cfg, nil
}

package daemon

import (
	"fmt"

	"github.com/alucardeht/morse-mcp/internal/config"
	"github.com/alucardeht/morse-mcp/internal/tools"
	"github.com/alucardeht/morse-mcp/internal/tools/files"
	"github.com/alucardeht/morse-mcp/internal/tools/history"
	"github.com/alucardeht/morse-mcp/internal/tools/translate"
)

// NewRegistry builds the tool set served to clients. History tools are only
// registered when store is non-nil.
func NewRegistry(cfg *config.Config, store *history.Store) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	if err := registry.Register(tools.NewHealthTool(registry)); err != nil {
		return nil, err
	}

	opts := translate.Options{MaxInputBytes: cfg.Translate.MaxInputBytes}
	if store != nil {
		opts.Recorder = store
	}
	if err := registry.RegisterAll(translate.GetTools(opts)); err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	if err := registry.RegisterAll(files.GetTools(int64(cfg.Translate.MaxInputBytes))); err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}

	if store != nil {
		if err := registry.RegisterAll(history.GetTools(store, cfg.History.ListLimit)); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	}

	return registry, nil
}

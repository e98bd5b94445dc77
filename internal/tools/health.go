package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alucardeht/morse-mcp/pkg/version"
)

type HealthTool struct {
	registry  *Registry
	startTime time.Time
}

func NewHealthTool(registry *Registry) *HealthTool {
	return &HealthTool{
		registry:  registry,
		startTime: time.Now(),
	}
}

func (t *HealthTool) Name() string {
	return "health"
}

func (t *HealthTool) Description() string {
	return "Check toolbox health status"
}

func (t *HealthTool) Title() string {
	return "Health Check"
}

func (t *HealthTool) Annotations() map[string]bool {
	return ReadOnlyAnnotations()
}

func (t *HealthTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *HealthTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	toolCount := 0
	if t.registry != nil {
		toolCount = t.registry.Len()
	}

	return map[string]interface{}{
		"status":         "healthy",
		"version":        version.Version,
		"uptime_seconds": int64(time.Since(t.startTime).Seconds()),
		"tools":          toolCount,
	}, nil
}

package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alucardeht/morse-mcp/internal/tools"
)

const previewRunes = 200

func GetTools(store *Store, defaultLimit int) []tools.Tool {
	return []tools.Tool{
		NewListTool(store, defaultLimit),
		NewClearTool(store),
	}
}

type ListTool struct {
	store        *Store
	defaultLimit int
}

func NewListTool(store *Store, defaultLimit int) *ListTool {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &ListTool{store: store, defaultLimit: defaultLimit}
}

func (t *ListTool) Name() string {
	return "morse_history"
}

func (t *ListTool) Description() string {
	return `List recent Morse translations, newest first.

Filter by direction (encode or decode) or by a substring of the input or
output. Long texts are shortened unless full is true.`
}

func (t *ListTool) Title() string {
	return "Translation History"
}

func (t *ListTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *ListTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"direction": {
				"type": "string",
				"enum": ["encode", "decode"],
				"description": "Only show this direction"
			},
			"query": {
				"type": "string",
				"description": "Substring to look for in input or output"
			},
			"limit": {
				"type": "integer",
				"description": "Max entries to return",
				"minimum": 1,
				"maximum": 500
			},
			"full": {
				"type": "boolean",
				"description": "Return complete texts instead of previews"
			}
		}
	}`)
}

func (t *ListTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req struct {
		Direction string `json:"direction"`
		Query     string `json:"query"`
		Limit     int    `json:"limit"`
		Full      bool   `json:"full"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}

	direction := Direction(req.Direction)
	if direction != "" && !direction.Valid() {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("unknown direction %q", req.Direction))
	}

	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = t.defaultLimit
	}

	entries, err := t.store.List(ctx, Filter{Direction: direction, Query: req.Query, Limit: req.Limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	items := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		in, out := e.Input, e.Output
		if !req.Full {
			in, out = truncate(in, previewRunes), truncate(out, previewRunes)
		}
		items = append(items, map[string]interface{}{
			"id":         e.ID,
			"direction":  e.Direction,
			"input":      in,
			"output":     out,
			"created_at": e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return map[string]interface{}{
		"total":   len(items),
		"entries": items,
	}, nil
}

type ClearTool struct {
	store *Store
}

func NewClearTool(store *Store) *ClearTool {
	return &ClearTool{store: store}
}

func (t *ClearTool) Name() string {
	return "morse_history_clear"
}

func (t *ClearTool) Description() string {
	return "Delete translation history, optionally only one direction"
}

func (t *ClearTool) Title() string {
	return "Clear Translation History"
}

func (t *ClearTool) Annotations() map[string]bool {
	return tools.DestructiveAnnotations()
}

func (t *ClearTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"direction": {
				"type": "string",
				"enum": ["encode", "decode"],
				"description": "Only clear this direction (default: everything)"
			}
		}
	}`)
}

func (t *ClearTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError(err)
	}

	direction := Direction(req.Direction)
	if direction != "" && !direction.Valid() {
		return nil, tools.NewInvalidParamsError(fmt.Errorf("unknown direction %q", req.Direction))
	}

	deleted, err := t.store.Clear(ctx, direction)
	if err != nil {
		return nil, fmt.Errorf("failed to clear history: %w", err)
	}

	return map[string]interface{}{
		"success": true,
		"deleted": deleted,
	}, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

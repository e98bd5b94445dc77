package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

type AnnotatedTool interface {
	Tool
	Title() string
	Annotations() map[string]bool
}

// Observer is notified after every tool call made through the registry.
type Observer interface {
	ObserveToolCall(name string, duration time.Duration, err error)
}

type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	observer Observer
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	return nil
}

func (r *Registry) RegisterAll(list []Tool) error {
	for _, tool := range list {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (interface{}, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, NewToolNotFoundError(name)
	}

	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	start := time.Now()
	result, err := tool.Execute(ctx, input)

	r.mu.RLock()
	observer := r.observer
	r.mu.RUnlock()
	if observer != nil {
		observer.ObserveToolCall(name, time.Since(start), err)
	}

	return result, err
}

// ExecuteWithTimeout runs the tool in its own goroutine and gives up once
// timeout elapses. The tool sees the cancelled context and is expected to
// return promptly.
func (r *Registry) ExecuteWithTimeout(ctx context.Context, name string, input json.RawMessage, timeout time.Duration) (interface{}, error) {
	if timeout <= 0 {
		return r.Execute(ctx, name, input)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("tool execution panicked: %v", p)}
			}
		}()
		result, err := r.Execute(ctx, name, input)
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, NewToolTimeoutError(name, timeout)
	}
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

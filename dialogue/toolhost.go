package dialogue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ToolFunc answers a free-form question using whatever capability the tool
// wraps.
type ToolFunc func(ctx context.Context, question string) (string, error)

// HostedTool pairs a tool's metadata with its implementation.
type HostedTool struct {
	Name        string
	Description string
	Fn          ToolFunc
}

// HookEvent describes a tool invocation to observers.
type HookEvent struct {
	Tool     string
	Question string
	Result   string
	Err      error
	Duration time.Duration
}

// Hooks are optional callbacks around tool invocations. They are
// best-effort: a panicking hook is recovered and never fails the invocation.
type Hooks struct {
	PreInvoke  func(HookEvent)
	PostInvoke func(HookEvent)
}

// ToolHost manages named tools and runs them with pre/post hooks.
type ToolHost struct {
	tools  map[string]HostedTool
	hooks  Hooks
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewToolHost creates an empty ToolHost.
func NewToolHost(logger *zap.Logger) *ToolHost {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolHost{
		tools:  make(map[string]HostedTool),
		logger: logger,
	}
}

// Register adds or replaces a tool.
func (h *ToolHost) Register(tool HostedTool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tools[tool.Name] = tool
}

// SetHooks installs invocation hooks.
func (h *ToolHost) SetHooks(hooks Hooks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = hooks
}

// Names returns the names of all registered tools.
func (h *ToolHost) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.tools))
	for name := range h.tools {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered tools.
func (h *ToolHost) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tools)
}

func safeHook(logger *zap.Logger, fn func(HookEvent), ev HookEvent) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("tool hook panicked", zap.String("tool", ev.Tool), zap.Any("panic", r))
		}
	}()
	fn(ev)
}

// Invoke runs the named tool with hooks around it.
func (h *ToolHost) Invoke(ctx context.Context, name, question string) (string, error) {
	h.mu.RLock()
	tool, ok := h.tools[name]
	hooks := h.hooks
	h.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("tool host: unknown tool %q", name)
	}

	safeHook(h.logger, hooks.PreInvoke, HookEvent{Tool: name, Question: question})

	start := time.Now()
	result, err := tool.Fn(ctx, question)
	ev := HookEvent{
		Tool:     name,
		Question: question,
		Result:   result,
		Err:      err,
		Duration: time.Since(start),
	}
	safeHook(h.logger, hooks.PostInvoke, ev)

	if err != nil {
		return "", fmt.Errorf("tool host: %s: %w", name, err)
	}
	return result, nil
}

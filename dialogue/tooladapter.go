package dialogue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ToolBackend answers free-form questions on behalf of the conversation.
type ToolBackend interface {
	Name() string
	Query(ctx context.Context, question string) (string, error)
}

// DirectBackend answers questions by inspecting the local workspace. It is
// always available and needs no external process.
type DirectBackend struct {
	inspector *WorkspaceInspector
}

// NewDirectBackend creates a DirectBackend over the given inspector.
func NewDirectBackend(inspector *WorkspaceInspector) *DirectBackend {
	return &DirectBackend{inspector: inspector}
}

func (b *DirectBackend) Name() string { return "direct" }

func (b *DirectBackend) Query(ctx context.Context, question string) (string, error) {
	return b.inspector.Answer(ctx, question)
}

// HostBackend routes questions to a named tool on a ToolHost, giving the
// conversation access to the host's richer tooling and hooks.
type HostBackend struct {
	host *ToolHost
	tool string
}

// NewHostBackend creates a HostBackend that dispatches to the named tool.
func NewHostBackend(host *ToolHost, tool string) *HostBackend {
	return &HostBackend{host: host, tool: tool}
}

func (b *HostBackend) Name() string { return "host:" + b.tool }

func (b *HostBackend) Query(ctx context.Context, question string) (string, error) {
	return b.host.Invoke(ctx, b.tool, question)
}

// ToolStats counts adapter outcomes.
type ToolStats struct {
	PreferredCalls int
	FallbackCalls  int
	Failures       int
}

// ToolAdapter fronts a preferred backend with a one-shot fallback: when the
// preferred backend errors, the fallback is tried exactly once, and when
// both fail the adapter reports failure rather than an error so the
// conversation can continue without tool output.
type ToolAdapter struct {
	preferred ToolBackend
	fallback  ToolBackend
	timeout   time.Duration
	logger    *zap.Logger

	mu    sync.Mutex
	stats ToolStats
}

// NewToolAdapter creates a ToolAdapter. The fallback may be nil; a zero
// timeout defaults to 30 seconds.
func NewToolAdapter(preferred, fallback ToolBackend, timeout time.Duration, logger *zap.Logger) *ToolAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolAdapter{
		preferred: preferred,
		fallback:  fallback,
		timeout:   timeout,
		logger:    logger,
	}
}

// Stats returns a snapshot of the adapter's counters.
func (a *ToolAdapter) Stats() ToolStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

func (a *ToolAdapter) queryOne(ctx context.Context, backend ToolBackend, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return backend.Query(ctx, question)
}

// Query answers a question, preferring the primary backend and falling back
// once. The boolean reports whether any backend produced an answer.
func (a *ToolAdapter) Query(ctx context.Context, question string) (string, bool) {
	result, err := a.queryOne(ctx, a.preferred, question)
	if err == nil {
		a.mu.Lock()
		a.stats.PreferredCalls++
		a.mu.Unlock()
		return ClipInjected(result, "tool_result"), true
	}
	a.logger.Warn("preferred tool backend failed",
		zap.String("backend", a.preferred.Name()),
		zap.Error(err))

	if a.fallback != nil {
		result, ferr := a.queryOne(ctx, a.fallback, question)
		if ferr == nil {
			a.mu.Lock()
			a.stats.FallbackCalls++
			a.mu.Unlock()
			return ClipInjected(result, "tool_result"), true
		}
		a.logger.Warn("fallback tool backend failed",
			zap.String("backend", a.fallback.Name()),
			zap.Error(ferr))
	}

	a.mu.Lock()
	a.stats.Failures++
	a.mu.Unlock()
	return "", false
}

// toolInjectionPrefix tags injected tool results in the conversation log.
const toolInjectionPrefix = "[System: tool result]"

// FormatToolResult renders an adapter answer for injection into the log.
func FormatToolResult(question, answer string) string {
	return fmt.Sprintf("%s\nQuestion: %s\n\n%s", toolInjectionPrefix, question, answer)
}

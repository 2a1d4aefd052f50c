package dialogue

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stubBackend struct {
	name   string
	answer string
	err    error
	calls  int
	lastQ  string
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Query(_ context.Context, question string) (string, error) {
	b.calls++
	b.lastQ = question
	if b.err != nil {
		return "", b.err
	}
	return b.answer, nil
}

func TestToolAdapterPreferred(t *testing.T) {
	preferred := &stubBackend{name: "p", answer: "from preferred"}
	fallback := &stubBackend{name: "f", answer: "from fallback"}
	a := NewToolAdapter(preferred, fallback, time.Second, nil)

	answer, ok := a.Query(context.Background(), "what is x")
	if !ok {
		t.Fatal("expected success")
	}
	if answer != "from preferred" {
		t.Errorf("expected preferred answer, got %q", answer)
	}
	if fallback.calls != 0 {
		t.Errorf("expected fallback untouched, got %d calls", fallback.calls)
	}
	if s := a.Stats(); s.PreferredCalls != 1 || s.FallbackCalls != 0 || s.Failures != 0 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestToolAdapterFallback(t *testing.T) {
	preferred := &stubBackend{name: "p", err: fmt.Errorf("backend down")}
	fallback := &stubBackend{name: "f", answer: "rescued"}
	a := NewToolAdapter(preferred, fallback, time.Second, nil)

	answer, ok := a.Query(context.Background(), "what is x")
	if !ok || answer != "rescued" {
		t.Fatalf("expected fallback answer, got (%q, %v)", answer, ok)
	}
	if fallback.calls != 1 {
		t.Errorf("expected exactly one fallback call, got %d", fallback.calls)
	}
	if s := a.Stats(); s.FallbackCalls != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestToolAdapterBothFail(t *testing.T) {
	preferred := &stubBackend{name: "p", err: fmt.Errorf("down")}
	fallback := &stubBackend{name: "f", err: fmt.Errorf("also down")}
	a := NewToolAdapter(preferred, fallback, time.Second, nil)

	answer, ok := a.Query(context.Background(), "q")
	if ok || answer != "" {
		t.Fatalf("expected failure, got (%q, %v)", answer, ok)
	}
	if s := a.Stats(); s.Failures != 1 {
		t.Errorf("expected 1 failure recorded, got %+v", s)
	}
}

func TestToolAdapterNoFallback(t *testing.T) {
	preferred := &stubBackend{name: "p", err: fmt.Errorf("down")}
	a := NewToolAdapter(preferred, nil, time.Second, nil)
	if _, ok := a.Query(context.Background(), "q"); ok {
		t.Error("expected failure with no fallback")
	}
}

func TestToolHostInvoke(t *testing.T) {
	h := NewToolHost(nil)
	h.Register(HostedTool{
		Name: "echo",
		Fn: func(_ context.Context, q string) (string, error) {
			return "echo: " + q, nil
		},
	})

	var pre, post int
	h.SetHooks(Hooks{
		PreInvoke:  func(HookEvent) { pre++ },
		PostInvoke: func(ev HookEvent) { post++ },
	})

	got, err := h.Invoke(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "echo: hello" {
		t.Errorf("expected echoed answer, got %q", got)
	}
	if pre != 1 || post != 1 {
		t.Errorf("expected hooks fired once each, got pre=%d post=%d", pre, post)
	}
}

func TestToolHostUnknownTool(t *testing.T) {
	h := NewToolHost(nil)
	if _, err := h.Invoke(context.Background(), "missing", "q"); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestToolHostHookPanicRecovered(t *testing.T) {
	h := NewToolHost(nil)
	h.Register(HostedTool{
		Name: "ok",
		Fn:   func(context.Context, string) (string, error) { return "fine", nil },
	})
	h.SetHooks(Hooks{
		PreInvoke: func(HookEvent) { panic("hook bug") },
	})

	got, err := h.Invoke(context.Background(), "ok", "q")
	if err != nil {
		t.Fatalf("expected invocation to survive hook panic, got %v", err)
	}
	if got != "fine" {
		t.Errorf("expected tool result, got %q", got)
	}
}

func TestHostBackendRoutes(t *testing.T) {
	h := NewToolHost(nil)
	h.Register(HostedTool{
		Name: "research",
		Fn:   func(_ context.Context, q string) (string, error) { return "answer to " + q, nil },
	})
	b := NewHostBackend(h, "research")

	if b.Name() != "host:research" {
		t.Errorf("unexpected name %q", b.Name())
	}
	got, err := b.Query(context.Background(), "why tides")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "answer to why tides" {
		t.Errorf("unexpected answer %q", got)
	}
}

func TestFormatToolResult(t *testing.T) {
	body := FormatToolResult("why", "because")
	if !strings.Contains(body, toolInjectionPrefix) || !strings.Contains(body, "because") {
		t.Errorf("unexpected body %q", body)
	}
}

package dialogue

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/duet-dev/duet/llm"
)

// scriptAdapter streams pre-scripted responses, one per call, in fixed-size
// chunks.
type scriptAdapter struct {
	mu        sync.Mutex
	responses []string
	failures  []error // consumed before responses
	chunkSize int
	citations []llm.Citation
	calls     int
	lastReq   llm.Request
}

func (a *scriptAdapter) Name() string { return "script" }

func (a *scriptAdapter) next() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if len(a.failures) > 0 {
		err := a.failures[0]
		a.failures = a.failures[1:]
		return "", err
	}
	if len(a.responses) == 0 {
		return "I have nothing further to add.", nil
	}
	text := a.responses[0]
	a.responses = a.responses[1:]
	return text, nil
}

func (a *scriptAdapter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	a.mu.Lock()
	a.lastReq = req
	a.mu.Unlock()
	text, err := a.next()
	if err != nil {
		return nil, err
	}
	return &llm.Response{
		Model: req.Model, Provider: a.Name(), Text: text,
		FinishReason: llm.FinishReason{Reason: "stop"},
	}, nil
}

func (a *scriptAdapter) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	a.mu.Lock()
	a.lastReq = req
	a.mu.Unlock()
	text, err := a.next()
	ch := make(chan llm.StreamEvent, 16)
	go func() {
		defer close(ch)
		ch <- llm.StreamEvent{Type: llm.StreamStart}
		if err != nil {
			ch <- llm.StreamEvent{Type: llm.StreamError, Error: err}
			return
		}
		size := a.chunkSize
		if size <= 0 {
			size = 8
		}
		for i := 0; i < len(text); i += size {
			end := i + size
			if end > len(text) {
				end = len(text)
			}
			select {
			case ch <- llm.StreamEvent{Type: llm.TextDelta, Delta: text[i:end]}:
			case <-ctx.Done():
				return
			}
		}
		for i := range a.citations {
			ch <- llm.StreamEvent{Type: llm.CitationEvent, Citation: &a.citations[i]}
		}
		ch <- llm.StreamEvent{
			Type:  llm.StreamFinish,
			Usage: &llm.Usage{InputTokens: 10, OutputTokens: len(text) / 4, TotalTokens: 10 + len(text)/4},
		}
	}()
	return ch, nil
}

func scriptClient(a *scriptAdapter) *llm.Client {
	return llm.NewClient(llm.WithProvider("script", a))
}

func fastRetry() llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         0.001,
		MaxDelay:          0.005,
		BackoffMultiplier: 2,
	}
}

func TestStreamBridgeCompleted(t *testing.T) {
	adapter := &scriptAdapter{
		responses: []string{"The tide is governed by the moon."},
		citations: []llm.Citation{{Title: "Tides", URL: "https://example.com"}},
	}
	b := NewStreamBridge(scriptClient(adapter), fastRetry(), nil)

	var seen strings.Builder
	result := b.Respond(context.Background(), llm.Request{Model: "m", Provider: "script"},
		nil, func(delta string) { seen.WriteString(delta) })

	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %v (err %v)", result.Outcome, result.Err)
	}
	if result.Text != "The tide is governed by the moon." {
		t.Errorf("unexpected text %q", result.Text)
	}
	if seen.String() != result.Text {
		t.Errorf("expected sink to see full text, got %q", seen.String())
	}
	if len(result.Citations) != 1 || result.Citations[0].Title != "Tides" {
		t.Errorf("expected citation carried, got %+v", result.Citations)
	}
	if result.Usage.InputTokens != 10 {
		t.Errorf("expected usage captured, got %+v", result.Usage)
	}
}

func TestStreamBridgeInterruptPreservesPartial(t *testing.T) {
	adapter := &scriptAdapter{
		responses: []string{strings.Repeat("alpha ", 50)},
		chunkSize: 6,
	}
	b := NewStreamBridge(scriptClient(adapter), fastRetry(), nil)

	var flag InterruptFlag
	chunks := 0
	result := b.Respond(context.Background(), llm.Request{Model: "m", Provider: "script"},
		&flag, func(delta string) {
			chunks++
			if chunks == 3 {
				flag.Set()
			}
		})

	if result.Outcome != OutcomeInterrupted {
		t.Fatalf("expected interrupted, got %v", result.Outcome)
	}
	if result.Text == "" {
		t.Error("expected partial text preserved")
	}
	if len(result.Text) >= 300 {
		t.Errorf("expected stream stopped early, got %d chars", len(result.Text))
	}
}

func TestStreamBridgeInterruptBeforeStart(t *testing.T) {
	adapter := &scriptAdapter{responses: []string{"never seen"}}
	b := NewStreamBridge(scriptClient(adapter), fastRetry(), nil)

	var flag InterruptFlag
	flag.Set()
	result := b.Respond(context.Background(), llm.Request{Model: "m", Provider: "script"}, &flag, nil)

	if result.Outcome != OutcomeInterrupted {
		t.Fatalf("expected interrupted, got %v", result.Outcome)
	}
	if result.Text != "" {
		t.Errorf("expected no text, got %q", result.Text)
	}
	if adapter.calls != 0 {
		t.Errorf("expected no provider call, got %d", adapter.calls)
	}
}

func TestStreamBridgeRetriesBeforeText(t *testing.T) {
	adapter := &scriptAdapter{
		failures:  []error{&llm.ServerError{ProviderError: llm.ProviderError{ClientError: llm.ClientError{Message: "overloaded"}, StatusCode: 529, Retryable: true}}},
		responses: []string{"recovered"},
	}
	b := NewStreamBridge(scriptClient(adapter), fastRetry(), nil)

	result := b.Respond(context.Background(), llm.Request{Model: "m", Provider: "script"}, nil, nil)
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected completed after retry, got %v (err %v)", result.Outcome, result.Err)
	}
	if result.Text != "recovered" {
		t.Errorf("unexpected text %q", result.Text)
	}
	if adapter.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", adapter.calls)
	}
}

func TestStreamBridgeNonRetryableFails(t *testing.T) {
	adapter := &scriptAdapter{
		failures: []error{&llm.AuthenticationError{ProviderError: llm.ProviderError{ClientError: llm.ClientError{Message: "bad key"}, StatusCode: 401}}},
	}
	b := NewStreamBridge(scriptClient(adapter), fastRetry(), nil)

	result := b.Respond(context.Background(), llm.Request{Model: "m", Provider: "script"}, nil, nil)
	if result.Outcome != OutcomeFailed {
		t.Fatalf("expected failure, got %v", result.Outcome)
	}
	if result.Err == nil {
		t.Error("expected error populated")
	}
	if adapter.calls != 1 {
		t.Errorf("expected single attempt, got %d", adapter.calls)
	}
}

func TestInterruptFlag(t *testing.T) {
	var f InterruptFlag
	if f.IsSet() {
		t.Error("expected flag initially clear")
	}
	f.Set()
	if !f.IsSet() {
		t.Error("expected flag set")
	}
	f.Clear()
	if f.IsSet() {
		t.Error("expected flag cleared")
	}
}

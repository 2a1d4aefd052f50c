package dialogue

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/duet-dev/duet/llm"
)

// InterruptFlag is a cooperative cancellation signal checked between stream
// chunks. Safe for concurrent use.
type InterruptFlag struct {
	v atomic.Bool
}

// Set raises the flag.
func (f *InterruptFlag) Set() { f.v.Store(true) }

// Clear lowers the flag.
func (f *InterruptFlag) Clear() { f.v.Store(false) }

// IsSet reports whether the flag is raised.
func (f *InterruptFlag) IsSet() bool { return f.v.Load() }

// StreamOutcome classifies how a streamed response ended.
type StreamOutcome string

const (
	// OutcomeCompleted means the stream ran to its natural end.
	OutcomeCompleted StreamOutcome = "completed"
	// OutcomeInterrupted means the interrupt flag stopped the stream; any
	// text received so far is preserved.
	OutcomeInterrupted StreamOutcome = "interrupted"
	// OutcomeFailed means the stream ended with an error.
	OutcomeFailed StreamOutcome = "failed"
)

// StreamResult is the outcome of one streamed agent response.
type StreamResult struct {
	Text      string
	Citations []llm.Citation
	Usage     llm.Usage
	Outcome   StreamOutcome
	Err       error
}

// StreamBridge drives streamed completions, surfacing deltas to a sink as
// they arrive and honoring the interrupt flag between chunks.
type StreamBridge struct {
	client *llm.Client
	retry  llm.RetryPolicy
	logger *zap.Logger
}

// NewStreamBridge creates a StreamBridge. A nil logger defaults to no-op.
func NewStreamBridge(client *llm.Client, retry llm.RetryPolicy, logger *zap.Logger) *StreamBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamBridge{client: client, retry: retry, logger: logger}
}

// Respond streams a completion for req. Each text delta is passed to sink
// (which may be nil) before being accumulated. The interrupt flag is checked
// before the stream opens and after every event; on interrupt the partial
// text is returned rather than discarded. Retryable errors that occur before
// any text has arrived are retried with backoff; errors after text has been
// shown to the user fail the turn so the sink never sees duplicate output.
func (b *StreamBridge) Respond(ctx context.Context, req llm.Request, flag *InterruptFlag, sink func(delta string)) StreamResult {
	var lastErr error
	for attempt := 0; attempt <= b.retry.MaxRetries; attempt++ {
		if flag != nil && flag.IsSet() {
			return StreamResult{Outcome: OutcomeInterrupted}
		}
		if attempt > 0 {
			delay := b.retry.Delay(attempt - 1)
			b.logger.Info("retrying stream",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return StreamResult{Outcome: OutcomeFailed, Err: &llm.AbortError{ClientError: llm.ClientError{Message: "request cancelled", Cause: ctx.Err()}}}
			}
		}

		result, retryable := b.attempt(ctx, req, flag, sink)
		if result.Outcome != OutcomeFailed {
			return result
		}
		if !retryable {
			return result
		}
		lastErr = result.Err
	}
	return StreamResult{Outcome: OutcomeFailed, Err: lastErr}
}

// attempt runs a single stream. The boolean reports whether a failure may be
// retried (only when no text was delivered to the sink).
func (b *StreamBridge) attempt(ctx context.Context, req llm.Request, flag *InterruptFlag, sink func(delta string)) (StreamResult, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := b.client.Stream(ctx, req)
	if err != nil {
		return StreamResult{Outcome: OutcomeFailed, Err: err}, llm.IsRetryable(err)
	}

	var result StreamResult
	for ev := range events {
		switch ev.Type {
		case llm.TextDelta:
			if sink != nil && ev.Delta != "" {
				sink(ev.Delta)
			}
			result.Text += ev.Delta
		case llm.CitationEvent:
			if ev.Citation != nil {
				result.Citations = append(result.Citations, *ev.Citation)
			}
		case llm.StreamFinish:
			if ev.Usage != nil {
				result.Usage = *ev.Usage
			}
			if ev.Response != nil && len(ev.Response.Citations) > 0 && len(result.Citations) == 0 {
				result.Citations = ev.Response.Citations
			}
		case llm.StreamError:
			result.Outcome = OutcomeFailed
			result.Err = ev.Error
			// Retry only if the user has not seen any text from this attempt.
			return result, result.Text == "" && llm.IsRetryable(ev.Error)
		}

		if flag != nil && flag.IsSet() {
			cancel()
			drain(events)
			result.Outcome = OutcomeInterrupted
			return result, false
		}
	}

	result.Outcome = OutcomeCompleted
	return result, false
}

func drain(events <-chan llm.StreamEvent) {
	for range events {
	}
}

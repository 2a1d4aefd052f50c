// Package llm provides a provider-agnostic LLM client that wraps the gollm
// library (github.com/teilomillet/gollm) behind a small streaming-first
// interface.
//
// # Architecture
//
//   - ProviderAdapter: the contract a concrete provider implementation
//     satisfies (Complete and Stream).
//   - Client: routes requests to registered adapters by provider name and
//     applies middleware.
//   - GollmAdapter: the production adapter, translating between this
//     package's types and gollm's API.
//   - Retry: generic bounded exponential backoff for retryable error classes.
//
// # Quick Start
//
//	adapter, _ := llm.NewGollmAdapter("anthropic", os.Getenv("ANTHROPIC_API_KEY"))
//	client := llm.NewClient(llm.WithProvider("anthropic", adapter))
//
//	events, _ := client.Stream(ctx, llm.Request{
//	    Model:    "claude-sonnet-4-5",
//	    Messages: []llm.Message{llm.UserMessage("Hello")},
//	})
//	for ev := range events {
//	    if ev.Type == llm.TextDelta {
//	        fmt.Print(ev.Delta)
//	    }
//	}
//
// # Errors
//
// Provider failures are classified into a typed hierarchy (authentication,
// rate limit, server, context length, ...). IsRetryable reports whether a
// given error is safe to retry; Retry implements the backoff loop.
package llm

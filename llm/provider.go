package llm

import "context"

// ProviderAdapter is the contract a concrete provider implementation
// satisfies. Adapters translate between this package's types and the
// provider's native API.
type ProviderAdapter interface {
	// Name returns the provider identifier (e.g., "anthropic", "openai").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream sends a streaming request. The returned channel delivers
	// StreamEvent values and is closed after a finish or error event.
	// The adapter must stop producing promptly when ctx is cancelled.
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

// Closer is implemented by adapters that hold releasable resources.
type Closer interface {
	Close() error
}

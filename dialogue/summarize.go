package dialogue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/duet-dev/duet/llm"
)

// Summarizer condenses a span of conversation into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, messages []Message, topic string) (string, error)
}

const summarizerSystemPrompt = `You condense conversation transcripts. Produce a compact summary that preserves:
- the main positions each speaker has taken
- agreements and open disagreements
- concrete facts, figures and sources that were cited
- any questions still unanswered

Write plain prose, at most 500 words. Do not add commentary of your own.`

// summaryMaxTokens caps the summary completion.
const summaryMaxTokens = 1024

// AgentSummarizer produces summaries by calling a model through the shared
// client.
type AgentSummarizer struct {
	client   *llm.Client
	model    string
	provider string
	retry    llm.RetryPolicy
	logger   *zap.Logger
}

// NewAgentSummarizer creates an AgentSummarizer using the given model.
func NewAgentSummarizer(client *llm.Client, model, provider string, logger *zap.Logger) *AgentSummarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentSummarizer{
		client:   client,
		model:    model,
		provider: provider,
		retry:    llm.DefaultRetryPolicy(),
		logger:   logger,
	}
}

// Summarize renders the messages as a transcript and asks the model to
// condense them.
func (s *AgentSummarizer) Summarize(ctx context.Context, messages []Message, topic string) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("summarize: no messages")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nTranscript to summarize:\n\n", topic)
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n\n", m.Role, m.Content)
	}

	maxTokens := summaryMaxTokens
	req := llm.Request{
		Model:    s.model,
		Provider: s.provider,
		Messages: []llm.Message{
			llm.SystemMessage(summarizerSystemPrompt),
			llm.UserMessage(b.String()),
		},
		MaxTokens: &maxTokens,
	}

	resp, err := llm.Retry(ctx, s.retry, func(ctx context.Context) (*llm.Response, error) {
		return s.client.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("generated summary",
		zap.Int("messages", len(messages)),
		zap.Int("summary_chars", len(resp.Text)))
	return strings.TrimSpace(resp.Text), nil
}

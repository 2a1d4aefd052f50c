package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// ErrTrimExhausted is returned by Trim once the per-conversation trim budget
// has been spent; the caller should fall back to summarization.
var ErrTrimExhausted = errors.New("dialogue: trim budget exhausted")

// ErrBudgetExhausted is returned when the log cannot be brought under the
// context budget by any available means.
var ErrBudgetExhausted = errors.New("dialogue: context budget exhausted")

// TokenEstimator estimates the token count of a piece of text.
type TokenEstimator func(text string) int

// CharEstimator approximates tokens as one per four characters. It is the
// fallback when no tokenizer encoding is available.
func CharEstimator(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

// NewTiktokenEstimator returns an estimator backed by the given tiktoken
// encoding (e.g. "cl100k_base"). The encoding is loaded lazily on first use;
// if loading fails the estimator falls back to CharEstimator.
func NewTiktokenEstimator(encoding string) TokenEstimator {
	var (
		once sync.Once
		enc  *tiktoken.Tiktoken
	)
	return func(text string) int {
		once.Do(func() {
			e, err := tiktoken.GetEncoding(encoding)
			if err == nil {
				enc = e
			}
		})
		if enc == nil {
			return CharEstimator(text)
		}
		return len(enc.Encode(text, nil, nil))
	}
}

// BudgetStatus classifies the log's token usage against the budget.
type BudgetStatus string

const (
	// BudgetGreen means usage is below the warning threshold.
	BudgetGreen BudgetStatus = "green"
	// BudgetYellow means usage is above the warning threshold but below the cap.
	BudgetYellow BudgetStatus = "yellow"
	// BudgetRed means usage is at or above the cap and the log must shrink.
	BudgetRed BudgetStatus = "red"
)

// BudgetConfig holds the context budget parameters.
type BudgetConfig struct {
	// MaxTokens is the hard cap on estimated log tokens.
	MaxTokens int
	// WarningThreshold is the fraction of MaxTokens at which usage turns yellow.
	WarningThreshold float64
	// TrimTargetRatio is the fraction of MaxTokens to trim down to.
	TrimTargetRatio float64
	// KeepRecentCount is the minimum number of recent messages a trim preserves.
	KeepRecentCount int
	// MaxTrimCount bounds how many trims may run over the conversation's life.
	MaxTrimCount int
}

// DefaultBudgetConfig returns the standard budget parameters.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		MaxTokens:        150000,
		WarningThreshold: 0.8,
		TrimTargetRatio:  0.53,
		KeepRecentCount:  10,
		MaxTrimCount:     3,
	}
}

// BudgetState is a snapshot of the log's standing against the budget.
type BudgetState struct {
	EstimatedTokens int
	TrimCount       int
	Status          BudgetStatus
}

// BudgetManager tracks the conversation log's token usage and shrinks it when
// the budget is exceeded, first by trimming old messages and, once the trim
// budget is spent, by signalling the caller to summarize.
type BudgetManager struct {
	cfg      BudgetConfig
	estimate TokenEstimator
	logger   *zap.Logger

	trimCount int
}

// NewBudgetManager creates a BudgetManager. A nil estimator defaults to
// CharEstimator and a nil logger to a no-op logger.
func NewBudgetManager(cfg BudgetConfig, estimate TokenEstimator, logger *zap.Logger) *BudgetManager {
	if estimate == nil {
		estimate = CharEstimator
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTokens <= 0 {
		cfg = DefaultBudgetConfig()
	}
	return &BudgetManager{cfg: cfg, estimate: estimate, logger: logger}
}

// Config returns the manager's budget parameters.
func (m *BudgetManager) Config() BudgetConfig {
	return m.cfg
}

// TrimCount returns how many trims have run so far.
func (m *BudgetManager) TrimCount() int {
	return m.trimCount
}

// EstimateLog returns the estimated token count of the whole log, including
// a small per-message overhead for role framing.
func (m *BudgetManager) EstimateLog(log *Log) int {
	total := 0
	for _, msg := range log.Messages() {
		total += m.estimate(msg.Content) + 4
	}
	return total
}

// Evaluate classifies the log against the budget.
func (m *BudgetManager) Evaluate(log *Log) BudgetState {
	est := m.EstimateLog(log)
	status := BudgetGreen
	switch {
	case est >= m.cfg.MaxTokens:
		status = BudgetRed
	case float64(est) >= float64(m.cfg.MaxTokens)*m.cfg.WarningThreshold:
		status = BudgetYellow
	}
	return BudgetState{EstimatedTokens: est, TrimCount: m.trimCount, Status: status}
}

// Trim removes oldest messages until the estimate drops to the trim target,
// always preserving the most recent KeepRecentCount messages. It returns the
// number of messages removed. Once MaxTrimCount trims have run it returns
// ErrTrimExhausted without touching the log; if even a maximal trim cannot
// bring the estimate under MaxTokens it returns ErrBudgetExhausted.
func (m *BudgetManager) Trim(log *Log) (int, error) {
	if m.trimCount >= m.cfg.MaxTrimCount {
		return 0, ErrTrimExhausted
	}
	target := int(float64(m.cfg.MaxTokens) * m.cfg.TrimTargetRatio)
	msgs := log.Messages()
	maxRemovable := len(msgs) - m.cfg.KeepRecentCount
	if maxRemovable < 0 {
		maxRemovable = 0
	}

	est := m.EstimateLog(log)
	removed := 0
	for removed < maxRemovable && est > target {
		est -= m.estimate(msgs[removed].Content) + 4
		removed++
	}
	if removed == maxRemovable && est >= m.cfg.MaxTokens {
		// The protected suffix alone busts the cap.
		return 0, fmt.Errorf("%w: %d tokens remain after maximal trim", ErrBudgetExhausted, est)
	}
	if removed == 0 {
		return 0, nil
	}
	log.TrimPrefix(removed)
	m.trimCount++
	m.logger.Info("trimmed conversation log",
		zap.Int("removed", removed),
		zap.Int("estimated_tokens", est),
		zap.Int("trim_count", m.trimCount))
	return removed, nil
}

// SummarizeAndReset condenses everything except the most recent
// KeepRecentCount messages into a single synthetic summary message. It is the
// fallback once the trim budget is exhausted.
func (m *BudgetManager) SummarizeAndReset(ctx context.Context, log *Log, topic string, s Summarizer) error {
	if s == nil {
		return fmt.Errorf("%w: no summarizer configured", ErrBudgetExhausted)
	}
	msgs := log.Messages()
	cut := len(msgs) - m.cfg.KeepRecentCount
	if cut <= 0 {
		return fmt.Errorf("%w: log too short to summarize", ErrBudgetExhausted)
	}
	summary, err := s.Summarize(ctx, msgs[:cut], topic)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	log.ReplacePrefix(cut, Message{
		Role:    RoleHuman,
		Content: "[Summary of earlier discussion]\n" + summary,
	})
	state := m.Evaluate(log)
	m.logger.Info("summarized conversation log",
		zap.Int("condensed", cut),
		zap.Int("estimated_tokens", state.EstimatedTokens))
	if state.Status == BudgetRed {
		return fmt.Errorf("%w: %d tokens remain after summarization", ErrBudgetExhausted, state.EstimatedTokens)
	}
	return nil
}

package dialogue

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// SearchResult is one hit returned by a Searcher.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher performs a web search on behalf of the conversation.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// searchDirectivePattern matches an explicit in-response search request of
// the form "[search: some query]".
var searchDirectivePattern = regexp.MustCompile(`\[search:\s*([^\]]+)\]`)

// ExtractSearchDirective returns the query of the first explicit search
// directive in the text, or false when none is present.
func ExtractSearchDirective(text string) (string, bool) {
	m := searchDirectivePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	query := strings.TrimSpace(m[1])
	if query == "" {
		return "", false
	}
	return query, true
}

// StripSearchDirectives removes all explicit search directives from the text.
func StripSearchDirectives(text string) string {
	return strings.TrimSpace(searchDirectivePattern.ReplaceAllString(text, ""))
}

// QueryExtractor derives a search query from the conversation when no
// explicit directive was given.
type QueryExtractor func(log *Log, topic string) string

const maxDerivedQueryLen = 100

// DefaultQueryExtractor prefers the latest human message, then the opening
// words of the latest agent message, then the topic itself.
func DefaultQueryExtractor(log *Log, topic string) string {
	msgs := log.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == RoleHuman && !m.Synthetic && !strings.HasPrefix(m.Content, "[") {
			return clampQuery(m.Content)
		}
	}
	if m, ok := log.LastAgentMessage(); ok {
		words := strings.Fields(m.Content)
		if len(words) > 8 {
			words = words[:8]
		}
		if len(words) > 0 {
			return clampQuery(strings.Join(words, " "))
		}
	}
	return clampQuery(topic)
}

func clampQuery(q string) string {
	q = strings.TrimSpace(q)
	if len(q) > maxDerivedQueryLen {
		q = q[:maxDerivedQueryLen]
	}
	return q
}

// TriggerDecision is the outcome of asking whether a turn should be preceded
// by a web search.
type TriggerDecision struct {
	Trigger  bool
	Query    string
	Explicit bool
}

// TriggerPolicy decides when to run a search: an explicit directive in the
// previous response always wins, and otherwise a periodic interval applies.
type TriggerPolicy struct {
	// Interval is the number of turns between periodic searches; zero
	// disables the periodic fallback.
	Interval int
	// Extract derives a query for periodic searches. Nil defaults to
	// DefaultQueryExtractor.
	Extract QueryExtractor
}

// ShouldTrigger inspects the most recent agent response and the turn counter
// since the last search.
func (p *TriggerPolicy) ShouldTrigger(lastResponse string, turnsSinceSearch int, log *Log, topic string) TriggerDecision {
	if query, ok := ExtractSearchDirective(lastResponse); ok {
		return TriggerDecision{Trigger: true, Query: query, Explicit: true}
	}
	if p.Interval > 0 && turnsSinceSearch >= p.Interval {
		extract := p.Extract
		if extract == nil {
			extract = DefaultQueryExtractor
		}
		query := extract(log, topic)
		if query != "" {
			return TriggerDecision{Trigger: true, Query: query}
		}
	}
	return TriggerDecision{}
}

// searchInjectionPrefix tags injected search results so agents can tell them
// apart from the operator's own words.
const searchInjectionPrefix = "[System: web search results]"

// FormatSearchResults renders results as a message body ready for injection
// into the conversation log.
func FormatSearchResults(query string, results []SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nQuery: %s\n", searchInjectionPrefix, query)
	if len(results) == 0 {
		b.WriteString("No results found.")
		return b.String()
	}
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(&b, "   %s\n", r.URL)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	b.WriteString("\nUse these results where they are relevant. Cite sources when you rely on them.")
	return b.String()
}

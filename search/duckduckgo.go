// Package search provides web search backends for the conversation engine.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/duet-dev/duet/dialogue"
)

const duckDuckGoEndpoint = "https://api.duckduckgo.com/"

// DuckDuckGo queries the DuckDuckGo instant answer API. It needs no API key,
// which makes it the default searcher.
type DuckDuckGo struct {
	httpClient *http.Client
	endpoint   string
	logger     *zap.Logger
}

// NewDuckDuckGo creates a DuckDuckGo searcher. A nil client gets a 15 second
// timeout.
func NewDuckDuckGo(client *http.Client, logger *zap.Logger) *DuckDuckGo {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuckDuckGo{httpClient: client, endpoint: duckDuckGoEndpoint, logger: logger}
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

func flattenTopics(topics []ddgTopic, out *[]dialogue.SearchResult, max int) {
	for _, t := range topics {
		if len(*out) >= max {
			return
		}
		if len(t.Topics) > 0 {
			flattenTopics(t.Topics, out, max)
			continue
		}
		if t.Text == "" {
			continue
		}
		*out = append(*out, dialogue.SearchResult{
			Title:   t.Text,
			URL:     t.FirstURL,
			Snippet: t.Text,
		})
	}
}

// Search implements dialogue.Searcher.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]dialogue.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	u := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1",
		d.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	req.Header.Set("User-Agent", "duet/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	var body ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("search: decode: %w", err)
	}

	var results []dialogue.SearchResult
	if body.AbstractText != "" {
		title := body.Heading
		if title == "" {
			title = query
		}
		results = append(results, dialogue.SearchResult{
			Title:   title,
			URL:     body.AbstractURL,
			Snippet: body.AbstractText,
		})
	}
	if body.Answer != "" && len(results) < maxResults {
		results = append(results, dialogue.SearchResult{
			Title:   body.Answer,
			Snippet: body.Answer,
		})
	}
	flattenTopics(body.RelatedTopics, &results, maxResults)

	d.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results, nil
}

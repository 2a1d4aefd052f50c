package dialogue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Transcript is the persisted record of a conversation.
type Transcript struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	AgentA    string    `json:"agent_a"`
	AgentB    string    `json:"agent_b"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	TurnCount int       `json:"turn_count"`
	TrimCount int       `json:"trim_count"`
	EndReason string    `json:"end_reason,omitempty"`
	Messages  []Message `json:"messages"`
}

var unsafeFilenamePattern = regexp.MustCompile(`[^\w\p{Han}-]+`)

// transcriptFilename builds a filesystem-safe name from the topic and start
// time.
func transcriptFilename(topic string, start time.Time) string {
	safe := unsafeFilenamePattern.ReplaceAllString(topic, "_")
	safe = strings.Trim(safe, "_")
	if len(safe) > 40 {
		safe = safe[:40]
	}
	if safe == "" {
		safe = "conversation"
	}
	return fmt.Sprintf("%s_%s.json", safe, start.Format("20060102_150405"))
}

// Save writes the transcript as JSON under dir, creating it if needed, and
// returns the path written.
func (t *Transcript) Save(dir string) (string, error) {
	if dir == "" {
		dir = "transcripts"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	path := filepath.Join(dir, transcriptFilename(t.Topic, t.StartTime))
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	return path, nil
}

// Markdown renders the transcript as a readable document for headless runs.
func (t *Transcript) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Topic)
	fmt.Fprintf(&b, "*%s and %s, %d turns, %s*\n\n",
		t.AgentA, t.AgentB, t.TurnCount, t.StartTime.Format("2006-01-02 15:04"))
	for _, m := range t.Messages {
		name := ""
		switch m.Role {
		case RoleAgentA:
			name = t.AgentA
		case RoleAgentB:
			name = t.AgentB
		default:
			if m.Synthetic {
				name = "Summary"
			} else {
				name = "Operator"
			}
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", name, m.Content)
		for _, c := range m.Citations {
			fmt.Fprintf(&b, "> %s — %s\n", c.Title, c.URL)
		}
	}
	if t.EndReason != "" {
		fmt.Fprintf(&b, "---\n\nEnded: %s\n", t.EndReason)
	}
	return b.String()
}

package dialogue

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"
)

func TestTranscriptFilename(t *testing.T) {
	start := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	got := transcriptFilename("Will AI eat software?", start)
	if strings.ContainsAny(got, "?! ") {
		t.Errorf("expected safe filename, got %q", got)
	}
	if !strings.HasSuffix(got, "_20260314_150926.json") {
		t.Errorf("expected timestamp suffix, got %q", got)
	}

	if got := transcriptFilename("", start); !strings.HasPrefix(got, "conversation_") {
		t.Errorf("expected fallback name, got %q", got)
	}

	long := strings.Repeat("topic", 30)
	if got := transcriptFilename(long, start); len(got) > 70 {
		t.Errorf("expected clamped name, got %d chars", len(got))
	}
}

func TestTranscriptSave(t *testing.T) {
	dir := t.TempDir()
	tr := &Transcript{
		ID:        "abc123",
		Topic:     "tides",
		AgentA:    "Ada",
		AgentB:    "Bob",
		StartTime: time.Now(),
		EndTime:   time.Now(),
		TurnCount: 2,
		Messages: []Message{
			{Role: RoleHuman, Content: "Topic: tides"},
			{Role: RoleAgentA, Content: "The moon does it.", TurnIndex: 1},
			{Role: RoleAgentB, Content: "Mostly, yes.", TurnIndex: 2},
		},
	}

	path, err := tr.Save(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved transcript: %v", err)
	}

	var loaded Transcript
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if loaded.Topic != "tides" || len(loaded.Messages) != 3 {
		t.Errorf("unexpected round trip: %+v", loaded)
	}
	if loaded.Messages[1].Content != "The moon does it." {
		t.Errorf("unexpected message content %q", loaded.Messages[1].Content)
	}
}

func TestTranscriptMarkdown(t *testing.T) {
	tr := &Transcript{
		Topic:     "tides",
		AgentA:    "Ada",
		AgentB:    "Bob",
		StartTime: time.Now(),
		TurnCount: 2,
		EndReason: "ended by Ada",
		Messages: []Message{
			{Role: RoleAgentA, Content: "The moon."},
			{Role: RoleAgentB, Content: "And the sun."},
			{Role: RoleHuman, Content: "summary text", Synthetic: true},
		},
	}
	md := tr.Markdown()
	for _, want := range []string{"# tides", "### Ada", "### Bob", "### Summary", "Ended: ended by Ada"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in markdown", want)
		}
	}
}

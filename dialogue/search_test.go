package dialogue

import (
	"strings"
	"testing"
)

func TestExtractSearchDirective(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		found bool
	}{
		{"simple", "Let me check. [search: fusion energy progress]", "fusion energy progress", true},
		{"extra spaces", "[search:   quantum error correction ]", "quantum error correction", true},
		{"first of several", "[search: alpha] then [search: beta]", "alpha", true},
		{"none", "No directive here", "", false},
		{"empty query", "[search:   ]", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, found := ExtractSearchDirective(tt.text)
			if found != tt.found || query != tt.query {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.query, tt.found, query, found)
			}
		})
	}
}

func TestStripSearchDirectives(t *testing.T) {
	got := StripSearchDirectives("Before [search: one] middle [search: two] after")
	if strings.Contains(got, "[search:") {
		t.Errorf("expected directives removed, got %q", got)
	}
}

func TestTriggerPolicyExplicit(t *testing.T) {
	p := &TriggerPolicy{Interval: 100}
	d := p.ShouldTrigger("I wonder. [search: sea level data]", 0, NewLog(), "oceans")
	if !d.Trigger || !d.Explicit {
		t.Fatalf("expected explicit trigger, got %+v", d)
	}
	if d.Query != "sea level data" {
		t.Errorf("expected verbatim query, got %q", d.Query)
	}
}

func TestTriggerPolicyPeriodic(t *testing.T) {
	p := &TriggerPolicy{Interval: 5}
	log := NewLog()
	log.Append(Message{Role: RoleAgentA, Content: "the economics of solar power at scale"})

	d := p.ShouldTrigger("no directive", 4, log, "solar")
	if d.Trigger {
		t.Error("expected no trigger below interval")
	}

	d = p.ShouldTrigger("no directive", 5, log, "solar")
	if !d.Trigger || d.Explicit {
		t.Fatalf("expected periodic trigger, got %+v", d)
	}
	if d.Query == "" {
		t.Error("expected derived query")
	}
}

func TestTriggerPolicyDisabledPeriodic(t *testing.T) {
	p := &TriggerPolicy{Interval: 0}
	if d := p.ShouldTrigger("plain", 1000, NewLog(), "t"); d.Trigger {
		t.Error("expected no periodic trigger when interval is zero")
	}
}

func TestDefaultQueryExtractor(t *testing.T) {
	log := NewLog()
	log.Append(Message{Role: RoleAgentA, Content: "one two three four five six seven eight nine ten"})

	// Agent message: opening words only.
	q := DefaultQueryExtractor(log, "topic")
	if q != "one two three four five six seven eight" {
		t.Errorf("expected first eight words, got %q", q)
	}

	// A later human message wins.
	log.Append(Message{Role: RoleHuman, Content: "tell me about tides"})
	if q := DefaultQueryExtractor(log, "topic"); q != "tell me about tides" {
		t.Errorf("expected human message, got %q", q)
	}

	// Injected system material is skipped.
	log.Append(Message{Role: RoleHuman, Content: "[System: web search results]\nstuff"})
	if q := DefaultQueryExtractor(log, "topic"); q != "tell me about tides" {
		t.Errorf("expected injected message skipped, got %q", q)
	}

	// Empty log falls back to the topic, clamped.
	long := strings.Repeat("x", 300)
	if q := DefaultQueryExtractor(NewLog(), long); len(q) != maxDerivedQueryLen {
		t.Errorf("expected clamp to %d, got %d", maxDerivedQueryLen, len(q))
	}
}

func TestFormatSearchResults(t *testing.T) {
	body := FormatSearchResults("tides", []SearchResult{
		{Title: "Tides explained", URL: "https://example.com/tides", Snippet: "Gravitational pull."},
		{Title: "Tide tables", URL: "https://example.com/tables"},
	})
	for _, want := range []string{searchInjectionPrefix, "Query: tides", "1. Tides explained", "2. Tide tables", "https://example.com/tides"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in body:\n%s", want, body)
		}
	}

	empty := FormatSearchResults("nothing", nil)
	if !strings.Contains(empty, "No results found.") {
		t.Errorf("expected empty-results notice, got %q", empty)
	}
}

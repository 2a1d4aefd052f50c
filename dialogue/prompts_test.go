package dialogue

import (
	"strings"
	"testing"
)

func TestBuildSystemPrompt(t *testing.T) {
	agent := Agent{Name: "Ada", Persona: "You are a pragmatic engineer."}
	prompt := BuildSystemPrompt(agent, PromptOptions{
		PeerName:      "Bob",
		EndMarker:     DefaultEndMarker,
		EndEnabled:    true,
		SearchEnabled: true,
	})

	for _, want := range []string{
		"pragmatic engineer",
		"You are Ada, in an ongoing conversation with Bob",
		"[search: your query]",
		DefaultEndMarker,
		`"[Ada]:"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected %q in prompt", want)
		}
	}
}

func TestBuildSystemPromptOptionalSections(t *testing.T) {
	agent := Agent{Name: "Ada", Persona: "Persona."}
	prompt := BuildSystemPrompt(agent, PromptOptions{PeerName: "Bob"})

	if strings.Contains(prompt, "[search:") {
		t.Error("expected no search section when disabled")
	}
	if strings.Contains(prompt, DefaultEndMarker) {
		t.Error("expected no end-marker section when disabled")
	}
}

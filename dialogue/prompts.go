package dialogue

import (
	"fmt"
	"strings"
)

// Agent describes one of the two conversation participants.
type Agent struct {
	// Name is the display name, used for prefixes and transcripts.
	Name string
	// Persona is the free-form character and perspective description.
	Persona string
	// Model identifies the model this agent speaks through.
	Model string
	// Provider pins the provider; empty means infer from the model.
	Provider string
}

// PromptOptions controls which behavioral sections are appended to an
// agent's persona.
type PromptOptions struct {
	PeerName      string
	EndMarker     string
	EndEnabled    bool
	SearchEnabled bool
}

// BuildSystemPrompt assembles the full system prompt for an agent: persona
// first, then the dialogue rules the engine depends on.
func BuildSystemPrompt(agent Agent, opts PromptOptions) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(agent.Persona))
	b.WriteString("\n\n## Dialogue rules\n\n")
	fmt.Fprintf(&b, "You are %s, in an ongoing conversation with %s.\n", agent.Name, opts.PeerName)
	b.WriteString("- Respond directly to what was just said; build on it or challenge it.\n")
	b.WriteString("- Stay in character and keep your assigned perspective.\n")
	fmt.Fprintf(&b, "- Never prefix your reply with your own name (no %q or similar).\n", "["+agent.Name+"]:")
	b.WriteString("- Keep replies focused; one or two main points per turn.\n")

	if opts.SearchEnabled {
		b.WriteString("\n## Web search\n\n")
		b.WriteString("When you need current facts you do not have, write [search: your query] on its own. ")
		b.WriteString("Search results may appear in the conversation marked as system messages; treat them as shared reference material, not as words spoken by your interlocutor.\n")
	}

	if opts.EndEnabled && opts.EndMarker != "" {
		b.WriteString("\n## Ending the conversation\n\n")
		fmt.Fprintf(&b, "When the discussion has genuinely run its course, append %s at the very end of your reply. ", opts.EndMarker)
		b.WriteString("Use it sparingly; a lull is not an ending.\n")
	}

	return b.String()
}

package dialogue

import "strings"

// DefaultEndMarker is the sentinel an agent emits to propose ending the
// conversation. It is an HTML comment so that markdown renderers hide it.
const DefaultEndMarker = "<!-- END -->"

// EndConfig controls end-of-conversation detection.
type EndConfig struct {
	// Enabled turns marker detection on. When false, markers are stripped
	// from responses but never acted on.
	Enabled bool
	// Marker is the sentinel string to look for.
	Marker string
	// MinTurns is the turn count before which markers are ignored, so the
	// conversation cannot end prematurely.
	MinTurns int
	// AutoConfirm accepts proposals without asking the operator.
	AutoConfirm bool
}

// DefaultEndConfig returns the standard end-detection parameters.
func DefaultEndConfig() EndConfig {
	return EndConfig{
		Enabled:  true,
		Marker:   DefaultEndMarker,
		MinTurns: 10,
	}
}

// EndDetector scans agent responses for the end marker.
type EndDetector struct {
	cfg EndConfig
}

// NewEndDetector creates an EndDetector, filling in a default marker.
func NewEndDetector(cfg EndConfig) *EndDetector {
	if cfg.Marker == "" {
		cfg.Marker = DefaultEndMarker
	}
	return &EndDetector{cfg: cfg}
}

// HasMarker reports whether the response contains the end marker, regardless
// of the turn gate.
func (d *EndDetector) HasMarker(response string) bool {
	return strings.Contains(response, d.cfg.Marker)
}

// Detect reports whether the response proposes ending the conversation:
// detection is enabled, the marker is present, and the turn gate has passed.
func (d *EndDetector) Detect(response string, turn int) bool {
	return d.cfg.Enabled && turn >= d.cfg.MinTurns && d.HasMarker(response)
}

// Clean removes the marker and any lines it leaves blank. Calling Clean on
// already-clean text returns it unchanged.
func (d *EndDetector) Clean(response string) string {
	if !strings.Contains(response, d.cfg.Marker) {
		return strings.TrimSpace(response)
	}
	stripped := strings.ReplaceAll(response, d.cfg.Marker, "")
	lines := strings.Split(stripped, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// EndProposal records a pending proposal to end the conversation.
type EndProposal struct {
	// Proposer is the name of the agent that emitted the marker.
	Proposer string
	// Raw is the response text including the marker.
	Raw string
	// Clean is the response with the marker stripped.
	Clean string
	// Turn is the turn index at which the proposal was made.
	Turn int
}

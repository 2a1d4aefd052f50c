package dialogue

import (
	"fmt"
	"strings"
)

// ClipMode specifies how oversized injected text is shortened before it
// enters the conversation log.
type ClipMode string

const (
	ClipHeadTail ClipMode = "head_tail"
	ClipTail     ClipMode = "tail"
)

// Character limits for injected content, keyed by injection kind. Injected
// text competes with the agents for context budget, so it is kept short.
var defaultClipCharLimits = map[string]int{
	"tool_result":    8000,
	"search_results": 6000,
	"file_excerpt":   12000,
}

var defaultClipModes = map[string]ClipMode{
	"tool_result":    ClipHeadTail,
	"search_results": ClipTail,
	"file_excerpt":   ClipHeadTail,
}

// Clip applies character-based clipping to text.
func Clip(text string, maxChars int, mode ClipMode) string {
	if len(text) <= maxChars {
		return text
	}
	removed := len(text) - maxChars
	switch mode {
	case ClipTail:
		return fmt.Sprintf("[Note: first %d characters omitted]\n\n", removed) +
			text[len(text)-maxChars:]
	default:
		half := maxChars / 2
		return text[:half] +
			fmt.Sprintf("\n\n[Note: %d characters omitted from the middle]\n\n", removed) +
			text[len(text)-half:]
	}
}

// ClipLines shortens text to at most maxLines lines using a head/tail split.
func ClipLines(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	head := maxLines / 2
	tail := maxLines - head
	omitted := len(lines) - head - tail
	return strings.Join(lines[:head], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tail:], "\n")
}

// ClipInjected applies the clip limits for the given injection kind. Unknown
// kinds get a conservative head/tail default.
func ClipInjected(text, kind string) string {
	maxChars, ok := defaultClipCharLimits[kind]
	if !ok {
		maxChars = 6000
	}
	mode, ok := defaultClipModes[kind]
	if !ok {
		mode = ClipHeadTail
	}
	return Clip(text, maxChars, mode)
}

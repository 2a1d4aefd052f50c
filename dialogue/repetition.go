package dialogue

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// messageSignature computes a deterministic signature for a message's
// normalized content, so trivially reworded repeats still collide.
func messageSignature(content string) string {
	normalized := whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(content)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h[:8])
}

// recentAgentSignatures extracts signatures of the most recent agent
// messages, in chronological order.
func recentAgentSignatures(log *Log, count int) []string {
	msgs := log.Messages()
	var sigs []string
	for i := len(msgs) - 1; i >= 0 && len(sigs) < count; i-- {
		m := msgs[i]
		if m.Role == RoleHuman || m.Incomplete {
			continue
		}
		sigs = append(sigs, messageSignature(m.Content))
	}
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// DetectRepetition reports whether the last windowSize agent messages follow
// a repeating pattern of length 1, 2, or 3, which indicates the dialogue has
// stalled into an echo loop.
func DetectRepetition(log *Log, windowSize int) bool {
	if windowSize <= 0 {
		return false
	}
	sigs := recentAgentSignatures(log, windowSize)
	if len(sigs) < windowSize {
		return false
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
			if !allMatch {
				break
			}
		}
		if allMatch {
			return true
		}
	}

	return false
}

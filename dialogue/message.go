package dialogue

import (
	"regexp"
	"strings"
	"time"

	"github.com/duet-dev/duet/llm"
)

// Role identifies who produced a message in the conversation log.
type Role string

const (
	// RoleHuman marks messages injected by the human operator or by the
	// engine on the operator's behalf (topic seed, search results).
	RoleHuman Role = "user"
	// RoleAgentA marks messages spoken by the first agent.
	RoleAgentA Role = "agent-a"
	// RoleAgentB marks messages spoken by the second agent.
	RoleAgentB Role = "agent-b"
)

// AgentRole maps a speaker index (0 or 1) to its log role.
func AgentRole(speaker int) Role {
	if speaker == 0 {
		return RoleAgentA
	}
	return RoleAgentB
}

// Message is a single entry in the conversation log.
type Message struct {
	Role       Role           `json:"role"`
	Content    string         `json:"content"`
	TurnIndex  int            `json:"turn_index"`
	Citations  []llm.Citation `json:"citations,omitempty"`
	Incomplete bool           `json:"incomplete,omitempty"`
	Synthetic  bool           `json:"synthetic,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Log is the append-only conversation history. It is owned by the turn loop
// and must only be mutated from a single goroutine; snapshot accessors return
// copies that are safe to retain.
type Log struct {
	messages []Message
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a message to the end of the log.
func (l *Log) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	l.messages = append(l.messages, msg)
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	return len(l.messages)
}

// Messages returns a copy of the log contents.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Last returns the most recent message, or false when the log is empty.
func (l *Log) Last() (Message, bool) {
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// LastAgentMessage returns the most recent message spoken by either agent.
func (l *Log) LastAgentMessage() (Message, bool) {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role != RoleHuman {
			return l.messages[i], true
		}
	}
	return Message{}, false
}

// TrimPrefix removes the n oldest messages, returning how many were removed.
func (l *Log) TrimPrefix(n int) int {
	if n <= 0 {
		return 0
	}
	if n > len(l.messages) {
		n = len(l.messages)
	}
	l.messages = append([]Message(nil), l.messages[n:]...)
	return n
}

// ReplacePrefix replaces the n oldest messages with a single synthetic
// summary message, keeping the remaining suffix intact.
func (l *Log) ReplacePrefix(n int, summary Message) {
	if n <= 0 {
		return
	}
	if n > len(l.messages) {
		n = len(l.messages)
	}
	summary.Synthetic = true
	if summary.Timestamp.IsZero() {
		summary.Timestamp = time.Now()
	}
	rest := l.messages[n:]
	out := make([]Message, 0, len(rest)+1)
	out = append(out, summary)
	out = append(out, rest...)
	l.messages = out
}

// Reset drops all messages after the first keep entries.
func (l *Log) Reset(keep int) {
	if keep < 0 {
		keep = 0
	}
	if keep > len(l.messages) {
		keep = len(l.messages)
	}
	l.messages = append([]Message(nil), l.messages[:keep]...)
}

// ToWire projects the log into provider wire messages from the perspective
// of the given speaker: the speaker's own messages become assistant turns and
// everything else becomes user turns, so each agent sees the peer and the
// human as a single interlocutor.
func (l *Log) ToWire(speaker int) []llm.Message {
	own := AgentRole(speaker)
	out := make([]llm.Message, 0, len(l.messages))
	for _, m := range l.messages {
		if m.Role == own {
			out = append(out, llm.AssistantMessage(m.Content))
		} else {
			out = append(out, llm.UserMessage(m.Content))
		}
	}
	return out
}

// CleanSpeakerPrefix strips a leading self-identification prefix such as
// "[Name]: ", "**Name:** " or "Name: " that models sometimes prepend despite
// instructions not to.
func CleanSpeakerPrefix(text, name string) string {
	trimmed := strings.TrimLeft(text, " \t\n")
	quoted := regexp.QuoteMeta(name)
	patterns := []string{
		`^\[` + quoted + `\][:：]\s*`,
		`^\*\*` + quoted + `[:：]\*\*\s*`,
		`^\*\*` + quoted + `\*\*[:：]\s*`,
		`^` + quoted + `[:：]\s*`,
	}
	for _, p := range patterns {
		re := regexp.MustCompile(p)
		if re.MatchString(trimmed) {
			return re.ReplaceAllString(trimmed, "")
		}
	}
	return text
}

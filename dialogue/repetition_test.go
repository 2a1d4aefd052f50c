package dialogue

import "testing"

func logOf(contents ...string) *Log {
	log := NewLog()
	for i, c := range contents {
		log.Append(Message{Role: AgentRole(i % 2), Content: c, TurnIndex: i})
	}
	return log
}

func TestDetectRepetition(t *testing.T) {
	tests := []struct {
		name     string
		contents []string
		window   int
		expected bool
	}{
		{
			"identical messages",
			[]string{"same thing", "same thing", "same thing", "same thing"},
			4, true,
		},
		{
			"alternating pair",
			[]string{"ping", "pong", "ping", "pong", "ping", "pong"},
			6, true,
		},
		{
			"whitespace and case ignored",
			[]string{"Same  Thing", "same thing", "SAME THING", "same   thing"},
			4, true,
		},
		{
			"varied conversation",
			[]string{"first point", "a reply", "new angle", "rebuttal", "synthesis", "question"},
			6, false,
		},
		{
			"too few messages",
			[]string{"same", "same"},
			4, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectRepetition(logOf(tt.contents...), tt.window); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDetectRepetitionSkipsHumanAndPartial(t *testing.T) {
	log := NewLog()
	for i := 0; i < 4; i++ {
		log.Append(Message{Role: RoleAgentA, Content: "echo"})
		log.Append(Message{Role: RoleHuman, Content: "operator note"})
	}
	if !DetectRepetition(log, 4) {
		t.Error("expected repetition despite interleaved human messages")
	}

	log2 := NewLog()
	for i := 0; i < 4; i++ {
		log2.Append(Message{Role: RoleAgentA, Content: "echo", Incomplete: true})
	}
	if DetectRepetition(log2, 4) {
		t.Error("expected incomplete messages excluded")
	}
}

func TestDetectRepetitionDisabled(t *testing.T) {
	if DetectRepetition(logOf("a", "a", "a", "a"), 0) {
		t.Error("expected zero window to disable detection")
	}
}

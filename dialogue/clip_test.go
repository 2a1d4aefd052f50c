package dialogue

import (
	"strings"
	"testing"
)

func TestClipHeadTail(t *testing.T) {
	text := strings.Repeat("a", 500) + strings.Repeat("z", 500)
	got := Clip(text, 200, ClipHeadTail)
	if len(got) >= len(text) {
		t.Errorf("expected shorter output, got %d chars", len(got))
	}
	if !strings.HasPrefix(got, "aaa") {
		t.Error("expected head preserved")
	}
	if !strings.HasSuffix(got, "zzz") {
		t.Error("expected tail preserved")
	}
	if !strings.Contains(got, "omitted from the middle") {
		t.Error("expected omission notice")
	}
}

func TestClipTailMode(t *testing.T) {
	text := strings.Repeat("a", 500) + strings.Repeat("z", 100)
	got := Clip(text, 100, ClipTail)
	if !strings.HasSuffix(got, "zzz") {
		t.Error("expected tail preserved")
	}
	if strings.HasPrefix(got, "aaa") {
		t.Error("expected head dropped")
	}
}

func TestClipShortInputUntouched(t *testing.T) {
	if got := Clip("short", 100, ClipHeadTail); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestClipLines(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("line\n", 100))
	got := ClipLines(text, 10)
	lines := strings.Split(got, "\n")
	if len(lines) > 12 {
		t.Errorf("expected about 10 lines plus notice, got %d", len(lines))
	}
	if !strings.Contains(got, "lines omitted") {
		t.Error("expected omission notice")
	}
}

func TestClipInjectedUnknownKind(t *testing.T) {
	long := strings.Repeat("x", 20000)
	got := ClipInjected(long, "mystery")
	if len(got) >= len(long) {
		t.Error("expected unknown kind clipped to conservative default")
	}
}

package dialogue

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// WorkspaceInspector answers questions about a directory tree by reading
// files and searching their contents. It is read-only.
type WorkspaceInspector struct {
	root       string
	maxMatches int
}

// NewWorkspaceInspector creates an inspector rooted at the given directory.
// An empty root defaults to the current working directory.
func NewWorkspaceInspector(root string) *WorkspaceInspector {
	if root == "" {
		root, _ = os.Getwd()
	}
	return &WorkspaceInspector{root: root, maxMatches: 40}
}

// Root returns the inspected directory.
func (w *WorkspaceInspector) Root() string {
	return w.root
}

func (w *WorkspaceInspector) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(w.root, path)
}

// ReadFile returns a line-numbered excerpt of a file. Offset is 1-based; a
// zero limit reads to the end.
func (w *WorkspaceInspector) ReadFile(path string, offset, limit int) (string, error) {
	data, err := os.ReadFile(w.resolvePath(path))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	lines := strings.Split(string(data), "\n")

	start := 0
	if offset > 0 {
		start = offset - 1
	}
	if start >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, lines[i])
	}
	return ClipInjected(sb.String(), "file_excerpt"), nil
}

// Grep searches the tree for a pattern, preferring ripgrep and falling back
// to grep when it is not installed.
func (w *WorkspaceInspector) Grep(ctx context.Context, pattern string) (string, error) {
	if rgPath, err := exec.LookPath("rg"); err == nil {
		args := []string{pattern, w.root, "--line-number", "--no-heading", "-i",
			"--max-count", fmt.Sprintf("%d", w.maxMatches)}
		cmd := exec.CommandContext(ctx, rgPath, args...)
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		_ = cmd.Run() // rg exits 1 on no matches
		return stdout.String(), nil
	}

	cmd := exec.CommandContext(ctx, "grep", "-rni", pattern, w.root)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()
	return stdout.String(), nil
}

var questionWordPattern = regexp.MustCompile(`[A-Za-z0-9_][A-Za-z0-9_./-]*`)

var stopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "does": true,
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"how": true, "why": true, "who": true, "the": true, "and": true,
	"are": true, "was": true, "for": true, "about": true, "please": true,
}

// keywords extracts searchable terms from a natural-language question.
func keywords(question string) []string {
	var out []string
	for _, w := range questionWordPattern.FindAllString(question, -1) {
		lower := strings.ToLower(w)
		if len(lower) < 3 || stopwords[lower] {
			continue
		}
		out = append(out, lower)
	}
	return out
}

// Answer searches the workspace for material relevant to the question and
// returns a formatted excerpt, or an error when nothing matched.
func (w *WorkspaceInspector) Answer(ctx context.Context, question string) (string, error) {
	terms := keywords(question)
	if len(terms) == 0 {
		return "", fmt.Errorf("inspect: no searchable terms in question")
	}

	var sb strings.Builder
	found := false
	for i, term := range terms {
		if i >= 4 {
			break
		}
		matches, err := w.Grep(ctx, term)
		if err != nil {
			return "", err
		}
		matches = strings.TrimSpace(matches)
		if matches == "" {
			continue
		}
		found = true
		fmt.Fprintf(&sb, "Matches for %q:\n%s\n\n", term, ClipLines(matches, 20))
	}
	if !found {
		return "", fmt.Errorf("inspect: no matches for %q", question)
	}
	return ClipInjected(strings.TrimSpace(sb.String()), "tool_result"), nil
}

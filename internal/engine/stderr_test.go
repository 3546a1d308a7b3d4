package engine

import (
	"strings"
	"testing"
)

func TestClassifyStderrAuthHints(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"Error: authentication required", true},
		{"no auth token found in environment", true},
		{"Please authenticate first", true},
		{"login required to continue", true},
		{"401 Unauthorized", true},
		{"run auth_login to get started", true},
		{"server listening on stdio", false},
		{"authenticating...", false},
		{"", false},
	}
	for _, c := range cases {
		_, flags := ClassifyStderr(c.input)
		if flags.HasAuthHint != c.want {
			t.Errorf("ClassifyStderr(%q).HasAuthHint = %v, want %v", c.input, flags.HasAuthHint, c.want)
		}
	}
}

func TestClassifyStderrStacktraces(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"ReferenceError: foo is not defined\n    at main.js:3", true},
		{"TypeError: cannot read property", true},
		{"UnhandledPromiseRejection warning", true},
		{"unhandled errors in a TaskGroup (1 sub-exception)", true},
		{"Fatal error: could not bind", true},
		{"INFO starting server", false},
	}
	for _, c := range cases {
		_, flags := ClassifyStderr(c.input)
		if flags.HasStacktrace != c.want {
			t.Errorf("ClassifyStderr(%q).HasStacktrace = %v, want %v", c.input, flags.HasStacktrace, c.want)
		}
	}
}

func TestClassifyStderrNotes(t *testing.T) {
	raw := "Fatal error: boom\nauthentication required\n"
	notes, flags := ClassifyStderr(raw)
	if !flags.HasAuthHint || !flags.HasStacktrace {
		t.Fatalf("expected both flags, got %+v", flags)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d: %+v", len(notes), notes)
	}
	// Sorted by (kind, name, rule): auth_hint before startup_stacktrace.
	if notes[0].Rule != "auth_hint" || notes[1].Rule != "startup_stacktrace" {
		t.Errorf("unexpected note order: %q, %q", notes[0].Rule, notes[1].Rule)
	}
	for _, n := range notes {
		if n.Kind != "server" || n.Name != "stderr" {
			t.Errorf("note subject = %s/%s, want server/stderr", n.Kind, n.Name)
		}
	}
}

func TestStderrExcerptShortInputUnchanged(t *testing.T) {
	if got := stderrExcerpt("  short error  ", 600); got != "short error" {
		t.Errorf("stderrExcerpt = %q, want trimmed input", got)
	}
}

func TestStderrExcerptPrefersTail(t *testing.T) {
	head := strings.Repeat("noise\n", 200)
	tail := "the final error"
	got := stderrExcerpt(head+tail, 100)
	if !strings.HasPrefix(got, "…\n") {
		t.Errorf("long excerpt should be marked as elided, got %q", got[:10])
	}
	if !strings.HasSuffix(got, tail) {
		t.Errorf("excerpt should keep the tail, got %q", got)
	}
	if len(got) > 100+len("…\n") {
		t.Errorf("excerpt too long: %d chars", len(got))
	}
}

func TestStderrExcerptTrimsAtLineBoundary(t *testing.T) {
	// The cut lands mid-line; the partial first line of the tail should be
	// dropped when a newline appears within the first 200 chars.
	s := strings.Repeat("a", 500) + "\nsecond line here"
	got := stderrExcerpt(s, 100)
	if strings.Contains(got, "aaaa") {
		t.Errorf("partial line should have been trimmed, got %q", got)
	}
	if !strings.HasSuffix(got, "second line here") {
		t.Errorf("expected tail line kept, got %q", got)
	}
}

func TestRelevantStderrLines(t *testing.T) {
	raw := "INFO booting\nError: missing credentials\nlogin required\nmore noise\n"
	got := RelevantStderrLines(raw, 3)
	if !strings.Contains(got, "Error: missing credentials") {
		t.Errorf("expected error line picked, got %q", got)
	}
	if !strings.Contains(got, "login required") {
		t.Errorf("expected auth hint line picked, got %q", got)
	}
	if strings.Contains(got, "more noise") {
		t.Errorf("noise should not be picked, got %q", got)
	}
}

func TestRelevantStderrLinesFallback(t *testing.T) {
	got := RelevantStderrLines("plain line one\nplain line two\nplain line three", 3)
	if got != "plain line one\nplain line two" {
		t.Errorf("fallback should keep first two lines, got %q", got)
	}
}

func TestRelevantStderrLinesEmpty(t *testing.T) {
	if got := RelevantStderrLines("   \n\n", 3); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

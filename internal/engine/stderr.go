package engine

import (
	"regexp"
	"strings"
)

// Phrase tables for classifying the probed server's stderr. Auth hints are
// matched against whitespace-normalized text; stack-trace markers against
// the raw stream (they are line-oriented).
var authHintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bno (authentication|auth) (token|credentials?)\b`),
	regexp.MustCompile(`(?i)\b(authenticate|authentication) (required|needed)\b`),
	regexp.MustCompile(`(?i)\bplease authenticate\b`),
	regexp.MustCompile(`(?i)\bauth_login\b`),
	regexp.MustCompile(`(?i)\blogin required\b`),
	regexp.MustCompile(`(?i)\bunauthorized\b`),
}

var stacktracePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bReferenceError:`),
	regexp.MustCompile(`\bTypeError:`),
	regexp.MustCompile(`\bUnhandledPromiseRejection\b`),
	regexp.MustCompile(`(?i)\bunhandled errors? in a TaskGroup\b`),
	regexp.MustCompile(`(?i)\bFatal error\b`),
}

// Excerpt bounds for stderr-derived notes.
const (
	authExcerptMax  = 600
	stackExcerptMax = 900
)

// StderrFlags is the boolean summary consumed by fatal-path classification.
type StderrFlags struct {
	HasAuthHint   bool
	HasStacktrace bool
}

// ClassifyStderr derives operational notes and classification flags from
// the raw diagnostic text captured off the probed process.
func ClassifyStderr(raw string) ([]Record, StderrFlags) {
	notes := []Record{}
	var flags StderrFlags
	if raw == "" {
		return notes, flags
	}

	normalized := normalizeText(raw)
	for _, p := range authHintPatterns {
		if p.MatchString(normalized) {
			flags.HasAuthHint = true
			break
		}
	}
	for _, p := range stacktracePatterns {
		if p.MatchString(raw) {
			flags.HasStacktrace = true
			break
		}
	}

	if flags.HasAuthHint {
		notes = append(notes, Record{
			Kind:    "server",
			Name:    "stderr",
			Rule:    "auth_hint",
			Snippet: stderrExcerpt(raw, authExcerptMax),
		})
	}
	if flags.HasStacktrace {
		notes = append(notes, Record{
			Kind:    "server",
			Name:    "stderr",
			Rule:    "startup_stacktrace",
			Snippet: stderrExcerpt(raw, stackExcerptMax),
		})
	}
	sortRecords(notes)
	return notes, flags
}

// stderrExcerpt bounds stderr to maxChars, preferring the tail where the
// final error usually lives. When the cut lands mid-line within the first
// 200 characters of the tail, it advances to the next line boundary.
func stderrExcerpt(raw string, maxChars int) string {
	s := strings.TrimSpace(raw)
	if len(s) <= maxChars {
		return s
	}
	tail := s[len(s)-maxChars:]
	if nl := strings.IndexByte(tail, '\n'); nl >= 0 && nl <= 200 {
		tail = tail[nl+1:]
	}
	return "…\n" + tail
}

// RelevantStderrLines extracts a small high-signal subset of stderr for
// default (non-verbose) failure output: auth hints and first error lines,
// falling back to the opening lines.
func RelevantStderrLines(raw string, maxLines int) string {
	var lines []string
	for _, ln := range strings.Split(raw, "\n") {
		if strings.TrimSpace(ln) != "" {
			lines = append(lines, strings.TrimRight(ln, " \t\r"))
		}
	}
	if len(lines) == 0 {
		return ""
	}

	errorLine := regexp.MustCompile(`\b(Fatal error|ReferenceError:|TypeError:|Error:)`)
	var picked []string
	for _, ln := range lines {
		relevant := errorLine.MatchString(ln)
		if !relevant {
			for _, p := range authHintPatterns {
				if p.MatchString(ln) {
					relevant = true
					break
				}
			}
		}
		if relevant && !contains(picked, ln) {
			picked = append(picked, ln)
		}
		if len(picked) >= maxLines {
			break
		}
	}

	if len(picked) == 0 {
		n := min(2, min(maxLines, len(lines)))
		picked = lines[:n]
	}
	return strings.TrimSpace(strings.Join(picked, "\n"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package engine

import "regexp"

// maxSnippetLen bounds the evidence excerpt carried by each signal.
const maxSnippetLen = 200

// suspiciousRules is the ordered table of content heuristics applied to
// every declared textual surface. Matches are advisory only and never
// affect probe status.
var suspiciousRules = []struct {
	label string
	pat   *regexp.Regexp
}{
	{"prompt injection phrase", regexp.MustCompile(`(?i)\b(ignore|disregard)\b.*\b(instructions|system|developer)\b`)},
	{"secret exfiltration", regexp.MustCompile(`(?i)\b(exfiltrat|steal|leak)\w*\b`)},
	{"do not tell user", regexp.MustCompile(`(?i)\b(don't|do not)\b.*\b(tell|mention|reveal)\b.*\buser\b`)},
	{"system prompt mention", regexp.MustCompile(`(?i)\b(system prompt|developer message)\b`)},
	// base64 shows up in benign contexts (image tools), so this stays
	// focused on actual key material.
	{"encoded secret material", regexp.MustCompile(`(?i)\bBEGIN [A-Z ]+ KEY\b`)},
	{"shell download hint", regexp.MustCompile(`(?i)\b(curl|wget)\b\s+https?://`)},
}

// CollectSignals scans the concatenated textual surface of every tool,
// resource URI, template URI and prompt against the heuristic table.
// A single subject may yield several signals. The result is sorted by
// (kind, name, rule) so repeated runs of the same server compare equal
// regardless of match order.
func CollectSignals(tools []Tool, resourceURIs, templateURIs []string, prompts []Prompt) []Record {
	signals := []Record{}

	scan := func(kind, name, text string) {
		for _, rule := range suspiciousRules {
			if rule.pat.MatchString(text) {
				signals = append(signals, Record{
					Kind:    kind,
					Name:    name,
					Rule:    rule.label,
					Snippet: snippet(text),
				})
			}
		}
	}

	for _, t := range tools {
		scan("tool", t.Name, t.Name+" "+t.Description)
	}
	for _, uri := range resourceURIs {
		scan("resource", uri, uri)
	}
	for _, uri := range templateURIs {
		scan("resource_template", uri, uri)
	}
	for _, p := range prompts {
		text := p.Name
		for _, a := range p.Arguments {
			text += " " + a
		}
		if p.Description != "" {
			text += " " + p.Description
		}
		scan("prompt", p.Name, text)
	}

	sortRecords(signals)
	return signals
}

func snippet(text string) string {
	if len(text) > maxSnippetLen {
		return text[:maxSnippetLen] + "..."
	}
	return text
}

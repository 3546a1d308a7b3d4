package engine

import (
	"fmt"
	"strings"
)

const maxNameColumn = 28

func riskMarker(r Risk) string {
	switch r {
	case RiskDestructive:
		return "[!!]"
	case RiskWrite:
		return "[wr]"
	case RiskRead:
		return "[ro]"
	default:
		return "[??]"
	}
}

// FormatReport renders a finalized report as human-readable text.
func FormatReport(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (MCP %s)\n\n", r.Server.Name, r.Server.ProtocolVersion)
	b.WriteString("  Caution: the server process runs locally without sandboxing.\n")
	b.WriteString("  Use --isolate-home to prevent access to your real HOME directory.\n\n")

	if r.Status == StatusAuthGated {
		b.WriteString("  Status: auth-gated (server did not enumerate capabilities without credentials)\n")
		return b.String()
	}
	if r.Status == StatusPartial {
		b.WriteString("  Status: partial (some MCP introspection calls failed)\n\n")
	}

	formatTools(&b, r.Tools)

	resourcesHadError := false
	promptsHadError := false
	for _, n := range r.Notes {
		switch n.Name {
		case "list_resources", "list_resource_templates":
			resourcesHadError = true
		case "list_prompts":
			promptsHadError = true
		}
	}

	formatResources(&b, r.Resources, r.ResourceTemplates, supported(r.Capabilities.Resources), resourcesHadError)
	formatPrompts(&b, r.Prompts, supported(r.Capabilities.Prompts), promptsHadError)
	formatManifest(&b, r.Manifest)
	formatSignals(&b, r.Signals)
	formatNotes(&b, r.Notes)
	formatRiskSummary(&b, r.Risk)

	return b.String()
}

// supported treats a missing declaration like support: only an explicit
// "declared absent" flag downgrades the wording.
func supported(flag *bool) bool {
	return flag == nil || *flag
}

func formatTools(b *strings.Builder, tools []Tool) {
	if len(tools) == 0 {
		b.WriteString("  Tools: none\n\n")
		return
	}

	width := 0
	for _, t := range tools {
		if len(t.Name) > width {
			width = len(t.Name)
		}
	}
	if width > maxNameColumn {
		width = maxNameColumn
	}

	b.WriteString("  Tools:\n")
	for _, t := range tools {
		desc := strings.ReplaceAll(t.Description, `"`, `\"`)
		fmt.Fprintf(b, "    %s %-*s \"%s\"\n", riskMarker(t.Risk), width, t.Name, desc)
	}
	b.WriteString("\n")
}

func formatResources(b *strings.Builder, uris, templates []string, supported, hadError bool) {
	if len(uris) == 0 && len(templates) == 0 {
		switch {
		case !supported:
			b.WriteString("  Resources: not supported by server\n\n")
		case hadError:
			b.WriteString("  Resources: unknown (introspection failed)\n\n")
		default:
			b.WriteString("  Resources: none\n\n")
		}
		return
	}

	b.WriteString("  Resources:\n")
	for _, uri := range uris {
		fmt.Fprintf(b, "    %s\n", uri)
	}
	for _, uri := range templates {
		fmt.Fprintf(b, "    %s\n", uri)
	}
	b.WriteString("\n")
}

func formatPrompts(b *strings.Builder, prompts []Prompt, supported, hadError bool) {
	if len(prompts) == 0 {
		switch {
		case !supported:
			b.WriteString("  Prompts: not supported by server\n\n")
		case hadError:
			b.WriteString("  Prompts: unknown (introspection failed)\n\n")
		default:
			b.WriteString("  Prompts: none\n\n")
		}
		return
	}

	b.WriteString("  Prompts:\n")
	for _, p := range prompts {
		if len(p.Arguments) > 0 {
			fmt.Fprintf(b, "    %s (%s)\n", p.Name, strings.Join(p.Arguments, ", "))
		} else {
			fmt.Fprintf(b, "    %s\n", p.Name)
		}
	}
	b.WriteString("\n")
}

// formatManifest renders the server-declared action-level capability
// surface. Dispatch tools show their operation lists; single-action tools
// count as one operation each.
func formatManifest(b *strings.Builder, entries []ManifestEntry) {
	if len(entries) == 0 {
		return
	}

	b.WriteString("  Action-level Capabilities (server-declared, unverified):\n")
	for _, e := range entries {
		if len(e.Operations) > 0 {
			fmt.Fprintf(b, "    ↳ %s (%d): %s\n", e.Tool, len(e.Operations), strings.Join(e.Operations, ", "))
		} else {
			fmt.Fprintf(b, "    ↳ %s (single action)\n", e.Tool)
		}
	}

	ops := ManifestOperationCount(entries)
	opWord, toolWord := "operations", "tools"
	if ops == 1 {
		opWord = "operation"
	}
	if len(entries) == 1 {
		toolWord = "tool"
	}
	fmt.Fprintf(b, "    %d %s across %d %s\n", ops, opWord, len(entries), toolWord)
	b.WriteString("    Not directly visible via MCP introspection; multiplexed behind the tools above.\n\n")
}

func formatSignals(b *strings.Builder, signals []Record) {
	if len(signals) == 0 {
		return
	}
	b.WriteString("  Signals (heuristic):\n")
	for _, s := range signals {
		fmt.Fprintf(b, "    !  %s: %s %s\n", s.Rule, s.Kind, s.Name)
	}
	b.WriteString("    (may be false positives/negatives)\n\n")
}

func formatNotes(b *strings.Builder, notes []Record) {
	if len(notes) == 0 {
		return
	}
	b.WriteString("  Notes:\n")
	for _, n := range notes {
		label := n.Rule
		if n.Name != "" {
			label = fmt.Sprintf("%s (%s)", n.Name, n.Rule)
		}
		if n.Snippet == "" {
			fmt.Fprintf(b, "    %s\n", label)
			continue
		}
		// First line only, truncated for terminal readability.
		short, _, _ := strings.Cut(n.Snippet, "\n")
		if len(short) > 120 {
			short = short[:120]
		}
		if len(short) < len(n.Snippet) {
			short += "…"
		}
		fmt.Fprintf(b, "    %s: %s\n", label, short)
	}
	b.WriteString("\n")
}

func formatRiskSummary(b *strings.Builder, c RiskCounts) {
	var parts []string
	if c.Write > 0 {
		parts = append(parts, fmt.Sprintf("%d write", c.Write))
	}
	if c.Destructive > 0 {
		parts = append(parts, fmt.Sprintf("%d destructive", c.Destructive))
	}
	if c.Read > 0 {
		parts = append(parts, fmt.Sprintf("%d read-only", c.Read))
	}
	if len(parts) == 0 {
		b.WriteString("  Risk: none\n")
		return
	}
	fmt.Fprintf(b, "  Risk: %s\n", strings.Join(parts, ", "))
}

package engine

import (
	"fmt"
	"sort"
	"strings"
)

// DiffReports structurally compares two probe reports and renders a
// human-readable change summary. It is pure: no I/O, no mutation, safe for
// concurrent use on arbitrary report pairs.
func DiffReports(before, after *Report) string {
	beforeTools := toolMap(before)
	afterTools := toolMap(after)

	added := sortedKeyDiff(afterTools, beforeTools)
	removed := sortedKeyDiff(beforeTools, afterTools)
	var changedRisk []string
	for name, bt := range beforeTools {
		if at, ok := afterTools[name]; ok && bt.Risk != at.Risk {
			changedRisk = append(changedRisk, name)
		}
	}
	sort.Strings(changedRisk)

	resAdded, resRemoved := listDiff(before.Resources, after.Resources)
	tmplAdded, tmplRemoved := listDiff(before.ResourceTemplates, after.ResourceTemplates)
	prAdded, prRemoved := listDiff(promptNames(before), promptNames(after))
	manifestLines := diffManifests(before.Manifest, after.Manifest)

	var b strings.Builder
	b.WriteString("Diff\n\n")
	fmt.Fprintf(&b, "  Before: %s (%s)\n", before.Server.Name, formatRiskCounts(before.Risk))
	fmt.Fprintf(&b, "  After:  %s (%s)\n\n", after.Server.Name, formatRiskCounts(after.Risk))

	if len(added)+len(removed)+len(changedRisk) > 0 {
		b.WriteString("  Tools:\n")
		for _, name := range added {
			fmt.Fprintf(&b, "    + %s (%s)\n", name, afterTools[name].Risk)
		}
		for _, name := range removed {
			fmt.Fprintf(&b, "    - %s (%s)\n", name, beforeTools[name].Risk)
		}
		for _, name := range changedRisk {
			fmt.Fprintf(&b, "    ~ %s: %s -> %s\n", name, beforeTools[name].Risk, afterTools[name].Risk)
		}
		b.WriteString("\n")
	}

	if len(resAdded)+len(resRemoved)+len(tmplAdded)+len(tmplRemoved) > 0 {
		b.WriteString("  Resources:\n")
		for _, uri := range resAdded {
			fmt.Fprintf(&b, "    + %s\n", uri)
		}
		for _, uri := range resRemoved {
			fmt.Fprintf(&b, "    - %s\n", uri)
		}
		for _, uri := range tmplAdded {
			fmt.Fprintf(&b, "    + %s\n", uri)
		}
		for _, uri := range tmplRemoved {
			fmt.Fprintf(&b, "    - %s\n", uri)
		}
		b.WriteString("\n")
	}

	if len(prAdded)+len(prRemoved) > 0 {
		b.WriteString("  Prompts:\n")
		for _, name := range prAdded {
			fmt.Fprintf(&b, "    + %s\n", name)
		}
		for _, name := range prRemoved {
			fmt.Fprintf(&b, "    - %s\n", name)
		}
		b.WriteString("\n")
	}

	for _, ln := range manifestLines {
		b.WriteString(ln + "\n")
	}
	if len(manifestLines) > 0 {
		b.WriteString("\n")
	}

	if len(added)+len(removed)+len(changedRisk)+
		len(resAdded)+len(resRemoved)+len(tmplAdded)+len(tmplRemoved)+
		len(prAdded)+len(prRemoved)+len(manifestLines) == 0 {
		b.WriteString("  No changes detected.\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// diffManifests renders the capability-manifest section. Nil means the
// server published no manifest; a non-nil empty slice is a published-but-
// empty manifest, so publication itself appearing or disappearing is a
// change even with zero entries.
func diffManifests(before, after []ManifestEntry) []string {
	if before == nil && after == nil {
		return nil
	}

	if before == nil {
		lines := []string{"  Capabilities (manifest now visible):"}
		for _, e := range after {
			lines = append(lines, fmt.Sprintf("    + %s (%s)", e.Tool, pluralOps(len(e.Operations))))
		}
		return lines
	}
	if after == nil {
		lines := []string{"  Capabilities (manifest no longer published):"}
		for _, e := range before {
			lines = append(lines, fmt.Sprintf("    - %s (%s)", e.Tool, pluralOps(len(e.Operations))))
		}
		return lines
	}

	beforeBy := manifestMap(before)
	afterBy := manifestMap(after)

	var body []string
	for _, name := range sortedKeyDiff(afterBy, beforeBy) {
		body = append(body, fmt.Sprintf("    + %s (%s)", name, pluralOps(len(afterBy[name].Operations))))
	}
	for _, name := range sortedKeyDiff(beforeBy, afterBy) {
		body = append(body, fmt.Sprintf("    - %s (%s)", name, pluralOps(len(beforeBy[name].Operations))))
	}

	var common []string
	for name := range beforeBy {
		if _, ok := afterBy[name]; ok {
			common = append(common, name)
		}
	}
	sort.Strings(common)
	for _, name := range common {
		be, ae := beforeBy[name], afterBy[name]
		if len(be.Operations) == len(ae.Operations) && sameSet(be.Operations, ae.Operations) {
			continue
		}
		// A tool dropping to zero operations is reported, not silently
		// skipped: losing dispatch visibility is itself a change.
		opsAdded, opsRemoved := listDiff(be.Operations, ae.Operations)
		detail := ""
		switch {
		case len(opsAdded) > 0 && len(opsRemoved) > 0:
			detail = fmt.Sprintf(" (added: %s; removed: %s)",
				strings.Join(opsAdded, ", "), strings.Join(opsRemoved, ", "))
		case len(opsAdded) > 0:
			detail = fmt.Sprintf(" (added: %s)", strings.Join(opsAdded, ", "))
		case len(opsRemoved) > 0:
			detail = fmt.Sprintf(" (removed: %s)", strings.Join(opsRemoved, ", "))
		}
		body = append(body, fmt.Sprintf("    ~ %s: %d -> %d operations%s",
			name, len(be.Operations), len(ae.Operations), detail))
	}

	if len(body) == 0 {
		return nil
	}
	return append([]string{"  Capabilities (manifest):"}, body...)
}

func toolMap(r *Report) map[string]Tool {
	m := make(map[string]Tool, len(r.Tools))
	for _, t := range r.Tools {
		m[t.Name] = t
	}
	return m
}

func manifestMap(entries []ManifestEntry) map[string]ManifestEntry {
	m := make(map[string]ManifestEntry, len(entries))
	for _, e := range entries {
		m[e.Tool] = e
	}
	return m
}

func promptNames(r *Report) []string {
	names := make([]string, 0, len(r.Prompts))
	for _, p := range r.Prompts {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

// listDiff returns (in after but not before, in before but not after),
// both sorted.
func listDiff(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]bool, len(before))
	for _, s := range before {
		beforeSet[s] = true
	}
	afterSet := make(map[string]bool, len(after))
	for _, s := range after {
		afterSet[s] = true
	}
	for s := range afterSet {
		if !beforeSet[s] {
			added = append(added, s)
		}
	}
	for s := range beforeSet {
		if !afterSet[s] {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func sameSet(a, b []string) bool {
	added, removed := listDiff(a, b)
	return len(added) == 0 && len(removed) == 0
}

// sortedKeyDiff returns keys of a that are absent from b, sorted.
func sortedKeyDiff[V any](a, b map[string]V) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func formatRiskCounts(c RiskCounts) string {
	return fmt.Sprintf("%d write, %d destructive, %d read-only", c.Write, c.Destructive, c.Read)
}

func pluralOps(n int) string {
	if n == 1 {
		return "1 operation"
	}
	return fmt.Sprintf("%d operations", n)
}

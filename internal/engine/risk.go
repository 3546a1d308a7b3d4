package engine

import "regexp"

// Verb tables for risk classification. Order is priority: a destructive
// verb anywhere beats any write verb, which beats any read verb.
var riskRules = []struct {
	tier Risk
	pat  *regexp.Regexp
}{
	{RiskDestructive, regexp.MustCompile(`(?i)\b(delete|remove|destroy|drop|purge|clear|reset)\b`)},
	{RiskWrite, regexp.MustCompile(`(?i)\b(create|add|update|set|send|write|upload)\b`)},
	{RiskRead, regexp.MustCompile(`(?i)\b(get|list|search|read|fetch|find|show|view)\b`)},
}

// separatorRun matches underscore/dash runs. Tool names like get_file_info
// must tokenize as "get file info" for whole-word verb matching, since
// underscores count as word characters in regexp.
var separatorRun = regexp.MustCompile(`[_-]+`)

// ClassifyTool maps a tool's name and description to a risk tier. It is
// total: an unrecognized action defaults to write, deliberately assuming
// unsafe until proven otherwise.
func ClassifyTool(name, description string) Risk {
	text := separatorRun.ReplaceAllString(name+" "+description, " ")
	for _, rule := range riskRules {
		if rule.pat.MatchString(text) {
			return rule.tier
		}
	}
	return RiskWrite
}

// CountRisks tallies tools per tier.
func CountRisks(tools []Tool) RiskCounts {
	var c RiskCounts
	for _, t := range tools {
		switch t.Risk {
		case RiskRead:
			c.Read++
		case RiskWrite:
			c.Write++
		case RiskDestructive:
			c.Destructive++
		}
	}
	return c
}

package engine

import "testing"

func TestClassifyTool(t *testing.T) {
	cases := []struct {
		name        string
		description string
		want        Risk
	}{
		// Destructive beats write beats read, regardless of order.
		{"update_delete_item", "delete then update", RiskDestructive},
		{"sync", "create or get records", RiskWrite},
		{"get_file_info", "fetch the file info", RiskRead},
		// Underscore/dash normalization: \bget\b must match get_file_info.
		{"get_file_info", "", RiskRead},
		{"clear-cache", "", RiskDestructive},
		// Unknown verbs default to write: assume unsafe until proven otherwise.
		{"frobnicate", "does something", RiskWrite},
		{"", "", RiskWrite},
		{"ping", "", RiskWrite},
		// Case-insensitive.
		{"DELETE_USER", "", RiskDestructive},
		{"Search", "LOOK THINGS UP", RiskRead},
		// Verb must be a whole word: "getaway" is not "get" and the
		// inflected "drops" is not "drop".
		{"getaway_planner", "plan a getaway", RiskWrite},
		{"upload", "uploads and then drops the table", RiskWrite},
	}
	for _, c := range cases {
		got := ClassifyTool(c.name, c.description)
		if got != c.want {
			t.Errorf("ClassifyTool(%q, %q) = %q, want %q", c.name, c.description, got, c.want)
		}
	}
}

func TestClassifyToolPriorityInvariant(t *testing.T) {
	// Any text containing both a destructive and a write verb classifies
	// destructive, whichever comes first.
	cases := [][2]string{
		{"delete_and_create", "creates after deleting"},
		{"create_then_purge", ""},
		{"upload", "uploads and then drop the table"},
	}
	for _, c := range cases {
		if got := ClassifyTool(c[0], c[1]); got != RiskDestructive {
			t.Errorf("ClassifyTool(%q, %q) = %q, want destructive", c[0], c[1], got)
		}
	}
}

func TestCountRisks(t *testing.T) {
	tools := []Tool{
		{Name: "a", Risk: RiskRead},
		{Name: "b", Risk: RiskWrite},
		{Name: "c", Risk: RiskWrite},
		{Name: "d", Risk: RiskDestructive},
	}
	got := CountRisks(tools)
	want := RiskCounts{Read: 1, Write: 2, Destructive: 1}
	if got != want {
		t.Errorf("CountRisks = %+v, want %+v", got, want)
	}
}

func TestCountRisksEmpty(t *testing.T) {
	got := CountRisks(nil)
	if got != (RiskCounts{}) {
		t.Errorf("CountRisks(nil) = %+v, want all zeros", got)
	}
}

package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Risk is a coarse tier describing what a tool can do to the outside world.
type Risk string

const (
	RiskRead        Risk = "read"
	RiskWrite       Risk = "write"
	RiskDestructive Risk = "destructive"
)

// riskPriority orders tools in reports: destructive first, read last.
// Unknown tiers sort after everything else.
func riskPriority(r Risk) int {
	switch r {
	case RiskDestructive:
		return 0
	case RiskWrite:
		return 1
	case RiskRead:
		return 2
	default:
		return 9
	}
}

// RiskCounts always carries all three tiers, even when zero, so that saved
// reports stay diffable field-for-field.
type RiskCounts struct {
	Read        int `json:"read"`
	Write       int `json:"write"`
	Destructive int `json:"destructive"`
}

// ServerInfo is the probed server's self-declared identity.
type ServerInfo struct {
	Name            string `json:"name"`
	ProtocolVersion string `json:"protocolVersion"`
}

// Capabilities are the server's declared capability flags. Each flag is
// tri-state: true/false when initialize completed and the server did or did
// not declare the family, nil when introspection never ran at all.
type Capabilities struct {
	Tools     *bool `json:"tools"`
	Resources *bool `json:"resources"`
	Prompts   *bool `json:"prompts"`
}

// Tool is one declared tool with its classified risk tier.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Risk        Risk   `json:"risk"`
}

// Prompt is one declared prompt.
type Prompt struct {
	Name        string   `json:"name"`
	Arguments   []string `json:"arguments"`
	Description string   `json:"description,omitempty"`
}

// Record is the shared shape of signals, notes and errors:
// a rule label attached to a subject, with a bounded snippet of evidence.
type Record struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Rule    string `json:"rule"`
	Snippet string `json:"snippet"`
}

// Report is the canonical snapshot of one probe. It is populated by the
// orchestrator, finalized once, and then treated as immutable; the JSON
// form is byte-stable for identical inputs (struct field order).
type Report struct {
	ID                string          `json:"id"`
	GeneratedAt       time.Time       `json:"generatedAt"`
	ScannedCommand    []string        `json:"scannedCommand"`
	Server            ServerInfo      `json:"server"`
	Capabilities      Capabilities    `json:"capabilities"`
	Status            Status          `json:"status"`
	Tools             []Tool          `json:"tools"`
	Resources         []string        `json:"resources"`
	ResourceTemplates []string        `json:"resourceTemplates"`
	Prompts           []Prompt        `json:"prompts"`
	Risk              RiskCounts      `json:"risk"`
	Signals           []Record        `json:"signals"`
	Notes             []Record        `json:"notes"`
	Errors            []Record        `json:"errors"`
	// Manifest is nil when the server published no manifest and non-nil
	// (possibly empty) when it did; omitzero keeps the two distinct in JSON.
	Manifest []ManifestEntry `json:"manifest,omitzero"`
}

// NewReport creates an empty report for the given launch command.
// Slices are non-nil so the JSON form always shows every category.
func NewReport(scannedCommand []string) *Report {
	return &Report{
		ID:                uuid.NewString(),
		GeneratedAt:       time.Now().UTC(),
		ScannedCommand:    scannedCommand,
		Server:            ServerInfo{Name: "unknown", ProtocolVersion: "unknown"},
		Status:            StatusOK,
		Tools:             []Tool{},
		Resources:         []string{},
		ResourceTemplates: []string{},
		Prompts:           []Prompt{},
		Signals:           []Record{},
		Notes:             []Record{},
		Errors:            []Record{},
	}
}

// Empty reports whether the server enumerated nothing at all.
func (r *Report) Empty() bool {
	return len(r.Tools) == 0 && len(r.Resources) == 0 &&
		len(r.ResourceTemplates) == 0 && len(r.Prompts) == 0
}

// sortLists applies the report's ordering invariants: tools by
// (risk priority, name), prompts by name, URI lists lexicographically,
// signals/notes/errors by (kind, name, rule).
func (r *Report) sortLists() {
	sort.Slice(r.Tools, func(i, j int) bool {
		pi, pj := riskPriority(r.Tools[i].Risk), riskPriority(r.Tools[j].Risk)
		if pi != pj {
			return pi < pj
		}
		return r.Tools[i].Name < r.Tools[j].Name
	})
	sort.Slice(r.Prompts, func(i, j int) bool { return r.Prompts[i].Name < r.Prompts[j].Name })
	sort.Strings(r.Resources)
	sort.Strings(r.ResourceTemplates)
	sortRecords(r.Signals)
	sortRecords(r.Notes)
	sortRecords(r.Errors)
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Rule < b.Rule
	})
}

// JSON serializes the report deterministically.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the JSON report to path.
func (r *Report) Save(path string) error {
	data, err := r.JSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// LoadReport reads a previously saved report for diffing.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

// normalizeText collapses all whitespace runs to single spaces, producing
// the single-line form used for descriptions and snippets.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

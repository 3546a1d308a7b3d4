package engine

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// manifestURISuffix marks the conventional resource URI under which servers
// publish their capability manifest (e.g. "gs://mcp/manifest").
const manifestURISuffix = "://mcp/manifest"

// ManifestEntry is one tool from the expanded capability manifest.
// Operations is present only for dispatch tools that declare a non-empty
// operation list; everything else is a single-action tool.
type ManifestEntry struct {
	Tool        string   `json:"tool"`
	Description string   `json:"description,omitempty"`
	Operations  []string `json:"operations,omitempty"`
}

// ManifestTool is one tool declaration inside a capability manifest.
type ManifestTool struct {
	Description string
	DispatchKey string
	Operations  []string
}

// CapabilityDoc is a parsed capability manifest.
type CapabilityDoc struct {
	Tools map[string]ManifestTool
}

// IsManifestURI reports whether a resource URI is a capability manifest by
// the ://mcp/manifest convention.
func IsManifestURI(uri string) bool {
	return strings.HasSuffix(uri, manifestURISuffix)
}

// ParseManifest parses a raw capability manifest. Validation is strict and
// all-or-nothing: the input must be valid JSON, decode to an object, carry
// a "tools" object, and every tool entry must itself be an object. Any
// violation yields (nil, false) rather than a partial document. Unknown or
// ill-typed fields inside a tool entry are ignored, not fatal: a tool whose
// operations value is not a string list is simply single-action.
func ParseManifest(raw []byte) (*CapabilityDoc, bool) {
	if !looksLikeObject(raw) {
		return nil, false
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, false
	}
	rawTools, ok := top["tools"]
	if !ok || !looksLikeObject(rawTools) {
		return nil, false
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(rawTools, &entries); err != nil {
		return nil, false
	}

	doc := &CapabilityDoc{Tools: make(map[string]ManifestTool, len(entries))}
	for name, rawEntry := range entries {
		if !looksLikeObject(rawEntry) {
			return nil, false
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rawEntry, &fields); err != nil {
			return nil, false
		}
		var t ManifestTool
		if v, ok := fields["description"]; ok {
			_ = json.Unmarshal(v, &t.Description)
		}
		if v, ok := fields["dispatch_key"]; ok {
			_ = json.Unmarshal(v, &t.DispatchKey)
		}
		if v, ok := fields["operations"]; ok {
			var ops []string
			if err := json.Unmarshal(v, &ops); err == nil {
				t.Operations = ops
			}
		}
		doc.Tools[name] = t
	}
	return doc, true
}

// ExpandManifest flattens a capability document into report entries sorted
// by tool name. An entry carries an operation list iff the tool declares
// both a non-empty dispatch_key and a non-empty operations list.
func ExpandManifest(doc *CapabilityDoc) []ManifestEntry {
	if doc == nil {
		return nil
	}
	entries := make([]ManifestEntry, 0, len(doc.Tools))
	for name, t := range doc.Tools {
		e := ManifestEntry{Tool: name, Description: t.Description}
		if t.DispatchKey != "" && len(t.Operations) > 0 {
			e.Operations = t.Operations
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Tool < entries[j].Tool })
	return entries
}

// ManifestOperationCount counts dispatched operations plus one per
// single-action tool, i.e. the server's true action surface.
func ManifestOperationCount(entries []ManifestEntry) int {
	total := 0
	for _, e := range entries {
		if len(e.Operations) > 0 {
			total += len(e.Operations)
		} else {
			total++
		}
	}
	return total
}

// looksLikeObject reports whether raw JSON starts with '{'. Needed because
// encoding/json happily decodes "null" into maps and structs.
func looksLikeObject(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

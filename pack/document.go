// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package pack defines the canonical document model for assistant
// configuration packages. Every supported format parses into a Document and
// renders from one; the Document is the only representation that crosses
// package boundaries, so format adapters never need to know about each other.
package pack

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Priority is the importance level of a rule.
type Priority string

// Rule priorities, ordered low to high.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority. The empty string means
// "unset" and is not a valid explicit priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ExampleLabel classifies an example as demonstrating desired or undesired
// behavior.
type ExampleLabel string

// Example labels.
const (
	LabelGood ExampleLabel = "good"
	LabelBad  ExampleLabel = "bad"
)

// Valid reports whether l is a known label. The empty string means "unset".
func (l ExampleLabel) Valid() bool {
	return l == LabelGood || l == LabelBad
}

// Metadata carries the identifying information of a package. Metadata is
// preserved verbatim across every conversion.
type Metadata struct {
	Name        string   `json:"name,omitempty"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// Extensions is a free-form key-value map. Format adapters use
	// format-named keys (for example "cursor") to carry format-native
	// settings such as activation globs; other keys pass through untouched.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// IsEmpty reports whether no metadata field is set.
func (m Metadata) IsEmpty() bool {
	return m.Name == "" && m.Version == "" && m.Description == "" &&
		m.Author == "" && len(m.Tags) == 0 && len(m.Extensions) == 0
}

// Rule is a single behavioral directive.
type Rule struct {
	// Text is the directive itself and is the only required field.
	Text      string   `json:"text"`
	Priority  Priority `json:"priority,omitempty"`
	Rationale string   `json:"rationale,omitempty"`
}

// Example is an input/output demonstration, optionally labeled as a good or
// bad pattern.
type Example struct {
	Input  string       `json:"input,omitempty"`
	Output string       `json:"output,omitempty"`
	Label  ExampleLabel `json:"label,omitempty"`
}

// Persona describes the assistant identity a package asks for.
type Persona struct {
	Role      string   `json:"role,omitempty"`
	Style     string   `json:"style,omitempty"`
	Expertise []string `json:"expertise,omitempty"`
}

// IsEmpty reports whether the persona carries no information.
func (p *Persona) IsEmpty() bool {
	return p == nil || (p.Role == "" && p.Style == "" && len(p.Expertise) == 0)
}

// ContextSection is a titled block of background material that accompanies
// the instructions. Sections a parser does not structurally recognize land
// here verbatim, which is what makes every parse total.
type ContextSection struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// Document is the canonical representation of an assistant configuration
// package. Field names here are the wire names of the canonical JSON
// encoding.
type Document struct {
	Metadata     Metadata         `json:"metadata"`
	Instructions []string         `json:"instructions,omitempty"`
	Rules        []Rule           `json:"rules,omitempty"`
	Examples     []Example        `json:"examples,omitempty"`
	Persona      *Persona         `json:"persona,omitempty"`
	// Tools is a set of tool identifiers the package grants. Order is not
	// significant; Normalize sorts and deduplicates.
	Tools   []string         `json:"tools,omitempty"`
	Context []ContextSection `json:"context,omitempty"`
	// SourceFormat records which format the document was parsed from. It is
	// provenance, not a constraint on where the document may be rendered.
	SourceFormat Format `json:"sourceFormat,omitempty"`
}

// IsEmpty reports whether the document has no content beyond metadata.
func (d *Document) IsEmpty() bool {
	return len(d.Instructions) == 0 && len(d.Rules) == 0 &&
		len(d.Examples) == 0 && d.Persona.IsEmpty() &&
		len(d.Tools) == 0 && len(d.Context) == 0
}

// Clone returns a deep copy of the document. Mutating the copy never
// affects the original, including values inside the extensions map.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Metadata: Metadata{
			Name:        d.Metadata.Name,
			Version:     d.Metadata.Version,
			Description: d.Metadata.Description,
			Author:      d.Metadata.Author,
			Tags:        cloneStrings(d.Metadata.Tags),
		},
		Instructions: cloneStrings(d.Instructions),
		Tools:        cloneStrings(d.Tools),
		SourceFormat: d.SourceFormat,
	}
	if d.Metadata.Extensions != nil {
		out.Metadata.Extensions = cloneValue(d.Metadata.Extensions).(map[string]any)
	}
	if d.Rules != nil {
		out.Rules = make([]Rule, len(d.Rules))
		copy(out.Rules, d.Rules)
	}
	if d.Examples != nil {
		out.Examples = make([]Example, len(d.Examples))
		copy(out.Examples, d.Examples)
	}
	if d.Persona != nil {
		out.Persona = &Persona{
			Role:      d.Persona.Role,
			Style:     d.Persona.Style,
			Expertise: cloneStrings(d.Persona.Expertise),
		}
	}
	if d.Context != nil {
		out.Context = make([]ContextSection, len(d.Context))
		copy(out.Context, d.Context)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// cloneValue deep-copies the value shapes produced by JSON and YAML
// decoding: maps, slices, and scalars.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// Normalize brings the document into canonical shape: blank entries are
// dropped, empty collections become nil, tools are sorted and deduplicated,
// and unknown priority or label values are cleared. Two semantically equal
// documents normalize to identical encodings.
func (d *Document) Normalize() {
	d.Metadata.Tags = dropBlank(d.Metadata.Tags)
	if len(d.Metadata.Extensions) == 0 {
		d.Metadata.Extensions = nil
	}
	d.Instructions = dropBlank(d.Instructions)

	rules := d.Rules[:0]
	for _, r := range d.Rules {
		r.Text = strings.TrimRight(r.Text, " \t")
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		if !r.Priority.Valid() {
			r.Priority = ""
		}
		rules = append(rules, r)
	}
	if len(rules) == 0 {
		rules = nil
	}
	d.Rules = rules

	examples := d.Examples[:0]
	for _, ex := range d.Examples {
		if ex.Input == "" && ex.Output == "" {
			continue
		}
		if !ex.Label.Valid() {
			ex.Label = ""
		}
		examples = append(examples, ex)
	}
	if len(examples) == 0 {
		examples = nil
	}
	d.Examples = examples

	if d.Persona != nil {
		d.Persona.Expertise = dropBlank(d.Persona.Expertise)
		if d.Persona.IsEmpty() {
			d.Persona = nil
		}
	}

	d.Tools = sortedSet(d.Tools)

	sections := d.Context[:0]
	for _, s := range d.Context {
		if strings.TrimSpace(s.Title) == "" && strings.TrimSpace(s.Body) == "" {
			continue
		}
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		sections = nil
	}
	d.Context = sections
}

func dropBlank(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedSet(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		set[s] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Encode serializes the document to its canonical JSON form. The encoding
// is deterministic: struct fields in declaration order, map keys sorted.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// Decode deserializes a canonical JSON document. It rejects payloads whose
// sourceFormat names a format this build does not know.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if doc.SourceFormat != "" && !doc.SourceFormat.Valid() {
		return nil, fmt.Errorf("document has unknown source format %q", doc.SourceFormat)
	}
	return &doc, nil
}

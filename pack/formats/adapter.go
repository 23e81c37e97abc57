// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"fmt"
	"strings"

	"github.com/agentpack/agentpack-core/pack"
)

// Field names one canonical document field, or part of one, in a mapping
// table. Sub-fields use a dotted path.
type Field string

// Canonical fields tracked by mapping tables.
const (
	FieldMetadata      Field = "metadata"
	FieldInstructions  Field = "instructions"
	FieldRules         Field = "rules"
	FieldRulePriority  Field = "rules.priority"
	FieldRuleRationale Field = "rules.rationale"
	FieldExamples      Field = "examples"
	FieldExampleLabel  Field = "examples.label"
	FieldPersona       Field = "persona"
	FieldTools         Field = "tools"
	FieldContext       Field = "context"
	// FieldActivation stands for a format's native activation settings
	// (globs, triggers, inclusion modes). Activation models differ pairwise
	// between formats, so activation maps faithfully only onto the same
	// format it came from.
	FieldActivation Field = "activation"
)

// fieldOrder is the canonical enumeration order for mapping tables and
// warning lists.
var fieldOrder = []Field{
	FieldMetadata,
	FieldInstructions,
	FieldRules,
	FieldRulePriority,
	FieldRuleRationale,
	FieldExamples,
	FieldExampleLabel,
	FieldPersona,
	FieldTools,
	FieldContext,
	FieldActivation,
}

// Fields returns all mapping-table fields in canonical order.
func Fields() []Field {
	out := make([]Field, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// Mapping states how a canonical field fares when rendered into a format.
type Mapping string

// Mapping outcomes.
const (
	// Maps means the field has a faithful representation: rendering and
	// parsing it back reproduces the value.
	Maps Mapping = "maps"
	// Degrades means the field is folded into other content. The information
	// remains readable but stops being addressable as a field.
	Degrades Mapping = "degrades"
	// Drops means the format cannot represent the field at all.
	Drops Mapping = "drops"
)

// Adapter converts between one format's file representation and the
// canonical document model.
type Adapter interface {
	// Format identifies the format this adapter handles.
	Format() pack.Format
	// Parse interprets src as a document in this format. It returns a
	// *ParseError for input it cannot interpret and never panics.
	Parse(src []byte) (*pack.Document, error)
	// Render produces the file representation of doc in this format.
	// Hints may carry per-format rendering preferences; nil is valid.
	Render(doc *pack.Document, hints *Hints) ([]byte, error)
	// Mappings returns the field mapping table for this format. The
	// returned map is shared and must not be modified.
	Mappings() map[Field]Mapping
	// Filename returns the conventional file name for a rendered document.
	Filename(doc *pack.Document) string
	// ContentType returns the MIME type of rendered output.
	ContentType() string
}

// adapters is the closed adapter registry, keyed by format.
var adapters = map[pack.Format]Adapter{
	pack.FormatCursor:   cursorAdapter{},
	pack.FormatClaude:   claudeAdapter{},
	pack.FormatKiro:     kiroAdapter{},
	pack.FormatCopilot:  copilotAdapter{},
	pack.FormatContinue: continueAdapter{},
	pack.FormatWindsurf: windsurfAdapter{},
	pack.FormatRuler:    rulerAdapter{},
}

// Get returns the adapter for a format, or an error for formats this build
// does not know.
func Get(f pack.Format) (Adapter, error) {
	a, ok := adapters[f]
	if !ok {
		return nil, fmt.Errorf("no adapter for format %q", f)
	}
	return a, nil
}

// MustGet returns the adapter for a format and panics if the format is
// unknown. Use only with compile-time format constants.
func MustGet(f pack.Format) Adapter {
	a, err := Get(f)
	if err != nil {
		panic(err)
	}
	return a
}

// All returns every registered adapter in canonical format order.
func All() []Adapter {
	out := make([]Adapter, 0, len(adapters))
	for _, f := range pack.Formats() {
		out = append(out, adapters[f])
	}
	return out
}

// profileFor derives the markdown body grammar profile from an adapter's
// mapping table, keeping the table the single source of truth.
func profileFor(a Adapter) bodyProfile {
	m := a.Mappings()
	return bodyProfile{
		parseRules:    m[FieldRules] == Maps,
		parseExamples: m[FieldExamples] == Maps,
		parsePersona:  m[FieldPersona] == Maps,
		priority:      m[FieldRulePriority],
		rationale:     m[FieldRuleRationale],
		label:         m[FieldExampleLabel],
	}
}

// formatExtension returns the format-native extension map stored under the
// format's own key, or nil when absent.
func formatExtension(doc *pack.Document, f pack.Format) map[string]any {
	if doc == nil || doc.Metadata.Extensions == nil {
		return nil
	}
	m, _ := doc.Metadata.Extensions[string(f)].(map[string]any)
	return m
}

// setFormatExtension stores a format-native extension map on the document,
// skipping empty maps so absent settings stay absent.
func setFormatExtension(doc *pack.Document, f pack.Format, m map[string]any) {
	if len(m) == 0 {
		return
	}
	if doc.Metadata.Extensions == nil {
		doc.Metadata.Extensions = make(map[string]any)
	}
	doc.Metadata.Extensions[string(f)] = m
}

// passthroughExtensions returns the document extensions minus the entry for
// the rendering format itself, which materializes into native keys instead.
func passthroughExtensions(doc *pack.Document, f pack.Format) map[string]any {
	if len(doc.Metadata.Extensions) == 0 {
		return nil
	}
	out := make(map[string]any, len(doc.Metadata.Extensions))
	for k, v := range doc.Metadata.Extensions {
		if k == string(f) {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// extString reads a string value from an extension map.
func extString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// extStrings reads a string-or-list value from an extension map.
func extStrings(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

// extBool reads a bool value from an extension map, reporting presence.
func extBool(m map[string]any, key string) (value, ok bool) {
	if m == nil {
		return false, false
	}
	b, ok := m[key].(bool)
	return b, ok
}

// toAnySlice converts strings into the JSON-compatible shape used inside
// extension maps.
func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// mergeExtensions copies passthrough extension entries onto the document
// without overwriting keys already materialized from native settings.
func mergeExtensions(doc *pack.Document, ext map[string]any) {
	if len(ext) == 0 {
		return
	}
	if doc.Metadata.Extensions == nil {
		doc.Metadata.Extensions = make(map[string]any, len(ext))
	}
	for k, v := range ext {
		if _, exists := doc.Metadata.Extensions[k]; exists {
			continue
		}
		doc.Metadata.Extensions[k] = v
	}
}

// safeBaseName turns a package name into a filesystem-safe base name,
// falling back when the name is empty or reduces to nothing.
func safeBaseName(name, fallback string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-._")
	if out == "" {
		return fallback
	}
	return out
}

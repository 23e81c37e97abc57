// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"

	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/pack/formats"
)

// Per-document penalties, charged once per warning on top of the matrix
// base score. They are steeper than the structural penalties because they
// represent loss that actually happened rather than loss that could happen.
const (
	documentPenaltyDegrade = 5
	documentPenaltyDrop    = 10
)

// Severity classifies a conversion warning.
type Severity string

// Warning severities.
const (
	// SeverityInfo marks content that was preserved in reduced form, such
	// as a rule priority folded into the rule text.
	SeverityInfo Severity = "info"
	// SeverityWarn marks content that could not be carried over at all.
	SeverityWarn Severity = "warn"
)

// Warning reports one field of the source document that lost fidelity
// during a conversion.
type Warning struct {
	// Field is the canonical path of the affected content. Sub-field
	// losses are reported per element, e.g. "rules[2].priority".
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// documentWarnings walks the canonical fields of doc in order and emits one
// warning for every populated field the target format degrades or drops.
// Sub-fields are charged per element so that a document with three
// prioritized rules loses more than a document with one. from may be empty
// when the document's provenance is unknown.
func documentWarnings(doc *pack.Document, from, to pack.Format) []Warning {
	toMappings := formats.MustGet(to).Mappings()
	var warnings []Warning

	add := func(path string, outcome formats.Mapping) {
		switch outcome {
		case formats.Degrades:
			warnings = append(warnings, Warning{
				Field:    path,
				Message:  fmt.Sprintf("%s is not native to %s and is folded into text", path, to),
				Severity: SeverityInfo,
			})
		case formats.Drops:
			warnings = append(warnings, Warning{
				Field:    path,
				Message:  fmt.Sprintf("%s cannot be represented in %s and is dropped", path, to),
				Severity: SeverityWarn,
			})
		}
	}

	for _, field := range formats.Fields() {
		outcome := effectiveMapping(from, to, field, toMappings)
		if outcome == formats.Maps {
			continue
		}
		switch field {
		case formats.FieldMetadata:
			if !doc.Metadata.IsEmpty() {
				add("metadata", outcome)
			}
		case formats.FieldInstructions:
			if len(doc.Instructions) > 0 {
				add("instructions", outcome)
			}
		case formats.FieldRules:
			if len(doc.Rules) > 0 {
				add("rules", outcome)
			}
		case formats.FieldRulePriority:
			for i, r := range doc.Rules {
				if r.Priority != "" {
					add(fmt.Sprintf("rules[%d].priority", i), outcome)
				}
			}
		case formats.FieldRuleRationale:
			for i, r := range doc.Rules {
				if r.Rationale != "" {
					add(fmt.Sprintf("rules[%d].rationale", i), outcome)
				}
			}
		case formats.FieldExamples:
			if len(doc.Examples) > 0 {
				add("examples", outcome)
			}
		case formats.FieldExampleLabel:
			for i, ex := range doc.Examples {
				if ex.Label != "" {
					add(fmt.Sprintf("examples[%d].label", i), outcome)
				}
			}
		case formats.FieldPersona:
			if !doc.Persona.IsEmpty() {
				add("persona", outcome)
			}
		case formats.FieldTools:
			if len(doc.Tools) > 0 {
				add("tools", outcome)
			}
		case formats.FieldContext:
			if len(doc.Context) > 0 {
				add("context", outcome)
			}
		case formats.FieldActivation:
			if activationPopulated(doc, from) {
				add("activation", outcome)
			}
		}
	}
	return warnings
}

// activationPopulated reports whether the document carries native activation
// settings for its source format, e.g. cursor globs or a windsurf trigger.
func activationPopulated(doc *pack.Document, from pack.Format) bool {
	if !from.Valid() || doc.Metadata.Extensions == nil {
		return false
	}
	ext, ok := doc.Metadata.Extensions[string(from)].(map[string]any)
	return ok && len(ext) > 0
}

// baseScore is the matrix base for the pair, or, when the document has no
// format provenance, the target's own table charged against a source that
// can represent every canonical field.
func baseScore(from, to pack.Format) int {
	if from.Valid() {
		return matrix[from][to].Score
	}
	toMappings := formats.MustGet(to).Mappings()
	score := 100
	for _, field := range formats.Fields() {
		switch toMappings[field] {
		case formats.Degrades:
			score -= basePenaltyDegrade
		case formats.Drops:
			score -= basePenaltyDrop
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// scoreFromWarnings applies the per-document penalties to a base score,
// flooring at zero.
func scoreFromWarnings(base int, warnings []Warning) int {
	score := base
	for _, w := range warnings {
		switch w.Severity {
		case SeverityInfo:
			score -= documentPenaltyDegrade
		case SeverityWarn:
			score -= documentPenaltyDrop
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"

	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/pack/formats"
)

// Structural penalties behind the matrix base scores. Per-document penalties
// for fields actually populated are applied at conversion time and are
// steeper (see scoreDocument).
const (
	basePenaltyDegrade = 3
	basePenaltyDrop    = 6
)

// FieldLoss names one canonical field the source format can represent
// faithfully but the target cannot.
type FieldLoss struct {
	Field   formats.Field   `json:"field"`
	Outcome formats.Mapping `json:"outcome"`
}

// Compatibility is one entry of the compatibility matrix: the base quality
// score for a (from, to) conversion and the fields known to lose fidelity,
// independent of any concrete document.
type Compatibility struct {
	From  pack.Format `json:"from"`
	To    pack.Format `json:"to"`
	Score int         `json:"score"`
	// KnownLossyFields lists, in canonical field order, every field the
	// source maps faithfully that the target degrades or drops.
	KnownLossyFields []FieldLoss `json:"knownLossyFields,omitempty"`
}

// matrix holds the full 7x7 table, built once from the adapter mapping
// tables so the two can never disagree.
var matrix = buildMatrix()

// GetCompatibility answers "how well does from convert to to" without
// materializing any document. The identity pair always scores 100; every
// other pair scores lower because activation models differ pairwise between
// formats.
func GetCompatibility(from, to pack.Format) (Compatibility, error) {
	if !from.Valid() {
		return Compatibility{}, fmt.Errorf("unknown source format %q", from)
	}
	if !to.Valid() {
		return Compatibility{}, fmt.Errorf("unknown target format %q", to)
	}
	return matrix[from][to], nil
}

// CompatibilityMatrix returns every matrix entry in canonical format order,
// source-major.
func CompatibilityMatrix() []Compatibility {
	out := make([]Compatibility, 0, len(pack.Formats())*len(pack.Formats()))
	for _, from := range pack.Formats() {
		for _, to := range pack.Formats() {
			out = append(out, matrix[from][to])
		}
	}
	return out
}

// effectiveMapping states how one source-representable field fares in the
// target format. Activation settings (globs, triggers, inclusion modes) are
// native to their own format, so they survive faithfully only in an identity
// conversion and degrade to extension passthrough everywhere else.
func effectiveMapping(from, to pack.Format, field formats.Field, toMappings map[formats.Field]formats.Mapping) formats.Mapping {
	if field == formats.FieldActivation && from != to {
		return formats.Degrades
	}
	return toMappings[field]
}

func buildMatrix() map[pack.Format]map[pack.Format]Compatibility {
	m := make(map[pack.Format]map[pack.Format]Compatibility, len(pack.Formats()))
	for _, from := range pack.Formats() {
		fromMappings := formats.MustGet(from).Mappings()
		m[from] = make(map[pack.Format]Compatibility, len(pack.Formats()))

		for _, to := range pack.Formats() {
			toMappings := formats.MustGet(to).Mappings()
			entry := Compatibility{From: from, To: to, Score: 100}

			for _, field := range formats.Fields() {
				if fromMappings[field] != formats.Maps {
					// The source format cannot represent this field, so a
					// document parsed from it never populates the field and
					// nothing can be lost.
					continue
				}
				switch effectiveMapping(from, to, field, toMappings) {
				case formats.Degrades:
					entry.Score -= basePenaltyDegrade
					entry.KnownLossyFields = append(entry.KnownLossyFields, FieldLoss{Field: field, Outcome: formats.Degrades})
				case formats.Drops:
					entry.Score -= basePenaltyDrop
					entry.KnownLossyFields = append(entry.KnownLossyFields, FieldLoss{Field: field, Outcome: formats.Drops})
				}
			}
			if entry.Score < 0 {
				entry.Score = 0
			}
			m[from][to] = entry
		}
	}
	return m
}

// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package formats implements the per-format adapters that translate between
on-disk assistant configuration files and the canonical document model.

Each supported format gets one Adapter with a Parse/Render pair:

	adapter, err := formats.Get(pack.FormatCursor)
	doc, err := adapter.Parse(srcBytes)
	out, err := adapter.Render(doc, nil)

Parsing is total: any byte sequence either produces a document or a
*ParseError, never a panic. Content a parser does not structurally
recognize is preserved verbatim as context sections, so no conversion
silently discards text.

Rendering is deterministic: the same document and hints always produce the
same bytes, and rendering a document back to the format it was parsed from
reproduces the input once the input is in canonical form.

# Mapping tables

Every adapter declares how each canonical field fares in its format via
Mappings: Maps (faithful), Degrades (representable only by folding into
other content), or Drops (not representable). The conversion engine builds
its compatibility matrix and warning lists from these tables alone, so the
table is the single source of truth for what a format can say.

# Stability

This package is Alpha. Breaking changes are possible between minor versions.
*/
package formats

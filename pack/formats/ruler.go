// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack-core/pack"
)

// rulerAdapter handles Ruler instruction files: plain markdown that Ruler
// concatenates into agent configurations. Ruler has no activation model of
// its own; MCP server definitions live in a ruler.toml next to the
// instruction files and reach the document as an extensions entry during
// archive extraction.
type rulerAdapter struct{}

// rulerFrontmatter is the optional frontmatter shape of a Ruler file.
type rulerFrontmatter struct {
	commonFrontmatter `yaml:",inline"`
	Extensions        map[string]any `yaml:"extensions,omitempty"`
}

func (fm rulerFrontmatter) isZero() bool {
	return fm.commonFrontmatter.isZero() && len(fm.Extensions) == 0
}

var rulerMappings = map[Field]Mapping{
	FieldMetadata:      Maps,
	FieldInstructions:  Maps,
	FieldRules:         Maps,
	FieldRulePriority:  Drops,
	FieldRuleRationale: Drops,
	FieldExamples:      Degrades,
	FieldExampleLabel:  Drops,
	FieldPersona:       Degrades,
	FieldTools:         Drops,
	FieldContext:       Maps,
	FieldActivation:    Maps,
}

func (rulerAdapter) Format() pack.Format { return pack.FormatRuler }

func (rulerAdapter) Mappings() map[Field]Mapping { return rulerMappings }

func (rulerAdapter) ContentType() string { return "text/markdown" }

func (rulerAdapter) Filename(doc *pack.Document) string {
	return safeBaseName(doc.Metadata.Name, "instructions") + ".md"
}

func (a rulerAdapter) Parse(src []byte) (*pack.Document, error) {
	fmBytes, body, err := splitFrontmatter(src)
	if err != nil {
		return nil, newParseError(pack.FormatRuler, "invalid frontmatter", err)
	}
	var fm rulerFrontmatter
	if len(fmBytes) > 0 {
		if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
			return nil, newParseError(pack.FormatRuler, "invalid frontmatter YAML", err)
		}
	}

	doc := &pack.Document{
		Metadata:     fm.metadata(),
		SourceFormat: pack.FormatRuler,
	}
	mergeExtensions(doc, fm.Extensions)

	doc.Instructions, doc.Rules, doc.Examples, doc.Persona, doc.Context = parseBody(string(body), profileFor(a))
	doc.Normalize()
	return doc, nil
}

func (a rulerAdapter) Render(doc *pack.Document, _ *Hints) ([]byte, error) {
	fm := rulerFrontmatter{
		commonFrontmatter: commonFrom(doc.Metadata),
		Extensions:        passthroughExtensions(doc, pack.FormatRuler),
	}

	body := renderBody(doc, profileFor(a))
	return renderWithFrontmatter(&fm, fm.isZero(), body)
}

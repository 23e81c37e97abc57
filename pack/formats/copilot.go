// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack-core/pack"
)

// copilotAdapter handles GitHub Copilot instruction files. Classic
// copilot-instructions.md files are plain markdown; scoped
// *.instructions.md files add an applyTo frontmatter key. Documents
// without metadata render frontmatter-free so they stay indistinguishable
// from hand-written files.
type copilotAdapter struct{}

// copilotFrontmatter is the frontmatter shape of a *.instructions.md file.
type copilotFrontmatter struct {
	commonFrontmatter `yaml:",inline"`
	ApplyTo           string         `yaml:"applyTo,omitempty"`
	Extensions        map[string]any `yaml:"extensions,omitempty"`
}

func (fm copilotFrontmatter) isZero() bool {
	return fm.commonFrontmatter.isZero() && fm.ApplyTo == "" && len(fm.Extensions) == 0
}

var copilotMappings = map[Field]Mapping{
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

func (copilotAdapter) Format() pack.Format { return pack.FormatCopilot }

func (copilotAdapter) Mappings() map[Field]Mapping { return copilotMappings }

func (copilotAdapter) ContentType() string { return "text/markdown" }

func (copilotAdapter) Filename(doc *pack.Document) string {
	return safeBaseName(doc.Metadata.Name, "copilot") + ".instructions.md"
}

func (a copilotAdapter) Parse(src []byte) (*pack.Document, error) {
	fmBytes, body, err := splitFrontmatter(src)
	if err != nil {
		return nil, newParseError(pack.FormatCopilot, "invalid frontmatter", err)
	}
	var fm copilotFrontmatter
	if len(fmBytes) > 0 {
		if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
			return nil, newParseError(pack.FormatCopilot, "invalid frontmatter YAML", err)
		}
	}

	doc := &pack.Document{
		Metadata:     fm.metadata(),
		SourceFormat: pack.FormatCopilot,
	}
	native := make(map[string]any)
	if fm.ApplyTo != "" {
		native["applyTo"] = fm.ApplyTo
	}
	setFormatExtension(doc, pack.FormatCopilot, native)
	mergeExtensions(doc, fm.Extensions)

	doc.Instructions, doc.Rules, doc.Examples, doc.Persona, doc.Context = parseBody(string(body), profileFor(a))
	doc.Normalize()
	return doc, nil
}

func (a copilotAdapter) Render(doc *pack.Document, hints *Hints) ([]byte, error) {
	fm := copilotFrontmatter{commonFrontmatter: commonFrom(doc.Metadata)}

	fm.ApplyTo = extString(formatExtension(doc, pack.FormatCopilot), "applyTo")
	if h := hints.copilot(); h != nil && h.ApplyTo != "" {
		fm.ApplyTo = h.ApplyTo
	}
	fm.Extensions = passthroughExtensions(doc, pack.FormatCopilot)

	body := renderBody(doc, profileFor(a))
	return renderWithFrontmatter(&fm, fm.isZero(), body)
}

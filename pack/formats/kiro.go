// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack-core/pack"
)

// kiroAdapter handles Kiro steering documents: markdown with an optional
// frontmatter block declaring the inclusion mode (always, fileMatch, or
// manual).
type kiroAdapter struct{}

// kiroFrontmatter is the frontmatter shape of a steering document.
type kiroFrontmatter struct {
	commonFrontmatter `yaml:",inline"`
	Inclusion         string         `yaml:"inclusion,omitempty"`
	FileMatchPattern  string         `yaml:"fileMatchPattern,omitempty"`
	Extensions        map[string]any `yaml:"extensions,omitempty"`
}

func (fm kiroFrontmatter) isZero() bool {
	return fm.commonFrontmatter.isZero() && fm.Inclusion == "" &&
		fm.FileMatchPattern == "" && len(fm.Extensions) == 0
}

var kiroMappings = map[Field]Mapping{
	FieldMetadata:      Maps,
	FieldInstructions:  Maps,
	FieldRules:         Maps,
	FieldRulePriority:  Degrades,
	FieldRuleRationale: Degrades,
	FieldExamples:      Maps,
	FieldExampleLabel:  Drops,
	FieldPersona:       Degrades,
	FieldTools:         Drops,
	FieldContext:       Maps,
	FieldActivation:    Maps,
}

func (kiroAdapter) Format() pack.Format { return pack.FormatKiro }

func (kiroAdapter) Mappings() map[Field]Mapping { return kiroMappings }

func (kiroAdapter) ContentType() string { return "text/markdown" }

func (kiroAdapter) Filename(doc *pack.Document) string {
	return safeBaseName(doc.Metadata.Name, "steering") + ".md"
}

func (a kiroAdapter) Parse(src []byte) (*pack.Document, error) {
	fmBytes, body, err := splitFrontmatter(src)
	if err != nil {
		return nil, newParseError(pack.FormatKiro, "invalid frontmatter", err)
	}
	var fm kiroFrontmatter
	if len(fmBytes) > 0 {
		if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
			return nil, newParseError(pack.FormatKiro, "invalid frontmatter YAML", err)
		}
	}

	doc := &pack.Document{
		Metadata:     fm.metadata(),
		SourceFormat: pack.FormatKiro,
	}
	native := make(map[string]any)
	if fm.Inclusion != "" {
		native["inclusion"] = fm.Inclusion
	}
	if fm.FileMatchPattern != "" {
		native["fileMatchPattern"] = fm.FileMatchPattern
	}
	setFormatExtension(doc, pack.FormatKiro, native)
	mergeExtensions(doc, fm.Extensions)

	doc.Instructions, doc.Rules, doc.Examples, doc.Persona, doc.Context = parseBody(string(body), profileFor(a))
	doc.Normalize()
	return doc, nil
}

func (a kiroAdapter) Render(doc *pack.Document, hints *Hints) ([]byte, error) {
	fm := kiroFrontmatter{commonFrontmatter: commonFrom(doc.Metadata)}

	native := formatExtension(doc, pack.FormatKiro)
	fm.Inclusion = extString(native, "inclusion")
	fm.FileMatchPattern = extString(native, "fileMatchPattern")
	if h := hints.kiro(); h != nil {
		if h.Inclusion != "" {
			fm.Inclusion = h.Inclusion
		}
		if h.FileMatchPattern != "" {
			fm.FileMatchPattern = h.FileMatchPattern
		}
	}
	fm.Extensions = passthroughExtensions(doc, pack.FormatKiro)

	body := renderBody(doc, profileFor(a))
	return renderWithFrontmatter(&fm, fm.isZero(), body)
}

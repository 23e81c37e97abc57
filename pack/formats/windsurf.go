// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack-core/pack"
)

// windsurfAdapter handles Windsurf rule files: markdown with a frontmatter
// trigger mode (always_on, manual, model_decision, or glob).
type windsurfAdapter struct{}

// windsurfFrontmatter is the frontmatter shape of a Windsurf rule file.
type windsurfFrontmatter struct {
	commonFrontmatter `yaml:",inline"`
	Trigger           string         `yaml:"trigger,omitempty"`
	Globs             stringOrSlice  `yaml:"globs,omitempty"`
	Extensions        map[string]any `yaml:"extensions,omitempty"`
}

func (fm windsurfFrontmatter) isZero() bool {
	return fm.commonFrontmatter.isZero() && fm.Trigger == "" &&
		len(fm.Globs) == 0 && len(fm.Extensions) == 0
}

var windsurfMappings = map[Field]Mapping{
	FieldMetadata:      Maps,
	FieldInstructions:  Maps,
	FieldRules:         Maps,
	FieldRulePriority:  Degrades,
	FieldRuleRationale: Degrades,
	FieldExamples:      Maps,
	FieldExampleLabel:  Maps,
	FieldPersona:       Degrades,
	FieldTools:         Drops,
	FieldContext:       Maps,
	FieldActivation:    Maps,
}

func (windsurfAdapter) Format() pack.Format { return pack.FormatWindsurf }

func (windsurfAdapter) Mappings() map[Field]Mapping { return windsurfMappings }

func (windsurfAdapter) ContentType() string { return "text/markdown" }

func (windsurfAdapter) Filename(doc *pack.Document) string {
	return safeBaseName(doc.Metadata.Name, "rules") + ".md"
}

func (a windsurfAdapter) Parse(src []byte) (*pack.Document, error) {
	fmBytes, body, err := splitFrontmatter(src)
	if err != nil {
		return nil, newParseError(pack.FormatWindsurf, "invalid frontmatter", err)
	}
	var fm windsurfFrontmatter
	if len(fmBytes) > 0 {
		if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
			return nil, newParseError(pack.FormatWindsurf, "invalid frontmatter YAML", err)
		}
	}

	doc := &pack.Document{
		Metadata:     fm.metadata(),
		SourceFormat: pack.FormatWindsurf,
	}
	native := make(map[string]any)
	if fm.Trigger != "" {
		native["trigger"] = fm.Trigger
	}
	if len(fm.Globs) > 0 {
		native["globs"] = toAnySlice(fm.Globs)
	}
	setFormatExtension(doc, pack.FormatWindsurf, native)
	mergeExtensions(doc, fm.Extensions)

	doc.Instructions, doc.Rules, doc.Examples, doc.Persona, doc.Context = parseBody(string(body), profileFor(a))
	doc.Normalize()
	return doc, nil
}

func (a windsurfAdapter) Render(doc *pack.Document, hints *Hints) ([]byte, error) {
	fm := windsurfFrontmatter{commonFrontmatter: commonFrom(doc.Metadata)}

	native := formatExtension(doc, pack.FormatWindsurf)
	fm.Trigger = extString(native, "trigger")
	fm.Globs = stringOrSlice(extStrings(native, "globs"))
	if h := hints.windsurf(); h != nil {
		if h.Trigger != "" {
			fm.Trigger = h.Trigger
		}
		if len(h.Globs) > 0 {
			fm.Globs = stringOrSlice(h.Globs)
		}
	}
	fm.Extensions = passthroughExtensions(doc, pack.FormatWindsurf)

	body := renderBody(doc, profileFor(a))
	return renderWithFrontmatter(&fm, fm.isZero(), body)
}

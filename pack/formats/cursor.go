// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack-core/pack"
)

// cursorAdapter handles Cursor .mdc rule files: YAML frontmatter with
// activation globs followed by a markdown body.
type cursorAdapter struct{}

// cursorFrontmatter is the frontmatter shape of a .mdc file.
type cursorFrontmatter struct {
	commonFrontmatter `yaml:",inline"`
	Globs             stringOrSlice  `yaml:"globs,omitempty"`
	AlwaysApply       *bool          `yaml:"alwaysApply,omitempty"`
	Extensions        map[string]any `yaml:"extensions,omitempty"`
}

func (fm cursorFrontmatter) isZero() bool {
	return fm.commonFrontmatter.isZero() && len(fm.Globs) == 0 &&
		fm.AlwaysApply == nil && len(fm.Extensions) == 0
}

var cursorMappings = map[Field]Mapping{
	FieldMetadata:      Maps,
	FieldInstructions:  Maps,
	FieldRules:         Maps,
	FieldRulePriority:  Maps,
	FieldRuleRationale: Maps,
	FieldExamples:      Maps,
	FieldExampleLabel:  Maps,
	FieldPersona:       Degrades,
	FieldTools:         Drops,
	FieldContext:       Maps,
	FieldActivation:    Maps,
}

func (cursorAdapter) Format() pack.Format { return pack.FormatCursor }

func (cursorAdapter) Mappings() map[Field]Mapping { return cursorMappings }

func (cursorAdapter) ContentType() string { return "text/markdown" }

func (cursorAdapter) Filename(doc *pack.Document) string {
	return safeBaseName(doc.Metadata.Name, "rules") + ".mdc"
}

func (a cursorAdapter) Parse(src []byte) (*pack.Document, error) {
	fmBytes, body, err := splitFrontmatter(src)
	if err != nil {
		return nil, newParseError(pack.FormatCursor, "invalid frontmatter", err)
	}
	var fm cursorFrontmatter
	if len(fmBytes) > 0 {
		if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
			return nil, newParseError(pack.FormatCursor, "invalid frontmatter YAML", err)
		}
	}

	doc := &pack.Document{
		Metadata:     fm.metadata(),
		SourceFormat: pack.FormatCursor,
	}
	native := make(map[string]any)
	if len(fm.Globs) > 0 {
		native["globs"] = toAnySlice(fm.Globs)
	}
	if fm.AlwaysApply != nil {
		native["alwaysApply"] = *fm.AlwaysApply
	}
	setFormatExtension(doc, pack.FormatCursor, native)
	mergeExtensions(doc, fm.Extensions)

	doc.Instructions, doc.Rules, doc.Examples, doc.Persona, doc.Context = parseBody(string(body), profileFor(a))
	doc.Normalize()
	return doc, nil
}

func (a cursorAdapter) Render(doc *pack.Document, hints *Hints) ([]byte, error) {
	fm := cursorFrontmatter{commonFrontmatter: commonFrom(doc.Metadata)}

	native := formatExtension(doc, pack.FormatCursor)
	globs := extStrings(native, "globs")
	alwaysApply, hasAlwaysApply := extBool(native, "alwaysApply")
	if h := hints.cursor(); h != nil {
		if len(h.Globs) > 0 {
			globs = h.Globs
		}
		if h.AlwaysApply != nil {
			alwaysApply, hasAlwaysApply = *h.AlwaysApply, true
		}
	}
	fm.Globs = stringOrSlice(globs)
	if hasAlwaysApply {
		v := alwaysApply
		fm.AlwaysApply = &v
	}
	fm.Extensions = passthroughExtensions(doc, pack.FormatCursor)

	body := renderBody(doc, profileFor(a))
	return renderWithFrontmatter(&fm, fm.isZero(), body)
}

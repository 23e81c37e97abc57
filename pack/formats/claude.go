// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack-core/pack"
)

// claudeAdapter handles Claude skill files (SKILL.md): YAML frontmatter
// with name, allowed tools, and model, followed by a markdown body. Claude
// is the richest target in the matrix; it is the only format that
// represents the tools field faithfully.
type claudeAdapter struct{}

// claudeFilename is the fixed file name of a Claude skill document.
const claudeFilename = "SKILL.md"

// claudeFrontmatter is the frontmatter shape of a SKILL.md file. The
// "metadata" key is Claude's native free-form map and carries the
// document's extension entries.
type claudeFrontmatter struct {
	Name         string         `yaml:"name,omitempty"`
	Description  string         `yaml:"description,omitempty"`
	Version      string         `yaml:"version,omitempty"`
	Author       string         `yaml:"author,omitempty"`
	Tags         stringOrSlice  `yaml:"tags,omitempty"`
	Model        string         `yaml:"model,omitempty"`
	AllowedTools stringOrSlice  `yaml:"allowed-tools,omitempty"`
	License      string         `yaml:"license,omitempty"`
	Metadata     map[string]any `yaml:"metadata,omitempty"`
}

var claudeMappings = map[Field]Mapping{
	FieldMetadata:      Maps,
	FieldInstructions:  Maps,
	FieldRules:         Maps,
	FieldRulePriority:  Degrades,
	FieldRuleRationale: Maps,
	FieldExamples:      Maps,
	FieldExampleLabel:  Maps,
	FieldPersona:       Maps,
	FieldTools:         Maps,
	FieldContext:       Maps,
	FieldActivation:    Maps,
}

func (claudeAdapter) Format() pack.Format { return pack.FormatClaude }

func (claudeAdapter) Mappings() map[Field]Mapping { return claudeMappings }

func (claudeAdapter) ContentType() string { return "text/markdown" }

func (claudeAdapter) Filename(*pack.Document) string { return claudeFilename }

func (a claudeAdapter) Parse(src []byte) (*pack.Document, error) {
	fmBytes, body, err := splitFrontmatter(src)
	if err != nil {
		return nil, newParseError(pack.FormatClaude, "invalid frontmatter", err)
	}
	var fm claudeFrontmatter
	if len(fmBytes) > 0 {
		if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
			return nil, newParseError(pack.FormatClaude, "invalid frontmatter YAML", err)
		}
	}

	doc := &pack.Document{
		Metadata: pack.Metadata{
			Name:        fm.Name,
			Version:     fm.Version,
			Description: fm.Description,
			Author:      fm.Author,
			Tags:        []string(fm.Tags),
		},
		Tools:        []string(fm.AllowedTools),
		SourceFormat: pack.FormatClaude,
	}
	native := make(map[string]any)
	if fm.Model != "" {
		native["model"] = fm.Model
	}
	if fm.License != "" {
		native["license"] = fm.License
	}
	setFormatExtension(doc, pack.FormatClaude, native)
	mergeExtensions(doc, fm.Metadata)

	doc.Instructions, doc.Rules, doc.Examples, doc.Persona, doc.Context = parseBody(string(body), profileFor(a))
	doc.Normalize()
	return doc, nil
}

func (a claudeAdapter) Render(doc *pack.Document, hints *Hints) ([]byte, error) {
	if doc.Metadata.Name == "" {
		return nil, &RenderError{Format: pack.FormatClaude, Reason: "claude skill requires metadata.name"}
	}

	native := formatExtension(doc, pack.FormatClaude)
	fm := claudeFrontmatter{
		Name:        doc.Metadata.Name,
		Description: doc.Metadata.Description,
		Version:     doc.Metadata.Version,
		Author:      doc.Metadata.Author,
		Tags:        stringOrSlice(doc.Metadata.Tags),
		Model:       extString(native, "model"),
		License:     extString(native, "license"),
		Metadata:    passthroughExtensions(doc, pack.FormatClaude),
	}

	tools := doc.Tools
	if h := hints.claude(); h != nil {
		if h.Permissions != nil {
			tools = h.Permissions.AllowStrings()
		}
		if len(h.AllowedTools) > 0 {
			tools = h.AllowedTools
		}
		if h.Model != "" {
			fm.Model = h.Model
		}
	}
	fm.AllowedTools = stringOrSlice(tools)

	body := renderBody(doc, profileFor(a))
	return renderWithFrontmatter(&fm, false, body)
}

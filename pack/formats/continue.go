// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack-core/pack"
)

// continueAdapter handles Continue rule blocks: YAML documents rather than
// markdown files. Continue keeps all guidance in a flat rules list, so on
// render the instructions, examples, persona, and context fields fold into
// rule entries, and on parse every entry comes back as a plain rule.
type continueAdapter struct{}

// continueSchemaVersion is the block schema Continue expects.
const continueSchemaVersion = "v1"

// continueFile is the YAML shape of a Continue rule block. Key order follows
// the struct, with schema next to version the way Continue blocks are
// conventionally written.
type continueFile struct {
	Name        string         `yaml:"name,omitempty"`
	Version     string         `yaml:"version,omitempty"`
	Schema      string         `yaml:"schema,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Author      string         `yaml:"author,omitempty"`
	Tags        stringOrSlice  `yaml:"tags,omitempty"`
	Globs       stringOrSlice  `yaml:"globs,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
	Rules       []continueRule `yaml:"rules,omitempty"`
}

// continueRule is one entry in a rule block. Continue accepts either a bare
// string or a mapping carrying a display name alongside the rule text.
type continueRule struct {
	Name string `yaml:"name,omitempty"`
	Rule string `yaml:"rule"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *continueRule) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		r.Name = ""
		return value.Decode(&r.Rule)
	case yaml.MappingNode:
		type plain continueRule
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*r = continueRule(p)
		return nil
	default:
		return fmt.Errorf("line %d: rule entry must be a string or a mapping", value.Line)
	}
}

// MarshalYAML implements yaml.Marshaler. Nameless rules marshal back to the
// bare string form.
func (r continueRule) MarshalYAML() (any, error) {
	if r.Name == "" {
		return r.Rule, nil
	}
	type plain continueRule
	return plain(r), nil
}

var continueMappings = map[Field]Mapping{
	FieldMetadata:      Maps,
	FieldInstructions:  Degrades,
	FieldRules:         Maps,
	FieldRulePriority:  Drops,
	FieldRuleRationale: Drops,
	FieldExamples:      Degrades,
	FieldExampleLabel:  Drops,
	FieldPersona:       Degrades,
	FieldTools:         Drops,
	FieldContext:       Degrades,
	FieldActivation:    Maps,
}

func (continueAdapter) Format() pack.Format { return pack.FormatContinue }

func (continueAdapter) Mappings() map[Field]Mapping { return continueMappings }

func (continueAdapter) ContentType() string { return "application/yaml" }

func (continueAdapter) Filename(doc *pack.Document) string {
	return safeBaseName(doc.Metadata.Name, "rules") + ".yaml"
}

func (continueAdapter) Parse(src []byte) (*pack.Document, error) {
	var file continueFile
	if err := yaml.Unmarshal(src, &file); err != nil {
		return nil, newParseError(pack.FormatContinue, "invalid YAML", err)
	}

	doc := &pack.Document{
		Metadata: pack.Metadata{
			Name:        file.Name,
			Version:     file.Version,
			Description: file.Description,
			Author:      file.Author,
			Tags:        []string(file.Tags),
		},
		SourceFormat: pack.FormatContinue,
	}
	if len(file.Globs) > 0 {
		setFormatExtension(doc, pack.FormatContinue, map[string]any{
			"globs": toAnySlice(file.Globs),
		})
	}
	mergeExtensions(doc, file.Metadata)

	for _, entry := range file.Rules {
		text := entry.Rule
		if entry.Name != "" {
			text = entry.Name + ": " + entry.Rule
		}
		doc.Rules = append(doc.Rules, pack.Rule{Text: text})
	}

	doc.Normalize()
	return doc, nil
}

func (continueAdapter) Render(doc *pack.Document, hints *Hints) ([]byte, error) {
	file := continueFile{
		Name:        doc.Metadata.Name,
		Version:     doc.Metadata.Version,
		Schema:      continueSchemaVersion,
		Description: doc.Metadata.Description,
		Author:      doc.Metadata.Author,
		Tags:        stringOrSlice(doc.Metadata.Tags),
		Metadata:    passthroughExtensions(doc, pack.FormatContinue),
	}

	globs := extStrings(formatExtension(doc, pack.FormatContinue), "globs")
	if h := hints.continueDev(); h != nil && len(h.Globs) > 0 {
		globs = h.Globs
	}
	file.Globs = stringOrSlice(globs)

	for _, instruction := range doc.Instructions {
		file.Rules = append(file.Rules, continueRule{Rule: instruction})
	}
	for _, rule := range doc.Rules {
		file.Rules = append(file.Rules, continueRule{Rule: rule.Text})
	}
	for _, example := range doc.Examples {
		file.Rules = append(file.Rules, continueRule{Rule: continueExampleText(example)})
	}
	if doc.Persona != nil && !doc.Persona.IsEmpty() {
		file.Rules = append(file.Rules, continueRule{Rule: continuePersonaText(doc.Persona)})
	}
	for _, section := range doc.Context {
		file.Rules = append(file.Rules, continueRule{Rule: continueContextText(section)})
	}

	out, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule block: %w", err)
	}
	return out, nil
}

// continueExampleText folds an example into rule text, since Continue has no
// structured example representation.
func continueExampleText(ex pack.Example) string {
	var b strings.Builder
	b.WriteString("Example:")
	if ex.Input != "" {
		b.WriteString("\nInput:\n")
		b.WriteString(ex.Input)
	}
	if ex.Output != "" {
		b.WriteString("\nOutput:\n")
		b.WriteString(ex.Output)
	}
	return b.String()
}

// continuePersonaText folds a persona into a single rule sentence.
func continuePersonaText(p *pack.Persona) string {
	var parts []string
	if p.Role != "" {
		parts = append(parts, "Act as "+p.Role+".")
	}
	if p.Style != "" {
		parts = append(parts, "Style: "+p.Style+".")
	}
	if len(p.Expertise) > 0 {
		parts = append(parts, "Expertise: "+strings.Join(p.Expertise, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// continueContextText folds a context section into rule text, keeping the
// section title as a lead-in.
func continueContextText(s pack.ContextSection) string {
	if s.Body == "" {
		return s.Title
	}
	return s.Title + ":\n" + s.Body
}

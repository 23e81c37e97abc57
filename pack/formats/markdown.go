// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/agentpack/agentpack-core/pack"
)

// markdownParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark parser is safe to share;
// actual parsing creates per-call state via Parse(reader).
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownParserInstance
}

// bodyProfile states how one markdown format treats the structured body
// sections. It is derived from the adapter's mapping table; parse flags
// control which sections are recognized structurally, mapping values
// control how sub-fields are folded or omitted at render time.
type bodyProfile struct {
	parseRules    bool
	parseExamples bool
	parsePersona  bool
	priority      Mapping
	rationale     Mapping
	label         Mapping
}

// Reserved section titles of the markdown body grammar.
const (
	sectionRules    = "Rules"
	sectionExamples = "Examples"
	sectionPersona  = "Persona"
)

var (
	rulePriorityRe   = regexp.MustCompile(`^\[(low|medium|high)\] `)
	exampleHeadingRe = regexp.MustCompile(`^### Example(?: \((good|bad)\))?$`)
)

const ruleRationalePrefix = "Rationale: "

// bodySection is one H2-delimited region of a markdown body.
type bodySection struct {
	title string
	body  string
}

// splitSections divides a markdown body into the preamble before the first
// top-level H2 heading and one section per heading. Goldmark does the
// structural pass so headings inside fenced code blocks, lists, or quotes
// never split a section.
func splitSections(body []byte) (string, []bodySection) {
	root := getMarkdownParser().Parser().Parse(text.NewReader(body))

	type headingPos struct {
		title        string
		lineStart    int
		contentStart int
	}
	var heads []headingPos
	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		h, ok := c.(*ast.Heading)
		if !ok || h.Level != 2 || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		lineStart := seg.Start
		for lineStart > 0 && body[lineStart-1] != '\n' {
			lineStart--
		}
		lineEnd := seg.Stop
		for lineEnd < len(body) && body[lineEnd] != '\n' {
			lineEnd++
		}
		title := headingTitle(string(body[lineStart:lineEnd]))
		contentStart := lineEnd
		if contentStart < len(body) {
			contentStart++
		}
		heads = append(heads, headingPos{title: title, lineStart: lineStart, contentStart: contentStart})
	}

	if len(heads) == 0 {
		return string(body), nil
	}

	pre := string(body[:heads[0].lineStart])
	secs := make([]bodySection, 0, len(heads))
	for i, hp := range heads {
		end := len(body)
		if i+1 < len(heads) {
			end = heads[i+1].lineStart
		}
		secs = append(secs, bodySection{title: hp.title, body: string(body[hp.contentStart:end])})
	}
	return pre, secs
}

// headingTitle extracts the title text from a raw heading line, handling
// both "## Title" and setext heading text lines.
func headingTitle(line string) string {
	title := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "##"))
	// ATX headings may carry closing hashes: "## Title ##".
	trimmed := strings.TrimRight(title, "#")
	if trimmed != title && strings.HasSuffix(trimmed, " ") {
		title = strings.TrimRight(trimmed, " ")
	}
	return title
}

// parseBody interprets a markdown body under the given profile. Sections
// whose structure is not recognized become context sections verbatim, which
// keeps parsing total.
func parseBody(body string, p bodyProfile) (instructions []string, rules []pack.Rule, examples []pack.Example, persona *pack.Persona, context []pack.ContextSection) {
	if strings.TrimSpace(body) == "" {
		return nil, nil, nil, nil, nil
	}

	pre, secs := splitSections([]byte(body))
	instructions = splitBlocks(strings.Trim(pre, "\n"))

	for _, sec := range secs {
		content := strings.Trim(sec.body, "\n")

		if sec.title == sectionRules && p.parseRules {
			if rs, ok := parseRulesSection(content, p); ok {
				rules = append(rules, rs...)
				continue
			}
		}
		if sec.title == sectionExamples && p.parseExamples {
			if ex, ok := parseExamplesSection(content, p); ok {
				examples = append(examples, ex...)
				continue
			}
		}
		if sec.title == sectionPersona && p.parsePersona && persona == nil {
			if ps, ok := parsePersonaSection(content); ok {
				persona = ps
				continue
			}
		}
		context = append(context, pack.ContextSection{Title: sec.title, Body: content})
	}
	return instructions, rules, examples, persona, context
}

// renderBody produces the markdown body for a document under the given
// profile. Section order is fixed: instructions, rules, examples, persona,
// then context sections in document order.
func renderBody(doc *pack.Document, p bodyProfile) string {
	var sections []string

	if len(doc.Instructions) > 0 {
		sections = append(sections, strings.Join(doc.Instructions, "\n\n"))
	}
	if len(doc.Rules) > 0 {
		sections = append(sections, "## "+sectionRules+"\n\n"+renderRulesSection(doc.Rules, p))
	}
	if len(doc.Examples) > 0 {
		sections = append(sections, "## "+sectionExamples+"\n\n"+renderExamplesSection(doc.Examples, p))
	}
	if !doc.Persona.IsEmpty() {
		sections = append(sections, "## "+sectionPersona+"\n\n"+renderPersonaSection(doc.Persona))
	}
	for _, s := range doc.Context {
		if s.Body == "" {
			sections = append(sections, "## "+s.Title)
		} else {
			sections = append(sections, "## "+s.Title+"\n\n"+strings.TrimRight(s.Body, "\n"))
		}
	}

	if len(sections) == 0 {
		return ""
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// splitBlocks divides text into blocks separated by blank lines, keeping
// blank lines inside fenced code blocks intact.
func splitBlocks(s string) []string {
	if s == "" {
		return nil
	}
	var blocks []string
	var cur []string
	inFence := false

	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}

	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if trimmed == "" && !inFence {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// parseRulesSection parses a "## Rules" section as a bullet list. It
// reports ok=false when the content does not follow the list grammar so
// the caller can fall back to a context section.
func parseRulesSection(content string, p bodyProfile) ([]pack.Rule, bool) {
	var rules []pack.Rule
	var cur *pack.Rule
	inRationale := false

	flush := func() {
		if cur != nil {
			rules = append(rules, *cur)
			cur = nil
		}
	}

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(line, "- "):
			flush()
			inRationale = false
			item := pack.Rule{Text: line[2:]}
			if p.priority == Maps {
				if m := rulePriorityRe.FindStringSubmatch(item.Text); m != nil {
					item.Priority = pack.Priority(m[1])
					item.Text = item.Text[len(m[0]):]
				}
			}
			cur = &item
		case strings.HasPrefix(line, "  ") && cur != nil:
			cont := line[2:]
			if p.rationale == Maps && cur.Rationale == "" && !inRationale && strings.HasPrefix(cont, ruleRationalePrefix) {
				cur.Rationale = cont[len(ruleRationalePrefix):]
				inRationale = true
			} else if inRationale {
				cur.Rationale += "\n" + cont
			} else {
				cur.Text += "\n" + cont
			}
		default:
			return nil, false
		}
	}
	flush()
	return rules, len(rules) > 0
}

// renderRulesSection is the inverse of parseRulesSection for fields the
// profile maps, and folds degraded priority or rationale into the item
// text so nothing readable is lost.
func renderRulesSection(rules []pack.Rule, p bodyProfile) string {
	var b strings.Builder
	for _, r := range rules {
		b.WriteString("- ")
		if p.priority == Maps && r.Priority != "" {
			b.WriteString("[" + string(r.Priority) + "] ")
		}
		writeText := r.Text
		if p.priority == Degrades && r.Priority != "" {
			writeText += " (" + string(r.Priority) + " priority)"
		}
		if p.rationale == Degrades && r.Rationale != "" {
			writeText += " (rationale: " + r.Rationale + ")"
		}
		b.WriteString(strings.ReplaceAll(writeText, "\n", "\n  "))
		if p.rationale == Maps && r.Rationale != "" {
			b.WriteString("\n  " + ruleRationalePrefix + strings.ReplaceAll(r.Rationale, "\n", "\n  "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseExamplesSection parses a "## Examples" section of "### Example"
// blocks with fenced input and output. ok=false means the structure was
// not recognized.
func parseExamplesSection(content string, p bodyProfile) ([]pack.Example, bool) {
	lines := strings.Split(content, "\n")
	var blocks [][]string
	var cur []string
	for _, line := range lines {
		if strings.HasPrefix(line, "### ") {
			if cur != nil {
				blocks = append(blocks, cur)
			}
			cur = []string{line}
			continue
		}
		if cur == nil {
			if strings.TrimSpace(line) != "" {
				return nil, false
			}
			continue
		}
		cur = append(cur, line)
	}
	if cur != nil {
		blocks = append(blocks, cur)
	}
	if len(blocks) == 0 {
		return nil, false
	}

	var examples []pack.Example
	for _, block := range blocks {
		ex, ok := parseExampleBlock(block, p)
		if !ok {
			return nil, false
		}
		examples = append(examples, ex)
	}
	return examples, true
}

func parseExampleBlock(lines []string, p bodyProfile) (pack.Example, bool) {
	var ex pack.Example
	m := exampleHeadingRe.FindStringSubmatch(lines[0])
	if m == nil {
		return ex, false
	}
	if p.label == Maps && m[1] != "" {
		ex.Label = pack.ExampleLabel(m[1])
	}

	i := 1
	skipBlank := func() {
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
	}

	capture := func() (string, bool) {
		skipBlank()
		if i >= len(lines) || !isFenceLine(lines[i]) {
			return "", false
		}
		fence := lines[i]
		i++
		var body []string
		for i < len(lines) {
			if lines[i] == fence {
				i++
				return strings.Join(body, "\n"), true
			}
			body = append(body, lines[i])
			i++
		}
		return "", false
	}

	skipBlank()
	if i < len(lines) && lines[i] == "Input:" {
		i++
		input, ok := capture()
		if !ok {
			return ex, false
		}
		ex.Input = input
	}
	skipBlank()
	if i < len(lines) && lines[i] == "Output:" {
		i++
		output, ok := capture()
		if !ok {
			return ex, false
		}
		ex.Output = output
	}
	skipBlank()
	if i != len(lines) {
		return ex, false
	}
	if ex.Input == "" && ex.Output == "" {
		return ex, false
	}
	return ex, true
}

func isFenceLine(line string) bool {
	if len(line) < 3 {
		return false
	}
	for _, r := range line {
		if r != '`' {
			return false
		}
	}
	return true
}

// renderExamplesSection is the inverse of parseExamplesSection.
func renderExamplesSection(examples []pack.Example, p bodyProfile) string {
	blocks := make([]string, 0, len(examples))
	for _, ex := range examples {
		heading := "### Example"
		if p.label == Maps && ex.Label != "" {
			heading += " (" + string(ex.Label) + ")"
		}
		parts := []string{heading}
		if ex.Input != "" {
			parts = append(parts, "Input:", fencedBlock(ex.Input))
		}
		if ex.Output != "" {
			parts = append(parts, "Output:", fencedBlock(ex.Output))
		}
		blocks = append(blocks, strings.Join(parts, "\n\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// fencedBlock wraps content in a backtick fence long enough to not collide
// with backtick runs inside the content.
func fencedBlock(content string) string {
	run := 0
	longest := 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	n := longest + 1
	if n < 3 {
		n = 3
	}
	fence := strings.Repeat("`", n)
	return fence + "\n" + content + "\n" + fence
}

// parsePersonaSection parses a "## Persona" section of Role/Style/Expertise
// lines. ok=false means the structure was not recognized.
func parsePersonaSection(content string) (*pack.Persona, bool) {
	p := &pack.Persona{}
	seen := false
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Role: "):
			p.Role = line[len("Role: "):]
		case strings.HasPrefix(line, "Style: "):
			p.Style = line[len("Style: "):]
		case strings.HasPrefix(line, "Expertise: "):
			p.Expertise = splitCommaList(line[len("Expertise: "):])
		default:
			return nil, false
		}
		seen = true
	}
	if !seen {
		return nil, false
	}
	return p, true
}

// renderPersonaSection is the inverse of parsePersonaSection.
func renderPersonaSection(p *pack.Persona) string {
	var lines []string
	if p.Role != "" {
		lines = append(lines, "Role: "+p.Role)
	}
	if p.Style != "" {
		lines = append(lines, "Style: "+p.Style)
	}
	if len(p.Expertise) > 0 {
		lines = append(lines, "Expertise: "+strings.Join(p.Expertise, ", "))
	}
	return strings.Join(lines, "\n")
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack-core/pack"
)

// maxFrontmatterSize limits frontmatter to prevent YAML parsing attacks.
const maxFrontmatterSize = 64 * 1024

var frontmatterDelimiter = []byte("---")

// splitFrontmatter separates a YAML frontmatter block from the document
// body. Input without a leading delimiter is returned unchanged as body,
// since frontmatter is optional in most formats.
func splitFrontmatter(src []byte) (fm, body []byte, err error) {
	if !bytes.HasPrefix(src, frontmatterDelimiter) {
		return nil, src, nil
	}
	rest := src[len(frontmatterDelimiter):]
	if len(rest) > 0 && rest[0] != '\n' {
		// Something like "----" or "--- text": not a frontmatter block.
		return nil, src, nil
	}
	rest = bytes.TrimPrefix(rest, []byte("\n"))

	endIdx, afterIdx := findClosingDelimiter(rest)
	if endIdx == -1 {
		return nil, nil, fmt.Errorf("frontmatter missing closing delimiter (---)")
	}

	fm = rest[:endIdx]
	if len(fm) > maxFrontmatterSize {
		return nil, nil, fmt.Errorf("frontmatter exceeds maximum size of %d bytes", maxFrontmatterSize)
	}

	body = trimLeadingNewline(rest[afterIdx:])
	return fm, body, nil
}

// findClosingDelimiter locates a line consisting of exactly "---" and
// returns the offset of its start and the offset just past its line ending,
// or (-1, -1). Lines may end in \n or \r\n.
func findClosingDelimiter(data []byte) (start, after int) {
	offset := 0
	for offset <= len(data) {
		lineEnd := bytes.IndexByte(data[offset:], '\n')
		var line []byte
		if lineEnd == -1 {
			line = data[offset:]
		} else {
			line = data[offset : offset+lineEnd]
		}
		if bytes.Equal(bytes.TrimRight(line, "\r"), frontmatterDelimiter) {
			if lineEnd == -1 {
				return offset, len(data)
			}
			return offset, offset + lineEnd + 1
		}
		if lineEnd == -1 {
			return -1, -1
		}
		offset += lineEnd + 1
	}
	return -1, -1
}

// trimLeadingNewline strips one blank separator line, if present, from the
// start of a body.
func trimLeadingNewline(body []byte) []byte {
	if bytes.HasPrefix(body, []byte("\r\n")) {
		return body[2:]
	}
	return bytes.TrimPrefix(body, []byte("\n"))
}

// renderWithFrontmatter marshals fm to YAML and joins it with the body.
// When skipFrontmatter is true only the body is emitted, which keeps
// metadata-free documents indistinguishable from hand-written plain files.
func renderWithFrontmatter(fm any, skipFrontmatter bool, body string) ([]byte, error) {
	if skipFrontmatter {
		return []byte(body), nil
	}
	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fmBytes)
	b.WriteString("---\n")
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}
	return b.Bytes(), nil
}

// stringOrSlice is a YAML type that can unmarshal from a string or a
// sequence, and always marshals as a sequence.
type stringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *stringOrSlice) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		str := value.Value
		if str == "" {
			*s = nil
			return nil
		}
		var parts []string
		if strings.Contains(str, ",") {
			parts = strings.Split(str, ",")
		} else {
			parts = []string{str}
		}
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		*s = result
		return nil
	case yaml.SequenceNode:
		var arr []string
		if err := value.Decode(&arr); err != nil {
			return fmt.Errorf("decoding string list: %w", err)
		}
		*s = arr
		return nil
	case yaml.DocumentNode, yaml.MappingNode, yaml.AliasNode:
		return fmt.Errorf("unexpected YAML node kind %v for string list", value.Kind)
	}
	return fmt.Errorf("unexpected YAML node kind %v for string list", value.Kind)
}

// MarshalYAML implements yaml.Marshaler.
func (s stringOrSlice) MarshalYAML() (any, error) {
	return []string(s), nil
}

// commonFrontmatter carries the metadata keys shared by every frontmatter
// format. Adapters embed it inline ahead of their native keys so rendered
// key order stays stable.
type commonFrontmatter struct {
	Name        string        `yaml:"name,omitempty"`
	Version     string        `yaml:"version,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Author      string        `yaml:"author,omitempty"`
	Tags        stringOrSlice `yaml:"tags,omitempty"`
}

// isZero reports whether no common key is set.
func (c commonFrontmatter) isZero() bool {
	return c.Name == "" && c.Version == "" && c.Description == "" &&
		c.Author == "" && len(c.Tags) == 0
}

// metadata converts the common keys into canonical metadata.
func (c commonFrontmatter) metadata() pack.Metadata {
	return pack.Metadata{
		Name:        c.Name,
		Version:     c.Version,
		Description: c.Description,
		Author:      c.Author,
		Tags:        []string(c.Tags),
	}
}

// commonFrom extracts the common frontmatter keys from canonical metadata.
func commonFrom(m pack.Metadata) commonFrontmatter {
	return commonFrontmatter{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Author:      m.Author,
		Tags:        stringOrSlice(m.Tags),
	}
}

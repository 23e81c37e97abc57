// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"fmt"
)

// Format identifies one of the supported assistant configuration formats.
// The set is closed: adding a format is a code change, never a runtime
// registration.
type Format string

// Supported formats.
const (
	// FormatCursor is Cursor's .mdc rule format with YAML frontmatter.
	FormatCursor Format = "cursor"
	// FormatClaude is the Claude skill format (SKILL.md with frontmatter).
	FormatClaude Format = "claude"
	// FormatKiro is Kiro's steering document format.
	FormatKiro Format = "kiro"
	// FormatCopilot is GitHub Copilot's instructions format.
	FormatCopilot Format = "copilot"
	// FormatContinue is Continue's YAML rules block format.
	FormatContinue Format = "continue"
	// FormatWindsurf is Windsurf's rules format with trigger frontmatter.
	FormatWindsurf Format = "windsurf"
	// FormatRuler is Ruler's plain markdown instruction format.
	FormatRuler Format = "ruler"
)

// allFormats is the canonical enumeration order used everywhere a stable
// ordering over formats is needed.
var allFormats = []Format{
	FormatCursor,
	FormatClaude,
	FormatKiro,
	FormatCopilot,
	FormatContinue,
	FormatWindsurf,
	FormatRuler,
}

// Formats returns all supported formats in canonical order. The returned
// slice is a copy and may be modified by the caller.
func Formats() []Format {
	out := make([]Format, len(allFormats))
	copy(out, allFormats)
	return out
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	for _, known := range allFormats {
		if f == known {
			return true
		}
	}
	return false
}

// String returns the wire name of the format.
func (f Format) String() string {
	return string(f)
}

// ParseFormat converts a wire name into a Format, rejecting unknown names.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown format %q", s)
	}
	return f, nil
}

// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/permissions"
)

const claudeSkillSource = `---
name: commit-helper
description: Writes conventional commit messages
version: 2.0.0
model: claude-sonnet-4-5
allowed-tools:
    - Bash(git diff *)
    - Bash(git log *)
    - Read
license: Apache-2.0
metadata:
    team:
        owner: dev-experience
---

Draft a commit message from the staged diff.

## Rules

- Subject line under 72 characters
  Rationale: keeps git log readable

## Persona

Role: Release engineer
`

func TestClaudeParse(t *testing.T) {
	t.Parallel()

	doc, err := MustGet(pack.FormatClaude).Parse([]byte(claudeSkillSource))
	require.NoError(t, err)

	assert.Equal(t, pack.FormatClaude, doc.SourceFormat)
	assert.Equal(t, "commit-helper", doc.Metadata.Name)
	assert.Equal(t, "2.0.0", doc.Metadata.Version)
	assert.Equal(t, []string{"Bash(git diff *)", "Bash(git log *)", "Read"}, doc.Tools)

	native, ok := doc.Metadata.Extensions["claude"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "claude-sonnet-4-5", native["model"])
	assert.Equal(t, "Apache-2.0", native["license"])

	team, ok := doc.Metadata.Extensions["team"].(map[string]any)
	require.True(t, ok, "free-form metadata should merge into extensions")
	assert.Equal(t, "dev-experience", team["owner"])

	require.Len(t, doc.Rules, 1)
	assert.Equal(t, "keeps git log readable", doc.Rules[0].Rationale)
	require.NotNil(t, doc.Persona)
	assert.Equal(t, "Release engineer", doc.Persona.Role)
}

func TestClaudeRender_RequiresName(t *testing.T) {
	t.Parallel()

	doc := &pack.Document{Instructions: []string{"No name set."}}
	_, err := MustGet(pack.FormatClaude).Render(doc, nil)
	require.Error(t, err)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, pack.FormatClaude, renderErr.Format)
	assert.Contains(t, err.Error(), "requires metadata.name")
}

func TestClaudeRender_AlwaysEmitsFrontmatter(t *testing.T) {
	t.Parallel()

	doc := &pack.Document{Metadata: pack.Metadata{Name: "bare"}}
	out, err := MustGet(pack.FormatClaude).Render(doc, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "---\nname: bare\n---\n"))
}

func TestClaudeRender_ToolPrecedence(t *testing.T) {
	t.Parallel()

	doc := &pack.Document{
		Metadata: pack.Metadata{Name: "helper"},
		Tools:    []string{"Read"},
	}
	profile := &permissions.Profile{
		Name:  "repo-readonly",
		Allow: []permissions.ToolRule{"Glob", "Grep"},
	}

	tests := []struct {
		name  string
		hints *Hints
		want  []string
	}{
		{
			name:  "document tools by default",
			hints: nil,
			want:  []string{"Read"},
		},
		{
			name:  "permissions profile overrides document",
			hints: &Hints{Claude: &ClaudeHints{Permissions: profile}},
			want:  []string{"Glob", "Grep"},
		},
		{
			name: "explicit allowed tools win over profile",
			hints: &Hints{Claude: &ClaudeHints{
				Permissions:  profile,
				AllowedTools: []string{"Bash(make test)"},
			}},
			want: []string{"Bash(make test)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := MustGet(pack.FormatClaude).Render(doc, tt.hints)
			require.NoError(t, err)

			parsed, err := MustGet(pack.FormatClaude).Parse(out)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, parsed.Tools)
		})
	}
}

func TestClaudeRender_ModelHint(t *testing.T) {
	t.Parallel()

	doc := &pack.Document{Metadata: pack.Metadata{Name: "helper"}}
	hints := &Hints{Claude: &ClaudeHints{Model: "claude-opus-4-1"}}

	out, err := MustGet(pack.FormatClaude).Render(doc, hints)
	require.NoError(t, err)
	assert.Contains(t, string(out), "model: claude-opus-4-1")
}

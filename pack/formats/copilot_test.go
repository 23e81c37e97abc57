// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpack/agentpack-core/pack"
)

const copilotInstructionsSource = `---
applyTo: "**/*.ts,**/*.tsx"
---

Use strict TypeScript settings.

## Rules

- Prefer interfaces over type aliases for object shapes
`

func TestCopilotParse(t *testing.T) {
	t.Parallel()

	doc, err := MustGet(pack.FormatCopilot).Parse([]byte(copilotInstructionsSource))
	require.NoError(t, err)

	native, ok := doc.Metadata.Extensions["copilot"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "**/*.ts,**/*.tsx", native["applyTo"])

	assert.Equal(t, []string{"Use strict TypeScript settings."}, doc.Instructions)
	require.Len(t, doc.Rules, 1)
}

func TestCopilotParse_ClassicInstructionsFile(t *testing.T) {
	t.Parallel()

	src := "We use pnpm, not npm.\n\nRun `pnpm test` before proposing changes.\n"
	doc, err := MustGet(pack.FormatCopilot).Parse([]byte(src))
	require.NoError(t, err)

	assert.True(t, doc.Metadata.IsEmpty())
	assert.Len(t, doc.Instructions, 2)
}

func TestCopilotRender_MetadataFreeStaysPlain(t *testing.T) {
	t.Parallel()

	doc := &pack.Document{Instructions: []string{"We use pnpm, not npm."}}
	out, err := MustGet(pack.FormatCopilot).Render(doc, nil)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(out), "---"),
		"metadata-free documents render without frontmatter")
}

func TestCopilotRender_ApplyToHint(t *testing.T) {
	t.Parallel()

	doc := &pack.Document{Instructions: []string{"Scoped instructions."}}
	hints := &Hints{Copilot: &CopilotHints{ApplyTo: "src/**/*.py"}}

	out, err := MustGet(pack.FormatCopilot).Render(doc, hints)
	require.NoError(t, err)
	assert.Contains(t, string(out), "applyTo: src/**/*.py")
}

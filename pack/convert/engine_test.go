// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpack/agentpack-core/httperr"
	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/pack/formats"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	require.NoError(t, err)
	return e
}

func TestNewEngine_CacheDisabled(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(WithCacheSize(0))
	require.NoError(t, err)

	src := []byte("## Rules\n\n- [high] Use hooks\n")
	first, err := e.Convert(src, pack.FormatCursor, pack.FormatWindsurf, nil)
	require.NoError(t, err)
	second, err := e.Convert(src, pack.FormatCursor, pack.FormatWindsurf, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second, "conversion stays deterministic without a cache")

	hits, misses := e.CacheStats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestNewEngine_RejectsNegativeCacheSize(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(WithCacheSize(-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversion cache")
}

func TestConvert_FoldsPriorityIntoText(t *testing.T) {
	t.Parallel()

	src := []byte("## Rules\n\n- [high] Use hooks\n")

	result, err := newTestEngine(t).Convert(src, pack.FormatCursor, pack.FormatWindsurf, nil)
	require.NoError(t, err)

	assert.Contains(t, string(result.Document), "- Use hooks (high priority)")
	assert.Equal(t, 86, result.QualityScore)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "rules[0].priority", result.Warnings[0].Field)
	assert.Equal(t, SeverityInfo, result.Warnings[0].Severity)
}

func TestConvert_DropsToolsWithWarning(t *testing.T) {
	t.Parallel()

	src := []byte(`---
name: git-helper
allowed-tools:
  - "Bash(git *)"
---

Use small commits.
`)

	result, err := newTestEngine(t).Convert(src, pack.FormatClaude, pack.FormatCursor, nil)
	require.NoError(t, err)

	assert.NotContains(t, string(result.Document), "Bash(git *)")
	assert.Contains(t, string(result.Document), "Use small commits.")
	assert.Equal(t, 78, result.QualityScore)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "tools", result.Warnings[0].Field)
	assert.Equal(t, SeverityWarn, result.Warnings[0].Severity)

	assert.Equal(t, "git-helper.mdc", result.Filename)
	assert.Equal(t, "text/markdown", result.ContentType)
}

func TestConvert_IdentityIsLosslessFixedPoint(t *testing.T) {
	t.Parallel()

	src := []byte(`---
name: react-house-rules
description: Hooks-era conventions.
globs: src/**/*.tsx
---

Prefer function components.

## Rules

- [high] Use hooks
  Rationale: class lifecycles are legacy
`)
	e := newTestEngine(t)

	// The first pass normalizes formatting choices such as scalar globs.
	first, err := e.Convert(src, pack.FormatCursor, pack.FormatCursor, nil)
	require.NoError(t, err)

	second, err := e.Convert(first.Document, pack.FormatCursor, pack.FormatCursor, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Document, second.Document)
	assert.Equal(t, 100, second.QualityScore)
	assert.Empty(t, second.Warnings)
}

func TestConvert_SourceUnparsable(t *testing.T) {
	t.Parallel()

	_, err := newTestEngine(t).Convert([]byte("just some text"), pack.FormatContinue, pack.FormatClaude, nil)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrSourceUnparsable)
	assert.Equal(t, http.StatusUnprocessableEntity, httperr.Code(err))

	var parseErr *formats.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, pack.FormatContinue, parseErr.Format)
}

func TestConvert_TargetUnrenderable(t *testing.T) {
	t.Parallel()

	_, err := newTestEngine(t).Convert([]byte("Be helpful.\n"), pack.FormatWindsurf, pack.FormatClaude, nil)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrTargetUnrenderable)
	assert.Equal(t, http.StatusUnprocessableEntity, httperr.Code(err))

	var renderErr *formats.RenderError
	require.True(t, errors.As(err, &renderErr))
}

func TestConvert_UnknownFormats(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	_, err := e.Convert([]byte("x"), "vim", pack.FormatCursor, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter")
	assert.Equal(t, http.StatusBadRequest, httperr.Code(err))

	_, err = e.Convert([]byte("x"), pack.FormatCursor, "vim", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperr.Code(err))
}

func TestConvert_CachesByContentAndPair(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	src := []byte("## Rules\n\n- [high] Use hooks\n")

	first, err := e.Convert(src, pack.FormatCursor, pack.FormatWindsurf, nil)
	require.NoError(t, err)
	second, err := e.Convert(src, pack.FormatCursor, pack.FormatWindsurf, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	hits, misses := e.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	// A different target pair is a different cache entry.
	_, err = e.Convert(src, pack.FormatCursor, pack.FormatClaude, &formats.Hints{
		Claude: &formats.ClaudeHints{Model: "claude-sonnet-4-5"},
	})
	require.NoError(t, err)

	hits, misses = e.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestConvert_HintsChangeOutputAndKey(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	src := []byte("Prefer table-driven tests.\n")
	hints := &formats.Hints{
		Windsurf: &formats.WindsurfHints{Trigger: "glob", Globs: []string{"**/*_test.go"}},
	}

	plain, err := e.Convert(src, pack.FormatRuler, pack.FormatWindsurf, nil)
	require.NoError(t, err)
	hinted, err := e.Convert(src, pack.FormatRuler, pack.FormatWindsurf, hints)
	require.NoError(t, err)

	assert.NotContains(t, string(plain.Document), "trigger:")
	assert.Contains(t, string(hinted.Document), "trigger: glob")

	_, misses := e.CacheStats()
	assert.Equal(t, uint64(2), misses)
}

func TestConvertDocument_UsesRecordedProvenance(t *testing.T) {
	t.Parallel()

	doc := &pack.Document{
		Rules:        []pack.Rule{{Text: "Use hooks", Priority: pack.PriorityHigh}},
		SourceFormat: pack.FormatCursor,
	}

	result, err := newTestEngine(t).ConvertDocument(doc, pack.FormatWindsurf, nil)
	require.NoError(t, err)

	assert.Equal(t, pack.FormatCursor, result.From)
	assert.Equal(t, 86, result.QualityScore)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "rules[0].priority", result.Warnings[0].Field)
}

func TestConvertDocument_WithoutProvenance(t *testing.T) {
	t.Parallel()

	doc := &pack.Document{Instructions: []string{"Pin dependency versions."}}

	result, err := newTestEngine(t).ConvertDocument(doc, pack.FormatKiro, nil)
	require.NoError(t, err)

	assert.Empty(t, result.From)
	assert.Equal(t, 79, result.QualityScore)
	assert.Empty(t, result.Warnings)
	assert.Contains(t, string(result.Document), "Pin dependency versions.")
}

func TestConvertDocument_NilDocument(t *testing.T) {
	t.Parallel()

	_, err := newTestEngine(t).ConvertDocument(nil, pack.FormatKiro, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil document")
}

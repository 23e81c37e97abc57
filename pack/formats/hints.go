// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/agentpack/agentpack-core/permissions"
)

// Hints carry per-target rendering preferences that are not part of the
// document itself: activation globs, trigger modes, tool permission
// profiles. Hints are optional everywhere; a nil *Hints is always valid.
// When a hint is absent, adapters fall back to format-native settings
// preserved in the document's extensions.
type Hints struct {
	Cursor   *CursorHints   `json:"cursor,omitempty" toml:"cursor"`
	Claude   *ClaudeHints   `json:"claude,omitempty" toml:"claude"`
	Kiro     *KiroHints     `json:"kiro,omitempty" toml:"kiro"`
	Copilot  *CopilotHints  `json:"copilot,omitempty" toml:"copilot"`
	Continue *ContinueHints `json:"continue,omitempty" toml:"continue"`
	Windsurf *WindsurfHints `json:"windsurf,omitempty" toml:"windsurf"`
}

// CursorHints control Cursor rule activation.
type CursorHints struct {
	Globs       []string `json:"globs,omitempty" toml:"globs"`
	AlwaysApply *bool    `json:"alwaysApply,omitempty" toml:"always_apply"`
}

// ClaudeHints control Claude skill rendering.
type ClaudeHints struct {
	Model        string   `json:"model,omitempty" toml:"model"`
	AllowedTools []string `json:"allowedTools,omitempty" toml:"allowed_tools"`
	// Permissions, when set, overrides the document's tool list with the
	// profile's allow rules. AllowedTools wins over Permissions when both
	// are present.
	Permissions *permissions.Profile `json:"permissions,omitempty" toml:"permissions"`
}

// KiroHints control Kiro steering inclusion.
type KiroHints struct {
	Inclusion        string `json:"inclusion,omitempty" toml:"inclusion"`
	FileMatchPattern string `json:"fileMatchPattern,omitempty" toml:"file_match_pattern"`
}

// CopilotHints control Copilot instruction scoping.
type CopilotHints struct {
	ApplyTo string `json:"applyTo,omitempty" toml:"apply_to"`
}

// ContinueHints control Continue rule block scoping.
type ContinueHints struct {
	Globs []string `json:"globs,omitempty" toml:"globs"`
}

// WindsurfHints control Windsurf rule activation.
type WindsurfHints struct {
	Trigger string   `json:"trigger,omitempty" toml:"trigger"`
	Globs   []string `json:"globs,omitempty" toml:"globs"`
}

// nil-safe accessors so adapters never need to check the outer pointer.

func (h *Hints) cursor() *CursorHints {
	if h == nil {
		return nil
	}
	return h.Cursor
}

func (h *Hints) claude() *ClaudeHints {
	if h == nil {
		return nil
	}
	return h.Claude
}

func (h *Hints) kiro() *KiroHints {
	if h == nil {
		return nil
	}
	return h.Kiro
}

func (h *Hints) copilot() *CopilotHints {
	if h == nil {
		return nil
	}
	return h.Copilot
}

func (h *Hints) continueDev() *ContinueHints {
	if h == nil {
		return nil
	}
	return h.Continue
}

func (h *Hints) windsurf() *WindsurfHints {
	if h == nil {
		return nil
	}
	return h.Windsurf
}

// ParseHints decodes rendering hints from TOML, typically the contents of
// an agentpack.toml. Unknown keys are rejected so typos surface instead of
// being silently ignored.
func ParseHints(data []byte) (*Hints, error) {
	var h Hints
	md, err := toml.Decode(string(data), &h)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hints TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown hint keys: %s", strings.Join(keys, ", "))
	}
	return &h, nil
}

// LoadHints reads rendering hints from a TOML file.
func LoadHints(path string) (*Hints, error) {
	var h Hints
	md, err := toml.DecodeFile(path, &h)
	if err != nil {
		return nil, fmt.Errorf("failed to load hints from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown hint keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return &h, nil
}

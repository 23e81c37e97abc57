// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package permissions provides types and utilities for managing tool
// permissions and permission profiles in the AgentPack ecosystem.
package permissions

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Built-in permission profile names
const (
	// ProfileNone is the name of the built-in profile that denies every tool
	ProfileNone = "none"
	// ProfileAll is the name of the built-in profile that allows every tool
	ProfileAll = "all"
)

// Profile represents a tool permission profile for an assistant package.
// Rules are matched against tool invocations; deny rules win over allow
// rules, and an invocation no rule matches is denied.
type Profile struct {
	// Name is the name of the profile
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name"`

	// Allow is a list of tool rules the package may invoke
	Allow []ToolRule `json:"allow,omitempty" yaml:"allow,omitempty" toml:"allow"`

	// Deny is a list of tool rules that are always refused, even when an
	// allow rule also matches
	Deny []ToolRule `json:"deny,omitempty" yaml:"deny,omitempty" toml:"deny"`
}

// ToolRule names a tool, optionally constrained to an argument pattern.
// It can be in one of the following formats:
//   - A bare tool name: "Read" matches any invocation of the Read tool
//   - tool(pattern): "Bash(npm run *)" matches Bash invocations whose
//     argument string matches the pattern, where * matches any run of
//     characters
//   - An MCP tool name: "mcp__github__search_issues"
type ToolRule string

// Regular expressions for parsing tool rules
var (
	// toolNameRegex matches a bare tool identifier
	toolNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

	// commandInjectionPattern matches characters that have no place in a
	// tool rule and usually indicate an injection attempt
	commandInjectionPattern = regexp.MustCompile(`[$&;|]|\$\(|\` + "`")
)

// Tool returns the tool name part of the rule.
func (r ToolRule) Tool() string {
	s := string(r)
	if idx := strings.IndexByte(s, '('); idx != -1 {
		return s[:idx]
	}
	return s
}

// Pattern returns the argument pattern of the rule, or "" when the rule
// has no argument constraint.
func (r ToolRule) Pattern() string {
	s := string(r)
	open := strings.IndexByte(s, '(')
	if open == -1 || !strings.HasSuffix(s, ")") {
		return ""
	}
	return s[open+1 : len(s)-1]
}

// Validate checks that the rule is well formed.
func (r ToolRule) Validate() error {
	s := string(r)
	if s == "" {
		return fmt.Errorf("tool rule must not be empty")
	}
	if strings.Contains(s, "\x00") {
		return fmt.Errorf("null byte detected in tool rule: %s", s)
	}
	if commandInjectionPattern.MatchString(r.Pattern()) {
		return fmt.Errorf("potential command injection detected in tool rule: %s", s)
	}

	open := strings.IndexByte(s, '(')
	if open == -1 {
		if !toolNameRegex.MatchString(s) {
			return fmt.Errorf("invalid tool name in rule: %s", s)
		}
		return nil
	}
	if !strings.HasSuffix(s, ")") {
		return fmt.Errorf("unterminated argument pattern in tool rule: %s", s)
	}
	if !toolNameRegex.MatchString(s[:open]) {
		return fmt.Errorf("invalid tool name in rule: %s", s)
	}
	if open+1 == len(s)-1 {
		return fmt.Errorf("empty argument pattern in tool rule: %s", s)
	}
	return nil
}

// Matches reports whether the rule covers the given invocation. An
// invocation is either a bare tool name or "tool(arguments)".
func (r ToolRule) Matches(invocation string) bool {
	invTool := invocation
	invArgs := ""
	if idx := strings.IndexByte(invocation, '('); idx != -1 && strings.HasSuffix(invocation, ")") {
		invTool = invocation[:idx]
		invArgs = invocation[idx+1 : len(invocation)-1]
	}
	if r.Tool() != invTool {
		return false
	}
	pattern := r.Pattern()
	if pattern == "" {
		return true
	}
	return matchWildcard(pattern, invArgs)
}

// matchWildcard matches s against pattern where '*' matches any run of
// characters, including the empty run.
func matchWildcard(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx == -1 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}

// NewProfile creates a new empty permission profile that denies everything.
func NewProfile(name string) *Profile {
	return &Profile{
		Name:  name,
		Allow: []ToolRule{},
		Deny:  []ToolRule{},
	}
}

// FromFile loads a permission profile from a JSON file.
func FromFile(path string) (*Profile, error) {
	// #nosec G304 - This is intentional as we're reading a user-specified permission profile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read permission profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse permission profile: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// BuiltinProfile returns a built-in profile by name.
func BuiltinProfile(name string) (*Profile, error) {
	switch name {
	case ProfileNone:
		return &Profile{Name: ProfileNone, Allow: []ToolRule{}, Deny: []ToolRule{}}, nil
	case ProfileAll:
		return &Profile{Name: ProfileAll, Allow: []ToolRule{"*"}, Deny: []ToolRule{}}, nil
	default:
		return nil, fmt.Errorf("unknown built-in profile: %s", name)
	}
}

// Validate checks every rule in the profile.
func (p *Profile) Validate() error {
	for _, r := range p.Allow {
		if isWildcardAll(r) {
			continue
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid allow rule: %w", err)
		}
	}
	for _, r := range p.Deny {
		if isWildcardAll(r) {
			continue
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid deny rule: %w", err)
		}
	}
	return nil
}

// isWildcardAll reports whether the rule is the special "*" that matches
// every tool. Only valid as a whole rule, not as a tool name.
func isWildcardAll(r ToolRule) bool {
	return r == "*"
}

// Allows reports whether the profile permits the invocation. Deny rules
// are checked first and always win.
func (p *Profile) Allows(invocation string) bool {
	for _, r := range p.Deny {
		if isWildcardAll(r) || r.Matches(invocation) {
			return false
		}
	}
	for _, r := range p.Allow {
		if isWildcardAll(r) || r.Matches(invocation) {
			return true
		}
	}
	return false
}

// AllowStrings returns the allow rules as plain strings, in profile order.
func (p *Profile) AllowStrings() []string {
	if len(p.Allow) == 0 {
		return nil
	}
	out := make([]string, len(p.Allow))
	for i, r := range p.Allow {
		out[i] = string(r)
	}
	return out
}

// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package name provides validation functions for package coordinates.
package name

import (
	"fmt"
	"regexp"
	"strings"
)

// Length limits keep coordinates usable as OCI repository components and
// filesystem path segments.
const (
	maxScopeLength   = 64
	maxNameLength    = 128
	maxVersionLength = 128
)

var (
	validScopeRegex   = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	validNameRegex    = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)
	validVersionRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._+-]*$`)
)

// ValidateScope validates that a scope only contains allowed characters:
// lowercase alphanumeric and dashes, without a leading or trailing dash.
func ValidateScope(scope string) error {
	if scope == "" || strings.TrimSpace(scope) == "" {
		return fmt.Errorf("scope cannot be empty or consist only of whitespace")
	}

	if strings.Contains(scope, "\x00") {
		return fmt.Errorf("scope cannot contain null bytes")
	}

	if len(scope) > maxScopeLength {
		return fmt.Errorf("scope cannot exceed %d characters", maxScopeLength)
	}

	if scope != strings.ToLower(scope) {
		return fmt.Errorf("scope must be lowercase")
	}

	if !validScopeRegex.MatchString(scope) {
		return fmt.Errorf("scope can only contain lowercase alphanumeric characters and dashes, and cannot start or end with a dash: %q", scope)
	}

	return nil
}

// ValidateName validates that a package name only contains allowed
// characters: lowercase alphanumeric, dots, underscores, and dashes, with
// alphanumeric characters at both ends.
func ValidateName(name string) error {
	if name == "" || strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty or consist only of whitespace")
	}

	if strings.Contains(name, "\x00") {
		return fmt.Errorf("name cannot contain null bytes")
	}

	if len(name) > maxNameLength {
		return fmt.Errorf("name cannot exceed %d characters", maxNameLength)
	}

	if name != strings.ToLower(name) {
		return fmt.Errorf("name must be lowercase")
	}

	if !validNameRegex.MatchString(name) {
		return fmt.Errorf("name can only contain lowercase alphanumeric characters, dots, underscores, and dashes, and must start and end with an alphanumeric character: %q", name)
	}

	return nil
}

// ValidateVersion validates that a version string only contains allowed
// characters. Versions are treated as opaque labels, not parsed as semver,
// so prerelease and build suffixes pass through untouched.
func ValidateVersion(version string) error {
	if version == "" || strings.TrimSpace(version) == "" {
		return fmt.Errorf("version cannot be empty or consist only of whitespace")
	}

	if strings.Contains(version, "\x00") {
		return fmt.Errorf("version cannot contain null bytes")
	}

	if len(version) > maxVersionLength {
		return fmt.Errorf("version cannot exceed %d characters", maxVersionLength)
	}

	if !validVersionRegex.MatchString(version) {
		return fmt.Errorf("version can only contain alphanumeric characters, dots, underscores, pluses, and dashes, and must start with an alphanumeric character or underscore: %q", version)
	}

	return nil
}

// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"
	"strings"

	"github.com/agentpack/agentpack-core/validation/name"
)

// VersionRef addresses one stored package version as "scope/name@version".
type VersionRef struct {
	Scope   string `json:"scope"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ParseVersionRef parses a "scope/name@version" reference.
func ParseVersionRef(s string) (VersionRef, error) {
	scope, rest, ok := strings.Cut(s, "/")
	if !ok {
		return VersionRef{}, fmt.Errorf("invalid version reference %q: expected scope/name@version", s)
	}
	pkg, version, ok := strings.Cut(rest, "@")
	if !ok {
		return VersionRef{}, fmt.Errorf("invalid version reference %q: expected scope/name@version", s)
	}

	ref := VersionRef{Scope: scope, Name: pkg, Version: version}
	if err := ref.Validate(); err != nil {
		return VersionRef{}, fmt.Errorf("invalid version reference %q: %w", s, err)
	}
	return ref, nil
}

// Validate checks each coordinate against the naming rules.
func (r VersionRef) Validate() error {
	if err := name.ValidateScope(r.Scope); err != nil {
		return err
	}
	if err := name.ValidateName(r.Name); err != nil {
		return err
	}
	if err := name.ValidateVersion(r.Version); err != nil {
		return err
	}
	return nil
}

// String returns the "scope/name@version" form.
func (r VersionRef) String() string {
	return r.Scope + "/" + r.Name + "@" + r.Version
}

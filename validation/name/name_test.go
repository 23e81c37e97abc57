// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package name

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		scope   string
		wantErr string
	}{
		{name: "simple", scope: "acme"},
		{name: "with dash", scope: "platform-team"},
		{name: "with digits", scope: "team42"},
		{name: "empty", scope: "", wantErr: "cannot be empty"},
		{name: "whitespace only", scope: "   ", wantErr: "cannot be empty"},
		{name: "null byte", scope: "ac\x00me", wantErr: "null bytes"},
		{name: "uppercase", scope: "Acme", wantErr: "must be lowercase"},
		{name: "leading dash", scope: "-acme", wantErr: "start or end with a dash"},
		{name: "trailing dash", scope: "acme-", wantErr: "start or end with a dash"},
		{name: "underscore", scope: "acme_corp", wantErr: "can only contain"},
		{name: "too long", scope: strings.Repeat("a", 65), wantErr: "cannot exceed 64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateScope(tt.scope)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "simple", value: "react-conventions"},
		{name: "dotted", value: "api.style"},
		{name: "underscored", value: "api_style"},
		{name: "single character", value: "x"},
		{name: "empty", value: "", wantErr: "cannot be empty"},
		{name: "uppercase", value: "ReactConventions", wantErr: "must be lowercase"},
		{name: "spaces", value: "react conventions", wantErr: "can only contain"},
		{name: "leading dot", value: ".hidden", wantErr: "can only contain"},
		{name: "trailing dash", value: "rules-", wantErr: "can only contain"},
		{name: "too long", value: strings.Repeat("a", 129), wantErr: "cannot exceed 128"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateName(tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		wantErr string
	}{
		{name: "semver", version: "1.2.0"},
		{name: "prerelease", version: "2.0.0-rc.1"},
		{name: "build metadata", version: "1.0.0+build.7"},
		{name: "tag style", version: "latest"},
		{name: "empty", version: "", wantErr: "cannot be empty"},
		{name: "leading dot", version: ".1.2", wantErr: "can only contain"},
		{name: "spaces", version: "1.2 .0", wantErr: "can only contain"},
		{name: "null byte", version: "1.\x000", wantErr: "null bytes"},
		{name: "too long", version: strings.Repeat("9", 129), wantErr: "cannot exceed 128"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateVersion(tt.version)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

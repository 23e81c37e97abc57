// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package name provides validation functions for the coordinates that identify
stored packages.

A stored package version is addressed as "scope/name@version". This package
ensures each coordinate follows consistent naming conventions so references
stay portable across catalogs, OCI registries, and filesystems.

# Scope Validation

Validate scopes against naming rules:

	if err := name.ValidateScope("acme"); err != nil {
		// Handle invalid scope
	}

Valid scopes must:
  - Be non-empty and at most 64 characters
  - Contain only lowercase alphanumeric characters and dashes
  - Not start or end with a dash
  - Not contain null bytes

# Name Validation

Valid package names must:
  - Be non-empty and at most 128 characters
  - Contain only lowercase alphanumeric characters, dots, underscores, and dashes
  - Start and end with an alphanumeric character
  - Not contain null bytes

# Version Validation

Valid versions must:
  - Be non-empty and at most 128 characters
  - Contain only alphanumeric characters, dots, underscores, pluses, and dashes
  - Start with an alphanumeric character or underscore
  - Not contain null bytes

# Examples

Valid coordinates:

	"acme" / "react-conventions" @ "1.2.0"
	"platform-team" / "api.style" @ "2.0.0-rc.1"

Invalid coordinates:

	"Acme"              // uppercase scope
	"-acme"             // leading dash
	"react conventions" // spaces in name
	"@1.2.0"            // empty version after separator
*/
package name

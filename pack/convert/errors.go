// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"errors"
)

// Sentinels for the two ways a conversion can fail. Both wrap the underlying
// adapter error, so callers can still reach the *formats.ParseError or
// *formats.RenderError with errors.As, and both carry HTTP status 422
// through the httperr package because retrying the same input cannot
// succeed.
var (
	// ErrSourceUnparsable means the source bytes could not be parsed as
	// the claimed source format at all. Adapters treat unrecognized
	// structure as plain content, so this only fires on hard syntax
	// failures such as invalid YAML.
	ErrSourceUnparsable = errors.New("source document is not parsable")

	// ErrTargetUnrenderable means the canonical document cannot be
	// rendered into the target format, typically because a field the
	// target requires is missing. Supplying render hints may fix it.
	ErrTargetUnrenderable = errors.New("document cannot be rendered in the target format")
)

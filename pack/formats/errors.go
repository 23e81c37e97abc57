// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package formats

import (
	"fmt"

	"github.com/agentpack/agentpack-core/pack"
)

// ParseError reports that a byte sequence could not be interpreted as a
// document in the stated format. Reason is human-readable and safe to show
// to package authors.
type ParseError struct {
	Format pack.Format
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s document: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing %s document: %s", e.Format, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(f pack.Format, reason string, err error) *ParseError {
	return &ParseError{Format: f, Reason: reason, Err: err}
}

// RenderError reports that a document cannot be rendered into the stated
// format, typically because the format requires a field the document lacks.
type RenderError struct {
	Format pack.Format
	Reason string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s document: %s", e.Format, e.Reason)
}

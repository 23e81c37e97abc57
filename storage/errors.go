// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"errors"
	"net/http"

	"github.com/agentpack/agentpack-core/httperr"
)

// Storage error taxonomy. Each sentinel carries the HTTP status an API layer
// should answer with, so handlers can map errors without their own tables.
var (
	// ErrNotFound means no record or blob exists for the requested key.
	ErrNotFound = httperr.WithCode(errors.New("not found"), http.StatusNotFound)

	// ErrAlreadyExists means a publish tried to create a record for a
	// version that already has one. Artifacts are created exactly once.
	ErrAlreadyExists = httperr.WithCode(errors.New("artifact already exists"), http.StatusConflict)

	// ErrStorageUnavailable means a payload the catalog points at could
	// not be fetched. Transient; retryable with backoff.
	ErrStorageUnavailable = httperr.WithCode(errors.New("storage unavailable"), http.StatusServiceUnavailable)

	// ErrStorageTimeout means the backing store did not answer within the
	// caller's deadline. Transient; retryable with backoff.
	ErrStorageTimeout = httperr.WithCode(errors.New("storage timeout"), http.StatusGatewayTimeout)

	// ErrUnknownSourceFormat means a legacy archive carries no format tag
	// and no recognizable layout. Not retryable until the version is
	// republished with an explicit tag.
	ErrUnknownSourceFormat = httperr.WithCode(errors.New("unknown source format"), http.StatusUnsupportedMediaType)

	// ErrConcurrentUpgradeLost reports a lost compare-and-swap race while
	// upgrading a legacy record. It is a normal outcome, not a failure:
	// the loser discards its write and proceeds with its own document,
	// which is byte-equivalent to the winner's.
	ErrConcurrentUpgradeLost = errors.New("concurrent upgrade lost")
)

// IsRetryable reports whether the caller may retry the operation with
// backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrStorageTimeout)
}

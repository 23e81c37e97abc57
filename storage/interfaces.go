// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package storage

//go:generate mockgen -copyright_file=../.github/license-header.txt -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// Catalog is the per-version record store. Implementations must make
// CompareAndSwapArtifact atomic; it is the only synchronization primitive
// the reconciler relies on.
type Catalog interface {
	// GetArtifact returns the record for ref, or an error wrapping
	// ErrNotFound. The returned record is the caller's copy.
	GetArtifact(ctx context.Context, ref VersionRef) (*StoredArtifact, error)

	// CompareAndSwapArtifact atomically replaces the record for ref,
	// provided the stored record still equals old. It reports false
	// without error when the record changed underneath the caller. A nil
	// old asserts that no record exists yet and creates one.
	CompareAndSwapArtifact(ctx context.Context, ref VersionRef, old, updated *StoredArtifact) (bool, error)
}

// BlobStore is a content-addressed payload store. Writes are atomic and
// durable; the engine never performs partial blob writes.
type BlobStore interface {
	// GetBlob fetches a payload by digest, or an error wrapping
	// ErrNotFound.
	GetBlob(ctx context.Context, ref digest.Digest) ([]byte, error)

	// PutBlob stores a payload and returns its digest. Storing the same
	// bytes twice is a no-op returning the same digest.
	PutBlob(ctx context.Context, data []byte) (digest.Digest, error)
}

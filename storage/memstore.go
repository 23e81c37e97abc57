// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/opencontainers/go-digest"
)

// MemCatalog is an in-memory Catalog, safe for concurrent use. It backs
// tests and single-process deployments that do not need durability.
type MemCatalog struct {
	mu      sync.RWMutex
	records map[VersionRef]*StoredArtifact
}

// NewMemCatalog creates an empty in-memory catalog.
func NewMemCatalog() *MemCatalog {
	return &MemCatalog{records: make(map[VersionRef]*StoredArtifact)}
}

// GetArtifact implements Catalog.
func (c *MemCatalog) GetArtifact(ctx context.Context, ref VersionRef) (*StoredArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.records[ref]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", ref, ErrNotFound)
	}
	return record.Clone(), nil
}

// CompareAndSwapArtifact implements Catalog. Records compare by their
// canonical JSON encoding, so two snapshots of the same record are equal
// even when pointer identity differs.
func (c *MemCatalog) CompareAndSwapArtifact(ctx context.Context, ref VersionRef, old, updated *StoredArtifact) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if updated == nil {
		return false, fmt.Errorf("artifact %s: replacement record is nil", ref)
	}
	if err := updated.Validate(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, exists := c.records[ref]
	if old == nil {
		if exists {
			return false, nil
		}
		c.records[ref] = updated.Clone()
		return true, nil
	}
	if !exists {
		return false, fmt.Errorf("artifact %s: %w", ref, ErrNotFound)
	}

	same, err := recordsEqual(current, old)
	if err != nil {
		return false, err
	}
	if !same {
		return false, nil
	}
	c.records[ref] = updated.Clone()
	return true, nil
}

// Len reports the number of stored records.
func (c *MemCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func recordsEqual(a, b *StoredArtifact) (bool, error) {
	aj, err := json.Marshal(a)
	if err != nil {
		return false, fmt.Errorf("encoding stored record: %w", err)
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false, fmt.Errorf("encoding expected record: %w", err)
	}
	return bytes.Equal(aj, bj), nil
}

// MemBlobStore is an in-memory content-addressed BlobStore, safe for
// concurrent use.
type MemBlobStore struct {
	mu    sync.RWMutex
	blobs map[digest.Digest][]byte
}

// NewMemBlobStore creates an empty in-memory blob store.
func NewMemBlobStore() *MemBlobStore {
	return &MemBlobStore{blobs: make(map[digest.Digest][]byte)}
}

// GetBlob implements BlobStore.
func (s *MemBlobStore) GetBlob(ctx context.Context, ref digest.Digest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", ref, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// PutBlob implements BlobStore.
func (s *MemBlobStore) PutBlob(ctx context.Context, data []byte) (digest.Digest, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := digest.FromBytes(data)
	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = stored
	return ref, nil
}

// Delete removes a blob. Tests use it to simulate a store that lost a
// payload the catalog still references.
func (s *MemBlobStore) Delete(ref digest.Digest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
}

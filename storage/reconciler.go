// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage reconciles stored package versions with the canonical
// document model. A version is stored either as a canonical document or as
// a legacy archive blob; the reconciler serves both and can upgrade legacy
// records in place, racing safely against concurrent resolvers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentpack/agentpack-core/logging"
	"github.com/agentpack/agentpack-core/pack"
)

// Config carries the reconciler's policy knobs. Lazy migration is explicit
// configuration rather than process-global state so concurrent tests can
// run with different policies.
type Config struct {
	// LazyMigrate upgrades every successfully parsed legacy archive
	// during Resolve, even when the caller does not force persistence.
	LazyMigrate bool

	// Clock supplies the StoredAt timestamp for upgrades and publishes.
	// Defaults to time.Now.
	Clock func() time.Time

	// Logger receives upgrade and race events. Defaults to logging.New().
	Logger *slog.Logger

	// VerifyBlob, when set, runs on every fetched archive before parsing.
	// A verification failure fails the resolve and leaves the record
	// untouched.
	VerifyBlob func(ctx context.Context, ref VersionRef, data []byte) error
}

// Reconciler serves canonical documents for stored versions, creates
// records at publish time, and performs the legacy-to-canonical upgrade.
type Reconciler struct {
	catalog Catalog
	blobs   BlobStore
	cfg     Config
}

// NewReconciler creates a reconciler over the given catalog and blob store.
func NewReconciler(catalog Catalog, blobs BlobStore, cfg Config) (*Reconciler, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	return &Reconciler{catalog: catalog, blobs: blobs, cfg: cfg}, nil
}

// Resolve returns the canonical document for ref. Canonical records answer
// without touching the blob store. Legacy records are fetched, parsed, and,
// when forcePersist or the lazy-migration policy asks for it, upgraded in
// place with a compare-and-swap; losing that race is not an error, the
// caller still receives its own byte-equivalent document.
func (r *Reconciler) Resolve(ctx context.Context, ref VersionRef, forcePersist bool) (*pack.Document, error) {
	record, err := r.catalog.GetArtifact(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}

	if record.Canonical() {
		return record.Document.Clone(), nil
	}

	doc, err := r.loadLegacy(ctx, ref, record)
	if err != nil {
		return nil, err
	}

	if forcePersist || r.cfg.LazyMigrate {
		if err := r.upgrade(ctx, ref, record, doc); err != nil {
			if errors.Is(err, ErrConcurrentUpgradeLost) {
				r.cfg.Logger.Debug("concurrent upgrade lost, another resolver won",
					"ref", ref.String())
			} else {
				r.cfg.Logger.Warn("failed to persist canonical upgrade",
					"ref", ref.String(), "error", err)
			}
		}
	}
	return doc, nil
}

// loadLegacy fetches and parses the archive behind a legacy record. The
// record itself is never modified here, so a failed parse leaves the
// version servable in its original format.
func (r *Reconciler) loadLegacy(ctx context.Context, ref VersionRef, record *StoredArtifact) (*pack.Document, error) {
	data, err := r.blobs.GetBlob(ctx, record.BlobRef)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("fetching archive for %s: %w: %w", ref, ErrStorageTimeout, err)
		case errors.Is(err, ErrNotFound):
			// The record points at this blob, so its absence is a store
			// fault, not a missing artifact.
			return nil, fmt.Errorf("fetching archive for %s: %w: %w", ref, ErrStorageUnavailable, err)
		default:
			return nil, fmt.Errorf("fetching archive for %s: %w", ref, err)
		}
	}

	if r.cfg.VerifyBlob != nil {
		if err := r.cfg.VerifyBlob(ctx, ref, data); err != nil {
			return nil, fmt.Errorf("verifying archive for %s: %w", ref, err)
		}
	}

	doc, err := ParseArchive(data, record.DiscoveredFormat)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}
	return doc, nil
}

// upgrade replaces a legacy record with its canonical form. The write is a
// compare-and-swap against the record the resolve started from; any
// concurrent replacement wins and this writer discards its copy.
func (r *Reconciler) upgrade(ctx context.Context, ref VersionRef, record *StoredArtifact, doc *pack.Document) error {
	updated := record.Upgraded(doc.Clone(), r.cfg.Clock().UTC())
	ok, err := r.catalog.CompareAndSwapArtifact(ctx, ref, record, updated)
	if err != nil {
		return fmt.Errorf("persisting canonical record for %s: %w", ref, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrConcurrentUpgradeLost)
	}
	r.cfg.Logger.Debug("upgraded legacy archive to canonical",
		"ref", ref.String(), "format", string(doc.SourceFormat))
	return nil
}

// PublishCanonical creates the canonical record for a new version. Records
// are created exactly once; republishing an existing version fails with
// ErrAlreadyExists.
func (r *Reconciler) PublishCanonical(ctx context.Context, ref VersionRef, doc *pack.Document) (*StoredArtifact, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", ref, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("publishing %s: nil document", ref)
	}

	stored := doc.Clone()
	stored.Normalize()
	if err := stored.Validate(); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", ref, err)
	}

	record := &StoredArtifact{
		Ref:      ref,
		Kind:     KindCanonical,
		Document: stored,
		StoredAt: r.cfg.Clock().UTC(),
	}
	return r.createRecord(ctx, ref, record)
}

// PublishArchive stores an opaque legacy archive blob and creates its
// record. The format tag is optional; without it the archive layout is
// inferred at resolve time.
func (r *Reconciler) PublishArchive(ctx context.Context, ref VersionRef, data []byte, format pack.Format) (*StoredArtifact, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", ref, err)
	}
	if format != "" && !format.Valid() {
		return nil, fmt.Errorf("publishing %s: %w: %q", ref, ErrUnknownSourceFormat, format)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("publishing %s: empty archive", ref)
	}

	blobRef, err := r.blobs.PutBlob(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("storing archive blob for %s: %w", ref, err)
	}

	record := &StoredArtifact{
		Ref:              ref,
		Kind:             KindLegacyArchive,
		BlobRef:          blobRef,
		ContentType:      ContentTypeArchive,
		DiscoveredFormat: format,
		StoredAt:         r.cfg.Clock().UTC(),
	}
	return r.createRecord(ctx, ref, record)
}

func (r *Reconciler) createRecord(ctx context.Context, ref VersionRef, record *StoredArtifact) (*StoredArtifact, error) {
	created, err := r.catalog.CompareAndSwapArtifact(ctx, ref, nil, record)
	if err != nil {
		return nil, fmt.Errorf("creating record for %s: %w", ref, err)
	}
	if !created {
		return nil, fmt.Errorf("publishing %s: %w", ref, ErrAlreadyExists)
	}
	return record.Clone(), nil
}

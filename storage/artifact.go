// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/agentpack/agentpack-core/pack"
)

// Kind distinguishes the two stored artifact variants.
type Kind string

// Artifact kinds.
const (
	// KindCanonical holds a parsed canonical document inline.
	KindCanonical Kind = "canonical"
	// KindLegacyArchive references an opaque archive blob that has not
	// been converted to the canonical representation.
	KindLegacyArchive Kind = "legacy-archive"
)

// Content types tagging persisted payloads.
const (
	// ContentTypeDocument tags the canonical JSON encoding of a document.
	ContentTypeDocument = "application/vnd.agentpack.document.v1+json"
	// ContentTypeArchive tags a legacy tar.gz configuration tree.
	ContentTypeArchive = "application/vnd.agentpack.archive.v1.tar+gzip"
)

// StoredArtifact is the single record a catalog keeps per package version.
// A version starts as either variant at publish time; the only mutation it
// ever sees is the upgrade from legacy archive to canonical, and a canonical
// record never reverts.
type StoredArtifact struct {
	Ref  VersionRef `json:"ref"`
	Kind Kind       `json:"kind"`

	// Document is set on canonical records.
	Document *pack.Document `json:"document,omitempty"`

	// BlobRef addresses the archive payload of a legacy record. It is kept
	// on upgraded records as provenance; the blob itself is never deleted
	// by the upgrade.
	BlobRef     digest.Digest `json:"blobRef,omitempty"`
	ContentType string        `json:"contentType,omitempty"`
	// DiscoveredFormat is the explicit format tag of a legacy archive,
	// empty when the format must be inferred from the archive layout.
	DiscoveredFormat pack.Format `json:"discoveredFormat,omitempty"`

	StoredAt time.Time `json:"storedAt"`
}

// Canonical reports whether the record already holds a canonical document.
func (a *StoredArtifact) Canonical() bool {
	return a.Kind == KindCanonical
}

// Upgraded returns the canonical replacement for a legacy record. The blob
// reference, content type, and discovered format are carried over as
// provenance of what the record was upgraded from.
func (a *StoredArtifact) Upgraded(doc *pack.Document, now time.Time) *StoredArtifact {
	return &StoredArtifact{
		Ref:              a.Ref,
		Kind:             KindCanonical,
		Document:         doc,
		BlobRef:          a.BlobRef,
		ContentType:      a.ContentType,
		DiscoveredFormat: a.DiscoveredFormat,
		StoredAt:         now,
	}
}

// Clone returns a deep copy of the record.
func (a *StoredArtifact) Clone() *StoredArtifact {
	if a == nil {
		return nil
	}
	out := *a
	if a.Document != nil {
		out.Document = a.Document.Clone()
	}
	return &out
}

// Validate checks that the record carries the fields its kind requires.
func (a *StoredArtifact) Validate() error {
	if err := a.Ref.Validate(); err != nil {
		return fmt.Errorf("invalid artifact ref: %w", err)
	}
	switch a.Kind {
	case KindCanonical:
		if a.Document == nil {
			return fmt.Errorf("canonical artifact %s has no document", a.Ref)
		}
	case KindLegacyArchive:
		if a.BlobRef == "" {
			return fmt.Errorf("legacy artifact %s has no blob reference", a.Ref)
		}
		if a.DiscoveredFormat != "" && !a.DiscoveredFormat.Valid() {
			return fmt.Errorf("legacy artifact %s has unknown format tag %q", a.Ref, a.DiscoveredFormat)
		}
	default:
		return fmt.Errorf("artifact %s has unknown kind %q", a.Ref, a.Kind)
	}
	return nil
}

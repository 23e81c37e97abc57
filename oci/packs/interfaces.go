// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package packs

//go:generate mockgen -copyright_file=../../.github/license-header.txt -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/storage"
)

// RegistryClient provides remote OCI registry operations for packs.
type RegistryClient interface {
	// Push pushes an artifact from the local store to a remote registry.
	Push(ctx context.Context, store *Store, artifactDigest digest.Digest, ref string) error

	// Pull pulls an artifact from a remote registry into the local store.
	Pull(ctx context.Context, store *Store, ref string) (digest.Digest, error)
}

// PackPackager creates OCI artifacts from configuration directories.
type PackPackager interface {
	// Package bundles a configuration directory into an OCI artifact in
	// the local store.
	Package(ctx context.Context, dir string, ref storage.VersionRef, opts PackageOptions) (*PackageResult, error)
}

// PackageOptions configures pack packaging.
type PackageOptions struct {
	// Epoch is the timestamp to use for reproducible builds.
	Epoch time.Time

	// Format pins the configuration format of the directory. When empty
	// the format is inferred from the file layout.
	Format pack.Format
}

// PackageResult contains the result of packaging a configuration directory.
type PackageResult struct {
	IndexDigest    digest.Digest
	ManifestDigest digest.Digest
	ConfigDigest   digest.Digest
	LayerDigest    digest.Digest
	Config         *PackConfig
}

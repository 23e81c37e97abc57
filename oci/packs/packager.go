// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package packs

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/agentpack/agentpack-core/archive"
	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/storage"
)

// Packager creates reproducible OCI artifacts from configuration
// directories.
type Packager struct {
	store *Store
}

// Compile-time assertion that Packager implements PackPackager.
var _ PackPackager = (*Packager)(nil)

// NewPackager creates a new packager writing into the given store.
// Panics if store is nil.
func NewPackager(store *Store) *Packager {
	if store == nil {
		panic("packs: NewPackager called with nil store")
	}
	return &Packager{store: store}
}

// DefaultPackageOptions returns default packaging options.
// Respects SOURCE_DATE_EPOCH for reproducible builds.
func DefaultPackageOptions() PackageOptions {
	epoch := time.Unix(0, 0).UTC()

	if sde := os.Getenv("SOURCE_DATE_EPOCH"); sde != "" {
		if ts, err := strconv.ParseInt(sde, 10, 64); err == nil {
			epoch = time.Unix(ts, 0).UTC()
		}
	}

	return PackageOptions{Epoch: epoch}
}

// Package bundles a configuration directory into an OCI artifact in the
// local store. The tree must parse as one of the supported formats, either
// inferred from its layout or pinned by opts.Format; nothing is stored for
// a tree that fails extraction.
func (p *Packager) Package(
	ctx context.Context, dir string, ref storage.VersionRef, opts PackageOptions,
) (*PackageResult, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if opts.Epoch.IsZero() {
		opts.Epoch = DefaultPackageOptions().Epoch
	}

	files, err := collectPackFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("reading pack directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("pack directory contains no files: %s", dir)
	}

	archiveOpts := archive.Options{Epoch: opts.Epoch}
	uncompressed, err := archive.Tar(files, archiveOpts)
	if err != nil {
		return nil, fmt.Errorf("creating content layer: %w", err)
	}
	layerBytes, err := archive.Gzip(uncompressed, archiveOpts)
	if err != nil {
		return nil, fmt.Errorf("creating content layer: %w", err)
	}

	doc, err := storage.ParseArchive(layerBytes, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("validating pack content: %w", err)
	}
	format := doc.SourceFormat

	layerDigest, err := p.store.PutBlob(ctx, layerBytes)
	if err != nil {
		return nil, fmt.Errorf("storing layer blob: %w", err)
	}

	ociConfig, packConfig := createOCIConfig(ref, format, files, uncompressed, opts)
	configBytes, err := json.Marshal(ociConfig)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	configDigest, err := p.store.PutBlob(ctx, configBytes)
	if err != nil {
		return nil, fmt.Errorf("storing config blob: %w", err)
	}

	manifest := createManifest(configBytes, configDigest, layerBytes, layerDigest, ref, format, opts)
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}

	manifestDigest, err := p.store.PutManifest(ctx, manifestBytes)
	if err != nil {
		return nil, fmt.Errorf("storing manifest: %w", err)
	}

	indexDigest, err := p.createIndex(ctx, manifestDigest, int64(len(manifestBytes)), manifest.Annotations)
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	return &PackageResult{
		IndexDigest:    indexDigest,
		ManifestDigest: manifestDigest,
		ConfigDigest:   configDigest,
		LayerDigest:    layerDigest,
		Config:         packConfig,
	}, nil
}

// collectPackFiles walks a configuration directory and returns its regular
// files. Hidden entries are kept since most formats live under dot
// directories such as .cursor or .github; version control metadata is
// skipped.
func collectPackFiles(dir string) ([]archive.File, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pack directory not found: %s", dir)
		}
		return nil, fmt.Errorf("accessing pack directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	var files []archive.File
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == dir {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			switch filepath.Base(relPath) {
			case ".git", ".hg", ".svn":
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return fmt.Errorf("symlinks not allowed in pack directory: %s", relPath)
		}
		if !d.Type().IsRegular() {
			return fmt.Errorf("non-regular file not allowed in pack directory: %s", relPath)
		}

		content, err := os.ReadFile(path) //#nosec G304 -- path from WalkDir, symlink-checked
		if err != nil {
			return fmt.Errorf("reading %s: %w", relPath, err)
		}

		// Modes are not carried; the layer digest must depend only on
		// paths and contents.
		files = append(files, archive.File{Path: relPath, Data: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking pack directory: %w", err)
	}
	return files, nil
}

// createOCIConfig builds the OCI image config carrying pack metadata in
// labels and the uncompressed layer digest in rootfs diff_ids.
func createOCIConfig(
	ref storage.VersionRef,
	format pack.Format,
	files []archive.File,
	uncompressedTar []byte,
	opts PackageOptions,
) (*ocispec.Image, *PackConfig) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	slices.Sort(paths)

	packConfig := &PackConfig{
		Scope:   ref.Scope,
		Name:    ref.Name,
		Version: ref.Version,
		Format:  string(format),
		Files:   paths,
	}

	filesJSON, _ := json.Marshal(packConfig.Files)

	epoch := opts.Epoch
	ociConfig := &ocispec.Image{
		Created: &epoch,
		// Configuration trees are platform neutral.
		Platform: ocispec.Platform{
			Architecture: "unknown",
			OS:           "unknown",
		},
		Config: ocispec.ImageConfig{
			Labels: map[string]string{
				LabelPackScope:   packConfig.Scope,
				LabelPackName:    packConfig.Name,
				LabelPackVersion: packConfig.Version,
				LabelPackFormat:  packConfig.Format,
				LabelPackFiles:   string(filesJSON),
			},
		},
		RootFS: ocispec.RootFS{
			Type:    "layers",
			DiffIDs: []digest.Digest{digest.FromBytes(uncompressedTar)},
		},
		History: []ocispec.History{
			{Created: &epoch, CreatedBy: "agentpack package"},
		},
	}

	return ociConfig, packConfig
}

// createManifest creates the OCI manifest. The layer keeps the archive
// media type the storage layer records, so a pulled layer feeds directly
// into storage.ParseArchive.
func createManifest(
	configBytes []byte,
	configDigest digest.Digest,
	layerBytes []byte,
	layerDigest digest.Digest,
	ref storage.VersionRef,
	format pack.Format,
	opts PackageOptions,
) *ocispec.Manifest {
	return &ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactTypePack,
		Config: ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageConfig,
			Digest:    configDigest,
			Size:      int64(len(configBytes)),
		},
		Layers: []ocispec.Descriptor{
			{
				MediaType: storage.ContentTypeArchive,
				Digest:    layerDigest,
				Size:      int64(len(layerBytes)),
			},
		},
		Annotations: packAnnotations(ref, format, opts.Epoch),
	}
}

// packAnnotations builds the annotation set stamped on both the manifest
// and the index.
func packAnnotations(ref storage.VersionRef, format pack.Format, epoch time.Time) map[string]string {
	return map[string]string{
		ocispec.AnnotationCreated: epoch.Format(time.RFC3339),
		AnnotationPackScope:       ref.Scope,
		AnnotationPackName:        ref.Name,
		AnnotationPackVersion:     ref.Version,
		AnnotationPackFormat:      string(format),
	}
}

// createIndex wraps the manifest in a one-entry image index so pack
// references resolve uniformly whether a registry returns an index or a
// bare manifest.
func (p *Packager) createIndex(
	ctx context.Context, manifestDigest digest.Digest, manifestSize int64, annotations map[string]string,
) (digest.Digest, error) {
	index := ocispec.Index{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageIndex,
		ArtifactType: ArtifactTypePack,
		Manifests: []ocispec.Descriptor{
			{
				MediaType:    ocispec.MediaTypeImageManifest,
				ArtifactType: ArtifactTypePack,
				Digest:       manifestDigest,
				Size:         manifestSize,
			},
		},
		Annotations: annotations,
	}

	indexBytes, err := json.Marshal(index)
	if err != nil {
		return "", fmt.Errorf("marshaling index: %w", err)
	}

	indexDigest, err := p.store.PutManifest(ctx, indexBytes)
	if err != nil {
		return "", fmt.Errorf("storing index: %w", err)
	}

	return indexDigest, nil
}

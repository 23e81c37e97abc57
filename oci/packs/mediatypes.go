// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package packs

import (
	"encoding/json"
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/agentpack/agentpack-core/storage"
)

// ArtifactTypePack identifies pack artifacts in manifests and indexes.
const ArtifactTypePack = "dev.agentpack.packs.v1"

// Annotation keys for pack metadata in manifests.
const (
	// AnnotationPackScope is the annotation key for the publisher scope.
	AnnotationPackScope = "dev.agentpack.packs.scope"

	// AnnotationPackName is the annotation key for the pack name.
	AnnotationPackName = "dev.agentpack.packs.name"

	// AnnotationPackVersion is the annotation key for the pack version.
	AnnotationPackVersion = "dev.agentpack.packs.version"

	// AnnotationPackFormat is the annotation key for the configuration
	// format of the packaged tree.
	AnnotationPackFormat = "dev.agentpack.packs.format"
)

// Label keys for pack metadata in OCI image configs.
const (
	// LabelPackScope is the label key for the publisher scope.
	LabelPackScope = "dev.agentpack.packs.scope"

	// LabelPackName is the label key for the pack name.
	LabelPackName = "dev.agentpack.packs.name"

	// LabelPackVersion is the label key for the pack version.
	LabelPackVersion = "dev.agentpack.packs.version"

	// LabelPackFormat is the label key for the configuration format.
	LabelPackFormat = "dev.agentpack.packs.format"

	// LabelPackFiles is the label key for the packaged file paths (JSON array).
	LabelPackFiles = "dev.agentpack.packs.files"
)

// PackConfig is pack metadata extracted from OCI image config labels.
type PackConfig struct {
	Scope   string   `json:"scope"`
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Format  string   `json:"format,omitempty"`
	Files   []string `json:"files"`
}

// Ref reassembles the version reference the config describes.
func (c *PackConfig) Ref() (storage.VersionRef, error) {
	ref := storage.VersionRef{Scope: c.Scope, Name: c.Name, Version: c.Version}
	if err := ref.Validate(); err != nil {
		return storage.VersionRef{}, fmt.Errorf("config does not describe a pack version: %w", err)
	}
	return ref, nil
}

// PackConfigFromImageConfig extracts PackConfig from OCI image config labels.
func PackConfigFromImageConfig(imgConfig *ocispec.Image) (*PackConfig, error) {
	if imgConfig == nil {
		return nil, fmt.Errorf("image config is nil")
	}

	labels := imgConfig.Config.Labels
	if labels == nil {
		return nil, fmt.Errorf("oci config has no labels")
	}

	config := &PackConfig{
		Scope:   labels[LabelPackScope],
		Name:    labels[LabelPackName],
		Version: labels[LabelPackVersion],
		Format:  labels[LabelPackFormat],
	}

	if config.Name == "" {
		return nil, fmt.Errorf("pack name is required in labels")
	}

	if filesJSON := labels[LabelPackFiles]; filesJSON != "" {
		if err := json.Unmarshal([]byte(filesJSON), &config.Files); err != nil {
			return nil, fmt.Errorf("parsing files: %w", err)
		}
	}

	return config, nil
}

// RefFromAnnotations reassembles the version reference stamped on a pack
// manifest or index by Package.
func RefFromAnnotations(annotations map[string]string) (storage.VersionRef, error) {
	ref := storage.VersionRef{
		Scope:   annotations[AnnotationPackScope],
		Name:    annotations[AnnotationPackName],
		Version: annotations[AnnotationPackVersion],
	}
	if err := ref.Validate(); err != nil {
		return storage.VersionRef{}, fmt.Errorf("annotations do not describe a pack version: %w", err)
	}
	return ref, nil
}

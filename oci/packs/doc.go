// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package packs publishes configuration packs as OCI artifacts and caches
them in a local OCI Image Layout.

A pack artifact carries one tar.gz layer holding the configuration tree of
a single version, an image config whose labels describe the pack, and a
one-entry image index so references resolve the same way regardless of
which node a registry hands back. The layer uses the same media type the
storage layer records for legacy archives, so a pulled layer feeds directly
into storage.ParseArchive.

# Media Types and Constants

	// Artifact type identifies a pack manifest
	packs.ArtifactTypePack // "dev.agentpack.packs.v1"

	// Annotations carry the version reference in manifests
	packs.AnnotationPackScope
	packs.AnnotationPackVersion

	// Labels carry the version reference in OCI image configs
	packs.LabelPackName
	packs.LabelPackFiles

# Local Storage

Store wraps an OCI Image Layout on disk and satisfies storage.BlobStore,
so a Reconciler can resolve versions straight out of the local pack cache.

# Stability

This package is Alpha. Breaking changes are possible between minor versions.
*/
package packs

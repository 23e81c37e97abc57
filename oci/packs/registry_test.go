// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package packs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry"

	"github.com/agentpack/agentpack-core/storage"
)

func TestNewRegistry_Default(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.NotNil(t, reg)
	assert.NotNil(t, reg.credStore, "default credential store should be set")
	assert.False(t, reg.plainHTTP, "plainHTTP should default to false")
}

func TestNewRegistry_WithOptions(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(
		WithPlainHTTP(true),
	)
	require.NoError(t, err)
	assert.True(t, reg.plainHTTP, "plainHTTP should be set by option")
}

func TestParseReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ref     string
		wantErr bool
	}{
		{"valid tag", "ghcr.io/acme/react-conventions:1.2.0", false},
		{"valid digest", "ghcr.io/acme/react-conventions@sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", false},
		{"missing tag or digest", "ghcr.io/acme/react-conventions", true},
		{"invalid reference", ":::invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseReference(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIsManifestMediaType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mediaType string
		want      bool
	}{
		{"OCI manifest", ocispec.MediaTypeImageManifest, true},
		{"OCI index", ocispec.MediaTypeImageIndex, true},
		{"Docker manifest", "application/vnd.docker.distribution.manifest.v2+json", true},
		{"Docker manifest list", "application/vnd.docker.distribution.manifest.list.v2+json", true},
		{"OCI config", ocispec.MediaTypeImageConfig, false},
		{"archive layer", storage.ContentTypeArchive, false},
		{"octet-stream", "application/octet-stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isManifestMediaType(tt.mediaType))
		})
	}
}

// --- validatingTarget tests ---

func TestValidatingTarget_RejectOversizedContent(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	vt := newValidatingTarget(memory.New())

	oversized := make([]byte, MaxManifestSize+1)
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(oversized),
		Size:      int64(len(oversized)),
	}

	err := vt.Push(ctx, desc, bytes.NewReader(oversized))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")
}

func TestValidatingTarget_RejectLyingDescriptor(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	vt := newValidatingTarget(memory.New())

	oversized := make([]byte, MaxManifestSize+1)
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(oversized),
		Size:      10, // lying
	}

	err := vt.Push(ctx, desc, bytes.NewReader(oversized))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")
}

func TestValidatingTarget_RejectNegativeSize(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	vt := newValidatingTarget(memory.New())

	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromString("test"),
		Size:      -1,
	}

	err := vt.Push(ctx, desc, bytes.NewReader([]byte("test")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid negative content size")
}

func TestValidatingTarget_RejectDigestMismatch(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	vt := newValidatingTarget(memory.New())

	content := []byte(`{"schemaVersion": 2}`)
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromString("something else entirely"),
		Size:      int64(len(content)),
	}

	err := vt.Push(ctx, desc, bytes.NewReader(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestValidatingTarget_AcceptValidContent(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	inner := memory.New()
	vt := newValidatingTarget(inner)

	content := []byte(`{"schemaVersion": 2}`)
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(content),
		Size:      int64(len(content)),
	}

	err := vt.Push(ctx, desc, bytes.NewReader(content))
	require.NoError(t, err)

	exists, err := inner.Exists(ctx, desc)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestValidateManifestCounts(t *testing.T) {
	t.Parallel()

	t.Run("too many manifests in index", func(t *testing.T) {
		t.Parallel()
		index := ocispec.Index{
			MediaType: ocispec.MediaTypeImageIndex,
			Manifests: make([]ocispec.Descriptor, maxIndexManifests+1),
		}
		data, err := json.Marshal(index)
		require.NoError(t, err)

		err = validateManifestCounts(ocispec.MediaTypeImageIndex, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})

	t.Run("too many layers in manifest", func(t *testing.T) {
		t.Parallel()
		manifest := ocispec.Manifest{
			MediaType: ocispec.MediaTypeImageManifest,
			Layers:    make([]ocispec.Descriptor, maxManifestLayers+1),
		}
		data, err := json.Marshal(manifest)
		require.NoError(t, err)

		err = validateManifestCounts(ocispec.MediaTypeImageManifest, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})

	t.Run("valid counts", func(t *testing.T) {
		t.Parallel()
		manifest := ocispec.Manifest{
			MediaType: ocispec.MediaTypeImageManifest,
			Layers:    make([]ocispec.Descriptor, 2),
		}
		data, err := json.Marshal(manifest)
		require.NoError(t, err)

		err = validateManifestCounts(ocispec.MediaTypeImageManifest, data)
		require.NoError(t, err)
	})
}

// --- Integration tests using in-memory target ---

func newTestRegistry(t *testing.T, remoteStore *memory.Store) *Registry {
	t.Helper()
	return &Registry{
		newTarget: func(_ registry.Reference) (oras.Target, error) {
			return remoteStore, nil
		},
	}
}

func TestPushPull_PackRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	remoteStore := memory.New()

	localStore := newTestStore(t)
	result, err := NewPackager(localStore).Package(ctx, cursorTree(t), testRef, PackageOptions{})
	require.NoError(t, err)

	reg := newTestRegistry(t, remoteStore)
	ref := "example.com/acme/react-conventions:1.2.0"

	require.NoError(t, reg.Push(ctx, localStore, result.IndexDigest, ref))

	// Pull into a fresh store.
	pullStore := newTestStore(t)
	pulledDigest, err := reg.Pull(ctx, pullStore, ref)
	require.NoError(t, err)
	assert.Equal(t, result.IndexDigest, pulledDigest)

	isIdx, err := pullStore.IsIndex(ctx, pulledDigest)
	require.NoError(t, err)
	assert.True(t, isIdx)

	index, err := pullStore.GetIndex(ctx, pulledDigest)
	require.NoError(t, err)
	require.Len(t, index.Manifests, 1)
	assert.Equal(t, result.ManifestDigest, index.Manifests[0].Digest)

	manifestBytes, err := pullStore.GetManifest(ctx, result.ManifestDigest)
	require.NoError(t, err)
	var manifest ocispec.Manifest
	require.NoError(t, json.Unmarshal(manifestBytes, &manifest))
	gotRef, err := RefFromAnnotations(manifest.Annotations)
	require.NoError(t, err)
	assert.Equal(t, testRef, gotRef)

	// The pulled layer still parses as a configuration archive.
	layer, err := pullStore.GetBlob(ctx, result.LayerDigest)
	require.NoError(t, err)
	doc, err := storage.ParseArchive(layer, "")
	require.NoError(t, err)
	assert.Equal(t, "react-pack", doc.Metadata.Name)

	resolved, err := pullStore.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, pulledDigest, resolved)
}

func TestPull_RejectsOversizedManifest(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	remoteStore := memory.New()

	// A structurally valid manifest inflated past the manifest size cap.
	manifest := ocispec.Manifest{
		MediaType: ocispec.MediaTypeImageManifest,
		Annotations: map[string]string{
			"payload": strings.Repeat("x", int(MaxManifestSize)),
		},
	}
	manifestBytes, err := json.Marshal(manifest)
	require.NoError(t, err)
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(manifestBytes),
		Size:      int64(len(manifestBytes)),
	}
	require.NoError(t, remoteStore.Push(ctx, desc, bytes.NewReader(manifestBytes)))
	require.NoError(t, remoteStore.Tag(ctx, desc, "1.0.0"))

	reg := newTestRegistry(t, remoteStore)
	_, err = reg.Pull(ctx, newTestStore(t), "example.com/acme/huge:1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")
}

func TestPull_VerifyHookBlocksTagging(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	remoteStore := memory.New()

	localStore := newTestStore(t)
	result, err := NewPackager(localStore).Package(ctx, cursorTree(t), testRef, PackageOptions{})
	require.NoError(t, err)

	ref := "example.com/acme/react-conventions:1.2.0"
	reg := newTestRegistry(t, remoteStore)
	require.NoError(t, reg.Push(ctx, localStore, result.IndexDigest, ref))

	WithPullVerify(func(context.Context, string) error {
		return errors.New("signature did not match")
	})(reg)

	pullStore := newTestStore(t)
	_, err = reg.Pull(ctx, pullStore, ref)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verifying pulled artifact")

	// The rejected artifact must not be reachable by reference.
	_, err = pullStore.Resolve(ctx, ref)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPull_VerifyHookReceivesReference(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	remoteStore := memory.New()

	localStore := newTestStore(t)
	result, err := NewPackager(localStore).Package(ctx, cursorTree(t), testRef, PackageOptions{})
	require.NoError(t, err)

	ref := "example.com/acme/react-conventions:1.2.0"
	reg := newTestRegistry(t, remoteStore)
	require.NoError(t, reg.Push(ctx, localStore, result.IndexDigest, ref))

	var checked string
	WithPullVerify(func(_ context.Context, r string) error {
		checked = r
		return nil
	})(reg)

	pullStore := newTestStore(t)
	pulledDigest, err := reg.Pull(ctx, pullStore, ref)
	require.NoError(t, err)
	assert.Equal(t, result.IndexDigest, pulledDigest)
	assert.Equal(t, ref, checked, "hook should receive the requested reference")

	resolved, err := pullStore.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, pulledDigest, resolved)
}

func TestPush_InvalidReference(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	localStore := newTestStore(t)

	reg := newTestRegistry(t, memory.New())
	err := reg.Push(ctx, localStore, digest.FromString("test"), ":::invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing reference")
}

func TestPull_InvalidReference(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	localStore := newTestStore(t)

	reg := newTestRegistry(t, memory.New())
	_, err := reg.Pull(ctx, localStore, ":::invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing reference")
}

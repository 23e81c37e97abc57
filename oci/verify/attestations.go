// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	containerdigest "github.com/opencontainers/go-digest"
	"github.com/sigstore/sigstore-go/pkg/bundle"
)

// bundlesFromAttestations retrieves attestation bundles published as
// referrer artifacts of the image. GitHub also exposes attestations
// through its own API, which is not consulted here.
func bundlesFromAttestations(imageRef string, keychain authn.Keychain) ([]sigstoreBundle, error) {
	var bundles []sigstoreBundle

	opts := []remote.Option{remote.WithAuthFromKeychain(keychain)}

	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return nil, fmt.Errorf("parsing image reference: %w", err)
	}

	desc, err := remote.Get(ref, opts...)
	if err != nil {
		return nil, fmt.Errorf("getting image descriptor: %w", err)
	}

	digest := ref.Context().Digest(desc.Digest.String())
	digestBytes, err := hex.DecodeString(desc.Digest.Hex)
	if err != nil {
		return nil, fmt.Errorf("decoding image digest: %w", err)
	}

	referrers, err := remote.Referrers(digest, opts...)
	if err != nil {
		return nil, fmt.Errorf("getting referrers: %w, %s", ErrProvenanceNotFoundOrIncomplete, err.Error())
	}

	refManifest, err := referrers.IndexManifest()
	if err != nil {
		return nil, fmt.Errorf("getting referrers manifest: %w, %s", ErrProvenanceNotFoundOrIncomplete, err.Error())
	}

	for _, refDesc := range refManifest.Manifests {
		if !strings.HasPrefix(refDesc.ArtifactType, "application/vnd.dev.sigstore.bundle") {
			continue
		}

		refImg, err := remote.Image(ref.Context().Digest(refDesc.Digest.String()), opts...)
		if err != nil {
			slog.Debug("error getting referrer image", "error", err)
			continue
		}
		layers, err := refImg.Layers()
		if err != nil || len(layers) == 0 {
			slog.Debug("error getting referrer layers", "error", err)
			continue
		}
		layer0, err := layers[0].Uncompressed()
		if err != nil {
			slog.Debug("error uncompressing referrer layer", "error", err)
			continue
		}
		bundleBytes, err := io.ReadAll(io.LimitReader(layer0, maxAttestationBytes))
		if err != nil {
			slog.Debug("error reading referrer layer", "error", err)
			continue
		}

		b := &bundle.Bundle{}
		if err := b.UnmarshalJSON(bundleBytes); err != nil {
			slog.Debug("error unmarshalling bundle", "error", err)
			continue
		}

		bundles = append(bundles, sigstoreBundle{
			bundle:      b,
			digestBytes: digestBytes,
			digestAlgo:  containerdigest.Canonical.String(),
		})
	}

	if len(bundles) == 0 {
		return nil, ErrProvenanceNotFoundOrIncomplete
	}
	return bundles, nil
}

// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	protobundle "github.com/sigstore/protobuf-specs/gen/pb-go/bundle/v1"
	protocommon "github.com/sigstore/protobuf-specs/gen/pb-go/common/v1"
	protorekor "github.com/sigstore/protobuf-specs/gen/pb-go/rekor/v1"
	"github.com/sigstore/sigstore-go/pkg/bundle"
)

// simpleSigningMediaType marks cosign signature layers.
const simpleSigningMediaType = "application/vnd.dev.cosign.simplesigning.v1+json"

// sigstoreBundle pairs an assembled bundle with the digest it signs over.
type sigstoreBundle struct {
	bundle      *bundle.Bundle
	digestBytes []byte
	digestAlgo  string
}

// discoverBundles finds provenance for an image, first through the cosign
// tag convention, then through the referrers API attestation layout.
func discoverBundles(imageRef string, keychain authn.Keychain) ([]sigstoreBundle, error) {
	bundles, err := bundlesFromSignedImage(imageRef, keychain)
	if errors.Is(err, ErrProvenanceNotFoundOrIncomplete) {
		return bundlesFromAttestations(imageRef, keychain)
	} else if err != nil {
		return nil, err
	}
	return bundles, nil
}

// bundlesFromSignedImage assembles sigstore bundles from the cosign
// signature image stored next to imageRef under the sha256-<hex>.sig tag.
func bundlesFromSignedImage(imageRef string, keychain authn.Keychain) ([]sigstoreBundle, error) {
	signatureRef, err := signatureTagForImage(imageRef, keychain)
	if err != nil {
		return nil, fmt.Errorf("resolving signature reference: %w", err)
	}

	layers, err := simpleSigningLayers(signatureRef, keychain)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProvenanceNotFoundOrIncomplete, err.Error())
	}

	var bundles []sigstoreBundle
	for _, layer := range layers {
		verificationMaterial, err := layerVerificationMaterial(layer)
		if err != nil {
			slog.Error("error building bundle verification material", "error", err)
			continue
		}

		msgSignature, err := layerMessageSignature(layer)
		if err != nil {
			slog.Error("error building bundle message signature", "error", err)
			continue
		}

		pbb := protobundle.Bundle{
			MediaType:            sigstoreBundleMediaType01,
			VerificationMaterial: verificationMaterial,
			Content:              msgSignature,
		}
		bun, err := bundle.NewBundle(&pbb)
		if err != nil {
			slog.Error("error creating protobuf bundle", "error", err)
			continue
		}

		// The simple signing layer digest is the signed payload.
		digestBytes, err := hex.DecodeString(layer.Digest.Hex)
		if err != nil {
			slog.Error("error decoding the simplesigning layer digest", "error", err)
			continue
		}

		bundles = append(bundles, sigstoreBundle{
			bundle:      bun,
			digestAlgo:  layer.Digest.Algorithm,
			digestBytes: digestBytes,
		})
	}

	if len(bundles) == 0 {
		return nil, ErrProvenanceNotFoundOrIncomplete
	}

	return bundles, nil
}

// signatureTagForImage resolves imageRef to a digest and returns the
// cosign signature tag for it: <algo>-<hex>.sig in the same repository.
func signatureTagForImage(imageRef string, keychain authn.Keychain) (string, error) {
	opts := []remote.Option{remote.WithAuthFromKeychain(keychain)}

	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return "", fmt.Errorf("parsing image reference: %w", err)
	}

	desc, err := remote.Get(ref, opts...)
	if err != nil {
		return "", fmt.Errorf("getting image descriptor: %w", err)
	}

	digest := ref.Context().Digest(desc.Digest.String())
	h, err := v1.NewHash(digest.Identifier())
	if err != nil {
		return "", fmt.Errorf("parsing digest hash: %w", err)
	}

	sigTag := digest.Context().Tag(fmt.Sprint(h.Algorithm, "-", h.Hex, ".sig"))
	return sigTag.Name(), nil
}

// simpleSigningLayers fetches the signature manifest and returns its
// simple-signing layers.
func simpleSigningLayers(manifestRef string, keychain authn.Keychain) ([]v1.Descriptor, error) {
	craneOpts := []crane.Option{crane.WithAuthFromKeychain(keychain)}
	mf, err := crane.Manifest(manifestRef, craneOpts...)
	if err != nil {
		return nil, fmt.Errorf("getting signature manifest: %w", err)
	}

	r := io.LimitReader(bytes.NewReader(mf), maxAttestationBytes)
	manifest, err := v1.ParseManifest(r)
	if err != nil {
		return nil, fmt.Errorf("parsing signature manifest: %w", err)
	}

	var results []v1.Descriptor
	for _, layer := range manifest.Layers {
		if layer.MediaType == simpleSigningMediaType {
			results = append(results, layer)
		}
	}
	return results, nil
}

// layerVerificationMaterial builds the bundle verification material from a
// simple signing layer's cosign annotations.
func layerVerificationMaterial(layer v1.Descriptor) (*protobundle.VerificationMaterial, error) {
	signingCert, err := layerCertificateChain(layer)
	if err != nil {
		return nil, fmt.Errorf("getting signing certificate: %w", err)
	}

	tlogEntries, err := layerTlogEntries(layer)
	if err != nil {
		return nil, fmt.Errorf("getting tlog entries: %w", err)
	}

	return &protobundle.VerificationMaterial{
		Content:                   signingCert,
		TlogEntries:               tlogEntries,
		TimestampVerificationData: nil,
	}, nil
}

// layerCertificateChain decodes the PEM certificate cosign stamps on the
// signing layer.
func layerCertificateChain(layer v1.Descriptor) (*protobundle.VerificationMaterial_X509CertificateChain, error) {
	pemCert := layer.Annotations["dev.sigstore.cosign/certificate"]
	block, _ := pem.Decode([]byte(pemCert))
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	return &protobundle.VerificationMaterial_X509CertificateChain{
		X509CertificateChain: &protocommon.X509CertificateChain{
			Certificates: []*protocommon.X509Certificate{
				{RawBytes: block.Bytes},
			},
		},
	}, nil
}

// cosignRekorBundle is the shape of the dev.sigstore.cosign/bundle
// annotation cosign writes next to each signature layer.
type cosignRekorBundle struct {
	SignedEntryTimestamp string `json:"SignedEntryTimestamp"`
	Payload              struct {
		Body           string `json:"body"`
		IntegratedTime int64  `json:"integratedTime"`
		LogIndex       int64  `json:"logIndex"`
		LogID          string `json:"logID"`
	} `json:"Payload"`
}

// layerTlogEntries reconstructs the transparency log entries recorded in
// the cosign bundle annotation.
func layerTlogEntries(layer v1.Descriptor) ([]*protorekor.TransparencyLogEntry, error) {
	var rekorBundle cosignRekorBundle
	if err := json.Unmarshal([]byte(layer.Annotations["dev.sigstore.cosign/bundle"]), &rekorBundle); err != nil {
		return nil, fmt.Errorf("parsing cosign bundle annotation: %w", err)
	}

	logID, err := hex.DecodeString(rekorBundle.Payload.LogID)
	if err != nil {
		return nil, fmt.Errorf("decoding logID: %w", err)
	}

	signedEntryTimestamp, err := base64.StdEncoding.DecodeString(rekorBundle.SignedEntryTimestamp)
	if err != nil {
		return nil, fmt.Errorf("decoding signedEntryTimestamp: %w", err)
	}

	bodyBytes, err := base64.StdEncoding.DecodeString(rekorBundle.Payload.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	var entry struct {
		APIVersion string `json:"apiVersion"`
		Kind       string `json:"kind"`
	}
	if err := json.Unmarshal(bodyBytes, &entry); err != nil {
		return nil, fmt.Errorf("parsing rekor entry body: %w", err)
	}

	return []*protorekor.TransparencyLogEntry{
		{
			LogIndex: rekorBundle.Payload.LogIndex,
			LogId: &protocommon.LogId{
				KeyId: logID,
			},
			KindVersion: &protorekor.KindVersion{
				Kind:    entry.Kind,
				Version: entry.APIVersion,
			},
			IntegratedTime: rekorBundle.Payload.IntegratedTime,
			InclusionPromise: &protorekor.InclusionPromise{
				SignedEntryTimestamp: signedEntryTimestamp,
			},
			InclusionProof:    nil,
			CanonicalizedBody: bodyBytes,
		},
	}, nil
}

// layerMessageSignature builds the bundle message signature from the
// signing layer's digest and signature annotation.
func layerMessageSignature(layer v1.Descriptor) (*protobundle.Bundle_MessageSignature, error) {
	var msgHashAlg protocommon.HashAlgorithm
	switch layer.Digest.Algorithm {
	case "sha256":
		msgHashAlg = protocommon.HashAlgorithm_SHA2_256
	default:
		return nil, fmt.Errorf("unknown digest algorithm: %s", layer.Digest.Algorithm)
	}

	digest, err := hex.DecodeString(layer.Digest.Hex)
	if err != nil {
		return nil, fmt.Errorf("decoding digest: %w", err)
	}

	sig, err := base64.StdEncoding.DecodeString(layer.Annotations["dev.cosignproject.cosign/signature"])
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", err)
	}

	return &protobundle.Bundle_MessageSignature{
		MessageSignature: &protocommon.MessageSignature{
			MessageDigest: &protocommon.HashOutput{
				Algorithm: msgHashAlg,
				Digest:    digest,
			},
			Signature: sig,
		},
	}, nil
}

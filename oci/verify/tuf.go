// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/sigstore/sigstore-go/pkg/tuf"
	sigverify "github.com/sigstore/sigstore-go/pkg/verify"
)

var (
	// ErrProvenanceNotFoundOrIncomplete is returned when an image carries
	// no provenance (missing signature or attestation) or carries it with
	// incomplete data.
	ErrProvenanceNotFoundOrIncomplete = errors.New("provenance not found or incomplete")

	// maxAttestationBytes bounds how much is read from signature
	// manifests and attestation layers.
	maxAttestationBytes int64 = 10 * 1024 * 1024
)

const (
	sigstoreBundleMediaType01 = "application/vnd.dev.sigstore.bundle+json;version=0.1"

	// githubTokenIssuer is the issuer stamped into sigstore certs when
	// authenticating through GitHub tokens.
	//nolint:gosec // Not an embedded credential
	githubTokenIssuer = "https://token.actions.githubusercontent.com"
)

// verifierOptions picks the verification requirements a trusted root can
// actually satisfy: the public good instance serves signed certificate
// timestamps and a transparency log, other instances only observer
// timestamps.
func verifierOptions(trustedRoot string) []sigverify.VerifierOption {
	if trustedRoot == TrustedRootSigstorePublicGoodInstance {
		return []sigverify.VerifierOption{
			sigverify.WithSignedCertificateTimestamps(1),
			sigverify.WithTransparencyLog(1),
			sigverify.WithObserverTimestamps(1),
		}
	}
	return []sigverify.VerifierOption{
		sigverify.WithObserverTimestamps(1),
	}
}

// tufOptions builds the TUF client options for the given repository URL.
// sigstore-go embeds the root of trust for the public good instance; any
// other repository needs rootJSON supplied by the caller.
func tufOptions(sigstoreTUFRepoURL string, rootJSON []byte) (*tuf.Options, error) {
	tufOpts := tuf.DefaultOptions()
	tufOpts.DisableLocalCache = true

	tufURL, err := url.Parse(sigstoreTUFRepoURL)
	if err != nil {
		return nil, fmt.Errorf("parsing sigstore TUF repo URL: %w", err)
	}
	if tufURL.Scheme == "" {
		tufURL.Scheme = "https"
	}
	tufOpts.RepositoryBaseURL = tufURL.String()

	if sigstoreTUFRepoURL != TrustedRootSigstorePublicGoodInstance {
		if len(rootJSON) == 0 {
			return nil, fmt.Errorf(
				"no TUF root provided for %s: repositories other than %s need WithTUFRootJSON",
				sigstoreTUFRepoURL, TrustedRootSigstorePublicGoodInstance,
			)
		}
		tufOpts.Root = rootJSON
	}

	return tufOpts, nil
}

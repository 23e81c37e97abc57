// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package verify checks sigstore provenance for pack artifacts pulled from
// OCI registries. It discovers signatures through the cosign tag convention
// or the referrers API, assembles sigstore bundles from them, and verifies
// the bundles against a TUF trusted root.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/sigstore/sigstore-go/pkg/fulcio/certificate"
	"github.com/sigstore/sigstore-go/pkg/root"
	sigverify "github.com/sigstore/sigstore-go/pkg/verify"
)

const (
	// TrustedRootSigstoreGitHub is the GitHub trusted root repository for
	// sigstore (used for private repos and GitHub Enterprise).
	TrustedRootSigstoreGitHub = "tuf-repo.github.com"

	// TrustedRootSigstorePublicGoodInstance is the public trusted root
	// repository for sigstore.
	TrustedRootSigstorePublicGoodInstance = "tuf-repo-cdn.sigstore.dev"
)

var (
	// ErrExpectedProvenanceMissing is returned when no expected provenance
	// is configured for an artifact that should be verified.
	ErrExpectedProvenanceMissing = errors.New("expected provenance not set")

	// ErrArtifactNotVerified is returned by pull checks when an artifact
	// is unsigned or its provenance does not match expectations.
	ErrArtifactNotVerified = errors.New("artifact provenance not verified")
)

// Verifier verifies pack artifact signatures against a sigstore trusted
// root.
type Verifier struct {
	verifier *sigverify.Verifier
	keychain authn.Keychain
}

// Option configures verifier construction.
type Option func(*verifierConfig)

type verifierConfig struct {
	tufRootJSON []byte
}

// WithTUFRootJSON supplies the root.json for a TUF repository other than
// the public good instance. sigstore-go embeds the public root; every
// other repository needs its root of trust handed in explicitly.
func WithTUFRootJSON(rootJSON []byte) Option {
	return func(c *verifierConfig) {
		c.tufRootJSON = rootJSON
	}
}

// New creates a verifier for the sigstore instance named by the expected
// provenance. The TUF trusted root is fetched eagerly, so construction
// performs network I/O.
func New(provenance *Provenance, keychain authn.Keychain, opts ...Option) (*Verifier, error) {
	if provenance == nil {
		return nil, ErrExpectedProvenanceMissing
	}

	var cfg verifierConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sigstoreTUFRepoURL := provenance.SigstoreURL
	if sigstoreTUFRepoURL == "" {
		sigstoreTUFRepoURL = TrustedRootSigstorePublicGoodInstance
	}

	tufOpts, err := tufOptions(sigstoreTUFRepoURL, cfg.tufRootJSON)
	if err != nil {
		return nil, err
	}

	trustedMaterial, err := root.FetchTrustedRootWithOptions(tufOpts)
	if err != nil {
		return nil, fmt.Errorf("fetching trusted root: %w", err)
	}

	sev, err := sigverify.NewVerifier(trustedMaterial, verifierOptions(sigstoreTUFRepoURL)...)
	if err != nil {
		return nil, fmt.Errorf("creating sigstore verifier: %w", err)
	}

	return &Verifier{
		verifier: sev,
		keychain: keychain,
	}, nil
}

// GetVerificationResults returns one verification result per bundle that
// verified cleanly for the given image reference. An unsigned image yields
// an empty slice, not an error.
func (s *Verifier) GetVerificationResults(imageRef string) ([]*sigverify.VerificationResult, error) {
	bundles, err := discoverBundles(imageRef, s.keychain)
	if err != nil && !errors.Is(err, ErrProvenanceNotFoundOrIncomplete) {
		return nil, err
	}
	slog.Debug("sigstore bundles constructed", "count", len(bundles))

	if len(bundles) == 0 || errors.Is(err, ErrProvenanceNotFoundOrIncomplete) {
		return []*sigverify.VerificationResult{}, nil
	}

	var results []*sigverify.VerificationResult
	for _, b := range bundles {
		verificationResult, err := s.verifier.Verify(b.bundle, sigverify.NewPolicy(
			sigverify.WithArtifactDigest(b.digestAlgo, b.digestBytes),
			sigverify.WithoutIdentitiesUnsafe(),
		))
		if err != nil {
			slog.Info("bundle verification failed", "error", err)
			continue
		}
		results = append(results, verificationResult)
	}
	return results, nil
}

// VerifyArtifact checks the artifact at imageRef against the expected
// provenance. The result distinguishes an unsigned artifact from a signed
// one whose provenance does not match.
func (s *Verifier) VerifyArtifact(imageRef string, provenance *Provenance) (*Result, error) {
	results, err := s.GetVerificationResults(imageRef)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Result{}, nil
	}

	for _, res := range results {
		if !matchesProvenance(res, provenance) {
			return &Result{IsSigned: true}, nil
		}
	}

	return &Result{
		IsSigned:           true,
		IsVerified:         true,
		VerificationResult: *results[0],
	}, nil
}

// PullCheck adapts the verifier into the hook shape packs.Registry accepts
// for WithPullVerify: the pull fails unless the artifact verifies against
// the expected provenance.
func (s *Verifier) PullCheck(provenance *Provenance) func(ctx context.Context, imageRef string) error {
	return func(_ context.Context, imageRef string) error {
		res, err := s.VerifyArtifact(imageRef, provenance)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", imageRef, err)
		}
		if !res.IsVerified {
			return fmt.Errorf("%w: %s", ErrArtifactNotVerified, imageRef)
		}
		return nil
	}
}

// matchesProvenance reports whether one verification result satisfies the
// expected provenance. Empty expectation fields match anything.
func matchesProvenance(r *sigverify.VerificationResult, p *Provenance) bool {
	if r == nil || p == nil || r.Signature == nil || r.Signature.Certificate == nil {
		return false
	}

	if !matchesCertificate(r, p) {
		return false
	}

	if p.Attestation != nil && r.Statement != nil && p.Attestation.Predicate != nil && r.Statement.Predicate != nil {
		if p.Attestation.PredicateType != r.Statement.PredicateType {
			return false
		}
		return reflect.DeepEqual(p.Attestation.Predicate, r.Statement.Predicate)
	}

	return true
}

// matchesCertificate compares the signing certificate's identity fields
// with the expected provenance.
func matchesCertificate(r *sigverify.VerificationResult, p *Provenance) bool {
	siIdentity, err := signerIdentityFromCertificate(r.Signature.Certificate)
	if err != nil {
		slog.Error("error parsing signer identity", "error", err)
	}

	if p.RepositoryURI != "" && p.RepositoryURI != r.Signature.Certificate.SourceRepositoryURI {
		return false
	}
	if p.RepositoryRef != "" && p.RepositoryRef != r.Signature.Certificate.SourceRepositoryRef {
		return false
	}
	if p.RunnerEnvironment != "" && p.RunnerEnvironment != r.Signature.Certificate.RunnerEnvironment {
		return false
	}
	if p.CertIssuer != "" && p.CertIssuer != r.Signature.Certificate.Issuer {
		return false
	}
	if p.SignerIdentity != "" && p.SignerIdentity != siIdentity {
		return false
	}
	return true
}

// signerIdentityFromCertificate returns the signer identity. For certs
// issued through GitHub Actions tokens the identity is reduced to the
// workflow path, stripped of the repository URI and the ref, so policies
// stay applicable across repositories.
func signerIdentityFromCertificate(c *certificate.Summary) (string, error) {
	if c.SubjectAlternativeName == "" {
		return "", fmt.Errorf("certificate has no signer identity in SAN (is it a fulcio cert?)")
	}

	// Identities not issued through GitHub Actions tokens are returned
	// verbatim. This covers OIDC email SANs and SPIFFE IDs.
	if c.Issuer != githubTokenIssuer {
		return c.SubjectAlternativeName, nil
	}

	if c.SourceRepositoryURI == "" {
		return "", fmt.Errorf(
			"certificate extensions do not have a SourceRepositoryURI set (oid 1.3.6.1.4.1.57264.1.5)",
		)
	}

	identity, _, _ := strings.Cut(c.SubjectAlternativeName, "@")
	identity = strings.TrimPrefix(identity, c.SourceRepositoryURI)

	return identity, nil
}

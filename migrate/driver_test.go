// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package migrate_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpack/agentpack-core/archive"
	"github.com/agentpack/agentpack-core/logging"
	"github.com/agentpack/agentpack-core/migrate"
	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/storage"
)

func quietLogger() *slog.Logger {
	return logging.New(logging.WithOutput(io.Discard))
}

// fixture wires a reconciler over in-memory stores and publishes versions
// for driver runs to chew on.
type fixture struct {
	catalog    *storage.MemCatalog
	blobs      *storage.MemBlobStore
	reconciler *storage.Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog := storage.NewMemCatalog()
	blobs := storage.NewMemBlobStore()
	reconciler, err := storage.NewReconciler(catalog, blobs, storage.Config{Logger: quietLogger()})
	require.NoError(t, err)
	return &fixture{catalog: catalog, blobs: blobs, reconciler: reconciler}
}

func (f *fixture) driver(t *testing.T, opts ...migrate.Option) *migrate.Driver {
	t.Helper()

	opts = append([]migrate.Option{migrate.WithLogger(quietLogger())}, opts...)
	d, err := migrate.NewDriver(f.reconciler, f.catalog, opts...)
	require.NoError(t, err)
	return d
}

func (f *fixture) publishLegacy(t *testing.T, ref storage.VersionRef) *storage.StoredArtifact {
	t.Helper()

	data, err := archive.Pack([]archive.File{{
		Path: ".cursor/rules/" + ref.Name + ".mdc",
		Data: []byte("## Rules\n\n- Keep functions small\n"),
	}}, archive.Options{})
	require.NoError(t, err)

	record, err := f.reconciler.PublishArchive(context.Background(), ref, data, pack.FormatCursor)
	require.NoError(t, err)
	return record
}

func (f *fixture) publishCanonical(t *testing.T, ref storage.VersionRef) {
	t.Helper()

	_, err := f.reconciler.PublishCanonical(context.Background(), ref, &pack.Document{
		Metadata:     pack.Metadata{Name: ref.Name},
		Instructions: []string{"Already converted."},
	})
	require.NoError(t, err)
}

func (f *fixture) kindOf(t *testing.T, ref storage.VersionRef) storage.Kind {
	t.Helper()

	record, err := f.catalog.GetArtifact(context.Background(), ref)
	require.NoError(t, err)
	return record.Kind
}

func ref(scope, name string) storage.VersionRef {
	return storage.VersionRef{Scope: scope, Name: name, Version: "1.0.0"}
}

func itemFor(t *testing.T, report *migrate.Report, target storage.VersionRef) migrate.Item {
	t.Helper()

	for _, item := range report.Items {
		if item.Ref == target {
			return item
		}
	}
	t.Fatalf("no report item for %s", target)
	return migrate.Item{}
}

func TestNewDriver_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := migrate.NewDriver(nil, f.catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolver is required")

	_, err = migrate.NewDriver(f.reconciler, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog is required")

	_, err = migrate.NewDriver(f.reconciler, f.catalog, migrate.WithConcurrency(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be at least 1")

	_, err = migrate.NewDriver(f.reconciler, f.catalog, migrate.WithFilter("scope =="))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filter")

	_, err = migrate.NewDriver(f.reconciler, f.catalog, migrate.WithLogger(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger cannot be nil")
}

func TestRun_MigratesLegacyVersions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	legacyA := ref("acme", "api-style")
	legacyB := ref("acme", "react-rules")
	canonical := ref("acme", "zz-done")
	f.publishLegacy(t, legacyA)
	f.publishLegacy(t, legacyB)
	f.publishCanonical(t, canonical)

	d := f.driver(t, migrate.WithConcurrency(2))
	report, err := d.Run(context.Background(), []storage.VersionRef{canonical, legacyB, legacyA}, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Migrated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.DryRun)

	// Items come back sorted by ref, not in submission order.
	require.Len(t, report.Items, 3)
	assert.Equal(t, legacyA, report.Items[0].Ref)
	assert.Equal(t, legacyB, report.Items[1].Ref)
	assert.Equal(t, canonical, report.Items[2].Ref)

	assert.Equal(t, migrate.OutcomeSkipped, itemFor(t, report, canonical).Outcome)
	assert.Equal(t, "already canonical", itemFor(t, report, canonical).Reason)

	assert.Equal(t, storage.KindCanonical, f.kindOf(t, legacyA))
	assert.Equal(t, storage.KindCanonical, f.kindOf(t, legacyB))
}

func TestRun_DryRunDoesNotPersist(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	legacy := ref("acme", "api-style")
	f.publishLegacy(t, legacy)

	d := f.driver(t)
	report, err := d.Run(context.Background(), []storage.VersionRef{legacy}, true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Migrated)
	item := itemFor(t, report, legacy)
	assert.Equal(t, migrate.OutcomeMigrated, item.Outcome)
	assert.Equal(t, "dry run", item.Reason)

	assert.Equal(t, storage.KindLegacyArchive, f.kindOf(t, legacy),
		"dry run must leave the record untouched")
}

func TestRun_SecondRunSkips(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	legacy := ref("acme", "api-style")
	f.publishLegacy(t, legacy)
	d := f.driver(t)

	first, err := d.Run(context.Background(), []storage.VersionRef{legacy}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Migrated)

	second, err := d.Run(context.Background(), []storage.VersionRef{legacy}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Migrated)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, "already canonical", itemFor(t, second, legacy).Reason)
}

func TestRun_FilterSelectsSubset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	acme := ref("acme", "api-style")
	other := ref("globex", "api-style")
	f.publishLegacy(t, acme)
	f.publishLegacy(t, other)

	d := f.driver(t, migrate.WithFilter(`scope == "acme"`))
	report, err := d.Run(context.Background(), []storage.VersionRef{acme, other}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "filtered", itemFor(t, report, other).Reason)

	assert.Equal(t, storage.KindCanonical, f.kindOf(t, acme))
	assert.Equal(t, storage.KindLegacyArchive, f.kindOf(t, other))
}

func TestRun_FilterSeesKindAndFormat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	legacy := ref("acme", "api-style")
	canonical := ref("acme", "done")
	f.publishLegacy(t, legacy)
	f.publishCanonical(t, canonical)

	// The filter runs before the already-canonical check, so an excluded
	// canonical record reports "filtered".
	d := f.driver(t, migrate.WithFilter(`kind == "legacy-archive" && format == "cursor"`))
	report, err := d.Run(context.Background(), []storage.VersionRef{legacy, canonical}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, "filtered", itemFor(t, report, canonical).Reason)
}

func TestRun_FailuresDoNotAbortRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	good := ref("acme", "api-style")
	missing := ref("acme", "ghost")
	lostBlob := ref("acme", "lost-blob")
	f.publishLegacy(t, good)
	record := f.publishLegacy(t, lostBlob)
	f.blobs.Delete(record.BlobRef)

	d := f.driver(t)
	report, err := d.Run(context.Background(), []storage.VersionRef{good, missing, lostBlob}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 2, report.Failed)

	assert.Equal(t, migrate.OutcomeMigrated, itemFor(t, report, good).Outcome)
	assert.Contains(t, itemFor(t, report, missing).Reason, "loading record")
	assert.Contains(t, itemFor(t, report, lostBlob).Reason, "storage unavailable")

	// The failed version keeps its record for a later retry.
	assert.Equal(t, storage.KindLegacyArchive, f.kindOf(t, lostBlob))
}

func TestRun_UnparsableArchiveFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mystery := ref("acme", "mystery")
	data, err := archive.Pack([]archive.File{{Path: "README.txt", Data: []byte("not a config\n")}}, archive.Options{})
	require.NoError(t, err)
	_, err = f.reconciler.PublishArchive(context.Background(), mystery, data, "")
	require.NoError(t, err)

	d := f.driver(t)
	report, err := d.Run(context.Background(), []storage.VersionRef{mystery}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, itemFor(t, report, mystery).Reason, "unknown source format")
	assert.Equal(t, storage.KindLegacyArchive, f.kindOf(t, mystery))
}

// panickyResolver blows up on one specific ref to simulate a defective
// format adapter.
type panickyResolver struct {
	inner  migrate.Resolver
	target storage.VersionRef
}

func (p panickyResolver) Resolve(ctx context.Context, ref storage.VersionRef, forcePersist bool) (*pack.Document, error) {
	if ref == p.target {
		panic("defective adapter")
	}
	return p.inner.Resolve(ctx, ref, forcePersist)
}

func TestRun_PanicIsIsolatedAsFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	poisoned := ref("acme", "poisoned")
	healthy := ref("acme", "healthy")
	f.publishLegacy(t, poisoned)
	f.publishLegacy(t, healthy)

	resolver := panickyResolver{inner: f.reconciler, target: poisoned}
	d, err := migrate.NewDriver(resolver, f.catalog, migrate.WithLogger(quietLogger()))
	require.NoError(t, err)

	report, err := d.Run(context.Background(), []storage.VersionRef{poisoned, healthy}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, itemFor(t, report, poisoned).Reason, "panic: defective adapter")
	assert.Equal(t, migrate.OutcomeMigrated, itemFor(t, report, healthy).Outcome)
}

// readOnlyResolver parses but never persists, whatever the driver asks.
type readOnlyResolver struct {
	inner migrate.Resolver
}

func (r readOnlyResolver) Resolve(ctx context.Context, ref storage.VersionRef, _ bool) (*pack.Document, error) {
	return r.inner.Resolve(ctx, ref, false)
}

func TestRun_DetectsUnpersistedUpgrade(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	legacy := ref("acme", "api-style")
	f.publishLegacy(t, legacy)

	d, err := migrate.NewDriver(readOnlyResolver{inner: f.reconciler}, f.catalog,
		migrate.WithLogger(quietLogger()))
	require.NoError(t, err)

	report, err := d.Run(context.Background(), []storage.VersionRef{legacy}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "upgrade did not persist", itemFor(t, report, legacy).Reason)
}

func TestRun_EmptyRefs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	d := f.driver(t)

	report, err := d.Run(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Zero(t, report.Migrated)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	legacy := ref("acme", "api-style")
	f.publishLegacy(t, legacy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := f.driver(t)
	report, err := d.Run(ctx, []storage.VersionRef{legacy}, false)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Failed)
}

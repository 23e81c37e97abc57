// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package migrate drives batch upgrades of stored legacy archives to
// canonical documents. A run walks a set of version references, resolves
// each one through the storage reconciler, and reports per-version
// outcomes without letting one defective version abort the rest.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	celgo "github.com/google/cel-go/cel"
	"golang.org/x/sync/errgroup"

	"github.com/agentpack/agentpack-core/cel"
	"github.com/agentpack/agentpack-core/logging"
	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/recovery"
	"github.com/agentpack/agentpack-core/storage"
)

// defaultConcurrency bounds how many versions migrate at once.
const defaultConcurrency = 4

// Resolver yields the canonical document for a stored version, upgrading
// the record in place when asked to persist. *storage.Reconciler
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, ref storage.VersionRef, forcePersist bool) (*pack.Document, error)
}

// Outcome classifies what happened to one version during a run.
type Outcome string

const (
	// OutcomeMigrated means the version now has a canonical record, or
	// would have after a dry run.
	OutcomeMigrated Outcome = "migrated"
	// OutcomeSkipped means the version needed no work or was excluded by
	// the run's filter.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the version could not be migrated; the record
	// is left as it was.
	OutcomeFailed Outcome = "failed"
)

// Item is the per-version result of a migration run.
type Item struct {
	Ref     storage.VersionRef `json:"ref"`
	Outcome Outcome            `json:"outcome"`
	Reason  string             `json:"reason,omitempty"`
}

// Report summarizes a migration run. Items are sorted by version
// reference so reports from repeated runs diff cleanly.
type Report struct {
	DryRun   bool   `json:"dryRun,omitempty"`
	Migrated int    `json:"migrated"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Items    []Item `json:"items"`
}

type driverSettings struct {
	concurrency int
	logger      *slog.Logger
	filter      *cel.CompiledExpression
}

// Option configures a Driver.
type Option func(*driverSettings) error

// WithConcurrency bounds the number of versions migrating in parallel.
// The default is 4.
func WithConcurrency(n int) Option {
	return func(s *driverSettings) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		s.concurrency = n
		return nil
	}
}

// WithLogger routes progress logging to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *driverSettings) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithFilter restricts the run to versions matching a CEL expression over
// the variables scope, name, version, kind, and format, for example
//
//	scope == "acme" && kind == "legacy-archive"
//
// Versions the expression rejects are skipped with reason "filtered".
func WithFilter(expr string) Option {
	return func(s *driverSettings) error {
		compiled, err := filterEngine().Compile(expr)
		if err != nil {
			return fmt.Errorf("invalid migration filter: %w", err)
		}
		s.filter = compiled
		return nil
	}
}

// filterEngine declares the record attributes a migration filter can see.
func filterEngine() *cel.Engine {
	return cel.NewEngine(
		celgo.Variable("scope", celgo.StringType),
		celgo.Variable("name", celgo.StringType),
		celgo.Variable("version", celgo.StringType),
		celgo.Variable("kind", celgo.StringType),
		celgo.Variable("format", celgo.StringType),
	)
}

// Driver migrates stored versions in bulk. It delegates the actual
// upgrade to the resolver and uses the catalog to decide what needs work
// and to verify what was persisted.
type Driver struct {
	resolver Resolver
	catalog  storage.Catalog
	settings driverSettings
}

// NewDriver creates a migration driver over the given resolver and catalog.
func NewDriver(resolver Resolver, catalog storage.Catalog, opts ...Option) (*Driver, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}

	settings := driverSettings{
		concurrency: defaultConcurrency,
		logger:      logging.New(),
	}
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}
	return &Driver{resolver: resolver, catalog: catalog, settings: settings}, nil
}

// Run migrates the given versions and reports what happened to each one.
// Failures never abort the run; every reference gets an outcome. In
// dry-run mode archives are fetched and parsed but no record is written,
// and parse-clean versions report as migrated to forecast a real run.
func (d *Driver) Run(ctx context.Context, refs []storage.VersionRef, dryRun bool) (*Report, error) {
	d.settings.logger.Info("starting migration run",
		"versions", len(refs), "dryRun", dryRun, "concurrency", d.settings.concurrency)

	items := make([]Item, len(refs))
	var g errgroup.Group
	g.SetLimit(d.settings.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			items[i] = d.migrateOne(ctx, ref, dryRun)
			return nil
		})
	}
	// Workers record failures in their items instead of returning them.
	_ = g.Wait()

	sort.Slice(items, func(i, j int) bool {
		return items[i].Ref.String() < items[j].Ref.String()
	})

	report := &Report{DryRun: dryRun, Items: items}
	for _, item := range items {
		switch item.Outcome {
		case OutcomeMigrated:
			report.Migrated++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
		}
	}
	d.settings.logger.Info("migration run finished",
		"migrated", report.Migrated, "skipped", report.Skipped, "failed", report.Failed)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("migration interrupted: %w", err)
	}
	return report, nil
}

func (d *Driver) migrateOne(ctx context.Context, ref storage.VersionRef, dryRun bool) Item {
	item := Item{Ref: ref}

	record, err := d.catalog.GetArtifact(ctx, ref)
	if err != nil {
		return d.failed(item, fmt.Errorf("loading record: %w", err))
	}

	if d.settings.filter != nil {
		match, err := d.settings.filter.EvaluateBool(filterContext(record))
		if err != nil {
			return d.failed(item, fmt.Errorf("evaluating filter: %w", err))
		}
		if !match {
			return d.skipped(item, "filtered")
		}
	}

	if record.Canonical() {
		return d.skipped(item, "already canonical")
	}

	err = recovery.Recovered(func() error {
		_, rerr := d.resolver.Resolve(ctx, ref, !dryRun)
		return rerr
	})
	if err != nil {
		return d.failed(item, err)
	}

	if dryRun {
		item.Outcome = OutcomeMigrated
		item.Reason = "dry run"
		return item
	}

	// Trust the catalog, not the resolver: a lost upgrade race still
	// counts as migrated, a swallowed persistence failure does not.
	persisted, err := d.catalog.GetArtifact(ctx, ref)
	if err != nil {
		return d.failed(item, fmt.Errorf("verifying upgrade: %w", err))
	}
	if !persisted.Canonical() {
		return d.failed(item, errors.New("upgrade did not persist"))
	}

	item.Outcome = OutcomeMigrated
	d.settings.logger.Info("migrated version",
		"ref", ref.String(), "format", string(persisted.DiscoveredFormat))
	return item
}

func (d *Driver) skipped(item Item, reason string) Item {
	item.Outcome = OutcomeSkipped
	item.Reason = reason
	d.settings.logger.Debug("skipped version", "ref", item.Ref.String(), "reason", reason)
	return item
}

func (d *Driver) failed(item Item, err error) Item {
	item.Outcome = OutcomeFailed
	item.Reason = err.Error()
	d.settings.logger.Warn("failed to migrate version",
		"ref", item.Ref.String(), "error", err)
	return item
}

func filterContext(record *storage.StoredArtifact) map[string]any {
	return map[string]any{
		"scope":   record.Ref.Scope,
		"name":    record.Ref.Name,
		"version": record.Ref.Version,
		"kind":    string(record.Kind),
		"format":  string(record.DiscoveredFormat),
	}
}

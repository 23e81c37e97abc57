// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package convert turns assistant configuration documents from one format
// into another and grades how much fidelity each conversion keeps.
//
// The engine never mutates its inputs and produces byte-identical output
// for identical input, so results are cached by content digest. Quality
// scoring has two layers: a static compatibility matrix derived from the
// adapter mapping tables, and per-document warnings for the fields a
// concrete document actually populates.
package convert

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opencontainers/go-digest"

	"github.com/agentpack/agentpack-core/httperr"
	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/pack/formats"
)

// defaultCacheSize bounds the conversion result cache. Entries are small
// (one rendered document plus warnings), so a few hundred is plenty for a
// resolver serving hot packages.
const defaultCacheSize = 256

// Result is the outcome of one successful conversion.
//
// Results returned by an Engine may be shared with its cache: treat them as
// read-only.
type Result struct {
	// Document is the rendered output in the target format.
	Document []byte `json:"document"`
	// QualityScore grades the conversion from 0 to 100. Only identity
	// conversions reach 100; every cross-format pair loses at least the
	// native activation model.
	QualityScore int `json:"qualityScore"`
	// Warnings lists every populated field that lost fidelity, in
	// canonical field order.
	Warnings []Warning `json:"warnings,omitempty"`
	// From is empty when the input document carried no provenance.
	From pack.Format `json:"from,omitempty"`
	To   pack.Format `json:"to"`
	// Filename is the conventional file name for the output, derived from
	// the document metadata.
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Engine converts documents between formats. It is safe for concurrent use.
type Engine struct {
	cache  *lru.Cache[string, Result]
	hits   atomic.Uint64
	misses atomic.Uint64
}

type engineSettings struct {
	cacheSize int
}

// Option configures an Engine.
type Option func(*engineSettings)

// WithCacheSize overrides the result cache capacity. Zero disables caching.
func WithCacheSize(size int) Option {
	return func(s *engineSettings) {
		s.cacheSize = size
	}
}

// NewEngine creates a conversion engine.
func NewEngine(opts ...Option) (*Engine, error) {
	s := engineSettings{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&s)
	}
	e := &Engine{}
	if s.cacheSize > 0 {
		cache, err := lru.New[string, Result](s.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create conversion cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Convert parses src as the from format, renders it into the to format and
// scores the fidelity of the trip. Hints fill target-native settings the
// canonical model cannot carry, such as cursor globs, and participate in the
// cache key because they change the output.
func (e *Engine) Convert(src []byte, from, to pack.Format, hints *formats.Hints) (*Result, error) {
	source, err := formats.Get(from)
	if err != nil {
		return nil, httperr.WithCode(err, http.StatusBadRequest)
	}
	if _, err := formats.Get(to); err != nil {
		return nil, httperr.WithCode(err, http.StatusBadRequest)
	}

	var key string
	if e.cache != nil {
		key, err = cacheKey(digest.FromBytes(src), from, to, hints)
		if err != nil {
			return nil, err
		}
		if cached, ok := e.cache.Get(key); ok {
			e.hits.Add(1)
			return &cached, nil
		}
		e.misses.Add(1)
	}

	doc, err := source.Parse(src)
	if err != nil {
		return nil, httperr.WithCode(
			fmt.Errorf("converting %s to %s: %w: %w", from, to, ErrSourceUnparsable, err),
			http.StatusUnprocessableEntity,
		)
	}

	result, err := e.render(doc, from, to, hints)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(key, *result)
	}
	return result, nil
}

// ConvertDocument renders an already-canonical document into the target
// format. Scoring uses the document's recorded source format when present
// and otherwise assumes a source that could represent every canonical
// field. Parsed inputs bypass the cache.
func (e *Engine) ConvertDocument(doc *pack.Document, to pack.Format, hints *formats.Hints) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	if _, err := formats.Get(to); err != nil {
		return nil, httperr.WithCode(err, http.StatusBadRequest)
	}
	return e.render(doc, doc.SourceFormat, to, hints)
}

// CacheStats reports result cache hits and misses since the engine was
// created.
func (e *Engine) CacheStats() (hits, misses uint64) {
	return e.hits.Load(), e.misses.Load()
}

func (e *Engine) render(doc *pack.Document, from, to pack.Format, hints *formats.Hints) (*Result, error) {
	target := formats.MustGet(to)
	out, err := target.Render(doc, hints)
	if err != nil {
		return nil, httperr.WithCode(
			fmt.Errorf("converting %s to %s: %w: %w", fromLabel(from), to, ErrTargetUnrenderable, err),
			http.StatusUnprocessableEntity,
		)
	}

	warnings := documentWarnings(doc, from, to)
	return &Result{
		Document:     out,
		QualityScore: scoreFromWarnings(baseScore(from, to), warnings),
		Warnings:     warnings,
		From:         from,
		To:           to,
		Filename:     target.Filename(doc),
		ContentType:  target.ContentType(),
	}, nil
}

// cacheKey folds the source digest, the format pair and the hint set into
// one key.
func cacheKey(src digest.Digest, from, to pack.Format, hints *formats.Hints) (string, error) {
	key := src.String() + "|" + string(from) + "|" + string(to)
	if hints == nil {
		return key, nil
	}
	enc, err := json.Marshal(hints)
	if err != nil {
		return "", fmt.Errorf("failed to encode hints for cache key: %w", err)
	}
	return key + "|" + digest.FromBytes(enc).String(), nil
}

func fromLabel(from pack.Format) string {
	if from.Valid() {
		return string(from)
	}
	return "canonical"
}

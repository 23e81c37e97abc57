// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"time"
)

// gzipOSUnknown is the OS value for "unknown" in gzip headers (RFC 1952),
// pinned so archives built on different platforms hash identically.
const gzipOSUnknown = 255

// Options configures archive creation and extraction.
type Options struct {
	// Epoch is the timestamp stamped on every tar header and on the gzip
	// header. Defaults to the Unix epoch for reproducibility.
	Epoch time.Time
	// Level is the gzip compression level. Defaults to best compression.
	Level int
	// MaxFileSize bounds each extracted file and the decompressed stream.
	// Defaults to MaxFileSize.
	MaxFileSize int64
}

func (o Options) withDefaults() Options {
	if o.Epoch.IsZero() {
		o.Epoch = time.Unix(0, 0).UTC()
	}
	if o.Level == 0 {
		o.Level = gzip.BestCompression
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = MaxFileSize
	}
	return o
}

// Pack builds a reproducible tar.gz archive: entries are sorted by path,
// every header carries the epoch timestamp, and the gzip header is scrubbed
// of filename and platform detail.
func Pack(files []File, opts Options) ([]byte, error) {
	tarData, err := Tar(files, opts)
	if err != nil {
		return nil, err
	}
	return Gzip(tarData, opts)
}

// Tar builds the uncompressed tar stream that Pack compresses. Callers that
// need the digest of the uncompressed layer, such as OCI config diff_ids,
// use this directly.
func Tar(files []File, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	tarData, err := createTar(files, opts.Epoch)
	if err != nil {
		return nil, fmt.Errorf("creating tar: %w", err)
	}
	return tarData, nil
}

// Gzip compresses data with an epoch-stamped header scrubbed of filename
// and platform detail.
func Gzip(data []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, opts.Level)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	gw.ModTime = opts.Epoch
	gw.Name = ""
	gw.Comment = ""
	gw.OS = gzipOSUnknown

	if _, err := gw.Write(data); err != nil {
		return nil, fmt.Errorf("writing gzip data: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack extracts a tar.gz archive produced by Pack or by an external tool.
// It rejects links, device entries, traversal paths and decompression
// bombs.
func Unpack(data []byte, opts Options) ([]File, error) {
	opts = opts.withDefaults()

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	tarData, err := io.ReadAll(io.LimitReader(gr, opts.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading gzip data: %w", err)
	}
	if int64(len(tarData)) > opts.MaxFileSize {
		return nil, fmt.Errorf("decompressed data exceeds maximum size of %d bytes", opts.MaxFileSize)
	}

	return extractTar(tarData, opts.MaxFileSize)
}

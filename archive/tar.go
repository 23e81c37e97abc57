// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive builds and unpacks the tar.gz payloads that carry legacy
// configuration trees. Creation is reproducible, so packing the same files
// twice yields the same blob digest; extraction is hardened against hostile
// archives pulled from remote registries.
package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

// MaxFileSize bounds a single extracted file and the decompressed stream as
// a whole. Archives carry editor configuration text, so anything close to
// this limit is hostile.
const MaxFileSize = 100 * 1024 * 1024

// File is one regular file inside an archive.
type File struct {
	// Path is relative to the archive root, using forward slashes.
	Path string
	Data []byte
	// Mode defaults to 0644 when zero.
	Mode int64
}

// createTar writes files into an uncompressed tar stream. Entries are
// sorted by path and headers are normalized so the output depends only on
// the file contents and the epoch.
func createTar(files []File, epoch time.Time) ([]byte, error) {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range sorted {
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:     f.Path,
			Size:     int64(len(f.Data)),
			Mode:     mode,
			ModTime:  epoch,
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing tar header for %s: %w", f.Path, err)
		}
		if _, err := tw.Write(f.Data); err != nil {
			return nil, fmt.Errorf("writing tar content for %s: %w", f.Path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar writer: %w", err)
	}
	return buf.Bytes(), nil
}

// extractTar reads regular files out of a tar stream, rejecting links,
// device entries and traversal paths. Declared sizes are checked before
// reading so a lying header cannot force a huge allocation.
func extractTar(data []byte, maxFileSize int64) ([]File, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var files []File

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar header: %w", err)
		}
		if err := validateEntryPath(hdr.Name); err != nil {
			return nil, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			continue
		case tar.TypeReg:
		case tar.TypeSymlink, tar.TypeLink:
			return nil, fmt.Errorf("archive contains disallowed link entry: %s", hdr.Name)
		default:
			return nil, fmt.Errorf("archive contains disallowed entry type %d: %s", hdr.Typeflag, hdr.Name)
		}

		if hdr.Size > maxFileSize {
			return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", hdr.Name, maxFileSize)
		}
		content, err := io.ReadAll(io.LimitReader(tr, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("reading tar content for %s: %w", hdr.Name, err)
		}
		if int64(len(content)) > maxFileSize {
			return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", hdr.Name, maxFileSize)
		}

		files = append(files, File{Path: hdr.Name, Data: content, Mode: hdr.Mode})
	}
	return files, nil
}

// validateEntryPath rejects entries that would escape the archive root.
func validateEntryPath(p string) error {
	// path.Clean resolves all ".." segments; any remaining leading ".."
	// means the path escapes the archive root.
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("path traversal detected in archive: %s", p)
	}
	if path.IsAbs(cleaned) {
		return fmt.Errorf("absolute path not allowed in archive: %s", p)
	}
	return nil
}

// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPack_Reproducible(t *testing.T) {
	t.Parallel()

	files := []File{
		{Path: ".cursor/rules/b.mdc", Data: []byte("content b")},
		{Path: ".cursor/rules/a.mdc", Data: []byte("content a")},
		{Path: "README.md", Data: []byte("readme")},
	}

	first, err := Pack(files, Options{})
	require.NoError(t, err)
	second, err := Pack(files, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second, "Pack should produce identical output for the same input")
}

func TestPack_InputOrderDoesNotMatter(t *testing.T) {
	t.Parallel()

	forward := []File{
		{Path: "a.md", Data: []byte("a")},
		{Path: "b.md", Data: []byte("b")},
	}
	reversed := []File{
		{Path: "b.md", Data: []byte("b")},
		{Path: "a.md", Data: []byte("a")},
	}

	packed1, err := Pack(forward, Options{})
	require.NoError(t, err)
	packed2, err := Pack(reversed, Options{})
	require.NoError(t, err)

	assert.Equal(t, packed1, packed2, "Pack should sort entries internally")
}

func TestPack_EpochChangesOutput(t *testing.T) {
	t.Parallel()

	files := []File{{Path: "a.md", Data: []byte("a")}}

	packed1, err := Pack(files, Options{})
	require.NoError(t, err)
	packed2, err := Pack(files, Options{Epoch: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	assert.NotEqual(t, packed1, packed2)
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	t.Parallel()

	files := []File{
		{Path: "SKILL.md", Data: []byte("---\nname: x\n---\n\nBody.\n")},
		{Path: "scripts/setup.sh", Data: []byte("#!/bin/sh\n"), Mode: 0o755},
		{Path: ".ruler/instructions.md", Data: []byte("Keep modules small.\n")},
	}

	packed, err := Pack(files, Options{})
	require.NoError(t, err)

	extracted, err := Unpack(packed, Options{})
	require.NoError(t, err)
	require.Len(t, extracted, 3)

	// Extraction preserves the sorted archive order.
	assert.Equal(t, ".ruler/instructions.md", extracted[0].Path)
	assert.Equal(t, "SKILL.md", extracted[1].Path)
	assert.Equal(t, "scripts/setup.sh", extracted[2].Path)
	assert.Equal(t, files[0].Data, extracted[1].Data)
	assert.Equal(t, int64(0o755), extracted[2].Mode)
	assert.Equal(t, int64(0o644), extracted[1].Mode, "zero mode defaults to 0644")
}

func TestPack_EmptyArchive(t *testing.T) {
	t.Parallel()

	packed, err := Pack(nil, Options{})
	require.NoError(t, err)

	extracted, err := Unpack(packed, Options{})
	require.NoError(t, err)
	assert.Empty(t, extracted)
}

func TestUnpack_RejectsNonGzip(t *testing.T) {
	t.Parallel()

	_, err := Unpack([]byte("definitely not gzip"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating gzip reader")
}

func TestUnpack_RejectsPathTraversal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
	}{
		{name: "parent escape", path: "../evil.md"},
		{name: "nested escape", path: "ok/../../evil.md"},
		{name: "absolute path", path: "/etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := gzipTar(t, &tar.Header{
				Name:     tt.path,
				Size:     4,
				Mode:     0o644,
				Typeflag: tar.TypeReg,
			}, []byte("evil"))

			_, err := Unpack(data, Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestUnpack_RejectsLinkEntries(t *testing.T) {
	t.Parallel()

	data := gzipTar(t, &tar.Header{
		Name:     "link.md",
		Linkname: "/etc/passwd",
		Typeflag: tar.TypeSymlink,
	}, nil)

	_, err := Unpack(data, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disallowed link entry")
}

func TestUnpack_RejectsLyingHeaderSize(t *testing.T) {
	t.Parallel()

	// A header can declare a size far beyond the data it carries; the
	// declared size must be rejected before anything is read.
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "huge.md",
		Size:     1 << 40,
		Mode:     0o644,
		Typeflag: tar.TypeReg,
	}))

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	_, err = Unpack(buf.Bytes(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum size")
}

func TestUnpack_LimitsDecompressedSize(t *testing.T) {
	t.Parallel()

	packed, err := Pack([]File{{Path: "a.md", Data: bytes.Repeat([]byte("x"), 4096)}}, Options{})
	require.NoError(t, err)

	_, err = Unpack(packed, Options{MaxFileSize: 64})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum size")
}

func TestUnpack_SkipsDirectories(t *testing.T) {
	t.Parallel()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "rules/",
		Mode:     0o755,
		Typeflag: tar.TypeDir,
	}))
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "rules/a.md",
		Size:     1,
		Mode:     0o644,
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err = gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	files, err := Unpack(buf.Bytes(), Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "rules/a.md", files[0].Path)
}

// gzipTar builds a tar.gz with a single entry, bypassing Pack so tests can
// craft archives Pack would refuse to create.
func gzipTar(t *testing.T, hdr *tar.Header, content []byte) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(hdr))
	if len(content) > 0 {
		_, err := tw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	return buf.Bytes()
}

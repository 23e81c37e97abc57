// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/agentpack/agentpack-core/archive"
	"github.com/agentpack/agentpack-core/pack"
	"github.com/agentpack/agentpack-core/pack/formats"
)

// InferFormat determines the configuration format of an unpacked legacy
// archive from its layout. Exactly one format must be recognizable; an
// archive matching zero or several formats fails with
// ErrUnknownSourceFormat and needs an explicit tag instead.
func InferFormat(files []archive.File) (pack.Format, error) {
	seen := make(map[pack.Format]bool)
	for _, f := range files {
		if format := formatForFile(f); format != "" {
			seen[format] = true
		}
	}

	matched := make([]pack.Format, 0, len(seen))
	for _, f := range pack.Formats() {
		if seen[f] {
			matched = append(matched, f)
		}
	}

	switch len(matched) {
	case 1:
		return matched[0], nil
	case 0:
		return "", fmt.Errorf("%w: no recognizable configuration layout among %d files", ErrUnknownSourceFormat, len(files))
	default:
		names := make([]string, len(matched))
		for i, f := range matched {
			names[i] = string(f)
		}
		return "", fmt.Errorf("%w: archive matches multiple formats: %s", ErrUnknownSourceFormat, strings.Join(names, ", "))
	}
}

// formatForFile recognizes the conventional on-disk locations each
// assistant reads its configuration from.
func formatForFile(f archive.File) pack.Format {
	p := path.Clean(f.Path)
	base := path.Base(p)

	switch {
	case strings.HasPrefix(p, ".cursor/rules/") && strings.HasSuffix(base, ".mdc"),
		strings.HasSuffix(base, ".mdc"),
		base == ".cursorrules":
		return pack.FormatCursor

	case base == "SKILL.md",
		base == "CLAUDE.md",
		strings.HasPrefix(p, ".claude/"):
		return pack.FormatClaude

	case strings.HasPrefix(p, ".kiro/steering/") && strings.HasSuffix(base, ".md"):
		return pack.FormatKiro

	case p == ".github/copilot-instructions.md",
		strings.HasPrefix(p, ".github/instructions/") && strings.HasSuffix(base, ".instructions.md"):
		return pack.FormatCopilot

	case strings.HasPrefix(p, ".continue/rules/") && isYAMLPath(base):
		return pack.FormatContinue

	case strings.HasPrefix(p, ".windsurf/rules/") && strings.HasSuffix(base, ".md"),
		base == ".windsurfrules":
		return pack.FormatWindsurf

	case strings.HasPrefix(p, ".ruler/") && strings.HasSuffix(base, ".md"),
		base == "ruler.toml":
		return pack.FormatRuler

	case isYAMLPath(base) && hasContinueSchema(f.Data):
		return pack.FormatContinue
	}
	return ""
}

func isYAMLPath(base string) bool {
	return strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml")
}

// hasContinueSchema reports whether a YAML file declares the continue rule
// block schema at the top level.
func hasContinueSchema(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimRight(line, "\r") == "schema: v1" {
			return true
		}
	}
	return false
}

// ParseArchive unpacks a legacy tar.gz archive and parses its contents into
// a single canonical document. When format is empty it is inferred from the
// archive layout. Multi-file archives merge in lexicographic path order so
// the result is deterministic regardless of how the archive was produced.
func ParseArchive(data []byte, format pack.Format) (*pack.Document, error) {
	files, err := archive.Unpack(data, archive.Options{})
	if err != nil {
		return nil, fmt.Errorf("extracting archive: %w", err)
	}

	if format == "" {
		format, err = InferFormat(files)
		if err != nil {
			return nil, err
		}
	} else if !format.Valid() {
		return nil, fmt.Errorf("%w: unrecognized format tag %q", ErrUnknownSourceFormat, format)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	var (
		strict    []archive.File
		loose     []archive.File
		rulerTOML []byte
	)
	for _, f := range files {
		if format == pack.FormatRuler && path.Base(f.Path) == "ruler.toml" {
			rulerTOML = f.Data
			continue
		}
		switch {
		case formatForFile(f) == format:
			strict = append(strict, f)
		case looseContentMatch(format, f.Path):
			loose = append(loose, f)
		}
	}

	// An explicitly tagged archive may use a flat layout the inference
	// rules do not know; fall back to anything with a plausible extension.
	candidates := strict
	if len(candidates) == 0 {
		candidates = loose
	}
	if len(candidates) == 0 && len(rulerTOML) == 0 {
		return nil, fmt.Errorf("archive contains no %s content files", format)
	}

	adapter := formats.MustGet(format)
	merged := &pack.Document{}
	for _, f := range candidates {
		doc, err := adapter.Parse(f.Data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
		}
		mergeDocument(merged, doc)
	}

	if len(rulerTOML) > 0 {
		if err := applyRulerConfig(merged, rulerTOML); err != nil {
			return nil, err
		}
	}

	merged.SourceFormat = format
	merged.Normalize()
	return merged, nil
}

func looseContentMatch(format pack.Format, p string) bool {
	base := path.Base(p)
	if format == pack.FormatContinue {
		return isYAMLPath(base)
	}
	return strings.HasSuffix(base, ".md")
}

// mergeDocument folds src into dst. Sequences concatenate in encounter
// order; single-valued fields keep the first non-empty value so the
// lexicographically earliest file wins.
func mergeDocument(dst, src *pack.Document) {
	if dst.Metadata.Name == "" {
		dst.Metadata.Name = src.Metadata.Name
	}
	if dst.Metadata.Version == "" {
		dst.Metadata.Version = src.Metadata.Version
	}
	if dst.Metadata.Description == "" {
		dst.Metadata.Description = src.Metadata.Description
	}
	if dst.Metadata.Author == "" {
		dst.Metadata.Author = src.Metadata.Author
	}
	for _, tag := range src.Metadata.Tags {
		if !slices.Contains(dst.Metadata.Tags, tag) {
			dst.Metadata.Tags = append(dst.Metadata.Tags, tag)
		}
	}
	for key, value := range src.Metadata.Extensions {
		if dst.Metadata.Extensions == nil {
			dst.Metadata.Extensions = make(map[string]any)
		}
		if _, exists := dst.Metadata.Extensions[key]; !exists {
			dst.Metadata.Extensions[key] = value
		}
	}

	dst.Instructions = append(dst.Instructions, src.Instructions...)
	dst.Rules = append(dst.Rules, src.Rules...)
	dst.Examples = append(dst.Examples, src.Examples...)
	dst.Tools = append(dst.Tools, src.Tools...)
	dst.Context = append(dst.Context, src.Context...)
	if dst.Persona.IsEmpty() && !src.Persona.IsEmpty() {
		dst.Persona = src.Persona
	}
}

// rulerConfig is the subset of ruler.toml the engine understands. MCP
// server definitions ride along with the instructions so a later render
// into a tool-aware format can surface them.
type rulerConfig struct {
	MCPServers map[string]rulerMCPServer `toml:"mcp_servers"`
}

type rulerMCPServer struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
	URL     string            `toml:"url"`
}

func applyRulerConfig(doc *pack.Document, data []byte) error {
	var cfg rulerConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing ruler.toml: %w", err)
	}
	if len(cfg.MCPServers) == 0 {
		return nil
	}

	names := make([]string, 0, len(cfg.MCPServers))
	for name := range cfg.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	servers := make([]pack.MCPServer, 0, len(names))
	for _, name := range names {
		s := cfg.MCPServers[name]
		servers = append(servers, pack.MCPServer{
			Name:    name,
			Command: s.Command,
			Args:    s.Args,
			Env:     s.Env,
			URL:     s.URL,
		})
	}
	if err := pack.SetMCPServers(doc, servers); err != nil {
		return fmt.Errorf("recording mcp servers from ruler.toml: %w", err)
	}
	return nil
}

// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package upstream exports canonical documents to the upstream MCP registry
// ServerJSON format.
//
// Only documents that configure MCP servers (the mcpServers extension) have
// an upstream representation. URL servers become remotes, registry-backed
// launcher commands such as npx or docker become packages, and everything
// the upstream schema has no field for rides along in the publisher-provided
// extensions under the "dev.agentpack" namespace.
package upstream

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	v0 "github.com/modelcontextprotocol/registry/pkg/api/v0"
	"github.com/modelcontextprotocol/registry/pkg/model"

	"github.com/agentpack/agentpack-core/pack"
	validhttp "github.com/agentpack/agentpack-core/validation/http"
)

// PublisherNamespace is the publisher namespace used by agentpack in the
// upstream format's publisher-provided extensions.
const PublisherNamespace = "dev.agentpack"

// launchers maps MCP launcher commands to the upstream registry type their
// package identifiers resolve against.
var launchers = map[string]string{
	"npx":    model.RegistryTypeNPM,
	"uvx":    model.RegistryTypePyPI,
	"pipx":   model.RegistryTypePyPI,
	"docker": model.RegistryTypeOCI,
	"podman": model.RegistryTypeOCI,
}

// PackExtensions carries the canonical document fields the upstream schema
// has no home for. The verbatim server list rides along so the package and
// remote mapping can stay lossy.
type PackExtensions struct {
	SourceFormat    string           `json:"source_format,omitempty"`
	Author          string           `json:"author,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	Tools           []string         `json:"tools,omitempty"`
	ToolDefinitions []mcp.Tool       `json:"tool_definitions,omitempty"`
	Instructions    []string         `json:"instructions,omitempty"`
	Rules           []pack.Rule      `json:"rules,omitempty"`
	MCPServers      []pack.MCPServer `json:"mcp_servers,omitempty"`
}

// DocumentToServerJSON converts a canonical document carrying the mcpServers
// extension to an upstream ServerJSON.
func DocumentToServerJSON(doc *pack.Document) (*v0.ServerJSON, error) {
	if doc == nil {
		return nil, fmt.Errorf("document cannot be nil")
	}
	name := doc.Metadata.Name
	if name == "" {
		return nil, fmt.Errorf("document has no name")
	}

	servers, err := pack.MCPServers(doc)
	if err != nil {
		return nil, fmt.Errorf("reading %s extension: %w", pack.ExtensionMCPServers, err)
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("document %q has no %s extension", name, pack.ExtensionMCPServers)
	}

	version := doc.Metadata.Version
	if version == "" {
		// The upstream schema requires a version.
		version = "1.0.0"
	}

	serverJSON := &v0.ServerJSON{
		Schema:      model.CurrentSchemaURL,
		Name:        ReverseDNSName(name),
		Description: doc.Metadata.Description,
		Version:     version,
	}

	for _, server := range servers {
		switch {
		case server.URL != "":
			remote, err := remoteForServer(server)
			if err != nil {
				return nil, fmt.Errorf("server %q: %w", server.Name, err)
			}
			serverJSON.Remotes = append(serverJSON.Remotes, remote)
		case server.Command != "":
			if pkg, ok := packageForServer(server); ok {
				serverJSON.Packages = append(serverJSON.Packages, pkg)
			}
		}
	}
	if len(serverJSON.Packages) == 0 && len(serverJSON.Remotes) == 0 {
		return nil, fmt.Errorf("document %q: no MCP server is expressible as an upstream package or remote", name)
	}

	ext, err := packExtensions(doc, servers)
	if err != nil {
		return nil, err
	}
	serverJSON.Meta = &v0.ServerMeta{
		PublisherProvided: map[string]any{
			PublisherNamespace: map[string]any{
				name: ext,
			},
		},
	}

	return serverJSON, nil
}

// remoteForServer converts a URL server to an upstream remote transport.
// The endpoint must be a canonical URL; endpoints ending in /sse advertise
// the SSE transport, everything else is streamable HTTP.
func remoteForServer(server pack.MCPServer) (model.Transport, error) {
	if err := validhttp.ValidateResourceURI(server.URL); err != nil {
		return model.Transport{}, fmt.Errorf("invalid remote endpoint: %w", err)
	}
	transportType := model.TransportTypeStreamableHTTP
	if strings.HasSuffix(strings.TrimRight(server.URL, "/"), "/sse") {
		transportType = model.TransportTypeSSE
	}
	return model.Transport{
		Type: transportType,
		URL:  server.URL,
	}, nil
}

// packageForServer maps a launcher invocation to an upstream package. Servers
// launched by anything other than a known registry-backed launcher have no
// upstream representation and are carried only in the publisher extensions.
func packageForServer(server pack.MCPServer) (model.Package, bool) {
	registryType, ok := launchers[server.Command]
	if !ok {
		return model.Package{}, false
	}

	identifier, runtimeArgs, packageArgs := splitLauncherArgs(server.Args)
	if identifier == "" {
		return model.Package{}, false
	}

	return model.Package{
		RegistryType:         registryType,
		Identifier:           identifier,
		RunTimeHint:          server.Command,
		RuntimeArguments:     runtimeArgs,
		PackageArguments:     packageArgs,
		EnvironmentVariables: envInputs(server.Env),
		Transport: model.Transport{
			Type: model.TransportTypeStdio,
		},
	}, true
}

// splitLauncherArgs locates the package identifier in a launcher argument
// list. Flags before the identifier configure the runtime; everything after
// it is passed to the package. Value-taking flags such as docker's -e consume
// the following argument so their values are never mistaken for the
// identifier.
func splitLauncherArgs(args []string) (identifier string, runtimeArgs, packageArgs []model.Argument) {
	i := 0
	// Container launchers take a subcommand first.
	if i < len(args) && args[i] == "run" {
		i++
	}
	for ; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			identifier = arg
			i++
			break
		}
		named := model.Argument{
			Type: model.ArgumentTypeNamed,
			Name: arg,
		}
		if flag, value, found := strings.Cut(arg, "="); found {
			named.Name = flag
			named.Value = value
		} else if flagTakesValue(arg) && i+1 < len(args) {
			i++
			named.Value = args[i]
		}
		runtimeArgs = append(runtimeArgs, named)
	}
	for ; i < len(args); i++ {
		packageArgs = append(packageArgs, model.Argument{
			Type: model.ArgumentTypePositional,
			InputWithVariables: model.InputWithVariables{
				Input: model.Input{Value: args[i]},
			},
		})
	}
	return identifier, runtimeArgs, packageArgs
}

// flagTakesValue reports whether a launcher flag consumes the next argument.
func flagTakesValue(flag string) bool {
	switch flag {
	case "-e", "--env", "-v", "--volume", "--mount":
		return true
	}
	return false
}

// envInputs converts concrete KEY=VALUE pairs to upstream environment
// variable inputs, sorted by name for a deterministic encoding.
func envInputs(env map[string]string) []model.KeyValueInput {
	if len(env) == 0 {
		return nil
	}
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	inputs := make([]model.KeyValueInput, 0, len(names))
	for _, name := range names {
		inputs = append(inputs, model.KeyValueInput{
			Name: name,
			InputWithVariables: model.InputWithVariables{
				Input: model.Input{Value: env[name]},
			},
		})
	}
	return inputs
}

// packExtensions builds the per-pack extensions map. Marshaling through JSON
// keeps the map keys in sync with the PackExtensions json tags.
func packExtensions(doc *pack.Document, servers []pack.MCPServer) (map[string]any, error) {
	tools, err := pack.ToolDefinitions(doc)
	if err != nil {
		return nil, fmt.Errorf("reading %s extension: %w", pack.ExtensionToolDefinitions, err)
	}

	ext := PackExtensions{
		SourceFormat:    string(doc.SourceFormat),
		Author:          doc.Metadata.Author,
		Tags:            doc.Metadata.Tags,
		Tools:           doc.Tools,
		ToolDefinitions: tools,
		Instructions:    doc.Instructions,
		Rules:           doc.Rules,
		MCPServers:      servers,
	}

	data, err := json.Marshal(ext)
	if err != nil {
		return nil, fmt.Errorf("encoding publisher extensions: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encoding publisher extensions: %w", err)
	}
	return out, nil
}

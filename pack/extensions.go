// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Well-known extension keys. Values under these keys have a typed shape and
// can be decoded with the accessors below; everything else in the extensions
// map is opaque passthrough.
const (
	// ExtensionMCPServers holds a list of MCP server definitions, typically
	// recovered from a ruler.toml found alongside ruler instruction files.
	ExtensionMCPServers = "mcpServers"
	// ExtensionToolDefinitions holds full MCP tool schemas for packages
	// that describe the tools they expect, not just their names.
	ExtensionToolDefinitions = "toolDefinitions"
)

// MCPServer describes how to reach one MCP server. Either Command (with
// optional Args and Env) or URL is set, not both.
type MCPServer struct {
	Name    string            `json:"name"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// MCPServers decodes the MCP server list from the document's extensions.
// It returns nil when the extension is absent.
func MCPServers(d *Document) ([]MCPServer, error) {
	raw, ok := extensionValue(d, ExtensionMCPServers)
	if !ok {
		return nil, nil
	}
	servers, err := remarshalToType[[]MCPServer](raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s extension: %w", ExtensionMCPServers, err)
	}
	return servers, nil
}

// SetMCPServers stores the MCP server list in the document's extensions in
// JSON-compatible form.
func SetMCPServers(d *Document, servers []MCPServer) error {
	return setExtension(d, ExtensionMCPServers, servers)
}

// ToolDefinitions decodes full MCP tool schemas from the document's
// extensions. It returns nil when the extension is absent.
func ToolDefinitions(d *Document) ([]mcp.Tool, error) {
	raw, ok := extensionValue(d, ExtensionToolDefinitions)
	if !ok {
		return nil, nil
	}
	tools, err := remarshalToType[[]mcp.Tool](raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s extension: %w", ExtensionToolDefinitions, err)
	}
	return tools, nil
}

// SetToolDefinitions stores full MCP tool schemas in the document's
// extensions in JSON-compatible form.
func SetToolDefinitions(d *Document, tools []mcp.Tool) error {
	return setExtension(d, ExtensionToolDefinitions, tools)
}

func extensionValue(d *Document, key string) (any, bool) {
	if d == nil || d.Metadata.Extensions == nil {
		return nil, false
	}
	raw, ok := d.Metadata.Extensions[key]
	return raw, ok
}

func setExtension(d *Document, key string, value any) error {
	encoded, err := remarshalToType[any](value)
	if err != nil {
		return fmt.Errorf("failed to encode %s extension: %w", key, err)
	}
	if d.Metadata.Extensions == nil {
		d.Metadata.Extensions = make(map[string]any)
	}
	d.Metadata.Extensions[key] = encoded
	return nil
}

// remarshalToType converts between compatible shapes by marshaling to JSON
// and unmarshaling into the target type.
func remarshalToType[T any](data any) (T, error) {
	var result T
	jsonData, err := json.Marshal(data)
	if err != nil {
		return result, fmt.Errorf("failed to marshal data: %w", err)
	}
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return result, nil
}

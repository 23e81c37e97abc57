// SPDX-FileCopyrightText: Copyright 2026 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package upstream

import "strings"

// SimpleName extracts the pack name from a reverse-DNS registry name.
// Example: "dev.agentpack/react-conventions" -> "react-conventions"
func SimpleName(registryName string) string {
	parts := strings.Split(registryName, "/")
	if len(parts) == 2 {
		return parts[1]
	}
	return registryName
}

// ReverseDNSName builds a reverse-DNS registry name from a pack name.
// Example: "react-conventions" -> "dev.agentpack/react-conventions"
func ReverseDNSName(name string) string {
	if strings.Contains(name, "/") {
		return name // Already in reverse-DNS format
	}
	return PublisherNamespace + "/" + name
}

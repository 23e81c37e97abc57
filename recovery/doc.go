// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

// Package recovery provides panic containment for HTTP handlers and batch
// workers.
//
// Middleware recovers from panics in HTTP handlers and returns a
// 500 Internal Server Error response to the client. This prevents a single
// panicking request from crashing the entire server. Recovered does the
// same for plain functions: batch drivers wrap each work item with it so
// one defective item surfaces as an error instead of taking down the run.
//
// # Basic Usage
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/", handler)
//	wrappedMux := recovery.Middleware(mux)
//	http.ListenAndServe(":8080", wrappedMux)
//
//	err := recovery.Recovered(func() error {
//		return processItem(item)
//	})
//
// # Stability
//
// This package is Beta stability. The API may have minor changes before
// reaching stable status in v1.0.0.
package recovery

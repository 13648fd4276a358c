// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	serverURL  string
	logDebug   bool

	rootCmd = &cobra.Command{
		Use:   "contextgraph",
		Short: "An incremental, deduplicating index over symbol sequences",
		Long: `contextgraph maintains a hierarchical index of symbol sequences in
which every repeated subsequence is stored exactly once. The serve
command runs the HTTP API; the remaining commands are thin clients
against a running server.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the context graph HTTP server",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	insertCmd = &cobra.Command{
		Use:   "insert [sequence]",
		Short: "Index a symbol sequence",
		Args:  cobra.ExactArgs(1),
		RunE:  runInsert, // Defined in cmd_client.go
	}

	searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Find the best indexed ancestor of a query",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch, // Defined in cmd_client.go
	}

	reconstructCmd = &cobra.Command{
		Use:   "reconstruct [entity-id]",
		Short: "Rebuild the full sequence of an entity",
		Args:  cobra.ExactArgs(1),
		RunE:  runReconstruct, // Defined in cmd_client.go
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show arena counts for the running server",
		RunE:  runStats, // Defined in cmd_client.go
	}
)

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML configuration file")
	serveCmd.Flags().BoolVar(&logDebug, "debug", false, "Force debug logging")

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL for client commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reconstructCmd)
	rootCmd.AddCommand(statsCmd)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command contextgraph runs the context graph service and its client
// commands.
//
// Usage:
//
//	contextgraph serve --config config.yaml
//	contextgraph insert "the quick brown fox"
//	contextgraph search "quick brown"
//	contextgraph reconstruct 42
//	contextgraph stats
//
// The client commands talk to a running server; --server overrides the
// default http://localhost:8080.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/contextgraph/httpapi"
)

var clientHTTP = &http.Client{Timeout: 30 * time.Second}

// postJSON sends body to the server and decodes the response into out.
// Non-2xx responses are surfaced as errors carrying the server's error
// code.
func postJSON(path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := clientHTTP.Post(serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(path string, out any) error {
	resp, err := clientHTTP.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr httpapi.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Code != "" {
			return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.Unmarshal(data, out)
}

func runInsert(cmd *cobra.Command, args []string) error {
	var resp httpapi.InsertResponse
	if err := postJSON("/v1/graph/sequences", httpapi.InsertRequest{Sequence: args[0]}, &resp); err != nil {
		return err
	}
	fmt.Printf("entity %d (width %d)\n", resp.EntityID, resp.Width)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	var resp httpapi.SearchResponse
	if err := postJSON("/v1/graph/search", httpapi.SearchRequest{Query: args[0]}, &resp); err != nil {
		return err
	}
	fmt.Printf("entity %d (width %d): %s match [%d..%d), %d atoms matched",
		resp.EntityID, resp.Width, resp.Coverage, resp.Start, resp.End, resp.Matched)
	if resp.QueryExhausted {
		fmt.Print(", query exhausted")
	}
	fmt.Println()
	return nil
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("entity id must be an integer: %q", args[0])
	}
	var resp httpapi.EntityResponse
	if err := getJSON(fmt.Sprintf("/v1/graph/entities/%d", id), &resp); err != nil {
		return err
	}
	fmt.Println(resp.Sequence)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	var resp httpapi.StatsResponse
	if err := getJSON("/v1/graph/stats", &resp); err != nil {
		return err
	}
	fmt.Printf("entities: %d\natoms:    %d\npatterns: %d\nversion:  %s\n",
		resp.Entities, resp.Atoms, resp.Patterns, resp.Version)
	return nil
}

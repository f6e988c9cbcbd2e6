// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ricedb/internal/ricetest"
)

func run(t *testing.T, srv *ricetest.Server, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	a := &app{out: &out}
	cmd := a.rootCmd()
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--host", srv.Host(),
		"--grpc-port", strconv.Itoa(srv.GRPCPort()),
		"--http-port", strconv.Itoa(srv.HTTPPort()),
	}, args...))
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.Bytes()
}

func startServer(t *testing.T) *ricetest.Server {
	t.Helper()
	srv, err := ricetest.Start(nil)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthOverEachTransport(t *testing.T) {
	srv := startServer(t)
	for _, transport := range []string{"grpc", "http"} {
		t.Run(transport, func(t *testing.T) {
			var info struct{ Status, Transport string }
			require.NoError(t, json.Unmarshal(run(t, srv, "--transport", transport, "health"), &info))
			require.Equal(t, "ok", info.Status)
			require.Equal(t, transport, info.Transport)
		})
	}
}

func TestInsertThenSearch(t *testing.T) {
	require := require.New(t)
	srv := startServer(t)

	run(t, srv, "insert", "7", "rice paddies in spring", "--metadata", `{"kind":"note"}`)
	run(t, srv, "--transport", "http", "insert", "8", "tax forms", "--metadata", `{"kind":"doc"}`)

	var hits []struct {
		ID       int64
		Metadata map[string]any
	}
	require.NoError(json.Unmarshal(run(t, srv, "search", "rice", "--filter", `{"kind":"note"}`), &hits))
	require.Len(hits, 1)
	require.Equal(int64(7), hits[0].ID)
}

func TestIngest(t *testing.T) {
	require := require.New(t)
	srv := startServer(t)

	path := filepath.Join(t.TempDir(), "docs.jsonl")
	require.NoError(os.WriteFile(path, []byte(`{"id": 1, "text": "one"}
{"id": 2, "text": "two"}
{"id": 3, "text": ""}
{"id": 4, "text": "four"}
`), 0o600))

	var sum ingestSummary
	require.NoError(json.Unmarshal(run(t, srv, "ingest", path, "--batch-size", "2"), &sum))
	require.Equal(ingestSummary{Sent: 4, Accepted: 3, Batches: 2}, sum)
}

func TestTransports(t *testing.T) {
	var names []string
	var out bytes.Buffer
	a := &app{out: &out}
	cmd := a.rootCmd()
	cmd.SetArgs([]string{"transports"})
	require.NoError(t, cmd.Execute())
	require.NoError(t, json.Unmarshal(out.Bytes(), &names))
	require.Equal(t, []string{"grpc", "http"}, names)
}

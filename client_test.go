// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ricedb/internal/ricetest"
)

// closedPort returns a loopback port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return port
}

func TestNotConnected(t *testing.T) {
	ctx := context.Background()
	c := New()
	v := NewBitVector(8)

	calls := map[string]func() error{
		"Health":           func() error { _, err := c.Health(ctx); return err },
		"Login":            func() error { _, err := c.Login(ctx, "u", "p"); return err },
		"CreateUser":       func() error { _, err := c.CreateUser(ctx, "u", "p"); return err },
		"DeleteUser":       func() error { _, err := c.DeleteUser(ctx, "u"); return err },
		"GetUser":          func() error { _, err := c.GetUser(ctx, "u"); return err },
		"ListUsers":        func() error { _, err := c.ListUsers(ctx); return err },
		"Insert":           func() error { _, err := c.Insert(ctx, 1, "t", nil); return err },
		"Delete":           func() error { _, err := c.Delete(ctx, 1); return err },
		"Search":           func() error { _, err := c.Search(ctx, "q", 1); return err },
		"CreateSession":    func() error { _, err := c.CreateSession(ctx); return err },
		"SnapshotSession":  func() error { _, err := c.SnapshotSession(ctx, "s", "p"); return err },
		"LoadSession":      func() error { _, err := c.LoadSession(ctx, "p"); return err },
		"CommitSession":    func() error { _, err := c.CommitSession(ctx, "s"); return err },
		"DropSession":      func() error { _, err := c.DropSession(ctx, "s"); return err },
		"WriteMemory":      func() error { _, err := c.WriteMemory(ctx, v, v); return err },
		"ReadMemory":       func() error { _, err := c.ReadMemory(ctx, v); return err },
		"AddMemory":        func() error { _, err := c.AddMemory(ctx, "s", "a", "c", nil); return err },
		"GetMemory":        func() error { _, err := c.GetMemory(ctx, "s"); return err },
		"ClearMemory":      func() error { _, err := c.ClearMemory(ctx, "s"); return err },
		"WatchMemory":      func() error { _, err := c.WatchMemory(ctx, "s"); return err },
		"AddEdge":          func() error { _, err := c.AddEdge(ctx, 1, 2, "r"); return err },
		"GetNeighbors":     func() error { _, err := c.GetNeighbors(ctx, 1); return err },
		"Traverse":         func() error { _, err := c.Traverse(ctx, 1); return err },
		"SampleGraph":      func() error { _, err := c.SampleGraph(ctx); return err },
		"Subscribe":        func() error { _, err := c.Subscribe(ctx, ""); return err },
		"BatchInsert":      func() error { _, err := c.BatchInsert(ctx, []Document{{Text: "t"}}); return err },
		"GrantPermission":  func() error { _, err := c.GrantPermission(ctx, 1, 2, Permissions{Read: true}); return err },
		"RevokePermission": func() error { _, err := c.RevokePermission(ctx, 1, 2); return err },
		"CheckPermission":  func() error { _, err := c.CheckPermission(ctx, 1, 2, PermissionRead); return err },
	}
	for name, call := range calls {
		require.ErrorIs(t, call(), ErrNotConnected, name)
	}
	require.Equal(t, StateDisconnected, c.State())
	require.Empty(t, c.Transport())
}

func TestConnectEachTransport(t *testing.T) {
	srv := startServer(t, nil)
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			c := dialServer(t, srv, transport)
			require.Equal(t, StateConnected, c.State())
			require.Equal(t, transport, c.Transport())

			info, err := c.Health(testContext(t))
			require.NoError(t, err)
			require.Equal(t, "ok", info.Status)
			require.Equal(t, transport, info.Transport)
		})
	}
}

func TestAutoPrefersGRPC(t *testing.T) {
	srv := startServer(t, nil)
	metrics := &BasicMetricsCollector{}
	c := dialServer(t, srv, TransportAuto, WithMetrics(metrics))
	require.Equal(t, TransportGRPC, c.Transport())
	require.Zero(t, metrics.GetStats().Fallbacks)
}

func TestAutoFallsBackToHTTP(t *testing.T) {
	srv := startServer(t, nil)
	var logs bytes.Buffer
	metrics := &BasicMetricsCollector{}

	c := dialServer(t, srv, TransportAuto,
		WithGRPCPort(closedPort(t)),
		WithConnectTimeout(500*time.Millisecond),
		WithMetrics(metrics),
		WithLogger(NewLogger(slog.NewTextHandler(&logs, nil))),
	)
	require.Equal(t, TransportHTTP, c.Transport())
	require.Equal(t, int64(1), metrics.GetStats().Fallbacks)
	require.Contains(t, logs.String(), "gRPC connection failed, falling back to HTTP")

	info, err := c.Health(testContext(t))
	require.NoError(t, err)
	require.Equal(t, TransportHTTP, info.Transport)

	_, err = c.Insert(testContext(t), 5, "served over http", nil)
	require.NoError(t, err)
}

func TestConnectFailures(t *testing.T) {
	dead := closedPort(t)
	for _, transport := range []string{TransportGRPC, TransportHTTP, TransportAuto} {
		t.Run(transport, func(t *testing.T) {
			c := New(
				WithHost("127.0.0.1"),
				WithTransport(transport),
				WithGRPCPort(dead),
				WithHTTPPort(dead),
				WithConnectTimeout(300*time.Millisecond),
				WithRetries(1),
			)
			err := c.Connect(testContext(t))
			require.ErrorIs(t, err, ErrConnection)
			require.Equal(t, StateDisconnected, c.State())
			_, err = c.Health(testContext(t))
			require.ErrorIs(t, err, ErrNotConnected)
		})
	}

	err := New(WithTransport("pigeon")).Connect(testContext(t))
	require.ErrorIs(t, err, ErrNoTransport)
}

func TestUnknownCompressor(t *testing.T) {
	srv := startServer(t, nil)
	c := New(append(serverOptions(srv, TransportGRPC), WithCompressor("brotli"))...)
	require.ErrorIs(t, c.Connect(testContext(t)), ErrValidation)
}

func TestDisconnect(t *testing.T) {
	srv := startServer(t, nil)
	c := dialServer(t, srv, TransportGRPC)

	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())
	require.Equal(t, StateDisconnected, c.State())
	_, err := c.Health(testContext(t))
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Connect(testContext(t)))
	_, err = c.Health(testContext(t))
	require.NoError(t, err)
}

func TestDisconnectClosesStreams(t *testing.T) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			b := ricetest.NewBackend()
			srv := startServer(t, b)
			c := dialServer(t, srv, transport)

			s, err := c.Subscribe(testContext(t), FilterAll)
			require.NoError(t, err)
			require.NoError(t, c.Disconnect())

			_, err = s.Recv()
			require.ErrorIs(t, err, ErrStreamClosed)
			require.Eventually(t, func() bool { return b.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestMetricsRecordCalls(t *testing.T) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			srv := startServer(t, nil)
			metrics := &BasicMetricsCollector{}
			c := dialServer(t, srv, transport, WithMetrics(metrics))

			_, err := c.Search(testContext(t), "x", 1, WithK(-1))
			require.ErrorIs(t, err, ErrValidation)
			_, err = c.GetUser(testContext(t), "nobody")
			require.True(t, IsNotFound(err), "got %v", err)

			stats := metrics.GetStats()
			// Connect probe plus GetUser; the rejected search never left the client.
			require.Equal(t, int64(2), stats.Calls)
			require.Equal(t, int64(1), stats.Errors)
		})
	}
}

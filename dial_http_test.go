// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ricedb/internal/ricetest"
	"github.com/luxfi/ricedb/internal/wire"
)

func entryIDs(entries []wire.MemoryEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestMemoryCursor(t *testing.T) {
	require := require.New(t)

	a := wire.MemoryEntry{ID: "a", Timestamp: 5}
	b := wire.MemoryEntry{ID: "b", Timestamp: 5}
	c := wire.MemoryEntry{ID: "c", Timestamp: 5}
	d := wire.MemoryEntry{ID: "d", Timestamp: 6}

	cur := newMemoryCursor()
	require.Zero(cur.after())
	require.Equal([]string{"a", "b"}, entryIDs(cur.advance([]wire.MemoryEntry{a, b})))
	require.Equal(int64(4), cur.after(), "the last millisecond is read again")

	require.Equal([]string{"c"}, entryIDs(cur.advance([]wire.MemoryEntry{a, b, c})))
	require.Equal([]string{"d"}, entryIDs(cur.advance([]wire.MemoryEntry{c, d})))
	require.Equal(int64(5), cur.after())
	require.Empty(cur.advance([]wire.MemoryEntry{d}))
}

func TestHTTPWatchMemorySameMillisecond(t *testing.T) {
	require := require.New(t)
	ctx := testContext(t)

	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := ricetest.NewBackend()
	b.Now = func() time.Time { return frozen }
	b.CoarseTimestamps = true
	c := dialServer(t, startServer(t, b), TransportHTTP)

	_, err := c.AddMemory(ctx, "w", "agent", "before watch", nil)
	require.NoError(err)
	s, err := c.WatchMemory(ctx, "w")
	require.NoError(err)
	defer s.Close()

	for _, content := range []string{"one", "two", "three"} {
		e, err := c.AddMemory(ctx, "w", "agent", content, nil)
		require.NoError(err)
		require.Equal(ID(frozen.UnixMilli()), e.Entry.Timestamp)
	}
	for _, want := range []string{"one", "two", "three"} {
		require.Equal(want, recvWithin(t, s, 2*time.Second).Content)
	}
}

func TestIdempotent(t *testing.T) {
	tests := []struct {
		op   string
		in   wire.Message
		want bool
	}{
		{wire.OpHealth, &wire.Empty{}, true},
		{wire.OpInsert, &wire.InsertRequest{ID: 7, Text: "x"}, true},
		{wire.OpInsert, &wire.InsertRequest{Text: "x"}, false},
		{wire.OpAddMemory, &wire.AddMemoryRequest{}, false},
		{wire.OpBatchInsert, &wire.BatchInsertRequest{}, false},
		{wire.OpCreateUser, &wire.CreateUserRequest{}, false},
		{wire.OpCreateSession, &wire.CreateSessionRequest{}, false},
		{wire.OpAddEdge, &wire.Edge{}, true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, idempotent(tt.op, tt.in), tt.op)
	}
}

// droppingProxy forwards to the test server and, while drop is set, cuts
// the connection of the next request after it was read.
type droppingProxy struct {
	*httptest.Server
	drop     atomic.Bool
	requests atomic.Int32
}

func newDroppingProxy(t *testing.T, srv *ricetest.Server) *droppingProxy {
	target := &url.URL{Scheme: "http", Host: net.JoinHostPort(srv.Host(), strconv.Itoa(srv.HTTPPort()))}
	rp := httputil.NewSingleHostReverseProxy(target)
	p := &droppingProxy{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		if p.drop.CompareAndSwap(true, false) {
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				_ = conn.Close()
			}
			return
		}
		rp.ServeHTTP(w, r)
	}))
	t.Cleanup(p.Close)
	return p
}

func TestHTTPRetriesOnlyIdempotentCalls(t *testing.T) {
	require := require.New(t)
	ctx := testContext(t)

	srv := startServer(t, nil)
	proxy := newDroppingProxy(t, srv)
	c, err := Dial(ctx,
		WithHost(srv.Host()),
		WithTransport(TransportHTTP),
		WithHTTPPort(proxy.Listener.Addr().(*net.TCPAddr).Port),
		WithConnectTimeout(2*time.Second),
		WithRetries(3),
	)
	require.NoError(err)
	t.Cleanup(func() { _ = c.Close() })

	proxy.requests.Store(0)
	proxy.drop.Store(true)
	_, err = c.AddMemory(ctx, "s", "agent", "once", nil)
	require.Error(err)
	require.Equal(int32(1), proxy.requests.Load(), "an append is never resent")

	proxy.requests.Store(0)
	proxy.drop.Store(true)
	_, err = c.Health(ctx)
	require.NoError(err)
	require.Equal(int32(2), proxy.requests.Load())
}

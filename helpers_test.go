// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ricedb/internal/ricetest"
)

var bothTransports = []string{TransportGRPC, TransportHTTP}

func startServer(t *testing.T, b *ricetest.Backend) *ricetest.Server {
	t.Helper()
	srv, err := ricetest.Start(b)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func serverOptions(srv *ricetest.Server, transport string) []Option {
	return []Option{
		WithHost(srv.Host()),
		WithTransport(transport),
		WithGRPCPort(srv.GRPCPort()),
		WithHTTPPort(srv.HTTPPort()),
		WithPollInterval(10 * time.Millisecond),
		WithConnectTimeout(2 * time.Second),
		WithRetries(1),
	}
}

func dialServer(t *testing.T, srv *ricetest.Server, transport string, opts ...Option) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, append(serverOptions(srv, transport), opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// eachTransport runs fn against a fresh server once per transport.
func eachTransport(t *testing.T, fn func(t *testing.T, srv *ricetest.Server, c *Client)) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			srv := startServer(t, nil)
			fn(t, srv, dialServer(t, srv, transport))
		})
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// recvWithin reads one item or fails the test after d.
func recvWithin[T any](t *testing.T, s Stream[T], d time.Duration) T {
	t.Helper()
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := s.Recv()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.v
	case <-time.After(d):
		t.Fatalf("no stream item within %v", d)
	}
	var zero T
	return zero
}

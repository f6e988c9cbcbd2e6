// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	rpc "github.com/gorilla/rpc/v2/json2"
	"google.golang.org/grpc/codes"

	"github.com/luxfi/ricedb/internal/wire"
)

// watchPageSize is the GetMemory page size used to find and follow the head
// of an agent-memory log.
const watchPageSize = 100

func init() {
	registerTransport(TransportHTTP, newHTTPDriver)
}

// httpDriver speaks JSON-RPC 2.0 over HTTP. It has no push channel, so
// WatchMemory and Subscribe poll.
type httpDriver struct {
	core
	uri *url.URL

	mu     sync.RWMutex
	client *http.Client
}

func newHTTPDriver(cfg *config) Driver {
	scheme := "http"
	if cfg.tlsConfig != nil {
		scheme = "https"
	}
	d := &httpDriver{uri: &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(cfg.host, strconv.Itoa(cfg.httpPort)),
		Path:   cfg.httpPath,
	}}
	d.core.init(d, TransportHTTP, cfg)
	return d
}

func (d *httpDriver) Connect(ctx context.Context) error {
	_ = d.Disconnect()

	hc := d.cfg.httpClient
	if hc == nil {
		hc = newHTTPClient(d.cfg.timeout, d.cfg.tlsConfig)
	}
	d.mu.Lock()
	d.client = hc
	d.mu.Unlock()

	hctx, cancel := context.WithTimeout(ctx, d.cfg.connectTimeout)
	defer cancel()
	var resp wire.HealthResponse
	if err := d.call(hctx, wire.OpHealth, &wire.Empty{}, &resp, 1); err != nil {
		_ = d.Disconnect()
		var ce *ConnectionError
		if errors.As(err, &ce) {
			return err
		}
		return &ConnectionError{Transport: TransportHTTP, Address: d.uri.String(), Err: err}
	}
	d.log.InfoContext(ctx, "connected", "address", d.uri.String())
	return nil
}

func (d *httpDriver) Disconnect() error {
	d.streams.closeAll()

	d.mu.Lock()
	hc := d.client
	d.client = nil
	d.mu.Unlock()
	if hc == nil {
		return nil
	}
	hc.CloseIdleConnections()
	d.log.Info("disconnected", "address", d.uri.String())
	return nil
}

func (d *httpDriver) httpClient() (*http.Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return nil, ErrNotConnected
	}
	return d.client, nil
}

func (d *httpDriver) invoke(ctx context.Context, op string, in, out wire.Message) error {
	retries := d.cfg.retries
	if !idempotent(op, in) {
		retries = 1
	}
	return d.call(ctx, op, in, out, retries)
}

// idempotent reports whether op can be resent after a reply was lost. A
// repeated append or id-assigning insert would create a duplicate.
func idempotent(op string, in wire.Message) bool {
	switch op {
	case wire.OpAddMemory, wire.OpBatchInsert, wire.OpCreateUser, wire.OpCreateSession, wire.OpLoadSession:
		return false
	case wire.OpInsert:
		req, ok := in.(*wire.InsertRequest)
		return ok && req.ID != 0
	}
	return true
}

func (d *httpDriver) call(ctx context.Context, op string, in, out wire.Message, retries int) error {
	hc, err := d.httpClient()
	if err != nil {
		return err
	}
	rid := uuid.NewString()
	opts := []RequestOption{
		WithRequestClient(hc),
		WithRequestRetries(retries),
		WithHeader("X-Request-Id", rid),
		withRequestLogger(d.log),
	}
	if b := d.bearer(); b != "" {
		opts = append(opts, WithHeader("Authorization", b))
	}

	start := time.Now()
	err = SendJSONRequest(ctx, d.uri, wire.JSONMethod(op), in, out, opts...)
	elapsed := time.Since(start)
	if err != nil {
		err = d.mapError(ctx, op, err)
	}
	d.cfg.metrics.RecordCall(TransportHTTP, op, elapsed, err)
	d.log.LogCall(ctx, op, rid, elapsed, err)
	return err
}

// mapError folds JSON-RPC and HTTP failures into the same kinds the gRPC
// driver reports.
func (d *httpDriver) mapError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		return &ServerError{Op: op, Code: wire.GRPCCode(rpcErr.Code), Message: rpcErr.Message}
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return &ServerError{Op: op, Code: httpStatusCode(statusErr.StatusCode), Message: http.StatusText(statusErr.StatusCode)}
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) || isRetryableError(err) {
		return &ConnectionError{Transport: TransportHTTP, Address: d.uri.String(), Err: err}
	}
	return fmt.Errorf("ricedb: %s: %w", op, err)
}

func httpStatusCode(status int) codes.Code {
	switch status {
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return codes.Unavailable
	}
	return codes.Unknown
}

// WatchMemory first pages to the current end of the log, then polls for
// newer entries. Timestamps only have millisecond resolution, so the cursor
// re-reads its own millisecond and drops the ids it already handed out.
func (d *httpDriver) WatchMemory(ctx context.Context, sessionID string) (Stream[MemoryEntry], error) {
	cur := newMemoryCursor()
	for {
		entries, err := d.getMemory(ctx, &wire.GetMemoryRequest{SessionID: sessionID, Limit: watchPageSize, After: cur.after()})
		if err != nil {
			return nil, err
		}
		fresh := cur.advance(entries)
		if len(entries) < watchPageSize || len(fresh) == 0 {
			break
		}
	}

	poll := func(ctx context.Context) ([]MemoryEntry, error) {
		entries, err := d.getMemory(ctx, &wire.GetMemoryRequest{SessionID: sessionID, Limit: watchPageSize, After: cur.after()})
		if err != nil {
			return nil, err
		}
		fresh := cur.advance(entries)
		out := make([]MemoryEntry, len(fresh))
		for i, e := range fresh {
			out[i] = memoryEntryFromWire(e)
		}
		return out, nil
	}
	return pollStream(ctx, d, poll), nil
}

// memoryCursor is the newest timestamp seen plus the ids delivered at it.
type memoryCursor struct {
	ts   int64
	seen map[string]struct{}
}

func newMemoryCursor() *memoryCursor {
	return &memoryCursor{seen: map[string]struct{}{}}
}

func (c *memoryCursor) after() int64 {
	return max(c.ts-1, 0)
}

// advance returns the entries not delivered yet and moves the cursor past
// them. entries must be in timestamp order.
func (c *memoryCursor) advance(entries []wire.MemoryEntry) []wire.MemoryEntry {
	var fresh []wire.MemoryEntry
	for _, e := range entries {
		switch {
		case e.Timestamp < c.ts:
			continue
		case e.Timestamp > c.ts:
			c.ts = e.Timestamp
			clear(c.seen)
		}
		if _, ok := c.seen[e.ID]; ok {
			continue
		}
		c.seen[e.ID] = struct{}{}
		fresh = append(fresh, e)
	}
	return fresh
}

// Subscribe asks the server for the current event cursor and then polls
// for events past it.
func (d *httpDriver) Subscribe(ctx context.Context, req SubscribeRequest) (Stream[Event], error) {
	filter := subscribeToWire(req)
	var head wire.PollEventsResponse
	if err := d.invoke(ctx, wire.OpPollEvents, &wire.PollEventsRequest{Filter: filter, FromHead: true}, &head); err != nil {
		return nil, err
	}
	cursor := head.Cursor

	poll := func(ctx context.Context) ([]Event, error) {
		var resp wire.PollEventsResponse
		if err := d.invoke(ctx, wire.OpPollEvents, &wire.PollEventsRequest{Filter: filter, Cursor: cursor}, &resp); err != nil {
			return nil, err
		}
		cursor = max(cursor, resp.Cursor)
		out := make([]Event, 0, len(resp.Events))
		for i := range resp.Events {
			ev, err := eventFromWire(&resp.Events[i])
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	}
	return pollStream(ctx, d, poll), nil
}

func pollStream[T any](ctx context.Context, d *httpDriver, poll func(ctx context.Context) ([]T, error)) Stream[T] {
	src := newPollSource(d.cfg.pollInterval, poll)
	sctx, cancel := context.WithCancel(ctx)
	return newStream(sctx, cancel, &d.streams, src.next)
}

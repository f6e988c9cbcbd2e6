// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/luxfi/ricedb/internal/wire"
)

func init() {
	registerTransport(TransportGRPC, newGRPCDriver)
}

// grpcDriver speaks the ricedb.RiceDB service over gRPC. WatchMemory and
// Subscribe are native server streams.
type grpcDriver struct {
	core
	addr string

	mu   sync.RWMutex
	conn *grpc.ClientConn
}

func newGRPCDriver(cfg *config) Driver {
	d := &grpcDriver{addr: net.JoinHostPort(cfg.host, strconv.Itoa(cfg.grpcPort))}
	d.core.init(d, TransportGRPC, cfg)
	return d
}

func (d *grpcDriver) Connect(ctx context.Context) error {
	_ = d.Disconnect()

	creds := insecure.NewCredentials()
	if d.cfg.tlsConfig != nil {
		creds = credentials.NewTLS(d.cfg.tlsConfig)
	}
	callOpts := []grpc.CallOption{grpc.ForceCodec(wire.Codec{})}
	if name := d.cfg.compressor; name != "" {
		if encoding.GetCompressor(name) == nil {
			return fmt.Errorf("%w: unknown compressor %q", ErrValidation, name)
		}
		callOpts = append(callOpts, grpc.UseCompressor(name))
	}

	conn, err := grpc.NewClient(d.addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(callOpts...),
		grpc.WithChainUnaryInterceptor(d.unaryInterceptor),
		grpc.WithChainStreamInterceptor(d.streamInterceptor),
	)
	if err != nil {
		return &ConnectionError{Transport: TransportGRPC, Address: d.addr, Err: err}
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()

	// NewClient is lazy; the health probe is the handshake.
	hctx, cancel := context.WithTimeout(ctx, d.cfg.connectTimeout)
	defer cancel()
	if _, err := d.Health(hctx); err != nil {
		_ = d.Disconnect()
		var ce *ConnectionError
		if errors.As(err, &ce) {
			return err
		}
		return &ConnectionError{Transport: TransportGRPC, Address: d.addr, Err: err}
	}
	d.log.InfoContext(ctx, "connected", "address", d.addr, "compressor", d.cfg.compressor)
	return nil
}

func (d *grpcDriver) Disconnect() error {
	d.streams.closeAll()

	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()
	if conn == nil {
		return nil
	}
	d.log.Info("disconnected", "address", d.addr)
	return conn.Close()
}

func (d *grpcDriver) client() (*grpc.ClientConn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil {
		return nil, ErrNotConnected
	}
	return d.conn, nil
}

func (d *grpcDriver) invoke(ctx context.Context, op string, in, out wire.Message) error {
	conn, err := d.client()
	if err != nil {
		return err
	}
	if err := conn.Invoke(ctx, wire.FullMethod(op), in, out); err != nil {
		return d.mapError(ctx, op, err)
	}
	return nil
}

func (d *grpcDriver) WatchMemory(ctx context.Context, sessionID string) (Stream[MemoryEntry], error) {
	return openGRPCStream(ctx, d, wire.OpWatchMemory, &wire.MemorySessionRequest{SessionID: sessionID},
		func(e *wire.MemoryEntry) (MemoryEntry, error) {
			return memoryEntryFromWire(*e), nil
		})
}

func (d *grpcDriver) Subscribe(ctx context.Context, req SubscribeRequest) (Stream[Event], error) {
	in := subscribeToWire(req)
	return openGRPCStream(ctx, d, wire.OpSubscribe, &in, eventFromWire)
}

// openGRPCStream starts a server-streaming call and wraps it as a Stream.
func openGRPCStream[W any, PW interface {
	*W
	wire.Message
}, T any](ctx context.Context, d *grpcDriver, op string, req wire.Message, conv func(PW) (T, error)) (Stream[T], error) {
	conn, err := d.client()
	if err != nil {
		return nil, err
	}
	sctx, cancel := context.WithCancel(ctx)
	desc := &grpc.StreamDesc{StreamName: op, ServerStreams: true}
	cs, err := conn.NewStream(sctx, desc, wire.FullMethod(op))
	if err != nil {
		cancel()
		return nil, d.mapError(ctx, op, err)
	}
	// io.EOF from SendMsg means the stream already failed; RecvMsg reports why.
	if err := cs.SendMsg(req); err != nil && !errors.Is(err, io.EOF) {
		cancel()
		return nil, d.mapError(ctx, op, err)
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, d.mapError(ctx, op, err)
	}
	next := func(ctx context.Context) (T, error) {
		var zero T
		msg := PW(new(W))
		if err := cs.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return zero, io.EOF
			}
			return zero, d.mapError(ctx, op, err)
		}
		return conv(msg)
	}
	return newStream(sctx, cancel, &d.streams, next), nil
}

// mapError turns a gRPC status into a ConnectionError or ServerError.
func (d *grpcDriver) mapError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("ricedb: %s: %w", op, err)
	}
	if st.Code() == codes.Unavailable {
		return &ConnectionError{Transport: TransportGRPC, Address: d.addr, Err: err}
	}
	return &ServerError{Op: op, Code: st.Code(), Message: st.Message()}
}

func (d *grpcDriver) outgoing(ctx context.Context) (context.Context, string) {
	rid := uuid.NewString()
	kv := []string{"x-request-id", rid}
	if b := d.bearer(); b != "" {
		kv = append(kv, "authorization", b)
	}
	return metadata.AppendToOutgoingContext(ctx, kv...), rid
}

func (d *grpcDriver) unaryInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx, rid := d.outgoing(ctx)
	start := time.Now()
	err := invoker(ctx, method, req, reply, cc, opts...)
	d.observe(ctx, path.Base(method), rid, time.Since(start), err)
	return err
}

func (d *grpcDriver) streamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	ctx, rid := d.outgoing(ctx)
	start := time.Now()
	cs, err := streamer(ctx, desc, cc, method, opts...)
	d.observe(ctx, path.Base(method), rid, time.Since(start), err)
	return cs, err
}

func (d *grpcDriver) observe(ctx context.Context, op, rid string, elapsed time.Duration, err error) {
	d.cfg.metrics.RecordCall(TransportGRPC, op, elapsed, err)
	d.log.LogCall(ctx, op, rid, elapsed, err)
}

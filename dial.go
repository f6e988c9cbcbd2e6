// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"fmt"
)

// Dial creates a Client and connects it.
func Dial(ctx context.Context, opts ...Option) (*Client, error) {
	c := New(opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect selects a transport and binds the Client to it. In auto mode
// gRPC is tried first and HTTP is used if gRPC fails for any reason; when
// both fail the HTTP error is returned. Connecting an already connected
// Client disconnects the current transport first.
//
// Connect must not run concurrently with other Connect or Disconnect calls.
func (c *Client) Connect(ctx context.Context) error {
	mode, err := ParseTransport(c.cfg.transport)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.driver
	c.driver = nil
	c.state = StateConnecting
	c.mu.Unlock()
	if old != nil {
		_ = old.Disconnect()
	}

	d, err := c.selectDriver(ctx, mode)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateDisconnected
		return err
	}
	c.driver = d
	c.state = StateConnected
	c.cfg.logger.InfoContext(ctx, "client connected", "mode", mode, "transport", d.Transport())
	return nil
}

func (c *Client) selectDriver(ctx context.Context, mode string) (Driver, error) {
	if mode != TransportAuto {
		return c.connectDriver(ctx, mode)
	}
	d, err := c.connectDriver(ctx, TransportGRPC)
	if err == nil {
		return d, nil
	}
	c.cfg.logger.WarnContext(ctx, "gRPC connection failed, falling back to HTTP", "error", err)
	c.cfg.metrics.RecordFallback(TransportGRPC, TransportHTTP)
	return c.connectDriver(ctx, TransportHTTP)
}

// connectDriver builds and connects one driver. A driver that fails to
// connect is released before returning.
func (c *Client) connectDriver(ctx context.Context, name string) (Driver, error) {
	newDriver, ok := lookupTransport(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoTransport, name)
	}
	d := newDriver(&c.cfg)
	if err := d.Connect(ctx); err != nil {
		_ = d.Disconnect()
		return nil, err
	}
	return d, nil
}

// Disconnect releases the bound transport and all of its streams. It is a
// no-op when not connected and safe to call repeatedly.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	d := c.driver
	c.driver = nil
	c.state = StateDisconnected
	c.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.Disconnect()
}

// Close is Disconnect, so a Client can be used as an io.Closer.
func (c *Client) Close() error { return c.Disconnect() }

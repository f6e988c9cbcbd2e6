// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Stream is a lazy, possibly unbounded sequence of server notifications.
// Recv blocks until the next item arrives. It returns io.EOF when the server
// ends the stream and ErrStreamClosed after Close. Close releases the
// underlying RPC or poll loop and may be called from any goroutine.
type Stream[T any] interface {
	Recv() (T, error)
	Close() error
}

// All adapts s to a range-over-func iterator. The stream is closed when the
// loop ends, including on break.
func All[T any](s Stream[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for {
			v, err := s.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(v, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// stream backs both push (gRPC) and poll (HTTP) streams. next blocks for the
// following item and must return promptly once ctx is cancelled.
type stream[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	next   func(ctx context.Context) (T, error)
	owner  *streamSet
	closed atomic.Bool
	once   sync.Once
}

// newStream takes ownership of cancel, which must cancel ctx.
func newStream[T any](ctx context.Context, cancel context.CancelFunc, owner *streamSet, next func(ctx context.Context) (T, error)) *stream[T] {
	s := &stream[T]{ctx: ctx, cancel: cancel, next: next, owner: owner}
	owner.add(s)
	return s
}

func (s *stream[T]) Recv() (T, error) {
	var zero T
	if s.closed.Load() {
		return zero, ErrStreamClosed
	}
	v, err := s.next(s.ctx)
	if err != nil {
		if s.closed.Load() {
			return zero, ErrStreamClosed
		}
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, err
	}
	return v, nil
}

func (s *stream[T]) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.owner.remove(s)
	})
	return nil
}

// pollSource emulates a push stream by calling poll at most once per
// interval and handing out the returned batch one item at a time.
type pollSource[T any] struct {
	limiter *rate.Limiter
	poll    func(ctx context.Context) ([]T, error)
	pending []T
}

func newPollSource[T any](interval time.Duration, poll func(ctx context.Context) ([]T, error)) *pollSource[T] {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &pollSource[T]{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		poll:    poll,
	}
}

func (p *pollSource[T]) next(ctx context.Context) (T, error) {
	var zero T
	for len(p.pending) == 0 {
		if err := p.wait(ctx); err != nil {
			return zero, err
		}
		items, err := p.poll(ctx)
		if err != nil {
			return zero, err
		}
		p.pending = items
	}
	v := p.pending[0]
	p.pending = p.pending[1:]
	return v, nil
}

// wait blocks until the limiter grants the next poll. Unlike
// rate.Limiter.Wait it only fails once ctx is done, so a deadline surfaces
// as context.DeadlineExceeded just as it does on a push stream.
func (p *pollSource[T]) wait(ctx context.Context) error {
	r := p.limiter.Reserve()
	d := r.Delay()
	if d == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// streamSet tracks the open streams of a driver so Disconnect can close
// them.
type streamSet struct {
	mu   sync.Mutex
	open map[io.Closer]struct{}
}

func (s *streamSet) add(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		s.open = make(map[io.Closer]struct{})
	}
	s.open[c] = struct{}{}
}

func (s *streamSet) remove(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, c)
}

func (s *streamSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

func (s *streamSet) closeAll() {
	s.mu.Lock()
	open := s.open
	s.open = nil
	s.mu.Unlock()
	for c := range open {
		_ = c.Close()
	}
}

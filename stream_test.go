// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// sliceSource hands out batches, then io.EOF.
func sliceSource(batches ...[]int) func(context.Context) ([]int, error) {
	return func(context.Context) ([]int, error) {
		if len(batches) == 0 {
			return nil, io.EOF
		}
		b := batches[0]
		batches = batches[1:]
		return b, nil
	}
}

func TestPollSourceFlattensBatches(t *testing.T) {
	require := require.New(t)

	src := newPollSource(time.Millisecond, sliceSource([]int{1, 2}, nil, []int{3}))
	ctx := context.Background()
	for _, want := range []int{1, 2, 3} {
		got, err := src.next(ctx)
		require.NoError(err)
		require.Equal(want, got)
	}
	_, err := src.next(ctx)
	require.ErrorIs(err, io.EOF)
}

func TestPollSourcePaces(t *testing.T) {
	polls := 0
	src := newPollSource(50*time.Millisecond, func(context.Context) ([]int, error) {
		polls++
		return nil, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err := src.next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.LessOrEqual(t, polls, 3)
}

func TestPollSourceDeadlineBeforeNextSlot(t *testing.T) {
	require := require.New(t)

	var set streamSet
	src := newPollSource(time.Second, sliceSource(nil, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	s := newStream(ctx, cancel, &set, src.next)
	defer s.Close()

	start := time.Now()
	_, err := s.Recv()
	require.ErrorIs(err, context.DeadlineExceeded)
	require.GreaterOrEqual(time.Since(start), 90*time.Millisecond, "Recv returns at the deadline, not before")
}

func TestStreamClose(t *testing.T) {
	require := require.New(t)

	var set streamSet
	ctx, cancel := context.WithCancel(context.Background())
	s := newStream(ctx, cancel, &set, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.Equal(1, set.len())

	done := make(chan error, 1)
	go func() {
		_, err := s.Recv()
		done <- err
	}()
	require.NoError(s.Close())
	require.NoError(s.Close())

	select {
	case err := <-done:
		require.ErrorIs(err, ErrStreamClosed)
	case <-time.After(time.Second):
		t.Fatal("Recv did not return after Close")
	}
	_, err := s.Recv()
	require.ErrorIs(err, ErrStreamClosed)
	require.Zero(set.len())
}

func TestStreamParentCancel(t *testing.T) {
	var set streamSet
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := context.WithCancel(parent)
	s := newStream(ctx, cancel, &set, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, errors.New("transport noise")
	})
	defer s.Close()

	cancelParent()
	_, err := s.Recv()
	require.ErrorIs(t, err, context.Canceled)
}

func TestStreamSetCloseAll(t *testing.T) {
	var set streamSet
	var streams []*stream[int]
	for range 3 {
		ctx, cancel := context.WithCancel(context.Background())
		streams = append(streams, newStream(ctx, cancel, &set, newPollSource(time.Millisecond, sliceSource([]int{1})).next))
	}
	set.closeAll()
	require.Zero(t, set.len())
	for _, s := range streams {
		_, err := s.Recv()
		require.ErrorIs(t, err, ErrStreamClosed)
	}
}

func TestAll(t *testing.T) {
	var set streamSet
	ctx, cancel := context.WithCancel(context.Background())
	src := newPollSource(time.Millisecond, sliceSource([]int{1, 2, 3, 4}))
	s := newStream(ctx, cancel, &set, src.next)

	var got []int
	for v, err := range All[int](s) {
		require.NoError(t, err)
		got = append(got, v)
		if v == 2 {
			break
		}
	}
	require.Equal(t, []int{1, 2}, got)
	require.Zero(t, set.len(), "breaking out of All closes the stream")
}

func TestAllEndsAtEOF(t *testing.T) {
	var set streamSet
	ctx, cancel := context.WithCancel(context.Background())
	src := newPollSource(time.Millisecond, sliceSource([]int{7}))
	var got []int
	for v, err := range All[int](newStream(ctx, cancel, &set, src.next)) {
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Equal(t, []int{7}, got)
}

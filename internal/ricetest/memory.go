// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricetest

import (
	"context"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/luxfi/ricedb/internal/wire"
)

func (b *Backend) WriteMemory(ctx context.Context, in *wire.WriteMemoryRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	if err := b.checkWidth(in.Address, in.Data); err != nil {
		return nil, err
	}
	cells := b.sdm[in.UserID]
	for i := range cells {
		if sameBits(cells[i].addr, in.Address) {
			cells[i].data = in.Data
			return &wire.Ack{Success: true, Message: "updated"}, nil
		}
	}
	b.sdm[in.UserID] = append(cells, cell{addr: in.Address, data: in.Data})
	return &wire.Ack{Success: true, Message: "stored"}, nil
}

// ReadMemory returns the data stored at the nearest address by Hamming
// distance, or a zero vector when the user has stored nothing comparable.
func (b *Backend) ReadMemory(ctx context.Context, in *wire.ReadMemoryRequest) (*wire.ReadMemoryResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	if err := b.checkWidth(in.Address); err != nil {
		return nil, err
	}
	addr := toBitSet(in.Address)
	var (
		best     *cell
		bestDist uint
	)
	for i, c := range b.sdm[in.UserID] {
		if c.addr.Width != in.Address.Width {
			continue
		}
		d := addr.SymmetricDifferenceCardinality(toBitSet(c.addr))
		if best == nil || d < bestDist {
			best, bestDist = &b.sdm[in.UserID][i], d
		}
	}
	if best == nil {
		width := in.Address.Width
		return &wire.ReadMemoryResponse{Data: wire.BitVector{Width: width, Words: make([]uint64, (width+63)/64)}}, nil
	}
	return &wire.ReadMemoryResponse{Data: best.data}, nil
}

func toBitSet(v wire.BitVector) *bitset.BitSet {
	words := make([]uint64, (v.Width+63)/64)
	copy(words, v.Words)
	return bitset.FromWithLength(uint(v.Width), words)
}

func sameBits(a, b wire.BitVector) bool {
	return a.Width == b.Width && toBitSet(a).Equal(toBitSet(b))
}

// tick returns a strictly increasing millisecond timestamp, or the raw
// clock under CoarseTimestamps.
func (b *Backend) tick() int64 {
	if b.CoarseTimestamps {
		return b.Now().UnixMilli()
	}
	ts := max(b.Now().UnixMilli(), b.lastTS+1)
	b.lastTS = ts
	return ts
}

func (b *Backend) live(e wire.MemoryEntry) bool {
	return e.ExpiresAt == 0 || e.ExpiresAt > b.Now().UnixMilli()
}

func (b *Backend) AddMemory(ctx context.Context, in *wire.AddMemoryRequest) (*wire.AddMemoryResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	if in.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id required")
	}
	if in.TTLSeconds < 0 {
		return nil, status.Error(codes.InvalidArgument, "negative ttl")
	}
	e := wire.MemoryEntry{
		ID:        uuid.NewString(),
		SessionID: in.SessionID,
		AgentID:   in.AgentID,
		Content:   in.Content,
		Timestamp: b.tick(),
		Metadata:  in.Metadata,
	}
	if in.TTLSeconds > 0 {
		e.ExpiresAt = e.Timestamp + in.TTLSeconds*1000
	}
	b.memory[in.SessionID] = append(b.memory[in.SessionID], e)
	for ch := range b.watchers[in.SessionID] {
		select {
		case ch <- e:
		default:
		}
	}
	return &wire.AddMemoryResponse{Success: true, Message: "added", Entry: e}, nil
}

func (b *Backend) GetMemory(ctx context.Context, in *wire.GetMemoryRequest) (*wire.GetMemoryResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	limit := int(in.Limit)
	if limit == 0 {
		limit = defaultMemoryLimit
	}
	resp := &wire.GetMemoryResponse{}
	for _, e := range b.memory[in.SessionID] {
		if len(resp.Entries) == limit {
			break
		}
		if e.Timestamp <= in.After || !b.live(e) || !matches(e.Metadata, in.Filter) {
			continue
		}
		resp.Entries = append(resp.Entries, e)
	}
	return resp, nil
}

func (b *Backend) ClearMemory(ctx context.Context, in *wire.MemorySessionRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	n := len(b.memory[in.SessionID])
	delete(b.memory, in.SessionID)
	return &wire.Ack{Success: true, Message: fmt.Sprintf("cleared %d entries", n)}, nil
}

// WatchMemory calls send for every entry appended to the session until ctx
// ends or send fails.
func (b *Backend) WatchMemory(ctx context.Context, in *wire.MemorySessionRequest, send func(*wire.MemoryEntry) error) error {
	b.mu.Lock()
	if _, err := b.caller(ctx); err != nil {
		b.mu.Unlock()
		return err
	}
	ch := make(chan wire.MemoryEntry, 64)
	if b.watchers[in.SessionID] == nil {
		b.watchers[in.SessionID] = map[chan wire.MemoryEntry]struct{}{}
	}
	b.watchers[in.SessionID][ch] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.watchers[in.SessionID], ch)
		b.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-ch:
			if err := send(&e); err != nil {
				return err
			}
		}
	}
}

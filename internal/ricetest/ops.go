// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricetest

import (
	"context"

	"github.com/luxfi/ricedb/internal/wire"
)

type unaryOp struct {
	newIn func() wire.Message
	call  func(context.Context, wire.Message) (wire.Message, error)
}

type streamOp struct {
	newIn func() wire.Message
	call  func(context.Context, wire.Message, func(wire.Message) error) error
}

func unary[I any, PI interface {
	*I
	wire.Message
}, O wire.Message](fn func(context.Context, PI) (O, error)) unaryOp {
	return unaryOp{
		newIn: func() wire.Message { return PI(new(I)) },
		call: func(ctx context.Context, in wire.Message) (wire.Message, error) {
			return fn(ctx, in.(PI))
		},
	}
}

func streaming[I any, PI interface {
	*I
	wire.Message
}, O any, PO interface {
	*O
	wire.Message
}](fn func(context.Context, PI, func(PO) error) error) streamOp {
	return streamOp{
		newIn: func() wire.Message { return PI(new(I)) },
		call: func(ctx context.Context, in wire.Message, send func(wire.Message) error) error {
			return fn(ctx, in.(PI), func(out PO) error { return send(out) })
		},
	}
}

func (b *Backend) unaryOps() map[string]unaryOp {
	return map[string]unaryOp{
		wire.OpHealth:           unary(b.Health),
		wire.OpLogin:            unary(b.Login),
		wire.OpCreateUser:       unary(b.CreateUser),
		wire.OpDeleteUser:       unary(b.DeleteUser),
		wire.OpGetUser:          unary(b.GetUser),
		wire.OpListUsers:        unary(b.ListUsers),
		wire.OpInsert:           unary(b.Insert),
		wire.OpDelete:           unary(b.Delete),
		wire.OpSearch:           unary(b.Search),
		wire.OpCreateSession:    unary(b.CreateSession),
		wire.OpSnapshotSession:  unary(b.SnapshotSession),
		wire.OpLoadSession:      unary(b.LoadSession),
		wire.OpCommitSession:    unary(b.CommitSession),
		wire.OpDropSession:      unary(b.DropSession),
		wire.OpWriteMemory:      unary(b.WriteMemory),
		wire.OpReadMemory:       unary(b.ReadMemory),
		wire.OpAddMemory:        unary(b.AddMemory),
		wire.OpGetMemory:        unary(b.GetMemory),
		wire.OpClearMemory:      unary(b.ClearMemory),
		wire.OpAddEdge:          unary(b.AddEdge),
		wire.OpGetNeighbors:     unary(b.GetNeighbors),
		wire.OpTraverse:         unary(b.Traverse),
		wire.OpSampleGraph:      unary(b.SampleGraph),
		wire.OpPollEvents:       unary(b.PollEvents),
		wire.OpBatchInsert:      unary(b.BatchInsert),
		wire.OpGrantPermission:  unary(b.GrantPermission),
		wire.OpRevokePermission: unary(b.RevokePermission),
		wire.OpCheckPermission:  unary(b.CheckPermission),
	}
}

func (b *Backend) streamOps() map[string]streamOp {
	return map[string]streamOp{
		wire.OpWatchMemory: streaming(b.WatchMemory),
		wire.OpSubscribe:   streaming(b.Subscribe),
	}
}

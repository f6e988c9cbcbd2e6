// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"github.com/gorilla/rpc/v2/json2"
	"google.golang.org/grpc/codes"
)

// ServiceName is the gRPC service and the JSON-RPC receiver name prefix.
const (
	ServiceName = "ricedb.RiceDB"
	JSONService = "RiceDB"
)

// Operation names shared by both transports.
const (
	OpHealth           = "Health"
	OpLogin            = "Login"
	OpCreateUser       = "CreateUser"
	OpDeleteUser       = "DeleteUser"
	OpGetUser          = "GetUser"
	OpListUsers        = "ListUsers"
	OpInsert           = "Insert"
	OpDelete           = "Delete"
	OpSearch           = "Search"
	OpCreateSession    = "CreateSession"
	OpSnapshotSession  = "SnapshotSession"
	OpLoadSession      = "LoadSession"
	OpCommitSession    = "CommitSession"
	OpDropSession      = "DropSession"
	OpWriteMemory      = "WriteMemory"
	OpReadMemory       = "ReadMemory"
	OpAddMemory        = "AddMemory"
	OpGetMemory        = "GetMemory"
	OpClearMemory      = "ClearMemory"
	OpWatchMemory      = "WatchMemory"
	OpAddEdge          = "AddEdge"
	OpGetNeighbors     = "GetNeighbors"
	OpTraverse         = "Traverse"
	OpSampleGraph      = "SampleGraph"
	OpSubscribe        = "Subscribe"
	OpPollEvents       = "PollEvents"
	OpBatchInsert      = "BatchInsert"
	OpGrantPermission  = "GrantPermission"
	OpRevokePermission = "RevokePermission"
	OpCheckPermission  = "CheckPermission"
)

// FullMethod returns the gRPC method path for op.
func FullMethod(op string) string {
	return "/" + ServiceName + "/" + op
}

// JSONMethod returns the JSON-RPC method name for op.
func JSONMethod(op string) string {
	return JSONService + "." + op
}

// JSON-RPC server errors occupy [-32099, -32000]. A gRPC status code c is
// carried as -32000-c so the kind survives the text transport.
const (
	jsonCodeBase = -32000
	jsonCodeMin  = -32099
)

// JSONRPCCode maps a gRPC status code into the JSON-RPC server error range.
func JSONRPCCode(c codes.Code) json2.ErrorCode {
	if c == codes.OK || c > codes.Unauthenticated {
		c = codes.Unknown
	}
	return json2.ErrorCode(jsonCodeBase - int(c))
}

// GRPCCode is the inverse of JSONRPCCode. Standard JSON-RPC codes map to the
// closest gRPC kind.
func GRPCCode(c json2.ErrorCode) codes.Code {
	switch {
	case c <= jsonCodeBase-1 && c >= jsonCodeMin:
		n := jsonCodeBase - int(c)
		if n > int(codes.Unauthenticated) {
			return codes.Unknown
		}
		return codes.Code(n)
	case c == json2.E_INVALID_REQ, c == json2.E_BAD_PARAMS, c == json2.E_PARSE:
		return codes.InvalidArgument
	case c == json2.E_NO_METHOD:
		return codes.Unimplemented
	case c == json2.E_INTERNAL:
		return codes.Internal
	}
	return codes.Unknown
}

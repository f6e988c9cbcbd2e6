// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"time"
)

// Driver is the operation set every transport implements identically. The
// Client applies defaults, so drivers always receive fully specified
// arguments. Drivers are safe for concurrent data calls once connected.
type Driver interface {
	// Connect opens the channel and proves it with a health probe.
	Connect(ctx context.Context) error
	// Disconnect releases the channel and every open stream. It is safe to
	// call on a driver that never connected, and safe to call twice.
	Disconnect() error
	// Transport returns the registry name of the driver.
	Transport() string

	Health(ctx context.Context) (HealthInfo, error)

	// Login returns a session token and attaches it to later calls.
	Login(ctx context.Context, username, password string) (string, error)
	CreateUser(ctx context.Context, username, password, role string) (ID, error)
	DeleteUser(ctx context.Context, username string) (bool, error)
	GetUser(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)

	Insert(ctx context.Context, req InsertRequest) (InsertResult, error)
	Delete(ctx context.Context, nodeID ID, sessionID string) (bool, error)
	// Search returns hits in server order.
	Search(ctx context.Context, req SearchRequest) ([]SearchResultItem, error)

	CreateSession(ctx context.Context, parentSessionID string) (string, error)
	SnapshotSession(ctx context.Context, sessionID, path string) (bool, error)
	LoadSession(ctx context.Context, path string) (string, error)
	CommitSession(ctx context.Context, sessionID, mergeStrategy string) (bool, error)
	DropSession(ctx context.Context, sessionID string) (bool, error)

	WriteMemory(ctx context.Context, address, data BitVector, userID ID) (Ack, error)
	ReadMemory(ctx context.Context, address BitVector, userID ID) (BitVector, error)

	AddMemory(ctx context.Context, req AddMemoryRequest) (AddMemoryResult, error)
	GetMemory(ctx context.Context, req GetMemoryRequest) ([]MemoryEntry, error)
	ClearMemory(ctx context.Context, sessionID string) (Ack, error)
	WatchMemory(ctx context.Context, sessionID string) (Stream[MemoryEntry], error)

	AddEdge(ctx context.Context, edge Edge) (bool, error)
	GetNeighbors(ctx context.Context, nodeID ID, relation string) ([]ID, error)
	Traverse(ctx context.Context, startNode ID, maxDepth int) ([]ID, error)
	SampleGraph(ctx context.Context, limit int) (GraphSample, error)

	Subscribe(ctx context.Context, req SubscribeRequest) (Stream[Event], error)

	BatchInsert(ctx context.Context, docs []Document, userID ID) (BatchResult, error)

	GrantPermission(ctx context.Context, nodeID, userID ID, perms Permissions) (bool, error)
	RevokePermission(ctx context.Context, nodeID, userID ID) (bool, error)
	CheckPermission(ctx context.Context, nodeID, userID ID, perm Permission) (bool, error)
}

type InsertRequest struct {
	NodeID    ID
	Text      string
	Metadata  map[string]any
	UserID    ID
	SessionID string
}

type SearchRequest struct {
	Query     string
	UserID    ID
	K         int
	SessionID string
	Filter    map[string]any
}

type AddMemoryRequest struct {
	SessionID string
	AgentID   string
	Content   string
	Metadata  map[string]string
	TTL       time.Duration
}

type GetMemoryRequest struct {
	SessionID string
	Limit     int
	After     ID
	Filter    map[string]string
}

type SubscribeRequest struct {
	FilterType string
	NodeID     ID
	QueryText  string
}

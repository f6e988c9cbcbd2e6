// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"fmt"
)

// HealthInfo describes the server. Transport names the driver that served
// the probe.
type HealthInfo struct {
	Status    string
	Version   string
	Transport string
}

// Ack is a plain success/message acknowledgement.
type Ack struct {
	Success bool
	Message string
}

type User struct {
	ID       ID
	Username string
	Role     string
}

type Grant struct {
	UserID ID
	Permissions
}

type InsertResult struct {
	Success bool
	NodeID  ID
	Message string
	Grants  []Grant
}

// SearchResultItem is one search hit. Metadata numbers are json.Number so
// large integers stored by other clients are not rounded.
type SearchResultItem struct {
	ID         ID
	Similarity float64
	Metadata   map[string]any
}

// MemoryEntry is one agent-memory record. A zero ExpiresAt means the entry
// never expires.
type MemoryEntry struct {
	ID        string
	SessionID string
	AgentID   string
	Content   string
	Timestamp ID
	Metadata  map[string]string
	ExpiresAt ID
}

type AddMemoryResult struct {
	Success bool
	Message string
	Entry   MemoryEntry
}

type GraphNode struct {
	ID    ID
	Label string
}

type Edge struct {
	From     ID
	To       ID
	Relation string
	Weight   float32
}

type GraphSample struct {
	Nodes []GraphNode
	Edges []Edge
}

// Event is a pub/sub notification about a node change.
type Event struct {
	Type       string
	NodeID     ID
	SessionID  string
	Similarity float64
	Metadata   map[string]any
	Timestamp  ID
	Seq        ID
}

// Document is one BatchInsert item. A zero ID asks the server to assign
// one; a zero UserID uses the batch owner.
type Document struct {
	ID       ID
	Text     string
	Metadata map[string]any
	UserID   ID
}

// BatchResult reports how many documents the server accepted. Count may be
// lower than the number sent.
type BatchResult struct {
	Count   int
	NodeIDs []ID
}

type Permissions struct {
	Read   bool
	Write  bool
	Delete bool
}

// Permission names a single ACL right.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
)

func (p Permission) validate() error {
	switch p {
	case PermissionRead, PermissionWrite, PermissionDelete:
		return nil
	}
	return fmt.Errorf("%w: unknown permission %q", ErrValidation, string(p))
}

// Subscription filter types.
const (
	FilterAll   = "all"
	FilterNode  = "node"
	FilterQuery = "query"
)

// Merge strategies for CommitSession.
const (
	MergeOverwrite = "overwrite"
	MergeKeep      = "keep"
)

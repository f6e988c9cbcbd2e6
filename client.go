// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"sync"
)

// State is the connection state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// Client is the RiceDB API over whichever transport Connect selected. It
// holds at most one connected driver. Until Connect succeeds, and after
// Disconnect, every call fails with ErrNotConnected without touching the
// network.
//
// Data calls may be made concurrently once connected.
type Client struct {
	cfg config

	mu     sync.RWMutex
	driver Driver
	state  State
}

// New returns an unconnected Client.
func New(opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{cfg: cfg}
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Transport returns the name of the bound transport, or "" when not
// connected.
func (c *Client) Transport() string {
	d, err := c.bound()
	if err != nil {
		return ""
	}
	return d.Transport()
}

func (c *Client) bound() (Driver, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.driver == nil {
		return nil, ErrNotConnected
	}
	return c.driver, nil
}

func (c *Client) Health(ctx context.Context) (HealthInfo, error) {
	d, err := c.bound()
	if err != nil {
		return HealthInfo{}, err
	}
	return d.Health(ctx)
}

// Login authenticates and returns the session token. The token is sent on
// every later call made through this connection.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	d, err := c.bound()
	if err != nil {
		return "", err
	}
	return d.Login(ctx, username, password)
}

// CreateUser creates a user and returns its id. The role defaults to "user".
func (c *Client) CreateUser(ctx context.Context, username, password string, opts ...CallOption) (ID, error) {
	d, err := c.bound()
	if err != nil {
		return 0, err
	}
	o := newCallOptions(opts)
	return d.CreateUser(ctx, username, password, o.role)
}

func (c *Client) DeleteUser(ctx context.Context, username string) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	return d.DeleteUser(ctx, username)
}

func (c *Client) GetUser(ctx context.Context, username string) (User, error) {
	d, err := c.bound()
	if err != nil {
		return User{}, err
	}
	return d.GetUser(ctx, username)
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	d, err := c.bound()
	if err != nil {
		return nil, err
	}
	return d.ListUsers(ctx)
}

// Insert upserts a node owned by the acting user (AsUser, default 1). With
// InSession the write goes to that session's shadow layer only.
func (c *Client) Insert(ctx context.Context, nodeID ID, text string, metadata map[string]any, opts ...CallOption) (InsertResult, error) {
	d, err := c.bound()
	if err != nil {
		return InsertResult{}, err
	}
	o := newCallOptions(opts)
	return d.Insert(ctx, InsertRequest{
		NodeID:    nodeID,
		Text:      text,
		Metadata:  metadata,
		UserID:    o.userID,
		SessionID: o.sessionID,
	})
}

func (c *Client) Delete(ctx context.Context, nodeID ID, opts ...CallOption) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	o := newCallOptions(opts)
	return d.Delete(ctx, nodeID, o.sessionID)
}

// Search returns up to k (WithK, default 10) hits readable by userID, in
// server order. InSession merges that session over the base store; an
// unknown session searches the base store.
func (c *Client) Search(ctx context.Context, query string, userID ID, opts ...CallOption) ([]SearchResultItem, error) {
	d, err := c.bound()
	if err != nil {
		return nil, err
	}
	o := newCallOptions(opts)
	k := o.k
	if k == 0 {
		k = DefaultK
	}
	return d.Search(ctx, SearchRequest{
		Query:     query,
		UserID:    userID,
		K:         k,
		SessionID: o.sessionID,
		Filter:    o.filter,
	})
}

// CreateSession forks a session from the base store, or from FromParent.
func (c *Client) CreateSession(ctx context.Context, opts ...CallOption) (string, error) {
	d, err := c.bound()
	if err != nil {
		return "", err
	}
	o := newCallOptions(opts)
	return d.CreateSession(ctx, o.parentID)
}

// SnapshotSession asks the server to write the session to path. The path
// is interpreted by the server.
func (c *Client) SnapshotSession(ctx context.Context, sessionID, path string) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	return d.SnapshotSession(ctx, sessionID, path)
}

// LoadSession restores a snapshot into a new live session.
func (c *Client) LoadSession(ctx context.Context, path string) (string, error) {
	d, err := c.bound()
	if err != nil {
		return "", err
	}
	return d.LoadSession(ctx, path)
}

// CommitSession merges a session into its immediate parent, or into the
// base store when it has none, and ends the session. The strategy defaults
// to "overwrite".
func (c *Client) CommitSession(ctx context.Context, sessionID string, opts ...CallOption) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	o := newCallOptions(opts)
	return d.CommitSession(ctx, sessionID, o.strategy)
}

func (c *Client) DropSession(ctx context.Context, sessionID string) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	return d.DropSession(ctx, sessionID)
}

func (c *Client) WriteMemory(ctx context.Context, address, data BitVector, opts ...CallOption) (Ack, error) {
	d, err := c.bound()
	if err != nil {
		return Ack{}, err
	}
	o := newCallOptions(opts)
	return d.WriteMemory(ctx, address, data, o.userID)
}

func (c *Client) ReadMemory(ctx context.Context, address BitVector, opts ...CallOption) (BitVector, error) {
	d, err := c.bound()
	if err != nil {
		return BitVector{}, err
	}
	o := newCallOptions(opts)
	return d.ReadMemory(ctx, address, o.userID)
}

// AddMemory appends to a session's agent-memory log. WithTTL makes the
// entry expire.
func (c *Client) AddMemory(ctx context.Context, sessionID, agentID, content string, metadata map[string]string, opts ...CallOption) (AddMemoryResult, error) {
	d, err := c.bound()
	if err != nil {
		return AddMemoryResult{}, err
	}
	o := newCallOptions(opts)
	return d.AddMemory(ctx, AddMemoryRequest{
		SessionID: sessionID,
		AgentID:   agentID,
		Content:   content,
		Metadata:  metadata,
		TTL:       o.ttl,
	})
}

// GetMemory returns entries newer than After (default 0) in timestamp
// order, at most WithLimit (default 50).
func (c *Client) GetMemory(ctx context.Context, sessionID string, opts ...CallOption) ([]MemoryEntry, error) {
	d, err := c.bound()
	if err != nil {
		return nil, err
	}
	o := newCallOptions(opts)
	return d.GetMemory(ctx, GetMemoryRequest{
		SessionID: sessionID,
		Limit:     o.limitOr(DefaultMemoryLimit),
		After:     o.after,
		Filter:    o.memFilter,
	})
}

func (c *Client) ClearMemory(ctx context.Context, sessionID string) (Ack, error) {
	d, err := c.bound()
	if err != nil {
		return Ack{}, err
	}
	return d.ClearMemory(ctx, sessionID)
}

// WatchMemory streams entries appended after the call. Close the stream, or
// cancel ctx, to stop it.
func (c *Client) WatchMemory(ctx context.Context, sessionID string) (Stream[MemoryEntry], error) {
	d, err := c.bound()
	if err != nil {
		return nil, err
	}
	return d.WatchMemory(ctx, sessionID)
}

// AddEdge creates or updates a directed edge. The weight defaults to 1.0.
func (c *Client) AddEdge(ctx context.Context, from, to ID, relation string, opts ...CallOption) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	o := newCallOptions(opts)
	return d.AddEdge(ctx, Edge{From: from, To: to, Relation: relation, Weight: o.weight})
}

func (c *Client) GetNeighbors(ctx context.Context, nodeID ID, opts ...CallOption) ([]ID, error) {
	d, err := c.bound()
	if err != nil {
		return nil, err
	}
	o := newCallOptions(opts)
	return d.GetNeighbors(ctx, nodeID, o.relation)
}

// Traverse returns the nodes reachable from start within WithMaxDepth hops
// (default 1). Order is chosen by the server.
func (c *Client) Traverse(ctx context.Context, start ID, opts ...CallOption) ([]ID, error) {
	d, err := c.bound()
	if err != nil {
		return nil, err
	}
	o := newCallOptions(opts)
	return d.Traverse(ctx, start, o.maxDepth)
}

func (c *Client) SampleGraph(ctx context.Context, opts ...CallOption) (GraphSample, error) {
	d, err := c.bound()
	if err != nil {
		return GraphSample{}, err
	}
	o := newCallOptions(opts)
	return d.SampleGraph(ctx, o.limitOr(DefaultSampleLimit))
}

// Subscribe streams node events. filterType is "all" (the default when
// empty), "node" with ForNode, or "query" with MatchingQuery.
func (c *Client) Subscribe(ctx context.Context, filterType string, opts ...CallOption) (Stream[Event], error) {
	d, err := c.bound()
	if err != nil {
		return nil, err
	}
	o := newCallOptions(opts)
	if filterType == "" {
		filterType = FilterAll
	}
	return d.Subscribe(ctx, SubscribeRequest{FilterType: filterType, NodeID: o.nodeID, QueryText: o.query})
}

// BatchInsert inserts docs for the acting user. Rejected documents lower
// BatchResult.Count; they are not an error.
func (c *Client) BatchInsert(ctx context.Context, docs []Document, opts ...CallOption) (BatchResult, error) {
	d, err := c.bound()
	if err != nil {
		return BatchResult{}, err
	}
	o := newCallOptions(opts)
	return d.BatchInsert(ctx, docs, o.userID)
}

// GrantPermission replaces the grant userID holds on nodeID.
func (c *Client) GrantPermission(ctx context.Context, nodeID, userID ID, perms Permissions) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	return d.GrantPermission(ctx, nodeID, userID, perms)
}

// RevokePermission removes the grant entirely.
func (c *Client) RevokePermission(ctx context.Context, nodeID, userID ID) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	return d.RevokePermission(ctx, nodeID, userID)
}

func (c *Client) CheckPermission(ctx context.Context, nodeID, userID ID, perm Permission) (bool, error) {
	d, err := c.bound()
	if err != nil {
		return false, err
	}
	return d.CheckPermission(ctx, nodeID, userID, perm)
}

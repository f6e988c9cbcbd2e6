// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/luxfi/ricedb/internal/wire"
)

// invoker sends one unary RPC. op is the bare operation name.
type invoker interface {
	invoke(ctx context.Context, op string, in, out wire.Message) error
}

// core implements every unary Driver operation on top of an invoker. The
// gRPC and HTTP drivers embed it and add connection and stream handling.
type core struct {
	inv       invoker
	transport string
	cfg       *config
	log       *Logger
	token     atomic.Pointer[string]
	streams   streamSet
}

func (c *core) init(inv invoker, transport string, cfg *config) {
	c.inv = inv
	c.transport = transport
	c.cfg = cfg
	c.log = cfg.logger.WithTransport(transport)
	if cfg.token != "" {
		tok := cfg.token
		c.token.Store(&tok)
	}
}

func (c *core) Transport() string { return c.transport }

func (c *core) bearer() string {
	if t := c.token.Load(); t != nil && *t != "" {
		return "Bearer " + *t
	}
	return ""
}

func (c *core) Health(ctx context.Context) (HealthInfo, error) {
	var resp wire.HealthResponse
	if err := c.inv.invoke(ctx, wire.OpHealth, &wire.Empty{}, &resp); err != nil {
		return HealthInfo{}, err
	}
	return HealthInfo{Status: resp.Status, Version: resp.Version, Transport: c.transport}, nil
}

func (c *core) Login(ctx context.Context, username, password string) (string, error) {
	var resp wire.LoginResponse
	err := c.inv.invoke(ctx, wire.OpLogin, &wire.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	tok := resp.Token
	c.token.Store(&tok)
	return tok, nil
}

func (c *core) CreateUser(ctx context.Context, username, password, role string) (ID, error) {
	var resp wire.CreateUserResponse
	req := &wire.CreateUserRequest{Username: username, Password: password, Role: role}
	if err := c.inv.invoke(ctx, wire.OpCreateUser, req, &resp); err != nil {
		return 0, err
	}
	return ID(resp.UserID), nil
}

func (c *core) DeleteUser(ctx context.Context, username string) (bool, error) {
	return c.ack(ctx, wire.OpDeleteUser, &wire.UserRequest{Username: username})
}

func (c *core) GetUser(ctx context.Context, username string) (User, error) {
	var resp wire.User
	if err := c.inv.invoke(ctx, wire.OpGetUser, &wire.UserRequest{Username: username}, &resp); err != nil {
		return User{}, err
	}
	return userFromWire(resp), nil
}

func (c *core) ListUsers(ctx context.Context) ([]User, error) {
	var resp wire.ListUsersResponse
	if err := c.inv.invoke(ctx, wire.OpListUsers, &wire.Empty{}, &resp); err != nil {
		return nil, err
	}
	users := make([]User, len(resp.Users))
	for i, u := range resp.Users {
		users[i] = userFromWire(u)
	}
	return users, nil
}

func (c *core) Insert(ctx context.Context, req InsertRequest) (InsertResult, error) {
	meta, err := encodeMetadata(req.Metadata)
	if err != nil {
		return InsertResult{}, err
	}
	in := &wire.InsertRequest{
		ID:        req.NodeID.Int64(),
		Text:      req.Text,
		Metadata:  meta,
		UserID:    req.UserID.Int64(),
		SessionID: req.SessionID,
	}
	var resp wire.InsertResponse
	if err := c.inv.invoke(ctx, wire.OpInsert, in, &resp); err != nil {
		return InsertResult{}, err
	}
	res := InsertResult{Success: resp.Success, NodeID: ID(resp.NodeID), Message: resp.Message}
	for _, g := range resp.Grants {
		res.Grants = append(res.Grants, Grant{
			UserID:      ID(g.UserID),
			Permissions: Permissions{Read: g.Read, Write: g.Write, Delete: g.Delete},
		})
	}
	return res, nil
}

func (c *core) Delete(ctx context.Context, nodeID ID, sessionID string) (bool, error) {
	return c.ack(ctx, wire.OpDelete, &wire.DeleteRequest{NodeID: nodeID.Int64(), SessionID: sessionID})
}

func (c *core) Search(ctx context.Context, req SearchRequest) ([]SearchResultItem, error) {
	filter, err := encodeMetadata(req.Filter)
	if err != nil {
		return nil, err
	}
	if req.K < 0 {
		return nil, fmt.Errorf("%w: k must not be negative", ErrValidation)
	}
	in := &wire.SearchRequest{
		Query:     req.Query,
		UserID:    req.UserID.Int64(),
		K:         uint32(req.K),
		SessionID: req.SessionID,
		Filter:    filter,
	}
	var resp wire.SearchResponse
	if err := c.inv.invoke(ctx, wire.OpSearch, in, &resp); err != nil {
		return nil, err
	}
	items := make([]SearchResultItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		meta, err := decodeMetadata(r.Metadata)
		if err != nil {
			return nil, err
		}
		items = append(items, SearchResultItem{ID: ID(r.ID), Similarity: r.Similarity, Metadata: meta})
	}
	return items, nil
}

func (c *core) CreateSession(ctx context.Context, parentSessionID string) (string, error) {
	var resp wire.SessionResponse
	err := c.inv.invoke(ctx, wire.OpCreateSession, &wire.CreateSessionRequest{ParentSessionID: parentSessionID}, &resp)
	if err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (c *core) SnapshotSession(ctx context.Context, sessionID, path string) (bool, error) {
	return c.ack(ctx, wire.OpSnapshotSession, &wire.SessionRequest{SessionID: sessionID, Path: path})
}

func (c *core) LoadSession(ctx context.Context, path string) (string, error) {
	var resp wire.SessionResponse
	if err := c.inv.invoke(ctx, wire.OpLoadSession, &wire.SessionRequest{Path: path}, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (c *core) CommitSession(ctx context.Context, sessionID, mergeStrategy string) (bool, error) {
	return c.ack(ctx, wire.OpCommitSession, &wire.SessionRequest{SessionID: sessionID, MergeStrategy: mergeStrategy})
}

func (c *core) DropSession(ctx context.Context, sessionID string) (bool, error) {
	return c.ack(ctx, wire.OpDropSession, &wire.SessionRequest{SessionID: sessionID})
}

// checkWidth enforces WithMemoryWidth locally.
func (c *core) checkWidth(vs ...BitVector) error {
	if c.cfg.memoryWidth == 0 {
		return nil
	}
	for _, v := range vs {
		if v.Width() != c.cfg.memoryWidth {
			return &WidthMismatchError{Want: c.cfg.memoryWidth, Got: v.Width()}
		}
	}
	return nil
}

func (c *core) WriteMemory(ctx context.Context, address, data BitVector, userID ID) (Ack, error) {
	if err := c.checkWidth(address, data); err != nil {
		return Ack{}, err
	}
	in := &wire.WriteMemoryRequest{Address: address.toWire(), Data: data.toWire(), UserID: userID.Int64()}
	var resp wire.Ack
	if err := c.inv.invoke(ctx, wire.OpWriteMemory, in, &resp); err != nil {
		return Ack{}, err
	}
	return Ack{Success: resp.Success, Message: resp.Message}, nil
}

func (c *core) ReadMemory(ctx context.Context, address BitVector, userID ID) (BitVector, error) {
	if err := c.checkWidth(address); err != nil {
		return BitVector{}, err
	}
	var resp wire.ReadMemoryResponse
	in := &wire.ReadMemoryRequest{Address: address.toWire(), UserID: userID.Int64()}
	if err := c.inv.invoke(ctx, wire.OpReadMemory, in, &resp); err != nil {
		return BitVector{}, err
	}
	return bitVectorFromWire(resp.Data)
}

func (c *core) AddMemory(ctx context.Context, req AddMemoryRequest) (AddMemoryResult, error) {
	if req.TTL < 0 {
		return AddMemoryResult{}, fmt.Errorf("%w: negative ttl", ErrValidation)
	}
	in := &wire.AddMemoryRequest{
		SessionID:  req.SessionID,
		AgentID:    req.AgentID,
		Content:    req.Content,
		Metadata:   req.Metadata,
		TTLSeconds: ttlSeconds(req.TTL),
	}
	var resp wire.AddMemoryResponse
	if err := c.inv.invoke(ctx, wire.OpAddMemory, in, &resp); err != nil {
		return AddMemoryResult{}, err
	}
	return AddMemoryResult{
		Success: resp.Success,
		Message: resp.Message,
		Entry:   memoryEntryFromWire(resp.Entry),
	}, nil
}

// ttlSeconds rounds up so a sub-second TTL still expires. Zero on the wire
// means no expiry.
func ttlSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

func (c *core) GetMemory(ctx context.Context, req GetMemoryRequest) ([]MemoryEntry, error) {
	entries, err := c.getMemory(ctx, &wire.GetMemoryRequest{
		SessionID: req.SessionID,
		Limit:     uint32(max(req.Limit, 0)),
		After:     req.After.Int64(),
		Filter:    req.Filter,
	})
	if err != nil {
		return nil, err
	}
	out := make([]MemoryEntry, len(entries))
	for i, e := range entries {
		out[i] = memoryEntryFromWire(e)
	}
	return out, nil
}

func (c *core) getMemory(ctx context.Context, in *wire.GetMemoryRequest) ([]wire.MemoryEntry, error) {
	var resp wire.GetMemoryResponse
	if err := c.inv.invoke(ctx, wire.OpGetMemory, in, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *core) ClearMemory(ctx context.Context, sessionID string) (Ack, error) {
	var resp wire.Ack
	if err := c.inv.invoke(ctx, wire.OpClearMemory, &wire.MemorySessionRequest{SessionID: sessionID}, &resp); err != nil {
		return Ack{}, err
	}
	return Ack{Success: resp.Success, Message: resp.Message}, nil
}

func (c *core) AddEdge(ctx context.Context, edge Edge) (bool, error) {
	return c.ack(ctx, wire.OpAddEdge, &wire.Edge{
		From:     edge.From.Int64(),
		To:       edge.To.Int64(),
		Relation: edge.Relation,
		Weight:   edge.Weight,
	})
}

func (c *core) GetNeighbors(ctx context.Context, nodeID ID, relation string) ([]ID, error) {
	var resp wire.NodeIDsResponse
	in := &wire.NeighborsRequest{NodeID: nodeID.Int64(), Relation: relation}
	if err := c.inv.invoke(ctx, wire.OpGetNeighbors, in, &resp); err != nil {
		return nil, err
	}
	return idsFromWire(resp.NodeIDs), nil
}

func (c *core) Traverse(ctx context.Context, startNode ID, maxDepth int) ([]ID, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: negative depth", ErrValidation)
	}
	var resp wire.NodeIDsResponse
	in := &wire.TraverseRequest{StartNode: startNode.Int64(), MaxDepth: uint32(maxDepth)}
	if err := c.inv.invoke(ctx, wire.OpTraverse, in, &resp); err != nil {
		return nil, err
	}
	return idsFromWire(resp.NodeIDs), nil
}

func (c *core) SampleGraph(ctx context.Context, limit int) (GraphSample, error) {
	var resp wire.GraphSample
	if err := c.inv.invoke(ctx, wire.OpSampleGraph, &wire.LimitRequest{Limit: uint32(max(limit, 0))}, &resp); err != nil {
		return GraphSample{}, err
	}
	var s GraphSample
	for _, n := range resp.Nodes {
		s.Nodes = append(s.Nodes, GraphNode{ID: ID(n.ID), Label: n.Label})
	}
	for _, e := range resp.Edges {
		s.Edges = append(s.Edges, Edge{From: ID(e.From), To: ID(e.To), Relation: e.Relation, Weight: e.Weight})
	}
	return s, nil
}

// BatchInsert sends every document whose metadata encodes. The rest are
// logged and left out, so they show up as a shortfall in Count.
func (c *core) BatchInsert(ctx context.Context, docs []Document, userID ID) (BatchResult, error) {
	in := &wire.BatchInsertRequest{UserID: userID.Int64()}
	for i, d := range docs {
		meta, err := encodeMetadata(d.Metadata)
		if err != nil {
			c.log.WarnContext(ctx, "skipping batch document", "index", i, "id", d.ID, "error", err)
			continue
		}
		in.Documents = append(in.Documents, wire.Document{
			ID:       d.ID.Int64(),
			Text:     d.Text,
			Metadata: meta,
			UserID:   d.UserID.Int64(),
		})
	}
	if len(in.Documents) == 0 {
		return BatchResult{}, nil
	}
	var resp wire.BatchInsertResponse
	if err := c.inv.invoke(ctx, wire.OpBatchInsert, in, &resp); err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Count: resp.Count, NodeIDs: idsFromWire(resp.NodeIDs)}, nil
}

func (c *core) GrantPermission(ctx context.Context, nodeID, userID ID, perms Permissions) (bool, error) {
	return c.ack(ctx, wire.OpGrantPermission, &wire.PermissionRequest{
		NodeID: nodeID.Int64(),
		UserID: userID.Int64(),
		Read:   perms.Read,
		Write:  perms.Write,
		Delete: perms.Delete,
	})
}

func (c *core) RevokePermission(ctx context.Context, nodeID, userID ID) (bool, error) {
	return c.ack(ctx, wire.OpRevokePermission, &wire.PermissionRequest{NodeID: nodeID.Int64(), UserID: userID.Int64()})
}

func (c *core) CheckPermission(ctx context.Context, nodeID, userID ID, perm Permission) (bool, error) {
	if err := perm.validate(); err != nil {
		return false, err
	}
	var resp wire.CheckPermissionResponse
	in := &wire.PermissionRequest{NodeID: nodeID.Int64(), UserID: userID.Int64(), Permission: string(perm)}
	if err := c.inv.invoke(ctx, wire.OpCheckPermission, in, &resp); err != nil {
		return false, err
	}
	return resp.Allowed, nil
}

func (c *core) ack(ctx context.Context, op string, in wire.Message) (bool, error) {
	var resp wire.Ack
	if err := c.inv.invoke(ctx, op, in, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func userFromWire(u wire.User) User {
	return User{ID: ID(u.ID), Username: u.Username, Role: u.Role}
}

func memoryEntryFromWire(e wire.MemoryEntry) MemoryEntry {
	return MemoryEntry{
		ID:        e.ID,
		SessionID: e.SessionID,
		AgentID:   e.AgentID,
		Content:   e.Content,
		Timestamp: ID(e.Timestamp),
		Metadata:  e.Metadata,
		ExpiresAt: ID(e.ExpiresAt),
	}
}

func eventFromWire(e *wire.Event) (Event, error) {
	meta, err := decodeMetadata(e.Metadata)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:       e.Type,
		NodeID:     ID(e.NodeID),
		SessionID:  e.SessionID,
		Similarity: e.Similarity,
		Metadata:   meta,
		Timestamp:  ID(e.Timestamp),
		Seq:        ID(e.Seq),
	}, nil
}

func subscribeToWire(req SubscribeRequest) wire.SubscribeRequest {
	return wire.SubscribeRequest{FilterType: req.FilterType, NodeID: req.NodeID.Int64(), QueryText: req.QueryText}
}

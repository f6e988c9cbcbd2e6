// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricetest

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/luxfi/ricedb/internal/wire"
)

func (b *Backend) AddEdge(ctx context.Context, in *wire.Edge) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	if in.Relation == "" {
		return nil, status.Error(codes.InvalidArgument, "relation required")
	}
	for i, e := range b.edges {
		if e.From == in.From && e.To == in.To && e.Relation == in.Relation {
			b.edges[i].Weight = in.Weight
			return &wire.Ack{Success: true, Message: "updated"}, nil
		}
	}
	b.edges = append(b.edges, *in)
	return &wire.Ack{Success: true, Message: "created"}, nil
}

func (b *Backend) GetNeighbors(ctx context.Context, in *wire.NeighborsRequest) (*wire.NodeIDsResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	return &wire.NodeIDsResponse{NodeIDs: b.neighbors(in.NodeID, in.Relation)}, nil
}

func (b *Backend) neighbors(id int64, relation string) []int64 {
	var out []int64
	seen := map[int64]bool{}
	for _, e := range b.edges {
		if e.From != id || (relation != "" && e.Relation != relation) || seen[e.To] {
			continue
		}
		seen[e.To] = true
		out = append(out, e.To)
	}
	return out
}

// Traverse walks outgoing edges breadth first. The start node is not
// included.
func (b *Backend) Traverse(ctx context.Context, in *wire.TraverseRequest) (*wire.NodeIDsResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	seen := map[int64]bool{in.StartNode: true}
	frontier := []int64{in.StartNode}
	resp := &wire.NodeIDsResponse{}
	for depth := uint32(0); depth < in.MaxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, id := range frontier {
			for _, n := range b.neighbors(id, "") {
				if seen[n] {
					continue
				}
				seen[n] = true
				next = append(next, n)
				resp.NodeIDs = append(resp.NodeIDs, n)
			}
		}
		frontier = next
	}
	return resp, nil
}

func (b *Backend) SampleGraph(ctx context.Context, in *wire.LimitRequest) (*wire.GraphSample, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	limit := int(in.Limit)
	if limit == 0 {
		limit = 100
	}
	resp := &wire.GraphSample{}
	for _, id := range sortedIDs(b.base) {
		if len(resp.Nodes) == limit {
			break
		}
		resp.Nodes = append(resp.Nodes, wire.GraphNode{ID: id, Label: b.base[id].text})
	}
	for _, e := range b.edges {
		if len(resp.Edges) == limit {
			break
		}
		resp.Edges = append(resp.Edges, e)
	}
	return resp, nil
}

// publish records a node event and fans it out to subscribers. b.mu must be
// held.
func (b *Backend) publish(typ string, n *node, sessionID string) {
	b.seq++
	ev := event{
		Event: wire.Event{
			Type:      typ,
			NodeID:    n.id,
			SessionID: sessionID,
			Metadata:  n.metadata,
			Timestamp: b.Now().UnixMilli(),
			Seq:       b.seq,
		},
		text: n.text,
	}
	b.events = append(b.events, ev)
	if len(b.events) > eventBacklog {
		b.events = b.events[len(b.events)-eventBacklog:]
	}
	for sub := range b.subs {
		if out, ok := ev.match(sub.filter); ok {
			select {
			case sub.ch <- out:
			default:
			}
		}
	}
}

func (e event) match(f wire.SubscribeRequest) (wire.Event, bool) {
	out := e.Event
	switch f.FilterType {
	case "", "all":
		return out, true
	case "node":
		return out, e.NodeID == f.NodeID
	case "query":
		out.Similarity = similarity(f.QueryText, e.text)
		return out, out.Similarity > 0
	}
	return out, false
}

func validFilter(f wire.SubscribeRequest) error {
	switch f.FilterType {
	case "", "all", "node", "query":
		return nil
	}
	return status.Errorf(codes.InvalidArgument, "unknown filter type %q", f.FilterType)
}

// Subscribe calls send for every matching event until ctx ends or send
// fails.
func (b *Backend) Subscribe(ctx context.Context, in *wire.SubscribeRequest, send func(*wire.Event) error) error {
	if err := validFilter(*in); err != nil {
		return err
	}
	b.mu.Lock()
	if _, err := b.caller(ctx); err != nil {
		b.mu.Unlock()
		return err
	}
	sub := &eventSub{filter: *in, ch: make(chan wire.Event, 64)}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sub.ch:
			if err := send(&ev); err != nil {
				return err
			}
		}
	}
}

// PollEvents serves subscriptions for clients without a push channel.
func (b *Backend) PollEvents(ctx context.Context, in *wire.PollEventsRequest) (*wire.PollEventsResponse, error) {
	if err := validFilter(in.Filter); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	resp := &wire.PollEventsResponse{Cursor: max(in.Cursor, 0)}
	if in.FromHead {
		resp.Cursor = b.seq
		return resp, nil
	}
	limit := int(in.Limit)
	if limit == 0 {
		limit = pollLimit
	}
	for _, ev := range b.events {
		if ev.Seq <= in.Cursor {
			continue
		}
		if len(resp.Events) == limit {
			break
		}
		resp.Cursor = ev.Seq
		if out, ok := ev.match(in.Filter); ok {
			resp.Events = append(resp.Events, out)
		}
	}
	return resp, nil
}

// BatchInsert stores each well-formed document in the base store. Documents
// with no text or invalid metadata are skipped and left out of Count.
func (b *Backend) BatchInsert(ctx context.Context, in *wire.BatchInsertRequest) (*wire.BatchInsertResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	resp := &wire.BatchInsertResponse{}
	for _, d := range in.Documents {
		if d.Text == "" || validMetadata(d.Metadata) != nil {
			continue
		}
		owner := d.UserID
		if owner == 0 {
			owner = in.UserID
		}
		id := d.ID
		if id == 0 {
			id = b.nextAuto
			b.nextAuto++
		}
		existing := b.base[id]
		if !b.canWrite(existing, owner) {
			continue
		}
		n := &node{id: id, text: d.Text, metadata: d.Metadata, owner: owner}
		if existing != nil {
			n.owner = existing.owner
		}
		b.base[id] = n
		b.publish("insert", n, "")
		resp.Count++
		resp.NodeIDs = append(resp.NodeIDs, id)
	}
	return resp, nil
}

func (b *Backend) GrantPermission(ctx context.Context, in *wire.PermissionRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	if _, ok := b.base[in.NodeID]; !ok {
		return nil, status.Errorf(codes.NotFound, "node %d not found", in.NodeID)
	}
	if b.grants[in.NodeID] == nil {
		b.grants[in.NodeID] = map[int64]wire.Grant{}
	}
	b.grants[in.NodeID][in.UserID] = wire.Grant{UserID: in.UserID, Read: in.Read, Write: in.Write, Delete: in.Delete}
	return &wire.Ack{Success: true}, nil
}

func (b *Backend) RevokePermission(ctx context.Context, in *wire.PermissionRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	_, ok := b.grants[in.NodeID][in.UserID]
	delete(b.grants[in.NodeID], in.UserID)
	return &wire.Ack{Success: ok}, nil
}

func (b *Backend) CheckPermission(ctx context.Context, in *wire.PermissionRequest) (*wire.CheckPermissionResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	n, ok := b.base[in.NodeID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "node %d not found", in.NodeID)
	}
	if n.owner == in.UserID || b.isAdmin(in.UserID) {
		return &wire.CheckPermissionResponse{Allowed: true}, nil
	}
	g := b.grants[in.NodeID][in.UserID]
	var allowed bool
	switch in.Permission {
	case "read":
		allowed = g.Read
	case "write":
		allowed = g.Write
	case "delete":
		allowed = g.Delete
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown permission %q", in.Permission)
	}
	return &wire.CheckPermissionResponse{Allowed: allowed}, nil
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ricetest runs an in-memory RiceDB server for tests. It serves the
// same operations over gRPC and JSON-RPC from one Backend, so a test can
// drive both transports against shared state.
package ricetest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/luxfi/ricedb/internal/wire"
)

const (
	AdminID       = 1
	AdminUser     = "admin"
	AdminPassword = "admin"

	// FirstAutoID is the first id handed out for documents sent without
	// one. It is above 2^53 so callers see ids a float64 cannot hold.
	FirstAutoID = 1<<54 + 1

	defaultMemoryLimit = 50
	pollLimit          = 100
	eventBacklog       = 1024
)

type user struct {
	id       int64
	name     string
	password string
	role     string
}

type node struct {
	id       int64
	text     string
	metadata json.RawMessage
	owner    int64
}

// session is a copy-on-write layer over its parent, or over the base store
// when parent is empty.
type session struct {
	parent  string
	nodes   map[int64]*node
	deleted map[int64]bool
}

func (s *session) clone() *session {
	return &session{parent: s.parent, nodes: maps.Clone(s.nodes), deleted: maps.Clone(s.deleted)}
}

type cell struct {
	addr wire.BitVector
	data wire.BitVector
}

type event struct {
	wire.Event
	text string
}

type eventSub struct {
	filter wire.SubscribeRequest
	ch     chan wire.Event
}

// Backend holds all server state. The zero value is not usable; call
// NewBackend.
type Backend struct {
	// RequireAuth rejects every call but Health and Login that carries no
	// valid bearer token.
	RequireAuth bool
	// MemoryWidth, when non-zero, is the only SDM vector width accepted.
	MemoryWidth uint32
	Version     string
	// Now is the clock used for memory timestamps and expiry.
	Now func() time.Time
	// CoarseTimestamps stamps memory entries with the raw clock, so entries
	// added within one millisecond share a timestamp.
	CoarseTimestamps bool

	mu         sync.Mutex
	users      map[string]*user
	nextUserID int64
	tokens     map[string]int64

	base      map[int64]*node
	sessions  map[string]*session
	snapshots map[string]*session
	grants    map[int64]map[int64]wire.Grant
	nextAuto  int64

	sdm map[int64][]cell

	memory   map[string][]wire.MemoryEntry
	lastTS   int64
	watchers map[string]map[chan wire.MemoryEntry]struct{}

	edges []wire.Edge

	events []event
	seq    int64
	subs   map[*eventSub]struct{}
}

func NewBackend() *Backend {
	return &Backend{
		Version:    "ricetest",
		Now:        time.Now,
		users:      map[string]*user{AdminUser: {id: AdminID, name: AdminUser, password: AdminPassword, role: "admin"}},
		nextUserID: AdminID + 1,
		tokens:     map[string]int64{},
		base:       map[int64]*node{},
		sessions:   map[string]*session{},
		snapshots:  map[string]*session{},
		grants:     map[int64]map[int64]wire.Grant{},
		nextAuto:   FirstAutoID,
		sdm:        map[int64][]cell{},
		memory:     map[string][]wire.MemoryEntry{},
		watchers:   map[string]map[chan wire.MemoryEntry]struct{}{},
		subs:       map[*eventSub]struct{}{},
	}
}

type tokenKey struct{}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}

// caller returns the authenticated user, or nil. It fails only when auth is
// required. b.mu must be held.
func (b *Backend) caller(ctx context.Context) (*user, error) {
	tok, _ := ctx.Value(tokenKey{}).(string)
	if id, ok := b.tokens[tok]; ok && tok != "" {
		for _, u := range b.users {
			if u.id == id {
				return u, nil
			}
		}
	}
	if b.RequireAuth {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
	}
	return nil, nil
}

func (b *Backend) requireAdmin(ctx context.Context) error {
	u, err := b.caller(ctx)
	if err != nil {
		return err
	}
	if u != nil && u.role != "admin" {
		return status.Error(codes.PermissionDenied, "admin role required")
	}
	return nil
}

func (b *Backend) isAdmin(userID int64) bool {
	for _, u := range b.users {
		if u.id == userID {
			return u.role == "admin"
		}
	}
	return false
}

func (b *Backend) Health(context.Context, *wire.Empty) (*wire.HealthResponse, error) {
	return &wire.HealthResponse{Status: "ok", Version: b.Version}, nil
}

func (b *Backend) Login(_ context.Context, in *wire.LoginRequest) (*wire.LoginResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[in.Username]
	if !ok || u.password != in.Password {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	tok := uuid.NewString()
	b.tokens[tok] = u.id
	return &wire.LoginResponse{Token: tok, UserID: u.id, Role: u.role}, nil
}

func (b *Backend) CreateUser(ctx context.Context, in *wire.CreateUserRequest) (*wire.CreateUserResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if in.Username == "" {
		return nil, status.Error(codes.InvalidArgument, "username required")
	}
	if _, ok := b.users[in.Username]; ok {
		return nil, status.Errorf(codes.AlreadyExists, "user %q exists", in.Username)
	}
	role := in.Role
	if role == "" {
		role = "user"
	}
	u := &user{id: b.nextUserID, name: in.Username, password: in.Password, role: role}
	b.nextUserID++
	b.users[u.name] = u
	return &wire.CreateUserResponse{UserID: u.id}, nil
}

func (b *Backend) DeleteUser(ctx context.Context, in *wire.UserRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if _, ok := b.users[in.Username]; !ok {
		return nil, status.Errorf(codes.NotFound, "user %q not found", in.Username)
	}
	delete(b.users, in.Username)
	return &wire.Ack{Success: true}, nil
}

func (b *Backend) GetUser(ctx context.Context, in *wire.UserRequest) (*wire.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	u, ok := b.users[in.Username]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "user %q not found", in.Username)
	}
	return &wire.User{ID: u.id, Username: u.name, Role: u.role}, nil
}

func (b *Backend) ListUsers(ctx context.Context, _ *wire.Empty) (*wire.ListUsersResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireAdmin(ctx); err != nil {
		return nil, err
	}
	resp := &wire.ListUsersResponse{}
	for _, u := range b.users {
		resp.Users = append(resp.Users, wire.User{ID: u.id, Username: u.name, Role: u.role})
	}
	sort.Slice(resp.Users, func(i, j int) bool { return resp.Users[i].ID < resp.Users[j].ID })
	return resp, nil
}

// view resolves the nodes visible in sessionID. Unknown sessions see the
// base store.
func (b *Backend) view(sessionID string) map[int64]*node {
	var chain []*session
	seen := map[string]bool{}
	for id := sessionID; id != "" && !seen[id]; {
		s, ok := b.sessions[id]
		if !ok {
			break
		}
		seen[id] = true
		chain = append(chain, s)
		id = s.parent
	}
	out := maps.Clone(b.base)
	for i := len(chain) - 1; i >= 0; i-- {
		for id := range chain[i].deleted {
			delete(out, id)
		}
		maps.Copy(out, chain[i].nodes)
	}
	return out
}

// knownSession rejects writes to a session that does not exist. Reads
// against such a session fall back to the base store instead.
func (b *Backend) knownSession(id string) error {
	if _, ok := b.sessions[id]; id != "" && !ok {
		return status.Errorf(codes.NotFound, "session %q not found", id)
	}
	return nil
}

func (b *Backend) canWrite(n *node, userID int64) bool {
	if n == nil || n.owner == userID || b.isAdmin(userID) {
		return true
	}
	return b.grants[n.id][userID].Write
}

func (b *Backend) canRead(n *node, userID int64) bool {
	if n.owner == userID || b.isAdmin(userID) {
		return true
	}
	return b.grants[n.id][userID].Read
}

func (b *Backend) Insert(ctx context.Context, in *wire.InsertRequest) (*wire.InsertResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	if err := validMetadata(in.Metadata); err != nil {
		return nil, err
	}
	id := in.ID
	if id == 0 {
		id = b.nextAuto
		b.nextAuto++
	}
	if err := b.knownSession(in.SessionID); err != nil {
		return nil, err
	}
	existing := b.view(in.SessionID)[id]
	if !b.canWrite(existing, in.UserID) {
		return nil, status.Errorf(codes.PermissionDenied, "user %d cannot write node %d", in.UserID, id)
	}
	n := &node{id: id, text: in.Text, metadata: in.Metadata, owner: in.UserID}
	if existing != nil {
		n.owner = existing.owner
	}

	if s, ok := b.sessions[in.SessionID]; ok {
		s.nodes[id] = n
		delete(s.deleted, id)
	} else {
		b.base[id] = n
	}

	typ, msg := "insert", "inserted"
	if existing != nil {
		typ, msg = "update", "updated"
	}
	b.publish(typ, n, in.SessionID)
	return &wire.InsertResponse{
		Success: true,
		NodeID:  id,
		Message: msg,
		Grants:  []wire.Grant{{UserID: n.owner, Read: true, Write: true, Delete: true}},
	}, nil
}

func (b *Backend) Delete(ctx context.Context, in *wire.DeleteRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	caller, err := b.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.knownSession(in.SessionID); err != nil {
		return nil, err
	}
	n, ok := b.view(in.SessionID)[in.NodeID]
	if !ok {
		return &wire.Ack{Success: false, Message: "not found"}, nil
	}
	if caller != nil && n.owner != caller.id && caller.role != "admin" && !b.grants[n.id][caller.id].Delete {
		return nil, status.Errorf(codes.PermissionDenied, "user %d cannot delete node %d", caller.id, n.id)
	}
	if s, ok := b.sessions[in.SessionID]; ok {
		delete(s.nodes, in.NodeID)
		s.deleted[in.NodeID] = true
	} else {
		delete(b.base, in.NodeID)
		delete(b.grants, in.NodeID)
	}
	b.publish("delete", n, in.SessionID)
	return &wire.Ack{Success: true}, nil
}

func (b *Backend) Search(ctx context.Context, in *wire.SearchRequest) (*wire.SearchResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	filter, err := decodeJSON(in.Filter)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "filter: %v", err)
	}
	k := int(in.K)
	if k == 0 {
		k = 10
	}

	var results []wire.SearchResult
	for _, n := range b.view(in.SessionID) {
		if !b.canRead(n, in.UserID) {
			continue
		}
		if len(filter) > 0 {
			meta, _ := decodeJSON(n.metadata)
			if !matches(meta, filter) {
				continue
			}
		}
		results = append(results, wire.SearchResult{
			ID:         n.id,
			Similarity: similarity(in.Query, n.text),
			Metadata:   n.metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return &wire.SearchResponse{Results: results}, nil
}

func (b *Backend) CreateSession(ctx context.Context, in *wire.CreateSessionRequest) (*wire.SessionResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	if in.ParentSessionID != "" {
		if _, ok := b.sessions[in.ParentSessionID]; !ok {
			return nil, status.Errorf(codes.NotFound, "session %q not found", in.ParentSessionID)
		}
	}
	id := uuid.NewString()
	b.sessions[id] = &session{parent: in.ParentSessionID, nodes: map[int64]*node{}, deleted: map[int64]bool{}}
	return &wire.SessionResponse{SessionID: id}, nil
}

func (b *Backend) SnapshotSession(ctx context.Context, in *wire.SessionRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	s, ok := b.sessions[in.SessionID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "session %q not found", in.SessionID)
	}
	if in.Path == "" {
		return nil, status.Error(codes.InvalidArgument, "path required")
	}
	b.snapshots[in.Path] = s.clone()
	return &wire.Ack{Success: true, Message: "snapshot written to " + in.Path}, nil
}

func (b *Backend) LoadSession(ctx context.Context, in *wire.SessionRequest) (*wire.SessionResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	snap, ok := b.snapshots[in.Path]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no snapshot at %q", in.Path)
	}
	s := snap.clone()
	if _, ok := b.sessions[s.parent]; !ok {
		s.parent = ""
	}
	id := uuid.NewString()
	b.sessions[id] = s
	return &wire.SessionResponse{SessionID: id}, nil
}

// CommitSession merges a session into its immediate parent, or the base
// store, and removes it. Its children are re-parented onto the merge
// target.
func (b *Backend) CommitSession(ctx context.Context, in *wire.SessionRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	s, ok := b.sessions[in.SessionID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "session %q not found", in.SessionID)
	}
	overwrite := true
	switch in.MergeStrategy {
	case "", "overwrite":
	case "keep":
		overwrite = false
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown merge strategy %q", in.MergeStrategy)
	}

	target := b.base
	parent, hasParent := b.sessions[s.parent]
	if hasParent {
		target = parent.nodes
	}
	visible := b.view(s.parent)
	for id := range s.deleted {
		delete(target, id)
		if hasParent {
			parent.deleted[id] = true
		}
	}
	for id, n := range s.nodes {
		if _, exists := visible[id]; exists && !overwrite {
			continue
		}
		target[id] = n
		if hasParent {
			delete(parent.deleted, id)
		}
	}
	b.dropLocked(in.SessionID)
	return &wire.Ack{Success: true, Message: fmt.Sprintf("merged %d nodes", len(s.nodes))}, nil
}

func (b *Backend) DropSession(ctx context.Context, in *wire.SessionRequest) (*wire.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.caller(ctx); err != nil {
		return nil, err
	}
	if _, ok := b.sessions[in.SessionID]; !ok {
		return &wire.Ack{Success: false, Message: "not found"}, nil
	}
	b.dropLocked(in.SessionID)
	return &wire.Ack{Success: true}, nil
}

func (b *Backend) dropLocked(id string) {
	parent := b.sessions[id].parent
	delete(b.sessions, id)
	for _, s := range b.sessions {
		if s.parent == id {
			s.parent = parent
		}
	}
}

// Sessions returns the number of live sessions.
func (b *Backend) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *Backend) checkWidth(vs ...wire.BitVector) error {
	if b.MemoryWidth == 0 {
		return nil
	}
	for _, v := range vs {
		if v.Width != b.MemoryWidth {
			return status.Errorf(codes.InvalidArgument, "vector width %d, want %d", v.Width, b.MemoryWidth)
		}
	}
	return nil
}

// Subscribers returns the number of open event and memory watch streams.
func (b *Backend) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.subs)
	for _, w := range b.watchers {
		n += len(w)
	}
	return n
}

func decodeJSON(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func validMetadata(raw json.RawMessage) error {
	if _, err := decodeJSON(raw); err != nil {
		return status.Errorf(codes.InvalidArgument, "metadata must be a JSON object: %v", err)
	}
	return nil
}

// matches reports whether meta has every key of filter with an equal value.
func matches[V any](meta map[string]V, filter map[string]V) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func tokens(s string) map[string]float64 {
	tf := map[string]float64{}
	for _, t := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tf[t]++
	}
	return tf
}

// similarity is the cosine of the term-frequency vectors of a and b.
func similarity(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	var dot, na, nb float64
	for t, x := range ta {
		dot += x * tb[t]
		na += x * x
	}
	for _, y := range tb {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sortedIDs(m map[int64]*node) []int64 {
	ids := slices.Collect(maps.Keys(m))
	slices.Sort(ids)
	return ids
}

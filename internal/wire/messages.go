// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protowire"
)

type Empty struct{}

func (*Empty) AppendWire(b []byte) []byte { return b }

func (*Empty) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(protowire.Number, protowire.Type, []byte) int { return 0 })
}

// Ack is the generic success/message reply.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (m *Ack) AppendWire(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	return appendString(b, 2, m.Message)
}

func (m *Ack) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeBool(typ, v, &m.Success)
		case 2:
			return consumeString(typ, v, &m.Message)
		}
		return 0
	})
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (m *HealthResponse) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Status)
	return appendString(b, 2, m.Version)
}

func (m *HealthResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Status)
		case 2:
			return consumeString(typ, v, &m.Version)
		}
		return 0
	})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (m *LoginRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Username)
	return appendString(b, 2, m.Password)
}

func (m *LoginRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Username)
		case 2:
			return consumeString(typ, v, &m.Password)
		}
		return 0
	})
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

func (m *LoginResponse) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Token)
	b = appendInt64(b, 2, m.UserID)
	return appendString(b, 3, m.Role)
}

func (m *LoginResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Token)
		case 2:
			return consumeInt64(typ, v, &m.UserID)
		case 3:
			return consumeString(typ, v, &m.Role)
		}
		return 0
	})
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (m *CreateUserRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Username)
	b = appendString(b, 2, m.Password)
	return appendString(b, 3, m.Role)
}

func (m *CreateUserRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Username)
		case 2:
			return consumeString(typ, v, &m.Password)
		case 3:
			return consumeString(typ, v, &m.Role)
		}
		return 0
	})
}

type CreateUserResponse struct {
	UserID int64 `json:"user_id"`
}

func (m *CreateUserResponse) AppendWire(b []byte) []byte {
	return appendInt64(b, 1, m.UserID)
}

func (m *CreateUserResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeInt64(typ, v, &m.UserID)
		}
		return 0
	})
}

// UserRequest names a user for DeleteUser and GetUser.
type UserRequest struct {
	Username string `json:"username"`
}

func (m *UserRequest) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.Username)
}

func (m *UserRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeString(typ, v, &m.Username)
		}
		return 0
	})
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (m *User) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.ID)
	b = appendString(b, 2, m.Username)
	return appendString(b, 3, m.Role)
}

func (m *User) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.ID)
		case 2:
			return consumeString(typ, v, &m.Username)
		case 3:
			return consumeString(typ, v, &m.Role)
		}
		return 0
	})
}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

func (m *ListUsersResponse) AppendWire(b []byte) []byte {
	for i := range m.Users {
		b = appendMessage(b, 1, &m.Users[i])
	}
	return b
}

func (m *ListUsersResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeRepeated(typ, v, &m.Users)
		}
		return 0
	})
}

// InsertRequest upserts a node. Metadata is a JSON object.
type InsertRequest struct {
	ID        int64           `json:"id"`
	Text      string          `json:"text"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	UserID    int64           `json:"user_id"`
	SessionID string          `json:"session_id,omitempty"`
}

func (m *InsertRequest) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.ID)
	b = appendString(b, 2, m.Text)
	b = appendBytes(b, 3, m.Metadata)
	b = appendInt64(b, 4, m.UserID)
	return appendString(b, 5, m.SessionID)
}

func (m *InsertRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.ID)
		case 2:
			return consumeString(typ, v, &m.Text)
		case 3:
			return consumeRaw(typ, v, &m.Metadata)
		case 4:
			return consumeInt64(typ, v, &m.UserID)
		case 5:
			return consumeString(typ, v, &m.SessionID)
		}
		return 0
	})
}

type Grant struct {
	UserID int64 `json:"user_id"`
	Read   bool  `json:"read"`
	Write  bool  `json:"write"`
	Delete bool  `json:"delete"`
}

func (m *Grant) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.UserID)
	b = appendBool(b, 2, m.Read)
	b = appendBool(b, 3, m.Write)
	return appendBool(b, 4, m.Delete)
}

func (m *Grant) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.UserID)
		case 2:
			return consumeBool(typ, v, &m.Read)
		case 3:
			return consumeBool(typ, v, &m.Write)
		case 4:
			return consumeBool(typ, v, &m.Delete)
		}
		return 0
	})
}

type InsertResponse struct {
	Success bool    `json:"success"`
	NodeID  int64   `json:"node_id"`
	Message string  `json:"message,omitempty"`
	Grants  []Grant `json:"acl_grants,omitempty"`
}

func (m *InsertResponse) AppendWire(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	b = appendInt64(b, 2, m.NodeID)
	b = appendString(b, 3, m.Message)
	for i := range m.Grants {
		b = appendMessage(b, 4, &m.Grants[i])
	}
	return b
}

func (m *InsertResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeBool(typ, v, &m.Success)
		case 2:
			return consumeInt64(typ, v, &m.NodeID)
		case 3:
			return consumeString(typ, v, &m.Message)
		case 4:
			return consumeRepeated(typ, v, &m.Grants)
		}
		return 0
	})
}

type DeleteRequest struct {
	NodeID    int64  `json:"node_id"`
	SessionID string `json:"session_id,omitempty"`
}

func (m *DeleteRequest) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.NodeID)
	return appendString(b, 2, m.SessionID)
}

func (m *DeleteRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.NodeID)
		case 2:
			return consumeString(typ, v, &m.SessionID)
		}
		return 0
	})
}

// SearchRequest carries an exact-match metadata filter as a JSON object.
type SearchRequest struct {
	Query     string          `json:"query"`
	UserID    int64           `json:"user_id"`
	K         uint32          `json:"k"`
	SessionID string          `json:"session_id,omitempty"`
	Filter    json.RawMessage `json:"filter,omitempty"`
}

func (m *SearchRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Query)
	b = appendInt64(b, 2, m.UserID)
	b = appendUint32(b, 3, m.K)
	b = appendString(b, 4, m.SessionID)
	return appendBytes(b, 5, m.Filter)
}

func (m *SearchRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Query)
		case 2:
			return consumeInt64(typ, v, &m.UserID)
		case 3:
			return consumeUint32(typ, v, &m.K)
		case 4:
			return consumeString(typ, v, &m.SessionID)
		case 5:
			return consumeRaw(typ, v, &m.Filter)
		}
		return 0
	})
}

type SearchResult struct {
	ID         int64           `json:"id"`
	Similarity float64         `json:"similarity"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

func (m *SearchResult) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.ID)
	b = appendDouble(b, 2, m.Similarity)
	return appendBytes(b, 3, m.Metadata)
}

func (m *SearchResult) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.ID)
		case 2:
			return consumeDouble(typ, v, &m.Similarity)
		case 3:
			return consumeRaw(typ, v, &m.Metadata)
		}
		return 0
	})
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

func (m *SearchResponse) AppendWire(b []byte) []byte {
	for i := range m.Results {
		b = appendMessage(b, 1, &m.Results[i])
	}
	return b
}

func (m *SearchResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeRepeated(typ, v, &m.Results)
		}
		return 0
	})
}

type CreateSessionRequest struct {
	ParentSessionID string `json:"parent_session_id,omitempty"`
}

func (m *CreateSessionRequest) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.ParentSessionID)
}

func (m *CreateSessionRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeString(typ, v, &m.ParentSessionID)
		}
		return 0
	})
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}

func (m *SessionResponse) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.SessionID)
	return appendString(b, 2, m.Message)
}

func (m *SessionResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.SessionID)
		case 2:
			return consumeString(typ, v, &m.Message)
		}
		return 0
	})
}

// SessionRequest addresses a live session. Path is set for snapshot and
// load, MergeStrategy for commit.
type SessionRequest struct {
	SessionID     string `json:"session_id,omitempty"`
	Path          string `json:"path,omitempty"`
	MergeStrategy string `json:"merge_strategy,omitempty"`
}

func (m *SessionRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.SessionID)
	b = appendString(b, 2, m.Path)
	return appendString(b, 3, m.MergeStrategy)
}

func (m *SessionRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.SessionID)
		case 2:
			return consumeString(typ, v, &m.Path)
		case 3:
			return consumeString(typ, v, &m.MergeStrategy)
		}
		return 0
	})
}

// BitVector is a fixed-width bit pattern stored as little-endian words.
type BitVector struct {
	Width uint32   `json:"width"`
	Words []uint64 `json:"words"`
}

func (m *BitVector) AppendWire(b []byte) []byte {
	b = appendUint32(b, 1, m.Width)
	return appendPackedUint64(b, 2, m.Words)
}

func (m *BitVector) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeUint32(typ, v, &m.Width)
		case 2:
			return consumeUint64s(typ, v, &m.Words)
		}
		return 0
	})
}

type WriteMemoryRequest struct {
	Address BitVector `json:"address"`
	Data    BitVector `json:"data"`
	UserID  int64     `json:"user_id"`
}

func (m *WriteMemoryRequest) AppendWire(b []byte) []byte {
	b = appendMessage(b, 1, &m.Address)
	b = appendMessage(b, 2, &m.Data)
	return appendInt64(b, 3, m.UserID)
}

func (m *WriteMemoryRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeMessage(typ, v, &m.Address)
		case 2:
			return consumeMessage(typ, v, &m.Data)
		case 3:
			return consumeInt64(typ, v, &m.UserID)
		}
		return 0
	})
}

type ReadMemoryRequest struct {
	Address BitVector `json:"address"`
	UserID  int64     `json:"user_id"`
}

func (m *ReadMemoryRequest) AppendWire(b []byte) []byte {
	b = appendMessage(b, 1, &m.Address)
	return appendInt64(b, 2, m.UserID)
}

func (m *ReadMemoryRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeMessage(typ, v, &m.Address)
		case 2:
			return consumeInt64(typ, v, &m.UserID)
		}
		return 0
	})
}

type ReadMemoryResponse struct {
	Data BitVector `json:"data"`
}

func (m *ReadMemoryResponse) AppendWire(b []byte) []byte {
	return appendMessage(b, 1, &m.Data)
}

func (m *ReadMemoryResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeMessage(typ, v, &m.Data)
		}
		return 0
	})
}

type AddMemoryRequest struct {
	SessionID  string            `json:"session_id"`
	AgentID    string            `json:"agent_id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	TTLSeconds int64             `json:"ttl_seconds,omitempty"`
}

func (m *AddMemoryRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.SessionID)
	b = appendString(b, 2, m.AgentID)
	b = appendString(b, 3, m.Content)
	b = appendStringMap(b, 4, m.Metadata)
	return appendInt64(b, 5, m.TTLSeconds)
}

func (m *AddMemoryRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.SessionID)
		case 2:
			return consumeString(typ, v, &m.AgentID)
		case 3:
			return consumeString(typ, v, &m.Content)
		case 4:
			return consumeStringMap(typ, v, &m.Metadata)
		case 5:
			return consumeInt64(typ, v, &m.TTLSeconds)
		}
		return 0
	})
}

type MemoryEntry struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	AgentID   string            `json:"agent_id"`
	Content   string            `json:"content"`
	Timestamp int64             `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ExpiresAt int64             `json:"expires_at,omitempty"`
}

func (m *MemoryEntry) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	b = appendString(b, 2, m.SessionID)
	b = appendString(b, 3, m.AgentID)
	b = appendString(b, 4, m.Content)
	b = appendInt64(b, 5, m.Timestamp)
	b = appendStringMap(b, 6, m.Metadata)
	return appendInt64(b, 7, m.ExpiresAt)
}

func (m *MemoryEntry) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.ID)
		case 2:
			return consumeString(typ, v, &m.SessionID)
		case 3:
			return consumeString(typ, v, &m.AgentID)
		case 4:
			return consumeString(typ, v, &m.Content)
		case 5:
			return consumeInt64(typ, v, &m.Timestamp)
		case 6:
			return consumeStringMap(typ, v, &m.Metadata)
		case 7:
			return consumeInt64(typ, v, &m.ExpiresAt)
		}
		return 0
	})
}

type AddMemoryResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Entry   MemoryEntry `json:"entry"`
}

func (m *AddMemoryResponse) AppendWire(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.Message)
	return appendMessage(b, 3, &m.Entry)
}

func (m *AddMemoryResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeBool(typ, v, &m.Success)
		case 2:
			return consumeString(typ, v, &m.Message)
		case 3:
			return consumeMessage(typ, v, &m.Entry)
		}
		return 0
	})
}

type GetMemoryRequest struct {
	SessionID string            `json:"session_id"`
	Limit     uint32            `json:"limit"`
	After     int64             `json:"after"`
	Filter    map[string]string `json:"filter,omitempty"`
}

func (m *GetMemoryRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.SessionID)
	b = appendUint32(b, 2, m.Limit)
	b = appendInt64(b, 3, m.After)
	return appendStringMap(b, 4, m.Filter)
}

func (m *GetMemoryRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.SessionID)
		case 2:
			return consumeUint32(typ, v, &m.Limit)
		case 3:
			return consumeInt64(typ, v, &m.After)
		case 4:
			return consumeStringMap(typ, v, &m.Filter)
		}
		return 0
	})
}

type GetMemoryResponse struct {
	Entries []MemoryEntry `json:"entries"`
}

func (m *GetMemoryResponse) AppendWire(b []byte) []byte {
	for i := range m.Entries {
		b = appendMessage(b, 1, &m.Entries[i])
	}
	return b
}

func (m *GetMemoryResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeRepeated(typ, v, &m.Entries)
		}
		return 0
	})
}

// MemorySessionRequest addresses an agent-memory session for ClearMemory
// and WatchMemory.
type MemorySessionRequest struct {
	SessionID string `json:"session_id"`
}

func (m *MemorySessionRequest) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.SessionID)
}

func (m *MemorySessionRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeString(typ, v, &m.SessionID)
		}
		return 0
	})
}

type Edge struct {
	From     int64   `json:"from"`
	To       int64   `json:"to"`
	Relation string  `json:"relation"`
	Weight   float32 `json:"weight"`
}

func (m *Edge) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.From)
	b = appendInt64(b, 2, m.To)
	b = appendString(b, 3, m.Relation)
	return appendFloat(b, 4, m.Weight)
}

func (m *Edge) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.From)
		case 2:
			return consumeInt64(typ, v, &m.To)
		case 3:
			return consumeString(typ, v, &m.Relation)
		case 4:
			return consumeFloat(typ, v, &m.Weight)
		}
		return 0
	})
}

type NeighborsRequest struct {
	NodeID   int64  `json:"node_id"`
	Relation string `json:"relation,omitempty"`
}

func (m *NeighborsRequest) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.NodeID)
	return appendString(b, 2, m.Relation)
}

func (m *NeighborsRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.NodeID)
		case 2:
			return consumeString(typ, v, &m.Relation)
		}
		return 0
	})
}

type TraverseRequest struct {
	StartNode int64  `json:"start_node"`
	MaxDepth  uint32 `json:"max_depth"`
}

func (m *TraverseRequest) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.StartNode)
	return appendUint32(b, 2, m.MaxDepth)
}

func (m *TraverseRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.StartNode)
		case 2:
			return consumeUint32(typ, v, &m.MaxDepth)
		}
		return 0
	})
}

type NodeIDsResponse struct {
	NodeIDs []int64 `json:"node_ids"`
}

func (m *NodeIDsResponse) AppendWire(b []byte) []byte {
	return appendPackedInt64(b, 1, m.NodeIDs)
}

func (m *NodeIDsResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeInt64s(typ, v, &m.NodeIDs)
		}
		return 0
	})
}

type LimitRequest struct {
	Limit uint32 `json:"limit"`
}

func (m *LimitRequest) AppendWire(b []byte) []byte {
	return appendUint32(b, 1, m.Limit)
}

func (m *LimitRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeUint32(typ, v, &m.Limit)
		}
		return 0
	})
}

type GraphNode struct {
	ID    int64  `json:"id"`
	Label string `json:"label,omitempty"`
}

func (m *GraphNode) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.ID)
	return appendString(b, 2, m.Label)
}

func (m *GraphNode) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.ID)
		case 2:
			return consumeString(typ, v, &m.Label)
		}
		return 0
	})
}

type GraphSample struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []Edge      `json:"edges"`
}

func (m *GraphSample) AppendWire(b []byte) []byte {
	for i := range m.Nodes {
		b = appendMessage(b, 1, &m.Nodes[i])
	}
	for i := range m.Edges {
		b = appendMessage(b, 2, &m.Edges[i])
	}
	return b
}

func (m *GraphSample) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeRepeated(typ, v, &m.Nodes)
		case 2:
			return consumeRepeated(typ, v, &m.Edges)
		}
		return 0
	})
}

type SubscribeRequest struct {
	FilterType string `json:"filter_type"`
	NodeID     int64  `json:"node_id,omitempty"`
	QueryText  string `json:"query_text,omitempty"`
}

func (m *SubscribeRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.FilterType)
	b = appendInt64(b, 2, m.NodeID)
	return appendString(b, 3, m.QueryText)
}

func (m *SubscribeRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.FilterType)
		case 2:
			return consumeInt64(typ, v, &m.NodeID)
		case 3:
			return consumeString(typ, v, &m.QueryText)
		}
		return 0
	})
}

type Event struct {
	Type       string          `json:"type"`
	NodeID     int64           `json:"node_id,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
	Similarity float64         `json:"similarity,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	Seq        int64           `json:"seq"`
}

func (m *Event) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Type)
	b = appendInt64(b, 2, m.NodeID)
	b = appendString(b, 3, m.SessionID)
	b = appendDouble(b, 4, m.Similarity)
	b = appendBytes(b, 5, m.Metadata)
	b = appendInt64(b, 6, m.Timestamp)
	return appendInt64(b, 7, m.Seq)
}

func (m *Event) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Type)
		case 2:
			return consumeInt64(typ, v, &m.NodeID)
		case 3:
			return consumeString(typ, v, &m.SessionID)
		case 4:
			return consumeDouble(typ, v, &m.Similarity)
		case 5:
			return consumeRaw(typ, v, &m.Metadata)
		case 6:
			return consumeInt64(typ, v, &m.Timestamp)
		case 7:
			return consumeInt64(typ, v, &m.Seq)
		}
		return 0
	})
}

// PollEventsRequest drives subscription polling on the JSON-RPC transport.
// FromHead asks only for the current cursor.
type PollEventsRequest struct {
	Filter   SubscribeRequest `json:"filter"`
	Cursor   int64            `json:"cursor"`
	FromHead bool             `json:"from_head,omitempty"`
	Limit    uint32           `json:"limit,omitempty"`
}

func (m *PollEventsRequest) AppendWire(b []byte) []byte {
	b = appendMessage(b, 1, &m.Filter)
	b = appendInt64(b, 2, m.Cursor)
	b = appendBool(b, 3, m.FromHead)
	return appendUint32(b, 4, m.Limit)
}

func (m *PollEventsRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeMessage(typ, v, &m.Filter)
		case 2:
			return consumeInt64(typ, v, &m.Cursor)
		case 3:
			return consumeBool(typ, v, &m.FromHead)
		case 4:
			return consumeUint32(typ, v, &m.Limit)
		}
		return 0
	})
}

type PollEventsResponse struct {
	Events []Event `json:"events"`
	Cursor int64   `json:"cursor"`
}

func (m *PollEventsResponse) AppendWire(b []byte) []byte {
	for i := range m.Events {
		b = appendMessage(b, 1, &m.Events[i])
	}
	return appendInt64(b, 2, m.Cursor)
}

func (m *PollEventsResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeRepeated(typ, v, &m.Events)
		case 2:
			return consumeInt64(typ, v, &m.Cursor)
		}
		return 0
	})
}

type Document struct {
	ID       int64           `json:"id,omitempty"`
	Text     string          `json:"text"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	UserID   int64           `json:"user_id,omitempty"`
}

func (m *Document) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.ID)
	b = appendString(b, 2, m.Text)
	b = appendBytes(b, 3, m.Metadata)
	return appendInt64(b, 4, m.UserID)
}

func (m *Document) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.ID)
		case 2:
			return consumeString(typ, v, &m.Text)
		case 3:
			return consumeRaw(typ, v, &m.Metadata)
		case 4:
			return consumeInt64(typ, v, &m.UserID)
		}
		return 0
	})
}

type BatchInsertRequest struct {
	Documents []Document `json:"documents"`
	UserID    int64      `json:"user_id"`
}

func (m *BatchInsertRequest) AppendWire(b []byte) []byte {
	for i := range m.Documents {
		b = appendMessage(b, 1, &m.Documents[i])
	}
	return appendInt64(b, 2, m.UserID)
}

func (m *BatchInsertRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeRepeated(typ, v, &m.Documents)
		case 2:
			return consumeInt64(typ, v, &m.UserID)
		}
		return 0
	})
}

type BatchInsertResponse struct {
	Count   int     `json:"count"`
	NodeIDs []int64 `json:"node_ids"`
}

func (m *BatchInsertResponse) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, int64(m.Count))
	return appendPackedInt64(b, 2, m.NodeIDs)
}

func (m *BatchInsertResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt(typ, v, &m.Count)
		case 2:
			return consumeInt64s(typ, v, &m.NodeIDs)
		}
		return 0
	})
}

// PermissionRequest serves grant, revoke and check. Grant reads the flags,
// check reads Permission.
type PermissionRequest struct {
	NodeID     int64  `json:"node_id"`
	UserID     int64  `json:"user_id"`
	Read       bool   `json:"read,omitempty"`
	Write      bool   `json:"write,omitempty"`
	Delete     bool   `json:"delete,omitempty"`
	Permission string `json:"permission,omitempty"`
}

func (m *PermissionRequest) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, m.NodeID)
	b = appendInt64(b, 2, m.UserID)
	b = appendBool(b, 3, m.Read)
	b = appendBool(b, 4, m.Write)
	b = appendBool(b, 5, m.Delete)
	return appendString(b, 6, m.Permission)
}

func (m *PermissionRequest) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeInt64(typ, v, &m.NodeID)
		case 2:
			return consumeInt64(typ, v, &m.UserID)
		case 3:
			return consumeBool(typ, v, &m.Read)
		case 4:
			return consumeBool(typ, v, &m.Write)
		case 5:
			return consumeBool(typ, v, &m.Delete)
		case 6:
			return consumeString(typ, v, &m.Permission)
		}
		return 0
	})
}

type CheckPermissionResponse struct {
	Allowed bool `json:"allowed"`
}

func (m *CheckPermissionResponse) AppendWire(b []byte) []byte {
	return appendBool(b, 1, m.Allowed)
}

func (m *CheckPermissionResponse) UnmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		if num == 1 {
			return consumeBool(typ, v, &m.Allowed)
		}
		return 0
	})
}

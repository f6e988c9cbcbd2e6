// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ricedb/internal/ricetest"
)

func TestInsertAndSearch(t *testing.T) {
	eachTransport(t, func(t *testing.T, _ *ricetest.Server, c *Client) {
		require := require.New(t)
		ctx := testContext(t)

		res, err := c.Insert(ctx, beyondFloat, "rice grows in flooded paddies", map[string]any{
			"source": "almanac",
			"ref":    json.Number("9007199254740993"),
		})
		require.NoError(err)
		require.True(res.Success)
		require.Equal(beyondFloat, res.NodeID)
		require.Equal("inserted", res.Message)
		require.Equal([]Grant{{UserID: DefaultUserID, Permissions: Permissions{Read: true, Write: true, Delete: true}}}, res.Grants)

		res, err = c.Insert(ctx, beyondFloat, "rice grows in flooded paddies of Asia", map[string]any{"source": "almanac"})
		require.NoError(err)
		require.Equal("updated", res.Message)

		auto, err := c.Insert(ctx, 0, "wheat prefers dry soil", nil)
		require.NoError(err)
		require.GreaterOrEqual(auto.NodeID, ID(ricetest.FirstAutoID))

		hits, err := c.Search(ctx, "flooded rice", DefaultUserID, WithK(1))
		require.NoError(err)
		require.Len(hits, 1)
		require.Equal(beyondFloat, hits[0].ID)
		require.Greater(hits[0].Similarity, 0.0)
		require.Equal("almanac", hits[0].Metadata["source"])
	})
}

func TestSearchFilter(t *testing.T) {
	eachTransport(t, func(t *testing.T, _ *ricetest.Server, c *Client) {
		require := require.New(t)
		ctx := testContext(t)

		for id, meta := range map[ID]map[string]any{
			1: {"lang": "go", "year": 2024},
			2: {"lang": "go", "year": 2025},
			3: {"lang": "rust", "year": 2025},
		} {
			_, err := c.Insert(ctx, id, "systems notes", meta)
			require.NoError(err)
		}

		hits, err := c.Search(ctx, "systems", DefaultUserID, WithFilter(map[string]any{"lang": "go", "year": 2025}))
		require.NoError(err)
		require.Equal([]ID{2}, hitIDs(hits))

		hits, err = c.Search(ctx, "systems", DefaultUserID)
		require.NoError(err)
		require.Equal([]ID{1, 2, 3}, hitIDs(hits), "equal scores order by id")

		_, err = c.Insert(ctx, 9, "bad", map[string]any{"x": math.Inf(1)})
		require.ErrorIs(err, ErrValidation)
	})
}

func TestUsersAndAuth(t *testing.T) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			require := require.New(t)
			ctx := testContext(t)

			b := ricetest.NewBackend()
			b.RequireAuth = true
			c := dialServer(t, startServer(t, b), transport)

			_, err := c.Insert(ctx, 1, "secret", nil)
			require.ErrorIs(err, ErrAuth)

			_, err = c.Login(ctx, ricetest.AdminUser, "wrong")
			require.ErrorIs(err, ErrAuth)

			tok, err := c.Login(ctx, ricetest.AdminUser, ricetest.AdminPassword)
			require.NoError(err)
			require.NotEmpty(tok)

			id, err := c.CreateUser(ctx, "ana", "pw")
			require.NoError(err)
			require.Equal(ID(2), id)
			_, err = c.CreateUser(ctx, "ops", "pw", WithRole("admin"))
			require.NoError(err)

			u, err := c.GetUser(ctx, "ana")
			require.NoError(err)
			require.Equal(User{ID: 2, Username: "ana", Role: DefaultRole}, u)

			users, err := c.ListUsers(ctx)
			require.NoError(err)
			require.Len(users, 3)
			require.Equal("admin", users[0].Username)

			_, err = c.Login(ctx, "ana", "pw")
			require.NoError(err)
			_, err = c.ListUsers(ctx)
			require.ErrorIs(err, ErrAuth)

			_, err = c.Login(ctx, ricetest.AdminUser, ricetest.AdminPassword)
			require.NoError(err)
			ok, err := c.DeleteUser(ctx, "ana")
			require.NoError(err)
			require.True(ok)
			_, err = c.GetUser(ctx, "ana")
			require.True(IsNotFound(err), "got %v", err)
		})
	}
}

func TestWithTokenOption(t *testing.T) {
	b := ricetest.NewBackend()
	b.RequireAuth = true
	srv := startServer(t, b)

	admin := dialServer(t, srv, TransportGRPC)
	_, err := admin.Health(testContext(t))
	require.NoError(t, err)
	tok, err := admin.Login(testContext(t), ricetest.AdminUser, ricetest.AdminPassword)
	require.NoError(t, err)

	c := dialServer(t, srv, TransportHTTP, WithToken(tok))
	_, err = c.Insert(testContext(t), 1, "pre-authenticated", nil)
	require.NoError(t, err)
}

func TestSparseMemory(t *testing.T) {
	eachTransport(t, func(t *testing.T, _ *ricetest.Server, c *Client) {
		require := require.New(t)
		ctx := testContext(t)

		addr, _ := BitVectorFromBits(100, 1, 5, 99)
		data, _ := BitVectorFromBits(100, 0, 64)
		ack, err := c.WriteMemory(ctx, addr, data)
		require.NoError(err)
		require.True(ack.Success)

		near, _ := BitVectorFromBits(100, 1, 5)
		got, err := c.ReadMemory(ctx, near)
		require.NoError(err)
		eq, err := got.Equal(data)
		require.NoError(err)
		require.True(eq, "read %s", got)

		other, err := c.ReadMemory(ctx, near, AsUser(7))
		require.NoError(err)
		require.Equal(uint(100), other.Width())
		require.Zero(other.Count())
	})
}

func TestMemoryWidth(t *testing.T) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			ctx := testContext(t)
			b := ricetest.NewBackend()
			b.MemoryWidth = 64
			srv := startServer(t, b)

			local := dialServer(t, srv, transport, WithMemoryWidth(64))
			_, err := local.WriteMemory(ctx, NewBitVector(32), NewBitVector(64))
			var wm *WidthMismatchError
			require.ErrorAs(t, err, &wm)
			require.Equal(t, uint(64), wm.Want)

			remote := dialServer(t, srv, transport)
			_, err = remote.ReadMemory(ctx, NewBitVector(32))
			require.ErrorIs(t, err, ErrValidation)
			var se *ServerError
			require.ErrorAs(t, err, &se)
		})
	}
}

func TestAgentMemory(t *testing.T) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			require := require.New(t)
			ctx := testContext(t)

			var clock atomic.Int64
			clock.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
			b := ricetest.NewBackend()
			b.Now = func() time.Time { return time.UnixMilli(clock.Load()) }
			c := dialServer(t, startServer(t, b), transport)

			first, err := c.AddMemory(ctx, "s1", "planner", "buy rice", map[string]string{"kind": "task"})
			require.NoError(err)
			require.True(first.Success)
			require.NotEmpty(first.Entry.ID)
			require.Equal("planner", first.Entry.AgentID)
			require.Zero(first.Entry.ExpiresAt)

			_, err = c.AddMemory(ctx, "s1", "critic", "too vague", map[string]string{"kind": "note"})
			require.NoError(err)
			short, err := c.AddMemory(ctx, "s1", "planner", "ephemeral", nil, WithTTL(90*time.Second))
			require.NoError(err)
			require.Equal(short.Entry.Timestamp+90_000, short.Entry.ExpiresAt)

			all, err := c.GetMemory(ctx, "s1")
			require.NoError(err)
			require.Len(all, 3)
			require.Equal("buy rice", all[0].Content)

			tasks, err := c.GetMemory(ctx, "s1", WithMemoryFilter(map[string]string{"kind": "task"}))
			require.NoError(err)
			require.Len(tasks, 1)

			later, err := c.GetMemory(ctx, "s1", After(first.Entry.Timestamp), WithLimit(1))
			require.NoError(err)
			require.Len(later, 1)
			require.Equal("too vague", later[0].Content)

			blink, err := c.AddMemory(ctx, "s1", "planner", "blink", nil, WithTTL(500*time.Millisecond))
			require.NoError(err)
			require.Equal(blink.Entry.Timestamp+1000, blink.Entry.ExpiresAt, "sub-second ttl rounds up to a second")

			clock.Add((2 * time.Minute).Milliseconds())
			live, err := c.GetMemory(ctx, "s1")
			require.NoError(err)
			require.Len(live, 2)

			_, err = c.AddMemory(ctx, "s1", "a", "b", nil, WithTTL(-time.Second))
			require.ErrorIs(err, ErrValidation)

			ack, err := c.ClearMemory(ctx, "s1")
			require.NoError(err)
			require.True(ack.Success)
			empty, err := c.GetMemory(ctx, "s1")
			require.NoError(err)
			require.Empty(empty)
		})
	}
}

func TestWatchMemory(t *testing.T) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			require := require.New(t)
			ctx := testContext(t)
			b := ricetest.NewBackend()
			c := dialServer(t, startServer(t, b), transport)

			_, err := c.AddMemory(ctx, "w", "agent", "before watch", nil)
			require.NoError(err)

			s, err := c.WatchMemory(ctx, "w")
			require.NoError(err)
			defer s.Close()
			if transport == TransportGRPC {
				require.Eventually(func() bool { return b.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
			}

			for _, content := range []string{"one", "two"} {
				_, err := c.AddMemory(ctx, "w", "agent", content, nil)
				require.NoError(err)
			}
			_, err = c.AddMemory(ctx, "elsewhere", "agent", "ignored", nil)
			require.NoError(err)

			require.Equal("one", recvWithin(t, s, 2*time.Second).Content)
			require.Equal("two", recvWithin(t, s, 2*time.Second).Content)

			require.NoError(s.Close())
			_, err = s.Recv()
			require.ErrorIs(err, ErrStreamClosed)
		})
	}
}

func TestWatchDeadlineMatchesAcrossTransports(t *testing.T) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			srv := startServer(t, nil)
			c := dialServer(t, srv, transport, WithPollInterval(time.Second))

			ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
			defer cancel()
			s, err := c.WatchMemory(ctx, "quiet")
			require.NoError(t, err)
			defer s.Close()

			_, err = s.Recv()
			require.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestSubscribe(t *testing.T) {
	for _, transport := range bothTransports {
		t.Run(transport, func(t *testing.T) {
			require := require.New(t)
			ctx := testContext(t)
			b := ricetest.NewBackend()
			c := dialServer(t, startServer(t, b), transport)

			all, err := c.Subscribe(ctx, "")
			require.NoError(err)
			defer all.Close()
			node, err := c.Subscribe(ctx, FilterNode, ForNode(beyondFloat))
			require.NoError(err)
			defer node.Close()
			query, err := c.Subscribe(ctx, FilterQuery, MatchingQuery("harvest"))
			require.NoError(err)
			defer query.Close()
			if transport == TransportGRPC {
				require.Eventually(func() bool { return b.Subscribers() == 3 }, 2*time.Second, 5*time.Millisecond)
			}

			_, err = c.Insert(ctx, 1, "autumn harvest", map[string]any{"k": "v"})
			require.NoError(err)
			_, err = c.Insert(ctx, beyondFloat, "spring planting", nil)
			require.NoError(err)

			ev := recvWithin(t, all, 2*time.Second)
			require.Equal("insert", ev.Type)
			require.Equal(ID(1), ev.NodeID)
			require.Equal("v", ev.Metadata["k"])
			require.Equal(beyondFloat, recvWithin(t, all, 2*time.Second).NodeID)

			require.Equal(beyondFloat, recvWithin(t, node, 2*time.Second).NodeID)

			hit := recvWithin(t, query, 2*time.Second)
			require.Equal(ID(1), hit.NodeID)
			require.Greater(hit.Similarity, 0.0)
		})
	}
}

func TestSubscribeRejectsUnknownFilter(t *testing.T) {
	srv := startServer(t, nil)
	c := dialServer(t, srv, TransportHTTP)
	_, err := c.Subscribe(testContext(t), "everything")
	require.ErrorIs(t, err, ErrValidation)
}

func TestGraph(t *testing.T) {
	eachTransport(t, func(t *testing.T, _ *ricetest.Server, c *Client) {
		require := require.New(t)
		ctx := testContext(t)

		for id, text := range map[ID]string{1: "a", 2: "b", 3: "c", 4: "d"} {
			_, err := c.Insert(ctx, id, text, nil)
			require.NoError(err)
		}
		for _, e := range []Edge{{1, 2, "cites", 1}, {2, 3, "cites", 1}, {1, 4, "mentions", 0.5}, {3, 1, "cites", 1}} {
			ok, err := c.AddEdge(ctx, e.From, e.To, e.Relation, WithWeight(e.Weight))
			require.NoError(err)
			require.True(ok)
		}

		n, err := c.GetNeighbors(ctx, 1)
		require.NoError(err)
		require.ElementsMatch([]ID{2, 4}, n)
		n, err = c.GetNeighbors(ctx, 1, WithRelation("cites"))
		require.NoError(err)
		require.Equal([]ID{2}, n)

		one, err := c.Traverse(ctx, 1)
		require.NoError(err)
		require.ElementsMatch([]ID{2, 4}, one)
		two, err := c.Traverse(ctx, 1, WithMaxDepth(5))
		require.NoError(err)
		require.ElementsMatch([]ID{2, 3, 4}, two, "cycles back to the start are not revisited")

		_, err = c.Traverse(ctx, 1, WithMaxDepth(-1))
		require.ErrorIs(err, ErrValidation)

		sample, err := c.SampleGraph(ctx, WithLimit(2))
		require.NoError(err)
		require.Len(sample.Nodes, 2)
		require.Len(sample.Edges, 2)
		require.Equal(GraphNode{ID: 1, Label: "a"}, sample.Nodes[0])

		full, err := c.SampleGraph(ctx)
		require.NoError(err)
		require.Len(full.Nodes, 4)
		require.Contains(full.Edges, Edge{From: 1, To: 4, Relation: "mentions", Weight: 0.5})
	})
}

func TestBatchInsertPartial(t *testing.T) {
	eachTransport(t, func(t *testing.T, _ *ricetest.Server, c *Client) {
		require := require.New(t)
		ctx := testContext(t)

		res, err := c.BatchInsert(ctx, []Document{
			{ID: 1, Text: "kept"},
			{ID: 2, Text: ""},
			{ID: 3, Text: "unencodable", Metadata: map[string]any{"n": math.NaN()}},
			{Text: "auto id", UserID: 5},
		})
		require.NoError(err)
		require.Equal(2, res.Count)
		require.Len(res.NodeIDs, 2)
		require.Equal(ID(1), res.NodeIDs[0])

		res, err = c.BatchInsert(ctx, []Document{{Text: "x", Metadata: map[string]any{"n": math.NaN()}}})
		require.NoError(err)
		require.Zero(res.Count)
	})
}

func TestPermissions(t *testing.T) {
	eachTransport(t, func(t *testing.T, _ *ricetest.Server, c *Client) {
		require := require.New(t)
		ctx := testContext(t)

		_, err := c.Insert(ctx, 1, "private notes", nil, AsUser(5))
		require.NoError(err)

		allowed, err := c.CheckPermission(ctx, 1, 6, PermissionRead)
		require.NoError(err)
		require.False(allowed)
		hits, err := c.Search(ctx, "notes", 6)
		require.NoError(err)
		require.Empty(hits)

		ok, err := c.GrantPermission(ctx, 1, 6, Permissions{Read: true})
		require.NoError(err)
		require.True(ok)
		allowed, err = c.CheckPermission(ctx, 1, 6, PermissionRead)
		require.NoError(err)
		require.True(allowed)
		allowed, err = c.CheckPermission(ctx, 1, 6, PermissionWrite)
		require.NoError(err)
		require.False(allowed)
		hits, err = c.Search(ctx, "notes", 6)
		require.NoError(err)
		require.Equal([]ID{1}, hitIDs(hits))

		_, err = c.Insert(ctx, 1, "overwrite attempt", nil, AsUser(6))
		require.ErrorIs(err, ErrAuth)

		ok, err = c.RevokePermission(ctx, 1, 6)
		require.NoError(err)
		require.True(ok)
		allowed, err = c.CheckPermission(ctx, 1, 6, PermissionRead)
		require.NoError(err)
		require.False(allowed)

		_, err = c.CheckPermission(ctx, 1, 6, Permission("admin"))
		require.ErrorIs(err, ErrValidation)
		_, err = c.GrantPermission(ctx, 404, 6, Permissions{Read: true})
		require.True(IsNotFound(err), "got %v", err)
	})
}

func TestGRPCCompression(t *testing.T) {
	srv := startServer(t, nil)
	text := strings.Repeat("compressible rice text ", 2048)
	for _, name := range []string{CompressorGzip, CompressorZstd, CompressorLZ4} {
		t.Run(name, func(t *testing.T) {
			ctx := testContext(t)
			c := dialServer(t, srv, TransportGRPC, WithCompressor(name))
			_, err := c.Insert(ctx, 77, text, nil)
			require.NoError(t, err)
			hits, err := c.Search(ctx, "compressible", DefaultUserID, WithK(1))
			require.NoError(t, err)
			require.Equal(t, []ID{77}, hitIDs(hits))
		})
	}
}

func TestConcurrentCalls(t *testing.T) {
	eachTransport(t, func(t *testing.T, _ *ricetest.Server, c *Client) {
		ctx := testContext(t)
		errs := make(chan error, 16)
		for i := range 16 {
			go func() {
				_, err := c.Insert(ctx, ID(i+1), "parallel", nil)
				errs <- err
			}()
		}
		for range 16 {
			require.NoError(t, <-errs)
		}
		hits, err := c.Search(ctx, "parallel", DefaultUserID, WithK(100))
		require.NoError(t, err)
		require.Len(t, hits, 16)
	})
}

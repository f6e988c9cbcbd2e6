// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/ricedb"
)

func parseMetadata(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("metadata must be a JSON object: %w", err)
	}
	return m, nil
}

func (a *app) insertCmd() *cobra.Command {
	var (
		meta    string
		session string
	)
	cmd := &cobra.Command{
		Use:   "insert <id> <text>",
		Short: "Insert or update a node (id 0 lets the server pick)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ricedb.ParseID(args[0])
			if err != nil {
				return err
			}
			m, err := parseMetadata(meta)
			if err != nil {
				return err
			}
			res, err := a.client.Insert(cmd.Context(), id, args[1], m, a.user(), ricedb.InSession(session))
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	cmd.Flags().StringVar(&meta, "metadata", "", "JSON object")
	cmd.Flags().StringVar(&session, "session", "", "session id")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ricedb.ParseID(args[0])
			if err != nil {
				return err
			}
			ok, err := a.client.Delete(cmd.Context(), id, ricedb.InSession(session))
			if err != nil {
				return err
			}
			return a.print(ok)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var (
		k       int
		filter  string
		session string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseMetadata(filter)
			if err != nil {
				return err
			}
			hits, err := a.client.Search(cmd.Context(), args[0], ricedb.ID(a.cfg.UserID),
				ricedb.WithK(k), ricedb.WithFilter(f), ricedb.InSession(session))
			if err != nil {
				return err
			}
			return a.print(hits)
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", ricedb.DefaultK, "max results")
	cmd.Flags().StringVar(&filter, "filter", "", "metadata filter as a JSON object")
	cmd.Flags().StringVar(&session, "session", "", "session id")
	return cmd
}

func (a *app) sessionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Manage sessions"}

	var parent string
	create := &cobra.Command{
		Use:  "create",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.client.CreateSession(cmd.Context(), ricedb.FromParent(parent))
			if err != nil {
				return err
			}
			return a.print(id)
		},
	}
	create.Flags().StringVar(&parent, "parent", "", "parent session id")

	var strategy string
	commit := &cobra.Command{
		Use:  "commit <session>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.CommitSession(cmd.Context(), args[0], ricedb.WithMergeStrategy(strategy))
			if err != nil {
				return err
			}
			return a.print(ok)
		},
	}
	commit.Flags().StringVar(&strategy, "strategy", ricedb.MergeOverwrite, "overwrite or keep")

	drop := &cobra.Command{
		Use:  "drop <session>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.DropSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(ok)
		},
	}
	snapshot := &cobra.Command{
		Use:  "snapshot <session> <path>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.SnapshotSession(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.print(ok)
		},
	}
	load := &cobra.Command{
		Use:  "load <path>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.client.LoadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(id)
		},
	}
	for _, sub := range []*cobra.Command{create, commit, drop, snapshot, load} {
		cmd.AddCommand(a.connected(sub))
	}
	return cmd
}

func (a *app) memoryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "memory", Short: "Agent memory"}

	var ttl time.Duration
	add := &cobra.Command{
		Use:  "add <session> <agent> <content>",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.AddMemory(cmd.Context(), args[0], args[1], args[2], nil, ricedb.WithTTL(ttl))
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	add.Flags().DurationVar(&ttl, "ttl", 0, "expire the entry after this long")

	var (
		limit int
		after int64
	)
	get := &cobra.Command{
		Use:  "get <session>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.client.GetMemory(cmd.Context(), args[0], ricedb.WithLimit(limit), ricedb.After(ricedb.ID(after)))
			if err != nil {
				return err
			}
			return a.print(entries)
		},
	}
	get.Flags().IntVar(&limit, "limit", ricedb.DefaultMemoryLimit, "max entries")
	get.Flags().Int64Var(&after, "after", 0, "only entries newer than this timestamp (ms)")

	clr := &cobra.Command{
		Use:  "clear <session>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ack, err := a.client.ClearMemory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(ack)
		},
	}
	watch := &cobra.Command{
		Use:   "watch <session>",
		Short: "Print entries as they are added until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.client.WatchMemory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printStream(cmd, a, s)
		},
	}
	for _, sub := range []*cobra.Command{add, get, clr, watch} {
		cmd.AddCommand(a.connected(sub))
	}
	return cmd
}

func (a *app) graphCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "graph", Short: "Graph edges and traversal"}

	var weight float32
	edge := &cobra.Command{
		Use:  "edge <from> <to> <relation>",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := ricedb.ParseID(args[0])
			if err != nil {
				return err
			}
			to, err := ricedb.ParseID(args[1])
			if err != nil {
				return err
			}
			ok, err := a.client.AddEdge(cmd.Context(), from, to, args[2], ricedb.WithWeight(weight))
			if err != nil {
				return err
			}
			return a.print(ok)
		},
	}
	edge.Flags().Float32Var(&weight, "weight", ricedb.DefaultEdgeWeight, "edge weight")

	var relation string
	neighbors := &cobra.Command{
		Use:  "neighbors <id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ricedb.ParseID(args[0])
			if err != nil {
				return err
			}
			ids, err := a.client.GetNeighbors(cmd.Context(), id, ricedb.WithRelation(relation))
			if err != nil {
				return err
			}
			return a.print(ids)
		},
	}
	neighbors.Flags().StringVar(&relation, "relation", "", "only follow this relation")

	var depth int
	traverse := &cobra.Command{
		Use:  "traverse <id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ricedb.ParseID(args[0])
			if err != nil {
				return err
			}
			ids, err := a.client.Traverse(cmd.Context(), id, ricedb.WithMaxDepth(depth))
			if err != nil {
				return err
			}
			return a.print(ids)
		},
	}
	traverse.Flags().IntVar(&depth, "depth", ricedb.DefaultMaxDepth, "max hops")

	var limit int
	sample := &cobra.Command{
		Use:  "sample",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.client.SampleGraph(cmd.Context(), ricedb.WithLimit(limit))
			if err != nil {
				return err
			}
			return a.print(g)
		},
	}
	sample.Flags().IntVar(&limit, "limit", ricedb.DefaultSampleLimit, "max nodes and edges")

	for _, sub := range []*cobra.Command{edge, neighbors, traverse, sample} {
		cmd.AddCommand(a.connected(sub))
	}
	return cmd
}

func (a *app) subscribeCmd() *cobra.Command {
	var (
		node  int64
		query string
	)
	cmd := &cobra.Command{
		Use:   "subscribe [all|node|query]",
		Short: "Print node events until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ricedb.FilterAll
			if len(args) == 1 {
				filter = args[0]
			}
			s, err := a.client.Subscribe(cmd.Context(), filter, ricedb.ForNode(ricedb.ID(node)), ricedb.MatchingQuery(query))
			if err != nil {
				return err
			}
			return printStream(cmd, a, s)
		},
	}
	cmd.Flags().Int64Var(&node, "node", 0, "node id for the node filter")
	cmd.Flags().StringVar(&query, "query", "", "text for the query filter")
	return cmd
}

// printStream prints every item until the stream ends or the command is
// interrupted. Interruption is not an error.
func printStream[T any](cmd *cobra.Command, a *app, s ricedb.Stream[T]) error {
	for v, err := range ricedb.All(s) {
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		}
		if err := a.print(v); err != nil {
			return err
		}
	}
	return nil
}

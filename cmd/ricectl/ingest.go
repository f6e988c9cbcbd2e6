// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/ricedb"
)

// jsonDoc is one line of an ingest file.
type jsonDoc struct {
	ID       ricedb.ID      `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	UserID   ricedb.ID      `json:"user_id"`
}

// readDocs parses JSON Lines from r. Blank lines are skipped.
func readDocs(r io.Reader) ([]ricedb.Document, error) {
	var docs []ricedb.Document
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var d jsonDoc
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, ricedb.Document{ID: d.ID, Text: d.Text, Metadata: d.Metadata, UserID: d.UserID})
	}
	return docs, sc.Err()
}

func batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

type ingestSummary struct {
	Sent     int `json:"sent"`
	Accepted int `json:"accepted"`
	Batches  int `json:"batches"`
}

func (a *app) ingestCmd() *cobra.Command {
	var (
		batchSize   int
		parallelism int
	)
	cmd := &cobra.Command{
		Use:   "ingest <file.jsonl|->",
		Short: "Bulk insert documents from a JSON Lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			docs, err := readDocs(r)
			if err != nil {
				return err
			}

			var accepted atomic.Int64
			parts := batches(docs, batchSize)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(parallelism, 1))
			for _, part := range parts {
				g.Go(func() error {
					res, err := a.client.BatchInsert(ctx, part, a.user())
					if err != nil {
						return err
					}
					accepted.Add(int64(res.Count))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return a.print(ingestSummary{Sent: len(docs), Accepted: int(accepted.Load()), Batches: len(parts)})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "documents per BatchInsert call")
	cmd.Flags().IntVarP(&parallelism, "parallel", "p", 4, "concurrent batches")
	return cmd
}

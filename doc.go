// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ricedb is a client for the RiceDB data platform: vector search,
// a property graph, copy-on-write sessions, sparse distributed memory,
// agent memory and access control, all served remotely.
//
// # Transport Selection
//
// Two transports implement the same API:
//
//	grpc   binary RPC on port 50051, native server streams
//	http   JSON-RPC 2.0 over HTTP on port 3000, streams emulated by polling
//
// The default mode, auto, tries gRPC first and falls back to HTTP:
//
//	client := ricedb.New(ricedb.WithHost("db.internal"))              // auto
//	client := ricedb.New(ricedb.WithTransport(ricedb.TransportHTTP)) // fixed
//
// HealthInfo.Transport reports which transport answered.
//
// # Usage
//
//	client, err := ricedb.Dial(ctx, ricedb.WithHost("localhost"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	if _, err := client.Login(ctx, "admin", "admin"); err != nil {
//	    log.Fatal(err)
//	}
//	_, err = client.Insert(ctx, 42, "brown fox", map[string]any{"category": "animal"})
//	hits, err := client.Search(ctx, "fox", 1, ricedb.WithK(5))
//
// Sessions shadow the base store until committed:
//
//	sid, _ := client.CreateSession(ctx)
//	client.Insert(ctx, 42, "white fox", nil, ricedb.InSession(sid))
//	client.CommitSession(ctx, sid)
//
// Streams are consumed with Recv or ranged over with All:
//
//	events, _ := client.Subscribe(ctx, ricedb.FilterAll)
//	for ev, err := range ricedb.All(events) {
//	    ...
//	}
//
// # Identifiers
//
// Node, user and timestamp identifiers are ID values, exact 64-bit integers
// on both transports. Use ParseID or ToID for untrusted input; anything
// that cannot be represented exactly is rejected with ErrValidation.
//
// # Architecture
//
//   - client.go, dial.go: the Client facade, transport selection, lifecycle
//   - driver.go: the Driver contract both transports implement
//   - core.go: unary operations shared by both drivers
//   - dial_grpc.go: gRPC driver (forced protowire codec, interceptors)
//   - dial_http.go, json.go: JSON-RPC driver and request sender
//   - transport.go: transport registry
//   - codec.go: gRPC compressors and metadata encoding
//   - stream.go: push and poll streams
//   - internal/wire: the message schema shared by both encodings
package ricedb

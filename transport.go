// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Transport types
const (
	TransportAuto = "auto" // gRPC first, HTTP on failure
	TransportGRPC = "grpc" // binary RPC
	TransportHTTP = "http" // JSON-RPC over HTTP
)

// DefaultTransport is used when WithTransport is not given.
const DefaultTransport = TransportAuto

type newDriverFunc func(cfg *config) Driver

var (
	transportsMu sync.RWMutex
	transports   = map[string]newDriverFunc{}
)

// registerTransport makes a driver available by name. Drivers register
// themselves from init.
func registerTransport(name string, newDriver newDriverFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = newDriver
}

func lookupTransport(name string) (newDriverFunc, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	fn, ok := transports[name]
	return fn, ok
}

// AvailableTransports returns the registered transport names, sorted.
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	_, ok := lookupTransport(name)
	return ok
}

// ParseTransport normalizes a transport mode name. "binary" is an alias for
// grpc, and "text" and "json" are aliases for http.
func ParseTransport(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TransportAuto:
		return TransportAuto, nil
	case TransportGRPC, "binary":
		return TransportGRPC, nil
	case TransportHTTP, "text", "json":
		return TransportHTTP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNoTransport, name)
}

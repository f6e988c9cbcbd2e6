// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricetest

// Server runs one Backend behind both transports.
type Server struct {
	Backend *Backend
	GRPC    *GRPCServer
	HTTP    *HTTPServer
}

// Start serves b over gRPC and JSON-RPC. A nil b gets a fresh Backend.
func Start(b *Backend) (*Server, error) {
	if b == nil {
		b = NewBackend()
	}
	g, err := StartGRPC(b)
	if err != nil {
		return nil, err
	}
	return &Server{Backend: b, GRPC: g, HTTP: StartHTTP(b)}, nil
}

// Host is the loopback address both transports listen on.
func (s *Server) Host() string { return "127.0.0.1" }

func (s *Server) GRPCPort() int { return s.GRPC.Addr().Port }

func (s *Server) HTTPPort() int { return s.HTTP.Addr().Port }

func (s *Server) Close() {
	s.GRPC.Close()
	s.HTTP.Close()
}

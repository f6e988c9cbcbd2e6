// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

var (
	// ErrNotConnected is returned by every data call on a Client with no
	// bound transport. No network traffic happens in that case.
	ErrNotConnected = errors.New("ricedb: not connected")

	ErrConnection   = errors.New("ricedb: connection failed")
	ErrAuth         = errors.New("ricedb: authentication failed")
	ErrValidation   = errors.New("ricedb: invalid argument")
	ErrServer       = errors.New("ricedb: server error")
	ErrStreamClosed = errors.New("ricedb: stream closed")
	ErrNoTransport  = errors.New("ricedb: unknown transport")
)

// ConnectionError reports a transport that could not be reached.
type ConnectionError struct {
	Transport string
	Address   string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ricedb: %s connection to %s failed: %v", e.Transport, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// ServerError is a failure reported by the server. Code uses the gRPC code
// space on both transports.
type ServerError struct {
	Op      string
	Code    codes.Code
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("ricedb: %s: %s: %s", e.Op, e.Code, e.Message)
}

func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrServer:
		return true
	case ErrAuth:
		return e.Code == codes.Unauthenticated || e.Code == codes.PermissionDenied
	case ErrValidation:
		return e.Code == codes.InvalidArgument
	}
	return false
}

// WidthMismatchError is returned when two bit vectors of different widths
// are compared, or when a memory operand does not match the configured width.
type WidthMismatchError struct {
	Want uint
	Got  uint
}

func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("ricedb: bit vector width mismatch: want %d, got %d", e.Want, e.Got)
}

func (e *WidthMismatchError) Is(target error) bool { return target == ErrValidation }

// IsNotFound reports whether err is a server NotFound error.
func IsNotFound(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Code == codes.NotFound
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestServerErrorKinds(t *testing.T) {
	tests := []struct {
		code       codes.Code
		auth       bool
		validation bool
	}{
		{codes.Unauthenticated, true, false},
		{codes.PermissionDenied, true, false},
		{codes.InvalidArgument, false, true},
		{codes.NotFound, false, false},
		{codes.Internal, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &ServerError{Op: "Insert", Code: tt.code, Message: "m"})
			require.ErrorIs(t, err, ErrServer)
			require.Equal(t, tt.auth, errors.Is(err, ErrAuth))
			require.Equal(t, tt.validation, errors.Is(err, ErrValidation))
			require.Equal(t, tt.code == codes.NotFound, IsNotFound(err))
			require.NotErrorIs(t, err, ErrConnection)
		})
	}
}

func TestConnectionError(t *testing.T) {
	err := &ConnectionError{Transport: TransportHTTP, Address: "localhost:3000", Err: io.ErrUnexpectedEOF}
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NotErrorIs(t, err, ErrServer)
	require.Contains(t, err.Error(), "localhost:3000")
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTransport(t *testing.T) {
	for in, want := range map[string]string{
		"":       TransportAuto,
		"AUTO":   TransportAuto,
		" grpc ": TransportGRPC,
		"binary": TransportGRPC,
		"http":   TransportHTTP,
		"text":   TransportHTTP,
		"json":   TransportHTTP,
	} {
		got, err := ParseTransport(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseTransport("zap")
	require.ErrorIs(t, err, ErrNoTransport)
}

func TestAvailableTransports(t *testing.T) {
	require.Equal(t, []string{TransportGRPC, TransportHTTP}, AvailableTransports())
	require.True(t, HasTransport(TransportGRPC))
	require.False(t, HasTransport(TransportAuto))
}

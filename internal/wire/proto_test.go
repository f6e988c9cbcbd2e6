// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/json"
	"testing"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestZeroValuesAreOmitted(t *testing.T) {
	require.Empty(t, (&SearchRequest{}).AppendWire(nil))
	require.Empty(t, (&Ack{}).AppendWire(nil))
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "from a newer server")
	b = (&SearchRequest{Query: "q", K: 3}).AppendWire(b)
	b = protowire.AppendTag(b, 98, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	var got SearchRequest
	require.NoError(t, got.UnmarshalWire(b))
	require.Equal(t, SearchRequest{Query: "q", K: 3}, got)
}

func TestWrongWireTypeFails(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType) // Query is a string
	b = protowire.AppendVarint(b, 1)

	var got SearchRequest
	require.ErrorIs(t, got.UnmarshalWire(b), errWireType)
}

func TestTruncatedInputFails(t *testing.T) {
	b := (&SearchRequest{Query: "truncate me"}).AppendWire(nil)
	var got SearchRequest
	require.Error(t, got.UnmarshalWire(b[:len(b)-3]))
}

func TestRepeatedIDsPackedAndUnpacked(t *testing.T) {
	ids := []int64{1, 1<<53 + 1, -4}

	var packed NodeIDsResponse
	require.NoError(t, packed.UnmarshalWire((&NodeIDsResponse{NodeIDs: ids}).AppendWire(nil)))
	require.Equal(t, ids, packed.NodeIDs)

	var b []byte
	for _, id := range ids {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(id))
	}
	var unpacked NodeIDsResponse
	require.NoError(t, unpacked.UnmarshalWire(b))
	require.Equal(t, ids, unpacked.NodeIDs)
}

func TestEmptySubMessageIsKept(t *testing.T) {
	in := PollEventsRequest{FromHead: true}
	var out PollEventsRequest
	require.NoError(t, out.UnmarshalWire(in.AppendWire(nil)))
	require.Equal(t, in, out)
}

func TestStringMapDeterministic(t *testing.T) {
	m := &AddMemoryRequest{SessionID: "s", Metadata: map[string]string{"b": "2", "a": "1", "c": "3"}}
	first := m.AppendWire(nil)
	for range 10 {
		require.Equal(t, first, m.AppendWire(nil))
	}
	var out AddMemoryRequest
	require.NoError(t, out.UnmarshalWire(first))
	require.Equal(t, m.Metadata, out.Metadata)
}

func TestCodec(t *testing.T) {
	c := Codec{}
	require.Equal(t, "proto", c.Name())

	_, err := c.Marshal("not a message")
	require.Error(t, err)
	require.Error(t, c.Unmarshal(nil, new(int)))

	b, err := c.Marshal(&LimitRequest{Limit: 5})
	require.NoError(t, err)
	var out LimitRequest
	require.NoError(t, c.Unmarshal(b, &out))
	require.Equal(t, uint32(5), out.Limit)
}

func TestJSONFieldNames(t *testing.T) {
	b, err := json.Marshal(&InsertResponse{Success: true, NodeID: 1 << 60, Grants: []Grant{{UserID: 1, Read: true}}})
	require.NoError(t, err)
	require.JSONEq(t, `{
		"success": true,
		"node_id": 1152921504606846976,
		"acl_grants": [{"user_id": 1, "read": true, "write": false, "delete": false}]
	}`, string(b))
}

func TestCodeMapping(t *testing.T) {
	for c := codes.Canceled; c <= codes.Unauthenticated; c++ {
		jc := JSONRPCCode(c)
		require.LessOrEqual(t, int(jc), -32000)
		require.GreaterOrEqual(t, int(jc), -32099)
		require.Equal(t, c, GRPCCode(jc))
	}
	require.Equal(t, codes.Unknown, GRPCCode(JSONRPCCode(codes.OK)))
	require.Equal(t, codes.InvalidArgument, GRPCCode(json2.E_BAD_PARAMS))
	require.Equal(t, codes.Unimplemented, GRPCCode(json2.E_NO_METHOD))
	require.Equal(t, codes.Internal, GRPCCode(json2.E_INTERNAL))
	require.Equal(t, codes.Unknown, GRPCCode(json2.E_SERVER))
	require.Equal(t, codes.Unknown, GRPCCode(-32090))

	require.Equal(t, "/ricedb.RiceDB/Search", FullMethod(OpSearch))
	require.Equal(t, "RiceDB.Search", JSONMethod(OpSearch))
}

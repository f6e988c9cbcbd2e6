// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire holds the RiceDB message schema shared by both transports.
//
// Every message encodes to protobuf wire format for the gRPC transport and,
// through its struct tags, to JSON for the JSON-RPC transport. Field numbers
// follow the server's ricedb.proto. Zero values are omitted on the wire, as
// in proto3.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every wire type.
type Message interface {
	AppendWire(b []byte) []byte
	UnmarshalWire(b []byte) error
}

var errWireType = errors.New("wire: unexpected field type")

// errCodeType is returned by consume helpers on a wire type mismatch.
const errCodeType = -100

// Codec is a gRPC codec for wire messages. It reports itself as "proto" so
// the content-subtype matches what a protobuf server expects.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("wire: cannot marshal %T", v)
	}
	return m.AppendWire(nil), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("wire: cannot unmarshal into %T", v)
	}
	return m.UnmarshalWire(data)
}

func (Codec) Name() string { return "proto" }

// decodeFields walks b and hands each field to fn. fn returns the number of
// bytes it consumed, 0 for an unknown field or a negative protowire code.
func decodeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n = fn(num, typ, b)
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n == errCodeType {
			return fmt.Errorf("%w: field %d", errWireType, num)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	return appendInt64(b, num, int64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendPackedInt64(b []byte, num protowire.Number, vs []int64) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	return appendBytesAlways(b, num, packed)
}

func appendPackedUint64(b []byte, num protowire.Number, vs []uint64) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, v)
	}
	return appendBytesAlways(b, num, packed)
}

// appendMessage always emits the field, even for an empty message, so a set
// sub-message stays distinguishable from an absent one.
func appendMessage(b []byte, num protowire.Number, m Message) []byte {
	return appendBytesAlways(b, num, m.AppendWire(nil))
}

func appendBytesAlways(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendStringMap encodes a map<string,string> with sorted keys so output is
// deterministic.
func appendStringMap(b []byte, num protowire.Number, m map[string]string) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var entry []byte
		entry = appendString(entry, 1, k)
		entry = appendString(entry, 2, m[k])
		b = appendBytesAlways(b, num, entry)
	}
	return b
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return errCodeType
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return n
	}
	*dst = v
	return n
}

func consumeRaw(typ protowire.Type, b []byte, dst *json.RawMessage) int {
	if typ != protowire.BytesType {
		return errCodeType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	*dst = append(json.RawMessage(nil), v...)
	return n
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) int {
	if typ != protowire.VarintType {
		return errCodeType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n
	}
	*dst = int64(v)
	return n
}

func consumeUint32(typ protowire.Type, b []byte, dst *uint32) int {
	var v int64
	n := consumeInt64(typ, b, &v)
	if n > 0 {
		*dst = uint32(v)
	}
	return n
}

func consumeInt(typ protowire.Type, b []byte, dst *int) int {
	var v int64
	n := consumeInt64(typ, b, &v)
	if n > 0 {
		*dst = int(v)
	}
	return n
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) int {
	if typ != protowire.VarintType {
		return errCodeType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n
	}
	*dst = protowire.DecodeBool(v)
	return n
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) int {
	if typ != protowire.Fixed64Type {
		return errCodeType
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return n
	}
	*dst = math.Float64frombits(v)
	return n
}

func consumeFloat(typ protowire.Type, b []byte, dst *float32) int {
	if typ != protowire.Fixed32Type {
		return errCodeType
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return n
	}
	*dst = math.Float32frombits(v)
	return n
}

// consumeInt64s accepts both packed and unpacked encodings.
func consumeInt64s(typ protowire.Type, b []byte, dst *[]int64) int {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return n
		}
		*dst = append(*dst, int64(v))
		return n
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return m
			}
			*dst = append(*dst, int64(v))
			packed = packed[m:]
		}
		return n
	}
	return errCodeType
}

func consumeUint64s(typ protowire.Type, b []byte, dst *[]uint64) int {
	var vs []int64
	n := consumeInt64s(typ, b, &vs)
	for _, v := range vs {
		*dst = append(*dst, uint64(v))
	}
	return n
}

func consumeMessage(typ protowire.Type, b []byte, m Message) int {
	if typ != protowire.BytesType {
		return errCodeType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	if err := m.UnmarshalWire(v); err != nil {
		return errCodeType
	}
	return n
}

// consumeRepeated decodes one element of a repeated message field.
func consumeRepeated[T any, P interface {
	*T
	Message
}](typ protowire.Type, b []byte, dst *[]T) int {
	var v T
	n := consumeMessage(typ, b, P(&v))
	if n > 0 {
		*dst = append(*dst, v)
	}
	return n
}

func consumeStringMap(typ protowire.Type, b []byte, dst *map[string]string) int {
	if typ != protowire.BytesType {
		return errCodeType
	}
	entry, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	var k, v string
	err := decodeFields(entry, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &k)
		case 2:
			return consumeString(typ, b, &v)
		}
		return 0
	})
	if err != nil {
		return errCodeType
	}
	if *dst == nil {
		*dst = make(map[string]string)
	}
	(*dst)[k] = v
	return n
}

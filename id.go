// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is a 64-bit node, user or timestamp identifier. It is always carried
// as an exact integer, never through float64, so values above 2^53 survive
// both transports unchanged.
type ID int64

// maxExactFloat is the largest magnitude a float64 holds without losing
// integer precision.
const maxExactFloat = 1 << 53

// ParseID parses a base-10 identifier.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ErrValidation, s)
	}
	return ID(v), nil
}

// ToID converts a dynamic value into an ID. Floats are accepted only when
// integral and exactly representable.
func ToID(v any) (ID, error) {
	switch x := v.(type) {
	case ID:
		return x, nil
	case int:
		return ID(x), nil
	case int8:
		return ID(x), nil
	case int16:
		return ID(x), nil
	case int32:
		return ID(x), nil
	case int64:
		return ID(x), nil
	case uint:
		return unsignedID(uint64(x))
	case uint8:
		return ID(x), nil
	case uint16:
		return ID(x), nil
	case uint32:
		return ID(x), nil
	case uint64:
		return unsignedID(x)
	case string:
		return ParseID(x)
	case json.Number:
		return ParseID(x.String())
	case float64:
		return floatID(x)
	case float32:
		return floatID(float64(x))
	}
	return 0, fmt.Errorf("%w: unsupported id type %T", ErrValidation, v)
}

func unsignedID(v uint64) (ID, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: id %d overflows int64", ErrValidation, v)
	}
	return ID(v), nil
}

func floatID(f float64) (ID, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxExactFloat {
		return 0, fmt.Errorf("%w: id %v is not an exact integer", ErrValidation, f)
	}
	return ID(int64(f)), nil
}

func (id ID) Int64() int64 { return int64(id) }

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// MarshalJSON emits the exact integer literal.
func (id ID) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(id), 10), nil
}

// UnmarshalJSON accepts a number literal or a quoted decimal string.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	v, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	v, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func idsFromWire(vs []int64) []ID {
	if vs == nil {
		return nil
	}
	out := make([]ID, len(vs))
	for i, v := range vs {
		out[i] = ID(v)
	}
	return out
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/luxfi/ricedb/internal/wire"
)

// BitVector is an immutable fixed-width bit pattern used as SDM address and
// data. Bit i lives in byte i/8 at bit position i%8, so Bytes and Hex are
// stable across transports.
type BitVector struct {
	width uint
	bits  *bitset.BitSet
}

// NewBitVector returns an all-zero vector of the given width.
func NewBitVector(width uint) BitVector {
	return BitVector{width: width, bits: bitset.New(width)}
}

// BitVectorFromBits returns a vector of width with the listed bits set.
func BitVectorFromBits(width uint, set ...uint) (BitVector, error) {
	bs := bitset.New(width)
	for _, i := range set {
		if i >= width {
			return BitVector{}, fmt.Errorf("%w: bit %d out of range for width %d", ErrValidation, i, width)
		}
		bs.Set(i)
	}
	return BitVector{width: width, bits: bs}, nil
}

// BitVectorFromBytes returns a vector of width 8*len(b).
func BitVectorFromBytes(b []byte) BitVector {
	width := uint(len(b)) * 8
	words := make([]uint64, (len(b)+7)/8)
	for i, c := range b {
		words[i/8] |= uint64(c) << (8 * (i % 8))
	}
	return BitVector{width: width, bits: bitset.FromWithLength(width, words)}
}

// BitVectorFromHex decodes the form produced by Hex.
func BitVectorFromHex(s string) (BitVector, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return BitVector{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return BitVectorFromBytes(b), nil
}

// BitVectorFromWords wraps little-endian 64-bit words. Bits at or beyond
// width are cleared.
func BitVectorFromWords(width uint, words []uint64) (BitVector, error) {
	need := int((width + 63) / 64)
	if len(words) > need {
		return BitVector{}, fmt.Errorf("%w: %d words exceed width %d", ErrValidation, len(words), width)
	}
	buf := make([]uint64, need)
	copy(buf, words)
	if r := width % 64; r != 0 && need > 0 {
		buf[need-1] &= (1 << r) - 1
	}
	return BitVector{width: width, bits: bitset.FromWithLength(width, buf)}, nil
}

func (v BitVector) Width() uint { return v.width }

// Test reports whether bit i is set. Out of range bits read as zero.
func (v BitVector) Test(i uint) bool {
	return v.bits != nil && i < v.width && v.bits.Test(i)
}

// Count returns the number of set bits.
func (v BitVector) Count() uint {
	if v.bits == nil {
		return 0
	}
	return v.bits.Count()
}

// Words returns a copy of the underlying words.
func (v BitVector) Words() []uint64 {
	need := int((v.width + 63) / 64)
	out := make([]uint64, need)
	if v.bits != nil {
		copy(out, v.bits.Words())
	}
	return out
}

// Bytes returns ceil(width/8) bytes.
func (v BitVector) Bytes() []byte {
	words := v.Words()
	buf := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return buf[:(v.width+7)/8]
}

func (v BitVector) Hex() string { return hex.EncodeToString(v.Bytes()) }

func (v BitVector) String() string { return fmt.Sprintf("BitVector(%d:%s)", v.width, v.Hex()) }

// Equal compares two vectors. Different widths are an error, not inequality.
func (v BitVector) Equal(o BitVector) (bool, error) {
	if v.width != o.width {
		return false, &WidthMismatchError{Want: v.width, Got: o.width}
	}
	a, b := v.Words(), o.Words()
	for i := range a {
		if a[i] != b[i] {
			return false, nil
		}
	}
	return true, nil
}

// Hamming returns the number of differing bits.
func (v BitVector) Hamming(o BitVector) (uint, error) {
	if v.width != o.width {
		return 0, &WidthMismatchError{Want: v.width, Got: o.width}
	}
	if v.bits == nil || o.bits == nil {
		return v.Count() + o.Count(), nil
	}
	return v.bits.SymmetricDifferenceCardinality(o.bits), nil
}

func (v BitVector) toWire() wire.BitVector {
	return wire.BitVector{Width: uint32(v.width), Words: v.Words()}
}

func bitVectorFromWire(w wire.BitVector) (BitVector, error) {
	return BitVectorFromWords(uint(w.Width), w.Words)
}

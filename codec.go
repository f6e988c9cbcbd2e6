// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/gzip" // registers "gzip"
)

// Compressor names accepted by WithCompressor.
const (
	CompressorZstd = "zstd"
	CompressorLZ4  = "lz4"
	CompressorGzip = "gzip"
)

func init() {
	encoding.RegisterCompressor(&zstdCompressor{})
	encoding.RegisterCompressor(lz4Compressor{})
}

type zstdCompressor struct {
	pool sync.Pool
}

type zstdWriter struct {
	*zstd.Encoder
	pool *sync.Pool
}

func (w *zstdWriter) Close() error {
	err := w.Encoder.Close()
	w.pool.Put(w)
	return err
}

func (c *zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	if zw, ok := c.pool.Get().(*zstdWriter); ok {
		zw.Encoder.Reset(w)
		return zw, nil
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &zstdWriter{Encoder: enc, pool: &c.pool}, nil
}

func (c *zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &zstdReader{dec: dec}, nil
}

func (c *zstdCompressor) Name() string { return CompressorZstd }

// zstdReader releases the decoder once the message is fully read.
type zstdReader struct {
	dec *zstd.Decoder
}

func (r *zstdReader) Read(p []byte) (int, error) {
	n, err := r.dec.Read(p)
	if err == io.EOF {
		r.dec.Close()
	}
	return n, err
}

type lz4Compressor struct{}

func (lz4Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Compressor) Decompress(r io.Reader) (io.Reader, error) {
	return lz4.NewReader(r), nil
}

func (lz4Compressor) Name() string { return CompressorLZ4 }

// encodeMetadata renders an open metadata map as a JSON object. Values JSON
// cannot represent, such as NaN, are an error.
func encodeMetadata(m map[string]any) (json.RawMessage, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrValidation, err)
	}
	return b, nil
}

// decodeMetadata keeps numbers as json.Number so integers wider than 2^53
// are not rounded.
func decodeMetadata(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	m := map[string]any{}
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("ricedb: decode metadata: %w", err)
	}
	return m, nil
}

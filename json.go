// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	rpc "github.com/gorilla/rpc/v2/json2"
)

const retryBaseWait = 500 * time.Millisecond

// RequestOption configures a single SendJSONRequest call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	client      *http.Client
	headers     http.Header
	queryParams url.Values
	retries     int
	logger      *Logger
}

func newRequestOptions(opts []RequestOption) *requestOptions {
	o := &requestOptions{
		headers:     http.Header{},
		queryParams: url.Values{},
		retries:     DefaultRetries,
		logger:      NoopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		o.client = newHTTPClient(DefaultTimeout, nil)
	}
	if o.retries < 1 {
		o.retries = 1
	}
	return o
}

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.headers.Add(key, value) }
}

// WithQueryParam adds a URL query parameter.
func WithQueryParam(key, value string) RequestOption {
	return func(o *requestOptions) { o.queryParams.Add(key, value) }
}

// WithRequestClient sends the request with hc.
func WithRequestClient(hc *http.Client) RequestOption {
	return func(o *requestOptions) { o.client = hc }
}

// WithRequestRetries sets the number of attempts made on transient
// network failures.
func WithRequestRetries(n int) RequestOption {
	return func(o *requestOptions) { o.retries = n }
}

func withRequestLogger(l *Logger) RequestOption {
	return func(o *requestOptions) { o.logger = l }
}

// newHTTPClient builds the client used by the http transport.
func newHTTPClient(timeout time.Duration, tlsConfig *tls.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
// See: https://github.com/golang/go/issues/46071
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// HTTPStatusError is returned for a non-2xx reply that carries no JSON-RPC
// error object.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("received status code: %d", e.StatusCode)
}

// isRetryableError checks if an error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	errStr := err.Error()
	if errors.Is(err, io.EOF) || strings.Contains(errStr, "EOF") {
		return true
	}
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe")
}

// SendJSONRequest posts a JSON-RPC 2.0 call to uri and decodes the result
// into reply. Transient network failures are retried with exponential
// backoff. A JSON-RPC error reply is returned as *json2.Error.
func SendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params interface{},
	reply interface{},
	options ...RequestOption,
) error {
	requestBodyBytes, err := rpc.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	ops := newRequestOptions(options)
	target := *uri
	if len(ops.queryParams) > 0 {
		target.RawQuery = ops.queryParams.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < ops.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 500ms, 1s, 2s
			waitTime := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		}

		// Body buffer is consumed by each attempt
		request, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			target.String(),
			bytes.NewReader(requestBodyBytes),
		)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		request.Header = ops.headers.Clone()
		request.Header.Set("Content-Type", "application/json")

		resp, err := ops.client.Do(request)
		if err != nil {
			lastErr = err
			retryable := isRetryableError(err)
			ops.logger.DebugContext(ctx, "request attempt failed",
				"method", method,
				"attempt", attempt+1,
				"retryable", retryable,
				"error", err,
			)
			if retryable {
				continue
			}
			return fmt.Errorf("failed to issue request: %w", err)
		}
		if attempt > 0 {
			ops.logger.DebugContext(ctx, "request succeeded after retry", "method", method, "attempt", attempt+1)
		}
		return decodeJSONResponse(resp, reply)
	}

	return fmt.Errorf("failed to issue request after %d attempts: %w", ops.retries, lastErr)
}

func decodeJSONResponse(resp *http.Response, reply interface{}) error {
	defer CleanlyCloseBody(resp.Body)

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	if !ok && !isJSON {
		return &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	if err := rpc.DecodeClientResponse(resp.Body, reply); err != nil {
		var rpcErr *rpc.Error
		if errors.As(err, &rpcErr) {
			return rpcErr
		}
		if !ok {
			return &HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("failed to decode client response: %w", err)
	}
	return nil
}

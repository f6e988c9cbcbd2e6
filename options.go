// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricedb

import (
	"crypto/tls"
	"net/http"
	"time"
)

// Defaults applied when an Option or CallOption is not given.
const (
	DefaultHost           = "localhost"
	DefaultGRPCPort       = 50051
	DefaultHTTPPort       = 3000
	DefaultHTTPPath       = "/rpc"
	DefaultPollInterval   = time.Second
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 5 * time.Second
	DefaultRetries        = 3

	DefaultUserID      ID = 1
	DefaultK              = 10
	DefaultMemoryLimit    = 50
	DefaultSampleLimit    = 100
	DefaultMaxDepth       = 1
	DefaultEdgeWeight     = 1.0
	DefaultRole           = "user"
)

type config struct {
	host           string
	transport      string
	grpcPort       int
	httpPort       int
	httpPath       string
	logger         *Logger
	metrics        MetricsCollector
	compressor     string
	pollInterval   time.Duration
	retries        int
	timeout        time.Duration
	connectTimeout time.Duration
	tlsConfig      *tls.Config
	memoryWidth    uint
	httpClient     *http.Client
	token          string
}

func defaultConfig() config {
	return config{
		host:           DefaultHost,
		transport:      TransportAuto,
		grpcPort:       DefaultGRPCPort,
		httpPort:       DefaultHTTPPort,
		httpPath:       DefaultHTTPPath,
		logger:         NoopLogger(),
		metrics:        NoopMetricsCollector{},
		pollInterval:   DefaultPollInterval,
		retries:        DefaultRetries,
		timeout:        DefaultTimeout,
		connectTimeout: DefaultConnectTimeout,
	}
}

// Option configures a Client.
type Option func(*config)

// WithHost sets the server host name or address.
func WithHost(host string) Option {
	return func(c *config) { c.host = host }
}

// WithTransport selects "auto", "grpc" or "http". The aliases "binary",
// "text" and "json" are accepted.
func WithTransport(name string) Option {
	return func(c *config) { c.transport = name }
}

func WithGRPCPort(port int) Option {
	return func(c *config) { c.grpcPort = port }
}

func WithHTTPPort(port int) Option {
	return func(c *config) { c.httpPort = port }
}

// WithHTTPPath sets the JSON-RPC endpoint path.
func WithHTTPPath(path string) Option {
	return func(c *config) { c.httpPath = path }
}

// WithLogger routes client logs to l.
func WithLogger(l *Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m MetricsCollector) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithCompressor enables gRPC message compression: "zstd", "lz4" or "gzip".
func WithCompressor(name string) Option {
	return func(c *config) { c.compressor = name }
}

// WithPollInterval sets how often HTTP streams poll the server.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) { c.pollInterval = d }
}

// WithRetries sets how many attempts the HTTP driver makes on transient
// network failures. Calls that append or assign ids (AddMemory,
// BatchInsert, CreateUser, CreateSession, LoadSession and Insert without a
// node id) are always sent once.
func WithRetries(n int) Option {
	return func(c *config) { c.retries = n }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithConnectTimeout bounds the handshake done by Connect.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) { c.connectTimeout = d }
}

func WithTLS(cfg *tls.Config) Option {
	return func(c *config) { c.tlsConfig = cfg }
}

// WithMemoryWidth makes WriteMemory and ReadMemory reject vectors of any
// other width before they reach the network.
func WithMemoryWidth(bits uint) Option {
	return func(c *config) { c.memoryWidth = bits }
}

// WithHTTPClient replaces the HTTP client used by the http transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithToken presets the bearer token sent on every call.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

type callOptions struct {
	userID    ID
	sessionID string
	parentID  string
	k         int
	filter    map[string]any
	memFilter map[string]string
	limit     int
	after     ID
	ttl       time.Duration
	weight    float32
	relation  string
	maxDepth  int
	strategy  string
	nodeID    ID
	query     string
	role      string
}

func newCallOptions(opts []CallOption) callOptions {
	o := callOptions{
		userID:   DefaultUserID,
		weight:   DefaultEdgeWeight,
		maxDepth: DefaultMaxDepth,
		strategy: MergeOverwrite,
		role:     DefaultRole,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o callOptions) limitOr(def int) int {
	if o.limit > 0 {
		return o.limit
	}
	return def
}

// CallOption adjusts a single Client call.
type CallOption func(*callOptions)

// AsUser sets the acting or owning user. The default is user 1.
func AsUser(id ID) CallOption {
	return func(o *callOptions) { o.userID = id }
}

// InSession scopes a call to a session's shadow layer.
func InSession(sessionID string) CallOption {
	return func(o *callOptions) { o.sessionID = sessionID }
}

// FromParent forks a new session from an existing one instead of the base.
func FromParent(sessionID string) CallOption {
	return func(o *callOptions) { o.parentID = sessionID }
}

// WithK caps the number of search results.
func WithK(k int) CallOption {
	return func(o *callOptions) { o.k = k }
}

// WithFilter restricts search results to nodes whose metadata has every
// key/value pair in f.
func WithFilter(f map[string]any) CallOption {
	return func(o *callOptions) { o.filter = f }
}

// WithMemoryFilter restricts GetMemory to entries matching every pair in f.
func WithMemoryFilter(f map[string]string) CallOption {
	return func(o *callOptions) { o.memFilter = f }
}

// WithLimit caps GetMemory entries or SampleGraph elements.
func WithLimit(n int) CallOption {
	return func(o *callOptions) { o.limit = n }
}

// After returns only memory entries newer than ts.
func After(ts ID) CallOption {
	return func(o *callOptions) { o.after = ts }
}

// WithTTL expires an agent-memory entry after d, rounded down to seconds.
func WithTTL(d time.Duration) CallOption {
	return func(o *callOptions) { o.ttl = d }
}

func WithWeight(w float32) CallOption {
	return func(o *callOptions) { o.weight = w }
}

func WithRelation(rel string) CallOption {
	return func(o *callOptions) { o.relation = rel }
}

func WithMaxDepth(d int) CallOption {
	return func(o *callOptions) { o.maxDepth = d }
}

// WithMergeStrategy selects "overwrite" or "keep" for CommitSession.
func WithMergeStrategy(s string) CallOption {
	return func(o *callOptions) { o.strategy = s }
}

// ForNode narrows a "node" subscription.
func ForNode(id ID) CallOption {
	return func(o *callOptions) { o.nodeID = id }
}

// MatchingQuery narrows a "query" subscription.
func MatchingQuery(q string) CallOption {
	return func(o *callOptions) { o.query = q }
}

// WithRole sets the role given to CreateUser. The default is "user".
func WithRole(role string) CallOption {
	return func(o *callOptions) { o.role = role }
}

// Package pocketbase is a typed Go client for the PocketBase REST API.
//
// A Client holds the backend base URL, the HTTP transport and the
// authentication state. Collection returns a lightweight RecordService bound
// to one collection; every service derived from the same client shares the
// client's AuthStore, so authenticating through one collection makes the
// bearer token visible to all of them.
//
//	pb, err := pocketbase.NewDefault("http://127.0.0.1:8090/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := pb.Collection("users").AuthWithPassword(ctx, "me@example.com", "secret"); err != nil {
//	    log.Fatal(err)
//	}
//	articles, err := pocketbase.GetFullList[Article](ctx, pb.Collection("articles"))
//
// Typed reads and writes are package-level generic functions (GetList,
// GetOne, GetFullList, GetFirstListItem, Create, Update) because Go methods
// cannot declare type parameters.
package pocketbase

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/chimerakang/pocketbase-go/audit"
	"github.com/chimerakang/pocketbase-go/metrics"
)

// Client is the entry point of the SDK. R is the record type of the
// authenticated user; use NewDefault for DefaultAuthRecord.
type Client[R any] struct {
	t           *transport
	audit       *audit.Logger
	auth        *AuthStore[R]
	collections *CollectionService
}

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      *audit.Logger
}

// Option configures the Client.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for every request.
// Default: a new http.Client with no timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics enables Prometheus instrumentation of requests.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithAuditLogger records authentication state changes and deletions to l.
// The client closes l on Close.
func WithAuditLogger(l *audit.Logger) Option {
	return func(o *options) { o.audit = l }
}

// New creates a client for the backend at baseURL. A single trailing slash is
// removed; the remaining URL must be an absolute http(s) URL without a
// trailing slash.
func New[R any](baseURL string, opts ...Option) (*Client[R], error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.metrics == nil {
		o.metrics = metrics.New(false, nil)
	}

	t := &transport{
		baseURL:    normalized,
		httpClient: o.httpClient,
		logger:     o.logger,
		metrics:    o.metrics,
	}
	return &Client[R]{
		t:           t,
		audit:       o.audit,
		auth:        &AuthStore[R]{},
		collections: &CollectionService{t: t},
	}, nil
}

// NewDefault creates a client whose auth record type is DefaultAuthRecord.
func NewDefault(baseURL string, opts ...Option) (*Client[DefaultAuthRecord], error) {
	return New[DefaultAuthRecord](baseURL, opts...)
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSuffix(raw, "/")
	if strings.HasSuffix(trimmed, "/") {
		return "", fmt.Errorf("pocketbase: base URL %q must not end with more than one slash", raw)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("pocketbase: invalid base URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("pocketbase: base URL %q must be an absolute http(s) URL", raw)
	}
	return trimmed, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client[R]) BaseURL() string { return c.t.baseURL }

// AuthStore returns the authentication state shared by all services of c.
func (c *Client[R]) AuthStore() *AuthStore[R] { return c.auth }

// Collections returns the service for the collections metadata endpoint.
func (c *Client[R]) Collections() *CollectionService { return c.collections }

// Collection returns a RecordService bound to the collection with the given
// id or name. The service is cheap to create and shares c's state.
func (c *Client[R]) Collection(idOrName string) *RecordService[R] {
	return &RecordService[R]{client: c, collection: idOrName}
}

// Close flushes the audit logger, if any, and releases idle connections.
func (c *Client[R]) Close() error {
	c.t.httpClient.CloseIdleConnections()
	if c.audit == nil {
		return nil
	}
	return c.audit.Close()
}

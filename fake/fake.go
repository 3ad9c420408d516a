// Package fake provides an in-memory PocketBase backend for testing.
//
// Use fake.NewServer() in unit tests to exercise a pocketbase.Client over
// real HTTP without a running PocketBase instance:
//
//	srv := fake.NewServer(
//		fake.WithAuthCollection("users"),
//		fake.WithAuthRecord("users", "alice@example.com", "secret123", map[string]any{"name": "Alice"}),
//	)
//	defer srv.Close()
//
//	client, _ := pocketbase.NewDefault(srv.URL())
package fake

import (
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	pocketbase "github.com/chimerakang/pocketbase-go"
)

// Timestamp layout of the created and updated fields.
const timeLayout = "2006-01-02 15:04:05.000Z"

// Default and maximum page sizes of the list endpoint.
const (
	DefaultPerPage = 30
	MaxPerPage     = 1000
)

// Option configures the fake server.
type Option func(*Server)

// Request is one request received by the server.
type Request struct {
	Method        string
	Path          string
	EscapedPath   string
	RawQuery      string
	Authorization string
}

type collection struct {
	id        string
	name      string
	auth      bool
	protected bool
	order     []string // record ids in insertion order
	records   map[string]map[string]any
	passwords map[string]string // record id -> password
}

// Server is an in-memory PocketBase backend served over HTTP.
type Server struct {
	srv *httptest.Server

	mu          sync.RWMutex
	collections map[string]*collection // by name
	ids         map[string]string      // collection id -> name
	requests    []Request

	secret           []byte
	tokenTTL         time.Duration
	latency          time.Duration
	adminCollections bool
	now              func() time.Time
}

// WithCollection adds a base collection.
func WithCollection(name string) Option {
	return func(s *Server) { s.addCollection(name, "", false) }
}

// WithAuthCollection adds an auth collection.
func WithAuthCollection(name string) Option {
	return func(s *Server) { s.addCollection(name, "", true) }
}

// WithProtectedCollection makes every records request to the named collection
// require a valid token.
func WithProtectedCollection(name string) Option {
	return func(s *Server) {
		if c := s.collections[name]; c != nil {
			c.protected = true
		}
	}
}

// WithRecord adds a record to a collection, creating the collection if
// needed. fields may carry an "id"; one is generated otherwise.
func WithRecord(collection string, fields map[string]any) Option {
	return func(s *Server) {
		c := s.collections[collection]
		if c == nil {
			c = s.addCollection(collection, "", false)
		}
		s.insert(c, fields, "")
	}
}

// WithAuthRecord adds a record that can authenticate with email and
// password.
func WithAuthRecord(collection, email, password string, fields map[string]any) Option {
	return func(s *Server) {
		c := s.collections[collection]
		if c == nil {
			c = s.addCollection(collection, "", true)
		}
		rec := copyFields(fields)
		rec["email"] = email
		s.insert(c, rec, password)
	}
}

// WithSuperuser adds a superuser, creating the superusers collection with its
// well-known id.
func WithSuperuser(email, password string) Option {
	return func(s *Server) {
		c := s.collections[pocketbase.SuperusersCollectionName]
		if c == nil {
			c = s.addCollection(pocketbase.SuperusersCollectionName, pocketbase.SuperusersCollectionID, true)
		}
		s.insert(c, map[string]any{"email": email}, password)
	}
}

// WithSecret sets the HMAC key tokens are signed with.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokenTTL = ttl }
}

// WithLatency delays every response.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithAdminOnlyCollections restricts the collections API to superusers.
func WithAdminOnlyCollections() Option {
	return func(s *Server) { s.adminCollections = true }
}

// NewServer starts a fake backend. Call Close when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		collections: make(map[string]*collection),
		ids:         make(map[string]string),
		secret:      []byte("fake-pocketbase-secret"),
		tokenTTL:    time.Hour,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	gin.SetMode(gin.TestMode)
	s.srv = httptest.NewServer(s.router())
	return s
}

// URL returns the base URL of the server.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

// Requests returns the requests received so far, oldest first.
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests returns how many requests matched method and path exactly.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Record returns a copy of a stored record.
func (s *Server) Record(collection, id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.collections[collection]
	if c == nil {
		return nil, false
	}
	rec, ok := c.records[id]
	if !ok {
		return nil, false
	}
	return copyFields(rec), true
}

// RecordIDs returns the ids of a collection in insertion order.
func (s *Server) RecordIDs(collection string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.collections[collection]
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

// CollectionID returns the id of a collection.
func (s *Server) CollectionID(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := s.collections[name]; c != nil {
		return c.id
	}
	return ""
}

// IssueToken signs a token for a record, expiring after ttl. A negative ttl
// yields an already expired token.
func (s *Server) IssueToken(collection, recordID string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	c := s.collections[collection]
	s.mu.RUnlock()
	if c == nil {
		return "", errUnknownCollection
	}
	return s.sign(c.id, recordID, ttl)
}

func (s *Server) sign(collectionID, recordID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"type":         "auth",
		"collectionId": collectionID,
		"id":           recordID,
		"refreshable":  true,
		"exp":          jwt.NewNumericDate(s.now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify checks a bearer token and returns its claims.
func (s *Server) verify(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Server) addCollection(name, id string, auth bool) *collection {
	if id == "" {
		id = "pbc_" + newID()[:10]
	}
	c := &collection{
		id:        id,
		name:      name,
		auth:      auth,
		records:   make(map[string]map[string]any),
		passwords: make(map[string]string),
	}
	s.collections[name] = c
	s.ids[id] = name
	return c
}

// lookup resolves a collection by name or id. Callers hold s.mu.
func (s *Server) lookup(idOrName string) *collection {
	if c := s.collections[idOrName]; c != nil {
		return c
	}
	if name, ok := s.ids[idOrName]; ok {
		return s.collections[name]
	}
	return nil
}

// insert stores a new record. Callers hold s.mu or run during setup.
func (s *Server) insert(c *collection, fields map[string]any, password string) map[string]any {
	rec := copyFields(fields)
	id, _ := rec["id"].(string)
	if id == "" {
		id = newID()
	}
	now := s.now().UTC().Format(timeLayout)
	rec["id"] = id
	rec["collectionId"] = c.id
	rec["collectionName"] = c.name
	rec["created"] = now
	rec["updated"] = now
	if c.auth {
		for k, v := range map[string]any{"email": "", "verified": false, "emailVisibility": false} {
			if _, ok := rec[k]; !ok {
				rec[k] = v
			}
		}
		c.passwords[id] = password
	}
	c.records[id] = rec
	c.order = append(c.order, id)
	return rec
}

func (c *collection) findByEmail(email string) (string, bool) {
	for _, id := range c.order {
		if e, _ := c.records[id]["email"].(string); e != "" && strings.EqualFold(e, email) {
			return id, true
		}
	}
	return "", false
}

// names returns the collection names, sorted.
func (s *Server) names() []string {
	out := make([]string, 0, len(s.collections))
	for name := range s.collections {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// newID returns a 15 character record id.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:15]
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

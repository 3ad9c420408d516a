// Package ginmw provides Gin HTTP middleware for services that sit in front
// of a PocketBase backend.
//
// Auth picks up the caller's PocketBase token from the Authorization header
// or the pb_auth cookie and attaches it to the request context, so handlers
// calling the backend through a shared pocketbase.Client act on behalf of
// the caller. The token signature is not checked here: the backend verifies
// every forwarded request.
package ginmw

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	pocketbase "github.com/chimerakang/pocketbase-go"
	"github.com/chimerakang/pocketbase-go/token"
)

// Context keys for storing session data in gin.Context.
const (
	KeyToken        = "pocketbase_token"
	KeyRecordID     = "pocketbase_record_id"
	KeyCollectionID = "pocketbase_collection_id"
	KeyPayload      = "pocketbase_payload"
)

// AuthOption configures Auth middleware behavior.
type AuthOption func(*authConfig)

type authConfig struct {
	excludedPaths map[string]bool
	optional      bool
}

// WithExcludedPaths sets paths that skip authentication (e.g. health checks).
func WithExcludedPaths(paths ...string) AuthOption {
	return func(cfg *authConfig) {
		for _, p := range paths {
			cfg.excludedPaths[p] = true
		}
	}
}

// WithOptional lets requests without a token through as anonymous. Requests
// carrying an unusable token are still rejected.
func WithOptional() AuthOption {
	return func(cfg *authConfig) { cfg.optional = true }
}

// Auth returns Gin middleware that extracts the caller's token.
// Responds with 401 if the token is missing, malformed or expired.
func Auth(opts ...AuthOption) gin.HandlerFunc {
	cfg := &authConfig{excludedPaths: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}

	return func(c *gin.Context) {
		if cfg.excludedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		raw := extractBearerToken(c.Request)
		if raw == "" {
			raw = extractCookieToken(c.Request)
		}
		if raw == "" {
			if cfg.optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}

		payload, err := token.Decode(raw)
		if err != nil || payload.Type != token.TypeAuth {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if token.IsExpired(raw) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		}

		c.Set(KeyToken, raw)
		c.Set(KeyPayload, payload)
		c.Set(KeyRecordID, payload.ID)
		c.Set(KeyCollectionID, payload.CollectionID)

		ctx := pocketbase.WithToken(c.Request.Context(), raw)
		c.Request = c.Request.WithContext(pocketbase.WithPayload(ctx, payload))

		c.Next()
	}
}

// RequireCollection returns Gin middleware that only admits sessions issued
// by one of the given collection ids. Requires Auth to run first.
// Responds with 403 otherwise.
func RequireCollection(collectionIDs ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(collectionIDs))
	for _, id := range collectionIDs {
		allowed[id] = true
	}
	return func(c *gin.Context) {
		if !allowed[GetCollectionID(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "collection not allowed"})
			return
		}
		c.Next()
	}
}

// --- Context helpers ---

// GetToken returns the caller's raw token from the Gin context.
func GetToken(c *gin.Context) string {
	v, _ := c.Get(KeyToken)
	s, _ := v.(string)
	return s
}

// GetRecordID returns the id of the caller's auth record.
func GetRecordID(c *gin.Context) string {
	v, _ := c.Get(KeyRecordID)
	s, _ := v.(string)
	return s
}

// GetCollectionID returns the id of the collection that issued the token.
func GetCollectionID(c *gin.Context) string {
	v, _ := c.Get(KeyCollectionID)
	s, _ := v.(string)
	return s
}

// GetPayload returns the decoded token payload from the Gin context.
func GetPayload(c *gin.Context) *token.Payload {
	v, _ := c.Get(KeyPayload)
	p, _ := v.(*token.Payload)
	return p
}

// --- internal helpers ---

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// extractCookieToken reads the token from a pb_auth cookie as written by the
// PocketBase JavaScript SDK.
func extractCookieToken(r *http.Request) string {
	ck, err := r.Cookie(pocketbase.AuthCookieName)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(ck.Value)
	if err != nil {
		value = ck.Value
	}
	tok, err := (&pocketbase.AuthCookie{Name: ck.Name, Value: value}).Token()
	if err != nil {
		return ""
	}
	return tok
}

// Package token inspects PocketBase bearer tokens.
//
// Tokens are three-segment JWTs. Only the payload segment is read; the
// signature is never verified, so the results must only be used to answer
// local questions such as "is this session still usable" or "which
// collection issued it". Authorization is always enforced by the backend.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TypeAuth is the token type issued by the auth-with-password endpoint.
const TypeAuth = "auth"

// ErrInvalidToken is returned for any token that cannot be decoded:
// wrong number of segments, bad base64url, invalid JSON or a payload that
// does not match the expected shape.
var ErrInvalidToken = errors.New("pocketbase/token: invalid token")

// Payload is the decoded middle segment of a PocketBase token.
type Payload struct {
	// Type is the token kind, "auth" for regular session tokens.
	Type string `json:"type"`
	// CollectionID is the id of the collection the subject belongs to.
	CollectionID string `json:"collectionId"`
	// ID is the subject record id.
	ID string `json:"id"`
	// Refreshable reports whether the backend allows refreshing the token.
	Refreshable bool `json:"refreshable"`

	jwt.RegisteredClaims
}

// ExpiresAt returns the expiry as a time, or the zero time when the token
// carries no exp claim.
func (p *Payload) ExpiresAt() time.Time {
	if p.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return p.RegisteredClaims.ExpiresAt.Time
}

// ExpiredAt reports whether the token is expired at now. Expiry has second
// granularity and a token whose exp equals now is already expired.
func (p *Payload) ExpiredAt(now time.Time) bool {
	if p.RegisteredClaims.ExpiresAt == nil {
		return true
	}
	return p.RegisteredClaims.ExpiresAt.Unix() <= now.Unix()
}

// Decode extracts the payload from a token. Only the middle segment is read:
// the header and the signature are neither parsed nor checked.
func Decode(raw string) (*Payload, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: token has %d segments, want 3", ErrInvalidToken, len(parts))
	}
	data, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &p, nil
}

// IsExpired reports whether the token is expired. Tokens that cannot be
// decoded are reported as expired.
func IsExpired(raw string) bool {
	p, err := Decode(raw)
	if err != nil {
		return true
	}
	return p.ExpiredAt(time.Now())
}

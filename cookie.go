package pocketbase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AuthCookieName is the cookie PocketBase frontends use to persist the auth
// state.
const AuthCookieName = "pb_auth"

// ErrNotAuthCookie is returned by ParseAuthCookie for cookies other than
// AuthCookieName.
var ErrNotAuthCookie = errors.New("pocketbase: not a " + AuthCookieName + " cookie")

// AuthCookie is a parsed pb_auth Set-Cookie header.
type AuthCookie struct {
	Name     string
	Value    string // URL-unescaped
	Path     string
	Expires  time.Time
	SameSite http.SameSite
	HTTPOnly bool
	Secure   bool
}

// ParseAuthCookie parses a Set-Cookie header line carrying the pb_auth cookie.
func ParseAuthCookie(raw string) (*AuthCookie, error) {
	c, err := http.ParseSetCookie(raw)
	if err != nil {
		return nil, fmt.Errorf("pocketbase: parse cookie: %w", err)
	}
	if c.Name != AuthCookieName {
		return nil, ErrNotAuthCookie
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		// Not every writer escapes the value.
		value = c.Value
	}
	return &AuthCookie{
		Name:     c.Name,
		Value:    value,
		Path:     c.Path,
		Expires:  c.Expires,
		SameSite: c.SameSite,
		HTTPOnly: c.HttpOnly,
		Secure:   c.Secure,
	}, nil
}

// Token extracts the auth token from a cookie value of the form
// {"token": "...", "record": {...}}.
func (c *AuthCookie) Token() (string, error) {
	var v struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(c.Value), &v); err != nil {
		return "", fmt.Errorf("pocketbase: decode cookie value: %w", err)
	}
	if v.Token == "" {
		return "", errors.New("pocketbase: cookie carries no token")
	}
	return v.Token, nil
}

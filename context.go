package pocketbase

import (
	"context"

	"github.com/chimerakang/pocketbase-go/token"
)

type ctxKey string

const (
	ctxKeyToken   ctxKey = "pocketbase_token"
	ctxKeyPayload ctxKey = "pocketbase_token_payload"
)

// WithToken returns a context whose requests are sent with tok instead of
// the AuthStore token. It lets a server forward its caller's session to the
// backend through a shared client. The AuthStore is not modified.
func WithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, ctxKeyToken, tok)
}

// TokenFromContext returns the token set by WithToken, or "".
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyToken).(string)
	return v
}

// WithPayload stores a decoded token payload in the context.
func WithPayload(ctx context.Context, p *token.Payload) context.Context {
	return context.WithValue(ctx, ctxKeyPayload, p)
}

// PayloadFromContext extracts the payload stored by WithPayload.
func PayloadFromContext(ctx context.Context) *token.Payload {
	v, _ := ctx.Value(ctxKeyPayload).(*token.Payload)
	return v
}

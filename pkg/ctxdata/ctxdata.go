package ctxdata

import (
	"context"
)

type traceIDKey struct{}
type accountIDKey struct{}

var (
	traceIDKeyInstance   = traceIDKey{}
	accountIDKeyInstance = accountIDKey{}
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKeyInstance, traceID)
}

func GetTraceID(ctx context.Context) (string, bool) {
	v := ctx.Value(traceIDKeyInstance)
	traceID, ok := v.(string)
	return traceID, ok
}

// WithAccountID stores the id of the account proven by the bearer token.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKeyInstance, accountID)
}

func GetAccountID(ctx context.Context) (string, bool) {
	v := ctx.Value(accountIDKeyInstance)
	accountID, ok := v.(string)
	return accountID, ok && accountID != ""
}

package config

import (
	"context"

	"github.com/nats-io/nats.go"
)

type contextKey string

const jsContextKey = contextKey("jsContext")

// WithJetStream stores the JetStream context used by worker activities that
// publish tournament events.
func WithJetStream(ctx context.Context, js nats.JetStreamContext) context.Context {
	return context.WithValue(ctx, jsContextKey, js)
}

func JetStreamFromContext(ctx context.Context) (nats.JetStreamContext, bool) {
	js, ok := ctx.Value(jsContextKey).(nats.JetStreamContext)
	return js, ok && js != nil
}

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx retrieves the logger from the context.
// If no logger is found, the global logger is returned.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

// WithConn derives a connection-scoped logger from the one in ctx and stores it back.
// Every log line emitted for a socket connection carries its id, user and transport.
func WithConn(ctx context.Context, connID, userID, transport string) context.Context {
	parent := Ctx(ctx)
	child := parent.With().
		Str(FieldConnID, connID).
		Str(FieldUserID, userID).
		Str(FieldTransport, transport).
		Logger()
	return WithLogger(ctx, child)
}

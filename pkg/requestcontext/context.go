// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values set by middleware and read by handlers.
package requestcontext

import (
	"context"
	"time"
)

type requestTimeKey struct{}

// WithTime stores the request's reference time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the request's reference time, or the current time when none
// was stored.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

package skills

import (
	"context"
	"maps"

	"github.com/google/uuid"
)

// CallContext carries caller identity and ambient data into a skill.
// The runtime threads it through without inspecting Values.
type CallContext struct {
	UserID    string
	RequestID string
	Values    map[string]any
}

// Value returns the ambient value stored under key.
func (c CallContext) Value(key string) (any, bool) {
	v, ok := c.Values[key]
	return v, ok
}

// StringValue returns the ambient value under key when it is a string.
func (c CallContext) StringValue(key string) string {
	s, _ := c.Values[key].(string)
	return s
}

// With returns a copy of c with key set. The receiver is left untouched.
func (c CallContext) With(key string, value any) CallContext {
	values := maps.Clone(c.Values)
	if values == nil {
		values = make(map[string]any, 1)
	}
	values[key] = value
	c.Values = values
	return c
}

type runIDKey struct{}

// WithRunID attaches a run id to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id if present.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// EnsureRunID ensures a run id exists in the context.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if id, ok := RunID(ctx); ok {
		return ctx, id
	}
	id := "run-" + uuid.NewString()
	return WithRunID(ctx, id), id
}

package trace

import "context"

type tracerKey struct{}

// WithTracer returns a context carrying t. Passing nil stores the
// Nop tracer so callers never need to guard the lookup.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer carried by ctx, or Nop when the
// context has none. The result is always safe to emit on.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

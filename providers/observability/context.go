package observability

import "context"

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

var observerContextKey = contextKey{}

// ObserverFromContext extracts a Provider from the context.
// Returns nil if no provider is present.
func ObserverFromContext(ctx context.Context) Provider {
	if ctx == nil {
		return nil
	}
	observer, _ := ctx.Value(observerContextKey).(Provider)
	return observer
}

// ContextWithObserver returns a new context with the given provider attached.
func ContextWithObserver(ctx context.Context, observer Provider) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, observerContextKey, observer)
}

// OrNop returns observer, or [Nop] when it is nil.
func OrNop(observer Provider) Provider {
	if observer == nil {
		return Nop()
	}
	return observer
}

// Scoper is implemented by providers that can derive a copy of themselves
// attaching attrs to every log line.
type Scoper interface {
	With(attrs ...Attribute) Provider
}

// With returns observer scoped to attrs when it implements [Scoper], and
// observer unchanged otherwise.
func With(observer Provider, attrs ...Attribute) Provider {
	if scoper, ok := observer.(Scoper); ok {
		return scoper.With(attrs...)
	}
	return observer
}

// FromContextOr returns the provider carried by ctx, or fallback when there
// is none.
func FromContextOr(ctx context.Context, fallback Provider) Provider {
	if observer := ObserverFromContext(ctx); observer != nil {
		return observer
	}
	return OrNop(fallback)
}

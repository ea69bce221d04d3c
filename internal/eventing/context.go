package eventing

import "context"

type contextKey int

const metaKey contextKey = 0

// WithSakID sets the case id of events published with ctx.
func WithSakID(ctx context.Context, sakID string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.SakID = sakID })
}

// WithCorrelationID sets the correlation id of events published with ctx.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.CorrelationID = correlationID })
}

// WithEventID fixes the event id of the next event published with ctx.
func WithEventID(ctx context.Context, eventID string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.EventID = eventID })
}

// MetaFromContext returns the envelope overrides set on ctx.
func MetaFromContext(ctx context.Context) Meta {
	meta, _ := ctx.Value(metaKey).(Meta)
	return meta
}

func withMeta(ctx context.Context, set func(*Meta)) context.Context {
	meta := MetaFromContext(ctx)
	set(&meta)
	return context.WithValue(ctx, metaKey, meta)
}

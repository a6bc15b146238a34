package core

import "context"

type actorKey struct{}

// WithActor attaches the authenticated caller id to ctx. The id is recorded on orders for
// audit; it is not used for authorization.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the caller id, or nil when the caller is anonymous.
func ActorFromContext(ctx context.Context) *string {
	v, _ := ctx.Value(actorKey{}).(string)
	if v == "" {
		return nil
	}
	return &v
}

package access

import "context"

type controlContextKey struct{}

// ContextWithControl stores the session's Control in ctx.
func ContextWithControl(ctx context.Context, c *Control) context.Context {
	return context.WithValue(ctx, controlContextKey{}, c)
}

// FromContext returns the Control attached to ctx, nil for anonymous requests.
func FromContext(ctx context.Context) *Control {
	c, _ := ctx.Value(controlContextKey{}).(*Control)
	return c
}

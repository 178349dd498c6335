package audit

import "context"

// RequestMeta carries caller network facts for audit stamping.
type RequestMeta struct {
	SourceAddr string
	UserAgent  string
}

type metaContextKey struct{}

// ContextWithMeta attaches request metadata for downstream audit entries.
func ContextWithMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, metaContextKey{}, meta)
}

// MetaFromContext returns attached request metadata, or a zero value.
func MetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(metaContextKey{}).(RequestMeta)
	return meta
}

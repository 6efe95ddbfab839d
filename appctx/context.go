package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> utils).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeyBusinessId    = ContextKey("BusinessId")
	ContextKeyCorrelationId = ContextKey("CorrelationId")

	// ContextKeySkipTenantScope disables tenant scoping for the request.
	// Only cross-tenant tooling (cmd/bom-report -all) sets it.
	ContextKeySkipTenantScope = ContextKey("SkipTenantScope")
)

// Get reads a typed value; ok is false when the key is unset or holds another type.
func Get[T any](ctx context.Context, key ContextKey) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	return Get[string](ctx, key)
}

func GetBool(ctx context.Context, key ContextKey) (bool, bool) {
	return Get[bool](ctx, key)
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

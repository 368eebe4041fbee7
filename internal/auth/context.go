package auth

import "context"

type profileContextKey struct{}
type tokenContextKey struct{}

// ContextWithUser attaches the authenticated (redacted) user to the context.
func ContextWithUser(ctx context.Context, profile Profile) context.Context {
	return context.WithValue(ctx, profileContextKey{}, &profile)
}

// UserFromContext extracts the authenticated user from the context.
func UserFromContext(ctx context.Context) (Profile, bool) {
	if ctx == nil {
		return Profile{}, false
	}
	v, ok := ctx.Value(profileContextKey{}).(*Profile)
	if !ok || v == nil {
		return Profile{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"taskhive.org/internal/auth"
)

const (
	authHeader        = "Authorization"
	bearer            = "Bearer "
	accessTokenCookie = "accessToken"
)

var publicPaths = []string{
	"/users/signup",
	"/users/login",
	"/users/refresh",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth guards every non-public route. Per request the flow is: extract a
// token (cookie first, then bearer header), verify it, load the referenced
// user and attach the redacted identity to the context. Anything else is a
// rejection; no refresh is attempted here.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractToken(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := a.users.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "Invalid token")
			case errors.Is(err, auth.ErrNotFound):
				// Valid signature over a vanished user.
				writeError(w, r, http.StatusBadRequest, "Invalid token identity")
			default:
				writeError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken prefers the access-token cookie and falls back to the
// Authorization header.
func extractToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return "", false
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// identity pulls the authenticated user out of the context; the gateway
// guarantees it exists on protected routes.
func identity(w http.ResponseWriter, r *http.Request) (auth.Profile, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized")
		return auth.Profile{}, false
	}
	return user, true
}

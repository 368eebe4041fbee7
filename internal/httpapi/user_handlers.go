package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"taskhive.org/internal/audit"
	"taskhive.org/internal/auth"
	"taskhive.org/internal/session"
)

const refreshTokenCookie = "refreshToken"

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	switch rest {
	case "signup":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.signup(w, r)
	case "login":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.login(w, r)
	case "logout":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.logout(w, r)
	case "refresh":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.refresh(w, r)
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.me(w, r)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role != "" && !auth.Role(req.Role).Valid() {
		writeError(w, r, http.StatusBadRequest, "Invalid role value")
		return
	}

	profile, pair, err := a.users.Signup(r.Context(), req.Name, req.Email, req.Password, auth.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "All input fields must be filled")
		case errors.Is(err, auth.ErrAlreadyExists):
			writeError(w, r, http.StatusBadRequest, "User already exists")
		default:
			writeError(w, r, http.StatusInternalServerError, "Something went wrong while registering the user")
		}
		return
	}

	if err := a.setAuthCookies(w, profile, pair); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Something went wrong while registering the user")
		return
	}
	_ = audit.LogEvent(r.Context(), "user.signup", map[string]any{
		"user_id": profile.ID,
		"email":   profile.Email,
		"role":    profile.Role,
	})
	writeEnvelope(w, http.StatusCreated, profile, "User registered successfully")
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "Email is required")
		return
	}

	profile, pair, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "Incorrect email")
		case errors.Is(err, auth.ErrWrongPassword):
			writeError(w, r, http.StatusNotFound, "Password incorrect")
		default:
			writeError(w, r, http.StatusInternalServerError, "Something went wrong while logging in")
		}
		return
	}

	if err := a.setAuthCookies(w, profile, pair); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Something went wrong while logging in")
		return
	}
	_ = audit.LogEvent(r.Context(), "user.login", map[string]any{
		"user_id": profile.ID,
		"email":   profile.Email,
	})
	writeEnvelope(w, http.StatusOK, profile, "User logged in successfully")
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	if err := a.users.Logout(r.Context(), user.ID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Something went wrong while logging out")
		return
	}
	a.clearAuthCookies(w)
	_ = audit.LogEvent(r.Context(), "user.logout", map[string]any{"user_id": user.ID})
	writeEnvelope(w, http.StatusOK, nil, "User logged out successfully")
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	writeEnvelope(w, http.StatusOK, user, "Data fetched")
}

// refresh exchanges the refresh-token cookie (or body field) for a new pair
// and re-issues all session cookies.
func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, pair, err := a.users.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusUnauthorized, "Invalid token")
		default:
			writeError(w, r, http.StatusInternalServerError, "Something went wrong while refreshing tokens")
		}
		return
	}

	if err := a.setAuthCookies(w, profile, pair); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Something went wrong while refreshing tokens")
		return
	}
	_ = audit.LogEvent(r.Context(), "user.refresh", map[string]any{"user_id": profile.ID})
	writeEnvelope(w, http.StatusOK, profile, "Tokens refreshed")
}

// setAuthCookies issues the three session cookies together: both tokens
// (http-only) and the encrypted profile (script-readable by the client).
func (a *API) setAuthCookies(w http.ResponseWriter, profile auth.Profile, pair auth.TokenPair) error {
	blob, err := a.codec.Encode(profile)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    blob,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// clearAuthCookies expires all three session cookies together.
func (a *API) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie, session.CookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Secure:   a.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

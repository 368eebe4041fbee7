// Package session encrypts the redacted user profile into an opaque cookie
// value and hydrates it back. The blob is a convenience cache shared with the
// client, not a security boundary: the decoding side holds the same key.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"taskhive.org/internal/auth"
)

// CookieName is the cookie the encrypted profile travels in.
const CookieName = "user"

// Codec performs symmetric encryption of profiles with a shared secret.
// Issuing and decoding sides must be configured with the same secret or
// every decode degrades to "no session".
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives the AES-256-GCM key from the shared secret.
func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session: secret is required")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Encode serializes and encrypts the profile into a cookie-safe string.
func (c *Codec) Encode(profile auth.Profile) (string, error) {
	plain, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode decrypts a profile blob. Malformed input, a truncated blob or a key
// mismatch all mean the same thing to the caller: there is no session.
func (c *Codec) Decode(blob string) (auth.Profile, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil || len(raw) <= c.aead.NonceSize() {
		return auth.Profile{}, false
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return auth.Profile{}, false
	}
	var profile auth.Profile
	if err := json.Unmarshal(plain, &profile); err != nil {
		return auth.Profile{}, false
	}
	return profile, true
}

// FromRequest hydrates the profile from the session cookie once per request.
// An absent cookie is a normal "no session" outcome.
func FromRequest(r *http.Request, codec *Codec) (auth.Profile, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return auth.Profile{}, false
	}
	return codec.Decode(cookie.Value)
}

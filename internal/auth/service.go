package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskhive.org/internal/ids"
)

const (
	defaultIssuer     = "taskhive"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 10
)

// Claims are the verified JWT claims carried by both token kinds. Email is
// set on access tokens only.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair holds freshly issued access and refresh tokens.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Service implements signup, login and the stateless token lifecycle. Access
// and refresh tokens are signed with distinct secrets; the last issued
// refresh token is mirrored onto the user record so logout can revoke it.
type Service struct {
	users         UserStore
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the auth service. Both signing secrets are required.
func NewService(users UserStore, accessSecret, refreshSecret string, opts ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("auth: both token secrets are required")
	}
	svc := &Service{
		users:         users,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        defaultIssuer,
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Signup creates a user with a hashed password and issues the first token
// pair. Blank fields are ErrInvalidInput; a duplicate email is
// ErrAlreadyExists. The returned profile never carries the hash.
func (s *Service) Signup(ctx context.Context, name, email, password string, role Role) (Profile, TokenPair, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return Profile{}, TokenPair{}, ErrInvalidInput
	}
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return Profile{}, TokenPair{}, ErrInvalidInput
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return Profile{}, TokenPair{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return Profile{}, TokenPair{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return Profile{}, TokenPair{}, err
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	return user.Redact(), pair, nil
}

// Login authenticates credentials and issues a fresh token pair. Unknown
// email is ErrNotFound, a bad password ErrWrongPassword.
func (s *Service) Login(ctx context.Context, email, password string) (Profile, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return Profile{}, TokenPair{}, ErrInvalidInput
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Profile{}, TokenPair{}, ErrWrongPassword
	}
	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	return user.Redact(), pair, nil
}

// IssueTokens signs a new access/refresh pair and mirrors the refresh token
// onto the user record. The mint and the store write are two independent
// operations; a crash in between leaves an issued pair with no stored
// refresh token.
func (s *Service) IssueTokens(ctx context.Context, user *User) (TokenPair, error) {
	now := s.now().UTC()

	accessExp := now.Add(s.accessTTL)
	access, err := s.sign(Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			ID:        uuid.NewString(),
		},
	}, s.accessSecret)
	if err != nil {
		return TokenPair{}, err
	}

	refreshExp := now.Add(s.refreshTTL)
	refresh, err := s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        uuid.NewString(),
		},
	}, s.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *Service) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, s.refreshSecret)
}

// Authenticate resolves an access token to the redacted user it references.
// A valid signature over a deleted user surfaces as ErrNotFound so the
// transport can distinguish it from a bad token.
func (s *Service) Authenticate(ctx context.Context, token string) (Profile, error) {
	claims, err := s.VerifyAccess(token)
	if err != nil {
		return Profile{}, ErrInvalidToken
	}
	user, err := s.users.Find(ctx, claims.Subject)
	if err != nil {
		return Profile{}, err
	}
	return user.Redact(), nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// token must match the one mirrored on the user record; older tokens are
// rejected even when their signature is still valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Profile, TokenPair, error) {
	claims, err := s.VerifyRefresh(refreshToken)
	if err != nil {
		return Profile{}, TokenPair{}, ErrInvalidToken
	}
	user, err := s.users.Find(ctx, claims.Subject)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return Profile{}, TokenPair{}, ErrInvalidToken
	}
	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	return user.Redact(), pair, nil
}

// Logout unsets the stored refresh token. Outstanding access tokens remain
// valid until natural expiry; there is no blocklist.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.users.SetRefreshToken(ctx, userID, "")
}

func (s *Service) sign(claims Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *Service) verify(token string, secret []byte) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != s.issuer || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

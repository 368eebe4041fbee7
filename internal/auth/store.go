package auth

import "context"

// UserStore describes the persistence operations required by the auth
// subsystem. Absence of a record is reported as ErrNotFound, never a panic.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// SetRefreshToken overwrites the mirrored refresh token; the empty
	// string clears it.
	SetRefreshToken(ctx context.Context, userID, token string) error
}

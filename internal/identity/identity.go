package identity

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Resolver maps an authenticated identity (the email asserted by the fronting
// auth layer) to an account.
type Resolver interface {
	ResolveByEmail(ctx context.Context, email string) (*User, error)
}

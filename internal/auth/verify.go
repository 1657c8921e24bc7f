package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// User is the authenticated caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Verifier turns an access token into a User.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

type supabaseClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// HS256Verifier checks tokens signed with the project's shared JWT secret.
type HS256Verifier struct {
	Secret   []byte
	Audience string
}

func (v *HS256Verifier) Verify(_ context.Context, token string) (User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	var claims supabaseClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return User{}, fmt.Errorf("%w: missing subject claim", ErrUnauthorized)
	}
	return User{ID: claims.Subject, Email: claims.Email}, nil
}

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// JWKSVerifier checks tokens against a published key set, fetched lazily and
// refreshed after TTL.
type JWKSVerifier struct {
	URL string
	TTL time.Duration

	mu      sync.Mutex
	set     jwk.Set
	fetched time.Time
}

func NewJWKSVerifier(url string) *JWKSVerifier {
	return &JWKSVerifier{URL: url, TTL: 10 * time.Minute}
}

func (v *JWKSVerifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.set != nil && time.Since(v.fetched) < v.TTL {
		return v.set, nil
	}
	set, err := jwk.Fetch(ctx, v.URL)
	if err != nil {
		if v.set != nil {
			// keep serving the stale set
			return v.set, nil
		}
		return nil, fmt.Errorf("failed to load jwks: %w", err)
	}
	v.set, v.fetched = set, time.Now()
	return set, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (User, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return User{}, err
	}
	tok, err := jwt.Parse([]byte(token), jwt.WithKeySet(set), jwt.WithValidate(true))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	sub, ok := tok.Subject()
	if !ok || sub == "" {
		return User{}, fmt.Errorf("%w: missing subject claim", ErrUnauthorized)
	}
	var email string
	_ = tok.Get("email", &email)
	return User{ID: sub, Email: email}, nil
}

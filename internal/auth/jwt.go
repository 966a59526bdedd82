// Package auth turns bearer tokens issued by the upstream identity service
// into caller identities. Tokens are HS256 JWTs carrying the user id in
// "sub", an optional display name in "name", and "role" for administrators.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-chi/jwtauth"
)

const RoleAdmin = "admin"

var ErrMissingSubject = errors.New("token has no subject")

type Identity struct {
	UserID   string
	Username string
	Admin    bool
}

type Verifier struct {
	ja *jwtauth.JWTAuth
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{ja: jwtauth.New("HS256", []byte(secret), nil)}
}

// JWTAuth exposes the underlying verifier for jwtauth middleware.
func (v *Verifier) JWTAuth() *jwtauth.JWTAuth {
	return v.ja
}

// Issue signs a token for userID. It backs local development and tests; in
// production tokens come from the identity service sharing the secret.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", ErrMissingSubject
	}
	claims := map[string]interface{}{
		"sub":  id.UserID,
		"name": id.Username,
	}
	if id.Admin {
		claims["role"] = RoleAdmin
	}
	jwtauth.SetIssuedNow(claims)
	if ttl > 0 {
		jwtauth.SetExpiryIn(claims, ttl)
	}
	_, token, err := v.ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// FromContext reads the identity placed in ctx by jwtauth.Verifier.
func FromContext(ctx context.Context) (Identity, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}, err
	}
	if token == nil {
		return Identity{}, jwtauth.ErrNoTokenFound
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims map[string]interface{}) (Identity, error) {
	sub, _ := claims["sub"].(string)
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return Identity{}, ErrMissingSubject
	}
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	return Identity{
		UserID:   sub,
		Username: strings.TrimSpace(name),
		Admin:    strings.EqualFold(role, RoleAdmin),
	}, nil
}

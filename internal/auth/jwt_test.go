package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-chi/jwtauth"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier("test-secret-0123456789")
	token, err := v.Issue(Identity{UserID: "u-1", Username: "vito", Admin: true}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parsed, err := jwtauth.VerifyToken(v.JWTAuth(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	ctx := jwtauth.NewContext(context.Background(), parsed, nil)
	id, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if id.UserID != "u-1" || id.Username != "vito" || !id.Admin {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	token, err := NewVerifier("secret-one-0123456789").Issue(Identity{UserID: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := jwtauth.VerifyToken(NewVerifier("secret-two-0123456789").JWTAuth(), token); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestIdentityFromClaims(t *testing.T) {
	if _, err := identityFromClaims(map[string]interface{}{"name": "x"}); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("got %v want ErrMissingSubject", err)
	}
	id, err := identityFromClaims(map[string]interface{}{"sub": "u-2", "role": "player"})
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if id.Admin {
		t.Fatalf("non-admin role treated as admin")
	}
	if _, err := v().Issue(Identity{}, 0); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("issue without subject got %v", err)
	}
}

func v() *Verifier { return NewVerifier("test-secret-0123456789") }

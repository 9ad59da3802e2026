package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	t.Setenv("TESSERA_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	defer ResetSecretForTests()

	token, err := GenerateToken("user-42", "Admin@Example.com", 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Email != "admin@example.com" {
		t.Fatalf("email not normalized: %s", claims.Email)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Setenv("TESSERA_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	defer ResetSecretForTests()

	if _, err := ParseAndValidate(""); err != ErrInvalidToken {
		t.Fatalf("empty token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseAndValidate("not.a.token"); err != ErrInvalidToken {
		t.Fatalf("garbage token: expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("TESSERA_AUTH_SECRET", "")
	ResetSecretForTests()
	defer ResetSecretForTests()

	if _, err := GenerateToken("user-1", "", time.Minute); err == nil {
		t.Fatalf("expected error when secret is missing")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatalf("empty context should carry no user")
	}
	ctx = ContextWithUser(ctx, "user-7")
	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "hunter2"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

package auth

import (
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	expiresAt := time.Now().Add(15 * time.Minute)

	token, err := IssueToken(secret, "user-1", "Asha", "citizen", "hi", "jti-1", expiresAt)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Role != "citizen" {
		t.Errorf("expected role citizen, got %s", claims.Role)
	}
	if claims.Language != "hi" {
		t.Errorf("expected language hi, got %s", claims.Language)
	}
	if claims.ID != "jti-1" {
		t.Errorf("expected jti jti-1, got %s", claims.ID)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := IssueToken([]byte("secret-a"), "user-1", "Asha", "citizen", "en", "jti-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if _, err := ParseToken([]byte("secret-b"), token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueToken(secret, "user-1", "Asha", "citizen", "en", "jti-1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if _, err := ParseToken(secret, token); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken([]byte("secret"), "not-a-token"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	a := HashToken("abc")
	b := HashToken("abc")
	if a != b {
		t.Errorf("hashes differ: %s vs %s", a, b)
	}
	if a == HashToken("abd") {
		t.Error("distinct inputs produced the same hash")
	}
}

func TestNewRefreshTokenUnique(t *testing.T) {
	if NewRefreshToken() == NewRefreshToken() {
		t.Error("refresh tokens should not repeat")
	}
}

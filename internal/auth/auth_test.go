package auth

import (
	"errors"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	m := NewManager("secret", time.Hour)

	hash, err := m.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !m.CheckPassword(hash, "hunter2hunter2") {
		t.Error("expected matching password to verify")
	}
	if m.CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)
	user := &User{ID: 42, SpreadsheetID: "sheet-abc"}

	token, err := m.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.SpreadsheetID != "sheet-abc" {
		t.Errorf("expected spreadsheet id sheet-abc, got %q", claims.SpreadsheetID)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).IssueToken(&User{ID: 1})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := NewManager("secret-b", time.Hour).VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	m := NewManager("secret", time.Hour)
	if _, err := m.VerifyToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	// Issue with an already-elapsed lifetime; bypasses the constructor's
	// ttl floor on purpose.
	issuer := &Manager{secret: []byte("secret"), ttl: -2 * time.Hour}
	token, err := issuer.IssueToken(&User{ID: 1})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	m := NewManager("secret", time.Hour)
	if _, err := m.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

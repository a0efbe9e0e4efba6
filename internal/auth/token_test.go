package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)

	token, err := svc.Issue(42, "admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.AdminID != 42 {
		t.Errorf("AdminID = %d, want 42", claims.AdminID)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want %q", claims.Role, "admin")
	}
}

func TestTokenExpired(t *testing.T) {
	svc := &TokenService{secret: []byte(testSecret), ttl: -time.Minute}

	token, err := svc.Issue(1, "admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = svc.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenTampered(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)

	token, err := svc.Issue(1, "admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// Flip a byte in the payload section
	raw := []byte(token)
	raw[len(raw)/2] ^= 0x01

	_, err = svc.Verify(string(raw))
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("Verify error = %v, want ErrTokenMalformed", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenService(testSecret, time.Hour)
	verifier := NewTokenService("another-secret-another-secret-32", time.Hour)

	token, err := issuer.Issue(1, "admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("Verify error = %v, want ErrTokenMalformed", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	if _, err := svc.Verify("not.a.token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("Verify error = %v, want ErrTokenMalformed", err)
	}
}

func TestNewTokenServiceDefaultTTL(t *testing.T) {
	svc := NewTokenService(testSecret, 0)
	if svc.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", svc.ttl, DefaultTokenTTL)
	}
}

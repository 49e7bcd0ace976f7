package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_SaltUniqueness(t *testing.T) {
	h1, err := HashPassword("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashPassword("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected different digests for equal plaintexts, got identical")
	}
}

func TestHashPassword_RejectsOverlongInput(t *testing.T) {
	// bcrypt refuses inputs over 72 bytes; the API layer caps passwords at 72
	// so this error can never surface from a request that passed validation.
	if _, err := HashPassword(strings.Repeat("a", 73)); err == nil {
		t.Fatalf("expected an error for a 73-byte password")
	}
}

func TestVerifyPassword(t *testing.T) {
	digest, err := HashPassword("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword("password1", digest) {
		t.Fatalf("expected correct password to verify")
	}
	if VerifyPassword("password2", digest) {
		t.Fatalf("expected wrong password to fail")
	}
	if VerifyPassword("password1", "not-a-bcrypt-digest") {
		t.Fatalf("expected malformed digest to fail")
	}
}

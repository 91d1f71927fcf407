// Package auth tests cover password hashing/verification.
package auth

import "testing"

// TestHashAndVerifyPassword validates positive and negative password checks.
func TestHashAndVerifyPassword(t *testing.T) {
	h, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ok, err := VerifyPassword("secret", h)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify")
	}

	ok, err = VerifyPassword("wrong", h)
	if err != nil {
		t.Fatalf("VerifyPassword(wrong): %v", err)
	}
	if ok {
		t.Fatalf("expected wrong password to fail")
	}
}

// TestVerifyPasswordRejectsMalformedHash confirms malformed encodings error out.
func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("secret", "argon2id$v=19$nonsense"); err == nil {
		t.Fatalf("expected malformed hash to error")
	}
	if ok, err := VerifyPassword("", "anything"); err != nil || ok {
		t.Fatalf("empty password must fail cleanly, got ok=%v err=%v", ok, err)
	}
}

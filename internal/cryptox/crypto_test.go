package cryptox

import (
	"bytes"
	"testing"
)

func TestHashPassword_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	h1 := HashPassword(password, salt)
	h2 := HashPassword(password, salt)

	if !bytes.Equal(h1, h2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	if len(h1) != KeySize {
		t.Errorf("expected %d bytes, got %d", KeySize, len(h1))
	}
}

func TestHashPassword_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	if bytes.Equal(HashPassword(password, []byte("salt-1")), HashPassword(password, []byte("salt-2"))) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestVerifyPassword(t *testing.T) {
	salt := NewSalt()
	if len(salt) != SaltSize {
		t.Fatalf("salt size %d", len(salt))
	}
	hash := HashPassword([]byte("correct horse"), salt)

	if !VerifyPassword(hash, []byte("correct horse"), salt) {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, []byte("battery staple"), salt) {
		t.Error("wrong password accepted")
	}
	if VerifyPassword(hash, []byte("correct horse"), NewSalt()) {
		t.Error("password accepted with a different salt")
	}
	if VerifyPassword(nil, []byte("correct horse"), salt) {
		t.Error("empty hash matched")
	}
}

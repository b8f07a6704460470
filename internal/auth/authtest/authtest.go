// Package authtest provides RSA fixtures for tests. Key generation is slow, so
// keys are generated once per test binary and shared.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
)

var (
	once    sync.Once
	primary *rsa.PrivateKey
	other   *rsa.PrivateKey
	genErr  error
)

func generate() {
	primary, genErr = rsa.GenerateKey(rand.Reader, 2048)
	if genErr != nil {
		return
	}
	other, genErr = rsa.GenerateKey(rand.Reader, 2048)
}

// PrivateKey returns the shared signing key.
func PrivateKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	once.Do(generate)
	if genErr != nil {
		t.Fatalf("generate rsa key: %v", genErr)
	}
	return primary
}

// OtherPrivateKey returns a second key that does not match PrivateKey.
func OtherPrivateKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	once.Do(generate)
	if genErr != nil {
		t.Fatalf("generate rsa key: %v", genErr)
	}
	return other
}

// PrivatePEM encodes k as a PKCS#1 "RSA PRIVATE KEY" block.
func PrivatePEM(t testing.TB, k *rsa.PrivateKey) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)})
}

// PublicPEM encodes the public half of k as a PKIX "PUBLIC KEY" block.
func PublicPEM(t testing.TB, k *rsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

const MinKeyBits = 2048

// Generate creates a fresh RSA signing pair.
func Generate(bits int) (*Pair, error) {
	if bits < MinKeyBits {
		return nil, fmt.Errorf("rsa key size %d is below %d bits", bits, MinKeyBits)
	}
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return NewPair(k, nil), nil
}

// EncodePEM renders the pair in the layout ParsePEM reads: a PKCS#1 private
// key and a PKIX public key.
func (p *Pair) EncodePEM() (privatePEM, publicPEM []byte, err error) {
	if p.private == nil {
		return nil, nil, errors.New("pair has no private key")
	}

	der, err := x509.MarshalPKIXPublicKey(p.public)
	if err != nil {
		return nil, nil, err
	}

	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(p.private)})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return privatePEM, publicPEM, nil
}

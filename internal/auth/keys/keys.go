// Package keys supplies the RSA key pair used to sign and verify tokens.
// Where the PEM material comes from (local files or an S3 bucket) is decided
// at startup; missing material is a startup error, never a per-request one.
package keys

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider hands out the signing and verification keys. Either may be nil
// when a process only needs one side (the identity service only verifies).
type KeyProvider interface {
	PrivateKey() *rsa.PrivateKey
	PublicKey() *rsa.PublicKey
}

// Pair is the static KeyProvider used by both binaries.
type Pair struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// NewPair builds a Pair. A nil public key is derived from the private key.
func NewPair(private *rsa.PrivateKey, public *rsa.PublicKey) *Pair {
	if public == nil && private != nil {
		public = &private.PublicKey
	}
	return &Pair{private: private, public: public}
}

func (p *Pair) PrivateKey() *rsa.PrivateKey { return p.private }
func (p *Pair) PublicKey() *rsa.PublicKey   { return p.public }

// ParsePEM decodes PKCS#1/PKCS#8 private and PKIX public keys. Empty input
// for one side leaves it unset; both empty, or two halves of different
// pairs, is ErrNoKeyMaterial.
func ParsePEM(privatePEM, publicPEM []byte) (*Pair, error) {
	if len(privatePEM) == 0 && len(publicPEM) == 0 {
		return nil, common.ErrNoKeyMaterial
	}

	var (
		private *rsa.PrivateKey
		public  *rsa.PublicKey
		err     error
	)

	if len(privatePEM) > 0 {
		private, err = jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("%w: private key: %v", common.ErrNoKeyMaterial, err)
		}
	}
	if len(publicPEM) > 0 {
		public, err = jwt.ParseRSAPublicKeyFromPEM(publicPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: public key: %v", common.ErrNoKeyMaterial, err)
		}
	}

	if private != nil && public != nil && !private.PublicKey.Equal(public) {
		return nil, fmt.Errorf("%w: public key does not match private key", common.ErrNoKeyMaterial)
	}

	return NewPair(private, public), nil
}

// LoadPEMFiles reads key files from disk. Either path may be empty.
func LoadPEMFiles(privatePath, publicPath string) (*Pair, error) {
	privatePEM, err := readOptional(privatePath)
	if err != nil {
		return nil, err
	}
	publicPEM, err := readOptional(publicPath)
	if err != nil {
		return nil, err
	}
	return ParsePEM(privatePEM, publicPEM)
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNoKeyMaterial, err)
	}
	return b, nil
}

// RequireSigning fails unless p can sign; the gateway calls it at startup.
func RequireSigning(p KeyProvider) error {
	if p == nil || p.PrivateKey() == nil {
		return fmt.Errorf("%w: private key required for signing", common.ErrNoKeyMaterial)
	}
	return nil
}

// RequireVerification fails unless p can verify.
func RequireVerification(p KeyProvider) error {
	if p == nil || p.PublicKey() == nil {
		return fmt.Errorf("%w: public key required for verification", common.ErrNoKeyMaterial)
	}
	return nil
}

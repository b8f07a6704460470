// Command keygen writes an RSA key pair for local runs: private.pem for the
// gateway and public.pem for both services.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/keys"
	"github.com/dmitrijs2005/gatekeeper/internal/filex"
)

func main() {
	dir := flag.String("dir", "keys", "output directory")
	bits := flag.Int("bits", keys.MinKeyBits, "RSA key size")
	force := flag.Bool("force", false, "overwrite existing key files")
	flag.Parse()

	out, err := filex.EnsureDir(*dir)
	if err != nil {
		log.Fatalf("%v", err)
	}

	pair, err := keys.Generate(*bits)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	privPEM, pubPEM, err := pair.EncodePEM()
	if err != nil {
		log.Fatalf("encode: %v", err)
	}

	if err := filex.WriteNew(filepath.Join(out, "private.pem"), privPEM, 0o600, *force); err != nil {
		log.Fatalf("%v", err)
	}
	if err := filex.WriteNew(filepath.Join(out, "public.pem"), pubPEM, 0o644, *force); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("wrote key pair to %s", out)
}

package tlsroots

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertsFound is returned for a CA bundle without any certificate.
var ErrNoCertsFound = errors.New("tlsroots: no certificates in CA bundle")

// systemRoots returns the host trust store, or an empty pool where the
// platform has none.
func systemRoots() *x509.CertPool {
	if pool, err := x509.SystemCertPool(); err == nil {
		return pool
	}
	return x509.NewCertPool()
}

// LoadCABundle reads the CAs neighbours must chain to. The file may hold
// several certificates; other PEM blocks such as keys are ignored.
func LoadCABundle(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if _, err := appendCerts(pool, data); err != nil {
		return nil, fmt.Errorf("tlsroots: %s: %w", path, err)
	}
	return pool, nil
}

// appendCerts adds every CERTIFICATE block of rest to pool and returns how
// many it added.
func appendCerts(pool *x509.CertPool, rest []byte) (int, error) {
	n := 0
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return n, fmt.Errorf("parse certificate %d: %w", n+1, err)
		}
		pool.AddCert(cert)
		n++
	}
	if n == 0 {
		return 0, ErrNoCertsFound
	}
	return n, nil
}

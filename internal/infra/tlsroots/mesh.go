package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
)

// Config names the PEM files of the mesh RPC plane.
type Config struct {
	// CertFile and KeyFile are this side's key pair.
	CertFile string
	KeyFile  string
	// CAFile holds the CAs peers must chain to. Empty means system roots.
	CAFile string
}

// Enabled reports whether a key pair is configured.
func (c Config) Enabled() bool {
	return c.CertFile != "" || c.KeyFile != ""
}

// Validate checks that the key pair is complete.
func (c Config) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("tlsroots: cert_file and key_file must be set together")
	}
	if c.CAFile != "" && c.CertFile == "" {
		return errors.New("tlsroots: ca_file requires cert_file and key_file")
	}
	return nil
}

func (c Config) roots() (*x509.CertPool, error) {
	if c.CAFile == "" {
		return systemRoots(), nil
	}
	return LoadCABundle(c.CAFile)
}

// Bundle is the TLS material of a node: a server config requiring client
// certificates and a client config presenting one, both backed by the
// same hot-reloaded key pair.
type Bundle struct {
	Server  *tls.Config
	Client  *tls.Config
	watcher *CertWatcher
}

// Load builds a Bundle and starts watching the key pair.
func Load(cfg Config, logger *slog.Logger) (*Bundle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	roots, err := cfg.roots()
	if err != nil {
		return nil, err
	}

	w, err := NewCertWatcher(cfg.CertFile, cfg.KeyFile, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}

	return &Bundle{
		Server: &tls.Config{
			GetCertificate: w.GetCertificate,
			ClientCAs:      roots,
			ClientAuth:     tls.RequireAndVerifyClientCert,
			MinVersion:     tls.VersionTLS12,
		},
		Client: &tls.Config{
			GetClientCertificate: w.GetClientCertificate,
			RootCAs:              roots,
			MinVersion:           tls.VersionTLS12,
		},
		watcher: w,
	}, nil
}

// Close stops the certificate watcher.
func (b *Bundle) Close() error {
	return b.watcher.Stop()
}

// ClientConfig builds a static client config for one-shot tools. The key
// pair is optional when the server does not demand one.
func ClientConfig(cfg Config) (*tls.Config, error) {
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.New("tlsroots: cert_file and key_file must be set together")
	}
	roots, err := cfg.roots()
	if err != nil {
		return nil, err
	}

	tc := &tls.Config{
		RootCAs:    roots,
		MinVersion: tls.VersionTLS12,
	}
	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yndnr/meshp2p-go/internal/infra/confloader"
)

// DefaultReloadDebounce coalesces the cert and key writes of one rotation.
const DefaultReloadDebounce = 500 * time.Millisecond

// CertWatcher holds a key pair and reloads it when either file changes.
// A failed reload keeps the previous pair.
type CertWatcher struct {
	certFile string
	keyFile  string
	cert     atomic.Pointer[tls.Certificate]
	logger   *slog.Logger
	debounce time.Duration
	files    *confloader.Watcher
}

// CertWatcherOption configures a CertWatcher.
type CertWatcherOption func(*CertWatcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) CertWatcherOption {
	return func(w *CertWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) CertWatcherOption {
	return func(w *CertWatcher) {
		w.debounce = d
	}
}

// NewCertWatcher loads the key pair. Call Start to follow file changes.
func NewCertWatcher(certFile, keyFile string, opts ...CertWatcherOption) (*CertWatcher, error) {
	w := &CertWatcher{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: DefaultReloadDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return w, nil
}

// Start watches both files in the background.
func (w *CertWatcher) Start() error {
	files, err := confloader.NewWatcher(
		confloader.WithWatcherLogger(w.logger),
		confloader.WithDebounce(w.debounce),
	)
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	for _, path := range []string{w.certFile, w.keyFile} {
		if err := files.Watch(path); err != nil {
			_ = files.Stop()
			return fmt.Errorf("tlsroots: watch %s: %w", path, err)
		}
	}

	files.OnChange(func(path string) {
		if err := w.reload(); err != nil {
			w.logger.Error("certificate reload failed",
				"error", err,
				"file", path)
		}
	})
	files.StartAsync()
	w.files = files

	w.logger.Info("certificate watcher started",
		"cert_file", w.certFile,
		"key_file", w.keyFile)
	return nil
}

// Stop stops watching. It is safe to call without Start.
func (w *CertWatcher) Stop() error {
	if w.files == nil {
		return nil
	}
	return w.files.Stop()
}

// GetCertificate implements tls.Config.GetCertificate.
func (w *CertWatcher) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return w.cert.Load(), nil
}

// GetClientCertificate implements tls.Config.GetClientCertificate.
func (w *CertWatcher) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return w.cert.Load(), nil
}

func (w *CertWatcher) reload() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	w.cert.Store(&cert)

	w.logger.Info("certificate loaded", "cert_file", w.certFile)
	return nil
}

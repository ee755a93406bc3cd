package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/caddyserver/certmagic"
)

// CertManager provisions certificates through certmagic for a fixed set of
// domains. On-demand issuance is refused for any other name.
type CertManager struct {
	domains []string
	logger  *slog.Logger
	cfg     *certmagic.Config
}

// NewCertManager creates a CertManager for domains. Outside production the
// Let's Encrypt staging CA is used.
func NewCertManager(domains []string, email string, production bool, logger *slog.Logger) *CertManager {
	certmagic.DefaultACME.Email = email
	certmagic.DefaultACME.Agreed = true
	if !production {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	cfg := certmagic.NewDefault()
	cm := &CertManager{domains: normalizeDomains(domains), logger: logger, cfg: cfg}

	cfg.OnDemand = &certmagic.OnDemandConfig{
		DecisionFunc: cm.allowCert,
	}

	return cm
}

// allowCert is the on-demand decision function; only configured domains
// may obtain a certificate.
func (cm *CertManager) allowCert(_ context.Context, name string) error {
	if !slices.Contains(cm.domains, strings.ToLower(name)) {
		return fmt.Errorf("unknown domain: %s", name)
	}
	return nil
}

// ListenAndServe obtains certificates for the configured domains, then serves
// handler over TLS on port 443.
func (cm *CertManager) ListenAndServe(ctx context.Context, handler http.Handler) error {
	cm.logger.Info("starting TLS server", "domains", cm.domains)

	// Pre-manage known domains so their certs are ready immediately
	if err := cm.cfg.ManageSync(ctx, cm.domains); err != nil {
		return fmt.Errorf("manage domains: %w", err)
	}

	ln, err := tls.Listen("tcp", fmt.Sprintf(":%d", certmagic.HTTPSPort), cm.cfg.TLSConfig())
	if err != nil {
		return fmt.Errorf("tls listen: %w", err)
	}

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	cm.logger.Info("serving HTTPS", "port", certmagic.HTTPSPort)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Domains returns the managed domain names.
func (cm *CertManager) Domains() []string {
	return slices.Clone(cm.domains)
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

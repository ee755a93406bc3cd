package tls

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomains(t *testing.T) {
	got := normalizeDomains([]string{" ZeroSight.example ", "", "zerosight.example", "api.example"})
	assert.Equal(t, []string{"zerosight.example", "api.example"}, got)
}

func TestAllowCert(t *testing.T) {
	cm := &CertManager{
		domains: normalizeDomains([]string{"zerosight.example"}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	assert.NoError(t, cm.allowCert(context.Background(), "zerosight.example"))
	assert.NoError(t, cm.allowCert(context.Background(), "ZeroSight.Example"))
	assert.Error(t, cm.allowCert(context.Background(), "evil.example"))
	assert.Equal(t, []string{"zerosight.example"}, cm.Domains())
}

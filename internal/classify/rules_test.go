package classify

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRules_Overlay(t *testing.T) {
	rs, err := LoadRules(strings.NewReader(`
brand_tokens: ["Acme", "  ", "globex"]
shorteners:
  - lnk.example
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"acme", "globex"}, rs.BrandTokens)
	assert.Equal(t, []string{"lnk.example"}, rs.Shorteners)
	assert.Equal(t, DefaultRules().EphemeralHosts, rs.EphemeralHosts)
	assert.Equal(t, DefaultRules().PhishingKeywords, rs.PhishingKeywords)
	assert.NotNil(t, rs.IPPattern)
	assert.NotNil(t, rs.PortPattern)
}

func TestLoadRules_EmptyDocumentKeepsDefaults(t *testing.T) {
	rs, err := LoadRules(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().BrandTokens, rs.BrandTokens)
}

func TestLoadRules_EmptyTable(t *testing.T) {
	_, err := LoadRules(strings.NewReader("phishing_keywords: []\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyRuleTable))
	assert.Contains(t, err.Error(), "phishing_keywords")
}

func TestLoadRules_Patterns(t *testing.T) {
	rs, err := LoadRules(strings.NewReader(`port_pattern: ':\d{4}'`))
	require.NoError(t, err)
	assert.True(t, rs.PortPattern.MatchString("x:8080"))
	assert.False(t, rs.PortPattern.MatchString("x:80"))

	_, err = LoadRules(strings.NewReader(`ip_pattern: '(['`))
	assert.Error(t, err)
}

func TestLoadRules_InvalidYAML(t *testing.T) {
	_, err := LoadRules(strings.NewReader("brand_tokens: {not: [a list"))
	assert.Error(t, err)
}

func TestLoadRulesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ephemeral_hosts: [tunnel.example]\n"), 0o600))

	rs, err := LoadRulesFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tunnel.example"}, rs.EphemeralHosts)

	got := NewEngine(rs).Classify("https://x.tunnel.example")
	assert.Contains(t, got.Reasons, "Hosted on ephemeral/third-party platform: tunnel.example")

	_, err = LoadRulesFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultRules_ReturnsFreshCopies(t *testing.T) {
	a := DefaultRules()
	a.Shorteners[0] = "changed"
	assert.Equal(t, "bit.ly", DefaultRules().Shorteners[0])
}

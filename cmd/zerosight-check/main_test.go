package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerosight/zerosight-go/internal/classify"
)

func init() {
	color.NoColor = true
}

func TestRun_TextOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"http://192.168.1.10/verify"}, nil, &out, &errOut)

	assert.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), "MEDIUM")
	assert.Contains(t, out.String(), " 55 ")
	assert.Contains(t, out.String(), "192.168.1.10")
	assert.Contains(t, out.String(), "- Contains phishing-related keyword: 'verify'")
	assert.Empty(t, errOut.String())
}

func TestRun_JSONAndHighExitCode(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-json", "https://bit.ly/abc123", "https://secure-login-verify.trycloudflare.com"}, nil, &out, &errOut)
	assert.Equal(t, exitHigh, code)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first classify.Result
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "bit.ly", first.Host)
	assert.Equal(t, 30, first.Score)
}

func TestRun_StdinLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nhttps://paypal.com\n\nhttps://bit.ly/x\n"), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out, errOut bytes.Buffer
	code := run([]string{"-json"}, f, &out, &errOut)
	assert.Equal(t, exitOK, code)
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 2)
}

func TestRun_RulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brand_tokens: [acme]\n"), 0o600))

	var out, errOut bytes.Buffer
	code := run([]string{"-json", "-rules", path, "https://acme.evil.com"}, nil, &out, &errOut)
	require.Equal(t, exitOK, code)

	var res classify.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 40, res.Score)
}

func TestRun_Errors(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, exitError, run([]string{"-rules", filepath.Join(t.TempDir(), "none.yaml"), "x"}, nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "error:")

	errOut.Reset()
	assert.Equal(t, exitError, run(nil, nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "usage:")

	errOut.Reset()
	assert.Equal(t, exitError, run([]string{"-bogus"}, nil, &out, &errOut))
}

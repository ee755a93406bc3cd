package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIndex(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderIndex(&buf, IndexData{Title: "ZeroSight", LatestLimit: 200}))

	out := buf.String()
	assert.Contains(t, out, "<title>ZeroSight</title>")
	assert.Contains(t, out, "(last 200)")
	assert.Contains(t, out, "/api/check_link")
}

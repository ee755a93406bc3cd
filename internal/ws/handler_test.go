package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerosight/zerosight-go/internal/classify"
	"github.com/zerosight/zerosight-go/internal/samples"
)

type wireMessage struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Level string `json:"level"`
	Score int    `json:"score"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg wireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestManager_HydrateAndBroadcast(t *testing.T) {
	store := samples.NewStore(10)
	store.Add(classify.Classify("https://bit.ly/abc123"))
	store.Add(classify.Classify("http://192.168.1.10/verify"))

	m := NewManager(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(m.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)

	first := readMessage(t, conn)
	assert.Equal(t, "result", first.Type)
	assert.Equal(t, "https://bit.ly/abc123", first.URL)
	second := readMessage(t, conn)
	assert.Equal(t, "MEDIUM", second.Level)
	assert.Equal(t, 55, second.Score)

	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	m.Broadcast(classify.Classify("https://paypal.security-check.net/login"))
	live := readMessage(t, conn)
	assert.Equal(t, "https://paypal.security-check.net/login", live.URL)
}

func TestManager_RegistersBeforeHydrating(t *testing.T) {
	store := samples.NewStore(10)
	store.Add(classify.Classify("https://bit.ly/abc123"))
	store.Add(classify.Classify("http://192.168.1.10/verify"))

	m := NewManager(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(m.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)

	// Once history starts arriving the client must already receive broadcasts.
	first := readMessage(t, conn)
	assert.Equal(t, "https://bit.ly/abc123", first.URL)
	require.Equal(t, 1, m.Count())

	m.Broadcast(classify.Classify("https://paypal.security-check.net/login"))

	second := readMessage(t, conn)
	assert.Equal(t, "http://192.168.1.10/verify", second.URL)
	live := readMessage(t, conn)
	assert.Equal(t, "https://paypal.security-check.net/login", live.URL)
}

func TestManager_DisconnectUnregisters(t *testing.T) {
	m := NewManager(samples.NewStore(10), slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(m.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return m.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_PingLoopStopsOnCancel(t *testing.T) {
	m := NewManager(samples.NewStore(10), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.PingLoop(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PingLoop did not return after cancel")
	}
}

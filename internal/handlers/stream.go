package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zerosight/zerosight-go/internal/classify"
	"github.com/zerosight/zerosight-go/internal/samples"
	"github.com/zerosight/zerosight-go/internal/sse"
)

const (
	streamHydrateCount = 20
	keepaliveInterval  = 30 * time.Second
)

// StreamHandler serves SSE streams of live classification results.
type StreamHandler struct {
	hub   *sse.Hub
	store *samples.Store
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(hub *sse.Hub, store *samples.Store) *StreamHandler {
	return &StreamHandler{hub: hub, store: store}
}

// HandleSSE handles GET /api/stream?level=HIGH
// It replays recent results matching the optional level filter, then streams
// live results with periodic keepalives.
func (sh *StreamHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	topic := sse.TopicAll
	if lvl := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("level"))); lvl != "" {
		switch classify.Level(lvl) {
		case classify.LevelSafe, classify.LevelMedium, classify.LevelHigh:
			topic = lvl
		default:
			jsonError(w, "invalid level", http.StatusBadRequest)
			return
		}
	}

	// Subscribe before hydrating so nothing published in between is lost.
	ch, cancel := sh.hub.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for _, res := range sh.store.Latest(streamHydrateCount) {
		if topic != sse.TopicAll && string(res.Level) != topic {
			continue
		}
		data, _ := json.Marshal(res)
		fmt.Fprintf(w, "event: result\ndata: %s\n\n", data)
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, event.Data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

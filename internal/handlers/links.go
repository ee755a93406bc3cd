package handlers

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/zerosight/zerosight-go/internal/classify"
	"github.com/zerosight/zerosight-go/internal/samples"
	"github.com/zerosight/zerosight-go/internal/sse"
	"github.com/zerosight/zerosight-go/internal/web"
)

const maxBodyBytes = 64 << 10

// Classifier scores a URL.
type Classifier interface {
	Classify(rawURL string) classify.Result
}

// Broadcaster pushes a fresh result to live clients.
type Broadcaster interface {
	Broadcast(r classify.Result)
}

// LinkHandler serves the link-check API and the dashboard page.
type LinkHandler struct {
	engine      Classifier
	store       *samples.Store
	hub         *sse.Hub
	broadcaster Broadcaster
	latestLimit int
	logger      *slog.Logger
}

// NewLinkHandler creates a new LinkHandler. broadcaster may be nil.
func NewLinkHandler(
	engine Classifier,
	store *samples.Store,
	hub *sse.Hub,
	broadcaster Broadcaster,
	latestLimit int,
	logger *slog.Logger,
) *LinkHandler {
	return &LinkHandler{
		engine:      engine,
		store:       store,
		hub:         hub,
		broadcaster: broadcaster,
		latestLimit: latestLimit,
		logger:      logger,
	}
}

// CheckLink handles POST /api/check_link: classifies a URL and records it.
func (lh *LinkHandler) CheckLink(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(readURLField(w, r))
	if raw == "" {
		lh.logger.Warn("check_link rejected", "reason", "missing url", "remote", r.RemoteAddr)
		jsonError(w, "missing url", http.StatusBadRequest)
		return
	}

	result := lh.engine.Classify(raw)
	lh.logger.Debug("link classified",
		"host", result.Host,
		"score", result.Score,
		"level", result.Level,
	)

	lh.store.Add(result)
	lh.publish(result)

	writeJSON(w, http.StatusOK, result)
}

// Latest handles GET /api/latest: the most recent results, oldest first.
func (lh *LinkHandler) Latest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"samples": lh.store.Latest(lh.latestLimit),
	})
}

// Ping handles GET /api/ping: liveness probe.
func (lh *LinkHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"ts": time.Now().Unix(),
	})
}

// Index handles GET /: the dashboard page.
func (lh *LinkHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.RenderIndex(w, web.IndexData{Title: "ZeroSight", LatestLimit: lh.latestLimit}); err != nil {
		lh.logger.Error("render index failed", "err", err)
	}
}

func (lh *LinkHandler) publish(result classify.Result) {
	if lh.broadcaster != nil {
		lh.broadcaster.Broadcast(result)
	}
	if lh.hub == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		lh.logger.Error("marshal result for stream", "err", err)
		return
	}
	ev := sse.NewEvent("result", data)
	lh.hub.Publish(sse.TopicAll, ev)
	lh.hub.Publish(string(result.Level), ev)
}

// readURLField pulls "url" from a form or JSON body. Any decoding problem
// yields "" so the caller rejects the request as missing a url.
func readURLField(w http.ResponseWriter, r *http.Request) string {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return r.FormValue("url")
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return req.URL
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

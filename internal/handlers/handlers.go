package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/service"
	"github.com/Billy-Davies-2/seal-tracker/internal/source"
	"github.com/Billy-Davies-2/seal-tracker/internal/web"
)

// SealDataCacheControl lets a CDN serve the feed for an hour and a stale
// copy for a day while it revalidates
const SealDataCacheControl = "s-maxage=3600, stale-while-revalidate=86400"

var sseKeepalive = 30 * time.Second

// APIHandlers contains all API handler methods
type APIHandlers struct {
	svc      *service.SealService
	defaults models.ViewState
}

// NewAPIHandlers creates a new API handlers instance. defaults is the view
// used for any query parameter a request leaves out.
func NewAPIHandlers(svc *service.SealService, defaults models.ViewState) *APIHandlers {
	return &APIHandlers{
		svc:      svc,
		defaults: defaults,
	}
}

// ListPlayers runs one table view
func (h *APIHandlers) ListPlayers(w http.ResponseWriter, r *http.Request) {
	vs, err := models.ParseViewQuery(r.URL.Query(), h.defaults)
	if err != nil {
		logger.Warn("Invalid player query", "query", r.URL.RawQuery, "error", err)
		badRequest(w, err)
		return
	}

	result, err := h.svc.Query(vs)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetPlayer returns one player by slug
func (h *APIHandlers) GetPlayer(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Player(chi.URLParam(r, "slug"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetPlayerHistory returns archived prices for one player
func (h *APIHandlers) GetPlayerHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			badRequest(w, fmt.Errorf("limit must be a positive integer, got %q", s))
			return
		}
		limit = n
	}

	slug := chi.URLParam(r, "slug")
	points, err := h.svc.PriceHistory(r.Context(), slug, limit)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slug":   slug,
		"points": points,
	})
}

// PlayerChart renders a player's archived prices as an interactive chart
func (h *APIHandlers) PlayerChart(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	rec, err := h.svc.Player(slug)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	points, err := h.svc.PriceHistory(r.Context(), slug, 0)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.RenderPriceChart(w, rec.Name, points, web.DefaultChartConfig()); err != nil {
		logger.Error("Failed to render price chart", "slug", slug, "error", err)
	}
}

// GetSummary describes the current snapshot
func (h *APIHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary()
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// SealDataSchema serves the JSON schema both feed formats conform to
func (h *APIHandlers) SealDataSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", SealDataCacheControl)
	writeJSON(w, http.StatusOK, source.FeedSchema())
}

// SealData serves the current snapshot in the feed format, verbose by
// default or compact with ?format=compact
func (h *APIHandlers) SealData(w http.ResponseWriter, r *http.Request) {
	format, err := source.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, err)
		return
	}

	ds := h.svc.Current()
	if ds == nil {
		logger.Error("Seal data requested before the first load")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch data"})
		return
	}

	raw, err := source.ToRaw(ds, format)
	if err != nil {
		logger.Error("Failed to encode seal data", "format", format, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch data"})
		return
	}

	w.Header().Set("Cache-Control", SealDataCacheControl)
	writeJSON(w, http.StatusOK, raw)
}

// Refresh fetches a new snapshot now
func (h *APIHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	logger.Info("Manual refresh requested", "remote", r.RemoteAddr)
	result, err := h.svc.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, source.ErrSourceUnavailable) {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Index renders the HTML table for the view in the query string
func (h *APIHandlers) Index(w http.ResponseWriter, r *http.Request) {
	vs, err := models.ParseViewQuery(r.URL.Query(), h.defaults)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.Query(vs)
	if err != nil {
		if errors.Is(err, service.ErrNotLoaded) {
			http.Error(w, "Seal data is loading, try again shortly", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sum, err := h.svc.Summary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.Render(w, web.NewPageData(result, sum)); err != nil {
		logger.Error("Failed to render table page", "error", err)
	}
}

// EventsSSE provides Server-Sent Events for refresh notifications
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	bus := h.svc.Bus()
	if bus == nil {
		serviceUnavailable(w, errors.New("events are disabled"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan := bus.Subscribe()
	defer bus.Unsubscribe(eventChan)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flush()

	keepalive := time.NewTicker(sseKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to marshal event", "type", event.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush()
		}
	}
}

// Health reports process liveness and whether data is loaded
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"ready":  h.svc.Ready(),
		"time":   time.Now().UTC(),
	}
	if sum, err := h.svc.Summary(); err == nil {
		status["players"] = sum.Total
		status["stale"] = sum.Stale
		status["lastRefresh"] = sum.LastRefresh
		if sum.LastError != "" {
			status["lastError"] = sum.LastError
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// Liveness is the Kubernetes liveness probe
func (h *APIHandlers) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Readiness is the Kubernetes readiness probe; ready once a snapshot is loaded
func (h *APIHandlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (h *APIHandlers) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidView):
		badRequest(w, err)
	case errors.Is(err, service.ErrPlayerNotFound):
		notFound(w, err)
	case errors.Is(err, service.ErrNotLoaded), errors.Is(err, service.ErrArchiveDisabled):
		serviceUnavailable(w, err)
	default:
		logger.Error("Request failed", "error", err)
		internalError(w, err)
	}
}

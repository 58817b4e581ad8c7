package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/abrezinsky/cartepays/internal/render"
	"github.com/abrezinsky/cartepays/internal/services"
	"github.com/abrezinsky/cartepays/internal/zoom"
)

// IndexPageData holds the data passed to the map page
type IndexPageData struct {
	Title      string
	SVG        template.HTML
	Shapes     int
	DurationMs int64
	Error      string
}

// handleIndex renders the page with the map inlined
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := IndexPageData{Title: "Carte des pays", DurationMs: zoom.DefaultDuration.Milliseconds()}

	m, err := h.Maps.Map(r.Context())
	if err != nil {
		apiErr := ToAPIError(err)
		h.Log.Warn("Map page rendered without map", "error", err)
		data.Error = apiErr.Message
		w.WriteHeader(apiErr.Status)
		h.templates.Index.Execute(w, data)
		return
	}

	var svg bytes.Buffer
	if err := m.WriteSVG(&svg); err != nil {
		h.respondError(w, err)
		return
	}
	// WriteSVG escapes every attribute it writes.
	data.SVG = template.HTML(svg.String())
	data.Shapes = len(m.Shapes)
	h.templates.Index.Execute(w, data)
}

// handleMapSVG serves the mounted map as a standalone SVG document
func (h *Handlers) handleMapSVG(w http.ResponseWriter, r *http.Request) {
	m, err := h.Maps.Map(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Last-Modified", m.MountedAt.UTC().Format(http.TimeFormat))
	if err := m.WriteSVG(w); err != nil {
		h.Log.Error("Failed to write SVG", "error", err)
	}
}

// handleGetMap returns shapes, fill rules, listeners and zoom behavior
func (h *Handlers) handleGetMap(w http.ResponseWriter, r *http.Request) {
	m, err := h.Maps.Map(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, m)
}

// handleGetTiers returns the stored tier configuration
func (h *Handlers) handleGetTiers(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Tiers.GetTierConfig(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, cfg)
}

// handleGetShareLink returns the public page URL
func (h *Handlers) handleGetShareLink(w http.ResponseWriter, r *http.Request) {
	url, err := h.Share.PageURL(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, ShareResponse{URL: url})
}

// handleGetShareQR serves a PNG QR code of the page URL
func (h *Handlers) handleGetShareQR(w http.ResponseWriter, r *http.Request) {
	size, err := parseIntQuery(r, "size", services.DefaultQRSize)
	if err != nil {
		h.respondError(w, err)
		return
	}

	png, err := h.Share.QRCode(r.Context(), size)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// handleHealth reports readiness without triggering a geometry fetch
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok", Source: h.Maps.SourceURL()}

	var m *render.Map
	m, resp.Mounted = h.Maps.Mounted()
	if resp.Mounted {
		resp.Shapes = len(m.Shapes)
	}
	if h.Hub != nil {
		resp.Viewers = h.Hub.ClientCount()
	}

	status := http.StatusOK
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, status, resp)
}

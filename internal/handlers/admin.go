package handlers

import (
	"net/http"

	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/services"
)

// AdminPageData holds the data passed to the admin template
type AdminPageData struct {
	Title string
}

func (h *Handlers) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	h.templates.Admin.Execute(w, AdminPageData{Title: "Administration de la carte"})
}

// handleUpdateTiers replaces the tier configuration. A tier/color mismatch
// is rejected before anything is stored.
func (h *Handlers) handleUpdateTiers(w http.ResponseWriter, r *http.Request) {
	var cfg models.TierConfig
	if err := decodeJSON(r, &cfg); err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.Tiers.UpdateTierConfig(r.Context(), cfg); err != nil {
		h.respondError(w, err)
		return
	}
	respondSuccess(w, "Tier configuration updated")
}

// handleRefreshGeometry forgets the downloaded geometry so the next page
// load fetches the dataset again
func (h *Handlers) handleRefreshGeometry(w http.ResponseWriter, r *http.Request) {
	if err := h.Maps.Refresh(r.Context()); err != nil {
		h.respondError(w, err)
		return
	}
	respondSuccess(w, "Geometry will be downloaded again")
}

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	baseURL, err := h.Settings.GetBaseURL(ctx)
	if err != nil {
		h.respondError(w, err)
		return
	}
	geoJSONURL, _ := h.Settings.GetGeoJSONURL(ctx)
	policy, _ := h.Settings.GetMatchPolicy(ctx)
	fill, _ := h.Settings.GetDefaultFill(ctx)

	respondOK(w, SettingsResponse{
		BaseURL:     baseURL,
		GeoJSONURL:  geoJSONURL,
		MatchPolicy: policy.String(),
		DefaultFill: fill,
	})
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	settings := services.Settings{
		BaseURL:     req.BaseURL,
		GeoJSONURL:  req.GeoJSONURL,
		MatchPolicy: req.MatchPolicy,
		DefaultFill: req.DefaultFill,
	}
	if err := h.Settings.UpdateSettings(r.Context(), settings); err != nil {
		h.respondError(w, err)
		return
	}

	respondSuccess(w, "Settings updated")
}

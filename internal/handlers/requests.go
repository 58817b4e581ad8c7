package handlers

// SettingsUpdateRequest represents a request to update settings. Omitted
// fields are left unchanged.
type SettingsUpdateRequest struct {
	BaseURL     *string `json:"base_url"`
	GeoJSONURL  *string `json:"geojson_url"`
	MatchPolicy *string `json:"match_policy"`
	DefaultFill *string `json:"default_fill"`
}

// LoginRequest is the JSON login body used by scripted hosts
type LoginRequest struct {
	Password string `json:"password"`
}

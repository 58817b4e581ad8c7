package handlers

// SettingsResponse is the response for settings
type SettingsResponse struct {
	BaseURL     string `json:"base_url"`
	GeoJSONURL  string `json:"geojson_url"`
	MatchPolicy string `json:"match_policy"`
	DefaultFill string `json:"default_fill"`
}

// LoginResponse carries the bearer token for JSON logins
type LoginResponse struct {
	Token string `json:"token"`
}

// ShareResponse is the public page link
type ShareResponse struct {
	URL string `json:"url"`
}

// HealthResponse reports liveness and map readiness
type HealthResponse struct {
	Status   string `json:"status"`
	Mounted  bool   `json:"mounted"`
	Shapes   int    `json:"shapes"`
	Viewers  int    `json:"viewers"`
	Source   string `json:"source"`
	Database string `json:"database"`
}

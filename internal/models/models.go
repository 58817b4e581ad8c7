package models

// CountryRecord identifies a country in a tier list. The host supplies the
// name under the "nom" key.
type CountryRecord struct {
	Name string `json:"nom"`
	Code string `json:"code"`
}

// TierList is an ordered list of countries sharing a rank
type TierList []CountryRecord

// TierConfig is the host-supplied map configuration: ranked tier lists and
// their parallel colors.
type TierConfig struct {
	Tiers  []TierList `json:"listesPaysCarte"`
	Colors []string   `json:"couleurs"`
}

// PointerPosition is a viewport coordinate from a pointer-move event
type PointerPosition struct {
	X float64 `json:"pageX"`
	Y float64 `json:"pageY"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

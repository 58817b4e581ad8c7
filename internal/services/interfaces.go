package services

import (
	"context"
	"io"

	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/render"
	"github.com/abrezinsky/cartepays/internal/tiers"
)

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	GetGeoJSONURL(ctx context.Context) (string, error)
	GetMatchPolicy(ctx context.Context) (tiers.MatchPolicy, error)
	GetDefaultFill(ctx context.Context) (string, error)
	AllSettings(ctx context.Context) (map[string]string, error)
	UpdateSettings(ctx context.Context, settings Settings) error
	SetReloader(r Reloader)
}

// TierServicer defines the interface for tier configuration operations
type TierServicer interface {
	GetTierConfig(ctx context.Context) (models.TierConfig, error)
	UpdateTierConfig(ctx context.Context, cfg models.TierConfig) error
	SeedDefaults(ctx context.Context) (bool, error)
	SeedFrom(ctx context.Context, r io.Reader) (bool, error)
	SetReloader(r Reloader)
}

// MapServicer defines the interface for the mounted map
type MapServicer interface {
	Map(ctx context.Context) (*render.Map, error)
	Mounted() (*render.Map, bool)
	Reload(ctx context.Context) error
	Refresh(ctx context.Context) error
	SourceURL() string
	SetBroadcaster(b Broadcaster)
}

// ShareServicer defines the interface for share codes
type ShareServicer interface {
	PageURL(ctx context.Context) (string, error)
	QRCode(ctx context.Context, size int) ([]byte, error)
}

// Reloader rebuilds the map after its configuration changed
type Reloader interface {
	Reload(ctx context.Context) error
}

// Broadcaster notifies connected viewers that the map changed
type Broadcaster interface {
	BroadcastMapUpdated()
}

// Ensure concrete types implement interfaces
var (
	_ SettingsServicer = (*SettingsService)(nil)
	_ TierServicer     = (*TierService)(nil)
	_ MapServicer      = (*MapService)(nil)
	_ ShareServicer    = (*ShareService)(nil)
	_ Reloader         = (*MapService)(nil)
)

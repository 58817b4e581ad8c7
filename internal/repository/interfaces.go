package repository

import (
	"context"

	"github.com/abrezinsky/cartepays/internal/models"
)

// TierRepository stores the ranked tier lists and their colors
type TierRepository interface {
	GetTierConfig(ctx context.Context) (models.TierConfig, error)
	ReplaceTierConfig(ctx context.Context, cfg models.TierConfig) error
	HasTierConfig(ctx context.Context) (bool, error)
	CountCountries(ctx context.Context) (int, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	SetSettings(ctx context.Context, settings map[string]string) error
	AllSettings(ctx context.Context) (map[string]string, error)
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	TierRepository
	SettingsRepository
	Ping(ctx context.Context) error
}

var _ FullRepository = (*Repository)(nil)

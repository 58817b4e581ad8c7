package mock

import (
	"context"

	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.ReplaceTierConfigError = errors.New("database error")
//	svc := services.NewTierService(log, mockRepo)
type Repository struct {
	repository.FullRepository

	// ===== Tier Errors =====
	GetTierConfigError     error
	ReplaceTierConfigError error
	HasTierConfigError     error
	CountCountriesError    error

	// ===== Settings Errors =====
	GetSettingError  error
	SetSettingError  error
	SetSettingsError error
	AllSettingsError error

	PingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{FullRepository: real}
}

// ===== Tier Methods =====

func (m *Repository) GetTierConfig(ctx context.Context) (models.TierConfig, error) {
	if m.GetTierConfigError != nil {
		return models.TierConfig{}, m.GetTierConfigError
	}
	return m.FullRepository.GetTierConfig(ctx)
}

func (m *Repository) ReplaceTierConfig(ctx context.Context, cfg models.TierConfig) error {
	if m.ReplaceTierConfigError != nil {
		return m.ReplaceTierConfigError
	}
	return m.FullRepository.ReplaceTierConfig(ctx, cfg)
}

func (m *Repository) HasTierConfig(ctx context.Context) (bool, error) {
	if m.HasTierConfigError != nil {
		return false, m.HasTierConfigError
	}
	return m.FullRepository.HasTierConfig(ctx)
}

func (m *Repository) CountCountries(ctx context.Context) (int, error) {
	if m.CountCountriesError != nil {
		return 0, m.CountCountriesError
	}
	return m.FullRepository.CountCountries(ctx)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) SetSettings(ctx context.Context, settings map[string]string) error {
	if m.SetSettingsError != nil {
		return m.SetSettingsError
	}
	return m.FullRepository.SetSettings(ctx, settings)
}

func (m *Repository) AllSettings(ctx context.Context) (map[string]string, error) {
	if m.AllSettingsError != nil {
		return nil, m.AllSettingsError
	}
	return m.FullRepository.AllSettings(ctx)
}

func (m *Repository) Ping(ctx context.Context) error {
	if m.PingError != nil {
		return m.PingError
	}
	return m.FullRepository.Ping(ctx)
}

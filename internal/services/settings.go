package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/repository"
	"github.com/abrezinsky/cartepays/internal/tiers"
)

// Settings holds optional settings updates; nil fields are left unchanged
type Settings struct {
	BaseURL     *string `json:"base_url,omitempty"`
	GeoJSONURL  *string `json:"geojson_url,omitempty"`
	MatchPolicy *string `json:"match_policy,omitempty"`
	DefaultFill *string `json:"default_fill,omitempty"`
}

// SettingsService handles settings-related business logic
type SettingsService struct {
	log        logger.Logger
	repo       repository.SettingsRepository
	defaultURL string
	reloader   Reloader
}

// NewSettingsService creates a new SettingsService. defaultGeoJSONURL is
// used until a URL is stored.
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository, defaultGeoJSONURL string) *SettingsService {
	return &SettingsService{log: log, repo: repo, defaultURL: defaultGeoJSONURL}
}

// SetReloader sets what to rebuild when map settings change
func (s *SettingsService) SetReloader(r Reloader) {
	s.reloader = r
}

// getOptional reads a setting and maps a missing key to fallback
func (s *SettingsService) getOptional(ctx context.Context, key, fallback string) (string, error) {
	value, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		if err == repository.ErrNotFound {
			return fallback, nil
		}
		return "", err
	}
	if value == "" {
		return fallback, nil
	}
	return value, nil
}

// GetBaseURL returns the public page URL
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	return s.getOptional(ctx, repository.SettingBaseURL, "")
}

// SetBaseURL saves the public page URL
func (s *SettingsService) SetBaseURL(ctx context.Context, u string) error {
	return s.repo.SetSetting(ctx, repository.SettingBaseURL, strings.TrimSuffix(u, "/"))
}

// GetGeoJSONURL returns the stored geometry URL or the startup default
func (s *SettingsService) GetGeoJSONURL(ctx context.Context) (string, error) {
	return s.getOptional(ctx, repository.SettingGeoJSONURL, s.defaultURL)
}

// GetMatchPolicy returns how features are matched to tier entries
func (s *SettingsService) GetMatchPolicy(ctx context.Context) (tiers.MatchPolicy, error) {
	value, err := s.getOptional(ctx, repository.SettingMatchPolicy, "")
	if err != nil {
		return tiers.MatchCode, err
	}
	policy, err := tiers.ParseMatchPolicy(value)
	if err != nil {
		s.log.Warn("Stored match policy is invalid, using code", "value", value)
		return tiers.MatchCode, nil
	}
	return policy, nil
}

// GetDefaultFill returns the fill for countries outside every tier
func (s *SettingsService) GetDefaultFill(ctx context.Context) (string, error) {
	return s.getOptional(ctx, repository.SettingDefaultFill, tiers.DefaultFill)
}

// AllSettings returns every stored setting
func (s *SettingsService) AllSettings(ctx context.Context) (map[string]string, error) {
	all, err := s.repo.AllSettings(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := all[repository.SettingGeoJSONURL]; !ok && s.defaultURL != "" {
		all[repository.SettingGeoJSONURL] = s.defaultURL
	}
	return all, nil
}

// UpdateSettings validates and saves the non-nil fields. The map is
// rebuilt when a field it depends on changed.
func (s *SettingsService) UpdateSettings(ctx context.Context, settings Settings) error {
	updates := map[string]string{}

	if settings.BaseURL != nil {
		if *settings.BaseURL != "" {
			if err := validateHTTPURL(*settings.BaseURL); err != nil {
				return errors.Validationf("base_url: %v", err)
			}
		}
		updates[repository.SettingBaseURL] = strings.TrimSuffix(*settings.BaseURL, "/")
	}
	if settings.GeoJSONURL != nil {
		if err := validateHTTPURL(*settings.GeoJSONURL); err != nil {
			return errors.Validationf("geojson_url: %v", err)
		}
		updates[repository.SettingGeoJSONURL] = *settings.GeoJSONURL
	}
	if settings.MatchPolicy != nil {
		policy, err := tiers.ParseMatchPolicy(*settings.MatchPolicy)
		if err != nil {
			return err
		}
		updates[repository.SettingMatchPolicy] = policy.String()
	}
	if settings.DefaultFill != nil {
		fill := strings.TrimSpace(*settings.DefaultFill)
		if fill == "" {
			return errors.Validation("default_fill must not be empty")
		}
		updates[repository.SettingDefaultFill] = fill
	}

	if len(updates) > 0 {
		if err := s.repo.SetSettings(ctx, updates); err != nil {
			return err
		}
	}

	_, urlChanged := updates[repository.SettingGeoJSONURL]
	_, policyChanged := updates[repository.SettingMatchPolicy]
	_, fillChanged := updates[repository.SettingDefaultFill]
	if (urlChanged || policyChanged || fillChanged) && s.reloader != nil {
		if err := s.reloader.Reload(ctx); err != nil {
			return err
		}
	}
	s.log.Info("Settings updated", "keys", len(updates))
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.InvalidInputf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.InvalidInput("missing host")
	}
	return nil
}

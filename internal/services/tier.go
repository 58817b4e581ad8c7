package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/repository"
	"github.com/abrezinsky/cartepays/internal/tiers"
)

// DefaultTierConfig is seeded into an empty store
func DefaultTierConfig() models.TierConfig {
	return models.TierConfig{
		Tiers: []models.TierList{
			{{Name: "France", Code: "FR"}},
			{{Name: "Bresil", Code: "BR"}},
			{{Name: "Guinée", Code: "GN"}},
		},
		Colors: []string{"#90E3CB", "#FF9C9C", "#AABAC6"},
	}
}

// TierService handles the stored tier configuration
type TierService struct {
	log      logger.Logger
	repo     repository.TierRepository
	reloader Reloader
}

// NewTierService creates a new TierService
func NewTierService(log logger.Logger, repo repository.TierRepository) *TierService {
	return &TierService{log: log, repo: repo}
}

// SetReloader sets what to rebuild after the tiers change
func (s *TierService) SetReloader(r Reloader) {
	s.reloader = r
}

// GetTierConfig returns the stored configuration
func (s *TierService) GetTierConfig(ctx context.Context) (models.TierConfig, error) {
	return s.repo.GetTierConfig(ctx)
}

// UpdateTierConfig validates cfg, replaces the stored configuration and
// rebuilds the map. Nothing is written when validation fails.
func (s *TierService) UpdateTierConfig(ctx context.Context, cfg models.TierConfig) error {
	cfg, err := normalizeTierConfig(cfg)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceTierConfig(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to save tier configuration")
	}
	s.log.Info("Tier configuration updated", "tiers", len(cfg.Tiers))

	if s.reloader != nil {
		return s.reloader.Reload(ctx)
	}
	return nil
}

// SeedDefaults stores DefaultTierConfig when nothing was saved yet
func (s *TierService) SeedDefaults(ctx context.Context) (bool, error) {
	return s.seed(ctx, DefaultTierConfig())
}

// SeedFrom decodes a {"listesPaysCarte": ..., "couleurs": ...} document and
// stores it when nothing was saved yet
func (s *TierService) SeedFrom(ctx context.Context, r io.Reader) (bool, error) {
	cfg, err := DecodeTierConfig(r)
	if err != nil {
		return false, err
	}
	return s.seed(ctx, cfg)
}

func (s *TierService) seed(ctx context.Context, cfg models.TierConfig) (bool, error) {
	has, err := s.repo.HasTierConfig(ctx)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}

	cfg, err = normalizeTierConfig(cfg)
	if err != nil {
		return false, err
	}
	if err := s.repo.ReplaceTierConfig(ctx, cfg); err != nil {
		return false, err
	}
	s.log.Info("Tier configuration seeded", "tiers", len(cfg.Tiers))
	return true, nil
}

// DecodeTierConfig reads a tier configuration document
func DecodeTierConfig(r io.Reader) (models.TierConfig, error) {
	var cfg models.TierConfig
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return models.TierConfig{}, errors.InvalidInputf("invalid tier configuration: %v", err)
	}
	return cfg, nil
}

// normalizeTierConfig trims entries and checks the tier/color invariant
func normalizeTierConfig(cfg models.TierConfig) (models.TierConfig, error) {
	if err := tiers.Validate(cfg.Tiers, cfg.Colors); err != nil {
		return models.TierConfig{}, err
	}

	out := models.TierConfig{
		Tiers:  make([]models.TierList, len(cfg.Tiers)),
		Colors: make([]string, len(cfg.Colors)),
	}
	for i, color := range cfg.Colors {
		out.Colors[i] = strings.TrimSpace(color)
	}
	for rank, list := range cfg.Tiers {
		out.Tiers[rank] = make(models.TierList, 0, len(list))
		for i, rec := range list {
			rec.Code = strings.TrimSpace(rec.Code)
			rec.Name = strings.TrimSpace(rec.Name)
			if rec.Code == "" {
				return models.TierConfig{}, errors.Validationf("tier %d entry %d has no code", rank, i)
			}
			if strings.Contains(rec.Code, "_") {
				return models.TierConfig{}, errors.Validationf("tier %d entry %d: code %q must not contain '_'", rank, i, rec.Code)
			}
			out.Tiers[rank] = append(out.Tiers[rank], rec)
		}
	}
	return out, nil
}

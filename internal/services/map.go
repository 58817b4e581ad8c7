package services

import (
	"context"
	"sync"

	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/render"
	"github.com/abrezinsky/cartepays/pkg/geosource"
)

// SourceFactory creates a geometry source for a URL
type SourceFactory func(url string) geosource.Source

// View is the drawing area shared by every mount
type View struct {
	Width       float64
	Height      float64
	Margin      float64
	ScaleExtent [2]float64
}

// MapService owns the current orchestrator and swaps it when the tiers or
// map settings change. Geometry is cached per URL so a tier change does not
// download it again.
type MapService struct {
	log       logger.Logger
	tiers     TierServicer
	settings  SettingsServicer
	newSource SourceFactory
	view      View

	// loadMu serializes rebuilds
	loadMu sync.Mutex

	mu          sync.RWMutex
	orch        *render.Orchestrator
	source      *geosource.CachedSource
	sourceURL   string
	broadcaster Broadcaster
}

// NewMapService creates a new MapService
func NewMapService(log logger.Logger, tiers TierServicer, settings SettingsServicer, newSource SourceFactory, view View) *MapService {
	return &MapService{
		log:       log,
		tiers:     tiers,
		settings:  settings,
		newSource: newSource,
		view:      view,
	}
}

// SetBroadcaster sets who is told about map rebuilds
func (s *MapService) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	s.broadcaster = b
	s.mu.Unlock()
}

// Reload rebuilds the orchestrator from the stored configuration. The new
// map is mounted lazily by the next Map call.
func (s *MapService) Reload(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.reload(ctx)
}

// Refresh drops the cached geometry and rebuilds, so the next mount
// downloads the dataset again
func (s *MapService) Refresh(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.RLock()
	source := s.source
	s.mu.RUnlock()
	if source != nil {
		source.Invalidate()
	}
	return s.reload(ctx)
}

// reload must be called with loadMu held
func (s *MapService) reload(ctx context.Context) error {
	cfg, err := s.tiers.GetTierConfig(ctx)
	if err != nil {
		return err
	}
	url, err := s.settings.GetGeoJSONURL(ctx)
	if err != nil {
		return err
	}
	policy, err := s.settings.GetMatchPolicy(ctx)
	if err != nil {
		return err
	}
	fill, err := s.settings.GetDefaultFill(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	source := s.source
	var stale *geosource.CachedSource
	if source == nil || s.sourceURL != url {
		stale = source
		source = geosource.NewCachedSource(s.newSource(url))
	}

	orch, err := render.New(source, render.Config{
		Tiers:       cfg.Tiers,
		Colors:      cfg.Colors,
		Policy:      policy,
		DefaultFill: fill,
		Width:       s.view.Width,
		Height:      s.view.Height,
		Margin:      s.view.Margin,
		ScaleExtent: s.view.ScaleExtent,
	}, render.WithLogger(s.log))
	if err != nil {
		s.mu.Unlock()
		return err
	}

	hadMap := false
	if s.orch != nil {
		_, hadMap = s.orch.Mounted()
	}
	s.orch = orch
	s.source = source
	s.sourceURL = url
	broadcaster := s.broadcaster
	s.mu.Unlock()

	if stale != nil {
		stale.Invalidate()
	}
	s.log.Info("Map configuration loaded", "url", url, "tiers", len(cfg.Tiers), "policy", policy.String())
	if hadMap && broadcaster != nil {
		broadcaster.BroadcastMapUpdated()
	}
	return nil
}

// current returns the orchestrator, building it on first use. Concurrent
// first callers build it once.
func (s *MapService) current(ctx context.Context) (*render.Orchestrator, error) {
	s.mu.RLock()
	orch := s.orch
	s.mu.RUnlock()
	if orch != nil {
		return orch, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.mu.RLock()
	orch = s.orch
	s.mu.RUnlock()
	if orch != nil {
		return orch, nil
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orch, nil
}

// Map mounts the current configuration, fetching geometry on first use
func (s *MapService) Map(ctx context.Context) (*render.Map, error) {
	orch, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return orch.Mount(ctx)
}

// Mounted returns the current map without triggering a fetch
func (s *MapService) Mounted() (*render.Map, bool) {
	s.mu.RLock()
	orch := s.orch
	s.mu.RUnlock()
	if orch == nil {
		return nil, false
	}
	return orch.Mounted()
}

// SourceURL returns the geometry URL of the current configuration
func (s *MapService) SourceURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceURL
}

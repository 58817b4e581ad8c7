package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/services"
	"github.com/abrezinsky/cartepays/internal/testutil"
	"github.com/abrezinsky/cartepays/pkg/geosource"
)

type countingBroadcaster struct {
	mu    sync.Mutex
	calls int
}

func (b *countingBroadcaster) BroadcastMapUpdated() {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
}

func (b *countingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type mapFixture struct {
	settings *services.SettingsService
	tiers    *services.TierService
	maps     *services.MapService
	sources  map[string]*geosource.MockSource
}

func newMapFixture(t *testing.T, opts ...geosource.MockOption) *mapFixture {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	f := &mapFixture{sources: map[string]*geosource.MockSource{}}
	f.settings = services.NewSettingsService(logger.Nop{}, repo, defaultURL)
	f.tiers = services.NewTierService(logger.Nop{}, repo)
	f.maps = services.NewMapService(logger.Nop{}, f.tiers, f.settings, func(url string) geosource.Source {
		src := geosource.NewMockSource(opts...)
		f.sources[url] = src
		return src
	}, services.View{Width: 960, Height: 500})
	f.tiers.SetReloader(f.maps)
	f.settings.SetReloader(f.maps)

	if _, err := f.tiers.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	return f
}

func TestMapService_LazyMount(t *testing.T) {
	f := newMapFixture(t)

	if _, ok := f.maps.Mounted(); ok {
		t.Fatal("expected nothing mounted before first use")
	}

	m, err := f.maps.Map(context.Background())
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if len(m.Shapes) != 4 {
		t.Errorf("expected 4 shapes, got %d", len(m.Shapes))
	}
	if !m.Selectable("FR_France") {
		t.Error("expected FR_France to be selectable")
	}
	if m.Selectable("DE") {
		t.Error("expected DE to be unselectable")
	}
	if f.maps.SourceURL() != defaultURL {
		t.Errorf("unexpected source URL %q", f.maps.SourceURL())
	}

	if _, ok := f.maps.Mounted(); !ok {
		t.Error("expected map to be mounted")
	}
	if _, err := f.maps.Map(context.Background()); err != nil {
		t.Fatalf("second Map failed: %v", err)
	}
	if calls := f.sources[defaultURL].Calls(); calls != 1 {
		t.Errorf("expected a single fetch, got %d", calls)
	}
}

func TestMapService_TierUpdateReusesGeometry(t *testing.T) {
	f := newMapFixture(t)
	broadcaster := &countingBroadcaster{}
	f.maps.SetBroadcaster(broadcaster)
	ctx := context.Background()

	if _, err := f.maps.Map(ctx); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	err := f.tiers.UpdateTierConfig(ctx, models.TierConfig{
		Tiers:  []models.TierList{{{Name: "Allemagne", Code: "DE"}}},
		Colors: []string{"#000000"},
	})
	if err != nil {
		t.Fatalf("UpdateTierConfig failed: %v", err)
	}
	if _, ok := f.maps.Mounted(); ok {
		t.Error("expected new configuration to be unmounted until requested")
	}

	m, err := f.maps.Map(ctx)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if !m.Selectable("DE_Allemagne") || m.Selectable("FR_France") {
		t.Error("expected only DE to be selectable after update")
	}
	if calls := f.sources[defaultURL].Calls(); calls != 1 {
		t.Errorf("expected cached geometry, got %d fetches", calls)
	}
	if broadcaster.count() != 1 {
		t.Errorf("expected one broadcast, got %d", broadcaster.count())
	}
}

func TestMapService_URLChangeFetchesAgain(t *testing.T) {
	f := newMapFixture(t)
	ctx := context.Background()

	if _, err := f.maps.Map(ctx); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	newURL := "https://cdn.example.org/world.json"
	if err := f.settings.UpdateSettings(ctx, services.Settings{GeoJSONURL: &newURL}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if _, err := f.maps.Map(ctx); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if f.maps.SourceURL() != newURL {
		t.Errorf("expected source URL %q, got %q", newURL, f.maps.SourceURL())
	}
	if f.sources[newURL] == nil || f.sources[newURL].Calls() != 1 {
		t.Error("expected the new URL to be fetched once")
	}
}

func TestMapService_FetchFailure(t *testing.T) {
	f := newMapFixture(t, geosource.WithFetchError(errors.New("connection refused")))
	ctx := context.Background()

	_, err := f.maps.Map(ctx)
	if !apperrors.Is(err, apperrors.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	f.sources[defaultURL].SetFetchError(nil)
	if _, err := f.maps.Map(ctx); err != nil {
		t.Errorf("expected retry to succeed, got %v", err)
	}
}

func TestMapService_FirstReloadDoesNotBroadcast(t *testing.T) {
	f := newMapFixture(t)
	broadcaster := &countingBroadcaster{}
	f.maps.SetBroadcaster(broadcaster)

	if err := f.maps.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if broadcaster.count() != 0 {
		t.Errorf("expected no broadcast on first load, got %d", broadcaster.count())
	}
}

func TestMapService_ReloadBeforeMountDoesNotBroadcast(t *testing.T) {
	f := newMapFixture(t)
	broadcaster := &countingBroadcaster{}
	f.maps.SetBroadcaster(broadcaster)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.maps.Reload(ctx); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}
	}
	if broadcaster.count() != 0 {
		t.Errorf("expected no broadcast while nothing is mounted, got %d", broadcaster.count())
	}
}

func TestMapService_ConcurrentFirstUse(t *testing.T) {
	f := newMapFixture(t)
	broadcaster := &countingBroadcaster{}
	f.maps.SetBroadcaster(broadcaster)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.maps.Map(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Map failed: %v", err)
	}

	if broadcaster.count() != 0 {
		t.Errorf("expected no map_updated on first use, got %d", broadcaster.count())
	}
	if calls := f.sources[defaultURL].Calls(); calls != 1 {
		t.Errorf("expected one fetch, got %d", calls)
	}
}

func TestMapService_RefreshFetchesAgain(t *testing.T) {
	f := newMapFixture(t)
	broadcaster := &countingBroadcaster{}
	f.maps.SetBroadcaster(broadcaster)
	ctx := context.Background()

	if _, err := f.maps.Map(ctx); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := f.maps.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := f.maps.Map(ctx); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	if calls := f.sources[defaultURL].Calls(); calls != 2 {
		t.Errorf("expected geometry fetched again, got %d fetches", calls)
	}
	if broadcaster.count() != 1 {
		t.Errorf("expected one broadcast, got %d", broadcaster.count())
	}
}

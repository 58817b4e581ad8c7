package geosource

import (
	"context"
	"sync"

	geojson "github.com/paulmach/go.geojson"
)

// MockSource is an in-memory Source for testing
type MockSource struct {
	mu         sync.Mutex
	collection *Collection
	fetchErr   error
	calls      int
}

// MockOption configures the mock source
type MockOption func(*MockSource)

// WithFeatures sets the features to return
func WithFeatures(features ...*geojson.Feature) MockOption {
	return func(m *MockSource) {
		m.collection = NewCollection(features...)
	}
}

// WithFetchError sets an error to return from Fetch
func WithFetchError(err error) MockOption {
	return func(m *MockSource) {
		m.fetchErr = err
	}
}

// NewMockSource creates a mock returning a small default world (FR, BR, GN, DE)
func NewMockSource(opts ...MockOption) *MockSource {
	m := &MockSource{collection: NewCollection(DefaultFeatures()...)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch returns the configured collection or error
func (m *MockSource) Fetch(ctx context.Context) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.collection, nil
}

// SetFetchError changes the error returned by later fetches. Nil restores success.
func (m *MockSource) SetFetchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

// URL returns a placeholder URL
func (m *MockSource) URL() string {
	return "mock://countries.geojson"
}

// Calls returns how many times Fetch was invoked
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SquareFeature builds a feature named name whose polygon is the lon/lat
// square with corner (lon, lat) and the given side length in degrees.
func SquareFeature(name string, lon, lat, side float64) *geojson.Feature {
	ring := [][]float64{
		{lon, lat},
		{lon + side, lat},
		{lon + side, lat + side},
		{lon, lat + side},
		{lon, lat},
	}
	f := geojson.NewFeature(geojson.NewPolygonGeometry([][][]float64{ring}))
	f.SetProperty("name", name)
	return f
}

// DefaultFeatures returns rough boxes for France, Brazil, Guinea and Germany
func DefaultFeatures() []*geojson.Feature {
	return []*geojson.Feature{
		SquareFeature("FR", -4, 43, 8),
		SquareFeature("BR", -70, -30, 30),
		SquareFeature("GN", -15, 7, 6),
		SquareFeature("DE", 6, 47, 8),
	}
}

var _ Source = (*MockSource)(nil)

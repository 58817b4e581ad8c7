// Package geosource fetches country boundary geometry as a GeoJSON
// FeatureCollection and exposes it as an immutable feature list.
package geosource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/abrezinsky/cartepays/internal/logger"
)

// maxBodyBytes bounds the boundary dataset download. World datasets at
// 110m resolution are a few hundred KB; 50m ones a few MB.
const maxBodyBytes = 64 << 20

// Feature is one country's boundary geometry plus properties
type Feature struct {
	raw *geojson.Feature
}

// NewFeature wraps a decoded GeoJSON feature
func NewFeature(f *geojson.Feature) Feature {
	return Feature{raw: f}
}

// ID returns properties.name, the join key against tier country records.
// Missing or non-string names yield "".
func (f Feature) ID() string {
	if f.raw == nil {
		return ""
	}
	return f.raw.PropertyMustString("name", "")
}

// Geometry returns the geometry payload, or nil when the feature has none
func (f Feature) Geometry() *geojson.Geometry {
	if f.raw == nil {
		return nil
	}
	return f.raw.Geometry
}

// Collection is the fetched FeatureCollection. It is never mutated after decode.
type Collection struct {
	features []Feature
}

// Decode parses a GeoJSON FeatureCollection document
func Decode(data []byte) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feature collection: %w", err)
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		features = append(features, NewFeature(f))
	}
	return &Collection{features: features}, nil
}

// NewCollection builds a collection from already decoded features
func NewCollection(features ...*geojson.Feature) *Collection {
	c := &Collection{features: make([]Feature, 0, len(features))}
	for _, f := range features {
		c.features = append(c.features, NewFeature(f))
	}
	return c
}

// Features returns a copy of the feature list
func (c *Collection) Features() []Feature {
	out := make([]Feature, len(c.features))
	copy(out, c.features)
	return out
}

// Len returns the number of features
func (c *Collection) Len() int {
	return len(c.features)
}

// Source defines how boundary geometry is obtained
type Source interface {
	// Fetch retrieves and decodes the FeatureCollection
	Fetch(ctx context.Context) (*Collection, error)
	// URL returns the configured dataset location
	URL() string
}

// HTTPSource downloads the dataset with a GET request
type HTTPSource struct {
	url        string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPSource creates a source for the given URL with a 30s timeout
func NewHTTPSource(url string, log logger.Logger) *HTTPSource {
	return NewHTTPSourceWithHTTPClient(url, &http.Client{Timeout: 30 * time.Second}, log)
}

// NewHTTPSourceWithHTTPClient creates a source with a custom http.Client
func NewHTTPSourceWithHTTPClient(url string, httpClient *http.Client, log logger.Logger) *HTTPSource {
	if log == nil {
		log = logger.Nop{}
	}
	return &HTTPSource{
		url:        url,
		httpClient: httpClient,
		log:        log,
	}
}

// URL returns the dataset URL
func (s *HTTPSource) URL() string {
	return s.url
}

// Fetch downloads and decodes the FeatureCollection
func (s *HTTPSource) Fetch(ctx context.Context) (*Collection, error) {
	if s.url == "" {
		return nil, fmt.Errorf("geometry URL is not configured")
	}

	s.log.Debug("Geometry request", "method", "GET", "url", s.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download geometry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geometry server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	collection, err := Decode(body)
	if err != nil {
		return nil, err
	}

	s.log.Info("Geometry fetched", "url", s.url, "features", collection.Len(), "bytes", len(body))
	return collection, nil
}

var _ Source = (*HTTPSource)(nil)

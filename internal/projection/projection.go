// Package projection fits a Mercator projection to a feature set and turns
// features into SVG path strings.
package projection

import (
	"math"
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/pkg/geosource"
)

// DefaultMargin leaves 5% of the drawing area free around the fitted geometry
const DefaultMargin = 0.95

// maxLatitude is where Mercator y reaches the square world extent
const maxLatitude = 85.0511287798066

// Config describes what to fit and where
type Config struct {
	Features []geosource.Feature
	Width    float64
	Height   float64
	// Margin is the fraction of the drawing area the geometry may occupy.
	// Zero means DefaultMargin.
	Margin float64
}

// Bounds is a projected bounding box: Min is top-left, Max bottom-right
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func emptyBounds() Bounds {
	return Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

func (b *Bounds) extend(x, y float64) {
	b.MinX = math.Min(b.MinX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxX = math.Max(b.MaxX, x)
	b.MaxY = math.Max(b.MaxY, y)
}

func (b Bounds) empty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// PathFn maps a feature to an SVG path string
type PathFn func(geosource.Feature) string

// Engine is a fitted Mercator projection. It is immutable.
type Engine struct {
	scale      float64
	translateX float64
	translateY float64
}

// Fit computes the scale and translation that center the features inside
// the Width x Height area with the configured margin.
func Fit(cfg Config) (*Engine, error) {
	if len(cfg.Features) == 0 {
		return nil, errors.Configuration("cannot fit projection: no features")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.Configurationf("cannot fit projection: invalid viewport %gx%g", cfg.Width, cfg.Height)
	}
	margin := cfg.Margin
	if margin <= 0 {
		margin = DefaultMargin
	}

	unit := &Engine{scale: 1}
	b := emptyBounds()
	for _, f := range cfg.Features {
		if fb, ok := unit.Bounds(f); ok {
			b.extend(fb.MinX, fb.MinY)
			b.extend(fb.MaxX, fb.MaxY)
		}
	}
	if b.empty() {
		return nil, errors.Configuration("cannot fit projection: features have no coordinates")
	}

	dx, dy := b.MaxX-b.MinX, b.MaxY-b.MinY
	ratio := math.Max(dx/cfg.Width, dy/cfg.Height)
	if ratio == 0 {
		return nil, errors.Configuration("cannot fit projection: geometry has zero extent")
	}

	s := margin / ratio
	return &Engine{
		scale:      s,
		translateX: (cfg.Width - s*(b.MaxX+b.MinX)) / 2,
		translateY: (cfg.Height - s*(b.MaxY+b.MinY)) / 2,
	}, nil
}

// Scale returns the fitted scale factor
func (e *Engine) Scale() float64 {
	return e.scale
}

// Translate returns the fitted translation
func (e *Engine) Translate() (x, y float64) {
	return e.translateX, e.translateY
}

// Project maps longitude/latitude in degrees to drawing coordinates.
// Latitudes are clamped to the Mercator limit.
func (e *Engine) Project(lon, lat float64) (x, y float64) {
	lat = math.Max(-maxLatitude, math.Min(maxLatitude, lat))
	lambda := lon * math.Pi / 180
	phi := lat * math.Pi / 180
	mx := lambda
	my := math.Log(math.Tan(math.Pi/4 + phi/2))
	return mx*e.scale + e.translateX, e.translateY - my*e.scale
}

// Bounds returns the projected bounding box of a feature. ok is false when
// the feature has no drawable coordinates.
func (e *Engine) Bounds(f geosource.Feature) (b Bounds, ok bool) {
	b = emptyBounds()
	e.walk(f.Geometry(), func(ring [][2]float64, _ bool) {
		for _, p := range ring {
			b.extend(p[0], p[1])
		}
	})
	if b.empty() {
		return Bounds{}, false
	}
	return b, true
}

// Path renders a feature as SVG path data. Polygon rings are closed with Z;
// line strings stay open. Points produce an empty string.
func (e *Engine) Path(f geosource.Feature) string {
	var sb strings.Builder
	e.walk(f.Geometry(), func(ring [][2]float64, closed bool) {
		for i, p := range ring {
			if i == 0 {
				sb.WriteByte('M')
			} else {
				sb.WriteByte('L')
			}
			sb.WriteString(formatCoord(p[0]))
			sb.WriteByte(',')
			sb.WriteString(formatCoord(p[1]))
		}
		if closed {
			sb.WriteByte('Z')
		}
	})
	return sb.String()
}

// PathFn returns Path as a reusable function value
func (e *Engine) PathFn() PathFn {
	return e.Path
}

// walk projects every ring or line of g and hands it to visit. Rings of
// polygons drop their closing coordinate since Z closes them.
func (e *Engine) walk(g *geojson.Geometry, visit func(ring [][2]float64, closed bool)) {
	if g == nil {
		return
	}
	switch g.Type {
	case geojson.GeometryPolygon:
		e.walkPolygon(g.Polygon, visit)
	case geojson.GeometryMultiPolygon:
		for _, poly := range g.MultiPolygon {
			e.walkPolygon(poly, visit)
		}
	case geojson.GeometryLineString:
		e.walkLine(g.LineString, false, visit)
	case geojson.GeometryMultiLineString:
		for _, line := range g.MultiLineString {
			e.walkLine(line, false, visit)
		}
	case geojson.GeometryCollection:
		for _, child := range g.Geometries {
			e.walk(child, visit)
		}
	}
}

func (e *Engine) walkPolygon(rings [][][]float64, visit func([][2]float64, bool)) {
	for _, ring := range rings {
		if n := len(ring); n > 1 && samePosition(ring[0], ring[n-1]) {
			ring = ring[:n-1]
		}
		e.walkLine(ring, true, visit)
	}
}

func (e *Engine) walkLine(coords [][]float64, closed bool, visit func([][2]float64, bool)) {
	projected := make([][2]float64, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		x, y := e.Project(c[0], c[1])
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		projected = append(projected, [2]float64{x, y})
	}
	if len(projected) == 0 {
		return
	}
	visit(projected, closed)
}

func samePosition(a, b []float64) bool {
	return len(a) >= 2 && len(b) >= 2 && a[0] == b[0] && a[1] == b[1]
}

// formatCoord rounds to two decimals, which is sub-pixel at any zoom the
// controller allows.
func formatCoord(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

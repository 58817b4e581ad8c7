// Package render mounts the map: it fetches geometry, fits the projection,
// binds one shape per feature and records the fill rules, listeners and
// zoom behavior the page installs.
package render

import (
	"context"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/metrics"
	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/projection"
	"github.com/abrezinsky/cartepays/internal/tiers"
	"github.com/abrezinsky/cartepays/internal/zoom"
	"github.com/abrezinsky/cartepays/pkg/geosource"
)

// Default drawing area
const (
	DefaultWidth  = 960
	DefaultHeight = 500
)

// SVG classes of the root surface and the shape group
const (
	ClassSurface = "carte-pays"
	ClassGroup   = "groupe-pays"
)

// Pointer events listened to on selectable shapes
const (
	EventClick      = "click"
	EventMouseOver  = "mouseover"
	EventMouseLeave = "mouseleave"
)

// Config is everything a mount needs besides the geometry source
type Config struct {
	Tiers       []models.TierList
	Colors      []string
	Policy      tiers.MatchPolicy
	DefaultFill string

	Width  float64
	Height float64
	Margin float64

	ScaleExtent     [2]float64
	TranslateExtent zoom.Extent
}

// RenderedShape is one bound feature
type RenderedShape struct {
	ID         string   `json:"id"`
	Classes    []string `json:"classes"`
	Path       string   `json:"d"`
	Fill       string   `json:"fill"`
	Selectable bool     `json:"selectable"`
	Rank       *int     `json:"rank,omitempty"`
}

// Listener is one event registration on the shapes matching Selector
type Listener struct {
	Event    string `json:"event"`
	Selector string `json:"selector"`
}

// ZoomBehavior is installed on the root surface
type ZoomBehavior struct {
	ScaleExtent     [2]float64  `json:"scaleExtent"`
	TranslateExtent zoom.Extent `json:"translateExtent"`
}

// StyleFn computes identifier, classes and fill for a feature id
type StyleFn func(featureID string) tiers.Style

// Binder joins features to shapes. It is called once per mount.
type Binder interface {
	Bind(features []geosource.Feature, path projection.PathFn, style StyleFn) []RenderedShape
}

// ShapeBinder creates one shape per feature in input order
type ShapeBinder struct{}

// Bind implements Binder
func (ShapeBinder) Bind(features []geosource.Feature, path projection.PathFn, style StyleFn) []RenderedShape {
	shapes := make([]RenderedShape, 0, len(features))
	for _, f := range features {
		st := style(f.ID())
		shapes = append(shapes, RenderedShape{
			ID:         st.ID,
			Classes:    st.Classes,
			Path:       path(f),
			Fill:       st.Fill,
			Selectable: st.Selectable,
			Rank:       st.Rank,
		})
	}
	return shapes
}

// Map is a mounted map. It is read-only after mount.
type Map struct {
	Width     float64          `json:"width"`
	Height    float64          `json:"height"`
	Shapes    []RenderedShape  `json:"shapes"`
	FillRules []tiers.FillRule `json:"fillRules"`
	Listeners []Listener       `json:"listeners"`
	Zoom      ZoomBehavior     `json:"zoom"`
	Source    string           `json:"source"`
	MountedAt time.Time        `json:"mountedAt"`
	byID      map[string]int
}

// Shape finds a bound shape by identifier
func (m *Map) Shape(id string) (RenderedShape, bool) {
	i, ok := m.byID[id]
	if !ok {
		return RenderedShape{}, false
	}
	return m.Shapes[i], true
}

// Selectable reports whether pointer listeners are attached to the shape
func (m *Map) Selectable(id string) bool {
	s, ok := m.Shape(id)
	return ok && s.Selectable
}

// ZoomConfig returns the zoom configuration a viewer session starts from
func (m *Map) ZoomConfig() zoom.Config {
	return zoom.Config{
		Width:           m.Width,
		Height:          m.Height,
		ScaleExtent:     m.Zoom.ScaleExtent,
		TranslateExtent: m.Zoom.TranslateExtent,
	}
}

// WriteSVG writes the map as a standalone SVG document
func (m *Map) WriteSVG(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="%s" viewBox="0 0 %s %s" width="%s" height="%s">`,
		ClassSurface, num(m.Width), num(m.Height), num(m.Width), num(m.Height))
	b.WriteString("\n")
	fmt.Fprintf(&b, `<g class="%s">`, ClassGroup)
	b.WriteString("\n")
	for _, s := range m.Shapes {
		fmt.Fprintf(&b, `<path id="%s" class="%s" d="%s" fill="%s"/>`,
			html.EscapeString(s.ID),
			html.EscapeString(tiers.Style{Classes: s.Classes}.ClassAttr()),
			s.Path,
			html.EscapeString(s.Fill))
		b.WriteString("\n")
	}
	b.WriteString("</g>\n</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Orchestrator mounts a map exactly once
type Orchestrator struct {
	source     geosource.Source
	cfg        Config
	classifier *tiers.Classifier
	binder     Binder
	log        logger.Logger

	mu    sync.Mutex
	m     *Map
	binds int
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithBinder replaces the default ShapeBinder
func WithBinder(b Binder) Option {
	return func(o *Orchestrator) {
		o.binder = b
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// New validates cfg before anything is fetched. A tier/color mismatch is a
// configuration error.
func New(source geosource.Source, cfg Config, opts ...Option) (*Orchestrator, error) {
	if source == nil {
		return nil, errors.Configuration("no geometry source")
	}
	if cfg.Width == 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height == 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.Width < 0 || cfg.Height < 0 {
		return nil, errors.Configurationf("invalid viewport %gx%g", cfg.Width, cfg.Height)
	}

	classifier, err := tiers.New(tiers.Config{
		Tiers:       cfg.Tiers,
		Colors:      cfg.Colors,
		Policy:      cfg.Policy,
		DefaultFill: cfg.DefaultFill,
	})
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		source:     source,
		cfg:        cfg,
		classifier: classifier,
		binder:     ShapeBinder{},
		log:        logger.Nop{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Mount fetches, fits, binds and registers, in that order. Once a mount
// succeeds every later call returns the same map. A failed fetch leaves
// nothing rendered and may be retried.
func (o *Orchestrator) Mount(ctx context.Context) (*Map, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.m != nil {
		return o.m, nil
	}

	start := time.Now()
	collection, err := o.source.Fetch(ctx)
	metrics.GeometryFetchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.GeometryFetchFailuresTotal.Inc()
		o.log.Error("Geometry fetch failed", "url", o.source.URL(), "error", err)
		return nil, errors.Fetch(err)
	}

	features := collection.Features()
	engine, err := projection.Fit(projection.Config{
		Features: features,
		Width:    o.cfg.Width,
		Height:   o.cfg.Height,
		Margin:   o.cfg.Margin,
	})
	if err != nil {
		return nil, err
	}

	shapes := o.binder.Bind(features, engine.PathFn(), o.classifier.Style)
	o.binds++

	zc := zoom.Config{
		Width:           o.cfg.Width,
		Height:          o.cfg.Height,
		ScaleExtent:     o.cfg.ScaleExtent,
		TranslateExtent: o.cfg.TranslateExtent,
	}.Normalized()

	m := &Map{
		Width:     o.cfg.Width,
		Height:    o.cfg.Height,
		Shapes:    shapes,
		FillRules: o.classifier.FillRules(),
		Listeners: []Listener{
			{Event: EventClick, Selector: tiers.SelectableSelector},
			{Event: EventMouseOver, Selector: tiers.SelectableSelector},
			{Event: EventMouseLeave, Selector: tiers.SelectableSelector},
		},
		Zoom: ZoomBehavior{
			ScaleExtent:     zc.ScaleExtent,
			TranslateExtent: zc.TranslateExtent,
		},
		Source:    o.source.URL(),
		MountedAt: time.Now().UTC(),
		byID:      make(map[string]int, len(shapes)),
	}
	for i, s := range shapes {
		if _, dup := m.byID[s.ID]; !dup {
			m.byID[s.ID] = i
		}
	}

	o.m = m
	metrics.MountsTotal.Inc()
	metrics.ShapesRendered.Set(float64(len(shapes)))
	o.log.Info("Map mounted", "shapes", len(shapes), "tiers", o.classifier.Len(), "scale", engine.Scale())
	return m, nil
}

// Mounted returns the map if a mount succeeded
func (o *Orchestrator) Mounted() (*Map, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.m, o.m != nil
}

// BindCount reports how many times shapes were bound
func (o *Orchestrator) BindCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.binds
}

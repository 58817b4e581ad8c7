// Package zoom owns the scale+translate transform applied to the rendered
// country group, with d3-zoom's clamping rules and animated button steps.
package zoom

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Button multipliers. They are exact inverses so a zoom in followed by a
// zoom out lands on the starting transform.
const (
	zoomInFactor  = 2
	zoomOutFactor = 0.5
)

// Defaults applied by New when the config leaves them zero
const (
	DefaultMinScale = 1
	DefaultMaxScale = 8
	DefaultDuration = 750 * time.Millisecond
)

// Transform is a uniform scale K followed by a translation (X, Y)
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the untransformed view
var Identity = Transform{K: 1}

// Invert maps a point from screen space back to map space
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

// Translate shifts the transform by (dx, dy) in map units
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{K: t.K, X: t.X + t.K*dx, Y: t.Y + t.K*dy}
}

// String renders the SVG transform attribute value
func (t Transform) String() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", num(t.X), num(t.Y), num(t.K))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Extent is a rectangle [[x0, y0], [x1, y1]]
type Extent [2][2]float64

func (e Extent) center() (float64, float64) {
	return (e[0][0] + e[1][0]) / 2, (e[0][1] + e[1][1]) / 2
}

// Config describes the zoom behavior installed on the map surface
type Config struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// ScaleExtent bounds K. Zero means [DefaultMinScale, DefaultMaxScale].
	ScaleExtent [2]float64 `json:"scaleExtent"`
	// TranslateExtent is the region that must stay reachable. Zero means the viewport.
	TranslateExtent Extent `json:"translateExtent"`
	// Duration of button transitions. Zero means DefaultDuration.
	Duration time.Duration `json:"-"`
	// Clock is injectable for tests. Nil means time.Now.
	Clock func() time.Time `json:"-"`
}

// Normalized returns cfg with defaults filled in
func (cfg Config) Normalized() Config {
	if cfg.ScaleExtent == [2]float64{} {
		cfg.ScaleExtent = [2]float64{DefaultMinScale, DefaultMaxScale}
	}
	if cfg.TranslateExtent == (Extent{}) {
		cfg.TranslateExtent = Extent{{0, 0}, {cfg.Width, cfg.Height}}
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return cfg
}

// Controller tracks one viewer's transform. It is driven from a single
// event loop and is not safe for concurrent use.
type Controller struct {
	cfg      Config
	viewport Extent

	from      Transform
	to        Transform
	start     time.Time
	animating bool
}

// New creates a controller at the identity transform
func New(cfg Config) *Controller {
	cfg = cfg.Normalized()
	return &Controller{
		cfg:      cfg,
		viewport: Extent{{0, 0}, {cfg.Width, cfg.Height}},
		from:     Identity,
		to:       Identity,
	}
}

// Config returns the normalized configuration
func (c *Controller) Config() Config {
	return c.cfg
}

// ZoomIn doubles the scale with an animated transition
func (c *Controller) ZoomIn() Transform {
	return c.ScaleBy(zoomInFactor)
}

// ZoomOut halves the scale with an animated transition
func (c *Controller) ZoomOut() Transform {
	return c.ScaleBy(zoomOutFactor)
}

// ScaleBy multiplies the target scale by k around the viewport center and
// animates towards the constrained result. It returns the new target.
func (c *Controller) ScaleBy(k float64) Transform {
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return c.to
	}

	target := c.to
	cx, cy := c.viewport.center()
	px, py := target.Invert(cx, cy)
	k1 := c.clampScale(target.K * k)
	next := c.constrain(Transform{K: k1, X: cx - px*k1, Y: cy - py*k1})

	c.from = c.Current()
	c.to = next
	c.start = c.cfg.Clock()
	c.animating = c.from != next
	return next
}

// Gesture applies a scroll or drag transform immediately, interrupting any
// running transition. Out-of-range values are clamped.
func (c *Controller) Gesture(t Transform) Transform {
	if t.K <= 0 || math.IsNaN(t.K) || math.IsInf(t.K, 0) {
		t.K = c.to.K
	}
	if math.IsNaN(t.X) || math.IsInf(t.X, 0) {
		t.X = c.to.X
	}
	if math.IsNaN(t.Y) || math.IsInf(t.Y, 0) {
		t.Y = c.to.Y
	}
	t.K = c.clampScale(t.K)
	next := c.constrain(t)

	c.from, c.to = next, next
	c.animating = false
	return next
}

// Reset jumps back to the identity transform
func (c *Controller) Reset() Transform {
	return c.Gesture(Identity)
}

// Target returns the transform the view is heading to
func (c *Controller) Target() Transform {
	return c.to
}

// Transitioning reports whether a button transition is still running
func (c *Controller) Transitioning() bool {
	c.Current()
	return c.animating
}

// Current returns the transform at this instant of the transition
func (c *Controller) Current() Transform {
	if !c.animating {
		return c.to
	}
	elapsed := c.cfg.Clock().Sub(c.start)
	if elapsed >= c.cfg.Duration {
		c.animating = false
		c.from = c.to
		return c.to
	}
	if elapsed < 0 {
		elapsed = 0
	}
	e := easeCubicInOut(float64(elapsed) / float64(c.cfg.Duration))
	return Transform{
		K: lerp(c.from.K, c.to.K, e),
		X: lerp(c.from.X, c.to.X, e),
		Y: lerp(c.from.Y, c.to.Y, e),
	}
}

func (c *Controller) clampScale(k float64) float64 {
	return math.Max(c.cfg.ScaleExtent[0], math.Min(c.cfg.ScaleExtent[1], k))
}

// constrain shifts t so the translate extent covers the viewport, centering
// it when it is smaller than the viewport.
func (c *Controller) constrain(t Transform) Transform {
	e, te := c.viewport, c.cfg.TranslateExtent
	x0, y0 := t.Invert(e[0][0], e[0][1])
	x1, y1 := t.Invert(e[1][0], e[1][1])
	return t.Translate(
		constrainAxis(x0-te[0][0], x1-te[1][0]),
		constrainAxis(y0-te[0][1], y1-te[1][1]),
	)
}

func constrainAxis(d0, d1 float64) float64 {
	if d1 > d0 {
		return (d0 + d1) / 2
	}
	if m := math.Min(0, d0); m != 0 {
		return m
	}
	return math.Max(0, d1)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/projection"
	"github.com/abrezinsky/cartepays/internal/tiers"
	"github.com/abrezinsky/cartepays/pkg/geosource"
)

func testConfig() Config {
	return Config{
		Tiers: []models.TierList{
			{{Name: "France", Code: "FR"}},
			{{Name: "Bresil", Code: "BR"}},
			{{Name: "Guinée", Code: "GN"}},
		},
		Colors: []string{"#90E3CB", "#FF9C9C", "#AABAC6"},
	}
}

type countingBinder struct {
	calls int
	inner ShapeBinder
}

func (b *countingBinder) Bind(features []geosource.Feature, path projection.PathFn, style StyleFn) []RenderedShape {
	b.calls++
	return b.inner.Bind(features, path, style)
}

func TestNew_RejectsMismatchedColorsBeforeFetch(t *testing.T) {
	src := geosource.NewMockSource()
	cfg := testConfig()
	cfg.Colors = cfg.Colors[:2]

	_, err := New(src, cfg)
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if src.Calls() != 0 {
		t.Errorf("expected no fetch, got %d", src.Calls())
	}
}

func TestNew_RejectsNilSource(t *testing.T) {
	if _, err := New(nil, testConfig()); !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestNew_AppliesDefaultViewport(t *testing.T) {
	o, err := New(geosource.NewMockSource(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := o.Mount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Width != DefaultWidth || m.Height != DefaultHeight {
		t.Errorf("expected %dx%d, got %gx%g", DefaultWidth, DefaultHeight, m.Width, m.Height)
	}
}

func TestMount_BindsStyledShapes(t *testing.T) {
	o, err := New(geosource.NewMockSource(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := o.Mount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Shapes) != 4 {
		t.Fatalf("expected 4 shapes, got %d", len(m.Shapes))
	}

	tests := []struct {
		id         string
		classes    string
		fill       string
		selectable bool
	}{
		{"FR_France", "pays categorie-0 selectionnable", "#90E3CB", true},
		{"BR_Bresil", "pays categorie-1 selectionnable", "#FF9C9C", true},
		{"GN_Guinée", "pays categorie-2 selectionnable", "#AABAC6", true},
		{"DE", "pays", tiers.DefaultFill, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			s, ok := m.Shape(tt.id)
			if !ok {
				t.Fatalf("shape %s not bound", tt.id)
			}
			if got := strings.Join(s.Classes, " "); got != tt.classes {
				t.Errorf("expected classes %q, got %q", tt.classes, got)
			}
			if s.Fill != tt.fill {
				t.Errorf("expected fill %s, got %s", tt.fill, s.Fill)
			}
			if m.Selectable(tt.id) != tt.selectable {
				t.Errorf("expected selectable=%v", tt.selectable)
			}
			if !strings.HasPrefix(s.Path, "M") || !strings.HasSuffix(s.Path, "Z") {
				t.Errorf("unexpected path %q", s.Path)
			}
		})
	}
}

func TestMount_RegistersFillRulesListenersAndZoom(t *testing.T) {
	o, _ := New(geosource.NewMockSource(), testConfig())
	m, err := o.Mount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.FillRules) != 3 {
		t.Fatalf("expected 3 fill rules, got %d", len(m.FillRules))
	}
	for r, rule := range m.FillRules {
		if rule.Selector != fmt.Sprintf(".categorie-%d", r) {
			t.Errorf("rule %d: unexpected selector %q", r, rule.Selector)
		}
		if rule.Fill != testConfig().Colors[r] {
			t.Errorf("rule %d: unexpected fill %q", r, rule.Fill)
		}
	}

	events := map[string]bool{}
	for _, l := range m.Listeners {
		if l.Selector != ".pays.selectionnable" {
			t.Errorf("unexpected selector %q", l.Selector)
		}
		events[l.Event] = true
	}
	for _, ev := range []string{EventClick, EventMouseOver, EventMouseLeave} {
		if !events[ev] {
			t.Errorf("missing %s listener", ev)
		}
	}

	if m.Zoom.ScaleExtent != [2]float64{1, 8} {
		t.Errorf("unexpected scale extent %v", m.Zoom.ScaleExtent)
	}
	zc := m.ZoomConfig()
	if zc.Width != m.Width || zc.Height != m.Height {
		t.Errorf("unexpected zoom viewport %gx%g", zc.Width, zc.Height)
	}
}

func TestMount_OnlyOnce(t *testing.T) {
	src := geosource.NewMockSource()
	binder := &countingBinder{}
	o, _ := New(src, testConfig(), WithBinder(binder))

	first, err := o.Mount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := o.Mount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Error("expected the same map from repeated mounts")
	}
	if src.Calls() != 1 {
		t.Errorf("expected one fetch, got %d", src.Calls())
	}
	if binder.calls != 1 || o.BindCount() != 1 {
		t.Errorf("expected one bind, got binder=%d orchestrator=%d", binder.calls, o.BindCount())
	}
}

func TestMount_ConcurrentCallersBindOnce(t *testing.T) {
	src := geosource.NewMockSource()
	o, _ := New(src, testConfig())

	var wg sync.WaitGroup
	maps := make([]*Map, 8)
	for i := range maps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			maps[i], _ = o.Mount(context.Background())
		}(i)
	}
	wg.Wait()

	for i, m := range maps {
		if m == nil || m != maps[0] {
			t.Fatalf("mount %d returned a different map", i)
		}
	}
	if src.Calls() != 1 {
		t.Errorf("expected one fetch, got %d", src.Calls())
	}
}

func TestMount_FetchFailureIsRetryable(t *testing.T) {
	src := geosource.NewMockSource(geosource.WithFetchError(fmt.Errorf("connection refused")))
	binder := &countingBinder{}
	o, _ := New(src, testConfig(), WithBinder(binder))

	_, err := o.Mount(context.Background())
	if !errors.Is(err, errors.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, ok := o.Mounted(); ok {
		t.Error("expected nothing mounted after a failed fetch")
	}
	if binder.calls != 0 {
		t.Error("expected no bind after a failed fetch")
	}

	src.SetFetchError(nil)
	m, err := o.Mount(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(m.Shapes) == 0 {
		t.Error("expected shapes after retry")
	}
	if src.Calls() != 2 {
		t.Errorf("expected two fetches, got %d", src.Calls())
	}
}

func TestMount_EmptyCollectionIsConfigurationError(t *testing.T) {
	src := geosource.NewMockSource(geosource.WithFeatures())
	o, _ := New(src, testConfig())

	if _, err := o.Mount(context.Background()); !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestMap_WriteSVG(t *testing.T) {
	o, _ := New(geosource.NewMockSource(), testConfig())
	m, err := o.Mount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := m.WriteSVG(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svg := buf.String()

	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" class="carte-pays"`,
		`<g class="groupe-pays">`,
		`id="FR_France" class="pays categorie-0 selectionnable"`,
		`fill="#90E3CB"`,
		`id="DE" class="pays"`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("expected %q in svg", want)
		}
	}
	if n := strings.Count(svg, "<path "); n != 4 {
		t.Errorf("expected 4 paths, got %d", n)
	}
}

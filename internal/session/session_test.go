package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/render"
	"github.com/abrezinsky/cartepays/internal/selection"
	"github.com/abrezinsky/cartepays/internal/zoom"
	"github.com/abrezinsky/cartepays/pkg/geosource"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func zoomTransform(k, x, y float64) zoom.Transform {
	return zoom.Transform{K: k, X: x, Y: y}
}

func mountedMap(t *testing.T) *render.Map {
	t.Helper()
	o, err := render.New(geosource.NewMockSource(), render.Config{
		Tiers: []models.TierList{
			{{Name: "France", Code: "FR"}},
			{{Name: "Bresil", Code: "BR"}},
			{{Name: "Guinée", Code: "GN"}},
		},
		Colors: []string{"#90E3CB", "#FF9C9C", "#AABAC6"},
	})
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}
	m, err := o.Mount(context.Background())
	if err != nil {
		t.Fatalf("failed to mount: %v", err)
	}
	return m
}

func dispatch(t *testing.T, s *Session, ev Event) Snapshot {
	t.Helper()
	snap, err := s.Dispatch(ev)
	if err != nil {
		t.Fatalf("dispatch %s: %v", ev.Type, err)
	}
	return snap
}

func TestNew_GeneratesUUID(t *testing.T) {
	s := New(mountedMap(t), nil)

	if _, err := uuid.Parse(s.ID()); err != nil {
		t.Errorf("expected a UUID session id, got %q", s.ID())
	}
	if New(mountedMap(t), nil, WithID("viewer-1")).ID() != "viewer-1" {
		t.Error("expected WithID to override the generated id")
	}
}

func TestNew_RecordsStartTime(t *testing.T) {
	before := time.Now()
	s := New(mountedMap(t), nil)

	if s.CreatedAt().Before(before) || s.CreatedAt().After(time.Now()) {
		t.Errorf("unexpected start time %v", s.CreatedAt())
	}
}

func TestSnapshot_Initial(t *testing.T) {
	snap := New(mountedMap(t), nil).Snapshot()

	if snap.Selection != (models.CountryRecord{}) {
		t.Errorf("expected sentinel selection, got %+v", snap.Selection)
	}
	if snap.Legend.Visible {
		t.Error("expected legend hidden")
	}
	if snap.Transform.K != 1 || snap.Transitioning {
		t.Errorf("expected identity at rest, got %+v", snap)
	}
	if snap.DurationMs != 750 {
		t.Errorf("expected 750ms transitions, got %d", snap.DurationMs)
	}
}

func TestDispatch_HoverAndLeave(t *testing.T) {
	s := New(mountedMap(t), nil)

	snap := dispatch(t, s, Event{Type: EventMouseOver, ID: "FR_France"})
	if snap.Selection != (models.CountryRecord{Code: "FR", Name: "France"}) {
		t.Errorf("unexpected selection %+v", snap.Selection)
	}
	if !snap.Legend.Visible || snap.Legend.FlagSrc != "https://flagcdn.com/fr.svg" || snap.Legend.Name != "France" {
		t.Errorf("unexpected legend %+v", snap.Legend)
	}

	snap = dispatch(t, s, Event{Type: EventMouseLeave})
	if snap.Selection != (models.CountryRecord{Code: "", Name: ""}) {
		t.Errorf("expected sentinel after leave, got %+v", snap.Selection)
	}
	if snap.Legend.Visible {
		t.Error("expected legend hidden after leave")
	}
}

func TestDispatch_IgnoresShapesWithoutListeners(t *testing.T) {
	emitted := 0
	s := New(mountedMap(t), selection.EmitterFunc(func(models.CountryRecord) { emitted++ }))

	snap := dispatch(t, s, Event{Type: EventMouseOver, ID: "DE"})
	if snap.Legend.Visible {
		t.Error("expected no selection for an unclassified shape")
	}
	dispatch(t, s, Event{Type: EventClick, ID: "DE"})
	dispatch(t, s, Event{Type: EventClick, ID: "XX_Nowhere"})
	if emitted != 0 {
		t.Errorf("expected no emissions, got %d", emitted)
	}
}

func TestDispatch_HoverUnknownIdentifierResetsSelection(t *testing.T) {
	s := New(mountedMap(t), nil)
	dispatch(t, s, Event{Type: EventMouseOver, ID: "FR_France"})

	for _, id := range []string{"garbage", "DE", "XX_Nowhere", ""} {
		dispatch(t, s, Event{Type: EventMouseOver, ID: "FR_France"})
		snap := dispatch(t, s, Event{Type: EventMouseOver, ID: id})
		if snap.Selection != (models.CountryRecord{}) {
			t.Errorf("mouseover %q: expected sentinel, got %+v", id, snap.Selection)
		}
		if snap.Legend.Visible {
			t.Errorf("mouseover %q: expected legend hidden", id)
		}
	}
}

func TestDispatch_ClickEmitsAndKeepsHover(t *testing.T) {
	var got []models.CountryRecord
	s := New(mountedMap(t), selection.EmitterFunc(func(rec models.CountryRecord) {
		got = append(got, rec)
	}))

	dispatch(t, s, Event{Type: EventMouseOver, ID: "BR_Bresil"})
	snap := dispatch(t, s, Event{Type: EventClick, ID: "BR_Bresil"})

	if len(got) != 1 || got[0] != (models.CountryRecord{Code: "BR", Name: "Bresil"}) {
		t.Errorf("unexpected emissions %+v", got)
	}
	if snap.Selection.Code != "BR" {
		t.Errorf("expected hover selection unchanged, got %+v", snap.Selection)
	}
}

func TestDispatch_MouseMovePlacesLegend(t *testing.T) {
	s := New(mountedMap(t), nil)

	snap := dispatch(t, s, Event{Type: EventMouseMove, Pointer: models.PointerPosition{X: 33, Y: -12}})
	if snap.Legend.Left != "49px" || snap.Legend.Top != "4px" {
		t.Errorf("unexpected legend position %s/%s", snap.Legend.Left, snap.Legend.Top)
	}
	if snap.Legend.Visible {
		t.Error("expected legend still hidden")
	}

	snap = dispatch(t, s, Event{Type: EventMouseOver, ID: "GN_Guinée"})
	if !snap.Legend.Visible || snap.Legend.Left != "49px" {
		t.Errorf("expected legend shown at last placement, got %+v", snap.Legend)
	}
}

func TestDispatch_ZoomButtonsAnimate(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(mountedMap(t), nil, WithClock(clock.Now))

	snap := dispatch(t, s, Event{Type: EventZoomIn})
	if snap.Target.K != 2 {
		t.Errorf("expected target scale 2, got %v", snap.Target.K)
	}
	if !snap.Transitioning || snap.Transform.K != 1 {
		t.Errorf("expected transition starting at scale 1, got %+v", snap)
	}

	clock.Advance(750 * time.Millisecond)
	snap = s.Snapshot()
	if snap.Transitioning || snap.Transform.K != 2 {
		t.Errorf("expected transition finished at scale 2, got %+v", snap)
	}

	dispatch(t, s, Event{Type: EventZoomOut})
	clock.Advance(time.Second)
	if k := s.Snapshot().Transform.K; k != 1 {
		t.Errorf("expected zoom out to return to scale 1, got %v", k)
	}
}

func TestDispatch_GestureAppliesImmediately(t *testing.T) {
	s := New(mountedMap(t), nil)

	snap := dispatch(t, s, Event{Type: EventZoomGesture, Transform: zoomTransform(4, -100, -50)})
	if snap.Transitioning {
		t.Error("expected gesture to apply without a transition")
	}
	if snap.Transform.K != 4 {
		t.Errorf("expected scale 4, got %v", snap.Transform.K)
	}

	snap = dispatch(t, s, Event{Type: EventZoomReset})
	if snap.Transform.K != 1 || snap.Transform.X != 0 || snap.Transform.Y != 0 {
		t.Errorf("expected identity after reset, got %+v", snap.Transform)
	}
}

func TestDispatch_UnknownType(t *testing.T) {
	s := New(mountedMap(t), nil)

	if _, err := s.Dispatch(Event{Type: "dblclick"}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected invalid input error, got %v", err)
	}
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Event
		wantErr bool
	}{
		{"zoom in", `{"type":"zoom_in"}`, Event{Type: EventZoomIn}, false},
		{"mouseover", `{"type":"mouseover","payload":{"id":"FR_France"}}`, Event{Type: EventMouseOver, ID: "FR_France"}, false},
		{"click", `{"type":"click","payload":{"id":"GN_Guinée"}}`, Event{Type: EventClick, ID: "GN_Guinée"}, false},
		{"mousemove", `{"type":"mousemove","payload":{"pageX":33,"pageY":-12}}`, Event{Type: EventMouseMove, Pointer: models.PointerPosition{X: 33, Y: -12}}, false},
		{"gesture", `{"type":"zoom_gesture","payload":{"k":2,"x":-10,"y":5}}`, Event{Type: EventZoomGesture, Transform: zoomTransform(2, -10, 5)}, false},
		{"leave null payload", `{"type":"mouseleave","payload":null}`, Event{Type: EventMouseLeave}, false},
		{"gesture without k", `{"type":"zoom_gesture","payload":{"x":1}}`, Event{}, true},
		{"unknown", `{"type":"dblclick"}`, Event{}, true},
		{"malformed", `{"type":`, Event{}, true},
		{"bad payload", `{"type":"click","payload":"FR_France"}`, Event{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidInput) {
					t.Errorf("expected invalid input error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

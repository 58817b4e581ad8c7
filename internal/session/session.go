// Package session is one viewer's interaction state: hover selection, zoom
// transform and legend placement over a mounted map.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/legend"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/metrics"
	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/render"
	"github.com/abrezinsky/cartepays/internal/selection"
	"github.com/abrezinsky/cartepays/internal/zoom"
)

// Event types accepted from the page
const (
	EventZoomIn      = "zoom_in"
	EventZoomOut     = "zoom_out"
	EventZoomGesture = "zoom_gesture"
	EventZoomReset   = "zoom_reset"
	EventMouseMove   = "mousemove"
	EventMouseOver   = render.EventMouseOver
	EventMouseLeave  = render.EventMouseLeave
	EventClick       = render.EventClick
)

// Event is a decoded viewer event
type Event struct {
	Type      string
	ID        string
	Pointer   models.PointerPosition
	Transform zoom.Transform
}

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wirePayload struct {
	ID    string   `json:"id"`
	PageX float64  `json:"pageX"`
	PageY float64  `json:"pageY"`
	K     *float64 `json:"k"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
}

// DecodeEvent parses {"type": ..., "payload": {...}} as sent by the page
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, errors.InvalidInputf("malformed event: %v", err)
	}

	var p wirePayload
	if len(w.Payload) > 0 && string(w.Payload) != "null" {
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return Event{}, errors.InvalidInputf("malformed %s payload: %v", w.Type, err)
		}
	}

	ev := Event{Type: w.Type}
	switch w.Type {
	case EventZoomIn, EventZoomOut, EventZoomReset, EventMouseLeave:
	case EventMouseOver, EventClick:
		ev.ID = p.ID
	case EventMouseMove:
		ev.Pointer = models.PointerPosition{X: p.PageX, Y: p.PageY}
	case EventZoomGesture:
		if p.K == nil {
			return Event{}, errors.InvalidInput("zoom_gesture requires k")
		}
		ev.Transform = zoom.Transform{K: *p.K, X: p.X, Y: p.Y}
	default:
		return Event{}, errors.InvalidInputf("unknown event type %q", w.Type)
	}
	return ev, nil
}

// Snapshot is what the page needs to redraw after an event
type Snapshot struct {
	Selection     models.CountryRecord `json:"selection"`
	Legend        legend.Legend        `json:"legend"`
	Transform     zoom.Transform       `json:"transform"`
	Target        zoom.Transform       `json:"target"`
	TransformAttr string               `json:"transformAttr"`
	Transitioning bool                 `json:"transitioning"`
	DurationMs    int64                `json:"durationMs"`
}

// Session serializes one viewer's events
type Session struct {
	id        string
	createdAt time.Time
	m         *render.Map
	log       logger.Logger

	mu        sync.Mutex
	selection *selection.Machine
	zoom      *zoom.Controller
	legend    *legend.Tracker
}

// Option customizes a Session
type Option func(*options)

type options struct {
	id    string
	clock func() time.Time
	log   logger.Logger
}

// WithID sets the session id instead of a random UUID
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithClock sets the clock driving zoom transitions
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// New starts a session over a mounted map. Clicked countries go to emit.
func New(m *render.Map, emit selection.Emitter, opts ...Option) *Session {
	o := options{log: logger.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	zc := m.ZoomConfig()
	zc.Clock = o.clock

	s := &Session{
		id:        o.id,
		createdAt: time.Now(),
		m:         m,
		log:       o.log.With("session", o.id),
		zoom:      zoom.New(zc),
		legend:    legend.NewTracker(),
	}
	s.selection = selection.NewMachine(selection.EmitterFunc(func(rec models.CountryRecord) {
		metrics.SelectionsTotal.WithLabelValues(rec.Code).Inc()
		s.log.Debug("Country selected", "code", rec.Code, "nom", rec.Name)
		if emit != nil {
			emit.EmitSelection(rec)
		}
	}))
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session started
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Dispatch applies one event and returns the resulting view. Hovering an
// identifier that names no selectable shape falls back to the sentinel;
// clicking one is ignored.
func (s *Session) Dispatch(ev Event) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case EventZoomIn:
		metrics.ZoomRequestsTotal.WithLabelValues("in").Inc()
		s.zoom.ZoomIn()
	case EventZoomOut:
		metrics.ZoomRequestsTotal.WithLabelValues("out").Inc()
		s.zoom.ZoomOut()
	case EventZoomGesture:
		metrics.ZoomRequestsTotal.WithLabelValues("gesture").Inc()
		s.zoom.Gesture(ev.Transform)
	case EventZoomReset:
		metrics.ZoomRequestsTotal.WithLabelValues("reset").Inc()
		s.zoom.Reset()
	case EventMouseMove:
		s.legend.Move(ev.Pointer)
	case EventMouseOver:
		if s.m.Selectable(ev.ID) {
			s.selection.HoverEnter(ev.ID)
		} else {
			s.selection.HoverLeave()
		}
	case EventMouseLeave:
		s.selection.HoverLeave()
	case EventClick:
		if s.m.Selectable(ev.ID) {
			s.selection.Click(ev.ID)
		}
	default:
		return s.snapshot(), errors.InvalidInputf("unknown event type %q", ev.Type)
	}

	metrics.InteractionEventsTotal.WithLabelValues(ev.Type).Inc()
	return s.snapshot(), nil
}

// Snapshot returns the current view without applying an event
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	state := s.selection.State()
	current := s.zoom.Current()
	return Snapshot{
		Selection:     state.Record(),
		Legend:        s.legend.View(state),
		Transform:     current,
		Target:        s.zoom.Target(),
		TransformAttr: current.String(),
		Transitioning: s.zoom.Transitioning(),
		DurationMs:    s.zoom.Config().Duration.Milliseconds(),
	}
}

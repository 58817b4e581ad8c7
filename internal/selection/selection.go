// Package selection implements the hover/selection state machine driven by
// pointer events on selectable country shapes.
package selection

import (
	"strings"

	"github.com/abrezinsky/cartepays/internal/models"
)

// State is either Unselected or Selected
type State interface {
	// Record returns the country for Selected and the empty sentinel
	// record for Unselected.
	Record() models.CountryRecord
	isState()
}

// Unselected means no country is hovered
type Unselected struct{}

func (Unselected) Record() models.CountryRecord { return models.CountryRecord{} }
func (Unselected) isState()                     {}

// Selected carries the hovered country
type Selected struct {
	Code string
	Name string
}

func (s Selected) Record() models.CountryRecord {
	return models.CountryRecord{Code: s.Code, Name: s.Name}
}
func (Selected) isState() {}

// Visible reports whether the legend should be shown for s
func Visible(s State) bool {
	_, ok := s.(Selected)
	return ok
}

// ParseIdentifier splits a "<code>_<name>" shape identifier on its first
// underscore. Names may themselves contain underscores. ok is false when
// the separator is missing or the code is empty.
func ParseIdentifier(id string) (code, name string, ok bool) {
	code, name, found := strings.Cut(id, "_")
	if !found || code == "" {
		return "", "", false
	}
	return code, name, true
}

// FormatIdentifier builds the "<code>_<name>" shape identifier parsed back
// by ParseIdentifier
func FormatIdentifier(code, name string) string {
	return code + "_" + name
}

// Emitter receives countries clicked on the map
type Emitter interface {
	EmitSelection(rec models.CountryRecord)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(rec models.CountryRecord)

func (f EmitterFunc) EmitSelection(rec models.CountryRecord) { f(rec) }

// Machine holds one viewer's selection. Handlers run on the viewer's event
// loop and are not safe for concurrent use.
type Machine struct {
	state State
	emit  Emitter
}

// NewMachine starts Unselected. A nil emitter drops click events.
func NewMachine(emit Emitter) *Machine {
	return &Machine{state: Unselected{}, emit: emit}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// HoverEnter selects the country encoded in the shape identifier. An
// identifier that does not parse clears the selection.
func (m *Machine) HoverEnter(identifier string) State {
	code, name, ok := ParseIdentifier(identifier)
	if !ok {
		m.state = Unselected{}
		return m.state
	}
	m.state = Selected{Code: code, Name: name}
	return m.state
}

// HoverLeave clears the selection whatever the current state
func (m *Machine) HoverLeave() State {
	m.state = Unselected{}
	return m.state
}

// Click emits the clicked country without touching the hover state.
// It reports false when the identifier does not parse.
func (m *Machine) Click(identifier string) (models.CountryRecord, bool) {
	code, name, ok := ParseIdentifier(identifier)
	if !ok {
		return models.CountryRecord{}, false
	}
	rec := models.CountryRecord{Code: code, Name: name}
	if m.emit != nil {
		m.emit.EmitSelection(rec)
	}
	return rec, true
}

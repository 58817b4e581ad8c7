// Package legend places the floating country legend next to the pointer.
package legend

import (
	"strconv"
	"strings"

	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/selection"
)

// Offset is added to both pointer coordinates
const Offset = 16

// FlagBaseURL hosts one SVG flag per lowercase country code
const FlagBaseURL = "https://flagcdn.com/"

// Placement is the legend's top-left corner in page coordinates
type Placement struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Position offsets the pointer position by Offset on both axes
func Position(p models.PointerPosition) Placement {
	return Placement{Left: p.X + Offset, Top: p.Y + Offset}
}

// CSS returns the placement as style declarations
func (p Placement) CSS() map[string]string {
	return map[string]string{
		"left": px(p.Left),
		"top":  px(p.Top),
	}
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// FlagURL returns the flag image URL for a country code
func FlagURL(code string) string {
	if code == "" {
		return ""
	}
	return FlagBaseURL + strings.ToLower(code) + ".svg"
}

// Legend is the view model the page renders
type Legend struct {
	Visible bool   `json:"visible"`
	FlagSrc string `json:"flagSrc"`
	Name    string `json:"nom"`
	Left    string `json:"left"`
	Top     string `json:"top"`
}

// Tracker keeps the last pointer placement for one viewer. Placement is
// updated on every move whether or not a country is selected.
type Tracker struct {
	placement Placement
}

// NewTracker starts at the origin plus Offset
func NewTracker() *Tracker {
	return &Tracker{placement: Position(models.PointerPosition{})}
}

// Move records a pointer move and returns the new placement
func (t *Tracker) Move(p models.PointerPosition) Placement {
	t.placement = Position(p)
	return t.placement
}

// Placement returns the last computed placement
func (t *Tracker) Placement() Placement {
	return t.placement
}

// View builds the legend for a selection state at the last placement
func (t *Tracker) View(state selection.State) Legend {
	return Build(state, t.placement)
}

// Build assembles a legend from a selection state and a placement
func Build(state selection.State, p Placement) Legend {
	css := p.CSS()
	l := Legend{
		Visible: selection.Visible(state),
		Left:    css["left"],
		Top:     css["top"],
	}
	if sel, ok := state.(selection.Selected); ok {
		l.FlagSrc = FlagURL(sel.Code)
		l.Name = sel.Name
	}
	return l
}

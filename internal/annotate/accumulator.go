// Package annotate accumulates decoded attention events into a renderable
// stream state and governs whether focus follows the stream (live) or is
// pinned by the user (frozen).
package annotate

import (
	"math"

	"github.com/ppiankov/llmxray/internal/model"
)

// DefaultAmplification spreads raw similarity scores, which cluster near
// zero, over the visible intensity range
const DefaultAmplification = 4.0

// Accumulator holds the state of one attention stream.
//
// It is not safe for concurrent use. Decoder events and hover callbacks must
// be applied from the same goroutine; when they interleave the later call
// wins.
type Accumulator struct {
	state         model.StreamState
	amplification float64
}

// New creates an accumulator in its initial state. A non-positive
// amplification falls back to DefaultAmplification.
func New(amplification float64) *Accumulator {
	if amplification <= 0 {
		amplification = DefaultAmplification
	}
	return &Accumulator{
		state:         model.InitialStreamState(),
		amplification: amplification,
	}
}

// Append adds the event's unit, replaces the context units and, in live
// mode, moves focus to the new unit. Append never changes the mode.
func (a *Accumulator) Append(event model.AnnotationEvent) {
	a.state.Units = append(a.state.Units, model.AnnotatedUnit{
		Unit:   event.Unit,
		Scores: cloneScores(event.Scores),
	})
	a.state.ContextUnits = append([]string(nil), event.ContextUnits...)

	if a.state.Live {
		a.state.Focus = len(a.state.Units) - 1
	}
}

// Focus freezes focus on the unit at index. It returns false and leaves the
// state untouched when index does not name an appended unit.
func (a *Accumulator) Focus(index int) bool {
	if index < 0 || index >= len(a.state.Units) {
		return false
	}
	a.state.Focus = index
	a.state.Live = false
	return true
}

// Unfocus resumes live mode with focus on the newest unit
func (a *Accumulator) Unfocus() {
	a.state.Live = true
	a.state.Focus = len(a.state.Units) - 1 // NoFocus when empty
}

// Reset returns the accumulator to its initial state
func (a *Accumulator) Reset() {
	a.state = model.InitialStreamState()
}

// Len returns the number of appended units
func (a *Accumulator) Len() int {
	return len(a.state.Units)
}

// Live reports whether focus follows the newest unit
func (a *Accumulator) Live() bool {
	return a.state.Live
}

// FocusIndex returns the focused index or model.NoFocus
func (a *Accumulator) FocusIndex() int {
	return a.state.Focus
}

// Focused returns the focused unit, if any
func (a *Accumulator) Focused() (model.AnnotatedUnit, bool) {
	if a.state.Focus == model.NoFocus {
		return model.AnnotatedUnit{}, false
	}
	return a.state.Units[a.state.Focus], true
}

// State returns a copy of the current state
func (a *Accumulator) State() model.StreamState {
	s := model.StreamState{
		ContextUnits: append([]string(nil), a.state.ContextUnits...),
		Focus:        a.state.Focus,
		Live:         a.state.Live,
	}
	if len(a.state.Units) > 0 {
		s.Units = make([]model.AnnotatedUnit, len(a.state.Units))
		for i, u := range a.state.Units {
			s.Units[i] = model.AnnotatedUnit{Unit: u.Unit, Scores: cloneScores(u.Scores)}
		}
	}
	return s
}

// Intensities returns the display intensity of every context unit, in [0,1],
// derived from the focused unit's scores. Everything is zero without focus.
func (a *Accumulator) Intensities() []float64 {
	out := make([]float64, len(a.state.ContextUnits))
	focused, ok := a.Focused()
	if !ok {
		return out
	}
	for i := range out {
		if i < len(focused.Scores) {
			out[i] = Intensity(focused.Scores[i], a.amplification)
		}
	}
	return out
}

// Intensity amplifies a raw score and clamps it to [0,1]
func Intensity(score, amplification float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score*amplification))
}

func cloneScores(scores []float64) []float64 {
	if scores == nil {
		return nil
	}
	return append([]float64(nil), scores...)
}

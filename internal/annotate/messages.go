package annotate

import "github.com/ppiankov/llmxray/internal/model"

// Msg is an input to the interaction state machine
type Msg interface {
	isMsg()
}

// EventMsg carries one decoded stream event
type EventMsg struct {
	Event model.AnnotationEvent
}

// HoverMsg reports the user entering the unit at Index
type HoverMsg struct {
	Index int
}

// LeaveMsg reports the user leaving a hovered unit
type LeaveMsg struct{}

// ResetMsg starts over for a new stream
type ResetMsg struct{}

func (EventMsg) isMsg() {}
func (HoverMsg) isMsg() {}
func (LeaveMsg) isMsg() {}
func (ResetMsg) isMsg() {}

// Update applies msg to the accumulator. It reports whether the state
// changed.
func (a *Accumulator) Update(msg Msg) bool {
	switch m := msg.(type) {
	case EventMsg:
		a.Append(m.Event)
		return true
	case HoverMsg:
		return a.Focus(m.Index)
	case LeaveMsg:
		a.Unfocus()
		return true
	case ResetMsg:
		a.Reset()
		return true
	default:
		return false
	}
}

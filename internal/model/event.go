package model

// AnnotationEvent is one decoded frame of the attention stream
type AnnotationEvent struct {
	Unit         string    `json:"word"`   // Newly generated response unit
	Scores       []float64 `json:"scores"` // Similarity of Unit to each context unit
	ContextUnits []string  `json:"tokens"` // Full replacement of the context partition
}

// AnnotatedUnit is a response unit with the scores it arrived with.
// Units are immutable once appended to a stream.
type AnnotatedUnit struct {
	Unit   string    `json:"word"`
	Scores []float64 `json:"scores"`
}

// NoFocus marks a StreamState with nothing focused
const NoFocus = -1

// StreamState is the renderable state of one attention stream
type StreamState struct {
	Units        []AnnotatedUnit `json:"units"`         // Append-only within a stream
	ContextUnits []string        `json:"context_units"` // Last write wins
	Focus        int             `json:"focus"`         // Index into Units, or NoFocus
	Live         bool            `json:"live"`          // Focus follows the newest unit
}

// InitialStreamState returns the state a new stream starts in
func InitialStreamState() StreamState {
	return StreamState{
		Focus: NoFocus,
		Live:  true,
	}
}

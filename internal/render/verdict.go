// Package render draws highlight runs and attention heat for terminals and
// HTML. It computes nothing beyond presentation.
package render

import (
	"github.com/ppiankov/llmxray/internal/factcheck"
	"github.com/ppiankov/llmxray/internal/model"
)

// Tone is the sentiment a verdict is displayed with
type Tone string

const (
	TonePositive Tone = "positive"
	ToneCaution  Tone = "caution"
	ToneNegative Tone = "negative"
)

// VerdictStyle describes how a verdict is displayed
type VerdictStyle struct {
	Tone       Tone
	Label      string
	Glyph      string
	Color      string
	Background string
}

var verdictStyles = map[model.Verdict]VerdictStyle{
	model.VerdictVerified:      {Tone: TonePositive, Label: "VERIFIED", Glyph: "✓", Color: "#06d6a0", Background: "#06d6a018"},
	model.VerdictUncertain:     {Tone: ToneCaution, Label: "UNCERTAIN", Glyph: "?", Color: "#ffd166", Background: "#ffd16618"},
	model.VerdictHallucination: {Tone: ToneNegative, Label: "HALLUCINATION", Glyph: "✗", Color: "#ef476f", Background: "#ef476f18"},
}

// StyleFor returns the display style of v. Unknown verdicts are shown as
// uncertain.
func StyleFor(v model.Verdict) VerdictStyle {
	if s, ok := verdictStyles[v]; ok {
		return s
	}
	return verdictStyles[model.VerdictUncertain]
}

// Tooltip returns "LABEL: reason" for a claimed run, using the first claim
// attributed to it. The reason is empty when no claim is attributed.
func Tooltip(run model.HighlightRun, claims []model.Claim) string {
	if run.Verdict == model.VerdictNone {
		return ""
	}
	reason := ""
	if claim, ok := factcheck.Attribute(run, claims); ok {
		reason = claim.Reason
	}
	return StyleFor(run.Verdict).Label + ": " + reason
}

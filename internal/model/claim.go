package model

// Claim represents a factual assertion found in a response, as judged by an auditor
type Claim struct {
	Text    string  `json:"claim"`            // The asserted text, matched against the response by substring
	Verdict Verdict `json:"verdict"`          // Auditor verdict
	Reason  string  `json:"reason,omitempty"` // Short justification shown as tooltip
}

// Verdict classifies how well a claim held up under audit
type Verdict string

const (
	VerdictNone          Verdict = ""              // Untouched text
	VerdictVerified      Verdict = "verified"      // Claim is consistent with known facts
	VerdictUncertain     Verdict = "uncertain"     // Claim could not be confirmed
	VerdictHallucination Verdict = "hallucination" // Claim appears fabricated
)

// Verdicts lists the known verdicts in display order
var Verdicts = []Verdict{VerdictVerified, VerdictUncertain, VerdictHallucination}

// Known reports whether v is one of the defined verdicts
func (v Verdict) Known() bool {
	switch v {
	case VerdictVerified, VerdictUncertain, VerdictHallucination:
		return true
	default:
		return false
	}
}

// HighlightRun is one piece of a partitioned text. Concatenating the Text of
// every run of a segmentation reproduces the input exactly.
type HighlightRun struct {
	Text    string  `json:"text"`
	Verdict Verdict `json:"verdict,omitempty"` // VerdictNone when unclaimed
}

// Package factcheck overlays audited claims onto response text.
package factcheck

import (
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/llmxray/internal/model"
)

// Segment partitions text into runs, tagging the first case-insensitive
// occurrence of each claim's text with the claim's verdict.
//
// Claims are applied in the given order and only unclaimed runs are searched,
// so when two claims overlap the one listed first wins. Concatenating the
// returned runs always reproduces text.
func Segment(text string, claims []model.Claim) []model.HighlightRun {
	runs := []model.HighlightRun{{Text: text}}

	for _, claim := range claims {
		if claim.Text == "" {
			continue
		}

		next := make([]model.HighlightRun, 0, len(runs)+2)
		for _, run := range runs {
			if run.Verdict != model.VerdictNone {
				next = append(next, run)
				continue
			}

			start, end := indexFold(run.Text, claim.Text)
			if start < 0 {
				next = append(next, run)
				continue
			}

			next = appendRun(next, run.Text[:start], model.VerdictNone)
			next = appendRun(next, run.Text[start:end], claim.Verdict)
			next = appendRun(next, run.Text[end:], model.VerdictNone)
		}
		runs = next
	}

	return runs
}

// Attribute finds the claim to show for a run: the first claim with the
// run's verdict whose text occurs in the run, ignoring case. Claims sharing
// wording can be mis-attributed.
func Attribute(run model.HighlightRun, claims []model.Claim) (model.Claim, bool) {
	if run.Verdict == model.VerdictNone {
		return model.Claim{}, false
	}
	for _, claim := range claims {
		if claim.Verdict != run.Verdict || claim.Text == "" {
			continue
		}
		if start, _ := indexFold(run.Text, claim.Text); start >= 0 {
			return claim, true
		}
	}
	return model.Claim{}, false
}

// Occurs reports whether quote appears in text under the same
// case-insensitive matching Segment uses
func Occurs(text, quote string) bool {
	start, _ := indexFold(text, quote)
	return start >= 0
}

func appendRun(runs []model.HighlightRun, text string, verdict model.Verdict) []model.HighlightRun {
	if text == "" {
		return runs
	}
	return append(runs, model.HighlightRun{Text: text, Verdict: verdict})
}

// indexFold returns the byte span in s of the first occurrence of substr
// under Unicode simple case folding, or (-1, -1). Offsets always fall on
// rune boundaries of s.
func indexFold(s, substr string) (start, end int) {
	if substr == "" {
		return -1, -1
	}
	for i := 0; i < len(s); {
		if n, ok := prefixFold(s[i:], substr); ok {
			return i, i + n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// prefixFold reports whether s starts with prefix ignoring case, and how many
// bytes of s the match covers
func prefixFold(s, prefix string) (int, bool) {
	i := 0
	for _, pr := range prefix {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if !equalFoldRune(sr, pr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

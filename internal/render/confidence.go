package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/llmxray/internal/model"
)

// TemperatureMeta labels a backend sampling temperature
type TemperatureMeta struct {
	Label       string
	Color       string
	Description string
}

var temperatureMeta = map[float64]TemperatureMeta{
	0.1: {Label: "CONSERVATIVE", Color: "#4D96FF", Description: "safe, predictable, repetitive"},
	0.7: {Label: "BALANCED", Color: "#06d6a0", Description: "default model behavior"},
	1.5: {Label: "CHAOTIC", Color: "#ef476f", Description: "creative, risky, unpredictable"},
}

// MetaFor returns the label of temperature t. Temperatures the backend does
// not normally use get a neutral "T=<t>" label.
func MetaFor(t float64) TemperatureMeta {
	if m, ok := temperatureMeta[t]; ok {
		return m
	}
	return TemperatureMeta{Label: fmt.Sprintf("T=%g", t), Color: "#888888"}
}

// Bands splits self-reported confidence into three tones
type Bands struct {
	High   float64
	Medium float64
}

// ToneFor maps score to positive at or above High, caution at or above
// Medium and negative below
func (b Bands) ToneFor(score float64) Tone {
	switch {
	case score >= b.High:
		return TonePositive
	case score >= b.Medium:
		return ToneCaution
	default:
		return ToneNegative
	}
}

var toneColors = map[Tone]string{
	TonePositive: "#06d6a0",
	ToneCaution:  "#ffd166",
	ToneNegative: "#ef476f",
}

// ColorFor returns the display color of score
func (b Bands) ColorFor(score float64) string {
	return toneColors[b.ToneFor(score)]
}

// tokenPalette cycles over token chips by position
var tokenPalette = []string{
	"#ff6b35", "#ffd166", "#06d6a0", "#4D96FF",
	"#c77dff", "#ef476f", "#00C9A7", "#f7c59f",
}

// TokenColor returns the chip color of the token at index i
func TokenColor(i int) string {
	return tokenPalette[i%len(tokenPalette)]
}

// TemperatureRuns renders each run as a header with its average confidence
// followed by its sentences and their scores
func (t *Terminal) TemperatureRuns(runs []model.TemperatureRun, bands Bands) string {
	var b strings.Builder
	for i, run := range runs {
		if i > 0 {
			b.WriteString("\n")
		}
		meta := MetaFor(run.Temperature)

		header := fmt.Sprintf("%s  T=%g", meta.Label, run.Temperature)
		if t.color {
			header = t.r.NewStyle().Foreground(lipgloss.Color(meta.Color)).Bold(true).Render(header)
		}
		avg := run.AverageConfidence()
		fmt.Fprintf(&b, "%s  avg confidence %s\n", header, t.percent(avg, bands))
		if meta.Description != "" {
			desc := meta.Description
			if t.color {
				desc = t.r.NewStyle().Foreground(colorMuted).Render(desc)
			}
			fmt.Fprintf(&b, "%s\n", desc)
		}

		for j, sentence := range run.Sentences {
			fmt.Fprintf(&b, "  %s  %s\n", t.percent(run.Confidence(j), bands), sentence)
		}
	}
	return b.String()
}

func (t *Terminal) percent(score float64, bands Bands) string {
	s := fmt.Sprintf("%3.0f%%", score*100)
	if !t.color {
		return s
	}
	return t.r.NewStyle().Foreground(lipgloss.Color(bands.ColorFor(score))).Render(s)
}

// Tokens renders tokens as chips colored by position, one space apart.
// Whitespace-only tokens draw no chip.
func (t *Terminal) Tokens(tokens []string) string {
	var b strings.Builder
	gap := false
	for i, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			gap = true
			continue
		}
		if b.Len() > 0 || gap {
			b.WriteString(" ")
		}
		gap = false
		if !t.color {
			fmt.Fprintf(&b, "[%s]", tok)
			continue
		}
		b.WriteString(t.r.NewStyle().Foreground(lipgloss.Color(TokenColor(i))).Bold(true).Render(tok))
	}
	return b.String()
}

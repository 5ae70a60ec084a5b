package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/llmxray/internal/factcheck"
	"github.com/ppiankov/llmxray/internal/model"
)

// Colors shared by the terminal views
var (
	colorFocus = lipgloss.Color("#c77dff")
	colorText  = lipgloss.Color("#cccccc")
	colorMuted = lipgloss.Color("#666666")
	colorDim   = lipgloss.Color("#aaaaaa")
	colorWhite = lipgloss.Color("#ffffff")
)

// Terminal renders highlight models as styled terminal text. Without color
// it falls back to bracket markers.
type Terminal struct {
	r          *lipgloss.Renderer
	color      bool
	brightText float64
}

// NewTerminal creates a terminal renderer writing to w. brightText is the
// heat intensity above which context units switch to bright text.
func NewTerminal(w io.Writer, color bool, brightText float64) *Terminal {
	return &Terminal{
		r:          lipgloss.NewRenderer(w),
		color:      color,
		brightText: brightText,
	}
}

// Runs renders fact-checked text
func (t *Terminal) Runs(runs []model.HighlightRun) string {
	var b strings.Builder
	for _, run := range runs {
		if run.Verdict == model.VerdictNone {
			b.WriteString(run.Text)
			continue
		}
		vs := StyleFor(run.Verdict)
		if !t.color {
			fmt.Fprintf(&b, "[%s %s]", vs.Glyph, run.Text)
			continue
		}
		style := t.r.NewStyle().Foreground(lipgloss.Color(vs.Color)).Underline(true)
		b.WriteString(styleLines(style, run.Text))
	}
	return b.String()
}

// Counts renders the per-verdict summary row
func (t *Terminal) Counts(counts factcheck.Counts) string {
	parts := make([]string, 0, len(model.Verdicts))
	for _, v := range model.Verdicts {
		vs := StyleFor(v)
		badge := fmt.Sprintf("%d %s", counts[v], vs.Label)
		if t.color {
			badge = t.r.NewStyle().Foreground(lipgloss.Color(vs.Color)).Bold(true).Padding(0, 1).Render(badge)
		}
		parts = append(parts, badge)
	}
	return strings.Join(parts, "  ")
}

// Breakdown renders one entry per claim with its glyph and reason
func (t *Terminal) Breakdown(claims []model.Claim) string {
	if len(claims) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("CLAIMS BREAKDOWN\n")
	for _, c := range claims {
		vs := StyleFor(c.Verdict)
		glyph := vs.Glyph
		reason := c.Reason
		if t.color {
			glyph = t.r.NewStyle().Foreground(lipgloss.Color(vs.Color)).Bold(true).Render(glyph)
			reason = t.r.NewStyle().Foreground(colorMuted).Render(reason)
		}
		fmt.Fprintf(&b, "%s %q\n", glyph, c.Text)
		if c.Reason != "" {
			fmt.Fprintf(&b, "  %s\n", reason)
		}
	}
	return b.String()
}

// ContextHeat renders the context units shaded by their intensities
func (t *Terminal) ContextHeat(units []string, intensities []float64) string {
	parts := make([]string, 0, len(units))
	for i, u := range units {
		intensity := 0.0
		if i < len(intensities) {
			intensity = intensities[i]
		}
		if !t.color {
			if intensity > 0 {
				parts = append(parts, fmt.Sprintf("%s·%.2f", u, intensity))
			} else {
				parts = append(parts, u)
			}
			continue
		}
		heat := HeatFor(intensity)
		fg := colorDim
		if intensity > t.brightText {
			fg = colorWhite
		}
		style := t.r.NewStyle().Background(lipgloss.Color(heat.Hex())).Foreground(fg).Padding(0, 1)
		parts = append(parts, style.Render(u))
	}
	return strings.Join(parts, " ")
}

// Units renders the response units with the focused one highlighted
func (t *Terminal) Units(units []model.AnnotatedUnit, focus int) string {
	var b strings.Builder
	for i, u := range units {
		switch {
		case !t.color && i == focus:
			fmt.Fprintf(&b, "[%s]", u.Unit)
		case !t.color:
			b.WriteString(u.Unit)
		case i == focus:
			b.WriteString(styleLines(t.r.NewStyle().Foreground(colorFocus).Bold(true), u.Unit))
		default:
			b.WriteString(styleLines(t.r.NewStyle().Foreground(colorText), u.Unit))
		}
	}
	return b.String()
}

// styleLines styles each line separately so lipgloss never pads or
// realigns the original whitespace
func styleLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

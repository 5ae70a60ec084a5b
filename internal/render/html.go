package render

import (
	"fmt"
	"io"

	"github.com/ppiankov/llmxray/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML writes fact-checked text as a <div> of text nodes and verdict spans.
// Text is escaped by the renderer, so the visible text equals the input.
func HTML(w io.Writer, runs []model.HighlightRun, claims []model.Claim) error {
	root := element(atom.Div, html.Attribute{Key: "class", Val: "llmxray-factcheck"})

	for _, run := range runs {
		if run.Verdict == model.VerdictNone {
			root.AppendChild(text(run.Text))
			continue
		}
		vs := StyleFor(run.Verdict)
		span := element(atom.Span,
			html.Attribute{Key: "class", Val: "verdict verdict-" + string(vs.Tone)},
			html.Attribute{Key: "data-verdict", Val: string(run.Verdict)},
			html.Attribute{Key: "title", Val: Tooltip(run, claims)},
			html.Attribute{Key: "style", Val: fmt.Sprintf("background:%s;color:%s;border-bottom:2px solid %s", vs.Background, vs.Color, vs.Color)},
		)
		span.AppendChild(text(run.Text))
		root.AppendChild(span)
	}

	return html.Render(w, root)
}

// AttentionHTML writes the context units shaded by intensity followed by the
// response units, marking the focused one
func AttentionHTML(w io.Writer, state model.StreamState, intensities []float64, brightText float64) error {
	root := element(atom.Div, html.Attribute{Key: "class", Val: "llmxray-attention"})

	prompt := element(atom.Div, html.Attribute{Key: "class", Val: "context"})
	for i, u := range state.ContextUnits {
		intensity := 0.0
		if i < len(intensities) {
			intensity = intensities[i]
		}
		heat := HeatFor(intensity)
		fg := "#aaa"
		if intensity > brightText {
			fg = "#fff"
		}
		span := element(atom.Span,
			html.Attribute{Key: "data-intensity", Val: fmt.Sprintf("%.3f", heat.Intensity)},
			html.Attribute{Key: "style", Val: fmt.Sprintf("background:%s;color:%s;border:1px solid %s", heat.CSS(), fg, heat.BorderCSS())},
		)
		span.AppendChild(text(u))
		prompt.AppendChild(span)
	}
	root.AppendChild(prompt)

	response := element(atom.Div, html.Attribute{Key: "class", Val: "response"})
	for i, u := range state.Units {
		attrs := []html.Attribute{{Key: "data-index", Val: fmt.Sprint(i)}}
		if i == state.Focus {
			attrs = append(attrs, html.Attribute{Key: "class", Val: "focused"})
		}
		span := element(atom.Span, attrs...)
		span.AppendChild(text(u.Unit))
		response.AppendChild(span)
	}
	root.AppendChild(response)

	return html.Render(w, root)
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

package render

import (
	"fmt"
	"math"
)

// Heat is the display color of one context unit
type Heat struct {
	R, G, B   int
	Alpha     float64
	Intensity float64
}

// HeatFor maps an intensity in [0,1] from dark to vivid purple
func HeatFor(intensity float64) Heat {
	i := math.Max(0, math.Min(1, intensity))
	if math.IsNaN(intensity) {
		i = 0
	}
	return Heat{
		R:         int(math.Round(80 + i*120)),
		G:         int(math.Round(20 + i*20)),
		B:         int(math.Round(180 + i*75)),
		Alpha:     0.15 + i*0.75,
		Intensity: i,
	}
}

// CSS returns the color as an rgba() value
func (h Heat) CSS() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%.2f)", h.R, h.G, h.B, h.Alpha)
}

// BorderCSS returns the outline color used around a heated unit
func (h Heat) BorderCSS() string {
	return fmt.Sprintf("rgba(180,80,255,%.2f)", h.Intensity*0.6)
}

// Hex flattens the color onto the panel background, for terminals without
// alpha blending
func (h Heat) Hex() string {
	blend := func(fg, bg int) int {
		return int(math.Round(float64(bg) + (float64(fg)-float64(bg))*h.Alpha))
	}
	return fmt.Sprintf("#%02x%02x%02x", blend(h.R, panelRGB), blend(h.G, panelRGB), blend(h.B, panelRGB))
}

// panelRGB is each channel of the #0d0d0d panel background
const panelRGB = 0x0d

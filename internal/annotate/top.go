package annotate

import "sort"

// RankedUnit is a context unit with its display intensity
type RankedUnit struct {
	Index     int
	Unit      string
	Intensity float64
}

// TopContext returns the n context units with the highest intensity for
// scores, strongest first. Ties keep context order.
func TopContext(contextUnits []string, scores []float64, n int, amplification float64) []RankedUnit {
	if amplification <= 0 {
		amplification = DefaultAmplification
	}

	ranked := make([]RankedUnit, 0, len(contextUnits))
	for i, u := range contextUnits {
		intensity := 0.0
		if i < len(scores) {
			intensity = Intensity(scores[i], amplification)
		}
		ranked = append(ranked, RankedUnit{Index: i, Unit: u, Intensity: intensity})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Intensity > ranked[j].Intensity
	})

	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

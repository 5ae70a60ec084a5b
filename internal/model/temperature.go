package model

// DefaultConfidence stands in for a sentence the model gave no score for
const DefaultConfidence = 0.5

// TemperatureRun is one generation of a prompt at a fixed temperature with
// the model's self-reported confidence per sentence
type TemperatureRun struct {
	Temperature float64   `json:"temperature"`
	Sentences   []string  `json:"sentences"`
	Scores      []float64 `json:"scores"` // Parallel to Sentences, may be shorter
}

// Confidence returns the score of sentence i
func (r TemperatureRun) Confidence(i int) float64 {
	if i < 0 || i >= len(r.Scores) {
		return DefaultConfidence
	}
	return r.Scores[i]
}

// AverageConfidence is the mean of the reported scores, 0 without scores
func (r TemperatureRun) AverageConfidence() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range r.Scores {
		sum += s
	}
	return sum / float64(len(r.Scores))
}

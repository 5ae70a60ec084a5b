package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopContext(t *testing.T) {
	units := []string{"The", "sky", "is", "blue"}
	scores := []float64{0.05, 0.2, 0.05, 0.1}

	top := TopContext(units, scores, 3, 4)
	assert.Equal(t, []RankedUnit{
		{Index: 1, Unit: "sky", Intensity: 0.8},
		{Index: 3, Unit: "blue", Intensity: 0.4},
		{Index: 0, Unit: "The", Intensity: 0.2},
	}, top)
}

func TestTopContext_ShortScores(t *testing.T) {
	top := TopContext([]string{"a", "b", "c"}, []float64{0.1}, 10, 0)
	assert.Len(t, top, 3)
	assert.Equal(t, "a", top[0].Unit)
	assert.InDelta(t, 0.4, top[0].Intensity, 1e-9)
	assert.Zero(t, top[1].Intensity)
}

func TestTopContext_Empty(t *testing.T) {
	assert.Empty(t, TopContext(nil, nil, 3, 4))
	assert.Empty(t, TopContext([]string{"a"}, []float64{1}, 0, 4))
}

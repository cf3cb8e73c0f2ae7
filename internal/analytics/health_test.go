package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHealthScore_Saturation(t *testing.T) {
	// Every metric exactly at its cap saturates the composite at 100.
	score := CalculateHealthScore(map[string]interface{}{
		"openrank":     1000.0,
		"stars":        50000.0,
		"contributors": 1000.0,
		"participants": 5000.0,
		"forks":        20000.0,
		"commits":      100000.0,
	})
	assert.Equal(t, 100, score)
}

func TestCalculateHealthScore_NoRecognizedMetrics(t *testing.T) {
	assert.Equal(t, 0, CalculateHealthScore(map[string]interface{}{}))
	assert.Equal(t, 0, CalculateHealthScore(map[string]interface{}{"velocity": 10.0}))
}

func TestCalculateHealthScore_AbsentWeightsExcluded(t *testing.T) {
	// Only stars present: the blend is over the stars weight alone, so a
	// saturated stars value alone still scores 100.
	score := CalculateHealthScore(map[string]interface{}{"stars": 50000.0})
	assert.Equal(t, 100, score)
}

func TestCalculateHealthScore_LogNormalization(t *testing.T) {
	// log10(1000)/log10(50000) of the way to the stars cap.
	score := CalculateHealthScore(map[string]interface{}{"stars": 1000.0})
	assert.Equal(t, 64, score) // 3/4.69897 * 100 rounded
}

func TestCalculateHealthScore_ValuesBelowOneClampToZero(t *testing.T) {
	score := CalculateHealthScore(map[string]interface{}{"stars": 0.5})
	assert.Equal(t, 0, score)
}

func TestCalculateHealthScore_SeriesPayloadsUseLatestValue(t *testing.T) {
	series := map[string]interface{}{"2023-01": 100.0, "2023-02": 50000.0}
	score := CalculateHealthScore(map[string]interface{}{"stars": series})
	assert.Equal(t, 100, score)
}

func TestCalculateHealthScore_BoundedRange(t *testing.T) {
	score := CalculateHealthScore(map[string]interface{}{"stars": 1e12})
	assert.Equal(t, 100, score)
}

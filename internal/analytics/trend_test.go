package analytics

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss-insights-mcp/pkg/types"
)

func monthlySeries(startYear int, values []float64) map[string]interface{} {
	series := make(map[string]interface{}, len(values))
	year := startYear
	month := 1
	for _, v := range values {
		series[fmt.Sprintf("%04d-%02d", year, month)] = v
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return series
}

func TestProcessTrendData_FlatSeries(t *testing.T) {
	analysis := ProcessTrendData(map[string]interface{}{
		"2023-01": 10.0,
		"2023-02": 10.0,
		"2023-03": 10.0,
	}, "3m")

	assert.Equal(t, 3, analysis.PointCount)
	assert.Equal(t, types.DirectionStable, analysis.Trend.Direction)
	assert.Equal(t, 0.0, analysis.Trend.TotalGrowth)
	assert.Equal(t, "0.00%", analysis.Trend.GrowthRate)
	assert.Equal(t, types.MomentumInsufficient, analysis.Trend.Momentum)
	assert.Empty(t, analysis.Patterns.Phases)
	assert.False(t, analysis.Patterns.Seasonal)
}

func TestProcessTrendData_EmptyAndNonSeriesInputs(t *testing.T) {
	for _, raw := range []interface{}{nil, 42.0, map[string]interface{}{}, "text", map[string]interface{}{"total": 5.0}} {
		analysis := ProcessTrendData(raw, "6m")

		assert.Equal(t, 0, analysis.PointCount)
		assert.Nil(t, analysis.TimeRange)
		assert.Equal(t, types.DirectionStable, analysis.Trend.Direction)
		assert.Equal(t, types.MomentumInsufficient, analysis.Trend.Momentum)
		assert.Equal(t, types.VolatilityLow, analysis.Trend.Volatility)
		assert.Empty(t, analysis.Patterns.Phases)
	}
}

func TestProcessTrendData_DoublingSeries(t *testing.T) {
	// A 12-point series that doubles over the window with an identical
	// month-to-month ratio.
	values := make([]float64, 12)
	for i := range values {
		values[i] = 100 * math.Pow(2, float64(i)/11)
	}
	analysis := ProcessTrendData(monthlySeries(2023, values), "12m")

	assert.Equal(t, 12, analysis.PointCount)
	assert.Equal(t, types.DirectionIncreasing, analysis.Trend.Direction)
	assert.Contains(t, []string{types.VolatilityLow, types.VolatilityMedium}, analysis.Trend.Volatility)
	assert.Equal(t, types.MomentumAccelerating, analysis.Trend.Momentum)
	assert.False(t, analysis.Patterns.Seasonal)

	// Every step exceeds the growth bound, so the whole window is one phase.
	require.Len(t, analysis.Patterns.Phases, 1)
	phase := analysis.Patterns.Phases[0]
	assert.Equal(t, types.PhaseGrowth, phase.Phase)
	assert.Equal(t, "2023-01", phase.StartDate)
	assert.Equal(t, "2023-12", phase.EndDate)
	assert.InDelta(t, 100.0, phase.Growth, 0.01)
}

func TestProcessTrendData_Statistics(t *testing.T) {
	analysis := ProcessTrendData(map[string]interface{}{
		"2023-01": 4.0,
		"2023-02": 1.0,
		"2023-03": 9.0,
		"2023-04": 6.0,
	}, "")

	assert.Equal(t, 4.0, analysis.Stats.First)
	assert.Equal(t, 6.0, analysis.Stats.Last)
	assert.Equal(t, 9.0, analysis.Stats.Peak)
	assert.Equal(t, 1.0, analysis.Stats.Lowest)
	assert.Equal(t, 5.0, analysis.Stats.Average)
	// Even count: mean of the two middle sorted values (4 and 6).
	assert.Equal(t, 5.0, analysis.Stats.Median)
	require.NotNil(t, analysis.TimeRange)
	assert.Equal(t, "2023-01", analysis.TimeRange.Start)
	assert.Equal(t, "2023-04", analysis.TimeRange.End)
}

func TestProcessTrendData_NegativeValuesDropped(t *testing.T) {
	analysis := ProcessTrendData(map[string]interface{}{
		"2023-01": -5.0,
		"2023-02": 10.0,
	}, "")

	assert.Equal(t, 1, analysis.PointCount)
	require.NotNil(t, analysis.TimeRange)
	assert.Equal(t, "2023-02", analysis.TimeRange.Start)
	assert.Equal(t, "2023-02", analysis.TimeRange.End)
}

func TestProcessTrendData_VolatileOverride(t *testing.T) {
	// Wild swings: coefficient of variation far above the high band, so the
	// direction is volatile regardless of the net growth sign.
	analysis := ProcessTrendData(map[string]interface{}{
		"2023-01": 10.0,
		"2023-02": 500.0,
		"2023-03": 5.0,
		"2023-04": 800.0,
	}, "")

	assert.Equal(t, types.VolatilityHigh, analysis.Trend.Volatility)
	assert.Equal(t, types.DirectionVolatile, analysis.Trend.Direction)
}

func TestProcessTrendData_GrowthAndDeclinePhases(t *testing.T) {
	// Two growth steps, then two decline steps.
	analysis := ProcessTrendData(map[string]interface{}{
		"2023-01": 100.0,
		"2023-02": 120.0,
		"2023-03": 150.0,
		"2023-04": 120.0,
		"2023-05": 90.0,
	}, "")

	require.Len(t, analysis.Patterns.Phases, 2)
	assert.Equal(t, types.PhaseGrowth, analysis.Patterns.Phases[0].Phase)
	assert.Equal(t, "2023-01", analysis.Patterns.Phases[0].StartDate)
	assert.Equal(t, "2023-03", analysis.Patterns.Phases[0].EndDate)
	assert.Equal(t, 50.0, analysis.Patterns.Phases[0].Growth)

	assert.Equal(t, types.PhaseDecline, analysis.Patterns.Phases[1].Phase)
	assert.Equal(t, "2023-03", analysis.Patterns.Phases[1].StartDate)
	assert.Equal(t, "2023-05", analysis.Patterns.Phases[1].EndDate)
	assert.Equal(t, -60.0, analysis.Patterns.Phases[1].Growth)
}

func TestProcessTrendData_ShortSeriesHaveNoPhases(t *testing.T) {
	analysis := ProcessTrendData(map[string]interface{}{
		"2023-01": 100.0,
		"2023-02": 200.0,
	}, "")

	assert.Empty(t, analysis.Patterns.Phases)
}

func TestProcessTrendData_SeasonalSpikes(t *testing.T) {
	// Two years of monthly data with strong December/January spikes.
	values := make([]float64, 24)
	for i := range values {
		values[i] = 100
	}
	values[0], values[11], values[12], values[23] = 200, 200, 200, 200
	analysis := ProcessTrendData(monthlySeries(2022, values), "24m")

	assert.True(t, analysis.Patterns.Seasonal)
}

func TestProcessTrendData_MomentumInsufficientBelowSixPoints(t *testing.T) {
	analysis := ProcessTrendData(monthlySeries(2023, []float64{1, 2, 3, 4, 5}), "")
	assert.Equal(t, types.MomentumInsufficient, analysis.Trend.Momentum)
}

func TestProcessTrendData_Deterministic(t *testing.T) {
	raw := monthlySeries(2023, []float64{10, 12, 15, 14, 18, 25, 30, 28})

	first := ProcessTrendData(raw, "8m")
	second := ProcessTrendData(raw, "8m")

	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, first.Trend, second.Trend)
	assert.Equal(t, first.Patterns, second.Patterns)
}

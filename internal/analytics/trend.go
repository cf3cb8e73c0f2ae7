package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"oss-insights-mcp/internal/metrics"
	"oss-insights-mcp/pkg/types"
)

const (
	// stableGrowthRateBound: absolute growth rate (percent) below which the
	// overall direction is considered stable.
	stableGrowthRateBound = 5.0

	// Volatility bands for the coefficient of variation.
	volatilityHighBound   = 0.3
	volatilityMediumBound = 0.15

	// minMomentumPoints is the smallest series that can be split into two
	// meaningful halves for momentum detection.
	minMomentumPoints = 6

	// phaseStepRateBound: step-over-step rate beyond which a single step
	// counts as growth (or decline when negative).
	phaseStepRateBound = 0.05

	// Seasonality heuristic: at least this many points covering this many
	// distinct calendar months, with monthly-mean variation above the ratio.
	minSeasonalityPoints = 12
	minSeasonalityMonths = 6
	seasonalityCVBound   = 0.2
)

// ProcessTrendData analyzes one metric payload. The range label is attached
// verbatim for reporting; the analysis always covers exactly the window the
// payload contains. Non-series payloads and series with no usable points
// yield a well-defined empty analysis, never an error.
func ProcessTrendData(raw interface{}, rangeLabel string) *types.TrendAnalysis {
	payload := metrics.Resolve(raw)
	if payload.Kind() != metrics.KindSeries {
		return emptyTrendAnalysis(rangeLabel)
	}

	// Negative observations are treated as provider artifacts and dropped.
	points := make([]metrics.Point, 0, len(payload.Points()))
	for _, p := range payload.Points() {
		if p.Value >= 0 {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return emptyTrendAnalysis(rangeLabel)
	}

	stats := computeStats(points)
	totalGrowth := stats.Last - stats.First
	growthRate := 0.0
	if stats.First > 0 {
		growthRate = totalGrowth / stats.First * 100
	}

	cv := coefficientOfVariation(points)
	volatility := classifyVolatility(cv)
	direction := classifyDirection(growthRate, volatility)

	analysis := &types.TrendAnalysis{
		GeneratedAt: time.Now().UTC(),
		RangeLabel:  rangeLabel,
		PointCount:  len(points),
		TimeRange: &types.TimeRange{
			Start: points[0].Date,
			End:   points[len(points)-1].Date,
		},
		Stats: stats,
		Trend: types.TrendClassification{
			Direction:   direction,
			TotalGrowth: totalGrowth,
			GrowthRate:  fmt.Sprintf("%.2f%%", growthRate),
			Momentum:    detectMomentum(points),
			Volatility:  volatility,
		},
		Patterns: types.TrendPatterns{
			Seasonal: detectSeasonality(points),
			Phases:   detectGrowthPhases(points),
		},
	}
	return analysis
}

// emptyTrendAnalysis is the defined result for payloads that carry no series.
func emptyTrendAnalysis(rangeLabel string) *types.TrendAnalysis {
	return &types.TrendAnalysis{
		GeneratedAt: time.Now().UTC(),
		RangeLabel:  rangeLabel,
		Trend: types.TrendClassification{
			Direction:  types.DirectionStable,
			GrowthRate: "0.00%",
			Momentum:   types.MomentumInsufficient,
			Volatility: types.VolatilityLow,
		},
	}
}

func computeStats(points []metrics.Point) types.TrendStats {
	values := make([]float64, len(points))
	peak := points[0].Value
	lowest := points[0].Value
	sum := 0.0
	for i, p := range points {
		values[i] = p.Value
		if p.Value > peak {
			peak = p.Value
		}
		if p.Value < lowest {
			lowest = p.Value
		}
		sum += p.Value
	}

	sort.Float64s(values)
	n := len(values)
	var median float64
	if n%2 == 0 {
		median = (values[n/2-1] + values[n/2]) / 2
	} else {
		median = values[n/2]
	}

	return types.TrendStats{
		First:   points[0].Value,
		Last:    points[n-1].Value,
		Peak:    peak,
		Lowest:  lowest,
		Average: sum / float64(n),
		Median:  median,
	}
}

// coefficientOfVariation is the population standard deviation over the mean,
// 0 when the mean is 0.
func coefficientOfVariation(points []metrics.Point) float64 {
	n := float64(len(points))
	sum := 0.0
	for _, p := range points {
		sum += p.Value
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, p := range points {
		d := p.Value - mean
		variance += d * d
	}
	variance /= n

	return math.Sqrt(variance) / mean
}

func classifyVolatility(cv float64) string {
	switch {
	case cv > volatilityHighBound:
		return types.VolatilityHigh
	case cv > volatilityMediumBound:
		return types.VolatilityMedium
	default:
		return types.VolatilityLow
	}
}

// classifyDirection buckets the growth rate, with high volatility overriding
// the sign-based classification entirely.
func classifyDirection(growthRate float64, volatility string) string {
	if volatility == types.VolatilityHigh {
		return types.DirectionVolatile
	}
	switch {
	case math.Abs(growthRate) < stableGrowthRateBound:
		return types.DirectionStable
	case growthRate > 0:
		return types.DirectionIncreasing
	default:
		return types.DirectionDecreasing
	}
}

// detectMomentum compares the average per-step growth of the two
// chronological halves of the series. The first half receives the extra point
// for odd counts. The comparison threshold scales with the magnitude of the
// series so large absolute series do not flap on trivial differences.
func detectMomentum(points []metrics.Point) string {
	if len(points) < minMomentumPoints {
		return types.MomentumInsufficient
	}

	mid := (len(points) + 1) / 2
	firstHalf := points[:mid]
	secondHalf := points[mid:]

	firstGrowth := averageStepGrowth(firstHalf)
	secondGrowth := averageStepGrowth(secondHalf)

	threshold := math.Max(0.1, 0.01*firstHalf[0].Value)
	diff := secondGrowth - firstGrowth
	switch {
	case diff > threshold:
		return types.MomentumAccelerating
	case diff < -threshold:
		return types.MomentumDecelerating
	default:
		return types.MomentumStable
	}
}

func averageStepGrowth(half []metrics.Point) float64 {
	if len(half) <= 1 {
		return 0
	}
	return (half[len(half)-1].Value - half[0].Value) / float64(len(half))
}

// detectGrowthPhases walks consecutive steps, classifying each as growth,
// decline or stable by its step-over-step rate. Runs of at least two steps
// are committed as phases when the classification changes, and the trailing
// run is flushed at the end. Stable runs delimit phases but are not reported
// themselves, so a flat series produces no phases.
func detectGrowthPhases(points []metrics.Point) []types.GrowthPhase {
	if len(points) < 3 {
		return nil
	}

	phases := make([]types.GrowthPhase, 0)
	currentClass := classifyStep(points[0].Value, points[1].Value)
	phaseStart := 0

	commit := func(endIdx int) {
		// endIdx - phaseStart is the step count of the run.
		if endIdx-phaseStart < 2 || currentClass == types.PhaseStable {
			return
		}
		phases = append(phases, types.GrowthPhase{
			Phase:     currentClass,
			StartDate: points[phaseStart].Date,
			EndDate:   points[endIdx].Date,
			Growth:    points[endIdx].Value - points[phaseStart].Value,
		})
	}

	for i := 2; i < len(points); i++ {
		class := classifyStep(points[i-1].Value, points[i].Value)
		if class != currentClass {
			commit(i - 1)
			currentClass = class
			phaseStart = i - 1
		}
	}
	commit(len(points) - 1)

	return phases
}

func classifyStep(prev, curr float64) string {
	if prev == 0 {
		return types.PhaseStable
	}
	rate := (curr - prev) / prev
	switch {
	case rate > phaseStepRateBound:
		return types.PhaseGrowth
	case rate < -phaseStepRateBound:
		return types.PhaseDecline
	default:
		return types.PhaseStable
	}
}

// detectSeasonality is a coarse month-of-year heuristic: enough points across
// enough distinct calendar months, with the monthly means varying by more
// than the seasonal bound. It is not an autocorrelation test; noise on short
// series is expected.
func detectSeasonality(points []metrics.Point) bool {
	if len(points) < minSeasonalityPoints {
		return false
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range points {
		if len(p.Date) < 7 {
			continue
		}
		month := p.Date[5:7]
		sums[month] += p.Value
		counts[month]++
	}
	if len(counts) < minSeasonalityMonths {
		return false
	}

	means := make([]float64, 0, len(counts))
	total := 0.0
	for month, sum := range sums {
		mean := sum / float64(counts[month])
		means = append(means, mean)
		total += mean
	}

	grand := total / float64(len(means))
	if grand == 0 {
		return false
	}
	variance := 0.0
	for _, m := range means {
		d := m - grand
		variance += d * d
	}
	variance /= float64(len(means))

	return math.Sqrt(variance)/grand > seasonalityCVBound
}

package analytics

import (
	"math"

	"oss-insights-mcp/internal/metrics"
)

// healthComponent is one weighted input of the composite health score. The
// cap is the value at which the log-normalized component saturates at 100.
type healthComponent struct {
	metric string
	weight float64
	cap    float64
}

// healthComponents is the fixed metric set of the composite score, in scoring
// order. Weights of absent metrics are excluded from the blend rather than
// counted as zero.
var healthComponents = []healthComponent{
	{metric: metrics.MetricOpenRank, weight: 0.25, cap: 1000},
	{metric: metrics.MetricStars, weight: 0.20, cap: 50000},
	{metric: metrics.MetricContributors, weight: 0.20, cap: 1000},
	{metric: metrics.MetricParticipants, weight: 0.15, cap: 5000},
	{metric: metrics.MetricForks, weight: 0.10, cap: 20000},
	{metric: metrics.MetricCommits, weight: 0.10, cap: 100000},
}

// HealthMetrics returns the metric names the composite score is built from,
// in scoring order.
func HealthMetrics() []string {
	names := make([]string, len(healthComponents))
	for i, c := range healthComponents {
		names[i] = c.metric
	}
	return names
}

// CalculateHealthScore blends the latest values of the recognized metrics in
// bag into a 0..100 composite. Each value is normalized logarithmically
// against its cap so the score rewards orders of magnitude, not raw counts.
// Returns 0 when no recognized metric is present.
func CalculateHealthScore(bag map[string]interface{}) int {
	weighted := 0.0
	totalWeight := 0.0

	for _, c := range healthComponents {
		raw, ok := bag[c.metric]
		if !ok {
			continue
		}
		value := metrics.ExtractLatestValue(raw)
		normalized := math.Min(math.Log10(math.Max(1, value))/math.Log10(c.cap), 1) * 100
		weighted += normalized * c.weight
		totalWeight += c.weight
	}

	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(weighted / totalWeight))
}

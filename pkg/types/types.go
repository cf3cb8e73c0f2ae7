// Package types contains the shared report types produced by the analytics
// engine and consumed by the MCP and HTTP layers.
package types

import "time"

// Trend direction classifications.
const (
	DirectionStable     = "stable"
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"
	DirectionVolatile   = "volatile"
)

// Momentum classifications. MomentumInsufficient is used when the series is
// too short to split into meaningful halves.
const (
	MomentumAccelerating = "accelerating"
	MomentumDecelerating = "decelerating"
	MomentumStable       = "stable"
	MomentumInsufficient = "insufficient_data"
)

// Volatility bands derived from the coefficient of variation.
const (
	VolatilityLow    = "low"
	VolatilityMedium = "medium"
	VolatilityHigh   = "high"
)

// Growth phase classifications.
const (
	PhaseGrowth  = "growth"
	PhaseDecline = "decline"
	PhaseStable  = "stable"
)

// MetricOutcome is the result of fetching a single metric for a repository.
// Exactly one of Data or Error is set, matching the Success flag.
type MetricOutcome struct {
	Metric  string      `json:"metric"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Success bool        `json:"success"`
}

// ComparisonResult collects the fetched outcomes for one repository.
type ComparisonResult struct {
	Repository string          `json:"repository"`
	Platform   string          `json:"platform"`
	Outcomes   []MetricOutcome `json:"outcomes"`
}

// OutcomeFor returns the outcome for a metric, or nil if it was not fetched.
func (r *ComparisonResult) OutcomeFor(metric string) *MetricOutcome {
	for i := range r.Outcomes {
		if r.Outcomes[i].Metric == metric {
			return &r.Outcomes[i]
		}
	}
	return nil
}

// MetricSummary aggregates one metric across the compared repositories.
// Repositories with no signal (missing or non-positive values) are excluded.
type MetricSummary struct {
	Highest float64    `json:"highest"`
	Lowest  float64    `json:"lowest"`
	Average float64    `json:"average"`
	Range   [2]float64 `json:"range"`
	Winner  string     `json:"winner"`
}

// RankingEntry is one row of a per-metric ranking, rank is 1-based.
type RankingEntry struct {
	Repository string  `json:"repository"`
	Value      float64 `json:"value"`
	Rank       int     `json:"rank"`
}

// ComparisonAnalysis is the full comparison report. GeneratedAt carries no
// semantic weight; everything else is deterministic for identical inputs.
type ComparisonAnalysis struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	Metrics      []string                  `json:"metrics"`
	Summary      map[string]MetricSummary  `json:"summary"`
	Winners      map[string]string         `json:"winners"`
	Rankings     map[string][]RankingEntry `json:"rankings"`
	HealthScores map[string]float64        `json:"health_scores"`
	Insights     []string                  `json:"insights"`
}

// TimeRange is the first and last date key present in an analyzed series.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TrendStats are the summary statistics of an analyzed series.
type TrendStats struct {
	First   float64 `json:"first"`
	Last    float64 `json:"last"`
	Peak    float64 `json:"peak"`
	Lowest  float64 `json:"lowest"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
}

// TrendClassification describes the overall movement of a series.
type TrendClassification struct {
	Direction   string  `json:"direction"`
	TotalGrowth float64 `json:"total_growth"`
	GrowthRate  string  `json:"growth_rate"`
	Momentum    string  `json:"momentum"`
	Volatility  string  `json:"volatility"`
}

// GrowthPhase is a maximal run of at least two consecutive steps sharing the
// same growth or decline classification.
type GrowthPhase struct {
	Phase     string  `json:"phase"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Growth    float64 `json:"growth"`
}

// TrendPatterns holds the detected patterns of a series.
type TrendPatterns struct {
	Seasonal bool          `json:"seasonal"`
	Phases   []GrowthPhase `json:"phases"`
}

// TrendAnalysis is the full trend report for one metric payload.
type TrendAnalysis struct {
	GeneratedAt time.Time           `json:"generated_at"`
	RangeLabel  string              `json:"range_label,omitempty"`
	PointCount  int                 `json:"point_count"`
	TimeRange   *TimeRange          `json:"time_range,omitempty"`
	Stats       TrendStats          `json:"stats"`
	Trend       TrendClassification `json:"trend"`
	Patterns    TrendPatterns       `json:"patterns"`
}

// Package analytics derives comparison reports, trend reports and health
// scores from raw metric payloads. Every function here is pure: no I/O, no
// shared state, deterministic apart from report timestamps.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"oss-insights-mcp/internal/metrics"
	"oss-insights-mcp/pkg/types"
)

// dominanceFactor is the heuristic gap (relative to the average) above which a
// winner is described as dominating rather than leading. Tunable default, not
// a load-bearing rule.
const dominanceFactor = 0.5

// metricEntry is one repository's qualifying value for a metric.
type metricEntry struct {
	repository string
	value      float64
}

// GenerateComparisonAnalysis builds the full comparison report for a set of
// repository results over the given metrics. Missing and non-positive values
// are treated as "no signal": a metric where no repository qualifies is
// skipped entirely and contributes nothing to winners, rankings or health
// scores.
func GenerateComparisonAnalysis(results []types.ComparisonResult, metricNames []string) *types.ComparisonAnalysis {
	analysis := &types.ComparisonAnalysis{
		GeneratedAt:  time.Now().UTC(),
		Metrics:      metricNames,
		Summary:      make(map[string]types.MetricSummary),
		Winners:      make(map[string]string),
		Rankings:     make(map[string][]types.RankingEntry),
		HealthScores: make(map[string]float64),
	}

	entriesByMetric := make(map[string][]metricEntry)
	for _, metric := range metricNames {
		entries := qualifyingEntries(results, metric)
		if len(entries) == 0 {
			continue
		}
		entriesByMetric[metric] = entries

		summary, rankings := summarize(entries)
		analysis.Summary[metric] = summary
		analysis.Rankings[metric] = rankings
		analysis.Winners[metric] = summary.Winner
	}

	analysis.HealthScores = relativeHealthScores(results, metricNames, entriesByMetric, analysis.Summary)
	analysis.Insights = buildInsights(results, metricNames, analysis)

	return analysis
}

// qualifyingEntries extracts, in input order, the repositories whose latest
// value for metric is a positive number.
func qualifyingEntries(results []types.ComparisonResult, metric string) []metricEntry {
	entries := make([]metricEntry, 0, len(results))
	for i := range results {
		outcome := results[i].OutcomeFor(metric)
		if outcome == nil || !outcome.Success {
			continue
		}
		value := metrics.ExtractLatestValue(outcome.Data)
		if value <= 0 {
			continue
		}
		entries = append(entries, metricEntry{repository: results[i].Repository, value: value})
	}
	return entries
}

// summarize computes the per-metric aggregate and descending rankings. The
// sort is stable so ties keep their input order.
func summarize(entries []metricEntry) (types.MetricSummary, []types.RankingEntry) {
	highest := entries[0].value
	lowest := entries[0].value
	sum := 0.0
	for _, e := range entries {
		if e.value > highest {
			highest = e.value
		}
		if e.value < lowest {
			lowest = e.value
		}
		sum += e.value
	}

	ranked := make([]metricEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].value > ranked[j].value })

	rankings := make([]types.RankingEntry, len(ranked))
	for i, e := range ranked {
		rankings[i] = types.RankingEntry{Repository: e.repository, Value: e.value, Rank: i + 1}
	}

	summary := types.MetricSummary{
		Highest: highest,
		Lowest:  lowest,
		Average: sum / float64(len(entries)),
		Range:   [2]float64{lowest, highest},
		Winner:  ranked[0].repository,
	}
	return summary, rankings
}

// relativeHealthScores scores each repository as the mean of its per-metric
// values normalized against that metric's highest. Only metrics the
// repository actually qualified for enter the denominator.
func relativeHealthScores(results []types.ComparisonResult, metricNames []string, entriesByMetric map[string][]metricEntry, summaries map[string]types.MetricSummary) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, metric := range metricNames {
		summary, ok := summaries[metric]
		if !ok || summary.Highest <= 0 {
			continue
		}
		for _, e := range entriesByMetric[metric] {
			sums[e.repository] += 100 * e.value / summary.Highest
			counts[e.repository]++
		}
	}

	scores := make(map[string]float64, len(results))
	for i := range results {
		repo := results[i].Repository
		if counts[repo] > 0 {
			scores[repo] = sums[repo] / float64(counts[repo])
		}
	}
	return scores
}

// buildInsights derives the free-text observations: the overall top performer,
// the most competitive metric, and a leads/dominates statement per metric.
func buildInsights(results []types.ComparisonResult, metricNames []string, analysis *types.ComparisonAnalysis) []string {
	insights := make([]string, 0, len(metricNames)+2)

	if top, score, ok := topPerformer(results, analysis.HealthScores); ok {
		insights = append(insights, fmt.Sprintf("%s is the overall top performer with a health score of %.1f", top, score))
	}

	if metric, ok := mostCompetitiveMetric(metricNames, analysis.Summary); ok {
		insights = append(insights, fmt.Sprintf("%s is the most competitive metric across the compared repositories", metric))
	}

	for _, metric := range metricNames {
		summary, ok := analysis.Summary[metric]
		if !ok {
			continue
		}
		verb := "leads"
		if summary.Highest-summary.Average > dominanceFactor*summary.Average {
			verb = "dominates"
		}
		insights = append(insights, fmt.Sprintf("%s %s %s with %s", summary.Winner, verb, metric, formatValue(summary.Highest)))
	}

	return insights
}

// topPerformer returns the repository with the highest health score, ties
// resolved by input order.
func topPerformer(results []types.ComparisonResult, scores map[string]float64) (string, float64, bool) {
	best := ""
	bestScore := 0.0
	found := false
	for i := range results {
		repo := results[i].Repository
		score, ok := scores[repo]
		if !ok {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = repo, score, true
		}
	}
	return best, bestScore, found
}

// mostCompetitiveMetric finds the metric with the tightest positive gap
// between the highest value and the average, relative to the highest.
func mostCompetitiveMetric(metricNames []string, summaries map[string]types.MetricSummary) (string, bool) {
	best := ""
	bestGap := 0.0
	found := false
	for _, metric := range metricNames {
		summary, ok := summaries[metric]
		if !ok || summary.Highest <= 0 {
			continue
		}
		gap := (summary.Highest - summary.Average) / summary.Highest
		if !found || gap < bestGap {
			best, bestGap, found = metric, gap, true
		}
	}
	return best, found
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

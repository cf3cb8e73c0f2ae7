package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss-insights-mcp/pkg/types"
)

func repoResult(repository string, outcomes ...types.MetricOutcome) types.ComparisonResult {
	return types.ComparisonResult{
		Repository: repository,
		Platform:   "github",
		Outcomes:   outcomes,
	}
}

func successOutcome(metric string, data interface{}) types.MetricOutcome {
	return types.MetricOutcome{Metric: metric, Data: data, Success: true}
}

func failedOutcome(metric, message string) types.MetricOutcome {
	return types.MetricOutcome{Metric: metric, Error: message, Success: false}
}

func TestGenerateComparisonAnalysis_TwoRepos(t *testing.T) {
	results := []types.ComparisonResult{
		repoResult("apache/spark", successOutcome("stars", 100.0)),
		repoResult("apache/flink", successOutcome("stars", 50.0)),
	}

	analysis := GenerateComparisonAnalysis(results, []string{"stars"})

	assert.Equal(t, "apache/spark", analysis.Winners["stars"])

	rankings := analysis.Rankings["stars"]
	require.Len(t, rankings, 2)
	assert.Equal(t, types.RankingEntry{Repository: "apache/spark", Value: 100, Rank: 1}, rankings[0])
	assert.Equal(t, types.RankingEntry{Repository: "apache/flink", Value: 50, Rank: 2}, rankings[1])

	assert.InDelta(t, 100.0, analysis.HealthScores["apache/spark"], 1e-9)
	assert.InDelta(t, 50.0, analysis.HealthScores["apache/flink"], 1e-9)

	summary := analysis.Summary["stars"]
	assert.Equal(t, 100.0, summary.Highest)
	assert.Equal(t, 50.0, summary.Lowest)
	assert.Equal(t, 75.0, summary.Average)
	assert.Equal(t, [2]float64{50, 100}, summary.Range)
}

func TestGenerateComparisonAnalysis_SkipsNoSignalValues(t *testing.T) {
	results := []types.ComparisonResult{
		repoResult("a/a", successOutcome("forks", 0.0)),
		repoResult("b/b", failedOutcome("forks", "not found")),
	}

	analysis := GenerateComparisonAnalysis(results, []string{"forks"})

	assert.Empty(t, analysis.Summary)
	assert.Empty(t, analysis.Winners)
	assert.Empty(t, analysis.Rankings)
	assert.Empty(t, analysis.HealthScores)
}

func TestGenerateComparisonAnalysis_TiesKeepInputOrder(t *testing.T) {
	results := []types.ComparisonResult{
		repoResult("first/repo", successOutcome("stars", 10.0)),
		repoResult("second/repo", successOutcome("stars", 10.0)),
	}

	analysis := GenerateComparisonAnalysis(results, []string{"stars"})

	assert.Equal(t, "first/repo", analysis.Winners["stars"])
	assert.Equal(t, "first/repo", analysis.Rankings["stars"][0].Repository)
	assert.Equal(t, "second/repo", analysis.Rankings["stars"][1].Repository)
}

func TestGenerateComparisonAnalysis_SeriesPayloadUsesLatestValue(t *testing.T) {
	series := map[string]interface{}{"2023-01": 5.0, "2023-02": 8.0}
	results := []types.ComparisonResult{
		repoResult("x/x", successOutcome("activity", series)),
		repoResult("y/y", successOutcome("activity", 6.0)),
	}

	analysis := GenerateComparisonAnalysis(results, []string{"activity"})

	assert.Equal(t, "x/x", analysis.Winners["activity"])
	assert.Equal(t, 8.0, analysis.Summary["activity"].Highest)
}

func TestGenerateComparisonAnalysis_HealthScoreDenominatorPerRepo(t *testing.T) {
	// Repo a qualifies for both metrics, repo b only for stars. Repo b's
	// score must be averaged over one metric, not two.
	results := []types.ComparisonResult{
		repoResult("a/a", successOutcome("stars", 100.0), successOutcome("forks", 40.0)),
		repoResult("b/b", successOutcome("stars", 50.0), failedOutcome("forks", "timeout")),
	}

	analysis := GenerateComparisonAnalysis(results, []string{"stars", "forks"})

	assert.InDelta(t, 100.0, analysis.HealthScores["a/a"], 1e-9)
	assert.InDelta(t, 50.0, analysis.HealthScores["b/b"], 1e-9)
}

func TestGenerateComparisonAnalysis_Insights(t *testing.T) {
	results := []types.ComparisonResult{
		repoResult("big/repo", successOutcome("stars", 1000.0)),
		repoResult("small/repo", successOutcome("stars", 10.0)),
	}

	analysis := GenerateComparisonAnalysis(results, []string{"stars"})

	require.NotEmpty(t, analysis.Insights)
	assert.Contains(t, analysis.Insights[0], "big/repo")
	// 1000 - 505 > 0.5 * 505, so the winner dominates.
	joined := ""
	for _, s := range analysis.Insights {
		joined += s + "\n"
	}
	assert.Contains(t, joined, "dominates")
}

func TestGenerateComparisonAnalysis_Deterministic(t *testing.T) {
	results := []types.ComparisonResult{
		repoResult("a/a", successOutcome("stars", 30.0), successOutcome("forks", 7.0)),
		repoResult("b/b", successOutcome("stars", 20.0), successOutcome("forks", 9.0)),
	}

	first := GenerateComparisonAnalysis(results, []string{"stars", "forks"})
	second := GenerateComparisonAnalysis(results, []string{"stars", "forks"})

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Winners, second.Winners)
	assert.Equal(t, first.Rankings, second.Rankings)
	assert.Equal(t, first.HealthScores, second.HealthScores)
	assert.Equal(t, first.Insights, second.Insights)
}

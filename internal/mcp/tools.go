package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/fredcamaral/gomcp-sdk"

	"oss-insights-mcp/internal/analytics"
	"oss-insights-mcp/internal/cache"
	stderrors "oss-insights-mcp/internal/errors"
	"oss-insights-mcp/internal/logging"
	"oss-insights-mcp/internal/metrics"
	"oss-insights-mcp/internal/validation"
	"oss-insights-mcp/pkg/types"
)

// defaultCompareMetrics is used when metrics_compare is called without an
// explicit metric list.
var defaultCompareMetrics = []string{
	metrics.MetricOpenRank,
	metrics.MetricStars,
	metrics.MetricForks,
	metrics.MetricContributors,
}

// registerTools registers the 5 metrics tools.
func (ms *MetricsServer) registerTools() {
	repoProps := func() map[string]interface{} {
		return map[string]interface{}{
			"owner": map[string]interface{}{
				"type":        "string",
				"description": "Repository owner or organization, e.g. 'apache'",
			},
			"repo": map[string]interface{}{
				"type":        "string",
				"description": "Repository name, e.g. 'spark'",
			},
			"platform": map[string]interface{}{
				"type":        "string",
				"enum":        validation.SupportedPlatforms,
				"default":     "github",
				"description": "Code hosting platform the repository lives on",
			},
		}
	}

	queryProps := repoProps()
	queryProps["metric"] = map[string]interface{}{
		"type":        "string",
		"enum":        metrics.SupportedMetrics,
		"description": "Metric to fetch, e.g. 'stars' or 'openrank'",
	}
	ms.mcpServer.AddTool(mcp.NewTool(
		"metrics_query",
		"Fetch a single metric for one repository. Returns the raw payload (a scalar or a date-keyed time series) plus the latest value. Results are cached, so repeated queries are cheap.",
		mcp.ObjectSchema("Metric query parameters", queryProps, []string{"owner", "repo", "metric"}),
	), mcp.ToolHandlerFunc(ms.handleMetricsQuery))

	ms.mcpServer.AddTool(mcp.NewTool(
		"metrics_compare",
		"Compare several repositories across a set of metrics. Produces per-metric rankings, winners, relative health scores, and plain-language insights.",
		mcp.ObjectSchema("Comparison parameters", map[string]interface{}{
			"repositories": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Repositories to compare as 'owner/repo' strings, e.g. ['apache/spark', 'apache/flink']",
			},
			"metrics": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Metrics to compare on. Defaults to openrank, stars, forks, and contributors.",
			},
			"platform": map[string]interface{}{
				"type":        "string",
				"enum":        validation.SupportedPlatforms,
				"default":     "github",
				"description": "Platform all repositories are hosted on",
			},
		}, []string{"repositories"}),
	), mcp.ToolHandlerFunc(ms.handleMetricsCompare))

	trendProps := repoProps()
	trendProps["metric"] = map[string]interface{}{
		"type":        "string",
		"enum":        metrics.SupportedMetrics,
		"description": "Metric whose history to analyze",
	}
	trendProps["range"] = map[string]interface{}{
		"type":        "string",
		"description": "Label describing the analyzed range, echoed back in the report",
	}
	ms.mcpServer.AddTool(mcp.NewTool(
		"metrics_trend",
		"Analyze the historical trend of one metric: direction, growth rate, volatility, momentum, growth and decline phases, and seasonality.",
		mcp.ObjectSchema("Trend analysis parameters", trendProps, []string{"owner", "repo", "metric"}),
	), mcp.ToolHandlerFunc(ms.handleMetricsTrend))

	ms.mcpServer.AddTool(mcp.NewTool(
		"metrics_health",
		"Compute a 0-100 health score for a repository from a weighted blend of openrank, stars, contributors, participants, forks, and commit activity.",
		mcp.ObjectSchema("Health score parameters", repoProps(), []string{"owner", "repo"}),
	), mcp.ToolHandlerFunc(ms.handleMetricsHealth))

	ms.mcpServer.AddTool(mcp.NewTool(
		"cache_admin",
		"Inspect and manage the metric cache: read hit/miss statistics, sweep expired entries, clear everything, or list the hottest entries.",
		mcp.ObjectSchema("Cache administration parameters", map[string]interface{}{
			"operation": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"stats", "sweep", "clear", "top_entries"},
				"description": "Administrative operation to run",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"default":     10,
				"description": "Maximum entries to return for top_entries",
			},
		}, []string{"operation"}),
	), mcp.ToolHandlerFunc(ms.handleCacheAdmin))
}

// fetchMetric loads one metric through the cache, hitting the provider on
// a miss.
func (ms *MetricsServer) fetchMetric(ctx context.Context, platform, owner, repo, metric string) (interface{}, error) {
	key := cacheKey(platform, owner, repo, metric)
	return ms.container.GetCache().FetchWithCache(ctx, key, 0,
		cache.RetrieveFunc(ms.container.GetProvider().Retriever(platform, owner, repo, metric)))
}

// providerError converts a fetch failure into a standard error with
// actionable suggestions attached.
func (ms *MetricsServer) providerError(ctx context.Context, err error) *stderrors.StandardError {
	return stderrors.NewProviderError(err.Error(), err).
		WithSuggestions(analytics.GenerateErrorSuggestions(err.Error())).
		WithTraceID(logging.TraceID(ctx))
}

func (ms *MetricsServer) handleMetricsQuery(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	owner, verr := validation.RequiredString(params, "owner")
	if verr != nil {
		return nil, verr
	}
	repo, verr := validation.RequiredString(params, "repo")
	if verr != nil {
		return nil, verr
	}
	metric, verr := validation.RequiredString(params, "metric")
	if verr != nil {
		return nil, verr
	}
	platform, verr := validation.Platform(params)
	if verr != nil {
		return nil, verr
	}
	if verr := validation.Metric(metric); verr != nil {
		return nil, verr
	}
	if verr := validation.Repository(owner, repo); verr != nil {
		return nil, verr
	}

	raw, err := ms.fetchMetric(ctx, platform, owner, repo, metric)
	if err != nil {
		return nil, ms.providerError(ctx, err)
	}

	payload := metrics.Resolve(raw)
	return map[string]interface{}{
		"repository":   fmt.Sprintf("%s/%s", owner, repo),
		"platform":     platform,
		"metric":       metric,
		"data":         raw,
		"latest_value": payload.LatestValue(),
		"fetched_at":   nowUTC(),
	}, nil
}

func (ms *MetricsServer) handleMetricsCompare(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	repositories := validation.OptionalStringSlice(params, "repositories")
	if len(repositories) < 2 {
		return nil, stderrors.NewValidationError("repositories", "at least two repositories are required", repositories)
	}
	platform, verr := validation.Platform(params)
	if verr != nil {
		return nil, verr
	}

	metricNames := validation.OptionalStringSlice(params, "metrics")
	if len(metricNames) == 0 {
		metricNames = defaultCompareMetrics
	}
	if verr := validation.Metrics(metricNames); verr != nil {
		return nil, verr
	}

	results := make([]types.ComparisonResult, 0, len(repositories))
	for _, repository := range repositories {
		owner, repo, splitErr := splitRepository(repository)
		if splitErr != nil {
			return nil, splitErr
		}

		result := types.ComparisonResult{
			Repository: repository,
			Platform:   platform,
			Outcomes:   make([]types.MetricOutcome, 0, len(metricNames)),
		}
		for _, metric := range metricNames {
			raw, err := ms.fetchMetric(ctx, platform, owner, repo, metric)
			outcome := types.MetricOutcome{Metric: metric}
			if err != nil {
				// A single missing metric must not sink the whole comparison.
				outcome.Error = err.Error()
				ms.logger.WarnContext(ctx, "comparison metric unavailable",
					"repository", repository, "metric", metric, "error", err.Error())
			} else {
				outcome.Data = raw
				outcome.Success = true
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}
		results = append(results, result)
	}

	analysis := analytics.GenerateComparisonAnalysis(results, metricNames)
	return map[string]interface{}{
		"platform": platform,
		"results":  results,
		"analysis": analysis,
	}, nil
}

func (ms *MetricsServer) handleMetricsTrend(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	owner, verr := validation.RequiredString(params, "owner")
	if verr != nil {
		return nil, verr
	}
	repo, verr := validation.RequiredString(params, "repo")
	if verr != nil {
		return nil, verr
	}
	metric, verr := validation.RequiredString(params, "metric")
	if verr != nil {
		return nil, verr
	}
	platform, verr := validation.Platform(params)
	if verr != nil {
		return nil, verr
	}
	if verr := validation.Metric(metric); verr != nil {
		return nil, verr
	}

	raw, err := ms.fetchMetric(ctx, platform, owner, repo, metric)
	if err != nil {
		return nil, ms.providerError(ctx, err)
	}

	rangeLabel := validation.OptionalString(params, "range", "full_history")
	analysis := analytics.ProcessTrendData(raw, rangeLabel)
	return map[string]interface{}{
		"repository": fmt.Sprintf("%s/%s", owner, repo),
		"platform":   platform,
		"metric":     metric,
		"analysis":   analysis,
	}, nil
}

func (ms *MetricsServer) handleMetricsHealth(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	owner, verr := validation.RequiredString(params, "owner")
	if verr != nil {
		return nil, verr
	}
	repo, verr := validation.RequiredString(params, "repo")
	if verr != nil {
		return nil, verr
	}
	platform, verr := validation.Platform(params)
	if verr != nil {
		return nil, verr
	}

	bag := make(map[string]interface{})
	latest := make(map[string]float64)
	missing := make([]string, 0)
	for _, metric := range analytics.HealthMetrics() {
		raw, err := ms.fetchMetric(ctx, platform, owner, repo, metric)
		if err != nil {
			// Absent metrics drop out of the weighted blend.
			missing = append(missing, metric)
			continue
		}
		bag[metric] = raw
		latest[metric] = metrics.ExtractLatestValue(raw)
	}

	if len(bag) == 0 {
		return nil, stderrors.NewStandardError(
			stderrors.ErrorCodeNotFound,
			fmt.Sprintf("no metrics available for %s/%s/%s", platform, owner, repo),
			nil,
		).WithSuggestions(analytics.GenerateErrorSuggestions("not found"))
	}

	score := analytics.CalculateHealthScore(bag)
	return map[string]interface{}{
		"repository":      fmt.Sprintf("%s/%s", owner, repo),
		"platform":        platform,
		"health_score":    score,
		"metrics":         latest,
		"missing_metrics": missing,
		"generated_at":    nowUTC(),
	}, nil
}

func (ms *MetricsServer) handleCacheAdmin(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	operation, verr := validation.RequiredString(params, "operation")
	if verr != nil {
		return nil, verr
	}

	metricCache := ms.container.GetCache()
	switch operation {
	case "stats":
		return metricCache.Stats(), nil
	case "sweep":
		removed := metricCache.SweepExpired()
		ms.logger.InfoContext(ctx, "cache sweep requested", "removed", removed)
		return map[string]interface{}{"removed": removed}, nil
	case "clear":
		metricCache.Clear()
		ms.logger.InfoContext(ctx, "cache cleared")
		return map[string]interface{}{"cleared": true}, nil
	case "top_entries":
		limit := optionalInt(params, "limit", 10)
		return map[string]interface{}{"entries": metricCache.TopEntries(limit)}, nil
	default:
		return nil, stderrors.NewValidationError("operation", "must be one of stats, sweep, clear, top_entries", operation)
	}
}

// splitRepository parses an 'owner/repo' string.
func splitRepository(repository string) (owner, repo string, err *stderrors.StandardError) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", stderrors.NewValidationError("repositories", "entries must be 'owner/repo'", repository)
	}
	return parts[0], parts[1], nil
}

// optionalInt extracts an optional integer parameter. JSON numbers arrive
// as float64.
func optionalInt(params map[string]interface{}, name string, fallback int) int {
	raw, ok := params[name]
	if !ok {
		return fallback
	}
	switch n := raw.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}

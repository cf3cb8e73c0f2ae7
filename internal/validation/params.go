// Package validation extracts and validates MCP tool parameters.
package validation

import (
	"fmt"
	"strings"

	stderrors "oss-insights-mcp/internal/errors"
	"oss-insights-mcp/internal/metrics"
)

// SupportedPlatforms lists the code hosting platforms the provider serves.
var SupportedPlatforms = []string{"github", "gitee"}

// RequiredString extracts a required non-empty string parameter.
func RequiredString(params map[string]interface{}, name string) (string, *stderrors.StandardError) {
	raw, ok := params[name]
	if !ok {
		return "", stderrors.NewRequiredFieldError(name)
	}
	value, ok := raw.(string)
	if !ok {
		return "", stderrors.NewValidationError(name, "must be a string", raw)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", stderrors.NewRequiredFieldError(name)
	}
	return value, nil
}

// OptionalString extracts an optional string parameter with a fallback.
func OptionalString(params map[string]interface{}, name, fallback string) string {
	if raw, ok := params[name]; ok {
		if value, ok := raw.(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return fallback
}

// OptionalStringSlice extracts an optional list-of-strings parameter.
// JSON decoding hands lists over as []interface{}.
func OptionalStringSlice(params map[string]interface{}, name string) []string {
	raw, ok := params[name]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// Platform validates the platform parameter, defaulting to github.
func Platform(params map[string]interface{}) (string, *stderrors.StandardError) {
	platform := strings.ToLower(OptionalString(params, "platform", "github"))
	for _, supported := range SupportedPlatforms {
		if platform == supported {
			return platform, nil
		}
	}
	return "", stderrors.NewStandardError(
		stderrors.ErrorCodeUnsupportedPlatform,
		fmt.Sprintf("Unsupported platform '%s'", platform),
		map[string]interface{}{
			"platform":  platform,
			"supported": SupportedPlatforms,
		},
	)
}

// Metric validates a single metric name.
func Metric(name string) *stderrors.StandardError {
	if !metrics.IsSupportedMetric(name) {
		return stderrors.NewUnsupportedMetricError(name, metrics.SupportedMetrics)
	}
	return nil
}

// Metrics validates a list of metric names, returning the first offender.
func Metrics(names []string) *stderrors.StandardError {
	for _, name := range names {
		if err := Metric(name); err != nil {
			return err
		}
	}
	return nil
}

// Repository validates an owner/repo pair for path safety.
func Repository(owner, repo string) *stderrors.StandardError {
	for name, value := range map[string]string{"owner": owner, "repo": repo} {
		if strings.ContainsAny(value, "/\\ ") {
			return stderrors.NewValidationError(name, "must not contain slashes or spaces", value)
		}
	}
	return nil
}

package analytics

import "strings"

// suggestionCategory pairs trigger phrases with fixed remediation hints.
// Categories are independent: a message matching several accumulates all of
// their suggestions.
type suggestionCategory struct {
	phrases     []string
	suggestions []string
}

var suggestionCategories = []suggestionCategory{
	{
		phrases: []string{"validation", "invalid", "must be"},
		suggestions: []string{
			"Check the parameter values against the tool's input schema",
			"Verify the platform is one of the supported values (github, gitee)",
		},
	},
	{
		phrases: []string{"not found", "404", "no such"},
		suggestions: []string{
			"Verify the repository exists and is spelled owner/repo",
			"The metric may not be computed for this repository yet; try a more common metric such as stars or activity",
		},
	},
	{
		phrases: []string{"timeout", "timed out", "connection", "network", "unreachable"},
		suggestions: []string{
			"Check network connectivity to the metrics provider",
			"Retry the request; transient provider outages usually clear quickly",
			"Consider raising the provider timeout in the configuration",
		},
	},
	{
		phrases: []string{"rate limit", "429", "too many requests"},
		suggestions: []string{
			"Reduce request concurrency or add delays between batches",
			"Cached responses do not count against the provider; reuse the same keys where possible",
		},
	},
	{
		phrases: []string{"required", "missing"},
		suggestions: []string{
			"Supply all required parameters: platform, owner, repo and metric",
		},
	},
	{
		phrases: []string{"parse", "json", "unmarshal", "unexpected token", "syntax"},
		suggestions: []string{
			"The provider returned a malformed payload; retry the request",
			"If the problem persists, the metric file may be corrupt upstream",
		},
	},
}

var genericSuggestions = []string{
	"Retry the request",
	"Check the server logs for the failing key and elapsed time",
}

// GenerateErrorSuggestions maps an error message onto remediation hints by
// case-insensitive phrase matching. Unrecognized messages get the generic
// fallback.
func GenerateErrorSuggestions(message string) []string {
	normalized := strings.ToLower(message)

	var out []string
	for _, category := range suggestionCategories {
		for _, phrase := range category.phrases {
			if strings.Contains(normalized, phrase) {
				out = append(out, category.suggestions...)
				break
			}
		}
	}

	if len(out) == 0 {
		return append([]string(nil), genericSuggestions...)
	}
	return out
}

package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateErrorSuggestions_NetworkErrors(t *testing.T) {
	suggestions := GenerateErrorSuggestions("Get \"https://example.com\": context deadline exceeded (Client.Timeout)")
	assert.NotEmpty(t, suggestions)
	assert.Contains(t, suggestions[0], "network")
}

func TestGenerateErrorSuggestions_NotFound(t *testing.T) {
	suggestions := GenerateErrorSuggestions("provider returned status 404")
	assert.Contains(t, suggestions[0], "owner/repo")
}

func TestGenerateErrorSuggestions_CaseInsensitive(t *testing.T) {
	lower := GenerateErrorSuggestions("rate limit exceeded")
	upper := GenerateErrorSuggestions("RATE LIMIT EXCEEDED")
	assert.Equal(t, lower, upper)
}

func TestGenerateErrorSuggestions_CumulativeCategories(t *testing.T) {
	// Matches both the not-found and timeout categories.
	suggestions := GenerateErrorSuggestions("resource not found after request timed out")
	single := GenerateErrorSuggestions("resource not found")
	assert.Greater(t, len(suggestions), len(single))
}

func TestGenerateErrorSuggestions_GenericFallback(t *testing.T) {
	suggestions := GenerateErrorSuggestions("something inexplicable happened")
	assert.Equal(t, genericSuggestions, suggestions)
}

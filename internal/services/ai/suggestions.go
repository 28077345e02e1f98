package ai

import (
	"context"
	"strings"

	"github.com/HammerMeetNail/ecobuddy/internal/logging"
	"github.com/HammerMeetNail/ecobuddy/internal/models"
)

// LanguageModelClient generates text for a prompt. *GeminiClient is the
// production implementation.
type LanguageModelClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// RequestSuggestions asks client for reduction tips. Failures are not
// returned as errors: they become the result's ErrorMessage so the caller
// can still show the estimate.
func RequestSuggestions(ctx context.Context, inputs models.LifestyleInputs, total float64, client LanguageModelClient) models.SuggestionResult {
	if client == nil {
		return models.SuggestionResult{ErrorMessage: errorMessage(ErrAINotConfigured)}
	}

	text, err := client.GenerateContent(ctx, BuildPrompt(inputs, total))
	if err != nil {
		logging.Warn("Suggestion request failed", map[string]interface{}{
			"error":     err.Error(),
			"report_id": ReportIDFromContext(ctx).String(),
		})
		return models.SuggestionResult{ErrorMessage: errorMessage(err)}
	}

	return models.SuggestionResult{Text: strings.TrimSpace(text)}
}

func errorMessage(err error) string {
	return "Error from Gemini: " + err.Error()
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/ecobuddy/internal/config"
	"github.com/HammerMeetNail/ecobuddy/internal/logging"
	"github.com/HammerMeetNail/ecobuddy/internal/metrics"
)

const stubModel = "stub"

var geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// UsageRecorder persists per-call usage metadata.
type UsageRecorder interface {
	Record(ctx context.Context, reportID uuid.UUID, stats UsageStats, status string) error
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey string
	model  string
	stub   bool
	client *http.Client
	usage  UsageRecorder
}

// NewGeminiClient builds a client from configuration. usage may be nil.
func NewGeminiClient(cfg config.AIConfig, usage UsageRecorder) *GeminiClient {
	return &GeminiClient{
		apiKey: cfg.GeminiAPIKey,
		model:  cfg.Model,
		stub:   cfg.Stub,
		client: &http.Client{Timeout: 30 * time.Second},
		usage:  usage,
	}
}

func (c *GeminiClient) Model() string {
	if c.stub {
		return stubModel
	}
	return c.model
}

// Gemini API Request/Response structs

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Usage      geminiUsage       `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateContent sends prompt as a single user turn and returns the
// generated text. It makes exactly one request.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	reportID := ReportIDFromContext(ctx)

	if c.stub {
		text := stubSuggestions()
		c.logUsageWithTimeout(reportID, UsageStats{Model: stubModel, Duration: time.Since(start)}, "success")
		return text, nil
	}

	if strings.TrimSpace(c.apiKey) == "" {
		logging.Warn("Gemini API key missing; suggestions unavailable", map[string]interface{}{
			"report_id": reportID.String(),
		})
		return "", ErrAINotConfigured
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: prompt}},
			},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "text/plain",
			Temperature:      1.0,
		},
		SafetySettings: []geminiSafetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request", ErrAIProviderUnavailable)
	}

	// Log request metadata only
	logging.Info("Sending request to Gemini", map[string]interface{}{
		"report_id":     reportID.String(),
		"model":         c.model,
		"prompt_length": len(prompt),
	})

	url := fmt.Sprintf("%s/%s:generateContent", geminiBaseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrAIProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logUsageWithTimeout(reportID, UsageStats{Model: c.model, Duration: time.Since(start)}, "error")
		return "", fmt.Errorf("%w: %v", ErrAIProviderUnavailable, err)
	}
	defer func() {
		// Drain and close the body to ensure connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.logUsageWithTimeout(reportID, UsageStats{Model: c.model, Duration: time.Since(start)}, "error")

		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: status %d", ErrRateLimitExceeded, resp.StatusCode)
		}

		// Best-effort include a small preview of the provider error for debugging.
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		logging.Error("Gemini non-200 response", map[string]interface{}{
			"report_id": reportID.String(),
			"status":    resp.StatusCode,
			"body":      string(bodyBytes),
		})

		return "", fmt.Errorf("%w: status %d", ErrAIProviderUnavailable, resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		c.logUsageWithTimeout(reportID, UsageStats{Model: c.model, Duration: time.Since(start)}, "error")
		return "", fmt.Errorf("%w: failed to decode response", ErrAIProviderUnavailable)
	}

	stats := UsageStats{
		Model:        c.model,
		TokensInput:  geminiResp.Usage.PromptTokenCount,
		TokensOutput: geminiResp.Usage.CandidatesTokenCount,
		Duration:     time.Since(start),
	}

	if len(geminiResp.Candidates) == 0 {
		c.logUsageWithTimeout(reportID, stats, "safety_block")
		return "", ErrSafetyViolation
	}

	candidate := geminiResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		c.logUsageWithTimeout(reportID, stats, "safety_block")
		return "", ErrSafetyViolation
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		c.logUsageWithTimeout(reportID, stats, "error")
		return "", fmt.Errorf("%w: empty content parts", ErrAIProviderUnavailable)
	}

	logging.Info("Received response from Gemini", map[string]interface{}{
		"report_id":       reportID.String(),
		"response_length": len(text),
	})

	c.logUsageWithTimeout(reportID, stats, "success")
	return text, nil
}

func observeGeneration(stats UsageStats, status string) {
	metrics.AIGenerations.WithLabelValues(stats.Model, status).Inc()
	metrics.AIGenerationDuration.WithLabelValues(stats.Model).Observe(stats.Duration.Seconds())
	metrics.AITokens.WithLabelValues(stats.Model, "input").Add(float64(stats.TokensInput))
	metrics.AITokens.WithLabelValues(stats.Model, "output").Add(float64(stats.TokensOutput))
}

func stubSuggestions() string {
	return strings.Join([]string{
		"1. Swap two car commutes a week for transit, cycling or car-sharing.",
		"2. Move to a renewable electricity tariff and cut standby power at home.",
		"3. Replace a few meat meals each week with plant-based dishes.",
	}, "\n")
}

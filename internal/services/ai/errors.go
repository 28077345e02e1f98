package ai

import "errors"

var (
	ErrAINotConfigured       = errors.New("AI provider is not configured")               // missing GEMINI_API_KEY
	ErrAIProviderUnavailable = errors.New("AI provider is currently unavailable")       // 503
	ErrSafetyViolation       = errors.New("generated content violated safety policies") // 400
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")                        // 429
)

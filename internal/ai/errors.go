package ai

import "errors"

// Sentinel errors for the generative backend. Messages wrapped around these
// are caller-safe: they never include the request URL or credentials.
var (
	ErrRateLimited      = errors.New("generative backend rate limited")
	ErrUnavailable      = errors.New("generative backend unavailable")
	ErrGenerationFailed = errors.New("generation failed")
)

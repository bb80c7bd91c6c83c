package ai

import (
	"errors"
	"fmt"
)

// ErrRateLimited indicates the AI gateway rejected the call with HTTP 429.
var ErrRateLimited = errors.New("ai gateway rate limit exceeded")

// ErrCreditsExhausted indicates the AI gateway account has no credits left (HTTP 402).
var ErrCreditsExhausted = errors.New("ai gateway credits exhausted")

// UpstreamError is any other non-2xx answer from the gateway.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ai gateway returned status %d", e.StatusCode)
}

// FromStatus maps a gateway HTTP status to the matching error.
func FromStatus(status int, body string) error {
	switch status {
	case 429:
		return ErrRateLimited
	case 402:
		return ErrCreditsExhausted
	default:
		return &UpstreamError{StatusCode: status, Body: body}
	}
}

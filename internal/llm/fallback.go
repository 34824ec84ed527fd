package llm

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// FallbackPolicy decides which primary-model failures are retried once
// against the fallback model.
type FallbackPolicy struct {
	// Codes are provider error codes meaning the model is unreachable,
	// unauthorized or not provisioned for this account.
	Codes []string
	// Markers are lower-case substrings of the error message with the
	// same meaning.
	Markers []string
}

// DefaultFallbackPolicy returns the codes and markers the provider uses for
// models an account cannot call.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		Codes:   []string{"AccessDeniedException", "ResourceNotFoundException"},
		Markers: []string{"use case details"},
	}
}

// Eligible reports whether err should trigger the fallback model.
func (p FallbackPolicy) Eligible(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		for _, code := range p.Codes {
			if apiErr.ErrorCode() == code {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range p.Markers {
		if marker != "" && strings.Contains(msg, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

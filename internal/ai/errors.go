package ai

import (
	"fmt"
	"strings"
)

// TransientError is a network-layer or 5xx failure that is worth retrying.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient error: %v", e.Err)
	}
	return fmt.Sprintf("transient error: status %d", e.Status)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RateLimitedError is a 429 from the generation endpoint.
type RateLimitedError struct {
	Status int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded (status %d)", e.Status)
}

// FatalError is a malformed or empty response. It still consumes a retry
// attempt but no amount of waiting will fix it.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "fatal error: " + e.Reason }

// ModelError records the failure of one model inside a fallback chain.
type ModelError struct {
	Model string
	Err   error
}

func (e ModelError) Error() string { return e.Model + ": " + e.Err.Error() }

func (e ModelError) Unwrap() error { return e.Err }

// AllModelsFailedError is raised when every model of a provider failed. It
// carries the per-model errors for diagnostics.
type AllModelsFailedError struct {
	Errors []ModelError
}

func (e *AllModelsFailedError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, me := range e.Errors {
		parts[i] = me.Error()
	}
	return "all models failed: " + strings.Join(parts, "; ")
}

// NoProviderError is raised by the pool when every enabled provider has been
// tried without success.
type NoProviderError struct {
	Last error
}

func (e *NoProviderError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("no AI provider available: %v", e.Last)
	}
	return "no AI provider available"
}

func (e *NoProviderError) Unwrap() error { return e.Last }

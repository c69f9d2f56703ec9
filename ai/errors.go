package ai

import "errors"

// Embedding service error classes. Implementations wrap the provider error
// with one of these so callers can use errors.Is without knowing the provider.
var (
	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("embedding rate limited")

	// ErrUnavailable indicates a network failure, timeout or server side error.
	ErrUnavailable = errors.New("embedding service unavailable")

	// ErrInvalidInput indicates the provider refused one or more inputs
	// (malformed, oversized or filtered).
	ErrInvalidInput = errors.New("embedding input rejected")

	// ErrRejected indicates the request itself was refused: bad credentials,
	// exhausted quota or an unknown model.
	ErrRejected = errors.New("embedding request rejected")

	// ErrMalformedResponse indicates the provider answered with the wrong
	// number of vectors or none at all.
	ErrMalformedResponse = errors.New("malformed embedding response")
)

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// IsInvalidInput reports whether err was caused by the content of an input
// rather than the state of the service.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

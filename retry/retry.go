// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (must be > 0).
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles on each retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts. Zero means no cap.
	MaxDelay time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error that is not marked Permanent.
	Retryable func(error) bool
}

// Do runs operation until it succeeds, returns a non-retryable error, the
// attempts are exhausted or ctx is done. It returns the number of attempts
// made and the error from the last attempt.
func (p Policy) Do(ctx context.Context, operation func(ctx context.Context) error) (int, error) {
	if p.MaxAttempts <= 0 {
		return 0, ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return attempt - 1, errors.Join(ctx.Err(), lastErr)
			}
			return attempt - 1, ctx.Err()
		default:
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return attempt, nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return attempt, perm.err
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return attempt, lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return p.MaxAttempts, lastErr
}

// delay calculates exponential backoff: BaseDelay * 2^(attempt-1).
func (p Policy) delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent marks err as not worth retrying. Do returns the wrapped error
// unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

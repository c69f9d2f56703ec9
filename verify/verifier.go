package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/vectorstore"
)

// StatsReader reads index statistics.
type StatsReader interface {
	DescribeIndexStats(ctx context.Context, index string) (*core.IndexStats, error)
}

// Verifier compares the vector count a store reports with the count an
// ingestion run expected to produce.
type Verifier struct {
	store        StatsReader
	atLeast      bool
	pollTimeout  time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithAtLeast accepts an observed count greater than expected. Use it when
// the index held vectors before the run.
func WithAtLeast() Option {
	return func(v *Verifier) {
		v.atLeast = true
	}
}

// WithPollTimeout keeps reading statistics until the count matches or the
// timeout elapses. Stores that index asynchronously report new vectors late.
func WithPollTimeout(timeout, interval time.Duration) Option {
	return func(v *Verifier) {
		v.pollTimeout = timeout
		v.pollInterval = interval
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a verifier reading from store.
func NewVerifier(store StatsReader, opts ...Option) (*Verifier, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	v := &Verifier{
		store:        store,
		pollInterval: time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.pollTimeout > 0 && v.pollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	v.logger = v.logger.With("component", "verifier")
	return v, nil
}

// Verify reads the statistics of desc's index and compares the count of
// desc's namespace with expected. Stores without per namespace counts are
// compared by their total.
//
// A count mismatch is not an error: it is reported through Matched and
// Warning. Errors are returned only when statistics cannot be read.
func (v *Verifier) Verify(ctx context.Context, desc core.IndexDescriptor, expected int) (*core.VerificationResult, error) {
	result := &core.VerificationResult{
		Index:     desc.Name,
		Namespace: desc.Namespace,
		Expected:  expected,
	}

	var deadline time.Time
	if v.pollTimeout > 0 {
		deadline = time.Now().Add(v.pollTimeout)
	}

	for {
		result.Attempts++
		stats, err := v.store.DescribeIndexStats(ctx, desc.Name)
		if err != nil {
			if !vectorstore.IsTransient(err) || deadline.IsZero() || time.Now().After(deadline) {
				return nil, fmt.Errorf("describe index stats %s: %w", desc.Name, err)
			}
			v.logger.Debug("transient error reading stats", "index", desc.Name, "err", err)
		} else {
			result.Stats = stats
			result.Observed = observed(stats, desc.Namespace)
			result.Matched = v.matches(result.Observed, expected)
		}

		if result.Matched || deadline.IsZero() || time.Now().After(deadline) {
			break
		}

		timer := time.NewTimer(v.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	result.CheckedAt = time.Now().UTC()
	if !result.Matched {
		result.Warning = fmt.Sprintf("index %s namespace %s reports %d vectors, expected %s%d",
			desc.Name, desc.Namespace, result.Observed, v.comparison(), expected)
		v.logger.Warn("vector count mismatch",
			"index", desc.Name, "namespace", desc.Namespace,
			"expected", expected, "observed", result.Observed, "attempts", result.Attempts)
	} else {
		v.logger.Info("vector count verified",
			"index", desc.Name, "namespace", desc.Namespace, "observed", result.Observed)
	}
	return result, nil
}

func (v *Verifier) matches(observed, expected int) bool {
	if v.atLeast {
		return observed >= expected
	}
	return observed == expected
}

func (v *Verifier) comparison() string {
	if v.atLeast {
		return "at least "
	}
	return ""
}

func observed(stats *core.IndexStats, namespace string) int {
	if len(stats.Namespaces) == 0 {
		return stats.TotalVectorCount
	}
	return stats.Namespaces[namespace]
}

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


package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/retry"
	"github.com/poiesic/vectorseed/vectorstore"
)

const (
	defaultReadyTimeout = 2 * time.Minute
	defaultPollInterval = time.Second
)

// Provisioner brings a named index into a known state before ingestion.
type Provisioner struct {
	store        vectorstore.IndexManager
	policy       retry.Policy
	readyTimeout time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithRetry sets the retry budget for each control plane call.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(p *Provisioner) {
		p.policy.MaxAttempts = maxAttempts
		p.policy.BaseDelay = baseDelay
		p.policy.MaxDelay = maxDelay
	}
}

// WithReadyTimeout bounds how long to wait for a created index to become
// ready, or for a deleted one to disappear.
func WithReadyTimeout(d time.Duration) Option {
	return func(p *Provisioner) {
		p.readyTimeout = d
	}
}

// WithPollInterval sets the delay between readiness checks.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provisioner) {
		p.pollInterval = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// NewProvisioner creates a provisioner for the given store.
func NewProvisioner(store vectorstore.IndexManager, opts ...Option) (*Provisioner, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	p := &Provisioner{
		store: store,
		policy: retry.Policy{
			MaxAttempts: 5,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Retryable:   vectorstore.IsTransient,
		},
		readyTimeout: defaultReadyTimeout,
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.policy.MaxAttempts <= 0 {
		return nil, retry.ErrInvalidMaxAttempts
	}
	if p.readyTimeout <= 0 || p.pollInterval <= 0 {
		return nil, errors.New("ready timeout and poll interval must be positive")
	}
	p.logger = p.logger.With("component", "provisioner")
	return p, nil
}

// Provision ensures desc exists, is ready and has the requested shape.
//
// In ModeReset an existing index is deleted and recreated, so the index is
// always empty afterwards. In ModeMerge an existing index is kept when its
// dimension and metric match and rejected otherwise.
//
// Invalid descriptors fail with *core.ConfigurationError before any remote
// call. Every other failure is a *core.IndexProvisioningError.
func (p *Provisioner) Provision(ctx context.Context, desc core.IndexDescriptor, mode Mode) (*core.IndexDescriptor, error) {
	if err := core.ValidateDescriptor(desc); err != nil {
		return nil, err
	}
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	logger := p.logger.With("index", desc.Name, "mode", mode)
	start := time.Now()

	exists, err := p.exists(ctx, desc.Name)
	if err != nil {
		return nil, err
	}

	if exists {
		switch mode {
		case ModeMerge:
			if err := p.checkCompatible(ctx, desc); err != nil {
				return nil, err
			}
			if err := p.waitReady(ctx, desc.Name); err != nil {
				return nil, err
			}
			logger.Info("keeping existing index", "elapsed", time.Since(start))
			return &desc, nil

		case ModeReset:
			logger.Warn("deleting existing index")
			if err := p.delete(ctx, desc.Name); err != nil {
				return nil, err
			}
		}
	}

	if err := p.create(ctx, desc); err != nil {
		return nil, err
	}
	if err := p.waitReady(ctx, desc.Name); err != nil {
		return nil, err
	}

	logger.Info("index provisioned", "dimension", desc.Dimension, "metric", desc.Metric, "elapsed", time.Since(start))
	return &desc, nil
}

// call runs a control plane operation with retries and wraps failures.
func (p *Provisioner) call(ctx context.Context, index, op string, fn func(ctx context.Context) error) error {
	attempts, err := p.policy.Do(ctx, fn)
	if err == nil {
		return nil
	}
	p.logger.Error("provisioning call failed", "index", index, "op", op, "attempts", attempts, "err", err)
	return &core.IndexProvisioningError{
		Index:     index,
		Op:        op,
		Permanent: !vectorstore.IsTransient(err) && ctx.Err() == nil,
		Err:       err,
	}
}

func (p *Provisioner) exists(ctx context.Context, name string) (bool, error) {
	var names []string
	err := p.call(ctx, name, "list", func(ctx context.Context) error {
		var err error
		names, err = p.store.ListIndexes(ctx)
		return err
	})
	return slices.Contains(names, name), err
}

func (p *Provisioner) checkCompatible(ctx context.Context, desc core.IndexDescriptor) error {
	var info *vectorstore.IndexInfo
	err := p.call(ctx, desc.Name, "describe", func(ctx context.Context) error {
		var err error
		info, err = p.store.DescribeIndex(ctx, desc.Name)
		return err
	})
	if err != nil {
		return err
	}
	if !info.Matches(desc) {
		return &core.IndexProvisioningError{
			Index:     desc.Name,
			Op:        "merge",
			Permanent: true,
			Err: fmt.Errorf("%w: existing index has dimension %d and metric %s, requested %d and %s",
				vectorstore.ErrConflict, info.Dimension, info.Metric, desc.Dimension, desc.Metric),
		}
	}
	return nil
}

func (p *Provisioner) delete(ctx context.Context, name string) error {
	err := p.call(ctx, name, "delete", func(ctx context.Context) error {
		err := p.store.DeleteIndex(ctx, name)
		if errors.Is(err, vectorstore.ErrIndexNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return p.poll(ctx, name, "wait_deleted", func(ctx context.Context) (bool, error) {
		names, err := p.store.ListIndexes(ctx)
		return !slices.Contains(names, name), err
	})
}

func (p *Provisioner) create(ctx context.Context, desc core.IndexDescriptor) error {
	return p.call(ctx, desc.Name, "create", func(ctx context.Context) error {
		return p.store.CreateIndex(ctx, desc)
	})
}

func (p *Provisioner) waitReady(ctx context.Context, name string) error {
	return p.poll(ctx, name, "wait_ready", func(ctx context.Context) (bool, error) {
		info, err := p.store.DescribeIndex(ctx, name)
		if err != nil {
			return false, err
		}
		return info.Ready, nil
	})
}

// poll calls check until it reports done or the ready timeout elapses.
// Transient errors are tolerated while polling.
func (p *Provisioner) poll(ctx context.Context, name, op string, check func(ctx context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, p.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		switch {
		case err == nil && done:
			return nil
		case err != nil && !vectorstore.IsTransient(err):
			return &core.IndexProvisioningError{Index: name, Op: op, Permanent: true, Err: err}
		case err != nil:
			p.logger.Debug("transient error while polling", "index", name, "op", op, "err", err)
		}

		select {
		case <-ctx.Done():
			return &core.IndexProvisioningError{
				Index: name,
				Op:    op,
				Err:   fmt.Errorf("index did not settle within %v: %w", p.readyTimeout, ctx.Err()),
			}
		case <-ticker.C:
		}
	}
}

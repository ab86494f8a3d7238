/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/pgplatform-operator/internal/features/postgres"
	"github.com/pgplatform-operator/internal/platform"
	"github.com/pgplatform-operator/internal/util"
)

// DefaultAPITimeout bounds every API server call made while reconciling.
const DefaultAPITimeout = 30 * time.Second

// OperatorConfig holds operator-wide configuration set via CLI flags.
type OperatorConfig struct {
	// DriftInterval is how often a Ready database is re-checked for drift
	// when no watch event arrives first (default: 10m).
	DriftInterval time.Duration

	// InstanceID partitions resources across multiple operators on the same cluster.
	// Resources are matched by the "db.pgplatform.io/operator-instance-id" label.
	// The default value "default" also manages unlabeled resources.
	InstanceID string

	// MaxConcurrentReconciles bounds how many databases are reconciled at once.
	MaxConcurrentReconciles int

	// APITimeout is the per-call timeout for API server reads and writes.
	APITimeout time.Duration

	// Backoff is the retry policy after a failed pass.
	Backoff util.RetryConfig

	// FailureDeadline is how long a database may keep failing before its
	// status reports Failed.
	FailureDeadline time.Duration

	// Platform holds the platform tables. Nil uses the built-in defaults.
	Platform *platform.Config
}

// DefaultOperatorConfig returns an OperatorConfig with production defaults.
func DefaultOperatorConfig() OperatorConfig {
	return OperatorConfig{
		DriftInterval:           postgres.DefaultDriftInterval,
		InstanceID:              util.DefaultInstanceID,
		MaxConcurrentReconciles: 1,
		APITimeout:              DefaultAPITimeout,
		Backoff:                 util.DefaultRetryConfig(),
		FailureDeadline:         postgres.DefaultFailureDeadline,
	}
}

// Validate reports every invalid setting.
func (c OperatorConfig) Validate() error {
	var errs []error
	if c.DriftInterval <= 0 {
		errs = append(errs, fmt.Errorf("drift interval must be positive, got %s", c.DriftInterval))
	}
	if c.InstanceID == "" {
		errs = append(errs, errors.New("instance ID must not be empty"))
	}
	if c.MaxConcurrentReconciles < 1 {
		errs = append(errs, fmt.Errorf("max concurrent reconciles must be at least 1, got %d", c.MaxConcurrentReconciles))
	}
	if c.APITimeout < 0 {
		errs = append(errs, fmt.Errorf("API timeout must not be negative, got %s", c.APITimeout))
	}
	if c.Backoff.InitialInterval <= 0 || c.Backoff.MaxInterval < c.Backoff.InitialInterval {
		errs = append(errs, fmt.Errorf("backoff must satisfy 0 < initial (%s) <= max (%s)",
			c.Backoff.InitialInterval, c.Backoff.MaxInterval))
	}
	if c.Backoff.RandomizationFactor < 0 || c.Backoff.RandomizationFactor >= 1 {
		errs = append(errs, fmt.Errorf("backoff jitter must be in [0, 1), got %g", c.Backoff.RandomizationFactor))
	}
	if c.FailureDeadline <= 0 {
		errs = append(errs, fmt.Errorf("failure deadline must be positive, got %s", c.FailureDeadline))
	}
	if c.Platform != nil {
		if err := c.Platform.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("platform config: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Timeouts returns the per-call timeouts derived from APITimeout.
func (c OperatorConfig) Timeouts() util.TimeoutConfig {
	return util.UniformTimeoutConfig(c.APITimeout)
}

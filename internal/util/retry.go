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

package util

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// RetryConfig defines retry behavior with exponential backoff
type RetryConfig struct {
	// InitialInterval is the backoff duration after the first failure
	InitialInterval time.Duration
	// MaxInterval is the ceiling - the interval never exceeds this
	MaxInterval time.Duration
	// Multiplier is the factor by which the interval increases each retry
	Multiplier float64
	// RandomizationFactor adds jitter to avoid thundering herd (0-1)
	RandomizationFactor float64
}

// DefaultRetryConfig returns the reconcile backoff policy.
// Sequence: 2s -> 4s -> 8s -> ... capped at 5m, each +/-10%
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     2 * time.Second,
		MaxInterval:         5 * time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.1,
	}
}

// Interval returns the un-jittered backoff after the given number of consecutive
// failures. The first failure waits InitialInterval.
func (c RetryConfig) Interval(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	multiplier := c.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	interval := float64(c.InitialInterval) * math.Pow(multiplier, float64(failures-1))
	if c.MaxInterval > 0 && interval > float64(c.MaxInterval) {
		return c.MaxInterval
	}
	return time.Duration(interval)
}

// Jitter spreads d uniformly over [d - f*d, d + f*d]. random must return a value in [0, 1).
// A nil random uses math/rand/v2.
func (c RetryConfig) Jitter(d time.Duration, random func() float64) time.Duration {
	if c.RandomizationFactor <= 0 || d <= 0 {
		return d
	}
	if random == nil {
		random = rand.Float64
	}
	delta := c.RandomizationFactor * float64(d)
	minInterval := float64(d) - delta
	return time.Duration(minInterval + random()*2*delta)
}

// Backoff returns the jittered delay after the given number of consecutive failures.
func (c RetryConfig) Backoff(failures int, random func() float64) time.Duration {
	return c.Jitter(c.Interval(failures), random)
}

// IsRetryableError determines if an error is transient.
// Returns true for API server overload, timeouts and dropped connections.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) ||
		apierrors.IsUnexpectedServerError(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"i/o timeout",
		"deadline exceeded",
		"temporary failure",
		"connection timed out",
		"network is unreachable",
		"no route to host",
		"broken pipe",
		"http2: client connection lost",
		"eof",
		"unavailable",
		"try again",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

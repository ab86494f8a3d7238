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
	"time"
)

// TimeoutConfig defines per-call timeouts for API server requests.
// Zero values mean no timeout (use parent context's deadline).
type TimeoutConfig struct {
	// ReadTimeout bounds a single get or list
	ReadTimeout time.Duration

	// WriteTimeout bounds a single create, update, patch or delete
	WriteTimeout time.Duration
}

// DefaultTimeoutConfig returns a 30s bound on every API call.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// UniformTimeoutConfig applies the same bound to reads and writes.
func UniformTimeoutConfig(d time.Duration) TimeoutConfig {
	return TimeoutConfig{ReadTimeout: d, WriteTimeout: d}
}

// WithTimeout wraps a context with a timeout if the duration is positive.
// If duration is zero or negative, returns the original context and a no-op cancel function.
// Always call the returned cancel function to release resources.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// WithReadTimeout wraps a context with the read timeout from config.
func (c TimeoutConfig) WithReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return WithTimeout(ctx, c.ReadTimeout)
}

// WithWriteTimeout wraps a context with the write timeout from config.
func (c TimeoutConfig) WithWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return WithTimeout(ctx, c.WriteTimeout)
}

// IsTimeoutError checks if an error is (or wraps) a context deadline exceeded error.
func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

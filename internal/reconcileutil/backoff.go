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

package reconcileutil

import (
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/clock"

	"github.com/pgplatform-operator/internal/util"
)

// Backoff describes the retry state of one object after a failure.
type Backoff struct {
	// Delay is how long to wait before the next pass
	Delay time.Duration

	// Failures is the number of consecutive failed passes
	Failures int

	// FailingFor is the time since the first failure in the current streak
	FailingFor time.Duration
}

type backoffEntry struct {
	failures     int
	firstFailure time.Time
}

// Tracker keeps consecutive-failure counts per object. It is safe for
// concurrent use and never holds its lock across API calls.
type Tracker struct {
	mu      sync.Mutex
	config  util.RetryConfig
	clock   clock.PassiveClock
	random  func() float64
	entries map[types.NamespacedName]*backoffEntry
}

// NewTracker creates a Tracker using config for delays and clk for failure age.
func NewTracker(config util.RetryConfig, clk clock.PassiveClock) *Tracker {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Tracker{
		config:  config,
		clock:   clk,
		entries: make(map[types.NamespacedName]*backoffEntry),
	}
}

// WithRandom replaces the jitter source. Intended for tests.
func (t *Tracker) WithRandom(random func() float64) *Tracker {
	t.random = random
	return t
}

// Failure records a failed pass for key and returns the backoff to apply.
func (t *Tracker) Failure(key types.NamespacedName) Backoff {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		entry = &backoffEntry{firstFailure: now}
		t.entries[key] = entry
	}
	entry.failures++

	return Backoff{
		Delay:      t.config.Backoff(entry.failures, t.random),
		Failures:   entry.failures,
		FailingFor: now.Sub(entry.firstFailure),
	}
}

// Reset clears the failure streak for key after a successful pass.
func (t *Tracker) Reset(key types.NamespacedName) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Failures returns the current streak length for key.
func (t *Tracker) Failures(key types.NamespacedName) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[key]; ok {
		return entry.failures
	}
	return 0
}

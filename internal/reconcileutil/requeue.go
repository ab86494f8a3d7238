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
	"errors"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/pgplatform-operator/internal/service"
)

const (
	// RequeueAfterCreating is how often a converging database is re-checked
	// when no watch event arrives first.
	RequeueAfterCreating = 15 * time.Second

	// RequeueAfterDeleting is how often deletion re-checks whether the PostgresCluster is gone.
	RequeueAfterDeleting = 5 * time.Second
)

// ErrorClass represents the classification of an error for requeue decisions.
type ErrorClass int

const (
	// ErrorClassTransient indicates an infrastructure error that should be retried with backoff.
	ErrorClassTransient ErrorClass = iota

	// ErrorClassConflict indicates a lost optimistic-concurrency race. The next pass
	// re-reads and recomputes from fresh state.
	ErrorClassConflict

	// ErrorClassPermanent indicates an error that will not resolve on retry.
	ErrorClassPermanent
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassConflict:
		return "conflict"
	case ErrorClassPermanent:
		return "permanent"
	default:
		return "transient"
	}
}

// ClassifyError determines the error class for requeue decisions.
// Validation and ownership errors are permanent; they need a human to change
// the PostgresDatabase or remove the foreign PostgresCluster.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassTransient
	}

	if service.IsValidationError(err) {
		return ErrorClassPermanent
	}
	if errors.Is(err, service.ErrNotOwned) {
		return ErrorClassPermanent
	}

	if service.IsConflict(err) || apierrors.IsConflict(err) {
		return ErrorClassConflict
	}

	return ErrorClassTransient
}

// ClassifyRequeue returns the ctrl.Result for a failed pass.
// Permanent errors are not requeued. Everything else waits for backoff.
// The returned error is always nil so the backoff, not the workqueue rate
// limiter, decides when the next pass runs.
func ClassifyRequeue(err error, backoff time.Duration) (ctrl.Result, error) {
	if ClassifyError(err) == ErrorClassPermanent {
		return ctrl.Result{}, nil
	}
	return ctrl.Result{RequeueAfter: backoff}, nil
}

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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/service"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/target"
	"github.com/pgplatform-operator/internal/util"
)

// Repository reads and writes PostgresClusters. Every call runs under the
// configured per-call timeout.
type Repository struct {
	client   client.Client
	applier  *apply.Applier
	timeouts util.TimeoutConfig
	logger   logr.Logger
}

// RepositoryConfig holds dependencies for the repository.
type RepositoryConfig struct {
	Client   client.Client
	Applier  *apply.Applier
	Timeouts util.TimeoutConfig
	Logger   logr.Logger
}

// NewRepository creates a new PostgresCluster repository.
func NewRepository(cfg RepositoryConfig) *Repository {
	return &Repository{
		client:   cfg.Client,
		applier:  cfg.Applier,
		timeouts: cfg.Timeouts,
		logger:   cfg.Logger,
	}
}

// GetTarget returns the PostgresCluster for key, or nil if none exists.
func (r *Repository) GetTarget(ctx context.Context, key types.NamespacedName) (*unstructured.Unstructured, error) {
	ctx, cancel := r.timeouts.WithReadTimeout(ctx)
	defer cancel()

	live := target.New()
	if err := r.client.Get(ctx, key, live); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, wrap("get", key, r.timeouts.ReadTimeout, err)
	}
	return live, nil
}

// ApplyTarget writes the owned subset of desired onto live.
func (r *Repository) ApplyTarget(
	ctx context.Context,
	owner *dbv1alpha1.PostgresDatabase,
	desired *target.ClusterSpec,
	live *unstructured.Unstructured,
) (*apply.Result, error) {
	ctx, cancel := r.timeouts.WithWriteTimeout(ctx)
	defer cancel()

	result, err := r.applier.Apply(ctx, owner, desired, live)
	if err != nil {
		return nil, wrap("apply", client.ObjectKeyFromObject(owner), r.timeouts.WriteTimeout, err)
	}
	return result, nil
}

// DeleteTarget deletes live if owner controls it.
func (r *Repository) DeleteTarget(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, live *unstructured.Unstructured) error {
	ctx, cancel := r.timeouts.WithWriteTimeout(ctx)
	defer cancel()

	if err := r.applier.DeleteOwned(ctx, owner, live); err != nil {
		return wrap("delete", client.ObjectKeyFromObject(owner), r.timeouts.WriteTimeout, err)
	}
	return nil
}

// wrap marks deadline expiry as a service timeout. It is retried like any
// other transient failure but reads clearly in logs and status.
func wrap(operation string, key types.NamespacedName, timeout time.Duration, err error) error {
	if util.IsTimeoutError(err) {
		return service.NewTimeoutError(operation, "PostgresCluster "+key.String(), timeout.String(), err)
	}
	return fmt.Errorf("%s PostgresCluster %s: %w", operation, key, err)
}

var _ RepositoryInterface = (*Repository)(nil)

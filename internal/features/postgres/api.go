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

// Package postgres provides the PostgresDatabase feature module. It turns each
// PostgresDatabase into a PostgresCluster and reports the cluster's progress
// back on the PostgresDatabase status.
package postgres

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/target"
)

// API defines the public interface for the postgres module.
type API interface {
	// Plan defaults and validates the database's spec and translates it.
	// Validation failures are returned as service validation errors.
	Plan(ctx context.Context, db *dbv1alpha1.PostgresDatabase, now time.Time) (*Plan, error)

	// Apply brings the PostgresCluster in line with the plan.
	Apply(ctx context.Context, db *dbv1alpha1.PostgresDatabase, plan *Plan, now time.Time) (*apply.Result, error)

	// Delete removes the PostgresCluster. It reports true once nothing this
	// database owns is left.
	Delete(ctx context.Context, db *dbv1alpha1.PostgresDatabase) (bool, error)
}

// Plan is the outcome of validating and translating one spec.
type Plan struct {
	// Spec is the defaulted spec.
	Spec dbv1alpha1.PostgresDatabaseSpec

	// Accepted is the immutable subset to record once Spec is applied.
	Accepted *dbv1alpha1.AcceptedSpec

	// Desired is the PostgresCluster spec Spec translates to.
	Desired *target.ClusterSpec

	// Warnings are non-fatal advice about Spec.
	Warnings []string
}

// RepositoryInterface is the API access the handler needs.
type RepositoryInterface interface {
	// GetTarget returns the PostgresCluster for key, or nil if none exists.
	GetTarget(ctx context.Context, key types.NamespacedName) (*unstructured.Unstructured, error)

	// ApplyTarget writes the owned subset of desired onto live.
	ApplyTarget(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, desired *target.ClusterSpec, live *unstructured.Unstructured) (*apply.Result, error)

	// DeleteTarget deletes live if owner controls it.
	DeleteTarget(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, live *unstructured.Unstructured) error
}

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

// Package v1alpha1 holds the admission webhooks for db.pgplatform.io/v1alpha1.
package v1alpha1

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/platform"
	"github.com/pgplatform-operator/internal/service/validation"
)

var postgresdatabaselog = logf.Log.WithName("postgresdatabase-resource")

// SetupPostgresDatabaseWebhookWithManager registers the webhooks for PostgresDatabase.
// A nil tables uses the built-in platform defaults.
func SetupPostgresDatabaseWebhookWithManager(mgr ctrl.Manager, tables *platform.Config) error {
	if tables == nil {
		tables = platform.Default()
	}
	return ctrl.NewWebhookManagedBy(mgr).For(&dbv1alpha1.PostgresDatabase{}).
		WithValidator(NewPostgresDatabaseValidator(tables)).
		WithDefaulter(&PostgresDatabaseCustomDefaulter{}).
		Complete()
}

// +kubebuilder:webhook:path=/mutate-db-pgplatform-io-v1alpha1-postgresdatabase,mutating=true,failurePolicy=fail,sideEffects=None,groups=db.pgplatform.io,resources=postgresdatabases,verbs=create;update,versions=v1alpha1,name=mpostgresdatabase-v1alpha1.pgplatform.io,admissionReviewVersions=v1

// PostgresDatabaseCustomDefaulter fills the optional feature flags.
type PostgresDatabaseCustomDefaulter struct{}

var _ webhook.CustomDefaulter = &PostgresDatabaseCustomDefaulter{}

// Default implements webhook.CustomDefaulter.
func (d *PostgresDatabaseCustomDefaulter) Default(_ context.Context, obj runtime.Object) error {
	db, ok := obj.(*dbv1alpha1.PostgresDatabase)
	if !ok {
		return fmt.Errorf("expected a PostgresDatabase object but got %T", obj)
	}
	if validation.Default(&db.Spec) {
		postgresdatabaselog.V(1).Info("Defaulted PostgresDatabase", "name", db.GetName(), "namespace", db.GetNamespace())
	}
	return nil
}

// +kubebuilder:webhook:path=/validate-db-pgplatform-io-v1alpha1-postgresdatabase,mutating=false,failurePolicy=fail,sideEffects=None,groups=db.pgplatform.io,resources=postgresdatabases,verbs=create;update,versions=v1alpha1,name=vpostgresdatabase-v1alpha1.pgplatform.io,admissionReviewVersions=v1

// PostgresDatabaseCustomValidator rejects specs the reconciler would reject,
// so developers see the error at apply time instead of in status.
type PostgresDatabaseCustomValidator struct {
	validator *validation.Validator
}

var _ webhook.CustomValidator = &PostgresDatabaseCustomValidator{}

// NewPostgresDatabaseValidator creates a validator over the given platform tables.
func NewPostgresDatabaseValidator(tables *platform.Config) *PostgresDatabaseCustomValidator {
	return &PostgresDatabaseCustomValidator{validator: validation.New(tables)}
}

// ValidateCreate implements webhook.CustomValidator.
func (v *PostgresDatabaseCustomValidator) ValidateCreate(_ context.Context, obj runtime.Object) (admission.Warnings, error) {
	db, ok := obj.(*dbv1alpha1.PostgresDatabase)
	if !ok {
		return nil, fmt.Errorf("expected a PostgresDatabase object but got %T", obj)
	}
	postgresdatabaselog.V(1).Info("Validation for PostgresDatabase upon creation", "name", db.GetName())

	spec, err := v.validator.Check(&db.Spec, nil, db.Annotations)
	if err != nil {
		return nil, err
	}
	return validation.Warnings(spec), nil
}

// ValidateUpdate implements webhook.CustomValidator. The immutable fields are
// compared with the spec the reconciler last accepted, falling back to the old
// object's spec before the first acceptance.
func (v *PostgresDatabaseCustomValidator) ValidateUpdate(_ context.Context, oldObj, newObj runtime.Object) (admission.Warnings, error) {
	db, ok := newObj.(*dbv1alpha1.PostgresDatabase)
	if !ok {
		return nil, fmt.Errorf("expected a PostgresDatabase object for the newObj but got %T", newObj)
	}
	old, ok := oldObj.(*dbv1alpha1.PostgresDatabase)
	if !ok {
		return nil, fmt.Errorf("expected a PostgresDatabase object for the oldObj but got %T", oldObj)
	}
	postgresdatabaselog.V(1).Info("Validation for PostgresDatabase upon update", "name", db.GetName())

	// Finalizer removal must never be blocked.
	if !db.DeletionTimestamp.IsZero() {
		return nil, nil
	}

	accepted := old.Status.AcceptedSpec
	if accepted == nil {
		accepted = validation.Accept(&old.Spec)
	}
	spec, err := v.validator.Check(&db.Spec, accepted, db.Annotations)
	if err != nil {
		return nil, err
	}
	return validation.Warnings(spec), nil
}

// ValidateDelete implements webhook.CustomValidator. Deletion is always allowed.
func (v *PostgresDatabaseCustomValidator) ValidateDelete(_ context.Context, _ runtime.Object) (admission.Warnings, error) {
	return nil, nil
}

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

// Package validation defaults and validates PostgresDatabase specs.
// It performs no I/O and is shared by the reconciler, the admission webhooks and pgctl.
package validation

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/utils/ptr"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/platform"
	"github.com/pgplatform-operator/internal/service"
)

// Validator checks specs against the platform tables.
type Validator struct {
	platform *platform.Config
}

// New creates a Validator. A nil config uses the built-in platform defaults.
func New(cfg *platform.Config) *Validator {
	if cfg == nil {
		cfg = platform.Default()
	}
	return &Validator{platform: cfg}
}

// Default fills unset optional fields. It reports whether anything changed.
func Default(spec *dbv1alpha1.PostgresDatabaseSpec) bool {
	changed := false
	if spec.BackupEnabled == nil {
		spec.BackupEnabled = ptr.To(true)
		changed = true
	}
	if spec.MonitoringEnabled == nil {
		spec.MonitoringEnabled = ptr.To(true)
		changed = true
	}
	return changed
}

// Check defaults a copy of spec and validates it. accepted is the immutable subset of
// the last spec that passed validation, or nil on create. annotations are the
// candidate object's annotations.
func (v *Validator) Check(
	spec *dbv1alpha1.PostgresDatabaseSpec,
	accepted *dbv1alpha1.AcceptedSpec,
	annotations map[string]string,
) (*dbv1alpha1.PostgresDatabaseSpec, error) {
	out := spec.DeepCopy()
	Default(out)

	var errs []error
	errs = append(errs, v.validateFields(out)...)
	if accepted != nil {
		errs = append(errs, validateImmutable(out, accepted, annotations)...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Accept returns the immutable subset of a spec that passed Check.
func Accept(spec *dbv1alpha1.PostgresDatabaseSpec) *dbv1alpha1.AcceptedSpec {
	return &dbv1alpha1.AcceptedSpec{
		Version:     spec.Version,
		StorageSize: spec.StorageSize,
	}
}

// Warnings returns non-fatal advice about a spec.
func Warnings(spec *dbv1alpha1.PostgresDatabaseSpec) []string {
	var warnings []string
	if spec.Replicas > 1 && spec.Replicas%2 == 0 {
		warnings = append(warnings, fmt.Sprintf(
			"spec.replicas: %d is even; an odd count of 3 or more is recommended for high availability", spec.Replicas))
	}
	return warnings
}

func (v *Validator) validateFields(spec *dbv1alpha1.PostgresDatabaseSpec) []error {
	var errs []error

	if _, ok := v.platform.ImageFor(spec.Version); !ok {
		errs = append(errs, &service.UnsupportedVersionError{
			Version:   spec.Version,
			Supported: v.platform.SupportedVersions(),
		})
	}

	if spec.Replicas < 1 || spec.Replicas > v.platform.MaxReplicas {
		errs = append(errs, &service.OutOfRangeError{
			FieldPath: "spec.replicas",
			Value:     int64(spec.Replicas),
			Min:       1,
			Max:       int64(v.platform.MaxReplicas),
		})
	}

	if _, err := positiveQuantity("spec.storageSize", spec.StorageSize); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, v.validateOverrides(spec.ResourceOverrides)...)
	return errs
}

func (v *Validator) validateOverrides(overrides *dbv1alpha1.ResourceOverrides) []error {
	if overrides == nil {
		return nil
	}

	var errs []error
	leaf := func(path, value string) {
		if value == "" {
			return
		}
		if _, err := positiveQuantity(path, value); err != nil {
			errs = append(errs, err)
		}
	}
	if r := overrides.Requests; r != nil {
		leaf("spec.resourceOverrides.requests.cpu", r.CPU)
		leaf("spec.resourceOverrides.requests.memory", r.Memory)
	}
	if l := overrides.Limits; l != nil {
		leaf("spec.resourceOverrides.limits.cpu", l.CPU)
		leaf("spec.resourceOverrides.limits.memory", l.Memory)
	}
	if len(errs) > 0 {
		return errs
	}

	// Requests may not exceed limits once merged with the platform defaults.
	d := v.platform.DefaultResources
	pick := func(values *dbv1alpha1.ResourceValues, cpu bool, fallback string) string {
		if values == nil {
			return fallback
		}
		if cpu && values.CPU != "" {
			return values.CPU
		}
		if !cpu && values.Memory != "" {
			return values.Memory
		}
		return fallback
	}
	pairs := []struct {
		name           string
		request, limit string
	}{
		{"cpu", pick(overrides.Requests, true, d.Requests.CPU), pick(overrides.Limits, true, d.Limits.CPU)},
		{"memory", pick(overrides.Requests, false, d.Requests.Memory), pick(overrides.Limits, false, d.Limits.Memory)},
	}
	for _, p := range pairs {
		req, reqErr := resource.ParseQuantity(p.request)
		lim, limErr := resource.ParseQuantity(p.limit)
		if reqErr != nil || limErr != nil {
			continue
		}
		if req.Cmp(lim) > 0 {
			errs = append(errs, &service.ValidationError{
				FieldPath: "spec.resourceOverrides",
				Message:   fmt.Sprintf("%s request %s exceeds limit %s", p.name, p.request, p.limit),
			})
		}
	}
	return errs
}

func validateImmutable(
	spec *dbv1alpha1.PostgresDatabaseSpec,
	accepted *dbv1alpha1.AcceptedSpec,
	annotations map[string]string,
) []error {
	var errs []error

	if spec.Version != accepted.Version {
		errs = append(errs, &service.ImmutableFieldError{
			FieldPath: "spec.version",
			Old:       fmt.Sprintf("%d", accepted.Version),
			New:       fmt.Sprintf("%d", spec.Version),
			Reason:    "major version changes require an explicit migration",
		})
	}

	newSize, newErr := resource.ParseQuantity(spec.StorageSize)
	oldSize, oldErr := resource.ParseQuantity(accepted.StorageSize)
	if newErr != nil || oldErr != nil {
		return errs
	}
	switch newSize.Cmp(oldSize) {
	case -1:
		errs = append(errs, &service.ImmutableFieldError{
			FieldPath: "spec.storageSize",
			Old:       accepted.StorageSize,
			New:       spec.StorageSize,
			Reason:    "storage cannot shrink",
		})
	case 1:
		if annotations[dbv1alpha1.AnnotationApproveStorageExpansion] != "true" {
			errs = append(errs, &service.ImmutableFieldError{
				FieldPath: "spec.storageSize",
				Old:       accepted.StorageSize,
				New:       spec.StorageSize,
				Reason:    fmt.Sprintf("expansion requires the %s=true annotation", dbv1alpha1.AnnotationApproveStorageExpansion),
			})
		}
	}
	return errs
}

func positiveQuantity(path, value string) (resource.Quantity, error) {
	q, err := resource.ParseQuantity(value)
	if err != nil || q.Sign() <= 0 {
		return resource.Quantity{}, &service.InvalidQuantityError{FieldPath: path, Value: value}
	}
	return q, nil
}

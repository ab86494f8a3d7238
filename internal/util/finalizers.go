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
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
)

// DefaultInstanceID is the operator instance that also manages unlabeled resources.
const DefaultInstanceID = "default"

// FinalizerPostgresDatabase holds a PostgresDatabase until its PostgresCluster is gone.
const FinalizerPostgresDatabase = "db.pgplatform.io/cluster-protection"

// Annotation keys
const (
	// AnnotationSkipReconcile temporarily skips reconciliation
	AnnotationSkipReconcile = "db.pgplatform.io/skip-reconcile"

	// AnnotationPauseReconcile pauses reconciliation
	AnnotationPauseReconcile = "db.pgplatform.io/pause-reconcile"
)

// AddFinalizer adds a finalizer to an object if it doesn't exist
func AddFinalizer(obj client.Object, finalizer string) bool {
	return controllerutil.AddFinalizer(obj, finalizer)
}

// RemoveFinalizer removes a finalizer from an object
func RemoveFinalizer(obj client.Object, finalizer string) bool {
	return controllerutil.RemoveFinalizer(obj, finalizer)
}

// HasFinalizer checks if an object has a specific finalizer
func HasFinalizer(obj client.Object, finalizer string) bool {
	return controllerutil.ContainsFinalizer(obj, finalizer)
}

// IsMarkedForDeletion checks if an object is marked for deletion
func IsMarkedForDeletion(obj client.Object) bool {
	return !obj.GetDeletionTimestamp().IsZero()
}

// ShouldSkipReconcile checks if reconciliation should be skipped
func ShouldSkipReconcile(obj client.Object) bool {
	annotations := obj.GetAnnotations()
	if annotations == nil {
		return false
	}
	return annotations[AnnotationSkipReconcile] == "true" ||
		annotations[AnnotationPauseReconcile] == "true"
}

// MatchesInstanceID reports whether obj is assigned to the operator instance id.
// Unlabeled objects belong to the default instance.
func MatchesInstanceID(obj client.Object, id string) bool {
	if obj == nil {
		return false
	}
	val, ok := obj.GetLabels()[dbv1alpha1.LabelOperatorInstanceID]
	if !ok {
		return id == DefaultInstanceID
	}
	return val == id
}

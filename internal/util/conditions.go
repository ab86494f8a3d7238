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
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Condition types for PostgresDatabase resources
const (
	// ConditionTypeReady indicates whether the database is serving
	ConditionTypeReady = "Ready"

	// ConditionTypeSynced indicates whether the PostgresCluster matches the translated spec
	ConditionTypeSynced = "Synced"

	// ConditionTypeProgressing indicates whether a rollout is still converging
	ConditionTypeProgressing = "Progressing"

	// ConditionTypeDegraded indicates whether the PostgresCluster reports a failure
	ConditionTypeDegraded = "Degraded"
)

// Condition reasons
const (
	ReasonReconciling      = "Reconciling"
	ReasonReconcileSuccess = "ReconcileSuccess"
	ReasonReconcileFailed  = "ReconcileFailed"
	ReasonValidationFailed = "ValidationFailed"
	ReasonApplied          = "Applied"
	ReasonApplyConflict    = "ApplyConflict"
	ReasonTargetNotFound   = "TargetNotFound"
	ReasonTargetNotOwned   = "TargetNotOwned"
	ReasonRollingOut       = "RollingOut"
	ReasonRolloutComplete  = "RolloutComplete"
	ReasonTargetFailing    = "TargetFailing"
	ReasonHealthy          = "Healthy"
	ReasonDeleting         = "Deleting"
)

// SetCondition adds or updates a condition in the conditions list.
// LastTransitionTime only moves when the status flips, so repeated calls with the
// same inputs leave the list unchanged.
func SetCondition(
	conditions *[]metav1.Condition,
	conditionType string,
	status metav1.ConditionStatus,
	reason, message string,
	generation int64,
	now time.Time,
) {
	for i, c := range *conditions {
		if c.Type != conditionType {
			continue
		}
		if c.Status == status && c.Reason == reason && c.Message == message && c.ObservedGeneration == generation {
			return
		}
		transition := c.LastTransitionTime
		if c.Status != status {
			transition = metav1.NewTime(now)
		}
		(*conditions)[i] = metav1.Condition{
			Type:               conditionType,
			Status:             status,
			Reason:             reason,
			Message:            message,
			LastTransitionTime: transition,
			ObservedGeneration: generation,
		}
		return
	}

	*conditions = append(*conditions, metav1.Condition{
		Type:               conditionType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		LastTransitionTime: metav1.NewTime(now),
		ObservedGeneration: generation,
	})
}

// GetCondition returns a condition by type
func GetCondition(conditions []metav1.Condition, conditionType string) *metav1.Condition {
	for i := range conditions {
		if conditions[i].Type == conditionType {
			return &conditions[i]
		}
	}
	return nil
}

// IsConditionTrue checks if a condition is true
func IsConditionTrue(conditions []metav1.Condition, conditionType string) bool {
	cond := GetCondition(conditions, conditionType)
	return cond != nil && cond.Status == metav1.ConditionTrue
}

// IsConditionFalse checks if a condition is false
func IsConditionFalse(conditions []metav1.Condition, conditionType string) bool {
	cond := GetCondition(conditions, conditionType)
	return cond != nil && cond.Status == metav1.ConditionFalse
}

// ConditionStatus converts a bool to a condition status.
func ConditionStatus(ok bool) metav1.ConditionStatus {
	if ok {
		return metav1.ConditionTrue
	}
	return metav1.ConditionFalse
}

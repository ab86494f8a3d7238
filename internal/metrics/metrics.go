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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	// Metric namespace
	namespace = "pgplatform"

	// Label names
	labelName      = "name"
	labelNamespace = "namespace"
	labelResult    = "result"
	labelOutcome   = "outcome"
	labelReason    = "reason"
	labelField     = "field"
	labelPhase     = "phase"
)

// Reconcile result values
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultConflict = "conflict"
	ResultRejected = "rejected"
	ResultSkipped  = "skipped"
)

// OutcomeDeleted is recorded when the PostgresCluster is deleted. The other
// outcome values are the Applier's.
const OutcomeDeleted = "deleted"

// Phases is every phase the resource_phase gauge reports.
var Phases = []string{"Pending", "Creating", "Ready", "Failed", "Deleting"}

var (
	// Reconcile metrics

	// ReconcileTotal tracks reconcile passes by result
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Total number of PostgresDatabase reconcile passes",
		},
		[]string{labelNamespace, labelResult},
	)

	// ReconcileDurationSeconds tracks the duration of reconcile passes
	ReconcileDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of PostgresDatabase reconcile passes in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{labelNamespace},
	)

	// Apply metrics

	// ApplyOperationsTotal tracks what each apply did to the PostgresCluster
	ApplyOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_operations_total",
			Help:      "Total number of PostgresCluster apply operations by outcome",
		},
		[]string{labelNamespace, labelOutcome},
	)

	// DriftCorrectionsTotal tracks owned fields that were rewritten after drifting
	DriftCorrectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_corrections_total",
			Help:      "Total number of owned PostgresCluster fields corrected after drift",
		},
		[]string{labelNamespace, labelField},
	)

	// ConflictRetriesTotal tracks passes retried after losing a write race
	ConflictRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_retries_total",
			Help:      "Total number of reconcile passes retried after a write conflict",
		},
		[]string{labelNamespace},
	)

	// Validation metrics

	// ValidationFailuresTotal tracks rejected specs by reason
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Total number of rejected PostgresDatabase specs",
		},
		[]string{labelNamespace, labelReason},
	)

	// Retry metrics

	// BackoffDelaySeconds tracks the requeue delays handed out after failures
	BackoffDelaySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backoff_delay_seconds",
			Help:      "Requeue delay chosen after a failed reconcile pass in seconds",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 300, 330},
		},
	)

	// Resource phase

	// ResourcePhase reports 1 for the current phase of each PostgresDatabase and 0 for the others
	ResourcePhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_phase",
			Help:      "Current phase of each PostgresDatabase (1 for the active phase)",
		},
		[]string{labelName, labelNamespace, labelPhase},
	)
)

func init() {
	// Register all metrics with the controller-runtime metrics registry
	metrics.Registry.MustRegister(
		ReconcileTotal,
		ReconcileDurationSeconds,
		ApplyOperationsTotal,
		DriftCorrectionsTotal,
		ConflictRetriesTotal,
		ValidationFailuresTotal,
		BackoffDelaySeconds,
		ResourcePhase,
	)
}

// RecordReconcile records a finished reconcile pass
func RecordReconcile(namespace, result string, seconds float64) {
	ReconcileTotal.WithLabelValues(namespace, result).Inc()
	ReconcileDurationSeconds.WithLabelValues(namespace).Observe(seconds)
}

// RecordApply records an apply outcome
func RecordApply(namespace, outcome string) {
	ApplyOperationsTotal.WithLabelValues(namespace, outcome).Inc()
}

// RecordDriftCorrections records each corrected field once
func RecordDriftCorrections(namespace string, fields []string) {
	for _, field := range fields {
		DriftCorrectionsTotal.WithLabelValues(namespace, field).Inc()
	}
}

// RecordConflictRetry records a pass retried after a write conflict
func RecordConflictRetry(namespace string) {
	ConflictRetriesTotal.WithLabelValues(namespace).Inc()
}

// RecordValidationFailure records a rejected spec
func RecordValidationFailure(namespace, reason string) {
	ValidationFailuresTotal.WithLabelValues(namespace, reason).Inc()
}

// RecordBackoff records a requeue delay
func RecordBackoff(seconds float64) {
	BackoffDelaySeconds.Observe(seconds)
}

// SetPhase sets the phase gauge so exactly one phase reports 1
func SetPhase(name, namespace, phase string) {
	for _, p := range Phases {
		value := float64(0)
		if p == phase {
			value = 1
		}
		ResourcePhase.WithLabelValues(name, namespace, p).Set(value)
	}
}

// DeletePhaseMetrics removes the phase series of a deleted PostgresDatabase
func DeletePhaseMetrics(name, namespace string) {
	ResourcePhase.DeletePartialMatch(prometheus.Labels{labelName: name, labelNamespace: namespace})
}

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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PostgresDatabaseSpec defines the desired state of PostgresDatabase.
type PostgresDatabaseSpec struct {
	// Version is the PostgreSQL major version (immutable after creation)
	// +kubebuilder:validation:Required
	Version int32 `json:"version"`

	// Replicas is the number of PostgreSQL instances. 1 is standalone;
	// an odd count of 3 or more enables high availability.
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:default=1
	Replicas int32 `json:"replicas"`

	// StorageSize is the data volume capacity (e.g. "100Gi")
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	StorageSize string `json:"storageSize"`

	// BackupEnabled adds scheduled pgBackRest backups (default: true)
	// +kubebuilder:default=true
	// +optional
	BackupEnabled *bool `json:"backupEnabled,omitempty"`

	// MonitoringEnabled adds the metrics exporter sidecar (default: true)
	// +kubebuilder:default=true
	// +optional
	MonitoringEnabled *bool `json:"monitoringEnabled,omitempty"`

	// ResourceOverrides replaces individual platform default CPU/memory values
	// +optional
	ResourceOverrides *ResourceOverrides `json:"resourceOverrides,omitempty"`
}

// IsBackupEnabled reports whether backups are enabled, treating unset as true.
func (s *PostgresDatabaseSpec) IsBackupEnabled() bool {
	return s.BackupEnabled == nil || *s.BackupEnabled
}

// IsMonitoringEnabled reports whether monitoring is enabled, treating unset as true.
func (s *PostgresDatabaseSpec) IsMonitoringEnabled() bool {
	return s.MonitoringEnabled == nil || *s.MonitoringEnabled
}

// PostgresDatabaseStatus defines the observed state of PostgresDatabase.
type PostgresDatabaseStatus struct {
	// Phase reflects the readiness reported by the generated PostgresCluster
	// +optional
	Phase Phase `json:"phase,omitempty"`

	// ObservedGeneration is the generation that was applied and observed ready
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Endpoint is the in-cluster host:port clients connect to
	// +optional
	Endpoint string `json:"endpoint,omitempty"`

	// ReadyReplicas is the number of ready PostgreSQL instances
	// +optional
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`

	// Message provides additional information about the current state
	// +optional
	Message string `json:"message,omitempty"`

	// LastBackupTime is the completion time of the newest scheduled backup
	// +optional
	LastBackupTime *metav1.Time `json:"lastBackupTime,omitempty"`

	// AcceptedSpec is the immutable subset of the last spec that passed validation
	// +optional
	AcceptedSpec *AcceptedSpec `json:"acceptedSpec,omitempty"`

	// Conditions represent the latest available observations
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=pgdb
// +kubebuilder:printcolumn:name="Version",type=integer,JSONPath=`.spec.version`
// +kubebuilder:printcolumn:name="Replicas",type=integer,JSONPath=`.spec.replicas`
// +kubebuilder:printcolumn:name="Ready",type=integer,JSONPath=`.status.readyReplicas`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Endpoint",type=string,JSONPath=`.status.endpoint`,priority=1
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// PostgresDatabase is the Schema for the postgresdatabases API.
type PostgresDatabase struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PostgresDatabaseSpec   `json:"spec,omitempty"`
	Status PostgresDatabaseStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// PostgresDatabaseList contains a list of PostgresDatabase.
type PostgresDatabaseList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PostgresDatabase `json:"items"`
}

func init() {
	SchemeBuilder.Register(&PostgresDatabase{}, &PostgresDatabaseList{})
}

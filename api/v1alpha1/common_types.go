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

// Phase represents the coarse lifecycle state of a PostgresDatabase
// +kubebuilder:validation:Enum=Pending;Creating;Ready;Failed;Deleting
type Phase string

const (
	PhasePending  Phase = "Pending"
	PhaseCreating Phase = "Creating"
	PhaseReady    Phase = "Ready"
	PhaseFailed   Phase = "Failed"
	PhaseDeleting Phase = "Deleting"
)

// Labels and annotations understood by the operator.
const (
	// LabelOperatorInstanceID assigns a resource to one operator instance when several
	// operators share a cluster.
	LabelOperatorInstanceID = "db.pgplatform.io/operator-instance-id"

	// LabelOwner is the ownership marker set on every generated PostgresCluster.
	// Its value is the name of the owning PostgresDatabase.
	LabelOwner = "db.pgplatform.io/owner"

	// LabelManagedBy is the well-known managed-by label, set to ManagedByValue.
	LabelManagedBy = "app.kubernetes.io/managed-by"

	// ManagedByValue identifies this operator in LabelManagedBy.
	ManagedByValue = "pgplatform-operator"

	// AnnotationApproveStorageExpansion must be "true" for a storageSize increase to be accepted.
	AnnotationApproveStorageExpansion = "db.pgplatform.io/approve-storage-expansion"
)

// ResourceValues holds a CPU and memory pair. Empty fields fall back to platform defaults.
type ResourceValues struct {
	// CPU quantity (e.g. "500m")
	// +optional
	CPU string `json:"cpu,omitempty"`

	// Memory quantity (e.g. "1Gi")
	// +optional
	Memory string `json:"memory,omitempty"`
}

// ResourceOverrides is a partial override of the platform default compute resources.
type ResourceOverrides struct {
	// +optional
	Requests *ResourceValues `json:"requests,omitempty"`

	// +optional
	Limits *ResourceValues `json:"limits,omitempty"`
}

// AcceptedSpec records the immutable parts of the last spec that passed validation.
type AcceptedSpec struct {
	Version     int32  `json:"version"`
	StorageSize string `json:"storageSize"`
}

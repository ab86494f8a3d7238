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

// Package target is a typed mirror of the subset of the Crunchy PostgresCluster
// (postgres-operator.crunchydata.com/v1beta1) that this operator writes and reads.
// The live object is always handled as unstructured so fields outside this subset
// survive every round trip.
package target

import (
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// GroupVersionKind of the generated resource.
var GroupVersionKind = schema.GroupVersionKind{
	Group:   "postgres-operator.crunchydata.com",
	Version: "v1beta1",
	Kind:    "PostgresCluster",
}

// Well-known labels the downstream operator puts on its pods.
const (
	LabelCluster     = "postgres-operator.crunchydata.com/cluster"
	LabelInstanceSet = "postgres-operator.crunchydata.com/instance-set"
)

// InstanceSetName is the single instance set every generated cluster uses.
const InstanceSetName = "instance1"

// New returns an empty PostgresCluster with its GroupVersionKind set.
func New() *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(GroupVersionKind)
	return u
}

// ClusterSpec holds the translated spec fields.
type ClusterSpec struct {
	Image           string          `json:"image"`
	PostgresVersion int32           `json:"postgresVersion"`
	Instances       []InstanceSet   `json:"instances"`
	Proxy           *ProxySpec      `json:"proxy,omitempty"`
	Backups         *BackupsSpec    `json:"backups,omitempty"`
	Monitoring      *MonitoringSpec `json:"monitoring,omitempty"`
}

// InstanceSet is one set of PostgreSQL instances.
type InstanceSet struct {
	Name                string                           `json:"name"`
	Replicas            int32                            `json:"replicas"`
	DataVolumeClaimSpec corev1.PersistentVolumeClaimSpec `json:"dataVolumeClaimSpec"`
	Resources           corev1.ResourceRequirements      `json:"resources"`
	Affinity            *corev1.Affinity                 `json:"affinity,omitempty"`
}

// ProxySpec configures the connection pooler.
type ProxySpec struct {
	PGBouncer PGBouncerSpec `json:"pgBouncer"`
}

// PGBouncerSpec is the pgBouncer deployment.
type PGBouncerSpec struct {
	Image    string `json:"image"`
	Replicas int32  `json:"replicas"`
}

// BackupsSpec configures pgBackRest.
type BackupsSpec struct {
	PGBackRest PGBackRestSpec `json:"pgbackrest"`
}

// PGBackRestSpec is the pgBackRest archive configuration.
type PGBackRestSpec struct {
	Image         string                    `json:"image"`
	Configuration []corev1.VolumeProjection `json:"configuration,omitempty"`
	Global        map[string]string         `json:"global,omitempty"`
	Repos         []RepoSpec                `json:"repos"`
}

// RepoSpec is a single pgBackRest repository.
type RepoSpec struct {
	Name      string           `json:"name"`
	Schedules *BackupSchedules `json:"schedules,omitempty"`
	S3        *S3Repo          `json:"s3,omitempty"`
}

// BackupSchedules holds cron schedules per backup type.
type BackupSchedules struct {
	Full string `json:"full,omitempty"`
}

// S3Repo is an S3-compatible object store location.
type S3Repo struct {
	Bucket   string `json:"bucket"`
	Endpoint string `json:"endpoint"`
	Region   string `json:"region"`
}

// MonitoringSpec configures pgMonitor.
type MonitoringSpec struct {
	PGMonitor PGMonitorSpec `json:"pgmonitor"`
}

// PGMonitorSpec holds the exporter sidecar.
type PGMonitorSpec struct {
	Exporter ExporterSpec `json:"exporter"`
}

// ExporterSpec is the postgres_exporter sidecar.
type ExporterSpec struct {
	Image         string                    `json:"image"`
	Configuration []corev1.VolumeProjection `json:"configuration,omitempty"`
}

// Canonical returns the canonical JSON encoding of the spec.
// Equal specs always encode to identical bytes.
func (s *ClusterSpec) Canonical() ([]byte, error) {
	return json.Marshal(s)
}

// ToUnstructured converts the spec to the map form stored under .spec.
func (s *ClusterSpec) ToUnstructured() (map[string]interface{}, error) {
	m, err := runtime.DefaultUnstructuredConverter.ToUnstructured(s)
	if err != nil {
		return nil, fmt.Errorf("convert PostgresCluster spec: %w", err)
	}
	return m, nil
}

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

package target

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// ClusterStatus is the subset of PostgresCluster status the projector reads.
type ClusterStatus struct {
	ObservedGeneration int64               `json:"observedGeneration,omitempty"`
	Instances          []InstanceSetStatus `json:"instances,omitempty"`
	Proxy              ProxyStatus         `json:"proxy,omitempty"`
	PGBackRest         *PGBackRestStatus   `json:"pgbackrest,omitempty"`
	Monitoring         MonitoringStatus    `json:"monitoring,omitempty"`
	Conditions         []metav1.Condition  `json:"conditions,omitempty"`
}

// InstanceSetStatus reports replica counts for one instance set.
type InstanceSetStatus struct {
	Name            string `json:"name"`
	Replicas        int32  `json:"replicas,omitempty"`
	ReadyReplicas   int32  `json:"readyReplicas,omitempty"`
	UpdatedReplicas int32  `json:"updatedReplicas,omitempty"`
}

// ProxyStatus reports the pooler.
type ProxyStatus struct {
	PGBouncer PGBouncerStatus `json:"pgBouncer,omitempty"`
}

// PGBouncerStatus reports pgBouncer replica counts.
type PGBouncerStatus struct {
	Replicas      int32 `json:"replicas,omitempty"`
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`
}

// PGBackRestStatus reports repositories and scheduled backups.
type PGBackRestStatus struct {
	Repos            []RepoStatus            `json:"repos,omitempty"`
	ScheduledBackups []ScheduledBackupStatus `json:"scheduledBackups,omitempty"`
}

// RepoStatus reports a single repository.
type RepoStatus struct {
	Name          string `json:"name"`
	StanzaCreated bool   `json:"stanzaCreated,omitempty"`
}

// ScheduledBackupStatus reports one scheduled backup job.
type ScheduledBackupStatus struct {
	CronJobName    string       `json:"cronJobName,omitempty"`
	RepoName       string       `json:"repo,omitempty"`
	Type           string       `json:"type,omitempty"`
	CompletionTime *metav1.Time `json:"completionTime,omitempty"`
	Succeeded      int32        `json:"succeeded,omitempty"`
	Failed         int32        `json:"failed,omitempty"`
}

// MonitoringStatus reports the exporter configuration hash once it is in place.
type MonitoringStatus struct {
	ExporterConfiguration string `json:"exporterConfiguration,omitempty"`
}

// StatusOf decodes the status of a live PostgresCluster. A missing status
// decodes to the zero value.
func StatusOf(u *unstructured.Unstructured) (*ClusterStatus, error) {
	status := &ClusterStatus{}
	raw, found, err := unstructured.NestedMap(u.Object, "status")
	if err != nil {
		return nil, fmt.Errorf("read PostgresCluster status: %w", err)
	}
	if !found {
		return status, nil
	}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(raw, status); err != nil {
		return nil, fmt.Errorf("decode PostgresCluster status: %w", err)
	}
	return status, nil
}

// InstanceSet returns the status of the named instance set, or nil.
func (s *ClusterStatus) InstanceSet(name string) *InstanceSetStatus {
	for i := range s.Instances {
		if s.Instances[i].Name == name {
			return &s.Instances[i]
		}
	}
	return nil
}

// Repo returns the status of the named pgBackRest repo, or nil.
func (s *ClusterStatus) Repo(name string) *RepoStatus {
	if s.PGBackRest == nil {
		return nil
	}
	for i := range s.PGBackRest.Repos {
		if s.PGBackRest.Repos[i].Name == name {
			return &s.PGBackRest.Repos[i]
		}
	}
	return nil
}

// LastBackupTime returns the newest completion time among successful scheduled backups.
func (s *ClusterStatus) LastBackupTime() *metav1.Time {
	if s.PGBackRest == nil {
		return nil
	}
	var latest *metav1.Time
	for i := range s.PGBackRest.ScheduledBackups {
		b := s.PGBackRest.ScheduledBackups[i]
		if b.CompletionTime == nil || b.Succeeded == 0 {
			continue
		}
		if latest == nil || b.CompletionTime.After(latest.Time) {
			latest = b.CompletionTime.DeepCopy()
		}
	}
	return latest
}

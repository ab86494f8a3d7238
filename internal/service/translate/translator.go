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

// Package translate derives a PostgresCluster spec from a PostgresDatabase spec.
// The output depends only on the input fields and the platform tables.
package translate

import (
	"fmt"
	"maps"
	"slices"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/platform"
	"github.com/pgplatform-operator/internal/service"
	"github.com/pgplatform-operator/internal/target"
)

const (
	antiAffinityWeight = 100
	hostnameTopology   = "kubernetes.io/hostname"
)

// Input is everything the translation reads. Spec must already be defaulted.
type Input struct {
	Name      string
	Namespace string
	Spec      dbv1alpha1.PostgresDatabaseSpec
}

// Translate builds the PostgresCluster spec for a validated database.
func Translate(in Input, tables *platform.Config) (*target.ClusterSpec, error) {
	if tables == nil {
		tables = platform.Default()
	}

	image, ok := tables.ImageFor(in.Spec.Version)
	if !ok {
		return nil, &service.UnsupportedVersionError{Version: in.Spec.Version, Supported: tables.SupportedVersions()}
	}

	storage, err := resource.ParseQuantity(in.Spec.StorageSize)
	if err != nil {
		return nil, &service.InvalidQuantityError{FieldPath: "spec.storageSize", Value: in.Spec.StorageSize}
	}

	resources, err := mergeResources(tables.DefaultResources, in.Spec.ResourceOverrides)
	if err != nil {
		return nil, err
	}

	instance := target.InstanceSet{
		Name:     target.InstanceSetName,
		Replicas: in.Spec.Replicas,
		DataVolumeClaimSpec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: storage},
			},
		},
		Resources: resources,
	}
	if tables.StorageClassName != "" {
		instance.DataVolumeClaimSpec.StorageClassName = ptr.To(tables.StorageClassName)
	}

	spec := &target.ClusterSpec{
		Image:           image,
		PostgresVersion: in.Spec.Version,
	}

	if in.Spec.Replicas > 1 {
		instance.Affinity = antiAffinity(in.Name)
		spec.Proxy = &target.ProxySpec{
			PGBouncer: target.PGBouncerSpec{
				Image:    tables.PgBouncerImage,
				Replicas: in.Spec.Replicas,
			},
		}
	}
	spec.Instances = []target.InstanceSet{instance}

	if in.Spec.IsBackupEnabled() {
		spec.Backups = backups(in, tables)
	}
	if in.Spec.IsMonitoringEnabled() {
		spec.Monitoring = monitoring(tables)
	}

	return spec, nil
}

// Endpoint returns the service address clients connect to.
func Endpoint(name, namespace string, replicas int32) string {
	if replicas > 1 {
		return fmt.Sprintf("%s-pgbouncer.%s.svc:5432", name, namespace)
	}
	return fmt.Sprintf("%s-primary.%s.svc:5432", name, namespace)
}

func antiAffinity(cluster string) *corev1.Affinity {
	return &corev1.Affinity{
		PodAntiAffinity: &corev1.PodAntiAffinity{
			PreferredDuringSchedulingIgnoredDuringExecution: []corev1.WeightedPodAffinityTerm{{
				Weight: antiAffinityWeight,
				PodAffinityTerm: corev1.PodAffinityTerm{
					TopologyKey: hostnameTopology,
					LabelSelector: &metav1.LabelSelector{
						MatchLabels: map[string]string{
							target.LabelCluster:     cluster,
							target.LabelInstanceSet: target.InstanceSetName,
						},
					},
				},
			}},
		},
	}
}

func backups(in Input, tables *platform.Config) *target.BackupsSpec {
	b := tables.Backup

	global := tables.RetentionOptions()
	global[b.RepoName+"-path"] = fmt.Sprintf("/pgbackrest/%s/%s/%s", in.Namespace, in.Name, b.RepoName)

	var configuration []corev1.VolumeProjection
	if b.CredentialsSecret != "" {
		configuration = []corev1.VolumeProjection{{
			Secret: &corev1.SecretProjection{
				LocalObjectReference: corev1.LocalObjectReference{Name: b.CredentialsSecret},
			},
		}}
	}

	return &target.BackupsSpec{
		PGBackRest: target.PGBackRestSpec{
			Image:         b.Image,
			Configuration: configuration,
			Global:        global,
			Repos: []target.RepoSpec{{
				Name:      b.RepoName,
				Schedules: &target.BackupSchedules{Full: b.FullSchedule},
				S3: &target.S3Repo{
					Bucket:   b.Bucket,
					Endpoint: b.Endpoint,
					Region:   b.Region,
				},
			}},
		},
	}
}

func monitoring(tables *platform.Config) *target.MonitoringSpec {
	exporter := target.ExporterSpec{Image: tables.Monitoring.ExporterImage}
	if name := tables.Monitoring.EndpointConfigMap; name != "" {
		exporter.Configuration = []corev1.VolumeProjection{{
			ConfigMap: &corev1.ConfigMapProjection{
				LocalObjectReference: corev1.LocalObjectReference{Name: name},
			},
		}}
	}
	return &target.MonitoringSpec{PGMonitor: target.PGMonitorSpec{Exporter: exporter}}
}

// mergeResources overlays the overrides on the platform defaults one leaf at a time.
func mergeResources(defaults platform.Resources, overrides *dbv1alpha1.ResourceOverrides) (corev1.ResourceRequirements, error) {
	requests := map[corev1.ResourceName]string{
		corev1.ResourceCPU:    defaults.Requests.CPU,
		corev1.ResourceMemory: defaults.Requests.Memory,
	}
	limits := map[corev1.ResourceName]string{
		corev1.ResourceCPU:    defaults.Limits.CPU,
		corev1.ResourceMemory: defaults.Limits.Memory,
	}
	if overrides != nil {
		overlay(requests, overrides.Requests)
		overlay(limits, overrides.Limits)
	}

	out := corev1.ResourceRequirements{}
	var err error
	if out.Requests, err = toResourceList("requests", requests); err != nil {
		return out, err
	}
	if out.Limits, err = toResourceList("limits", limits); err != nil {
		return out, err
	}
	return out, nil
}

func overlay(dst map[corev1.ResourceName]string, values *dbv1alpha1.ResourceValues) {
	if values == nil {
		return
	}
	if values.CPU != "" {
		dst[corev1.ResourceCPU] = values.CPU
	}
	if values.Memory != "" {
		dst[corev1.ResourceMemory] = values.Memory
	}
}

func toResourceList(kind string, values map[corev1.ResourceName]string) (corev1.ResourceList, error) {
	list := corev1.ResourceList{}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		raw := values[name]
		if raw == "" {
			continue
		}
		q, err := resource.ParseQuantity(raw)
		if err != nil {
			return nil, &service.InvalidQuantityError{
				FieldPath: fmt.Sprintf("spec.resourceOverrides.%s.%s", kind, name),
				Value:     raw,
			}
		}
		list[name] = q
	}
	return list, nil
}

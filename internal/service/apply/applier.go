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

// Package apply writes translated PostgresCluster specs to the cluster.
//
// The Applier only ever touches the paths listed in its OwnedFields. Everything
// else on the live object, including fields inside the spec that other actors
// write, is carried over untouched. When the owned subset already matches the
// desired spec no request is sent at all.
package apply

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/service"
	"github.com/pgplatform-operator/internal/service/drift"
	"github.com/pgplatform-operator/internal/target"
)

// Outcome is what a single Apply call did.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeConflict  Outcome = "conflict"
)

// Wrote reports whether the outcome issued a successful write.
func (o Outcome) Wrote() bool {
	return o == OutcomeCreated || o == OutcomeUpdated
}

// OwnedFields is the allow-list of paths the Applier may write.
type OwnedFields struct {
	// Version identifies the allow-list revision.
	Version string

	// Paths are dotted paths from the object root. Each names a whole owned subtree.
	Paths []string

	// Labels are the metadata label keys the Applier maintains.
	Labels []string
}

// DefaultOwnedFields returns the allow-list matching every field the translator sets.
func DefaultOwnedFields() OwnedFields {
	return OwnedFields{
		Version: "v1",
		Paths: []string{
			"spec.image",
			"spec.postgresVersion",
			"spec.instances",
			"spec.proxy",
			"spec.backups",
			"spec.monitoring",
		},
		Labels: []string{
			dbv1alpha1.LabelManagedBy,
			dbv1alpha1.LabelOwner,
		},
	}
}

// Result is the outcome of an Apply call.
type Result struct {
	Outcome Outcome

	// Object is the object as written, or the live object when nothing was written.
	Object *unstructured.Unstructured

	// Drift lists the owned fields that differed before the write.
	Drift *drift.Result
}

// Applier creates and updates PostgresClusters owned by a PostgresDatabase.
type Applier struct {
	client client.Client
	scheme *runtime.Scheme
	owned  OwnedFields
}

// New creates an Applier that writes only the given owned fields.
func New(c client.Client, scheme *runtime.Scheme, owned OwnedFields) *Applier {
	return &Applier{client: c, scheme: scheme, owned: owned}
}

// Owned returns the allow-list in use.
func (a *Applier) Owned() OwnedFields {
	return a.owned
}

// MarkerLabels returns the ownership marker labels for an owner.
func MarkerLabels(owner client.Object) map[string]string {
	return map[string]string{
		dbv1alpha1.LabelManagedBy: dbv1alpha1.ManagedByValue,
		dbv1alpha1.LabelOwner:     owner.GetName(),
	}
}

// Apply brings the owned subset of live in line with desired. live is nil when
// no PostgresCluster exists yet. A lost optimistic-concurrency race is reported as
// OutcomeConflict with a nil error; the caller re-reads and recomputes.
func (a *Applier) Apply(
	ctx context.Context,
	owner client.Object,
	desired *target.ClusterSpec,
	live *unstructured.Unstructured,
) (*Result, error) {
	spec, err := desired.ToUnstructured()
	if err != nil {
		return nil, err
	}
	want := map[string]interface{}{"spec": spec}
	labels := a.ownedLabels(owner)

	if live == nil {
		return a.create(ctx, owner, want, labels)
	}

	if !metav1.IsControlledBy(live, owner) {
		return nil, fmt.Errorf("PostgresCluster %s/%s: %w", live.GetNamespace(), live.GetName(), service.ErrNotOwned)
	}

	result := drift.NewResult(live.GetNamespace() + "/" + live.GetName())
	drift.Compare(result, a.owned.Paths, want, normalize(live))
	drift.CompareLabels(result, labels, live.GetLabels())
	if !result.HasDrift() {
		return &Result{Outcome: OutcomeUnchanged, Object: live, Drift: result}, nil
	}

	// live keeps its resourceVersion, so the update is rejected if anyone
	// wrote the object since it was read.
	updated := live.DeepCopy()
	if err := a.setOwned(updated, want, labels); err != nil {
		return nil, err
	}
	if err := a.client.Update(ctx, updated); err != nil {
		if apierrors.IsConflict(err) {
			return &Result{Outcome: OutcomeConflict, Object: live, Drift: result}, nil
		}
		return nil, fmt.Errorf("update PostgresCluster %s/%s: %w", live.GetNamespace(), live.GetName(), err)
	}
	return &Result{Outcome: OutcomeUpdated, Object: updated, Drift: result}, nil
}

// DeleteOwned deletes live if owner controls it. Dependents are removed in the
// background; the UID precondition guarantees a recreated object is never hit.
func (a *Applier) DeleteOwned(ctx context.Context, owner client.Object, live *unstructured.Unstructured) error {
	if !metav1.IsControlledBy(live, owner) {
		return fmt.Errorf("PostgresCluster %s/%s: %w", live.GetNamespace(), live.GetName(), service.ErrNotOwned)
	}
	uid := live.GetUID()
	err := a.client.Delete(ctx, live,
		client.PropagationPolicy(metav1.DeletePropagationBackground),
		client.Preconditions{UID: &uid},
	)
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete PostgresCluster %s/%s: %w", live.GetNamespace(), live.GetName(), err)
	}
	return nil
}

func (a *Applier) create(
	ctx context.Context,
	owner client.Object,
	want map[string]interface{},
	labels map[string]string,
) (*Result, error) {
	obj := target.New()
	obj.SetName(owner.GetName())
	obj.SetNamespace(owner.GetNamespace())
	if err := a.setOwned(obj, want, labels); err != nil {
		return nil, err
	}
	if err := controllerutil.SetControllerReference(owner, obj, a.scheme); err != nil {
		return nil, fmt.Errorf("set owner reference: %w", err)
	}

	result := drift.NewResult(obj.GetNamespace() + "/" + obj.GetName())
	if err := a.client.Create(ctx, obj); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return &Result{Outcome: OutcomeConflict, Drift: result}, nil
		}
		return nil, fmt.Errorf("create PostgresCluster %s/%s: %w", obj.GetNamespace(), obj.GetName(), err)
	}
	return &Result{Outcome: OutcomeCreated, Object: obj, Drift: result}, nil
}

// setOwned copies every owned path from want into obj, removing paths that
// want leaves unset, and sets the marker labels.
func (a *Applier) setOwned(obj *unstructured.Unstructured, want map[string]interface{}, labels map[string]string) error {
	for _, path := range a.owned.Paths {
		fields := strings.Split(path, ".")
		value, found, err := unstructured.NestedFieldCopy(want, fields...)
		if err != nil {
			return fmt.Errorf("read desired %s: %w", path, err)
		}
		if !found {
			unstructured.RemoveNestedField(obj.Object, fields...)
			continue
		}
		if err := unstructured.SetNestedField(obj.Object, value, fields...); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}

	merged := obj.GetLabels()
	if merged == nil {
		merged = make(map[string]string, len(labels))
	}
	for k, v := range labels {
		merged[k] = v
	}
	obj.SetLabels(merged)
	return nil
}

func (a *Applier) ownedLabels(owner client.Object) map[string]string {
	markers := MarkerLabels(owner)
	labels := make(map[string]string, len(a.owned.Labels))
	for _, key := range a.owned.Labels {
		if v, ok := markers[key]; ok {
			labels[key] = v
		}
	}
	return labels
}

// normalize projects the live spec onto the typed mirror so fields the
// downstream operator defaults inside an owned subtree do not register as drift.
// A spec that does not decode is compared raw and always shows as drifted.
func normalize(live *unstructured.Unstructured) map[string]interface{} {
	raw, found, err := unstructured.NestedMap(live.Object, "spec")
	if err != nil || !found {
		return map[string]interface{}{}
	}
	var typed target.ClusterSpec
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(raw, &typed); err != nil {
		return map[string]interface{}{"spec": raw}
	}
	spec, err := typed.ToUnstructured()
	if err != nil {
		return map[string]interface{}{"spec": raw}
	}
	return map[string]interface{}{"spec": spec}
}

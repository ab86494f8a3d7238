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

// Package projection folds PostgresCluster status into PostgresDatabase status.
//
// Every function here is pure: the current time is an input, and identical
// inputs always yield an identical status, so a reconcile pass with nothing new
// to report leaves the status byte-for-byte unchanged.
package projection

import (
	"fmt"
	"slices"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/service"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/service/translate"
	"github.com/pgplatform-operator/internal/target"
	"github.com/pgplatform-operator/internal/util"
)

// TerminalReasons are PostgresCluster condition reasons that mean the database
// cannot recover without intervention once they outlast the grace period. They
// count only while the condition is not True; a recovered condition may keep
// its last reason.
var TerminalReasons = []string{
	"CrashLoopBackOff",
	"Unschedulable",
	"ImagePullBackOff",
	"ErrImagePull",
}

// Input is everything a projection reads.
type Input struct {
	Name       string
	Namespace  string
	Generation int64

	// Spec is the defaulted, validated spec of this pass.
	Spec dbv1alpha1.PostgresDatabaseSpec

	// Accepted is the immutable subset recorded for Spec.
	Accepted *dbv1alpha1.AcceptedSpec

	// Target is the PostgresCluster after this pass's apply, or nil if none exists.
	Target *unstructured.Unstructured

	// Outcome is what the apply did this pass.
	Outcome apply.Outcome

	// Previous is the status as last written.
	Previous dbv1alpha1.PostgresDatabaseStatus

	Now         time.Time
	GracePeriod time.Duration

	// RepoName is the pgBackRest repository whose stanza gates readiness.
	RepoName string
}

// Project computes the new status for a pass whose apply did not conflict.
func Project(in Input) dbv1alpha1.PostgresDatabaseStatus {
	status := *in.Previous.DeepCopy()
	status.AcceptedSpec = in.Accepted.DeepCopy()

	if in.Target == nil {
		status.Phase = dbv1alpha1.PhasePending
		status.Message = "waiting for PostgresCluster to be created"
		status.Endpoint = ""
		status.ReadyReplicas = 0
		setPhaseConditions(&status, in, util.ReasonTargetNotFound)
		return status
	}

	status.Endpoint = translate.Endpoint(in.Name, in.Namespace, in.Spec.Replicas)

	observed, err := target.StatusOf(in.Target)
	if err != nil {
		status.Phase = dbv1alpha1.PhaseCreating
		status.Message = err.Error()
		setPhaseConditions(&status, in, util.ReasonRollingOut)
		return status
	}

	if set := observed.InstanceSet(target.InstanceSetName); set != nil {
		status.ReadyReplicas = set.ReadyReplicas
	} else {
		status.ReadyReplicas = 0
	}
	if last := observed.LastBackupTime(); last != nil {
		status.LastBackupTime = last
	}

	if cond := terminalCondition(observed, in.Now, in.GracePeriod); cond != nil {
		status.Phase = dbv1alpha1.PhaseFailed
		status.Message = fmt.Sprintf("PostgresCluster reports %s=%s (%s)", cond.Type, cond.Status, cond.Reason)
		if cond.Message != "" {
			status.Message += ": " + cond.Message
		}
		setPhaseConditions(&status, in, util.ReasonTargetFailing)
		return status
	}

	pending := pendingWork(in, observed)
	if len(pending) > 0 {
		status.Phase = dbv1alpha1.PhaseCreating
		status.Message = strings.Join(pending, "; ")
		setPhaseConditions(&status, in, util.ReasonRollingOut)
		return status
	}

	status.Phase = dbv1alpha1.PhaseReady
	status.Message = ""
	if in.Outcome == apply.OutcomeUnchanged || in.Outcome.Wrote() {
		status.ObservedGeneration = in.Generation
	}
	setPhaseConditions(&status, in, util.ReasonRolloutComplete)
	return status
}

// Rejected returns the status for a spec that failed validation. The target is
// left untouched, so only phase, message and conditions change.
func Rejected(previous dbv1alpha1.PostgresDatabaseStatus, generation int64, err error, now time.Time) dbv1alpha1.PostgresDatabaseStatus {
	status := *previous.DeepCopy()
	status.Phase = dbv1alpha1.PhaseFailed
	status.Message = err.Error()
	reason := service.ValidationReason(err)
	util.SetCondition(&status.Conditions, util.ConditionTypeSynced, metav1.ConditionFalse, util.ReasonValidationFailed, status.Message, generation, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeReady, metav1.ConditionFalse, reason, status.Message, generation, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeProgressing, metav1.ConditionFalse, reason, "", generation, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeDegraded, metav1.ConditionTrue, reason, status.Message, generation, now)
	return status
}

// Stalled returns the status for an object whose retries have outlasted the
// failure deadline. The last error is surfaced so it can be diagnosed without
// inspecting the PostgresCluster.
func Stalled(previous dbv1alpha1.PostgresDatabaseStatus, generation int64, err error, reason string, now time.Time) dbv1alpha1.PostgresDatabaseStatus {
	status := *previous.DeepCopy()
	status.Phase = dbv1alpha1.PhaseFailed
	status.Message = fmt.Sprintf("retries exhausted: %v", err)
	util.SetCondition(&status.Conditions, util.ConditionTypeSynced, metav1.ConditionFalse, reason, status.Message, generation, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeReady, metav1.ConditionFalse, util.ReasonReconcileFailed, status.Message, generation, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeDegraded, metav1.ConditionTrue, util.ReasonReconcileFailed, status.Message, generation, now)
	return status
}

// NotOwned returns the status for a database whose PostgresCluster name is taken
// by an object this database does not control.
func NotOwned(previous dbv1alpha1.PostgresDatabaseStatus, generation int64, err error, now time.Time) dbv1alpha1.PostgresDatabaseStatus {
	status := *previous.DeepCopy()
	status.Phase = dbv1alpha1.PhaseFailed
	status.Message = err.Error()
	util.SetCondition(&status.Conditions, util.ConditionTypeSynced, metav1.ConditionFalse, util.ReasonTargetNotOwned, status.Message, generation, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeReady, metav1.ConditionFalse, util.ReasonTargetNotOwned, status.Message, generation, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeDegraded, metav1.ConditionTrue, util.ReasonTargetNotOwned, status.Message, generation, now)
	return status
}

// Deleting returns the status while the PostgresCluster is being removed.
func Deleting(previous dbv1alpha1.PostgresDatabaseStatus, generation int64, now time.Time) dbv1alpha1.PostgresDatabaseStatus {
	status := *previous.DeepCopy()
	status.Phase = dbv1alpha1.PhaseDeleting
	status.Message = "waiting for PostgresCluster to be deleted"
	util.SetCondition(&status.Conditions, util.ConditionTypeReady, metav1.ConditionFalse, util.ReasonDeleting, status.Message, generation, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeProgressing, metav1.ConditionTrue, util.ReasonDeleting, status.Message, generation, now)
	return status
}

func pendingWork(in Input, observed *target.ClusterStatus) []string {
	var pending []string

	if in.Outcome.Wrote() {
		// The downstream operator has not seen this write yet.
		return []string{"PostgresCluster spec submitted, waiting for rollout"}
	}

	if generation := in.Target.GetGeneration(); observed.ObservedGeneration < generation {
		pending = append(pending, fmt.Sprintf("waiting for PostgresCluster to observe generation %d", generation))
	}

	want := in.Spec.Replicas
	set := observed.InstanceSet(target.InstanceSetName)
	switch {
	case set == nil:
		pending = append(pending, fmt.Sprintf("instances: 0/%d ready", want))
	case set.ReadyReplicas != want || set.UpdatedReplicas != want || set.Replicas != want:
		pending = append(pending, fmt.Sprintf("instances: %d/%d ready, %d/%d updated", set.ReadyReplicas, want, set.UpdatedReplicas, want))
	}

	if want > 1 && observed.Proxy.PGBouncer.ReadyReplicas != want {
		pending = append(pending, fmt.Sprintf("pgBouncer: %d/%d ready", observed.Proxy.PGBouncer.ReadyReplicas, want))
	}

	if in.Spec.IsBackupEnabled() {
		if repo := observed.Repo(in.RepoName); repo == nil || !repo.StanzaCreated {
			pending = append(pending, fmt.Sprintf("backup repository %s not initialized", in.RepoName))
		}
	}

	if in.Spec.IsMonitoringEnabled() && observed.Monitoring.ExporterConfiguration == "" {
		pending = append(pending, "metrics exporter not configured")
	}

	return pending
}

func terminalCondition(observed *target.ClusterStatus, now time.Time, grace time.Duration) *metav1.Condition {
	for i := range observed.Conditions {
		cond := &observed.Conditions[i]
		if cond.Status == metav1.ConditionTrue || !slices.Contains(TerminalReasons, cond.Reason) {
			continue
		}
		if now.Sub(cond.LastTransitionTime.Time) >= grace {
			return cond
		}
	}
	return nil
}

func setPhaseConditions(status *dbv1alpha1.PostgresDatabaseStatus, in Input, reason string) {
	gen := in.Generation
	now := in.Now
	msg := status.Message
	phase := status.Phase

	if in.Target != nil {
		util.SetCondition(&status.Conditions, util.ConditionTypeSynced, metav1.ConditionTrue, util.ReasonApplied, "", gen, now)
	}
	util.SetCondition(&status.Conditions, util.ConditionTypeReady,
		util.ConditionStatus(phase == dbv1alpha1.PhaseReady), reason, msg, gen, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeProgressing,
		util.ConditionStatus(phase == dbv1alpha1.PhasePending || phase == dbv1alpha1.PhaseCreating), reason, msg, gen, now)
	util.SetCondition(&status.Conditions, util.ConditionTypeDegraded,
		util.ConditionStatus(phase == dbv1alpha1.PhaseFailed), reason, msg, gen, now)
}

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

package projection

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/ptr"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/service"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/target"
	"github.com/pgplatform-operator/internal/util"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// clusterStatus describes the downstream status a test cluster reports.
type clusterStatus struct {
	generation       int64
	observed         int64
	replicas         int64
	ready            int64
	updated          int64
	bouncerReady     int64
	stanzaCreated    bool
	exporterConfig   string
	conditions       []interface{}
	scheduledBackups []interface{}
}

func healthy(replicas int64) clusterStatus {
	bouncer := int64(0)
	if replicas > 1 {
		bouncer = replicas
	}
	return clusterStatus{
		generation:     1,
		observed:       1,
		replicas:       replicas,
		ready:          replicas,
		updated:        replicas,
		bouncerReady:   bouncer,
		stanzaCreated:  true,
		exporterConfig: "5c4f8d",
	}
}

func cluster(s clusterStatus) *unstructured.Unstructured {
	u := target.New()
	u.SetName("orders")
	u.SetNamespace("team-a")
	u.SetGeneration(s.generation)
	status := map[string]interface{}{
		"observedGeneration": s.observed,
		"instances": []interface{}{map[string]interface{}{
			"name":            target.InstanceSetName,
			"replicas":        s.replicas,
			"readyReplicas":   s.ready,
			"updatedReplicas": s.updated,
		}},
		"proxy": map[string]interface{}{
			"pgBouncer": map[string]interface{}{"readyReplicas": s.bouncerReady},
		},
		"pgbackrest": map[string]interface{}{
			"repos": []interface{}{map[string]interface{}{"name": "repo1", "stanzaCreated": s.stanzaCreated}},
		},
		"monitoring": map[string]interface{}{"exporterConfiguration": s.exporterConfig},
	}
	if s.conditions != nil {
		status["conditions"] = s.conditions
	}
	if s.scheduledBackups != nil {
		status["pgbackrest"].(map[string]interface{})["scheduledBackups"] = s.scheduledBackups
	}
	u.Object["status"] = status
	return u
}

func baseInput(replicas int32, live *unstructured.Unstructured, outcome apply.Outcome) Input {
	return Input{
		Name:       "orders",
		Namespace:  "team-a",
		Generation: 1,
		Spec: dbv1alpha1.PostgresDatabaseSpec{
			Version:           17,
			Replicas:          replicas,
			StorageSize:       "100Gi",
			BackupEnabled:     ptr.To(true),
			MonitoringEnabled: ptr.To(true),
		},
		Accepted:    &dbv1alpha1.AcceptedSpec{Version: 17, StorageSize: "100Gi"},
		Target:      live,
		Outcome:     outcome,
		Now:         now,
		GracePeriod: 5 * time.Minute,
		RepoName:    "repo1",
	}
}

var _ = Describe("Project", func() {
	It("should be Pending without a PostgresCluster", func() {
		status := Project(baseInput(3, nil, ""))

		Expect(status.Phase).To(Equal(dbv1alpha1.PhasePending))
		Expect(status.Endpoint).To(BeEmpty())
		Expect(status.ObservedGeneration).To(BeZero())
		Expect(util.IsConditionTrue(status.Conditions, util.ConditionTypeProgressing)).To(BeTrue())
	})

	It("should be Creating right after a write even if the old status looked ready", func() {
		status := Project(baseInput(3, cluster(healthy(3)), apply.OutcomeCreated))

		Expect(status.Phase).To(Equal(dbv1alpha1.PhaseCreating))
		Expect(status.ObservedGeneration).To(BeZero())
		Expect(status.AcceptedSpec).To(Equal(&dbv1alpha1.AcceptedSpec{Version: 17, StorageSize: "100Gi"}))
		Expect(util.IsConditionTrue(status.Conditions, util.ConditionTypeSynced)).To(BeTrue())
	})

	It("should be Ready once everything reports healthy", func() {
		status := Project(baseInput(3, cluster(healthy(3)), apply.OutcomeUnchanged))

		Expect(status.Phase).To(Equal(dbv1alpha1.PhaseReady))
		Expect(status.Message).To(BeEmpty())
		Expect(status.ObservedGeneration).To(Equal(int64(1)))
		Expect(status.ReadyReplicas).To(Equal(int32(3)))
		Expect(status.Endpoint).To(Equal("orders-pgbouncer.team-a.svc:5432"))
		Expect(util.IsConditionTrue(status.Conditions, util.ConditionTypeReady)).To(BeTrue())
		Expect(util.IsConditionFalse(status.Conditions, util.ConditionTypeProgressing)).To(BeTrue())
		Expect(util.IsConditionFalse(status.Conditions, util.ConditionTypeDegraded)).To(BeTrue())
	})

	It("should point a standalone database at the primary service", func() {
		status := Project(baseInput(1, cluster(healthy(1)), apply.OutcomeUnchanged))

		Expect(status.Phase).To(Equal(dbv1alpha1.PhaseReady))
		Expect(status.Endpoint).To(Equal("orders-primary.team-a.svc:5432"))
	})

	DescribeTable("pending work keeps the phase at Creating",
		func(mutate func(*clusterStatus), spec func(*Input), want string) {
			s := healthy(3)
			mutate(&s)
			in := baseInput(3, cluster(s), apply.OutcomeUnchanged)
			if spec != nil {
				spec(&in)
			}

			status := Project(in)

			Expect(status.Phase).To(Equal(dbv1alpha1.PhaseCreating))
			Expect(status.Message).To(ContainSubstring(want))
			Expect(status.ObservedGeneration).To(BeZero())
		},
		Entry("stale downstream generation", func(s *clusterStatus) { s.generation = 2 }, nil,
			"observe generation 2"),
		Entry("replicas not ready", func(s *clusterStatus) { s.ready = 2 }, nil,
			"instances: 2/3 ready"),
		Entry("replicas not updated", func(s *clusterStatus) { s.updated = 1 }, nil,
			"1/3 updated"),
		Entry("pooler not ready", func(s *clusterStatus) { s.bouncerReady = 0 }, nil,
			"pgBouncer: 0/3 ready"),
		Entry("stanza missing", func(s *clusterStatus) { s.stanzaCreated = false }, nil,
			"backup repository repo1 not initialized"),
		Entry("exporter missing", func(s *clusterStatus) { s.exporterConfig = "" }, nil,
			"metrics exporter not configured"),
	)

	It("should ignore backup and monitoring health when they are disabled", func() {
		s := healthy(1)
		s.stanzaCreated = false
		s.exporterConfig = ""
		in := baseInput(1, cluster(s), apply.OutcomeUnchanged)
		in.Spec.BackupEnabled = ptr.To(false)
		in.Spec.MonitoringEnabled = ptr.To(false)

		Expect(Project(in).Phase).To(Equal(dbv1alpha1.PhaseReady))
	})

	It("should report the newest completed backup", func() {
		s := healthy(1)
		s.scheduledBackups = []interface{}{
			map[string]interface{}{"cronJobName": "a", "succeeded": int64(1), "completionTime": "2026-05-03T01:00:00Z"},
			map[string]interface{}{"cronJobName": "b", "succeeded": int64(1), "completionTime": "2026-05-04T01:00:00Z"},
		}

		status := Project(baseInput(1, cluster(s), apply.OutcomeUnchanged))

		Expect(status.LastBackupTime).NotTo(BeNil())
		Expect(status.LastBackupTime.Time).To(BeTemporally("==", time.Date(2026, 5, 4, 1, 0, 0, 0, time.UTC)))
	})

	Context("with a failing downstream condition", func() {
		withCondition := func(status string, since time.Duration) *unstructured.Unstructured {
			s := healthy(3)
			s.ready = 2
			s.conditions = []interface{}{map[string]interface{}{
				"type":               "InstancesReady",
				"status":             status,
				"reason":             "CrashLoopBackOff",
				"message":            "instance1-abc-0 restarting",
				"lastTransitionTime": now.Add(-since).Format(time.RFC3339),
			}}
			return cluster(s)
		}
		failing := func(since time.Duration) *unstructured.Unstructured {
			return withCondition("False", since)
		}

		It("should stay Creating inside the grace period", func() {
			status := Project(baseInput(3, failing(time.Minute), apply.OutcomeUnchanged))
			Expect(status.Phase).To(Equal(dbv1alpha1.PhaseCreating))
		})

		It("should be Failed once the grace period has passed", func() {
			status := Project(baseInput(3, failing(6*time.Minute), apply.OutcomeUnchanged))

			Expect(status.Phase).To(Equal(dbv1alpha1.PhaseFailed))
			Expect(status.Message).To(ContainSubstring("CrashLoopBackOff"))
			Expect(status.Message).To(ContainSubstring("instance1-abc-0 restarting"))
			Expect(util.IsConditionTrue(status.Conditions, util.ConditionTypeDegraded)).To(BeTrue())
		})

		It("should ignore a recovered condition that kept its old reason", func() {
			status := Project(baseInput(3, withCondition("True", 6*time.Minute), apply.OutcomeUnchanged))

			Expect(status.Phase).To(Equal(dbv1alpha1.PhaseCreating))
			Expect(status.Message).NotTo(ContainSubstring("CrashLoopBackOff"))
		})
	})

	It("should leave a settled status unchanged on a repeat pass", func() {
		in := baseInput(3, cluster(healthy(3)), apply.OutcomeUnchanged)
		first := Project(in)

		in.Previous = first
		in.Now = now.Add(10 * time.Minute)
		second := Project(in)

		Expect(second).To(Equal(first))
	})

	It("should walk Ready to Creating to Ready when scaling 3 to 1", func() {
		in := baseInput(3, cluster(healthy(3)), apply.OutcomeUnchanged)
		ready := Project(in)
		Expect(ready.Phase).To(Equal(dbv1alpha1.PhaseReady))

		// Generation 2 asks for one replica; the apply updates the cluster.
		in = baseInput(1, cluster(healthy(3)), apply.OutcomeUpdated)
		in.Generation = 2
		in.Previous = ready
		in.Now = now.Add(time.Minute)
		updating := Project(in)
		Expect(updating.Phase).To(Equal(dbv1alpha1.PhaseCreating))
		Expect(updating.ObservedGeneration).To(Equal(int64(1)))

		// The downstream operator has not caught up yet.
		s := healthy(3)
		s.generation = 2
		in.Target = cluster(s)
		in.Outcome = apply.OutcomeUnchanged
		in.Previous = updating
		rolling := Project(in)
		Expect(rolling.Phase).To(Equal(dbv1alpha1.PhaseCreating))

		s = healthy(1)
		s.generation = 2
		s.observed = 2
		in.Target = cluster(s)
		in.Previous = rolling
		settled := Project(in)
		Expect(settled.Phase).To(Equal(dbv1alpha1.PhaseReady))
		Expect(settled.ObservedGeneration).To(Equal(int64(2)))
		Expect(settled.Endpoint).To(Equal("orders-primary.team-a.svc:5432"))
	})
})

var _ = Describe("Rejected", func() {
	It("should fail with the validation message and keep other fields", func() {
		previous := dbv1alpha1.PostgresDatabaseStatus{
			Phase:              dbv1alpha1.PhaseReady,
			ObservedGeneration: 1,
			Endpoint:           "orders-primary.team-a.svc:5432",
		}
		err := &service.ImmutableFieldError{FieldPath: "spec.version", Old: "15", New: "17"}

		status := Rejected(previous, 2, err, now)

		Expect(status.Phase).To(Equal(dbv1alpha1.PhaseFailed))
		Expect(status.Message).To(ContainSubstring("spec.version"))
		Expect(status.ObservedGeneration).To(Equal(int64(1)))
		Expect(status.Endpoint).To(Equal(previous.Endpoint))
		synced := util.GetCondition(status.Conditions, util.ConditionTypeSynced)
		Expect(synced).NotTo(BeNil())
		Expect(synced.Reason).To(Equal(util.ReasonValidationFailed))
		Expect(util.GetCondition(status.Conditions, util.ConditionTypeReady).Reason).To(Equal("ImmutableField"))
	})

	It("should be stable across repeated passes", func() {
		err := &service.OutOfRangeError{FieldPath: "spec.replicas", Value: 9, Min: 1, Max: 7}
		first := Rejected(dbv1alpha1.PostgresDatabaseStatus{}, 1, err, now)
		second := Rejected(first, 1, err, now.Add(time.Hour))
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("Stalled", func() {
	It("should surface the last error", func() {
		status := Stalled(dbv1alpha1.PostgresDatabaseStatus{Phase: dbv1alpha1.PhaseCreating}, 1,
			errors.New("etcd unavailable"), util.ReasonReconcileFailed, now)

		Expect(status.Phase).To(Equal(dbv1alpha1.PhaseFailed))
		Expect(status.Message).To(Equal("retries exhausted: etcd unavailable"))
	})
})

var _ = Describe("NotOwned", func() {
	It("should fail with the ownership reason", func() {
		status := NotOwned(dbv1alpha1.PostgresDatabaseStatus{}, 1, service.ErrNotOwned, now)

		Expect(status.Phase).To(Equal(dbv1alpha1.PhaseFailed))
		Expect(util.GetCondition(status.Conditions, util.ConditionTypeSynced).Reason).To(Equal(util.ReasonTargetNotOwned))
	})
})

var _ = Describe("Deleting", func() {
	It("should set the Deleting phase", func() {
		status := Deleting(dbv1alpha1.PostgresDatabaseStatus{Phase: dbv1alpha1.PhaseReady}, 3, now)

		Expect(status.Phase).To(Equal(dbv1alpha1.PhaseDeleting))
		Expect(util.IsConditionFalse(status.Conditions, util.ConditionTypeReady)).To(BeTrue())
	})
})

var _ = Describe("TerminalReasons", func() {
	It("should include the crash and scheduling failures", func() {
		Expect(TerminalReasons).To(ContainElements("CrashLoopBackOff", "Unschedulable", "ImagePullBackOff", "ErrImagePull"))
	})
})

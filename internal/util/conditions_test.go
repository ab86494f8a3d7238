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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var _ = Describe("Conditions", func() {
	var (
		conditions []metav1.Condition
		now        time.Time
	)

	BeforeEach(func() {
		conditions = []metav1.Condition{}
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	Describe("SetCondition", func() {
		Context("when adding a new condition", func() {
			It("should add the condition with the given time", func() {
				SetCondition(&conditions, ConditionTypeReady, metav1.ConditionTrue, ReasonReconcileSuccess, "ready", 3, now)

				Expect(conditions).To(HaveLen(1))
				Expect(conditions[0].Type).To(Equal(ConditionTypeReady))
				Expect(conditions[0].Status).To(Equal(metav1.ConditionTrue))
				Expect(conditions[0].Reason).To(Equal(ReasonReconcileSuccess))
				Expect(conditions[0].Message).To(Equal("ready"))
				Expect(conditions[0].ObservedGeneration).To(Equal(int64(3)))
				Expect(conditions[0].LastTransitionTime.Time).To(Equal(now))
			})

			It("should add multiple different conditions", func() {
				SetCondition(&conditions, ConditionTypeReady, metav1.ConditionTrue, ReasonReconcileSuccess, "", 1, now)
				SetCondition(&conditions, ConditionTypeSynced, metav1.ConditionTrue, ReasonApplied, "", 1, now)
				SetCondition(&conditions, ConditionTypeDegraded, metav1.ConditionFalse, ReasonHealthy, "", 1, now)

				Expect(conditions).To(HaveLen(3))
			})
		})

		Context("when updating an existing condition", func() {
			earlier := metav1.NewTime(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))

			BeforeEach(func() {
				conditions = []metav1.Condition{{
					Type:               ConditionTypeReady,
					Status:             metav1.ConditionFalse,
					Reason:             ReasonRollingOut,
					Message:            "waiting",
					LastTransitionTime: earlier,
					ObservedGeneration: 1,
				}}
			})

			It("should move the transition time when the status flips", func() {
				SetCondition(&conditions, ConditionTypeReady, metav1.ConditionTrue, ReasonRolloutComplete, "", 1, now)

				Expect(conditions).To(HaveLen(1))
				Expect(conditions[0].Status).To(Equal(metav1.ConditionTrue))
				Expect(conditions[0].LastTransitionTime.Time).To(Equal(now))
			})

			It("should keep the transition time when only the message changes", func() {
				SetCondition(&conditions, ConditionTypeReady, metav1.ConditionFalse, ReasonRollingOut, "still waiting", 2, now)

				Expect(conditions[0].Message).To(Equal("still waiting"))
				Expect(conditions[0].ObservedGeneration).To(Equal(int64(2)))
				Expect(conditions[0].LastTransitionTime).To(Equal(earlier))
			})

			It("should leave the list untouched for identical input", func() {
				before := append([]metav1.Condition(nil), conditions...)

				SetCondition(&conditions, ConditionTypeReady, metav1.ConditionFalse, ReasonRollingOut, "waiting", 1, now)

				Expect(conditions).To(Equal(before))
			})
		})
	})

	Describe("GetCondition", func() {
		It("should return nil for a missing type", func() {
			Expect(GetCondition(conditions, ConditionTypeReady)).To(BeNil())
		})

		It("should return the matching condition", func() {
			SetCondition(&conditions, ConditionTypeSynced, metav1.ConditionTrue, ReasonApplied, "", 1, now)
			Expect(GetCondition(conditions, ConditionTypeSynced)).NotTo(BeNil())
		})
	})

	Describe("IsConditionTrue and IsConditionFalse", func() {
		It("should report the status", func() {
			SetCondition(&conditions, ConditionTypeReady, metav1.ConditionTrue, ReasonReconcileSuccess, "", 1, now)
			SetCondition(&conditions, ConditionTypeDegraded, metav1.ConditionFalse, ReasonHealthy, "", 1, now)

			Expect(IsConditionTrue(conditions, ConditionTypeReady)).To(BeTrue())
			Expect(IsConditionFalse(conditions, ConditionTypeDegraded)).To(BeTrue())
			Expect(IsConditionTrue(conditions, ConditionTypeSynced)).To(BeFalse())
			Expect(IsConditionFalse(conditions, ConditionTypeSynced)).To(BeFalse())
		})
	})

	Describe("ConditionStatus", func() {
		It("should map bools", func() {
			Expect(ConditionStatus(true)).To(Equal(metav1.ConditionTrue))
			Expect(ConditionStatus(false)).To(Equal(metav1.ConditionFalse))
		})
	})
})

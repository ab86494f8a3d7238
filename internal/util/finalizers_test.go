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

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
)

var _ = Describe("Finalizers", func() {
	var obj *dbv1alpha1.PostgresDatabase

	BeforeEach(func() {
		obj = &dbv1alpha1.PostgresDatabase{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "orders",
				Namespace: "team-a",
			},
		}
	})

	Describe("AddFinalizer", func() {
		It("should add the finalizer once", func() {
			Expect(AddFinalizer(obj, FinalizerPostgresDatabase)).To(BeTrue())
			Expect(AddFinalizer(obj, FinalizerPostgresDatabase)).To(BeFalse())
			Expect(obj.GetFinalizers()).To(Equal([]string{FinalizerPostgresDatabase}))
		})
	})

	Describe("RemoveFinalizer", func() {
		It("should remove an existing finalizer", func() {
			AddFinalizer(obj, FinalizerPostgresDatabase)

			Expect(RemoveFinalizer(obj, FinalizerPostgresDatabase)).To(BeTrue())
			Expect(obj.GetFinalizers()).To(BeEmpty())
		})

		It("should report false when absent", func() {
			Expect(RemoveFinalizer(obj, FinalizerPostgresDatabase)).To(BeFalse())
		})

		It("should keep other finalizers", func() {
			obj.Finalizers = []string{"example.com/other", FinalizerPostgresDatabase}

			RemoveFinalizer(obj, FinalizerPostgresDatabase)

			Expect(obj.GetFinalizers()).To(Equal([]string{"example.com/other"}))
		})
	})

	Describe("HasFinalizer", func() {
		It("should report presence", func() {
			Expect(HasFinalizer(obj, FinalizerPostgresDatabase)).To(BeFalse())
			AddFinalizer(obj, FinalizerPostgresDatabase)
			Expect(HasFinalizer(obj, FinalizerPostgresDatabase)).To(BeTrue())
		})
	})

	Describe("IsMarkedForDeletion", func() {
		It("should be false without a deletion timestamp", func() {
			Expect(IsMarkedForDeletion(obj)).To(BeFalse())
		})

		It("should be true with a deletion timestamp", func() {
			ts := metav1.NewTime(time.Now())
			obj.DeletionTimestamp = &ts
			Expect(IsMarkedForDeletion(obj)).To(BeTrue())
		})
	})

	Describe("ShouldSkipReconcile", func() {
		DescribeTable("annotations",
			func(annotations map[string]string, expected bool) {
				obj.Annotations = annotations
				Expect(ShouldSkipReconcile(obj)).To(Equal(expected))
			},
			Entry("no annotations", nil, false),
			Entry("skip", map[string]string{AnnotationSkipReconcile: "true"}, true),
			Entry("pause", map[string]string{AnnotationPauseReconcile: "true"}, true),
			Entry("skip set to false", map[string]string{AnnotationSkipReconcile: "false"}, false),
			Entry("unrelated", map[string]string{"example.com/x": "true"}, false),
		)
	})

	Describe("MatchesInstanceID", func() {
		DescribeTable("labels",
			func(labels map[string]string, id string, expected bool) {
				obj.Labels = labels
				Expect(MatchesInstanceID(obj, id)).To(Equal(expected))
			},
			Entry("unlabeled, default operator", nil, DefaultInstanceID, true),
			Entry("unlabeled, other operator", nil, "blue", false),
			Entry("labeled for this operator", map[string]string{dbv1alpha1.LabelOperatorInstanceID: "blue"}, "blue", true),
			Entry("labeled for another operator", map[string]string{dbv1alpha1.LabelOperatorInstanceID: "green"}, "blue", false),
			Entry("labeled default", map[string]string{dbv1alpha1.LabelOperatorInstanceID: "default"}, DefaultInstanceID, true),
		)
	})
})

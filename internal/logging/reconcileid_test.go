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

package logging

import (
	"context"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

var _ = Describe("GenerateID", func() {
	It("returns 8 lowercase hex characters", func() {
		Expect(GenerateID()).To(MatchRegexp("^[0-9a-f]{8}$"))
	})

	It("produces unique values on successive calls", func() {
		ids := make(map[string]struct{}, 100)
		for i := 0; i < 100; i++ {
			ids[GenerateID()] = struct{}{}
		}
		Expect(ids).To(HaveLen(100))
	})
})

var _ = DescribeTable("ShortID",
	func(uid types.UID, want string) {
		Expect(ShortID(uid)).To(Equal(want))
	},
	Entry("uuid", types.UID("3F2504E0-4F89-11D3-9A0C-0305E82C3301"), "3f2504e0"),
	Entry("dashes early", types.UID("ab-cd-ef-01-23"), "abcdef01"),
	Entry("too short", types.UID("abc"), ""),
	Entry("empty", types.UID(""), ""),
)

var _ = Describe("IDFromContext", func() {
	It("returns empty string from empty context", func() {
		Expect(IDFromContext(context.Background())).To(BeEmpty())
	})

	It("round-trips a reconcileID through context", func() {
		ctx := ContextWithID(context.Background(), "abc12345")
		Expect(IDFromContext(ctx)).To(Equal("abc12345"))
	})
})

var _ = Describe("EventMessage", func() {
	It("prefixes the message with the reconcileID", func() {
		ctx := ContextWithID(context.Background(), "abc12345")
		Expect(EventMessage(ctx, "phase %s -> %s", "Creating", "Ready")).
			To(Equal("[abc12345] phase Creating -> Ready"))
	})

	It("leaves the message alone without a reconcileID", func() {
		Expect(EventMessage(context.Background(), "applied %d fields", 2)).To(Equal("applied 2 fields"))
	})
})

var _ = Describe("Middleware", func() {
	var baseCtx context.Context

	BeforeEach(func() {
		baseLog := zap.New(zap.UseDevMode(true), zap.WriteTo(GinkgoWriter))
		baseCtx = logr.NewContext(context.Background(), baseLog)
	})

	It("generates an ID when controller-runtime did not assign one", func() {
		var captured string
		inner := reconcile.Func(func(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
			captured = IDFromContext(ctx)
			logf.FromContext(ctx).Info("reconciling", "postgresdatabase", req.NamespacedName)
			return ctrl.Result{}, nil
		})

		_, err := Middleware(inner).Reconcile(baseCtx, ctrl.Request{
			NamespacedName: types.NamespacedName{Namespace: "team-a", Name: "orders"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(captured).To(MatchRegexp("^[0-9a-f]{8}$"))
	})

	It("uses a different ID for each reconciliation", func() {
		ids := make(map[string]struct{})
		inner := reconcile.Func(func(ctx context.Context, _ ctrl.Request) (ctrl.Result, error) {
			ids[IDFromContext(ctx)] = struct{}{}
			return ctrl.Result{}, nil
		})

		for i := 0; i < 10; i++ {
			_, _ = Middleware(inner).Reconcile(baseCtx, ctrl.Request{})
		}
		Expect(ids).To(HaveLen(10))
	})

	It("propagates the result and error from the inner reconciler", func() {
		inner := reconcile.Func(func(context.Context, ctrl.Request) (ctrl.Result, error) {
			return ctrl.Result{RequeueAfter: 42}, context.DeadlineExceeded
		})

		result, err := Middleware(inner).Reconcile(baseCtx, ctrl.Request{})
		Expect(result).To(Equal(ctrl.Result{RequeueAfter: 42}))
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})

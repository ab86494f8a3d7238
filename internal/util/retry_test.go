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
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var _ = Describe("Retry", func() {
	Describe("DefaultRetryConfig", func() {
		It("should use a 2s start, doubling, and a 5m ceiling", func() {
			config := DefaultRetryConfig()
			Expect(config.InitialInterval).To(Equal(2 * time.Second))
			Expect(config.Multiplier).To(Equal(2.0))
			Expect(config.MaxInterval).To(Equal(5 * time.Minute))
			Expect(config.RandomizationFactor).To(Equal(0.1))
		})
	})

	Describe("Interval", func() {
		config := RetryConfig{
			InitialInterval: 2 * time.Second,
			MaxInterval:     5 * time.Minute,
			Multiplier:      2.0,
		}

		It("should be zero before any failure", func() {
			Expect(config.Interval(0)).To(BeZero())
		})

		It("should grow exponentially", func() {
			Expect(config.Interval(1)).To(Equal(2 * time.Second))
			Expect(config.Interval(2)).To(Equal(4 * time.Second))
			Expect(config.Interval(3)).To(Equal(8 * time.Second))
			Expect(config.Interval(7)).To(Equal(128 * time.Second))
		})

		It("should be capped at MaxInterval", func() {
			Expect(config.Interval(8)).To(Equal(256 * time.Second))
			Expect(config.Interval(9)).To(Equal(5 * time.Minute))
			Expect(config.Interval(100)).To(Equal(5 * time.Minute))
		})

		It("should treat a multiplier below 1 as constant backoff", func() {
			flat := RetryConfig{InitialInterval: time.Second, MaxInterval: time.Minute, Multiplier: 0}
			Expect(flat.Interval(5)).To(Equal(time.Second))
		})
	})

	Describe("Jitter", func() {
		config := RetryConfig{RandomizationFactor: 0.1}

		It("should return the lower bound for a zero draw", func() {
			Expect(config.Jitter(10*time.Second, func() float64 { return 0 })).To(Equal(9 * time.Second))
		})

		It("should return the midpoint for a half draw", func() {
			Expect(config.Jitter(10*time.Second, func() float64 { return 0.5 })).To(Equal(10 * time.Second))
		})

		It("should stay within bounds with the default source", func() {
			for i := 0; i < 100; i++ {
				d := config.Jitter(10*time.Second, nil)
				Expect(d).To(BeNumerically(">=", 9*time.Second))
				Expect(d).To(BeNumerically("<=", 11*time.Second))
			}
		})

		It("should not jitter when the factor is zero", func() {
			Expect(RetryConfig{}.Jitter(10*time.Second, nil)).To(Equal(10 * time.Second))
		})
	})

	Describe("Backoff", func() {
		It("should combine interval and jitter", func() {
			config := DefaultRetryConfig()
			Expect(config.Backoff(3, func() float64 { return 0.5 })).To(Equal(8 * time.Second))
		})
	})

	Describe("IsRetryableError", func() {
		gr := schema.GroupResource{Group: "db.pgplatform.io", Resource: "postgresdatabases"}

		It("should be false for nil", func() {
			Expect(IsRetryableError(nil)).To(BeFalse())
		})

		DescribeTable("transient errors",
			func(err error) {
				Expect(IsRetryableError(err)).To(BeTrue())
			},
			Entry("context deadline", fmt.Errorf("get: %w", context.DeadlineExceeded)),
			Entry("server timeout", apierrors.NewServerTimeout(gr, "get", 1)),
			Entry("gateway timeout", apierrors.NewTimeoutError("slow", 1)),
			Entry("throttled", apierrors.NewTooManyRequests("slow down", 1)),
			Entry("service unavailable", apierrors.NewServiceUnavailable("etcd")),
			Entry("internal error", apierrors.NewInternalError(errors.New("boom"))),
			Entry("connection refused", errors.New("dial tcp 10.0.0.1:443: connect: connection refused")),
			Entry("connection lost", errors.New("http2: client connection lost")),
			Entry("unexpected EOF", errors.New("unexpected EOF")),
		)

		DescribeTable("permanent errors",
			func(err error) {
				Expect(IsRetryableError(err)).To(BeFalse())
			},
			Entry("not found", apierrors.NewNotFound(gr, "orders")),
			Entry("forbidden", apierrors.NewForbidden(gr, "orders", errors.New("rbac"))),
			Entry("invalid", apierrors.NewBadRequest("bad spec")),
			Entry("plain error", errors.New("spec.version: unsupported")),
		)
	})
})

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
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Timeouts", func() {
	It("should default to 30s for reads and writes", func() {
		config := DefaultTimeoutConfig()
		Expect(config.ReadTimeout).To(Equal(30 * time.Second))
		Expect(config.WriteTimeout).To(Equal(30 * time.Second))
	})

	It("should set a deadline for positive durations", func() {
		ctx, cancel := UniformTimeoutConfig(time.Minute).WithWriteTimeout(context.Background())
		defer cancel()

		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically("<=", time.Minute))
	})

	It("should leave the context alone without a timeout", func() {
		parent := context.Background()
		ctx, cancel := TimeoutConfig{}.WithReadTimeout(parent)
		defer cancel()

		_, ok := ctx.Deadline()
		Expect(ok).To(BeFalse())
	})

	It("should recognise wrapped deadline errors", func() {
		Expect(IsTimeoutError(fmt.Errorf("get: %w", context.DeadlineExceeded))).To(BeTrue())
		Expect(IsTimeoutError(context.Canceled)).To(BeFalse())
	})
})

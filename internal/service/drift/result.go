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

// Package drift compares the owned subset of a live object against its desired value.
package drift

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// absent is the display value for a path missing on one side.
const absent = "<absent>"

// Result contains the result of a drift check.
// It captures the differences between desired (translated) and actual (live) state.
type Result struct {
	// Resource identifies the checked object, as namespace/name
	Resource string `json:"resource"`

	// Diffs contains the specific differences found, in path order
	Diffs []Diff `json:"diffs,omitempty"`
}

// NewResult creates a new drift result for the given resource.
func NewResult(resource string) *Result {
	return &Result{Resource: resource}
}

// HasDrift returns true if any drift was detected.
func (r *Result) HasDrift() bool {
	return len(r.Diffs) > 0
}

// AddDiff adds a difference to the result.
func (r *Result) AddDiff(diff Diff) {
	r.Diffs = append(r.Diffs, diff)
}

// Fields returns the drifted field paths.
func (r *Result) Fields() []string {
	fields := make([]string, len(r.Diffs))
	for i, d := range r.Diffs {
		fields[i] = d.Field
	}
	return fields
}

// Diff represents a single difference between desired and actual state.
type Diff struct {
	// Field is the dotted path that differs
	Field string `json:"field"`

	// Expected is the desired value (JSON, for display)
	Expected string `json:"expected"`

	// Actual is the live value (JSON, for display)
	Actual string `json:"actual"`
}

// Compare checks each dotted path in paths and records a Diff wherever the desired
// and live values are not semantically equal. A path missing on both sides is equal.
func Compare(result *Result, paths []string, desired, live map[string]interface{}) {
	for _, path := range paths {
		fields := strings.Split(path, ".")
		want, wantFound, _ := unstructured.NestedFieldNoCopy(desired, fields...)
		got, gotFound, _ := unstructured.NestedFieldNoCopy(live, fields...)

		if !wantFound && !gotFound {
			continue
		}
		if wantFound && gotFound && equality.Semantic.DeepEqual(want, got) {
			continue
		}
		result.AddDiff(Diff{
			Field:    path,
			Expected: display(want, wantFound),
			Actual:   display(got, gotFound),
		})
	}
}

// CompareLabels records a Diff for each expected label whose live value differs.
// Labels not named in expected are ignored.
func CompareLabels(result *Result, expected, live map[string]string) {
	for _, key := range sortedKeys(expected) {
		got, ok := live[key]
		if ok && got == expected[key] {
			continue
		}
		actual := got
		if !ok {
			actual = absent
		}
		result.AddDiff(Diff{
			Field:    "metadata.labels." + key,
			Expected: expected[key],
			Actual:   actual,
		})
	}
}

func display(v interface{}, found bool) string {
	if !found {
		return absent
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "<unprintable>"
	}
	return string(b)
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

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

package app

import (
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/pgplatform-operator/internal/util"
)

// NewInstanceIDPredicate drops watch events for PostgresDatabases assigned to
// another operator instance through the operator-instance-id label. Unlabeled
// objects belong to the "default" instance. Updates are judged by the new
// object, so relabeling a database hands it over on the next event.
//
// The reconciler repeats the check on the object it reads.
func NewInstanceIDPredicate(instanceID string) predicate.Predicate {
	return predicate.NewPredicateFuncs(func(obj client.Object) bool {
		return util.MatchesInstanceID(obj, instanceID)
	})
}

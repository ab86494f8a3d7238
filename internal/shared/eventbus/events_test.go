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

package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/types"
)

var (
	orders = types.NamespacedName{Namespace: "team-a", Name: "orders"}
	at     = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
)

func TestBaseEvent(t *testing.T) {
	event := NewBaseEvent("TestEvent", orders, at)

	assert.Equal(t, "TestEvent", event.EventName())
	assert.Equal(t, orders, event.Database())
	assert.Equal(t, at, event.EventTime())
}

func TestTargetApplied(t *testing.T) {
	event := NewTargetApplied(orders, "updated", []string{"spec.proxy"}, at)

	assert.Equal(t, EventTargetApplied, event.EventName())
	assert.Equal(t, orders, event.Database())
	assert.Equal(t, "updated", event.Outcome)
	assert.Equal(t, []string{"spec.proxy"}, event.Fields)
}

func TestApplyConflict(t *testing.T) {
	event := NewApplyConflict(orders, 3, at)

	assert.Equal(t, EventApplyConflict, event.EventName())
	assert.Equal(t, 3, event.Attempts)
}

func TestPhaseChanged(t *testing.T) {
	event := NewPhaseChanged(orders, "Ready", "Creating", "instances: 1/3 ready", at)

	assert.Equal(t, EventPhaseChanged, event.EventName())
	assert.Equal(t, "Ready", event.From)
	assert.Equal(t, "Creating", event.To)
	assert.Equal(t, "instances: 1/3 ready", event.Message)
}

func TestValidationRejected(t *testing.T) {
	event := NewValidationRejected(orders, "ImmutableField", "spec.version: cannot change from 15 to 17", at)

	assert.Equal(t, EventValidationRejected, event.EventName())
	assert.Equal(t, "ImmutableField", event.Reason)
}

func TestDatabaseDeleted(t *testing.T) {
	event := NewDatabaseDeleted(orders, at)

	assert.Equal(t, EventDatabaseDeleted, event.EventName())
	assert.Equal(t, orders, event.Database())
}

func TestEventsImplementInterface(t *testing.T) {
	events := []Event{
		NewTargetApplied(orders, "created", nil, at),
		NewApplyConflict(orders, 1, at),
		NewPhaseChanged(orders, "", "Pending", "", at),
		NewValidationRejected(orders, "OutOfRange", "", at),
		NewDatabaseDeleted(orders, at),
	}
	for _, e := range events {
		assert.NotEmpty(t, e.EventName())
		assert.Equal(t, at, e.EventTime())
	}
}

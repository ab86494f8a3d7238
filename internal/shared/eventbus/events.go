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
	"time"

	"k8s.io/apimachinery/pkg/types"
)

// Event names.
const (
	EventTargetApplied      = "TargetApplied"
	EventApplyConflict      = "ApplyConflict"
	EventPhaseChanged       = "PhaseChanged"
	EventValidationRejected = "ValidationRejected"
	EventDatabaseDeleted    = "DatabaseDeleted"
)

// BaseEvent carries the fields every PostgresDatabase event shares.
// Embed it in concrete event types.
type BaseEvent struct {
	name       string
	occurredAt time.Time
	database   types.NamespacedName
}

// NewBaseEvent creates a base event. The caller supplies the time so events
// raised in one reconcile pass share its clock.
func NewBaseEvent(name string, database types.NamespacedName, at time.Time) BaseEvent {
	return BaseEvent{name: name, occurredAt: at, database: database}
}

func (e BaseEvent) EventName() string              { return e.name }
func (e BaseEvent) EventTime() time.Time           { return e.occurredAt }
func (e BaseEvent) Database() types.NamespacedName { return e.database }

// TargetApplied is published when a reconcile pass wrote the PostgresCluster.
type TargetApplied struct {
	BaseEvent
	// Outcome is created or updated.
	Outcome string
	// Fields lists the owned fields that drifted before the write.
	Fields []string
}

// NewTargetApplied creates a TargetApplied event.
func NewTargetApplied(database types.NamespacedName, outcome string, fields []string, at time.Time) *TargetApplied {
	return &TargetApplied{
		BaseEvent: NewBaseEvent(EventTargetApplied, database, at),
		Outcome:   outcome,
		Fields:    fields,
	}
}

// ApplyConflict is published when a write lost an optimistic-concurrency race.
type ApplyConflict struct {
	BaseEvent
	Attempts int
}

// NewApplyConflict creates an ApplyConflict event.
func NewApplyConflict(database types.NamespacedName, attempts int, at time.Time) *ApplyConflict {
	return &ApplyConflict{
		BaseEvent: NewBaseEvent(EventApplyConflict, database, at),
		Attempts:  attempts,
	}
}

// PhaseChanged is published when status.phase moves.
type PhaseChanged struct {
	BaseEvent
	From    string
	To      string
	Message string
}

// NewPhaseChanged creates a PhaseChanged event.
func NewPhaseChanged(database types.NamespacedName, from, to, message string, at time.Time) *PhaseChanged {
	return &PhaseChanged{
		BaseEvent: NewBaseEvent(EventPhaseChanged, database, at),
		From:      from,
		To:        to,
		Message:   message,
	}
}

// ValidationRejected is published when a spec fails validation.
type ValidationRejected struct {
	BaseEvent
	Reason  string
	Message string
}

// NewValidationRejected creates a ValidationRejected event.
func NewValidationRejected(database types.NamespacedName, reason, message string, at time.Time) *ValidationRejected {
	return &ValidationRejected{
		BaseEvent: NewBaseEvent(EventValidationRejected, database, at),
		Reason:    reason,
		Message:   message,
	}
}

// DatabaseDeleted is published once the finalizer is released.
type DatabaseDeleted struct {
	BaseEvent
}

// NewDatabaseDeleted creates a DatabaseDeleted event.
func NewDatabaseDeleted(database types.NamespacedName, at time.Time) *DatabaseDeleted {
	return &DatabaseDeleted{BaseEvent: NewBaseEvent(EventDatabaseDeleted, database, at)}
}

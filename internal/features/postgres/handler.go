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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/metrics"
	"github.com/pgplatform-operator/internal/platform"
	"github.com/pgplatform-operator/internal/service"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/service/translate"
	"github.com/pgplatform-operator/internal/service/validation"
	"github.com/pgplatform-operator/internal/shared/eventbus"
)

// Handler contains the business logic for PostgresDatabase reconciliation.
// It coordinates the validation and translation services, the repository and
// the event bus.
type Handler struct {
	repo      RepositoryInterface
	validator *validation.Validator
	platform  *platform.Config
	eventBus  eventbus.Bus
	logger    logr.Logger
}

// HandlerConfig holds dependencies for the handler.
type HandlerConfig struct {
	Repository RepositoryInterface
	Platform   *platform.Config
	EventBus   eventbus.Bus
	Logger     logr.Logger
}

// NewHandler creates a new handler. A nil Platform uses the built-in tables.
func NewHandler(cfg HandlerConfig) *Handler {
	tables := cfg.Platform
	if tables == nil {
		tables = platform.Default()
	}
	return &Handler{
		repo:      cfg.Repository,
		validator: validation.New(tables),
		platform:  tables,
		eventBus:  cfg.EventBus,
		logger:    cfg.Logger,
	}
}

// Plan defaults and validates the spec against the last accepted spec, then
// translates it.
// Implements API.Plan
func (h *Handler) Plan(ctx context.Context, db *dbv1alpha1.PostgresDatabase, now time.Time) (*Plan, error) {
	spec, err := h.validator.Check(&db.Spec, db.Status.AcceptedSpec, db.Annotations)
	if err != nil {
		reason := service.ValidationReason(err)
		h.publish(ctx, eventbus.NewValidationRejected(client.ObjectKeyFromObject(db), reason, err.Error(), now))
		return nil, err
	}

	desired, err := translate.Translate(translate.Input{
		Name:      db.Name,
		Namespace: db.Namespace,
		Spec:      *spec,
	}, h.platform)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	return &Plan{
		Spec:     *spec,
		Accepted: validation.Accept(spec),
		Desired:  desired,
		Warnings: validation.Warnings(spec),
	}, nil
}

// Apply brings the PostgresCluster in line with the plan.
// Implements API.Apply
func (h *Handler) Apply(ctx context.Context, db *dbv1alpha1.PostgresDatabase, plan *Plan, now time.Time) (*apply.Result, error) {
	log := logf.FromContext(ctx)
	key := client.ObjectKeyFromObject(db)

	live, err := h.repo.GetTarget(ctx, key)
	if err != nil {
		return nil, err
	}

	result, err := h.repo.ApplyTarget(ctx, db, plan.Desired, live)
	if err != nil {
		return nil, err
	}
	metrics.RecordApply(db.Namespace, string(result.Outcome))

	switch result.Outcome {
	case apply.OutcomeCreated:
		log.Info("Created PostgresCluster")
		h.publish(ctx, eventbus.NewTargetApplied(key, string(result.Outcome), nil, now))
	case apply.OutcomeUpdated:
		fields := result.Drift.Fields()
		log.Info("Updated PostgresCluster", "fields", fields)
		h.publish(ctx, eventbus.NewTargetApplied(key, string(result.Outcome), fields, now))
	case apply.OutcomeConflict:
		log.V(1).Info("PostgresCluster changed since it was read")
	}
	return result, nil
}

// Delete removes the PostgresCluster. A PostgresCluster that some other owner
// controls is left alone and counts as gone.
// Implements API.Delete
func (h *Handler) Delete(ctx context.Context, db *dbv1alpha1.PostgresDatabase) (bool, error) {
	log := logf.FromContext(ctx)

	live, err := h.repo.GetTarget(ctx, client.ObjectKeyFromObject(db))
	if err != nil {
		return false, err
	}
	if live == nil {
		return true, nil
	}
	if !metav1.IsControlledBy(live, db) {
		log.Info("PostgresCluster is not owned by this database, leaving it in place")
		return true, nil
	}
	if !live.GetDeletionTimestamp().IsZero() {
		log.V(1).Info("Waiting for PostgresCluster deletion to finish")
		return false, nil
	}

	if err := h.repo.DeleteTarget(ctx, db, live); err != nil {
		return false, err
	}
	metrics.RecordApply(db.Namespace, metrics.OutcomeDeleted)
	log.Info("Deleted PostgresCluster")
	return false, nil
}

// RecordConflict reports a lost write race.
func (h *Handler) RecordConflict(ctx context.Context, key types.NamespacedName, attempts int, now time.Time) {
	h.publish(ctx, eventbus.NewApplyConflict(key, attempts, now))
}

// RecordPhase reports a phase transition.
func (h *Handler) RecordPhase(ctx context.Context, key types.NamespacedName, from, to dbv1alpha1.Phase, message string, now time.Time) {
	h.publish(ctx, eventbus.NewPhaseChanged(key, string(from), string(to), message, now))
}

// Released reports that the finalizer is gone and the database may disappear.
func (h *Handler) Released(ctx context.Context, key types.NamespacedName, now time.Time) {
	h.publish(ctx, eventbus.NewDatabaseDeleted(key, now))
}

// OnTargetApplied counts the owned fields an update corrected.
func (h *Handler) OnTargetApplied(ctx context.Context, event *eventbus.TargetApplied) error {
	metrics.RecordDriftCorrections(event.Database().Namespace, event.Fields)
	return nil
}

// OnApplyConflict counts retried write conflicts.
func (h *Handler) OnApplyConflict(ctx context.Context, event *eventbus.ApplyConflict) error {
	metrics.RecordConflictRetry(event.Database().Namespace)
	return nil
}

// OnValidationRejected counts rejected specs by reason.
func (h *Handler) OnValidationRejected(ctx context.Context, event *eventbus.ValidationRejected) error {
	metrics.RecordValidationFailure(event.Database().Namespace, event.Reason)
	return nil
}

// OnPhaseChanged keeps the phase gauge current.
func (h *Handler) OnPhaseChanged(ctx context.Context, event *eventbus.PhaseChanged) error {
	db := event.Database()
	metrics.SetPhase(db.Name, db.Namespace, event.To)
	return nil
}

// OnDatabaseDeleted drops the phase gauge of a deleted database.
func (h *Handler) OnDatabaseDeleted(ctx context.Context, event *eventbus.DatabaseDeleted) error {
	db := event.Database()
	metrics.DeletePhaseMetrics(db.Name, db.Namespace)
	return nil
}

// publish delivers an event. Subscribers only observe, so a failing one is
// logged and never fails the reconcile pass.
func (h *Handler) publish(ctx context.Context, event eventbus.Event) {
	if h.eventBus == nil {
		return
	}
	if err := h.eventBus.Publish(ctx, event); err != nil {
		logf.FromContext(ctx).Error(err, "Event subscribers failed", "event", event.EventName())
	}
}

var _ API = (*Handler)(nil)

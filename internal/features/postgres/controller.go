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
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/logging"
	"github.com/pgplatform-operator/internal/metrics"
	"github.com/pgplatform-operator/internal/reconcileutil"
	"github.com/pgplatform-operator/internal/service"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/service/projection"
	"github.com/pgplatform-operator/internal/target"
	"github.com/pgplatform-operator/internal/util"
)

const (
	// DefaultDriftInterval is how often a Ready database is re-checked for drift.
	DefaultDriftInterval = 10 * time.Minute

	// DefaultFailureDeadline is how long a database may keep failing before its
	// status reports Failed.
	DefaultFailureDeadline = 15 * time.Minute
)

// Event reasons recorded on PostgresDatabase objects.
const (
	EventReasonApplied          = "Applied"
	EventReasonApplyConflict    = "ApplyConflict"
	EventReasonValidationFailed = "ValidationFailed"
	EventReasonPhaseChanged     = "PhaseChanged"
	EventReasonNotOwned         = "TargetNotOwned"
	EventReasonRetriesExhausted = "RetriesExhausted"
	EventReasonDeleting         = "Deleting"
)

// Controller handles K8s reconciliation for PostgresDatabase resources.
// It is a thin wrapper that delegates business logic to the Handler.
type Controller struct {
	client.Client
	Scheme   *runtime.Scheme
	handler  *Handler
	recorder record.EventRecorder
	tracker  *reconcileutil.Tracker
	clock    clock.PassiveClock
	logger   logr.Logger

	instanceID              string
	driftInterval           time.Duration
	failureDeadline         time.Duration
	gracePeriod             time.Duration
	repoName                string
	timeouts                util.TimeoutConfig
	maxConcurrentReconciles int
	predicates              []predicate.Predicate
}

// ControllerConfig holds dependencies for the controller.
type ControllerConfig struct {
	Client   client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Handler  *Handler
	Tracker  *reconcileutil.Tracker
	Clock    clock.PassiveClock
	Logger   logr.Logger

	// InstanceID selects which databases this operator reconciles.
	InstanceID string

	DriftInterval   time.Duration
	FailureDeadline time.Duration

	// GracePeriod is how long a failing PostgresCluster condition may persist
	// before the database is Failed.
	GracePeriod time.Duration

	// RepoName is the backup repository whose stanza gates readiness.
	RepoName string

	Timeouts                util.TimeoutConfig
	MaxConcurrentReconciles int
	Predicates              []predicate.Predicate
}

// NewController creates a new PostgresDatabase controller.
func NewController(cfg ControllerConfig) *Controller {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = reconcileutil.NewTracker(util.DefaultRetryConfig(), clk)
	}
	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = util.DefaultInstanceID
	}
	driftInterval := cfg.DriftInterval
	if driftInterval <= 0 {
		driftInterval = DefaultDriftInterval
	}
	failureDeadline := cfg.FailureDeadline
	if failureDeadline <= 0 {
		failureDeadline = DefaultFailureDeadline
	}
	return &Controller{
		Client:                  cfg.Client,
		Scheme:                  cfg.Scheme,
		handler:                 cfg.Handler,
		recorder:                cfg.Recorder,
		tracker:                 tracker,
		clock:                   clk,
		logger:                  cfg.Logger,
		instanceID:              instanceID,
		driftInterval:           driftInterval,
		failureDeadline:         failureDeadline,
		gracePeriod:             cfg.GracePeriod,
		repoName:                cfg.RepoName,
		timeouts:                cfg.Timeouts,
		maxConcurrentReconciles: cfg.MaxConcurrentReconciles,
		predicates:              cfg.Predicates,
	}
}

// Reconcile implements the reconciliation loop for PostgresDatabase resources.
// +kubebuilder:rbac:groups=db.pgplatform.io,resources=postgresdatabases,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=db.pgplatform.io,resources=postgresdatabases/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=db.pgplatform.io,resources=postgresdatabases/finalizers,verbs=update
// +kubebuilder:rbac:groups=postgres-operator.crunchydata.com,resources=postgresclusters,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch
func (c *Controller) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	start := c.clock.Now()
	log := logf.FromContext(ctx).WithValues("postgresdatabase", req.NamespacedName)
	ctx = logf.IntoContext(ctx, log)

	result, outcome, err := c.reconcile(ctx, req)
	metrics.RecordReconcile(req.Namespace, outcome, c.clock.Since(start).Seconds())
	return result, err
}

func (c *Controller) reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, string, error) {
	log := logf.FromContext(ctx)

	// 1. Fetch the PostgresDatabase. Every pass starts from a fresh read.
	db := &dbv1alpha1.PostgresDatabase{}
	readCtx, cancel := c.timeouts.WithReadTimeout(ctx)
	err := c.Get(readCtx, req.NamespacedName, db)
	cancel()
	if err != nil {
		if client.IgnoreNotFound(err) == nil {
			c.tracker.Reset(req.NamespacedName)
			return ctrl.Result{}, metrics.ResultSkipped, nil
		}
		return c.retry(ctx, nil, req.NamespacedName, err)
	}

	// 2. Check if reconciliation should be skipped
	if !util.MatchesInstanceID(db, c.instanceID) {
		log.V(1).Info("Skipping database assigned to another operator instance")
		return ctrl.Result{}, metrics.ResultSkipped, nil
	}
	if util.ShouldSkipReconcile(db) {
		log.Info("Skipping reconciliation due to annotation")
		return ctrl.Result{}, metrics.ResultSkipped, nil
	}

	// The phase gauge is otherwise only set on transitions, so an operator
	// restart would leave it empty for settled databases.
	if db.Status.Phase != "" && util.HasFinalizer(db, util.FinalizerPostgresDatabase) {
		metrics.SetPhase(db.Name, db.Namespace, string(db.Status.Phase))
	}

	// 3. Handle deletion
	if util.IsMarkedForDeletion(db) {
		return c.handleDeletion(ctx, db)
	}

	// 4. Add finalizer if not present
	if util.AddFinalizer(db, util.FinalizerPostgresDatabase) {
		if err := c.update(ctx, db); err != nil {
			return c.retry(ctx, db, req.NamespacedName, err)
		}
	}

	// 5. Validate and translate
	now := c.clock.Now()
	plan, err := c.handler.Plan(ctx, db, now)
	if err != nil {
		if service.IsValidationError(err) {
			return c.handleRejected(ctx, db, err, now)
		}
		return c.retry(ctx, db, req.NamespacedName, err)
	}
	for _, w := range plan.Warnings {
		log.Info("Spec warning", "warning", w)
	}

	// 6. Apply
	applied, err := c.handler.Apply(ctx, db, plan, now)
	if err != nil {
		if service.IsNotOwned(err) {
			return c.handleNotOwned(ctx, db, err, now)
		}
		return c.retry(ctx, db, req.NamespacedName, err)
	}
	if applied.Outcome == apply.OutcomeConflict {
		// Nothing was written and the status would only echo stale state.
		return c.retry(ctx, db, req.NamespacedName, &service.ConflictError{
			Resource: "PostgresCluster " + req.NamespacedName.String(),
			Err:      service.ErrConflict,
		})
	}
	if applied.Outcome.Wrote() {
		c.event(ctx, db, corev1.EventTypeNormal, EventReasonApplied, "PostgresCluster %s", applied.Outcome)
	}

	// 7. Project and write status
	status := projection.Project(projection.Input{
		Name:        db.Name,
		Namespace:   db.Namespace,
		Generation:  db.Generation,
		Spec:        plan.Spec,
		Accepted:    plan.Accepted,
		Target:      applied.Object,
		Outcome:     applied.Outcome,
		Previous:    db.Status,
		Now:         now,
		GracePeriod: c.gracePeriod,
		RepoName:    c.repoName,
	})
	if err := c.writeStatus(ctx, db, status, now); err != nil {
		return c.retry(ctx, db, req.NamespacedName, err)
	}

	c.tracker.Reset(req.NamespacedName)
	return ctrl.Result{RequeueAfter: c.requeueFor(status.Phase)}, metrics.ResultSuccess, nil
}

// handleDeletion deletes the PostgresCluster and releases the finalizer once it is gone.
func (c *Controller) handleDeletion(ctx context.Context, db *dbv1alpha1.PostgresDatabase) (ctrl.Result, string, error) {
	log := logf.FromContext(ctx)
	key := client.ObjectKeyFromObject(db)

	if !util.HasFinalizer(db, util.FinalizerPostgresDatabase) {
		return ctrl.Result{}, metrics.ResultSkipped, nil
	}

	now := c.clock.Now()
	if err := c.writeStatus(ctx, db, projection.Deleting(db.Status, db.Generation, now), now); err != nil {
		return c.retry(ctx, db, key, err)
	}

	gone, err := c.handler.Delete(ctx, db)
	if err != nil {
		return c.retry(ctx, db, key, err)
	}
	if !gone {
		return ctrl.Result{RequeueAfter: reconcileutil.RequeueAfterDeleting}, metrics.ResultSuccess, nil
	}

	util.RemoveFinalizer(db, util.FinalizerPostgresDatabase)
	if err := c.update(ctx, db); err != nil {
		return c.retry(ctx, db, key, err)
	}

	c.tracker.Reset(key)
	c.handler.Released(ctx, key, now)
	log.Info("Released PostgresDatabase after its PostgresCluster was deleted")
	return ctrl.Result{}, metrics.ResultSuccess, nil
}

// handleRejected records a validation failure. The PostgresCluster is left
// untouched and nothing is requeued until the spec changes.
func (c *Controller) handleRejected(ctx context.Context, db *dbv1alpha1.PostgresDatabase, cause error, now time.Time) (ctrl.Result, string, error) {
	logf.FromContext(ctx).Info("Spec rejected", "reason", service.ValidationReason(cause), "error", cause.Error())

	if db.Status.Message != cause.Error() || db.Status.Phase != dbv1alpha1.PhaseFailed {
		c.event(ctx, db, corev1.EventTypeWarning, EventReasonValidationFailed, "%v", cause)
	}
	if err := c.writeStatus(ctx, db, projection.Rejected(db.Status, db.Generation, cause, now), now); err != nil {
		return c.retry(ctx, db, client.ObjectKeyFromObject(db), err)
	}
	c.tracker.Reset(client.ObjectKeyFromObject(db))
	return ctrl.Result{}, metrics.ResultRejected, nil
}

// handleNotOwned reports a PostgresCluster name taken by something this database
// does not control. It needs a human, so it is not requeued.
func (c *Controller) handleNotOwned(ctx context.Context, db *dbv1alpha1.PostgresDatabase, cause error, now time.Time) (ctrl.Result, string, error) {
	logf.FromContext(ctx).Error(cause, "PostgresCluster is controlled by another owner")

	if db.Status.Phase != dbv1alpha1.PhaseFailed {
		c.event(ctx, db, corev1.EventTypeWarning, EventReasonNotOwned, "%v", cause)
	}
	if err := c.writeStatus(ctx, db, projection.NotOwned(db.Status, db.Generation, cause, now), now); err != nil {
		return c.retry(ctx, db, client.ObjectKeyFromObject(db), err)
	}
	c.tracker.Reset(client.ObjectKeyFromObject(db))
	return ctrl.Result{}, metrics.ResultRejected, nil
}

// retry schedules the next pass after a failure. Once the key has been failing
// for longer than the failure deadline the status reports the last error; the
// pass is still retried at the backoff ceiling. db is nil when it could not be read.
func (c *Controller) retry(ctx context.Context, db *dbv1alpha1.PostgresDatabase, key types.NamespacedName, cause error) (ctrl.Result, string, error) {
	log := logf.FromContext(ctx)

	class := reconcileutil.ClassifyError(cause)
	backoff := c.tracker.Failure(key)
	metrics.RecordBackoff(backoff.Delay.Seconds())

	outcome := metrics.ResultError
	if class == reconcileutil.ErrorClassConflict {
		outcome = metrics.ResultConflict
		log.V(1).Info("Write conflict, retrying", "attempt", backoff.Failures, "after", backoff.Delay)
		c.handler.RecordConflict(ctx, key, backoff.Failures, c.clock.Now())
		if db != nil && backoff.Failures == 1 {
			c.event(ctx, db, corev1.EventTypeNormal, EventReasonApplyConflict, "write conflict, retrying")
		}
	} else if util.IsRetryableError(cause) || service.IsTimeout(cause) {
		log.Info("API server unavailable, retrying", "error", cause.Error(), "attempt", backoff.Failures, "after", backoff.Delay)
	} else {
		log.Error(cause, "Reconciliation failed", "attempt", backoff.Failures, "after", backoff.Delay, "class", class.String())
	}

	if db != nil && backoff.FailingFor >= c.failureDeadline {
		now := c.clock.Now()
		reason := util.ReasonReconcileFailed
		if class == reconcileutil.ErrorClassConflict {
			reason = util.ReasonApplyConflict
		}
		if db.Status.Phase != dbv1alpha1.PhaseFailed {
			c.event(ctx, db, corev1.EventTypeWarning, EventReasonRetriesExhausted, "retries exhausted: %v", cause)
		}
		if err := c.writeStatus(ctx, db, projection.Stalled(db.Status, db.Generation, cause, reason, now), now); err != nil {
			log.Error(err, "Failed to record failure in status")
		}
	}

	result, err := reconcileutil.ClassifyRequeue(cause, backoff.Delay)
	return result, outcome, err
}

// writeStatus writes status only when it differs from what is stored, so a
// pass with nothing new to report causes no write and no watch event.
func (c *Controller) writeStatus(ctx context.Context, db *dbv1alpha1.PostgresDatabase, status dbv1alpha1.PostgresDatabaseStatus, now time.Time) error {
	if equality.Semantic.DeepEqual(db.Status, status) {
		return nil
	}

	previous := db.Status.Phase
	db.Status = status

	writeCtx, cancel := c.timeouts.WithWriteTimeout(ctx)
	defer cancel()
	if err := c.Status().Update(writeCtx, db); err != nil {
		return err
	}

	if previous != status.Phase {
		key := client.ObjectKeyFromObject(db)
		logf.FromContext(ctx).Info("Phase changed", "from", previous, "to", status.Phase, "message", status.Message)
		c.handler.RecordPhase(ctx, key, previous, status.Phase, status.Message, now)
		c.event(ctx, db, corev1.EventTypeNormal, EventReasonPhaseChanged, "phase %s -> %s", phaseName(previous), status.Phase)
	}
	return nil
}

func (c *Controller) update(ctx context.Context, db *dbv1alpha1.PostgresDatabase) error {
	writeCtx, cancel := c.timeouts.WithWriteTimeout(ctx)
	defer cancel()
	return c.Update(writeCtx, db)
}

func (c *Controller) event(ctx context.Context, db *dbv1alpha1.PostgresDatabase, eventType, reason, format string, args ...interface{}) {
	if c.recorder == nil {
		return
	}
	c.recorder.Event(db, eventType, reason, logging.EventMessage(ctx, format, args...))
}

func (c *Controller) requeueFor(phase dbv1alpha1.Phase) time.Duration {
	switch phase {
	case dbv1alpha1.PhasePending, dbv1alpha1.PhaseCreating:
		return reconcileutil.RequeueAfterCreating
	default:
		return c.driftInterval
	}
}

func phaseName(p dbv1alpha1.Phase) string {
	if p == "" {
		return "<none>"
	}
	return string(p)
}

// SetupWithManager registers the controller with the manager. Spec, label and
// annotation changes on the PostgresDatabase and any change to an owned
// PostgresCluster trigger a pass; status-only updates do not. The configured
// predicates filter PostgresDatabase events only.
func (c *Controller) SetupWithManager(mgr ctrl.Manager) error {
	preds := append([]predicate.Predicate{
		predicate.Or[client.Object](
			predicate.GenerationChangedPredicate{},
			predicate.LabelChangedPredicate{},
			predicate.AnnotationChangedPredicate{},
		),
	}, c.predicates...)

	return logging.BuildController(mgr).
		For(&dbv1alpha1.PostgresDatabase{}, preds...).
		Owns(target.New()).
		Named("postgresdatabase").
		WithOptions(controller.Options{MaxConcurrentReconciles: c.maxConcurrentReconciles}).
		Complete(c)
}

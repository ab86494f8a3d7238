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
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/pgplatform-operator/internal/platform"
	"github.com/pgplatform-operator/internal/reconcileutil"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/shared/eventbus"
	"github.com/pgplatform-operator/internal/util"
)

// Module represents the PostgresDatabase feature module.
// It owns all components related to PostgresDatabase management.
type Module struct {
	handler    *Handler
	controller *Controller
	repository *Repository
	eventBus   eventbus.Bus
	logger     logr.Logger
}

// Config holds dependencies for the postgres module.
type Config struct {
	Manager  ctrl.Manager
	EventBus eventbus.Bus

	// Platform holds the platform tables. Nil uses the built-in defaults.
	Platform *platform.Config

	// Clock is injectable for tests. Nil uses the real clock.
	Clock clock.PassiveClock

	InstanceID              string
	DriftInterval           time.Duration
	FailureDeadline         time.Duration
	Backoff                 util.RetryConfig
	Timeouts                util.TimeoutConfig
	MaxConcurrentReconciles int
	Predicates              []predicate.Predicate
}

// NewModule creates and wires the postgres module.
func NewModule(cfg Config) (*Module, error) {
	logger := cfg.Manager.GetLogger().WithName("postgres")

	tables := cfg.Platform
	if tables == nil {
		tables = platform.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	backoff := cfg.Backoff
	if backoff.InitialInterval <= 0 {
		backoff = util.DefaultRetryConfig()
	}
	timeouts := cfg.Timeouts
	if timeouts == (util.TimeoutConfig{}) {
		timeouts = util.DefaultTimeoutConfig()
	}

	// Create repository (PostgresCluster access)
	repo := NewRepository(RepositoryConfig{
		Client:   cfg.Manager.GetClient(),
		Applier:  apply.New(cfg.Manager.GetClient(), cfg.Manager.GetScheme(), apply.DefaultOwnedFields()),
		Timeouts: timeouts,
		Logger:   logger.WithName("repository"),
	})

	// Create handler (business logic)
	handler := NewHandler(HandlerConfig{
		Repository: repo,
		Platform:   tables,
		EventBus:   cfg.EventBus,
		Logger:     logger.WithName("handler"),
	})

	// Create controller (K8s reconciliation)
	controller := NewController(ControllerConfig{
		Client:                  cfg.Manager.GetClient(),
		Scheme:                  cfg.Manager.GetScheme(),
		Recorder:                cfg.Manager.GetEventRecorderFor("postgresdatabase-controller"),
		Handler:                 handler,
		Tracker:                 reconcileutil.NewTracker(backoff, clk),
		Clock:                   clk,
		Logger:                  logger.WithName("controller"),
		InstanceID:              cfg.InstanceID,
		DriftInterval:           cfg.DriftInterval,
		FailureDeadline:         cfg.FailureDeadline,
		GracePeriod:             tables.FailureGracePeriod,
		RepoName:                tables.Backup.RepoName,
		Timeouts:                timeouts,
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
		Predicates:              cfg.Predicates,
	})

	if cfg.EventBus != nil {
		subscribeToEvents(cfg.EventBus, handler)
	}

	return &Module{
		handler:    handler,
		controller: controller,
		repository: repo,
		eventBus:   cfg.EventBus,
		logger:     logger,
	}, nil
}

// subscribeToEvents registers the module's own observers.
func subscribeToEvents(bus eventbus.Bus, handler *Handler) {
	bus.Subscribe(eventbus.EventTargetApplied, "postgres.OnTargetApplied", func(ctx context.Context, e eventbus.Event) error {
		event, ok := e.(*eventbus.TargetApplied)
		if !ok {
			return nil
		}
		return handler.OnTargetApplied(ctx, event)
	})

	bus.Subscribe(eventbus.EventApplyConflict, "postgres.OnApplyConflict", func(ctx context.Context, e eventbus.Event) error {
		event, ok := e.(*eventbus.ApplyConflict)
		if !ok {
			return nil
		}
		return handler.OnApplyConflict(ctx, event)
	})

	bus.Subscribe(eventbus.EventValidationRejected, "postgres.OnValidationRejected", func(ctx context.Context, e eventbus.Event) error {
		event, ok := e.(*eventbus.ValidationRejected)
		if !ok {
			return nil
		}
		return handler.OnValidationRejected(ctx, event)
	})

	bus.Subscribe(eventbus.EventPhaseChanged, "postgres.OnPhaseChanged", func(ctx context.Context, e eventbus.Event) error {
		event, ok := e.(*eventbus.PhaseChanged)
		if !ok {
			return nil
		}
		return handler.OnPhaseChanged(ctx, event)
	})

	bus.Subscribe(eventbus.EventDatabaseDeleted, "postgres.OnDatabaseDeleted", func(ctx context.Context, e eventbus.Event) error {
		event, ok := e.(*eventbus.DatabaseDeleted)
		if !ok {
			return nil
		}
		return handler.OnDatabaseDeleted(ctx, event)
	})
}

// SetupWithManager registers the controller with the manager.
func (m *Module) SetupWithManager(mgr ctrl.Manager) error {
	return m.controller.SetupWithManager(mgr)
}

// Handler returns the module's handler for use by other modules.
func (m *Module) Handler() API {
	return m.handler
}

// Name returns the module name.
func (m *Module) Name() string {
	return "postgres"
}

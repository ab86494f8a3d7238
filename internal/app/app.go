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

// Package app provides the application bootstrap for wiring all feature modules together.
package app

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/pgplatform-operator/internal/features/postgres"
	"github.com/pgplatform-operator/internal/shared/eventbus"
)

// Module represents a feature module that can be registered with the manager.
type Module interface {
	SetupWithManager(ctrl.Manager) error
	Name() string
}

// Application represents the main application with all feature modules.
type Application struct {
	eventBus eventbus.Bus
	postgres *postgres.Module
	modules  []Module
	logger   logr.Logger
}

// NewApplication creates a new Application with all feature modules wired together.
func NewApplication(mgr ctrl.Manager, cfg OperatorConfig) (*Application, error) {
	logger := mgr.GetLogger().WithName("app")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("operator config: %w", err)
	}

	// Create shared infrastructure
	busMetrics := eventbus.NewMetrics("pgplatform")
	if err := busMetrics.Register(metrics.Registry); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register event bus metrics: %w", err)
		}
	}
	eventBus := eventbus.NewInMemoryBus(
		eventbus.WithLogger(logger.WithName("eventbus")),
		eventbus.WithMiddleware(
			eventbus.LoggingMiddleware(logger.WithName("events")),
			eventbus.MetricsMiddleware(busMetrics),
			eventbus.RecoveryMiddleware(logger.WithName("recovery")),
		),
	)

	// PostgresDatabase module
	postgresMod, err := postgres.NewModule(postgres.Config{
		Manager:                 mgr,
		EventBus:                eventBus,
		Platform:                cfg.Platform,
		InstanceID:              cfg.InstanceID,
		DriftInterval:           cfg.DriftInterval,
		FailureDeadline:         cfg.FailureDeadline,
		Backoff:                 cfg.Backoff,
		Timeouts:                cfg.Timeouts(),
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
		Predicates: []predicate.Predicate{
			NewInstanceIDPredicate(cfg.InstanceID),
		},
	})
	if err != nil {
		return nil, err
	}

	modules := []Module{postgresMod}

	logger.Info("Application created with feature modules",
		"moduleCount", len(modules),
		"instanceID", cfg.InstanceID,
		"driftInterval", cfg.DriftInterval)

	return &Application{
		eventBus: eventBus,
		postgres: postgresMod,
		modules:  modules,
		logger:   logger,
	}, nil
}

// SetupWithManager registers all feature modules with the controller manager.
func (a *Application) SetupWithManager(mgr ctrl.Manager) error {
	for _, mod := range a.modules {
		if err := mod.SetupWithManager(mgr); err != nil {
			return fmt.Errorf("setup %s module: %w", mod.Name(), err)
		}
	}
	a.logger.Info("All feature modules registered with manager")
	return nil
}

// EventBus returns the application's event bus for external use.
func (a *Application) EventBus() eventbus.Bus {
	return a.eventBus
}

// Postgres returns the PostgresDatabase module's API.
func (a *Application) Postgres() postgres.API {
	return a.postgres.Handler()
}

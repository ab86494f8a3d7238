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

package logging

import (
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// ControllerBuilder wraps controller-runtime's builder to apply standard
// middleware (reconcileID, etc.) to every controller globally.
//
// Usage:
//
//	return logging.BuildController(mgr).
//	    For(&dbv1alpha1.PostgresDatabase{}, predicate.GenerationChangedPredicate{}).
//	    Owns(target.New()).
//	    Named("postgresdatabase").
//	    Complete(c)
type ControllerBuilder struct {
	mgr        ctrl.Manager
	obj        client.Object
	forPreds   []predicate.Predicate
	name       string
	owns       []owned
	predicates []predicate.Predicate
	options    controller.Options
}

type owned struct {
	obj   client.Object
	preds []predicate.Predicate
}

// BuildController creates a builder that auto-applies all standard middleware.
func BuildController(mgr ctrl.Manager) *ControllerBuilder {
	return &ControllerBuilder{mgr: mgr}
}

// For sets the primary resource this controller reconciles. The predicates
// filter events for that resource only.
func (b *ControllerBuilder) For(obj client.Object, preds ...predicate.Predicate) *ControllerBuilder {
	b.obj = obj
	b.forPreds = preds
	return b
}

// Named sets the controller name used for logging and metrics.
func (b *ControllerBuilder) Named(name string) *ControllerBuilder {
	b.name = name
	return b
}

// Owns registers a resource type controlled by the primary resource. Changes
// to it enqueue the owner.
func (b *ControllerBuilder) Owns(obj client.Object, preds ...predicate.Predicate) *ControllerBuilder {
	b.owns = append(b.owns, owned{obj: obj, preds: preds})
	return b
}

// WithEventFilter adds a predicate applied to every watched type.
func (b *ControllerBuilder) WithEventFilter(p predicate.Predicate) *ControllerBuilder {
	b.predicates = append(b.predicates, p)
	return b
}

// WithOptions sets controller options such as MaxConcurrentReconciles.
func (b *ControllerBuilder) WithOptions(opts controller.Options) *ControllerBuilder {
	b.options = opts
	return b
}

// Complete registers the controller with all standard middleware applied.
// Middleware chain (applied in order):
//  1. ReconcileID injection, a correlation ID per reconciliation cycle
func (b *ControllerBuilder) Complete(r reconcile.Reconciler) error {
	bldr := ctrl.NewControllerManagedBy(b.mgr).
		For(b.obj, builder.WithPredicates(b.forPreds...)).
		Named(b.name).
		WithOptions(b.options)
	for _, o := range b.owns {
		bldr = bldr.Owns(o.obj, builder.WithPredicates(o.preds...))
	}
	for _, p := range b.predicates {
		bldr = bldr.WithEventFilter(p)
	}
	return bldr.Complete(Middleware(r))
}

// Middleware returns r wrapped in the standard reconcile middleware.
func Middleware(r reconcile.Reconciler) reconcile.Reconciler {
	return &withReconcileID{inner: r}
}

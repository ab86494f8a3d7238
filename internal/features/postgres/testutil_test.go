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
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/service/drift"
	"github.com/pgplatform-operator/internal/shared/eventbus"
	"github.com/pgplatform-operator/internal/target"
)

// MockRepository is a mock implementation of PostgresCluster access for testing.
type MockRepository struct {
	GetTargetFunc    func(ctx context.Context, key types.NamespacedName) (*unstructured.Unstructured, error)
	ApplyTargetFunc  func(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, desired *target.ClusterSpec, live *unstructured.Unstructured) (*apply.Result, error)
	DeleteTargetFunc func(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, live *unstructured.Unstructured) error

	// Call tracking
	Calls []MockCall
}

// MockCall records a method call for verification.
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRepository creates a new mock repository with default implementations.
// By default no PostgresCluster exists and applying one creates it.
func NewMockRepository() *MockRepository {
	m := &MockRepository{
		Calls: make([]MockCall, 0),
	}

	m.GetTargetFunc = func(ctx context.Context, key types.NamespacedName) (*unstructured.Unstructured, error) {
		return nil, nil
	}
	m.ApplyTargetFunc = func(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, desired *target.ClusterSpec, live *unstructured.Unstructured) (*apply.Result, error) {
		obj := target.New()
		obj.SetName(owner.Name)
		obj.SetNamespace(owner.Namespace)
		return &apply.Result{
			Outcome: apply.OutcomeCreated,
			Object:  obj,
			Drift:   drift.NewResult(owner.Namespace + "/" + owner.Name),
		}, nil
	}
	m.DeleteTargetFunc = func(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, live *unstructured.Unstructured) error {
		return nil
	}

	return m
}

func (m *MockRepository) recordCall(method string, args ...interface{}) {
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetTarget implements RepositoryInterface.
func (m *MockRepository) GetTarget(ctx context.Context, key types.NamespacedName) (*unstructured.Unstructured, error) {
	m.recordCall("GetTarget", key)
	return m.GetTargetFunc(ctx, key)
}

// ApplyTarget implements RepositoryInterface.
func (m *MockRepository) ApplyTarget(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, desired *target.ClusterSpec, live *unstructured.Unstructured) (*apply.Result, error) {
	m.recordCall("ApplyTarget", owner, desired, live)
	return m.ApplyTargetFunc(ctx, owner, desired, live)
}

// DeleteTarget implements RepositoryInterface.
func (m *MockRepository) DeleteTarget(ctx context.Context, owner *dbv1alpha1.PostgresDatabase, live *unstructured.Unstructured) error {
	m.recordCall("DeleteTarget", owner, live)
	return m.DeleteTargetFunc(ctx, owner, live)
}

// WasCalled checks if a method was called.
func (m *MockRepository) WasCalled(method string) bool {
	return m.CallCount(method) > 0
}

// CallCount returns the number of times a method was called.
func (m *MockRepository) CallCount(method string) int {
	count := 0
	for _, call := range m.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// MockEventBus is a mock event bus for testing.
type MockEventBus struct {
	mu              sync.Mutex
	PublishedEvents []eventbus.Event

	// PublishErr is returned from every Publish call.
	PublishErr error
}

// NewMockEventBus creates a new mock event bus.
func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		PublishedEvents: make([]eventbus.Event, 0),
	}
}

// Publish records a published event.
func (m *MockEventBus) Publish(ctx context.Context, event eventbus.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedEvents = append(m.PublishedEvents, event)
	return m.PublishErr
}

// Subscribe is a no-op for the mock.
func (m *MockEventBus) Subscribe(eventName string, handlerName string, handler eventbus.Handler) {}

// Unsubscribe is a no-op for the mock.
func (m *MockEventBus) Unsubscribe(eventName string, handlerName string) {}

// Handlers returns an empty list for the mock.
func (m *MockEventBus) Handlers(eventName string) []eventbus.HandlerInfo {
	return nil
}

// Named returns the published events with the given name.
func (m *MockEventBus) Named(name string) []eventbus.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []eventbus.Event
	for _, e := range m.PublishedEvents {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// Ensure the mocks implement their interfaces.
var (
	_ RepositoryInterface = (*MockRepository)(nil)
	_ eventbus.Bus        = (*MockEventBus)(nil)
)

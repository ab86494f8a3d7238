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
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/types"
)

// Event is something that happened to a PostgresDatabase.
type Event interface {
	// EventName returns the unique name identifying this event type.
	EventName() string

	// EventTime returns when the event occurred.
	EventTime() time.Time

	// Database identifies the PostgresDatabase the event is about.
	Database() types.NamespacedName
}

// Handler processes events of a specific type.
// Handlers must be idempotent; a reconcile pass that is retried publishes again.
type Handler func(ctx context.Context, event Event) error

// HandlerInfo contains metadata about a registered handler.
type HandlerInfo struct {
	Name    string
	Handler Handler
}

// Bus manages event publishing and subscriptions.
type Bus interface {
	// Publish runs every handler for the event and joins their errors.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a named handler for an event type.
	Subscribe(eventName string, handlerName string, handler Handler)

	// Unsubscribe removes a handler by name.
	Unsubscribe(eventName string, handlerName string)

	// Handlers returns the registered handlers for an event type.
	Handlers(eventName string) []HandlerInfo
}

// InMemoryBus is a synchronous in-process bus. Handlers run on the publishing
// goroutine, in subscription order.
type InMemoryBus struct {
	mu         sync.RWMutex
	handlers   map[string][]HandlerInfo
	logger     logr.Logger
	middleware []Middleware
}

// BusOption configures the InMemoryBus.
type BusOption func(*InMemoryBus)

// WithLogger sets the logger for the bus.
func WithLogger(logger logr.Logger) BusOption {
	return func(b *InMemoryBus) {
		b.logger = logger
	}
}

// WithMiddleware adds middleware to the bus.
func WithMiddleware(middleware ...Middleware) BusOption {
	return func(b *InMemoryBus) {
		b.middleware = append(b.middleware, middleware...)
	}
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(opts ...BusOption) *InMemoryBus {
	bus := &InMemoryBus{
		handlers: make(map[string][]HandlerInfo),
		logger:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Publish sends an event to all registered handlers. Every handler runs even if
// an earlier one fails.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) error {
	handlers := b.Handlers(event.EventName())
	if len(handlers) == 0 {
		b.logger.V(2).Info("No handlers registered for event",
			"event", event.EventName(),
			"postgresdatabase", event.Database())
		return nil
	}

	publish := b.chain(b.run)
	return publish(ctx, event, handlers)
}

func (b *InMemoryBus) run(ctx context.Context, event Event, handlers []HandlerInfo) error {
	var errs []error
	for _, hi := range handlers {
		if err := hi.Handler(ctx, event); err != nil {
			b.logger.Error(err, "Handler failed", "event", event.EventName(), "handler", hi.Name)
			errs = append(errs, fmt.Errorf("handler %s: %w", hi.Name, err))
		}
	}
	return errors.Join(errs...)
}

// chain wraps final in the middleware, first registered outermost.
func (b *InMemoryBus) chain(final PublishFunc) PublishFunc {
	chain := final
	for i := len(b.middleware) - 1; i >= 0; i-- {
		chain = b.middleware[i](chain)
	}
	return chain
}

// Subscribe registers a handler for an event type. A second handler with the
// same name is ignored.
func (b *InMemoryBus) Subscribe(eventName string, handlerName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if slices.ContainsFunc(b.handlers[eventName], func(hi HandlerInfo) bool { return hi.Name == handlerName }) {
		b.logger.Info("Handler already registered, skipping", "event", eventName, "handler", handlerName)
		return
	}
	b.handlers[eventName] = append(b.handlers[eventName], HandlerInfo{Name: handlerName, Handler: handler})
}

// Unsubscribe removes a handler by name.
func (b *InMemoryBus) Unsubscribe(eventName string, handlerName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventName] = slices.DeleteFunc(b.handlers[eventName], func(hi HandlerInfo) bool {
		return hi.Name == handlerName
	})
}

// Handlers returns a copy of the registered handlers for an event type.
func (b *InMemoryBus) Handlers(eventName string) []HandlerInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.handlers[eventName])
}

var _ Bus = (*InMemoryBus)(nil)

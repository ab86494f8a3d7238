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
	"testing"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware(t *testing.T) {
	wrapped := LoggingMiddleware(logr.Discard())(func(ctx context.Context, event Event, handlers []HandlerInfo) error {
		return nil
	})
	assert.NoError(t, wrapped(context.Background(), NewDatabaseDeleted(orders, at), nil))
}

func TestLoggingMiddleware_WithError(t *testing.T) {
	expectedErr := errors.New("test error")
	wrapped := LoggingMiddleware(logr.Discard())(func(ctx context.Context, event Event, handlers []HandlerInfo) error {
		return expectedErr
	})
	assert.Equal(t, expectedErr, wrapped(context.Background(), NewDatabaseDeleted(orders, at), nil))
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := NewMetrics("test")
	wrapped := MetricsMiddleware(metrics)(func(ctx context.Context, event Event, handlers []HandlerInfo) error {
		if event.EventName() == EventApplyConflict {
			return errors.New("fail")
		}
		return nil
	})

	require.NoError(t, wrapped(context.Background(), NewPhaseChanged(orders, "", "Pending", "", at), nil))
	require.Error(t, wrapped(context.Background(), NewApplyConflict(orders, 1, at), nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.eventsPublished.WithLabelValues(EventPhaseChanged, "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.eventsPublished.WithLabelValues(EventApplyConflict, "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.eventDuration))
}

func TestMetrics_Register(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics("test")

	require.NoError(t, metrics.Register(registry))
	assert.Error(t, metrics.Register(registry), "registering twice must fail")
}

func TestRecoveryMiddleware(t *testing.T) {
	recovery := RecoveryMiddleware(logr.Discard())

	err := recovery(func(ctx context.Context, event Event, handlers []HandlerInfo) error {
		panic("nil map")
	})(context.Background(), NewDatabaseDeleted(orders, at), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")

	cause := errors.New("cause")
	err = recovery(func(ctx context.Context, event Event, handlers []HandlerInfo) error {
		panic(cause)
	})(context.Background(), NewDatabaseDeleted(orders, at), nil)
	assert.ErrorIs(t, err, cause)

	err = recovery(func(ctx context.Context, event Event, handlers []HandlerInfo) error {
		return nil
	})(context.Background(), NewDatabaseDeleted(orders, at), nil)
	assert.NoError(t, err)
}

func TestBus_RecoveryThroughPublish(t *testing.T) {
	bus := NewInMemoryBus(WithMiddleware(RecoveryMiddleware(logr.Discard())))
	bus.Subscribe(EventPhaseChanged, "panics", func(ctx context.Context, event Event) error {
		panic("bad subscriber")
	})

	assert.Error(t, bus.Publish(context.Background(), NewPhaseChanged(orders, "", "Ready", "", at)))
}

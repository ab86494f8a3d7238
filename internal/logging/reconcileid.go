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
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// shortIDLen is the number of hex characters kept from a reconcile ID.
const shortIDLen = 8

type reconcileIDKey struct{}

// GenerateID returns a random 8-character lowercase hex string suitable
// for log correlation.
func GenerateID() string {
	return ShortID(types.UID(uuid.NewString()))
}

// ShortID reduces a controller-runtime reconcile ID to its first eight hex
// characters. The controller-runtime log lines carry the full ID, so the short
// form still finds them. An ID too short to reduce yields "".
func ShortID(uid types.UID) string {
	s := strings.ReplaceAll(string(uid), "-", "")
	if len(s) < shortIDLen {
		return ""
	}
	return strings.ToLower(s[:shortIDLen])
}

// withReconcileID makes a short reconcile ID available to the inner reconciler
// for Event messages. When controller-runtime has not assigned an ID (tests,
// direct calls) one is generated and added to the context logger.
type withReconcileID struct {
	inner reconcile.Reconciler
}

func (w *withReconcileID) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	id := ShortID(controller.ReconcileIDFromContext(ctx))
	if id == "" {
		id = GenerateID()
		ctx = logr.NewContext(ctx, logf.FromContext(ctx).WithValues("reconcileID", id))
	}
	return w.inner.Reconcile(ContextWithID(ctx, id), req)
}

// ContextWithID returns ctx carrying the given reconcileID.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reconcileIDKey{}, id)
}

// IDFromContext retrieves the reconcileID from context, or "" if none is present.
func IDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(reconcileIDKey{}).(string); ok {
		return id
	}
	return ""
}

// EventMessage formats a Kubernetes Event message and prefixes it with the
// reconcileID, so an Event can be matched to the log lines of its cycle.
func EventMessage(ctx context.Context, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if id := IDFromContext(ctx); id != "" {
		return "[" + id + "] " + msg
	}
	return msg
}

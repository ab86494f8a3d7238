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

// Package service holds the error taxonomy shared by the validation, translation,
// apply and projection services.
package service

import (
	"errors"
	"fmt"
	"strings"
)

// Common service errors
var (
	// ErrNotOwned indicates the target resource exists but is controlled by someone else
	ErrNotOwned = errors.New("target resource is not owned by this database")

	// ErrConflict indicates an optimistic-concurrency conflict on write
	ErrConflict = errors.New("conflicting write")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// validationError is implemented by every error that rejects the developer's input.
type validationError interface {
	error
	Field() string
}

// ValidationError is a generic rejection of a single field.
type ValidationError struct {
	FieldPath string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.FieldPath, e.Message)
}

// Field returns the offending field path.
func (e *ValidationError) Field() string { return e.FieldPath }

// UnsupportedVersionError rejects a version missing from the platform image table.
type UnsupportedVersionError struct {
	Version   int32
	Supported []int32
}

func (e *UnsupportedVersionError) Error() string {
	supported := make([]string, len(e.Supported))
	for i, v := range e.Supported {
		supported[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("spec.version: unsupported version %d (supported: %s)", e.Version, strings.Join(supported, ", "))
}

func (e *UnsupportedVersionError) Field() string { return "spec.version" }

// OutOfRangeError rejects a numeric field outside [Min, Max].
type OutOfRangeError struct {
	FieldPath string
	Value     int64
	Min       int64
	Max       int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %d is out of range [%d, %d]", e.FieldPath, e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Field() string { return e.FieldPath }

// InvalidQuantityError rejects a field that must be a positive quantity.
type InvalidQuantityError struct {
	FieldPath string
	Value     string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("%s: %q is not a positive quantity", e.FieldPath, e.Value)
}

func (e *InvalidQuantityError) Field() string { return e.FieldPath }

// ImmutableFieldError rejects a change to a field that cannot change after creation.
type ImmutableFieldError struct {
	FieldPath string
	Old       string
	New       string
	Reason    string
}

func (e *ImmutableFieldError) Error() string {
	msg := fmt.Sprintf("%s: cannot change from %s to %s", e.FieldPath, e.Old, e.New)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ImmutableFieldError) Field() string { return e.FieldPath }

// ConflictError wraps an optimistic-concurrency failure with the resource that lost the race.
type ConflictError struct {
	Resource string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict writing %s: %v", e.Resource, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrConflict) match any ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// TimeoutError wraps timeout-related errors with operation context.
type TimeoutError struct {
	Operation string
	Resource  string
	Timeout   string
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %s on %s timed out after %s: %v", e.Operation, e.Resource, e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation, resource, timeout string, err error) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Resource:  resource,
		Timeout:   timeout,
		Err:       err,
	}
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.Is(err, ErrTimeout) || errors.As(err, &timeoutErr)
}

// IsValidationError checks if an error rejects the developer's input.
func IsValidationError(err error) bool {
	var valErr validationError
	return errors.As(err, &valErr)
}

// IsImmutableFieldError checks if an error is (or joins) an ImmutableFieldError.
func IsImmutableFieldError(err error) bool {
	var immErr *ImmutableFieldError
	return errors.As(err, &immErr)
}

// IsConflict checks if an error is an optimistic-concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotOwned checks if an error reports a target controlled by someone else.
func IsNotOwned(err error) bool {
	return errors.Is(err, ErrNotOwned)
}

// ValidationReason returns a short, stable reason for a validation error, suitable
// for metrics labels and condition reasons.
func ValidationReason(err error) string {
	var (
		versionErr  *UnsupportedVersionError
		rangeErr    *OutOfRangeError
		quantityErr *InvalidQuantityError
		immErr      *ImmutableFieldError
	)
	switch {
	case errors.As(err, &immErr):
		return "ImmutableField"
	case errors.As(err, &versionErr):
		return "UnsupportedVersion"
	case errors.As(err, &rangeErr):
		return "OutOfRange"
	case errors.As(err, &quantityErr):
		return "InvalidQuantity"
	default:
		return "Invalid"
	}
}

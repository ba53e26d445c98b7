// Package apperr defines the error taxonomy shared by the scheduling engine.
//
// It re-exports github.com/cockroachdb/errors so callers get stack traces,
// hints and errors.Is/As through a single import.
package apperr

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	Is          = crdb.Is
	As          = crdb.As
	GetAllHints = crdb.GetAllHints
)

// Sentinels. Match them with Is.
var (
	ErrValidation        = crdb.New("validation failed")
	ErrNotFound          = crdb.New("not found")
	ErrTimeZone          = crdb.New("time zone resolution failed")
	ErrInvalidTransition = crdb.New("invalid status transition")
	ErrUnboundedPreview  = crdb.New("preview requires both a horizon and a count bound")
)

// ValidationError names the offending field of a rejected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation creates a ValidationError for field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Validationf is Validation with a formatted reason.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity, e.g. NotFound("job series", 42).
func NotFound(entity string, id int64) error {
	return crdb.Wrapf(ErrNotFound, "%s %d", entity, id)
}

// TimeZoneError is fatal for the generation of the series that carries the zone.
type TimeZoneError struct {
	Name string
	Err  error
}

func (e *TimeZoneError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unknown time zone %q", e.Name)
	}
	return fmt.Sprintf("unknown time zone %q: %v", e.Name, e.Err)
}

func (e *TimeZoneError) Unwrap() error { return e.Err }

func (e *TimeZoneError) Is(target error) bool {
	return target == ErrTimeZone
}

// TimeZone wraps a zone lookup failure.
func TimeZone(name string, cause error) error {
	return crdb.WithHint(&TimeZoneError{Name: name, Err: cause},
		"use an IANA zone name such as America/New_York")
}

// InvalidTransition reports an occurrence status change that is not allowed.
func InvalidTransition(from, to string) error {
	return crdb.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
}

// FieldOf returns the offending field of a validation error, or "".
func FieldOf(err error) string {
	var ve *ValidationError
	if crdb.As(err, &ve) {
		return ve.Field
	}
	return ""
}

// Package util provides logging, the device failure taxonomy and small helpers
// shared across edgecheck packages.
package util

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for per-device failures
var (
	ErrAuthentication = errors.New("device rejected the credentials")
	ErrUnreachable    = errors.New("device unreachable")
	ErrParseAnomaly   = errors.New("fact missing or malformed")
	ErrUnexpected     = errors.New("unexpected failure")
)

// FailureKind classifies an error caught at the per-device boundary.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureAuthentication FailureKind = "authentication"
	FailureUnreachable    FailureKind = "unreachable"
	FailureParseAnomaly   FailureKind = "parse_anomaly"
	FailureUnexpected     FailureKind = "unexpected"
)

// Classify maps an error onto the failure taxonomy. Context deadline errors
// count as unreachable: the collaborator's own timeout expired.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrAuthentication):
		return FailureAuthentication
	case errors.Is(err, ErrUnreachable), errors.Is(err, context.DeadlineExceeded):
		return FailureUnreachable
	case errors.Is(err, ErrParseAnomaly):
		return FailureParseAnomaly
	default:
		return FailureUnexpected
	}
}

// DeviceError wraps a failure with the device and operation it happened in.
type DeviceError struct {
	Device string
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates a device error
func NewDeviceError(device, op string, err error) *DeviceError {
	return &DeviceError{Device: device, Op: op, Err: err}
}

// ParseAnomalyError records a fact that could not be extracted from command output.
type ParseAnomalyError struct {
	Fact   string
	Detail string
}

func (e *ParseAnomalyError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("fact %s missing or malformed", e.Fact)
	}
	return fmt.Sprintf("fact %s missing or malformed (%s)", e.Fact, e.Detail)
}

func (e *ParseAnomalyError) Unwrap() error {
	return ErrParseAnomaly
}

// NewParseAnomaly creates a parse anomaly error
func NewParseAnomaly(fact, detail string) *ParseAnomalyError {
	return &ParseAnomalyError{Fact: fact, Detail: detail}
}

// RecoveredPanic converts a recovered panic value into an ErrUnexpected error.
func RecoveredPanic(v interface{}) error {
	return fmt.Errorf("%w: panic: %v", ErrUnexpected, v)
}

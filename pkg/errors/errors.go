// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError is returned when the desired floppy configuration is
// malformed. It is always raised before any call to the platform is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError returns true if the error or a nested error is a
// ValidationError.
func IsValidationError(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// ConnectivityError wraps a session or transport failure talking to vCenter.
// It is not retried locally and is surfaced to the caller as-is.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e ConnectivityError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e ConnectivityError) Unwrap() error {
	return e.Err
}

// IsConnectivityError returns true if the error or a nested error is a
// ConnectivityError.
func IsConnectivityError(err error) bool {
	var target ConnectivityError
	return errors.As(err, &target)
}

// ReconfigurationError is returned when the platform rejected or failed a
// device-change request. Message preserves the platform's fault message
// verbatim for operator diagnosis.
type ReconfigurationError struct {
	Message string
}

func (e ReconfigurationError) Error() string {
	if e.Message == "" {
		return "reconfigure task failed"
	}
	return e.Message
}

// IsReconfigurationError returns true if the error or a nested error is a
// ReconfigurationError.
func IsReconfigurationError(err error) bool {
	var target ReconfigurationError
	return errors.As(err, &target)
}

// TimeoutError is returned when a submitted task did not reach a terminal
// state within the wait bound. The real outcome of the task is unknown and
// must be treated as indeterminate, not as a failure.
type TimeoutError struct {
	Timeout time.Duration
}

func (e TimeoutError) Error() string {
	if e.Timeout == 0 {
		return "timed out waiting for task to complete"
	}
	return fmt.Sprintf("task did not complete within %s", e.Timeout)
}

// IsTimeoutError returns true if the error or a nested error is a
// TimeoutError.
func IsTimeoutError(err error) bool {
	var target TimeoutError
	return errors.As(err, &target)
}

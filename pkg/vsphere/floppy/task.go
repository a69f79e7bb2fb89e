// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package floppy

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	pkgerr "github.com/helviojunior/vmware-guest-floppy/pkg/errors"
)

const (
	// DefaultPollInterval is how often a pending task is re-read.
	DefaultPollInterval = 1 * time.Second

	// DefaultWaitTimeout bounds how long one pass waits for a submitted task
	// to reach a terminal state.
	DefaultWaitTimeout = 5 * time.Minute
)

// errTaskPending marks a poll that found the task still queued or running.
var errTaskPending = errors.New("task has not reached a terminal state")

// WaitForTask polls the given task at a fixed interval until it leaves the
// queued/running states or the timeout elapses. A task error is translated to
// a ReconfigurationError carrying the platform's fault message verbatim. On
// timeout a TimeoutError is returned: the real outcome of the task is unknown
// and the submitted operation is not revoked.
func WaitForTask(
	ctx context.Context,
	vimClient *vim25.Client,
	taskRef vimtypes.ManagedObjectReference,
	pollInterval, timeout time.Duration) error {

	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	log := logr.FromContextOrDiscard(ctx)
	pc := property.DefaultCollector(vimClient)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	poll := func() error {
		var t mo.Task
		if err := pc.RetrieveOne(waitCtx, taskRef, []string{"info"}, &t); err != nil {
			return backoff.Permanent(pkgerr.ConnectivityError{Op: "reading task state", Err: err})
		}

		switch t.Info.State {
		case vimtypes.TaskInfoStateSuccess:
			return nil
		case vimtypes.TaskInfoStateError:
			return backoff.Permanent(taskError(t.Info))
		default:
			// Queued or running.
			log.V(5).Info("Task still pending", "task", taskRef.Value, "state", t.Info.State)
			return errTaskPending
		}
	}

	err := backoff.Retry(poll, backoff.WithContext(backoff.NewConstantBackOff(pollInterval), waitCtx))
	if err == nil {
		return nil
	}
	if errors.Is(err, errTaskPending) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerr.TimeoutError{Timeout: timeout}
	}
	return err
}

// taskError maps a failed task to a ReconfigurationError, preserving the
// platform's localized fault message.
func taskError(info vimtypes.TaskInfo) error {
	if info.Error == nil {
		return pkgerr.ReconfigurationError{}
	}
	return pkgerr.ReconfigurationError{Message: info.Error.LocalizedMessage}
}

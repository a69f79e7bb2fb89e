// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package floppy

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/vmware/govmomi/object"

	pkgerr "github.com/helviojunior/vmware-guest-floppy/pkg/errors"
)

// ReconcileOptions tunes one reconciliation pass.
type ReconcileOptions struct {
	// DryRun resolves the required operation and reports it without
	// submitting any change to the platform.
	DryRun bool

	Apply ApplyOptions
}

// Result reports the outcome of one reconciliation pass.
type Result struct {
	// Changed is true iff the resolved operation was not a no-op and, unless
	// this was a dry run, completed successfully.
	Changed bool

	// Operation is the operation that was resolved (and, outside of a dry
	// run, applied).
	Operation OperationKind
}

// Reconcile performs one full read-decide-apply cycle for the given VM and
// desired state. The decision is made against a single device-inventory
// snapshot; no optimistic-concurrency check is performed, so concurrent
// reconciliations of the same VM can race.
func Reconcile(
	ctx context.Context,
	vm *object.VirtualMachine,
	desired Config,
	opts ReconcileOptions) (Result, error) {

	if err := desired.Validate(); err != nil {
		return Result{}, err
	}

	log := logr.FromContextOrDiscard(ctx)

	template, err := isTemplate(ctx, vm)
	if err != nil {
		return Result{}, err
	}
	if template {
		return Result{}, pkgerr.ValidationError{
			Field:   "vm",
			Message: "changing floppy settings on a template is not supported",
		}
	}

	current, err := Read(ctx, vm)
	if err != nil {
		return Result{}, err
	}

	op := Resolve(desired, current)
	log.V(4).Info("Resolved floppy operation",
		"operation", op.Kind,
		"exists", current.Exists,
		"backing", current.Backing)

	result := Result{
		Changed:   op.Kind != OpNone,
		Operation: op.Kind,
	}

	if opts.DryRun || op.Kind == OpNone {
		return result, nil
	}

	if err := Apply(ctx, vm, op, opts.Apply); err != nil {
		return Result{Operation: op.Kind}, err
	}

	return result, nil
}

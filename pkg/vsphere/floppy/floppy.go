// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package floppy reconciles the floppy drive of a single virtual machine with
// a declared desired state. One reconciliation pass performs a read of the
// VM's device inventory, a pure resolve step that decides the required device
// change, and at most one reconfigure call that is waited on until the
// platform task reaches a terminal state.
package floppy

import (
	"fmt"

	pkgerr "github.com/helviojunior/vmware-guest-floppy/pkg/errors"
)

// State declares whether the VM should have a floppy drive at all.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// BackingKind is the data source behind the floppy drive.
type BackingKind string

const (
	// BackingNone is a floppy drive with no media: the device is present but
	// disconnected, with a client-remote backing.
	BackingNone BackingKind = "none"

	// BackingClient redirects the drive to the client's physical device.
	BackingClient BackingKind = "client"

	// BackingImage backs the drive with a .flp image file on a datastore.
	BackingImage BackingKind = "flp"
)

// Config is the desired floppy state for one reconciliation pass.
type Config struct {
	State State

	// Type is only meaningful when State is StatePresent.
	Type BackingKind

	// ImageFile is the datastore path to the flp file to use, in the form of
	// "[datastore1] path/to/file.flp". Required iff Type is BackingImage.
	ImageFile string

	// StartConnected requests the drive be connected at power-on. Only
	// honored for BackingImage: a client drive is always attach-on-boot and a
	// none drive is never connected, matching how vSphere itself models the
	// two.
	StartConnected bool
}

// Validate checks the shape of the desired config before any platform call is
// made.
func (c Config) Validate() error {
	switch c.State {
	case StatePresent, StateAbsent:
	default:
		return pkgerr.ValidationError{
			Field:   "state",
			Message: fmt.Sprintf("%q is not one of present, absent", c.State),
		}
	}

	if c.State == StateAbsent {
		return nil
	}

	switch c.Type {
	case BackingNone, BackingClient, BackingImage:
	default:
		return pkgerr.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("%q is not one of none, client, flp", c.Type),
		}
	}

	if c.Type == BackingImage && c.ImageFile == "" {
		return pkgerr.ValidationError{
			Field:   "image_file",
			Message: "required when type is flp",
		}
	}
	if c.Type != BackingImage && c.ImageFile != "" {
		return pkgerr.ValidationError{
			Field:   "image_file",
			Message: "only valid when type is flp",
		}
	}

	return nil
}

// CurrentFloppy is a point-in-time projection of the VM's floppy drive. It is
// read fresh on every pass and never cached.
type CurrentFloppy struct {
	Exists bool

	// DeviceKey is the platform-assigned key of the existing drive. Only
	// meaningful when Exists is true.
	DeviceKey int32

	Backing   BackingKind
	ImageFile string
	Connected bool

	// ControllerKey is the key of the VM's SIO controller, or 0 when the VM
	// has none. An Add operation needs it to place the new drive.
	ControllerKey int32
}

// OperationKind enumerates the possible outcomes of a resolve step.
type OperationKind string

const (
	OpNone   OperationKind = "noop"
	OpAdd    OperationKind = "add"
	OpEdit   OperationKind = "edit"
	OpRemove OperationKind = "remove"
)

// DeviceSpec is the complete target descriptor for the floppy drive. Edits
// always carry the full spec; the platform call does not support partial
// edits.
type DeviceSpec struct {
	Backing   BackingKind
	ImageFile string
	Connected bool
}

// Operation is the sole handoff artifact between the resolve and apply steps.
// DeviceKey is set for edits and removes, ControllerKey for adds and edits.
type Operation struct {
	Kind          OperationKind
	DeviceKey     int32
	ControllerKey int32
	Spec          DeviceSpec
}

// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package floppy

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/vmware/govmomi/object"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	pkgerr "github.com/helviojunior/vmware-guest-floppy/pkg/errors"
)

// Device keys for devices added in the same reconfigure call. Negative keys
// are placeholders the platform rewrites on creation; the controller key only
// has to be unique within the request so the new drive can reference it.
const (
	newControllerKey int32 = -101
	newDeviceKey     int32 = -102
)

// ApplyOptions bounds the wait for the reconfigure task.
type ApplyOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// Apply submits the resolved operation as a single hardware reconfiguration
// call and waits for the resulting task to reach a terminal state. OpNone
// returns immediately without contacting the platform. The submission is
// never retried here: a reconfigure is not guaranteed idempotent to resubmit
// blindly while a prior request may still be landing.
func Apply(
	ctx context.Context,
	vm *object.VirtualMachine,
	op Operation,
	opts ApplyOptions) error {

	if op.Kind == OpNone {
		return nil
	}

	log := logr.FromContextOrDiscard(ctx)

	configSpec := vimtypes.VirtualMachineConfigSpec{
		DeviceChange: deviceChanges(op),
	}

	log.Info("Reconfiguring VM floppy drive", "operation", op.Kind)

	task, err := vm.Reconfigure(ctx, configSpec)
	if err != nil {
		return pkgerr.ConnectivityError{Op: "submitting reconfigure", Err: err}
	}

	return WaitForTask(ctx, vm.Client(), task.Reference(), opts.PollInterval, opts.Timeout)
}

func deviceChanges(op Operation) []vimtypes.BaseVirtualDeviceConfigSpec {
	switch op.Kind {
	case OpAdd:
		var changes []vimtypes.BaseVirtualDeviceConfigSpec

		controllerKey := op.ControllerKey
		if controllerKey == 0 {
			// The VM has no SIO controller; add one in the same request.
			controllerKey = newControllerKey
			changes = append(changes, &vimtypes.VirtualDeviceConfigSpec{
				Operation: vimtypes.VirtualDeviceConfigSpecOperationAdd,
				Device: &vimtypes.VirtualSIOController{
					VirtualController: vimtypes.VirtualController{
						VirtualDevice: vimtypes.VirtualDevice{Key: controllerKey},
						BusNumber:     0,
					},
				},
			})
		}

		device := newFloppyDevice(op.Spec)
		device.Key = newDeviceKey
		device.ControllerKey = controllerKey

		return append(changes, &vimtypes.VirtualDeviceConfigSpec{
			Operation: vimtypes.VirtualDeviceConfigSpecOperationAdd,
			Device:    device,
		})

	case OpEdit:
		device := newFloppyDevice(op.Spec)
		device.Key = op.DeviceKey
		device.ControllerKey = op.ControllerKey

		return []vimtypes.BaseVirtualDeviceConfigSpec{
			&vimtypes.VirtualDeviceConfigSpec{
				Operation: vimtypes.VirtualDeviceConfigSpecOperationEdit,
				Device:    device,
			},
		}

	case OpRemove:
		return []vimtypes.BaseVirtualDeviceConfigSpec{
			&vimtypes.VirtualDeviceConfigSpec{
				Operation: vimtypes.VirtualDeviceConfigSpecOperationRemove,
				Device: &vimtypes.VirtualFloppy{
					VirtualDevice: vimtypes.VirtualDevice{Key: op.DeviceKey},
				},
			},
		}
	}

	return nil
}

// newFloppyDevice builds the complete device descriptor for the given spec.
// Guest control is always allowed so the drive can be (dis)connected from
// inside the guest, matching the platform's defaults for removable media.
func newFloppyDevice(spec DeviceSpec) *vimtypes.VirtualFloppy {
	var backing vimtypes.BaseVirtualDeviceBackingInfo
	if spec.Backing == BackingImage {
		backing = &vimtypes.VirtualFloppyImageBackingInfo{
			VirtualDeviceFileBackingInfo: vimtypes.VirtualDeviceFileBackingInfo{
				FileName: spec.ImageFile,
			},
		}
	} else {
		// DeviceName stays empty: the platform does not require a host device
		// path for a remote-backed drive.
		backing = &vimtypes.VirtualFloppyRemoteDeviceBackingInfo{}
	}

	return &vimtypes.VirtualFloppy{
		VirtualDevice: vimtypes.VirtualDevice{
			Backing: backing,
			Connectable: &vimtypes.VirtualDeviceConnectInfo{
				AllowGuestControl: true,
				StartConnected:    spec.Connected,
				Connected:         spec.Connected,
			},
		},
	}
}

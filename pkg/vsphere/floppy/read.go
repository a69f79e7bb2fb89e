// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package floppy

import (
	"context"
	"sort"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	pkgerr "github.com/helviojunior/vmware-guest-floppy/pkg/errors"
	"github.com/helviojunior/vmware-guest-floppy/pkg/util"
)

// Read scans the VM's device inventory and returns the current floppy drive,
// if any. The projection mirrors how the platform models the three backing
// kinds: an image backing is BackingImage, a remote backing that starts
// connected is BackingClient, and a remote backing that does not is
// BackingNone.
//
// A VM has at most one floppy slot in practice. Should the inventory contain
// more than one drive, the one with the lowest device key is selected; this
// keeps the pass deterministic but is a defensive choice, not a guarantee.
func Read(ctx context.Context, vm *object.VirtualMachine) (CurrentFloppy, error) {
	devices, err := vm.Device(ctx)
	if err != nil {
		return CurrentFloppy{}, pkgerr.ConnectivityError{Op: "reading device inventory", Err: err}
	}

	var cur CurrentFloppy

	if sio := util.SelectDevicesByType[*vimtypes.VirtualSIOController](devices); len(sio) > 0 {
		cur.ControllerKey = sio[0].Key
	}

	floppies := util.SelectDevicesByType[*vimtypes.VirtualFloppy](devices)
	if len(floppies) == 0 {
		return cur, nil
	}
	sort.Slice(floppies, func(i, j int) bool {
		return floppies[i].Key < floppies[j].Key
	})

	device := floppies[0]
	cur.Exists = true
	cur.DeviceKey = device.Key

	startConnected := device.Connectable != nil && device.Connectable.StartConnected

	switch backing := device.Backing.(type) {
	case *vimtypes.VirtualFloppyImageBackingInfo:
		cur.Backing = BackingImage
		cur.ImageFile = backing.FileName
		cur.Connected = startConnected
	default:
		// Remote and host-device backings are both the passthrough family.
		// The platform has no dedicated "no media" backing for floppy drives,
		// so a disconnected passthrough drive reads as BackingNone.
		if startConnected {
			cur.Backing = BackingClient
			cur.Connected = true
		} else {
			cur.Backing = BackingNone
		}
	}

	return cur, nil
}

// isTemplate reports whether the VM is a template. Reconfiguring a template's
// removable media is not supported by the platform.
func isTemplate(ctx context.Context, vm *object.VirtualMachine) (bool, error) {
	var moVM mo.VirtualMachine
	if err := vm.Properties(ctx, vm.Reference(), []string{"config.template"}, &moVM); err != nil {
		return false, pkgerr.ConnectivityError{Op: "reading VM config", Err: err}
	}
	return moVM.Config != nil && moVM.Config.Template, nil
}

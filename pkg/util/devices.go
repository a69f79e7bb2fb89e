// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package util

import (
	vimtypes "github.com/vmware/govmomi/vim25/types"
)

// SelectDevicesByType returns a slice of the devices that are of type T.
func SelectDevicesByType[T vimtypes.BaseVirtualDevice](
	devices []vimtypes.BaseVirtualDevice,
) []T {

	var selectedDevices []T
	for i := range devices {
		if t, ok := devices[i].(T); ok {
			selectedDevices = append(selectedDevices, t)
		}
	}
	return selectedDevices
}

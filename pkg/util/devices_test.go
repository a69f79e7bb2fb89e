// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package util_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	vimtypes "github.com/vmware/govmomi/vim25/types"

	"github.com/helviojunior/vmware-guest-floppy/pkg/util"
)

var _ = Describe("SelectDevicesByType", func() {

	devices := []vimtypes.BaseVirtualDevice{
		&vimtypes.VirtualSIOController{
			VirtualController: vimtypes.VirtualController{
				VirtualDevice: vimtypes.VirtualDevice{Key: 400},
			},
		},
		&vimtypes.VirtualFloppy{
			VirtualDevice: vimtypes.VirtualDevice{
				Key:     8000,
				Backing: &vimtypes.VirtualFloppyRemoteDeviceBackingInfo{},
			},
		},
		&vimtypes.VirtualFloppy{
			VirtualDevice: vimtypes.VirtualDevice{
				Key: 8001,
				Backing: &vimtypes.VirtualFloppyImageBackingInfo{
					VirtualDeviceFileBackingInfo: vimtypes.VirtualDeviceFileBackingInfo{
						FileName: "[datastore1] a.flp",
					},
				},
			},
		},
	}

	It("selects devices of the requested type", func() {
		floppies := util.SelectDevicesByType[*vimtypes.VirtualFloppy](devices)
		Expect(floppies).To(HaveLen(2))

		controllers := util.SelectDevicesByType[*vimtypes.VirtualSIOController](devices)
		Expect(controllers).To(HaveLen(1))
		Expect(controllers[0].Key).To(Equal(int32(400)))
	})

	It("returns nothing when no device matches", func() {
		cdroms := util.SelectDevicesByType[*vimtypes.VirtualCdrom](devices)
		Expect(cdroms).To(BeEmpty())
	})
})

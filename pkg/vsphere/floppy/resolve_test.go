// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package floppy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	pkgerr "github.com/helviojunior/vmware-guest-floppy/pkg/errors"
	"github.com/helviojunior/vmware-guest-floppy/pkg/vsphere/floppy"
)

var _ = Describe("Config Validate", func() {

	DescribeTable("invalid configs",
		func(cfg floppy.Config, expField string) {
			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(pkgerr.IsValidationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(expField))
		},

		Entry(
			"empty state",
			floppy.Config{},
			"state",
		),

		Entry(
			"unknown type",
			floppy.Config{State: floppy.StatePresent, Type: "cdrom"},
			"type",
		),

		Entry(
			"flp without image file",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingImage},
			"image_file",
		),

		Entry(
			"flp with empty image file",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: ""},
			"image_file",
		),

		Entry(
			"image file with non-flp type",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingClient, ImageFile: "[ds] a.flp"},
			"image_file",
		),
	)

	DescribeTable("valid configs",
		func(cfg floppy.Config) {
			Expect(cfg.Validate()).To(Succeed())
		},

		Entry(
			"absent",
			floppy.Config{State: floppy.StateAbsent},
		),

		Entry(
			"absent ignores type",
			floppy.Config{State: floppy.StateAbsent, Type: "bogus"},
		),

		Entry(
			"present none",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingNone},
		),

		Entry(
			"present client",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingClient},
		),

		Entry(
			"present flp",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: "[datastore1] base_new.flp"},
		),
	)
})

var _ = Describe("Resolve", func() {

	const imagePath = "[datastore1] base_new.flp"

	DescribeTable("decision table",
		func(desired floppy.Config, current floppy.CurrentFloppy, expected floppy.Operation) {
			Expect(floppy.Resolve(desired, current)).To(Equal(expected))
		},

		Entry(
			"absent and no drive is a no-op",
			floppy.Config{State: floppy.StateAbsent},
			floppy.CurrentFloppy{},
			floppy.Operation{Kind: floppy.OpNone},
		),

		Entry(
			"absent removes an existing drive",
			floppy.Config{State: floppy.StateAbsent},
			floppy.CurrentFloppy{Exists: true, DeviceKey: 3001, Backing: floppy.BackingClient, Connected: true},
			floppy.Operation{Kind: floppy.OpRemove, DeviceKey: 3001},
		),

		Entry(
			"present none adds a disconnected drive",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingNone},
			floppy.CurrentFloppy{ControllerKey: 400},
			floppy.Operation{
				Kind:          floppy.OpAdd,
				ControllerKey: 400,
				Spec:          floppy.DeviceSpec{Backing: floppy.BackingNone},
			},
		),

		Entry(
			"present flp adds an image-backed drive",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: imagePath, StartConnected: true},
			floppy.CurrentFloppy{ControllerKey: 400},
			floppy.Operation{
				Kind:          floppy.OpAdd,
				ControllerKey: 400,
				Spec:          floppy.DeviceSpec{Backing: floppy.BackingImage, ImageFile: imagePath, Connected: true},
			},
		),

		Entry(
			"matching flp drive is a no-op regardless of device key",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: imagePath, StartConnected: true},
			floppy.CurrentFloppy{
				Exists: true, DeviceKey: 8001, ControllerKey: 400,
				Backing: floppy.BackingImage, ImageFile: imagePath, Connected: true,
			},
			floppy.Operation{Kind: floppy.OpNone},
		),

		Entry(
			"matching client drive is a no-op",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingClient},
			floppy.CurrentFloppy{
				Exists: true, DeviceKey: 8001, ControllerKey: 400,
				Backing: floppy.BackingClient, Connected: true,
			},
			floppy.Operation{Kind: floppy.OpNone},
		),

		Entry(
			"client drive replaced with image backing is an edit with the full spec",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: imagePath, StartConnected: true},
			floppy.CurrentFloppy{
				Exists: true, DeviceKey: 8001, ControllerKey: 400,
				Backing: floppy.BackingClient, Connected: true,
			},
			floppy.Operation{
				Kind:          floppy.OpEdit,
				DeviceKey:     8001,
				ControllerKey: 400,
				Spec:          floppy.DeviceSpec{Backing: floppy.BackingImage, ImageFile: imagePath, Connected: true},
			},
		),

		Entry(
			"image path comparison is exact-string",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: "[datastore1] base_new.flp"},
			floppy.CurrentFloppy{
				Exists: true, DeviceKey: 8001, ControllerKey: 400,
				Backing: floppy.BackingImage, ImageFile: "[datastore1]base_new.flp",
			},
			floppy.Operation{
				Kind:          floppy.OpEdit,
				DeviceKey:     8001,
				ControllerKey: 400,
				Spec:          floppy.DeviceSpec{Backing: floppy.BackingImage, ImageFile: "[datastore1] base_new.flp"},
			},
		),

		Entry(
			"connection drift on an image drive is an edit",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: imagePath, StartConnected: true},
			floppy.CurrentFloppy{
				Exists: true, DeviceKey: 8001, ControllerKey: 400,
				Backing: floppy.BackingImage, ImageFile: imagePath, Connected: false,
			},
			floppy.Operation{
				Kind:          floppy.OpEdit,
				DeviceKey:     8001,
				ControllerKey: 400,
				Spec:          floppy.DeviceSpec{Backing: floppy.BackingImage, ImageFile: imagePath, Connected: true},
			},
		),

		Entry(
			"none over an existing client drive is an edit",
			floppy.Config{State: floppy.StatePresent, Type: floppy.BackingNone},
			floppy.CurrentFloppy{
				Exists: true, DeviceKey: 8001, ControllerKey: 400,
				Backing: floppy.BackingClient, Connected: true,
			},
			floppy.Operation{
				Kind:          floppy.OpEdit,
				DeviceKey:     8001,
				ControllerKey: 400,
				Spec:          floppy.DeviceSpec{Backing: floppy.BackingNone},
			},
		),
	)

	It("is idempotent: resolving against a drive that matches the resolved spec is a no-op", func() {
		configs := []floppy.Config{
			{State: floppy.StatePresent, Type: floppy.BackingNone},
			{State: floppy.StatePresent, Type: floppy.BackingClient},
			{State: floppy.StatePresent, Type: floppy.BackingClient, StartConnected: true},
			{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: imagePath},
			{State: floppy.StatePresent, Type: floppy.BackingImage, ImageFile: imagePath, StartConnected: true},
		}
		for _, desired := range configs {
			op := floppy.Resolve(desired, floppy.CurrentFloppy{ControllerKey: 400})
			Expect(op.Kind).To(Equal(floppy.OpAdd))

			// Project the just-applied spec as the next pass would read it.
			current := floppy.CurrentFloppy{
				Exists:        true,
				DeviceKey:     8001,
				ControllerKey: 400,
				Backing:       op.Spec.Backing,
				ImageFile:     op.Spec.ImageFile,
				Connected:     op.Spec.Connected,
			}
			Expect(floppy.Resolve(desired, current).Kind).To(Equal(floppy.OpNone),
				"config %+v should converge after one add", desired)
		}
	})
})

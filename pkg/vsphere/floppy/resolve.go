// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package floppy

// Resolve decides the operation required to bring the current floppy drive to
// the desired state. It is a pure function of its two inputs and performs no
// platform calls.
//
// The decision table, evaluated in order:
//
//  1. State absent, no drive       -> OpNone
//  2. State absent, drive exists   -> OpRemove
//  3. State present, no drive      -> OpAdd
//  4. State present, drive exists  -> OpNone when backing kind, image file
//     (image-backed only), and connection state all match, else OpEdit with
//     the complete target spec.
//
// Image file comparison is exact-string: no datastore path normalization is
// performed, so callers must supply the same datastore-qualified form the
// platform reports back.
func Resolve(desired Config, current CurrentFloppy) Operation {
	if desired.State == StateAbsent {
		if !current.Exists {
			return Operation{Kind: OpNone}
		}
		return Operation{Kind: OpRemove, DeviceKey: current.DeviceKey}
	}

	spec := deviceSpecFor(desired)

	if !current.Exists {
		return Operation{
			Kind:          OpAdd,
			ControllerKey: current.ControllerKey,
			Spec:          spec,
		}
	}

	if specMatches(spec, current) {
		return Operation{Kind: OpNone}
	}

	return Operation{
		Kind:          OpEdit,
		DeviceKey:     current.DeviceKey,
		ControllerKey: current.ControllerKey,
		Spec:          spec,
	}
}

// deviceSpecFor builds the complete target descriptor from the desired
// config. The connection flag is normalized per backing kind: a none drive is
// never connected and a client drive always starts connected, since the
// platform distinguishes the two solely by that flag.
func deviceSpecFor(desired Config) DeviceSpec {
	spec := DeviceSpec{
		Backing:   desired.Type,
		Connected: desired.StartConnected,
	}
	switch desired.Type {
	case BackingNone:
		spec.Connected = false
	case BackingClient:
		spec.Connected = true
	case BackingImage:
		spec.ImageFile = desired.ImageFile
	}
	return spec
}

func specMatches(spec DeviceSpec, current CurrentFloppy) bool {
	if current.Backing != spec.Backing {
		return false
	}
	if spec.Backing == BackingImage && current.ImageFile != spec.ImageFile {
		return false
	}
	return current.Connected == spec.Connected
}

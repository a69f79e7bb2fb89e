// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vcenter

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/vmware/govmomi/fault"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	vimtypes "github.com/vmware/govmomi/vim25/types"

	pkgerr "github.com/helviojunior/vmware-guest-floppy/pkg/errors"
)

// ErrVMNotFound is returned when no virtual machine matches the target.
var ErrVMNotFound = errors.New("vm not found")

// NameMatch selects which VM to use when multiple inventory entries share the
// same name.
type NameMatch string

const (
	NameMatchFirst NameMatch = "first"
	NameMatchLast  NameMatch = "last"
)

// Target identifies the virtual machine to operate on. Exactly one of Name,
// UUID, or MoID must be set. UUID may be either the instance UUID or the BIOS
// UUID; both are tried, in that order.
type Target struct {
	Name      string
	UUID      string
	MoID      string
	NameMatch NameMatch
}

func (t Target) Validate() error {
	set := 0
	for _, v := range []string{t.Name, t.UUID, t.MoID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return pkgerr.ValidationError{
			Field:   "vm",
			Message: "exactly one of name, uuid, or moid is required",
		}
	}
	if t.UUID != "" {
		if _, err := uuid.Parse(t.UUID); err != nil {
			return pkgerr.ValidationError{
				Field:   "uuid",
				Message: fmt.Sprintf("%q is not a valid UUID", t.UUID),
			}
		}
	}
	switch t.NameMatch {
	case "", NameMatchFirst, NameMatchLast:
	default:
		return pkgerr.ValidationError{
			Field:   "name_match",
			Message: fmt.Sprintf("%q is not one of first, last", t.NameMatch),
		}
	}
	return nil
}

// GetVirtualMachine gets the VM from VC, either by name, UUID (instance or
// BIOS), or MoID. Returns ErrVMNotFound when the target does not resolve to
// any VM.
func GetVirtualMachine(
	ctx context.Context,
	vimClient *vim25.Client,
	finder *find.Finder,
	datacenter *object.Datacenter,
	target Target) (*object.VirtualMachine, error) {

	if err := target.Validate(); err != nil {
		return nil, err
	}

	log := logr.FromContextOrDiscard(ctx)

	if target.Name != "" {
		return findVMByName(ctx, finder, target.Name, target.NameMatch)
	}

	if id := target.UUID; id != "" {
		// Find by Instance UUID, then by BIOS UUID.
		if vm, err := findVMByUUID(ctx, vimClient, datacenter, id, true); err == nil {
			log.V(4).Info("Found VM via instance UUID", "uuid", id)
			return vm, nil
		} else if !errors.Is(err, ErrVMNotFound) {
			return nil, err
		}
		if vm, err := findVMByUUID(ctx, vimClient, datacenter, id, false); err == nil {
			log.V(4).Info("Found VM via BIOS UUID", "uuid", id)
			return vm, nil
		} else if !errors.Is(err, ErrVMNotFound) {
			return nil, err
		}
		return nil, ErrVMNotFound
	}

	return findVMByMoID(ctx, vimClient, target.MoID)
}

func findVMByName(
	ctx context.Context,
	finder *find.Finder,
	name string,
	match NameMatch) (*object.VirtualMachine, error) {

	vms, err := finder.VirtualMachineList(ctx, name)
	if err != nil {
		if _, ok := err.(*find.NotFoundError); ok {
			return nil, ErrVMNotFound
		}
		return nil, pkgerr.ConnectivityError{Op: "listing VMs by name", Err: err}
	}
	if len(vms) == 0 {
		return nil, ErrVMNotFound
	}

	// VM names are not necessarily unique in the inventory; order by path so
	// first/last selection is deterministic.
	sort.Slice(vms, func(i, j int) bool {
		return vms[i].InventoryPath < vms[j].InventoryPath
	})

	if match == NameMatchLast {
		return vms[len(vms)-1], nil
	}
	return vms[0], nil
}

func findVMByMoID(
	ctx context.Context,
	vimClient *vim25.Client,
	moID string) (*object.VirtualMachine, error) {

	moRef := vimtypes.ManagedObjectReference{
		Type:  "VirtualMachine",
		Value: moID,
	}

	vm := mo.VirtualMachine{}
	if err := property.DefaultCollector(vimClient).RetrieveOne(ctx, moRef, []string{"name"}, &vm); err != nil {
		var f *vimtypes.ManagedObjectNotFound
		if _, ok := fault.As(err, &f); ok {
			return nil, ErrVMNotFound
		}
		return nil, pkgerr.ConnectivityError{Op: "retrieving VM via MoID", Err: err}
	}

	return object.NewVirtualMachine(vimClient, moRef), nil
}

func findVMByUUID(
	ctx context.Context,
	vimClient *vim25.Client,
	datacenter *object.Datacenter,
	id string,
	isInstanceUUID bool) (*object.VirtualMachine, error) {

	ref, err := object.NewSearchIndex(vimClient).FindByUuid(ctx, datacenter, id, true, &isInstanceUUID)
	if err != nil {
		return nil, pkgerr.ConnectivityError{
			Op:  fmt.Sprintf("finding VM by UUID %q", id),
			Err: err,
		}
	} else if ref == nil {
		return nil, ErrVMNotFound
	}

	vm, ok := ref.(*object.VirtualMachine)
	if !ok {
		return nil, fmt.Errorf("found VM reference was not a VirtualMachine but a %T", ref)
	}

	return vm, nil
}

// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// vmware-guest-floppy reconciles the floppy drive of a single vCenter-managed
// virtual machine with a declared desired state. It performs exactly one
// reconciliation pass and reports whether a change was made.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/helviojunior/vmware-guest-floppy/pkg/config"
	pkglog "github.com/helviojunior/vmware-guest-floppy/pkg/log"
	"github.com/helviojunior/vmware-guest-floppy/pkg/vsphere/client"
	"github.com/helviojunior/vmware-guest-floppy/pkg/vsphere/floppy"
	"github.com/helviojunior/vmware-guest-floppy/pkg/vsphere/vcenter"
)

type result struct {
	Changed bool   `json:"changed"`
	Msg     string `json:"msg,omitempty"`
}

func main() {
	var (
		connFile      = flag.String("connection-file", "", "Optional YAML file with hostname/username/password/validate_certs settings.")
		hostname      = flag.String("hostname", "", "The vCenter or ESXi hostname. Defaults to VMWARE_HOST.")
		port          = flag.String("port", "", "The endpoint port. Defaults to VMWARE_PORT or 443.")
		username      = flag.String("username", "", "The endpoint username. Defaults to VMWARE_USER.")
		password      = flag.String("password", "", "The endpoint password. Defaults to VMWARE_PASSWORD.")
		validateCerts = flag.Bool("validate-certs", true, "Validate the endpoint's TLS certificate.")
		caFile        = flag.String("ca-file", "", "Path to a CA bundle used to validate the endpoint certificate.")
		datacenter    = flag.String("datacenter", "", "Datacenter containing the VM. Defaults to the endpoint's default datacenter.")

		vmName    = flag.String("name", "", "Name of the VM to work with.")
		nameMatch = flag.String("name-match", "first", "When multiple VMs match the name, use the first or last found.")
		vmUUID    = flag.String("uuid", "", "Instance or BIOS UUID of the VM, if name is not supplied.")
		vmMoID    = flag.String("moid", "", "Managed object ID of the VM, if name and uuid are not supplied.")

		state          = flag.String("state", "present", "Desired state of the floppy drive: present or absent.")
		floppyType     = flag.String("type", "none", "Type of floppy: none, client, or flp. With none the drive is present but disconnected.")
		imageFile      = flag.String("image-file", "", "Datastore path to the flp file, e.g. \"[datastore1] base_new.flp\". Required when type is flp.")
		startConnected = flag.Bool("start-connected", false, "Connect the image-backed drive at power-on.")

		dryRun       = flag.Bool("dry-run", false, "Resolve and report the required operation without applying it.")
		timeout      = flag.Duration("timeout", floppy.DefaultWaitTimeout, "Overall bound on waiting for the reconfigure task.")
		pollInterval = flag.Duration("poll-interval", floppy.DefaultPollInterval, "Interval between task state polls.")
		verbosity    = flag.Int("v", 0, "Log verbosity.")
	)
	flag.Parse()

	logger := pkglog.New(*verbosity)
	ctx := logr.NewContext(context.Background(), logger)

	conn := config.Connection{
		Hostname:   *hostname,
		Port:       *port,
		Username:   *username,
		Password:   *password,
		CAFile:     *caFile,
		Datacenter: *datacenter,
	}
	// Only pin the flag's value when it was given explicitly, so the
	// connection file and environment can still turn validation off.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "validate-certs" {
			conn.ValidateCerts = validateCerts
		}
	})

	res, err := run(ctx, options{
		connFile: *connFile,
		conn:     conn,
		target: vcenter.Target{
			Name:      *vmName,
			UUID:      *vmUUID,
			MoID:      *vmMoID,
			NameMatch: vcenter.NameMatch(*nameMatch),
		},
		desired: floppy.Config{
			State:          floppy.State(*state),
			Type:           floppy.BackingKind(*floppyType),
			ImageFile:      *imageFile,
			StartConnected: *startConnected,
		},
		reconcile: floppy.ReconcileOptions{
			DryRun: *dryRun,
			Apply: floppy.ApplyOptions{
				PollInterval: *pollInterval,
				Timeout:      *timeout,
			},
		},
	})
	if err != nil {
		res.Msg = err.Error()
		report(res)
		os.Exit(1)
	}
	report(res)
}

type options struct {
	connFile  string
	conn      config.Connection
	target    vcenter.Target
	desired   floppy.Config
	reconcile floppy.ReconcileOptions
}

func run(ctx context.Context, opts options) (result, error) {
	// Fail on malformed desired state before reaching for the platform.
	if err := opts.desired.Validate(); err != nil {
		return result{}, err
	}
	if err := opts.target.Validate(); err != nil {
		return result{}, err
	}

	conn := opts.conn
	if opts.connFile != "" {
		fileConn, err := config.LoadConnectionFile(opts.connFile)
		if err != nil {
			return result{}, err
		}
		conn.Merge(fileConn)
	}
	conn.Merge(config.FromEnv())
	if err := conn.Validate(); err != nil {
		return result{}, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	c, err := client.NewClient(connectCtx, conn.ClientConfig())
	if err != nil {
		return result{}, err
	}
	defer c.Logout(ctx)

	vm, err := vcenter.GetVirtualMachine(ctx, c.VimClient(), c.Finder(), c.Datacenter(), opts.target)
	if err != nil {
		if errors.Is(err, vcenter.ErrVMNotFound) {
			return result{}, fmt.Errorf(
				"unable to manage floppy drive for non-existing VM %s",
				firstNonEmpty(opts.target.UUID, opts.target.MoID, opts.target.Name))
		}
		return result{}, err
	}

	r, err := floppy.Reconcile(ctx, vm, opts.desired, opts.reconcile)
	if err != nil {
		return result{}, err
	}

	return result{Changed: r.Changed, Msg: string(r.Operation)}, nil
}

func report(res result) {
	out, err := json.Marshal(res)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(out))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

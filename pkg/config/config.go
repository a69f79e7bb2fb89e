// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config carries the boundary configuration for one reconciliation
// invocation: how to reach vCenter, which VM to target, and the desired
// floppy state. Values come from flags, with blanks filled from an optional
// YAML connection file and from the VMWARE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	pkgerr "github.com/helviojunior/vmware-guest-floppy/pkg/errors"
	"github.com/helviojunior/vmware-guest-floppy/pkg/vsphere/client"
)

const DefaultPort = "443"

// Connection describes how to reach and authenticate with the vCenter or
// ESXi endpoint. Field names follow the YAML connection-file keys.
type Connection struct {
	Hostname      string `yaml:"hostname"`
	Port          string `yaml:"port"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	ValidateCerts *bool  `yaml:"validate_certs"`
	CAFile        string `yaml:"ca_file"`
	Datacenter    string `yaml:"datacenter"`
}

// LoadConnectionFile reads connection settings from a YAML file.
func LoadConnectionFile(path string) (Connection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Connection{}, fmt.Errorf("failed to read connection file: %w", err)
	}

	var c Connection
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Connection{}, fmt.Errorf("failed to parse connection file %s: %w", path, err)
	}
	return c, nil
}

// Merge fills any blank field of c from other. Explicit flag values win over
// file values, which win over the environment.
func (c *Connection) Merge(other Connection) {
	if c.Hostname == "" {
		c.Hostname = other.Hostname
	}
	if c.Port == "" {
		c.Port = other.Port
	}
	if c.Username == "" {
		c.Username = other.Username
	}
	if c.Password == "" {
		c.Password = other.Password
	}
	if c.ValidateCerts == nil {
		c.ValidateCerts = other.ValidateCerts
	}
	if c.CAFile == "" {
		c.CAFile = other.CAFile
	}
	if c.Datacenter == "" {
		c.Datacenter = other.Datacenter
	}
}

// FromEnv returns connection settings from the VMWARE_* environment
// variables.
func FromEnv() Connection {
	c := Connection{
		Hostname:   os.Getenv("VMWARE_HOST"),
		Port:       os.Getenv("VMWARE_PORT"),
		Username:   os.Getenv("VMWARE_USER"),
		Password:   os.Getenv("VMWARE_PASSWORD"),
		Datacenter: os.Getenv("VMWARE_DATACENTER"),
	}
	if v := os.Getenv("VMWARE_VALIDATE_CERTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ValidateCerts = &b
		}
	}
	return c
}

// Validate checks that the connection is complete enough to attempt a login.
func (c Connection) Validate() error {
	if c.Hostname == "" {
		return pkgerr.ValidationError{Field: "hostname", Message: "required"}
	}
	if c.Username == "" {
		return pkgerr.ValidationError{Field: "username", Message: "required"}
	}
	if c.Password == "" {
		return pkgerr.ValidationError{Field: "password", Message: "required"}
	}
	return nil
}

// ClientConfig maps the connection to the vSphere client config. Certificate
// validation defaults to on; callers must opt out explicitly.
func (c Connection) ClientConfig() client.Config {
	port := c.Port
	if port == "" {
		port = DefaultPort
	}
	insecure := c.ValidateCerts != nil && !*c.ValidateCerts
	return client.Config{
		Host:       c.Hostname,
		Port:       port,
		Username:   c.Username,
		Password:   c.Password,
		CAFilePath: c.CAFile,
		Insecure:   insecure,
		Datacenter: c.Datacenter,
	}
}

// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package devicetree

import (
	"fmt"

	"github.com/juju/errors"
)

// DuplicateDeviceError reports an attempt to add a device whose name is
// already present in the tree.
type DuplicateDeviceError struct {
	Name string
}

func (e *DuplicateDeviceError) Error() string {
	return fmt.Sprintf("device %q already in the tree", e.Name)
}

// IsDuplicateDeviceError reports whether err was caused by a device
// name collision.
func IsDuplicateDeviceError(err error) bool {
	_, ok := errors.Cause(err).(*DuplicateDeviceError)
	return ok
}

// MissingParentError reports an attempt to add a device before one of
// its declared parents.
type MissingParentError struct {
	Name   string
	Parent string
}

func (e *MissingParentError) Error() string {
	return fmt.Sprintf("parent %q of device %q not in the tree", e.Parent, e.Name)
}

// IsMissingParentError reports whether err was caused by a device
// naming a parent not present in the tree.
func IsMissingParentError(err error) bool {
	_, ok := errors.Cause(err).(*MissingParentError)
	return ok
}

// DeviceNotFoundError reports an operation on a device name not present
// in the tree.
type DeviceNotFoundError struct {
	Name string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("device %q not in the tree", e.Name)
}

// IsDeviceNotFoundError reports whether err was caused by an absent
// device.
func IsDeviceNotFoundError(err error) bool {
	_, ok := errors.Cause(err).(*DeviceNotFoundError)
	return ok
}

// DeviceInUseError reports an attempt to remove a device that other
// devices still depend on.
type DeviceInUseError struct {
	Name  string
	Users []string
}

func (e *DeviceInUseError) Error() string {
	return fmt.Sprintf("device %q is in use by %v", e.Name, e.Users)
}

// IsDeviceInUseError reports whether err was caused by removing a
// device that still has dependents.
func IsDeviceInUseError(err error) bool {
	_, ok := errors.Cause(err).(*DeviceInUseError)
	return ok
}

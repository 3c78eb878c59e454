// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package deviceaction queues planned mutations of a device tree:
// creating and destroying devices, writing and erasing formats, and
// resizing. Each action is validated when it is registered and, on
// success, immediately reflected in the tree so later registrations and
// queries see the planned state. The ordered log of accepted actions is
// what an external executor later applies to real media.
package deviceaction

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"

	"github.com/juju/storageplan/devicetree"
)

// Kind identifies what an action does to its target device.
type Kind string

const (
	KindCreateDevice  Kind = "create device"
	KindDestroyDevice Kind = "destroy device"
	KindCreateFormat  Kind = "create format"
	KindDestroyFormat Kind = "destroy format"
	KindResizeDevice  Kind = "resize device"
)

// Action is one planned mutation of a device tree. Implementations are
// the five action kinds in this package; the interface is closed.
type Action interface {
	// Kind identifies the action.
	Kind() Kind

	// DeviceName names the device the action targets.
	DeviceName() string

	fmt.Stringer

	// apply validates the action against the tree and, if valid,
	// mutates the tree in one step. On failure the tree is unchanged.
	apply(tree *devicetree.DeviceTree) error
}

type createDevice struct {
	device *devicetree.Device
}

// NewCreateDevice returns an action that adds the given device to the
// tree. The device must not yet exist on real media, its name must be
// free, and all its parents must be in the tree.
func NewCreateDevice(device *devicetree.Device) Action {
	return &createDevice{device: device}
}

func (a *createDevice) Kind() Kind         { return KindCreateDevice }
func (a *createDevice) DeviceName() string { return a.device.Name }

func (a *createDevice) String() string {
	return fmt.Sprintf("create %s", a.device)
}

func (a *createDevice) apply(tree *devicetree.DeviceTree) error {
	if a.device.Exists {
		return errors.Errorf("cannot schedule creation of %s: already backed by real media", a.device)
	}
	return errors.Trace(tree.AddDevice(a.device))
}

type destroyDevice struct {
	name string
}

// NewDestroyDevice returns an action that removes the named device from
// the tree. Only a leaf device may be destroyed.
func NewDestroyDevice(name string) Action {
	return &destroyDevice{name: name}
}

func (a *destroyDevice) Kind() Kind         { return KindDestroyDevice }
func (a *destroyDevice) DeviceName() string { return a.name }

func (a *destroyDevice) String() string {
	return fmt.Sprintf("destroy device %q", a.name)
}

func (a *destroyDevice) apply(tree *devicetree.DeviceTree) error {
	return errors.Trace(tree.RemoveDevice(a.name))
}

type createFormat struct {
	name   string
	format devicetree.Format
}

// NewCreateFormat returns an action that writes the given format to the
// named device, replacing whatever occupies it now.
func NewCreateFormat(name string, format devicetree.Format) Action {
	return &createFormat{name: name, format: format}
}

func (a *createFormat) Kind() Kind         { return KindCreateFormat }
func (a *createFormat) DeviceName() string { return a.name }

func (a *createFormat) String() string {
	return fmt.Sprintf("create %s format on %q", a.format, a.name)
}

func (a *createFormat) apply(tree *devicetree.DeviceTree) error {
	// The format is only planned until executed.
	format := a.format
	format.Exists = false
	return errors.Trace(tree.SetFormat(a.name, format))
}

type destroyFormat struct {
	name string
}

// NewDestroyFormat returns an action that erases whatever format
// occupies the named device.
func NewDestroyFormat(name string) Action {
	return &destroyFormat{name: name}
}

func (a *destroyFormat) Kind() Kind         { return KindDestroyFormat }
func (a *destroyFormat) DeviceName() string { return a.name }

func (a *destroyFormat) String() string {
	return fmt.Sprintf("destroy format on %q", a.name)
}

func (a *destroyFormat) apply(tree *devicetree.DeviceTree) error {
	return errors.Trace(tree.SetFormat(a.name, devicetree.Format{}))
}

type resizeDevice struct {
	name string
	size uint64
}

// NewResizeDevice returns an action that changes the named device's
// size. The device's format, if any, must be resizable in place.
func NewResizeDevice(name string, size uint64) Action {
	return &resizeDevice{name: name, size: size}
}

func (a *resizeDevice) Kind() Kind         { return KindResizeDevice }
func (a *resizeDevice) DeviceName() string { return a.name }

func (a *resizeDevice) String() string {
	return fmt.Sprintf("resize device %q to %s", a.name, humanize.IBytes(a.size))
}

func (a *resizeDevice) apply(tree *devicetree.DeviceTree) error {
	device := tree.GetDeviceByName(a.name)
	if device == nil {
		return &devicetree.DeviceNotFoundError{Name: a.name}
	}
	if !device.Format.Resizable() {
		return errors.NotSupportedf("resizing device %q with %q format", a.name, device.Format.Type)
	}
	if device.Size == a.size {
		return errors.Errorf("device %q is already %s", a.name, humanize.IBytes(a.size))
	}
	return errors.Trace(tree.SetSize(a.name, a.size))
}

// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package devicetree holds an in-memory model of a host's block
// devices and the dependencies between them: disks, partitions, MD
// arrays, volume groups and logical volumes, each linked to the devices
// it is built from. The tree is seeded from a discovered system state
// in parent-before-child order and thereafter mutated only through
// validated planning actions; nothing in this package touches real
// media.
package devicetree

import (
	"sync"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/naturalsort"
)

// DeviceTree is the set of known devices plus the derived
// parent-to-children adjacency. Devices are kept in an arena keyed by
// name; edges refer to names rather than holding object references, so
// parent sharing is unambiguous and cycle-freedom falls out of the
// parents-before-children insertion rule.
//
// A DeviceTree may be shared across goroutines: mutations take a write
// lock, queries a read lock. Callers registering planning actions must
// still serialize registrations themselves (the scheduler does).
type DeviceTree struct {
	mu       sync.RWMutex
	devices  map[string]*Device
	children map[string]set.Strings
}

// New returns an empty device tree.
func New() *DeviceTree {
	return &DeviceTree{
		devices:  make(map[string]*Device),
		children: make(map[string]set.Strings),
	}
}

// AddDevice inserts a device into the tree. The device's name must not
// collide with an existing device, and every parent it names must
// already be present. A planned device cannot carry a format that is
// already on real media.
func (t *DeviceTree) AddDevice(device *Device) error {
	if device.Name == "" {
		return errors.NotValidf("device with empty name")
	}
	if !device.Exists && device.Format.Exists {
		return errors.NotValidf("existing format on planned device %q", device.Name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.devices[device.Name]; ok {
		return &DuplicateDeviceError{Name: device.Name}
	}
	for _, parent := range device.Parents {
		if _, ok := t.devices[parent]; !ok {
			return &MissingParentError{Name: device.Name, Parent: parent}
		}
	}
	t.devices[device.Name] = device
	t.children[device.Name] = set.NewStrings()
	for _, parent := range device.Parents {
		t.children[parent].Add(device.Name)
	}
	return nil
}

// RemoveDevice removes the named device. Only a leaf may be removed;
// dependents must be removed first.
func (t *DeviceTree) RemoveDevice(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	device, ok := t.devices[name]
	if !ok {
		return &DeviceNotFoundError{Name: name}
	}
	if users := t.children[name]; users.Size() > 0 {
		return &DeviceInUseError{Name: name, Users: users.SortedValues()}
	}
	for _, parent := range device.Parents {
		t.children[parent].Remove(name)
	}
	delete(t.devices, name)
	delete(t.children, name)
	return nil
}

// GetDeviceByName returns the named device, or nil if there is none.
// Absence is not an error.
func (t *DeviceTree) GetDeviceByName(name string) *Device {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.devices[name]
}

// Devices returns every device in the tree, in natural name order.
func (t *DeviceTree) Devices() []*Device {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.devices))
	for name := range t.devices {
		names = append(names, name)
	}
	naturalsort.Sort(names)
	devices := make([]*Device, len(names))
	for i, name := range names {
		devices[i] = t.devices[name]
	}
	return devices
}

// Dependents returns the names of every device whose parent chain
// includes the named device, however indirectly. Destroying the named
// device safely means destroying these first, leaves inward.
func (t *DeviceTree) Dependents(name string) (set.Strings, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.devices[name]; !ok {
		return nil, &DeviceNotFoundError{Name: name}
	}
	dependents := set.NewStrings()
	frontier := []string{name}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for _, child := range t.children[next].Values() {
			if dependents.Contains(child) {
				continue
			}
			dependents.Add(child)
			frontier = append(frontier, child)
		}
	}
	return dependents, nil
}

// Leaves returns the devices no other device depends on, in natural
// name order. These are the only devices eligible for immediate
// destruction.
func (t *DeviceTree) Leaves() []*Device {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var names []string
	for name := range t.devices {
		if t.children[name].Size() == 0 {
			names = append(names, name)
		}
	}
	naturalsort.Sort(names)
	leaves := make([]*Device, len(names))
	for i, name := range names {
		leaves[i] = t.devices[name]
	}
	return leaves
}

// FreeSpace returns the capacity of the named device not yet allocated
// to its children. For container devices (arrays, volume groups) this
// is the space available for new allocations.
func (t *DeviceTree) FreeSpace(name string) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	device, ok := t.devices[name]
	if !ok {
		return 0, &DeviceNotFoundError{Name: name}
	}
	var allocated uint64
	for _, child := range t.children[name].Values() {
		allocated += t.devices[child].Size
	}
	if allocated >= device.Size {
		return 0, nil
	}
	return device.Size - allocated, nil
}

// SetFormat replaces the named device's format. This is the scheduler's
// mutation hook for format actions; other callers should register a
// format action instead.
func (t *DeviceTree) SetFormat(name string, format Format) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	device, ok := t.devices[name]
	if !ok {
		return &DeviceNotFoundError{Name: name}
	}
	device.Format = format
	return nil
}

// SetSize replaces the named device's size. As with SetFormat, this is
// the scheduler's mutation hook for resize actions.
func (t *DeviceTree) SetSize(name string, size uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	device, ok := t.devices[name]
	if !ok {
		return &DeviceNotFoundError{Name: name}
	}
	device.Size = size
	return nil
}

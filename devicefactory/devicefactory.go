// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package devicefactory plans allocations of block-storage capacity:
// given a requested size and device type it decides whether an existing
// container (MD array, volume group, disk) can satisfy the request or a
// new device must be scheduled, sizes the result with the raid
// arithmetic, and registers the necessary actions with the scheduler.
// Nothing is registered against a plan that fails validation.
package devicefactory

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/storageplan/deviceaction"
	"github.com/juju/storageplan/devicetree"
	"github.com/juju/storageplan/raid"
)

var logger = loggo.GetLogger("storageplan.devicefactory")

// DeviceType selects the kind of device a factory plans.
type DeviceType string

const (
	DeviceTypeMD        DeviceType = "mdarray"
	DeviceTypeLVM       DeviceType = "lvm"
	DeviceTypePartition DeviceType = "partition"
)

// DeviceFactory plans the allocation of one device of a requested size.
// A factory holds no state of its own beyond its configuration; all
// observable effects go through the scheduler it was built with.
type DeviceFactory interface {
	// ContainerList returns the existing devices that could contain
	// the requested allocation, in natural name order. Empty when no
	// candidate exists yet.
	ContainerList() []*devicetree.Device

	// GetContainer returns the best existing container, preferring the
	// one with the most free space, or nil when there is none.
	GetContainer() *devicetree.Device

	// DeviceSpace returns the raw space that must come out of the
	// underlying members or containers to yield the requested usable
	// size.
	DeviceSpace() (uint64, error)

	// NewDevice builds, but does not register, the device that would
	// satisfy the request given the resolved parents.
	NewDevice(parents []*devicetree.Device) (*devicetree.Device, error)

	// Configure plans the request end to end: it validates the
	// configuration, finds or sizes a container, and registers the
	// necessary actions. On error nothing has been registered.
	Configure() error
}

// New returns a factory planning a device of the given type and usable
// size against the scheduler's tree. The attribute map is validated
// here; a missing or bogus raid level is not an error until an
// operation needs the level.
func New(sched *deviceaction.Scheduler, deviceType DeviceType, size uint64, attrs map[string]interface{}) (DeviceFactory, error) {
	config, err := newFactoryConfig(attrs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	base := baseFactory{
		sched:  sched,
		tree:   sched.Tree(),
		size:   size,
		config: config,
	}
	switch deviceType {
	case DeviceTypeMD:
		return &mdFactory{baseFactory: base}, nil
	case DeviceTypeLVM:
		return &lvmFactory{baseFactory: base}, nil
	case DeviceTypePartition:
		return &partitionFactory{baseFactory: base}, nil
	}
	return nil, errors.NotValidf("device type %q", deviceType)
}

type baseFactory struct {
	sched  *deviceaction.Scheduler
	tree   *devicetree.DeviceTree
	size   uint64
	config factoryConfig
}

// containersOfKind returns the existing devices of the given kind, in
// natural name order.
func (f *baseFactory) containersOfKind(kind devicetree.DeviceKind) []*devicetree.Device {
	var containers []*devicetree.Device
	for _, device := range f.tree.Devices() {
		if device.Kind == kind {
			containers = append(containers, device)
		}
	}
	return containers
}

// bestContainer returns the candidate with the most free space, or nil.
// Candidates tie in favour of natural name order.
func (f *baseFactory) bestContainer(candidates []*devicetree.Device) *devicetree.Device {
	var best *devicetree.Device
	var bestFree uint64
	for _, candidate := range candidates {
		free, err := f.tree.FreeSpace(candidate.Name)
		if err != nil {
			logger.Warningf("skipping container %q: %v", candidate.Name, err)
			continue
		}
		if best == nil || free > bestFree {
			best, bestFree = candidate, free
		}
	}
	return best
}

// memberDevices resolves the configured disk names against the tree.
func (f *baseFactory) memberDevices() ([]*devicetree.Device, error) {
	members := make([]*devicetree.Device, 0, len(f.config.disks))
	for _, name := range f.config.disks {
		device := f.tree.GetDeviceByName(name)
		if device == nil {
			return nil, &devicetree.DeviceNotFoundError{Name: name}
		}
		members = append(members, device)
	}
	return members, nil
}

// pickName returns the configured device name, or the first free name
// with the given prefix.
func (f *baseFactory) pickName(prefix string) string {
	if f.config.name != "" {
		return f.config.name
	}
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if f.tree.GetDeviceByName(name) == nil {
			return name
		}
	}
}

// MDRaidError reports a device factory whose RAID configuration is
// internally inconsistent: typically an MD array requested without a
// resolvable RAID level. It specializes the raid package's RaidError
// by embedding, so raid.IsRaidError holds for it while IsMDRaidError
// lets callers special-case array-creation failures; arithmetic
// failures (too few members and the like) propagate from the raid
// package unchanged.
type MDRaidError struct {
	*raid.RaidError
}

func mdRaidErrorf(format string, args ...interface{}) error {
	return &MDRaidError{RaidError: raid.NewRaidError(format, args...)}
}

// IsMDRaidError reports whether err was caused by an inconsistent MD
// RAID factory configuration.
func IsMDRaidError(err error) bool {
	_, ok := errors.Cause(err).(*MDRaidError)
	return ok
}

// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package devicefactory

import (
	"github.com/dustin/go-humanize"
	"github.com/juju/errors"

	"github.com/juju/storageplan/deviceaction"
	"github.com/juju/storageplan/devicetree"
	"github.com/juju/storageplan/raid"
)

// mdFactory plans MD (software RAID) arrays. The RAID level descriptor
// from the factory options is resolved lazily: construction never fails
// on it, every planning operation does.
type mdFactory struct {
	baseFactory
}

func (f *mdFactory) raidLevel() (*raid.Level, error) {
	if f.config.raidLevel == nil {
		return nil, mdRaidErrorf("invalid RAID level: none specified")
	}
	lvl, err := raid.AllLevels.Level(f.config.raidLevel)
	if err != nil {
		return nil, mdRaidErrorf("invalid RAID level %v", f.config.raidLevel)
	}
	return lvl, nil
}

// ContainerList is part of the DeviceFactory interface.
func (f *mdFactory) ContainerList() []*devicetree.Device {
	return f.containersOfKind(devicetree.KindMDArray)
}

// GetContainer is part of the DeviceFactory interface.
func (f *mdFactory) GetContainer() *devicetree.Device {
	return f.bestContainer(f.ContainerList())
}

// DeviceSpace is part of the DeviceFactory interface. For an array it
// is the per-member contribution times the member count, so it exceeds
// the usable size by the level's redundancy overhead.
func (f *mdFactory) DeviceSpace() (uint64, error) {
	lvl, err := f.raidLevel()
	if err != nil {
		return 0, errors.Trace(err)
	}
	memberCount := len(f.config.disks)
	memberSize, err := lvl.BaseMemberSize(f.size, memberCount)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return memberSize * uint64(memberCount), nil
}

// NewDevice is part of the DeviceFactory interface. Member and size
// validation happens before the candidate device is built, so an
// unresolvable level or too few parents fails here too.
func (f *mdFactory) NewDevice(parents []*devicetree.Device) (*devicetree.Device, error) {
	lvl, err := f.raidLevel()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if _, err := lvl.BaseMemberSize(f.size, len(parents)); err != nil {
		return nil, errors.Trace(err)
	}
	name := f.pickName("md")
	if f.tree.GetDeviceByName(name) != nil {
		return nil, &devicetree.DuplicateDeviceError{Name: name}
	}
	parentNames := make([]string, len(parents))
	for i, parent := range parents {
		parentNames[i] = parent.Name
	}
	return &devicetree.Device{
		Name:    name,
		Size:    f.size,
		Kind:    devicetree.KindMDArray,
		Parents: parentNames,
	}, nil
}

// Configure is part of the DeviceFactory interface.
func (f *mdFactory) Configure() error {
	lvl, err := f.raidLevel()
	if err != nil {
		return errors.Trace(err)
	}
	space, err := f.DeviceSpace()
	if err != nil {
		return errors.Trace(err)
	}
	if container := f.GetContainer(); container != nil {
		free, err := f.tree.FreeSpace(container.Name)
		if err != nil {
			return errors.Annotatef(err, "computing free space of %q", container.Name)
		}
		if free >= f.size {
			logger.Debugf("satisfying %s request from existing %s", humanize.IBytes(f.size), container)
			return nil
		}
	}
	members, err := f.memberDevices()
	if err != nil {
		return errors.Trace(err)
	}
	memberSize := space / uint64(len(members))
	for _, member := range members {
		if member.Size < memberSize {
			return errors.Errorf("member %s cannot contribute %s", member, humanize.IBytes(memberSize))
		}
	}
	array, err := f.NewDevice(members)
	if err != nil {
		return errors.Trace(err)
	}
	for _, member := range members {
		memberFormat := devicetree.Format{Type: "mdmember"}
		if err := f.sched.Register(deviceaction.NewCreateFormat(member.Name, memberFormat)); err != nil {
			return errors.Trace(err)
		}
	}
	if err := f.sched.Register(deviceaction.NewCreateDevice(array)); err != nil {
		return errors.Trace(err)
	}
	fsFormat := devicetree.Format{Type: f.config.fstype}
	if err := f.sched.Register(deviceaction.NewCreateFormat(array.Name, fsFormat)); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("planned %s array %q over %d members", lvl, array.Name, len(members))
	return nil
}

// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package devicefactory

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"

	"github.com/juju/storageplan/deviceaction"
	"github.com/juju/storageplan/devicetree"
)

// partitionFactory plans plain partitions directly on disks.
type partitionFactory struct {
	baseFactory
}

// ContainerList is part of the DeviceFactory interface.
func (f *partitionFactory) ContainerList() []*devicetree.Device {
	return f.containersOfKind(devicetree.KindDisk)
}

// GetContainer is part of the DeviceFactory interface.
func (f *partitionFactory) GetContainer() *devicetree.Device {
	return f.bestContainer(f.ContainerList())
}

// DeviceSpace is part of the DeviceFactory interface. A partition costs
// exactly what it yields.
func (f *partitionFactory) DeviceSpace() (uint64, error) {
	return f.size, nil
}

// NewDevice is part of the DeviceFactory interface. Partition names
// follow the disk's: the first free of sda1, sda2, ...
func (f *partitionFactory) NewDevice(parents []*devicetree.Device) (*devicetree.Device, error) {
	if len(parents) != 1 {
		return nil, errors.Errorf("a partition needs exactly one disk parent, got %d", len(parents))
	}
	disk := parents[0]
	name := f.config.name
	if name == "" {
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s%d", disk.Name, i)
			if f.tree.GetDeviceByName(candidate) == nil {
				name = candidate
				break
			}
		}
	} else if f.tree.GetDeviceByName(name) != nil {
		return nil, &devicetree.DuplicateDeviceError{Name: name}
	}
	return &devicetree.Device{
		Name:    name,
		Size:    f.size,
		Kind:    devicetree.KindPartition,
		Parents: []string{disk.Name},
	}, nil
}

// Configure is part of the DeviceFactory interface.
func (f *partitionFactory) Configure() error {
	disk := f.GetContainer()
	if disk == nil {
		return errors.NotFoundf("disk for %s partition", humanize.IBytes(f.size))
	}
	free, err := f.tree.FreeSpace(disk.Name)
	if err != nil {
		return errors.Trace(err)
	}
	if free < f.size {
		return errors.Errorf("not enough free space on %s: %s available, %s required",
			disk, humanize.IBytes(free), humanize.IBytes(f.size))
	}
	part, err := f.NewDevice([]*devicetree.Device{disk})
	if err != nil {
		return errors.Trace(err)
	}
	if err := f.sched.Register(deviceaction.NewCreateDevice(part)); err != nil {
		return errors.Trace(err)
	}
	fsFormat := devicetree.Format{Type: f.config.fstype}
	if err := f.sched.Register(deviceaction.NewCreateFormat(part.Name, fsFormat)); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("planned %s on %s", part, disk)
	return nil
}

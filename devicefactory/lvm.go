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

// lvmExtentSize is the volume group physical extent size allocations
// are rounded up to.
const lvmExtentSize uint64 = 4 * 1024 * 1024

// lvmFactory plans logical volumes out of existing volume groups.
// Creating volume groups from bare disks is the caller's move; an empty
// ContainerList tells them there is nothing to allocate from yet.
type lvmFactory struct {
	baseFactory
}

// ContainerList is part of the DeviceFactory interface.
func (f *lvmFactory) ContainerList() []*devicetree.Device {
	return f.containersOfKind(devicetree.KindVolumeGroup)
}

// GetContainer is part of the DeviceFactory interface.
func (f *lvmFactory) GetContainer() *devicetree.Device {
	return f.bestContainer(f.ContainerList())
}

// DeviceSpace is part of the DeviceFactory interface. Volume group
// allocations happen in whole extents, so the requested size rounds up.
func (f *lvmFactory) DeviceSpace() (uint64, error) {
	extents := (f.size + lvmExtentSize - 1) / lvmExtentSize
	return extents * lvmExtentSize, nil
}

// NewDevice is part of the DeviceFactory interface.
func (f *lvmFactory) NewDevice(parents []*devicetree.Device) (*devicetree.Device, error) {
	if len(parents) != 1 {
		return nil, errors.Errorf("a logical volume needs exactly one volume group parent, got %d", len(parents))
	}
	space, err := f.DeviceSpace()
	if err != nil {
		return nil, errors.Trace(err)
	}
	vg := parents[0]
	name := f.pickName(fmt.Sprintf("%s-lv", vg.Name))
	if f.tree.GetDeviceByName(name) != nil {
		return nil, &devicetree.DuplicateDeviceError{Name: name}
	}
	return &devicetree.Device{
		Name:    name,
		Size:    space,
		Kind:    devicetree.KindLogicalVolume,
		Parents: []string{vg.Name},
	}, nil
}

// Configure is part of the DeviceFactory interface.
func (f *lvmFactory) Configure() error {
	space, err := f.DeviceSpace()
	if err != nil {
		return errors.Trace(err)
	}
	vg := f.GetContainer()
	if vg == nil {
		return errors.NotFoundf("volume group for %s allocation", humanize.IBytes(space))
	}
	free, err := f.tree.FreeSpace(vg.Name)
	if err != nil {
		return errors.Trace(err)
	}
	if free < space {
		return errors.Errorf("not enough free space in %s: %s available, %s required",
			vg, humanize.IBytes(free), humanize.IBytes(space))
	}
	lv, err := f.NewDevice([]*devicetree.Device{vg})
	if err != nil {
		return errors.Trace(err)
	}
	if err := f.sched.Register(deviceaction.NewCreateDevice(lv)); err != nil {
		return errors.Trace(err)
	}
	fsFormat := devicetree.Format{Type: f.config.fstype}
	if err := f.sched.Register(deviceaction.NewCreateFormat(lv.Name, fsFormat)); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("planned %s from %s", lv, vg)
	return nil
}

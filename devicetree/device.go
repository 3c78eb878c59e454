// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package devicetree

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// DeviceKind identifies what sort of block-storage entity a device is.
type DeviceKind string

const (
	KindDisk          DeviceKind = "disk"
	KindPartition     DeviceKind = "partition"
	KindMDArray       DeviceKind = "md"
	KindVolumeGroup   DeviceKind = "vg"
	KindLogicalVolume DeviceKind = "lv"
)

// Format describes what occupies a device: a filesystem, a RAID member
// signature, a volume-group physical volume, or nothing at all. The
// zero value means the device carries no format.
type Format struct {
	// Type is the format's type, e.g. "ext4", "mdmember", "lvmpv".
	// Empty means no format.
	Type string

	// Label is the format's label, if any.
	Label string

	// Exists is true if the format is already on real media, false if
	// it is only planned. A format cannot exist on a device that does
	// not; DeviceTree.AddDevice rejects that combination.
	Exists bool
}

// resizableFormats are the format types whose size can be changed in
// place once written.
var resizableFormats = map[string]bool{
	"ext2": true,
	"ext3": true,
	"ext4": true,
	"ntfs": true,
}

// IsNil reports whether the format is "no format".
func (f Format) IsNil() bool {
	return f.Type == ""
}

// Resizable reports whether a device carrying this format may be
// resized. A device with no format at all is freely resizable.
func (f Format) Resizable() bool {
	return f.IsNil() || resizableFormats[f.Type]
}

func (f Format) String() string {
	if f.IsNil() {
		return "none"
	}
	return f.Type
}

// Device is a node in the device tree: one block-storage entity and the
// names of the devices it is built from. A device does not own its
// parents; several devices may share one (e.g. two logical volumes in
// one volume group).
type Device struct {
	// Name uniquely identifies the device within a tree, e.g. "sda1"
	// or "md0".
	Name string

	// Size is the device's usable capacity in bytes.
	Size uint64

	// Kind is what sort of device this is.
	Kind DeviceKind

	// Parents names the devices this one is built from, in the order
	// they were declared. All of them must be in the tree before this
	// device can be added.
	Parents []string

	// Format describes what occupies the device.
	Format Format

	// Exists is true if the device is backed by real media, false if
	// it is only planned.
	Exists bool
}

func (d *Device) String() string {
	return fmt.Sprintf("%s %q (%s)", d.Kind, d.Name, humanize.IBytes(d.Size))
}

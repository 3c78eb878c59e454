// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package devicefactory_test

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/storageplan/deviceaction"
	"github.com/juju/storageplan/devicefactory"
	"github.com/juju/storageplan/devicetree"
	"github.com/juju/storageplan/raid"
)

const (
	mib = uint64(1024 * 1024)
	gib = 1024 * mib
)

type factorySuite struct {
	tree  *devicetree.DeviceTree
	sched *deviceaction.Scheduler
}

var _ = gc.Suite(&factorySuite{})

func (s *factorySuite) SetUpTest(c *gc.C) {
	s.tree = devicetree.New()
	s.sched = deviceaction.NewScheduler(s.tree)
}

func (s *factorySuite) seedDevice(c *gc.C, device *devicetree.Device) *devicetree.Device {
	device.Exists = true
	err := s.tree.AddDevice(device)
	c.Assert(err, jc.ErrorIsNil)
	return device
}

func (s *factorySuite) seedDisk(c *gc.C, name string, size uint64) *devicetree.Device {
	return s.seedDevice(c, &devicetree.Device{Name: name, Size: size, Kind: devicetree.KindDisk})
}

func (s *factorySuite) newFactory(c *gc.C, deviceType devicefactory.DeviceType, size uint64, attrs map[string]interface{}) devicefactory.DeviceFactory {
	factory, err := devicefactory.New(s.sched, deviceType, size, attrs)
	c.Assert(err, jc.ErrorIsNil)
	return factory
}

func (s *factorySuite) TestMDFactoryNoLevel(c *gc.C) {
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, nil)

	_, err := factory.DeviceSpace()
	c.Assert(err, gc.ErrorMatches, "invalid RAID level.*")
	c.Assert(err, jc.Satisfies, devicefactory.IsMDRaidError)

	err = factory.Configure()
	c.Assert(err, gc.ErrorMatches, "invalid RAID level.*")
	c.Assert(err, jc.Satisfies, devicefactory.IsMDRaidError)

	_, err = factory.NewDevice(nil)
	c.Assert(err, gc.ErrorMatches, "invalid RAID level.*")
	c.Assert(err, jc.Satisfies, devicefactory.IsMDRaidError)

	c.Assert(factory.ContainerList(), gc.HasLen, 0)
	c.Assert(factory.GetContainer(), gc.IsNil)
	c.Assert(s.sched.Actions(), gc.HasLen, 0)
}

func (s *factorySuite) TestMDFactoryBogusLevel(c *gc.C) {
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
		"raid-level": "bogus",
	})
	_, err := factory.DeviceSpace()
	c.Assert(err, gc.ErrorMatches, "invalid RAID level bogus")
	c.Assert(err, jc.Satisfies, devicefactory.IsMDRaidError)
}

func (s *factorySuite) TestMDRaidErrorIsRaidError(c *gc.C) {
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, nil)
	_, err := factory.DeviceSpace()
	c.Assert(err, jc.Satisfies, devicefactory.IsMDRaidError)
	c.Assert(err, jc.Satisfies, raid.IsRaidError)
	c.Assert(err, gc.Not(jc.Satisfies), raid.IsInvalidLevelError)
}

func (s *factorySuite) TestMDFactoryTooFewMembers(c *gc.C) {
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
		"raid-level": 0,
	})

	_, err := factory.DeviceSpace()
	c.Assert(err, gc.ErrorMatches, "raid0 requires at least 2 members, got 0")
	c.Assert(err, jc.Satisfies, raid.IsRaidError)
	c.Assert(err, gc.Not(jc.Satisfies), devicefactory.IsMDRaidError)

	c.Assert(factory.ContainerList(), gc.HasLen, 0)
	c.Assert(factory.GetContainer(), gc.IsNil)
}

func (s *factorySuite) TestMDFactoryDeviceSpace(c *gc.C) {
	s.seedDisk(c, "sda", gib)
	s.seedDisk(c, "sdb", gib)
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
		"raid-level": "mirror",
		"disks":      []interface{}{"sda", "sdb"},
	})
	space, err := factory.DeviceSpace()
	c.Assert(err, jc.ErrorIsNil)
	// Two mirrored members each hold the full payload.
	c.Assert(space, gc.Equals, 2*gib)
}

func (s *factorySuite) TestMDFactoryConfigure(c *gc.C) {
	s.seedDisk(c, "sda", gib)
	s.seedDisk(c, "sdb", gib)
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
		"raid-level": "stripe",
		"disks":      []interface{}{"sda", "sdb"},
	})

	err := factory.Configure()
	c.Assert(err, jc.ErrorIsNil)

	array := s.tree.GetDeviceByName("md0")
	c.Assert(array, gc.NotNil)
	c.Assert(array.Kind, gc.Equals, devicetree.KindMDArray)
	c.Assert(array.Size, gc.Equals, gib)
	c.Assert(array.Parents, jc.DeepEquals, []string{"sda", "sdb"})
	c.Assert(array.Exists, jc.IsFalse)
	c.Assert(array.Format.Type, gc.Equals, "ext4")
	c.Assert(s.tree.GetDeviceByName("sda").Format.Type, gc.Equals, "mdmember")

	var kinds []deviceaction.Kind
	for _, action := range s.sched.Actions() {
		kinds = append(kinds, action.Kind())
	}
	c.Assert(kinds, jc.DeepEquals, []deviceaction.Kind{
		deviceaction.KindCreateFormat,
		deviceaction.KindCreateFormat,
		deviceaction.KindCreateDevice,
		deviceaction.KindCreateFormat,
	})
}

func (s *factorySuite) TestMDFactoryUsesExistingContainer(c *gc.C) {
	s.seedDisk(c, "sda", gib)
	s.seedDisk(c, "sdb", gib)
	s.seedDevice(c, &devicetree.Device{
		Name:    "md0",
		Size:    2 * gib,
		Kind:    devicetree.KindMDArray,
		Parents: []string{"sda", "sdb"},
	})
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
		"raid-level": 1,
		"disks":      []interface{}{"sda", "sdb"},
	})
	c.Assert(factory.ContainerList(), gc.HasLen, 1)
	c.Assert(factory.GetContainer().Name, gc.Equals, "md0")

	err := factory.Configure()
	c.Assert(err, jc.ErrorIsNil)
	// The existing array satisfies the request; nothing is scheduled.
	c.Assert(s.sched.Actions(), gc.HasLen, 0)
}

func (s *factorySuite) TestMDFactoryMemberTooSmall(c *gc.C) {
	s.seedDisk(c, "sda", gib)
	s.seedDisk(c, "sdb", 256*mib)
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
		"raid-level": "mirror",
		"disks":      []interface{}{"sda", "sdb"},
	})
	err := factory.Configure()
	c.Assert(err, gc.ErrorMatches, `member disk "sdb" \(256 MiB\) cannot contribute 1.0 GiB`)
	c.Assert(s.sched.Actions(), gc.HasLen, 0)
}

func (s *factorySuite) TestMDFactoryMissingMember(c *gc.C) {
	s.seedDisk(c, "sda", gib)
	factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
		"raid-level": "mirror",
		"disks":      []interface{}{"sda", "sdb"},
	})
	err := factory.Configure()
	c.Assert(err, jc.Satisfies, devicetree.IsDeviceNotFoundError)
	c.Assert(s.sched.Actions(), gc.HasLen, 0)
}

func (s *factorySuite) TestLVMFactoryNoVolumeGroup(c *gc.C) {
	factory := s.newFactory(c, devicefactory.DeviceTypeLVM, gib, nil)
	c.Assert(factory.ContainerList(), gc.HasLen, 0)
	c.Assert(factory.GetContainer(), gc.IsNil)

	err := factory.Configure()
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
	c.Assert(s.sched.Actions(), gc.HasLen, 0)
}

func (s *factorySuite) TestLVMFactoryDeviceSpaceRoundsToExtent(c *gc.C) {
	factory := s.newFactory(c, devicefactory.DeviceTypeLVM, gib+1, nil)
	space, err := factory.DeviceSpace()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(space, gc.Equals, gib+4*mib)
}

func (s *factorySuite) TestLVMFactoryConfigure(c *gc.C) {
	s.seedDisk(c, "sda", 10*gib)
	s.seedDevice(c, &devicetree.Device{
		Name:    "vg0",
		Size:    10 * gib,
		Kind:    devicetree.KindVolumeGroup,
		Parents: []string{"sda"},
	})
	factory := s.newFactory(c, devicefactory.DeviceTypeLVM, gib, map[string]interface{}{
		"fstype": "ext3",
	})

	err := factory.Configure()
	c.Assert(err, jc.ErrorIsNil)

	lv := s.tree.GetDeviceByName("vg0-lv0")
	c.Assert(lv, gc.NotNil)
	c.Assert(lv.Kind, gc.Equals, devicetree.KindLogicalVolume)
	c.Assert(lv.Size, gc.Equals, gib)
	c.Assert(lv.Parents, jc.DeepEquals, []string{"vg0"})
	c.Assert(lv.Format.Type, gc.Equals, "ext3")
	c.Assert(s.sched.Actions(), gc.HasLen, 2)
}

func (s *factorySuite) TestLVMFactoryPicksFullestGroup(c *gc.C) {
	s.seedDisk(c, "sda", 2*gib)
	s.seedDisk(c, "sdb", 10*gib)
	s.seedDevice(c, &devicetree.Device{
		Name: "vg0", Size: 2 * gib, Kind: devicetree.KindVolumeGroup, Parents: []string{"sda"},
	})
	s.seedDevice(c, &devicetree.Device{
		Name: "vg1", Size: 10 * gib, Kind: devicetree.KindVolumeGroup, Parents: []string{"sdb"},
	})
	factory := s.newFactory(c, devicefactory.DeviceTypeLVM, gib, nil)
	c.Assert(factory.ContainerList(), gc.HasLen, 2)
	c.Assert(factory.GetContainer().Name, gc.Equals, "vg1")
}

func (s *factorySuite) TestLVMFactoryNotEnoughSpace(c *gc.C) {
	s.seedDisk(c, "sda", gib)
	vg := s.seedDevice(c, &devicetree.Device{
		Name: "vg0", Size: gib, Kind: devicetree.KindVolumeGroup, Parents: []string{"sda"},
	})
	s.seedDevice(c, &devicetree.Device{
		Name: "vg0-data", Size: 768 * mib, Kind: devicetree.KindLogicalVolume, Parents: []string{vg.Name},
	})
	factory := s.newFactory(c, devicefactory.DeviceTypeLVM, 512*mib, nil)
	err := factory.Configure()
	c.Assert(err, gc.ErrorMatches, "not enough free space in .*: 256 MiB available, 512 MiB required")
	c.Assert(s.sched.Actions(), gc.HasLen, 0)
}

func (s *factorySuite) TestPartitionFactoryConfigure(c *gc.C) {
	s.seedDisk(c, "sda", gib)
	s.seedDisk(c, "sdb", 10*gib)
	factory := s.newFactory(c, devicefactory.DeviceTypePartition, gib, nil)

	err := factory.Configure()
	c.Assert(err, jc.ErrorIsNil)

	// The emptier disk wins.
	part := s.tree.GetDeviceByName("sdb1")
	c.Assert(part, gc.NotNil)
	c.Assert(part.Kind, gc.Equals, devicetree.KindPartition)
	c.Assert(part.Parents, jc.DeepEquals, []string{"sdb"})
	c.Assert(part.Format.Type, gc.Equals, "ext4")
}

func (s *factorySuite) TestPartitionFactoryNumbersAfterExisting(c *gc.C) {
	s.seedDisk(c, "sda", 10*gib)
	s.seedDevice(c, &devicetree.Device{
		Name: "sda1", Size: gib, Kind: devicetree.KindPartition, Parents: []string{"sda"},
	})
	factory := s.newFactory(c, devicefactory.DeviceTypePartition, gib, nil)
	err := factory.Configure()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.tree.GetDeviceByName("sda2"), gc.NotNil)
}

func (s *factorySuite) TestPartitionFactoryNoDisk(c *gc.C) {
	factory := s.newFactory(c, devicefactory.DeviceTypePartition, gib, nil)
	err := factory.Configure()
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
}

func (s *factorySuite) TestUnknownDeviceType(c *gc.C) {
	_, err := devicefactory.New(s.sched, devicefactory.DeviceType("floppy"), gib, nil)
	c.Assert(err, gc.ErrorMatches, `device type "floppy" not valid`)
}

func (s *factorySuite) TestUnknownOption(c *gc.C) {
	_, err := devicefactory.New(s.sched, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
		"frobnicate": true,
	})
	c.Assert(err, gc.ErrorMatches, "validating device factory options: .*")
}

func (s *factorySuite) TestRaidLevelOptionForms(c *gc.C) {
	s.seedDisk(c, "sda", gib)
	s.seedDisk(c, "sdb", gib)
	for i, level := range []interface{}{1, "1", "raid1", "RAID1", "mirror"} {
		c.Logf("test %d: raid-level %v", i, level)
		factory := s.newFactory(c, devicefactory.DeviceTypeMD, gib, map[string]interface{}{
			"raid-level": level,
			"disks":      []interface{}{"sda", "sdb"},
		})
		space, err := factory.DeviceSpace()
		c.Assert(err, jc.ErrorIsNil)
		c.Assert(space, gc.Equals, 2*gib)
	}
}

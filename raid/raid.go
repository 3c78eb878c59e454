// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package raid describes the standard software RAID geometries and the
// arithmetic that relates an array's usable capacity to the number and
// size of its member devices. Everything in this package is a pure
// function over immutable level values; nothing here touches real
// devices.
package raid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Level describes a single RAID geometry: the canonical numeral it is
// known by, the names it answers to, and the parameters that drive
// redundancy and capacity arithmetic. The package-level values RAID0
// through RAID10 are the only instances; they are created once and
// never mutated.
type Level struct {
	number     int
	name       string
	aliases    []string
	minMembers int
	redundancy int
}

var (
	RAID0  = &Level{number: 0, name: "raid0", aliases: []string{"stripe"}, minMembers: 2, redundancy: 0}
	RAID1  = &Level{number: 1, name: "raid1", aliases: []string{"mirror"}, minMembers: 2, redundancy: 1}
	RAID4  = &Level{number: 4, name: "raid4", minMembers: 3, redundancy: 1}
	RAID5  = &Level{number: 5, name: "raid5", minMembers: 3, redundancy: 1}
	RAID6  = &Level{number: 6, name: "raid6", minMembers: 4, redundancy: 2}
	RAID10 = &Level{number: 10, name: "raid10", minMembers: 4, redundancy: 1}
)

// AllLevels resolves every RAID level known to this package.
var AllLevels = Levels{levels: []*Level{RAID0, RAID1, RAID4, RAID5, RAID6, RAID10}}

// String returns the level's preferred label, e.g. "raid5".
func (lvl *Level) String() string {
	return lvl.name
}

// Number returns the level's canonical numeral, e.g. 5 for RAID5.
func (lvl *Level) Number() int {
	return lvl.number
}

// Names returns every name the level answers to, in a fixed order: the
// full name first, historical aliases next, then the upper-case and
// numeral forms. Callers may display the first entry as the preferred
// label.
func (lvl *Level) Names() []string {
	names := make([]string, 0, len(lvl.aliases)+3)
	names = append(names, lvl.name)
	names = append(names, lvl.aliases...)
	names = append(names, strings.ToUpper(lvl.name))
	names = append(names, strconv.Itoa(lvl.number))
	return names
}

// MinMembers returns the smallest number of member devices with which
// an array of this level can be assembled.
func (lvl *Level) MinMembers() int {
	return lvl.minMembers
}

// Redundancy returns the number of redundant copies the level keeps of
// each stripe: 0 for RAID0, 1 for RAID1/4/5/10, 2 for RAID6.
func (lvl *Level) Redundancy() int {
	return lvl.redundancy
}

// MaxSpares returns the number of the given members that can be held in
// reserve as spares while still meeting the level's minimum member
// count. RAID0 has no sparing concept, so its result is always zero.
func (lvl *Level) MaxSpares(memberCount int) (int, error) {
	if err := lvl.checkMemberCount(memberCount); err != nil {
		return 0, errors.Trace(err)
	}
	if lvl == RAID0 {
		return 0, nil
	}
	return memberCount - lvl.minMembers, nil
}

// BaseMemberSize returns the capacity each member must contribute so
// that an array of memberCount members yields at least size bytes of
// usable space, rounding up.
func (lvl *Level) BaseMemberSize(size uint64, memberCount int) (uint64, error) {
	if err := lvl.checkMemberCount(memberCount); err != nil {
		return 0, errors.Trace(err)
	}
	n := uint64(lvl.netMembers(memberCount))
	return (size + n - 1) / n, nil
}

// RawArraySize returns the usable capacity of an array of memberCount
// members each contributing smallestMemberSize bytes. It is the inverse
// of BaseMemberSize, less the rounding.
func (lvl *Level) RawArraySize(memberCount int, smallestMemberSize uint64) (uint64, error) {
	if err := lvl.checkMemberCount(memberCount); err != nil {
		return 0, errors.Trace(err)
	}
	return smallestMemberSize * uint64(lvl.netMembers(memberCount)), nil
}

// RecommendedStride returns the filesystem stride hint, in filesystem
// blocks, for an array of memberCount members. Only the striped,
// non-mirrored levels (RAID0, RAID4, RAID5) have one; for the others
// the result is zero, meaning no recommendation.
func (lvl *Level) RecommendedStride(memberCount int) (int, error) {
	if err := lvl.checkMemberCount(memberCount); err != nil {
		return 0, errors.Trace(err)
	}
	switch lvl {
	case RAID0:
		return memberCount * 16, nil
	case RAID4, RAID5:
		return (memberCount - 1) * 16, nil
	}
	return 0, nil
}

// netMembers returns the number of members contributing usable capacity
// once the level's redundancy overhead is paid. Callers must have
// validated memberCount against minMembers first.
func (lvl *Level) netMembers(memberCount int) int {
	switch lvl {
	case RAID1:
		return 1
	case RAID4, RAID5:
		return memberCount - 1
	case RAID6:
		return memberCount - 2
	case RAID10:
		return memberCount / 2
	}
	return memberCount
}

func (lvl *Level) checkMemberCount(memberCount int) error {
	if memberCount < lvl.minMembers {
		return raidErrorf("%s requires at least %d members, got %d", lvl.name, lvl.minMembers, memberCount)
	}
	return nil
}

// matches reports whether the descriptor names this level. Descriptors
// may be the canonical numeral as an int, or any of the level's names.
func (lvl *Level) matches(descriptor interface{}) bool {
	switch d := descriptor.(type) {
	case int:
		return d == lvl.number
	case string:
		for _, name := range lvl.Names() {
			if d == name {
				return true
			}
		}
	}
	return false
}

// Levels is a registry of RAID levels. A registry resolves arbitrary
// level descriptors to exactly one of its levels, or fails; a registry
// holding no levels fails every resolution.
type Levels struct {
	levels []*Level
}

// NewLevels returns a registry restricted to the levels named by the
// given descriptors. With no descriptors the registry is empty and
// resolves nothing. A descriptor that does not name a known level fails
// construction.
func NewLevels(descriptors ...interface{}) (Levels, error) {
	levels := make([]*Level, 0, len(descriptors))
	for _, descriptor := range descriptors {
		lvl, err := AllLevels.Level(descriptor)
		if err != nil {
			return Levels{}, invalidLevelf("invalid standard RAID level descriptor %v", descriptor)
		}
		levels = append(levels, lvl)
	}
	return Levels{levels: levels}, nil
}

// Level resolves a descriptor to a level in the registry. The
// descriptor may be the level's numeral as an int, the numeral as a
// string, the canonical name, or any historical alias; matching is
// exact.
func (l Levels) Level(descriptor interface{}) (*Level, error) {
	for _, lvl := range l.levels {
		if lvl.matches(descriptor) {
			return lvl, nil
		}
	}
	return nil, invalidLevelf("invalid RAID level %v", descriptor)
}

// RaidError reports a violation of a RAID level's numeric constraints,
// such as assembling an array from fewer members than its geometry
// needs. Other packages specialize the type by embedding a value built
// with NewRaidError; IsRaidError recognizes such specializations.
type RaidError struct {
	message string
}

func (e *RaidError) Error() string {
	return e.message
}

func (e *RaidError) isRaidError() {}

// NewRaidError returns a RaidError with the given message. It exists
// for packages that specialize RaidError by embedding, such as the
// device factory's MDRaidError.
func NewRaidError(format string, args ...interface{}) *RaidError {
	return &RaidError{message: fmt.Sprintf(format, args...)}
}

func raidErrorf(format string, args ...interface{}) error {
	return &RaidError{message: fmt.Sprintf(format, args...)}
}

// IsRaidError reports whether err was caused by a RAID constraint
// violation. Level resolution failures count, as does any type that
// embeds a RaidError or InvalidLevelError.
func IsRaidError(err error) bool {
	_, ok := errors.Cause(err).(interface{ isRaidError() })
	return ok
}

// InvalidLevelError reports a descriptor that does not resolve to any
// level in the active registry, or a registry built from a malformed
// level literal.
type InvalidLevelError struct {
	message string
}

func (e *InvalidLevelError) Error() string {
	return e.message
}

func (e *InvalidLevelError) isRaidError() {}

func invalidLevelf(format string, args ...interface{}) error {
	return &InvalidLevelError{message: fmt.Sprintf(format, args...)}
}

// IsInvalidLevelError reports whether err was caused by a failed level
// resolution.
func IsInvalidLevelError(err error) bool {
	_, ok := errors.Cause(err).(*InvalidLevelError)
	return ok
}

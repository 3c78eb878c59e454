// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package storageplan plans changes to a host's block-storage
// configuration before anything touches real media. A Plan owns one
// device tree and one action scheduler; callers seed the tree from a
// discovered system state, plan allocations through device factories,
// and hand the resulting action log to an external executor.
package storageplan

import (
	"github.com/juju/errors"

	"github.com/juju/storageplan/deviceaction"
	"github.com/juju/storageplan/devicefactory"
	"github.com/juju/storageplan/devicetree"
)

// Plan is one planning session over one device tree. The zero value is
// not useful; use NewPlan.
type Plan struct {
	tree  *devicetree.DeviceTree
	sched *deviceaction.Scheduler
}

// NewPlan returns a planning session over an empty device tree.
func NewPlan() *Plan {
	tree := devicetree.New()
	return &Plan{
		tree:  tree,
		sched: deviceaction.NewScheduler(tree),
	}
}

// Tree returns the session's device tree, for seeding (bulk AddDevice
// in parent-before-child order) and for queries.
func (p *Plan) Tree() *devicetree.DeviceTree {
	return p.tree
}

// Scheduler returns the session's action scheduler.
func (p *Plan) Scheduler() *deviceaction.Scheduler {
	return p.sched
}

// Factory returns a device factory planning a device of the given type
// and usable size against this session.
func (p *Plan) Factory(deviceType devicefactory.DeviceType, size uint64, attrs map[string]interface{}) (devicefactory.DeviceFactory, error) {
	factory, err := devicefactory.New(p.sched, deviceType, size, attrs)
	return factory, errors.Trace(err)
}

// Actions returns the accepted actions in registration order, which is
// also the order an external executor must apply them in.
func (p *Plan) Actions() []deviceaction.Action {
	return p.sched.Actions()
}

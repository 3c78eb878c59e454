// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package deviceaction

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/storageplan/devicetree"
)

var logger = loggo.GetLogger("storageplan.deviceaction")

// Scheduler validates planned actions against a device tree and keeps
// the ordered log of those it accepts. Registration order is execution
// order: each registration is validated against the tree state produced
// by all earlier ones, and the log is never reordered. Cancelling a
// planned action means registering a compensating action, not editing
// the log.
//
// Register calls are serialized, so at most one mutation is in flight
// at a time; read-only tree queries remain safe throughout.
type Scheduler struct {
	mu      sync.Mutex
	tree    *devicetree.DeviceTree
	actions []Action
}

// NewScheduler returns a scheduler planning mutations of the given
// tree.
func NewScheduler(tree *devicetree.DeviceTree) *Scheduler {
	return &Scheduler{tree: tree}
}

// Tree returns the device tree the scheduler plans against.
func (s *Scheduler) Tree() *devicetree.DeviceTree {
	return s.tree
}

// Register validates the action and, if it is valid, mutates the tree
// to reflect it and appends it to the action log. On failure the tree
// is left exactly as it was and the validation error is returned.
func (s *Scheduler) Register(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := action.apply(s.tree); err != nil {
		return errors.Trace(err)
	}
	s.actions = append(s.actions, action)
	logger.Debugf("registered action %d: %s", len(s.actions), action)
	return nil
}

// Actions returns the accepted actions in registration order. The
// result is a copy; the log itself is append-only.
func (s *Scheduler) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]Action, len(s.actions))
	copy(actions, s.actions)
	return actions
}

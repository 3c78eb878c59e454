// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package devicefactory

import (
	"github.com/juju/errors"
	"github.com/juju/schema"
)

const (
	raidLevelKey = "raid-level"
	disksKey     = "disks"
	nameKey      = "name"
	fstypeKey    = "fstype"
)

var configChecker = schema.StrictFieldMap(
	schema.Fields{
		raidLevelKey: schema.OneOf(schema.Int(), schema.String()),
		disksKey:     schema.List(schema.String()),
		nameKey:      schema.String(),
		fstypeKey:    schema.String(),
	},
	schema.Defaults{
		raidLevelKey: schema.Omit,
		disksKey:     schema.Omit,
		nameKey:      schema.Omit,
		fstypeKey:    "ext4",
	},
)

// factoryConfig is the coerced form of the attribute map passed to New.
type factoryConfig struct {
	// raidLevel is a level descriptor (int or string), or nil when the
	// caller gave none. It is resolved lazily, at the point each
	// operation needs it.
	raidLevel interface{}

	// disks names the member devices a new container is built from.
	disks []string

	// name is the caller's name for the new device; empty means pick
	// one.
	name string

	// fstype is the format to plan on the new device.
	fstype string
}

func newFactoryConfig(attrs map[string]interface{}) (factoryConfig, error) {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	coerced, err := configChecker.Coerce(attrs, nil)
	if err != nil {
		return factoryConfig{}, errors.Annotate(err, "validating device factory options")
	}
	m := coerced.(map[string]interface{})
	config := factoryConfig{}
	if level, ok := m[raidLevelKey]; ok {
		// schema.Int coerces to int64; the raid registry resolves
		// plain ints.
		if n, ok := level.(int64); ok {
			level = int(n)
		}
		config.raidLevel = level
	}
	if disks, ok := m[disksKey].([]interface{}); ok {
		for _, disk := range disks {
			config.disks = append(config.disks, disk.(string))
		}
	}
	if name, ok := m[nameKey].(string); ok {
		config.name = name
	}
	config.fstype = m[fstypeKey].(string)
	return config, nil
}

// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildbot

import (
	"sort"

	"go.chromium.org/luci/common/errors"

	"github.com/Lunarixus/angle/infra/pyl"
)

// Waterfall is a named group of machines from waterfalls.pyl.
type Waterfall struct {
	Name string
	// Mixins are applied to every test on every machine of the waterfall.
	Mixins []string
	// Machines maps machine (bot) name to its definition.
	Machines map[string]*Machine
	// Def is the raw waterfall definition.
	Def map[string]interface{}
}

// Machine is a single bot of a waterfall.
type Machine struct {
	Name string
	// Mixins are applied to every test on the machine, after waterfall mixins.
	Mixins []string
	// TestSuites maps a test type, e.g. "gtest_tests", to a test suite name.
	TestSuites map[string]string
	// Def is the raw machine definition.
	Def map[string]interface{}
}

// MachineNames returns the names of w's machines, sorted.
func (w *Waterfall) MachineNames() []string {
	names := make([]string, 0, len(w.Machines))
	for name := range w.Machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UseSwarming reports whether tests on m run on Swarming.
// Defaults to true.
func (m *Machine) UseSwarming() bool {
	v, ok := m.Def["use_swarming"].(bool)
	return !ok || v
}

func parseWaterfalls(v interface{}) ([]*Waterfall, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, errors.Reason("expected a list of waterfalls, got %s", pyl.TypeName(v)).Err()
	}

	ret := make([]*Waterfall, 0, len(list))
	seen := map[string]bool{}
	for i, e := range list {
		def, ok := e.(map[string]interface{})
		if !ok {
			return nil, errors.Reason("waterfall #%d: expected a dict, got %s", i, pyl.TypeName(e)).Err()
		}
		w, err := parseWaterfall(def)
		if err != nil {
			return nil, errors.Annotate(err, "waterfall #%d", i).Err()
		}
		if seen[w.Name] {
			return nil, errors.Reason("duplicate waterfall %q", w.Name).Err()
		}
		seen[w.Name] = true
		ret = append(ret, w)
	}
	return ret, nil
}

func parseWaterfall(def map[string]interface{}) (*Waterfall, error) {
	name, ok := def["name"].(string)
	if !ok || name == "" {
		return nil, errors.Reason("missing or invalid \"name\"").Err()
	}
	w := &Waterfall{Name: name, Def: def}

	var err error
	if w.Mixins, err = stringList(def["mixins"]); err != nil {
		return nil, errors.Annotate(err, "waterfall %q: mixins", name).Err()
	}

	machines, ok := def["machines"].(map[string]interface{})
	if !ok {
		return nil, errors.Reason("waterfall %q: missing or invalid \"machines\"", name).Err()
	}
	w.Machines = make(map[string]*Machine, len(machines))
	for mName, mv := range machines {
		mDef, ok := mv.(map[string]interface{})
		if !ok {
			return nil, errors.Reason("waterfall %q: machine %q: expected a dict, got %s", name, mName, pyl.TypeName(mv)).Err()
		}
		m, err := parseMachine(mName, mDef)
		if err != nil {
			return nil, errors.Annotate(err, "waterfall %q: machine %q", name, mName).Err()
		}
		w.Machines[mName] = m
	}
	return w, nil
}

func parseMachine(name string, def map[string]interface{}) (*Machine, error) {
	m := &Machine{Name: name, Def: def, TestSuites: map[string]string{}}

	var err error
	if m.Mixins, err = stringList(def["mixins"]); err != nil {
		return nil, errors.Annotate(err, "mixins").Err()
	}

	if v, ok := def["test_suites"]; ok {
		suites, ok := v.(map[string]interface{})
		if !ok {
			return nil, errors.Reason("test_suites: expected a dict, got %s", pyl.TypeName(v)).Err()
		}
		for testType, sv := range suites {
			suite, ok := sv.(string)
			if !ok {
				return nil, errors.Reason("test_suites: %q: expected a suite name, got %s", testType, pyl.TypeName(sv)).Err()
			}
			m.TestSuites[testType] = suite
		}
	}
	return m, nil
}

// stringList converts a list or tuple of strings. A nil value yields nil.
func stringList(v interface{}) ([]string, error) {
	var items []interface{}
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		items = v
	case pyl.Tuple:
		items = v
	default:
		return nil, errors.Reason("expected a list of strings, got %s", pyl.TypeName(v)).Err()
	}

	ret := make([]string, len(items))
	for i, e := range items {
		s, ok := e.(string)
		if !ok {
			return nil, errors.Reason("expected a list of strings, found %s", pyl.TypeName(e)).Err()
		}
		ret[i] = s
	}
	return ret, nil
}

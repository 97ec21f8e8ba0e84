// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildbot

import (
	"sort"

	"go.chromium.org/luci/common/errors"

	"github.com/Lunarixus/angle/infra/pyl"
)

// testGenerator builds the base JSON dict of one test of a given type.
type testGenerator func(name string, def map[string]interface{}, m *Machine) (map[string]interface{}, error)

// testGenerators are the supported test types.
var testGenerators = map[string]testGenerator{
	"gtest_tests":      generateGTest,
	"isolated_scripts": generateIsolatedScript,
	"junit_tests":      generateJUnitTest,
	"scripts":          generateScript,
}

// baseTest copies def, dropping generator-only keys, and sets the name.
func baseTest(name string, def map[string]interface{}) map[string]interface{} {
	ret := pyl.CloneDict(def)
	if ret == nil {
		ret = map[string]interface{}{}
	}
	delete(ret, "mixins")
	delete(ret, "remove_mixins")
	ret["name"] = name
	return ret
}

// initSwarming sets up the swarming dict of a test from machine defaults.
func initSwarming(test map[string]interface{}, m *Machine) error {
	if err := mergeSwarming(test, map[string]interface{}{
		"can_use_on_swarming_builders": m.UseSwarming(),
	}); err != nil {
		return err
	}
	if sw, ok := m.Def["swarming"].(map[string]interface{}); ok && m.UseSwarming() {
		return mergeSwarming(test, sw)
	}
	return nil
}

// appendMachineArgs appends the machine-level args to test args.
func appendMachineArgs(test map[string]interface{}, m *Machine) error {
	if v, ok := m.Def["args"]; ok {
		return appendList(test, "args", v)
	}
	return nil
}

func generateGTest(name string, def map[string]interface{}, m *Machine) (map[string]interface{}, error) {
	ret := baseTest(name, def)
	if _, ok := ret["test"]; !ok {
		ret["test"] = name
	}
	if err := initSwarming(ret, m); err != nil {
		return nil, err
	}
	if err := appendMachineArgs(ret, m); err != nil {
		return nil, err
	}
	return ret, nil
}

func generateIsolatedScript(name string, def map[string]interface{}, m *Machine) (map[string]interface{}, error) {
	ret := baseTest(name, def)
	if _, ok := ret["isolate_name"]; !ok {
		if t, ok := ret["test"]; ok {
			ret["isolate_name"] = t
		} else {
			ret["isolate_name"] = name
		}
	}
	delete(ret, "test")
	if err := initSwarming(ret, m); err != nil {
		return nil, err
	}
	if err := appendMachineArgs(ret, m); err != nil {
		return nil, err
	}
	return ret, nil
}

func generateJUnitTest(name string, def map[string]interface{}, m *Machine) (map[string]interface{}, error) {
	ret := baseTest(name, def)
	if _, ok := ret["test"]; !ok {
		ret["test"] = name
	}
	return ret, nil
}

func generateScript(name string, def map[string]interface{}, m *Machine) (map[string]interface{}, error) {
	ret := baseTest(name, def)
	if _, ok := ret["script"].(string); !ok {
		return nil, errors.Reason("script test %q has no \"script\"", name).Err()
	}
	return ret, nil
}

// machineTests generates all tests of machine m of waterfall w, keyed by test
// type.
func (g *Generator) machineTests(w *Waterfall, m *Machine) (map[string]interface{}, error) {
	ret := map[string]interface{}{}

	testTypes := make([]string, 0, len(m.TestSuites))
	for testType := range m.TestSuites {
		testTypes = append(testTypes, testType)
	}
	sort.Strings(testTypes)

	for _, testType := range testTypes {
		gen, ok := testGenerators[testType]
		if !ok {
			return nil, errors.Reason("unknown test type %q", testType).Err()
		}
		suiteName := m.TestSuites[testType]
		tests, ok := g.suites.expanded[suiteName]
		if !ok {
			return nil, errors.Reason("unknown test suite %q", suiteName).Err()
		}

		names := make([]string, 0, len(tests))
		for name := range tests {
			names = append(names, name)
		}
		sort.Strings(names)

		list := make([]interface{}, 0, len(names))
		for _, name := range names {
			if g.removedFrom(name, m.Name) {
				continue
			}
			def := tests[name]
			test, err := gen(name, def, m)
			if err != nil {
				return nil, err
			}
			if test, err = g.finalizeTest(name, test, def, w, m); err != nil {
				return nil, errors.Annotate(err, "test %q", name).Err()
			}
			list = append(list, test)
		}
		if len(list) > 0 {
			ret[testType] = list
		}
	}

	if v, ok := m.Def["additional_compile_targets"]; ok {
		ret["additional_compile_targets"] = pyl.Clone(v)
	}
	return ret, nil
}

// finalizeTest applies mixins, then exception modifications and replacements.
func (g *Generator) finalizeTest(name string, test, def map[string]interface{}, w *Waterfall, m *Machine) (map[string]interface{}, error) {
	testMixins, err := stringList(def["mixins"])
	if err != nil {
		return nil, errors.Annotate(err, "mixins").Err()
	}
	removed, err := stringList(def["remove_mixins"])
	if err != nil {
		return nil, errors.Annotate(err, "remove_mixins").Err()
	}

	var names []string
	for _, n := range append(append([]string(nil), w.Mixins...), m.Mixins...) {
		if !contains(removed, n) {
			names = append(names, n)
		}
	}
	names = append(names, testMixins...)

	for _, n := range names {
		mv, ok := g.mixins[n]
		if !ok {
			return nil, errors.Reason("references nonexistent mixin %q", n).Err()
		}
		mixin, ok := mv.(map[string]interface{})
		if !ok {
			return nil, errors.Reason("mixin %q: expected a dict, got %s", n, pyl.TypeName(mv)).Err()
		}
		if test, err = applyMixin(test, mixin); err != nil {
			return nil, errors.Annotate(err, "mixin %q", n).Err()
		}
	}

	if mod := g.exceptionDict(name, "modifications", m.Name); mod != nil {
		if test, err = dictionaryMerge(test, pyl.CloneDict(mod)); err != nil {
			return nil, errors.Annotate(err, "modifications").Err()
		}
	}
	if repl := g.exceptionDict(name, "replacements", m.Name); repl != nil {
		if err := applyReplacements(test, repl); err != nil {
			return nil, err
		}
	}
	return test, nil
}

func contains(ss []string, s string) bool {
	for _, e := range ss {
		if e == s {
			return true
		}
	}
	return false
}

// removedFrom reports whether test_suite_exceptions.pyl removes the test from
// the machine.
func (g *Generator) removedFrom(test, machine string) bool {
	exc, ok := g.exceptions[test].(map[string]interface{})
	if !ok {
		return false
	}
	bots, _ := stringList(exc["remove_from"])
	return contains(bots, machine)
}

// exceptionDict returns test_suite_exceptions.pyl[test][kind][machine] if it
// is a dict.
func (g *Generator) exceptionDict(test, kind, machine string) map[string]interface{} {
	exc, ok := g.exceptions[test].(map[string]interface{})
	if !ok {
		return nil
	}
	byMachine, ok := exc[kind].(map[string]interface{})
	if !ok {
		return nil
	}
	d, _ := byMachine[machine].(map[string]interface{})
	return d
}

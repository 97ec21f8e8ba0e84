// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildbot

import (
	"sort"

	"go.chromium.org/luci/common/errors"

	"github.com/Lunarixus/angle/infra/pyl"
)

// Sections of test_suites.pyl.
const (
	basicSuitesKey          = "basic_suites"
	compoundSuitesKey       = "compound_suites"
	matrixCompoundSuitesKey = "matrix_compound_suites"
)

// TestSuite is an entry of test_suites.pyl.
//
// Compound suites are compositions: Composition lists the basic suites they
// are made of and Tests is nil. Basic suites and resolved matrix compound
// suites have Tests.
type TestSuite struct {
	Name        string
	Composition []string
	// Tests maps test name to the test definition.
	Tests map[string]map[string]interface{}
}

// IsComposition reports whether s is a compound suite.
func (s *TestSuite) IsComposition() bool {
	return s.Composition != nil
}

// TestNames returns the names of s's tests, sorted.
func (s *TestSuite) TestNames() []string {
	names := make([]string, 0, len(s.Tests))
	for name := range s.Tests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variant is an entry of variants.pyl.
type Variant struct {
	ID         string
	Identifier string
	Def        map[string]interface{}
}

// suiteResolver turns the raw test_suites.pyl and variants.pyl contents into
// TestSuites.
type suiteResolver struct {
	raw      map[string]interface{}
	variants map[string]*Variant

	// suites are all suites by name, as exposed by Generator.TestSuites.
	suites map[string]*TestSuite
	// expanded are the tests of each suite; for compound suites this is the
	// union of the tests of the composed basic suites.
	expanded map[string]map[string]map[string]interface{}
}

func parseVariants(raw map[string]interface{}) (map[string]*Variant, error) {
	ret := make(map[string]*Variant, len(raw))
	for id, v := range raw {
		def, ok := v.(map[string]interface{})
		if !ok {
			return nil, errors.Reason("variant %q: expected a dict, got %s", id, pyl.TypeName(v)).Err()
		}
		identifier, ok := def["identifier"].(string)
		if !ok || identifier == "" {
			return nil, errors.Reason("variant %q: missing or invalid \"identifier\"", id).Err()
		}
		ret[id] = &Variant{ID: id, Identifier: identifier, Def: def}
	}
	return ret, nil
}

func (r *suiteResolver) resolve() error {
	r.suites = map[string]*TestSuite{}
	r.expanded = map[string]map[string]map[string]interface{}{}

	for key := range r.raw {
		switch key {
		case basicSuitesKey, compoundSuitesKey, matrixCompoundSuitesKey:
		default:
			return errors.Reason("unexpected section %q in test suites", key).Err()
		}
	}

	basic, err := section(r.raw, basicSuitesKey)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(basic) {
		tests, err := parseBasicSuite(basic[name])
		if err != nil {
			return errors.Annotate(err, "basic suite %q", name).Err()
		}
		r.suites[name] = &TestSuite{Name: name, Tests: tests}
		r.expanded[name] = tests
	}

	compound, err := section(r.raw, compoundSuitesKey)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(compound) {
		if err := r.resolveCompound(name, compound[name]); err != nil {
			return errors.Annotate(err, "compound suite %q", name).Err()
		}
	}

	matrix, err := section(r.raw, matrixCompoundSuitesKey)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(matrix) {
		if err := r.resolveMatrix(name, matrix[name]); err != nil {
			return errors.Annotate(err, "matrix compound suite %q", name).Err()
		}
	}
	return nil
}

func sortedKeys(d map[string]interface{}) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func section(raw map[string]interface{}, key string) (map[string]interface{}, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	d, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Reason("%s: expected a dict, got %s", key, pyl.TypeName(v)).Err()
	}
	return d, nil
}

func parseBasicSuite(v interface{}) (map[string]map[string]interface{}, error) {
	d, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Reason("expected a dict of tests, got %s", pyl.TypeName(v)).Err()
	}
	tests := make(map[string]map[string]interface{}, len(d))
	for testName, tv := range d {
		def, ok := tv.(map[string]interface{})
		if !ok {
			return nil, errors.Reason("test %q: expected a dict, got %s", testName, pyl.TypeName(tv)).Err()
		}
		tests[testName] = def
	}
	return tests, nil
}

func (r *suiteResolver) basicSuite(name string) (*TestSuite, error) {
	s, ok := r.suites[name]
	switch {
	case !ok:
		return nil, errors.Reason("unknown basic suite %q", name).Err()
	case s.IsComposition():
		return nil, errors.Reason("%q is a compound suite; compositions may only reference basic suites", name).Err()
	}
	return s, nil
}

func (r *suiteResolver) resolveCompound(name string, v interface{}) error {
	if _, ok := r.suites[name]; ok {
		return errors.Reason("name is already used by a basic suite").Err()
	}
	composition, err := stringList(v)
	if err != nil {
		return err
	}
	if composition == nil {
		composition = []string{}
	}

	tests := map[string]map[string]interface{}{}
	for _, basicName := range composition {
		basic, err := r.basicSuite(basicName)
		if err != nil {
			return err
		}
		for testName, def := range basic.Tests {
			if _, ok := tests[testName]; ok {
				return errors.Reason("test %q is defined by more than one composed suite", testName).Err()
			}
			tests[testName] = def
		}
	}
	r.suites[name] = &TestSuite{Name: name, Composition: composition}
	r.expanded[name] = tests
	return nil
}

func (r *suiteResolver) resolveMatrix(name string, v interface{}) error {
	if _, ok := r.suites[name]; ok {
		return errors.Reason("name is already used by another suite").Err()
	}
	d, ok := v.(map[string]interface{})
	if !ok {
		return errors.Reason("expected a dict, got %s", pyl.TypeName(v)).Err()
	}

	tests := map[string]map[string]interface{}{}
	add := func(testName string, def map[string]interface{}) error {
		if _, ok := tests[testName]; ok {
			return errors.Reason("duplicate test %q", testName).Err()
		}
		tests[testName] = def
		return nil
	}

	for _, basicName := range sortedKeys(d) {
		basic, err := r.basicSuite(basicName)
		if err != nil {
			return err
		}
		cfg, ok := d[basicName].(map[string]interface{})
		if !ok {
			return errors.Reason("%q: expected a dict, got %s", basicName, pyl.TypeName(d[basicName])).Err()
		}
		variantIDs, err := stringList(cfg["variants"])
		if err != nil {
			return errors.Annotate(err, "%q: variants", basicName).Err()
		}

		for _, testName := range basic.TestNames() {
			def := basic.Tests[testName]
			if len(variantIDs) == 0 {
				if err := add(testName, def); err != nil {
					return err
				}
				continue
			}
			for _, id := range variantIDs {
				variant, ok := r.variants[id]
				if !ok {
					return errors.Reason("%q: unknown variant %q", basicName, id).Err()
				}
				vName, vDef, err := applyVariant(testName, def, variant)
				if err != nil {
					return errors.Annotate(err, "test %q: variant %q", testName, id).Err()
				}
				if err := add(vName, vDef); err != nil {
					return err
				}
			}
		}
	}

	r.suites[name] = &TestSuite{Name: name, Tests: tests}
	r.expanded[name] = tests
	return nil
}

// applyVariant returns the name and definition of testName run with variant.
func applyVariant(testName string, def map[string]interface{}, variant *Variant) (string, map[string]interface{}, error) {
	ret := pyl.CloneDict(def)
	if _, ok := ret["test"]; !ok {
		ret["test"] = testName
	}
	ret["variant_id"] = variant.Identifier

	for key, v := range variant.Def {
		switch key {
		case "identifier", "description":
			continue

		case "args", "precommit_args", "non_precommit_args", "mixins":
			extra, err := stringList(v)
			if err != nil {
				return "", nil, errors.Annotate(err, "%s", key).Err()
			}
			existing, err := stringList(ret[key])
			if err != nil {
				return "", nil, errors.Annotate(err, "%s", key).Err()
			}
			ret[key] = toList(append(existing, extra...))

		case "swarming":
			sw, ok := v.(map[string]interface{})
			if !ok {
				return "", nil, errors.Reason("swarming: expected a dict, got %s", pyl.TypeName(v)).Err()
			}
			if err := mergeSwarming(ret, sw); err != nil {
				return "", nil, err
			}

		default:
			ret[key] = pyl.Clone(v)
		}
	}

	return testName + " " + variant.Identifier, ret, nil
}

// toList converts strings to a parsed list value.
func toList(ss []string) []interface{} {
	ret := make([]interface{}, len(ss))
	for i, s := range ss {
		ret[i] = s
	}
	return ret
}

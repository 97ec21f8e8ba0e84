// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildbot

import (
	"reflect"
	"strings"

	"go.chromium.org/luci/common/errors"

	"github.com/Lunarixus/angle/infra/pyl"
)

// argKeys are the test keys whose values are argument lists; mixins append to
// them instead of replacing them.
var argKeys = []string{"args", "precommit_args", "non_precommit_args"}

// applyMixin returns a copy of test with mixin applied.
//
// Swarming settings are merged, argument lists and "$mixin_append" lists are
// appended and every other key overwrites the test's value.
func applyMixin(test, mixin map[string]interface{}) (map[string]interface{}, error) {
	ret := pyl.CloneDict(test)
	m := pyl.CloneDict(mixin)

	if v, ok := m["swarming"]; ok {
		sw, ok := v.(map[string]interface{})
		if !ok {
			return nil, errors.Reason("swarming: expected a dict, got %s", pyl.TypeName(v)).Err()
		}
		if err := mergeSwarming(ret, sw); err != nil {
			return nil, err
		}
		delete(m, "swarming")
	}

	for _, key := range argKeys {
		v, ok := m[key]
		if !ok {
			continue
		}
		if err := appendList(ret, key, v); err != nil {
			return nil, err
		}
		delete(m, key)
	}

	if v, ok := m["$mixin_append"]; ok {
		app, ok := v.(map[string]interface{})
		if !ok {
			return nil, errors.Reason("$mixin_append: expected a dict, got %s", pyl.TypeName(v)).Err()
		}
		for key, items := range app {
			if err := appendList(ret, key, items); err != nil {
				return nil, errors.Annotate(err, "$mixin_append").Err()
			}
		}
		delete(m, "$mixin_append")
	}

	for k, v := range m {
		ret[k] = v
	}
	return ret, nil
}

// appendList appends the list v to the list at d[key], creating it if needed.
func appendList(d map[string]interface{}, key string, v interface{}) error {
	extra, ok := v.([]interface{})
	if !ok {
		return errors.Reason("%s: expected a list, got %s", key, pyl.TypeName(v)).Err()
	}
	var existing []interface{}
	if cur, ok := d[key]; ok {
		if existing, ok = cur.([]interface{}); !ok {
			return errors.Reason("%s: cannot append to %s", key, pyl.TypeName(cur)).Err()
		}
	}
	merged := make([]interface{}, 0, len(existing)+len(extra))
	d[key] = append(append(merged, existing...), extra...)
	return nil
}

// mergeSwarming merges sw into test["swarming"].
//
// "dimensions" are merged key by key, "dimension_sets" element by element,
// "named_caches" are appended and other keys are overwritten.
func mergeSwarming(test map[string]interface{}, sw map[string]interface{}) error {
	dst, ok := test["swarming"].(map[string]interface{})
	if !ok {
		if cur, exists := test["swarming"]; exists && cur != nil {
			return errors.Reason("swarming: expected a dict, got %s", pyl.TypeName(cur)).Err()
		}
		dst = map[string]interface{}{}
		test["swarming"] = dst
	}

	for key, v := range sw {
		v = pyl.Clone(v)
		switch key {
		case "dimensions":
			dims, ok := v.(map[string]interface{})
			if !ok {
				return errors.Reason("swarming.dimensions: expected a dict, got %s", pyl.TypeName(v)).Err()
			}
			cur, _ := dst[key].(map[string]interface{})
			if cur == nil {
				cur = map[string]interface{}{}
				dst[key] = cur
			}
			for k, dv := range dims {
				cur[k] = dv
			}

		case "dimension_sets":
			sets, ok := v.([]interface{})
			if !ok {
				return errors.Reason("swarming.dimension_sets: expected a list, got %s", pyl.TypeName(v)).Err()
			}
			cur, _ := dst[key].([]interface{})
			for i, sv := range sets {
				set, ok := sv.(map[string]interface{})
				if !ok {
					return errors.Reason("swarming.dimension_sets[%d]: expected a dict, got %s", i, pyl.TypeName(sv)).Err()
				}
				if i >= len(cur) {
					cur = append(cur, set)
					continue
				}
				curSet, ok := cur[i].(map[string]interface{})
				if !ok {
					return errors.Reason("swarming.dimension_sets[%d]: expected a dict, got %s", i, pyl.TypeName(cur[i])).Err()
				}
				for k, dv := range set {
					curSet[k] = dv
				}
			}
			dst[key] = cur

		case "named_caches":
			if err := appendList(dst, key, v); err != nil {
				return errors.Annotate(err, "swarming").Err()
			}

		default:
			dst[key] = v
		}
	}
	return nil
}

// dictionaryMerge recursively merges b into a and returns a.
//
// Nested dicts are merged, lists of strings are concatenated, other lists are
// merged element-wise and scalars in b replace those in a. A None value in b
// removes the key from a.
func dictionaryMerge(a, b map[string]interface{}, path ...string) (map[string]interface{}, error) {
	for key, bv := range b {
		keyPath := append(append([]string(nil), path...), key)
		av, ok := a[key]
		if !ok {
			if bv != nil {
				a[key] = pyl.Clone(bv)
			}
			continue
		}

		aDict, aIsDict := av.(map[string]interface{})
		bDict, bIsDict := bv.(map[string]interface{})
		aList, aIsList := av.([]interface{})
		bList, bIsList := bv.([]interface{})
		switch {
		case aIsDict && bIsDict:
			if _, err := dictionaryMerge(aDict, bDict, keyPath...); err != nil {
				return nil, err
			}

		case reflect.DeepEqual(av, bv):

		case aIsList && bIsList:
			if allStrings(aList) && allStrings(bList) {
				merged := make([]interface{}, 0, len(aList)+len(bList))
				a[key] = append(append(merged, aList...), pyl.Clone(bList).([]interface{})...)
				continue
			}
			if len(bList) > len(aList) {
				return nil, errors.Reason("cannot merge lists at %s: %d elements into %d", strings.Join(keyPath, "."), len(bList), len(aList)).Err()
			}
			for i, be := range bList {
				ad, aok := aList[i].(map[string]interface{})
				bd, bok := be.(map[string]interface{})
				if !aok || !bok {
					return nil, errors.Reason("cannot merge lists at %s: element %d is not a dict", strings.Join(keyPath, "."), i).Err()
				}
				if _, err := dictionaryMerge(ad, bd, keyPath...); err != nil {
					return nil, err
				}
			}

		case bv == nil:
			delete(a, key)

		default:
			a[key] = pyl.Clone(bv)
		}
	}
	return a, nil
}

func allStrings(items []interface{}) bool {
	for _, e := range items {
		if _, ok := e.(string); !ok {
			return false
		}
	}
	return true
}

// applyReplacements replaces or removes flags in test argument lists.
//
// replacements maps an argument key, e.g. "args", to a dict of flag to new
// value. A None value removes the flag. Both "--flag=value" and
// "--flag value" forms are recognized.
func applyReplacements(test, replacements map[string]interface{}) error {
	for key, rv := range replacements {
		flags, ok := rv.(map[string]interface{})
		if !ok {
			return errors.Reason("replacements: %s: expected a dict, got %s", key, pyl.TypeName(rv)).Err()
		}
		args, ok := test[key].([]interface{})
		if !ok {
			continue
		}

		out := make([]interface{}, 0, len(args))
		for i := 0; i < len(args); i++ {
			arg, _ := args[i].(string)
			flag, val, matched := matchFlag(arg, flags)
			if !matched {
				out = append(out, args[i])
				continue
			}
			newVal, isString := val.(string)
			if val != nil && !isString {
				return errors.Reason("replacements: %s: %s: expected a string or None, got %s", key, flag, pyl.TypeName(val)).Err()
			}
			if strings.HasPrefix(arg, flag+"=") {
				if val != nil {
					out = append(out, flag+"="+newVal)
				}
				continue
			}
			// "--flag value" form: the value is the next argument.
			if val != nil {
				out = append(out, flag, newVal)
			}
			i++
		}
		test[key] = out
	}
	return nil
}

func matchFlag(arg string, flags map[string]interface{}) (flag string, val interface{}, ok bool) {
	for f, v := range flags {
		if arg == f || strings.HasPrefix(arg, f+"=") {
			return f, v, true
		}
	}
	return "", nil, false
}

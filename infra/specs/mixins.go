// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package specs

import (
	"fmt"
	"sort"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/Lunarixus/angle/infra/pyl"
)

// AdditionalMixins are mixins defined locally. They are always written to
// mixins.pyl and take precedence over the upstream catalog.
//
// Add custom mixins here.
var AdditionalMixins = map[string]interface{}{
	"angle_skia_gold_test": map[string]interface{}{
		"args": []interface{}{
			"--git-revision=${got_angle_revision}",
			// BREAK GLASS IN CASE OF EMERGENCY
			// Uncommenting this argument will bypass all interactions with Skia
			// Gold in any tests that use it. This is meant as a temporary
			// emergency stop in case of a Gold outage that's affecting the bots.
			// "--bypass-skia-gold-functionality",
		},
		"precommit_args": []interface{}{
			"--gerrit-issue=${patch_issue}",
			"--gerrit-patchset=${patch_set}",
			"--buildbucket-id=${buildbucket_build_id}",
			// This normally evaluates to "0", but will evaluate to "1" if
			// "Use-Permissive-Angle-Pixel-Comparison: True" is present as a
			// CL footer.
			"--use-permissive-pixel-comparison=${use_permissive_angle_pixel_comparison}",
		},
	},
	"timeout_120m": map[string]interface{}{
		"swarming": map[string]interface{}{
			"hard_timeout": int64(7200),
			"io_timeout":   int64(300),
		},
	},
}

// UnknownMixin is attached to errors about mixins referenced by the
// configuration but defined neither in AdditionalMixins nor upstream.
var UnknownMixin = errors.BoolTag{Key: errors.NewTagKey("unknown mixin")}

// CollectMixins returns the names of all mixins referenced by waterfalls,
// machines and tests of g.
//
// g must be loaded and resolved. Compound suites are skipped: they are
// compositions of basic suites, which are visited on their own.
func CollectMixins(g Generator) (stringset.Set, error) {
	seen := stringset.New(0)
	for _, w := range g.Waterfalls() {
		seen.AddAll(w.Mixins)
		for _, m := range w.Machines {
			seen.AddAll(m.Mixins)
		}
	}
	suites := g.TestSuites()
	suiteNames := make([]string, 0, len(suites))
	for name := range suites {
		suiteNames = append(suiteNames, name)
	}
	sort.Strings(suiteNames)
	for _, suiteName := range suiteNames {
		suite := suites[suiteName]
		if suite.IsComposition() {
			continue
		}
		for _, testName := range suite.TestNames() {
			names, err := mixinNames(suite.Tests[testName]["mixins"])
			if err != nil {
				return nil, errors.Annotate(err, "test %q of suite %q", testName, suiteName).Err()
			}
			seen.AddAll(names)
		}
	}
	return seen, nil
}

func mixinNames(v interface{}) ([]string, error) {
	var items []interface{}
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		items = v
	case pyl.Tuple:
		items = v
	default:
		return nil, errors.Reason("expected a list of mixin names, got %s", pyl.TypeName(v)).Err()
	}
	ret := make([]string, 0, len(items))
	for _, e := range items {
		s, ok := e.(string)
		if !ok {
			return nil, errors.Reason("expected a list of mixin names, found %s", pyl.TypeName(e)).Err()
		}
		ret = append(ret, s)
	}
	return ret, nil
}

// ResolveMixins returns the definitions of the referenced mixins together
// with all of AdditionalMixins.
//
// Referenced names missing from AdditionalMixins are looked up in upstream.
// If any is missing there too, the returned error is tagged with
// UnknownMixin and names all of them.
func ResolveMixins(referenced stringset.Set, upstream map[string]interface{}) (map[string]interface{}, error) {
	found := pyl.CloneDict(AdditionalMixins)

	var unknown []string
	for _, name := range referenced.ToSortedSlice() {
		if _, ok := found[name]; ok {
			continue
		}
		def, ok := upstream[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		found[name] = pyl.Clone(def)
	}

	if len(unknown) > 0 {
		return nil, errors.Reason("error with %s mixin: not defined locally nor in the upstream mixins.pyl", quoteAll(unknown)).Tag(UnknownMixin).Err()
	}
	return found, nil
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildbot

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

func TestApplyMixin(t *testing.T) {
	t.Parallel()

	Convey(`applyMixin`, t, func() {
		test := map[string]interface{}{
			"name": "angle_end2end_tests",
			"args": []interface{}{"--a"},
			"swarming": map[string]interface{}{
				"dimensions": map[string]interface{}{"os": "Ubuntu"},
				"dimension_sets": []interface{}{
					map[string]interface{}{"gpu": "8086"},
				},
				"named_caches": []interface{}{"x"},
			},
		}

		Convey(`merges swarming and appends args`, func() {
			out, err := applyMixin(test, map[string]interface{}{
				"args":           []interface{}{"--b"},
				"precommit_args": []interface{}{"--c"},
				"swarming": map[string]interface{}{
					"dimensions": map[string]interface{}{"pool": "gpu"},
					"dimension_sets": []interface{}{
						map[string]interface{}{"os": "Mac"},
						map[string]interface{}{"os": "Win"},
					},
					"named_caches": []interface{}{"y"},
					"shards":       int64(4),
				},
				"ci_only": true,
			})
			So(err, ShouldBeNil)
			So(out, ShouldResemble, map[string]interface{}{
				"name":           "angle_end2end_tests",
				"args":           []interface{}{"--a", "--b"},
				"precommit_args": []interface{}{"--c"},
				"ci_only":        true,
				"swarming": map[string]interface{}{
					"dimensions": map[string]interface{}{"os": "Ubuntu", "pool": "gpu"},
					"dimension_sets": []interface{}{
						map[string]interface{}{"gpu": "8086", "os": "Mac"},
						map[string]interface{}{"os": "Win"},
					},
					"named_caches": []interface{}{"x", "y"},
					"shards":       int64(4),
				},
			})

			// The input is not modified.
			So(test["args"], ShouldResemble, []interface{}{"--a"})
			So(test["swarming"].(map[string]interface{})["dimensions"], ShouldResemble, map[string]interface{}{"os": "Ubuntu"})
		})

		Convey(`$mixin_append`, func() {
			out, err := applyMixin(test, map[string]interface{}{
				"$mixin_append": map[string]interface{}{
					"args":             []interface{}{"--z"},
					"additional_flags": []interface{}{"q"},
				},
			})
			So(err, ShouldBeNil)
			So(out["args"], ShouldResemble, []interface{}{"--a", "--z"})
			So(out["additional_flags"], ShouldResemble, []interface{}{"q"})
			So(out, ShouldNotContainKey, "$mixin_append")
		})

		Convey(`type errors`, func() {
			_, err := applyMixin(test, map[string]interface{}{"args": "--b"})
			So(err, ShouldErrLike, "args: expected a list, got str")

			_, err = applyMixin(test, map[string]interface{}{"swarming": []interface{}{}})
			So(err, ShouldErrLike, "swarming: expected a dict, got list")
		})
	})
}

func TestDictionaryMerge(t *testing.T) {
	t.Parallel()

	Convey(`dictionaryMerge`, t, func() {
		a := map[string]interface{}{
			"args": []interface{}{"--a"},
			"swarming": map[string]interface{}{
				"shards":     int64(1),
				"dimensions": map[string]interface{}{"os": "Ubuntu"},
				"dimension_sets": []interface{}{
					map[string]interface{}{"gpu": "8086"},
				},
			},
			"ci_only": true,
		}

		Convey(`merges recursively`, func() {
			out, err := dictionaryMerge(a, map[string]interface{}{
				"args": []interface{}{"--b"},
				"swarming": map[string]interface{}{
					"shards":     int64(3),
					"dimensions": map[string]interface{}{"pool": "gpu"},
					"dimension_sets": []interface{}{
						map[string]interface{}{"os": "Mac"},
					},
				},
				"ci_only":     nil,
				"experiments": int64(100),
			})
			So(err, ShouldBeNil)
			So(out, ShouldResemble, map[string]interface{}{
				"args": []interface{}{"--a", "--b"},
				"swarming": map[string]interface{}{
					"shards":     int64(3),
					"dimensions": map[string]interface{}{"os": "Ubuntu", "pool": "gpu"},
					"dimension_sets": []interface{}{
						map[string]interface{}{"gpu": "8086", "os": "Mac"},
					},
				},
				"experiments": int64(100),
			})
		})

		Convey(`equal values are kept`, func() {
			out, err := dictionaryMerge(a, map[string]interface{}{
				"args": []interface{}{"--a"},
			})
			So(err, ShouldBeNil)
			So(out["args"], ShouldResemble, []interface{}{"--a"})
		})

		Convey(`longer lists of dicts fail`, func() {
			_, err := dictionaryMerge(a, map[string]interface{}{
				"swarming": map[string]interface{}{
					"dimension_sets": []interface{}{
						map[string]interface{}{},
						map[string]interface{}{},
					},
				},
			})
			So(err, ShouldErrLike, "cannot merge lists at swarming.dimension_sets: 2 elements into 1")
		})
	})
}

func TestApplyReplacements(t *testing.T) {
	t.Parallel()

	Convey(`applyReplacements`, t, func() {
		test := map[string]interface{}{
			"args": []interface{}{
				"--use-angle=vulkan",
				"--shard",
				"1",
				"--verbose",
			},
		}

		Convey(`replaces both forms`, func() {
			err := applyReplacements(test, map[string]interface{}{
				"args": map[string]interface{}{
					"--use-angle": "gl",
					"--shard":     "2",
				},
			})
			So(err, ShouldBeNil)
			So(test["args"], ShouldResemble, []interface{}{
				"--use-angle=gl",
				"--shard",
				"2",
				"--verbose",
			})
		})

		Convey(`removes flags`, func() {
			err := applyReplacements(test, map[string]interface{}{
				"args": map[string]interface{}{
					"--use-angle": nil,
					"--shard":     nil,
				},
			})
			So(err, ShouldBeNil)
			So(test["args"], ShouldResemble, []interface{}{"--verbose"})
		})

		Convey(`ignores missing keys`, func() {
			err := applyReplacements(test, map[string]interface{}{
				"precommit_args": map[string]interface{}{"--x": "y"},
			})
			So(err, ShouldBeNil)
			So(test, ShouldNotContainKey, "precommit_args")
		})

		Convey(`rejects non-string values`, func() {
			err := applyReplacements(test, map[string]interface{}{
				"args": map[string]interface{}{"--shard": int64(2)},
			})
			So(err, ShouldErrLike, "expected a string or None, got int")
		})
	})
}

func TestApplyVariant(t *testing.T) {
	t.Parallel()

	Convey(`applyVariant`, t, func() {
		def := map[string]interface{}{
			"args":   []interface{}{"--a"},
			"mixins": []interface{}{"timeout_120m"},
			"swarming": map[string]interface{}{
				"dimensions": map[string]interface{}{"os": "Ubuntu"},
			},
		}
		v := &Variant{
			ID:         "vulkan_swiftshader",
			Identifier: "vulkan_swiftshader",
			Def: map[string]interface{}{
				"identifier":  "vulkan_swiftshader",
				"description": "SwiftShader",
				"args":        []interface{}{"--use-angle=swiftshader"},
				"mixins":      []interface{}{"isolate_profile_data"},
				"swarming": map[string]interface{}{
					"dimensions": map[string]interface{}{"gpu": "none"},
				},
				"ci_only": true,
			},
		}

		name, out, err := applyVariant("angle_end2end_tests", def, v)
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "angle_end2end_tests vulkan_swiftshader")
		So(out, ShouldResemble, map[string]interface{}{
			"test":       "angle_end2end_tests",
			"variant_id": "vulkan_swiftshader",
			"args":       []interface{}{"--a", "--use-angle=swiftshader"},
			"mixins":     []interface{}{"timeout_120m", "isolate_profile_data"},
			"swarming": map[string]interface{}{
				"dimensions": map[string]interface{}{"os": "Ubuntu", "gpu": "none"},
			},
			"ci_only": true,
		})
		So(def["args"], ShouldResemble, []interface{}{"--a"})
	})
}

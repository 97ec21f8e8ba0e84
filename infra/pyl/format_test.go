// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pyl

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	Convey(`Format`, t, func() {
		Convey(`short values stay on one line`, func() {
			So(Format(map[string]interface{}{
				"b": []interface{}{int64(1), int64(2)},
				"a": "x",
			}), ShouldEqual, `{'a': 'x', 'b': [1, 2]}`)
		})

		Convey(`scalars`, func() {
			So(Format(map[string]interface{}{
				"f": 1.5,
				"g": 1e20,
				"h": nil,
				"i": true,
				"j": "it's",
				"k": 1e-7,
				"l": 2.0,
			}), ShouldEqual, `{'f': 1.5, 'g': 1e+20, 'h': None, 'i': True, 'j': "it's", 'k': 1e-07, 'l': 2.0}`)
		})

		Convey(`nested dicts and lists`, func() {
			v := map[string]interface{}{
				"angle_skia_gold_test": map[string]interface{}{
					"args": []interface{}{"--git-revision=${got_angle_revision}"},
					"precommit_args": []interface{}{
						"--gerrit-issue=${patch_issue}",
						"--gerrit-patchset=${patch_set}",
						"--buildbucket-id=${buildbucket_build_id}",
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
			want := strings.Join([]string{
				`{ 'angle_skia_gold_test': { 'args': ['--git-revision=${got_angle_revision}'],`,
				`                            'precommit_args': [ '--gerrit-issue=${patch_issue}',`,
				`                                                '--gerrit-patchset=${patch_set}',`,
				`                                                '--buildbucket-id=${buildbucket_build_id}',`,
				`                                                '--use-permissive-pixel-comparison=${use_permissive_angle_pixel_comparison}']},`,
				`  'timeout_120m': {'swarming': {'hard_timeout': 7200, 'io_timeout': 300}}}`,
			}, "\n")
			got := Format(v)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Format mismatch (-want +got):\n%s", diff)
			}
			So(got, ShouldEqual, want)
		})

		Convey(`tuples`, func() {
			v := map[string]interface{}{
				"t": Tuple{int64(1)},
				"u": Tuple{
					"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
					"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
				},
			}
			So(Format(v), ShouldEqual, strings.Join([]string{
				`{ 't': (1,),`,
				`  'u': ( 'aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa',`,
				`         'bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb')}`,
			}, "\n"))
		})

		Convey(`long strings are split at word boundaries`, func() {
			v := map[string]interface{}{"key": strings.Repeat("word ", 30)}
			So(Format(v), ShouldEqual, strings.Join([]string{
				`{ 'key': 'word word word word word word word word word word word word word '`,
				`         'word word word word word word word word word word word word word '`,
				`         'word word word word '}`,
			}, "\n"))
		})

		Convey(`long top-level strings are parenthesized`, func() {
			So(Format(strings.Repeat("alpha beta gamma delta ", 5)), ShouldEqual, strings.Join([]string{
				`('alpha beta gamma delta alpha beta gamma delta alpha beta gamma delta alpha '`,
				` 'beta gamma delta alpha beta gamma delta ')`,
			}, "\n"))
		})

		Convey(`output parses back`, func() {
			v := map[string]interface{}{
				"key":  strings.Repeat("word ", 30),
				"list": []interface{}{strings.Repeat("x", 90), int64(-3), Tuple{}},
			}
			parsed, err := Parse("formatted", []byte(Format(v)))
			So(err, ShouldBeNil)
			So(parsed, ShouldResemble, v)
		})
	})

	Convey(`Repr`, t, func() {
		So(Repr("plain"), ShouldEqual, `'plain'`)
		So(Repr(`both ' and "`), ShouldEqual, `'both \' and "'`)
		So(Repr("tab\there\n"), ShouldEqual, `'tab\there\n'`)
		So(Repr("\x00\x7f"), ShouldEqual, `'\x00\x7f'`)
		So(Repr("café"), ShouldEqual, "'café'")
		So(Repr("\u00a0"), ShouldEqual, `'\xa0'`)
		So(Repr(Tuple{}), ShouldEqual, `()`)
		So(Repr([]interface{}{}), ShouldEqual, `[]`)
		So(Repr(map[string]interface{}{}), ShouldEqual, `{}`)
		So(Repr(int64(-42)), ShouldEqual, `-42`)
	})
}

func TestSplitHelpers(t *testing.T) {
	t.Parallel()

	Convey(`splitLinesKeepEnds`, t, func() {
		So(splitLinesKeepEnds("a\nb\r\nc\rd"), ShouldResemble, []string{"a\n", "b\r\n", "c\r", "d"})
		So(splitLinesKeepEnds("a\n"), ShouldResemble, []string{"a\n"})
	})

	Convey(`splitWords`, t, func() {
		So(splitWords("ab  cd e"), ShouldResemble, []string{"ab  ", "cd ", "e"})
		So(splitWords("  lead"), ShouldResemble, []string{"  ", "lead"})
	})
}

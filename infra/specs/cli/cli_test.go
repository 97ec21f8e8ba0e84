// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cli

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/otiai10/copy"

	. "github.com/smartystreets/goconvey/convey"
)

// captureStdout runs f with os.Stdout redirected to a file and returns what
// was printed.
func captureStdout(t *testing.T, f func() int) (string, int) {
	out, err := ioutil.TempFile(t.TempDir(), "stdout")
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	orig := os.Stdout
	os.Stdout = out
	code := func() int {
		defer func() { os.Stdout = orig }()
		return f()
	}()

	printed, err := ioutil.ReadFile(out.Name())
	if err != nil {
		t.Fatal(err)
	}
	return string(printed), code
}

// stageCheckout copies the specs testdata checkout into a temp dir and returns
// its specs directory.
func stageCheckout(t *testing.T) string {
	root := t.TempDir()
	if err := copy.Copy(filepath.Join("..", "testdata", "src"), root); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(root, "infra", "specs")
}

func TestCLI(t *testing.T) {
	Convey(`Main`, t, func() {
		specsDir := stageCheckout(t)

		Convey(`inputs`, func() {
			out, code := captureStdout(t, func() int {
				return Main([]string{"inputs", "-specs-dir", "/src/infra/specs"})
			})
			So(code, ShouldEqual, 0)
			So(out, ShouldEqual, "test_suite_exceptions.pyl,test_suites.pyl,variants.pyl,waterfalls.pyl,"+
				"/src/testing/buildbot/generate_buildbot_json.py,/src/testing/buildbot/mixins.pyl\n")
		})

		Convey(`outputs`, func() {
			out, code := captureStdout(t, func() int {
				return Main([]string{"outputs", "-specs-dir", specsDir})
			})
			So(code, ShouldEqual, 0)
			So(out, ShouldEqual, "angle.json,mixins.pyl\n")

			Convey(`do not read description files`, func() {
				So(os.Remove(filepath.Join(specsDir, "waterfalls.pyl")), ShouldBeNil)
				again, code := captureStdout(t, func() int {
					return Main([]string{"outputs", "-specs-dir", specsDir})
				})
				So(code, ShouldEqual, 0)
				So(again, ShouldEqual, out)
			})
		})

		Convey(`outputs from the config file`, func() {
			cfg := "waterfall_outputs:\n- angle.json\n- angle.fyi.json\nupstream_dir: ../chromium/testing/buildbot\n"
			So(ioutil.WriteFile(filepath.Join(specsDir, configFileName), []byte(cfg), 0644), ShouldBeNil)

			out, code := captureStdout(t, func() int {
				return Main([]string{"outputs", "-specs-dir", specsDir})
			})
			So(code, ShouldEqual, 0)
			So(out, ShouldEqual, "angle.json,angle.fyi.json,mixins.pyl\n")

			out, code = captureStdout(t, func() int {
				return Main([]string{"inputs", "-specs-dir", specsDir})
			})
			So(code, ShouldEqual, 0)
			So(out, ShouldContainSubstring, filepath.Join(specsDir, "..", "chromium", "testing", "buildbot", "mixins.pyl"))
		})

		Convey(`invalid config`, func() {
			So(ioutil.WriteFile(filepath.Join(specsDir, configFileName), []byte("upstream: x\n"), 0644), ShouldBeNil)
			_, code := captureStdout(t, func() int {
				return Main([]string{"outputs", "-specs-dir", specsDir})
			})
			So(code, ShouldEqual, 1)
		})

		Convey(`positional arguments are rejected`, func() {
			_, code := captureStdout(t, func() int {
				return Main([]string{"inputs", "-specs-dir", specsDir, "extra"})
			})
			So(code, ShouldEqual, 1)
		})

		Convey(`generate and verify`, func() {
			So(Main([]string{"-specs-dir", specsDir}), ShouldEqual, 0)
			So(Main([]string{"generate", "-specs-dir", specsDir}), ShouldEqual, 0)
			So(Main([]string{"--verify-only", "-specs-dir", specsDir}), ShouldEqual, 0)

			anglePath := filepath.Join(specsDir, "angle.json")
			angle, err := ioutil.ReadFile(anglePath)
			So(err, ShouldBeNil)
			angle[len(angle)-2] = ']'
			So(ioutil.WriteFile(anglePath, angle, 0644), ShouldBeNil)

			So(Main([]string{"-specs-dir", specsDir, "-verify-only"}), ShouldEqual, 1)
			mutated, err := ioutil.ReadFile(anglePath)
			So(err, ShouldBeNil)
			So(mutated, ShouldResemble, angle)
		})

		Convey(`generate fails on unknown mixins`, func() {
			err := ioutil.WriteFile(filepath.Join(specsDir, "waterfalls.pyl"), []byte(`[
				{'name': 'angle', 'mixins': ['win10_intel'], 'machines': {'linux-test': {}, 'linux-trace': {}}},
			]`), 0644)
			So(err, ShouldBeNil)
			So(Main([]string{"-specs-dir", specsDir}), ShouldEqual, 1)
			_, err = os.Stat(filepath.Join(specsDir, "mixins.pyl"))
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})
}

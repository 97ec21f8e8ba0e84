// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cli

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

func TestConfig(t *testing.T) {
	Convey(`configFilename`, t, func() {
		So(os.Unsetenv(configEnvVar), ShouldBeNil)

		path, explicit := configFilename("infra/specs", "")
		So(path, ShouldEqual, filepath.Join("infra", "specs", "specgen.yaml"))
		So(explicit, ShouldBeFalse)

		path, explicit = configFilename("infra/specs", "my.yaml")
		So(path, ShouldEqual, "my.yaml")
		So(explicit, ShouldBeTrue)

		So(os.Setenv(configEnvVar, "env.yaml"), ShouldBeNil)
		defer os.Unsetenv(configEnvVar)
		path, explicit = configFilename("infra/specs", "")
		So(path, ShouldEqual, "env.yaml")
		So(explicit, ShouldBeTrue)

		path, _ = configFilename("infra/specs", "my.yaml")
		So(path, ShouldEqual, "my.yaml")
	})

	Convey(`loadConfig`, t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, configFileName)

		Convey(`missing implicit file`, func() {
			cfg, err := loadConfig(ctx, path, false)
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, config{})
		})

		Convey(`missing explicit file`, func() {
			_, err := loadConfig(ctx, path, true)
			So(err, ShouldErrLike, "failed reading config")
		})

		Convey(`valid`, func() {
			So(ioutil.WriteFile(path, []byte(`
upstream_dir: /chromium/src/testing/buildbot
display_dir: specs
script_name: gen
waterfall_outputs: [angle.json, angle.fyi.json]
`), 0644), ShouldBeNil)
			cfg, err := loadConfig(ctx, path, false)
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, config{
				UpstreamDir:      "/chromium/src/testing/buildbot",
				DisplayDir:       "specs",
				ScriptName:       "gen",
				WaterfallOutputs: []string{"angle.json", "angle.fyi.json"},
			})
		})

		Convey(`unknown keys`, func() {
			So(ioutil.WriteFile(path, []byte("upstream: x\n"), 0644), ShouldBeNil)
			_, err := loadConfig(ctx, path, false)
			So(err, ShouldErrLike, "error parsing")
		})
	})

	Convey(`options`, t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		So(ioutil.WriteFile(filepath.Join(dir, configFileName), []byte("upstream_dir: ../up\ndisplay_dir: specs\n"), 0644), ShouldBeNil)

		r := &baseCommandRun{specsDir: dir}
		opts, err := r.options(ctx)
		So(err, ShouldBeNil)
		So(opts.SpecsDir, ShouldEqual, dir)
		So(opts.UpstreamDir, ShouldEqual, filepath.Join(filepath.Dir(dir), "up"))
		So(opts.DisplayDir, ShouldEqual, "specs")

		r.upstreamDir = "/flag/wins"
		opts, err = r.options(ctx)
		So(err, ShouldBeNil)
		So(opts.UpstreamDir, ShouldEqual, "/flag/wins")
	})
}

// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cli

import (
	"context"
	"path/filepath"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/Lunarixus/angle/infra/specs"
)

// defaultSpecsDir is the specs directory relative to the root of an ANGLE
// checkout.
const defaultSpecsDir = "infra/specs"

// baseCommandRun holds the flags shared by all subcommands.
type baseCommandRun struct {
	subcommands.CommandRunBase
	specsDir    string
	upstreamDir string
	configFile  string
	verbose     bool
}

func (r *baseCommandRun) RegisterBaseFlags() {
	r.Flags.StringVar(&r.specsDir, "specs-dir", defaultSpecsDir, text.Doc(`
		Directory with waterfalls.pyl and the other description files.
		Generated files are written there.
	`))
	r.Flags.StringVar(&r.upstreamDir, "upstream-dir", "", text.Doc(`
		Chromium's testing/buildbot directory, whose mixins.pyl is the mixin
		catalog. Defaults to upstream_dir of the config file, then to
		../../testing/buildbot relative to -specs-dir.
	`))
	r.Flags.StringVar(&r.configFile, "config", "", text.Doc(`
		YAML file with defaults. Defaults to $`+configEnvVar+`, then to
		`+configFileName+` in -specs-dir if present.
	`))
	r.Flags.BoolVar(&r.verbose, "v", false, "Log debug messages.")
}

// initContext applies the -v flag to the logging level.
func (r *baseCommandRun) initContext(ctx context.Context) context.Context {
	if r.verbose {
		return logging.SetLevel(ctx, logging.Debug)
	}
	return ctx
}

// options combines the config file and the flags into specs.Options.
func (r *baseCommandRun) options(ctx context.Context) (specs.Options, error) {
	path, explicit := configFilename(r.specsDir, r.configFile)
	cfg, err := loadConfig(ctx, path, explicit)
	if err != nil {
		return specs.Options{}, err
	}

	opts := specs.Options{
		SpecsDir:         r.specsDir,
		UpstreamDir:      r.upstreamDir,
		DisplayDir:       cfg.DisplayDir,
		ScriptName:       cfg.ScriptName,
		WaterfallOutputs: cfg.WaterfallOutputs,
	}
	if opts.UpstreamDir == "" && cfg.UpstreamDir != "" {
		opts.UpstreamDir = cfg.UpstreamDir
		if !filepath.IsAbs(opts.UpstreamDir) {
			opts.UpstreamDir = filepath.Join(r.specsDir, opts.UpstreamDir)
		}
	}
	return opts, nil
}

func (r *baseCommandRun) done(ctx context.Context, err error) int {
	if err != nil {
		errors.Log(ctx, err)
		return 1
	}
	return 0
}

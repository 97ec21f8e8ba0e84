// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package specs generates ANGLE's buildbot test specs.
//
// It reads the .pyl descriptions in infra/specs, writes mixins.pyl with every
// mixin they reference, then has a buildbot generator write one JSON file
// per waterfall. In verify mode nothing is written; the generated content is
// compared against the checked-in files instead.
package specs

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kylelemons/godebug/diff"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/filesystem"

	"github.com/Lunarixus/angle/infra/buildbot"
)

// Generator produces buildbot JSON test specs from a directory of .pyl files.
//
// *buildbot.Generator implements it.
type Generator interface {
	// LoadConfigurationFiles reads the .pyl files.
	LoadConfigurationFiles(ctx context.Context) error
	// ResolveConfigurationFiles resolves compound suites and variants.
	ResolveConfigurationFiles(ctx context.Context) error
	Waterfalls() []*buildbot.Waterfall
	TestSuites() map[string]*buildbot.TestSuite
	Mixins() map[string]interface{}
	// Main regenerates and writes the JSON file of every waterfall.
	Main(ctx context.Context) error
}

var _ Generator = (*buildbot.Generator)(nil)

// Dirty is attached to errors reporting that a checked-in file does not match
// the generated content.
var Dirty = errors.BoolTag{Key: errors.NewTagKey("dirty")}

// Defaults for Options.
const (
	DefaultDisplayDir = "infra/specs"
	DefaultScriptName = "generate_test_spec_json"
)

// DefaultWaterfallOutputs are the JSON files declared as outputs by default.
var DefaultWaterfallOutputs = []string{"angle.json"}

// Options configure Run.
type Options struct {
	// SpecsDir is the directory with the local .pyl files and outputs.
	SpecsDir string
	// UpstreamDir is the upstream testing/buildbot directory. Its mixins.pyl
	// is the mixin catalog.
	UpstreamDir string
	// DisplayDir is how SpecsDir is named in messages.
	DisplayDir string
	// ScriptName is the generator name written in the mixins.pyl header.
	ScriptName string
	// WaterfallOutputs are the declared JSON outputs.
	WaterfallOutputs []string
	// VerifyOnly compares generated content with the existing files instead
	// of writing them.
	VerifyOnly bool

	// NewGenerator creates a Generator. Defaults to buildbot.New.
	NewGenerator func(opts buildbot.Options) Generator
}

func (o Options) withDefaults() Options {
	if o.UpstreamDir == "" {
		o.UpstreamDir = filepath.Join(o.SpecsDir, "..", "..", "testing", "buildbot")
	}
	if o.DisplayDir == "" {
		o.DisplayDir = DefaultDisplayDir
	}
	if o.ScriptName == "" {
		o.ScriptName = DefaultScriptName
	}
	if len(o.WaterfallOutputs) == 0 {
		o.WaterfallOutputs = DefaultWaterfallOutputs
	}
	if o.NewGenerator == nil {
		o.NewGenerator = func(opts buildbot.Options) Generator {
			return buildbot.New(opts)
		}
	}
	return o
}

// Inputs returns the files read by Run.
func Inputs(opts Options) []string {
	opts = opts.withDefaults()
	upstream := opts.UpstreamDir
	if abs, err := filepath.Abs(upstream); err == nil {
		upstream = abs
	}
	return []string{
		buildbot.TestSuiteExceptionsFile,
		buildbot.TestSuitesFile,
		buildbot.VariantsFile,
		buildbot.WaterfallsFile,
		filepath.Join(upstream, "generate_buildbot_json.py"),
		filepath.Join(upstream, buildbot.MixinsFile),
	}
}

// Outputs returns the files written by Run.
func Outputs(opts Options) []string {
	opts = opts.withDefaults()
	ret := append([]string(nil), opts.WaterfallOutputs...)
	return append(ret, buildbot.MixinsFile)
}

// Run generates mixins.pyl and the waterfall JSON files, or verifies them if
// opts.VerifyOnly is set.
//
// An unknown mixin fails the run before any file is written; the error is
// tagged with UnknownMixin. Files that do not match the generated content are
// reported with an error tagged with Dirty.
func Run(ctx context.Context, opts Options) (err error) {
	opts = opts.withDefaults()
	if !opts.VerifyOnly {
		return run(ctx, opts, "")
	}

	scratch, err := os.MkdirTemp("", "generate_test_spec_json")
	if err != nil {
		return errors.Annotate(err, "failed to create a scratch dir").Err()
	}
	defer func() {
		if rmErr := filesystem.RemoveAll(scratch); rmErr != nil && err == nil {
			err = errors.Annotate(rmErr, "failed to remove %s", scratch).Err()
		}
	}()
	return run(ctx, opts, scratch)
}

func run(ctx context.Context, opts Options, scratch string) error {
	upstream := opts.NewGenerator(buildbot.Options{PylFilesDir: opts.UpstreamDir})
	if err := upstream.LoadConfigurationFiles(ctx); err != nil {
		return errors.Annotate(err, "failed to load upstream configuration").Err()
	}

	local := opts.NewGenerator(buildbot.Options{PylFilesDir: opts.SpecsDir, OutputDir: scratch})
	if err := local.LoadConfigurationFiles(ctx); err != nil {
		return errors.Annotate(err, "failed to load configuration").Err()
	}
	if err := local.ResolveConfigurationFiles(ctx); err != nil {
		return errors.Annotate(err, "failed to resolve configuration").Err()
	}

	referenced, err := CollectMixins(local)
	if err != nil {
		return errors.Annotate(err, "failed to collect mixins").Err()
	}
	mixins, err := ResolveMixins(referenced, upstream.Mixins())
	if err != nil {
		return err
	}

	content := RenderMixins(opts.ScriptName, mixins)
	clean, err := writeOrVerifyFile(ctx, filepath.Join(opts.SpecsDir, buildbot.MixinsFile), content, opts.VerifyOnly)
	switch {
	case err != nil:
		return err
	case !clean:
		return errors.Reason("%s dirty", displayPath(opts, buildbot.MixinsFile)).Tag(Dirty).Err()
	}

	if err := local.Main(ctx); err != nil {
		return errors.Annotate(err, "buildbot (pyl to json) generation failed").Err()
	}
	if !opts.VerifyOnly {
		return nil
	}

	var dirty []string
	for _, w := range local.Waterfalls() {
		name := buildbot.OutputFile(w.Name)
		generated, err := ioutil.ReadFile(filepath.Join(scratch, name))
		if err != nil {
			return errors.Annotate(err, "failed to read generated %s", name).Err()
		}
		clean, err := writeOrVerifyFile(ctx, filepath.Join(opts.SpecsDir, name), generated, true)
		switch {
		case err != nil:
			return err
		case !clean:
			logging.Errorf(ctx, "%s dirty", displayPath(opts, name))
			dirty = append(dirty, displayPath(opts, name))
		}
	}
	if len(dirty) > 0 {
		return errors.Reason("%s dirty", strings.Join(dirty, ", ")).Tag(Dirty).Err()
	}
	return nil
}

func displayPath(opts Options, name string) string {
	return opts.DisplayDir + "/" + name
}

// writeOrVerifyFile writes content to path or, if verifyOnly, reports
// whether path already has exactly this content. A missing file does not
// match.
func writeOrVerifyFile(ctx context.Context, path string, content []byte, verifyOnly bool) (bool, error) {
	if !verifyOnly {
		if err := ioutil.WriteFile(path, content, 0644); err != nil {
			return false, errors.Annotate(err, "failed to write %s", path).Err()
		}
		logging.Debugf(ctx, "wrote %s (%s)", path, humanize.Bytes(uint64(len(content))))
		return true, nil
	}

	existing, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logging.Debugf(ctx, "%s does not exist", path)
		return false, nil
	case err != nil:
		return false, errors.Annotate(err, "failed to read %s", path).Err()
	case bytes.Equal(existing, content):
		return true, nil
	}
	logging.Debugf(ctx, "%s differs from the generated content:\n%s", path, diff.Diff(string(existing), string(content)))
	return false, nil
}

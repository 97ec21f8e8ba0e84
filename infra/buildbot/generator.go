// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package buildbot generates the buildbot JSON test specs of a set of
// waterfalls from their .pyl descriptions.
//
// The inputs live in a single directory:
//   waterfalls.pyl             - waterfalls, their machines and test suites
//   test_suites.pyl            - basic, compound and matrix compound suites
//   test_suite_exceptions.pyl  - per-test removals and modifications
//   variants.pyl               - variants used by matrix compound suites
//   mixins.pyl                 - named configuration fragments
//
// and one <waterfall name>.json file is written per waterfall.
package buildbot

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/Lunarixus/angle/infra/pyl"
)

// Input file names.
const (
	WaterfallsFile          = "waterfalls.pyl"
	TestSuitesFile          = "test_suites.pyl"
	TestSuiteExceptionsFile = "test_suite_exceptions.pyl"
	VariantsFile            = "variants.pyl"
	MixinsFile              = "mixins.pyl"
)

// Marker keys written at the top of every generated file.
const (
	autogeneratedKey = "AAAAA1 AUTOGENERATED FILE DO NOT EDIT"
	seeScriptKey     = "AAAAA2 See generate_buildbot_json.py to make changes"
)

// Options configure a Generator.
type Options struct {
	// PylFilesDir is the directory with the .pyl inputs.
	PylFilesDir string
	// OutputDir is where JSON files are written. Defaults to PylFilesDir.
	OutputDir string
}

// Generator loads .pyl descriptions and generates JSON test specs.
//
// The zero value is not usable; use New.
type Generator struct {
	opts Options

	waterfalls []*Waterfall
	rawSuites  map[string]interface{}
	exceptions map[string]interface{}
	variants   map[string]*Variant
	mixins     map[string]interface{}

	suites *suiteResolver
}

// New returns a Generator reading from and writing to the directories in
// opts.
func New(opts Options) *Generator {
	if opts.OutputDir == "" {
		opts.OutputDir = opts.PylFilesDir
	}
	return &Generator{opts: opts}
}

// LoadConfigurationFiles reads all .pyl inputs.
//
// waterfalls.pyl and test_suites.pyl are required; the other files are
// treated as empty when absent.
func (g *Generator) LoadConfigurationFiles(ctx context.Context) error {
	raw, err := g.loadFile(ctx, WaterfallsFile, true)
	if err != nil {
		return err
	}
	if g.waterfalls, err = parseWaterfalls(raw); err != nil {
		return errors.Annotate(err, "%s", g.path(WaterfallsFile)).Err()
	}

	if g.rawSuites, err = g.loadDict(ctx, TestSuitesFile, true); err != nil {
		return err
	}
	if g.exceptions, err = g.loadDict(ctx, TestSuiteExceptionsFile, false); err != nil {
		return err
	}
	if g.mixins, err = g.loadDict(ctx, MixinsFile, false); err != nil {
		return err
	}

	rawVariants, err := g.loadDict(ctx, VariantsFile, false)
	if err != nil {
		return err
	}
	if g.variants, err = parseVariants(rawVariants); err != nil {
		return errors.Annotate(err, "%s", g.path(VariantsFile)).Err()
	}

	g.suites = nil
	return nil
}

func (g *Generator) path(name string) string {
	return filepath.Join(g.opts.PylFilesDir, name)
}

func (g *Generator) loadFile(ctx context.Context, name string, required bool) (interface{}, error) {
	path := g.path(name)
	v, err := pyl.ParseFile(path)
	switch {
	case os.IsNotExist(err) && !required:
		logging.Debugf(ctx, "%s does not exist; treating as empty", path)
		return nil, nil
	case err != nil:
		return nil, errors.Annotate(err, "failed to load %s", name).Err()
	}
	return v, nil
}

func (g *Generator) loadDict(ctx context.Context, name string, required bool) (map[string]interface{}, error) {
	path := g.path(name)
	d, err := pyl.ParseDictFile(path)
	switch {
	case os.IsNotExist(err) && !required:
		logging.Debugf(ctx, "%s does not exist; treating as empty", path)
		return map[string]interface{}{}, nil
	case err != nil:
		return nil, errors.Annotate(err, "failed to load %s", name).Err()
	}
	return d, nil
}

// ResolveConfigurationFiles resolves compound and matrix compound suites and
// checks that the inputs are consistent with each other.
func (g *Generator) ResolveConfigurationFiles(ctx context.Context) error {
	if g.rawSuites == nil {
		return errors.Reason("configuration files are not loaded").Err()
	}

	r := &suiteResolver{raw: g.rawSuites, variants: g.variants}
	if err := r.resolve(); err != nil {
		return errors.Annotate(err, "%s", g.path(TestSuitesFile)).Err()
	}
	g.suites = r

	if err := g.checkConsistency(); err != nil {
		return err
	}
	logging.Debugf(ctx, "resolved %d waterfalls and %d test suites from %s", len(g.waterfalls), len(r.suites), g.opts.PylFilesDir)
	return nil
}

// checkConsistency verifies cross-file references.
func (g *Generator) checkConsistency() error {
	machines := stringset.New(0)
	for _, w := range g.waterfalls {
		for _, m := range w.Machines {
			machines.Add(m.Name)
			for testType, suite := range m.TestSuites {
				if _, ok := g.suites.suites[suite]; !ok {
					return errors.Reason("waterfall %q: machine %q: %s references unknown test suite %q", w.Name, m.Name, testType, suite).Err()
				}
			}
		}
	}

	unknown := stringset.New(0)
	for test, v := range g.exceptions {
		exc, ok := v.(map[string]interface{})
		if !ok {
			return errors.Reason("%s: %q: expected a dict, got %s", g.path(TestSuiteExceptionsFile), test, pyl.TypeName(v)).Err()
		}
		bots, err := stringList(exc["remove_from"])
		if err != nil {
			return errors.Annotate(err, "%s: %q: remove_from", g.path(TestSuiteExceptionsFile), test).Err()
		}
		for _, kind := range []string{"modifications", "replacements"} {
			if byMachine, ok := exc[kind].(map[string]interface{}); ok {
				for bot := range byMachine {
					bots = append(bots, bot)
				}
			}
		}
		for _, bot := range bots {
			if !machines.Has(bot) {
				unknown.Add(bot)
			}
		}
	}
	if unknown.Len() > 0 {
		return errors.Reason("%s references nonexistent machines: %q", g.path(TestSuiteExceptionsFile), unknown.ToSortedSlice()).Err()
	}
	return nil
}

// Waterfalls returns the loaded waterfalls in file order.
func (g *Generator) Waterfalls() []*Waterfall {
	return g.waterfalls
}

// TestSuites returns every test suite by name. Requires
// ResolveConfigurationFiles.
func (g *Generator) TestSuites() map[string]*TestSuite {
	if g.suites == nil {
		return nil
	}
	return g.suites.suites
}

// Mixins returns the mixin catalog loaded from mixins.pyl.
func (g *Generator) Mixins() map[string]interface{} {
	return g.mixins
}

// GenerateWaterfall returns the JSON test spec of w.
func (g *Generator) GenerateWaterfall(w *Waterfall) ([]byte, error) {
	if g.suites == nil {
		return nil, errors.Reason("configuration files are not resolved").Err()
	}

	out := map[string]interface{}{
		autogeneratedKey: map[string]interface{}{},
		seeScriptKey:     map[string]interface{}{},
	}
	for _, name := range w.MachineNames() {
		tests, err := g.machineTests(w, w.Machines[name])
		if err != nil {
			return nil, errors.Annotate(err, "waterfall %q: machine %q", w.Name, name).Err()
		}
		out[name] = tests
	}
	return encodeJSON(out)
}

// encodeJSON encodes v with sorted keys and two-space indentation, followed by
// a newline.
//
// Non-ASCII text is written as is rather than \u-escaped, and floats use Go's
// shortest formatting, so the output is not byte-identical to Python's
// json.dumps for such values.
func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Annotate(err, "could not render json").Err()
	}
	return buf.Bytes(), nil
}

// OutputFile returns the name of the JSON file generated for a waterfall.
func OutputFile(waterfallName string) string {
	return waterfallName + ".json"
}

// Main reloads and resolves the configuration files, then writes the JSON
// file of every waterfall to the output directory.
func (g *Generator) Main(ctx context.Context) error {
	if err := g.LoadConfigurationFiles(ctx); err != nil {
		return err
	}
	if err := g.ResolveConfigurationFiles(ctx); err != nil {
		return err
	}

	// Generate everything before writing anything.
	contents := make(map[string][]byte, len(g.waterfalls))
	for _, w := range g.waterfalls {
		data, err := g.GenerateWaterfall(w)
		if err != nil {
			return err
		}
		contents[OutputFile(w.Name)] = data
	}

	names := make([]string, 0, len(contents))
	for name := range contents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(g.opts.OutputDir, name)
		if err := ioutil.WriteFile(path, contents[name], 0644); err != nil {
			return errors.Annotate(err, "failed to write %s", path).Err()
		}
		logging.Debugf(ctx, "wrote %s (%s)", path, humanize.Bytes(uint64(len(contents[name]))))
	}
	return nil
}

// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cli

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

const (
	// configFileName is looked up in the specs directory.
	configFileName = "specgen.yaml"
	// configEnvVar, if set, points to the config file to use instead.
	configEnvVar = "SPECGEN_CONFIG"
)

// config holds defaults for the generator settings.
type config struct {
	// UpstreamDir is relative to the specs directory unless absolute.
	UpstreamDir      string   `yaml:"upstream_dir,omitempty"`
	DisplayDir       string   `yaml:"display_dir,omitempty"`
	ScriptName       string   `yaml:"script_name,omitempty"`
	WaterfallOutputs []string `yaml:"waterfall_outputs,omitempty"`
}

// configFilename returns the config file to load and whether it was chosen
// explicitly, by flag or environment variable.
func configFilename(specsDir, flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if envFile, found := os.LookupEnv(configEnvVar); found && envFile != "" {
		return envFile, true
	}
	return filepath.Join(specsDir, configFileName), false
}

// loadConfig reads the config file at path.
//
// An absent implicit config file yields an empty config. Any other read or
// parse failure, including unknown keys, is an error.
func loadConfig(ctx context.Context, path string, explicit bool) (config, error) {
	var cfg config
	bs, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err) && !explicit:
		return cfg, nil
	case err != nil:
		return cfg, errors.Annotate(err, "failed reading config").Err()
	}
	if err := yaml.UnmarshalStrict(bs, &cfg); err != nil {
		return cfg, errors.Annotate(err, "error parsing %s", path).Err()
	}
	logging.Debugf(ctx, "loaded config from %s", path)
	return cfg, nil
}

// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cli implements the generate_test_spec_json command line tool.
package cli

import (
	"context"
	"os"
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/flag/fixflagpos"
	"go.chromium.org/luci/common/logging/gologger"
)

var logCfg = gologger.LoggerConfig{
	Format: `%{message}`,
	Out:    os.Stderr,
}

// application creates the application and configures its subcommands.
func application() *cli.Application {
	return &cli.Application{
		Name:  "generate_test_spec_json",
		Title: "Generates ANGLE's test spec JSON files and mixins.pyl",
		Context: func(ctx context.Context) context.Context {
			return logCfg.Use(ctx)
		},
		Commands: []*subcommands.Command{
			cmdGenerate(),
			cmdInputs(),
			cmdOutputs(),

			{},
			subcommands.CmdHelp,
		},
	}
}

// Main is the main function of the generate_test_spec_json application.
//
// Without a subcommand, e.g. with no arguments or only flags, it runs
// "generate".
func Main(args []string) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		args = append([]string{"generate"}, args...)
	}
	return subcommands.Run(application(), fixflagpos.FixSubcommands(args))
}

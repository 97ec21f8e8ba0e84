// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cli

import (
	"context"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/system/signals"

	"github.com/Lunarixus/angle/infra/specs"
)

func cmdGenerate() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: `generate [-verify-only]`,
		ShortDesc: "generate mixins.pyl and the waterfall JSON files",
		LongDesc: text.Doc(`
			Generate mixins.pyl and the waterfall JSON files.

			mixins.pyl receives every mixin referenced by waterfalls.pyl,
			test_suites.pyl and variants.pyl, taken from the local overrides or
			from Chromium's mixins.pyl. An unknown mixin fails generation before
			any file is written.

			With -verify-only, nothing is written. Instead the generated content is
			compared with the existing files and the subcommand returns a non-zero
			exit code if any of them is dirty.

			This is the default subcommand.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &generateRun{}
			r.RegisterBaseFlags()
			r.Flags.BoolVar(&r.verifyOnly, "verify-only", false, text.Doc(`
				Compare the generated content with the existing files instead of
				writing them.
			`))
			return r
		},
	}
}

type generateRun struct {
	baseCommandRun
	verifyOnly bool
}

func (r *generateRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.initContext(cli.GetContext(a, r, env))
	return r.done(ctx, r.run(ctx, args))
}

func (r *generateRun) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer signals.HandleInterrupt(cancel)()

	if len(args) != 0 {
		return errors.Reason("unexpected positional arguments: %q", args).Err()
	}

	opts, err := r.options(ctx)
	if err != nil {
		return err
	}
	opts.VerifyOnly = r.verifyOnly
	return specs.Run(ctx, opts)
}

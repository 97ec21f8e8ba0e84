// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"

	"github.com/Lunarixus/angle/infra/specs"
)

func cmdInputs() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: `inputs`,
		ShortDesc: "print the files read by generate",
		LongDesc: text.Doc(`
			Print a comma-separated list of the files read by generate.

			The list does not depend on the contents of the description files.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &listRun{list: specs.Inputs}
			r.RegisterBaseFlags()
			return r
		},
	}
}

func cmdOutputs() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: `outputs`,
		ShortDesc: "print the files written by generate",
		LongDesc: text.Doc(`
			Print a comma-separated list of the files written by generate.

			The list does not depend on the contents of the description files.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &listRun{list: specs.Outputs}
			r.RegisterBaseFlags()
			return r
		},
	}
}

// listRun prints a list of files.
type listRun struct {
	baseCommandRun
	list func(specs.Options) []string
}

func (r *listRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.initContext(cli.GetContext(a, r, env))
	if len(args) != 0 {
		return r.done(ctx, errors.Reason("unexpected positional arguments: %q", args).Err())
	}
	return r.done(ctx, r.run(ctx, a))
}

func (r *listRun) run(ctx context.Context, a subcommands.Application) error {
	opts, err := r.options(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.GetOut(), strings.Join(r.list(opts), ","))
	return err
}

// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command generate_test_spec_json generates ANGLE's test spec JSON files.
//
// Usage:
//   generate_test_spec_json [-verify-only]
//   generate_test_spec_json inputs
//   generate_test_spec_json outputs
package main

import (
	"os"

	"github.com/Lunarixus/angle/infra/specs/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:]))
}

// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package specs

import (
	"strings"

	"github.com/Lunarixus/angle/infra/pyl"
)

// mixinsDataSource is the data source named in the mixins.pyl header.
const mixinsDataSource = "waterfall.pyl and Chromium's mixins.pyl"

const mixinsPylTemplate = `# GENERATED FILE - DO NOT EDIT.
# Generated by {script_name} using data from {data_source}
#
# Copyright 2021 The ANGLE Project Authors. All rights reserved.
# Use of this source code is governed by a BSD-style license that can be
# found in the LICENSE file.
#
# This is a .pyl, or "Python Literal", file. You can treat it just like a
# .json file, with the following exceptions:
# * all keys must be quoted (use single quotes, please);
# * comments are allowed, using '#' syntax; and
# * trailing commas are allowed.
#
# For more info see Chromium's mixins.pyl in testing/buildbot.

{mixin_data}
`

// RenderMixins returns the contents of mixins.pyl for the given mixins.
func RenderMixins(scriptName string, mixins map[string]interface{}) []byte {
	r := strings.NewReplacer(
		"{script_name}", scriptName,
		"{data_source}", mixinsDataSource,
		"{mixin_data}", pyl.Format(mixins),
	)
	return []byte(r.Replace(mixinsPylTemplate))
}

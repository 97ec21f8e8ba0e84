// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pyl

// Tuple is a parsed Python tuple. It is kept apart from lists so that it
// round-trips through Format.
type Tuple []interface{}

// Clone returns a deep copy of a parsed value.
func Clone(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return CloneDict(v)
	case []interface{}:
		ret := make([]interface{}, len(v))
		for i, e := range v {
			ret[i] = Clone(e)
		}
		return ret
	case Tuple:
		ret := make(Tuple, len(v))
		for i, e := range v {
			ret[i] = Clone(e)
		}
		return ret
	default:
		return v
	}
}

// CloneDict returns a deep copy of d. A nil d yields nil.
func CloneDict(d map[string]interface{}) map[string]interface{} {
	if d == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(d))
	for k, e := range d {
		ret[k] = Clone(e)
	}
	return ret
}

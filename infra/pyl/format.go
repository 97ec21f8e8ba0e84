// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pyl

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// formatIndent and formatWidth match pprint.PrettyPrinter(indent=2).
	formatIndent = 2
	formatWidth  = 80
)

// Format pretty-prints v the same way Python's
// pprint.PrettyPrinter(indent=2).pformat does: dict keys are sorted, values
// that do not fit into 80 columns are broken over several lines and long
// strings are split into implicitly concatenated chunks.
//
// The output is deterministic and parses back with Parse.
func Format(v interface{}) string {
	p := &prettyPrinter{indentPerLevel: formatIndent, width: formatWidth}
	p.format(v, 0, 0, 0)
	return p.buf.String()
}

// Repr returns the single-line Python repr of v.
func Repr(v interface{}) string {
	var sb strings.Builder
	writeRepr(&sb, v)
	return sb.String()
}

func writeRepr(sb *strings.Builder, v interface{}) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("None")
	case bool:
		if v {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case int:
		sb.WriteString(strconv.Itoa(v))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case float64:
		sb.WriteString(reprFloat(v))
	case string:
		sb.WriteString(reprString(v))
	case map[string]interface{}:
		sb.WriteByte('{')
		for i, k := range sortedKeys(v) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(reprString(k))
			sb.WriteString(": ")
			writeRepr(sb, v[k])
		}
		sb.WriteByte('}')
	case []interface{}:
		sb.WriteByte('[')
		writeReprItems(sb, v)
		sb.WriteByte(']')
	case Tuple:
		sb.WriteByte('(')
		writeReprItems(sb, v)
		if len(v) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	default:
		panic(fmt.Sprintf("pyl: unsupported type %T", v))
	}
}

func writeReprItems(sb *strings.Builder, items []interface{}) {
	for i, e := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeRepr(sb, e)
	}
}

func sortedKeys(d map[string]interface{}) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// reprFloat mimics float.__repr__: the shortest round-tripping form, with an
// exponent only for very large or very small magnitudes.
func reprFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if err != nil {
		panic(err) // impossible: FormatFloat always emits an exponent
	}
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// reprString mimics str.__repr__.
func reprString(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var sb strings.Builder
	sb.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r < ' ' || r == 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r < 0x7f || unicode.IsPrint(r):
			sb.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r <= 0xffff:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			fmt.Fprintf(&sb, `\U%08x`, r)
		}
	}
	sb.WriteRune(quote)
	return sb.String()
}

// prettyPrinter follows the layout algorithm of Python's pprint module.
type prettyPrinter struct {
	buf            strings.Builder
	indentPerLevel int
	width          int
}

func (p *prettyPrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *prettyPrinter) format(v interface{}, indent, allowance, level int) {
	rep := Repr(v)
	if utf8.RuneCountInString(rep) > p.width-indent-allowance {
		switch v := v.(type) {
		case map[string]interface{}:
			p.formatDict(v, indent, allowance, level+1)
			return
		case []interface{}:
			p.write("[")
			p.formatItems(v, indent, allowance+1, level+1)
			p.write("]")
			return
		case Tuple:
			end := ")"
			if len(v) == 1 {
				end = ",)"
			}
			p.write("(")
			p.formatItems(v, indent, allowance+len(end), level+1)
			p.write(end)
			return
		case string:
			p.formatString(v, indent, allowance, level+1)
			return
		}
	}
	p.write(rep)
}

func (p *prettyPrinter) formatDict(d map[string]interface{}, indent, allowance, level int) {
	p.write("{")
	if p.indentPerLevel > 1 {
		p.write(strings.Repeat(" ", p.indentPerLevel-1))
	}
	if len(d) > 0 {
		allowance++
		indent += p.indentPerLevel
		delim := ",\n" + strings.Repeat(" ", indent)
		keys := sortedKeys(d)
		for i, k := range keys {
			last := i == len(keys)-1
			rep := reprString(k)
			p.write(rep)
			p.write(": ")
			entAllowance := 1
			if last {
				entAllowance = allowance
			}
			p.format(d[k], indent+utf8.RuneCountInString(rep)+2, entAllowance, level)
			if !last {
				p.write(delim)
			}
		}
	}
	p.write("}")
}

func (p *prettyPrinter) formatItems(items []interface{}, indent, allowance, level int) {
	indent += p.indentPerLevel
	if p.indentPerLevel > 1 {
		p.write(strings.Repeat(" ", p.indentPerLevel-1))
	}
	delim := ",\n" + strings.Repeat(" ", indent)
	for i, e := range items {
		if i > 0 {
			p.write(delim)
		}
		entAllowance := 1
		if i == len(items)-1 {
			entAllowance = allowance
		}
		p.format(e, indent, entAllowance, level)
	}
}

// formatString splits a long string into chunks at whitespace boundaries,
// one chunk per line. A top-level string is wrapped in parentheses so the
// result remains a single expression.
func (p *prettyPrinter) formatString(s string, indent, allowance, level int) {
	if s == "" {
		p.write(reprString(s))
		return
	}

	lines := splitLinesKeepEnds(s)
	if level == 1 {
		indent++
		allowance++
	}
	maxWidth := p.width - indent
	maxWidth1 := maxWidth

	var chunks []string
	for i, line := range lines {
		lastLine := i == len(lines)-1
		rep := reprString(line)
		if lastLine {
			maxWidth1 -= allowance
		}
		if utf8.RuneCountInString(rep) <= maxWidth1 {
			chunks = append(chunks, rep)
			continue
		}

		parts := splitWords(line)
		maxWidth2 := maxWidth
		current := ""
		for j, part := range parts {
			candidate := current + part
			if j == len(parts)-1 && lastLine {
				maxWidth2 -= allowance
			}
			if utf8.RuneCountInString(reprString(candidate)) > maxWidth2 {
				if current != "" {
					chunks = append(chunks, reprString(current))
				}
				current = part
			} else {
				current = candidate
			}
		}
		if current != "" {
			chunks = append(chunks, reprString(current))
		}
	}

	if len(chunks) == 1 {
		p.write(chunks[0])
		return
	}
	if level == 1 {
		p.write("(")
	}
	for i, c := range chunks {
		if i > 0 {
			p.write("\n" + strings.Repeat(" ", indent))
		}
		p.write(c)
	}
	if level == 1 {
		p.write(")")
	}
}

// isLineBreak reports whether r ends a line for str.splitlines.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}

// splitLinesKeepEnds is str.splitlines(keepends=True).
func splitLinesKeepEnds(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if i < start || !isLineBreak(r) {
			continue
		}
		end := i + utf8.RuneLen(r)
		if r == '\r' && end < len(s) && s[end] == '\n' {
			end++
		}
		lines = append(lines, s[start:end])
		start = end
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// splitWords splits s into alternating runs of non-space followed by space,
// i.e. the non-empty matches of the regexp `\S*\s*`.
func splitWords(s string) []string {
	var parts []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if !space && inSpace {
			parts = append(parts, s[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

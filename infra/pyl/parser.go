// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package pyl reads and writes .pyl ("Python literal") files.
//
// A .pyl file holds a single Python literal expression: dicts, lists,
// tuples, strings, numbers, True, False and None, with comments and trailing
// commas allowed. Parsed values are represented with plain Go types:
//
//   dict   -> map[string]interface{}
//   list   -> []interface{}
//   tuple  -> Tuple
//   str    -> string
//   int    -> int64
//   float  -> float64
//   bool   -> bool
//   None   -> nil
package pyl

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// ParseError is returned for malformed input.
type ParseError struct {
	Pos Position
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Err)
}

// Parse parses a single literal from data.
// name is used in error messages only.
func Parse(name string, data []byte) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*ParseError)
			if !ok {
				panic(r)
			}
			v, err = nil, perr
		}
	}()

	p := &parser{lex: newLexer(name, string(data))}
	p.next()
	v = p.parseValue()
	if p.tok.kind != tokEOF {
		p.errorf("unexpected %s after the literal", p.tok)
	}
	return v, nil
}

// ParseFile reads and parses the .pyl file at path.
func ParseFile(path string) (interface{}, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// ParseDictFile is like ParseFile, but requires the top-level value to be a
// dict.
func ParseDictFile(path string) (map[string]interface{}, error) {
	v, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	d, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Reason("%s: expected a dict at the top level, got %s", path, TypeName(v)).Err()
	}
	return d, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) next() {
	p.tok = p.lex.next()
}

func (p *parser) errorf(format string, args ...interface{}) {
	p.lex.errorf(p.tok.pos, format, args...)
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) expect(s string) {
	if !p.isPunct(s) {
		p.errorf("expected %q, found %s", s, p.tok)
	}
	p.next()
}

func (p *parser) parseValue() interface{} {
	switch tok := p.tok; {
	case tok.kind == tokString:
		// Adjacent string literals are concatenated.
		var sb strings.Builder
		for p.tok.kind == tokString {
			sb.WriteString(p.tok.text)
			p.next()
		}
		return sb.String()

	case tok.kind == tokInt || tok.kind == tokFloat:
		return p.parseNumber(false)

	case p.isPunct("-") || p.isPunct("+"):
		p.next()
		if p.tok.kind != tokInt && p.tok.kind != tokFloat {
			p.errorf("expected a number after %q, found %s", tok.text, p.tok)
		}
		return p.parseNumber(tok.text == "-")

	case tok.kind == tokIdent:
		p.next()
		switch tok.text {
		case "True":
			return true
		case "False":
			return false
		case "None":
			return nil
		}
		p.lex.errorf(tok.pos, "unexpected identifier %q", tok.text)

	case p.isPunct("{"):
		return p.parseDict()

	case p.isPunct("["):
		p.next()
		return p.parseItems("]")

	case p.isPunct("("):
		return p.parseParen()
	}

	p.errorf("unexpected %s", p.tok)
	panic("unreachable")
}

func (p *parser) parseNumber(negate bool) interface{} {
	tok := p.tok
	p.next()
	text := strings.ReplaceAll(tok.text, "_", "")
	if tok.kind == tokFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !isRangeError(err) {
			p.lex.errorf(tok.pos, "bad float literal %q", tok.text)
		}
		if negate {
			f = -f
		}
		return f
	}

	if negate {
		text = "-" + text
	}
	i, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		if isRangeError(err) {
			p.lex.errorf(tok.pos, "integer literal %q does not fit in 64 bits", tok.text)
		}
		p.lex.errorf(tok.pos, "bad integer literal %q", tok.text)
	}
	return i
}

func (p *parser) parseDict() map[string]interface{} {
	p.expect("{")
	d := map[string]interface{}{}
	for !p.isPunct("}") {
		keyTok := p.tok
		key, ok := p.parseValue().(string)
		if !ok {
			p.lex.errorf(keyTok.pos, "dict keys must be strings")
		}
		p.expect(":")
		// Like Python, the last occurrence of a duplicate key wins.
		d[key] = p.parseValue()

		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	p.expect("}")
	return d
}

// parseItems parses comma separated values up to and including the closing
// punctuation.
func (p *parser) parseItems(closing string) []interface{} {
	items := []interface{}{}
	for !p.isPunct(closing) {
		items = append(items, p.parseValue())
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	p.expect(closing)
	return items
}

// parseParen parses either a tuple or a parenthesized value.
func (p *parser) parseParen() interface{} {
	p.expect("(")
	if p.isPunct(")") {
		p.next()
		return Tuple{}
	}
	first := p.parseValue()
	if p.isPunct(")") {
		p.next()
		return first
	}
	p.expect(",")
	return Tuple(append([]interface{}{first}, p.parseItems(")")...))
}

func isRangeError(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}

// TypeName returns the Python type name of a parsed value.
func TypeName(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}:
		return "dict"
	case []interface{}:
		return "list"
	case Tuple:
		return "tuple"
	case string:
		return "str"
	case int, int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case nil:
		return "NoneType"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Copyright 2022 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pyl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Position is a location in a .pyl file.
type Position struct {
	Filename string
	Line     int // 1-based
	Column   int // 1-based, in runes
}

func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokPunct
	tokString
	tokInt
	tokFloat
	tokIdent
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "EOF"
	case tokPunct:
		return "punctuation"
	case tokString:
		return "string"
	case tokInt:
		return "integer"
	case tokFloat:
		return "float"
	case tokIdent:
		return "identifier"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

type token struct {
	kind tokenKind
	pos  Position
	// text is the raw source text for punctuation, identifiers and numbers,
	// and the decoded value for strings.
	text string
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "EOF"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// lexer splits Python literal source into tokens.
type lexer struct {
	src  string
	off  int
	line int
	col  int
	name string
}

func newLexer(name, src string) *lexer {
	return &lexer{src: src, line: 1, col: 1, name: name}
}

func (l *lexer) pos() Position {
	return Position{Filename: l.name, Line: l.line, Column: l.col}
}

func (l *lexer) peek() rune {
	if l.off >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return r
}

func (l *lexer) peekAt(n int) rune {
	off := l.off
	for i := 0; i < n; i++ {
		if off >= len(l.src) {
			return -1
		}
		_, size := utf8.DecodeRuneInString(l.src[off:])
		off += size
	}
	if off >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[off:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) errorf(pos Position, format string, args ...interface{}) {
	panic(&ParseError{Pos: pos, Err: fmt.Errorf(format, args...)})
}

// skipSpace skips whitespace, comments and explicit line joins.
func (l *lexer) skipSpace() {
	for {
		switch r := l.peek(); {
		case r == '#':
			for r := l.peek(); r != -1 && r != '\n'; r = l.peek() {
				l.advance()
			}
		case r == '\\' && (l.peekAt(1) == '\n' || l.peekAt(1) == '\r'):
			l.advance()
			if l.advance() == '\r' && l.peek() == '\n' {
				l.advance()
			}
		case r != -1 && unicode.IsSpace(r):
			l.advance()
		default:
			return
		}
	}
}

func (l *lexer) next() token {
	l.skipSpace()
	pos := l.pos()
	r := l.peek()
	switch {
	case r == -1:
		return token{kind: tokEOF, pos: pos}

	case strings.ContainsRune("{}[]():,+-", r):
		l.advance()
		return token{kind: tokPunct, pos: pos, text: string(r)}

	case r == '\'' || r == '"':
		return token{kind: tokString, pos: pos, text: l.scanString(pos, false)}

	case r == '.' || (r >= '0' && r <= '9'):
		return l.scanNumber(pos)

	case r == '_' || unicode.IsLetter(r):
		start := l.off
		for r := l.peek(); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r); r = l.peek() {
			l.advance()
		}
		ident := l.src[start:l.off]
		// String prefixes: r'', u'', and their combinations with b are not
		// literal-file material; only raw and unicode prefixes are accepted.
		if q := l.peek(); q == '\'' || q == '"' {
			switch strings.ToLower(ident) {
			case "r":
				return token{kind: tokString, pos: pos, text: l.scanString(pos, true)}
			case "u":
				return token{kind: tokString, pos: pos, text: l.scanString(pos, false)}
			default:
				l.errorf(pos, "unsupported string prefix %q", ident)
			}
		}
		return token{kind: tokIdent, pos: pos, text: ident}

	default:
		l.errorf(pos, "unexpected character %q", r)
		panic("unreachable")
	}
}

func (l *lexer) scanNumber(pos Position) token {
	start := l.off
	kind := tokInt
	if l.peek() == '0' && strings.ContainsRune("xXoObB", l.peekAt(1)) {
		l.advance()
		l.advance()
		for r := l.peek(); r == '_' || isHexDigit(r); r = l.peek() {
			l.advance()
		}
	} else {
		for r := l.peek(); r == '_' || (r >= '0' && r <= '9'); r = l.peek() {
			l.advance()
		}
		if l.peek() == '.' {
			kind = tokFloat
			l.advance()
			for r := l.peek(); r == '_' || (r >= '0' && r <= '9'); r = l.peek() {
				l.advance()
			}
		}
		if r := l.peek(); r == 'e' || r == 'E' {
			kind = tokFloat
			l.advance()
			if r := l.peek(); r == '+' || r == '-' {
				l.advance()
			}
			for r := l.peek(); r == '_' || (r >= '0' && r <= '9'); r = l.peek() {
				l.advance()
			}
		}
	}
	text := l.src[start:l.off]
	if text == "." {
		l.errorf(pos, "unexpected character '.'")
	}
	return token{kind: kind, pos: pos, text: text}
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// scanString scans a single, double or triple quoted string starting at the
// opening quote and returns its decoded value.
func (l *lexer) scanString(pos Position, raw bool) string {
	quote := l.advance()
	triple := false
	if l.peek() == quote && l.peekAt(1) == quote {
		l.advance()
		l.advance()
		triple = true
	}

	var sb strings.Builder
	for {
		r := l.peek()
		switch {
		case r == -1:
			l.errorf(pos, "unterminated string")

		case r == quote:
			if !triple {
				l.advance()
				return sb.String()
			}
			if l.peekAt(1) == quote && l.peekAt(2) == quote {
				l.advance()
				l.advance()
				l.advance()
				return sb.String()
			}
			sb.WriteRune(l.advance())

		case r == '\n' && !triple:
			l.errorf(pos, "unterminated string")

		case r == '\\':
			escPos := l.pos()
			l.advance()
			if raw {
				sb.WriteRune('\\')
				if n := l.peek(); n != -1 {
					sb.WriteRune(l.advance())
				}
				continue
			}
			l.scanEscape(escPos, &sb)

		default:
			sb.WriteRune(l.advance())
		}
	}
}

var simpleEscapes = map[rune]rune{
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
}

// scanEscape decodes the escape sequence following a backslash.
func (l *lexer) scanEscape(pos Position, sb *strings.Builder) {
	r := l.peek()
	if e, ok := simpleEscapes[r]; ok {
		l.advance()
		sb.WriteRune(e)
		return
	}
	switch {
	case r == -1:
		l.errorf(pos, "unterminated string")

	case r == '\n':
		// Line continuation inside a string.
		l.advance()

	case r >= '0' && r <= '7':
		v := 0
		for i := 0; i < 3; i++ {
			d := l.peek()
			if d < '0' || d > '7' {
				break
			}
			l.advance()
			v = v*8 + int(d-'0')
		}
		sb.WriteRune(rune(v))

	case r == 'x' || r == 'u' || r == 'U':
		l.advance()
		n := map[rune]int{'x': 2, 'u': 4, 'U': 8}[r]
		v := 0
		for i := 0; i < n; i++ {
			d := l.peek()
			if !isHexDigit(d) {
				l.errorf(pos, "truncated \\%c escape", r)
			}
			l.advance()
			h, _ := strconv.ParseUint(string(d), 16, 8)
			v = v*16 + int(h)
		}
		if v > unicode.MaxRune {
			l.errorf(pos, "illegal Unicode character in \\%c escape", r)
		}
		sb.WriteRune(rune(v))

	default:
		// Unrecognized escapes are kept verbatim.
		sb.WriteRune('\\')
		sb.WriteRune(l.advance())
	}
}

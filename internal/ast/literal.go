package ast

import (
	"strconv"
	"strings"
)

// IsString reports whether the literal is a quoted string.
func (l *Literal) IsString() bool {
	if len(l.Text) < 2 {
		return false
	}
	q := l.Text[0]
	return (q == '"' || q == '\'') && l.Text[len(l.Text)-1] == q
}

// StringValue returns the unquoted value of a string literal.
func (l *Literal) StringValue() (string, bool) {
	if !l.IsString() {
		return "", false
	}
	if l.Text[0] == '"' {
		if s, err := strconv.Unquote(l.Text); err == nil {
			return s, true
		}
	}
	// Single-quoted strings are not valid Go syntax; strip the quotes.
	inner := l.Text[1 : len(l.Text)-1]
	return strings.ReplaceAll(inner, `\'`, `'`), true
}

// Number returns the numeric value of a number literal.
func (l *Literal) Number() (float64, bool) {
	if l.IsString() {
		return 0, false
	}
	f, err := strconv.ParseFloat(l.Text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package pattern holds the compiled, case-insensitive regular
// expressions a Group matches log lines against.
package pattern

import (
	"regexp"

	banerrors "grimm.is/banhammer/internal/errors"
)

// Pattern is one compiled rule. A line is the largest match unit
// (newline-sensitive), and compilation requires at least one capture
// group -- the value a match is acted on.
type Pattern struct {
	expr *regexp.Regexp
	src  string
}

// Compile builds a Pattern from expr: case-insensitive, extended
// syntax (Go's regexp is already RE2/extended), newline-sensitive so
// "." never crosses a line boundary. A pattern with zero capture
// groups is rejected since there would be nothing to act on.
func Compile(expr string) (*Pattern, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, banerrors.Wrapf(err, banerrors.KindConfig, "pattern: invalid expression %q", expr)
	}
	if re.NumSubexp() < 1 {
		return nil, banerrors.Errorf(banerrors.KindConfig, "pattern: %q has no capture groups", expr)
	}
	return &Pattern{expr: re, src: expr}, nil
}

// String returns the original, uncompiled expression text.
func (p *Pattern) String() string { return p.src }

// NumCapture reports the pattern's capture-group count.
func (p *Pattern) NumCapture() int { return p.expr.NumSubexp() }

// Match runs the pattern against line and, on a match, returns the
// host capture: the named group "host" if present, otherwise capture
// #1. ok is false when the pattern didn't match the line at all.
func (p *Pattern) Match(line string) (host string, ok bool) {
	m := p.expr.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}

	if idx := p.expr.SubexpIndex("host"); idx > 0 && idx < len(m) {
		return m[idx], true
	}
	if len(m) > 1 {
		return m[1], true
	}
	return "", false
}

// Store holds every compiled Pattern belonging to one Group, in
// declaration order. MatchFirst stops at the first match; the
// detection engine walks the patterns itself through At and Len.
type Store struct {
	patterns []*Pattern
}

// NewStore returns an empty pattern Store.
func NewStore() *Store {
	return &Store{}
}

// Add compiles expr and appends it to the store.
func (s *Store) Add(expr string) error {
	p, err := Compile(expr)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, p)
	return nil
}

// Len reports how many patterns are loaded.
func (s *Store) Len() int { return len(s.patterns) }

// MatchFirst returns the host extracted from the first pattern (in
// declaration order) that matches line.
func (s *Store) MatchFirst(line string) (host string, ok bool) {
	for _, p := range s.patterns {
		if h, matched := p.Match(line); matched {
			return h, true
		}
	}
	return "", false
}

// At returns the i'th pattern in declaration order.
func (s *Store) At(i int) *Pattern { return s.patterns[i] }

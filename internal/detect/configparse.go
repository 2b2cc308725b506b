// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detect

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"grimm.is/banhammer/internal/banlib"
	banerrors "grimm.is/banhammer/internal/errors"
)

// ParseError is one malformed line or key, carrying the file and line
// number it came from so ParseErrors can be reported the way the
// teacher's config validator accumulates and reports errors.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// ParseErrors accumulates every ParseError found while loading one or
// more config files; per spec.md §7, any config error aborts startup.
type ParseErrors []*ParseError

func (es ParseErrors) Error() string {
	lines := make([]string, len(es))
	for i, e := range es {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}

// ParseFile reads the `[key=value,...]` + regex-lines grammar from r
// (named file for error reporting) and returns every group it defines,
// in file order. All errors found are returned together as ParseErrors;
// the file is still fully scanned even after an error so every
// problem is reported in one pass.
func ParseFile(file string, r io.Reader) ([]*Group, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var groups []*Group
	var errs ParseErrors
	var current *Group
	lineNo := 0

	flush := func() {
		if current != nil {
			groups = append(groups, current)
			current = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			g := NewGroup(fmt.Sprintf("%s:%d", file, lineNo))
			if err := applyHeader(g, line[1:len(line)-1]); err != nil {
				errs = append(errs, &ParseError{File: file, Line: lineNo, Msg: err.Error()})
				current = g // keep scanning its pattern lines so later errors still surface
				continue
			}
			current = g
			continue
		}

		if current == nil {
			errs = append(errs, &ParseError{File: file, Line: lineNo, Msg: "regex line outside of a group header"})
			continue
		}
		if err := current.addPattern(line); err != nil {
			errs = append(errs, &ParseError{File: file, Line: lineNo, Msg: err.Error()})
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		errs = append(errs, &ParseError{File: file, Line: lineNo, Msg: err.Error()})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return groups, nil
}

// applyHeader parses one `[key=value, key=value, ...]` header line
// into g's policy fields, per the key table in spec.md §6.
func applyHeader(g *Group, body string) error {
	for _, field := range strings.Split(body, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		key, value, _ := strings.Cut(field, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if err := applyKey(g, key, value); err != nil {
			return err
		}
	}
	return nil
}

func applyKey(g *Group, key, value string) error {
	switch key {
	case "table":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return banerrors.Errorf(banerrors.KindConfig, "table must be a positive integer, got %q", value)
		}
		g.Table = banlib.TableID(n)

	case "count":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return banerrors.Errorf(banerrors.KindConfig, "count must be a non-negative integer, got %q", value)
		}
		g.MaxCount = uint32(n)

	case "within":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return banerrors.Errorf(banerrors.KindConfig, "within must be a non-negative integer of seconds, got %q", value)
		}
		g.Within = time.Duration(n) * time.Second

	case "reset":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return banerrors.Errorf(banerrors.KindConfig, "reset must be a non-negative integer of seconds, got %q", value)
		}
		g.Reset = time.Duration(n) * time.Second

	case "random", "randomize":
		if strings.EqualFold(value, "no") {
			g.RandomPct = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < -100 || n > 100 {
			return banerrors.Errorf(banerrors.KindConfig, "random must be in [-100,100] or \"no\", got %q", value)
		}
		g.RandomPct = n

	case "maxhosts":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return banerrors.Errorf(banerrors.KindConfig, "maxhosts must be a positive integer, got %q", value)
		}
		g.MaxHosts = n

	case "continue":
		switch strings.ToLower(value) {
		case "yes", "":
			g.Flags.Continue = true
		case "no":
			g.Flags.Continue = false
		case "next", "nextblock", "skip":
			g.Flags.Continue = true
			g.Flags.Skip = true
		default:
			return banerrors.Errorf(banerrors.KindConfig, "unrecognized continue value %q", value)
		}

	case "warnfail":
		b, err := yesNo(value)
		if err != nil {
			return err
		}
		g.Flags.WarnFail = b

	case "onfail":
		b, err := blockOrNone(value)
		if err != nil {
			return err
		}
		g.Flags.BlockFail = b

	case "warnmax":
		b, err := yesNo(value)
		if err != nil {
			return err
		}
		g.Flags.WarnMax = b

	case "onmax":
		b, err := blockOrNone(value)
		if err != nil {
			return err
		}
		g.Flags.BlockMax = b

	case "blocklocal":
		b, err := yesNo(value)
		if err != nil {
			return err
		}
		g.Flags.BlockLocal = b

	default:
		return banerrors.Errorf(banerrors.KindConfig, "unrecognized key %q", key)
	}
	return nil
}

func yesNo(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, banerrors.Errorf(banerrors.KindConfig, "expected yes/no, got %q", value)
	}
}

func blockOrNone(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "block":
		return true, nil
	case "none", "ignore":
		return false, nil
	default:
		return false, banerrors.Errorf(banerrors.KindConfig, "expected block/none/ignore, got %q", value)
	}
}

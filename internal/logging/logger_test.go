// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func newBufLogger(level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := &Logger{
		mu:    &sync.Mutex{},
		level: &int32Box{v: level},
		out:   buf,
	}
	return l, buf
}

func TestLogger_LevelThresholds(t *testing.T) {
	l, buf := newBufLogger(LevelWarn)

	l.Debug("watchlist churn")
	l.Info("block applied")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged below threshold, got %q", buf.String())
	}

	l.Warn("policy warning")
	if !strings.Contains(buf.String(), "policy warning") {
		t.Fatalf("expected warn to be logged, got %q", buf.String())
	}
}

func TestLogger_ErrorAlwaysLogged(t *testing.T) {
	l, buf := newBufLogger(0)
	l.Error("backend unreachable")
	if !strings.Contains(buf.String(), "backend unreachable") {
		t.Fatalf("expected error to log regardless of level, got %q", buf.String())
	}
}

func TestLogger_WithComponentAndFields(t *testing.T) {
	l, buf := newBufLogger(LevelDebug)
	sub := l.WithComponent("engine").WithFields(map[string]any{"host": "10.0.0.1"})
	sub.Debug("pattern hit", "line", 42)

	out := buf.String()
	if !strings.Contains(out, "[engine]") {
		t.Errorf("expected component tag, got %q", out)
	}
	if !strings.Contains(out, "host=10.0.0.1") {
		t.Errorf("expected field, got %q", out)
	}
	if !strings.Contains(out, "line=42") {
		t.Errorf("expected kv pair, got %q", out)
	}
}

func TestLogger_WithErrorDerivesField(t *testing.T) {
	l, buf := newBufLogger(0)
	sub := l.WithError(errTest{"nft: dial failed"})
	sub.Error("add failed")

	if !strings.Contains(buf.String(), "nft: dial failed") {
		t.Errorf("expected underlying error text, got %q", buf.String())
	}
}

func TestLogger_SetLevelAffectsDerived(t *testing.T) {
	l, buf := newBufLogger(LevelWarn)
	sub := l.WithComponent("expiry")

	sub.Info("sweep skipped")
	if buf.Len() != 0 {
		t.Fatalf("expected suppressed at LevelWarn, got %q", buf.String())
	}

	l.SetLevel(LevelInfo)
	sub.Info("sweep ran")
	if !strings.Contains(buf.String(), "sweep ran") {
		t.Fatalf("expected logged after level raised, got %q", buf.String())
	}
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }

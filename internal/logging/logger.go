// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging is the diagnostics sink shared by both binaries: a
// small leveled, structured logger that picks terminal or syslog
// output at startup and thresholds messages by an integer loglevel.
//
//	>=1  warnings and notices about denials and errors
//	>=2  successful blocks and table mutations
//	>=3  watch-list inserts/evictions and every regex hit
package logging

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Level is the configured verbosity threshold.
type Level int

const (
	// LevelWarn is the minimum level: denials and errors only.
	LevelWarn Level = 1
	// LevelInfo additionally logs successful blocks and table mutations.
	LevelInfo Level = 2
	// LevelDebug additionally logs watch-list churn and every pattern hit.
	LevelDebug Level = 3
)

// Config selects the sink and initial verbosity for a Logger.
type Config struct {
	Level    Level
	Facility int // used only when output is routed to local syslog
	Tag      string
	Syslog   SyslogConfig // optional remote relay; Enabled=false uses local syslog/terminal
}

// DefaultConfig returns a Config at LevelInfo using the terminal-or-syslog
// auto-selection.
func DefaultConfig() Config {
	return Config{
		Level:    LevelInfo,
		Facility: 1,
		Tag:      "banhammer",
		Syslog:   DefaultSyslogConfig(),
	}
}

// Logger is the process-wide diagnostics sink, or a derived view of one
// carrying extra fields/component name. Safe for concurrent use.
type Logger struct {
	mu        *sync.Mutex
	level     *int32Box
	out       io.Writer     // set when writing plain lines (terminal)
	sys       *syslog.Writer // set when writing to syslog; takes precedence over out
	component string
	fields    map[string]any
}

type int32Box struct {
	mu sync.RWMutex
	v  Level
}

func (b *int32Box) get() Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.v
}

func (b *int32Box) set(l Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.v = l
}

var (
	defaultMu  sync.Mutex
	defaultLog *Logger
)

// New creates a root Logger. Output goes to stderr if it is a
// terminal; otherwise to the local syslog daemon (or, if cfg.Syslog is
// enabled, to the configured remote relay).
func New(cfg Config) *Logger {
	l := &Logger{
		mu:    &sync.Mutex{},
		level: &int32Box{v: cfg.Level},
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		l.out = os.Stderr
		return l
	}

	if cfg.Syslog.Enabled {
		if w, err := NewSyslogWriter(cfg.Syslog); err == nil {
			l.sys = w
			return l
		}
	}

	tag := cfg.Tag
	if tag == "" {
		tag = "banhammer"
	}
	if w, err := newLocalSyslogWriter(cfg.Facility, tag); err == nil {
		l.sys = w
		return l
	}

	// No syslog available (e.g. non-Linux test sandbox): fall back to stderr.
	l.out = os.Stderr
	return l
}

// SetDefault installs l as the process-wide default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLog = l
}

// Default returns the process-wide default logger, creating one with
// DefaultConfig() on first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLog == nil {
		defaultLog = New(DefaultConfig())
	}
	return defaultLog
}

// WithComponent returns a derived logger tagging every message with
// the given component name, using the process default as its parent.
func WithComponent(name string) *Logger {
	return Default().WithComponent(name)
}

// SetLevel adjusts the verbosity threshold in place; it affects every
// derived Logger sharing this root since they share the level box.
func (l *Logger) SetLevel(level Level) {
	l.level.set(level)
}

// Level returns the current verbosity threshold.
func (l *Logger) Level() Level {
	return l.level.get()
}

// WithComponent returns a derived logger tagging every message with
// the given component name (e.g. "engine", "expiry").
func (l *Logger) WithComponent(name string) *Logger {
	n := l.clone()
	n.component = name
	return n
}

// WithError returns a derived logger carrying an "error" field.
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields(map[string]any{"error": err})
}

// WithFields returns a derived logger carrying the given key-value
// pairs, merged over any already present.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	n := l.clone()
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	n.fields = merged
	return n
}

func (l *Logger) clone() *Logger {
	return &Logger{
		mu:        l.mu,
		level:     l.level,
		out:       l.out,
		sys:       l.sys,
		component: l.component,
		fields:    l.fields,
	}
}

// Debug logs watch-list churn and pattern-hit detail; emitted only at LevelDebug.
func (l *Logger) Debug(msg string, kv ...any) { l.log(LevelDebug, "DEBUG", msg, kv) }

// Info logs successful blocks and table mutations; emitted at LevelInfo and above.
func (l *Logger) Info(msg string, kv ...any) { l.log(LevelInfo, "INFO", msg, kv) }

// Notice logs denials that are not errors (warnmax, failed lookups and adds); emitted at LevelWarn and above.
func (l *Logger) Notice(msg string, kv ...any) { l.log(LevelWarn, "NOTICE", msg, kv) }

// Warn logs warnfail and similar policy warnings; emitted at LevelWarn and above.
func (l *Logger) Warn(msg string, kv ...any) { l.log(LevelWarn, "WARN", msg, kv) }

// Error logs unconditionally, regardless of the configured level.
func (l *Logger) Error(msg string, kv ...any) { l.log(0, "ERROR", msg, kv) }

func (l *Logger) log(minLevel Level, tag, msg string, kv []any) {
	if minLevel > 0 && l.level.get() < minLevel {
		return
	}
	line := l.format(tag, msg, kv)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sys != nil {
		switch tag {
		case "ERROR":
			_ = l.sys.Err(line)
		case "WARN":
			_ = l.sys.Warning(line)
		case "NOTICE":
			_ = l.sys.Notice(line)
		case "INFO":
			_ = l.sys.Info(line)
		default:
			_ = l.sys.Debug(line)
		}
		return
	}
	if l.out != nil {
		fmt.Fprintln(l.out, line)
	}
}

func (l *Logger) format(tag, msg string, kv []any) string {
	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(tag)
	if l.component != "" {
		b.WriteByte(' ')
		b.WriteByte('[')
		b.WriteString(l.component)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(msg)

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}

	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}

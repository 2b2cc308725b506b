// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package detect is the detection engine: it drives input lines
// through a declaration-ordered list of Groups, extracts the
// offending host from whichever pattern matches, updates each
// group's watch list, and calls the ban-table client when a group's
// threshold is met.
package detect

import (
	"time"

	"grimm.is/banhammer/internal/banlib"
	"grimm.is/banhammer/internal/pattern"
	"grimm.is/banhammer/internal/watchlist"
)

// Flags are the seven policy booleans from a group's config block.
type Flags struct {
	Continue   bool // process subsequent groups for this line
	Skip       bool // only meaningful with Continue: stop this group, still continue to next
	WarnFail   bool // emit a warning on the first hit past max_count
	BlockFail  bool // re-block on every hit past max_count
	WarnMax    bool // emit a notice when a new host is seen with the watch list full
	BlockMax   bool // block a new host preemptively when the watch list is full
	BlockLocal bool // allow blocking loopback/local addresses
}

// DefaultFlags matches spec.md's stated defaults.
func DefaultFlags() Flags {
	return Flags{BlockFail: true, WarnMax: true, BlockMax: true}
}

// Group is a ban policy plus its pattern set and live watch list.
type Group struct {
	Name      string
	Table     banlib.TableID
	MaxCount  uint32
	Within    time.Duration
	Reset     time.Duration
	RandomPct int // jitter percent in [-100,100]
	MaxHosts  int // 0 = unbounded
	Flags     Flags
	Patterns  *pattern.Store
	Watch     *watchlist.WatchList

	matchCount []uint64 // per-pattern hit counter, parallel to Patterns
}

// NewGroup returns a Group with spec.md's stated defaults: table=1,
// count=4, within=60s, reset=600s, random=30, maxhosts=0 (unbounded).
func NewGroup(name string) *Group {
	return &Group{
		Name:      name,
		Table:     1,
		MaxCount:  4,
		Within:    60 * time.Second,
		Reset:     600 * time.Second,
		RandomPct: 30,
		MaxHosts:  0,
		Flags:     DefaultFlags(),
		Patterns:  pattern.NewStore(),
		Watch:     watchlist.New(),
	}
}

func (g *Group) addPattern(expr string) error {
	if err := g.Patterns.Add(expr); err != nil {
		return err
	}
	g.matchCount = append(g.matchCount, 0)
	return nil
}

// MatchCount reports how many times the i'th pattern has matched a
// line, for the status dump.
func (g *Group) MatchCount(i int) uint64 {
	if i < 0 || i >= len(g.matchCount) {
		return 0
	}
	return g.matchCount[i]
}

// Status summarizes one Group for the status-dump signal.
type Status struct {
	Name     string
	Table    banlib.TableID
	Patterns []PatternStatus
	Hosts    []HostStatus
}

// PatternStatus is one pattern's declaration-order position and hit count.
type PatternStatus struct {
	Index int
	Expr  string
	Hits  uint64
}

// HostStatus is one watch entry's state at dump time.
type HostStatus struct {
	Host        string
	Count       uint32
	RemainingIn time.Duration
	State       string // "watching", "blocked", or "failed"
}

// Snapshot builds a Status for g as of now, using g.Within for the
// remaining-window computation and g.MaxCount to classify each entry's
// State.
func (g *Group) Snapshot(now time.Time) Status {
	st := Status{Name: g.Name, Table: g.Table}
	for i := 0; i < g.Patterns.Len(); i++ {
		st.Patterns = append(st.Patterns, PatternStatus{
			Index: i,
			Expr:  g.Patterns.At(i).String(),
			Hits:  g.MatchCount(i),
		})
	}
	g.Watch.Range(func(e *watchlist.Entry) {
		remaining := e.FirstSeen.Add(g.Within).Sub(now)
		state := "watching"
		switch {
		case e.BlockFailed:
			state = "failed"
		case e.Count >= g.MaxCount:
			state = "blocked"
		}
		st.Hosts = append(st.Hosts, HostStatus{
			Host:        e.Host,
			Count:       e.Count,
			RemainingIn: remaining,
			State:       state,
		})
	})
	return st
}

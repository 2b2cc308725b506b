// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detect

import (
	"context"
	"math/rand/v2"
	"time"

	"grimm.is/banhammer/internal/banlib"
	"grimm.is/banhammer/internal/clock"
	"grimm.is/banhammer/internal/logging"
	"grimm.is/banhammer/internal/resolver"
	"grimm.is/banhammer/internal/watchlist"
)

// Engine drives input lines through a declaration-ordered list of
// Groups. It owns no state besides the groups themselves and its
// collaborators -- the "engine context" spec.md's design notes call
// for in place of the original's global mutable state.
type Engine struct {
	Groups   []*Group
	Client   banlib.Client
	Resolver resolver.Resolver
	Clock    clock.Clock
	Log      *logging.Logger
}

// New returns an Engine over groups, using client for ban mutations
// and res for resolution/locality. log may be nil, in which case a
// process default is used.
func New(groups []*Group, client banlib.Client, res resolver.Resolver, clk clock.Clock, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.WithComponent("engine")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{Groups: groups, Client: client, Resolver: res, Clock: clk, Log: log}
}

// ProcessLineNow drives line through every group using the engine's
// own clock as the observation time; this is what the main loop uses
// for real input. Tests drive ProcessLine directly with a fixed now.
func (e *Engine) ProcessLineNow(ctx context.Context, line string) {
	e.ProcessLine(ctx, line, e.Clock.Now())
}

// ProcessLine drives line through every group in declaration order,
// per spec.md §4.E. now is the observation time used for this line's
// prune/append/block decisions.
func (e *Engine) ProcessLine(ctx context.Context, line string, now time.Time) {
	for _, g := range e.Groups {
		g.Watch.Prune(now, g.Within)

		bt := e.blockExpiry(g, now)

		stopAll, stopGroup := e.walkPatterns(ctx, g, line, now, bt)
		if stopAll {
			return
		}
		if stopGroup {
			continue
		}
	}
}

// blockExpiry computes this line's candidate ban expiry for g: zero
// (permanent) if Reset is zero, otherwise Reset jittered by up to
// ±RandomPct percent, drawn fresh for each group on each line; blocks
// that one group issues for the same line share that one draw.
func (e *Engine) blockExpiry(g *Group, now time.Time) time.Time {
	if g.Reset == 0 {
		return time.Time{}
	}
	if g.RandomPct == 0 {
		return now.Add(g.Reset)
	}
	u := rand.Float64()*2 - 1 // uniform in [-1, +1]
	jitter := float64(g.Reset) * u * float64(g.RandomPct) / 100
	return now.Add(g.Reset + time.Duration(jitter))
}

// walkPatterns walks g's patterns in declaration order, applying the
// host decision on each match and honoring the flow-control flags.
// stopAll means abandon this line entirely (no further groups);
// stopGroup means stop this group but continue to the next.
func (e *Engine) walkPatterns(ctx context.Context, g *Group, line string, now time.Time, bt time.Time) (stopAll, stopGroup bool) {
	for i := 0; i < g.Patterns.Len(); i++ {
		p := g.Patterns.At(i)
		host, ok := p.Match(line)
		if !ok {
			continue
		}
		g.matchCount[i]++
		e.Log.Debug("pattern hit", "group", g.Name, "pattern", i, "host", host)

		e.decide(ctx, g, host, now, bt)

		switch {
		case !g.Flags.Continue:
			return true, false
		case g.Flags.Skip:
			return false, true
		}
	}
	return false, false
}

// decide implements §4.E.i, the host state machine.
func (e *Engine) decide(ctx context.Context, g *Group, host string, now time.Time, bt time.Time) {
	if entry, found := g.Watch.Find(host); found {
		c := g.Watch.Bump(entry)
		switch {
		case c < g.MaxCount:
			// no ban action yet
		case c == g.MaxCount:
			e.block(ctx, g, entry, host, bt)
		default: // c > g.MaxCount
			if c == g.MaxCount+1 && g.Flags.WarnFail {
				e.Log.Warn("host still failing after block", "group", g.Name, "host", host, "count", c)
			}
			if g.Flags.BlockFail {
				e.block(ctx, g, entry, host, bt)
			}
		}
		return
	}

	if g.MaxHosts > 0 && g.Watch.Size() >= g.MaxHosts {
		if g.Flags.WarnMax {
			e.Log.Notice("watch list full, new host seen", "group", g.Name, "host", host)
		}
		if g.Flags.BlockMax {
			e.blockWithoutEntry(ctx, g, host, bt)
		} else {
			e.Log.Info("dropping host, watch list full", "group", g.Name, "host", host)
		}
		return
	}

	entry := g.Watch.Append(host, now)
	if g.MaxCount == 1 {
		e.block(ctx, g, entry, host, bt)
	}
}

// block resolves host, skips local addresses unless BlockLocal is
// set, and adds every remaining address to g.Table at expiry bt.
func (e *Engine) block(ctx context.Context, g *Group, entry *watchlist.Entry, host string, bt time.Time) {
	entry.BlockFailed = e.blockHost(ctx, g, host, bt)
}

// blockWithoutEntry issues a preemptive block (watch-list-full case)
// with no watch entry to annotate.
func (e *Engine) blockWithoutEntry(ctx context.Context, g *Group, host string, bt time.Time) {
	e.blockHost(ctx, g, host, bt)
}

// blockHost is the shared resolve+locality-guard+add loop behind
// block(host, bt, table, blocklocal) in spec.md §4.E.i. It returns
// true if no address was added: resolution failed or returned nothing,
// or every address was skipped as local or failed to add (used to mark
// the watch entry "failed" for the status dump).
func (e *Engine) blockHost(ctx context.Context, g *Group, host string, bt time.Time) bool {
	addrs, err := e.Resolver.Resolve(ctx, host)
	if err != nil {
		e.Log.Notice("resolve failed", "group", g.Name, "host", host, "error", err)
		return true
	}
	if len(addrs) == 0 {
		e.Log.Notice("resolve returned no addresses", "group", g.Name, "host", host)
		return true
	}

	value := uint32(0)
	if !bt.IsZero() {
		value = uint32(bt.Unix())
	}

	anyOK := false
	for _, a := range addrs {
		if !g.Flags.BlockLocal && e.Resolver.IsLocal(a) {
			e.Log.Info("skipping local address", "group", g.Name, "host", host, "addr", a.String())
			continue
		}
		res, err := e.Client.Add(a, value, g.Table)
		if err != nil {
			e.Log.Notice("add failed", "group", g.Name, "host", host, "addr", a.String(), "error", err)
			continue
		}
		if res == banlib.AddExists {
			e.Log.Info("address already banned", "group", g.Name, "host", host, "addr", a.String())
		} else {
			e.Log.Info("blocked", "group", g.Name, "host", host, "addr", a.String(), "table", g.Table)
		}
		anyOK = true
	}
	return !anyOK
}


// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package expiry

import (
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	"grimm.is/banhammer/internal/addr"
	"grimm.is/banhammer/internal/banlib"
	"grimm.is/banhammer/internal/clock"
	"grimm.is/banhammer/internal/logging"
	"grimm.is/banhammer/internal/resolver"
)

// Daemon is the expiry service's owned state: the watched table ids,
// sleep interval, and optional state file path -- the "daemon
// context" spec.md's design notes call for alongside the detection
// engine's separate "engine context".
type Daemon struct {
	Tables    []banlib.TableID
	Interval  time.Duration
	StatePath string
	Client    banlib.Client
	Resolver  resolver.Resolver
	Clock     clock.Clock
	Log       *logging.Logger

	// NoReverseDNS disables hostname lookup in list mode's output.
	NoReverseDNS bool
}

// New returns a Daemon. log may be nil for the process default.
func New(tables []banlib.TableID, interval time.Duration, client banlib.Client, res resolver.Resolver, log *logging.Logger) *Daemon {
	if log == nil {
		log = logging.WithComponent("expiry")
	}
	return &Daemon{Tables: tables, Interval: interval, Client: client, Resolver: res, Clock: clock.Real{}, Log: log}
}

// Sweep walks every watched table and deletes entries whose value is
// non-zero and in the past. Errors are logged and do not abort the
// sweep.
func (d *Daemon) Sweep() {
	now := d.Clock.Now()
	for _, table := range d.Tables {
		var toDelete []addr.Address
		err := d.Client.List(table, func(a addr.Address, value uint32) {
			if value != 0 && int64(value) < now.Unix() {
				toDelete = append(toDelete, a)
			}
		})
		if err != nil {
			d.Log.Notice("list failed during sweep", "table", table, "error", err)
			continue
		}

		for _, a := range toDelete {
			if err := d.Client.Del(a, table); err != nil {
				d.Log.Notice("delete failed during sweep", "table", table, "addr", a.String(), "error", err)
				continue
			}
			d.Log.Info("expired ban", "table", table, "addr", a.String())
		}
	}
}

// SaveState writes the current contents of every watched table to
// d.StatePath. A no-op when StatePath is empty. Best-effort: any
// failure is logged and ignored.
func (d *Daemon) SaveState() {
	if d.StatePath == "" {
		return
	}
	var entries []stateEntry
	for _, table := range d.Tables {
		err := d.Client.List(table, func(a addr.Address, value uint32) {
			entries = append(entries, stateEntry{Table: table, Value: value, Host: a.String()})
		})
		if err != nil {
			d.Log.Notice("list failed during save", "table", table, "error", err)
		}
	}

	if err := SaveStateFile(d.StatePath, d.Clock.Now(), entries); err != nil {
		d.Log.Notice("save state failed", "path", d.StatePath, "error", err)
	}
}

// LoadState reads d.StatePath, validates its trust properties, and
// re-inserts every valid entry through the resolver and banlib client.
// Invalid or untrustworthy state files are logged and skipped, never
// fatal.
func (d *Daemon) LoadState(ctx context.Context) {
	if d.StatePath == "" {
		return
	}
	entries, skipped, err := LoadStateFile(d.StatePath)
	if err != nil {
		d.Log.Notice("load state failed", "path", d.StatePath, "error", err)
		return
	}
	if skipped > 0 {
		d.Log.Notice("skipped invalid state-file lines", "count", skipped)
	}

	for _, e := range entries {
		addrs, err := d.Resolver.Resolve(ctx, e.Host)
		if err != nil || len(addrs) == 0 {
			d.Log.Notice("state restore: resolve failed", "host", e.Host, "error", err)
			continue
		}
		for _, a := range addrs {
			if _, err := d.Client.Add(a, e.Value, e.Table); err != nil {
				d.Log.Notice("state restore: add failed", "host", e.Host, "error", err)
			}
		}
	}
}

// List prints every entry in every watched table, one table at a
// time, with a human-readable "expires in" and optional reverse DNS.
func (d *Daemon) List(ctx context.Context, w io.Writer) error {
	now := d.Clock.Now()
	for _, table := range d.Tables {
		var rows []listRow
		err := d.Client.List(table, func(a addr.Address, value uint32) {
			rows = append(rows, listRow{addr: a, value: value})
		})
		if err != nil {
			return err
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].addr.String() < rows[j].addr.String() })

		if _, err := fmt.Fprintf(w, "table %d:\n", table); err != nil {
			return err
		}
		for _, row := range rows {
			name := row.addr.String()
			if !d.NoReverseDNS {
				if hosts, err := d.reverseDNS(ctx, row.addr); err == nil && len(hosts) > 0 {
					name = hosts[0]
				}
			}
			expiry := "permanent"
			if row.value != 0 {
				expiry = time.Unix(int64(row.value), 0).Sub(now).Truncate(time.Second).String()
			}
			if _, err := fmt.Fprintf(w, "  %-39s %-39s expires in %s\n", row.addr.String(), name, expiry); err != nil {
				return err
			}
		}
	}
	return nil
}

type listRow struct {
	addr  addr.Address
	value uint32
}

// Run loops sweep/sleep until done reports true or ctx is cancelled,
// then saves state and returns. done is polled before each sweep;
// cancelling ctx also interrupts the sleep, so a caller that cancels
// ctx from its signal handler has termination noticed without waiting
// out a long interval. The caller is expected to close done over an
// atomic.Bool flipped by its signal handler.
func (d *Daemon) Run(ctx context.Context, done func() bool) {
	for !done() {
		d.Sweep()

		select {
		case <-ctx.Done():
			d.SaveState()
			return
		case <-time.After(d.Interval):
		}
	}
	d.SaveState()
}

// reverseDNS is deliberately the stdlib resolver, not an injected
// Resolver: reverse lookups are display-only (the "-n" flag disables
// them entirely) and use the same NSS-aware OS resolver as forward
// lookups in internal/resolver, for the same reason.
func (d *Daemon) reverseDNS(ctx context.Context, a addr.Address) ([]string, error) {
	return net.DefaultResolver.LookupAddr(ctx, a.String())
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package watchlist is a Group's time-ordered queue of watched hosts:
// a FIFO by first-seen time, with a map index so find/bump are O(1)
// and prune only has to inspect the head.
package watchlist

import (
	"container/list"
	"time"
)

// Entry is one watched host. Count starts at 1 and is bumped on every
// subsequent match; FirstSeen never changes once the entry is
// created, since ordering and pruning are both keyed on it.
type Entry struct {
	Host      string
	Count     uint32
	FirstSeen time.Time

	// BlockFailed records whether the most recent block() attempt for
	// this entry added no address at all (resolution failure, every add
	// failing, or every address skipped as local), for the status-dump
	// signal's "failed" state.
	BlockFailed bool
}

// WatchList is a single Group's watch list: entries ordered by
// FirstSeen ascending (insertion order, since only append and
// head-prune ever mutate it), each host present at most once.
type WatchList struct {
	order *list.List               // of *Entry, oldest first
	index map[string]*list.Element // host -> its element in order
}

// New returns an empty WatchList.
func New() *WatchList {
	return &WatchList{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// Prune removes every head entry whose FirstSeen+within has passed
// relative to now. Because the list is ordered by FirstSeen, the scan
// stops at the first surviving entry.
func (w *WatchList) Prune(now time.Time, within time.Duration) {
	for e := w.order.Front(); e != nil; {
		entry := e.Value.(*Entry)
		if !entry.FirstSeen.Add(within).Before(now) {
			return
		}
		next := e.Next()
		w.order.Remove(e)
		delete(w.index, entry.Host)
		e = next
	}
}

// Find returns the entry for host, if present.
func (w *WatchList) Find(host string) (*Entry, bool) {
	e, ok := w.index[host]
	if !ok {
		return nil, false
	}
	return e.Value.(*Entry), true
}

// Bump increments entry's count and returns the new value. entry must
// have come from Find on this same WatchList.
func (w *WatchList) Bump(entry *Entry) uint32 {
	entry.Count++
	return entry.Count
}

// Append adds a fresh entry for host at count=1, at the tail (it is
// necessarily the most-recently-seen so far).
func (w *WatchList) Append(host string, now time.Time) *Entry {
	entry := &Entry{Host: host, Count: 1, FirstSeen: now}
	elem := w.order.PushBack(entry)
	w.index[host] = elem
	return entry
}

// Size reports the number of hosts currently on the watch list.
func (w *WatchList) Size() int {
	return w.order.Len()
}

// Range calls fn for every entry, oldest (earliest FirstSeen) first.
// Used by the status-dump signal; fn must not mutate the list.
func (w *WatchList) Range(fn func(*Entry)) {
	for e := w.order.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*Entry))
	}
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package watchlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndFind(t *testing.T) {
	w := New()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	w.Append("10.0.0.1", now)
	entry, ok := w.Find("10.0.0.1")
	require.True(t, ok)
	assert.Equal(t, uint32(1), entry.Count)
	assert.Equal(t, 1, w.Size())
}

func TestBumpIncrementsCount(t *testing.T) {
	w := New()
	now := time.Now()
	w.Append("10.0.0.1", now)

	entry, ok := w.Find("10.0.0.1")
	require.True(t, ok)
	assert.Equal(t, uint32(2), w.Bump(entry))
	assert.Equal(t, uint32(3), w.Bump(entry))
}

func TestPruneRemovesOnlyExpiredHeadRun(t *testing.T) {
	w := New()
	base := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	w.Append("old", base)
	w.Append("mid", base.Add(30*time.Second))
	w.Append("new", base.Add(59*time.Second))

	// within=60s: "old" expires at base+60s, "mid" at base+90s.
	now := base.Add(61 * time.Second)
	w.Prune(now, 60*time.Second)

	_, ok := w.Find("old")
	assert.False(t, ok, "old should have been pruned")
	_, ok = w.Find("mid")
	assert.True(t, ok, "mid is not yet expired")
	_, ok = w.Find("new")
	assert.True(t, ok, "new is not yet expired")
	assert.Equal(t, 2, w.Size())
}

func TestPruneStopsAtFirstSurvivor(t *testing.T) {
	w := New()
	base := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	w.Append("a", base)
	w.Append("b", base.Add(120*time.Second)) // far in the future relative to window

	w.Prune(base.Add(61*time.Second), 60*time.Second)

	_, ok := w.Find("a")
	assert.False(t, ok)
	_, ok = w.Find("b")
	assert.True(t, ok, "prune must stop scanning once it finds a surviving head")
}

func TestEachHostOnceOnly(t *testing.T) {
	w := New()
	now := time.Now()
	w.Append("10.0.0.1", now)

	entry, ok := w.Find("10.0.0.1")
	require.True(t, ok)
	w.Bump(entry)

	assert.Equal(t, 1, w.Size())
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/banhammer/internal/addr"
	"grimm.is/banhammer/internal/banlib"
	"grimm.is/banhammer/internal/logging"
	"grimm.is/banhammer/internal/resolver"
)

func baseGroup(t *testing.T, name string, pattern string) *Group {
	t.Helper()
	g := NewGroup(name)
	g.Table = 1
	g.MaxCount = 3
	g.Within = 60 * time.Second
	g.Reset = 600 * time.Second
	g.RandomPct = 0
	g.Flags = Flags{BlockFail: true, WarnMax: true, BlockMax: true}
	require.NoError(t, g.addPattern(pattern))
	return g
}

func newTestEngine(t *testing.T, groups ...*Group) (*Engine, *banlib.MemoryBackend, *resolver.Fake) {
	t.Helper()
	client := banlib.NewMemoryBackend()
	require.NoError(t, client.Open())
	res := resolver.NewFake()

	a, err := addr.Parse("10.0.0.1")
	require.NoError(t, err)
	res.Hosts["A"] = []addr.Address{a}
	b, err := addr.Parse("10.0.0.2")
	require.NoError(t, err)
	res.Hosts["B"] = []addr.Address{b}
	c, err := addr.Parse("10.0.0.3")
	require.NoError(t, err)
	res.Hosts["C"] = []addr.Address{c}

	log := logging.Default()
	return New(groups, client, res, nil, log), client, res
}

func tableCount(t *testing.T, client *banlib.MemoryBackend, table banlib.TableID) int {
	t.Helper()
	n := 0
	require.NoError(t, client.List(table, func(addr.Address, uint32) { n++ }))
	return n
}

// Scenario 1: three hits within the window trigger exactly one block.
func TestScenario1_ThreeHitsTriggersBlock(t *testing.T) {
	g := baseGroup(t, "g1", `^Fail (?P<host>\S+)$`)
	e, client, _ := newTestEngine(t, g)
	base := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	e.ProcessLine(context.Background(), "Fail A", base)
	e.ProcessLine(context.Background(), "Fail A", base.Add(10*time.Second))
	e.ProcessLine(context.Background(), "Fail A", base.Add(20*time.Second))

	assert.Equal(t, 1, tableCount(t, client, 1))
	entry, ok := g.Watch.Find("A")
	require.True(t, ok)
	assert.Equal(t, uint32(3), entry.Count)
}

// Scenario 2: warnfail + blockfail on continued hits past max_count.
func TestScenario2_WarnFailAndBlockFailOnContinuedHits(t *testing.T) {
	g := baseGroup(t, "g2", `^Fail (?P<host>\S+)$`)
	g.Flags.WarnFail = true
	e, client, _ := newTestEngine(t, g)
	base := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	e.ProcessLine(context.Background(), "Fail A", base)
	e.ProcessLine(context.Background(), "Fail A", base.Add(10*time.Second))
	e.ProcessLine(context.Background(), "Fail A", base.Add(20*time.Second))
	e.ProcessLine(context.Background(), "Fail A", base.Add(25*time.Second))

	assert.Equal(t, 1, tableCount(t, client, 1), "blockfail re-add of the same address must report exists, not grow the table")
	entry, ok := g.Watch.Find("A")
	require.True(t, ok)
	assert.Equal(t, uint32(4), entry.Count)
}

// Scenario 3: entries older than the window are pruned before the new hit is counted.
func TestScenario3_PruneBeforeFreshHit(t *testing.T) {
	g := baseGroup(t, "g3", `^Fail (?P<host>\S+)$`)
	e, client, _ := newTestEngine(t, g)
	base := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	e.ProcessLine(context.Background(), "Fail A", base)
	e.ProcessLine(context.Background(), "Fail A", base.Add(10*time.Second))
	e.ProcessLine(context.Background(), "Fail A", base.Add(75*time.Second))

	entry, ok := g.Watch.Find("A")
	require.True(t, ok)
	assert.Equal(t, uint32(1), entry.Count, "the 75s hit must start a fresh entry after the earlier two were pruned")
	assert.Equal(t, 0, tableCount(t, client, 1), "no block should have been issued")
}

// Scenario 4: max_hosts=2 with blockmax=true preemptively blocks the third host.
func TestScenario4_MaxHostsPreemptiveBlock(t *testing.T) {
	g := baseGroup(t, "g4", `^Fail (?P<host>\S+)$`)
	g.MaxHosts = 2
	g.Flags.BlockMax = true
	g.Flags.WarnMax = true
	e, client, _ := newTestEngine(t, g)
	base := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	e.ProcessLine(context.Background(), "Fail A", base)
	e.ProcessLine(context.Background(), "Fail B", base.Add(1*time.Second))
	e.ProcessLine(context.Background(), "Fail C", base.Add(2*time.Second))

	assert.Equal(t, 2, g.Watch.Size(), "A and B should be on the watch list")
	_, onWatch := g.Watch.Find("C")
	assert.False(t, onWatch, "C must not enter the watch list")
	assert.Equal(t, 1, tableCount(t, client, 1), "C should have been blocked preemptively")
}

// Scenario 5: continue=true, skip=false lets two groups both block the
// same host, in declaration order, into their own tables.
func TestScenario5_ContinueAcrossGroups(t *testing.T) {
	g1 := baseGroup(t, "g1", `^Fail (?P<host>\S+)$`)
	g1.Table = 1
	g1.MaxCount = 1
	g1.Flags.Continue = true

	g2 := baseGroup(t, "g2", `^Fail (?P<host>\S+)$`)
	g2.Table = 2
	g2.MaxCount = 1
	g2.Flags.Continue = true

	e, client, _ := newTestEngine(t, g1, g2)
	e.ProcessLine(context.Background(), "Fail A", time.Now())

	assert.Equal(t, 1, tableCount(t, client, 1))
	assert.Equal(t, 1, tableCount(t, client, 2))
}

// Scenario 6: reset=0 yields a permanent ban (value 0), which the
// expiry daemon's sweep condition (value != 0) must never delete.
func TestScenario6_ResetZeroMeansPermanent(t *testing.T) {
	g := baseGroup(t, "g6", `^Fail (?P<host>\S+)$`)
	g.Reset = 0
	g.MaxCount = 1
	e, client, _ := newTestEngine(t, g)

	e.ProcessLine(context.Background(), "Fail A", time.Now())

	var gotValue uint32 = 999
	require.NoError(t, client.List(1, func(a addr.Address, v uint32) {
		if a.String() == "10.0.0.1" {
			gotValue = v
		}
	}))
	assert.Equal(t, uint32(0), gotValue)
}

func TestLocalAddressSkippedUnlessBlockLocal(t *testing.T) {
	g := baseGroup(t, "local", `^Fail (?P<host>\S+)$`)
	g.MaxCount = 1
	g.Flags.BlockLocal = false
	e, client, res := newTestEngine(t, g)

	loopback, err := addr.Parse("127.0.0.1")
	require.NoError(t, err)
	res.Hosts["LOCALHOST"] = []addr.Address{loopback}

	e.ProcessLine(context.Background(), "Fail LOCALHOST", time.Now())
	assert.Equal(t, 0, tableCount(t, client, 1), "loopback must not be banned when blocklocal is false")
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package banlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/banhammer/internal/addr"
	banerrors "grimm.is/banhammer/internal/errors"
)

func mustAddr(t *testing.T, s string) addr.Address {
	t.Helper()
	a, err := addr.Parse(s)
	require.NoError(t, err)
	return a
}

func TestMemoryBackend_AddThenAddIsExists(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Open())

	a := mustAddr(t, "10.0.0.1")
	res, err := b.Add(a, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, AddOK, res)

	res, err = b.Add(a, 200, 1)
	require.NoError(t, err)
	assert.Equal(t, AddExists, res)

	var seenValue uint32
	err = b.List(1, func(got addr.Address, value uint32) {
		if got.Equal(a) {
			seenValue = value
		}
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(200), seenValue, "re-adding an existing address should update its value")
}

func TestMemoryBackend_DelAbsentIsError(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Open())

	err := b.Del(mustAddr(t, "10.0.0.1"), 1)
	require.Error(t, err)
	assert.Equal(t, banerrors.KindNotFound, banerrors.GetKind(err))
}

func TestMemoryBackend_DelRemovesEntry(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Open())

	a := mustAddr(t, "192.168.1.5")
	_, err := b.Add(a, 42, 2)
	require.NoError(t, err)

	require.NoError(t, b.Del(a, 2))

	count := 0
	require.NoError(t, b.List(2, func(addr.Address, uint32) { count++ }))
	assert.Equal(t, 0, count)
}

func TestMemoryBackend_ListIsStableUnderMutation(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Open())

	hosts := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	for _, h := range hosts {
		_, err := b.Add(mustAddr(t, h), 0, 1)
		require.NoError(t, err)
	}

	delivered := 0
	err := b.List(1, func(a addr.Address, _ uint32) {
		delivered++
		// Delete the observed entry mid-iteration; this must not affect
		// how many entries this call still delivers.
		_ = b.Del(a, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, len(hosts), delivered, "callback mutation must not shrink the in-flight snapshot")

	remaining := 0
	require.NoError(t, b.List(1, func(addr.Address, uint32) { remaining++ }))
	assert.Equal(t, 0, remaining)
}

func TestMemoryBackend_TablesAreIsolated(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Open())

	a := mustAddr(t, "10.0.0.1")
	_, err := b.Add(a, 0, 1)
	require.NoError(t, err)

	count := 0
	require.NoError(t, b.List(2, func(addr.Address, uint32) { count++ }))
	assert.Equal(t, 0, count, "an address added to table 1 must not appear in table 2")
}

func TestMemoryBackend_IPv4AndIPv6Coexist(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Open())

	v4 := mustAddr(t, "10.0.0.1")
	v6 := mustAddr(t, "2001:db8::1")

	_, err := b.Add(v4, 0, 1)
	require.NoError(t, err)
	_, err = b.Add(v6, 0, 1)
	require.NoError(t, err)

	count := 0
	require.NoError(t, b.List(1, func(addr.Address, uint32) { count++ }))
	assert.Equal(t, 2, count)
}

func TestMemoryBackend_CloseClearsState(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Open())

	_, err := b.Add(mustAddr(t, "10.0.0.1"), 0, 1)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	require.NoError(t, b.Open())
	count := 0
	require.NoError(t, b.List(1, func(addr.Address, uint32) { count++ }))
	assert.Equal(t, 0, count)
}

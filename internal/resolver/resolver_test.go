// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/banhammer/internal/addr"
)

func parseAddr(s string) (addr.Address, error) { return addr.Parse(s) }

func TestSystem_ResolveLiteralAddressSkipsDNS(t *testing.T) {
	s := NewSystem(true)
	addrs, err := s.Resolve(context.Background(), "192.0.2.5")
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "192.0.2.5", addrs[0].String())
}

func TestSystem_ResolveFiltersIPv6WhenDisabled(t *testing.T) {
	s := NewSystem(false)
	addrs, err := s.Resolve(context.Background(), "2001:db8::1")
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestSystem_IsLocalLoopback(t *testing.T) {
	s := NewSystem(true)
	a, err := parseAddr("127.0.0.1")
	require.NoError(t, err)
	assert.True(t, s.IsLocal(a))
}

func TestFake_ResolveReturnsConfiguredAddresses(t *testing.T) {
	f := NewFake()
	a, err := parseAddr("10.1.1.1")
	require.NoError(t, err)
	f.Hosts["attacker.example"] = []addr.Address{a}

	got, err := f.Resolve(context.Background(), "attacker.example")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(a))
}

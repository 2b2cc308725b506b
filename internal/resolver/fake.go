// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package resolver

import (
	"context"

	"grimm.is/banhammer/internal/addr"
)

// Fake is a Resolver for tests: Resolve is driven by a static
// host→addresses map, and locality by an explicit set, so the
// detection engine's tests never touch DNS or netlink.
type Fake struct {
	Hosts map[string][]addr.Address
	Local map[addr.Address]bool
}

// NewFake returns an empty Fake resolver.
func NewFake() *Fake {
	return &Fake{Hosts: make(map[string][]addr.Address), Local: make(map[addr.Address]bool)}
}

// Resolve returns the configured addresses for host, or a literal
// parse if host wasn't registered and looks like an address.
func (f *Fake) Resolve(_ context.Context, host string) ([]addr.Address, error) {
	if addrs, ok := f.Hosts[host]; ok {
		return addrs, nil
	}
	if a, err := addr.Parse(host); err == nil {
		return []addr.Address{a}, nil
	}
	return nil, nil
}

// IsLocal reports the configured locality, defaulting to the address's
// own IsLoopback check.
func (f *Fake) IsLocal(a addr.Address) bool {
	if a.IsLoopback() {
		return true
	}
	return f.Local[a]
}

// RefreshLocalInterfaces is a no-op for Fake.
func (f *Fake) RefreshLocalInterfaces() error { return nil }

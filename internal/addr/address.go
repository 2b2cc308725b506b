// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package addr holds the single network-endpoint value type shared by
// the ban-table client, the resolver, and the detection engine.
package addr

import (
	"fmt"
	"net"
)

// Family distinguishes IPv4 from IPv6 addresses. Equality between
// Addresses of different families is always false, even if one is an
// IPv4-mapped IPv6 literal -- we normalize on Parse/From so that never
// happens by construction.
type Family uint8

const (
	FamilyV4 Family = 4
	FamilyV6 Family = 6
)

// Address is a single network endpoint: IPv4 (32 bits) or IPv6 (128
// bits). Masks of /32 and /128 are assumed throughout this system --
// bans always target a single host.
type Address struct {
	family Family
	bytes  [16]byte // only the first 4 bytes are meaningful for FamilyV4
}

// Parse interprets a literal IPv4 or IPv6 address string.
func Parse(s string) (Address, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return Address{}, fmt.Errorf("addr: invalid address %q", s)
	}
	return From(ip), nil
}

// From converts a net.IP into an Address, normalizing IPv4-mapped IPv6
// representations to FamilyV4 so bitwise equality is well defined.
func From(ip net.IP) Address {
	var a Address
	if v4 := ip.To4(); v4 != nil {
		a.family = FamilyV4
		copy(a.bytes[:4], v4)
		return a
	}
	v6 := ip.To16()
	a.family = FamilyV6
	copy(a.bytes[:], v6)
	return a
}

// Family reports whether the address is IPv4 or IPv6.
func (a Address) Family() Family { return a.family }

// IsV4 reports whether a is an IPv4 address.
func (a Address) IsV4() bool { return a.family == FamilyV4 }

// IsV6 reports whether a is an IPv6 address.
func (a Address) IsV6() bool { return a.family == FamilyV6 }

// IP returns the net.IP representation, suitable for passing to
// backends and the resolver.
func (a Address) IP() net.IP {
	if a.family == FamilyV4 {
		return net.IPv4(a.bytes[0], a.bytes[1], a.bytes[2], a.bytes[3])
	}
	ip := make(net.IP, 16)
	copy(ip, a.bytes[:])
	return ip
}

// String renders the address in its usual dotted-quad or colon-hex form.
func (a Address) String() string {
	if a.family == 0 {
		return "<invalid>"
	}
	return a.IP().String()
}

// Equal reports bitwise equality on the family-specific field, per the
// data model: equality never crosses families.
func (a Address) Equal(b Address) bool {
	if a.family != b.family {
		return false
	}
	if a.family == FamilyV4 {
		return a.bytes[0] == b.bytes[0] && a.bytes[1] == b.bytes[1] &&
			a.bytes[2] == b.bytes[2] && a.bytes[3] == b.bytes[3]
	}
	return a.bytes == b.bytes
}

// IsLoopback reports whether the address is in the loopback range
// (127.0.0.0/8 or ::1).
func (a Address) IsLoopback() bool {
	return a.IP().IsLoopback()
}

// Zero reports whether this is the unset Address value.
func (a Address) Zero() bool {
	return a.family == 0
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package banlib is the ban-table client: the single point of contact
// with the firewall backend, offering open/close/add/del/list over a
// small table-id keyed address set. Callers never see the backend
// directly -- they hold a Client.
package banlib

import (
	"grimm.is/banhammer/internal/addr"
)

// TableID identifies one firewall set. The detection engine and expiry
// daemon both address tables by this small integer, matching the
// original C API's u_int16_t table argument.
type TableID uint16

// AddResult distinguishes a fresh insert from a no-op duplicate; see
// Client.Add.
type AddResult int

const (
	// AddOK means the address was not previously present and is now banned.
	AddOK AddResult = iota
	// AddExists means the address was already present. The backend may
	// still have refreshed its associated value (e.g. a new expiry
	// timestamp); callers treat this the same as AddOK for retry purposes.
	AddExists
)

func (r AddResult) String() string {
	switch r {
	case AddOK:
		return "ok"
	case AddExists:
		return "exists"
	default:
		return "unknown"
	}
}

// Client is the ban-table backend contract. Open must succeed before
// any other method is called; its failure is the only one fatal to
// the process. All other methods report transport errors individually
// so callers can log and continue.
type Client interface {
	// Open acquires the backend handle (a netlink socket, in the nft
	// backend). Only Open failure is fatal.
	Open() error

	// Close releases the backend handle.
	Close() error

	// Add inserts addr into table with the given associated value (an
	// expiry timestamp in Unix seconds, by convention of the callers).
	// An address already present is reported as AddExists, not an
	// error; the backend may update its value.
	Add(address addr.Address, value uint32, table TableID) (AddResult, error)

	// Del removes addr from table. Deleting an absent address is an
	// error.
	Del(address addr.Address, table TableID) error

	// List delivers every (address, value) pair currently in table to
	// fn, as a stable snapshot: fn may mutate the same table (typically
	// deleting the entry just observed) without changing which entries
	// are still to be delivered during this call.
	List(table TableID, fn func(addr.Address, uint32)) error
}

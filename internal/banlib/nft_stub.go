// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package banlib

import (
	"time"

	banerrors "grimm.is/banhammer/internal/errors"

	"grimm.is/banhammer/internal/addr"
)

// NFTBackend is unavailable outside Linux; every method except Close
// returns KindUnavailable rather than silently degrading to an in-memory
// table. Tests and non-Linux development builds use MemoryBackend
// directly instead.
type NFTBackend struct{}

// NewNFTBackend returns a stub backend. The timeout parameter is
// accepted for signature parity with the Linux build and ignored.
func NewNFTBackend(timeout time.Duration) *NFTBackend {
	return &NFTBackend{}
}

var errUnavailable = banerrors.New(banerrors.KindUnavailable, "banlib: nftables backend requires linux")

func (b *NFTBackend) Open() error { return errUnavailable }

func (b *NFTBackend) Close() error { return nil }

func (b *NFTBackend) Add(address addr.Address, value uint32, table TableID) (AddResult, error) {
	return 0, errUnavailable
}

func (b *NFTBackend) Del(address addr.Address, table TableID) error {
	return errUnavailable
}

func (b *NFTBackend) List(table TableID, fn func(addr.Address, uint32)) error {
	return errUnavailable
}

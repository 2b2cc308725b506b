// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package banlib

import (
	"sync"

	banerrors "grimm.is/banhammer/internal/errors"

	"grimm.is/banhammer/internal/addr"
)

// MemoryBackend is an in-memory Client used by every unit test in this
// repository and by non-Linux builds, where no real nftables backend
// is available. It satisfies the same snapshot and duplicate-tolerance
// contracts as NFTBackend.
type MemoryBackend struct {
	mu     sync.Mutex
	open   bool
	tables map[TableID]map[addr.Address]uint32
}

// NewMemoryBackend returns an unopened MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[TableID]map[addr.Address]uint32)}
}

// Open marks the backend ready. MemoryBackend never fails to open.
func (m *MemoryBackend) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	return nil
}

// Close discards all table state.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	m.tables = make(map[TableID]map[addr.Address]uint32)
	return nil
}

// Add inserts address into table, or updates its value and reports
// AddExists if already present.
func (m *MemoryBackend) Add(address addr.Address, value uint32, table TableID) (AddResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.tables[table]
	if !ok {
		set = make(map[addr.Address]uint32)
		m.tables[table] = set
	}

	if _, exists := set[address]; exists {
		set[address] = value
		return AddExists, nil
	}
	set[address] = value
	return AddOK, nil
}

// Del removes address from table; it is an error if absent.
func (m *MemoryBackend) Del(address addr.Address, table TableID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.tables[table]
	if !ok {
		return banerrors.New(banerrors.KindNotFound, "banlib: table has no entries")
	}
	if _, exists := set[address]; !exists {
		return banerrors.Attr(
			banerrors.New(banerrors.KindNotFound, "banlib: address not in table"),
			"address", address.String(),
		)
	}
	delete(set, address)
	return nil
}

// List delivers a stable snapshot of table's current contents to fn.
// The snapshot is taken by copying keys under lock before fn is ever
// called, so a callback that deletes the observed entry cannot affect
// which entries this call still delivers.
func (m *MemoryBackend) List(table TableID, fn func(addr.Address, uint32)) error {
	m.mu.Lock()
	set, ok := m.tables[table]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	snapshot := make([]addr.Address, 0, len(set))
	values := make([]uint32, 0, len(set))
	for a, v := range set {
		snapshot = append(snapshot, a)
		values = append(values, v)
	}
	m.mu.Unlock()

	for i, a := range snapshot {
		fn(a, values[i])
	}
	return nil
}

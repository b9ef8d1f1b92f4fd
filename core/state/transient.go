package state

import "github.com/evmstate/evmstate/core/types"

// transientStorage is per-transaction scratch storage (EIP-1153). Writes are
// journaled so sub-call reverts undo them, but the whole map is dropped at
// the transaction boundary no matter how the transaction ended.
type transientStorage map[types.Address]map[types.Hash]types.Hash

func newTransientStorage() transientStorage {
	return make(transientStorage)
}

// Get returns the transient value for (addr, key), zero if unset.
func (t transientStorage) Get(addr types.Address, key types.Hash) types.Hash {
	return t[addr][key]
}

// Set stores a transient value. Setting the zero value removes the entry so
// the map does not accumulate dead cells across a long transaction.
func (t transientStorage) Set(addr types.Address, key types.Hash, value types.Hash) {
	if value.IsZero() {
		if slots, ok := t[addr]; ok {
			delete(slots, key)
			if len(slots) == 0 {
				delete(t, addr)
			}
		}
		return
	}
	slots, ok := t[addr]
	if !ok {
		slots = make(map[types.Hash]types.Hash)
		t[addr] = slots
	}
	slots[key] = value
}

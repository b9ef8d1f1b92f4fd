package state

import (
	"fmt"

	"github.com/evmstate/evmstate/core/types"
	"github.com/evmstate/evmstate/crypto"
)

// MemDB is an in-memory Database used as the persistence target in tests
// and light tooling. It is not synchronized; a journal drives it from a
// single goroutine.
type MemDB struct {
	accounts map[types.Address]*types.AccountInfo
	storage  map[types.Address]map[types.Hash]types.Hash
	codes    map[types.Hash][]byte
}

// NewMemDB returns an empty in-memory database.
func NewMemDB() *MemDB {
	return &MemDB{
		accounts: make(map[types.Address]*types.AccountInfo),
		storage:  make(map[types.Address]map[types.Hash]types.Hash),
		codes:    make(map[types.Hash][]byte),
	}
}

// GetAccount returns a copy of the stored account record, or (nil, nil) if
// the account does not exist. Code is never attached; the journal fetches
// it by hash on demand.
func (m *MemDB) GetAccount(addr types.Address) (*types.AccountInfo, error) {
	info, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return &types.AccountInfo{
		Balance:  info.Balance.Clone(),
		Nonce:    info.Nonce,
		CodeHash: info.CodeHash,
	}, nil
}

// GetStorage returns the stored slot value; missing slots read as zero.
func (m *MemDB) GetStorage(addr types.Address, key types.Hash) (types.Hash, error) {
	return m.storage[addr][key], nil
}

// GetCode returns the bytecode for a code hash. The empty hash resolves to
// empty code without a table lookup.
func (m *MemDB) GetCode(hash types.Hash) ([]byte, error) {
	if hash == types.EmptyCodeHash || hash == (types.Hash{}) {
		return []byte{}, nil
	}
	code, ok := m.codes[hash]
	if !ok {
		return nil, fmt.Errorf("state: unknown code hash %s", hash)
	}
	return code, nil
}

// SetAccount stores a copy of the account record.
func (m *MemDB) SetAccount(addr types.Address, info *types.AccountInfo) {
	m.accounts[addr] = &types.AccountInfo{
		Balance:  info.Balance.Clone(),
		Nonce:    info.Nonce,
		CodeHash: info.CodeHash,
	}
}

// SetStorage stores a slot value; the zero value deletes the slot.
func (m *MemDB) SetStorage(addr types.Address, key, value types.Hash) {
	slots, ok := m.storage[addr]
	if !ok {
		if value == (types.Hash{}) {
			return
		}
		slots = make(map[types.Hash]types.Hash)
		m.storage[addr] = slots
	}
	if value == (types.Hash{}) {
		delete(slots, key)
		return
	}
	slots[key] = value
}

// SetCode stores bytecode and returns its hash.
func (m *MemDB) SetCode(code []byte) types.Hash {
	hash := crypto.Keccak256Hash(code)
	if len(code) > 0 {
		m.codes[hash] = code
	}
	return hash
}

// ApplyChanges applies a finalized change set: destroyed accounts are
// deleted along with their storage, the rest get their record and changed
// slots written. Created accounts drop any previous storage first.
func (m *MemDB) ApplyChanges(changes *StateChanges) {
	for i := range changes.Accounts {
		ch := &changes.Accounts[i]
		if ch.Destroyed {
			delete(m.accounts, ch.Address)
			delete(m.storage, ch.Address)
			continue
		}
		if ch.Created {
			delete(m.storage, ch.Address)
		}
		m.accounts[ch.Address] = &types.AccountInfo{
			Balance:  ch.Balance.Clone(),
			Nonce:    ch.Nonce,
			CodeHash: ch.CodeHash,
		}
		if len(ch.Code) > 0 {
			m.codes[ch.CodeHash] = append([]byte(nil), ch.Code...)
		}
		for _, slot := range ch.Storage {
			m.SetStorage(ch.Address, slot.Key, slot.Value)
		}
	}
}

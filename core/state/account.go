package state

import (
	"github.com/evmstate/evmstate/core/types"
)

// AccountStatus is a bit set of per-transaction lifecycle flags.
type AccountStatus uint8

const (
	// StatusCreated marks an account created in the current transaction;
	// its storage is known fresh, so slot misses never hit the database.
	StatusCreated AccountStatus = 1 << iota

	// StatusSelfDestructed marks an account scheduled for destruction. It
	// stays in the cache until finalize so reverts can replay exactly.
	StatusSelfDestructed

	// StatusTouched marks an account touched by execution; touched accounts
	// are part of the finalized change set (EIP-161).
	StatusTouched

	// StatusNonExistent marks an account that was loaded but absent from
	// the database.
	StatusNonExistent
)

// StorageSlot is one cached storage cell: the first value observed this
// transaction and the current value.
type StorageSlot struct {
	Original types.Hash
	Present  types.Hash
}

// Account is the journal-side view of one account: the record itself, the
// touched storage slots and the lifecycle flags.
type Account struct {
	Info    *types.AccountInfo
	Storage map[types.Hash]*StorageSlot
	Status  AccountStatus
}

func newAccount(info *types.AccountInfo) *Account {
	return &Account{
		Info:    info,
		Storage: make(map[types.Hash]*StorageSlot),
	}
}

// IsCreated reports the created-this-transaction flag.
func (a *Account) IsCreated() bool { return a.Status&StatusCreated != 0 }

// IsSelfDestructed reports the destruction flag.
func (a *Account) IsSelfDestructed() bool { return a.Status&StatusSelfDestructed != 0 }

// IsTouched reports the touched flag.
func (a *Account) IsTouched() bool { return a.Status&StatusTouched != 0 }

// IsNonExistent reports the loaded-but-absent flag.
func (a *Account) IsNonExistent() bool { return a.Status&StatusNonExistent != 0 }

// IsEmpty reports whether the account record is empty per EIP-161.
func (a *Account) IsEmpty() bool { return a.Info.IsEmpty() }

func (a *Account) mark(flag AccountStatus)  { a.Status |= flag }
func (a *Account) clear(flag AccountStatus) { a.Status &^= flag }

// resetForNextTx clears per-transaction residue after a finalize: lifecycle
// flags drop and every cached slot's original value becomes the present one.
// The non-existent flag survives only while the account is still empty; a
// non-empty account will exist once the finalized changes are applied.
func (a *Account) resetForNextTx() {
	if a.IsEmpty() {
		a.Status &= StatusNonExistent
	} else {
		a.Status = 0
	}
	for _, slot := range a.Storage {
		slot.Original = slot.Present
	}
}

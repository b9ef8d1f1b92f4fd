package state

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/evmstate/evmstate/core/types"
)

// SlotChange is a storage slot whose value changed over the transaction.
type SlotChange struct {
	Key      types.Hash
	Original types.Hash
	Value    types.Hash
}

// AccountChange is the post-transaction image of one mutated account. A
// destroyed account carries no field values; it is a deletion marker.
type AccountChange struct {
	Address   types.Address
	Created   bool
	Destroyed bool

	Nonce    uint64
	Balance  *uint256.Int
	CodeHash types.Hash
	Code     []byte
	Storage  []SlotChange
}

// StateChanges is the immutable, deterministically ordered change set a
// finalized transaction hands to persistence. Accounts are sorted by
// address and slots by key, so two equal states encode identically.
type StateChanges struct {
	Accounts []AccountChange
}

// buildStateChanges collects every created, destroyed or touched account
// from the cache into a sorted change set. Untouched read-only accounts are
// skipped. Touched accounts that ended the transaction empty are reported
// destroyed (EIP-161 state clearing).
func buildStateChanges(state map[types.Address]*Account) *StateChanges {
	changes := &StateChanges{}
	for addr, acc := range state {
		if !acc.IsTouched() && !acc.IsCreated() && !acc.IsSelfDestructed() {
			continue
		}

		ch := AccountChange{
			Address:   addr,
			Created:   acc.IsCreated(),
			Destroyed: acc.IsSelfDestructed() || (acc.IsTouched() && acc.IsEmpty()),
			Balance:   new(uint256.Int),
		}
		if !ch.Destroyed {
			ch.Nonce = acc.Info.Nonce
			ch.Balance = acc.Info.Balance.Clone()
			ch.CodeHash = acc.Info.CodeHash
			if len(acc.Info.Code) > 0 {
				ch.Code = append([]byte(nil), acc.Info.Code...)
			}
			for key, slot := range acc.Storage {
				if slot.Present == slot.Original {
					continue
				}
				ch.Storage = append(ch.Storage, SlotChange{
					Key:      key,
					Original: slot.Original,
					Value:    slot.Present,
				})
			}
			sort.Slice(ch.Storage, func(i, k int) bool {
				return bytes.Compare(ch.Storage[i].Key[:], ch.Storage[k].Key[:]) < 0
			})
		}
		changes.Accounts = append(changes.Accounts, ch)
	}
	sort.Slice(changes.Accounts, func(i, k int) bool {
		return bytes.Compare(changes.Accounts[i].Address[:], changes.Accounts[k].Address[:]) < 0
	})
	return changes
}

// Empty reports whether the change set mutates nothing.
func (c *StateChanges) Empty() bool {
	return len(c.Accounts) == 0
}

// MarshalBinary encodes the change set as RLP.
func (c *StateChanges) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(c)
}

// DecodeStateChanges decodes an RLP change set produced by MarshalBinary.
func DecodeStateChanges(data []byte) (*StateChanges, error) {
	changes := &StateChanges{}
	if err := rlp.DecodeBytes(data, changes); err != nil {
		return nil, err
	}
	return changes, nil
}

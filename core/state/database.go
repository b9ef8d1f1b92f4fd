// Package state implements the transactional state journal driven by the
// interpreter: an in-memory account overlay with multi-level checkpoint and
// revert, per-transaction warm tracking, transient storage and log
// collection. All persistent reads go through the Database collaborator;
// nothing is written back until the finalized changes are applied by the
// caller.
package state

import (
	"errors"

	"github.com/evmstate/evmstate/core/types"
)

// Database is the read side of the persistent state this journal overlays.
// Implementations are only consulted on cache miss; their errors are
// forwarded to the caller verbatim and never retried here.
type Database interface {
	// GetAccount returns the account record for the address, or (nil, nil)
	// if the account does not exist.
	GetAccount(addr types.Address) (*types.AccountInfo, error)

	// GetStorage returns the value of a storage slot. Missing slots read as
	// the zero value.
	GetStorage(addr types.Address, key types.Hash) (types.Hash, error)

	// GetCode returns the bytecode for a code hash.
	GetCode(hash types.Hash) ([]byte, error)
}

// Domain-rule violations returned as classified outcomes. The interpreter
// converts them into halt reasons; they are never raised mid-operation in a
// way that leaves the journal inconsistent.
var (
	// ErrOutOfFunds is returned when a transfer source lacks the balance.
	ErrOutOfFunds = errors.New("state: out of funds")

	// ErrOverflowPayment is returned when a transfer target balance would
	// overflow.
	ErrOverflowPayment = errors.New("state: payment overflow")

	// ErrCreateCollision is returned when account creation targets an
	// address that is already in use.
	ErrCreateCollision = errors.New("state: create collision")
)

// StateLoad pairs loaded data with the cold/warm classification of the
// access, so the gas collaborator can price it.
type StateLoad[T any] struct {
	Data T
	Cold bool
}

// newStateLoad returns a StateLoad with the given data and cold flag.
func newStateLoad[T any](data T, cold bool) StateLoad[T] {
	return StateLoad[T]{Data: data, Cold: cold}
}

// AccountLoad classifies an account load for call-target analysis:
// whether the account is empty (not yet created), and for accounts carrying
// an EIP-7702 delegation, whether the delegate account was cold.
type AccountLoad struct {
	// IsEmpty reports the account is empty and would need creating.
	IsEmpty bool

	// IsDelegateAccountCold is non-nil when the account code is a
	// delegation designator; it then reports the delegate's cold flag.
	IsDelegateAccountCold *bool
}

// SStoreResult carries the value relationship a storage write observed:
// the first value seen this transaction, the value just before this write,
// and the written value. Gas classification happens in the caller.
type SStoreResult struct {
	Original types.Hash
	Present  types.Hash
	New      types.Hash
}

// IsNoop reports the write did not change the present value.
func (r SStoreResult) IsNoop() bool { return r.Present == r.New }

// IsNewEqOriginal reports the write restored the transaction-original value.
func (r SStoreResult) IsNewEqOriginal() bool { return r.New == r.Original }

// IsOriginalEqPresent reports the slot had not been modified this
// transaction before this write.
func (r SStoreResult) IsOriginalEqPresent() bool { return r.Original == r.Present }

// SelfDestructResult reports what a selfdestruct observed, for refund and
// gas accounting in the caller.
type SelfDestructResult struct {
	HadValue            bool
	TargetExists        bool
	PreviouslyDestroyed bool
}

// Spec carries the hardfork-dependent predicates this layer needs. The gas
// schedule itself lives with the interpreter; only creation semantics leak
// in here.
type Spec struct {
	// CreateCollisionCheckBalance extends the create-collision check to
	// accounts holding only a balance (pre EIP-7610 relaxation).
	CreateCollisionCheckBalance bool
}

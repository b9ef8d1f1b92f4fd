package state

import (
	"github.com/evmstate/evmstate/core/types"
	"github.com/holiman/uint256"
)

// journalEntry is one reversible state change. Every entry carries exactly
// what its revert needs; inverting never goes back to the database.
type journalEntry interface {
	revert(j *Journal)
}

// accountWarmed records the first access to an address this transaction.
type accountWarmed struct {
	addr types.Address
}

func (e accountWarmed) revert(j *Journal) {
	j.warm.DeleteAddress(e.addr)
}

// accountTouched records the first touch of an account this transaction.
type accountTouched struct {
	addr types.Address
}

func (e accountTouched) revert(j *Journal) {
	if acc := j.state[e.addr]; acc != nil {
		acc.clear(StatusTouched)
	}
}

// accountCreated records account creation inside the transaction.
type accountCreated struct {
	addr      types.Address
	prevNonce uint64
}

func (e accountCreated) revert(j *Journal) {
	if acc := j.state[e.addr]; acc != nil {
		acc.clear(StatusCreated)
		acc.Info.Nonce = e.prevNonce
	}
}

// accountDestroyed records a selfdestruct: the refunded balance and whether
// the account had already been destroyed earlier in the transaction.
type accountDestroyed struct {
	addr         types.Address
	target       types.Address
	wasDestroyed bool
	hadBalance   *uint256.Int
}

func (e accountDestroyed) revert(j *Journal) {
	acc := j.state[e.addr]
	if acc == nil {
		return
	}
	if !e.wasDestroyed {
		acc.clear(StatusSelfDestructed)
	}
	acc.Info.Balance.Set(e.hadBalance)
	if e.target != e.addr {
		if target := j.state[e.target]; target != nil {
			target.Info.Balance.Sub(target.Info.Balance, e.hadBalance)
		}
	}
}

// balanceTransfer records a two-sided balance move; one entry inverts both
// sides.
type balanceTransfer struct {
	from   types.Address
	to     types.Address
	amount *uint256.Int
}

func (e balanceTransfer) revert(j *Journal) {
	if from := j.state[e.from]; from != nil {
		from.Info.Balance.Add(from.Info.Balance, e.amount)
	}
	if to := j.state[e.to]; to != nil {
		to.Info.Balance.Sub(to.Info.Balance, e.amount)
	}
}

// balanceIncr records a single-sided balance increase.
type balanceIncr struct {
	addr   types.Address
	amount *uint256.Int
}

func (e balanceIncr) revert(j *Journal) {
	if acc := j.state[e.addr]; acc != nil {
		acc.Info.Balance.Sub(acc.Info.Balance, e.amount)
	}
}

// nonceBump records a nonce increment.
type nonceBump struct {
	addr types.Address
}

func (e nonceBump) revert(j *Journal) {
	if acc := j.state[e.addr]; acc != nil {
		acc.Info.Nonce--
	}
}

// codeChange records a code replacement with the previous code and hash, so
// failed deployments restore the exact prior (possibly empty) code state.
type codeChange struct {
	addr     types.Address
	prevCode []byte
	prevHash types.Hash
}

func (e codeChange) revert(j *Journal) {
	if acc := j.state[e.addr]; acc != nil {
		acc.Info.Code = e.prevCode
		acc.Info.CodeHash = e.prevHash
	}
}

// storageWarmed records the first access to a storage slot this transaction.
type storageWarmed struct {
	addr types.Address
	key  types.Hash
}

func (e storageWarmed) revert(j *Journal) {
	j.warm.DeleteSlot(e.addr, e.key)
}

// storageChange records a storage write with the value it overwrote. It
// carries the previous present value only; the transaction-original value
// stays on the slot itself.
type storageChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (e storageChange) revert(j *Journal) {
	if acc := j.state[e.addr]; acc != nil {
		if slot := acc.Storage[e.key]; slot != nil {
			slot.Present = e.prev
		}
	}
}

// transientChange records a transient storage write.
type transientChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (e transientChange) revert(j *Journal) {
	j.transient.Set(e.addr, e.key, e.prev)
}

// logEmitted records a log append; revert truncates the log sequence back.
type logEmitted struct {
	index int
}

func (e logEmitted) revert(j *Journal) {
	j.logs = j.logs[:e.index]
}

// callerAccounting records the compound transaction-prestate adjustment of
// the caller: gas payment plus the optional nonce bump, as one entry.
type callerAccounting struct {
	addr        types.Address
	prevBalance *uint256.Int
	bumpedNonce bool
}

func (e callerAccounting) revert(j *Journal) {
	acc := j.state[e.addr]
	if acc == nil {
		return
	}
	acc.Info.Balance.Set(e.prevBalance)
	if e.bumpedNonce {
		acc.Info.Nonce--
	}
}

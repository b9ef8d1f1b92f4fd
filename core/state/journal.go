package state

import (
	"github.com/holiman/uint256"

	"github.com/evmstate/evmstate/core/types"
	"github.com/evmstate/evmstate/crypto"
)

// Checkpoint marks a journal position a sub-call can be rolled back to. It
// is opaque outside this package.
type Checkpoint struct {
	journalIdx int
	logIdx     int
}

// Journal is the transactional state overlay driven by one interpreter
// thread. It owns the account cache, the warm set, transient storage and the
// undo log; the database is borrowed and consulted only on cache miss.
//
// The zero value is not usable; construct with New.
type Journal struct {
	db Database

	state       map[types.Address]*Account
	transient   transientStorage
	warm        *accessList
	precompiles map[types.Address]struct{}

	entries     []journalEntry
	logs        []*types.Log
	logsTxStart int // log count at the last transaction boundary

	depth int
	txID  int
}

// New creates a journal over the given database.
func New(db Database) *Journal {
	j := &Journal{
		db:        db,
		state:     make(map[types.Address]*Account),
		transient: newTransientStorage(),
	}
	j.resetWarm()
	return j
}

// DB returns the borrowed database.
func (j *Journal) DB() Database { return j.db }

// Depth returns the current call nesting depth.
func (j *Journal) Depth() int { return j.depth }

// TxID returns the number of transaction boundaries crossed so far.
func (j *Journal) TxID() int { return j.txID }

func (j *Journal) entry(e journalEntry) {
	j.entries = append(j.entries, e)
}

// --- Warm-set management ---

// resetWarm empties the per-transaction warm set and re-warms the
// permanently warm precompiles.
func (j *Journal) resetWarm() {
	j.warm = newAccessList()
	for addr := range j.precompiles {
		j.warm.AddAddress(addr)
	}
}

// WarmPrecompiles configures the permanently warm precompile addresses for
// this instance and warms them immediately.
func (j *Journal) WarmPrecompiles(addrs map[types.Address]struct{}) {
	j.precompiles = addrs
	for addr := range addrs {
		j.warm.AddAddress(addr)
	}
}

// PrecompileAddresses returns the configured precompile set.
func (j *Journal) PrecompileAddresses() map[types.Address]struct{} {
	return j.precompiles
}

// WarmAccount warms an address without journaling. Used for transaction
// prestate warming (sender, recipient), which nothing can revert past.
func (j *Journal) WarmAccount(addr types.Address) {
	j.warm.AddAddress(addr)
}

// WarmCoinbaseAccount warms the coinbase address (EIP-3651).
func (j *Journal) WarmCoinbaseAccount(addr types.Address) {
	j.warm.AddAddress(addr)
}

// WarmAccountAndStorage loads and warms an address and a set of its storage
// keys, as declared by an access-list transaction.
func (j *Journal) WarmAccountAndStorage(addr types.Address, keys []types.Hash) error {
	if _, _, err := j.loadAccount(addr); err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := j.SLoad(addr, key); err != nil {
			return err
		}
	}
	return nil
}

// --- Account loading ---

// loadAccount returns the cached account for addr, fetching it from the
// database on first reference. The database read happens before any journal
// mutation, so a failing read leaves the journal untouched.
func (j *Journal) loadAccount(addr types.Address) (*Account, bool, error) {
	acc, ok := j.state[addr]
	if !ok {
		info, err := j.db.GetAccount(addr)
		if err != nil {
			return nil, false, err
		}
		if info == nil {
			acc = newAccount(types.NewAccountInfo())
			acc.mark(StatusNonExistent)
		} else {
			acc = newAccount(info)
		}
		j.state[addr] = acc
	}

	cold := !j.warm.ContainsAddress(addr)
	if cold {
		j.warm.AddAddress(addr)
		j.entry(accountWarmed{addr: addr})
	}
	countLoad(metricAccountLoads, cold)
	return acc, cold, nil
}

// LoadAccount returns the account for addr with its cold/warm flag, loading
// it through the database on first reference in the transaction.
func (j *Journal) LoadAccount(addr types.Address) (StateLoad[*Account], error) {
	acc, cold, err := j.loadAccount(addr)
	if err != nil {
		return StateLoad[*Account]{}, err
	}
	return newStateLoad(acc, cold), nil
}

// LoadAccountCode is LoadAccount plus the guarantee that Info.Code is
// populated, fetching bytecode by hash if necessary. Accessors built on it
// may read Info.Code without re-checking for absence.
func (j *Journal) LoadAccountCode(addr types.Address) (StateLoad[*Account], error) {
	acc, cold, err := j.loadAccount(addr)
	if err != nil {
		return StateLoad[*Account]{}, err
	}
	if acc.Info.Code == nil {
		if !acc.Info.HasCode() {
			acc.Info.Code = []byte{}
		} else if code, ok := cachedCode(acc.Info.CodeHash); ok {
			acc.Info.Code = code
		} else {
			code, err := j.db.GetCode(acc.Info.CodeHash)
			if err != nil {
				return StateLoad[*Account]{}, err
			}
			cacheCode(acc.Info.CodeHash, code)
			acc.Info.Code = code
		}
	}
	return newStateLoad(acc, cold), nil
}

// LoadAccountDelegated classifies an account as a call target: whether it is
// empty, and for EIP-7702 delegated accounts, whether the delegate was cold.
func (j *Journal) LoadAccountDelegated(addr types.Address) (StateLoad[AccountLoad], error) {
	load, err := j.LoadAccountCode(addr)
	if err != nil {
		return StateLoad[AccountLoad]{}, err
	}
	acc := load.Data

	al := AccountLoad{IsEmpty: acc.IsEmpty()}
	if delegate, ok := types.ParseDelegation(acc.Info.Code); ok {
		dload, err := j.LoadAccount(delegate)
		if err != nil {
			return StateLoad[AccountLoad]{}, err
		}
		delegateCold := dload.Cold
		al.IsDelegateAccountCold = &delegateCold
	}
	return newStateLoad(al, load.Cold), nil
}

// Code returns the account bytecode with the cold/warm flag of the load.
func (j *Journal) Code(addr types.Address) (StateLoad[[]byte], error) {
	load, err := j.LoadAccountCode(addr)
	if err != nil {
		return StateLoad[[]byte]{}, err
	}
	return newStateLoad(load.Data.Info.Code, load.Cold), nil
}

// CodeHash returns the account code hash; empty accounts report the zero
// hash per EXTCODEHASH semantics.
func (j *Journal) CodeHash(addr types.Address) (StateLoad[types.Hash], error) {
	load, err := j.LoadAccountCode(addr)
	if err != nil {
		return StateLoad[types.Hash]{}, err
	}
	if load.Data.IsEmpty() {
		return newStateLoad(types.Hash{}, load.Cold), nil
	}
	return newStateLoad(load.Data.Info.CodeHash, load.Cold), nil
}

// --- Storage ---

// SLoad reads a storage slot, loading the account and the slot through the
// database as needed. Accounts created this transaction (and accounts absent
// from the database) read missing slots as zero without a database trip.
func (j *Journal) SLoad(addr types.Address, key types.Hash) (StateLoad[types.Hash], error) {
	acc, _, err := j.loadAccount(addr)
	if err != nil {
		return StateLoad[types.Hash]{}, err
	}

	_, slotWarm := j.warm.ContainsSlot(addr, key)
	cold := !slotWarm

	slot, ok := acc.Storage[key]
	if !ok {
		var value types.Hash
		if !acc.IsCreated() && !acc.IsNonExistent() {
			value, err = j.db.GetStorage(addr, key)
			if err != nil {
				return StateLoad[types.Hash]{}, err
			}
		}
		slot = &StorageSlot{Original: value, Present: value}
		acc.Storage[key] = slot
	}

	if cold {
		j.warm.AddSlot(addr, key)
		j.entry(storageWarmed{addr: addr, key: key})
	}
	countLoad(metricSlotLoads, cold)
	return newStateLoad(slot.Present, cold), nil
}

// SStore writes a storage slot and returns the original/present/new value
// triple the gas model classifies. The undo entry carries the previous
// present value only, so a revert restores the exact pre-call value rather
// than the transaction-original one.
func (j *Journal) SStore(addr types.Address, key, value types.Hash) (StateLoad[SStoreResult], error) {
	load, err := j.SLoad(addr, key)
	if err != nil {
		return StateLoad[SStoreResult]{}, err
	}

	slot := j.state[addr].Storage[key]
	result := SStoreResult{
		Original: slot.Original,
		Present:  slot.Present,
		New:      value,
	}
	if !result.IsNoop() {
		j.entry(storageChange{addr: addr, key: key, prev: slot.Present})
		slot.Present = value
	}
	return newStateLoad(result, load.Cold), nil
}

// TLoad reads transient storage. Transient access is always warm and never
// touches the database.
func (j *Journal) TLoad(addr types.Address, key types.Hash) types.Hash {
	return j.transient.Get(addr, key)
}

// TStore writes transient storage. The write is journaled so sub-call
// reverts undo it; the map itself dies at the transaction boundary.
func (j *Journal) TStore(addr types.Address, key, value types.Hash) {
	prev := j.transient.Get(addr, key)
	if prev == value {
		return
	}
	j.entry(transientChange{addr: addr, key: key, prev: prev})
	j.transient.Set(addr, key, value)
}

// --- Logs ---

// AddLog records an emitted log.
func (j *Journal) AddLog(log *types.Log) {
	j.entry(logEmitted{index: len(j.logs)})
	j.logs = append(j.logs, log)
}

// Logs returns the logs emitted since the last drain, including those of
// committed earlier transactions not yet taken.
func (j *Journal) Logs() []*types.Log { return j.logs }

// TakeLogs drains all accumulated logs.
func (j *Journal) TakeLogs() []*types.Log {
	logs := j.logs
	j.logs = nil
	j.logsTxStart = 0
	return logs
}

// --- Balance, nonce, code mutation ---

func (j *Journal) touchAccount(addr types.Address, acc *Account) {
	if !acc.IsTouched() {
		j.entry(accountTouched{addr: addr})
		acc.mark(StatusTouched)
	}
}

// TouchAccount marks a loaded account touched, journaled once per
// transaction. Unknown addresses are ignored.
func (j *Journal) TouchAccount(addr types.Address) {
	if acc := j.state[addr]; acc != nil {
		j.touchAccount(addr, acc)
	}
}

// Transfer moves amount from one account to the other. It fails with
// ErrOutOfFunds or ErrOverflowPayment leaving both balances unchanged; on
// success one entry inverts both sides.
func (j *Journal) Transfer(from, to types.Address, amount *uint256.Int) error {
	fromAcc, _, err := j.loadAccount(from)
	if err != nil {
		return err
	}
	toAcc, _, err := j.loadAccount(to)
	if err != nil {
		return err
	}
	j.touchAccount(from, fromAcc)
	j.touchAccount(to, toAcc)

	if from == to {
		// Self-transfer moves nothing but still requires the funds.
		if fromAcc.Info.Balance.Lt(amount) {
			return ErrOutOfFunds
		}
		return nil
	}

	newFrom, underflow := new(uint256.Int).SubOverflow(fromAcc.Info.Balance, amount)
	if underflow {
		return ErrOutOfFunds
	}
	newTo, overflow := new(uint256.Int).AddOverflow(toAcc.Info.Balance, amount)
	if overflow {
		return ErrOverflowPayment
	}

	fromAcc.Info.Balance = newFrom
	toAcc.Info.Balance = newTo
	j.entry(balanceTransfer{from: from, to: to, amount: amount.Clone()})
	return nil
}

// BalanceIncr increases an account balance with a single-sided entry. Used
// for block rewards and gas refunds.
func (j *Journal) BalanceIncr(addr types.Address, amount *uint256.Int) error {
	acc, _, err := j.loadAccount(addr)
	if err != nil {
		return err
	}
	j.touchAccount(addr, acc)

	newBalance, overflow := new(uint256.Int).AddOverflow(acc.Info.Balance, amount)
	if overflow {
		return ErrOverflowPayment
	}
	acc.Info.Balance = newBalance
	j.entry(balanceIncr{addr: addr, amount: amount.Clone()})
	return nil
}

// NonceBump increments the nonce of a loaded account.
func (j *Journal) NonceBump(addr types.Address) {
	acc := j.state[addr]
	if acc == nil {
		return
	}
	j.entry(nonceBump{addr: addr})
	acc.Info.Nonce++
}

// CallerAccounting records the undo entry for the caller's pre-execution
// adjustments the executor applied directly: the balance before the gas
// charge and whether the nonce was bumped. One compound entry inverts both.
func (j *Journal) CallerAccounting(addr types.Address, oldBalance *uint256.Int, bumpedNonce bool) {
	acc := j.state[addr]
	if acc == nil {
		return
	}
	j.touchAccount(addr, acc)
	j.entry(callerAccounting{
		addr:        addr,
		prevBalance: oldBalance.Clone(),
		bumpedNonce: bumpedNonce,
	})
}

// SetCodeWithHash replaces the code of a loaded account, journaling the
// previous code and hash (which may be empty).
func (j *Journal) SetCodeWithHash(addr types.Address, code []byte, hash types.Hash) {
	acc := j.state[addr]
	if acc == nil {
		return
	}
	j.touchAccount(addr, acc)
	j.entry(codeChange{addr: addr, prevCode: acc.Info.Code, prevHash: acc.Info.CodeHash})
	acc.Info.Code = code
	acc.Info.CodeHash = hash
	cacheCode(hash, code)
}

// SetCode replaces the code of a loaded account, hashing it.
func (j *Journal) SetCode(addr types.Address, code []byte) {
	j.SetCodeWithHash(addr, code, crypto.Keccak256Hash(code))
}

// --- Creation and destruction ---

// CreateAccountCheckpoint starts an account creation: it issues a checkpoint
// covering the whole creation, marks the account created and transfers the
// endowment from the caller. On collision or transfer failure the checkpoint
// is consumed by an immediate revert and an error is returned.
func (j *Journal) CreateAccountCheckpoint(caller, addr types.Address, balance *uint256.Int, spec Spec) (Checkpoint, error) {
	checkpoint := j.Checkpoint()

	acc, _, err := j.loadAccount(addr)
	if err != nil {
		j.CheckpointRevert(checkpoint)
		return Checkpoint{}, err
	}

	if acc.Info.Nonce != 0 || acc.Info.HasCode() ||
		(spec.CreateCollisionCheckBalance && !acc.Info.Balance.IsZero()) {
		j.CheckpointRevert(checkpoint)
		return Checkpoint{}, ErrCreateCollision
	}

	j.entry(accountCreated{addr: addr, prevNonce: acc.Info.Nonce})
	acc.mark(StatusCreated)
	j.touchAccount(addr, acc)
	acc.Info.Nonce = 1 // new contracts start at nonce 1 (EIP-161)

	if err := j.Transfer(caller, addr, balance); err != nil {
		j.CheckpointRevert(checkpoint)
		return Checkpoint{}, err
	}
	return checkpoint, nil
}

// Selfdestruct transfers the full balance to target and marks the account
// destroyed. A same-address selfdestruct zeroes the balance without moving
// it. The cold flag reports the target load.
func (j *Journal) Selfdestruct(addr, target types.Address) (StateLoad[SelfDestructResult], error) {
	acc, _, err := j.loadAccount(addr)
	if err != nil {
		return StateLoad[SelfDestructResult]{}, err
	}
	targetAcc, targetCold, err := j.loadAccount(target)
	if err != nil {
		return StateLoad[SelfDestructResult]{}, err
	}

	prevDestroyed := acc.IsSelfDestructed()
	balance := acc.Info.Balance.Clone()
	result := SelfDestructResult{
		HadValue:            !balance.IsZero(),
		TargetExists:        !targetAcc.IsEmpty(),
		PreviouslyDestroyed: prevDestroyed,
	}

	j.touchAccount(addr, acc)
	j.touchAccount(target, targetAcc)

	if target != addr && !balance.IsZero() {
		targetAcc.Info.Balance.Add(targetAcc.Info.Balance, balance)
	}
	j.entry(accountDestroyed{
		addr:         addr,
		target:       target,
		wasDestroyed: prevDestroyed,
		hadBalance:   balance,
	})
	acc.mark(StatusSelfDestructed)
	acc.Info.Balance = new(uint256.Int)

	return newStateLoad(result, targetCold), nil
}

// --- Checkpoints ---

// Checkpoint captures the current journal and log positions and opens a
// nesting level.
func (j *Journal) Checkpoint() Checkpoint {
	c := Checkpoint{
		journalIdx: len(j.entries),
		logIdx:     len(j.logs),
	}
	j.depth++
	return c
}

// CheckpointCommit closes the innermost nesting level keeping its effects.
// Committed entries stay in the log: an ancestor revert must still be able
// to undo them.
func (j *Journal) CheckpointCommit() {
	if j.depth > 0 {
		j.depth--
	}
}

// CheckpointRevert undoes every entry appended after the checkpoint, newest
// first, and truncates the emitted logs back to the captured position.
func (j *Journal) CheckpointRevert(c Checkpoint) {
	for i := len(j.entries) - 1; i >= c.journalIdx; i-- {
		j.entries[i].revert(j)
	}
	j.entries = j.entries[:c.journalIdx]
	if len(j.logs) > c.logIdx {
		j.logs = j.logs[:c.logIdx]
	}
	if j.depth > 0 {
		j.depth--
	}
	metricReverts().Add(1)
}

// --- Transaction boundary ---

// CommitTx ends the current transaction keeping its effects: undo records
// are discarded, per-transaction warm and transient state reset, and the
// emitted logs stay put for TakeLogs.
func (j *Journal) CommitTx() {
	j.entries = j.entries[:0]
	j.logsTxStart = len(j.logs)
	j.transient = newTransientStorage()
	j.resetWarm()
	j.depth = 0
	j.txID++
	countTxBoundary("commit")
}

// DiscardTx ends the current transaction reverting its effects: every entry
// since the last boundary is undone and this transaction's logs are dropped.
// Logs of previously committed transactions are untouched. DiscardTx never
// fails and is safe to call repeatedly.
func (j *Journal) DiscardTx() {
	for i := len(j.entries) - 1; i >= 0; i-- {
		j.entries[i].revert(j)
	}
	j.entries = j.entries[:0]
	j.logs = j.logs[:j.logsTxStart]
	j.transient = newTransientStorage()
	j.resetWarm()
	j.depth = 0
	j.txID++
	countTxBoundary("discard")
}

// Finalize converts the accumulated account mutations into an immutable
// change set for persistence and resets the journal for the next
// transaction. Loaded accounts stay cached so a block's later transactions
// skip redundant database reads; destroyed accounts leave the cache.
func (j *Journal) Finalize() *StateChanges {
	changes := buildStateChanges(j.state)

	for addr, acc := range j.state {
		if acc.IsSelfDestructed() || (acc.IsTouched() && acc.IsEmpty()) {
			delete(j.state, addr)
			continue
		}
		acc.resetForNextTx()
	}
	j.entries = j.entries[:0]
	j.logs = nil
	j.logsTxStart = 0
	j.transient = newTransientStorage()
	j.resetWarm()
	j.depth = 0
	return changes
}

// Clear resets the journal discarding the finalized changes.
func (j *Journal) Clear() {
	_ = j.Finalize()
}

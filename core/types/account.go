package types

import "github.com/holiman/uint256"

// AccountInfo holds the basic account record: balance, nonce, code hash and,
// once loaded, the bytecode itself. Code is nil until populated by a code
// load; an empty-but-loaded code is a non-nil zero-length slice.
type AccountInfo struct {
	Balance  *uint256.Int
	Nonce    uint64
	CodeHash Hash
	Code     []byte
}

// NewAccountInfo creates an empty account record.
func NewAccountInfo() *AccountInfo {
	return &AccountInfo{
		Balance:  new(uint256.Int),
		CodeHash: EmptyCodeHash,
	}
}

// IsEmpty reports whether the account is empty per EIP-161: zero nonce,
// zero balance and no code.
func (a *AccountInfo) IsEmpty() bool {
	return a.Nonce == 0 &&
		(a.Balance == nil || a.Balance.IsZero()) &&
		(a.CodeHash == EmptyCodeHash || a.CodeHash.IsZero())
}

// HasCode reports whether the account carries non-empty code.
func (a *AccountInfo) HasCode() bool {
	return a.CodeHash != EmptyCodeHash && !a.CodeHash.IsZero()
}

// Copy returns a deep copy of the account record.
func (a *AccountInfo) Copy() *AccountInfo {
	cp := &AccountInfo{
		Nonce:    a.Nonce,
		CodeHash: a.CodeHash,
		Balance:  new(uint256.Int),
	}
	if a.Balance != nil {
		cp.Balance.Set(a.Balance)
	}
	if a.Code != nil {
		cp.Code = make([]byte, len(a.Code))
		copy(cp.Code, a.Code)
	}
	return cp
}

// Delegation designator prefix per EIP-7702.
var delegationPrefix = []byte{0xef, 0x01, 0x00}

// ParseDelegation returns the delegate address if the given code is an
// EIP-7702 delegation designator (0xef0100 || address).
func ParseDelegation(code []byte) (Address, bool) {
	if len(code) != len(delegationPrefix)+AddressLength {
		return Address{}, false
	}
	for i, b := range delegationPrefix {
		if code[i] != b {
			return Address{}, false
		}
	}
	return BytesToAddress(code[len(delegationPrefix):]), true
}

// AddressToDelegation builds the delegation designator code for an address.
func AddressToDelegation(addr Address) []byte {
	return append(append([]byte{}, delegationPrefix...), addr.Bytes()...)
}

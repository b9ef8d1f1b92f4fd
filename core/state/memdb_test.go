package state

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"

	"github.com/evmstate/evmstate/core/types"
)

func TestMemDBAccounts(t *testing.T) {
	db := NewMemDB()
	addr := types.HexToAddress("0x01")

	if info, err := db.GetAccount(addr); err != nil || info != nil {
		t.Fatalf("missing account should be (nil, nil), got (%v, %v)", info, err)
	}

	db.SetAccount(addr, &types.AccountInfo{Balance: uint256.NewInt(9), Nonce: 2, CodeHash: types.EmptyCodeHash})
	info, err := db.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.Balance.Uint64() != 9 || info.Nonce != 2 {
		t.Fatalf("unexpected record: %+v", info)
	}

	// The returned record is a copy; mutating it must not reach the store.
	info.Balance.SetUint64(1)
	again, _ := db.GetAccount(addr)
	if again.Balance.Uint64() != 9 {
		t.Fatalf("stored balance was aliased by the returned copy")
	}
}

func TestMemDBStorage(t *testing.T) {
	db := NewMemDB()
	addr := types.HexToAddress("0x01")
	key := types.HexToHash("0x01")

	if v, _ := db.GetStorage(addr, key); !v.IsZero() {
		t.Fatalf("missing slot should read zero, got %s", v)
	}
	db.SetStorage(addr, key, types.HexToHash("0x05"))
	if v, _ := db.GetStorage(addr, key); v != types.HexToHash("0x05") {
		t.Fatalf("expected 0x05, got %s", v)
	}

	// Writing zero deletes the slot.
	db.SetStorage(addr, key, types.Hash{})
	if len(db.storage[addr]) != 0 {
		t.Fatalf("zero write should delete the slot")
	}
}

func TestMemDBCode(t *testing.T) {
	db := NewMemDB()

	if code, err := db.GetCode(types.EmptyCodeHash); err != nil || len(code) != 0 {
		t.Fatalf("empty hash should resolve to empty code, got (%v, %v)", code, err)
	}
	if _, err := db.GetCode(types.HexToHash("0xdead")); err == nil {
		t.Fatalf("unknown hash should fail")
	}

	code := []byte{0x60, 0x01}
	hash := db.SetCode(code)
	got, err := db.GetCode(hash)
	if err != nil {
		t.Fatalf("get code: %v", err)
	}
	if !bytes.Equal(got, code) {
		t.Fatalf("code mismatch")
	}
}

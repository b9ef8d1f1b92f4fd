package state

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/evmstate/evmstate/core/types"
)

// codeCache holds recently loaded bytecode keyed by code hash. Bytecode is
// immutable, so the cache is shared process-wide across journal instances.
var codeCache, _ = lru.NewARC(512)

func cachedCode(hash types.Hash) ([]byte, bool) {
	if v, ok := codeCache.Get(hash); ok {
		return v.([]byte), true
	}
	return nil, false
}

func cacheCode(hash types.Hash, code []byte) {
	if len(code) > 0 {
		codeCache.Add(hash, code)
	}
}

// Package keccak hashes with legacy keccak-256 using pooled hashers
package keccak

import (
	"hash"
	"sync"

	"github.com/umbracle/fastrlp"
	"golang.org/x/crypto/sha3"
)

// Size of a keccak-256 digest
const Size = 32

// hasher is a keccak state plus the scratch buffer rlp values are marshaled into
type hasher struct {
	hash.Hash
	buf []byte
}

var hashers = sync.Pool{
	New: func() interface{} {
		return &hasher{Hash: sha3.NewLegacyKeccak256()}
	},
}

func acquire() *hasher {
	h, ok := hashers.Get().(*hasher)
	if !ok {
		return &hasher{Hash: sha3.NewLegacyKeccak256()}
	}

	return h
}

func release(h *hasher) {
	h.Reset()
	h.buf = h.buf[:0]
	hashers.Put(h)
}

// Keccak256 hashes the concatenation of src and appends the digest to dst
func Keccak256(dst []byte, src ...[]byte) []byte {
	h := acquire()
	defer release(h)

	for _, b := range src {
		h.Write(b) //nolint:errcheck
	}

	return h.Sum(dst)
}

// Keccak256Rlp hashes the rlp encoding of v and appends the digest to dst
func Keccak256Rlp(dst []byte, v *fastrlp.Value) []byte {
	h := acquire()
	defer release(h)

	h.buf = v.MarshalTo(h.buf[:0])
	h.Write(h.buf) //nolint:errcheck

	return h.Sum(dst)
}

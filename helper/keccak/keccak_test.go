package keccak

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/umbracle/fastrlp"
)

func TestKeccak256Empty(t *testing.T) {
	t.Parallel()

	res := Keccak256(nil, nil)
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", hex.EncodeToString(res))
}

func TestKeccak256Concat(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		Keccak256(nil, []byte("helloworld")),
		Keccak256(nil, []byte("hello"), []byte("world")),
	)
}

func TestKeccak256Rlp(t *testing.T) {
	t.Parallel()

	ar := &fastrlp.Arena{}
	v := ar.NewArray()
	v.Set(ar.NewUint(1))

	buf := v.MarshalTo(nil)
	assert.Equal(t, Keccak256(nil, buf), Keccak256Rlp(nil, v))
}

func TestKeccak256Concurrent(t *testing.T) {
	t.Parallel()

	expected := Keccak256(nil, []byte("actor"))

	done := make(chan []byte, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- Keccak256(nil, []byte("act"), []byte("or"))
		}()
	}

	for i := 0; i < 8; i++ {
		assert.Equal(t, expected, <-done)
	}

	assert.Len(t, expected, Size)
}

package precompiled

import (
	"crypto/sha256"
	"math/big"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck

	"github.com/0xPolygon/actor-evm/crypto"
	"github.com/0xPolygon/actor-evm/helper/keccak"
)

type ecrecover struct{}

func (e *ecrecover) gas(_ []byte) uint64 {
	return 3000
}

func (e *ecrecover) run(input []byte) ([]byte, error) {
	input, _ = get(input, 128)

	// recover the value v. Expect all zeros except the last byte
	for i := 32; i < 63; i++ {
		if input[i] != 0 {
			return nil, nil
		}
	}

	v := input[63] - 27
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])

	if !crypto.ValidateSignatureValues(v, r, s) {
		return nil, nil
	}

	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v

	pubKey, err := crypto.Ecrecover(input[:32], sig)
	if err != nil {
		return nil, nil
	}

	dst := keccak.Keccak256(nil, pubKey[1:])

	return leftPad(dst[12:], 32), nil
}

type identity struct{}

func (i *identity) gas(input []byte) uint64 {
	return baseGasCalc(input, 15, 3)
}

func (i *identity) run(in []byte) ([]byte, error) {
	return append([]byte{}, in...), nil
}

type sha256h struct{}

func (s *sha256h) gas(input []byte) uint64 {
	return baseGasCalc(input, 60, 12)
}

func (s *sha256h) run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)

	return h[:], nil
}

type ripemd160h struct{}

func (r *ripemd160h) gas(input []byte) uint64 {
	return baseGasCalc(input, 600, 120)
}

func (r *ripemd160h) run(input []byte) ([]byte, error) {
	ripemd := ripemd160.New()
	ripemd.Write(input)

	return leftPad(ripemd.Sum(nil), 32), nil
}

func baseGasCalc(input []byte, base, word uint64) uint64 {
	return base + uint64(len(input)+31)/32*word
}

package precompiled

import (
	"errors"
	"math/big"

	bn256 "github.com/umbracle/go-eth-bn256"
)

// gas costs after EIP-1108
const (
	bn256AddGas             = 150
	bn256MulGas             = 6000
	bn256PairingBaseGas     = 45000
	bn256PairingPerPointGas = 34000
)

var errBadPairingInput = errors.New("bad elliptic curve pairing size")

func newG1(input []byte) (*bn256.G1, error) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(input); err != nil {
		return nil, err
	}

	return p, nil
}

func newG2(input []byte) (*bn256.G2, error) {
	p := new(bn256.G2)
	if _, err := p.Unmarshal(input); err != nil {
		return nil, err
	}

	return p, nil
}

type bn256Add struct{}

func (b *bn256Add) gas(_ []byte) uint64 {
	return bn256AddGas
}

func (b *bn256Add) run(input []byte) ([]byte, error) {
	v, input := get(input, 64)

	x, err := newG1(v)
	if err != nil {
		return nil, err
	}

	v, _ = get(input, 64)

	y, err := newG1(v)
	if err != nil {
		return nil, err
	}

	return new(bn256.G1).Add(x, y).Marshal(), nil
}

type bn256Mul struct{}

func (b *bn256Mul) gas(_ []byte) uint64 {
	return bn256MulGas
}

func (b *bn256Mul) run(input []byte) ([]byte, error) {
	v, input := get(input, 64)

	p, err := newG1(v)
	if err != nil {
		return nil, err
	}

	v, _ = get(input, 32)

	return new(bn256.G1).ScalarMult(p, new(big.Int).SetBytes(v)).Marshal(), nil
}

type bn256Pairing struct{}

func (b *bn256Pairing) gas(input []byte) uint64 {
	return bn256PairingBaseGas + uint64(len(input)/192)*bn256PairingPerPointGas
}

func (b *bn256Pairing) run(input []byte) ([]byte, error) {
	if len(input)%192 != 0 {
		return nil, errBadPairingInput
	}

	var (
		cs = make([]*bn256.G1, 0, len(input)/192)
		ts = make([]*bn256.G2, 0, len(input)/192)
	)

	for i := 0; i < len(input); i += 192 {
		c, err := newG1(input[i : i+64])
		if err != nil {
			return nil, err
		}

		t, err := newG2(input[i+64 : i+192])
		if err != nil {
			return nil, err
		}

		cs = append(cs, c)
		ts = append(ts, t)
	}

	// the empty product is one
	res := make([]byte, 32)
	if bn256.PairingCheck(cs, ts) {
		res[31] = 1
	}

	return res, nil
}

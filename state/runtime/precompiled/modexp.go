package precompiled

import (
	"math"
	"math/big"
)

// modExp is the EIP-198 big integer modular exponentiation.
// Input: BE32(len(B)) ++ BE32(len(E)) ++ BE32(len(M)) ++ B ++ E ++ M
type modExp struct{}

const modExpGasDivisor = 20

// lengths reads the three length words. They may be far larger than the input.
func modExpLengths(input []byte) (base, exp, mod *big.Int, rest []byte) {
	var word []byte

	word, rest = get(input, 32)
	base = new(big.Int).SetBytes(word)

	word, rest = get(rest, 32)
	exp = new(big.Int).SetBytes(word)

	word, _ = get(rest, 32)
	mod = new(big.Int).SetBytes(word)

	if len(input) > 96 {
		rest = input[96:]
	} else {
		rest = nil
	}

	return base, exp, mod, rest
}

// multComplexity is the EIP-198 cost of multiplying two x byte numbers
func multComplexity(x *big.Int) *big.Int {
	sq := new(big.Int).Mul(x, x)

	switch {
	case x.Cmp(big.NewInt(64)) <= 0:
		return sq

	case x.Cmp(big.NewInt(1024)) <= 0:
		// x**2/4 + 96x - 3072
		sq.Rsh(sq, 2)
		sq.Add(sq, new(big.Int).Mul(x, big.NewInt(96)))

		return sq.Sub(sq, big.NewInt(3072))

	default:
		// x**2/16 + 480x - 199680
		sq.Rsh(sq, 4)
		sq.Add(sq, new(big.Int).Mul(x, big.NewInt(480)))

		return sq.Sub(sq, big.NewInt(199680))
	}
}

// adjustedExpLength counts the significant bits of the exponent, using only its
// first 32 bytes plus 8 bits for every further byte
func adjustedExpLength(expLen *big.Int, head *big.Int) *big.Int {
	var msb int64
	if head.Sign() != 0 {
		msb = int64(head.BitLen() - 1)
	}

	if expLen.Cmp(big.NewInt(32)) <= 0 {
		return big.NewInt(msb)
	}

	adj := new(big.Int).Sub(expLen, big.NewInt(32))
	adj.Lsh(adj, 3)

	return adj.Add(adj, big.NewInt(msb))
}

func (m *modExp) gas(input []byte) uint64 {
	baseLen, expLen, modLen, data := modExpLengths(input)

	// the exponent head is the first min(32, len(E)) bytes following the base
	headLen := uint64(32)
	if expLen.IsUint64() && expLen.Uint64() < headLen {
		headLen = expLen.Uint64()
	}

	head := new(big.Int)
	if baseLen.IsUint64() && baseLen.Uint64() < uint64(len(data)) {
		buf, _ := get(data[baseLen.Uint64():], int(headLen))
		head.SetBytes(buf)
	}

	maxLen := modLen
	if baseLen.Cmp(maxLen) > 0 {
		maxLen = baseLen
	}

	cost := multComplexity(maxLen)

	if adj := adjustedExpLength(expLen, head); adj.Sign() > 0 {
		cost.Mul(cost, adj)
	}

	cost.Div(cost, big.NewInt(modExpGasDivisor))

	if !cost.IsUint64() {
		return math.MaxUint64
	}

	return cost.Uint64()
}

func (m *modExp) run(input []byte) ([]byte, error) {
	baseLen, input := getUint64(input)
	expLen, input := getUint64(input)
	modLen, input := getUint64(input)

	if baseLen == 0 && modLen == 0 {
		return nil, nil
	}

	buf, input := get(input, int(baseLen))
	base := new(big.Int).SetBytes(buf)

	buf, input = get(input, int(expLen))
	exp := new(big.Int).SetBytes(buf)

	buf, _ = get(input, int(modLen))
	mod := new(big.Int).SetBytes(buf)

	// x mod 0 is 0
	if mod.Sign() == 0 {
		return make([]byte, modLen), nil
	}

	return leftPad(base.Exp(base, exp, mod).Bytes(), int(modLen)), nil
}

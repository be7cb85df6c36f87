package evm

import (
	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/chain"
)

// maxMemorySize bounds offset+size so that the word count and its square never overflow
const maxMemorySize = 0x1fffffffe0

// memoryGasCost is the total cost of a memory of the given number of words
func memoryGasCost(words uint64) uint64 {
	return chain.MemoryGas*words + words*words/chain.QuadCoeffDiv
}

func numWords(size uint64) uint64 {
	return (size + 31) / 32
}

// checkMemory grows the memory to cover [offset, offset+size) and charges the expansion
func (c *state) checkMemory(offset, size *uint256.Int) bool {
	if size.IsZero() {
		return true
	}

	end, ok := memoryEnd(offset, size)
	if !ok {
		c.exit(errOutOfGas)

		return false
	}

	return c.allocateMemory(end)
}

// allocateMemory charges the delta between the current and the new memory cost.
// The memory only grows so the total charged is monotone within a frame.
func (c *state) allocateMemory(newSize uint64) bool {
	if uint64(len(c.memory)) >= newSize {
		return true
	}

	w := numWords(newSize)
	newCost := memoryGasCost(w)

	if !c.consumeGas(newCost - c.lastGasCost) {
		return false
	}

	c.lastGasCost = newCost
	c.memory = extendByteSlice(c.memory, int(w*32))

	return true
}

func extendByteSlice(b []byte, needLen int) []byte {
	b = b[:cap(b)]
	if n := needLen - cap(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}

	return b[:needLen]
}

// get2 charges the memory expansion and appends the range to dst
func (c *state) get2(dst []byte, offset, length *uint256.Int) ([]byte, bool) {
	if length.IsZero() {
		return nil, true
	}

	if !c.checkMemory(offset, length) {
		return nil, false
	}

	o := offset.Uint64()
	l := length.Uint64()

	dst = append(dst, c.memory[o:o+l]...)

	return dst, true
}

// memoryEnd returns offset+size of a range, zero for an empty range
func memoryEnd(offset, size *uint256.Int) (uint64, bool) {
	if size.IsZero() {
		return 0, true
	}

	if !offset.IsUint64() || !size.IsUint64() {
		return 0, false
	}

	o, s := offset.Uint64(), size.Uint64()
	if o > maxMemorySize || s > maxMemorySize-o {
		return 0, false
	}

	return o + s, true
}

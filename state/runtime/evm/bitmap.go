package evm

const bitmapSize = 8

// bitmap marks the JUMPDEST positions of a code that are not PUSH immediates.
// Analyses are cached by code hash and shared between frames, so a bitmap is
// never written after setCode.
type bitmap struct {
	buf []byte
}

func (b *bitmap) isSet(i uint64) bool {
	return b.buf[i/bitmapSize]&(1<<(i%bitmapSize)) != 0
}

func (b *bitmap) set(i uint64) {
	b.buf[i/bitmapSize] |= 1 << (i % bitmapSize)
}

func (b *bitmap) setCode(code []byte) {
	codeSize := len(code)
	b.buf = make([]byte, codeSize/bitmapSize+1)

	for i := 0; i < codeSize; {
		c := code[i]

		if isPushOp(c) {
			// push op
			i += int(c) - 0x60 + 2
		} else {
			if c == byte(JUMPDEST) {
				// jumpdest
				b.set(uint64(i))
			}
			i++
		}
	}
}

func newBitmap(code []byte) *bitmap {
	b := &bitmap{}
	b.setCode(code)

	return b
}

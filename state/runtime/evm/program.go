package evm

import (
	"math/big"

	"github.com/0xPolygon/actor-evm/types"
)

// Program assembles bytecode
type Program struct {
	buf []byte
}

func NewProgram() *Program {
	return &Program{}
}

// Op appends plain opcodes
func (p *Program) Op(ops ...OpCode) *Program {
	for _, op := range ops {
		p.buf = append(p.buf, byte(op))
	}

	return p
}

// Push appends the smallest PUSH able to carry b
func (p *Program) Push(b []byte) *Program {
	// strip the leading zeros
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}

	if len(b) == 0 {
		b = []byte{0}
	}

	if len(b) > 32 {
		panic("push of more than 32 bytes") //nolint:gocritic
	}

	p.buf = append(p.buf, byte(PUSH1)+byte(len(b)-1))
	p.buf = append(p.buf, b...)

	return p
}

func (p *Program) PushUint(v uint64) *Program {
	return p.Push(new(big.Int).SetUint64(v).Bytes())
}

func (p *Program) PushAddr(addr types.Address) *Program {
	return p.Push(addr.Bytes())
}

// Mark returns the offset the next opcode will be written at
func (p *Program) Mark() int {
	return len(p.buf)
}

// Store writes v to memory at offset
func (p *Program) Store(offset, v uint64) *Program {
	return p.PushUint(v).PushUint(offset).Op(MSTORE)
}

// ReturnTop returns the word on top of the stack
func (p *Program) ReturnTop() *Program {
	return p.PushUint(0).Op(MSTORE).PushUint(32).PushUint(0).Op(RETURN)
}

// Call appends a call of the given type. The value is only pushed for CALL
// and CALLCODE.
func (p *Program) Call(op OpCode, gas uint64, addr types.Address, value uint64, inOffset, inSize, retOffset, retSize uint64) *Program {
	p.PushUint(retSize).PushUint(retOffset).PushUint(inSize).PushUint(inOffset)

	if op == CALL || op == CALLCODE {
		p.PushUint(value)
	}

	p.PushAddr(addr)

	if gas == 0 {
		p.Op(GAS)
	} else {
		p.PushUint(gas)
	}

	return p.Op(op)
}

func (p *Program) Bytes() []byte {
	return append([]byte{}, p.buf...)
}

// InitCode wraps code into init code that deploys it
func InitCode(code []byte) []byte {
	const prefixLen = 13

	p := NewProgram()
	p.buf = append(p.buf, byte(PUSH2), byte(len(code)>>8), byte(len(code)))
	p.Op(DUP1)
	p.buf = append(p.buf, byte(PUSH2), 0, prefixLen)
	p.PushUint(0).Op(CODECOPY)
	p.PushUint(0).Op(RETURN)

	return append(p.buf, code...)
}

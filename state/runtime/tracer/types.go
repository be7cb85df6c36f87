package tracer

import (
	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/types"
)

// Host is the state a tracer can read while a step runs
type Host interface {
	GetRefund() uint64
	GetStorage(types.Address, types.Hash) types.Hash
}

// Halter stops the frame being traced
type Halter interface {
	Halt()
}

// Frame is a call frame entered by the interpreter. Depth is 1 for the top-level frame.
type Frame struct {
	Depth int
	Type  runtime.CallType
	From  types.Address
	To    types.Address
	Gas   uint64
	Value *uint256.Int
	Input []byte
}

// FrameResult is the way a frame ended
type FrameResult struct {
	Depth   int
	Output  []byte
	GasUsed uint64
	Err     error
}

// Step is one opcode of a frame. Stack and Memory alias the interpreter
// buffers and are only valid during the callback.
type Step struct {
	Address    types.Address
	PC         uint64
	Op         byte
	Gas        uint64
	Cost       uint64
	Depth      int
	Stack      []uint256.Int
	Memory     []byte
	ReturnData []byte
	Err        error
	Host       Host
}

type Tracer interface {
	Clear()
	GetResult() (interface{}, error)

	TxStart(gasLimit uint64)
	TxEnd(gasLeft uint64)

	CallStart(f *Frame)
	CallEnd(r *FrameResult)

	// StepStart runs before the static gas of the opcode is charged
	StepStart(s *Step, h Halter)
	// StepEnd runs after the opcode applied its effects, with Cost set
	StepEnd(s *Step)
}

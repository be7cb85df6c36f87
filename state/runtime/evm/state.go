package evm

import (
	"strings"
	"sync"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/helper/hex"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/state/runtime/tracer"
	"github.com/0xPolygon/actor-evm/types"
)

var statePool = sync.Pool{
	New: func() interface{} {
		return new(state)
	},
}

func acquireState() *state {
	s, ok := statePool.Get().(*state)
	if !ok {
		return new(state)
	}

	return s
}

func releaseState(s *state) {
	s.reset()
	statePool.Put(s)
}

const stackSize = chain.StackLimit

var (
	errOutOfGas        = runtime.ErrOutOfGas
	errStackOverflow   = runtime.ErrStackOverflow
	errReadOnly        = runtime.ErrWriteProtection
	errInvalidJump     = runtime.ErrInvalidJump
	errReturnBadSize   = runtime.ErrReturnDataOutOfBounds
	errGasUintOverflow = runtime.ErrGasUintOverflow
	errRevert          = runtime.ErrExecutionReverted
)

// state is one execution frame
type state struct {
	ip   int
	code []byte
	tmp  []byte

	host   runtime.Host
	msg    *runtime.Contract
	params *chain.Params
	evm    *EVM

	// memory
	memory      []byte
	lastGasCost uint64

	// stack
	stack []uint256.Int
	sp    int

	err  error
	stop bool

	gas uint64

	bitmap *bitmap

	returnData []byte
	ret        []byte

	outcome     runtime.Outcome
	beneficiary types.Address

	// call the frame is suspended on, set by the CALL and CREATE family
	call *callRequest

	// journal layer opened when the frame was entered
	snapshot int
}

func (c *state) reset() {
	c.sp = 0
	c.ip = 0
	c.gas = 0
	c.lastGasCost = 0
	c.stop = false
	c.err = nil
	c.outcome = runtime.OutcomeStop
	c.beneficiary = types.ZeroAddress
	c.call = nil
	c.snapshot = 0

	c.host = nil
	c.msg = nil
	c.params = nil
	c.evm = nil
	c.bitmap = nil

	// reset memory
	for i := range c.memory {
		c.memory[i] = 0
	}

	c.tmp = c.tmp[:0]
	c.ret = c.ret[:0]
	c.code = nil
	c.returnData = nil
	c.memory = c.memory[:0]
}

func (c *state) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(c.code)) {
		return false
	}

	return c.bitmap.isSet(udest)
}

// Halt stops the frame without an error
func (c *state) Halt() {
	c.stop = true
}

func (c *state) exit(err error) {
	if err == nil {
		panic("cannot stop with none")
	}

	c.stop = true
	c.err = err
}

func (c *state) push(val *uint256.Int) {
	c.push1().Set(val)
}

func (c *state) push1() *uint256.Int {
	if len(c.stack) > c.sp {
		c.sp++

		return &c.stack[c.sp-1]
	}

	c.stack = append(c.stack, uint256.Int{})
	c.sp++

	return &c.stack[c.sp-1]
}

func (c *state) stackAtLeast(n int) bool {
	return c.sp >= n
}

func (c *state) popHash() types.Hash {
	return types.WordToHash(c.pop())
}

func (c *state) popAddr() types.Address {
	return types.WordToAddress(c.pop())
}

func (c *state) top() *uint256.Int {
	if c.sp == 0 {
		return nil
	}

	return &c.stack[c.sp-1]
}

func (c *state) pop() *uint256.Int {
	if c.sp == 0 {
		return nil
	}

	o := &c.stack[c.sp-1]
	c.sp--

	return o
}

func (c *state) peekAt(n int) *uint256.Int {
	return &c.stack[c.sp-n]
}

func (c *state) swap(n int) {
	c.stack[c.sp-1], c.stack[c.sp-n-1] = c.stack[c.sp-n-1], c.stack[c.sp-1]
}

func (c *state) consumeGas(gas uint64) bool {
	if c.gas < gas {
		c.exit(errOutOfGas)

		return false
	}

	c.gas -= gas

	return true
}

func (c *state) resetReturnData() {
	c.returnData = c.returnData[:0]
}

func (c *state) inStaticCall() bool {
	return c.msg.Static
}

// Run executes the frame until it halts or suspends on a nested call.
// Per opcode the stack is validated first, then the static gas is charged and
// the instruction charges its dynamic gas before applying any effect.
func (c *state) Run() {
	codeSize := len(c.code)

	for !c.stop && c.call == nil {
		if c.ip >= codeSize {
			c.Halt()

			break
		}

		op := OpCode(c.code[c.ip])

		inst := dispatchTable[op]
		if inst.inst == nil {
			c.exit(&runtime.InvalidOpCodeError{OpCode: byte(op)})

			break
		}

		// check if the depth of the stack is enough for the instruction
		if c.sp < inst.stack {
			c.exit(&runtime.StackUnderflowError{StackLen: c.sp, Required: inst.stack})

			break
		}

		// check the instruction leaves the stack within its limit
		if c.sp+inst.grow > stackSize {
			c.exit(errStackOverflow)

			break
		}

		var step *tracer.Step
		if c.evm.tracer != nil {
			step = c.newStep(op)
			c.evm.tracer.StepStart(step, c)

			if c.stop {
				break
			}
		}

		// consume the gas of the instruction
		if !c.consumeGas(inst.gas) {
			break
		}

		// execute the instruction
		inst.inst(c)

		if step != nil {
			step.Cost = step.Gas - c.gas
			step.ReturnData = c.returnData
			step.Err = c.err
			c.evm.tracer.StepEnd(step)
		}

		c.ip++
	}
}

func (c *state) newStep(op OpCode) *tracer.Step {
	return &tracer.Step{
		Address: c.msg.Address,
		PC:      uint64(c.ip),
		Op:      byte(op),
		Gas:     c.gas,
		Depth:   c.msg.Depth + 1,
		Stack:   c.stack[:c.sp],
		Memory:  c.memory,
		Host:    c.host,
	}
}

var _ tracer.Halter = (*state)(nil)

func (c *state) Len() int {
	return len(c.memory)
}

func (c *state) Show() string {
	str := []string{}

	for i := 0; i < len(c.memory); i += 16 {
		j := i + 16
		if j > len(c.memory) {
			j = len(c.memory)
		}

		str = append(str, hex.EncodeToHex(c.memory[i:j]))
	}

	return strings.Join(str, "\n")
}

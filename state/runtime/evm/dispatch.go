package evm

import (
	"errors"
	"fmt"

	"github.com/armon/go-metrics"

	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/state/runtime"
)

// callRequest is a nested call or create a frame is suspended on
type callRequest struct {
	contract *runtime.Contract

	// memory range receiving the return data of a call
	retOffset uint64
	retSize   uint64
}

// dispatcher runs an invocation and every call it makes on an explicit list of
// frames. Only the top frame executes, the ones below are suspended on their
// callRequest, so the depth of the Go stack does not grow with the call depth.
type dispatcher struct {
	evm    *EVM
	host   runtime.Host
	params *chain.Params

	frames []*state
}

func (d *dispatcher) run(root *runtime.Contract) *runtime.ExecutionResult {
	frame, res := d.enter(root)
	if res != nil {
		return res
	}

	d.push(frame)

	for {
		top := d.frames[len(d.frames)-1]
		top.Run()

		if req := top.call; req != nil {
			child, res := d.enter(req.contract)
			if child != nil {
				d.push(child)
			} else {
				d.resume(top, res)
			}

			continue
		}

		res := d.leave(top)
		d.pop()

		if len(d.frames) == 0 {
			return res
		}

		d.resume(d.frames[len(d.frames)-1], res)
	}
}

func (d *dispatcher) push(s *state) {
	d.frames = append(d.frames, s)
}

func (d *dispatcher) pop() {
	n := len(d.frames) - 1

	releaseState(d.frames[n])
	d.frames[n] = nil
	d.frames = d.frames[:n]
}

func (d *dispatcher) newFrame(c *runtime.Contract, bm *bitmap, snapshot int) *state {
	s := acquireState()
	s.msg = c
	s.code = c.Code
	s.evm = d.evm
	s.gas = c.Gas
	s.host = d.host
	s.params = d.params
	s.bitmap = bm
	s.snapshot = snapshot

	return s
}

// canTransfer reports whether the caller of c can fund the value it carries
func (d *dispatcher) canTransfer(c *runtime.Contract) bool {
	switch c.Type {
	case runtime.Call, runtime.CallCode, runtime.Create, runtime.Create2:
		if c.Value == nil || c.Value.IsZero() {
			return true
		}

		return !d.host.GetBalance(c.Caller).Lt(c.Value)
	default:
		return true
	}
}

// enter opens a frame for c. It returns either the frame to execute or the
// result of a call that completed without one: a failed precondition, a
// precompile, a native actor or an account without code.
func (d *dispatcher) enter(c *runtime.Contract) (*state, *runtime.ExecutionResult) {
	metrics.IncrCounter([]string{"evm", "calls"}, 1)

	d.evm.captureCallStart(c)

	d.evm.logger.Trace("enter", "type", c.Type, "depth", c.Depth, "caller", c.Caller, "address", c.Address, "gas", c.Gas)

	// preconditions return the forwarded gas to the caller
	if c.Depth > d.params.MaxCallDepth {
		return nil, d.complete(c, &runtime.ExecutionResult{Outcome: runtime.OutcomeFault, Err: runtime.ErrDepth, GasLeft: c.Gas})
	}

	if !d.canTransfer(c) {
		return nil, d.complete(c, &runtime.ExecutionResult{Outcome: runtime.OutcomeFault, Err: runtime.ErrInsufficientBalance, GasLeft: c.Gas})
	}

	if c.Type.IsCreate() {
		return d.enterCreate(c)
	}

	return d.enterCall(c)
}

func (d *dispatcher) enterCreate(c *runtime.Contract) (*state, *runtime.ExecutionResult) {
	metrics.IncrCounter([]string{"evm", "creates"}, 1)

	d.host.IncrNonce(c.Caller)

	// the address must not hold code or have been used already
	if d.host.GetNonce(c.Address) != 0 || d.host.GetCodeSize(c.Address) != 0 {
		return nil, d.complete(c, runtime.NewFault(runtime.ErrContractAddressCollision))
	}

	snapshot := d.host.Snapshot()

	d.host.CreateAccount(c.Address)
	d.host.IncrNonce(c.Address)

	if err := d.transfer(c); err != nil {
		d.host.RevertToSnapshot(snapshot)

		return nil, d.complete(c, &runtime.ExecutionResult{Outcome: runtime.OutcomeFault, Err: err, GasLeft: c.Gas})
	}

	// init code runs once, its analysis is not cached
	return d.newFrame(c, newBitmap(c.Code), snapshot), nil
}

func (d *dispatcher) enterCall(c *runtime.Contract) (*state, *runtime.ExecutionResult) {
	snapshot := d.host.Snapshot()

	// precompiles run synchronously
	if p := d.evm.precompiles; p != nil && p.CanRun(c, d.host, d.params) {
		if err := d.transfer(c); err != nil {
			d.host.RevertToSnapshot(snapshot)

			return nil, d.complete(c, &runtime.ExecutionResult{Outcome: runtime.OutcomeFault, Err: err, GasLeft: c.Gas})
		}

		res := p.Run(c, d.host, d.params)
		if res.Outcome == runtime.OutcomeFault || res.Failed() {
			res.GasLeft = 0
			res.ReturnValue = nil
		}

		d.closeSnapshot(snapshot, res)

		return nil, d.complete(c, res)
	}

	if code := d.host.GetCode(c.CodeAddress); len(code) != 0 {
		if err := d.transfer(c); err != nil {
			d.host.RevertToSnapshot(snapshot)

			return nil, d.complete(c, &runtime.ExecutionResult{Outcome: runtime.OutcomeFault, Err: err, GasLeft: c.Gas})
		}

		c.Code = code

		return d.newFrame(c, d.evm.analyze(d.host.GetCodeHash(c.CodeAddress), code), snapshot), nil
	}

	if c.Type == runtime.Call || c.Type == runtime.StaticCall {
		if actor, ok := d.host.GetNativeActor(c.CodeAddress); ok {
			return nil, d.complete(c, d.invokeNative(actor, c, snapshot))
		}
	}

	if c.Type == runtime.DelegateCall {
		d.host.RevertToSnapshot(snapshot)

		return nil, d.complete(c, runtime.NewFault(runtime.ErrNoCode))
	}

	// an account without code accepts the call and its value
	if err := d.transfer(c); err != nil {
		d.host.RevertToSnapshot(snapshot)

		return nil, d.complete(c, &runtime.ExecutionResult{Outcome: runtime.OutcomeFault, Err: err, GasLeft: c.Gas})
	}

	d.host.CommitSnapshot(snapshot)

	return nil, d.complete(c, &runtime.ExecutionResult{Outcome: runtime.OutcomeStop, GasLeft: c.Gas})
}

// invokeNative forwards a call to an actor of the host. The actor does not
// meter gas, so the gas forwarded to it is returned whatever the outcome.
func (d *dispatcher) invokeNative(actor runtime.NativeActor, c *runtime.Contract, snapshot int) *runtime.ExecutionResult {
	if err := d.transfer(c); err != nil {
		d.host.RevertToSnapshot(snapshot)

		return &runtime.ExecutionResult{Outcome: runtime.OutcomeFault, Err: err, GasLeft: c.Gas}
	}

	out, err := actor.Invoke(c.Caller, c.Value, c.Input)
	if err != nil {
		d.host.RevertToSnapshot(snapshot)

		d.evm.logger.Debug("native actor failed", "address", c.CodeAddress, "err", err)

		return &runtime.ExecutionResult{
			Outcome: runtime.OutcomeRevert,
			Err:     fmt.Errorf("%w: %s", runtime.ErrExecutionReverted, err),
			GasLeft: c.Gas,
		}
	}

	d.host.CommitSnapshot(snapshot)

	return &runtime.ExecutionResult{Outcome: runtime.OutcomeReturn, ReturnValue: out, GasLeft: c.Gas}
}

// transfer moves the value of a CALL or create, the other call types never move value
func (d *dispatcher) transfer(c *runtime.Contract) error {
	if c.Type != runtime.Call && !c.Type.IsCreate() {
		return nil
	}

	if c.Value == nil || c.Value.IsZero() {
		return nil
	}

	if err := d.host.Transfer(c.Caller, c.Address, c.Value); err != nil {
		return runtime.ErrInsufficientBalance
	}

	return nil
}

// leave turns a halted frame into its result and closes its journal layer
func (d *dispatcher) leave(s *state) *runtime.ExecutionResult {
	c := s.msg

	res := &runtime.ExecutionResult{
		Outcome: s.outcome,
		GasLeft: s.gas,
	}

	switch {
	case s.err == nil:
		if s.outcome == runtime.OutcomeReturn {
			res.ReturnValue = copyOutput(s.ret)
		}

		if s.outcome == runtime.OutcomeSelfDestruct {
			res.Beneficiary = s.beneficiary
		}

		if c.Type.IsCreate() {
			d.deploy(c, res)
		}

	case errors.Is(s.err, errRevert):
		res.Outcome = runtime.OutcomeRevert
		res.ReturnValue = copyOutput(s.ret)
		res.Err = s.err

	default:
		res = runtime.NewFault(s.err)
	}

	d.closeSnapshot(s.snapshot, res)

	return d.complete(c, res)
}

func copyOutput(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}

	return append([]byte{}, b...)
}

// deploy stores the code returned by an init code. A failure turns the
// result into a fault.
func (d *dispatcher) deploy(c *runtime.Contract, res *runtime.ExecutionResult) {
	code := res.ReturnValue

	if len(code) > d.params.MaxCodeSize {
		*res = *runtime.NewFault(runtime.ErrMaxCodeSizeExceeded)

		return
	}

	cost := uint64(len(code)) * chain.CreateDataGas
	if res.GasLeft < cost {
		*res = *runtime.NewFault(runtime.ErrCodeStoreOutOfGas)

		return
	}

	res.GasLeft -= cost

	d.host.SetCode(c.Address, code)
	d.host.RegisterContract(c.Address)

	res.CreatedAddress = c.Address
}

func (d *dispatcher) closeSnapshot(snapshot int, res *runtime.ExecutionResult) {
	if res.Failed() {
		d.host.RevertToSnapshot(snapshot)
	} else {
		d.host.CommitSnapshot(snapshot)
	}
}

// complete records a finished call
func (d *dispatcher) complete(c *runtime.Contract, res *runtime.ExecutionResult) *runtime.ExecutionResult {
	switch {
	case res.Reverted():
		metrics.IncrCounter([]string{"evm", "reverts"}, 1)
	case res.Failed():
		metrics.IncrCounter([]string{"evm", "faults"}, 1)
	}

	d.evm.logger.Trace("exit", "type", c.Type, "depth", c.Depth, "address", c.Address, "outcome", res.Outcome, "err", res.Err)

	d.evm.captureCallEnd(c, res)

	return res
}

// resume hands the result of a nested call back to the suspended parent
func (d *dispatcher) resume(parent *state, res *runtime.ExecutionResult) {
	req := parent.call
	parent.call = nil

	parent.gas += res.GasLeft

	v := parent.push1()

	if req.contract.Type.IsCreate() {
		if res.Succeeded() {
			v.SetBytes20(res.CreatedAddress.Bytes())
		} else {
			v.Clear()
		}

		if res.Reverted() {
			parent.returnData = append(parent.returnData[:0], res.ReturnValue...)
		}

		return
	}

	if res.Succeeded() {
		v.SetOne()
	} else {
		v.Clear()
	}

	if res.Succeeded() || res.Reverted() {
		// the output range was allocated when the call was made
		if n := min(req.retSize, uint64(len(res.ReturnValue))); n > 0 {
			copy(parent.memory[req.retOffset:req.retOffset+n], res.ReturnValue)
		}

		parent.returnData = append(parent.returnData[:0], res.ReturnValue...)
	}
}

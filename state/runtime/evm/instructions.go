package evm

import (
	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/crypto"
	"github.com/0xPolygon/actor-evm/helper/keccak"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/types"
)

type instruction func(c *state)

var wordSize = uint256.NewInt(32)

func opAdd(c *state) {
	a := c.pop()
	b := c.top()

	b.Add(a, b)
}

func opMul(c *state) {
	a := c.pop()
	b := c.top()

	b.Mul(a, b)
}

func opSub(c *state) {
	a := c.pop()
	b := c.top()

	b.Sub(a, b)
}

// the word library defines division and modulo by zero as zero
func opDiv(c *state) {
	a := c.pop()
	b := c.top()

	b.Div(a, b)
}

func opSDiv(c *state) {
	a := c.pop()
	b := c.top()

	b.SDiv(a, b)
}

func opMod(c *state) {
	a := c.pop()
	b := c.top()

	b.Mod(a, b)
}

func opSMod(c *state) {
	a := c.pop()
	b := c.top()

	b.SMod(a, b)
}

func opAddMod(c *state) {
	a := c.pop()
	b := c.pop()
	z := c.top()

	z.AddMod(a, b, z)
}

func opMulMod(c *state) {
	a := c.pop()
	b := c.pop()
	z := c.top()

	z.MulMod(a, b, z)
}

func opExp(c *state) {
	x := c.pop()
	y := c.top()

	gas := uint64((y.BitLen()+7)/8) * c.params.GasTable.ExpByte
	if !c.consumeGas(gas) {
		return
	}

	y.Exp(x, y)
}

func opSignExtension(c *state) {
	back := c.pop()
	num := c.top()

	num.ExtendSign(num, back)
}

func opAnd(c *state) {
	a := c.pop()
	b := c.top()

	b.And(a, b)
}

func opOr(c *state) {
	a := c.pop()
	b := c.top()

	b.Or(a, b)
}

func opXor(c *state) {
	a := c.pop()
	b := c.top()

	b.Xor(a, b)
}

func opByte(c *state) {
	x := c.pop()
	y := c.top()

	y.Byte(x)
}

func opNot(c *state) {
	a := c.top()

	a.Not(a)
}

func setBool(v *uint256.Int, b bool) {
	if b {
		v.SetOne()
	} else {
		v.Clear()
	}
}

func opIsZero(c *state) {
	a := c.top()

	setBool(a, a.IsZero())
}

func opEq(c *state) {
	a := c.pop()
	b := c.top()

	setBool(b, a.Eq(b))
}

func opLt(c *state) {
	a := c.pop()
	b := c.top()

	setBool(b, a.Lt(b))
}

func opGt(c *state) {
	a := c.pop()
	b := c.top()

	setBool(b, a.Gt(b))
}

func opSlt(c *state) {
	a := c.pop()
	b := c.top()

	setBool(b, a.Slt(b))
}

func opSgt(c *state) {
	a := c.pop()
	b := c.top()

	setBool(b, a.Sgt(b))
}

func opShl(c *state) {
	shift := c.pop()
	value := c.top()

	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
}

func opShr(c *state) {
	shift := c.pop()
	value := c.top()

	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
}

func opSar(c *state) {
	shift := c.pop()
	value := c.top()

	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}

		return
	}

	value.SRsh(value, uint(shift.Uint64()))
}

// memory operations

func opMload(c *state) {
	offset := c.top()

	if !c.checkMemory(offset, wordSize) {
		return
	}

	o := offset.Uint64()
	offset.SetBytes32(c.memory[o : o+32])
}

func opMStore(c *state) {
	offset := c.pop()
	val := c.pop()

	if !c.checkMemory(offset, wordSize) {
		return
	}

	o := offset.Uint64()
	buf := val.Bytes32()
	copy(c.memory[o:o+32], buf[:])
}

var one = uint256.NewInt(1)

func opMStore8(c *state) {
	offset := c.pop()
	val := c.pop()

	if !c.checkMemory(offset, one) {
		return
	}

	c.memory[offset.Uint64()] = byte(val.Uint64() & 0xff)
}

// storage operations

func opSload(c *state) {
	loc := c.top()

	if !c.consumeGas(c.params.GasTable.SLoad) {
		return
	}

	val := c.host.GetStorage(c.msg.Address, types.WordToHash(loc))
	loc.SetBytes32(val[:])
}

func opSStore(c *state) {
	if c.inStaticCall() {
		c.exit(errReadOnly)

		return
	}

	// EIP-2200 sentry, an SSTORE cannot run on the call stipend
	if c.gas <= chain.SstoreSentryGas {
		c.exit(errOutOfGas)

		return
	}

	key := c.popHash()
	value := c.popHash()

	address := c.msg.Address

	current := c.host.GetStorage(address, key)
	original := c.host.GetCommittedStorage(address, key)

	gas, refund := sstoreCost(original, current, value)
	if !c.consumeGas(gas) {
		return
	}

	if refund > 0 {
		c.host.AddRefund(uint64(refund))
	} else if refund < 0 {
		c.host.SubRefund(uint64(-refund))
	}

	c.host.SetStorage(address, key, value)
}

func opSha3(c *state) {
	offset := c.pop()
	length := c.pop()

	var ok bool
	if c.tmp, ok = c.get2(c.tmp[:0], offset, length); !ok {
		return
	}

	size := length.Uint64()
	if !c.consumeGas(numWords(size) * chain.Keccak256WordGas) {
		return
	}

	hash := keccak.Keccak256(nil, c.tmp)
	c.push1().SetBytes32(hash)
}

func opPop(c *state) {
	c.pop()
}

// context operations

func opAddress(c *state) {
	c.push1().SetBytes20(c.msg.Address.Bytes())
}

func opBalance(c *state) {
	addr := c.popAddr()

	if !c.consumeGas(c.params.GasTable.Balance) {
		return
	}

	c.push1().Set(c.host.GetBalance(addr))
}

func opSelfBalance(c *state) {
	c.push1().Set(c.host.GetBalance(c.msg.Address))
}

func opChainID(c *state) {
	c.push1().SetUint64(uint64(c.host.GetTxContext().ChainID))
}

func opOrigin(c *state) {
	c.push1().SetBytes20(c.msg.Origin.Bytes())
}

func opCaller(c *state) {
	c.push1().SetBytes20(c.msg.Caller.Bytes())
}

func opCallValue(c *state) {
	v := c.push1()
	if value := c.msg.Value; value != nil {
		v.Set(value)
	} else {
		v.Clear()
	}
}

func min(i, j uint64) uint64 {
	if i < j {
		return i
	}

	return j
}

func opCallDataLoad(c *state) {
	offset := c.top()

	var buf [32]byte
	c.setBytes(buf[:], c.msg.Input, 32, offset)
	offset.SetBytes32(buf[:])
}

func opCallDataSize(c *state) {
	c.push1().SetUint64(uint64(len(c.msg.Input)))
}

func opCodeSize(c *state) {
	c.push1().SetUint64(uint64(len(c.code)))
}

func opExtCodeSize(c *state) {
	addr := c.popAddr()

	if !c.consumeGas(c.params.GasTable.ExtcodeSize) {
		return
	}

	c.push1().SetUint64(uint64(c.host.GetCodeSize(addr)))
}

func opGasPrice(c *state) {
	price := c.host.GetTxContext().GasPrice
	c.push1().SetBytes32(price[:])
}

func opReturnDataSize(c *state) {
	c.push1().SetUint64(uint64(len(c.returnData)))
}

func opExtCodeHash(c *state) {
	address := c.popAddr()

	if !c.consumeGas(c.params.GasTable.ExtcodeHash) {
		return
	}

	v := c.push1()
	if c.host.Empty(address) {
		v.Clear()
	} else {
		hash := c.host.GetCodeHash(address)
		v.SetBytes32(hash[:])
	}
}

func opPC(c *state) {
	c.push1().SetUint64(uint64(c.ip))
}

func opMSize(c *state) {
	c.push1().SetUint64(uint64(len(c.memory)))
}

func opGas(c *state) {
	c.push1().SetUint64(c.gas)
}

// setBytes copies size bytes of input starting at dataOffset into dst, zero
// filling what lies past the end of input
func (c *state) setBytes(dst, input []byte, size uint64, dataOffset *uint256.Int) {
	if !dataOffset.IsUint64() {
		// overflow, copy 'size' 0 bytes to dst
		for i := uint64(0); i < size; i++ {
			dst[i] = 0
		}

		return
	}

	inputSize := uint64(len(input))
	begin := min(dataOffset.Uint64(), inputSize)

	copySize := min(size, inputSize-begin)
	if copySize > 0 {
		copy(dst, input[begin:begin+copySize])
	}

	if size-copySize > 0 {
		dst = dst[copySize:]
		for i := uint64(0); i < size-copySize; i++ {
			dst[i] = 0
		}
	}
}

func (c *state) copyCost(length *uint256.Int) bool {
	return c.consumeGas(numWords(length.Uint64()) * chain.CopyGas)
}

func opExtCodeCopy(c *state) {
	address := c.popAddr()
	memOffset := c.pop()
	codeOffset := c.pop()
	length := c.pop()

	if !c.checkMemory(memOffset, length) {
		return
	}

	if !c.copyCost(length) {
		return
	}

	if !c.consumeGas(c.params.GasTable.ExtcodeCopy) {
		return
	}

	code := c.host.GetCode(address)
	if size := length.Uint64(); size != 0 {
		c.setBytes(c.memory[memOffset.Uint64():], code, size, codeOffset)
	}
}

func opCallDataCopy(c *state) {
	memOffset := c.pop()
	dataOffset := c.pop()
	length := c.pop()

	if !c.checkMemory(memOffset, length) {
		return
	}

	if !c.copyCost(length) {
		return
	}

	if size := length.Uint64(); size != 0 {
		c.setBytes(c.memory[memOffset.Uint64():], c.msg.Input, size, dataOffset)
	}
}

func opReturnDataCopy(c *state) {
	memOffset := c.pop()
	dataOffset := c.pop()
	length := c.pop()

	// reading past the return data is a fault (EIP-211)
	end, overflow := new(uint256.Int).AddOverflow(dataOffset, length)
	if overflow || !end.IsUint64() || uint64(len(c.returnData)) < end.Uint64() {
		c.exit(errReturnBadSize)

		return
	}

	if !c.checkMemory(memOffset, length) {
		return
	}

	if !c.copyCost(length) {
		return
	}

	if length.IsZero() {
		return
	}

	data := c.returnData[dataOffset.Uint64():end.Uint64()]
	copy(c.memory[memOffset.Uint64():], data)
}

func opCodeCopy(c *state) {
	memOffset := c.pop()
	dataOffset := c.pop()
	length := c.pop()

	if !c.checkMemory(memOffset, length) {
		return
	}

	if !c.copyCost(length) {
		return
	}

	if size := length.Uint64(); size != 0 {
		c.setBytes(c.memory[memOffset.Uint64():], c.code, size, dataOffset)
	}
}

// block information

func opBlockHash(c *state) {
	num := c.top()

	if !num.IsUint64() {
		num.Clear()

		return
	}

	n := int64(num.Uint64())
	lastBlock := c.host.GetTxContext().Number

	// only the 256 most recent blocks are reachable
	if n >= 0 && n < lastBlock && n >= lastBlock-256 {
		hash := c.host.GetBlockHash(n)
		num.SetBytes32(hash[:])
	} else {
		num.Clear()
	}
}

func opCoinbase(c *state) {
	c.push1().SetBytes20(c.host.GetTxContext().Coinbase.Bytes())
}

func opTimestamp(c *state) {
	c.push1().SetUint64(uint64(c.host.GetTxContext().Timestamp))
}

func opNumber(c *state) {
	c.push1().SetUint64(uint64(c.host.GetTxContext().Number))
}

func opDifficulty(c *state) {
	difficulty := c.host.GetTxContext().Difficulty
	c.push1().SetBytes32(difficulty[:])
}

func opGasLimit(c *state) {
	c.push1().SetUint64(uint64(c.host.GetTxContext().GasLimit))
}

func opSelfDestruct(c *state) {
	if c.inStaticCall() {
		c.exit(errReadOnly)

		return
	}

	beneficiary := c.popAddr()

	gas := c.params.GasTable.Suicide

	// if empty and transfers value
	if c.host.Empty(beneficiary) && !c.host.GetBalance(c.msg.Address).IsZero() {
		gas += c.params.GasTable.CreateBySuicide
	}

	if !c.consumeGas(gas) {
		return
	}

	if !c.host.HasSuicided(c.msg.Address) {
		c.host.AddRefund(chain.SelfdestructRefund)
	}

	c.host.Selfdestruct(c.msg.Address, beneficiary)

	c.outcome = runtime.OutcomeSelfDestruct
	c.beneficiary = beneficiary
	c.Halt()
}

func opJump(c *state) {
	dest := c.pop()

	if c.validJumpdest(dest) {
		c.ip = int(dest.Uint64() - 1)
	} else {
		c.exit(errInvalidJump)
	}
}

func opJumpi(c *state) {
	dest := c.pop()
	cond := c.pop()

	if !cond.IsZero() {
		if c.validJumpdest(dest) {
			c.ip = int(dest.Uint64() - 1)
		} else {
			c.exit(errInvalidJump)
		}
	}
}

func opJumpDest(c *state) {
}

func opPush(n int) instruction {
	return func(c *state) {
		ins := c.code
		ip := c.ip

		v := c.push1()
		if ip+1+n > len(ins) {
			// immediates past the end of the code read as zero
			var buf [32]byte
			copy(buf[:], ins[ip+1:])
			v.SetBytes(buf[:n])
		} else {
			v.SetBytes(ins[ip+1 : ip+1+n])
		}

		c.ip += n
	}
}

func opDup(n int) instruction {
	return func(c *state) {
		val := *c.peekAt(n)
		c.push1().Set(&val)
	}
}

func opSwap(n int) instruction {
	return func(c *state) {
		c.swap(n)
	}
}

func opLog(size int) instruction {
	return func(c *state) {
		if c.inStaticCall() {
			c.exit(errReadOnly)

			return
		}

		mStart := c.pop()
		mSize := c.pop()

		topics := make([]types.Hash, size)
		for i := 0; i < size; i++ {
			topics[i] = c.popHash()
		}

		if !c.checkMemory(mStart, mSize) {
			return
		}

		if !c.consumeGas(uint64(size) * chain.LogTopicGas) {
			return
		}

		if !c.consumeGas(mSize.Uint64() * chain.LogDataGas) {
			return
		}

		var data []byte
		if !mSize.IsZero() {
			o := mStart.Uint64()
			data = append(data, c.memory[o:o+mSize.Uint64()]...)
		}

		c.host.EmitLog(c.msg.Address, topics, data)
	}
}

func opStop(c *state) {
	c.outcome = runtime.OutcomeStop
	c.Halt()
}

func opHalt(op OpCode) instruction {
	return func(c *state) {
		offset := c.pop()
		size := c.pop()

		var ok bool
		if c.ret, ok = c.get2(c.ret[:0], offset, size); !ok {
			return
		}

		if op == REVERT {
			c.outcome = runtime.OutcomeRevert
			c.exit(errRevert)
		} else {
			c.outcome = runtime.OutcomeReturn
			c.Halt()
		}
	}
}

// nested calls

func opCreate(op OpCode) instruction {
	return func(c *state) {
		c.resetReturnData()

		if c.inStaticCall() {
			c.exit(errReadOnly)

			return
		}

		contract := c.buildCreateContract(op)
		if contract == nil {
			return
		}

		c.call = &callRequest{contract: contract}
	}
}

func opCall(op OpCode) instruction {
	return func(c *state) {
		c.resetReturnData()

		if op == CALL && c.inStaticCall() {
			if val := c.peekAt(3); !val.IsZero() {
				c.exit(errReadOnly)

				return
			}
		}

		req := c.buildCallContract(op)
		if req == nil {
			return
		}

		c.call = req
	}
}

func (c *state) buildCallContract(op OpCode) *callRequest {
	// Pop input arguments
	initialGas := *c.pop()
	addr := c.popAddr()

	value := new(uint256.Int)
	if op == CALL || op == CALLCODE {
		value.Set(c.pop())
	}

	// input range
	inOffset := *c.pop()
	inSize := *c.pop()

	// output range
	retOffset := *c.pop()
	retSize := *c.pop()

	// Memory cost needs to consider both input and output resizes
	in, okIn := memoryEnd(&inOffset, &inSize)
	ret, okRet := memoryEnd(&retOffset, &retSize)

	if !okIn || !okRet {
		c.exit(errOutOfGas)

		return nil
	}

	if !c.allocateMemory(max(in, ret)) {
		return nil
	}

	var args []byte
	if !inSize.IsZero() {
		o := inOffset.Uint64()
		args = append(args, c.memory[o:o+inSize.Uint64()]...)
	}

	gasCost := c.params.GasTable.Calls
	transfersValue := !value.IsZero()

	if op == CALL && transfersValue && c.host.Empty(addr) {
		gasCost += chain.CallNewAccount
	}

	if transfersValue {
		gasCost += chain.CallValueTransfer
	}

	gas, ok := callGas(c.gas, gasCost, &initialGas)
	if !ok {
		c.exit(errOutOfGas)

		return nil
	}

	// Consume gas cost
	if !c.consumeGas(gasCost + gas) {
		return nil
	}

	if transfersValue {
		gas += chain.CallStipend
	}

	parent := c.msg

	contract := runtime.NewContractCall(
		parent.Depth+1,
		parent.Origin,
		parent.Address,
		addr,
		value,
		gas,
		nil,
		args,
	)

	switch op {
	case CALL:
		contract.Type = runtime.Call
	case CALLCODE:
		contract.Type = runtime.CallCode
	case DELEGATECALL:
		contract.Type = runtime.DelegateCall
	case STATICCALL:
		contract.Type = runtime.StaticCall
	}

	if op == STATICCALL || parent.Static {
		contract.Static = true
	}

	if op == CALLCODE || op == DELEGATECALL {
		contract.Address = parent.Address
		if op == DELEGATECALL {
			contract.Value = parent.Value
			contract.Caller = parent.Caller
		}
	}

	req := &callRequest{
		contract: contract,
	}

	if !retSize.IsZero() {
		req.retOffset = retOffset.Uint64()
		req.retSize = retSize.Uint64()
	}

	return req
}

func max(i, j uint64) uint64 {
	if i > j {
		return i
	}

	return j
}

func (c *state) buildCreateContract(op OpCode) *runtime.Contract {
	// Pop input arguments
	value := *c.pop()
	offset := c.pop()
	length := c.pop()

	var salt types.Hash
	if op == CREATE2 {
		salt = c.popHash()
	}

	if !c.checkMemory(offset, length) {
		return nil
	}

	if op == CREATE2 {
		// the init code is hashed to derive the address
		if !c.consumeGas(numWords(length.Uint64()) * chain.Keccak256WordGas) {
			return nil
		}
	}

	var input []byte
	if !length.IsZero() {
		o := offset.Uint64()
		input = append(input, c.memory[o:o+length.Uint64()]...)
	}

	// forward all but one 64th of the remaining gas
	gas := c.gas - c.gas/64

	if !c.consumeGas(gas) {
		return nil
	}

	var address types.Address
	if op == CREATE {
		address = crypto.CreateAddress(c.msg.Address, c.host.GetNonce(c.msg.Address))
	} else {
		address = crypto.CreateAddress2(c.msg.Address, salt, input)
	}

	contract := runtime.NewContractCreation(
		c.msg.Depth+1,
		c.msg.Origin,
		c.msg.Address,
		address,
		&value,
		gas,
		input,
	)

	if op == CREATE2 {
		contract.Type = runtime.Create2
		contract.Salt = salt
	}

	return contract
}

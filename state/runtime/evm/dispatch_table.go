package evm

import (
	"fmt"

	"github.com/0xPolygon/actor-evm/chain"
)

type handler struct {
	inst  instruction
	stack int
	gas   uint64

	// net number of words the instruction adds to the stack
	grow int
}

var dispatchTable [256]handler

func register(op OpCode, h handler) {
	if dispatchTable[op].inst != nil {
		panic(fmt.Errorf("instruction already exists: %s", op)) //nolint:gocritic
	}

	dispatchTable[op] = h
}

// registerProducer registers an instruction that pushes one word and pops none
func registerProducer(op OpCode, inst instruction, gas uint64) {
	register(op, handler{inst: inst, gas: gas, grow: 1})
}

func registerRange(from, to OpCode, factory func(n int) instruction, gas uint64) {
	c := 1
	for i := from; i <= to; i++ {
		register(i, handler{inst: factory(c), stack: 0, gas: gas})
		c++
	}
}

func init() {
	// unsigned arithmetic operations
	register(STOP, handler{opStop, 0, GasStop, 0})
	register(ADD, handler{opAdd, 2, GasFastestStep, 0})
	register(SUB, handler{opSub, 2, GasFastestStep, 0})
	register(MUL, handler{opMul, 2, GasFastStep, 0})
	register(DIV, handler{opDiv, 2, GasFastStep, 0})
	register(SDIV, handler{opSDiv, 2, GasFastStep, 0})
	register(MOD, handler{opMod, 2, GasFastStep, 0})
	register(SMOD, handler{opSMod, 2, GasFastStep, 0})
	register(EXP, handler{opExp, 2, GasSlowStep, 0})

	register(ADDMOD, handler{opAddMod, 3, GasMidStep, 0})
	register(MULMOD, handler{opMulMod, 3, GasMidStep, 0})

	// bit operations
	register(AND, handler{opAnd, 2, GasFastestStep, 0})
	register(OR, handler{opOr, 2, GasFastestStep, 0})
	register(XOR, handler{opXor, 2, GasFastestStep, 0})
	register(BYTE, handler{opByte, 2, GasFastestStep, 0})
	register(NOT, handler{opNot, 1, GasFastestStep, 0})
	register(SHL, handler{opShl, 2, GasFastestStep, 0})
	register(SHR, handler{opShr, 2, GasFastestStep, 0})
	register(SAR, handler{opSar, 2, GasFastestStep, 0})

	// comparison
	register(ISZERO, handler{opIsZero, 1, GasFastestStep, 0})
	register(EQ, handler{opEq, 2, GasFastestStep, 0})
	register(LT, handler{opLt, 2, GasFastestStep, 0})
	register(GT, handler{opGt, 2, GasFastestStep, 0})
	register(SLT, handler{opSlt, 2, GasFastestStep, 0})
	register(SGT, handler{opSgt, 2, GasFastestStep, 0})

	register(SIGNEXTEND, handler{opSignExtension, 2, GasFastStep, 0})

	register(SHA3, handler{opSha3, 2, chain.Keccak256Gas, 0})

	// memory
	register(MLOAD, handler{opMload, 1, GasFastestStep, 0})
	register(MSTORE, handler{opMStore, 2, GasFastestStep, 0})
	register(MSTORE8, handler{opMStore8, 2, GasFastestStep, 0})

	// store
	register(SLOAD, handler{opSload, 1, 0, 0})
	register(SSTORE, handler{opSStore, 2, 0, 0})

	// flow
	register(JUMP, handler{opJump, 1, GasMidStep, 0})
	register(JUMPI, handler{opJumpi, 2, GasSlowStep, 0})
	register(JUMPDEST, handler{opJumpDest, 0, chain.JumpdestGas, 0})

	// context
	registerProducer(ADDRESS, opAddress, GasQuickStep)
	register(BALANCE, handler{opBalance, 1, 0, 0})
	registerProducer(SELFBALANCE, opSelfBalance, GasSelfBalance)
	registerProducer(ORIGIN, opOrigin, GasQuickStep)
	registerProducer(CALLER, opCaller, GasQuickStep)
	registerProducer(CALLVALUE, opCallValue, GasQuickStep)
	register(CALLDATALOAD, handler{opCallDataLoad, 1, GasFastestStep, 0})
	registerProducer(CALLDATASIZE, opCallDataSize, GasQuickStep)
	registerProducer(CODESIZE, opCodeSize, GasQuickStep)
	register(EXTCODESIZE, handler{opExtCodeSize, 1, 0, 0})
	registerProducer(GASPRICE, opGasPrice, GasQuickStep)
	registerProducer(RETURNDATASIZE, opReturnDataSize, GasQuickStep)
	register(EXTCODEHASH, handler{opExtCodeHash, 1, 0, 0})
	registerProducer(PC, opPC, GasQuickStep)
	registerProducer(MSIZE, opMSize, GasQuickStep)
	registerProducer(GAS, opGas, GasQuickStep)
	registerProducer(CHAINID, opChainID, GasQuickStep)

	register(POP, handler{opPop, 1, GasQuickStep, 0})

	// copy
	register(EXTCODECOPY, handler{opExtCodeCopy, 4, 0, 0})
	register(CODECOPY, handler{opCodeCopy, 3, GasFastestStep, 0})
	register(CALLDATACOPY, handler{opCallDataCopy, 3, GasFastestStep, 0})
	register(RETURNDATACOPY, handler{opReturnDataCopy, 3, GasFastestStep, 0})

	// block information
	register(BLOCKHASH, handler{opBlockHash, 1, GasBlockHash, 0})
	registerProducer(COINBASE, opCoinbase, GasQuickStep)
	registerProducer(TIMESTAMP, opTimestamp, GasQuickStep)
	registerProducer(NUMBER, opNumber, GasQuickStep)
	registerProducer(DIFFICULTY, opDifficulty, GasQuickStep)
	registerProducer(GASLIMIT, opGasLimit, GasQuickStep)

	register(SELFDESTRUCT, handler{opSelfDestruct, 1, 0, 0})

	// push
	registerRange(PUSH1, PUSH32, opPush, GasFastestStep)

	// dup
	registerRange(DUP1, DUP16, opDup, GasFastestStep)

	// swap
	registerRange(SWAP1, SWAP16, opSwap, GasFastestStep)

	// the stack requirement of the ranges depends on n
	for i := 0; i < 32; i++ {
		dispatchTable[PUSH1+OpCode(i)].grow = 1
	}

	for i := 0; i < 16; i++ {
		dispatchTable[DUP1+OpCode(i)].stack = i + 1
		dispatchTable[DUP1+OpCode(i)].grow = 1
		dispatchTable[SWAP1+OpCode(i)].stack = i + 2
	}

	// logs
	for i := 0; i <= 4; i++ {
		register(LOG0+OpCode(i), handler{opLog(i), i + 2, chain.LogGas, 0})
	}

	// nested calls
	register(CREATE, handler{opCreate(CREATE), 3, chain.CreateGas, 0})
	register(CREATE2, handler{opCreate(CREATE2), 4, chain.CreateGas, 0})
	register(CALL, handler{opCall(CALL), 7, 0, 0})
	register(CALLCODE, handler{opCall(CALLCODE), 7, 0, 0})
	register(DELEGATECALL, handler{opCall(DELEGATECALL), 6, 0, 0})
	register(STATICCALL, handler{opCall(STATICCALL), 6, 0, 0})

	register(RETURN, handler{opHalt(RETURN), 2, GasReturn, 0})
	register(REVERT, handler{opHalt(REVERT), 2, GasReturn, 0})
}

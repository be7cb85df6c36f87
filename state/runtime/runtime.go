package runtime

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/types"
)

// TxContext is the context of the invocation
type TxContext struct {
	GasPrice   types.Hash
	Origin     types.Address
	Coinbase   types.Address
	Number     int64
	Timestamp  int64
	GasLimit   int64
	ChainID    int64
	Difficulty types.Hash
}

// StorageStatus is the status of the storage access
type StorageStatus int

const (
	// StorageUnchanged if the data has not changed
	StorageUnchanged StorageStatus = iota
	// StorageModified if the value has been modified
	StorageModified
	// StorageModifiedAgain if the value has been modified before in the txn
	StorageModifiedAgain
	// StorageAdded if this is a new entry in the storage
	StorageAdded
	// StorageDeleted if the storage was deleted
	StorageDeleted
)

func (s StorageStatus) String() string {
	switch s {
	case StorageUnchanged:
		return "StorageUnchanged"
	case StorageModified:
		return "StorageModified"
	case StorageModifiedAgain:
		return "StorageModifiedAgain"
	case StorageAdded:
		return "StorageAdded"
	case StorageDeleted:
		return "StorageDeleted"
	default:
		panic("BUG: storage status not found")
	}
}

// NativeActor is an actor of the host chain that bytecode can call into
type NativeActor interface {
	Invoke(caller types.Address, value *uint256.Int, input []byte) ([]byte, error)
}

// Host is the execution host. Every nested frame of an invocation shares it.
type Host interface {
	AccountExists(addr types.Address) bool
	Empty(addr types.Address) bool
	CreateAccount(addr types.Address)

	GetBalance(addr types.Address) *uint256.Int
	Transfer(from, to types.Address, amount *uint256.Int) error

	GetNonce(addr types.Address) uint64
	IncrNonce(addr types.Address)

	GetCode(addr types.Address) []byte
	GetCodeSize(addr types.Address) int
	GetCodeHash(addr types.Address) types.Hash
	SetCode(addr types.Address, code []byte)

	GetStorage(addr types.Address, key types.Hash) types.Hash
	GetCommittedStorage(addr types.Address, key types.Hash) types.Hash
	SetStorage(addr types.Address, key types.Hash, value types.Hash) StorageStatus

	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	Selfdestruct(addr types.Address, beneficiary types.Address) bool
	HasSuicided(addr types.Address) bool

	EmitLog(addr types.Address, topics []types.Hash, data []byte)
	GetTxContext() TxContext
	GetBlockHash(number int64) types.Hash

	// Snapshot opens a journal layer, the layer is closed with either
	// RevertToSnapshot or CommitSnapshot
	Snapshot() int
	RevertToSnapshot(id int)
	CommitSnapshot(id int)

	// GetNativeActor resolves an address to a host actor through the address translator
	GetNativeActor(addr types.Address) (NativeActor, bool)
	RegisterContract(addr types.Address)
}

// Outcome is the way a frame terminated
type Outcome int

const (
	OutcomeStop Outcome = iota
	OutcomeReturn
	OutcomeRevert
	OutcomeSelfDestruct
	OutcomeFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStop:
		return "stop"
	case OutcomeReturn:
		return "return"
	case OutcomeRevert:
		return "revert"
	case OutcomeSelfDestruct:
		return "selfdestruct"
	case OutcomeFault:
		return "fault"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ExecutionResult includes all output after executing given evm
// message no matter the execution itself is successful or not.
type ExecutionResult struct {
	Outcome     Outcome
	ReturnValue []byte        // Returned data from the runtime (function result or data supplied with revert opcode)
	Beneficiary types.Address // set for OutcomeSelfDestruct
	GasLeft     uint64        // Total gas left as result of execution
	GasUsed     uint64        // Total gas used as result of execution
	Err         error         // Any error encountered during the execution, listed below

	// Address of the contract created by CREATE/CREATE2
	CreatedAddress types.Address
}

func (r *ExecutionResult) Succeeded() bool { return r.Err == nil }
func (r *ExecutionResult) Failed() bool    { return r.Err != nil }
func (r *ExecutionResult) Reverted() bool  { return errors.Is(r.Err, ErrExecutionReverted) }

// Fault is true when the frame terminated abnormally
func (r *ExecutionResult) Fault() bool { return r.Failed() && !r.Reverted() }

func (r *ExecutionResult) UpdateGasUsed(gasLimit uint64, refund uint64) {
	r.GasUsed = gasLimit - r.GasLeft

	// Refund can go up to half the gas used
	if maxRefund := r.GasUsed / 2; refund > maxRefund {
		refund = maxRefund
	}

	r.GasLeft += refund
	r.GasUsed -= refund
}

// NewFault returns a result that consumed all of its gas
func NewFault(err error) *ExecutionResult {
	return &ExecutionResult{Outcome: OutcomeFault, Err: err}
}

var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrStackOverflow            = errors.New("stack overflow")
	ErrStackUnderflow           = errors.New("stack underflow")
	ErrNotEnoughFunds           = errors.New("not enough funds")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrMaxCodeSizeExceeded      = errors.New("evm: max code size exceeded")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrExecutionReverted        = errors.New("execution was reverted")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrInvalidJump              = errors.New("invalid jump destination")
	ErrWriteProtection          = errors.New("state change in static context")
	ErrReturnDataOutOfBounds    = errors.New("return data out of bounds")
	ErrGasUintOverflow          = errors.New("gas uint64 overflow")
	ErrNoCode                   = errors.New("delegate call to an account without code")
	ErrNativeActor              = errors.New("native actor call failed")
)

// StackUnderflowError is returned when an opcode needs more words than the stack holds
type StackUnderflowError struct {
	StackLen int
	Required int
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow (%d <=> %d)", e.StackLen, e.Required)
}

func (e *StackUnderflowError) Unwrap() error {
	return ErrStackUnderflow
}

// InvalidOpCodeError is returned for an undefined opcode or INVALID
type InvalidOpCodeError struct {
	OpCode byte
}

func (e *InvalidOpCodeError) Error() string {
	return fmt.Sprintf("invalid opcode: 0x%x", e.OpCode)
}

type CallType int

const (
	Call CallType = iota
	CallCode
	DelegateCall
	StaticCall
	Create
	Create2
)

func (t CallType) String() string {
	switch t {
	case Call:
		return "CALL"
	case CallCode:
		return "CALLCODE"
	case DelegateCall:
		return "DELEGATECALL"
	case StaticCall:
		return "STATICCALL"
	case Create:
		return "CREATE"
	case Create2:
		return "CREATE2"
	default:
		return fmt.Sprintf("calltype(%d)", int(t))
	}
}

// IsCreate is true for CREATE and CREATE2
func (t CallType) IsCreate() bool {
	return t == Create || t == Create2
}

// Runtime can process contracts
type Runtime interface {
	Run(c *Contract, host Host, params *chain.Params) *ExecutionResult
	CanRun(c *Contract, host Host, params *chain.Params) bool
	Name() string
}

// Contract is the instance being called
type Contract struct {
	Code        []byte
	Type        CallType
	CodeAddress types.Address
	Address     types.Address
	Origin      types.Address
	Caller      types.Address
	Depth       int
	Value       *uint256.Int
	Input       []byte
	Gas         uint64
	Static      bool
	Salt        types.Hash
}

func NewContract(
	depth int,
	origin types.Address,
	from types.Address,
	to types.Address,
	value *uint256.Int,
	gas uint64,
	code []byte,
) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}

	f := &Contract{
		Caller:      from,
		Origin:      origin,
		CodeAddress: to,
		Address:     to,
		Gas:         gas,
		Value:       value,
		Code:        code,
		Depth:       depth,
	}

	return f
}

func NewContractCreation(
	depth int,
	origin types.Address,
	from types.Address,
	to types.Address,
	value *uint256.Int,
	gas uint64,
	code []byte,
) *Contract {
	c := NewContract(depth, origin, from, to, value, gas, code)
	c.Type = Create

	return c
}

func NewContractCall(
	depth int,
	origin types.Address,
	from types.Address,
	to types.Address,
	value *uint256.Int,
	gas uint64,
	code []byte,
	input []byte,
) *Contract {
	c := NewContract(depth, origin, from, to, value, gas, code)
	c.Input = input

	return c
}

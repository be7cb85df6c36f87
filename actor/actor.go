package actor

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/address"
	"github.com/0xPolygon/actor-evm/state"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/types"
)

// DefaultGasLimit is the gas of a message that does not set one
const DefaultGasLimit uint64 = 10_000_000

var ErrAlreadyConstructed = errors.New("contract already constructed")

// Message is the envelope of a method call
type Message struct {
	Caller    address.NativeAddress
	Value     *uint256.Int
	GasLimit  uint64
	Epoch     int64
	Timestamp int64
}

// Actor is a bytecode contract living at a native address. Calls to the same
// actor are serialized, distinct actors can run concurrently.
type Actor struct {
	logger   hclog.Logger
	executor *state.Executor

	self    address.NativeAddress
	addr    types.Address
	idLabel metrics.Label

	gasLimit uint64

	lock sync.Mutex
}

type Option func(*Actor)

// WithLogger sets the logger of the actor
func WithLogger(logger hclog.Logger) Option {
	return func(a *Actor) {
		a.logger = logger
	}
}

// WithGasLimit sets the gas of messages that do not set one
func WithGasLimit(gas uint64) Option {
	return func(a *Actor) {
		a.gasLimit = gas
	}
}

// New returns the actor at self
func New(executor *state.Executor, self address.NativeAddress, opts ...Option) *Actor {
	a := &Actor{
		logger:   hclog.NewNullLogger(),
		executor: executor,
		self:     self,
		gasLimit: DefaultGasLimit,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.addr = executor.Translator().ToEVM(self)
	a.idLabel = metrics.Label{Name: "actor", Value: self.String()}
	a.logger = a.logger.Named("actor").With("address", a.addr)

	return a
}

// Address returns the address bytecode reaches the actor at
func (a *Actor) Address() types.Address {
	return a.addr
}

func (a *Actor) begin(msg *Message) (*state.Transition, types.Address, uint64) {
	caller := a.executor.Translator().ToEVM(msg.Caller)

	gas := msg.GasLimit
	if gas == 0 {
		gas = a.gasLimit
	}

	tr := a.executor.BeginTxn(runtime.TxContext{
		Origin:    caller,
		Number:    msg.Epoch,
		Timestamp: msg.Timestamp,
		GasLimit:  int64(gas),
	})

	return tr, caller, gas
}

// finish maps the result of the invocation to the actor error model and
// persists the changes of a successful one
func (a *Actor) finish(tr *state.Transition, res *runtime.ExecutionResult) error {
	switch {
	case res.Reverted():
		return &Error{Exit: ExitExecutionReverted, Err: res.Err, ReturnData: res.ReturnValue}

	case errors.Is(res.Err, state.ErrStateUnavailable):
		return newError(ExitIllegalState, res.Err)

	case res.Failed():
		return newError(ExitExecutionFault, res.Err)
	}

	if err := tr.Commit(); err != nil {
		a.logger.Error("failed to persist state", "err", err)

		return newError(ExitIllegalState, err)
	}

	return nil
}

func (a *Actor) observe(method MethodNum, err error) {
	labels := []metrics.Label{a.idLabel, {Name: "method", Value: strconv.FormatUint(uint64(method), 10)}}

	metrics.IncrCounterWithLabels([]string{"actor", "invocations"}, 1, labels)

	if err != nil {
		metrics.IncrCounterWithLabels([]string{"actor", "failures"}, 1, labels)

		a.logger.Debug("method failed", "method", method, "err", err)
	}
}

// Construct runs the init code and stores the code it returns at the actor address
func (a *Actor) Construct(msg Message, params *ConstructorParams) (ret *ConstructorReturn, err error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	defer func() { a.observe(MethodConstructor, err) }()

	if params == nil {
		return nil, newError(ExitIllegalArgument, errors.New("missing constructor params"))
	}

	tr, caller, gas := a.begin(&msg)
	defer tr.Discard()

	if tr.Txn().GetCodeSize(a.addr) != 0 {
		return nil, newError(ExitIllegalState, ErrAlreadyConstructed)
	}

	// init code runs with the constructor input appended
	code := make([]byte, 0, len(params.Bytecode)+len(params.InputData))
	code = append(code, params.Bytecode...)
	code = append(code, params.InputData...)

	res := tr.CreateAt(caller, a.addr, code, msg.Value, gas)
	if err := a.finish(tr, res); err != nil {
		return nil, err
	}

	stored := tr.Txn().GetCode(a.addr)

	a.logger.Debug("contract constructed", "gas", res.GasUsed, "size", len(stored))

	return &ConstructorReturn{Address: a.addr, Bytecode: stored, GasUsed: res.GasUsed}, nil
}

// Invoke runs the code of the actor with the input
func (a *Actor) Invoke(msg Message, params *InvokeParams) (ret []byte, err error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	defer func() { a.observe(MethodInvokeContract, err) }()

	var input []byte
	if params != nil {
		input = params.InputData
	}

	tr, caller, gas := a.begin(&msg)
	defer tr.Discard()

	res := tr.Call(caller, a.addr, msg.Value, input, gas)
	if err := a.finish(tr, res); err != nil {
		return nil, err
	}

	return res.ReturnValue, nil
}

// GetBytecode returns the deployed code of the actor
func (a *Actor) GetBytecode() (ret []byte, err error) {
	defer func() { a.observe(MethodGetBytecode, err) }()

	txn := state.NewTxn(a.executor.State())

	code := txn.GetCode(a.addr)
	if err := txn.Err(); err != nil {
		return nil, newError(ExitIllegalState, err)
	}

	return code, nil
}

// GetStorageAt returns the persisted value of a slot of the actor
func (a *Actor) GetStorageAt(params *GetStorageAtParams) (ret types.Hash, err error) {
	defer func() { a.observe(MethodGetStorageAt, err) }()

	if params == nil {
		return types.ZeroHash, newError(ExitIllegalArgument, errors.New("missing storage key"))
	}

	txn := state.NewTxn(a.executor.State())

	val := txn.GetState(a.addr, params.Key)
	if err := txn.Err(); err != nil {
		return types.ZeroHash, newError(ExitIllegalState, err)
	}

	return val, nil
}

// Dispatch decodes the params of the method, runs it and encodes its return
func (a *Actor) Dispatch(msg Message, method MethodNum, params []byte) ([]byte, error) {
	decodeErr := func(err error) error {
		return newError(ExitIllegalArgument, fmt.Errorf("failed to decode params of method %d: %w", method, err))
	}

	switch method {
	case MethodConstructor:
		var p ConstructorParams
		if err := p.UnmarshalRLP(params); err != nil {
			return nil, decodeErr(err)
		}

		ret, err := a.Construct(msg, &p)
		if err != nil {
			return nil, err
		}

		return ret.MarshalRLP(), nil

	case MethodInvokeContract:
		var p InvokeParams
		if err := p.UnmarshalRLP(params); err != nil {
			return nil, decodeErr(err)
		}

		ret, err := a.Invoke(msg, &p)
		if err != nil {
			return nil, err
		}

		return encodeBytes(ret), nil

	case MethodGetBytecode:
		ret, err := a.GetBytecode()
		if err != nil {
			return nil, err
		}

		return encodeBytes(ret), nil

	case MethodGetStorageAt:
		var p GetStorageAtParams
		if err := p.UnmarshalRLP(params); err != nil {
			return nil, decodeErr(err)
		}

		ret, err := a.GetStorageAt(&p)
		if err != nil {
			return nil, err
		}

		return encodeBytes(ret.Bytes()), nil

	default:
		err := newError(ExitUnhandledMessage, fmt.Errorf("unknown method %d", method))
		a.observe(method, err)

		return nil, err
	}
}

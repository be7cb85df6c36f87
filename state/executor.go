package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/address"
	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/crypto"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/state/runtime/evm"
	"github.com/0xPolygon/actor-evm/state/runtime/tracer"
	"github.com/0xPolygon/actor-evm/types"
)

// ErrStateUnavailable is the fault of an invocation that could not read the persisted state
var ErrStateUnavailable = errors.New("state unavailable")

// GetHashByNumber returns the hash function of a block number
type GetHashByNumber = func(i int64) types.Hash

// Executor runs invocations against the persisted state
type Executor struct {
	logger hclog.Logger
	params *chain.Params
	state  *State

	runtime *evm.EVM
	evmOpts []evm.Option
	tracer  tracer.Tracer

	translator *address.Translator

	actorsLock sync.RWMutex
	actors     map[address.NativeAddress]runtime.NativeActor

	// held by the open transition
	txnLock sync.Mutex

	GetHash GetHashByNumber
}

type Option func(*Executor)

// WithTracer observes the invocations and every call they make
func WithTracer(t tracer.Tracer) Option {
	return func(e *Executor) {
		e.tracer = t
		e.evmOpts = append(e.evmOpts, evm.WithTracer(t))
	}
}

// WithPrecompiles routes calls to the given runtime before looking for code
func WithPrecompiles(p runtime.Runtime) Option {
	return func(e *Executor) {
		e.evmOpts = append(e.evmOpts, evm.WithPrecompiles(p))
	}
}

// WithAnalysisCacheSize sets the size of the jumpdest analysis cache
func WithAnalysisCacheSize(size int) Option {
	return func(e *Executor) {
		e.evmOpts = append(e.evmOpts, evm.WithAnalysisCacheSize(size))
	}
}

// NewExecutor creates a new executor
func NewExecutor(params *chain.Params, s *State, logger hclog.Logger, opts ...Option) (*Executor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	e := &Executor{
		logger:     logger.Named("executor"),
		params:     params,
		state:      s,
		translator: address.NewTranslator(),
		actors:     map[address.NativeAddress]runtime.NativeActor{},
	}

	for _, opt := range opts {
		opt(e)
	}

	rt, err := evm.NewEVM(append([]evm.Option{evm.WithLogger(logger)}, e.evmOpts...)...)
	if err != nil {
		return nil, err
	}

	e.runtime = rt

	return e, nil
}

// Translator returns the address translator of the executor
func (e *Executor) Translator() *address.Translator {
	return e.translator
}

// State returns the persisted state
func (e *Executor) State() *State {
	return e.state
}

// RegisterActor makes a host actor callable from bytecode and returns the
// address bytecode reaches it at
func (e *Executor) RegisterActor(a address.NativeAddress, actor runtime.NativeActor) types.Address {
	addr := e.translator.ToEVM(a)

	e.actorsLock.Lock()
	e.actors[a] = actor
	e.actorsLock.Unlock()

	e.logger.Debug("actor registered", "native", a, "address", addr)

	return addr
}

func (e *Executor) getActor(addr types.Address) (runtime.NativeActor, bool) {
	a, ok := e.translator.ToNative(addr)
	if !ok {
		return nil, false
	}

	e.actorsLock.RLock()
	defer e.actorsLock.RUnlock()

	actor, ok := e.actors[a]

	return actor, ok
}

// BeginTxn starts a transition with its own journal over the persisted state.
// Transitions of an executor run one at a time: BeginTxn blocks until the
// previous one is committed or discarded.
func (e *Executor) BeginTxn(ctx runtime.TxContext) *Transition {
	e.txnLock.Lock()

	ctx.ChainID = e.params.ChainID

	return &Transition{
		logger:   e.logger,
		ctx:      ctx,
		executor: e,
		txn:      NewTxn(e.state),
	}
}

var _ runtime.Host = &Transition{}

// Transition is a sequence of invocations sharing a journal. It is the host of
// every frame they run and it is not safe for concurrent use.
type Transition struct {
	logger   hclog.Logger
	ctx      runtime.TxContext
	executor *Executor
	txn      *Txn

	release sync.Once
}

// Txn returns the journal of the transition
func (t *Transition) Txn() *Txn {
	return t.txn
}

// Call runs the code at to with input
func (t *Transition) Call(caller, to types.Address, value *uint256.Int, input []byte, gas uint64) *runtime.ExecutionResult {
	c := runtime.NewContractCall(0, caller, caller, to, value, gas, nil, input)

	return t.apply(c)
}

// Create runs code as init code of a new contract at the address derived from the caller's nonce
func (t *Transition) Create(caller types.Address, code []byte, value *uint256.Int, gas uint64) *runtime.ExecutionResult {
	return t.CreateAt(caller, crypto.CreateAddress(caller, t.txn.GetNonce(caller)), code, value, gas)
}

// CreateAt runs code as init code of a new contract at addr
func (t *Transition) CreateAt(caller, addr types.Address, code []byte, value *uint256.Int, gas uint64) *runtime.ExecutionResult {
	c := runtime.NewContractCreation(0, caller, caller, addr, value, gas, code)

	return t.apply(c)
}

func (t *Transition) apply(c *runtime.Contract) *runtime.ExecutionResult {
	if t.executor.tracer != nil {
		t.executor.tracer.TxStart(c.Gas)
	}

	snapshot := t.txn.Snapshot()

	res := t.executor.runtime.Run(c, t, t.executor.params)

	// a backend failure invalidates whatever the frames observed
	if err := t.txn.Err(); err != nil {
		res = runtime.NewFault(fmt.Errorf("%w: %w", ErrStateUnavailable, err))
	}

	if res.Failed() {
		t.txn.RevertToSnapshot(snapshot)

		t.logger.Debug("invocation failed", "type", c.Type, "address", c.Address, "err", res.Err)
	} else {
		t.txn.CommitSnapshot(snapshot)
	}

	res.UpdateGasUsed(c.Gas, t.txn.GetRefund())
	t.txn.ResetRefund()

	metrics.AddSample([]string{"evm", "gas_used"}, float32(res.GasUsed))

	if t.executor.tracer != nil {
		t.executor.tracer.TxEnd(res.GasLeft)
	}

	return res
}

// Commit flushes the changes of the transition to the persisted state and
// closes it
func (t *Transition) Commit() error {
	defer t.Discard()

	if err := t.txn.Err(); err != nil {
		return err
	}

	return t.executor.state.Commit(t.txn.Commit())
}

// Discard closes the transition without persisting it. It is a no-op after
// Commit.
func (t *Transition) Discard() {
	t.release.Do(t.executor.txnLock.Unlock)
}

// Logs returns the logs emitted by the committed invocations
func (t *Transition) Logs() []*types.Log {
	return t.txn.Logs()
}

// runtime.Host

func (t *Transition) AccountExists(addr types.Address) bool {
	return t.txn.Exist(addr)
}

func (t *Transition) Empty(addr types.Address) bool {
	return t.txn.Empty(addr)
}

func (t *Transition) CreateAccount(addr types.Address) {
	t.txn.CreateAccount(addr)
}

func (t *Transition) GetBalance(addr types.Address) *uint256.Int {
	return t.txn.GetBalance(addr)
}

func (t *Transition) Transfer(from, to types.Address, amount *uint256.Int) error {
	return t.txn.Transfer(from, to, amount)
}

func (t *Transition) GetNonce(addr types.Address) uint64 {
	return t.txn.GetNonce(addr)
}

func (t *Transition) IncrNonce(addr types.Address) {
	t.txn.IncrNonce(addr)
}

func (t *Transition) GetCode(addr types.Address) []byte {
	return t.txn.GetCode(addr)
}

func (t *Transition) GetCodeSize(addr types.Address) int {
	return t.txn.GetCodeSize(addr)
}

func (t *Transition) GetCodeHash(addr types.Address) types.Hash {
	return t.txn.GetCodeHash(addr)
}

func (t *Transition) SetCode(addr types.Address, code []byte) {
	t.txn.SetCode(addr, code)
}

func (t *Transition) GetStorage(addr types.Address, key types.Hash) types.Hash {
	return t.txn.GetState(addr, key)
}

func (t *Transition) GetCommittedStorage(addr types.Address, key types.Hash) types.Hash {
	return t.txn.GetCommittedState(addr, key)
}

func (t *Transition) SetStorage(addr types.Address, key types.Hash, value types.Hash) runtime.StorageStatus {
	return t.txn.SetStorage(addr, key, value)
}

func (t *Transition) AddRefund(gas uint64) {
	t.txn.AddRefund(gas)
}

func (t *Transition) SubRefund(gas uint64) {
	t.txn.SubRefund(gas)
}

func (t *Transition) GetRefund() uint64 {
	return t.txn.GetRefund()
}

// Selfdestruct moves the balance of addr to the beneficiary and marks addr for deletion
func (t *Transition) Selfdestruct(addr types.Address, beneficiary types.Address) bool {
	if t.txn.HasSuicided(addr) {
		return false
	}

	t.txn.AddBalance(beneficiary, t.txn.GetBalance(addr))

	return t.txn.Suicide(addr)
}

func (t *Transition) HasSuicided(addr types.Address) bool {
	return t.txn.HasSuicided(addr)
}

func (t *Transition) EmitLog(addr types.Address, topics []types.Hash, data []byte) {
	t.txn.AddLog(&types.Log{
		Address: addr,
		Topics:  append([]types.Hash{}, topics...),
		Data:    append([]byte{}, data...),
	})
}

func (t *Transition) GetTxContext() runtime.TxContext {
	return t.ctx
}

func (t *Transition) GetBlockHash(number int64) types.Hash {
	if t.executor.GetHash == nil {
		return types.ZeroHash
	}

	return t.executor.GetHash(number)
}

func (t *Transition) Snapshot() int {
	return t.txn.Snapshot()
}

func (t *Transition) RevertToSnapshot(id int) {
	t.txn.RevertToSnapshot(id)
}

func (t *Transition) CommitSnapshot(id int) {
	t.txn.CommitSnapshot(id)
}

func (t *Transition) GetNativeActor(addr types.Address) (runtime.NativeActor, bool) {
	return t.executor.getActor(addr)
}

func (t *Transition) RegisterContract(addr types.Address) {
	t.executor.translator.RegisterContract(addr)
}

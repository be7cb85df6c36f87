package evm

import (
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"

	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/crypto"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/state/runtime/tracer"
	"github.com/0xPolygon/actor-evm/types"
)

const defaultAnalysisCacheSize = 1024

var _ runtime.Runtime = &EVM{}

// EVM is the ethereum virtual machine
type EVM struct {
	logger      hclog.Logger
	tracer      tracer.Tracer
	precompiles runtime.Runtime

	// jumpdest analyses keyed by code hash
	analysis          *lru.Cache
	analysisCacheSize int
}

type Option func(*EVM)

func WithLogger(logger hclog.Logger) Option {
	return func(e *EVM) {
		e.logger = logger
	}
}

// WithTracer observes every call and instruction
func WithTracer(t tracer.Tracer) Option {
	return func(e *EVM) {
		e.tracer = t
	}
}

// WithPrecompiles routes calls the given runtime can run to it
func WithPrecompiles(p runtime.Runtime) Option {
	return func(e *EVM) {
		e.precompiles = p
	}
}

// WithAnalysisCacheSize sets the number of jumpdest analyses kept, zero disables the cache
func WithAnalysisCacheSize(size int) Option {
	return func(e *EVM) {
		e.analysisCacheSize = size
	}
}

// NewEVM creates a new EVM
func NewEVM(opts ...Option) (*EVM, error) {
	e := &EVM{
		logger:            hclog.NewNullLogger(),
		analysisCacheSize: defaultAnalysisCacheSize,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.Named("evm")

	if e.analysisCacheSize > 0 {
		cache, err := lru.New(e.analysisCacheSize)
		if err != nil {
			return nil, err
		}

		e.analysis = cache
	}

	return e, nil
}

// CanRun implements the runtime interface
func (e *EVM) CanRun(*runtime.Contract, runtime.Host, *chain.Params) bool {
	return true
}

// Name implements the runtime interface
func (e *EVM) Name() string {
	return "evm"
}

// Run executes c and every call it makes. For a call the code is resolved from
// the host, for a create c.Code is the init code.
func (e *EVM) Run(c *runtime.Contract, host runtime.Host, params *chain.Params) *runtime.ExecutionResult {
	d := &dispatcher{
		evm:    e,
		host:   host,
		params: params,
	}

	return d.run(c)
}

func (e *EVM) analyze(hash types.Hash, code []byte) *bitmap {
	if e.analysis == nil || hash == types.ZeroHash || hash == crypto.EmptyCodeHash {
		return newBitmap(code)
	}

	if v, ok := e.analysis.Get(hash); ok {
		if bm, ok := v.(*bitmap); ok {
			return bm
		}
	}

	bm := newBitmap(code)
	e.analysis.Add(hash, bm)

	return bm
}

func (e *EVM) captureCallStart(c *runtime.Contract) {
	if e.tracer == nil {
		return
	}

	e.tracer.CallStart(&tracer.Frame{
		Depth: c.Depth + 1,
		Type:  c.Type,
		From:  c.Caller,
		To:    c.Address,
		Gas:   c.Gas,
		Value: c.Value,
		Input: c.Input,
	})
}

func (e *EVM) captureCallEnd(c *runtime.Contract, res *runtime.ExecutionResult) {
	if e.tracer == nil {
		return
	}

	e.tracer.CallEnd(&tracer.FrameResult{
		Depth:   c.Depth + 1,
		Output:  res.ReturnValue,
		GasUsed: c.Gas - res.GasLeft,
		Err:     res.Err,
	})
}

package actor

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/actor-evm/address"
	"github.com/0xPolygon/actor-evm/config"
	"github.com/0xPolygon/actor-evm/state"
	"github.com/0xPolygon/actor-evm/state/runtime/precompiled"
	"github.com/0xPolygon/actor-evm/storage"
)

// Runtime hosts the actors sharing one persisted state
type Runtime struct {
	logger   hclog.Logger
	executor *state.Executor
	storage  storage.Storage
	gasLimit uint64

	lock   sync.Mutex
	actors map[address.NativeAddress]*Actor
}

// NewRuntime opens the configured storage and builds the executor over it
func NewRuntime(cfg *config.Config, logger hclog.Logger, opts ...state.Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	db, err := cfg.NewStorage(logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	opts = append([]state.Option{state.WithAnalysisCacheSize(cfg.EVM.AnalysisCacheSize)}, opts...)

	if cfg.EVM.Precompiles {
		opts = append(opts, state.WithPrecompiles(precompiled.NewPrecompiled()))
	}

	executor, err := state.NewExecutor(cfg.Params(), state.NewState(db, logger), logger, opts...)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	logger.Info("runtime started",
		"backend", cfg.Storage.Backend,
		"chain_id", cfg.EVM.ChainID,
		"precompiles", cfg.EVM.Precompiles,
	)

	return &Runtime{
		logger:   logger,
		executor: executor,
		storage:  db,
		gasLimit: cfg.EVM.GasLimit,
		actors:   map[address.NativeAddress]*Actor{},
	}, nil
}

// Executor returns the executor of the runtime
func (r *Runtime) Executor() *state.Executor {
	return r.executor
}

// Actor returns the actor at a, the same instance on every call
func (r *Runtime) Actor(a address.NativeAddress) *Actor {
	r.lock.Lock()
	defer r.lock.Unlock()

	if act, ok := r.actors[a]; ok {
		return act
	}

	opts := []Option{WithLogger(r.logger)}
	if r.gasLimit != 0 {
		opts = append(opts, WithGasLimit(r.gasLimit))
	}

	act := New(r.executor, a, opts...)
	r.actors[a] = act

	return act
}

// Close releases the storage
func (r *Runtime) Close() error {
	return r.storage.Close()
}

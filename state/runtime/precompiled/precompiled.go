package precompiled

import (
	"encoding/binary"

	"github.com/armon/go-metrics"

	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/types"
)

var _ runtime.Runtime = &Precompiled{}

type contract interface {
	gas(input []byte) uint64
	run(input []byte) ([]byte, error)
}

// Precompiled is the runtime for the precompiled contracts at 0x01..0x08
type Precompiled struct {
	contracts map[types.Address]contract
}

// NewPrecompiled creates a new runtime for the precompiled contracts
func NewPrecompiled() *Precompiled {
	p := &Precompiled{}
	p.setupContracts()

	return p
}

func (p *Precompiled) setupContracts() {
	p.register("1", &ecrecover{})
	p.register("2", &sha256h{})
	p.register("3", &ripemd160h{})
	p.register("4", &identity{})
	p.register("5", &modExp{})
	p.register("6", &bn256Add{})
	p.register("7", &bn256Mul{})
	p.register("8", &bn256Pairing{})
}

func (p *Precompiled) register(addrStr string, b contract) {
	if len(p.contracts) == 0 {
		p.contracts = map[types.Address]contract{}
	}

	p.contracts[types.StringToAddress(addrStr)] = b
}

// Addresses returns the addresses served by the runtime
func (p *Precompiled) Addresses() []types.Address {
	addrs := make([]types.Address, 0, len(p.contracts))
	for addr := range p.contracts {
		addrs = append(addrs, addr)
	}

	return addrs
}

// CanRun implements the runtime interface
func (p *Precompiled) CanRun(c *runtime.Contract, _ runtime.Host, _ *chain.Params) bool {
	_, ok := p.contracts[c.CodeAddress]

	return ok
}

// Name implements the runtime interface
func (p *Precompiled) Name() string {
	return "precompiled"
}

// Run runs an execution
func (p *Precompiled) Run(c *runtime.Contract, _ runtime.Host, _ *chain.Params) *runtime.ExecutionResult {
	contract := p.contracts[c.CodeAddress]
	gasCost := contract.gas(c.Input)

	metrics.IncrCounterWithLabels([]string{"precompiled", "calls"}, 1, []metrics.Label{
		{Name: "address", Value: c.CodeAddress.String()},
	})

	// In the case of not enough gas for precompiled execution we return ErrOutOfGas
	if c.Gas < gasCost {
		return runtime.NewFault(runtime.ErrOutOfGas)
	}

	returnValue, err := contract.run(c.Input)
	if err != nil {
		return runtime.NewFault(err)
	}

	return &runtime.ExecutionResult{
		Outcome:     runtime.OutcomeReturn,
		ReturnValue: returnValue,
		GasLeft:     c.Gas - gasCost,
	}
}

func leftPad(buf []byte, n int) []byte {
	l := len(buf)
	if l > n {
		return buf
	}

	tmp := make([]byte, n)
	copy(tmp[n-l:], buf)

	return tmp
}

// get returns the first size bytes of input, zero padded, and the rest
func get(input []byte, size int) ([]byte, []byte) {
	buf := make([]byte, size)

	n := copy(buf, input)

	return buf, input[n:]
}

func getUint64(input []byte) (uint64, []byte) {
	buf, input := get(input, 32)

	return binary.BigEndian.Uint64(buf[24:32]), input
}

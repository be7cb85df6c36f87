package evm

import (
	"testing"

	go_fuzz_utils "github.com/trailofbits/go-fuzz-utils"

	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/types"
)

func FuzzTestEVM(f *testing.F) {
	seed := NewProgram().
		PushUint(1).PushUint(2).Op(ADD).
		PushUint(0).Op(MSTORE8).
		PushUint(1).PushUint(0).Op(RETURN).
		Bytes()

	f.Add(seed)

	params := chain.DefaultParams()

	evm, err := NewEVM()
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input []byte) {
		tp, err := go_fuzz_utils.NewTypeProvider(input)
		if err != nil {
			return
		}

		err = tp.SetParamsSliceBounds(1, 4*1024)
		if err != nil {
			return
		}

		refund, err := tp.GetUint64()
		if err != nil {
			return
		}

		gas, err := tp.GetUint32()
		if err != nil {
			return
		}

		code, err := tp.GetBytes()
		if err != nil {
			return
		}

		host := newMockHost()
		host.refund = refund
		host.setCode(addr2, code)

		contract := runtime.NewContractCall(0, types.ZeroAddress, addr1, addr2, nil, uint64(gas), nil, nil)

		res := evm.Run(contract, host, params)
		if res.GasLeft > uint64(gas) {
			t.Fatalf("gas left %d above the limit %d", res.GasLeft, gas)
		}

		if res.Fault() && res.GasLeft != 0 {
			t.Fatalf("fault %v kept %d gas", res.Err, res.GasLeft)
		}
	})
}

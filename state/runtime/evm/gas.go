package evm

import (
	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/chain"
	"github.com/0xPolygon/actor-evm/types"
)

// Fixed gas costs
const (
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20
	GasReturn      uint64 = 0
	GasStop        uint64 = 0
	GasBlockHash   uint64 = 20
	GasSelfBalance uint64 = 5
)

// callGas returns the gas forwarded to a nested call. After the base cost is
// taken at most all but one 64th of the remaining gas can be forwarded (EIP-150);
// asking for more silently forwards the cap.
func callGas(availableGas, base uint64, callCost *uint256.Int) (uint64, bool) {
	if availableGas < base {
		return 0, false
	}

	availableGas -= base
	gas := availableGas - availableGas/64

	if !callCost.IsUint64() || gas < callCost.Uint64() {
		return gas, true
	}

	return callCost.Uint64(), true
}

// sstoreCost implements the EIP-2200 net gas metering and returns the gas to
// charge and the change of the refund counter
func sstoreCost(original, current, value types.Hash) (uint64, int64) {
	if current == value { // noop (1)
		return chain.SstoreNoopGas, 0
	}

	if original == current {
		if original == types.ZeroHash { // create slot (2.1.1)
			return chain.SstoreInitGas, 0
		}

		if value == types.ZeroHash { // delete slot (2.1.2b)
			return chain.SstoreCleanGas, int64(chain.SstoreClearRefund)
		}

		return chain.SstoreCleanGas, 0 // write existing slot (2.1.2)
	}

	var refund int64

	if original != types.ZeroHash {
		if current == types.ZeroHash { // recreate slot (2.2.1.1)
			refund -= int64(chain.SstoreClearRefund)
		} else if value == types.ZeroHash { // delete slot (2.2.1.2)
			refund += int64(chain.SstoreClearRefund)
		}
	}

	if original == value {
		if original == types.ZeroHash { // reset to original inexistent slot (2.2.2.1)
			refund += int64(chain.SstoreInitRefund)
		} else { // reset to original existing slot (2.2.2.2)
			refund += int64(chain.SstoreCleanRefund)
		}
	}

	return chain.SstoreDirtyGas, refund
}

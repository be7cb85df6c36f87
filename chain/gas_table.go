package chain

// GasTable stores the gas cost for the variable opcodes
type GasTable struct {
	ExtcodeSize     uint64 `json:"extcodeSize"`
	ExtcodeCopy     uint64 `json:"extcodeCopy"`
	ExtcodeHash     uint64 `json:"extcodeHash"`
	Balance         uint64 `json:"balance"`
	SLoad           uint64 `json:"sload"`
	Calls           uint64 `json:"calls"`
	Suicide         uint64 `json:"suicide"`
	ExpByte         uint64 `json:"expByte"`
	CreateBySuicide uint64 `json:"createBySuicide"`
}

// GasTableIstanbul contains the gas prices after EIP-1884 repricing
var GasTableIstanbul = GasTable{
	ExtcodeSize:     700,
	ExtcodeCopy:     700,
	ExtcodeHash:     700,
	Balance:         700,
	SLoad:           800,
	Calls:           700,
	Suicide:         5000,
	ExpByte:         50,
	CreateBySuicide: 25000,
}

// Net gas metering for SSTORE (EIP-2200)
const (
	SstoreSentryGas   uint64 = 2300  // minimum gas required to run SSTORE
	SstoreNoopGas     uint64 = 800   // current == new
	SstoreInitGas     uint64 = 20000 // original == current == 0, new != 0
	SstoreCleanGas    uint64 = 5000  // original == current != 0
	SstoreDirtyGas    uint64 = 800   // original != current
	SstoreClearRefund uint64 = 15000 // slot goes non-zero to zero
	SstoreInitRefund  uint64 = 19200 // reset to an original zero
	SstoreCleanRefund uint64 = 4200  // reset to an original non-zero
)

const (
	CallStipend        uint64 = 2300
	CallValueTransfer  uint64 = 9000
	CallNewAccount     uint64 = 25000
	CreateGas          uint64 = 32000
	CreateDataGas      uint64 = 200
	Keccak256Gas       uint64 = 30
	Keccak256WordGas   uint64 = 6
	CopyGas            uint64 = 3
	LogGas             uint64 = 375
	LogTopicGas        uint64 = 375
	LogDataGas         uint64 = 8
	MemoryGas          uint64 = 3
	QuadCoeffDiv       uint64 = 512
	JumpdestGas        uint64 = 1
	SelfdestructRefund uint64 = 24000
)

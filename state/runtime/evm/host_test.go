package evm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/crypto"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/types"
)

var _ runtime.Host = &mockHost{}

type mockAccount struct {
	balance  uint256.Int
	nonce    uint64
	code     []byte
	storage  map[types.Hash]types.Hash
	suicided bool
}

func (a *mockAccount) copy() *mockAccount {
	c := *a
	c.storage = make(map[types.Hash]types.Hash, len(a.storage))

	for k, v := range a.storage {
		c.storage[k] = v
	}

	return &c
}

type mockLog struct {
	addr   types.Address
	topics []types.Hash
	data   []byte
}

type mockSnapshot struct {
	accounts map[types.Address]*mockAccount
	refund   uint64
	logs     int
}

// mockHost is an in-memory host that journals by copying the accounts
type mockHost struct {
	accounts  map[types.Address]*mockAccount
	committed map[types.Address]map[types.Hash]types.Hash
	refund    uint64
	logs      []mockLog
	snapshots []mockSnapshot

	actors map[types.Address]runtime.NativeActor
	ctx    runtime.TxContext

	registered []types.Address
}

func newMockHost() *mockHost {
	return &mockHost{
		accounts:  map[types.Address]*mockAccount{},
		committed: map[types.Address]map[types.Hash]types.Hash{},
		actors:    map[types.Address]runtime.NativeActor{},
		ctx:       runtime.TxContext{ChainID: 314, Number: 10},
	}
}

func (m *mockHost) account(addr types.Address) *mockAccount {
	a, ok := m.accounts[addr]
	if !ok {
		a = &mockAccount{storage: map[types.Hash]types.Hash{}}
		m.accounts[addr] = a
	}

	return a
}

func (m *mockHost) setBalance(addr types.Address, v uint64) {
	m.account(addr).balance.SetUint64(v)
}

func (m *mockHost) setCode(addr types.Address, code []byte) {
	m.account(addr).code = code
}

func (m *mockHost) AccountExists(addr types.Address) bool {
	_, ok := m.accounts[addr]

	return ok
}

func (m *mockHost) Empty(addr types.Address) bool {
	a, ok := m.accounts[addr]
	if !ok {
		return true
	}

	return a.nonce == 0 && a.balance.IsZero() && len(a.code) == 0
}

func (m *mockHost) CreateAccount(addr types.Address) {
	m.account(addr)
}

func (m *mockHost) GetBalance(addr types.Address) *uint256.Int {
	a, ok := m.accounts[addr]
	if !ok {
		return new(uint256.Int)
	}

	return new(uint256.Int).Set(&a.balance)
}

func (m *mockHost) Transfer(from, to types.Address, amount *uint256.Int) error {
	src := m.account(from)
	if src.balance.Lt(amount) {
		return errors.New("not enough funds")
	}

	src.balance.Sub(&src.balance, amount)

	dst := m.account(to)
	dst.balance.Add(&dst.balance, amount)

	return nil
}

func (m *mockHost) GetNonce(addr types.Address) uint64 {
	if a, ok := m.accounts[addr]; ok {
		return a.nonce
	}

	return 0
}

func (m *mockHost) IncrNonce(addr types.Address) {
	m.account(addr).nonce++
}

func (m *mockHost) GetCode(addr types.Address) []byte {
	if a, ok := m.accounts[addr]; ok {
		return a.code
	}

	return nil
}

func (m *mockHost) GetCodeSize(addr types.Address) int {
	return len(m.GetCode(addr))
}

func (m *mockHost) GetCodeHash(addr types.Address) types.Hash {
	if !m.AccountExists(addr) {
		return types.ZeroHash
	}

	return crypto.Keccak256Hash(m.GetCode(addr))
}

func (m *mockHost) SetCode(addr types.Address, code []byte) {
	m.account(addr).code = code
}

func (m *mockHost) GetStorage(addr types.Address, key types.Hash) types.Hash {
	if a, ok := m.accounts[addr]; ok {
		return a.storage[key]
	}

	return types.ZeroHash
}

func (m *mockHost) GetCommittedStorage(addr types.Address, key types.Hash) types.Hash {
	return m.committed[addr][key]
}

func (m *mockHost) SetStorage(addr types.Address, key types.Hash, value types.Hash) runtime.StorageStatus {
	m.account(addr).storage[key] = value

	return runtime.StorageModified
}

func (m *mockHost) AddRefund(gas uint64) {
	m.refund += gas
}

func (m *mockHost) SubRefund(gas uint64) {
	m.refund -= gas
}

func (m *mockHost) GetRefund() uint64 {
	return m.refund
}

func (m *mockHost) Selfdestruct(addr types.Address, beneficiary types.Address) bool {
	a := m.account(addr)
	if a.suicided {
		return false
	}

	b := m.account(beneficiary)
	b.balance.Add(&b.balance, &a.balance)
	a.balance.Clear()
	a.suicided = true

	return true
}

func (m *mockHost) HasSuicided(addr types.Address) bool {
	if a, ok := m.accounts[addr]; ok {
		return a.suicided
	}

	return false
}

func (m *mockHost) EmitLog(addr types.Address, topics []types.Hash, data []byte) {
	m.logs = append(m.logs, mockLog{addr: addr, topics: topics, data: data})
}

func (m *mockHost) GetTxContext() runtime.TxContext {
	return m.ctx
}

func (m *mockHost) GetBlockHash(number int64) types.Hash {
	return types.BytesToHash(uint256.NewInt(uint64(number)).Bytes())
}

func (m *mockHost) Snapshot() int {
	accounts := make(map[types.Address]*mockAccount, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v.copy()
	}

	m.snapshots = append(m.snapshots, mockSnapshot{accounts: accounts, refund: m.refund, logs: len(m.logs)})

	return len(m.snapshots) - 1
}

func (m *mockHost) RevertToSnapshot(id int) {
	s := m.snapshots[id]

	m.accounts = s.accounts
	m.refund = s.refund
	m.logs = m.logs[:s.logs]
	m.snapshots = m.snapshots[:id]
}

func (m *mockHost) CommitSnapshot(id int) {
	m.snapshots = m.snapshots[:id]
}

func (m *mockHost) GetNativeActor(addr types.Address) (runtime.NativeActor, bool) {
	a, ok := m.actors[addr]

	return a, ok
}

func (m *mockHost) RegisterContract(addr types.Address) {
	m.registered = append(m.registered, addr)
}

type nativeFunc func(caller types.Address, value *uint256.Int, input []byte) ([]byte, error)

func (f nativeFunc) Invoke(caller types.Address, value *uint256.Int, input []byte) ([]byte, error) {
	return f(caller, value, input)
}

package state

import (
	"fmt"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/crypto"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/types"
)

var (
	// accountIndex prefixes the state objects, keyed by address
	accountIndex = []byte("a")

	// slotIndex prefixes the dirty slots, keyed by address ++ key
	slotIndex = []byte("s")

	// logIndex is the index of the logs in the trie
	logIndex = []byte("l")

	// refundIndex is the index of the refund
	refundIndex = []byte("r")
)

// Txn is a journaled view over the persisted state. Every Snapshot opens a layer
// that is either reverted or folded back into its parent.
type Txn struct {
	state     *State
	snapshots []*iradix.Tree
	txn       *iradix.Txn

	// err is the first backend failure, reads return zero values after it
	err error
}

// NewTxn creates a new state reference
func NewTxn(state *State) *Txn {
	i := iradix.New()

	return &Txn{
		state:     state,
		snapshots: []*iradix.Tree{},
		txn:       i.Txn(),
	}
}

// Err returns the first error of the persisted state
func (txn *Txn) Err() error {
	return txn.err
}

func (txn *Txn) setErr(err error) {
	if err != nil && txn.err == nil {
		txn.err = err
		txn.state.logger.Error("failed to read state", "err", err)
	}
}

// Snapshot takes a snapshot at this point in time
func (txn *Txn) Snapshot() int {
	t := txn.txn.CommitOnly()

	id := len(txn.snapshots)
	txn.snapshots = append(txn.snapshots, t)

	return id
}

// RevertToSnapshot drops every change made after the snapshot, and the snapshots opened after it
func (txn *Txn) RevertToSnapshot(id int) {
	if id >= len(txn.snapshots) {
		panic(fmt.Errorf("BUG: snapshot %d not found, %d open", id, len(txn.snapshots)))
	}

	tree := txn.snapshots[id]
	txn.txn = tree.Txn()
	txn.snapshots = txn.snapshots[:id]
}

// CommitSnapshot keeps the changes made after the snapshot and closes it
func (txn *Txn) CommitSnapshot(id int) {
	if id >= len(txn.snapshots) {
		panic(fmt.Errorf("BUG: snapshot %d not found, %d open", id, len(txn.snapshots)))
	}

	txn.snapshots = txn.snapshots[:id]
}

// stateObject is the internal representation of the account
type stateObject struct {
	account   *Account
	code      []byte
	suicide   bool
	dirtyCode bool
}

func (s *stateObject) Empty() bool {
	return s.account.Nonce == 0 && s.account.Balance.IsZero() && s.account.CodeHash == crypto.EmptyCodeHash
}

// Copy makes a copy of the state object
func (s *stateObject) Copy() *stateObject {
	ss := new(stateObject)

	ss.account = s.account.Copy()
	ss.suicide = s.suicide
	ss.dirtyCode = s.dirtyCode
	ss.code = s.code

	return ss
}

func objectKey(addr types.Address) []byte {
	return append(append([]byte{}, accountIndex...), addr.Bytes()...)
}

func slotPrefix(addr types.Address) []byte {
	k := make([]byte, 0, len(slotIndex)+types.AddressLength+types.HashLength)
	k = append(k, slotIndex...)

	return append(k, addr.Bytes()...)
}

func dirtySlotKey(addr types.Address, key types.Hash) []byte {
	return append(slotPrefix(addr), key.Bytes()...)
}

func (txn *Txn) getStateObject(addr types.Address) (*stateObject, bool) {
	val, exists := txn.txn.Get(objectKey(addr))
	if exists {
		obj, ok := val.(*stateObject)
		if !ok {
			panic("BUG: state object of unexpected type")
		}

		return obj.Copy(), true
	}

	// From the state we get the account object
	account, ok, err := txn.state.GetAccount(addr)
	if err != nil {
		txn.setErr(err)

		return nil, false
	}

	if !ok {
		return nil, false
	}

	return &stateObject{account: account}, true
}

func (txn *Txn) upsertAccount(addr types.Address, create bool, f func(object *stateObject)) {
	object, exists := txn.getStateObject(addr)
	if !exists && create {
		object = &stateObject{
			account: newAccount(),
		}
	}

	// run the callback to modify the account
	f(object)

	if object != nil {
		txn.txn.Insert(objectKey(addr), object)
	}
}

// GetAccount returns an account
func (txn *Txn) GetAccount(addr types.Address) (*Account, bool) {
	object, exists := txn.getStateObject(addr)
	if !exists {
		return nil, false
	}

	return object.account, true
}

// Exist reports whether the account is known
func (txn *Txn) Exist(addr types.Address) bool {
	_, exists := txn.getStateObject(addr)

	return exists
}

// Empty is true for unknown accounts and accounts without nonce, balance and code
func (txn *Txn) Empty(addr types.Address) bool {
	obj, exists := txn.getStateObject(addr)
	if !exists {
		return true
	}

	return obj.Empty()
}

// CreateAccount resets the account at addr keeping its balance. A previous
// incarnation's storage becomes unreachable.
func (txn *Txn) CreateAccount(addr types.Address) {
	obj := &stateObject{
		account: newAccount(),
	}

	if prev, ok := txn.getStateObject(addr); ok {
		obj.account.Balance.Set(prev.account.Balance)
		obj.account.Incarnation = prev.account.Incarnation + 1
	}

	txn.txn.Insert(objectKey(addr), obj)
	txn.txn.DeletePrefix(slotPrefix(addr))
}

// Balance

// AddBalance adds balance
func (txn *Txn) AddBalance(addr types.Address, balance *uint256.Int) {
	txn.upsertAccount(addr, true, func(object *stateObject) {
		object.account.Balance.Add(object.account.Balance, balance)
	})
}

// SubBalance reduces the balance
func (txn *Txn) SubBalance(addr types.Address, balance *uint256.Int) error {
	if balance.IsZero() {
		return nil
	}

	var err error

	txn.upsertAccount(addr, true, func(object *stateObject) {
		if object.account.Balance.Lt(balance) {
			err = runtime.ErrNotEnoughFunds

			return
		}

		object.account.Balance.Sub(object.account.Balance, balance)
	})

	return err
}

// SetBalance sets the balance
func (txn *Txn) SetBalance(addr types.Address, balance *uint256.Int) {
	txn.upsertAccount(addr, true, func(object *stateObject) {
		object.account.Balance.Set(balance)
	})
}

// GetBalance returns the balance of an address
func (txn *Txn) GetBalance(addr types.Address) *uint256.Int {
	object, exists := txn.getStateObject(addr)
	if !exists {
		return new(uint256.Int)
	}

	return object.account.Balance
}

// Transfer moves amount from one account to the other
func (txn *Txn) Transfer(from, to types.Address, amount *uint256.Int) error {
	if err := txn.SubBalance(from, amount); err != nil {
		return err
	}

	txn.AddBalance(to, amount)

	return nil
}

// Nonce

// SetNonce sets the nonce of an addr
func (txn *Txn) SetNonce(addr types.Address, nonce uint64) {
	txn.upsertAccount(addr, true, func(object *stateObject) {
		object.account.Nonce = nonce
	})
}

// IncrNonce increases the nonce of an addr by one
func (txn *Txn) IncrNonce(addr types.Address) {
	txn.upsertAccount(addr, true, func(object *stateObject) {
		object.account.Nonce++
	})
}

// GetNonce returns the nonce of an addr
func (txn *Txn) GetNonce(addr types.Address) uint64 {
	object, exists := txn.getStateObject(addr)
	if !exists {
		return 0
	}

	return object.account.Nonce
}

// Code

// SetCode sets the code for an address
func (txn *Txn) SetCode(addr types.Address, code []byte) {
	txn.upsertAccount(addr, true, func(object *stateObject) {
		object.account.CodeHash = crypto.Keccak256Hash(code)
		object.dirtyCode = true
		object.code = code
	})
}

func (txn *Txn) GetCode(addr types.Address) []byte {
	object, exists := txn.getStateObject(addr)
	if !exists {
		return nil
	}

	if object.dirtyCode {
		return object.code
	}

	code, _, err := txn.state.GetCode(object.account.CodeHash)
	txn.setErr(err)

	return code
}

func (txn *Txn) GetCodeSize(addr types.Address) int {
	return len(txn.GetCode(addr))
}

func (txn *Txn) GetCodeHash(addr types.Address) types.Hash {
	object, exists := txn.getStateObject(addr)
	if !exists {
		return types.ZeroHash
	}

	return object.account.CodeHash
}

// State

// SetState change the state of an address
func (txn *Txn) SetState(addr types.Address, key, value types.Hash) {
	// the slot belongs to the account object, make sure it is tracked
	txn.upsertAccount(addr, true, func(object *stateObject) {})
	txn.txn.Insert(dirtySlotKey(addr, key), value)
}

// GetState returns the state of the address at a given hash
func (txn *Txn) GetState(addr types.Address, key types.Hash) types.Hash {
	if val, ok := txn.txn.Get(dirtySlotKey(addr, key)); ok {
		hash, ok := val.(types.Hash)
		if !ok {
			panic("BUG: slot of unexpected type")
		}

		return hash
	}

	return txn.GetCommittedState(addr, key)
}

// GetCommittedState returns the persisted state of the current incarnation of addr
func (txn *Txn) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	obj, ok := txn.getStateObject(addr)
	if !ok {
		return types.ZeroHash
	}

	val, err := txn.state.GetStorage(addr, obj.account.Incarnation, key)
	if err != nil {
		txn.setErr(err)

		return types.ZeroHash
	}

	return val
}

// SetStorage sets the slot and classifies the write against the committed value
func (txn *Txn) SetStorage(addr types.Address, key, value types.Hash) runtime.StorageStatus {
	current := txn.GetState(addr, key)
	if current == value {
		return runtime.StorageUnchanged
	}

	original := txn.GetCommittedState(addr, key)

	txn.SetState(addr, key, value)

	if original != current {
		return runtime.StorageModifiedAgain
	}

	if original == types.ZeroHash {
		return runtime.StorageAdded
	}

	if value == types.ZeroHash {
		return runtime.StorageDeleted
	}

	return runtime.StorageModified
}

// Suicide

// Suicide marks the given account as suicided and clears its balance
func (txn *Txn) Suicide(addr types.Address) bool {
	var suicided bool

	txn.upsertAccount(addr, false, func(object *stateObject) {
		if object == nil || object.suicide {
			suicided = false
		} else {
			suicided = true
			object.suicide = true
			object.account.Balance = new(uint256.Int)
		}
	})

	return suicided
}

// HasSuicided returns true if the account suicided
func (txn *Txn) HasSuicided(addr types.Address) bool {
	object, exists := txn.getStateObject(addr)

	return exists && object.suicide
}

// Refund

func (txn *Txn) AddRefund(gas uint64) {
	refund := txn.GetRefund() + gas
	txn.txn.Insert(refundIndex, refund)
}

func (txn *Txn) SubRefund(gas uint64) {
	refund := txn.GetRefund() - gas
	txn.txn.Insert(refundIndex, refund)
}

func (txn *Txn) GetRefund() uint64 {
	data, exists := txn.txn.Get(refundIndex)
	if !exists {
		return 0
	}

	return data.(uint64) //nolint:forcetypeassert
}

// ResetRefund clears the refund counter between invocations
func (txn *Txn) ResetRefund() {
	txn.txn.Delete(refundIndex)
}

// Logs

// AddLog adds a new log
func (txn *Txn) AddLog(log *types.Log) {
	var logs []*types.Log

	data, exists := txn.txn.Get(logIndex)
	if exists {
		logs = data.([]*types.Log) //nolint:forcetypeassert
	}

	// copy so earlier snapshots keep their own slice
	logs = append(append(make([]*types.Log, 0, len(logs)+1), logs...), log)
	txn.txn.Insert(logIndex, logs)
}

func (txn *Txn) Logs() []*types.Log {
	data, exists := txn.txn.Get(logIndex)
	if !exists {
		return nil
	}

	return data.([]*types.Log) //nolint:forcetypeassert
}

// Commit returns the objects modified by the transaction. Open snapshots are discarded.
func (txn *Txn) Commit() []*Object {
	txn.snapshots = txn.snapshots[:0]

	x := txn.txn.Commit()

	objs := []*Object{}

	x.Root().WalkPrefix(accountIndex, func(k []byte, v interface{}) bool {
		a, ok := v.(*stateObject)
		if !ok {
			panic("BUG: state object of unexpected type")
		}

		obj := &Object{
			Address:   types.BytesToAddress(k[len(accountIndex):]),
			Account:   a.account.Copy(),
			Deleted:   a.suicide,
			DirtyCode: a.dirtyCode,
			Code:      a.code,
		}

		if !obj.Deleted {
			prefix := slotPrefix(obj.Address)

			x.Root().WalkPrefix(prefix, func(k []byte, v interface{}) bool {
				val := v.(types.Hash) //nolint:forcetypeassert

				obj.Storage = append(obj.Storage, &StorageObject{
					Key:     types.BytesToHash(k[len(prefix):]),
					Val:     val,
					Deleted: val == types.ZeroHash,
				})

				return false
			})
		}

		objs = append(objs, obj)

		return false
	})

	// the next invocation starts from the persisted state
	txn.txn = iradix.New().Txn()

	return objs
}

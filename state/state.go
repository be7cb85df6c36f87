package state

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/holiman/uint256"
	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/actor-evm/crypto"
	"github.com/0xPolygon/actor-evm/storage"
	"github.com/0xPolygon/actor-evm/types"
)

// Account is the account reference in the persisted state
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash types.Hash

	// Incarnation is bumped when the account is destroyed, the slots of
	// earlier incarnations are unreachable
	Incarnation uint64
}

func newAccount() *Account {
	return &Account{
		Balance:  new(uint256.Int),
		CodeHash: crypto.EmptyCodeHash,
	}
}

func (a *Account) String() string {
	return fmt.Sprintf("%d %s", a.Nonce, a.Balance.Dec())
}

func (a *Account) Copy() *Account {
	aa := new(Account)

	aa.Balance = new(uint256.Int).Set(a.Balance)
	aa.Nonce = a.Nonce
	aa.CodeHash = a.CodeHash
	aa.Incarnation = a.Incarnation

	return aa
}

func (a *Account) MarshalWith(ar *fastrlp.Arena) *fastrlp.Value {
	v := ar.NewArray()
	v.Set(ar.NewUint(a.Nonce))
	v.Set(ar.NewCopyBytes(a.Balance.Bytes()))
	v.Set(ar.NewCopyBytes(a.CodeHash[:]))
	v.Set(ar.NewUint(a.Incarnation))

	return v
}

var accountArenaPool fastrlp.ArenaPool

func (a *Account) MarshalRLP() []byte {
	ar := accountArenaPool.Get()
	defer accountArenaPool.Put(ar)

	return a.MarshalWith(ar).MarshalTo(nil)
}

func (a *Account) UnmarshalRLP(b []byte) error {
	p := fastrlp.DefaultParserPool.Get()
	defer fastrlp.DefaultParserPool.Put(p)

	v, err := p.Parse(b)
	if err != nil {
		return err
	}

	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 4 {
		return fmt.Errorf("incorrect number of account elements, expected 4 but found %d", len(elems))
	}

	if a.Nonce, err = elems[0].GetUint64(); err != nil {
		return err
	}

	balance, err := elems[1].Bytes()
	if err != nil {
		return err
	}

	if len(balance) > 32 {
		return fmt.Errorf("balance of %d bytes", len(balance))
	}

	a.Balance = new(uint256.Int).SetBytes(balance)

	if err = elems[2].GetHash(a.CodeHash[:]); err != nil {
		return err
	}

	a.Incarnation, err = elems[3].GetUint64()

	return err
}

// Object is an account modified by a transition, ready to be flushed
type Object struct {
	Address   types.Address
	Account   *Account
	Deleted   bool
	DirtyCode bool
	Code      []byte
	Storage   []*StorageObject
}

// StorageObject is a slot modified by a transition
type StorageObject struct {
	Key     types.Hash
	Val     types.Hash
	Deleted bool
}

// State reads the persisted accounts, slots and code and flushes the objects
// of committed transitions
type State struct {
	storage storage.Storage
	logger  hclog.Logger
}

func NewState(s storage.Storage, logger hclog.Logger) *State {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &State{
		storage: s,
		logger:  logger.Named("state"),
	}
}

func accountKey(addr types.Address) []byte {
	return storage.Key(storage.ACCOUNT, addr.Bytes())
}

func slotKey(addr types.Address, incarnation uint64, key types.Hash) []byte {
	var inc [8]byte
	binary.BigEndian.PutUint64(inc[:], incarnation)

	return storage.Key(storage.SLOT, addr.Bytes(), inc[:], key.Bytes())
}

func codeKey(hash types.Hash) []byte {
	return storage.Key(storage.CODE, hash.Bytes())
}

// GetAccount returns the persisted account of addr
func (s *State) GetAccount(addr types.Address) (*Account, bool, error) {
	data, ok, err := s.storage.Get(accountKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}

	account := &Account{}
	if err := account.UnmarshalRLP(data); err != nil {
		return nil, false, fmt.Errorf("account %s: %w", addr, err)
	}

	return account, true, nil
}

// GetStorage returns the persisted slot of an incarnation of addr, zero if absent
func (s *State) GetStorage(addr types.Address, incarnation uint64, key types.Hash) (types.Hash, error) {
	data, ok, err := s.storage.Get(slotKey(addr, incarnation, key))
	if err != nil || !ok {
		return types.ZeroHash, err
	}

	return types.BytesToHash(data), nil
}

// GetCode returns the code with the given hash
func (s *State) GetCode(hash types.Hash) ([]byte, bool, error) {
	if hash == crypto.EmptyCodeHash {
		return nil, false, nil
	}

	return s.storage.Get(codeKey(hash))
}

// Commit writes the objects in a single batch
func (s *State) Commit(objs []*Object) error {
	batch := s.storage.NewBatch()

	for _, obj := range objs {
		if obj.Deleted {
			// keep a tombstone so a later account at the address starts with fresh slots
			tombstone := newAccount()
			tombstone.Incarnation = obj.Account.Incarnation + 1

			batch.Put(accountKey(obj.Address), tombstone.MarshalRLP())

			continue
		}

		batch.Put(accountKey(obj.Address), obj.Account.MarshalRLP())

		if obj.DirtyCode {
			batch.Put(codeKey(obj.Account.CodeHash), obj.Code)
		}

		for _, slot := range obj.Storage {
			if slot.Deleted {
				batch.Delete(slotKey(obj.Address, obj.Account.Incarnation, slot.Key))
			} else {
				batch.Put(slotKey(obj.Address, obj.Account.Incarnation, slot.Key), slot.Val.Bytes())
			}
		}
	}

	if err := batch.Write(); err != nil {
		s.logger.Error("failed to commit state", "objects", len(objs), "err", err)

		return err
	}

	s.logger.Debug("state committed", "objects", len(objs))

	return nil
}

package address

import (
	"sync"

	"github.com/0xPolygon/actor-evm/types"
)

// Translator maps host addresses into the 160-bit space used by bytecode and back.
// ToEVM is total. ToNative only resolves id masked addresses and addresses that were
// produced by ToEVM or registered.
type Translator struct {
	lock    sync.RWMutex
	reverse map[types.Address]NativeAddress
}

func NewTranslator() *Translator {
	return &Translator{
		reverse: map[types.Address]NativeAddress{},
	}
}

// ToEVM converts a native address to its EVM form and records the reverse mapping
func (t *Translator) ToEVM(a NativeAddress) types.Address {
	if id, err := a.ID(); err == nil {
		return IDToEVM(id)
	}

	var addr types.Address

	if ns, sub, err := a.DelegatedParts(); err == nil && ns == EAMNamespace && len(sub) == types.AddressLength {
		addr = types.BytesToAddress(sub)
	} else {
		addr = placeholder(a)
	}

	t.Register(addr, a)

	return addr
}

// ToNative resolves an EVM address to the host address it stands for
func (t *Translator) ToNative(addr types.Address) (NativeAddress, bool) {
	if id, ok := EVMToID(addr); ok {
		return NewIDAddress(id), true
	}

	t.lock.RLock()
	defer t.lock.RUnlock()

	a, ok := t.reverse[addr]

	return a, ok
}

// Register records the native address behind an EVM address
func (t *Translator) Register(addr types.Address, a NativeAddress) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.reverse[addr] = a
}

// RegisterContract records a bytecode contract under its delegated address
func (t *Translator) RegisterContract(addr types.Address) NativeAddress {
	a := NewDelegatedAddress(EAMNamespace, addr.Bytes())
	t.Register(addr, a)

	return a
}

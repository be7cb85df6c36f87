package address

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/0xPolygon/actor-evm/helper/hex"
	"github.com/0xPolygon/actor-evm/helper/keccak"
	"github.com/0xPolygon/actor-evm/types"
)

// Protocol is the first byte of a native address and selects how the payload is read
type Protocol byte

const (
	ID Protocol = iota
	SECP256K1
	Actor
	BLS
	Delegated
)

func (p Protocol) String() string {
	switch p {
	case ID:
		return "id"
	case SECP256K1:
		return "secp256k1"
	case Actor:
		return "actor"
	case BLS:
		return "bls"
	case Delegated:
		return "delegated"
	default:
		return "unknown(" + strconv.Itoa(int(p)) + ")"
	}
}

// EAMNamespace is the delegated namespace of addresses assigned to bytecode contracts
const EAMNamespace uint64 = 10

var (
	ErrUnknownProtocol = errors.New("unknown address protocol")
	ErrNotID           = errors.New("not an id address")
	ErrInvalidPayload  = errors.New("invalid address payload")
)

// NativeAddress is an address of the host chain. It is comparable and usable as a map key.
type NativeAddress struct {
	protocol Protocol
	payload  string
}

// NewIDAddress returns the native address of an actor id
func NewIDAddress(id uint64) NativeAddress {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, id)

	return NativeAddress{protocol: ID, payload: string(buf[:n])}
}

// NewDelegatedAddress returns an address managed by the actor with the given namespace id
func NewDelegatedAddress(namespace uint64, sub []byte) NativeAddress {
	buf := make([]byte, binary.MaxVarintLen64, binary.MaxVarintLen64+len(sub))
	n := binary.PutUvarint(buf, namespace)

	return NativeAddress{protocol: Delegated, payload: string(append(buf[:n], sub...))}
}

// NewAddress builds an address from its protocol and raw payload
func NewAddress(protocol Protocol, payload []byte) (NativeAddress, error) {
	if protocol > Delegated {
		return NativeAddress{}, fmt.Errorf("%w: %d", ErrUnknownProtocol, protocol)
	}

	a := NativeAddress{protocol: protocol, payload: string(payload)}

	switch protocol {
	case ID:
		if _, err := a.ID(); err != nil {
			return NativeAddress{}, err
		}
	case Delegated:
		if _, _, err := a.DelegatedParts(); err != nil {
			return NativeAddress{}, err
		}
	}

	return a, nil
}

// FromBytes decodes protocol ++ payload
func FromBytes(b []byte) (NativeAddress, error) {
	if len(b) == 0 {
		return NativeAddress{}, ErrInvalidPayload
	}

	return NewAddress(Protocol(b[0]), b[1:])
}

func (a NativeAddress) Protocol() Protocol {
	return a.protocol
}

func (a NativeAddress) Payload() []byte {
	return []byte(a.payload)
}

// Bytes returns protocol ++ payload
func (a NativeAddress) Bytes() []byte {
	return append([]byte{byte(a.protocol)}, a.payload...)
}

// ID returns the actor id of an ID address
func (a NativeAddress) ID() (uint64, error) {
	if a.protocol != ID {
		return 0, ErrNotID
	}

	id, n := binary.Uvarint([]byte(a.payload))
	if n <= 0 || n != len(a.payload) {
		return 0, ErrInvalidPayload
	}

	return id, nil
}

// DelegatedParts splits a delegated address into namespace and sub address
func (a NativeAddress) DelegatedParts() (uint64, []byte, error) {
	if a.protocol != Delegated {
		return 0, nil, ErrInvalidPayload
	}

	ns, n := binary.Uvarint([]byte(a.payload))
	if n <= 0 {
		return 0, nil, ErrInvalidPayload
	}

	return ns, []byte(a.payload[n:]), nil
}

func (a NativeAddress) String() string {
	if id, err := a.ID(); err == nil {
		return "f0" + strconv.FormatUint(id, 10)
	}

	return "f" + strconv.Itoa(int(a.protocol)) + hex.EncodeToHex(a.Payload())[2:]
}

// idPrefix marks an EVM address that embeds a native actor id in its last 8 bytes
var idPrefix = [12]byte{0xff}

// IDToEVM returns 0xff ++ 0x00*11 ++ BE64(id)
func IDToEVM(id uint64) types.Address {
	var addr types.Address

	copy(addr[:12], idPrefix[:])
	binary.BigEndian.PutUint64(addr[12:], id)

	return addr
}

// EVMToID returns the actor id embedded in an id masked EVM address
func EVMToID(addr types.Address) (uint64, bool) {
	if [12]byte(addr[:12]) != idPrefix {
		return 0, false
	}

	return binary.BigEndian.Uint64(addr[12:]), true
}

// placeholder derives a stable EVM address for a native address with no direct embedding
func placeholder(a NativeAddress) types.Address {
	return types.BytesToAddress(keccak.Keccak256(nil, []byte{byte(a.protocol)}, []byte(a.payload))[12:])
}

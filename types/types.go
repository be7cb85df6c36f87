package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/actor-evm/helper/hex"
	"github.com/0xPolygon/actor-evm/helper/keccak"
)

var (
	ZeroAddress = Address{}
	ZeroHash    = Hash{}
)

const (
	HashLength    = 32
	AddressLength = 20
)

// Hash is a 32 byte word as it is stored in contract storage
type Hash [HashLength]byte

// Address is the 160-bit address space used by bytecode
type Address [AddressLength]byte

func min(i, j int) int {
	if i < j {
		return i
	}

	return j
}

func BytesToHash(b []byte) Hash {
	var h Hash

	size := min(len(b), HashLength)
	copy(h[HashLength-size:], b[len(b)-size:])

	return h
}

// WordToHash converts a stack word into its big-endian storage form
func WordToHash(w *uint256.Int) Hash {
	return Hash(w.Bytes32())
}

func (h Hash) Bytes() []byte {
	return h[:]
}

// Word returns the hash as a stack word
func (h Hash) Word() *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}

func (h Hash) String() string {
	return hex.EncodeToHex(h[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func BytesToAddress(b []byte) Address {
	var a Address

	size := min(len(b), AddressLength)
	copy(a[AddressLength-size:], b[len(b)-size:])

	return a
}

// WordToAddress takes the low 160 bits of a stack word
func WordToAddress(w *uint256.Int) Address {
	return Address(w.Bytes20())
}

func (a Address) Bytes() []byte {
	return a[:]
}

// Word returns the address left-padded into a stack word
func (a Address) Word() *uint256.Int {
	return new(uint256.Int).SetBytes20(a[:])
}

// EIP55 returns the mixed-case checksum encoding of the address
func (a Address) EIP55() string {
	addrBytes := []byte(hex.EncodeToHex(a[:])[2:])
	hash := keccak.Keccak256(nil, addrBytes)

	result := make([]byte, 2+len(addrBytes))
	copy(result, "0x")

	for i, c := range addrBytes {
		hashByte := hash[i/2]
		if i%2 == 0 {
			hashByte >>= 4
		} else {
			hashByte &= 0xf
		}

		if c > '9' && hashByte > 7 {
			c -= 32
		}

		result[2+i] = c
	}

	return string(result)
}

func (a Address) String() string {
	return a.EIP55()
}

func StringToHash(str string) Hash {
	return BytesToHash(stringToBytes(str))
}

func StringToAddress(str string) Address {
	return BytesToAddress(stringToBytes(str))
}

func stringToBytes(str string) []byte {
	str = strings.TrimPrefix(str, "0x")
	if len(str)%2 == 1 {
		str = "0" + str
	}

	b, _ := hex.DecodeString(str)

	return b
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash) UnmarshalText(input []byte) error {
	*h = BytesToHash(stringToBytes(string(input)))

	return nil
}

// UnmarshalText parses an address in hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	buf := stringToBytes(string(input))
	if len(buf) != AddressLength {
		return fmt.Errorf("incorrect length")
	}

	*a = BytesToAddress(buf)

	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

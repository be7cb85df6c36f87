package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btc_ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/actor-evm/helper/keccak"
	"github.com/0xPolygon/actor-evm/types"
)

var (
	secp256k1N, _  = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
	secp256k1NHalf = new(big.Int).Div(secp256k1N, big.NewInt(2))
	one            = big.NewInt(1)

	errHashOfInvalidLength = errors.New("message hash of invalid length")
	errInvalidSignature    = errors.New("invalid signature")
)

const (
	// ECDSASignatureLength indicates the byte length required to carry a signature with recovery id.
	// (64 bytes ECDSA signature + 1 byte recovery id)
	ECDSASignatureLength = 64 + 1

	// recoveryID is ECDSA signature recovery id
	recoveryID = byte(27)
)

// EmptyCodeHash is the hash of an account without code
var EmptyCodeHash = Keccak256Hash(nil)

// ValidateSignatureValues checks if the signature values are correct.
// v is the recovery id (0 or 1) and r, s must be in [1, N) of the curve order.
func ValidateSignatureValues(v byte, r, s *big.Int) bool {
	if r == nil || s == nil {
		return false
	}

	if r.Cmp(one) < 0 || s.Cmp(one) < 0 {
		return false
	}

	if v > 1 {
		return false
	}

	return r.Cmp(secp256k1N) < 0 && s.Cmp(secp256k1N) < 0
}

var addressPool fastrlp.ArenaPool

// CreateAddress derives the address of a contract created with CREATE,
// keccak256(rlp([creator, nonce]))[12:]
func CreateAddress(addr types.Address, nonce uint64) types.Address {
	a := addressPool.Get()
	defer addressPool.Put(a)

	v := a.NewArray()
	v.Set(a.NewBytes(addr.Bytes()))
	v.Set(a.NewUint(nonce))

	dst := keccak.Keccak256Rlp(nil, v)

	return types.BytesToAddress(dst[12:])
}

var create2Prefix = []byte{0xff}

// CreateAddress2 derives the address of a contract created with CREATE2,
// keccak256(0xff ++ creator ++ salt ++ keccak256(initCode))[12:]
func CreateAddress2(addr types.Address, salt types.Hash, initCode []byte) types.Address {
	return types.BytesToAddress(Keccak256(create2Prefix, addr.Bytes(), salt[:], Keccak256(initCode))[12:])
}

// Keccak256 calculates the Keccak256
func Keccak256(v ...[]byte) []byte {
	return keccak.Keccak256(nil, v...)
}

// Keccak256Hash calculates the Keccak256 and returns it as a Hash
func Keccak256Hash(v ...[]byte) types.Hash {
	return types.BytesToHash(keccak.Keccak256(nil, v...))
}

// MarshalPublicKey marshals a public key in the uncompressed form
func MarshalPublicKey(pub *ecdsa.PublicKey) []byte {
	return elliptic.Marshal(btcec.S256(), pub.X, pub.Y) //nolint:staticcheck
}

// PubKeyToAddress returns the Ethereum address of a public key
func PubKeyToAddress(pub *ecdsa.PublicKey) types.Address {
	buf := Keccak256(MarshalPublicKey(pub)[1:])[12:]

	return types.BytesToAddress(buf)
}

// Ecrecover returns the uncompressed public key that created the signature
func Ecrecover(hash, sig []byte) ([]byte, error) {
	pub, err := RecoverPubKey(sig, hash)
	if err != nil {
		return nil, err
	}

	return MarshalPublicKey(pub), nil
}

// RecoverPubKey verifies the compact signature "signature" of "hash" for the secp256k1 curve.
// The signature is in the [R || S || V] format where V is 0 or 1.
func RecoverPubKey(signature, hash []byte) (*ecdsa.PublicKey, error) {
	if len(hash) != types.HashLength {
		return nil, errHashOfInvalidLength
	}

	signatureSize := len(signature)
	if signatureSize != ECDSASignatureLength {
		return nil, errInvalidSignature
	}

	// Convert to btcec input format with 'recovery id' v at the beginning.
	btcsig := make([]byte, signatureSize)
	btcsig[0] = signature[signatureSize-1] + recoveryID
	copy(btcsig[1:], signature)

	pub, _, err := btc_ecdsa.RecoverCompact(btcsig, hash)
	if err != nil {
		return nil, err
	}

	return pub.ToECDSA(), nil
}

// Sign produces an ECDSA signature of the data in hash with the given
// private key on the secp256k1 curve, in the [R || S || V] format.
func Sign(priv *btcec.PrivateKey, hash []byte) ([]byte, error) {
	if len(hash) != types.HashLength {
		return nil, errHashOfInvalidLength
	}

	sig, err := btc_ecdsa.SignCompact(priv, hash, false)
	if err != nil {
		return nil, err
	}

	v := sig[0] - recoveryID
	copy(sig, sig[1:])
	sig[ECDSASignatureLength-1] = v

	return sig, nil
}

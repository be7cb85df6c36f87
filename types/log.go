package types

import (
	"github.com/0xPolygon/actor-evm/helper/hex"
)

// Log is an event emitted by LOG0-LOG4
type Log struct {
	Address Address  `json:"address"`
	Topics  []Hash   `json:"topics"`
	Data    HexBytes `json:"data"`
}

// HexBytes marshals as a 0x prefixed hex string
type HexBytes []byte

func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToHex(b)), nil
}

func (b *HexBytes) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHex(string(input))
	if err != nil {
		return err
	}

	*b = buf

	return nil
}

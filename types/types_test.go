package types

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEIP55(t *testing.T) {
	t.Parallel()

	cases := []struct {
		address  string
		expected string
	}{
		{
			"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		},
		{
			"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
			"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		},
		{
			"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb",
			"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		},
		{
			"0xb529594951753de833b00865",
			"0x0000000000000000B529594951753De833B00865",
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.address, func(t *testing.T) {
			t.Parallel()

			addr := StringToAddress(c.address)
			assert.Equal(t, c.expected, addr.String())
		})
	}
}

func TestAddressWordRoundTrip(t *testing.T) {
	t.Parallel()

	addr := StringToAddress("0xff00000000000000000000000000000000000100")
	word := addr.Word()

	assert.Equal(t, addr, WordToAddress(word))

	// the high 96 bits are dropped when narrowing a word to an address
	wide := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	wide.Or(wide, word)
	assert.Equal(t, addr, WordToAddress(wide))
}

func TestHashWord(t *testing.T) {
	t.Parallel()

	h := WordToHash(uint256.NewInt(0x42))
	assert.Equal(t, byte(0x42), h[31])
	assert.True(t, h.Word().Eq(uint256.NewInt(0x42)))
	assert.False(t, h.IsZero())
	assert.True(t, ZeroHash.IsZero())
}

func TestAddressUnmarshalText(t *testing.T) {
	t.Parallel()

	var a Address
	require.NoError(t, a.UnmarshalText([]byte("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")))
	assert.Equal(t, StringToAddress("5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"), a)

	assert.Error(t, a.UnmarshalText([]byte("0x01")))
}

func TestLogJSON(t *testing.T) {
	t.Parallel()

	log := &Log{
		Address: StringToAddress("0x1"),
		Topics:  []Hash{StringToHash("0x2")},
		Data:    HexBytes{0xde, 0xad},
	}

	data, err := json.Marshal(log)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":"0xdead"`)

	var decoded Log
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, log, &decoded)
}

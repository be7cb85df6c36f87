package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/0xPolygon/actor-evm/types"
)

func TestIDAddress_RoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Uint64().Draw(t, "id")

		tr := NewTranslator()
		evm := tr.ToEVM(NewIDAddress(id))

		assert.Equal(t, byte(0xff), evm[0])

		back, ok := tr.ToNative(evm)
		require.True(t, ok)

		got, err := back.ID()
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})
}

func TestIDAddress_NoTable(t *testing.T) {
	t.Parallel()

	// id masked addresses resolve on a fresh translator
	tr := NewTranslator()

	native, ok := tr.ToNative(types.StringToAddress("0xff00000000000000000000000000000000000100"))
	require.True(t, ok)
	assert.Equal(t, NewIDAddress(0x100), native)
	assert.Equal(t, "f0256", native.String())
}

func TestTranslator_Delegated(t *testing.T) {
	t.Parallel()

	sub := types.StringToAddress("0x1111111111111111111111111111111111111111")

	tr := NewTranslator()
	evm := tr.ToEVM(NewDelegatedAddress(EAMNamespace, sub.Bytes()))
	assert.Equal(t, sub, evm)

	native, ok := tr.ToNative(evm)
	require.True(t, ok)
	assert.Equal(t, Delegated, native.Protocol())

	ns, payload, err := native.DelegatedParts()
	require.NoError(t, err)
	assert.Equal(t, EAMNamespace, ns)
	assert.Equal(t, sub.Bytes(), payload)
}

func TestTranslator_Placeholder(t *testing.T) {
	t.Parallel()

	a, err := NewAddress(SECP256K1, []byte{0x1, 0x2, 0x3})
	require.NoError(t, err)

	tr := NewTranslator()
	evm1 := tr.ToEVM(a)
	evm2 := NewTranslator().ToEVM(a)

	// deterministic across translators
	assert.Equal(t, evm1, evm2)

	native, ok := tr.ToNative(evm1)
	require.True(t, ok)
	assert.Equal(t, a, native)
}

func TestTranslator_Unmapped(t *testing.T) {
	t.Parallel()

	_, ok := NewTranslator().ToNative(types.StringToAddress("0xdeadbeef"))
	assert.False(t, ok)
}

func TestTranslator_RegisterContract(t *testing.T) {
	t.Parallel()

	addr := types.StringToAddress("0xabcdef")

	tr := NewTranslator()
	native := tr.RegisterContract(addr)

	got, ok := tr.ToNative(addr)
	require.True(t, ok)
	assert.Equal(t, native, got)
	assert.Equal(t, addr, tr.ToEVM(native))
}

func TestFromBytes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		buf  []byte
		err  error
	}{
		{"empty", nil, ErrInvalidPayload},
		{"unknown protocol", []byte{0x9, 0x1}, ErrUnknownProtocol},
		{"truncated id", []byte{0x0, 0x80}, ErrInvalidPayload},
		{"id", NewIDAddress(1024).Bytes(), nil},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			_, err := FromBytes(c.buf)
			if c.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, c.err)
			}
		})
	}
}

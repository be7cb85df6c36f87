package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/actor-evm/state/runtime/evm"
)

func TestAssemble(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		src      string
		expected []byte
		err      error
	}{
		{
			name:     "comments and blank lines",
			src:      "# header\n\npush1 0x20 # size\ncalldatasize\nSUB\n",
			expected: []byte{byte(evm.PUSH1), 0x20, byte(evm.CALLDATASIZE), byte(evm.SUB)},
		},
		{
			name:     "immediate is left padded",
			src:      "push2 0x01",
			expected: []byte{byte(evm.PUSH2), 0x00, 0x01},
		},
		{
			name:     "alias",
			src:      "keccak256",
			expected: []byte{byte(evm.SHA3)},
		},
		{
			name: "unknown",
			src:  "jumpto 0x10",
			err:  ErrUnknownInstruction,
		},
		{
			name: "missing immediate",
			src:  "push1",
			err:  ErrMissingImmediate,
		},
		{
			name: "immediate too long",
			src:  "push1 0x0102",
			err:  ErrImmediateTooLong,
		},
		{
			name: "operand on a plain opcode",
			src:  "add 0x01",
			err:  ErrUnexpectedOperand,
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			code, err := Assemble(c.src)
			if c.err != nil {
				require.ErrorIs(t, err, c.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.expected, code)
		})
	}
}

func TestNewContract(t *testing.T) {
	t.Parallel()

	code, err := NewContract("test", "push1 0x01\npop", "push1 0x42\nstop")
	require.NoError(t, err)

	body := []byte{byte(evm.PUSH1), 0x42, byte(evm.STOP)}

	// init, the 13 byte loader and the body
	assert.Len(t, code, 3+13+len(body))
	assert.Equal(t, body, code[len(code)-len(body):])
	// the loader copies the body from right after itself
	assert.Equal(t, []byte{byte(evm.PUSH2), 0x00, 0x10}, code[7:10])

	_, err = NewContract("broken", "", "nope")
	require.ErrorIs(t, err, ErrUnknownInstruction)
}

package calltracer

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/state/runtime/tracer"
	"github.com/0xPolygon/actor-evm/types"
)

type halter struct {
	halted bool
}

func (h *halter) Halt() { h.halted = true }

func TestCallTracer_Cancel(t *testing.T) {
	t.Parallel()

	err := errors.New("timeout")

	c := &CallTracer{}

	h := &halter{}
	c.StepStart(&tracer.Step{}, h)
	require.False(t, h.halted)

	c.Cancel(err)

	c.StepStart(&tracer.Step{}, h)
	require.True(t, h.halted)

	_, resErr := c.GetResult()
	require.ErrorIs(t, resErr, err)
}

func TestCallTracer_Clear(t *testing.T) {
	t.Parallel()

	c := &CallTracer{}
	c.CallStart(&tracer.Frame{Depth: 1})
	c.StepEnd(&tracer.Step{})
	require.Equal(t, uint64(1), c.Steps())

	c.Clear()

	res, err := c.GetResult()
	require.NoError(t, err)
	require.Nil(t, res.(*Call)) //nolint:forcetypeassert
	require.Zero(t, c.Steps())
}

func TestCallTracer_CallStart(t *testing.T) {
	t.Parallel()

	from := types.StringToAddress("0x1")
	to := types.StringToAddress("0x2")

	c := &CallTracer{}
	c.CallStart(&tracer.Frame{
		Depth: 1,
		Type:  runtime.Call,
		From:  from,
		To:    to,
		Gas:   100000,
		Value: uint256.NewInt(100),
		Input: []byte("input"),
	})

	expected := &Call{
		Type:  "CALL",
		From:  from.String(),
		To:    to.String(),
		Value: "0x64",
		Gas:   "0x186a0",
		Input: "0x696e707574",
	}

	require.Equal(t, expected, c.root)
	require.Len(t, c.open, 1)
}

func TestCallTracer_NestedCalls(t *testing.T) {
	t.Parallel()

	a := types.StringToAddress("0xa")
	b := types.StringToAddress("0xb")

	c := &CallTracer{}
	c.CallStart(&tracer.Frame{Depth: 1, Type: runtime.Call, From: a, To: b, Gas: 1000})
	c.CallStart(&tracer.Frame{Depth: 2, Type: runtime.StaticCall, From: b, To: a, Gas: 500, Input: []byte{0x1}})
	c.CallEnd(&tracer.FrameResult{Depth: 2, Output: []byte{0x42}, GasUsed: 100, Err: runtime.ErrExecutionReverted})
	c.CallStart(&tracer.Frame{Depth: 2, Type: runtime.Create, From: b, To: a, Gas: 400, Value: uint256.NewInt(1)})
	c.CallEnd(&tracer.FrameResult{Depth: 2, GasUsed: 50})
	c.CallEnd(&tracer.FrameResult{Depth: 1, Output: []byte{0x1}, GasUsed: 700})

	res, err := c.GetResult()
	require.NoError(t, err)

	root, ok := res.(*Call)
	require.True(t, ok)
	require.Len(t, root.Calls, 2)

	assert.Equal(t, "STATICCALL", root.Calls[0].Type)
	assert.Equal(t, "0x42", root.Calls[0].Output)
	assert.Equal(t, "0x64", root.Calls[0].GasUsed)
	assert.Equal(t, "execution was reverted", root.Calls[0].Error)
	assert.Equal(t, "CREATE", root.Calls[1].Type)
	assert.Equal(t, "0x1", root.Calls[1].Value)
	assert.Equal(t, "0x2bc", root.GasUsed)

	buf, err := c.MarshalResult()
	require.NoError(t, err)
	assert.Contains(t, string(buf), `"type":"CALL"`)
	assert.Contains(t, string(buf), `"error":"execution was reverted"`)
}

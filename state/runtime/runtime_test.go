package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionResult_UpdateGasUsed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		gasLimit, gasLeft, refund uint64
		used, left               uint64
	}{
		{gasLimit: 100, gasLeft: 40, refund: 0, used: 60, left: 40},
		{gasLimit: 100, gasLeft: 40, refund: 10, used: 50, left: 50},
		// refund capped at half of the used gas
		{gasLimit: 100, gasLeft: 40, refund: 1000, used: 30, left: 70},
	}

	for _, c := range cases {
		r := &ExecutionResult{GasLeft: c.gasLeft}
		r.UpdateGasUsed(c.gasLimit, c.refund)

		assert.Equal(t, c.used, r.GasUsed)
		assert.Equal(t, c.left, r.GasLeft)
	}
}

func TestExecutionResult_Classification(t *testing.T) {
	t.Parallel()

	ok := &ExecutionResult{Outcome: OutcomeReturn}
	assert.True(t, ok.Succeeded())
	assert.False(t, ok.Fault())

	revert := &ExecutionResult{Outcome: OutcomeRevert, Err: ErrExecutionReverted}
	assert.True(t, revert.Reverted())
	assert.False(t, revert.Fault())

	fault := NewFault(fmt.Errorf("wrapped: %w", ErrOutOfGas))
	assert.True(t, fault.Fault())
	assert.Equal(t, OutcomeFault, fault.Outcome)
	assert.Zero(t, fault.GasLeft)
}

func TestStackUnderflowError(t *testing.T) {
	t.Parallel()

	var err error = &StackUnderflowError{StackLen: 0, Required: 2}
	assert.True(t, errors.Is(err, ErrStackUnderflow))

	var target *StackUnderflowError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, 2, target.Required)
}

package chain

import (
	"errors"
	"fmt"
)

const (
	// MaxCallDepth is the deepest nesting of call frames
	MaxCallDepth = 1024

	// MaxCodeSize is the limit on deployed contract code (EIP-170)
	MaxCodeSize = 24576

	// StackLimit is the maximum number of words on the stack
	StackLimit = 1024
)

var (
	ErrInvalidCallDepth = errors.New("call depth must be between 1 and 1024")
	ErrInvalidCodeSize  = errors.New("max code size must be positive")
)

// Params are the execution parameters shared by every frame of an invocation
type Params struct {
	ChainID      int64    `json:"chainID"`
	MaxCallDepth int      `json:"maxCallDepth"`
	MaxCodeSize  int      `json:"maxCodeSize"`
	GasTable     GasTable `json:"gasTable"`
}

// DefaultParams returns the Istanbul parameters
func DefaultParams() *Params {
	return &Params{
		ChainID:      314,
		MaxCallDepth: MaxCallDepth,
		MaxCodeSize:  MaxCodeSize,
		GasTable:     GasTableIstanbul,
	}
}

// Validate checks the params are usable by the interpreter
func (p *Params) Validate() error {
	if p.MaxCallDepth <= 0 || p.MaxCallDepth > MaxCallDepth {
		return fmt.Errorf("%w: got %d", ErrInvalidCallDepth, p.MaxCallDepth)
	}

	if p.MaxCodeSize <= 0 {
		return ErrInvalidCodeSize
	}

	return nil
}

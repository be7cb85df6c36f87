package actor

import (
	"errors"
	"fmt"

	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/actor-evm/types"
)

// MethodNum selects the method of the actor
type MethodNum uint64

const (
	MethodConstructor    MethodNum = 1
	MethodInvokeContract MethodNum = 2
	MethodGetBytecode    MethodNum = 3
	MethodGetStorageAt   MethodNum = 4
)

var errBadFieldCount = errors.New("unexpected number of fields")

type marshalRLPFunc func(ar *fastrlp.Arena) *fastrlp.Value

type unmarshalRLPFunc func(v *fastrlp.Value) error

func marshalRLP(obj marshalRLPFunc) []byte {
	ar := fastrlp.DefaultArenaPool.Get()
	defer fastrlp.DefaultArenaPool.Put(ar)

	return obj(ar).MarshalTo(nil)
}

func unmarshalRLP(obj unmarshalRLPFunc, input []byte) error {
	pr := fastrlp.DefaultParserPool.Get()
	defer fastrlp.DefaultParserPool.Put(pr)

	v, err := pr.Parse(input)
	if err != nil {
		return err
	}

	return obj(v)
}

func getElems(v *fastrlp.Value, n int) ([]*fastrlp.Value, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, err
	}

	if len(elems) != n {
		return nil, fmt.Errorf("%w: expected %d, got %d", errBadFieldCount, n, len(elems))
	}

	return elems, nil
}

// ConstructorParams are the init code of the contract and the input it runs with
type ConstructorParams struct {
	Bytecode  []byte
	InputData []byte
}

func (p *ConstructorParams) MarshalRLP() []byte {
	return marshalRLP(p.MarshalRLPWith)
}

func (p *ConstructorParams) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(p.Bytecode))
	vv.Set(ar.NewCopyBytes(p.InputData))

	return vv
}

func (p *ConstructorParams) UnmarshalRLP(input []byte) error {
	return unmarshalRLP(p.UnmarshalRLPFrom, input)
}

func (p *ConstructorParams) UnmarshalRLPFrom(v *fastrlp.Value) error {
	elems, err := getElems(v, 2)
	if err != nil {
		return err
	}

	if p.Bytecode, err = elems[0].GetBytes(p.Bytecode[:0]); err != nil {
		return err
	}

	if p.InputData, err = elems[1].GetBytes(p.InputData[:0]); err != nil {
		return err
	}

	return nil
}

// ConstructorReturn is the address the contract was deployed at and the code stored there
type ConstructorReturn struct {
	Address  types.Address
	Bytecode []byte
	GasUsed  uint64
}

func (r *ConstructorReturn) MarshalRLP() []byte {
	return marshalRLP(r.MarshalRLPWith)
}

func (r *ConstructorReturn) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(r.Address.Bytes()))
	vv.Set(ar.NewCopyBytes(r.Bytecode))
	vv.Set(ar.NewUint(r.GasUsed))

	return vv
}

func (r *ConstructorReturn) UnmarshalRLP(input []byte) error {
	return unmarshalRLP(r.UnmarshalRLPFrom, input)
}

func (r *ConstructorReturn) UnmarshalRLPFrom(v *fastrlp.Value) error {
	elems, err := getElems(v, 3)
	if err != nil {
		return err
	}

	if _, err = elems[0].GetBytes(r.Address[:0], types.AddressLength); err != nil {
		return err
	}

	if r.Bytecode, err = elems[1].GetBytes(r.Bytecode[:0]); err != nil {
		return err
	}

	if r.GasUsed, err = elems[2].GetUint64(); err != nil {
		return err
	}

	return nil
}

// InvokeParams is the calldata of an invocation
type InvokeParams struct {
	InputData []byte
}

func (p *InvokeParams) MarshalRLP() []byte {
	return marshalRLP(p.MarshalRLPWith)
}

func (p *InvokeParams) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	return ar.NewCopyBytes(p.InputData)
}

func (p *InvokeParams) UnmarshalRLP(input []byte) error {
	return unmarshalRLP(p.UnmarshalRLPFrom, input)
}

func (p *InvokeParams) UnmarshalRLPFrom(v *fastrlp.Value) (err error) {
	p.InputData, err = v.GetBytes(p.InputData[:0])

	return err
}

// GetStorageAtParams is the slot to read
type GetStorageAtParams struct {
	Key types.Hash
}

func (p *GetStorageAtParams) MarshalRLP() []byte {
	return marshalRLP(p.MarshalRLPWith)
}

func (p *GetStorageAtParams) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	return ar.NewCopyBytes(p.Key.Bytes())
}

func (p *GetStorageAtParams) UnmarshalRLP(input []byte) error {
	return unmarshalRLP(p.UnmarshalRLPFrom, input)
}

func (p *GetStorageAtParams) UnmarshalRLPFrom(v *fastrlp.Value) error {
	_, err := v.GetBytes(p.Key[:0], types.HashLength)

	return err
}

// encodeBytes wraps a raw return value
func encodeBytes(b []byte) []byte {
	return marshalRLP(func(ar *fastrlp.Arena) *fastrlp.Value {
		return ar.NewCopyBytes(b)
	})
}

// DecodeBytes unwraps a raw return value produced by Dispatch
func DecodeBytes(input []byte) ([]byte, error) {
	var res []byte

	err := unmarshalRLP(func(v *fastrlp.Value) (err error) {
		res, err = v.GetBytes(nil)

		return err
	}, input)

	return res, err
}

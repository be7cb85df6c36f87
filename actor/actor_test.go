package actor

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/0xPolygon/actor-evm/address"
	"github.com/0xPolygon/actor-evm/config"
	"github.com/0xPolygon/actor-evm/state"
	"github.com/0xPolygon/actor-evm/state/runtime"
	"github.com/0xPolygon/actor-evm/state/runtime/evm"
	"github.com/0xPolygon/actor-evm/types"
)

var caller = address.NewIDAddress(100)

// counter increments slot 0 and returns the new value
var counter = evm.NewProgram().
	PushUint(0).Op(evm.SLOAD).
	PushUint(1).Op(evm.ADD).
	Op(evm.DUP1).PushUint(0).Op(evm.SSTORE).
	ReturnTop().
	Bytes()

func word(v uint64) []byte {
	return uint256.NewInt(v).PaddedBytes(32)
}

func newTestRuntime(t *testing.T, cfg *config.Config) *Runtime {
	t.Helper()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	rt, err := NewRuntime(cfg, hclog.NewNullLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = rt.Close() })

	return rt
}

func requireExit(t *testing.T, err error, exit ExitCode) *Error {
	t.Helper()

	var actorErr *Error

	require.True(t, errors.As(err, &actorErr), "expected an actor error, got %v", err)
	assert.Equal(t, exit, actorErr.Exit)

	return actorErr
}

func TestActor_Counter(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime(t, nil)
	a := rt.Actor(address.NewIDAddress(1000))

	ret, err := a.Construct(Message{Caller: caller}, &ConstructorParams{Bytecode: evm.InitCode(counter)})
	require.NoError(t, err)
	assert.Equal(t, address.IDToEVM(1000), ret.Address)
	assert.Equal(t, counter, ret.Bytecode)
	assert.NotZero(t, ret.GasUsed)

	for i := uint64(1); i <= 3; i++ {
		out, err := a.Invoke(Message{Caller: caller}, &InvokeParams{})
		require.NoError(t, err)
		assert.Equal(t, word(i), out)
	}

	code, err := a.GetBytecode()
	require.NoError(t, err)
	assert.Equal(t, counter, code)

	val, err := a.GetStorageAt(&GetStorageAtParams{Key: types.ZeroHash})
	require.NoError(t, err)
	assert.Equal(t, types.BytesToHash(word(3)), val)

	// the runtime hands out one instance per address
	assert.Same(t, a, rt.Actor(address.NewIDAddress(1000)))
}

func TestActor_ConstructTwice(t *testing.T) {
	t.Parallel()

	a := newTestRuntime(t, nil).Actor(address.NewIDAddress(1000))

	_, err := a.Construct(Message{Caller: caller}, &ConstructorParams{Bytecode: evm.InitCode(counter)})
	require.NoError(t, err)

	_, err = a.Construct(Message{Caller: caller}, &ConstructorParams{Bytecode: evm.InitCode(counter)})
	requireExit(t, err, ExitIllegalState)
	assert.ErrorIs(t, err, ErrAlreadyConstructed)
}

func TestActor_ConstructorInput(t *testing.T) {
	t.Parallel()

	a := newTestRuntime(t, nil).Actor(address.NewIDAddress(1000))

	// the init code stores the word appended to it at slot 0 and deploys nothing
	initLen := uint64(len(evm.NewProgram().
		PushUint(32).PushUint(0xff).PushUint(0).Op(evm.CODECOPY).
		PushUint(0).Op(evm.MLOAD).PushUint(0).Op(evm.SSTORE).
		Op(evm.STOP).Bytes()))

	init := evm.NewProgram().
		PushUint(32).PushUint(initLen).PushUint(0).Op(evm.CODECOPY).
		PushUint(0).Op(evm.MLOAD).PushUint(0).Op(evm.SSTORE).
		Op(evm.STOP).Bytes()
	require.Len(t, init, int(initLen))

	_, err := a.Construct(Message{Caller: caller}, &ConstructorParams{Bytecode: init, InputData: word(7)})
	require.NoError(t, err)

	val, err := a.GetStorageAt(&GetStorageAtParams{})
	require.NoError(t, err)
	assert.Equal(t, types.BytesToHash(word(7)), val)

	code, err := a.GetBytecode()
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestActor_Revert(t *testing.T) {
	t.Parallel()

	// write slot 0 and then revert with 0x42
	body := evm.NewProgram().
		PushUint(1).PushUint(0).Op(evm.SSTORE).
		Store(0, 0x42).
		PushUint(32).PushUint(0).Op(evm.REVERT).
		Bytes()

	a := newTestRuntime(t, nil).Actor(address.NewIDAddress(1000))

	_, err := a.Construct(Message{Caller: caller}, &ConstructorParams{Bytecode: evm.InitCode(body)})
	require.NoError(t, err)

	_, err = a.Invoke(Message{Caller: caller}, &InvokeParams{})
	actorErr := requireExit(t, err, ExitExecutionReverted)
	assert.Equal(t, word(0x42), actorErr.ReturnData)

	val, err := a.GetStorageAt(&GetStorageAtParams{})
	require.NoError(t, err)
	assert.Equal(t, types.ZeroHash, val)
}

func TestActor_Fault(t *testing.T) {
	t.Parallel()

	a := newTestRuntime(t, nil).Actor(address.NewIDAddress(1000))

	_, err := a.Construct(Message{Caller: caller}, &ConstructorParams{Bytecode: evm.InitCode([]byte{0xfe})})
	require.NoError(t, err)

	_, err = a.Invoke(Message{Caller: caller}, &InvokeParams{})
	requireExit(t, err, ExitExecutionFault)

	// init code running out of gas deploys nothing
	b := newTestRuntime(t, nil).Actor(address.NewIDAddress(1001))

	_, err = b.Construct(Message{Caller: caller, GasLimit: 10}, &ConstructorParams{Bytecode: evm.InitCode(counter)})
	requireExit(t, err, ExitExecutionFault)

	code, err := b.GetBytecode()
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestActor_NativeCall(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime(t, nil)

	var seen types.Address

	native := rt.Executor().RegisterActor(address.NewIDAddress(0x100), nativeActor(
		func(from types.Address, _ *uint256.Int, _ []byte) ([]byte, error) {
			seen = from

			return word(0x42), nil
		},
	))

	body := evm.NewProgram().
		Call(evm.CALL, 0, native, 0, 0, 0, 0, 0).
		Op(evm.POP).
		PushUint(32).PushUint(0).PushUint(0).Op(evm.RETURNDATACOPY).
		PushUint(32).PushUint(0).Op(evm.RETURN).
		Bytes()

	a := rt.Actor(address.NewIDAddress(1000))

	_, err := a.Construct(Message{Caller: caller}, &ConstructorParams{Bytecode: evm.InitCode(body)})
	require.NoError(t, err)

	out, err := a.Invoke(Message{Caller: caller}, &InvokeParams{})
	require.NoError(t, err)
	assert.Equal(t, word(0x42), out)
	assert.Equal(t, a.Address(), seen)
}

type nativeActor func(caller types.Address, value *uint256.Int, input []byte) ([]byte, error)

func (f nativeActor) Invoke(caller types.Address, value *uint256.Int, input []byte) ([]byte, error) {
	return f(caller, value, input)
}

func TestActor_Dispatch(t *testing.T) {
	t.Parallel()

	a := newTestRuntime(t, nil).Actor(address.NewIDAddress(1000))
	msg := Message{Caller: caller}

	raw, err := a.Dispatch(msg, MethodConstructor, (&ConstructorParams{Bytecode: evm.InitCode(counter)}).MarshalRLP())
	require.NoError(t, err)

	var ret ConstructorReturn
	require.NoError(t, ret.UnmarshalRLP(raw))
	assert.Equal(t, a.Address(), ret.Address)
	assert.Equal(t, counter, ret.Bytecode)

	raw, err = a.Dispatch(msg, MethodInvokeContract, (&InvokeParams{}).MarshalRLP())
	require.NoError(t, err)

	out, err := DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, word(1), out)

	raw, err = a.Dispatch(msg, MethodGetBytecode, nil)
	require.NoError(t, err)

	out, err = DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, counter, out)

	raw, err = a.Dispatch(msg, MethodGetStorageAt, (&GetStorageAtParams{}).MarshalRLP())
	require.NoError(t, err)

	out, err = DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, word(1), out)
}

func TestActor_DispatchErrors(t *testing.T) {
	t.Parallel()

	a := newTestRuntime(t, nil).Actor(address.NewIDAddress(1000))
	msg := Message{Caller: caller}

	cases := []struct {
		name   string
		method MethodNum
		params []byte
		exit   ExitCode
	}{
		{"unknown method", 99, nil, ExitUnhandledMessage},
		{"garbage constructor params", MethodConstructor, []byte{0xff}, ExitIllegalArgument},
		{"constructor params not a list", MethodConstructor, (&InvokeParams{InputData: []byte{1}}).MarshalRLP(), ExitIllegalArgument},
		{"short storage key", MethodGetStorageAt, encodeBytes(make([]byte, 31)), ExitIllegalArgument},
		{"invoke params a list", MethodInvokeContract, (&ConstructorParams{}).MarshalRLP(), ExitIllegalArgument},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			_, err := a.Dispatch(msg, c.method, c.params)
			requireExit(t, err, c.exit)
		})
	}
}

func TestActor_Concurrent(t *testing.T) {
	t.Parallel()

	const (
		actors  = 16
		invokes = 10
	)

	rt := newTestRuntime(t, nil)

	var g errgroup.Group

	for i := 0; i < actors; i++ {
		i := uint64(i)

		g.Go(func() error {
			a := rt.Actor(address.NewIDAddress(1000 + i))
			msg := Message{Caller: address.NewIDAddress(100 + i)}

			if _, err := a.Construct(msg, &ConstructorParams{Bytecode: evm.InitCode(counter)}); err != nil {
				return err
			}

			for j := 0; j < invokes; j++ {
				if _, err := a.Invoke(msg, &InvokeParams{}); err != nil {
					return err
				}
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())

	for i := uint64(0); i < actors; i++ {
		val, err := rt.Actor(address.NewIDAddress(1000 + i)).GetStorageAt(&GetStorageAtParams{})
		require.NoError(t, err)
		assert.Equal(t, types.BytesToHash(word(invokes)), val)
	}

	// one payer funds five payments of 60 and pays all the actors at once
	payer := address.NewIDAddress(99)
	payerAddr := rt.Executor().Translator().ToEVM(payer)

	tr := rt.Executor().BeginTxn(runtime.TxContext{})
	tr.Txn().SetBalance(payerAddr, uint256.NewInt(300))
	require.NoError(t, tr.Commit())

	var (
		paid   atomic.Int64
		faults atomic.Int64
		pay    errgroup.Group
	)

	for i := 0; i < actors; i++ {
		i := uint64(i)

		pay.Go(func() error {
			_, err := rt.Actor(address.NewIDAddress(1000 + i)).Invoke(Message{Caller: payer, Value: uint256.NewInt(60)}, &InvokeParams{})
			if err == nil {
				paid.Add(1)

				return nil
			}

			var actorErr *Error
			if errors.As(err, &actorErr) && actorErr.Exit == ExitExecutionFault {
				faults.Add(1)

				return nil
			}

			return err
		})
	}

	require.NoError(t, pay.Wait())
	assert.Equal(t, int64(5), paid.Load())
	assert.Equal(t, int64(actors-5), faults.Load())

	txn := state.NewTxn(rt.Executor().State())
	assert.True(t, txn.GetBalance(payerAddr).IsZero())

	total := uint64(0)
	for i := uint64(0); i < actors; i++ {
		total += txn.GetBalance(rt.Actor(address.NewIDAddress(1000 + i)).Address()).Uint64()
	}

	assert.Equal(t, uint64(300), total)
}

func TestRuntime_Persistence(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{config.BackendLevelDB, config.BackendBoltDB} {
		backend := backend

		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Storage.Backend = backend
			cfg.Storage.DataDir = filepath.Join(t.TempDir(), "data")

			rt, err := NewRuntime(cfg, hclog.NewNullLogger())
			require.NoError(t, err)

			a := rt.Actor(address.NewIDAddress(1000))

			_, err = a.Construct(Message{Caller: caller}, &ConstructorParams{Bytecode: evm.InitCode(counter)})
			require.NoError(t, err)

			_, err = a.Invoke(Message{Caller: caller}, &InvokeParams{})
			require.NoError(t, err)
			require.NoError(t, rt.Close())

			// the contract survives a restart
			rt = newTestRuntime(t, cfg)
			a = rt.Actor(address.NewIDAddress(1000))

			out, err := a.Invoke(Message{Caller: caller}, &InvokeParams{})
			require.NoError(t, err)
			assert.Equal(t, word(2), out)
		})
	}
}

func TestRuntime_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "rocksdb"

	_, err := NewRuntime(cfg, nil)
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}

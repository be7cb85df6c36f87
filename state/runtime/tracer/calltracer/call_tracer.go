package calltracer

import (
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"github.com/0xPolygon/actor-evm/helper/hex"
	"github.com/0xPolygon/actor-evm/state/runtime/tracer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ tracer.Tracer = (*CallTracer)(nil)

// Call is a node of the call tree. Quantities are hex encoded.
type Call struct {
	Type    string  `json:"type"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Value   string  `json:"value,omitempty"`
	Gas     string  `json:"gas"`
	GasUsed string  `json:"gasUsed"`
	Input   string  `json:"input"`
	Output  string  `json:"output"`
	Error   string  `json:"error,omitempty"`
	Calls   []*Call `json:"calls,omitempty"`
}

// CallTracer records the tree of calls of one invocation. Cancel may be
// called from another goroutine, the next step then halts the frame.
type CallTracer struct {
	root  *Call
	open  []*Call
	steps uint64

	reason atomic.Pointer[error]
}

// Cancel stops the traced invocation and makes GetResult fail with err
func (c *CallTracer) Cancel(err error) {
	c.reason.Store(&err)
}

func (c *CallTracer) cancelErr() error {
	if p := c.reason.Load(); p != nil {
		return *p
	}

	return nil
}

func (c *CallTracer) Clear() {
	c.root = nil
	c.open = c.open[:0]
	c.steps = 0
}

func (c *CallTracer) GetResult() (interface{}, error) {
	if err := c.cancelErr(); err != nil {
		return nil, err
	}

	return c.root, nil
}

// MarshalResult encodes the call tree as JSON
func (c *CallTracer) MarshalResult() ([]byte, error) {
	res, err := c.GetResult()
	if err != nil {
		return nil, err
	}

	return json.Marshal(res)
}

// Steps returns the number of opcodes executed while tracing
func (c *CallTracer) Steps() uint64 {
	return c.steps
}

func (c *CallTracer) TxStart(uint64) {}

func (c *CallTracer) TxEnd(uint64) {}

func (c *CallTracer) CallStart(f *tracer.Frame) {
	call := &Call{
		Type:  f.Type.String(),
		From:  f.From.String(),
		To:    f.To.String(),
		Value: hex.EncodeWord(f.Value),
		Gas:   hex.EncodeUint64(f.Gas),
		Input: hex.EncodeToHex(f.Input),
	}

	if f.Depth == 1 || len(c.open) == 0 {
		c.root = call
		c.open = append(c.open[:0], call)

		return
	}

	parent := c.open[len(c.open)-1]
	parent.Calls = append(parent.Calls, call)
	c.open = append(c.open, call)
}

func (c *CallTracer) CallEnd(r *tracer.FrameResult) {
	if len(c.open) == 0 {
		return
	}

	call := c.open[len(c.open)-1]
	call.Output = hex.EncodeToHex(r.Output)
	call.GasUsed = hex.EncodeUint64(r.GasUsed)

	if r.Err != nil {
		call.Error = r.Err.Error()
	}

	// the root stays open so a later CallEnd can not pop past it
	if len(c.open) > 1 {
		c.open = c.open[:len(c.open)-1]
	}
}

func (c *CallTracer) StepStart(_ *tracer.Step, h tracer.Halter) {
	if c.cancelErr() != nil {
		h.Halt()
	}
}

func (c *CallTracer) StepEnd(*tracer.Step) {
	c.steps++
}

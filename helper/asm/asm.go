package asm

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/0xPolygon/actor-evm/helper/hex"
	"github.com/0xPolygon/actor-evm/state/runtime/evm"
)

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrMissingImmediate   = errors.New("push without immediate")
	ErrImmediateTooLong   = errors.New("immediate longer than the push")
	ErrUnexpectedOperand  = errors.New("operand on an instruction without immediate")
	ErrCodeTooLong        = errors.New("code too long for the loader")
)

// aliases for mnemonics renamed after the opcode table was fixed
var aliases = map[string]string{
	"KECCAK256":  "SHA3",
	"PREVRANDAO": "DIFFICULTY",
}

// Assemble translates one instruction per line into bytecode. A '#' starts
// a comment, mnemonics are case insensitive and PUSHn takes a hex immediate
// that is left padded to n bytes.
func Assemble(src string) ([]byte, error) {
	var code []byte

	scanner := bufio.NewScanner(strings.NewReader(src))
	line := 0

	for scanner.Scan() {
		line++

		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}

		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		b, err := assembleInstruction(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		code = append(code, b...)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return code, nil
}

func assembleInstruction(fields []string) ([]byte, error) {
	mnemonic := strings.ToUpper(fields[0])
	if alias, ok := aliases[mnemonic]; ok {
		mnemonic = alias
	}

	op, ok := evm.StringToOp(mnemonic)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstruction, fields[0])
	}

	if op < evm.PUSH1 || op > evm.PUSH32 {
		if len(fields) > 1 {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedOperand, fields[0])
		}

		return []byte{byte(op)}, nil
	}

	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: %s", ErrMissingImmediate, fields[0])
	}

	size := int(op-evm.PUSH1) + 1

	imm, err := hex.DecodeHex(fields[1])
	if err != nil {
		return nil, fmt.Errorf("invalid immediate %s: %w", fields[1], err)
	}

	if len(imm) > size {
		return nil, fmt.Errorf("%w: %s %s", ErrImmediateTooLong, fields[0], fields[1])
	}

	out := make([]byte, 1+size)
	out[0] = byte(op)
	copy(out[1+size-len(imm):], imm)

	return out, nil
}

// NewContract assembles deploy code that runs init and then returns body as
// the code of the contract
func NewContract(name, init, body string) ([]byte, error) {
	initCode, err := Assemble(init)
	if err != nil {
		return nil, fmt.Errorf("contract %s: init: %w", name, err)
	}

	bodyCode, err := Assemble(body)
	if err != nil {
		return nil, fmt.Errorf("contract %s: body: %w", name, err)
	}

	const loaderLen = 13

	offset := len(initCode) + loaderLen
	if len(bodyCode) > 0xffff || offset > 0xffff {
		return nil, fmt.Errorf("contract %s: %w", name, ErrCodeTooLong)
	}

	loader := fmt.Sprintf(`
push2 %04x
dup1
push2 %04x
push1 0x00
codecopy
push1 0x00
return
`, len(bodyCode), offset)

	loaderCode, err := Assemble(loader)
	if err != nil {
		return nil, fmt.Errorf("contract %s: loader: %w", name, err)
	}

	code := make([]byte, 0, offset+len(bodyCode))
	code = append(code, initCode...)
	code = append(code, loaderCode...)
	code = append(code, bodyCode...)

	return code, nil
}

package asm

import (
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/classgen/opcode"
	"github.com/tetratelabs/classgen/types"
)

// Decode parses a code array into an InstructionList. Branch and switch
// offsets become handle references. The returned map gives the handle of the
// instruction at each original position, for binding exception and debug
// tables read alongside the code.
//
// Decoding normalizes encodings: local variable accesses and LDC use their
// shortest form, so the list may lay out shorter than code.
func Decode(code []byte) (*InstructionList, map[int]Handle, error) {
	type pending struct {
		h       Handle
		pos     int
		offsets []int // default first for switches
	}
	l := NewInstructionList()
	at := map[int]Handle{}
	var fixups []pending

	d := decoder{code: code}
	for d.pos < len(code) {
		start := d.pos
		op := d.u8()
		var insn Instruction
		var offsets []int
		switch {
		case !opcode.Defined(op):
			return nil, nil, fmt.Errorf("%w: undefined opcode %#x at %d", ErrInvalidCode, op, start)
		case op == opcode.WIDE:
			op = d.u8()
			slot := int(d.u16())
			switch {
			case op == opcode.IINC:
				insn = NewIinc(slot, int(d.s16()))
			case opcode.IsLocalVariable(op):
				insn = NewLocal(op, slot)
			default:
				return nil, nil, fmt.Errorf("%w: wide %s at %d", ErrInvalidCode, opcode.Name(op), start)
			}
		case op == opcode.IINC:
			slot := int(d.u8())
			insn = NewIinc(slot, int(int8(d.u8())))
		case op == opcode.BIPUSH:
			insn = NewPush(op, int(int8(d.u8())))
		case op == opcode.SIPUSH:
			insn = NewPush(op, int(d.s16()))
		case op == opcode.NEWARRAY:
			atype := d.u8()
			elem, ok := types.BasicTypeOfArrayCode(atype)
			if !ok {
				return nil, nil, fmt.Errorf("%w: newarray type %d at %d", ErrInvalidCode, atype, start)
			}
			insn = NewPrimitiveArray(elem)
		case op == opcode.INVOKEINTERFACE:
			index := d.u16()
			count := d.u8()
			d.u8()
			insn = NewInvokeInterface(index, count)
		case op == opcode.INVOKEDYNAMIC:
			index := d.u16()
			d.u16()
			insn = NewInvokeDynamic(index)
		case op == opcode.MULTIANEWARRAY:
			index := d.u16()
			dims := d.u8()
			if dims == 0 {
				return nil, nil, fmt.Errorf("%w: multianewarray without dimensions at %d", ErrInvalidCode, start)
			}
			insn = NewMultiANewArray(index, dims)
		case op == opcode.LDC:
			insn = NewConstant(op, uint16(d.u8()))
		case opcode.IsConstantPool(op):
			insn = NewConstant(op, d.u16())
		case opcode.IsLocalVariable(op):
			insn = NewLocal(op, int(d.u8()))
		case opcode.IsBranch(op):
			if op == opcode.GOTO_W || op == opcode.JSR_W {
				offsets = []int{int(d.s32())}
			} else {
				offsets = []int{int(d.s16())}
			}
			insn = NewBranch(op, NoHandle)
		case op == opcode.TABLESWITCH:
			d.pos += padding(start)
			offsets = append(offsets, int(d.s32()))
			low, high := d.s32(), d.s32()
			if low > high || int64(high)-int64(low) >= int64(len(code)) {
				return nil, nil, fmt.Errorf("%w: tableswitch bounds %d..%d at %d", ErrInvalidCode, low, high, start)
			}
			matches := make([]int32, 0, high-low+1)
			for v := int64(low); v <= int64(high); v++ {
				matches = append(matches, int32(v))
				offsets = append(offsets, int(d.s32()))
			}
			insn = NewTableSwitch(matches, make([]Handle, len(matches)), NoHandle)
		case op == opcode.LOOKUPSWITCH:
			d.pos += padding(start)
			offsets = append(offsets, int(d.s32()))
			n := d.s32()
			if n < 0 || int64(n) > int64(len(code)) {
				return nil, nil, fmt.Errorf("%w: lookupswitch with %d pairs at %d", ErrInvalidCode, n, start)
			}
			matches := make([]int32, 0, n)
			for i := int32(0); i < n; i++ {
				matches = append(matches, d.s32())
				offsets = append(offsets, int(d.s32()))
			}
			insn = NewLookupSwitch(matches, make([]Handle, len(matches)), NoHandle)
		case opcode.Length(op) == 1:
			if long, slot, ok := opcode.LongForm(op); ok {
				insn = NewLocal(long, slot)
			} else {
				insn = NewSimple(op)
			}
		default:
			return nil, nil, fmt.Errorf("%w: cannot decode %s at %d", ErrInvalidCode, opcode.Name(op), start)
		}
		if d.pos > len(code) {
			return nil, nil, fmt.Errorf("%w: %s at %d is truncated", ErrInvalidCode, opcode.Name(insn.Opcode()), start)
		}
		h := l.Append(insn)
		at[start] = h
		if offsets != nil {
			fixups = append(fixups, pending{h: h, pos: start, offsets: offsets})
		}
	}

	for _, f := range fixups {
		targets := make([]Handle, len(f.offsets))
		for i, off := range f.offsets {
			t, ok := at[f.pos+off]
			if !ok {
				return nil, nil, fmt.Errorf("%w: branch at %d to %d is not an instruction boundary", ErrInvalidCode, f.pos, f.pos+off)
			}
			targets[i] = t
		}
		var err error
		switch l.nodes[f.h].insn.(type) {
		case *Branch:
			err = l.SetTarget(f.h, targets[0])
		case *Select:
			if err = l.SetDefaultTarget(f.h, targets[0]); err != nil {
				break
			}
			for i, t := range targets[1:] {
				if err = l.SetSelectTarget(f.h, i, t); err != nil {
					break
				}
			}
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return l, at, nil
}

// decoder reads big-endian operands. Reads past the end yield zero and are
// detected by the caller through pos.
type decoder struct {
	code []byte
	pos  int
}

func (d *decoder) next(n int) []byte {
	start := d.pos
	d.pos += n
	if d.pos > len(d.code) {
		return make([]byte, n)
	}
	return d.code[start:d.pos]
}

func (d *decoder) u8() byte { return d.next(1)[0] }

func (d *decoder) u16() uint16 { return binary.BigEndian.Uint16(d.next(2)) }

func (d *decoder) s16() int16 { return int16(d.u16()) }

func (d *decoder) s32() int32 { return int32(binary.BigEndian.Uint32(d.next(4))) }

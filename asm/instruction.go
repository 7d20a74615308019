// Package asm is a symbolic JVM bytecode assembler.
//
// Code is built as an InstructionList: a sequence of instructions addressed by
// stable Handle values. Branches, switches and debug table entries refer to
// other instructions by Handle, never by byte offset. Offsets only exist once
// InstructionList.Layout has computed a Layout, which is also what encodes the
// code array.
package asm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tetratelabs/classgen/opcode"
	"github.com/tetratelabs/classgen/types"
)

// Instruction is one JVM instruction with its operands. The set of
// implementations is closed: Simple, Push, Local, Iinc, Constant,
// InvokeInterface, InvokeDynamic, MultiANewArray, NewArray, Branch and Select.
type Instruction interface {
	// Opcode returns the opcode this instruction is encoded with. It can
	// differ from the one it was created with when a shorter or wider form
	// exists, e.g. ILOAD on slot 1 is encoded as ILOAD_1.
	Opcode() opcode.Opcode

	// Size returns the encoded length in bytes when the instruction starts at
	// position. wide is only meaningful to GOTO and JSR, which then take their
	// 32-bit forms.
	Size(position int, wide bool) int

	// StackEffect returns the number of operand stack slots the instruction
	// pops and pushes. cp is consulted for instructions that refer to field or
	// method descriptors and may be nil otherwise.
	StackEffect(cp ConstantLookup) (consume, produce int, err error)

	String() string

	// encode appends the encoded instruction to buf.
	encode(buf []byte, at *placement) []byte
}

// ConstantLookup is the part of the constant pool needed to derive stack
// effects. *constpool.Pool implements it.
type ConstantLookup interface {
	MemberDescriptor(index uint16) (string, error)
	SlotSize(index uint16) (int, error)
}

// placement is where an instruction is encoded.
type placement struct {
	self     Handle
	position int
	wide     bool
	layout   *Layout
}

func (p *placement) offset(target Handle) int {
	return p.layout.positions[target] - p.position
}

func catalogEffect(op opcode.Opcode) (consume, produce int, err error) {
	consume, produce = opcode.Consume(op), opcode.Produce(op)
	if consume == opcode.Unpredictable || produce == opcode.Unpredictable {
		return 0, 0, fmt.Errorf("stack effect of %s is not in the catalog", opcode.Name(op))
	}
	return
}

// Simple is an instruction without operands, e.g. IADD or RETURN.
type Simple struct {
	op opcode.Opcode
}

// NewSimple returns the operand-less instruction op.
//
// Panics if op takes operands.
func NewSimple(op opcode.Opcode) *Simple {
	if !opcode.Defined(op) || opcode.Length(op) != 1 {
		panic(fmt.Sprintf("%#x is not an instruction without operands", op))
	}
	return &Simple{op: op}
}

func (s *Simple) Opcode() opcode.Opcode { return s.op }

func (s *Simple) Size(int, bool) int { return 1 }

func (s *Simple) StackEffect(ConstantLookup) (int, int, error) {
	return catalogEffect(s.op)
}

func (s *Simple) String() string { return opcode.Name(s.op) }

func (s *Simple) encode(buf []byte, _ *placement) []byte {
	return append(buf, s.op)
}

// Push is BIPUSH or SIPUSH.
type Push struct {
	op    opcode.Opcode
	value int16
}

// NewPush returns BIPUSH or SIPUSH pushing v.
//
// Panics if op is neither or v does not fit its operand.
func NewPush(op opcode.Opcode, v int) *Push {
	switch {
	case op == opcode.BIPUSH && v >= math.MinInt8 && v <= math.MaxInt8,
		op == opcode.SIPUSH && v >= math.MinInt16 && v <= math.MaxInt16:
		return &Push{op: op, value: int16(v)}
	}
	panic(fmt.Sprintf("cannot encode %s %d", opcode.Name(op), v))
}

// NewIntConstant returns the shortest instruction pushing v without the
// constant pool, or false when v needs LDC.
func NewIntConstant(v int32) (Instruction, bool) {
	switch {
	case v >= -1 && v <= 5:
		return &Simple{op: opcode.ICONST_M1 + opcode.Opcode(v+1)}, true
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return &Push{op: opcode.BIPUSH, value: int16(v)}, true
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return &Push{op: opcode.SIPUSH, value: int16(v)}, true
	}
	return nil, false
}

func (p *Push) Opcode() opcode.Opcode { return p.op }

func (p *Push) Value() int { return int(p.value) }

func (p *Push) Size(int, bool) int { return opcode.Length(p.op) }

func (p *Push) StackEffect(ConstantLookup) (int, int, error) { return 0, 1, nil }

func (p *Push) String() string { return fmt.Sprintf("%s %d", opcode.Name(p.op), p.value) }

func (p *Push) encode(buf []byte, _ *placement) []byte {
	if p.op == opcode.BIPUSH {
		return append(buf, p.op, byte(int8(p.value)))
	}
	return binary.BigEndian.AppendUint16(append(buf, p.op), uint16(p.value))
}

// Local is a load or store of a local variable, or RET.
type Local struct {
	op   opcode.Opcode
	slot uint16
}

// NewLocal returns the access op on slot. op is the general form, e.g. ILOAD,
// or a short form such as ILOAD_2 in which case slot must agree with it.
// Slots 0-3 are encoded with their short forms and slots above 255 with a
// WIDE prefix.
//
// Panics if op is not a local variable access or slot is out of range.
func NewLocal(op opcode.Opcode, slot int) *Local {
	if long, s, ok := opcode.LongForm(op); ok {
		if s != slot {
			panic(fmt.Sprintf("%s does not access slot %d", opcode.Name(op), slot))
		}
		op = long
	}
	if !opcode.IsLocalVariable(op) || op == opcode.IINC {
		panic(fmt.Sprintf("%s is not a local variable access", opcode.Name(op)))
	}
	if slot < 0 || slot > math.MaxUint16 {
		panic(fmt.Sprintf("invalid local variable slot %d", slot))
	}
	return &Local{op: op, slot: uint16(slot)}
}

// Opcode returns the short form for slots 0-3, otherwise the general form.
// A WIDE prefix is not reflected.
func (l *Local) Opcode() opcode.Opcode {
	if short, ok := opcode.ShortForm(l.op, int(l.slot)); ok {
		return short
	}
	return l.op
}

// Kind returns the general form, e.g. ILOAD for ILOAD_1.
func (l *Local) Kind() opcode.Opcode { return l.op }

func (l *Local) Slot() int { return int(l.slot) }

// IsStore returns true for the store family.
func (l *Local) IsStore() bool { return l.op >= opcode.ISTORE && l.op <= opcode.ASTORE }

func (l *Local) Size(int, bool) int {
	switch {
	case l.slot > math.MaxUint8:
		return 4
	case l.op != l.Opcode():
		return 1
	}
	return 2
}

func (l *Local) StackEffect(ConstantLookup) (int, int, error) {
	return catalogEffect(l.op)
}

func (l *Local) String() string {
	if op := l.Opcode(); op != l.op {
		return opcode.Name(op)
	}
	return fmt.Sprintf("%s %d", opcode.Name(l.op), l.slot)
}

func (l *Local) encode(buf []byte, _ *placement) []byte {
	switch op := l.Opcode(); {
	case l.slot > math.MaxUint8:
		return binary.BigEndian.AppendUint16(append(buf, opcode.WIDE, l.op), l.slot)
	case op != l.op:
		return append(buf, op)
	}
	return append(buf, l.op, byte(l.slot))
}

// Iinc increments a local int variable by a constant.
type Iinc struct {
	slot  uint16
	delta int16
}

// NewIinc returns IINC, which is WIDE prefixed when slot or delta do not fit a byte.
//
// Panics if slot or delta are out of range.
func NewIinc(slot, delta int) *Iinc {
	if slot < 0 || slot > math.MaxUint16 || delta < math.MinInt16 || delta > math.MaxInt16 {
		panic(fmt.Sprintf("cannot encode iinc %d %d", slot, delta))
	}
	return &Iinc{slot: uint16(slot), delta: int16(delta)}
}

func (i *Iinc) Opcode() opcode.Opcode { return opcode.IINC }

func (i *Iinc) Slot() int { return int(i.slot) }

func (i *Iinc) Delta() int { return int(i.delta) }

func (i *Iinc) wide() bool {
	return i.slot > math.MaxUint8 || i.delta < math.MinInt8 || i.delta > math.MaxInt8
}

func (i *Iinc) Size(int, bool) int {
	if i.wide() {
		return 6
	}
	return 3
}

func (i *Iinc) StackEffect(ConstantLookup) (int, int, error) { return 0, 0, nil }

func (i *Iinc) String() string { return fmt.Sprintf("iinc %d %d", i.slot, i.delta) }

func (i *Iinc) encode(buf []byte, _ *placement) []byte {
	if i.wide() {
		buf = binary.BigEndian.AppendUint16(append(buf, opcode.WIDE, opcode.IINC), i.slot)
		return binary.BigEndian.AppendUint16(buf, uint16(i.delta))
	}
	return append(buf, opcode.IINC, byte(i.slot), byte(int8(i.delta)))
}

// Constant is an instruction with a single constant pool index operand: LDC
// and its wide forms, field access, invokes other than INVOKEINTERFACE and
// INVOKEDYNAMIC, NEW, ANEWARRAY, CHECKCAST and INSTANCEOF.
type Constant struct {
	op    opcode.Opcode
	index uint16
}

// NewConstant returns op referring to the constant pool entry at index. LDC
// and LDC_W are interchangeable: the shortest form that fits index is used.
//
// Panics if op does not take a single constant pool index.
func NewConstant(op opcode.Opcode, index uint16) *Constant {
	switch op {
	case opcode.INVOKEINTERFACE, opcode.INVOKEDYNAMIC, opcode.MULTIANEWARRAY:
		panic(fmt.Sprintf("%s takes more than a constant pool index", opcode.Name(op)))
	case opcode.LDC_W:
		op = opcode.LDC
	}
	if !opcode.IsConstantPool(op) {
		panic(fmt.Sprintf("%s does not refer to the constant pool", opcode.Name(op)))
	}
	return &Constant{op: op, index: index}
}

func (c *Constant) Opcode() opcode.Opcode {
	if c.op == opcode.LDC && c.index > math.MaxUint8 {
		return opcode.LDC_W
	}
	return c.op
}

func (c *Constant) Index() uint16 { return c.index }

func (c *Constant) Size(int, bool) int { return opcode.Length(c.Opcode()) }

func (c *Constant) StackEffect(cp ConstantLookup) (consume, produce int, err error) {
	switch c.op {
	case opcode.LDC:
		if cp == nil {
			return 0, 0, errNoConstantPool
		}
		produce, err = cp.SlotSize(c.index)
		return 0, produce, err
	case opcode.GETSTATIC, opcode.PUTSTATIC, opcode.GETFIELD, opcode.PUTFIELD:
		size, err := fieldSize(cp, c.index)
		if err != nil {
			return 0, 0, err
		}
		switch c.op {
		case opcode.GETSTATIC:
			return 0, size, nil
		case opcode.PUTSTATIC:
			return size, 0, nil
		case opcode.GETFIELD:
			return 1, size, nil
		}
		return 1 + size, 0, nil
	case opcode.INVOKEVIRTUAL, opcode.INVOKESPECIAL, opcode.INVOKESTATIC:
		args, ret, err := methodSizes(cp, c.index)
		if err != nil {
			return 0, 0, err
		}
		if c.op != opcode.INVOKESTATIC {
			args++
		}
		return args, ret, nil
	}
	return catalogEffect(c.op)
}

func (c *Constant) String() string {
	return fmt.Sprintf("%s #%d", opcode.Name(c.Opcode()), c.index)
}

func (c *Constant) encode(buf []byte, _ *placement) []byte {
	if op := c.Opcode(); op == opcode.LDC {
		return append(buf, op, byte(c.index))
	}
	return binary.BigEndian.AppendUint16(append(buf, c.Opcode()), c.index)
}

// InvokeInterface is INVOKEINTERFACE, which carries an argument count.
type InvokeInterface struct {
	index uint16
	count byte
}

// NewInvokeInterface returns INVOKEINTERFACE on the method at index. count is
// the number of argument slots including the receiver.
func NewInvokeInterface(index uint16, count byte) *InvokeInterface {
	return &InvokeInterface{index: index, count: count}
}

func (i *InvokeInterface) Opcode() opcode.Opcode { return opcode.INVOKEINTERFACE }

func (i *InvokeInterface) Index() uint16 { return i.index }

func (i *InvokeInterface) Count() int { return int(i.count) }

func (i *InvokeInterface) Size(int, bool) int { return 5 }

func (i *InvokeInterface) StackEffect(cp ConstantLookup) (int, int, error) {
	args, ret, err := methodSizes(cp, i.index)
	if err != nil {
		return 0, 0, err
	}
	return args + 1, ret, nil
}

func (i *InvokeInterface) String() string {
	return fmt.Sprintf("invokeinterface #%d %d", i.index, i.count)
}

func (i *InvokeInterface) encode(buf []byte, _ *placement) []byte {
	buf = binary.BigEndian.AppendUint16(append(buf, opcode.INVOKEINTERFACE), i.index)
	return append(buf, i.count, 0)
}

// InvokeDynamic is INVOKEDYNAMIC on a CONSTANT_InvokeDynamic entry.
type InvokeDynamic struct {
	index uint16
}

func NewInvokeDynamic(index uint16) *InvokeDynamic {
	return &InvokeDynamic{index: index}
}

func (i *InvokeDynamic) Opcode() opcode.Opcode { return opcode.INVOKEDYNAMIC }

func (i *InvokeDynamic) Index() uint16 { return i.index }

func (i *InvokeDynamic) Size(int, bool) int { return 5 }

func (i *InvokeDynamic) StackEffect(cp ConstantLookup) (int, int, error) {
	return methodSizes(cp, i.index)
}

func (i *InvokeDynamic) String() string { return fmt.Sprintf("invokedynamic #%d", i.index) }

func (i *InvokeDynamic) encode(buf []byte, _ *placement) []byte {
	buf = binary.BigEndian.AppendUint16(append(buf, opcode.INVOKEDYNAMIC), i.index)
	return append(buf, 0, 0)
}

// MultiANewArray creates a multidimensional array of the class at index.
type MultiANewArray struct {
	index      uint16
	dimensions byte
}

// NewMultiANewArray panics if dimensions is zero.
func NewMultiANewArray(index uint16, dimensions byte) *MultiANewArray {
	if dimensions == 0 {
		panic("multianewarray needs at least one dimension")
	}
	return &MultiANewArray{index: index, dimensions: dimensions}
}

func (m *MultiANewArray) Opcode() opcode.Opcode { return opcode.MULTIANEWARRAY }

func (m *MultiANewArray) Index() uint16 { return m.index }

func (m *MultiANewArray) Dimensions() int { return int(m.dimensions) }

func (m *MultiANewArray) Size(int, bool) int { return 4 }

func (m *MultiANewArray) StackEffect(ConstantLookup) (int, int, error) {
	return int(m.dimensions), 1, nil
}

func (m *MultiANewArray) String() string {
	return fmt.Sprintf("multianewarray #%d %d", m.index, m.dimensions)
}

func (m *MultiANewArray) encode(buf []byte, _ *placement) []byte {
	buf = binary.BigEndian.AppendUint16(append(buf, opcode.MULTIANEWARRAY), m.index)
	return append(buf, m.dimensions)
}

// NewArray is NEWARRAY of a primitive element type.
type NewArray struct {
	element types.BasicType
}

// NewPrimitiveArray returns NEWARRAY of element.
//
// Panics if element is void.
func NewPrimitiveArray(element types.BasicType) *NewArray {
	if _, ok := element.ArrayTypeCode(); !ok {
		panic(fmt.Sprintf("cannot create an array of %s", element))
	}
	return &NewArray{element: element}
}

func (n *NewArray) Opcode() opcode.Opcode { return opcode.NEWARRAY }

func (n *NewArray) Element() types.BasicType { return n.element }

func (n *NewArray) Size(int, bool) int { return 2 }

func (n *NewArray) StackEffect(ConstantLookup) (int, int, error) { return 1, 1, nil }

func (n *NewArray) String() string { return "newarray " + n.element.String() }

func (n *NewArray) encode(buf []byte, _ *placement) []byte {
	code, _ := n.element.ArrayTypeCode()
	return append(buf, opcode.NEWARRAY, code)
}

func fieldSize(cp ConstantLookup, index uint16) (int, error) {
	if cp == nil {
		return 0, errNoConstantPool
	}
	desc, err := cp.MemberDescriptor(index)
	if err != nil {
		return 0, err
	}
	t, err := types.ParseDescriptor(desc)
	if err != nil {
		return 0, err
	}
	return t.Size(), nil
}

func methodSizes(cp ConstantLookup, index uint16) (args, ret int, err error) {
	if cp == nil {
		return 0, 0, errNoConstantPool
	}
	desc, err := cp.MemberDescriptor(index)
	if err != nil {
		return 0, 0, err
	}
	argTypes, retType, err := types.ParseMethodDescriptor(desc)
	if err != nil {
		return 0, 0, err
	}
	return types.ArgumentsSize(argTypes), retType.Size(), nil
}

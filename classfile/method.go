package classfile

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/constpool"
	"github.com/tetratelabs/classgen/opcode"
	"github.com/tetratelabs/classgen/types"
)

// MethodGen builds one method_info structure. Its body is an
// asm.InstructionList which is laid out and encoded when the class is written.
type MethodGen struct {
	access     AccessFlags
	name       string
	args       []types.Type
	ret        types.Type
	pool       *constpool.Pool
	list       *asm.InstructionList
	exceptions []string
	attrs      []Attribute
	logger     zerolog.Logger
}

// NewMethodGen returns a method with an empty body. Constants referenced by
// its instructions must be added to pool.
func NewMethodGen(access AccessFlags, name, descriptor string, pool *constpool.Pool) (*MethodGen, error) {
	args, ret, err := types.ParseMethodDescriptor(descriptor)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", name, err)
	}
	return &MethodGen{
		access: access,
		name:   name,
		args:   args,
		ret:    ret,
		pool:   pool,
		list:   asm.NewInstructionList(),
		logger: zerolog.Nop(),
	}, nil
}

// SetLogger sets the logger passed to layout.
func (m *MethodGen) SetLogger(logger zerolog.Logger) { m.logger = logger }

func (m *MethodGen) Access() AccessFlags { return m.access }

func (m *MethodGen) SetAccess(access AccessFlags) { m.access = access }

func (m *MethodGen) Name() string { return m.name }

func (m *MethodGen) Descriptor() string { return types.MethodDescriptor(m.args, m.ret) }

func (m *MethodGen) ArgumentTypes() []types.Type { return append([]types.Type(nil), m.args...) }

func (m *MethodGen) ReturnType() types.Type { return m.ret }

// Instructions returns the body of the method.
func (m *MethodGen) Instructions() *asm.InstructionList { return m.list }

// Pool returns the constant pool instructions of the method index into.
func (m *MethodGen) Pool() *constpool.Pool { return m.pool }

// AddException declares a checked exception thrown by the method.
func (m *MethodGen) AddException(class string) {
	for _, c := range m.exceptions {
		if c == class {
			return
		}
	}
	m.exceptions = append(m.exceptions, class)
}

// Exceptions returns the declared checked exceptions.
func (m *MethodGen) Exceptions() []string { return append([]string(nil), m.exceptions...) }

// AttachAttribute adds a method attribute. Code and Exceptions are generated
// and must not be attached.
func (m *MethodGen) AttachAttribute(a Attribute) { m.attrs = append(m.attrs, a) }

// hasCode returns true unless the method is abstract or native.
func (m *MethodGen) hasCode() bool {
	return m.access&(AccAbstract|AccNative) == 0
}

// MaxLocals returns the number of local variable slots the method uses: its
// arguments, including this, and every slot accessed by an instruction or
// described by a local variable entry.
func (m *MethodGen) MaxLocals() int {
	n := types.ArgumentsSize(m.args)
	if !m.access.Has(AccStatic) {
		n++
	}
	use := func(slot, size int) {
		if slot+size > n {
			n = slot + size
		}
	}
	for h := m.list.First(); h != asm.NoHandle; h = m.list.Next(h) {
		switch in := m.list.Instruction(h).(type) {
		case *asm.Local:
			switch in.Kind() {
			case opcode.LLOAD, opcode.DLOAD, opcode.LSTORE, opcode.DSTORE:
				use(in.Slot(), 2)
			default:
				use(in.Slot(), 1)
			}
		case *asm.Iinc:
			use(in.Slot(), 1)
		}
	}
	for _, g := range m.list.LocalVariables() {
		use(g.Slot(), g.Type().Size())
	}
	return n
}

// MaxStack returns the maximum operand stack depth of the method, following
// every path through the body including exception handlers, which start with
// the thrown exception on the stack.
//
// ErrInconsistentStack is returned when an instruction is reached with
// different depths or pops more than the stack holds.
func (m *MethodGen) MaxStack() (int, error) {
	l := m.list
	if l.Len() == 0 {
		return 0, nil
	}

	depth := map[asm.Handle]int{}
	var work []asm.Handle
	reach := func(h asm.Handle, d int) error {
		if old, ok := depth[h]; ok {
			if old != d {
				return fmt.Errorf("%w: %s %s reached with depth %d and %d", ErrInconsistentStack, h, l.Instruction(h), old, d)
			}
			return nil
		}
		depth[h] = d
		work = append(work, h)
		return nil
	}

	maxDepth := 0
	_ = reach(l.First(), 0)
	for _, g := range l.ExceptionHandlers() {
		if err := reach(g.Handler(), 1); err != nil {
			return 0, err
		}
		maxDepth = 1
	}

	for len(work) > 0 {
		h := work[len(work)-1]
		work = work[:len(work)-1]
		d := depth[h]

		insn := l.Instruction(h)
		consume, produce, err := insn.StackEffect(m.pool)
		if err != nil {
			return 0, fmt.Errorf("%s %s: %w", h, insn, err)
		}
		if consume > d {
			return 0, fmt.Errorf("%w: %s %s pops %d with depth %d", ErrInconsistentStack, h, insn, consume, d)
		}
		after := d - consume + produce
		if after > maxDepth {
			maxDepth = after
		}

		var subroutine asm.Handle
		if op := insn.Opcode(); op == opcode.JSR || op == opcode.JSR_W {
			subroutine = insn.(*asm.Branch).Target()
		}
		for _, s := range l.Successors(h) {
			sd := after
			if subroutine != asm.NoHandle && s != subroutine {
				// RET returns here without the return address.
				sd = d
			}
			if err = reach(s, sd); err != nil {
				return 0, err
			}
		}
	}
	return maxDepth, nil
}

// Code lays out the body and returns its Code attribute, with line number
// and local variable tables when the body has any.
func (m *MethodGen) Code(opts ...asm.LayoutOption) (*Code, error) {
	if m.list.Len() == 0 {
		return nil, fmt.Errorf("%w: %s%s", ErrMissingCode, m.name, m.Descriptor())
	}
	maxStack, err := m.MaxStack()
	if err != nil {
		return nil, err
	}
	opts = append([]asm.LayoutOption{asm.WithLogger(m.logger)}, opts...)
	lay, err := m.list.Layout(opts...)
	if err != nil {
		return nil, err
	}
	code, err := lay.Code()
	if err != nil {
		return nil, err
	}
	table, err := lay.ExceptionTable()
	if err != nil {
		return nil, err
	}
	c := &Code{MaxStack: maxStack, MaxLocals: m.MaxLocals(), Code: code, ExceptionTable: table}

	lines, err := lay.LineNumbers()
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		c.Attributes = append(c.Attributes, LineNumberTable(lines))
	}
	locals, err := lay.LocalVariables()
	if err != nil {
		return nil, err
	}
	if len(locals) > 0 {
		c.Attributes = append(c.Attributes, LocalVariableTable(locals))
	}
	return c, nil
}

// encode appends the method_info structure.
func (m *MethodGen) encode(buf []byte, opts []asm.LayoutOption) ([]byte, error) {
	var attrs []Attribute
	switch {
	case m.hasCode():
		c, err := m.Code(opts...)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, c)
	case m.list.Len() > 0:
		return nil, fmt.Errorf("%s method %s has code", m.access, m.name)
	}
	if len(m.exceptions) > 0 {
		attrs = append(attrs, &Exceptions{Classes: m.exceptions})
	}
	attrs = append(attrs, m.attrs...)

	name, err := m.pool.AddUtf8(m.name)
	if err != nil {
		return nil, err
	}
	desc, err := m.pool.AddUtf8(m.Descriptor())
	if err != nil {
		return nil, err
	}
	buf = appendU16s(buf, uint16(m.access), name, desc)
	if buf, err = appendAttributes(buf, m.pool, attrs); err != nil {
		return nil, fmt.Errorf("method %s: %w", m.name, err)
	}
	return buf, nil
}

func (m *MethodGen) String() string {
	s := m.name + m.Descriptor()
	if a := m.access.String(); a != "" {
		s = a + " " + s
	}
	return s
}

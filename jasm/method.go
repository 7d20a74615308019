package jasm

import (
	"fmt"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/opcode"
)

// method is the state of the method being assembled. References to labels
// are resolved by finish, once every label is known.
type method struct {
	gen  *classfile.MethodGen
	list *asm.InstructionList

	labels        map[string]asm.Handle
	labelLines    map[string]int
	pendingLabels []string
	pendingLine   int

	// deferred runs at .end method, in order.
	deferred []deferred
	sw       *switchBlock
}

type deferred struct {
	line int
	fn   func() error
}

// lineErr is an error found after the line it belongs to was read.
type lineErr struct {
	line int
	err  error
}

func newMethod(gen *classfile.MethodGen) *method {
	return &method{
		gen:         gen,
		list:        gen.Instructions(),
		labels:      map[string]asm.Handle{},
		labelLines:  map[string]int{},
		pendingLine: -1,
	}
}

func (m *method) later(line int, fn func() error) {
	m.deferred = append(m.deferred, deferred{line: line, fn: fn})
}

func (m *method) defineLabel(name string, line int) error {
	if prev, ok := m.labelLines[name]; ok {
		return syntaxf("label %s already defined on line %d", name, prev)
	}
	m.labelLines[name] = line
	m.pendingLabels = append(m.pendingLabels, name)
	return nil
}

func (m *method) resolve(label string) (asm.Handle, error) {
	h, ok := m.labels[label]
	if !ok {
		if _, defined := m.labelLines[label]; defined {
			return asm.NoHandle, syntaxf("label %s is not followed by an instruction", label)
		}
		return asm.NoHandle, syntaxf("undefined label %s", label)
	}
	return h, nil
}

// append adds insn, binding pending labels and the pending line number to it.
func (m *method) append(insn asm.Instruction) asm.Handle {
	h := m.list.Append(insn)
	for _, l := range m.pendingLabels {
		m.labels[l] = h
	}
	m.pendingLabels = m.pendingLabels[:0]
	if m.pendingLine >= 0 {
		if _, err := m.list.AddLineNumber(h, m.pendingLine); err != nil {
			panic(fmt.Sprintf("BUG: line %d was validated: %v", m.pendingLine, err))
		}
		m.pendingLine = -1
	}
	return h
}

// branchTo adds a branch whose target is resolved by finish.
func (m *method) branchTo(op opcode.Opcode, label string, line int) {
	h := m.append(asm.NewBranch(op, asm.NoHandle))
	m.later(line, func() error {
		t, err := m.resolve(label)
		if err != nil {
			return err
		}
		return m.list.SetTarget(h, t)
	})
}

// finish resolves every label reference and returns the problems found.
func (m *method) finish() []lineErr {
	var errs []lineErr
	if m.sw != nil {
		errs = append(errs, lineErr{m.sw.line, syntaxf("%s is missing its default entry", m.sw.kind)})
	}
	for _, d := range m.deferred {
		if err := d.fn(); err != nil {
			errs = append(errs, lineErr{d.line, err})
		}
	}
	for _, l := range m.pendingLabels {
		errs = append(errs, lineErr{m.labelLines[l], syntaxf("label %s is not followed by an instruction", l)})
	}
	return errs
}

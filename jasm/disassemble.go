package jasm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/constpool"
	"github.com/tetratelabs/classgen/opcode"
)

// Style decorates the parts of a listing. Each func formats like fmt.Sprintf.
type Style struct {
	Directive, Instruction, Label, Literal, Comment func(format string, a ...any) string
}

// PlainStyle leaves the listing undecorated.
var PlainStyle = Style{
	Directive:   fmt.Sprintf,
	Instruction: fmt.Sprintf,
	Label:       fmt.Sprintf,
	Literal:     fmt.Sprintf,
	Comment:     fmt.Sprintf,
}

const indent = "    "

// Disassemble writes cf in the form Assemble reads. Instructions that cannot
// be assembled, such as invokedynamic, are written with a comment.
func Disassemble(w io.Writer, cf *classfile.ClassFile, style Style) error {
	d := &disassembler{w: bufio.NewWriter(w), cp: cf.Pool, style: style}

	d.printf("%s %s\n", d.style.Directive(".class"), joinAccess(cf.Access, cf.ThisClass, true))
	if cf.SuperClass != "" {
		d.printf("%s %s\n", d.style.Directive(".super"), cf.SuperClass)
	}
	for _, i := range cf.Interfaces {
		d.printf("%s %s\n", d.style.Directive(".implements"), i)
	}
	d.printf("%s\n", d.style.Comment("# version %s, java %s", cf.Version, cf.Version.Release()))
	for _, a := range cf.Attributes {
		if s, ok := a.(*classfile.SourceFile); ok {
			d.printf("%s %s\n", d.style.Directive(".source"), d.style.Literal("%s", strconv.Quote(s.File)))
		} else {
			d.attributeComment("", a)
		}
	}

	for _, f := range cf.Fields {
		d.field(f)
	}
	for _, m := range cf.Methods {
		if err := d.method(m); err != nil {
			return fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
		}
	}
	return d.w.Flush()
}

type disassembler struct {
	w     *bufio.Writer
	cp    *constpool.Pool
	style Style
}

func (d *disassembler) printf(format string, a ...any) {
	fmt.Fprintf(d.w, format, a...)
}

func joinAccess(access classfile.AccessFlags, rest string, class bool) string {
	words := strings.Fields(access.String())
	if class {
		for i, w := range words {
			// Class files reuse the synchronized bit as super.
			if w == "synchronized" {
				words[i] = "super"
			}
		}
	}
	return strings.Join(append(words, rest), " ")
}

func (d *disassembler) attributeComment(prefix string, a classfile.Attribute) {
	size := 0
	if r, ok := a.(*classfile.Raw); ok {
		size = len(r.Payload)
	}
	d.printf("%s%s\n", prefix, d.style.Comment("# attribute %s (%d bytes)", a.Name(), size))
}

func (d *disassembler) field(f *classfile.Member) {
	d.printf("\n%s %s", d.style.Directive(".field"), joinAccess(f.Access, f.Name+" "+f.Descriptor, false))
	if a, ok := f.Attribute(classfile.AttributeConstantValue); ok {
		d.printf(" = %s", d.style.Literal("%s", d.literal(a.(*classfile.ConstantValue).Index)))
	}
	d.printf("\n")
	for _, a := range f.Attributes {
		if a.Name() != classfile.AttributeConstantValue {
			d.attributeComment("", a)
		}
	}
}

// literal renders a loadable constant the way parseConstant reads it.
func (d *disassembler) literal(index uint16) string {
	e, err := d.cp.Entry(index)
	if err != nil {
		return fmt.Sprintf("#%d", index)
	}
	switch e.Tag {
	case constpool.TagInteger:
		return strconv.FormatInt(int64(int32(uint32(e.Bits))), 10)
	case constpool.TagLong:
		return strconv.FormatInt(int64(e.Bits), 10)
	case constpool.TagFloat:
		return formatFloat(float64(math.Float32frombits(uint32(e.Bits))), 32, "f")
	case constpool.TagDouble:
		return formatFloat(math.Float64frombits(e.Bits), 64, "d")
	case constpool.TagString:
		s, _ := d.cp.Utf8(e.Ref1)
		return strconv.Quote(s)
	case constpool.TagClass:
		n, _ := d.cp.ClassName(index)
		return "class " + n
	}
	return fmt.Sprintf("#%d", index)
}

func formatFloat(v float64, bits int, suffix string) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'g', -1, bits) + suffix
}

// code is a decoded method body with the offsets of its instructions.
type code struct {
	*classfile.Code
	list   *asm.InstructionList
	pc     map[asm.Handle]int
	at     map[int]asm.Handle
	ends   map[int]asm.Handle // by end offset, exclusive
	labels map[asm.Handle]bool
}

func (c *code) label(h asm.Handle) string {
	return fmt.Sprintf("L%d", c.pc[h])
}

func decodeCode(attr *classfile.Code) (*code, error) {
	list, at, err := attr.Instructions()
	if err != nil {
		return nil, err
	}
	c := &code{Code: attr, list: list, at: at, pc: map[asm.Handle]int{}, ends: map[int]asm.Handle{}, labels: map[asm.Handle]bool{}}
	pcs := make([]int, 0, len(at))
	for pc, h := range at {
		c.pc[h] = pc
		pcs = append(pcs, pc)
	}
	sort.Ints(pcs)
	for i, pc := range pcs {
		end := len(attr.Code)
		if i+1 < len(pcs) {
			end = pcs[i+1]
		}
		c.ends[end] = at[pc]
	}
	for _, h := range list.Handles() {
		if list.IsTargeted(h) {
			c.labels[h] = true
		}
	}
	return c, nil
}

func (d *disassembler) method(m *classfile.Member) error {
	d.printf("\n%s %s\n", d.style.Directive(".method"), joinAccess(m.Access, m.Name+" "+m.Descriptor, false))
	for _, a := range m.Attributes {
		switch a := a.(type) {
		case *classfile.Exceptions:
			for _, e := range a.Classes {
				d.printf("%s%s %s\n", indent, d.style.Directive(".throws"), e)
			}
		case *classfile.Code:
		default:
			d.attributeComment(indent, a)
		}
	}

	if attr := m.Code(); attr != nil {
		c, err := decodeCode(attr)
		if err != nil {
			return err
		}
		d.printf("%s\n", d.style.Comment("%s# max_stack %d, max_locals %d", indent, attr.MaxStack, attr.MaxLocals))
		if err = d.body(c); err != nil {
			return err
		}
	}
	d.printf("%s\n", d.style.Directive(".end method"))
	return nil
}

func (d *disassembler) body(c *code) error {
	lines := map[int][]int{}
	var trailer []string
	for _, a := range c.Attributes {
		switch a := a.(type) {
		case classfile.LineNumberTable:
			for _, e := range a {
				lines[e.StartPC] = append(lines[e.StartPC], e.Line)
			}
		case classfile.LocalVariableTable:
			for _, v := range a {
				start, ok := c.at[v.StartPC]
				end := start
				if v.Length > 0 {
					end, ok = c.ends[v.StartPC+v.Length]
					ok = ok && start != asm.NoHandle
				}
				if !ok {
					trailer = append(trailer, d.style.Comment("%s# local %d %s %s covers no instruction boundary", indent, v.Slot, v.Name, v.Type.Descriptor()))
					continue
				}
				c.labels[start], c.labels[end] = true, true
				trailer = append(trailer, fmt.Sprintf("%s%s %d %s %s from %s to %s", indent, d.style.Directive(".var"),
					v.Slot, v.Name, v.Type.Descriptor(), d.style.Label("%s", c.label(start)), d.style.Label("%s", c.label(end))))
			}
		default:
			d.attributeComment(indent, a)
		}
	}
	for _, e := range c.ExceptionTable {
		start, ok1 := c.at[e.StartPC]
		end, ok2 := c.ends[e.EndPC]
		handler, ok3 := c.at[e.HandlerPC]
		if !ok1 || !ok2 || !ok3 {
			return fmt.Errorf("%w: exception handler %d-%d at %d", asm.ErrInvalidCode, e.StartPC, e.EndPC, e.HandlerPC)
		}
		catchType := "any"
		if e.CatchType != nil {
			catchType = e.CatchType.InternalName()
		}
		c.labels[start], c.labels[end], c.labels[handler] = true, true, true
		trailer = append(trailer, fmt.Sprintf("%s%s %s from %s to %s using %s", indent, d.style.Directive(".catch"),
			catchType, d.style.Label("%s", c.label(start)), d.style.Label("%s", c.label(end)), d.style.Label("%s", c.label(handler))))
	}

	for _, h := range c.list.Handles() {
		pc := c.pc[h]
		for _, n := range lines[pc] {
			d.printf("%s%s %d\n", indent, d.style.Directive(".line"), n)
		}
		if c.labels[h] {
			d.printf("%s\n", d.style.Label("%s:", c.label(h)))
		}
		d.instruction(c, h)
	}
	for _, t := range trailer {
		d.printf("%s\n", t)
	}
	return nil
}

func (d *disassembler) instruction(c *code, h asm.Handle) {
	insn := c.list.Instruction(h)
	name := d.style.Instruction("%s", opcode.Name(insn.Opcode()))
	switch in := insn.(type) {
	case *asm.Branch:
		d.printf("%s%s %s\n", indent, name, d.style.Label("%s", c.label(in.Target())))
	case *asm.Select:
		if in.Opcode() == opcode.TABLESWITCH {
			low, _ := in.Bounds()
			d.printf("%s%s %d\n", indent, name, low)
			for _, t := range in.Targets() {
				d.printf("%s%s%s\n", indent, indent, d.style.Label("%s", c.label(t)))
			}
		} else {
			d.printf("%s%s\n", indent, name)
			for i, t := range in.Targets() {
				d.printf("%s%s%d: %s\n", indent, indent, in.Matches()[i], d.style.Label("%s", c.label(t)))
			}
		}
		d.printf("%s%sdefault: %s\n", indent, indent, d.style.Label("%s", c.label(in.Default())))
	case *asm.Constant:
		d.printf("%s%s %s\n", indent, name, d.constantOperand(in))
	case *asm.InvokeInterface:
		d.printf("%s%s %s\n", indent, name, d.member(in.Index()))
	case *asm.MultiANewArray:
		class, _ := d.cp.ClassName(in.Index())
		d.printf("%s%s %s %d\n", indent, name, class, in.Dimensions())
	case *asm.InvokeDynamic:
		d.printf("%s%s #%d %s\n", indent, name, in.Index(), d.style.Comment("# %s", d.cp.Describe(in.Index())))
	case *asm.Simple:
		d.printf("%s%s\n", indent, name)
	default:
		// Push, Local, Iinc and NewArray print their operands in source form.
		d.printf("%s%s\n", indent, d.style.Instruction("%s", insn.String()))
	}
}

func (d *disassembler) constantOperand(c *asm.Constant) string {
	op := c.Opcode()
	switch {
	case op == opcode.LDC, op == opcode.LDC_W, op == opcode.LDC2_W:
		return d.style.Literal("%s", d.literal(c.Index()))
	case opcode.IsFieldAccess(op), opcode.IsInvoke(op):
		return d.member(c.Index())
	}
	class, err := d.cp.ClassName(c.Index())
	if err != nil {
		return fmt.Sprintf("#%d", c.Index())
	}
	return class
}

// member renders a field or method reference as "owner.name descriptor".
func (d *disassembler) member(index uint16) string {
	class, name, desc, err := d.cp.Member(index)
	if err != nil {
		return fmt.Sprintf("#%d", index)
	}
	return class + "." + name + " " + desc
}

package jasm

import (
	"math"
	"strconv"
	"strings"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/opcode"
	"github.com/tetratelabs/classgen/types"
)

// switchBlock is an open tableswitch, lookupswitch or switch. Entries follow
// on their own lines and "default: label" closes the block.
//
//	tableswitch 1      lookupswitch       switch
//	    one                10: ten            10: ten
//	    two                5: five            11: eleven
//	    default: other     default: other     default: other
//
// switch lets the assembler pick the smaller of the two encodings.
type switchBlock struct {
	kind    string
	line    int
	next    int64 // next tableswitch match
	matches []int32
	labels  []string
}

func (m *method) parseInstruction(toks []token, line int) error {
	if toks[0].quoted {
		return syntaxf("unexpected string %q", toks[0].text)
	}
	name := toks[0].text
	op, ok := opcode.Lookup(name)
	if !ok && name != "switch" {
		return syntaxf("unknown instruction %s", name)
	}
	// Only ldc operands may be strings.
	var args []string
	var err error
	if !ok || (op != opcode.LDC && op != opcode.LDC_W && op != opcode.LDC2_W) {
		if args, err = words(toks[1:]); err != nil {
			return syntaxf("%v", err)
		}
	}
	want := func(n int, usage string) error {
		if len(args) != n {
			return syntaxf("%s wants %s", name, usage)
		}
		return nil
	}

	if name == "switch" {
		if err = want(0, "no operands"); err != nil {
			return err
		}
		m.sw = &switchBlock{kind: name, line: line}
		return nil
	}
	pool := m.gen.Pool()

	switch {
	case op == opcode.WIDE:
		return syntaxf("wide is added when needed and cannot be written")
	case op == opcode.TABLESWITCH:
		if err = want(1, "the lowest match"); err != nil {
			return err
		}
		low, err := parseInt(args[0], 32)
		if err != nil {
			return syntaxf("%v", err)
		}
		m.sw = &switchBlock{kind: name, line: line, next: low}
	case op == opcode.LOOKUPSWITCH:
		if err = want(0, "no operands"); err != nil {
			return err
		}
		m.sw = &switchBlock{kind: name, line: line}
	case opcode.IsBranch(op):
		if err = want(1, "a label"); err != nil {
			return err
		}
		if !isIdentifier(args[0]) {
			return syntaxf("invalid label %q", args[0])
		}
		m.branchTo(op, args[0], line)
	case op == opcode.IINC:
		if err = want(2, "a slot and an increment"); err != nil {
			return err
		}
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		delta, err := parseInt(args[1], 16)
		if err != nil {
			return syntaxf("%v", err)
		}
		m.append(asm.NewIinc(slot, int(delta)))
	case op == opcode.BIPUSH, op == opcode.SIPUSH:
		if err = want(1, "a value"); err != nil {
			return err
		}
		bits := 8
		if op == opcode.SIPUSH {
			bits = 16
		}
		v, err := parseInt(args[0], bits)
		if err != nil {
			return syntaxf("%v", err)
		}
		m.append(asm.NewPush(op, int(v)))
	case op == opcode.NEWARRAY:
		if err = want(1, "a primitive type"); err != nil {
			return err
		}
		elem, ok := primitive(args[0])
		if !ok {
			return syntaxf("invalid primitive type %q", args[0])
		}
		m.append(asm.NewPrimitiveArray(elem))
	case op == opcode.MULTIANEWARRAY:
		if err = want(2, "an array descriptor and dimensions"); err != nil {
			return err
		}
		arr, err := types.ParseDescriptor(args[0])
		if err != nil {
			return err
		}
		at, ok := arr.(*types.ArrayType)
		dims, err := strconv.Atoi(args[1])
		if !ok || err != nil || dims < 1 || dims > at.Dimensions() {
			return syntaxf("invalid multianewarray %s %s", args[0], args[1])
		}
		index, err := pool.AddClass(at.InternalName())
		if err != nil {
			return err
		}
		m.append(asm.NewMultiANewArray(index, byte(dims)))
	case op == opcode.INVOKEDYNAMIC:
		return syntaxf("invokedynamic needs bootstrap methods, which are not supported")
	case op == opcode.INVOKEINTERFACE:
		if err = want(2, "owner.name and a method descriptor"); err != nil {
			return err
		}
		owner, member, err := splitMember(args[0])
		if err != nil {
			return err
		}
		argTypes, _, err := types.ParseMethodDescriptor(args[1])
		if err != nil {
			return err
		}
		index, err := pool.AddInterfaceMethodref(owner, member, args[1])
		if err != nil {
			return err
		}
		m.append(asm.NewInvokeInterface(index, byte(types.ArgumentsSize(argTypes)+1)))
	case opcode.IsInvoke(op):
		if err = want(2, "owner.name and a method descriptor"); err != nil {
			return err
		}
		owner, member, err := splitMember(args[0])
		if err != nil {
			return err
		}
		if _, _, err = types.ParseMethodDescriptor(args[1]); err != nil {
			return err
		}
		index, err := pool.AddMethodref(owner, member, args[1])
		if err != nil {
			return err
		}
		m.append(asm.NewConstant(op, index))
	case opcode.IsFieldAccess(op):
		if err = want(2, "owner.name and a field descriptor"); err != nil {
			return err
		}
		owner, member, err := splitMember(args[0])
		if err != nil {
			return err
		}
		if _, err = types.ParseDescriptor(args[1]); err != nil {
			return err
		}
		index, err := pool.AddFieldref(owner, member, args[1])
		if err != nil {
			return err
		}
		m.append(asm.NewConstant(op, index))
	case op == opcode.LDC, op == opcode.LDC_W, op == opcode.LDC2_W:
		index, err := m.parseConstant(op, toks[1:])
		if err != nil {
			return err
		}
		m.append(asm.NewConstant(op, index))
	case opcode.IsConstantPool(op):
		// new, anewarray, checkcast and instanceof
		if err = want(1, "a class name"); err != nil {
			return err
		}
		index, err := pool.AddClass(strings.ReplaceAll(args[0], ".", "/"))
		if err != nil {
			return err
		}
		m.append(asm.NewConstant(op, index))
	case opcode.IsLocalVariable(op):
		if err = want(1, "a slot"); err != nil {
			return err
		}
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		m.append(asm.NewLocal(op, slot))
	case opcode.Length(op) == 1:
		if err = want(0, "no operands"); err != nil {
			return err
		}
		if long, slot, ok := opcode.LongForm(op); ok {
			m.append(asm.NewLocal(long, slot))
		} else {
			m.append(asm.NewSimple(op))
		}
	default:
		return syntaxf("cannot assemble %s", name)
	}
	return nil
}

// parseConstant adds the operand of an ldc family instruction to the pool:
// an integer, a float with an f suffix, a string, or "class name". ldc2_w
// takes a long or double instead.
func (m *method) parseConstant(op opcode.Opcode, args []token) (uint16, error) {
	pool := m.gen.Pool()
	name := opcode.Name(op)
	switch {
	case len(args) == 1 && args[0].quoted && op != opcode.LDC2_W:
		return pool.AddString(args[0].text)
	case len(args) == 2 && !args[0].quoted && args[0].text == "class" && op != opcode.LDC2_W:
		return pool.AddClass(strings.ReplaceAll(args[1].text, ".", "/"))
	case len(args) != 1 || args[0].quoted:
		return 0, syntaxf("%s wants one constant", name)
	}

	s := args[0].text
	isFloat := isFloatLiteral(s)
	switch {
	case op == opcode.LDC2_W && isFloat:
		v, err := parseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return 0, err
		}
		return pool.AddDouble(v)
	case op == opcode.LDC2_W:
		v, err := parseInt(s, 64)
		if err != nil {
			return 0, syntaxf("%v", err)
		}
		return pool.AddLong(v)
	case isFloat:
		v, err := parseFloat(strings.TrimSuffix(s, "f"), 32)
		if err != nil {
			return 0, err
		}
		return pool.AddFloat(float32(v))
	}
	v, err := parseInt(s, 32)
	if err != nil {
		return 0, syntaxf("%v", err)
	}
	return pool.AddInteger(int32(v))
}

// isFloatLiteral tells floating point constants from integers: they have a
// fraction, an exponent or an f or d suffix, or are NaN or Infinity.
func isFloatLiteral(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return false
	}
	return strings.ContainsAny(digits, ".eEfd") || digits == "NaN" || digits == "Infinity"
}

func parseFloat(s string, bits int) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	v, err := strconv.ParseFloat(s, bits)
	if err != nil {
		return 0, syntaxf("invalid floating point constant %q", s)
	}
	return v, nil
}

// parseSwitchEntry handles a line inside a switch block.
func (m *method) parseSwitchEntry(toks []token, line int) error {
	ws, err := words(toks)
	if err != nil {
		return syntaxf("%v", err)
	}
	sw := m.sw
	switch {
	case len(ws) == 2 && ws[0] == "default:":
		m.sw = nil
		return m.closeSwitch(sw, ws[1], line)
	case sw.kind == "tableswitch":
		for _, l := range ws {
			if !isIdentifier(l) {
				return syntaxf("invalid label %q", l)
			}
			if sw.next > math.MaxInt32 {
				return syntaxf("tableswitch has more entries than int values")
			}
			sw.matches = append(sw.matches, int32(sw.next))
			sw.labels = append(sw.labels, l)
			sw.next++
		}
		return nil
	case len(ws) == 2 && strings.HasSuffix(ws[0], ":"):
		v, err := parseInt(strings.TrimSuffix(ws[0], ":"), 32)
		if err != nil {
			return syntaxf("%v", err)
		}
		if !isIdentifier(ws[1]) {
			return syntaxf("invalid label %q", ws[1])
		}
		sw.matches = append(sw.matches, int32(v))
		sw.labels = append(sw.labels, ws[1])
		return nil
	}
	return syntaxf("%s entry wants match: label", sw.kind)
}

func (m *method) closeSwitch(sw *switchBlock, defaultLabel string, line int) error {
	if !isIdentifier(defaultLabel) {
		return syntaxf("invalid label %q", defaultLabel)
	}
	labels := append([]string{defaultLabel}, sw.labels...)
	resolve := func() (def asm.Handle, targets []asm.Handle, err error) {
		hs := make([]asm.Handle, len(labels))
		for i, l := range labels {
			if hs[i], err = m.resolve(l); err != nil {
				return
			}
		}
		return hs[0], hs[1:], nil
	}

	if sw.kind == "switch" {
		// The encoding is chosen once targets are known, so a placeholder
		// holds the position and any labels until then.
		nop := m.append(asm.NewSimple(opcode.NOP))
		m.later(sw.line, func() error {
			def, targets, err := resolve()
			if err != nil {
				return err
			}
			sel, err := asm.NewSwitch(sw.matches, targets, def)
			if err != nil {
				return err
			}
			h := m.list.InsertBefore(nop, sel)
			if err = m.list.Redirect(nop, h); err != nil {
				return err
			}
			for l, t := range m.labels {
				if t == nop {
					m.labels[l] = h
				}
			}
			return m.list.Remove(nop)
		})
		return nil
	}

	placeholders := make([]asm.Handle, len(sw.matches))
	var h asm.Handle
	if sw.kind == "tableswitch" {
		h = m.append(asm.NewTableSwitch(sw.matches, placeholders, asm.NoHandle))
	} else {
		h = m.append(asm.NewLookupSwitch(sw.matches, placeholders, asm.NoHandle))
	}
	m.later(sw.line, func() error {
		def, targets, err := resolve()
		if err != nil {
			return err
		}
		if err = m.list.SetDefaultTarget(h, def); err != nil {
			return err
		}
		for i, t := range targets {
			if err = m.list.SetSelectTarget(h, i, t); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}

func parseSlot(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > math.MaxUint16 {
		return 0, syntaxf("invalid local variable slot %q", s)
	}
	return v, nil
}

// splitMember splits "owner.name" at the last dot. The owner is an internal
// name, so it contains slashes rather than dots.
func splitMember(s string) (owner, name string, err error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return "", "", syntaxf("invalid member %q, want owner.name", s)
	}
	return s[:i], s[i+1:], nil
}

func primitive(name string) (types.BasicType, bool) {
	for _, b := range []types.BasicType{types.Boolean, types.Char, types.Float, types.Double, types.Byte, types.Short, types.Int, types.Long} {
		if b.String() == name {
			return b, true
		}
	}
	return 0, false
}

package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/constpool"
	"github.com/tetratelabs/classgen/types"
)

// Attribute names known to this package.
const (
	AttributeConstantValue      = "ConstantValue"
	AttributeCode               = "Code"
	AttributeExceptions         = "Exceptions"
	AttributeSourceFile         = "SourceFile"
	AttributeLineNumberTable    = "LineNumberTable"
	AttributeLocalVariableTable = "LocalVariableTable"
)

// Attribute is a class, field, method or code attribute.
type Attribute interface {
	// Name is the attribute_name_index string.
	Name() string

	// Encode returns the info bytes, adding any constants it refers to cp.
	Encode(cp *constpool.Pool) ([]byte, error)
}

// Raw is an attribute kept as opaque bytes. Parse returns attributes it does
// not know as Raw.
type Raw struct {
	Kind    string
	Payload []byte
}

func (r *Raw) Name() string { return r.Kind }

func (r *Raw) Encode(*constpool.Pool) ([]byte, error) { return r.Payload, nil }

// ConstantValue is the initial value of a static field.
type ConstantValue struct {
	Index uint16
}

func (c *ConstantValue) Name() string { return AttributeConstantValue }

func (c *ConstantValue) Encode(*constpool.Pool) ([]byte, error) {
	return binary.BigEndian.AppendUint16(nil, c.Index), nil
}

// SourceFile names the source file a class was compiled from.
type SourceFile struct {
	File string
}

func (s *SourceFile) Name() string { return AttributeSourceFile }

func (s *SourceFile) Encode(cp *constpool.Pool) ([]byte, error) {
	index, err := cp.AddUtf8(s.File)
	if err != nil {
		return nil, err
	}
	return binary.BigEndian.AppendUint16(nil, index), nil
}

// Exceptions lists the checked exceptions a method declares, as internal names.
type Exceptions struct {
	Classes []string
}

func (e *Exceptions) Name() string { return AttributeExceptions }

func (e *Exceptions) Encode(cp *constpool.Pool) ([]byte, error) {
	buf := binary.BigEndian.AppendUint16(nil, uint16(len(e.Classes)))
	for _, c := range e.Classes {
		index, err := cp.AddClass(c)
		if err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint16(buf, index)
	}
	return buf, nil
}

// LineNumberTable maps code offsets to source lines.
type LineNumberTable []asm.LineNumber

func (t LineNumberTable) Name() string { return AttributeLineNumberTable }

func (t LineNumberTable) Encode(*constpool.Pool) ([]byte, error) {
	buf := binary.BigEndian.AppendUint16(nil, uint16(len(t)))
	for _, e := range t {
		buf = binary.BigEndian.AppendUint16(buf, uint16(e.StartPC))
		buf = binary.BigEndian.AppendUint16(buf, uint16(e.Line))
	}
	return buf, nil
}

// LocalVariableTable describes the local variables in scope over code ranges.
type LocalVariableTable []asm.LocalVariable

func (t LocalVariableTable) Name() string { return AttributeLocalVariableTable }

func (t LocalVariableTable) Encode(cp *constpool.Pool) ([]byte, error) {
	buf := binary.BigEndian.AppendUint16(nil, uint16(len(t)))
	for _, e := range t {
		name, err := cp.AddUtf8(e.Name)
		if err != nil {
			return nil, err
		}
		desc, err := cp.AddUtf8(e.Type.Descriptor())
		if err != nil {
			return nil, err
		}
		for _, v := range []uint16{uint16(e.StartPC), uint16(e.Length), name, desc, uint16(e.Slot)} {
			buf = binary.BigEndian.AppendUint16(buf, v)
		}
	}
	return buf, nil
}

// Code is the body of a method.
type Code struct {
	MaxStack, MaxLocals int
	Code                []byte
	ExceptionTable      []asm.ExceptionHandler
	Attributes          []Attribute
}

func (c *Code) Name() string { return AttributeCode }

func (c *Code) Encode(cp *constpool.Pool) ([]byte, error) {
	if c.MaxStack > math.MaxUint16 || c.MaxLocals > math.MaxUint16 {
		return nil, fmt.Errorf("max_stack %d or max_locals %d out of range", c.MaxStack, c.MaxLocals)
	}
	buf := binary.BigEndian.AppendUint16(nil, uint16(c.MaxStack))
	buf = binary.BigEndian.AppendUint16(buf, uint16(c.MaxLocals))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Code)))
	buf = append(buf, c.Code...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.ExceptionTable)))
	for _, e := range c.ExceptionTable {
		var catchType uint16
		if e.CatchType != nil {
			var err error
			if catchType, err = cp.AddClass(e.CatchType.InternalName()); err != nil {
				return nil, err
			}
		}
		for _, v := range []uint16{uint16(e.StartPC), uint16(e.EndPC), uint16(e.HandlerPC), catchType} {
			buf = binary.BigEndian.AppendUint16(buf, v)
		}
	}
	return appendAttributes(buf, cp, c.Attributes)
}

// Attribute returns the first nested attribute named name.
func (c *Code) Attribute(name string) (Attribute, bool) {
	return findAttribute(c.Attributes, name)
}

// Instructions decodes the code array into an instruction list, along with
// the handle at each instruction offset.
func (c *Code) Instructions() (*asm.InstructionList, map[int]asm.Handle, error) {
	return asm.Decode(c.Code)
}

func findAttribute(attrs []Attribute, name string) (Attribute, bool) {
	for _, a := range attrs {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// appendAttributes appends attributes_count and every attribute.
func appendAttributes(buf []byte, cp *constpool.Pool, attrs []Attribute) ([]byte, error) {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(attrs)))
	for _, a := range attrs {
		name, err := cp.AddUtf8(a.Name())
		if err != nil {
			return nil, err
		}
		info, err := a.Encode(cp)
		if err != nil {
			return nil, fmt.Errorf("encode %s attribute: %w", a.Name(), err)
		}
		buf = binary.BigEndian.AppendUint16(buf, name)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(info)))
		buf = append(buf, info...)
	}
	return buf, nil
}

// decodeAttributes reads attributes_count and every attribute. Known
// attributes are decoded to their types, others are returned as *Raw.
func decodeAttributes(r *bytes.Reader, cp *constpool.Pool) ([]Attribute, error) {
	count, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("read attributes_count: %w", err)
	}
	attrs := make([]Attribute, 0, count)
	for i := 0; i < int(count); i++ {
		nameIndex, err := readU16(r)
		if err != nil {
			return nil, fmt.Errorf("read attribute_name_index: %w", err)
		}
		name, err := cp.Utf8(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("attribute name: %w", err)
		}
		length, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("read %s attribute_length: %w", name, err)
		}
		if int64(length) > int64(r.Len()) {
			return nil, fmt.Errorf("%w: %s attribute_length %d exceeds remaining %d bytes",
				ErrInvalidClassFile, name, length, r.Len())
		}
		info := make([]byte, length)
		if _, err = io.ReadFull(r, info); err != nil {
			return nil, fmt.Errorf("read %s attribute: %w", name, err)
		}
		a, err := decodeAttribute(name, info, cp)
		if err != nil {
			return nil, fmt.Errorf("decode %s attribute: %w", name, err)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func decodeAttribute(name string, info []byte, cp *constpool.Pool) (Attribute, error) {
	r := bytes.NewReader(info)
	var a Attribute
	var err error
	switch name {
	case AttributeConstantValue:
		var c ConstantValue
		c.Index, err = readU16(r)
		a = &c
	case AttributeSourceFile:
		var s SourceFile
		var index uint16
		if index, err = readU16(r); err == nil {
			s.File, err = cp.Utf8(index)
		}
		a = &s
	case AttributeExceptions:
		a, err = decodeExceptions(r, cp)
	case AttributeLineNumberTable:
		a, err = decodeLineNumberTable(r)
	case AttributeLocalVariableTable:
		a, err = decodeLocalVariableTable(r, cp)
	case AttributeCode:
		a, err = decodeCode(r, cp)
	default:
		return &Raw{Kind: name, Payload: info}, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidClassFile, r.Len())
	}
	return a, nil
}

func decodeExceptions(r *bytes.Reader, cp *constpool.Pool) (*Exceptions, error) {
	count, err := readU16(r)
	if err != nil {
		return nil, err
	}
	e := &Exceptions{Classes: make([]string, 0, count)}
	for i := 0; i < int(count); i++ {
		index, err := readU16(r)
		if err != nil {
			return nil, err
		}
		c, err := cp.ClassName(index)
		if err != nil {
			return nil, err
		}
		e.Classes = append(e.Classes, c)
	}
	return e, nil
}

func decodeLineNumberTable(r *bytes.Reader) (LineNumberTable, error) {
	count, err := readU16(r)
	if err != nil {
		return nil, err
	}
	t := make(LineNumberTable, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := readU16s(r, 2)
		if err != nil {
			return nil, err
		}
		t = append(t, asm.LineNumber{StartPC: int(v[0]), Line: int(v[1])})
	}
	return t, nil
}

func decodeLocalVariableTable(r *bytes.Reader, cp *constpool.Pool) (LocalVariableTable, error) {
	count, err := readU16(r)
	if err != nil {
		return nil, err
	}
	t := make(LocalVariableTable, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := readU16s(r, 5)
		if err != nil {
			return nil, err
		}
		name, err := cp.Utf8(v[2])
		if err != nil {
			return nil, err
		}
		desc, err := cp.Utf8(v[3])
		if err != nil {
			return nil, err
		}
		typ, err := types.ParseDescriptor(desc)
		if err != nil {
			return nil, err
		}
		t = append(t, asm.LocalVariable{StartPC: int(v[0]), Length: int(v[1]), Name: name, Type: typ, Slot: int(v[4])})
	}
	return t, nil
}

func decodeCode(r *bytes.Reader, cp *constpool.Pool) (*Code, error) {
	v, err := readU16s(r, 2)
	if err != nil {
		return nil, err
	}
	c := &Code{MaxStack: int(v[0]), MaxLocals: int(v[1])}
	length, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if length == 0 || int64(length) > int64(r.Len()) || length > asm.MaxCodeLength {
		return nil, fmt.Errorf("%w: code_length %d", ErrInvalidClassFile, length)
	}
	c.Code = make([]byte, length)
	if _, err = io.ReadFull(r, c.Code); err != nil {
		return nil, err
	}
	count, err := readU16(r)
	if err != nil {
		return nil, err
	}
	c.ExceptionTable = make([]asm.ExceptionHandler, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := readU16s(r, 4)
		if err != nil {
			return nil, err
		}
		e := asm.ExceptionHandler{StartPC: int(v[0]), EndPC: int(v[1]), HandlerPC: int(v[2])}
		if v[3] != 0 {
			name, err := cp.ClassName(v[3])
			if err != nil {
				return nil, err
			}
			e.CatchType = types.NewObjectType(name)
		}
		c.ExceptionTable = append(c.ExceptionTable, e)
	}
	if c.Attributes, err = decodeAttributes(r, cp); err != nil {
		return nil, err
	}
	return c, nil
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readU16s(r *bytes.Reader, n int) ([]uint16, error) {
	ret := make([]uint16, n)
	for i := range ret {
		v, err := readU16(r)
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

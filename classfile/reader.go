package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/classgen/constpool"
)

// ClassFile is a parsed class file. Names are internal names.
type ClassFile struct {
	Version    Version
	Pool       *constpool.Pool
	Access     AccessFlags
	ThisClass  string
	SuperClass string
	Interfaces []string
	Fields     []*Member
	Methods    []*Member
	Attributes []Attribute
}

// Member is a parsed field_info or method_info.
type Member struct {
	Access     AccessFlags
	Name       string
	Descriptor string
	Attributes []Attribute
}

// Attribute returns the first attribute named name.
func (m *Member) Attribute(name string) (Attribute, bool) {
	return findAttribute(m.Attributes, name)
}

// Code returns the Code attribute of a method, or nil if it is abstract or native.
func (m *Member) Code() *Code {
	if a, ok := m.Attribute(AttributeCode); ok {
		return a.(*Code)
	}
	return nil
}

// Attribute returns the first class attribute named name.
func (c *ClassFile) Attribute(name string) (Attribute, bool) {
	return findAttribute(c.Attributes, name)
}

// Parse decodes a class file.
func Parse(b []byte) (*ClassFile, error) {
	r := bytes.NewReader(b)
	var header struct {
		Magic        uint32
		Minor, Major uint16
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidClassFile, err)
	}
	if header.Magic != Magic {
		return nil, fmt.Errorf("%w: magic %#x", ErrInvalidClassFile, header.Magic)
	}

	cp, err := constpool.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassFile, err)
	}
	c := &ClassFile{Version: Version{Major: header.Major, Minor: header.Minor}, Pool: cp}

	v, err := readU16s(r, 3)
	if err != nil {
		return nil, fmt.Errorf("%w: read access_flags: %v", ErrInvalidClassFile, err)
	}
	c.Access = AccessFlags(v[0])
	if c.ThisClass, err = cp.ClassName(v[1]); err != nil {
		return nil, fmt.Errorf("%w: this_class: %v", ErrInvalidClassFile, err)
	}
	if v[2] != 0 {
		if c.SuperClass, err = cp.ClassName(v[2]); err != nil {
			return nil, fmt.Errorf("%w: super_class: %v", ErrInvalidClassFile, err)
		}
	}

	count, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read interfaces_count: %v", ErrInvalidClassFile, err)
	}
	for i := 0; i < int(count); i++ {
		index, err := readU16(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read interface %d: %v", ErrInvalidClassFile, i, err)
		}
		name, err := cp.ClassName(index)
		if err != nil {
			return nil, fmt.Errorf("%w: interface %d: %v", ErrInvalidClassFile, i, err)
		}
		c.Interfaces = append(c.Interfaces, name)
	}

	if c.Fields, err = decodeMembers(r, cp, "field"); err != nil {
		return nil, err
	}
	if c.Methods, err = decodeMembers(r, cp, "method"); err != nil {
		return nil, err
	}
	if c.Attributes, err = decodeAttributes(r, cp); err != nil {
		return nil, fmt.Errorf("%w: class attributes: %v", ErrInvalidClassFile, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidClassFile, r.Len())
	}
	return c, nil
}

func decodeMembers(r *bytes.Reader, cp *constpool.Pool, kind string) ([]*Member, error) {
	count, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s count: %v", ErrInvalidClassFile, kind, err)
	}
	ret := make([]*Member, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := readU16s(r, 3)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s %d: %v", ErrInvalidClassFile, kind, i, err)
		}
		m := &Member{Access: AccessFlags(v[0])}
		if m.Name, err = cp.Utf8(v[1]); err != nil {
			return nil, fmt.Errorf("%w: %s %d name: %v", ErrInvalidClassFile, kind, i, err)
		}
		if m.Descriptor, err = cp.Utf8(v[2]); err != nil {
			return nil, fmt.Errorf("%w: %s %s descriptor: %v", ErrInvalidClassFile, kind, m.Name, err)
		}
		if m.Attributes, err = decodeAttributes(r, cp); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrInvalidClassFile, kind, m.Name, err)
		}
		ret = append(ret, m)
	}
	return ret, nil
}

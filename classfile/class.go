// Package classfile builds and parses JVM class files.
//
// A ClassGen owns the constant pool shared by its FieldGen and MethodGen
// values, and Bytes lays out every method body and writes the class file.
// Parse reads a class file back into a ClassFile.
//
// See https://docs.oracle.com/javase/specs/jvms/se17/html/jvms-4.html
package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/constpool"
	"github.com/tetratelabs/classgen/types"
)

// Magic is the first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

// ClassGen builds a class or interface.
type ClassGen struct {
	access     AccessFlags
	name       string
	super      string
	interfaces []string
	version    Version
	pool       *constpool.Pool
	fields     []*FieldGen
	methods    []*MethodGen
	attrs      []Attribute
	layoutOpts []asm.LayoutOption
	logger     zerolog.Logger
}

// Option configures a ClassGen.
type Option func(*ClassGen)

// WithVersion sets the class file version. The default is that of DefaultRelease.
func WithVersion(v Version) Option {
	return func(c *ClassGen) { c.version = v }
}

// WithLayoutOptions sets the options method bodies are laid out with.
func WithLayoutOptions(opts ...asm.LayoutOption) Option {
	return func(c *ClassGen) { c.layoutOpts = append(c.layoutOpts, opts...) }
}

// WithLogger sets the logger for warnings and layout diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *ClassGen) { c.logger = logger }
}

// WithPool sets the constant pool to add to, e.g. one read from an existing
// class file.
func WithPool(pool *constpool.Pool) Option {
	return func(c *ClassGen) { c.pool = pool }
}

// NewClassGen returns a class named by its internal name, e.g. "a/b/C".
// super is empty only for java/lang/Object.
func NewClassGen(access AccessFlags, name, super string, opts ...Option) *ClassGen {
	v, _ := ReleaseVersion(DefaultRelease)
	c := &ClassGen{access: access, name: name, super: super, version: v, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = constpool.New()
	}
	return c
}

func (c *ClassGen) Name() string { return c.name }

func (c *ClassGen) Super() string { return c.super }

// SetSuper changes the superclass.
func (c *ClassGen) SetSuper(name string) { c.super = name }

func (c *ClassGen) Access() AccessFlags { return c.access }

func (c *ClassGen) Version() Version { return c.version }

func (c *ClassGen) Pool() *constpool.Pool { return c.pool }

// Type returns the class as an object type.
func (c *ClassGen) Type() *types.ObjectType { return types.NewObjectType(c.name) }

// AddInterface declares an implemented interface. Duplicates are ignored.
func (c *ClassGen) AddInterface(name string) {
	for _, i := range c.interfaces {
		if i == name {
			return
		}
	}
	c.interfaces = append(c.interfaces, name)
}

func (c *ClassGen) Interfaces() []string { return append([]string(nil), c.interfaces...) }

// AddField adds a field sharing the class constant pool.
func (c *ClassGen) AddField(access AccessFlags, name string, typ types.Type) *FieldGen {
	f := NewFieldGen(access, name, typ, c.pool)
	f.SetLogger(c.logger.With().Str("class", c.name).Logger())
	c.fields = append(c.fields, f)
	return f
}

// Field returns the field named name.
func (c *ClassGen) Field(name string) (*FieldGen, bool) {
	for _, f := range c.fields {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

func (c *ClassGen) Fields() []*FieldGen { return append([]*FieldGen(nil), c.fields...) }

// AddMethod adds a method sharing the class constant pool.
func (c *ClassGen) AddMethod(access AccessFlags, name, descriptor string) (*MethodGen, error) {
	m, err := NewMethodGen(access, name, descriptor, c.pool)
	if err != nil {
		return nil, err
	}
	m.SetLogger(c.logger.With().Str("class", c.name).Str("method", name).Logger())
	c.methods = append(c.methods, m)
	return m, nil
}

// Method returns the method with the given name and descriptor.
func (c *ClassGen) Method(name, descriptor string) (*MethodGen, bool) {
	for _, m := range c.methods {
		if m.name == name && m.Descriptor() == descriptor {
			return m, true
		}
	}
	return nil, false
}

func (c *ClassGen) Methods() []*MethodGen { return append([]*MethodGen(nil), c.methods...) }

// AttachAttribute adds a class attribute, e.g. SourceFile.
func (c *ClassGen) AttachAttribute(a Attribute) { c.attrs = append(c.attrs, a) }

// Bytes lays out every method and returns the class file.
func (c *ClassGen) Bytes() ([]byte, error) {
	// The pool is written before the members, but the members add to it, so
	// they are encoded first.
	this, err := c.pool.AddClass(c.name)
	if err != nil {
		return nil, err
	}
	var super uint16
	if c.super != "" {
		if super, err = c.pool.AddClass(c.super); err != nil {
			return nil, err
		}
	}
	body := appendU16s(nil, uint16(c.access), this, super, uint16(len(c.interfaces)))
	for _, i := range c.interfaces {
		index, err := c.pool.AddClass(i)
		if err != nil {
			return nil, err
		}
		body = binary.BigEndian.AppendUint16(body, index)
	}

	body = binary.BigEndian.AppendUint16(body, uint16(len(c.fields)))
	for _, f := range c.fields {
		if body, err = f.encode(body); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
	}
	body = binary.BigEndian.AppendUint16(body, uint16(len(c.methods)))
	for _, m := range c.methods {
		if body, err = m.encode(body, c.layoutOpts); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.name, m.name, err)
		}
	}
	if body, err = appendAttributes(body, c.pool, c.attrs); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, Magic)
	_ = binary.Write(&buf, binary.BigEndian, c.version.Minor)
	_ = binary.Write(&buf, binary.BigEndian, c.version.Major)
	if _, err = c.pool.WriteTo(&buf); err != nil {
		return nil, err
	}
	buf.Write(body)
	c.logger.Debug().Str("class", c.name).Int("size", buf.Len()).Int("constants", c.pool.Size()).Msg("class written")
	return buf.Bytes(), nil
}

func appendU16s(buf []byte, vs ...uint16) []byte {
	for _, v := range vs {
		buf = binary.BigEndian.AppendUint16(buf, v)
	}
	return buf
}

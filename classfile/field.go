package classfile

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen/constpool"
	"github.com/tetratelabs/classgen/types"
)

// FieldGen builds one field_info structure.
type FieldGen struct {
	access    AccessFlags
	name      string
	typ       types.Type
	pool      *constpool.Pool
	attrs     []Attribute
	initValue any
	logger    zerolog.Logger
}

// NewFieldGen returns a field of the given type. Constants referenced by the
// field are added to pool.
//
// Panics if typ is void or null, which no field can have.
func NewFieldGen(access AccessFlags, name string, typ types.Type, pool *constpool.Pool) *FieldGen {
	if typ == types.Void || typ == types.Null {
		panic(fmt.Sprintf("invalid field type %s", typ))
	}
	return &FieldGen{access: access, name: name, typ: typ, pool: pool, logger: zerolog.Nop()}
}

// SetLogger sets the logger used for warnings about the field.
func (f *FieldGen) SetLogger(logger zerolog.Logger) { f.logger = logger }

func (f *FieldGen) Access() AccessFlags { return f.access }

func (f *FieldGen) SetAccess(access AccessFlags) { f.access = access }

func (f *FieldGen) Name() string { return f.name }

func (f *FieldGen) Type() types.Type { return f.typ }

// Attributes returns the attributes in the order they are written.
func (f *FieldGen) Attributes() []Attribute { return append([]Attribute(nil), f.attrs...) }

// AttachAttribute adds a to the field. A field has at most one ConstantValue
// attribute, so attaching one replaces any previous.
func (f *FieldGen) AttachAttribute(a Attribute) {
	if a.Name() == AttributeConstantValue {
		for i, old := range f.attrs {
			if old.Name() == AttributeConstantValue {
				f.attrs[i] = a
				return
			}
		}
	}
	f.attrs = append(f.attrs, a)
}

// RemoveAttribute drops every attribute named name.
func (f *FieldGen) RemoveAttribute(name string) {
	kept := f.attrs[:0]
	for _, a := range f.attrs {
		if a.Name() != name {
			kept = append(kept, a)
		}
	}
	f.attrs = kept
}

// InitValue returns the value set by SetInitValue.
func (f *FieldGen) InitValue() (any, bool) {
	return f.initValue, f.initValue != nil
}

// SetInitValue makes v the constant initial value of the field, adding it to
// the constant pool and attaching a ConstantValue attribute referring to it.
// v must agree with the field type:
//
//   - boolean: bool, or an integer 0 or 1
//   - byte, short, char, int: a Go integer within the range of the type
//   - long: a Go integer
//   - float: float32
//   - double: float64 or float32
//   - java.lang.String: string
//
// Otherwise ErrConstantTypeMismatch is returned and the field is unchanged.
// A nil v removes the initial value.
func (f *FieldGen) SetInitValue(v any) error {
	if v == nil {
		f.initValue = nil
		f.RemoveAttribute(AttributeConstantValue)
		return nil
	}
	index, err := f.addConstant(v)
	if err != nil {
		return err
	}
	if !f.access.Has(AccStatic | AccFinal) {
		f.logger.Warn().Str("field", f.name).Str("access", f.access.String()).
			Msg("ConstantValue on a field that is not static final is ignored by the JVM")
	}
	f.initValue = v
	f.AttachAttribute(&ConstantValue{Index: index})
	return nil
}

func (f *FieldGen) addConstant(v any) (uint16, error) {
	mismatch := func() error {
		return fmt.Errorf("%w: %T %v for %s field %s", ErrConstantTypeMismatch, v, v, f.typ, f.name)
	}
	switch f.typ {
	case types.Boolean:
		if b, ok := v.(bool); ok {
			if b {
				return f.pool.AddInteger(1)
			}
			return f.pool.AddInteger(0)
		}
		fallthrough
	case types.Byte, types.Short, types.Char, types.Int:
		n, ok := integer(v)
		if !ok {
			return 0, mismatch()
		}
		lo, hi := intRange(f.typ.(types.BasicType))
		if n < lo || n > hi {
			return 0, fmt.Errorf("%w: %d is out of range for %s field %s", ErrConstantTypeMismatch, n, f.typ, f.name)
		}
		return f.pool.AddInteger(int32(n))
	case types.Long:
		n, ok := integer(v)
		if !ok {
			return 0, mismatch()
		}
		return f.pool.AddLong(n)
	case types.Float:
		if x, ok := v.(float32); ok {
			return f.pool.AddFloat(x)
		}
	case types.Double:
		switch x := v.(type) {
		case float64:
			return f.pool.AddDouble(x)
		case float32:
			return f.pool.AddDouble(float64(x))
		}
	default:
		if s, ok := v.(string); ok && types.Equal(f.typ, types.String) {
			return f.pool.AddString(s)
		}
	}
	return 0, mismatch()
}

// integer converts any Go integer type to int64.
func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func intRange(t types.BasicType) (lo, hi int64) {
	switch t {
	case types.Boolean:
		return 0, 1
	case types.Byte:
		return math.MinInt8, math.MaxInt8
	case types.Short:
		return math.MinInt16, math.MaxInt16
	case types.Char:
		return 0, math.MaxUint16
	}
	return math.MinInt32, math.MaxInt32
}

// encode appends the field_info structure.
func (f *FieldGen) encode(buf []byte) ([]byte, error) {
	name, err := f.pool.AddUtf8(f.name)
	if err != nil {
		return nil, err
	}
	desc, err := f.pool.AddUtf8(f.typ.Descriptor())
	if err != nil {
		return nil, err
	}
	buf = appendU16s(buf, uint16(f.access), name, desc)
	return appendAttributes(buf, f.pool, f.attrs)
}

func (f *FieldGen) String() string {
	s := fmt.Sprintf("%s %s", f.typ, f.name)
	if a := f.access.String(); a != "" {
		s = a + " " + s
	}
	if f.initValue != nil {
		s += fmt.Sprintf(" = %v", f.initValue)
	}
	return s
}

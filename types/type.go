// Package types models the static JVM type system used when assembling code:
// primitive types, class and interface types, array types and the null type.
//
// Reference types form a lattice ordered by assignment compatibility. Walking
// it requires a Repository, which answers questions about the class hierarchy.
package types

import (
	"fmt"
	"strings"
)

// Type is any JVM field or return type.
type Type interface {
	// Descriptor returns the field descriptor, e.g. "I" or "Ljava/lang/String;".
	Descriptor() string
	// Size returns the number of local variable or operand stack slots a value
	// of this type occupies.
	Size() int
	String() string
}

// BasicType is a primitive type or void. Its value is the descriptor character.
type BasicType byte

const (
	Boolean BasicType = 'Z'
	Byte    BasicType = 'B'
	Char    BasicType = 'C'
	Short   BasicType = 'S'
	Int     BasicType = 'I'
	Long    BasicType = 'J'
	Float   BasicType = 'F'
	Double  BasicType = 'D'
	Void    BasicType = 'V'
)

func (b BasicType) Descriptor() string {
	return string(rune(b))
}

func (b BasicType) Size() int {
	switch b {
	case Long, Double:
		return 2
	case Void:
		return 0
	}
	return 1
}

func (b BasicType) String() string {
	switch b {
	case Boolean:
		return "boolean"
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Void:
		return "void"
	}
	return fmt.Sprintf("unknown(%#x)", byte(b))
}

// ArrayTypeCode returns the atype operand NEWARRAY uses for arrays of b.
func (b BasicType) ArrayTypeCode() (byte, bool) {
	switch b {
	case Boolean:
		return 4, true
	case Char:
		return 5, true
	case Float:
		return 6, true
	case Double:
		return 7, true
	case Byte:
		return 8, true
	case Short:
		return 9, true
	case Int:
		return 10, true
	case Long:
		return 11, true
	}
	return 0, false
}

// BasicTypeOfArrayCode is the inverse of BasicType.ArrayTypeCode.
func BasicTypeOfArrayCode(code byte) (BasicType, bool) {
	for _, b := range []BasicType{Boolean, Char, Float, Double, Byte, Short, Int, Long} {
		if c, _ := b.ArrayTypeCode(); c == code {
			return b, true
		}
	}
	return 0, false
}

// ReferenceType is implemented by *ObjectType, *ArrayType and NullType.
type ReferenceType interface {
	Type
	// InternalName is the name used in CONSTANT_Class entries: the slashed
	// class name for objects and the descriptor for arrays.
	InternalName() string
}

// ObjectType is a class or interface type. Whether it names an interface is
// only known to a Repository.
type ObjectType struct {
	name string
}

// NewObjectType returns the type for the class name, in either binary
// ("java.lang.String") or internal ("java/lang/String") form.
func NewObjectType(name string) *ObjectType {
	return &ObjectType{name: strings.ReplaceAll(name, ".", "/")}
}

var (
	Object       = NewObjectType("java/lang/Object")
	String       = NewObjectType("java/lang/String")
	Throwable    = NewObjectType("java/lang/Throwable")
	Cloneable    = NewObjectType("java/lang/Cloneable")
	Serializable = NewObjectType("java/io/Serializable")
)

func (o *ObjectType) InternalName() string { return o.name }

// ClassName returns the binary name, e.g. "java.lang.String".
func (o *ObjectType) ClassName() string { return strings.ReplaceAll(o.name, "/", ".") }

func (o *ObjectType) Descriptor() string { return "L" + o.name + ";" }

func (o *ObjectType) Size() int { return 1 }

func (o *ObjectType) String() string { return o.ClassName() }

// ArrayType is an array of Element with the given number of dimensions.
// Element is never itself an array.
type ArrayType struct {
	element    Type
	dimensions int
}

// NewArrayType returns the array type of element with dims dimensions. An
// array element is flattened, so NewArrayType(int[], 1) is int[][].
//
// Panics when dims is not positive or above 255, or element is void or null.
func NewArrayType(element Type, dims int) *ArrayType {
	if a, ok := element.(*ArrayType); ok {
		element, dims = a.element, dims+a.dimensions
	}
	if dims < 1 || dims > 255 {
		panic(fmt.Sprintf("invalid array dimensions %d", dims))
	}
	switch element {
	case Void, Null:
		panic(fmt.Sprintf("invalid array element %s", element))
	}
	return &ArrayType{element: element, dimensions: dims}
}

// ElementType is the innermost, non-array type.
func (a *ArrayType) ElementType() Type { return a.element }

func (a *ArrayType) Dimensions() int { return a.dimensions }

// ComponentType is the type with one dimension removed.
func (a *ArrayType) ComponentType() Type {
	if a.dimensions == 1 {
		return a.element
	}
	return &ArrayType{element: a.element, dimensions: a.dimensions - 1}
}

func (a *ArrayType) InternalName() string { return a.Descriptor() }

func (a *ArrayType) Descriptor() string {
	return strings.Repeat("[", a.dimensions) + a.element.Descriptor()
}

func (a *ArrayType) Size() int { return 1 }

func (a *ArrayType) String() string {
	return a.element.String() + strings.Repeat("[]", a.dimensions)
}

// NullType is the type of the null literal: the bottom of the reference lattice.
type NullType struct{}

// Null is the only value of NullType.
var Null = NullType{}

func (NullType) InternalName() string { return "" }

// Descriptor is empty as null has no descriptor.
func (NullType) Descriptor() string { return "" }

func (NullType) Size() int { return 1 }

func (NullType) String() string { return "null" }

// Equal returns true if a and b denote the same type.
func Equal(a, b Type) bool {
	if _, ok := a.(NullType); ok {
		_, ok = b.(NullType)
		return ok
	}
	return a.Descriptor() == b.Descriptor()
}

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDescriptor is returned for malformed field or method descriptors.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// ParseDescriptor parses a field descriptor. "V" is accepted so return types
// can be parsed the same way.
func ParseDescriptor(desc string) (Type, error) {
	t, n, err := parseType(desc, 0)
	if err != nil {
		return nil, err
	}
	if n != len(desc) {
		return nil, fmt.Errorf("%w: trailing data in %q", ErrInvalidDescriptor, desc)
	}
	return t, nil
}

// MustParseDescriptor is like ParseDescriptor, but panics on error.
func MustParseDescriptor(desc string) Type {
	t, err := ParseDescriptor(desc)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseMethodDescriptor parses a method descriptor such as "(I[JLjava/lang/String;)V".
func ParseMethodDescriptor(desc string) (args []Type, ret Type, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, nil, fmt.Errorf("%w: method descriptor %q must start with '('", ErrInvalidDescriptor, desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		var t Type
		if t, i, err = parseType(desc, i); err != nil {
			return nil, nil, err
		}
		if t == Void {
			return nil, nil, fmt.Errorf("%w: void argument in %q", ErrInvalidDescriptor, desc)
		}
		args = append(args, t)
	}
	if i >= len(desc) {
		return nil, nil, fmt.Errorf("%w: unterminated argument list in %q", ErrInvalidDescriptor, desc)
	}
	if ret, i, err = parseType(desc, i+1); err != nil {
		return nil, nil, err
	}
	if i != len(desc) {
		return nil, nil, fmt.Errorf("%w: trailing data in %q", ErrInvalidDescriptor, desc)
	}
	return args, ret, nil
}

// MethodDescriptor is the inverse of ParseMethodDescriptor.
func MethodDescriptor(args []Type, ret Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, a := range args {
		b.WriteString(a.Descriptor())
	}
	b.WriteByte(')')
	b.WriteString(ret.Descriptor())
	return b.String()
}

// ArgumentsSize returns the number of local variable slots the arguments take,
// not counting the receiver of instance methods.
func ArgumentsSize(args []Type) (size int) {
	for _, a := range args {
		size += a.Size()
	}
	return
}

// parseType parses one type at desc[i:] and returns the index after it.
func parseType(desc string, i int) (Type, int, error) {
	if i >= len(desc) {
		return nil, i, fmt.Errorf("%w: unexpected end of %q", ErrInvalidDescriptor, desc)
	}
	switch c := BasicType(desc[i]); c {
	case Boolean, Byte, Char, Short, Int, Long, Float, Double, Void:
		return c, i + 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end <= 1 {
			return nil, i, fmt.Errorf("%w: bad class name at %d in %q", ErrInvalidDescriptor, i, desc)
		}
		return &ObjectType{name: desc[i+1 : i+end]}, i + end + 1, nil
	case '[':
		dims := 0
		for i < len(desc) && desc[i] == '[' {
			dims++
			i++
		}
		if dims > 255 {
			return nil, i, fmt.Errorf("%w: %d array dimensions in %q", ErrInvalidDescriptor, dims, desc)
		}
		elem, n, err := parseType(desc, i)
		if err != nil {
			return nil, n, err
		}
		if elem == Void {
			return nil, n, fmt.Errorf("%w: void array in %q", ErrInvalidDescriptor, desc)
		}
		return &ArrayType{element: elem, dimensions: dims}, n, nil
	default:
		return nil, i, fmt.Errorf("%w: unexpected %q at %d in %q", ErrInvalidDescriptor, desc[i], i, desc)
	}
}

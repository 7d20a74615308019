package classfile

import "errors"

var (
	// ErrConstantTypeMismatch is returned when a constant value does not
	// agree with the declared type of the field it initializes.
	ErrConstantTypeMismatch = errors.New("constant value does not match field type")
	// ErrUnsupportedRelease is returned for Java releases without a known
	// class file version.
	ErrUnsupportedRelease = errors.New("unsupported java release")
	// ErrInconsistentStack is returned when the operand stack depth of an
	// instruction differs between paths or drops below zero.
	ErrInconsistentStack = errors.New("inconsistent operand stack")
	// ErrMissingCode is returned when a method that needs a body has none.
	ErrMissingCode = errors.New("method has no code")
	// ErrInvalidClassFile is returned by Parse for malformed input.
	ErrInvalidClassFile = errors.New("invalid class file")
)

package asm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDanglingTargeter is matched by a *DanglingTargetError.
	ErrDanglingTargeter = errors.New("instruction is still targeted")
	// ErrTargetNotHeld is returned when retargeting a handle the targeter does
	// not refer to.
	ErrTargetNotHeld = errors.New("targeter does not refer to handle")
	// ErrInvalidHandle is returned for handles that are not in the list.
	ErrInvalidHandle = errors.New("handle is not in the instruction list")
	// ErrNotTargeter is returned when a handle or id does not denote a targeter
	// of the expected kind.
	ErrNotTargeter = errors.New("not a targeter")
	// ErrInvalidSwitch is returned for switches whose matches cannot be encoded
	// as requested.
	ErrInvalidSwitch = errors.New("invalid switch")
	// ErrMissingTarget is returned by layout for branches without a target.
	ErrMissingTarget = errors.New("branch target not set")
	// ErrBranchOffsetOverflow is returned by layout when a conditional branch
	// cannot reach its target with a 16-bit offset.
	ErrBranchOffsetOverflow = errors.New("branch offset does not fit 16 bits")
	// ErrCodeTooLarge is returned by layout when the code array exceeds 65535 bytes.
	ErrCodeTooLarge = errors.New("code exceeds 65535 bytes")
	// ErrStaleLayout is returned when reading a layout of a list that has been
	// modified since.
	ErrStaleLayout = errors.New("instruction list changed after layout")
	// ErrDuplicateLocalVariable is returned when a local variable entry would
	// take the slot and scope of another.
	ErrDuplicateLocalVariable = errors.New("duplicate local variable")
	// ErrInvalidCode is returned by Decode for malformed code arrays.
	ErrInvalidCode = errors.New("invalid code")

	errNoConstantPool = errors.New("stack effect needs the constant pool")
)

// DanglingTargetError is returned when removing instructions that are still
// referred to by targeters that would outlive them. Nothing is removed.
type DanglingTargetError struct {
	// Targeters maps each handle that could not be removed to the targeters
	// still referring to it.
	Targeters map[Handle][]Targeter
}

func (e *DanglingTargetError) Error() string {
	handles := make([]Handle, 0, len(e.Targeters))
	for h := range e.Targeters {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	var b strings.Builder
	b.WriteString(ErrDanglingTargeter.Error())
	for i, h := range handles {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s by", h)
		for _, t := range e.Targeters[h] {
			fmt.Fprintf(&b, " %s", t)
		}
	}
	return b.String()
}

func (e *DanglingTargetError) Is(target error) bool {
	return target == ErrDanglingTargeter
}

package opcode

// IsBranch returns true for instructions holding a single relative branch
// offset: the conditional branches, GOTO, JSR and their wide forms.
func IsBranch(op Opcode) bool {
	switch {
	case op >= IFEQ && op <= JSR:
		return true
	case op == IFNULL, op == IFNONNULL, op == GOTO_W, op == JSR_W:
		return true
	}
	return false
}

// IsConditionalBranch returns true for branches that may fall through.
func IsConditionalBranch(op Opcode) bool {
	return (op >= IFEQ && op <= IF_ACMPNE) || op == IFNULL || op == IFNONNULL
}

// IsSelect returns true for TABLESWITCH and LOOKUPSWITCH.
func IsSelect(op Opcode) bool {
	return op == TABLESWITCH || op == LOOKUPSWITCH
}

// IsReturn returns true for the return family, including RETURN.
func IsReturn(op Opcode) bool {
	return op >= IRETURN && op <= RETURN
}

// IsUnconditional returns true when control never falls through to the
// next instruction.
func IsUnconditional(op Opcode) bool {
	switch op {
	case GOTO, GOTO_W, RET, ATHROW, TABLESWITCH, LOOKUPSWITCH:
		return true
	}
	return IsReturn(op)
}

// IsLocalVariable returns true for instructions with an explicit local
// variable index operand, which may be prefixed by WIDE.
func IsLocalVariable(op Opcode) bool {
	return (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE) || op == RET || op == IINC
}

// IsConstantPool returns true for instructions whose operand is a constant
// pool index.
func IsConstantPool(op Opcode) bool {
	switch op {
	case LDC, LDC_W, LDC2_W,
		GETSTATIC, PUTSTATIC, GETFIELD, PUTFIELD,
		INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC, INVOKEINTERFACE, INVOKEDYNAMIC,
		NEW, ANEWARRAY, CHECKCAST, INSTANCEOF, MULTIANEWARRAY:
		return true
	}
	return false
}

// IsInvoke returns true for the method invocation family.
func IsInvoke(op Opcode) bool {
	return op >= INVOKEVIRTUAL && op <= INVOKEDYNAMIC
}

// IsFieldAccess returns true for GETSTATIC, PUTSTATIC, GETFIELD and PUTFIELD.
func IsFieldAccess(op Opcode) bool {
	return op >= GETSTATIC && op <= PUTFIELD
}

// ShortForm returns the operand-less opcode for a local variable access on
// slots 0-3, e.g. ILOAD with slot 2 is ILOAD_2.
func ShortForm(op Opcode, slot int) (Opcode, bool) {
	if slot < 0 || slot > 3 {
		return 0, false
	}
	switch {
	case op >= ILOAD && op <= ALOAD:
		return ILOAD_0 + (op-ILOAD)*4 + Opcode(slot), true
	case op >= ISTORE && op <= ASTORE:
		return ISTORE_0 + (op-ISTORE)*4 + Opcode(slot), true
	}
	return 0, false
}

// LongForm is the inverse of ShortForm: ALOAD_1 returns (ALOAD, 1, true).
func LongForm(op Opcode) (Opcode, int, bool) {
	switch {
	case op >= ILOAD_0 && op <= ALOAD_3:
		d := op - ILOAD_0
		return ILOAD + d/4, int(d % 4), true
	case op >= ISTORE_0 && op <= ASTORE_3:
		d := op - ISTORE_0
		return ISTORE + d/4, int(d % 4), true
	}
	return 0, 0, false
}

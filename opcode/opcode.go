// Package opcode is the closed catalog of JVM instruction kinds: their binary
// opcodes, mnemonics, encoded lengths and operand stack effects.
//
// See https://docs.oracle.com/javase/specs/jvms/se17/html/jvms-6.html
package opcode

// Opcode is the binary opcode of an instruction. See also Name.
type Opcode = byte

const (
	NOP             Opcode = 0x00
	ACONST_NULL     Opcode = 0x01
	ICONST_M1       Opcode = 0x02
	ICONST_0        Opcode = 0x03
	ICONST_1        Opcode = 0x04
	ICONST_2        Opcode = 0x05
	ICONST_3        Opcode = 0x06
	ICONST_4        Opcode = 0x07
	ICONST_5        Opcode = 0x08
	LCONST_0        Opcode = 0x09
	LCONST_1        Opcode = 0x0a
	FCONST_0        Opcode = 0x0b
	FCONST_1        Opcode = 0x0c
	FCONST_2        Opcode = 0x0d
	DCONST_0        Opcode = 0x0e
	DCONST_1        Opcode = 0x0f
	BIPUSH          Opcode = 0x10
	SIPUSH          Opcode = 0x11
	LDC             Opcode = 0x12
	LDC_W           Opcode = 0x13
	LDC2_W          Opcode = 0x14
	ILOAD           Opcode = 0x15
	LLOAD           Opcode = 0x16
	FLOAD           Opcode = 0x17
	DLOAD           Opcode = 0x18
	ALOAD           Opcode = 0x19
	ILOAD_0         Opcode = 0x1a
	ILOAD_1         Opcode = 0x1b
	ILOAD_2         Opcode = 0x1c
	ILOAD_3         Opcode = 0x1d
	LLOAD_0         Opcode = 0x1e
	LLOAD_1         Opcode = 0x1f
	LLOAD_2         Opcode = 0x20
	LLOAD_3         Opcode = 0x21
	FLOAD_0         Opcode = 0x22
	FLOAD_1         Opcode = 0x23
	FLOAD_2         Opcode = 0x24
	FLOAD_3         Opcode = 0x25
	DLOAD_0         Opcode = 0x26
	DLOAD_1         Opcode = 0x27
	DLOAD_2         Opcode = 0x28
	DLOAD_3         Opcode = 0x29
	ALOAD_0         Opcode = 0x2a
	ALOAD_1         Opcode = 0x2b
	ALOAD_2         Opcode = 0x2c
	ALOAD_3         Opcode = 0x2d
	IALOAD          Opcode = 0x2e
	LALOAD          Opcode = 0x2f
	FALOAD          Opcode = 0x30
	DALOAD          Opcode = 0x31
	AALOAD          Opcode = 0x32
	BALOAD          Opcode = 0x33
	CALOAD          Opcode = 0x34
	SALOAD          Opcode = 0x35
	ISTORE          Opcode = 0x36
	LSTORE          Opcode = 0x37
	FSTORE          Opcode = 0x38
	DSTORE          Opcode = 0x39
	ASTORE          Opcode = 0x3a
	ISTORE_0        Opcode = 0x3b
	ISTORE_1        Opcode = 0x3c
	ISTORE_2        Opcode = 0x3d
	ISTORE_3        Opcode = 0x3e
	LSTORE_0        Opcode = 0x3f
	LSTORE_1        Opcode = 0x40
	LSTORE_2        Opcode = 0x41
	LSTORE_3        Opcode = 0x42
	FSTORE_0        Opcode = 0x43
	FSTORE_1        Opcode = 0x44
	FSTORE_2        Opcode = 0x45
	FSTORE_3        Opcode = 0x46
	DSTORE_0        Opcode = 0x47
	DSTORE_1        Opcode = 0x48
	DSTORE_2        Opcode = 0x49
	DSTORE_3        Opcode = 0x4a
	ASTORE_0        Opcode = 0x4b
	ASTORE_1        Opcode = 0x4c
	ASTORE_2        Opcode = 0x4d
	ASTORE_3        Opcode = 0x4e
	IASTORE         Opcode = 0x4f
	LASTORE         Opcode = 0x50
	FASTORE         Opcode = 0x51
	DASTORE         Opcode = 0x52
	AASTORE         Opcode = 0x53
	BASTORE         Opcode = 0x54
	CASTORE         Opcode = 0x55
	SASTORE         Opcode = 0x56
	POP             Opcode = 0x57
	POP2            Opcode = 0x58
	DUP             Opcode = 0x59
	DUP_X1          Opcode = 0x5a
	DUP_X2          Opcode = 0x5b
	DUP2            Opcode = 0x5c
	DUP2_X1         Opcode = 0x5d
	DUP2_X2         Opcode = 0x5e
	SWAP            Opcode = 0x5f
	IADD            Opcode = 0x60
	LADD            Opcode = 0x61
	FADD            Opcode = 0x62
	DADD            Opcode = 0x63
	ISUB            Opcode = 0x64
	LSUB            Opcode = 0x65
	FSUB            Opcode = 0x66
	DSUB            Opcode = 0x67
	IMUL            Opcode = 0x68
	LMUL            Opcode = 0x69
	FMUL            Opcode = 0x6a
	DMUL            Opcode = 0x6b
	IDIV            Opcode = 0x6c
	LDIV            Opcode = 0x6d
	FDIV            Opcode = 0x6e
	DDIV            Opcode = 0x6f
	IREM            Opcode = 0x70
	LREM            Opcode = 0x71
	FREM            Opcode = 0x72
	DREM            Opcode = 0x73
	INEG            Opcode = 0x74
	LNEG            Opcode = 0x75
	FNEG            Opcode = 0x76
	DNEG            Opcode = 0x77
	ISHL            Opcode = 0x78
	LSHL            Opcode = 0x79
	ISHR            Opcode = 0x7a
	LSHR            Opcode = 0x7b
	IUSHR           Opcode = 0x7c
	LUSHR           Opcode = 0x7d
	IAND            Opcode = 0x7e
	LAND            Opcode = 0x7f
	IOR             Opcode = 0x80
	LOR             Opcode = 0x81
	IXOR            Opcode = 0x82
	LXOR            Opcode = 0x83
	IINC            Opcode = 0x84
	I2L             Opcode = 0x85
	I2F             Opcode = 0x86
	I2D             Opcode = 0x87
	L2I             Opcode = 0x88
	L2F             Opcode = 0x89
	L2D             Opcode = 0x8a
	F2I             Opcode = 0x8b
	F2L             Opcode = 0x8c
	F2D             Opcode = 0x8d
	D2I             Opcode = 0x8e
	D2L             Opcode = 0x8f
	D2F             Opcode = 0x90
	I2B             Opcode = 0x91
	I2C             Opcode = 0x92
	I2S             Opcode = 0x93
	LCMP            Opcode = 0x94
	FCMPL           Opcode = 0x95
	FCMPG           Opcode = 0x96
	DCMPL           Opcode = 0x97
	DCMPG           Opcode = 0x98
	IFEQ            Opcode = 0x99
	IFNE            Opcode = 0x9a
	IFLT            Opcode = 0x9b
	IFGE            Opcode = 0x9c
	IFGT            Opcode = 0x9d
	IFLE            Opcode = 0x9e
	IF_ICMPEQ       Opcode = 0x9f
	IF_ICMPNE       Opcode = 0xa0
	IF_ICMPLT       Opcode = 0xa1
	IF_ICMPGE       Opcode = 0xa2
	IF_ICMPGT       Opcode = 0xa3
	IF_ICMPLE       Opcode = 0xa4
	IF_ACMPEQ       Opcode = 0xa5
	IF_ACMPNE       Opcode = 0xa6
	GOTO            Opcode = 0xa7
	JSR             Opcode = 0xa8
	RET             Opcode = 0xa9
	TABLESWITCH     Opcode = 0xaa
	LOOKUPSWITCH    Opcode = 0xab
	IRETURN         Opcode = 0xac
	LRETURN         Opcode = 0xad
	FRETURN         Opcode = 0xae
	DRETURN         Opcode = 0xaf
	ARETURN         Opcode = 0xb0
	RETURN          Opcode = 0xb1
	GETSTATIC       Opcode = 0xb2
	PUTSTATIC       Opcode = 0xb3
	GETFIELD        Opcode = 0xb4
	PUTFIELD        Opcode = 0xb5
	INVOKEVIRTUAL   Opcode = 0xb6
	INVOKESPECIAL   Opcode = 0xb7
	INVOKESTATIC    Opcode = 0xb8
	INVOKEINTERFACE Opcode = 0xb9
	INVOKEDYNAMIC   Opcode = 0xba
	NEW             Opcode = 0xbb
	NEWARRAY        Opcode = 0xbc
	ANEWARRAY       Opcode = 0xbd
	ARRAYLENGTH     Opcode = 0xbe
	ATHROW          Opcode = 0xbf
	CHECKCAST       Opcode = 0xc0
	INSTANCEOF      Opcode = 0xc1
	MONITORENTER    Opcode = 0xc2
	MONITOREXIT     Opcode = 0xc3
	WIDE            Opcode = 0xc4
	MULTIANEWARRAY  Opcode = 0xc5
	IFNULL          Opcode = 0xc6
	IFNONNULL       Opcode = 0xc7
	GOTO_W          Opcode = 0xc8
	JSR_W           Opcode = 0xc9
)

// Variable is returned by Length for opcodes whose encoded length depends on
// their operands or their position in the code array.
const Variable = -1

// Unpredictable is returned by Consume and Produce when the stack effect
// depends on a constant pool entry (a field or method descriptor) or on an
// operand, and so cannot be read from the catalog alone.
const Unpredictable = -1

type info struct {
	name             string
	length           int
	consume, produce int
}

const u = Unpredictable

var catalog = [256]*info{
	NOP:             {"nop", 1, 0, 0},
	ACONST_NULL:     {"aconst_null", 1, 0, 1},
	ICONST_M1:       {"iconst_m1", 1, 0, 1},
	ICONST_0:        {"iconst_0", 1, 0, 1},
	ICONST_1:        {"iconst_1", 1, 0, 1},
	ICONST_2:        {"iconst_2", 1, 0, 1},
	ICONST_3:        {"iconst_3", 1, 0, 1},
	ICONST_4:        {"iconst_4", 1, 0, 1},
	ICONST_5:        {"iconst_5", 1, 0, 1},
	LCONST_0:        {"lconst_0", 1, 0, 2},
	LCONST_1:        {"lconst_1", 1, 0, 2},
	FCONST_0:        {"fconst_0", 1, 0, 1},
	FCONST_1:        {"fconst_1", 1, 0, 1},
	FCONST_2:        {"fconst_2", 1, 0, 1},
	DCONST_0:        {"dconst_0", 1, 0, 2},
	DCONST_1:        {"dconst_1", 1, 0, 2},
	BIPUSH:          {"bipush", 2, 0, 1},
	SIPUSH:          {"sipush", 3, 0, 1},
	LDC:             {"ldc", 2, 0, u},
	LDC_W:           {"ldc_w", 3, 0, u},
	LDC2_W:          {"ldc2_w", 3, 0, 2},
	ILOAD:           {"iload", 2, 0, 1},
	LLOAD:           {"lload", 2, 0, 2},
	FLOAD:           {"fload", 2, 0, 1},
	DLOAD:           {"dload", 2, 0, 2},
	ALOAD:           {"aload", 2, 0, 1},
	ILOAD_0:         {"iload_0", 1, 0, 1},
	ILOAD_1:         {"iload_1", 1, 0, 1},
	ILOAD_2:         {"iload_2", 1, 0, 1},
	ILOAD_3:         {"iload_3", 1, 0, 1},
	LLOAD_0:         {"lload_0", 1, 0, 2},
	LLOAD_1:         {"lload_1", 1, 0, 2},
	LLOAD_2:         {"lload_2", 1, 0, 2},
	LLOAD_3:         {"lload_3", 1, 0, 2},
	FLOAD_0:         {"fload_0", 1, 0, 1},
	FLOAD_1:         {"fload_1", 1, 0, 1},
	FLOAD_2:         {"fload_2", 1, 0, 1},
	FLOAD_3:         {"fload_3", 1, 0, 1},
	DLOAD_0:         {"dload_0", 1, 0, 2},
	DLOAD_1:         {"dload_1", 1, 0, 2},
	DLOAD_2:         {"dload_2", 1, 0, 2},
	DLOAD_3:         {"dload_3", 1, 0, 2},
	ALOAD_0:         {"aload_0", 1, 0, 1},
	ALOAD_1:         {"aload_1", 1, 0, 1},
	ALOAD_2:         {"aload_2", 1, 0, 1},
	ALOAD_3:         {"aload_3", 1, 0, 1},
	IALOAD:          {"iaload", 1, 2, 1},
	LALOAD:          {"laload", 1, 2, 2},
	FALOAD:          {"faload", 1, 2, 1},
	DALOAD:          {"daload", 1, 2, 2},
	AALOAD:          {"aaload", 1, 2, 1},
	BALOAD:          {"baload", 1, 2, 1},
	CALOAD:          {"caload", 1, 2, 1},
	SALOAD:          {"saload", 1, 2, 1},
	ISTORE:          {"istore", 2, 1, 0},
	LSTORE:          {"lstore", 2, 2, 0},
	FSTORE:          {"fstore", 2, 1, 0},
	DSTORE:          {"dstore", 2, 2, 0},
	ASTORE:          {"astore", 2, 1, 0},
	ISTORE_0:        {"istore_0", 1, 1, 0},
	ISTORE_1:        {"istore_1", 1, 1, 0},
	ISTORE_2:        {"istore_2", 1, 1, 0},
	ISTORE_3:        {"istore_3", 1, 1, 0},
	LSTORE_0:        {"lstore_0", 1, 2, 0},
	LSTORE_1:        {"lstore_1", 1, 2, 0},
	LSTORE_2:        {"lstore_2", 1, 2, 0},
	LSTORE_3:        {"lstore_3", 1, 2, 0},
	FSTORE_0:        {"fstore_0", 1, 1, 0},
	FSTORE_1:        {"fstore_1", 1, 1, 0},
	FSTORE_2:        {"fstore_2", 1, 1, 0},
	FSTORE_3:        {"fstore_3", 1, 1, 0},
	DSTORE_0:        {"dstore_0", 1, 2, 0},
	DSTORE_1:        {"dstore_1", 1, 2, 0},
	DSTORE_2:        {"dstore_2", 1, 2, 0},
	DSTORE_3:        {"dstore_3", 1, 2, 0},
	ASTORE_0:        {"astore_0", 1, 1, 0},
	ASTORE_1:        {"astore_1", 1, 1, 0},
	ASTORE_2:        {"astore_2", 1, 1, 0},
	ASTORE_3:        {"astore_3", 1, 1, 0},
	IASTORE:         {"iastore", 1, 3, 0},
	LASTORE:         {"lastore", 1, 4, 0},
	FASTORE:         {"fastore", 1, 3, 0},
	DASTORE:         {"dastore", 1, 4, 0},
	AASTORE:         {"aastore", 1, 3, 0},
	BASTORE:         {"bastore", 1, 3, 0},
	CASTORE:         {"castore", 1, 3, 0},
	SASTORE:         {"sastore", 1, 3, 0},
	POP:             {"pop", 1, 1, 0},
	POP2:            {"pop2", 1, 2, 0},
	DUP:             {"dup", 1, 1, 2},
	DUP_X1:          {"dup_x1", 1, 2, 3},
	DUP_X2:          {"dup_x2", 1, 3, 4},
	DUP2:            {"dup2", 1, 2, 4},
	DUP2_X1:         {"dup2_x1", 1, 3, 5},
	DUP2_X2:         {"dup2_x2", 1, 4, 6},
	SWAP:            {"swap", 1, 2, 2},
	IADD:            {"iadd", 1, 2, 1},
	LADD:            {"ladd", 1, 4, 2},
	FADD:            {"fadd", 1, 2, 1},
	DADD:            {"dadd", 1, 4, 2},
	ISUB:            {"isub", 1, 2, 1},
	LSUB:            {"lsub", 1, 4, 2},
	FSUB:            {"fsub", 1, 2, 1},
	DSUB:            {"dsub", 1, 4, 2},
	IMUL:            {"imul", 1, 2, 1},
	LMUL:            {"lmul", 1, 4, 2},
	FMUL:            {"fmul", 1, 2, 1},
	DMUL:            {"dmul", 1, 4, 2},
	IDIV:            {"idiv", 1, 2, 1},
	LDIV:            {"ldiv", 1, 4, 2},
	FDIV:            {"fdiv", 1, 2, 1},
	DDIV:            {"ddiv", 1, 4, 2},
	IREM:            {"irem", 1, 2, 1},
	LREM:            {"lrem", 1, 4, 2},
	FREM:            {"frem", 1, 2, 1},
	DREM:            {"drem", 1, 4, 2},
	INEG:            {"ineg", 1, 1, 1},
	LNEG:            {"lneg", 1, 2, 2},
	FNEG:            {"fneg", 1, 1, 1},
	DNEG:            {"dneg", 1, 2, 2},
	ISHL:            {"ishl", 1, 2, 1},
	LSHL:            {"lshl", 1, 3, 2},
	ISHR:            {"ishr", 1, 2, 1},
	LSHR:            {"lshr", 1, 3, 2},
	IUSHR:           {"iushr", 1, 2, 1},
	LUSHR:           {"lushr", 1, 3, 2},
	IAND:            {"iand", 1, 2, 1},
	LAND:            {"land", 1, 4, 2},
	IOR:             {"ior", 1, 2, 1},
	LOR:             {"lor", 1, 4, 2},
	IXOR:            {"ixor", 1, 2, 1},
	LXOR:            {"lxor", 1, 4, 2},
	IINC:            {"iinc", 3, 0, 0},
	I2L:             {"i2l", 1, 1, 2},
	I2F:             {"i2f", 1, 1, 1},
	I2D:             {"i2d", 1, 1, 2},
	L2I:             {"l2i", 1, 2, 1},
	L2F:             {"l2f", 1, 2, 1},
	L2D:             {"l2d", 1, 2, 2},
	F2I:             {"f2i", 1, 1, 1},
	F2L:             {"f2l", 1, 1, 2},
	F2D:             {"f2d", 1, 1, 2},
	D2I:             {"d2i", 1, 2, 1},
	D2L:             {"d2l", 1, 2, 2},
	D2F:             {"d2f", 1, 2, 1},
	I2B:             {"i2b", 1, 1, 1},
	I2C:             {"i2c", 1, 1, 1},
	I2S:             {"i2s", 1, 1, 1},
	LCMP:            {"lcmp", 1, 4, 1},
	FCMPL:           {"fcmpl", 1, 2, 1},
	FCMPG:           {"fcmpg", 1, 2, 1},
	DCMPL:           {"dcmpl", 1, 4, 1},
	DCMPG:           {"dcmpg", 1, 4, 1},
	IFEQ:            {"ifeq", 3, 1, 0},
	IFNE:            {"ifne", 3, 1, 0},
	IFLT:            {"iflt", 3, 1, 0},
	IFGE:            {"ifge", 3, 1, 0},
	IFGT:            {"ifgt", 3, 1, 0},
	IFLE:            {"ifle", 3, 1, 0},
	IF_ICMPEQ:       {"if_icmpeq", 3, 2, 0},
	IF_ICMPNE:       {"if_icmpne", 3, 2, 0},
	IF_ICMPLT:       {"if_icmplt", 3, 2, 0},
	IF_ICMPGE:       {"if_icmpge", 3, 2, 0},
	IF_ICMPGT:       {"if_icmpgt", 3, 2, 0},
	IF_ICMPLE:       {"if_icmple", 3, 2, 0},
	IF_ACMPEQ:       {"if_acmpeq", 3, 2, 0},
	IF_ACMPNE:       {"if_acmpne", 3, 2, 0},
	GOTO:            {"goto", 3, 0, 0},
	JSR:             {"jsr", 3, 0, 1},
	RET:             {"ret", 2, 0, 0},
	TABLESWITCH:     {"tableswitch", Variable, 1, 0},
	LOOKUPSWITCH:    {"lookupswitch", Variable, 1, 0},
	IRETURN:         {"ireturn", 1, 1, 0},
	LRETURN:         {"lreturn", 1, 2, 0},
	FRETURN:         {"freturn", 1, 1, 0},
	DRETURN:         {"dreturn", 1, 2, 0},
	ARETURN:         {"areturn", 1, 1, 0},
	RETURN:          {"return", 1, 0, 0},
	GETSTATIC:       {"getstatic", 3, 0, u},
	PUTSTATIC:       {"putstatic", 3, u, 0},
	GETFIELD:        {"getfield", 3, 1, u},
	PUTFIELD:        {"putfield", 3, u, 0},
	INVOKEVIRTUAL:   {"invokevirtual", 3, u, u},
	INVOKESPECIAL:   {"invokespecial", 3, u, u},
	INVOKESTATIC:    {"invokestatic", 3, u, u},
	INVOKEINTERFACE: {"invokeinterface", 5, u, u},
	INVOKEDYNAMIC:   {"invokedynamic", 5, u, u},
	NEW:             {"new", 3, 0, 1},
	NEWARRAY:        {"newarray", 2, 1, 1},
	ANEWARRAY:       {"anewarray", 3, 1, 1},
	ARRAYLENGTH:     {"arraylength", 1, 1, 1},
	ATHROW:          {"athrow", 1, 1, 0},
	CHECKCAST:       {"checkcast", 3, 1, 1},
	INSTANCEOF:      {"instanceof", 3, 1, 1},
	MONITORENTER:    {"monitorenter", 1, 1, 0},
	MONITOREXIT:     {"monitorexit", 1, 1, 0},
	WIDE:            {"wide", Variable, 0, 0},
	MULTIANEWARRAY:  {"multianewarray", 4, u, 1},
	IFNULL:          {"ifnull", 3, 1, 0},
	IFNONNULL:       {"ifnonnull", 3, 1, 0},
	GOTO_W:          {"goto_w", 5, 0, 0},
	JSR_W:           {"jsr_w", 5, 0, 1},
}

var byName = func() map[string]Opcode {
	m := make(map[string]Opcode, 202)
	for op, in := range catalog {
		if in != nil {
			m[in.name] = Opcode(op)
		}
	}
	return m
}()

// Defined returns true if op is part of the JVM instruction set.
func Defined(op Opcode) bool {
	return catalog[op] != nil
}

// Name returns the lower-case mnemonic of op, or an empty string if op is not defined.
func Name(op Opcode) string {
	if in := catalog[op]; in != nil {
		return in.name
	}
	return ""
}

// Lookup returns the opcode for the given mnemonic.
func Lookup(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

// Length returns the fixed encoded length of op including the opcode byte, or
// Variable.
func Length(op Opcode) int {
	if in := catalog[op]; in != nil {
		return in.length
	}
	return Variable
}

// Consume returns the number of operand stack slots op pops, or Unpredictable.
func Consume(op Opcode) int {
	if in := catalog[op]; in != nil {
		return in.consume
	}
	return Unpredictable
}

// Produce returns the number of operand stack slots op pushes, or Unpredictable.
func Produce(op Opcode) int {
	if in := catalog[op]; in != nil {
		return in.produce
	}
	return Unpredictable
}

package classfile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/constpool"
	"github.com/tetratelabs/classgen/opcode"
	"github.com/tetratelabs/classgen/types"
)

// maxMethod builds "static int max(int, int)" and returns the label of the
// second return.
func maxMethod(t *testing.T, pool *constpool.Pool) (*MethodGen, asm.Handle) {
	m, err := NewMethodGen(AccPublic|AccStatic, "max", "(II)I", pool)
	require.NoError(t, err)
	l := m.Instructions()
	first := l.Append(asm.NewLocal(opcode.ILOAD, 0))
	l.Append(asm.NewLocal(opcode.ILOAD, 1))
	cmp := l.Append(asm.NewBranch(opcode.IF_ICMPLT, asm.NoHandle))
	l.Append(asm.NewLocal(opcode.ILOAD, 0))
	l.Append(asm.NewSimple(opcode.IRETURN))
	second := l.Append(asm.NewLocal(opcode.ILOAD, 1))
	last := l.Append(asm.NewSimple(opcode.IRETURN))
	require.NoError(t, l.SetTarget(cmp, second))

	_, err = l.AddLineNumber(first, 10)
	require.NoError(t, err)
	_, err = l.AddLineNumber(second, 12)
	require.NoError(t, err)
	_, err = l.AddLocalVariable(0, "a", types.Int, first, last)
	require.NoError(t, err)
	_, err = l.AddLocalVariable(1, "b", types.Int, first, last)
	require.NoError(t, err)
	return m, second
}

func TestMethodGen_Code(t *testing.T) {
	m, _ := maxMethod(t, constpool.New())
	require.Equal(t, "(II)I", m.Descriptor())
	require.Equal(t, "public static max(II)I", m.String())

	c, err := m.Code()
	require.NoError(t, err)
	require.Equal(t, 2, c.MaxStack)
	require.Equal(t, 2, c.MaxLocals)
	require.Equal(t, []byte{
		0x1a,             // iload_0
		0x1b,             // iload_1
		0xa1, 0x00, 0x05, // if_icmplt +5
		0x1a,             // iload_0
		0xac,             // ireturn
		0x1b,             // iload_1
		0xac,             // ireturn
	}, c.Code)
	require.Empty(t, c.ExceptionTable)

	lines, ok := c.Attribute(AttributeLineNumberTable)
	require.True(t, ok)
	require.Equal(t, LineNumberTable{{StartPC: 0, Line: 10}, {StartPC: 7, Line: 12}}, lines)

	locals, ok := c.Attribute(AttributeLocalVariableTable)
	require.True(t, ok)
	require.Equal(t, LocalVariableTable{
		{StartPC: 0, Length: 9, Slot: 0, Name: "a", Type: types.Int},
		{StartPC: 0, Length: 9, Slot: 1, Name: "b", Type: types.Int},
	}, locals)
}

func TestMethodGen_MaxStack(t *testing.T) {
	pool := constpool.New()
	hashCode, err := pool.AddMethodref("java/lang/Object", "hashCode", "()I")
	require.NoError(t, err)

	tests := []struct {
		name                string
		access              AccessFlags
		descriptor          string
		build               func(l *asm.InstructionList)
		maxStack, maxLocals int
	}{
		{
			name:       "long arithmetic",
			access:     AccStatic,
			descriptor: "(J)J",
			build: func(l *asm.InstructionList) {
				l.Append(asm.NewLocal(opcode.LLOAD, 0))
				l.Append(asm.NewSimple(opcode.LCONST_1))
				l.Append(asm.NewSimple(opcode.LADD))
				l.Append(asm.NewSimple(opcode.LRETURN))
			},
			maxStack:  4,
			maxLocals: 2,
		},
		{
			name:       "exception handler",
			descriptor: "()V",
			build: func(l *asm.InstructionList) {
				start := l.Append(asm.NewLocal(opcode.ALOAD, 0))
				l.Append(asm.NewConstant(opcode.INVOKEVIRTUAL, hashCode))
				l.Append(asm.NewSimple(opcode.POP))
				end := l.Append(asm.NewSimple(opcode.RETURN))
				handler := l.Append(asm.NewLocal(opcode.ASTORE, 1))
				l.Append(asm.NewSimple(opcode.RETURN))
				_, err := l.AddExceptionHandler(start, end, handler, types.Throwable)
				require.NoError(t, err)
			},
			maxStack:  1,
			maxLocals: 2,
		},
		{
			name:       "subroutine",
			access:     AccStatic,
			descriptor: "()V",
			build: func(l *asm.InstructionList) {
				jsr := l.Append(asm.NewBranch(opcode.JSR, asm.NoHandle))
				l.Append(asm.NewSimple(opcode.RETURN))
				sub := l.Append(asm.NewLocal(opcode.ASTORE, 0))
				l.Append(asm.NewLocal(opcode.RET, 0))
				require.NoError(t, l.SetTarget(jsr, sub))
			},
			maxStack:  1,
			maxLocals: 1,
		},
		{
			name:       "wide local",
			access:     AccStatic,
			descriptor: "()V",
			build: func(l *asm.InstructionList) {
				l.Append(asm.NewSimple(opcode.DCONST_0))
				l.Append(asm.NewLocal(opcode.DSTORE, 300))
				l.Append(asm.NewIinc(400, 1))
				l.Append(asm.NewSimple(opcode.RETURN))
			},
			maxStack:  2,
			maxLocals: 401,
		},
		{
			name:       "empty",
			access:     AccAbstract,
			descriptor: "(Ljava/lang/String;D)V",
			build:      func(*asm.InstructionList) {},
			maxLocals:  4,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMethodGen(tc.access, "m", tc.descriptor, pool)
			require.NoError(t, err)
			tc.build(m.Instructions())

			maxStack, err := m.MaxStack()
			require.NoError(t, err)
			require.Equal(t, tc.maxStack, maxStack)
			require.Equal(t, tc.maxLocals, m.MaxLocals())
		})
	}
}

func TestMethodGen_InconsistentStack(t *testing.T) {
	t.Run("merge", func(t *testing.T) {
		m, err := NewMethodGen(AccStatic, "m", "()V", constpool.New())
		require.NoError(t, err)
		l := m.Instructions()
		l.Append(asm.NewSimple(opcode.ICONST_0))
		br := l.Append(asm.NewBranch(opcode.IFEQ, asm.NoHandle))
		l.Append(asm.NewSimple(opcode.ICONST_1))
		target := l.Append(asm.NewSimple(opcode.RETURN))
		require.NoError(t, l.SetTarget(br, target))

		_, err = m.MaxStack()
		require.ErrorIs(t, err, ErrInconsistentStack)
	})
	t.Run("underflow", func(t *testing.T) {
		m, err := NewMethodGen(AccStatic, "m", "()V", constpool.New())
		require.NoError(t, err)
		m.Instructions().Append(asm.NewSimple(opcode.POP))

		_, err = m.MaxStack()
		require.ErrorIs(t, err, ErrInconsistentStack)
	})
	t.Run("missing pool entry", func(t *testing.T) {
		m, err := NewMethodGen(AccStatic, "m", "()V", constpool.New())
		require.NoError(t, err)
		m.Instructions().Append(asm.NewConstant(opcode.GETSTATIC, 7))

		_, err = m.MaxStack()
		require.ErrorIs(t, err, constpool.ErrInvalidIndex)
	})
}

func TestMethodGen_Errors(t *testing.T) {
	_, err := NewMethodGen(0, "m", "(X)V", constpool.New())
	require.ErrorIs(t, err, types.ErrInvalidDescriptor)

	m, err := NewMethodGen(AccPublic, "m", "()V", constpool.New())
	require.NoError(t, err)
	_, err = m.Code()
	require.ErrorIs(t, err, ErrMissingCode)

	m.AddException("java/io/IOException")
	m.AddException("java/io/IOException")
	require.Equal(t, []string{"java/io/IOException"}, m.Exceptions())
}

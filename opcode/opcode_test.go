package opcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	var defined int
	for i := 0; i < 256; i++ {
		op := Opcode(i)
		if !Defined(op) {
			require.Equal(t, "", Name(op))
			require.Equal(t, Variable, Length(op))
			continue
		}
		defined++
		actual, ok := Lookup(Name(op))
		require.True(t, ok, Name(op))
		require.Equal(t, op, actual)
	}
	// 0x00 to 0xc9 inclusive.
	require.Equal(t, 202, defined)
}

func TestLength(t *testing.T) {
	for _, tc := range []struct {
		op  Opcode
		exp int
	}{
		{op: NOP, exp: 1},
		{op: BIPUSH, exp: 2},
		{op: SIPUSH, exp: 3},
		{op: GOTO, exp: 3},
		{op: GOTO_W, exp: 5},
		{op: INVOKEINTERFACE, exp: 5},
		{op: MULTIANEWARRAY, exp: 4},
		{op: TABLESWITCH, exp: Variable},
		{op: LOOKUPSWITCH, exp: Variable},
		{op: WIDE, exp: Variable},
	} {
		tc := tc
		t.Run(Name(tc.op), func(t *testing.T) {
			require.Equal(t, tc.exp, Length(tc.op))
		})
	}
}

func TestKinds(t *testing.T) {
	require.True(t, IsBranch(IFEQ))
	require.True(t, IsBranch(JSR_W))
	require.True(t, IsBranch(IFNONNULL))
	require.False(t, IsBranch(RET))
	require.False(t, IsBranch(TABLESWITCH))

	require.True(t, IsConditionalBranch(IF_ACMPNE))
	require.False(t, IsConditionalBranch(GOTO))

	require.True(t, IsSelect(LOOKUPSWITCH))
	require.True(t, IsUnconditional(ATHROW))
	require.True(t, IsUnconditional(ARETURN))
	require.False(t, IsUnconditional(IFEQ))

	require.True(t, IsLocalVariable(IINC))
	require.False(t, IsLocalVariable(ILOAD_0))
	require.True(t, IsConstantPool(LDC))
	require.True(t, IsFieldAccess(PUTFIELD))
	require.True(t, IsInvoke(INVOKEDYNAMIC))
}

func TestShortForm(t *testing.T) {
	op, ok := ShortForm(ILOAD, 2)
	require.True(t, ok)
	require.Equal(t, ILOAD_2, op)

	op, ok = ShortForm(ASTORE, 3)
	require.True(t, ok)
	require.Equal(t, ASTORE_3, op)

	_, ok = ShortForm(ILOAD, 4)
	require.False(t, ok)

	for _, op := range []Opcode{ILOAD, LLOAD, FLOAD, DLOAD, ALOAD, ISTORE, LSTORE, FSTORE, DSTORE, ASTORE} {
		for slot := 0; slot < 4; slot++ {
			short, ok := ShortForm(op, slot)
			require.True(t, ok)
			long, actualSlot, ok := LongForm(short)
			require.True(t, ok)
			require.Equal(t, op, long)
			require.Equal(t, slot, actualSlot)
		}
	}
}

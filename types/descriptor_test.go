package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDescriptor(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		expected Type
		size     int
	}{
		{desc: "I", expected: Int, size: 1},
		{desc: "J", expected: Long, size: 2},
		{desc: "V", expected: Void, size: 0},
		{desc: "Ljava/lang/String;", expected: String, size: 1},
		{desc: "[I", expected: NewArrayType(Int, 1), size: 1},
		{desc: "[[Ljava/lang/Object;", expected: NewArrayType(NewArrayType(Object, 1), 1), size: 1},
	} {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			actual, err := ParseDescriptor(tc.desc)
			require.NoError(t, err)
			require.True(t, Equal(tc.expected, actual))
			require.Equal(t, tc.desc, actual.Descriptor())
			require.Equal(t, tc.size, actual.Size())
		})
	}
}

func TestParseDescriptor_Errors(t *testing.T) {
	for _, desc := range []string{"", "X", "L;", "Ljava/lang/String", "II", "[V", "[", "(I)V"} {
		desc := desc
		t.Run(desc, func(t *testing.T) {
			_, err := ParseDescriptor(desc)
			require.ErrorIs(t, err, ErrInvalidDescriptor)
		})
	}
}

func TestParseMethodDescriptor(t *testing.T) {
	args, ret, err := ParseMethodDescriptor("(IJ[Ljava/lang/String;D)Ljava/lang/Object;")
	require.NoError(t, err)
	require.Equal(t, 4, len(args))
	require.Equal(t, Int, args[0])
	require.Equal(t, Long, args[1])
	require.Equal(t, "[Ljava/lang/String;", args[2].Descriptor())
	require.Equal(t, Double, args[3])
	require.True(t, Equal(Object, ret))
	require.Equal(t, 6, ArgumentsSize(args))
	require.Equal(t, "(IJ[Ljava/lang/String;D)Ljava/lang/Object;", MethodDescriptor(args, ret))

	args, ret, err = ParseMethodDescriptor("()V")
	require.NoError(t, err)
	require.Empty(t, args)
	require.Equal(t, Void, ret)

	for _, desc := range []string{"", "I", "(", "(I", "(V)V", "(I)", "(I)VV"} {
		_, _, err = ParseMethodDescriptor(desc)
		require.ErrorIs(t, err, ErrInvalidDescriptor, desc)
	}
}

func TestArrayType(t *testing.T) {
	a := NewArrayType(NewArrayType(Int, 2), 1)
	require.Equal(t, 3, a.Dimensions())
	require.Equal(t, Int, a.ElementType())
	require.Equal(t, "[[I", a.ComponentType().Descriptor())
	require.Equal(t, "int[][][]", a.String())
	require.Equal(t, "[[[I", a.InternalName())

	require.Panics(t, func() { NewArrayType(Void, 1) })
	require.Panics(t, func() { NewArrayType(Int, 0) })
}

func TestBasicType_ArrayTypeCode(t *testing.T) {
	code, ok := Int.ArrayTypeCode()
	require.True(t, ok)
	require.Equal(t, byte(10), code)

	b, ok := BasicTypeOfArrayCode(code)
	require.True(t, ok)
	require.Equal(t, Int, b)

	_, ok = Void.ArrayTypeCode()
	require.False(t, ok)
	_, ok = BasicTypeOfArrayCode(3)
	require.False(t, ok)
}

func TestObjectType(t *testing.T) {
	o := NewObjectType("java.util.List")
	require.Equal(t, "java/util/List", o.InternalName())
	require.Equal(t, "java.util.List", o.ClassName())
	require.Equal(t, "Ljava/util/List;", o.Descriptor())
	require.False(t, Equal(o, Null))
	require.True(t, Equal(Null, Null))
}

package classfile

import (
	"bytes"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/classgen/constpool"
	"github.com/tetratelabs/classgen/types"
)

func TestFieldGen_SetInitValue(t *testing.T) {
	tests := []struct {
		name     string
		typ      types.Type
		value    any
		tag      constpool.Tag
		bits     uint64
		mismatch bool
	}{
		{name: "int", typ: types.Int, value: int32(42), tag: constpool.TagInteger, bits: 42},
		{name: "int from int", typ: types.Int, value: -1, tag: constpool.TagInteger, bits: 0xffffffff},
		{name: "boolean", typ: types.Boolean, value: true, tag: constpool.TagInteger, bits: 1},
		{name: "boolean from int", typ: types.Boolean, value: 0, tag: constpool.TagInteger, bits: 0},
		{name: "char", typ: types.Char, value: 'A', tag: constpool.TagInteger, bits: 65},
		{name: "byte", typ: types.Byte, value: int8(-128), tag: constpool.TagInteger, bits: 0xffffff80},
		{name: "long", typ: types.Long, value: int64(1) << 40, tag: constpool.TagLong, bits: 1 << 40},
		{name: "float", typ: types.Float, value: float32(1.5), tag: constpool.TagFloat, bits: uint64(math.Float32bits(1.5))},
		{name: "double", typ: types.Double, value: 0.25, tag: constpool.TagDouble, bits: math.Float64bits(0.25)},
		{name: "double from float32", typ: types.Double, value: float32(0.5), tag: constpool.TagDouble, bits: math.Float64bits(0.5)},
		{name: "string", typ: types.String, value: "hello", tag: constpool.TagString},

		{name: "byte out of range", typ: types.Byte, value: 300, mismatch: true},
		{name: "char negative", typ: types.Char, value: -1, mismatch: true},
		{name: "boolean out of range", typ: types.Boolean, value: 2, mismatch: true},
		{name: "int overflow", typ: types.Int, value: int64(math.MaxInt32) + 1, mismatch: true},
		{name: "int from string", typ: types.Int, value: "1", mismatch: true},
		{name: "int from bool", typ: types.Int, value: true, mismatch: true},
		{name: "float from float64", typ: types.Float, value: 1.5, mismatch: true},
		{name: "long from float", typ: types.Long, value: 1.0, mismatch: true},
		{name: "object from string", typ: types.Object, value: "hello", mismatch: true},
		{name: "array", typ: types.NewArrayType(types.Int, 1), value: 1, mismatch: true},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			pool := constpool.New()
			f := NewFieldGen(AccPublic|AccStatic|AccFinal, "X", tc.typ, pool)
			err := f.SetInitValue(tc.value)
			if tc.mismatch {
				require.ErrorIs(t, err, ErrConstantTypeMismatch)
				require.Empty(t, f.Attributes())
				_, ok := f.InitValue()
				require.False(t, ok)
				return
			}
			require.NoError(t, err)

			attrs := f.Attributes()
			require.Len(t, attrs, 1)
			cv := attrs[0].(*ConstantValue)
			e, err := pool.Entry(cv.Index)
			require.NoError(t, err)
			require.Equal(t, tc.tag, e.Tag)
			if tc.tag == constpool.TagString {
				s, err := pool.Utf8(e.Ref1)
				require.NoError(t, err)
				require.Equal(t, tc.value, s)
			} else {
				require.Equal(t, tc.bits, e.Bits)
			}

			v, ok := f.InitValue()
			require.True(t, ok)
			require.Equal(t, tc.value, v)
		})
	}
}

func TestFieldGen_SingleConstantValue(t *testing.T) {
	pool := constpool.New()
	f := NewFieldGen(AccStatic|AccFinal, "N", types.Int, pool)
	f.AttachAttribute(&Raw{Kind: "Synthetic"})

	require.NoError(t, f.SetInitValue(1))
	require.NoError(t, f.SetInitValue(2))
	attrs := f.Attributes()
	require.Len(t, attrs, 2)
	require.Equal(t, "Synthetic", attrs[0].Name())

	two, err := pool.AddInteger(2)
	require.NoError(t, err)
	require.Equal(t, &ConstantValue{Index: two}, attrs[1])

	// A mismatch leaves the previous value in place.
	require.ErrorIs(t, f.SetInitValue("2"), ErrConstantTypeMismatch)
	require.Equal(t, &ConstantValue{Index: two}, f.Attributes()[1])

	require.NoError(t, f.SetInitValue(nil))
	require.Len(t, f.Attributes(), 1)
	_, ok := f.InitValue()
	require.False(t, ok)
}

func TestFieldGen_NotStaticFinal(t *testing.T) {
	var buf bytes.Buffer
	f := NewFieldGen(AccPrivate, "count", types.Long, constpool.New())
	f.SetLogger(zerolog.New(&buf))

	require.NoError(t, f.SetInitValue(int64(7)))
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"field":"count"`)
	require.Equal(t, "private long count = 7", f.String())
}

func TestNewFieldGen_InvalidType(t *testing.T) {
	require.Panics(t, func() { NewFieldGen(0, "v", types.Void, constpool.New()) })
	require.Panics(t, func() { NewFieldGen(0, "n", types.Null, constpool.New()) })
}

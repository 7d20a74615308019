package asm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/classgen/opcode"
	"github.com/tetratelabs/classgen/types"
)

func TestLayout_LookupSwitchKeepsOrder(t *testing.T) {
	l := NewInstructionList()
	load := l.Append(NewLocal(opcode.ILOAD, 0))
	one := l.Append(NewSimple(opcode.ICONST_1))
	ret := l.Append(NewSimple(opcode.IRETURN))
	sel := l.InsertAfter(load, NewLookupSwitch([]int32{10, 5, 20}, []Handle{one, ret, one}, ret))

	lay, err := l.Layout()
	require.NoError(t, err)
	require.Equal(t, 1, lay.Position(sel))
	require.Equal(t, 35, lay.Length(sel))
	require.Equal(t, 36, lay.Position(one))
	require.Equal(t, 37, lay.Position(ret))

	code, err := lay.Code()
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x1a,        // iload_0
		0xab, 0, 0,  // lookupswitch, padding
		0, 0, 0, 36, // default
		0, 0, 0, 3,  // npairs
		0, 0, 0, 10, 0, 0, 0, 35,
		0, 0, 0, 5, 0, 0, 0, 36,
		0, 0, 0, 20, 0, 0, 0, 35,
		0x04, // iconst_1
		0xac, // ireturn
	}, code)
}

func TestLayout_EmptyTableSwitch(t *testing.T) {
	l := NewInstructionList()
	ret := l.Append(NewSimple(opcode.RETURN))
	l.InsertBefore(ret, NewTableSwitch(nil, nil, ret))

	lay, err := l.Layout()
	require.NoError(t, err)
	code, err := lay.Code()
	require.NoError(t, err)
	require.Equal(t, []byte{
		0xaa, 0, 0, 0, // tableswitch, padding
		0, 0, 0, 20,   // default
		0, 0, 0, 0,    // low
		0, 0, 0, 0,    // high
		0, 0, 0, 20,   // case 0
		0xb1,          // return
	}, code)
}

func TestLayout_SwitchAlignment(t *testing.T) {
	for prefix := 0; prefix < 8; prefix++ {
		for _, op := range []opcode.Opcode{opcode.TABLESWITCH, opcode.LOOKUPSWITCH} {
			l := NewInstructionList()
			for i := 0; i < prefix; i++ {
				l.Append(NewSimple(opcode.NOP))
			}
			ret := l.Append(NewSimple(opcode.RETURN))
			sel := newSelect(op, []int32{0, 1}, []Handle{ret, ret}, ret)
			h := l.InsertBefore(ret, sel)

			lay, err := l.Layout()
			require.NoError(t, err)
			pos := lay.Position(h)
			require.Equal(t, prefix, pos)
			pad := (4 - (pos+1)%4) % 4
			require.Zero(t, (pos+1+pad)%4)
			require.Equal(t, sel.Size(pos, false), lay.Length(h))

			code, err := lay.Code()
			require.NoError(t, err)
			require.Equal(t, make([]byte, pad), code[pos+1:pos+1+pad])
			def := int32(binary.BigEndian.Uint32(code[pos+1+pad:]))
			require.Equal(t, lay.Position(ret), pos+int(def))
		}
	}
}

// branchy returns a list mixing branches, switches and debug entries.
func branchy(t *testing.T) (*InstructionList, []Handle) {
	l := NewInstructionList()
	start := l.Append(NewLocal(opcode.ILOAD, 1))
	sel := l.Append(NewTableSwitch([]int32{-1, 0, 1}, make([]Handle, 3), NoHandle))
	a := l.Append(NewIinc(1, 1))
	loop := l.Append(NewLocal(opcode.ILOAD, 1))
	cond := l.Append(NewBranch(opcode.IFLE, loop))
	b := l.Append(NewSimple(opcode.NOP))
	lookup := l.Append(NewLookupSwitch([]int32{7, -3}, []Handle{a, b}, start))
	end := l.Append(NewSimple(opcode.RETURN))
	back := l.InsertBefore(end, NewBranch(opcode.GOTO, loop))
	require.NoError(t, l.SetDefaultTarget(sel, end))
	for i, h := range []Handle{a, b, loop} {
		require.NoError(t, l.SetSelectTarget(sel, i, h))
	}
	_, err := l.AddLineNumber(start, 1)
	require.NoError(t, err)
	_, err = l.AddLineNumber(loop, 2)
	require.NoError(t, err)
	_, err = l.AddLocalVariable(1, "i", types.Int, start, end)
	require.NoError(t, err)
	return l, []Handle{start, sel, a, loop, cond, b, lookup, back, end}
}

func TestLayout_Idempotent(t *testing.T) {
	l, handles := branchy(t)
	first, err := l.Layout()
	require.NoError(t, err)
	second, err := l.Layout()
	require.NoError(t, err)

	for _, h := range handles {
		require.Equal(t, first.Position(h), second.Position(h))
		require.Equal(t, first.Length(h), second.Length(h))
	}
	c1, err := first.Code()
	require.NoError(t, err)
	c2, err := second.Code()
	require.NoError(t, err)
	require.Equal(t, c1, c2)
	require.Equal(t, len(c1), first.Size())
}

func TestLayout_OffsetRoundTrip(t *testing.T) {
	l, handles := branchy(t)
	lay, err := l.Layout()
	require.NoError(t, err)
	code, err := lay.Code()
	require.NoError(t, err)

	decoded, at, err := Decode(code)
	require.NoError(t, err)
	require.Equal(t, l.Len(), decoded.Len())
	requireConsistent(t, decoded)

	for _, h := range handles {
		pos := lay.Position(h)
		dh, ok := at[pos]
		require.True(t, ok)
		switch in := l.Instruction(h).(type) {
		case *Branch:
			off := int(int16(binary.BigEndian.Uint16(code[pos+1:])))
			require.Equal(t, lay.Position(in.Target()), pos+off)
			require.Equal(t, at[lay.Position(in.Target())], decoded.Instruction(dh).(*Branch).Target())
		case *Select:
			ds := decoded.Instruction(dh).(*Select)
			require.Equal(t, in.Matches(), ds.Matches())
			require.Equal(t, at[lay.Position(in.Default())], ds.Default())
			for i, target := range in.Targets() {
				require.Equal(t, at[lay.Position(target)], ds.Targets()[i])
			}
		}
	}

	// Nothing in this code is normalized by decoding, so it lays out the same.
	relaid, err := decoded.Layout()
	require.NoError(t, err)
	recoded, err := relaid.Code()
	require.NoError(t, err)
	require.Equal(t, code, recoded)
}

func TestLayout_DebugTables(t *testing.T) {
	l := NewInstructionList()
	a := l.Append(NewSimple(opcode.ICONST_0))
	b := l.Append(NewLocal(opcode.ISTORE, 4))
	c := l.Append(NewBranch(opcode.GOTO, a))
	d := l.Append(NewSimple(opcode.RETURN))

	_, err := l.AddLineNumber(b, 7)
	require.NoError(t, err)
	_, err = l.AddLocalVariable(4, "x", types.Int, b, c)
	require.NoError(t, err)
	_, err = l.AddLocalVariable(5, "empty", types.Int, d, d)
	require.NoError(t, err)
	backwards, err := l.AddLocalVariable(6, "backwards", types.Int, c, b)
	require.NoError(t, err)
	_, err = l.AddExceptionHandler(a, c, d, nil)
	require.NoError(t, err)

	lay, err := l.Layout()
	require.NoError(t, err)

	lines, err := lay.LineNumbers()
	require.NoError(t, err)
	require.Equal(t, []LineNumber{{StartPC: 1, Line: 7}}, lines)

	_, err = lay.LocalVariables()
	require.Error(t, err)
	l.RemoveLocalVariable(backwards)
	lay, err = l.Layout()
	require.NoError(t, err)

	locals, err := lay.LocalVariables()
	require.NoError(t, err)
	require.Equal(t, []LocalVariable{
		// istore 4 at 1 and goto at 3, which is included.
		{StartPC: 1, Length: 5, Slot: 4, Name: "x", Type: types.Int},
		{StartPC: 6, Length: 0, Slot: 5, Name: "empty", Type: types.Int},
	}, locals)

	handlers, err := lay.ExceptionTable()
	require.NoError(t, err)
	require.Equal(t, []ExceptionHandler{{StartPC: 0, EndPC: 6, HandlerPC: 6}}, handlers)
}

func TestLayout_GotoWidening(t *testing.T) {
	for _, tc := range []struct {
		name    string
		forward bool
	}{
		{name: "forward", forward: true},
		{name: "backward"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			l := NewInstructionList()
			target := l.Append(NewSimple(opcode.RETURN))
			var br Handle
			if tc.forward {
				br = l.InsertBefore(target, NewBranch(opcode.GOTO, target))
				for i := 0; i < 33000; i++ {
					l.InsertBefore(target, NewSimple(opcode.NOP))
				}
			} else {
				for i := 0; i < 33000; i++ {
					l.Append(NewSimple(opcode.NOP))
				}
				br = l.Append(NewBranch(opcode.GOTO, target))
			}

			lay, err := l.Layout()
			require.NoError(t, err)
			require.Greater(t, lay.Passes(), 1)
			require.Equal(t, opcode.GOTO_W, lay.Opcode(br))
			require.Equal(t, opcode.GOTO, l.Instruction(br).Opcode())
			require.Equal(t, 5, lay.Length(br))

			code, err := lay.Code()
			require.NoError(t, err)
			pos := lay.Position(br)
			require.Equal(t, opcode.GOTO_W, code[pos])
			off := int(int32(binary.BigEndian.Uint32(code[pos+1:])))
			require.Equal(t, lay.Position(target), pos+off)
		})
	}
}

func TestLayout_Errors(t *testing.T) {
	t.Run("conditional overflow", func(t *testing.T) {
		l := NewInstructionList()
		target := l.Append(NewSimple(opcode.RETURN))
		l.InsertBefore(target, NewBranch(opcode.IFEQ, target))
		for i := 0; i < 33000; i++ {
			l.InsertBefore(target, NewSimple(opcode.NOP))
		}
		_, err := l.Layout()
		require.ErrorIs(t, err, ErrBranchOffsetOverflow)
	})
	t.Run("code too large", func(t *testing.T) {
		l := NewInstructionList()
		for i := 0; i <= MaxCodeLength; i++ {
			l.Append(NewSimple(opcode.NOP))
		}
		_, err := l.Layout()
		require.ErrorIs(t, err, ErrCodeTooLarge)
	})
	t.Run("missing target", func(t *testing.T) {
		l := NewInstructionList()
		l.Append(NewBranch(opcode.GOTO, NoHandle))
		ret := l.Append(NewSimple(opcode.RETURN))
		l.Append(NewLookupSwitch([]int32{1}, []Handle{NoHandle}, ret))
		_, err := l.Layout()
		require.ErrorIs(t, err, ErrMissingTarget)
		require.Contains(t, err.Error(), "2 errors occurred")
	})
	t.Run("stale", func(t *testing.T) {
		l := NewInstructionList()
		h := l.Append(NewSimple(opcode.RETURN))
		_, err := l.AddLineNumber(h, 1)
		require.NoError(t, err)
		lay, err := l.Layout()
		require.NoError(t, err)
		l.Append(NewSimple(opcode.NOP))
		_, err = lay.Code()
		require.ErrorIs(t, err, ErrStaleLayout)
		_, err = lay.LineNumbers()
		require.ErrorIs(t, err, ErrStaleLayout)
	})
	t.Run("stale accessors", func(t *testing.T) {
		l := NewInstructionList()
		nop := l.Append(NewSimple(opcode.NOP))
		ret := l.Append(NewSimple(opcode.RETURN))
		lay, err := l.Layout()
		require.NoError(t, err)
		require.Equal(t, 1, lay.Position(ret))
		require.NoError(t, l.Remove(nop))

		msg := ErrStaleLayout.Error()
		require.PanicsWithValue(t, msg, func() { lay.Opcode(nop) })
		require.PanicsWithValue(t, msg, func() { lay.Position(ret) })
		require.PanicsWithValue(t, msg, func() { lay.Length(ret) })
		require.PanicsWithValue(t, msg, func() { lay.Offset(ret, ret) })
		require.PanicsWithValue(t, msg, func() { lay.HandleAt(0) })
	})
	t.Run("no convergence", func(t *testing.T) {
		l := NewInstructionList()
		ret := l.Append(NewSimple(opcode.RETURN))
		l.InsertBefore(ret, NewLookupSwitch(nil, nil, ret))
		require.Panics(t, func() { _, _ = l.Layout(WithMaxPasses(1)) })
	})
}

func TestLayout_StrictSwitches(t *testing.T) {
	for _, tc := range []struct {
		name string
		sel  func(ret Handle) *Select
	}{
		{name: "unsorted table", sel: func(ret Handle) *Select {
			return NewTableSwitch([]int32{2, 1}, []Handle{ret, ret}, ret)
		}},
		{name: "table with gap", sel: func(ret Handle) *Select {
			return NewTableSwitch([]int32{1, 3}, []Handle{ret, ret}, ret)
		}},
		{name: "duplicate lookup", sel: func(ret Handle) *Select {
			return NewLookupSwitch([]int32{4, 4}, []Handle{ret, ret}, ret)
		}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			l := NewInstructionList()
			ret := l.Append(NewSimple(opcode.RETURN))
			h := l.InsertBefore(ret, tc.sel(ret))

			_, err := l.Layout()
			require.ErrorIs(t, err, ErrInvalidSwitch)

			lay, err := l.Layout(WithStrictSwitches(false))
			require.NoError(t, err)
			code, err := lay.Code()
			require.NoError(t, err)
			require.Equal(t, lay.Length(h)+1, len(code))
		})
	}

	// Trusting mode encodes the first and last match as the bounds.
	l := NewInstructionList()
	ret := l.Append(NewSimple(opcode.RETURN))
	l.InsertBefore(ret, NewTableSwitch([]int32{1, 3}, []Handle{ret, ret}, ret))
	lay, err := l.Layout(WithStrictSwitches(false))
	require.NoError(t, err)
	code, err := lay.Code()
	require.NoError(t, err)
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(code[8:]))
	require.Equal(t, uint32(3), binary.BigEndian.Uint32(code[12:]))
}

func TestLayout_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	l, _ := branchy(t)
	_, err := l.Layout(WithLogger(logger))
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"message":"layout pass"`)
	require.Contains(t, buf.String(), `"pass":1`)
}

func TestLayout_HandleAt(t *testing.T) {
	l := NewInstructionList()
	a := l.Append(NewPush(opcode.SIPUSH, 1000))
	b := l.Append(NewSimple(opcode.IRETURN))
	lay, err := l.Layout()
	require.NoError(t, err)

	h, ok := lay.HandleAt(0)
	require.True(t, ok)
	require.Equal(t, a, h)
	h, ok = lay.HandleAt(3)
	require.True(t, ok)
	require.Equal(t, b, h)
	_, ok = lay.HandleAt(1)
	require.False(t, ok)
	_, ok = lay.HandleAt(4)
	require.False(t, ok)
	require.Equal(t, []Handle{a, b}, lay.Handles())
	require.Panics(t, func() { lay.Position(Handle(42)) })
}

func TestNewSwitch(t *testing.T) {
	l := NewInstructionList()
	a := l.Append(NewSimple(opcode.NOP))
	b := l.Append(NewSimple(opcode.NOP))
	def := l.Append(NewSimple(opcode.RETURN))

	dense, err := NewSwitch([]int32{3, 1, 2, 5}, []Handle{a, b, a, b}, def)
	require.NoError(t, err)
	require.Equal(t, opcode.TABLESWITCH, dense.Opcode())
	require.Equal(t, []int32{1, 2, 3, 4, 5}, dense.Matches())
	require.Equal(t, []Handle{b, a, a, def, b}, dense.Targets())
	require.NoError(t, dense.Validate())

	// Two values far enough apart are cheaper as a lookup.
	pair, err := NewSwitch([]int32{3, 1}, []Handle{a, b}, def)
	require.NoError(t, err)
	require.Equal(t, opcode.LOOKUPSWITCH, pair.Opcode())

	sparse, err := NewSwitch([]int32{1000, -5, 70000}, []Handle{a, b, a}, def)
	require.NoError(t, err)
	require.Equal(t, opcode.LOOKUPSWITCH, sparse.Opcode())
	require.Equal(t, []int32{-5, 1000, 70000}, sparse.Matches())
	require.Equal(t, []Handle{b, a, a}, sparse.Targets())

	empty, err := NewSwitch(nil, nil, def)
	require.NoError(t, err)
	require.Zero(t, empty.Len())

	_, err = NewSwitch([]int32{1, 1}, []Handle{a, b}, def)
	require.ErrorIs(t, err, ErrInvalidSwitch)
	_, err = NewSwitch([]int32{1}, nil, def)
	require.ErrorIs(t, err, ErrInvalidSwitch)

	h := l.InsertBefore(a, dense)
	lay, err := l.Layout()
	require.NoError(t, err)
	require.Equal(t, 1+3+12+5*4, lay.Length(h))
}

func TestSuccessors(t *testing.T) {
	l, hs := branchy(t)
	start, sel, a, loop, cond, b, lookup, back, end := hs[0], hs[1], hs[2], hs[3], hs[4], hs[5], hs[6], hs[7], hs[8]

	require.Equal(t, []Handle{sel}, l.Successors(start))
	require.Equal(t, []Handle{end, a, b, loop}, l.Successors(sel))
	require.Equal(t, []Handle{b, loop}, l.Successors(cond))
	require.Equal(t, []Handle{start, a, b}, l.Successors(lookup))
	require.Equal(t, []Handle{loop}, l.Successors(back))
	require.Empty(t, l.Successors(end))

	jsr := l.InsertAfter(end, NewBranch(opcode.JSR, loop))
	after := l.Append(NewSimple(opcode.RETURN))
	require.Equal(t, []Handle{after, loop}, l.Successors(jsr))
}

package jasm

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/classgen/classfile"
)

func disassemble(t *testing.T, c *classfile.ClassGen, style Style) string {
	b, err := c.Bytes()
	require.NoError(t, err)
	cf, err := classfile.Parse(b)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Disassemble(&buf, cf, style))
	return buf.String()
}

func TestDisassemble(t *testing.T) {
	out := disassemble(t, assemble(t, counterSource), PlainStyle)

	for _, exp := range []string{
		".class public super demo/Counter\n.super java/lang/Object\n.implements java/lang/Runnable\n# version 52.0, java 8\n.source \"Counter.java\"\n",
		".field private static final LIMIT I = 10\n",
		".field public static final NAME Ljava/lang/String; = \"counter\"\n",
		".field static final RATIO F = 1.5f\n",
		".field static final ENABLED Z = 1\n",
		".field private count J\n",
		`.method public static clamp (I)I
    # max_stack 2, max_locals 1
    .line 3
    iload_0
    getstatic demo/Counter.LIMIT I
    if_icmple L11
    getstatic demo/Counter.LIMIT I
    ireturn
L11:
    iload_0
    ireturn
.end method
`,
		`.method static pick (I)I
    # max_stack 1, max_locals 1
    iload_0
    tableswitch 1
        L28
        L30
        L28
        default: L32
L28:
    iconst_1
`,
		"    .throws java/io/IOException\n",
		"    ldc2_w 5000000000\n",
		"    ldc2_w 2.5d\n",
		"    ldc \"hello\"\n",
		"    ldc NaN\n",
		"    ldc class demo/Counter\n",
		"    multianewarray [[I 2\n",
		"    newarray double\n",
		"    istore 300\n",
		"    iinc 300 -1\n",
		"    invokevirtual java/lang/Object.hashCode ()I\n",
		"    invokeinterface java/lang/CharSequence.length ()I\n",
		"    .var 0 this Ldemo/Counter; from L0 to ",
		"    .catch java/lang/RuntimeException from ",
	} {
		require.Contains(t, out, exp)
	}
}

func TestDisassemble_RoundTrip(t *testing.T) {
	first := disassemble(t, assemble(t, counterSource), PlainStyle)
	second := disassemble(t, assemble(t, first), PlainStyle)
	require.Equal(t, first, second)
}

func TestDisassemble_Style(t *testing.T) {
	tag := func(name string) func(string, ...any) string {
		return func(format string, a ...any) string {
			return "<" + name + ">" + fmt.Sprintf(format, a...) + "</" + name + ">"
		}
	}
	style := Style{
		Directive:   tag("d"),
		Instruction: tag("i"),
		Label:       tag("l"),
		Literal:     tag("v"),
		Comment:     tag("c"),
	}
	out := disassemble(t, assemble(t, `.class demo/A
.field static final X I = 3
.method static f (I)V
    iload 0
    ifeq out
out:
    return
.end method
`), style)

	require.Contains(t, out, "<d>.field</d> static final X I = <v>3</v>\n")
	require.Contains(t, out, "    <i>ifeq</i> <l>L4</l>\n")
	require.Contains(t, out, "<l>L4:</l>\n")
	require.Contains(t, out, "<c># version 52.0, java 8</c>\n")
	require.True(t, strings.HasPrefix(out, "<d>.class</d> demo/A\n"), out)
}

func TestDisassemble_Abstract(t *testing.T) {
	out := disassemble(t, assemble(t, `.class public abstract demo/Shape
.method public abstract area ()D
.end method
`), PlainStyle)
	require.Contains(t, out, ".class public abstract demo/Shape\n")
	require.Contains(t, out, "\n.method public abstract area ()D\n.end method\n")
}

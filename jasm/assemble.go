// Package jasm is a line oriented text form of class files.
//
// Assemble turns source into a classfile.ClassGen:
//
//	.class public super demo/Counter
//	.super java/lang/Object
//	.field private static final LIMIT I = 10
//
//	.method public static clamp (I)I
//	    .line 3
//	    iload 0
//	    getstatic demo/Counter.LIMIT I
//	    if_icmple done
//	    getstatic demo/Counter.LIMIT I
//	    ireturn
//	done:
//	    iload 0
//	    ireturn
//	.end method
//
// Branches and switch entries name labels, which refer to the next
// instruction. ".var slot name desc from L1 to L2" and
// ".catch type from L1 to L2 using L3" take the first and last instruction
// covered, both inclusive. Disassemble writes the same form.
package jasm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/tetratelabs/classgen/asm"
	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/types"
)

// ErrSyntax is wrapped by errors for malformed source lines.
var ErrSyntax = errors.New("syntax error")

var directives = map[string]func(a *assembler, args []token) error{
	".class":      (*assembler).parseClass,
	".super":      (*assembler).parseSuper,
	".implements": (*assembler).parseImplements,
	".source":     (*assembler).parseSource,
	".field":      (*assembler).parseField,
	".method":     (*assembler).parseMethod,
	".end":        (*assembler).parseEnd,
	".throws":     (*assembler).parseThrows,
	".line":       (*assembler).parseLine,
	".var":        (*assembler).parseVar,
	".catch":      (*assembler).parseCatch,
}

type assembler struct {
	file   string
	line   int
	opts   []classfile.Option
	errs   *multierror.Error
	class  *classfile.ClassGen
	method *method
}

// Assemble parses src and returns the class it describes. name is used in
// error messages. Every erroneous line is reported, each prefixed with
// name:line.
func Assemble(name string, src io.Reader, opts ...classfile.Option) (*classfile.ClassGen, error) {
	a := &assembler{file: name, opts: opts}
	s := bufio.NewScanner(src)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for s.Scan() {
		a.line++
		if err := a.parseSourceLine(s.Text()); err != nil {
			a.addError(err)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if a.method != nil {
		a.addError(fmt.Errorf("%w: method %s is missing .end method", ErrSyntax, a.method.gen.Name()))
	}
	if a.class == nil {
		a.errs = multierror.Append(a.errs, fmt.Errorf("%s: %w: missing .class", name, ErrSyntax))
	}
	if err := a.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return a.class, nil
}

func (a *assembler) addError(err error) {
	a.errs = multierror.Append(a.errs, fmt.Errorf("%s:%d: %w", a.file, a.line, err))
}

func syntaxf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}

func (a *assembler) parseSourceLine(text string) error {
	toks, err := tokenize(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if len(toks) == 0 {
		return nil
	}
	if m := a.method; m != nil && m.sw != nil && !strings.HasPrefix(toks[0].text, ".") {
		return m.parseSwitchEntry(toks, a.line)
	}

	if first := toks[0]; !first.quoted && isLabel(first.text) {
		if a.method == nil {
			return syntaxf("label %s outside of a method", strings.TrimSuffix(first.text, ":"))
		}
		if err = a.method.defineLabel(strings.TrimSuffix(first.text, ":"), a.line); err != nil {
			return err
		}
		if toks = toks[1:]; len(toks) == 0 {
			return nil
		}
	}

	head := toks[0]
	if !head.quoted && strings.HasPrefix(head.text, ".") {
		fn, ok := directives[head.text]
		if !ok {
			return syntaxf("unknown directive %s", head.text)
		}
		return fn(a, toks[1:])
	}
	if a.method == nil {
		return syntaxf("instruction %s outside of a method", head.text)
	}
	return a.method.parseInstruction(toks, a.line)
}

func (a *assembler) requireClass(directive string) error {
	if a.class == nil {
		return syntaxf("%s before .class", directive)
	}
	if a.method != nil {
		return syntaxf("%s inside method %s", directive, a.method.gen.Name())
	}
	return nil
}

func (a *assembler) requireMethod(directive string) (*method, error) {
	if a.method == nil {
		return nil, syntaxf("%s outside of a method", directive)
	}
	return a.method, nil
}

// accessFlags parses the keywords before the trailing operands.
func accessFlags(ws []string) (classfile.AccessFlags, error) {
	var ret classfile.AccessFlags
	for _, w := range ws {
		f, ok := classfile.ParseAccessFlag(w)
		if !ok {
			return 0, syntaxf("unknown access flag %s", w)
		}
		ret |= f
	}
	return ret, nil
}

func (a *assembler) parseClass(args []token) error {
	if a.class != nil {
		return syntaxf("duplicate .class")
	}
	ws, err := words(args)
	if err != nil || len(ws) == 0 {
		return syntaxf(".class wants access flags and a name")
	}
	access, err := accessFlags(ws[:len(ws)-1])
	if err != nil {
		return err
	}
	name := strings.ReplaceAll(ws[len(ws)-1], ".", "/")
	super := "java/lang/Object"
	if name == super {
		super = ""
	}
	a.class = classfile.NewClassGen(access, name, super, a.opts...)
	return nil
}

func (a *assembler) singleName(directive string, args []token) (string, error) {
	if err := a.requireClass(directive); err != nil {
		return "", err
	}
	ws, err := words(args)
	if err != nil || len(ws) != 1 {
		return "", syntaxf("%s wants one class name", directive)
	}
	return strings.ReplaceAll(ws[0], ".", "/"), nil
}

func (a *assembler) parseSuper(args []token) error {
	name, err := a.singleName(".super", args)
	if err != nil {
		return err
	}
	a.class.SetSuper(name)
	return nil
}

func (a *assembler) parseImplements(args []token) error {
	name, err := a.singleName(".implements", args)
	if err != nil {
		return err
	}
	a.class.AddInterface(name)
	return nil
}

func (a *assembler) parseSource(args []token) error {
	if err := a.requireClass(".source"); err != nil {
		return err
	}
	if len(args) != 1 {
		return syntaxf(".source wants one file name")
	}
	a.class.AttachAttribute(&classfile.SourceFile{File: args[0].text})
	return nil
}

func (a *assembler) parseField(args []token) error {
	if err := a.requireClass(".field"); err != nil {
		return err
	}
	var value *token
	for i, t := range args {
		if !t.quoted && t.text == "=" {
			if i != len(args)-2 {
				return syntaxf(".field wants one value after =")
			}
			value = &args[i+1]
			args = args[:i]
			break
		}
	}
	ws, err := words(args)
	if err != nil || len(ws) < 2 {
		return syntaxf(".field wants access flags, a name and a descriptor")
	}
	access, err := accessFlags(ws[:len(ws)-2])
	if err != nil {
		return err
	}
	name, desc := ws[len(ws)-2], ws[len(ws)-1]
	typ, err := types.ParseDescriptor(desc)
	if err != nil {
		return err
	}
	if typ == types.Void {
		return syntaxf("field %s cannot be void", name)
	}
	if _, ok := a.class.Field(name); ok {
		return syntaxf("duplicate field %s", name)
	}
	f := a.class.AddField(access, name, typ)
	if value == nil {
		return nil
	}
	v, err := fieldValue(typ, *value)
	if err != nil {
		return err
	}
	return f.SetInitValue(v)
}

// fieldValue converts a literal to the Go value SetInitValue expects for typ.
// Literals of the wrong kind are passed through so that SetInitValue reports
// the mismatch.
func fieldValue(typ types.Type, t token) (any, error) {
	if t.quoted {
		return t.text, nil
	}
	s := t.text
	switch typ {
	case types.Boolean:
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		fallthrough
	case types.Byte, types.Short, types.Char, types.Int:
		v, err := parseInt(s, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case types.Long:
		return parseInt(s, 64)
	case types.Float:
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "f"), 32)
		if err != nil {
			return nil, syntaxf("invalid float %q", s)
		}
		return float32(v), nil
	case types.Double:
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return nil, syntaxf("invalid double %q", s)
		}
		return v, nil
	}
	return s, nil
}

func (a *assembler) parseMethod(args []token) error {
	if err := a.requireClass(".method"); err != nil {
		return err
	}
	ws, err := words(args)
	if err != nil || len(ws) < 2 {
		return syntaxf(".method wants access flags, a name and a descriptor")
	}
	access, err := accessFlags(ws[:len(ws)-2])
	if err != nil {
		return err
	}
	name, desc := ws[len(ws)-2], ws[len(ws)-1]
	if _, ok := a.class.Method(name, desc); ok {
		return syntaxf("duplicate method %s%s", name, desc)
	}
	gen, err := a.class.AddMethod(access, name, desc)
	if err != nil {
		return err
	}
	a.method = newMethod(gen)
	return nil
}

func (a *assembler) parseEnd(args []token) error {
	if len(args) != 1 || args[0].text != "method" {
		return syntaxf(".end wants method")
	}
	m, err := a.requireMethod(".end method")
	if err != nil {
		return err
	}
	a.method = nil
	for _, e := range m.finish() {
		a.errs = multierror.Append(a.errs, fmt.Errorf("%s:%d: %w", a.file, e.line, e.err))
	}
	return nil
}

func (a *assembler) parseThrows(args []token) error {
	m, err := a.requireMethod(".throws")
	if err != nil {
		return err
	}
	ws, err := words(args)
	if err != nil || len(ws) != 1 {
		return syntaxf(".throws wants one class name")
	}
	m.gen.AddException(strings.ReplaceAll(ws[0], ".", "/"))
	return nil
}

func (a *assembler) parseLine(args []token) error {
	m, err := a.requireMethod(".line")
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return syntaxf(".line wants a line number")
	}
	n, err := strconv.Atoi(args[0].text)
	if err != nil || n < 0 || n > 0xffff {
		return syntaxf("invalid line number %q", args[0].text)
	}
	m.pendingLine = n
	return nil
}

// parseVar handles ".var slot name descriptor from start to end".
func (a *assembler) parseVar(args []token) error {
	m, err := a.requireMethod(".var")
	if err != nil {
		return err
	}
	ws, err := words(args)
	if err != nil || len(ws) != 7 || ws[3] != "from" || ws[5] != "to" {
		return syntaxf(".var wants slot name descriptor from label to label")
	}
	slot, err := strconv.Atoi(ws[0])
	if err != nil || slot < 0 || slot > 0xffff {
		return syntaxf("invalid slot %q", ws[0])
	}
	typ, err := types.ParseDescriptor(ws[2])
	if err != nil {
		return err
	}
	name, from, to := ws[1], ws[4], ws[6]
	m.later(a.line, func() error {
		start, err := m.resolve(from)
		if err != nil {
			return err
		}
		end, err := m.resolve(to)
		if err != nil {
			return err
		}
		_, err = m.list.AddLocalVariable(slot, name, typ, start, end)
		return err
	})
	return nil
}

// parseCatch handles ".catch type from start to end using handler", where
// type "any" catches everything.
func (a *assembler) parseCatch(args []token) error {
	m, err := a.requireMethod(".catch")
	if err != nil {
		return err
	}
	ws, err := words(args)
	if err != nil || len(ws) != 7 || ws[1] != "from" || ws[3] != "to" || ws[5] != "using" {
		return syntaxf(".catch wants type from label to label using label")
	}
	var catchType *types.ObjectType
	if ws[0] != "any" {
		catchType = types.NewObjectType(ws[0])
	}
	labels := []string{ws[2], ws[4], ws[6]}
	m.later(a.line, func() error {
		var hs [3]asm.Handle
		for i, l := range labels {
			h, err := m.resolve(l)
			if err != nil {
				return err
			}
			hs[i] = h
		}
		_, err := m.list.AddExceptionHandler(hs[0], hs[1], hs[2], catchType)
		return err
	})
	return nil
}

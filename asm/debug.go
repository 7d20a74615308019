package asm

import (
	"fmt"
	"math"

	"github.com/tetratelabs/classgen/types"
)

// LineNumberGen maps an instruction to a source line. It becomes a
// LineNumberTable entry once laid out.
type LineNumberGen struct {
	list   *InstructionList
	id     uint32
	handle Handle
	line   int
}

// LineNumber is a materialized LineNumberTable entry.
type LineNumber struct {
	StartPC int
	Line    int
}

// AddLineNumber records that the code starting at h belongs to line.
func (l *InstructionList) AddLineNumber(h Handle, line int) (*LineNumberGen, error) {
	if err := l.checkHandle(h); err != nil {
		return nil, err
	}
	if line < 0 || line > math.MaxUint16 {
		return nil, fmt.Errorf("line number %d out of range", line)
	}
	g := &LineNumberGen{list: l, id: uint32(len(l.lineNumbers)), handle: h, line: line}
	l.lineNumbers = append(l.lineNumbers, g)
	l.refs.register(h, g.Targeter())
	l.version++
	return g, nil
}

// RemoveLineNumber drops g. It is a no-op if g was already removed.
func (l *InstructionList) RemoveLineNumber(g *LineNumberGen) {
	if g.list != l {
		return
	}
	l.refs.deregisterAll(g.Targeter(), g.targets())
	l.lineNumbers[g.id] = nil
	g.list = nil
	l.version++
}

// LineNumbers returns the line number entries in the order they were added.
func (l *InstructionList) LineNumbers() []*LineNumberGen {
	ret := make([]*LineNumberGen, 0, len(l.lineNumbers))
	for _, g := range l.lineNumbers {
		if g != nil {
			ret = append(ret, g)
		}
	}
	return ret
}

// Targeter identifies g among the targeters of its handles.
func (g *LineNumberGen) Targeter() Targeter {
	return Targeter{Kind: TargeterLineNumber, ID: g.id}
}

// Handle returns the instruction the line starts at.
func (g *LineNumberGen) Handle() Handle { return g.handle }

// Line returns the source line number.
func (g *LineNumberGen) Line() int { return g.line }

// SetLine changes the source line number.
func (g *LineNumberGen) SetLine(line int) { g.line = line }

// SetHandle moves the entry to h.
func (g *LineNumberGen) SetHandle(h Handle) error {
	if g.list == nil {
		return fmt.Errorf("%w: line number entry was removed", ErrNotTargeter)
	}
	return g.list.retarget(g.Targeter(), &g.handle, h)
}

// Materialize returns the table entry for the positions in layout.
func (g *LineNumberGen) Materialize(layout *Layout) (LineNumber, error) {
	pos, err := layout.position(g.handle)
	if err != nil {
		return LineNumber{}, err
	}
	return LineNumber{StartPC: pos, Line: g.line}, nil
}

func (g *LineNumberGen) targets() []Handle { return []Handle{g.handle} }

func (g *LineNumberGen) replace(old, new Handle) (n int) {
	if g.handle == old {
		g.handle = new
		n++
	}
	return
}

// LocalVariableGen is a local variable whose scope spans the instructions
// from Start to End inclusive. Entries are identified by slot and scope: two
// entries with the same slot, start and end are the same variable, and the
// setters fail with ErrDuplicateLocalVariable rather than create a second
// one. Redirect moves scopes in bulk and may leave two entries with the same
// identity, both of which are written.
type LocalVariableGen struct {
	list       *InstructionList
	id         uint32
	slot       int
	name       string
	typ        types.Type
	start, end Handle
}

// LocalVariable is a materialized LocalVariableTable entry.
type LocalVariable struct {
	StartPC int
	Length  int
	Slot    int
	Name    string
	Type    types.Type
}

// AddLocalVariable records a local variable in slot, in scope from start to
// end inclusive. If an entry with the same slot, start and end exists, its
// name and type are updated and it is returned instead.
func (l *InstructionList) AddLocalVariable(slot int, name string, typ types.Type, start, end Handle) (*LocalVariableGen, error) {
	if err := l.checkHandle(start); err != nil {
		return nil, err
	}
	if err := l.checkHandle(end); err != nil {
		return nil, err
	}
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	if g := l.localVariable(slot, start, end); g != nil {
		g.name, g.typ = name, typ
		return g, nil
	}
	g := &LocalVariableGen{list: l, id: uint32(len(l.locals)), slot: slot, name: name, typ: typ, start: start, end: end}
	l.locals = append(l.locals, g)
	l.refs.registerAll(g.Targeter(), g.targets())
	l.version++
	return g, nil
}

func checkSlot(slot int) error {
	if slot < 0 || slot > math.MaxUint16 {
		return fmt.Errorf("local variable slot %d out of range", slot)
	}
	return nil
}

// localVariable returns the entry with the given identity, or nil.
func (l *InstructionList) localVariable(slot int, start, end Handle) *LocalVariableGen {
	for _, g := range l.locals {
		if g != nil && g.slot == slot && g.start == start && g.end == end {
			return g
		}
	}
	return nil
}

// RemoveLocalVariable drops g. It is a no-op if g was already removed.
func (l *InstructionList) RemoveLocalVariable(g *LocalVariableGen) {
	if g.list != l {
		return
	}
	l.refs.deregisterAll(g.Targeter(), g.targets())
	l.locals[g.id] = nil
	g.list = nil
	l.version++
}

// LocalVariables returns the local variable entries in the order they were added.
func (l *InstructionList) LocalVariables() []*LocalVariableGen {
	ret := make([]*LocalVariableGen, 0, len(l.locals))
	for _, g := range l.locals {
		if g != nil {
			ret = append(ret, g)
		}
	}
	return ret
}

// Targeter identifies g among the targeters of its handles.
func (g *LocalVariableGen) Targeter() Targeter {
	return Targeter{Kind: TargeterLocalVariable, ID: g.id}
}

// Slot returns the local variable index.
func (g *LocalVariableGen) Slot() int { return g.slot }

// Name returns the source name of the variable.
func (g *LocalVariableGen) Name() string { return g.name }

// Type returns the declared type of the variable.
func (g *LocalVariableGen) Type() types.Type { return g.typ }

// Start returns the first instruction in scope.
func (g *LocalVariableGen) Start() Handle { return g.start }

// End returns the last instruction in scope.
func (g *LocalVariableGen) End() Handle { return g.end }

// SetName renames the variable.
func (g *LocalVariableGen) SetName(name string) { g.name = name }

// SetType changes the declared type of the variable.
func (g *LocalVariableGen) SetType(typ types.Type) { g.typ = typ }

// SetSlot moves the variable to slot.
func (g *LocalVariableGen) SetSlot(slot int) error {
	if err := g.checkIdentity(slot, g.start, g.end); err != nil {
		return err
	}
	if err := checkSlot(slot); err != nil {
		return err
	}
	g.slot = slot
	g.list.version++
	return nil
}

// SetStart moves the start of the scope to h.
func (g *LocalVariableGen) SetStart(h Handle) error {
	if err := g.checkIdentity(g.slot, h, g.end); err != nil {
		return err
	}
	return g.list.retarget(g.Targeter(), &g.start, h)
}

// SetEnd moves the end of the scope to h.
func (g *LocalVariableGen) SetEnd(h Handle) error {
	if err := g.checkIdentity(g.slot, g.start, h); err != nil {
		return err
	}
	return g.list.retarget(g.Targeter(), &g.end, h)
}

// UpdateTarget moves whichever of start and end refer to old, possibly both,
// to new. It fails with ErrTargetNotHeld if neither does.
func (g *LocalVariableGen) UpdateTarget(old, new Handle) error {
	start, end := g.start, g.end
	if start == old {
		start = new
	}
	if end == old {
		end = new
	}
	if err := g.checkIdentity(g.slot, start, end); err != nil {
		return err
	}
	return g.list.UpdateTarget(g.Targeter(), old, new)
}

// checkIdentity fails if g was removed, or if another entry already has the
// given slot and scope.
func (g *LocalVariableGen) checkIdentity(slot int, start, end Handle) error {
	if g.list == nil {
		return fmt.Errorf("%w: local variable entry was removed", ErrNotTargeter)
	}
	if other := g.list.localVariable(slot, start, end); other != nil && other != g {
		return fmt.Errorf("%w: slot %d from %s to %s is %s", ErrDuplicateLocalVariable, slot, start, end, other.name)
	}
	return nil
}

// Materialize returns the table entry for the positions in layout. The length
// covers the end instruction unless the scope is empty.
func (g *LocalVariableGen) Materialize(layout *Layout) (LocalVariable, error) {
	start, err := layout.position(g.start)
	if err != nil {
		return LocalVariable{}, err
	}
	end, err := layout.position(g.end)
	if err != nil {
		return LocalVariable{}, err
	}
	length := end - start
	if length < 0 {
		return LocalVariable{}, fmt.Errorf("local variable %s ends at %d before it starts at %d", g.name, end, start)
	}
	if length > 0 {
		length += layout.lengths[g.end]
	}
	return LocalVariable{StartPC: start, Length: length, Slot: g.slot, Name: g.name, Type: g.typ}, nil
}

func (g *LocalVariableGen) targets() []Handle { return []Handle{g.start, g.end} }

func (g *LocalVariableGen) replace(old, new Handle) (n int) {
	if g.start == old {
		g.start = new
		n++
	}
	if g.end == old {
		g.end = new
		n++
	}
	return
}

// ExceptionHandlerGen protects the instructions from Start to End inclusive
// with the handler at Handler, for exceptions of CatchType or any exception
// when CatchType is nil.
type ExceptionHandlerGen struct {
	list                *InstructionList
	id                  uint32
	start, end, handler Handle
	catchType           *types.ObjectType
}

// ExceptionHandler is a materialized exception table entry. EndPC is exclusive.
type ExceptionHandler struct {
	StartPC, EndPC, HandlerPC int
	CatchType                 *types.ObjectType
}

// AddExceptionHandler adds an exception table entry. Entries are matched in
// the order they were added.
func (l *InstructionList) AddExceptionHandler(start, end, handler Handle, catchType *types.ObjectType) (*ExceptionHandlerGen, error) {
	for _, h := range []Handle{start, end, handler} {
		if err := l.checkHandle(h); err != nil {
			return nil, err
		}
	}
	g := &ExceptionHandlerGen{list: l, id: uint32(len(l.handlers)), start: start, end: end, handler: handler, catchType: catchType}
	l.handlers = append(l.handlers, g)
	l.refs.registerAll(g.Targeter(), g.targets())
	l.version++
	return g, nil
}

// RemoveExceptionHandler drops g. It is a no-op if g was already removed.
func (l *InstructionList) RemoveExceptionHandler(g *ExceptionHandlerGen) {
	if g.list != l {
		return
	}
	l.refs.deregisterAll(g.Targeter(), g.targets())
	l.handlers[g.id] = nil
	g.list = nil
	l.version++
}

// ExceptionHandlers returns the exception table entries in order.
func (l *InstructionList) ExceptionHandlers() []*ExceptionHandlerGen {
	ret := make([]*ExceptionHandlerGen, 0, len(l.handlers))
	for _, g := range l.handlers {
		if g != nil {
			ret = append(ret, g)
		}
	}
	return ret
}

// Targeter identifies g among the targeters of its handles.
func (g *ExceptionHandlerGen) Targeter() Targeter {
	return Targeter{Kind: TargeterExceptionHandler, ID: g.id}
}

// Start returns the first protected instruction.
func (g *ExceptionHandlerGen) Start() Handle { return g.start }

// End returns the last protected instruction.
func (g *ExceptionHandlerGen) End() Handle { return g.end }

// Handler returns the first instruction of the handler code.
func (g *ExceptionHandlerGen) Handler() Handle { return g.handler }

// CatchType returns the caught class, or nil for any exception.
func (g *ExceptionHandlerGen) CatchType() *types.ObjectType { return g.catchType }

// SetCatchType changes the caught class. nil catches any exception.
func (g *ExceptionHandlerGen) SetCatchType(t *types.ObjectType) { g.catchType = t }

// SetStart moves the start of the protected range to h.
func (g *ExceptionHandlerGen) SetStart(h Handle) error { return g.set(&g.start, h) }

// SetEnd moves the end of the protected range to h.
func (g *ExceptionHandlerGen) SetEnd(h Handle) error { return g.set(&g.end, h) }

// SetHandler moves the handler entry point to h.
func (g *ExceptionHandlerGen) SetHandler(h Handle) error { return g.set(&g.handler, h) }

func (g *ExceptionHandlerGen) set(ref *Handle, h Handle) error {
	if g.list == nil {
		return fmt.Errorf("%w: exception handler was removed", ErrNotTargeter)
	}
	return g.list.retarget(g.Targeter(), ref, h)
}

// Materialize returns the table entry for the positions in layout.
func (g *ExceptionHandlerGen) Materialize(layout *Layout) (ExceptionHandler, error) {
	var pcs [3]int
	for i, h := range g.targets() {
		pos, err := layout.position(h)
		if err != nil {
			return ExceptionHandler{}, err
		}
		pcs[i] = pos
	}
	end := pcs[1] + layout.lengths[g.end]
	if end <= pcs[0] {
		return ExceptionHandler{}, fmt.Errorf("exception handler range ends at %d before it starts at %d", end, pcs[0])
	}
	return ExceptionHandler{StartPC: pcs[0], EndPC: end, HandlerPC: pcs[2], CatchType: g.catchType}, nil
}

func (g *ExceptionHandlerGen) targets() []Handle { return []Handle{g.start, g.end, g.handler} }

func (g *ExceptionHandlerGen) replace(old, new Handle) (n int) {
	for _, ref := range []*Handle{&g.start, &g.end, &g.handler} {
		if *ref == old {
			*ref = new
			n++
		}
	}
	return
}

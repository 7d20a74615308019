package asm

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// InstructionList is a mutable sequence of instructions addressed by Handle,
// plus the debug and exception tables that refer into it.
//
// Every reference from a targeter (branch, switch, line number, local
// variable or exception handler) to a Handle is recorded in a graph owned by
// the list, and every mutation keeps that graph exact. Instructions cannot be
// removed while something outside the removed range still refers to them.
//
// An InstructionList is not safe for concurrent use.
type InstructionList struct {
	// nodes is indexed by Handle. nodes[0] is unused so the zero Handle never
	// denotes an instruction.
	nodes       []node
	first, last Handle
	length      int
	// version is incremented by every mutation, to detect stale layouts.
	version uint64
	refs    graph

	lineNumbers []*LineNumberGen
	locals      []*LocalVariableGen
	handlers    []*ExceptionHandlerGen
}

type node struct {
	insn       Instruction
	prev, next Handle
	live       bool
}

// NewInstructionList returns an empty list.
func NewInstructionList() *InstructionList {
	return &InstructionList{nodes: make([]node, 1), refs: newGraph()}
}

// Contains returns true if h denotes an instruction currently in the list.
func (l *InstructionList) Contains(h Handle) bool {
	return int(h) < len(l.nodes) && l.nodes[h].live
}

func (l *InstructionList) mustContain(h Handle) {
	if !l.Contains(h) {
		panic(fmt.Sprintf("%s is not in the instruction list", h))
	}
}

func (l *InstructionList) checkHandle(h Handle) error {
	if !l.Contains(h) {
		return fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	return nil
}

// Len returns the number of instructions.
func (l *InstructionList) Len() int { return l.length }

// First returns the first instruction or NoHandle if the list is empty.
func (l *InstructionList) First() Handle { return l.first }

// Last returns the last instruction or NoHandle if the list is empty.
func (l *InstructionList) Last() Handle { return l.last }

// Next returns the instruction after h or NoHandle at the end.
func (l *InstructionList) Next(h Handle) Handle {
	l.mustContain(h)
	return l.nodes[h].next
}

// Prev returns the instruction before h or NoHandle at the start.
func (l *InstructionList) Prev(h Handle) Handle {
	l.mustContain(h)
	return l.nodes[h].prev
}

// Instruction returns the instruction at h.
func (l *InstructionList) Instruction(h Handle) Instruction {
	l.mustContain(h)
	return l.nodes[h].insn
}

// Handles returns every handle in sequence order.
func (l *InstructionList) Handles() []Handle {
	ret := make([]Handle, 0, l.length)
	for h := l.first; h != NoHandle; h = l.nodes[h].next {
		ret = append(ret, h)
	}
	return ret
}

// Append adds insn at the end and returns its handle.
//
// Panics if insn is a Branch or Select that is already placed, or refers to
// a handle not in the list.
func (l *InstructionList) Append(insn Instruction) Handle {
	return l.insert(insn, l.last, NoHandle)
}

// InsertAfter adds insn right after h and returns its handle.
//
// Panics if h is not in the list, or like Append.
func (l *InstructionList) InsertAfter(h Handle, insn Instruction) Handle {
	l.mustContain(h)
	return l.insert(insn, h, l.nodes[h].next)
}

// InsertBefore adds insn right before h and returns its handle. Targeters of
// h keep referring to h.
//
// Panics if h is not in the list, or like Append.
func (l *InstructionList) InsertBefore(h Handle, insn Instruction) Handle {
	l.mustContain(h)
	return l.insert(insn, l.nodes[h].prev, h)
}

func (l *InstructionList) insert(insn Instruction, prev, next Handle) Handle {
	if insn == nil {
		panic("nil instruction")
	}
	h := Handle(len(l.nodes))

	var self *Handle
	switch in := insn.(type) {
	case *Branch:
		self = &in.self
	case *Select:
		self = &in.self
	}
	if self != nil {
		if *self != NoHandle {
			panic(fmt.Sprintf("%s is already placed at %s", insn, *self))
		}
		for _, t := range insn.(holder).targets() {
			l.mustContain(t)
		}
	}

	l.nodes = append(l.nodes, node{insn: insn, prev: prev, next: next, live: true})
	if prev == NoHandle {
		l.first = h
	} else {
		l.nodes[prev].next = h
	}
	if next == NoHandle {
		l.last = h
	} else {
		l.nodes[next].prev = h
	}
	l.length++
	l.version++

	if self != nil {
		*self = h
		l.refs.registerAll(Targeter{Kind: TargeterInstruction, ID: uint32(h)}, insn.(holder).targets())
	}
	return h
}

// Remove removes the instruction at h. It fails with a *DanglingTargetError,
// leaving the list unchanged, if any targeter other than the instruction
// itself refers to h. Use Redirect first to move those references.
func (l *InstructionList) Remove(h Handle) error {
	return l.RemoveRange(h, h)
}

// RemoveRange removes the instructions from first to last inclusive. It
// fails with a *DanglingTargetError, leaving the list unchanged, if a
// targeter that is not itself removed refers into the range.
func (l *InstructionList) RemoveRange(first, last Handle) error {
	if err := l.checkHandle(first); err != nil {
		return err
	}
	if err := l.checkHandle(last); err != nil {
		return err
	}
	removed := map[Handle]struct{}{}
	for h := first; ; h = l.nodes[h].next {
		if h == NoHandle {
			return fmt.Errorf("%w: %s does not follow %s", ErrInvalidHandle, last, first)
		}
		removed[h] = struct{}{}
		if h == last {
			break
		}
	}

	var dangling map[Handle][]Targeter
	for h := range removed {
		for _, t := range l.refs.targeters(h) {
			if t.Kind == TargeterInstruction {
				if _, ok := removed[Handle(t.ID)]; ok {
					continue
				}
			}
			if dangling == nil {
				dangling = map[Handle][]Targeter{}
			}
			dangling[h] = append(dangling[h], t)
		}
	}
	if dangling != nil {
		return &DanglingTargetError{Targeters: dangling}
	}

	for h := range removed {
		if hd, ok := l.nodes[h].insn.(holder); ok {
			l.refs.deregisterAll(Targeter{Kind: TargeterInstruction, ID: uint32(h)}, hd.targets())
		}
	}
	prev, next := l.nodes[first].prev, l.nodes[last].next
	if prev == NoHandle {
		l.first = next
	} else {
		l.nodes[prev].next = next
	}
	if next == NoHandle {
		l.last = prev
	} else {
		l.nodes[next].prev = prev
	}
	for h := range removed {
		l.nodes[h] = node{}
	}
	l.length -= len(removed)
	l.version++
	return nil
}

// Targeters returns every targeter referring to h.
func (l *InstructionList) Targeters(h Handle) []Targeter {
	return l.refs.targeters(h)
}

// IsTargeted returns true if any targeter refers to h.
func (l *InstructionList) IsTargeted(h Handle) bool {
	return len(l.refs.in[h]) > 0
}

// ContainsTarget returns true if the targeter t refers to h.
func (l *InstructionList) ContainsTarget(t Targeter, h Handle) bool {
	hd, ok := l.holder(t)
	if !ok {
		return false
	}
	for _, target := range hd.targets() {
		if target == h {
			return true
		}
	}
	return false
}

// Redirect changes every reference to old into a reference to new, so that
// old can be removed.
func (l *InstructionList) Redirect(old, new Handle) error {
	if err := l.checkHandle(new); err != nil {
		return err
	}
	if old == new {
		return nil
	}
	for _, t := range l.refs.targeters(old) {
		if err := l.UpdateTarget(t, old, new); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTarget changes every reference t holds to old into a reference to
// new. It fails with ErrTargetNotHeld if t does not refer to old.
func (l *InstructionList) UpdateTarget(t Targeter, old, new Handle) error {
	hd, ok := l.holder(t)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTargeter, t)
	}
	if err := l.checkHandle(new); err != nil {
		return err
	}
	n := 0
	for _, target := range hd.targets() {
		if target == old {
			n++
		}
	}
	if n == 0 || old == NoHandle {
		return fmt.Errorf("%w: %s does not refer to %s", ErrTargetNotHeld, t, old)
	}
	for i := 0; i < n; i++ {
		l.refs.deregister(old, t)
	}
	hd.replace(old, new)
	for i := 0; i < n; i++ {
		l.refs.register(new, t)
	}
	l.version++
	return nil
}

// SetTarget sets the target of the branch at h.
func (l *InstructionList) SetTarget(h, target Handle) error {
	b, err := l.branch(h)
	if err != nil {
		return err
	}
	return l.retarget(Targeter{Kind: TargeterInstruction, ID: uint32(h)}, &b.target, target)
}

// SetSelectTarget sets the target of the i-th match of the switch at h.
func (l *InstructionList) SetSelectTarget(h Handle, i int, target Handle) error {
	s, err := l.selectAt(h)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(s.jumpTargets) {
		return fmt.Errorf("%w: %d out of %d matches", ErrInvalidSwitch, i, len(s.jumpTargets))
	}
	return l.retarget(Targeter{Kind: TargeterInstruction, ID: uint32(h)}, &s.jumpTargets[i], target)
}

// SetDefaultTarget sets the default target of the switch at h.
func (l *InstructionList) SetDefaultTarget(h, target Handle) error {
	s, err := l.selectAt(h)
	if err != nil {
		return err
	}
	return l.retarget(Targeter{Kind: TargeterInstruction, ID: uint32(h)}, &s.defaultTarget, target)
}

// retarget replaces the single reference at ref, keeping the graph exact.
func (l *InstructionList) retarget(t Targeter, ref *Handle, target Handle) error {
	if err := l.checkHandle(target); err != nil {
		return err
	}
	l.refs.deregister(*ref, t)
	*ref = target
	l.refs.register(target, t)
	l.version++
	return nil
}

func (l *InstructionList) branch(h Handle) (*Branch, error) {
	if err := l.checkHandle(h); err != nil {
		return nil, err
	}
	b, ok := l.nodes[h].insn.(*Branch)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotTargeter, h, l.nodes[h].insn)
	}
	return b, nil
}

func (l *InstructionList) selectAt(h Handle) (*Select, error) {
	if err := l.checkHandle(h); err != nil {
		return nil, err
	}
	s, ok := l.nodes[h].insn.(*Select)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a switch", ErrNotTargeter, h)
	}
	return s, nil
}

// holder returns what t denotes, if it is still part of the list.
func (l *InstructionList) holder(t Targeter) (holder, bool) {
	switch t.Kind {
	case TargeterInstruction:
		if !l.Contains(Handle(t.ID)) {
			return nil, false
		}
		hd, ok := l.nodes[t.ID].insn.(holder)
		return hd, ok
	case TargeterLineNumber:
		if int(t.ID) < len(l.lineNumbers) && l.lineNumbers[t.ID] != nil {
			return l.lineNumbers[t.ID], true
		}
	case TargeterLocalVariable:
		if int(t.ID) < len(l.locals) && l.locals[t.ID] != nil {
			return l.locals[t.ID], true
		}
	case TargeterExceptionHandler:
		if int(t.ID) < len(l.handlers) && l.handlers[t.ID] != nil {
			return l.handlers[t.ID], true
		}
	}
	return nil, false
}

// forEachTargeter calls fn with every live targeter.
func (l *InstructionList) forEachTargeter(fn func(Targeter, holder)) {
	for h := l.first; h != NoHandle; h = l.nodes[h].next {
		if hd, ok := l.nodes[h].insn.(holder); ok {
			fn(Targeter{Kind: TargeterInstruction, ID: uint32(h)}, hd)
		}
	}
	for _, g := range l.lineNumbers {
		if g != nil {
			fn(g.Targeter(), g)
		}
	}
	for _, g := range l.locals {
		if g != nil {
			fn(g.Targeter(), g)
		}
	}
	for _, g := range l.handlers {
		if g != nil {
			fn(g.Targeter(), g)
		}
	}
}

// CheckTargeters verifies that, for every handle, the targeters that refer to
// it are exactly those recorded for it, and that every reference is to an
// instruction in the list. A non-nil error aggregates every mismatch and
// indicates a bug in this package.
func (l *InstructionList) CheckTargeters() error {
	expected := newGraph()
	var errs *multierror.Error
	l.forEachTargeter(func(t Targeter, hd holder) {
		for _, h := range hd.targets() {
			if !l.Contains(h) {
				errs = multierror.Append(errs, fmt.Errorf("%s refers to %s which is not in the list", t, h))
			}
			expected.register(h, t)
		}
	})
	for h, refs := range expected.in {
		for t, n := range refs {
			if actual := l.refs.in[h][t]; actual != n {
				errs = multierror.Append(errs, fmt.Errorf("%s refers to %s %d times, but %d are recorded", t, h, n, actual))
			}
		}
	}
	for h, refs := range l.refs.in {
		for t, n := range refs {
			if _, ok := expected.in[h][t]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("%s is recorded %d times as targeting %s, but does not", t, n, h))
			}
		}
	}
	return errs.ErrorOrNil()
}

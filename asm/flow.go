package asm

import "github.com/tetratelabs/classgen/opcode"

// Successors returns the instructions control can pass to after h, in the
// order: fall through, then branch or switch targets. Exception handlers are
// not included. JSR is treated as reaching both its subroutine and the
// instruction after it, where RET returns.
func (l *InstructionList) Successors(h Handle) []Handle {
	l.mustContain(h)
	n := l.nodes[h]
	var ret []Handle
	add := func(t Handle) {
		if t == NoHandle {
			return
		}
		for _, s := range ret {
			if s == t {
				return
			}
		}
		ret = append(ret, t)
	}

	op := n.insn.Opcode()
	if !opcode.IsUnconditional(op) {
		add(n.next)
	}
	switch in := n.insn.(type) {
	case *Branch:
		add(in.target)
	case *Select:
		add(in.defaultTarget)
		for _, t := range in.jumpTargets {
			add(t)
		}
	}
	return ret
}

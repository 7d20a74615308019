package asm

import (
	"fmt"
	"sort"
)

// Handle is the stable identity of an instruction in an InstructionList. It
// does not change when instructions are inserted or removed around it, and it
// is never reused after the instruction is removed.
type Handle uint32

// NoHandle is the zero Handle, used for targets that are not set yet.
const NoHandle Handle = 0

func (h Handle) String() string {
	if h == NoHandle {
		return "@?"
	}
	return fmt.Sprintf("@%d", uint32(h))
}

// TargeterKind is the kind of entity referring to instructions by Handle.
type TargeterKind byte

const (
	// TargeterInstruction is a Branch or Select. Its ID is its own Handle.
	TargeterInstruction TargeterKind = iota + 1
	// TargeterLineNumber is a LineNumberGen.
	TargeterLineNumber
	// TargeterLocalVariable is a LocalVariableGen.
	TargeterLocalVariable
	// TargeterExceptionHandler is an ExceptionHandlerGen.
	TargeterExceptionHandler
)

func (k TargeterKind) String() string {
	switch k {
	case TargeterInstruction:
		return "instruction"
	case TargeterLineNumber:
		return "line"
	case TargeterLocalVariable:
		return "local"
	case TargeterExceptionHandler:
		return "handler"
	}
	return fmt.Sprintf("unknown(%d)", byte(k))
}

// Targeter identifies an entity holding one or more handle references.
type Targeter struct {
	Kind TargeterKind
	ID   uint32
}

func (t Targeter) String() string {
	if t.Kind == TargeterInstruction {
		return Handle(t.ID).String()
	}
	return fmt.Sprintf("%s#%d", t.Kind, t.ID)
}

func less(a, b Targeter) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID < b.ID
}

// holder is implemented by everything a Targeter can denote.
type holder interface {
	// targets returns every handle referred to, with repetition.
	targets() []Handle
	// replace changes every reference to old into new and returns how many
	// there were.
	replace(old, new Handle) int
}

// graph records, for each handle, which targeters refer to it and how many
// times. A Select can refer to the same handle from several entries, and a
// LocalVariableGen may start and end at the same instruction.
type graph struct {
	in map[Handle]map[Targeter]int
}

func newGraph() graph {
	return graph{in: map[Handle]map[Targeter]int{}}
}

func (g *graph) register(h Handle, t Targeter) {
	if h == NoHandle {
		return
	}
	refs, ok := g.in[h]
	if !ok {
		refs = map[Targeter]int{}
		g.in[h] = refs
	}
	refs[t]++
}

func (g *graph) deregister(h Handle, t Targeter) {
	if h == NoHandle {
		return
	}
	refs := g.in[h]
	if refs[t] == 0 {
		panic(fmt.Sprintf("BUG: %s is not registered as targeting %s", t, h))
	}
	if refs[t]--; refs[t] == 0 {
		delete(refs, t)
	}
	if len(refs) == 0 {
		delete(g.in, h)
	}
}

func (g *graph) registerAll(t Targeter, hs []Handle) {
	for _, h := range hs {
		g.register(h, t)
	}
}

func (g *graph) deregisterAll(t Targeter, hs []Handle) {
	for _, h := range hs {
		g.deregister(h, t)
	}
}

// targeters returns the targeters of h in a stable order.
func (g *graph) targeters(h Handle) []Targeter {
	refs := g.in[h]
	if len(refs) == 0 {
		return nil
	}
	ret := make([]Targeter, 0, len(refs))
	for t := range refs {
		ret = append(ret, t)
	}
	sort.Slice(ret, func(i, j int) bool { return less(ret[i], ret[j]) })
	return ret
}

package asm

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/classgen/opcode"
)

// Branch is an instruction with a single relative target: a conditional
// branch, GOTO, JSR or their wide forms.
//
// Targets are changed through InstructionList.SetTarget once the branch is
// placed, so the list can track who refers to which instruction.
type Branch struct {
	op     opcode.Opcode
	target Handle
	self   Handle
}

// NewBranch returns the branch op to target. target may be NoHandle and set
// later with InstructionList.SetTarget.
//
// Panics if op is not a branch.
func NewBranch(op opcode.Opcode, target Handle) *Branch {
	if !opcode.IsBranch(op) {
		panic(fmt.Sprintf("%s is not a branch", opcode.Name(op)))
	}
	return &Branch{op: op, target: target}
}

// Opcode returns the opcode the branch was created with. GOTO and JSR may be
// widened during layout, see Layout.Opcode.
func (b *Branch) Opcode() opcode.Opcode { return b.op }

// Target returns the branch target, or NoHandle when unset.
func (b *Branch) Target() Handle { return b.target }

func (b *Branch) long(wide bool) bool {
	switch b.op {
	case opcode.GOTO_W, opcode.JSR_W:
		return true
	case opcode.GOTO, opcode.JSR:
		return wide
	}
	return false
}

// widenable returns true if the branch has a 32-bit form.
func (b *Branch) widenable() bool {
	return b.op == opcode.GOTO || b.op == opcode.JSR
}

func (b *Branch) Size(_ int, wide bool) int {
	if b.long(wide) {
		return 5
	}
	return 3
}

func (b *Branch) StackEffect(ConstantLookup) (int, int, error) {
	return catalogEffect(b.op)
}

func (b *Branch) String() string {
	return fmt.Sprintf("%s %s", opcode.Name(b.op), b.target)
}

func (b *Branch) encode(buf []byte, at *placement) []byte {
	off := at.offset(b.target)
	if !b.long(at.wide) {
		return binary.BigEndian.AppendUint16(append(buf, b.op), uint16(int16(off)))
	}
	op := b.op
	switch op {
	case opcode.GOTO:
		op = opcode.GOTO_W
	case opcode.JSR:
		op = opcode.JSR_W
	}
	return binary.BigEndian.AppendUint32(append(buf, op), uint32(int32(off)))
}

func (b *Branch) targets() []Handle {
	if b.target == NoHandle {
		return nil
	}
	return []Handle{b.target}
}

func (b *Branch) replace(old, new Handle) (n int) {
	if b.target == old {
		b.target = new
		n++
	}
	return
}

// Select is TABLESWITCH or LOOKUPSWITCH: match values each with a target,
// plus a default target.
//
// LOOKUPSWITCH pairs are encoded in the order given. TABLESWITCH derives its
// low and high bounds from the first and last match, so matches must be
// sorted and contiguous. Both are checked by Validate, which layout runs
// unless strict switch validation is disabled.
type Select struct {
	op            opcode.Opcode
	matches       []int32
	jumpTargets   []Handle
	defaultTarget Handle
	self          Handle
}

// NewTableSwitch returns a TABLESWITCH. targets[i] is the target of matches[i].
//
// Panics if matches and targets have different lengths.
func NewTableSwitch(matches []int32, targets []Handle, defaultTarget Handle) *Select {
	return newSelect(opcode.TABLESWITCH, matches, targets, defaultTarget)
}

// NewLookupSwitch returns a LOOKUPSWITCH. targets[i] is the target of matches[i].
//
// Panics if matches and targets have different lengths.
func NewLookupSwitch(matches []int32, targets []Handle, defaultTarget Handle) *Select {
	return newSelect(opcode.LOOKUPSWITCH, matches, targets, defaultTarget)
}

func newSelect(op opcode.Opcode, matches []int32, targets []Handle, defaultTarget Handle) *Select {
	if len(matches) != len(targets) {
		panic(fmt.Sprintf("%d matches but %d targets", len(matches), len(targets)))
	}
	return &Select{
		op:            op,
		matches:       append([]int32(nil), matches...),
		jumpTargets:   append([]Handle(nil), targets...),
		defaultTarget: defaultTarget,
	}
}

// NewSwitch returns whichever of TABLESWITCH or LOOKUPSWITCH is cheaper for
// the match values, which need not be sorted. A TABLESWITCH has its gaps
// filled with defaultTarget.
func NewSwitch(matches []int32, targets []Handle, defaultTarget Handle) (*Select, error) {
	if len(matches) != len(targets) {
		return nil, fmt.Errorf("%w: %d matches but %d targets", ErrInvalidSwitch, len(matches), len(targets))
	}
	idx := make([]int, len(matches))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return matches[idx[a]] < matches[idx[b]] })

	sorted := make([]int32, len(matches))
	sortedTargets := make([]Handle, len(matches))
	for i, j := range idx {
		sorted[i], sortedTargets[i] = matches[j], targets[j]
		if i > 0 && sorted[i] == sorted[i-1] {
			return nil, fmt.Errorf("%w: duplicate match %d", ErrInvalidSwitch, sorted[i])
		}
	}
	if len(sorted) == 0 {
		return NewLookupSwitch(nil, nil, defaultTarget), nil
	}

	// Same cost model as javac: space plus three times the time.
	n := int64(len(sorted))
	lo, hi := int64(sorted[0]), int64(sorted[len(sorted)-1])
	tableCost := 4 + (hi - lo + 1) + 3*3
	lookupCost := 3 + 2*n + 3*n
	if tableCost > lookupCost {
		return NewLookupSwitch(sorted, sortedTargets, defaultTarget), nil
	}

	dense := make([]int32, 0, hi-lo+1)
	denseTargets := make([]Handle, 0, hi-lo+1)
	next := 0
	for v := lo; v <= hi; v++ {
		dense = append(dense, int32(v))
		if int64(sorted[next]) == v {
			denseTargets = append(denseTargets, sortedTargets[next])
			next++
		} else {
			denseTargets = append(denseTargets, defaultTarget)
		}
	}
	return NewTableSwitch(dense, denseTargets, defaultTarget), nil
}

// Opcode returns TABLESWITCH or LOOKUPSWITCH.
func (s *Select) Opcode() opcode.Opcode { return s.op }

// Matches returns a copy of the match values in encoding order.
func (s *Select) Matches() []int32 { return append([]int32(nil), s.matches...) }

// Targets returns a copy of the targets, index correlated with Matches.
func (s *Select) Targets() []Handle { return append([]Handle(nil), s.jumpTargets...) }

// Default returns the target taken when no match equals the key.
func (s *Select) Default() Handle { return s.defaultTarget }

// Len returns the number of match values.
func (s *Select) Len() int { return len(s.matches) }

// Bounds returns the low and high values of a TABLESWITCH: the first and last
// match, or zero for both when there are none.
func (s *Select) Bounds() (low, high int32) {
	if len(s.matches) == 0 {
		return 0, 0
	}
	return s.matches[0], s.matches[len(s.matches)-1]
}

// Validate returns ErrInvalidSwitch if a TABLESWITCH is not sorted and
// contiguous or a LOOKUPSWITCH has duplicate matches.
func (s *Select) Validate() error {
	if s.op == opcode.TABLESWITCH {
		for i := 1; i < len(s.matches); i++ {
			if int64(s.matches[i]) != int64(s.matches[i-1])+1 {
				return fmt.Errorf("%w: tableswitch matches %d and %d are not consecutive",
					ErrInvalidSwitch, s.matches[i-1], s.matches[i])
			}
		}
		return nil
	}
	seen := make(map[int32]struct{}, len(s.matches))
	for _, m := range s.matches {
		if _, ok := seen[m]; ok {
			return fmt.Errorf("%w: lookupswitch has duplicate match %d", ErrInvalidSwitch, m)
		}
		seen[m] = struct{}{}
	}
	return nil
}

// padding returns the number of zero bytes after the opcode so that the
// default offset starts at a multiple of four.
func padding(position int) int {
	return (4 - (position+1)%4) % 4
}

// entries returns the number of jump table entries of a TABLESWITCH. An empty
// table still encodes one entry, for low = high = 0, which goes to the default.
func (s *Select) entries() int {
	if len(s.matches) == 0 {
		return 1
	}
	return len(s.matches)
}

func (s *Select) Size(position int, _ bool) int {
	if s.op == opcode.TABLESWITCH {
		return 1 + padding(position) + 12 + 4*s.entries()
	}
	return 1 + padding(position) + 8 + 8*len(s.matches)
}

func (s *Select) StackEffect(ConstantLookup) (int, int, error) {
	return catalogEffect(s.op)
}

func (s *Select) String() string {
	var b strings.Builder
	b.WriteString(opcode.Name(s.op))
	for i, m := range s.matches {
		fmt.Fprintf(&b, " %d:%s", m, s.jumpTargets[i])
	}
	fmt.Fprintf(&b, " default:%s", s.defaultTarget)
	return b.String()
}

func (s *Select) encode(buf []byte, at *placement) []byte {
	buf = append(buf, s.op)
	for i := padding(at.position); i > 0; i-- {
		buf = append(buf, 0)
	}
	buf = appendInt32(buf, at.offset(s.defaultTarget))
	if s.op == opcode.TABLESWITCH {
		low, high := s.Bounds()
		buf = appendInt32(buf, int(low))
		buf = appendInt32(buf, int(high))
		if len(s.matches) == 0 {
			return appendInt32(buf, at.offset(s.defaultTarget))
		}
		for _, t := range s.jumpTargets {
			buf = appendInt32(buf, at.offset(t))
		}
		return buf
	}
	buf = appendInt32(buf, len(s.matches))
	for i, m := range s.matches {
		buf = appendInt32(buf, int(m))
		buf = appendInt32(buf, at.offset(s.jumpTargets[i]))
	}
	return buf
}

func (s *Select) targets() []Handle {
	ret := make([]Handle, 0, len(s.jumpTargets)+1)
	if s.defaultTarget != NoHandle {
		ret = append(ret, s.defaultTarget)
	}
	for _, t := range s.jumpTargets {
		if t != NoHandle {
			ret = append(ret, t)
		}
	}
	return ret
}

func (s *Select) replace(old, new Handle) (n int) {
	if s.defaultTarget == old {
		s.defaultTarget = new
		n++
	}
	for i, t := range s.jumpTargets {
		if t == old {
			s.jumpTargets[i] = new
			n++
		}
	}
	return
}

func appendInt32(buf []byte, v int) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(int32(v)))
}

package asm

import (
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen/opcode"
)

// DefaultMaxLayoutPasses bounds the layout fixed point unless overridden with
// WithMaxPasses.
const DefaultMaxLayoutPasses = 64

// MaxCodeLength is the largest code array a method can have.
const MaxCodeLength = math.MaxUint16

// LayoutOption configures InstructionList.Layout.
type LayoutOption func(*layoutConfig)

type layoutConfig struct {
	logger         zerolog.Logger
	strictSwitches bool
	maxPasses      int
}

// WithLogger logs every layout pass at debug level.
func WithLogger(logger zerolog.Logger) LayoutOption {
	return func(c *layoutConfig) { c.logger = logger }
}

// WithStrictSwitches controls whether switches are validated before layout.
// It defaults to true. When false, a TABLESWITCH is encoded from its first
// and last match and its targets as given, even if the matches are not sorted
// and contiguous.
func WithStrictSwitches(strict bool) LayoutOption {
	return func(c *layoutConfig) { c.strictSwitches = strict }
}

// WithMaxPasses sets how many passes the layout may take before it is
// considered not to terminate, which panics.
func WithMaxPasses(n int) LayoutOption {
	return func(c *layoutConfig) { c.maxPasses = n }
}

// Layout is the byte position and length of every instruction of an
// InstructionList, computed by InstructionList.Layout. It is only valid as
// long as the list is not modified.
type Layout struct {
	list    *InstructionList
	version uint64
	order   []Handle
	// positions, lengths and wide are indexed by Handle. positions is -1 for
	// handles not in the layout.
	positions []int
	lengths   []int
	wide      []bool
	size      int
	passes    int
}

// Layout assigns final positions to every instruction.
//
// Positions depend on the lengths of the instructions before them, and switch
// lengths depend on their position because of alignment padding. GOTO and JSR
// become GOTO_W and JSR_W when their target is too far for a 16-bit offset,
// which also changes lengths. Passes over the whole list are repeated until
// nothing changes. Widening is never undone, so this terminates.
func (l *InstructionList) Layout(opts ...LayoutOption) (*Layout, error) {
	cfg := &layoutConfig{logger: zerolog.Nop(), strictSwitches: true, maxPasses: DefaultMaxLayoutPasses}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := l.checkLayoutable(cfg.strictSwitches); err != nil {
		return nil, err
	}

	n := len(l.nodes)
	ret := &Layout{
		list:      l,
		version:   l.version,
		order:     l.Handles(),
		positions: make([]int, n),
		lengths:   make([]int, n),
		wide:      make([]bool, n),
	}
	for i := range ret.positions {
		ret.positions[i] = -1
	}
	for _, h := range ret.order {
		// Position 3 needs no switch padding.
		ret.lengths[h] = l.nodes[h].insn.Size(3, false)
	}

	for {
		if ret.passes++; ret.passes > cfg.maxPasses {
			panic(fmt.Sprintf("BUG: layout did not converge after %d passes", cfg.maxPasses))
		}

		changed, pos := 0, 0
		for _, h := range ret.order {
			ret.positions[h] = pos
			size := l.nodes[h].insn.Size(pos, ret.wide[h])
			if size != ret.lengths[h] {
				ret.lengths[h] = size
				changed++
			}
			pos += size
		}
		ret.size = pos

		widened := 0
		for _, h := range ret.order {
			b, ok := l.nodes[h].insn.(*Branch)
			if !ok || ret.wide[h] || !b.widenable() {
				continue
			}
			if off := ret.positions[b.target] - ret.positions[h]; off < math.MinInt16 || off > math.MaxInt16 {
				ret.wide[h] = true
				widened++
			}
		}

		cfg.logger.Debug().
			Int("pass", ret.passes).
			Int("size", ret.size).
			Int("changed", changed).
			Int("widened", widened).
			Msg("layout pass")
		if changed == 0 && widened == 0 {
			break
		}
	}

	if ret.size > MaxCodeLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrCodeTooLarge, ret.size)
	}
	var errs *multierror.Error
	for _, h := range ret.order {
		b, ok := l.nodes[h].insn.(*Branch)
		if !ok || b.long(ret.wide[h]) {
			continue
		}
		if off := ret.positions[b.target] - ret.positions[h]; off < math.MinInt16 || off > math.MaxInt16 {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s at %d to %d", ErrBranchOffsetOverflow, b, ret.positions[h], ret.positions[b.target]))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return ret, nil
}

// checkLayoutable requires every branch and switch target to be set and,
// when strict, every switch to be valid.
func (l *InstructionList) checkLayoutable(strict bool) error {
	var errs *multierror.Error
	for h := l.first; h != NoHandle; h = l.nodes[h].next {
		switch in := l.nodes[h].insn.(type) {
		case *Branch:
			if in.target == NoHandle {
				errs = multierror.Append(errs, fmt.Errorf("%w: %s at %s", ErrMissingTarget, in, h))
			}
		case *Select:
			if len(in.targets()) != len(in.jumpTargets)+1 {
				errs = multierror.Append(errs, fmt.Errorf("%w: %s at %s", ErrMissingTarget, in, h))
			}
			if strict {
				if err := in.Validate(); err != nil {
					errs = multierror.Append(errs, fmt.Errorf("%s: %w", h, err))
				}
			}
		}
	}
	return errs.ErrorOrNil()
}

func (lay *Layout) stale() bool {
	return lay.version != lay.list.version
}

func (lay *Layout) position(h Handle) (int, error) {
	if lay.stale() {
		return 0, ErrStaleLayout
	}
	if int(h) >= len(lay.positions) || lay.positions[h] < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	return lay.positions[h], nil
}

func (lay *Layout) mustBeCurrent() {
	if lay.stale() {
		panic(ErrStaleLayout.Error())
	}
}

func (lay *Layout) mustContain(h Handle) {
	lay.mustBeCurrent()
	if int(h) >= len(lay.positions) || lay.positions[h] < 0 {
		panic(fmt.Sprintf("%s is not in the layout", h))
	}
}

// Position returns the byte offset of h in the code array.
//
// Panics if h was not in the list when the layout was computed, or if the
// list changed since.
func (lay *Layout) Position(h Handle) int {
	lay.mustContain(h)
	return lay.positions[h]
}

// Length returns the encoded length of h.
//
// Panics if h was not in the list when the layout was computed, or if the
// list changed since.
func (lay *Layout) Length(h Handle) int {
	lay.mustContain(h)
	return lay.lengths[h]
}

// Opcode returns the opcode h is encoded with, which reflects widening of
// GOTO and JSR.
func (lay *Layout) Opcode(h Handle) opcode.Opcode {
	lay.mustContain(h)
	insn := lay.list.nodes[h].insn
	if b, ok := insn.(*Branch); ok && lay.wide[h] {
		switch b.op {
		case opcode.GOTO:
			return opcode.GOTO_W
		case opcode.JSR:
			return opcode.JSR_W
		}
	}
	return insn.Opcode()
}

// Offset returns position(target) - position(from).
func (lay *Layout) Offset(from, target Handle) int {
	return lay.Position(target) - lay.Position(from)
}

// Size returns the length of the code array.
func (lay *Layout) Size() int { return lay.size }

// Passes returns how many passes the layout took.
func (lay *Layout) Passes() int { return lay.passes }

// Handles returns the handles in sequence order.
func (lay *Layout) Handles() []Handle { return append([]Handle(nil), lay.order...) }

// HandleAt returns the instruction starting at pos. Panics if the list
// changed since the layout was computed.
func (lay *Layout) HandleAt(pos int) (Handle, bool) {
	lay.mustBeCurrent()
	i := sort.Search(len(lay.order), func(i int) bool { return lay.positions[lay.order[i]] >= pos })
	if i < len(lay.order) && lay.positions[lay.order[i]] == pos {
		return lay.order[i], true
	}
	return NoHandle, false
}

// Code encodes the code array.
func (lay *Layout) Code() ([]byte, error) {
	if lay.stale() {
		return nil, ErrStaleLayout
	}
	buf := make([]byte, 0, lay.size)
	at := &placement{layout: lay}
	for _, h := range lay.order {
		at.self, at.position, at.wide = h, lay.positions[h], lay.wide[h]
		buf = lay.list.nodes[h].insn.encode(buf, at)
		if len(buf) != at.position+lay.lengths[h] {
			panic(fmt.Sprintf("BUG: %s encoded to %d bytes, but its length is %d",
				lay.list.nodes[h].insn, len(buf)-at.position, lay.lengths[h]))
		}
	}
	return buf, nil
}

// LineNumbers materializes the line number entries of the list.
func (lay *Layout) LineNumbers() ([]LineNumber, error) {
	gens := lay.list.LineNumbers()
	ret := make([]LineNumber, 0, len(gens))
	for _, g := range gens {
		e, err := g.Materialize(lay)
		if err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	return ret, nil
}

// LocalVariables materializes the local variable entries of the list.
func (lay *Layout) LocalVariables() ([]LocalVariable, error) {
	gens := lay.list.LocalVariables()
	ret := make([]LocalVariable, 0, len(gens))
	for _, g := range gens {
		e, err := g.Materialize(lay)
		if err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	return ret, nil
}

// ExceptionTable materializes the exception handlers of the list.
func (lay *Layout) ExceptionTable() ([]ExceptionHandler, error) {
	gens := lay.list.ExceptionHandlers()
	ret := make([]ExceptionHandler, 0, len(gens))
	for _, g := range gens {
		e, err := g.Materialize(lay)
		if err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	return ret, nil
}

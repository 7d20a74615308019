package constpool

import (
	"fmt"
	"math"
	"strconv"
)

// check requires entry at index to carry one of the tags. Callers must hold mux.
func (p *Pool) check(index uint16, tags ...Tag) error {
	if index == 0 || int(index) >= len(p.entries) || p.entries[index].Tag == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if len(tags) == 0 {
		return nil
	}
	actual := p.entries[index].Tag
	for _, t := range tags {
		if actual == t {
			return nil
		}
	}
	return fmt.Errorf("%w: index %d is %s", ErrUnexpectedTag, index, TagName(actual))
}

func (p *Pool) entry(index uint16, tags ...Tag) (Entry, error) {
	if err := p.check(index, tags...); err != nil {
		return Entry{}, err
	}
	return p.entries[index], nil
}

// Entry returns the entry at index.
func (p *Pool) Entry(index uint16) (Entry, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.entry(index)
}

// Tag returns the tag of the entry at index or zero if the index is unused.
func (p *Pool) Tag(index uint16) Tag {
	p.mux.Lock()
	defer p.mux.Unlock()
	if int(index) >= len(p.entries) {
		return 0
	}
	return p.entries[index].Tag
}

// Utf8 returns the string held by the CONSTANT_Utf8 entry at index.
func (p *Pool) Utf8(index uint16) (string, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.utf8(index)
}

func (p *Pool) utf8(index uint16) (string, error) {
	e, err := p.entry(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return e.Str, nil
}

// ClassName returns the internal name of the CONSTANT_Class entry at index.
func (p *Pool) ClassName(index uint16) (string, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.className(index)
}

func (p *Pool) className(index uint16) (string, error) {
	e, err := p.entry(index, TagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(e.Ref1)
}

func (p *Pool) nameAndType(index uint16) (name, descriptor string, err error) {
	e, err := p.entry(index, TagNameAndType)
	if err != nil {
		return
	}
	if name, err = p.utf8(e.Ref1); err != nil {
		return
	}
	descriptor, err = p.utf8(e.Ref2)
	return
}

// Member returns the owner class, name and descriptor of the field, method or
// interface method reference at index.
func (p *Pool) Member(index uint16) (class, name, descriptor string, err error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	var e Entry
	if e, err = p.entry(index, TagFieldref, TagMethodref, TagInterfaceMethodref); err != nil {
		return
	}
	if class, err = p.className(e.Ref1); err != nil {
		return
	}
	name, descriptor, err = p.nameAndType(e.Ref2)
	return
}

// MemberDescriptor returns the descriptor of the field, method, interface
// method or invokedynamic entry at index. Stack effects of field access and
// invoke instructions are derived from it.
func (p *Pool) MemberDescriptor(index uint16) (string, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	e, err := p.entry(index, TagFieldref, TagMethodref, TagInterfaceMethodref, TagInvokeDynamic)
	if err != nil {
		return "", err
	}
	_, descriptor, err := p.nameAndType(e.Ref2)
	return descriptor, err
}

// SlotSize returns the number of operand stack slots a load of the constant
// at index occupies: two for long and double, otherwise one.
func (p *Pool) SlotSize(index uint16) (int, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	e, err := p.entry(index)
	if err != nil {
		return 0, err
	}
	return width(e.Tag), nil
}

// Describe returns a human readable rendering of the entry at index, as used
// in disassembly listings.
func (p *Pool) Describe(index uint16) string {
	p.mux.Lock()
	defer p.mux.Unlock()
	e, err := p.entry(index)
	if err != nil {
		return fmt.Sprintf("#%d?", index)
	}
	switch e.Tag {
	case TagUtf8:
		return strconv.Quote(e.Str)
	case TagInteger:
		return strconv.FormatInt(int64(int32(uint32(e.Bits))), 10)
	case TagFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(e.Bits))), 'g', -1, 32) + "f"
	case TagLong:
		return strconv.FormatInt(int64(e.Bits), 10) + "L"
	case TagDouble:
		return strconv.FormatFloat(math.Float64frombits(e.Bits), 'g', -1, 64) + "d"
	case TagClass:
		n, _ := p.utf8(e.Ref1)
		return n
	case TagString:
		s, _ := p.utf8(e.Ref1)
		return strconv.Quote(s)
	case TagMethodType:
		s, _ := p.utf8(e.Ref1)
		return s
	case TagNameAndType:
		n, d, _ := p.nameAndType(index)
		return n + ":" + d
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		c, _ := p.className(e.Ref1)
		n, d, _ := p.nameAndType(e.Ref2)
		return c + "." + n + ":" + d
	case TagInvokeDynamic:
		n, d, _ := p.nameAndType(e.Ref2)
		return fmt.Sprintf("#%d:%s:%s", e.Ref1, n, d)
	case TagMethodHandle:
		return fmt.Sprintf("%d:#%d", e.Ref1, e.Ref2)
	}
	return fmt.Sprintf("#%d", index)
}

// TagName returns the class file format name of the tag, e.g. "Methodref".
func TagName(t Tag) string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	}
	return fmt.Sprintf("unknown(%d)", t)
}

// Package constpool implements the append-only, deduplicating constant pool
// of a class file.
//
// A Pool may be shared by every method builder of one class, so adding
// entries is goroutine-safe. Entries are never removed or renumbered.
//
// See https://docs.oracle.com/javase/specs/jvms/se17/html/jvms-4.html#jvms-4.4
package constpool

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Tag is the one byte kind of a constant pool entry.
type Tag = byte

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagInvokeDynamic      Tag = 18
)

// MaxSize is the largest constant_pool_count a class file can declare.
const MaxSize = math.MaxUint16

var (
	// ErrPoolFull is returned when an entry would not fit in a 16-bit index.
	ErrPoolFull = errors.New("constant pool is full")
	// ErrUtf8TooLong is returned for strings whose modified UTF-8 encoding
	// exceeds 65535 bytes.
	ErrUtf8TooLong = errors.New("utf8 constant exceeds 65535 bytes")
	// ErrInvalidIndex is returned by lookups of unused or out of range indexes.
	ErrInvalidIndex = errors.New("invalid constant pool index")
	// ErrUnexpectedTag is returned when an entry is not of the kind a lookup requires.
	ErrUnexpectedTag = errors.New("unexpected constant pool tag")
)

// Entry is one constant pool entry. Which fields are meaningful depends on Tag:
// Utf8 uses Str, numeric constants use Bits, and references use Ref1/Ref2
// (Ref1 holds the reference kind for TagMethodHandle).
//
// Entry is comparable, and equal entries are deduplicated.
type Entry struct {
	Tag  Tag
	Str  string
	Bits uint64
	Ref1 uint16
	Ref2 uint16
}

// Pool is the constant pool table. The zero value is not usable: use New.
type Pool struct {
	mux     sync.Mutex
	entries []Entry
	lookup  map[Entry]uint16
}

// New returns an empty pool. Index zero is reserved as the class file format requires.
func New() *Pool {
	return &Pool{entries: make([]Entry, 1), lookup: map[Entry]uint16{}}
}

// width returns the number of slots an entry of the tag occupies.
func width(tag Tag) int {
	if tag == TagLong || tag == TagDouble {
		return 2
	}
	return 1
}

// add is find-or-insert. Callers must hold mux.
func (p *Pool) add(e Entry) (uint16, error) {
	if index, ok := p.lookup[e]; ok {
		return index, nil
	}
	w := width(e.Tag)
	if len(p.entries)+w > MaxSize {
		return 0, ErrPoolFull
	}
	index := uint16(len(p.entries))
	p.entries = append(p.entries, e)
	if w == 2 {
		// The slot after a long or double is unusable.
		p.entries = append(p.entries, Entry{})
	}
	p.lookup[e] = index
	return index, nil
}

func (p *Pool) addUtf8(s string) (uint16, error) {
	if modifiedUTF8Len(s) > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d characters", ErrUtf8TooLong, len(s))
	}
	return p.add(Entry{Tag: TagUtf8, Str: s})
}

func (p *Pool) addRef(tag Tag, s string) (uint16, error) {
	i, err := p.addUtf8(s)
	if err != nil {
		return 0, err
	}
	return p.add(Entry{Tag: tag, Ref1: i})
}

func (p *Pool) addNameAndType(name, descriptor string) (uint16, error) {
	n, err := p.addUtf8(name)
	if err != nil {
		return 0, err
	}
	d, err := p.addUtf8(descriptor)
	if err != nil {
		return 0, err
	}
	return p.add(Entry{Tag: TagNameAndType, Ref1: n, Ref2: d})
}

func (p *Pool) addMember(tag Tag, class, name, descriptor string) (uint16, error) {
	c, err := p.addRef(TagClass, class)
	if err != nil {
		return 0, err
	}
	nt, err := p.addNameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	return p.add(Entry{Tag: tag, Ref1: c, Ref2: nt})
}

// AddUtf8 returns the index of a CONSTANT_Utf8 entry holding s.
func (p *Pool) AddUtf8(s string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.addUtf8(s)
}

// AddInteger returns the index of a CONSTANT_Integer entry holding v.
func (p *Pool) AddInteger(v int32) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.add(Entry{Tag: TagInteger, Bits: uint64(uint32(v))})
}

// AddFloat returns the index of a CONSTANT_Float entry holding v. Entries are
// deduplicated by bit pattern, so 0.0 and -0.0 are distinct.
func (p *Pool) AddFloat(v float32) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.add(Entry{Tag: TagFloat, Bits: uint64(math.Float32bits(v))})
}

// AddLong returns the index of a CONSTANT_Long entry holding v.
func (p *Pool) AddLong(v int64) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.add(Entry{Tag: TagLong, Bits: uint64(v)})
}

// AddDouble returns the index of a CONSTANT_Double entry holding v.
func (p *Pool) AddDouble(v float64) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.add(Entry{Tag: TagDouble, Bits: math.Float64bits(v)})
}

// AddString returns the index of a CONSTANT_String entry for s.
func (p *Pool) AddString(s string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.addRef(TagString, s)
}

// AddClass returns the index of a CONSTANT_Class entry for the internal
// name, e.g. "java/lang/Object" or "[I".
func (p *Pool) AddClass(name string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.addRef(TagClass, name)
}

// AddMethodType returns the index of a CONSTANT_MethodType entry.
func (p *Pool) AddMethodType(descriptor string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.addRef(TagMethodType, descriptor)
}

// AddNameAndType returns the index of a CONSTANT_NameAndType entry.
func (p *Pool) AddNameAndType(name, descriptor string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.addNameAndType(name, descriptor)
}

// AddFieldref returns the index of a CONSTANT_Fieldref entry.
func (p *Pool) AddFieldref(class, name, descriptor string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.addMember(TagFieldref, class, name, descriptor)
}

// AddMethodref returns the index of a CONSTANT_Methodref entry.
func (p *Pool) AddMethodref(class, name, descriptor string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.addMember(TagMethodref, class, name, descriptor)
}

// AddInterfaceMethodref returns the index of a CONSTANT_InterfaceMethodref entry.
func (p *Pool) AddInterfaceMethodref(class, name, descriptor string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.addMember(TagInterfaceMethodref, class, name, descriptor)
}

// AddMethodHandle returns the index of a CONSTANT_MethodHandle entry whose
// reference is the member at index ref.
func (p *Pool) AddMethodHandle(kind byte, ref uint16) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if err := p.check(ref, TagFieldref, TagMethodref, TagInterfaceMethodref); err != nil {
		return 0, err
	}
	return p.add(Entry{Tag: TagMethodHandle, Ref1: uint16(kind), Ref2: ref})
}

// AddInvokeDynamic returns the index of a CONSTANT_InvokeDynamic entry.
func (p *Pool) AddInvokeDynamic(bootstrapMethod uint16, name, descriptor string) (uint16, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	nt, err := p.addNameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	return p.add(Entry{Tag: TagInvokeDynamic, Ref1: bootstrapMethod, Ref2: nt})
}

// Size returns constant_pool_count: one more than the largest index in use.
func (p *Pool) Size() int {
	p.mux.Lock()
	defer p.mux.Unlock()
	return len(p.entries)
}

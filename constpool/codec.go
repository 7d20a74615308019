package constpool

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"
)

// WriteTo writes constant_pool_count followed by every entry in index order.
func (p *Pool) WriteTo(w io.Writer) (int64, error) {
	p.mux.Lock()
	defer p.mux.Unlock()

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(p.entries)))
	for _, e := range p.entries[1:] {
		if e.Tag == 0 {
			// Second half of a long or double.
			continue
		}
		buf.WriteByte(e.Tag)
		switch e.Tag {
		case TagUtf8:
			enc := appendModifiedUTF8(nil, e.Str)
			_ = binary.Write(&buf, binary.BigEndian, uint16(len(enc)))
			buf.Write(enc)
		case TagInteger, TagFloat:
			_ = binary.Write(&buf, binary.BigEndian, uint32(e.Bits))
		case TagLong, TagDouble:
			_ = binary.Write(&buf, binary.BigEndian, e.Bits)
		case TagClass, TagString, TagMethodType:
			_ = binary.Write(&buf, binary.BigEndian, e.Ref1)
		case TagMethodHandle:
			buf.WriteByte(byte(e.Ref1))
			_ = binary.Write(&buf, binary.BigEndian, e.Ref2)
		default:
			_ = binary.Write(&buf, binary.BigEndian, e.Ref1)
			_ = binary.Write(&buf, binary.BigEndian, e.Ref2)
		}
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Read decodes a constant pool section (count and entries) as found in a
// class file. Duplicate entries are kept at their original indexes and the
// first occurrence is used for deduplication of later additions.
//
// When r does not implement io.ByteReader it is buffered, so it may be read
// past the end of the pool. Use ReadBytes to decode from the middle of a
// class file.
func Read(r io.Reader) (*Pool, error) {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	var count uint16
	if err := binary.Read(br, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read constant_pool_count: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("invalid constant_pool_count 0")
	}
	p := New()
	for i := 1; i < int(count); i++ {
		tag, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read tag of entry %d: %w", i, err)
		}
		e := Entry{Tag: tag}
		switch tag {
		case TagUtf8:
			var n uint16
			if err = binary.Read(br, binary.BigEndian, &n); err == nil {
				raw := make([]byte, n)
				if _, err = io.ReadFull(br, raw); err == nil {
					e.Str, err = decodeModifiedUTF8(raw)
				}
			}
		case TagInteger, TagFloat:
			var v uint32
			err = binary.Read(br, binary.BigEndian, &v)
			e.Bits = uint64(v)
		case TagLong, TagDouble:
			err = binary.Read(br, binary.BigEndian, &e.Bits)
		case TagClass, TagString, TagMethodType:
			err = binary.Read(br, binary.BigEndian, &e.Ref1)
		case TagMethodHandle:
			var kind byte
			if kind, err = br.ReadByte(); err == nil {
				e.Ref1 = uint16(kind)
				err = binary.Read(br, binary.BigEndian, &e.Ref2)
			}
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagInvokeDynamic:
			if err = binary.Read(br, binary.BigEndian, &e.Ref1); err == nil {
				err = binary.Read(br, binary.BigEndian, &e.Ref2)
			}
		default:
			return nil, fmt.Errorf("%w: %d at entry %d", ErrUnexpectedTag, tag, i)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s entry %d: %w", TagName(tag), i, err)
		}
		p.entries = append(p.entries, e)
		if _, ok := p.lookup[e]; !ok {
			p.lookup[e] = uint16(i)
		}
		if width(tag) == 2 {
			p.entries = append(p.entries, Entry{})
			i++
		}
	}
	return p, nil
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

// ReadBytes decodes the constant pool at the start of b and returns the
// number of bytes consumed.
func ReadBytes(b []byte) (*Pool, int, error) {
	r := bytes.NewReader(b)
	p, err := Read(r)
	if err != nil {
		return nil, 0, err
	}
	return p, len(b) - r.Len(), nil
}

func modifiedUTF8Len(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r >= 0x01 && r <= 0x7f:
			n++
		case r <= 0x7ff:
			n += 2
		case r <= 0xffff:
			n += 3
		default:
			n += 6
		}
	}
	return n
}

// appendModifiedUTF8 encodes s the way class files store strings: NUL is two
// bytes and supplementary characters are encoded as surrogate pairs.
func appendModifiedUTF8(dst []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r >= 0x01 && r <= 0x7f:
			dst = append(dst, byte(r))
		case r <= 0x7ff:
			dst = append(dst, 0xc0|byte(r>>6), 0x80|byte(r&0x3f))
		case r <= 0xffff:
			dst = append(dst, 0xe0|byte(r>>12), 0x80|byte((r>>6)&0x3f), 0x80|byte(r&0x3f))
		default:
			hi, lo := utf16.EncodeRune(r)
			for _, c := range []rune{hi, lo} {
				dst = append(dst, 0xe0|byte(c>>12), 0x80|byte((c>>6)&0x3f), 0x80|byte(c&0x3f))
			}
		}
	}
	return dst
}

func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0 && i+1 < len(b):
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0 && i+2 < len(b):
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			return "", fmt.Errorf("malformed modified utf-8 at byte %d", i)
		}
	}
	return string(utf16.Decode(units)), nil
}

// Package classfile reads and rewrites the constant pool of compiled class
// files. Everything after the pool is kept byte for byte; only Utf8
// constants can change, so all pool indices stay valid.
package classfile

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"
)

const magic = 0xCAFEBABE

// Constant pool tags.
const (
	TagUtf8               byte = 1
	TagInteger            byte = 3
	TagFloat              byte = 4
	TagLong               byte = 5
	TagDouble             byte = 6
	TagClass              byte = 7
	TagString             byte = 8
	TagFieldref           byte = 9
	TagMethodref          byte = 10
	TagInterfaceMethodref byte = 11
	TagNameAndType        byte = 12
	TagMethodHandle       byte = 15
	TagMethodType         byte = 16
	TagDynamic            byte = 17
	TagInvokeDynamic      byte = 18
	TagModule             byte = 19
	TagPackage            byte = 20
)

var (
	ErrNotClassFile = stderrors.New("not a class file")
	ErrTruncated    = stderrors.New("truncated class file")
)

// Constant is one constant pool slot. Utf8 constants carry Value and, when
// parsed, the original bytes in Raw; every other tag keeps its raw payload.
type Constant struct {
	Tag   byte
	Value string
	Raw   []byte
}

// UTF8Constant returns the Utf8 constant stored as raw modified UTF-8.
func UTF8Constant(raw []byte) Constant {
	return Constant{Tag: TagUtf8, Value: decodeModifiedUTF8(raw), Raw: raw}
}

// utf8Bytes returns the encoded form of a Utf8 constant. The original bytes
// are written back whenever Value was not changed.
func (c Constant) utf8Bytes() []byte {
	if c.Raw != nil && decodeModifiedUTF8(c.Raw) == c.Value {
		return c.Raw
	}
	return encodeModifiedUTF8(c.Value)
}

// File is a parsed class file.
type File struct {
	Minor, Major uint16
	// Pool is indexed like the class file: slot 0 and the slot following
	// each Long or Double are unused (Tag 0).
	Pool []Constant
	rest []byte
}

// IsClassFile reports whether data starts with the class file magic.
func IsClassFile(data []byte) bool {
	return len(data) >= 4 && binary.BigEndian.Uint32(data) == magic
}

// Parse decodes the header and constant pool of data.
func Parse(data []byte) (*File, error) {
	if !IsClassFile(data) {
		return nil, ErrNotClassFile
	}
	r := &reader{buf: data, off: 4}
	f := &File{}
	var err error
	if f.Minor, err = r.u2(); err != nil {
		return nil, err
	}
	if f.Major, err = r.u2(); err != nil {
		return nil, err
	}
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	f.Pool = make([]Constant, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		c := Constant{Tag: tag}
		switch tag {
		case TagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, err
			}
			raw, err := r.bytes(int(n))
			if err != nil {
				return nil, err
			}
			c = UTF8Constant(raw)
		case TagInteger, TagFloat:
			c.Raw, err = r.bytes(4)
		case TagLong, TagDouble:
			c.Raw, err = r.bytes(8)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.Raw, err = r.bytes(2)
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.Raw, err = r.bytes(4)
		case TagMethodHandle:
			c.Raw, err = r.bytes(3)
		default:
			return nil, fmt.Errorf("constant pool slot %d: unknown tag %d", i, tag)
		}
		if err != nil {
			return nil, err
		}
		f.Pool[i] = c
		if tag == TagLong || tag == TagDouble {
			i++
		}
	}
	f.rest = append([]byte(nil), data[r.off:]...)
	return f, nil
}

// Bytes re-encodes the class file.
func (f *File) Bytes() ([]byte, error) {
	out := make([]byte, 0, len(f.rest)+len(f.Pool)*8+10)
	out = binary.BigEndian.AppendUint32(out, magic)
	out = binary.BigEndian.AppendUint16(out, f.Minor)
	out = binary.BigEndian.AppendUint16(out, f.Major)
	out = binary.BigEndian.AppendUint16(out, uint16(len(f.Pool)))
	for i := 1; i < len(f.Pool); i++ {
		c := f.Pool[i]
		out = append(out, c.Tag)
		if c.Tag == TagUtf8 {
			enc := c.utf8Bytes()
			if len(enc) > 0xFFFF {
				return nil, fmt.Errorf("constant pool slot %d: string too long (%d bytes)", i, len(enc))
			}
			out = binary.BigEndian.AppendUint16(out, uint16(len(enc)))
			out = append(out, enc...)
		} else {
			out = append(out, c.Raw...)
		}
		if c.Tag == TagLong || c.Tag == TagDouble {
			i++
		}
	}
	return append(out, f.rest...), nil
}

// UTF8 returns the string at a Utf8 slot.
func (f *File) UTF8(index uint16) (string, bool) {
	if int(index) <= 0 || int(index) >= len(f.Pool) || f.Pool[index].Tag != TagUtf8 {
		return "", false
	}
	return f.Pool[index].Value, true
}

// MapUTF8 replaces every Utf8 constant with fn(value) and returns how many changed.
func (f *File) MapUTF8(fn func(string) string) int {
	changed := 0
	for i := range f.Pool {
		if f.Pool[i].Tag != TagUtf8 {
			continue
		}
		if v := fn(f.Pool[i].Value); v != f.Pool[i].Value {
			f.Pool[i].Value = v
			changed++
		}
	}
	return changed
}

// ref resolves a Class, Module or Package slot to its name.
func (f *File) ref(index uint16, tag byte) (string, bool) {
	if int(index) <= 0 || int(index) >= len(f.Pool) || f.Pool[index].Tag != tag {
		return "", false
	}
	return f.UTF8(binary.BigEndian.Uint16(f.Pool[index].Raw))
}

// ClassName returns the internal name of this class (e.g. "module-info").
func (f *File) ClassName() (string, error) {
	if len(f.rest) < 6 {
		return "", ErrTruncated
	}
	name, ok := f.ref(binary.BigEndian.Uint16(f.rest[2:4]), TagClass)
	if !ok {
		return "", fmt.Errorf("this_class does not reference a class constant")
	}
	return name, nil
}

// ModuleName returns the name declared by a module descriptor's Module attribute.
func (f *File) ModuleName() (string, bool, error) {
	r := &reader{buf: f.rest}
	// access_flags, this_class, super_class
	if _, err := r.bytes(6); err != nil {
		return "", false, err
	}
	n, err := r.u2()
	if err != nil {
		return "", false, err
	}
	if _, err := r.bytes(int(n) * 2); err != nil {
		return "", false, err
	}
	// fields and methods share a layout
	for range 2 {
		count, err := r.u2()
		if err != nil {
			return "", false, err
		}
		for range int(count) {
			if _, err := r.bytes(6); err != nil {
				return "", false, err
			}
			if err := r.skipAttributes(); err != nil {
				return "", false, err
			}
		}
	}
	count, err := r.u2()
	if err != nil {
		return "", false, err
	}
	for range int(count) {
		nameIdx, err := r.u2()
		if err != nil {
			return "", false, err
		}
		length, err := r.u4()
		if err != nil {
			return "", false, err
		}
		body, err := r.bytes(int(length))
		if err != nil {
			return "", false, err
		}
		if name, _ := f.UTF8(nameIdx); name != "Module" || len(body) < 2 {
			continue
		}
		mod, ok := f.ref(binary.BigEndian.Uint16(body), TagModule)
		if !ok {
			return "", false, fmt.Errorf("module attribute does not reference a module constant")
		}
		return mod, true, nil
	}
	return "", false, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, ErrTruncated
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u1() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u2() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u4() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) skipAttributes() error {
	count, err := r.u2()
	if err != nil {
		return err
	}
	for range int(count) {
		if _, err := r.bytes(2); err != nil {
			return err
		}
		length, err := r.u4()
		if err != nil {
			return err
		}
		if _, err := r.bytes(int(length)); err != nil {
			return err
		}
	}
	return nil
}

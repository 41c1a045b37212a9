// Package classfiletest builds minimal class files for tests.
package classfiletest

import (
	"encoding/binary"

	"git.home.luguber.info/inful/modjar/internal/classfile"
)

// Builder assembles a constant pool and a class body without fields or methods.
type Builder struct {
	pool  []classfile.Constant
	utf8s map[string]uint16
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{pool: []classfile.Constant{{}}, utf8s: map[string]uint16{}}
}

func (b *Builder) add(c classfile.Constant) uint16 {
	b.pool = append(b.pool, c)
	idx := uint16(len(b.pool) - 1)
	if c.Tag == classfile.TagLong || c.Tag == classfile.TagDouble {
		b.pool = append(b.pool, classfile.Constant{})
	}
	return idx
}

// UTF8 interns s and returns its slot.
func (b *Builder) UTF8(s string) uint16 {
	if i, ok := b.utf8s[s]; ok {
		return i
	}
	i := b.add(classfile.Constant{Tag: classfile.TagUtf8, Value: s})
	b.utf8s[s] = i
	return i
}

// RawUTF8 adds a Utf8 constant from already encoded modified UTF-8 bytes.
func (b *Builder) RawUTF8(raw []byte) uint16 {
	return b.add(classfile.UTF8Constant(raw))
}

func (b *Builder) ref(tag byte, name string) uint16 {
	return b.add(classfile.Constant{Tag: tag, Raw: binary.BigEndian.AppendUint16(nil, b.UTF8(name))})
}

// Class adds a class constant for an internal name.
func (b *Builder) Class(name string) uint16 { return b.ref(classfile.TagClass, name) }

// String adds a string literal constant.
func (b *Builder) String(s string) uint16 { return b.ref(classfile.TagString, s) }

// Long adds an eight-byte constant occupying two slots.
func (b *Builder) Long(v uint64) uint16 {
	return b.add(classfile.Constant{Tag: classfile.TagLong, Raw: binary.BigEndian.AppendUint64(nil, v)})
}

// BuildClass returns a class file for thisClass extending java/lang/Object.
func (b *Builder) BuildClass(thisClass string) []byte {
	this := b.Class(thisClass)
	super := b.Class("java/lang/Object")
	body := binary.BigEndian.AppendUint16(nil, 0x0021)
	body = binary.BigEndian.AppendUint16(body, this)
	body = binary.BigEndian.AppendUint16(body, super)
	body = append(body, 0, 0, 0, 0, 0, 0, 0, 0) // interfaces, fields, methods, attributes
	return b.encode(body)
}

// BuildModule returns a module-info class file declaring module name.
func (b *Builder) BuildModule(name string) []byte {
	this := b.Class("module-info")
	mod := b.ref(classfile.TagModule, name)
	attrName := b.UTF8("Module")

	attr := binary.BigEndian.AppendUint16(nil, mod)
	attr = append(attr, 0, 0, 0, 0) // flags, version
	attr = append(attr, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)

	body := binary.BigEndian.AppendUint16(nil, 0x8000)
	body = binary.BigEndian.AppendUint16(body, this)
	body = append(body, 0, 0)       // super_class
	body = append(body, 0, 0, 0, 0) // interfaces, fields
	body = append(body, 0, 0)       // methods
	body = binary.BigEndian.AppendUint16(body, 1)
	body = binary.BigEndian.AppendUint16(body, attrName)
	body = binary.BigEndian.AppendUint32(body, uint32(len(attr)))
	body = append(body, attr...)
	return b.encode(body)
}

func (b *Builder) encode(body []byte) []byte {
	f := &classfile.File{Major: 53, Pool: b.pool}
	out, err := f.Bytes()
	if err != nil {
		panic(err)
	}
	return append(out, body...)
}

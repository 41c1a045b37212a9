package jar

import (
	"bufio"
	"bytes"
	"fmt"
	"slices"
	"strings"
)

// Main attribute names written by the assembler.
const (
	AttrManifestVersion       = "Manifest-Version"
	AttrCreatedBy             = "Created-By"
	AttrBuiltBy               = "Built-By"
	AttrBuildDate             = "Build-Date"
	AttrBuildTime             = "Build-Time"
	AttrBuildRevision         = "Build-Revision"
	AttrSpecificationTitle    = "Specification-Title"
	AttrSpecificationVersion  = "Specification-Version"
	AttrSpecificationVendor   = "Specification-Vendor"
	AttrImplementationTitle   = "Implementation-Title"
	AttrImplementationVersion = "Implementation-Version"
	AttrImplementationVendor  = "Implementation-Vendor"
	AttrMultiRelease          = "Multi-Release"
	AttrMainClass             = "Main-Class"
	AttrAutomaticModuleName   = "Automatic-Module-Name"
)

const (
	maxManifestLineLen         = 72
	manifestContinuationPrefix = " "
)

// VolatileAttributes change on every build and are ignored when deciding
// whether an artifact changed.
var VolatileAttributes = []string{AttrBuildDate, AttrBuildTime}

// Attribute is one main-section manifest attribute.
type Attribute struct {
	Name  string
	Value string
}

// Manifest holds the main section of a manifest in insertion order.
type Manifest struct {
	attrs []Attribute
}

// NewManifest returns a manifest with Manifest-Version 1.0.
func NewManifest() *Manifest {
	m := &Manifest{}
	m.Set(AttrManifestVersion, "1.0")
	return m
}

// Set adds or replaces an attribute, keeping its original position.
func (m *Manifest) Set(name, value string) {
	for i, a := range m.attrs {
		if strings.EqualFold(a.Name, name) {
			m.attrs[i].Value = value
			return
		}
	}
	m.attrs = append(m.attrs, Attribute{Name: name, Value: value})
}

// Get returns the value of name (case-insensitive).
func (m *Manifest) Get(name string) (string, bool) {
	for _, a := range m.attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// Delete removes name.
func (m *Manifest) Delete(name string) {
	m.attrs = slices.DeleteFunc(m.attrs, func(a Attribute) bool { return strings.EqualFold(a.Name, name) })
}

// Attributes returns a copy of all attributes in order.
func (m *Manifest) Attributes() []Attribute {
	return slices.Clone(m.attrs)
}

// Without returns a copy of m without the named attributes.
func (m *Manifest) Without(names ...string) *Manifest {
	out := &Manifest{attrs: slices.Clone(m.attrs)}
	for _, n := range names {
		out.Delete(n)
	}
	return out
}

// Bytes renders the manifest with CRLF line endings and 72-byte line wrapping.
func (m *Manifest) Bytes() []byte {
	var buf bytes.Buffer
	for _, a := range m.attrs {
		writeWrapped(&buf, a.Name+": "+a.Value)
	}
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func writeWrapped(buf *bytes.Buffer, line string) {
	limit := maxManifestLineLen
	for len(line) > limit {
		cut := limit
		// Never split a UTF-8 sequence.
		for cut > 0 && line[cut]&0xC0 == 0x80 {
			cut--
		}
		buf.WriteString(line[:cut])
		buf.WriteString("\r\n")
		line = manifestContinuationPrefix + line[cut:]
	}
	buf.WriteString(line)
	buf.WriteString("\r\n")
}

// ParseManifest reads the main section of a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	var current *Attribute
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, manifestContinuationPrefix) {
			if current == nil {
				return nil, fmt.Errorf("manifest line %d: continuation without attribute", lineNo)
			}
			current.Value += line[1:]
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("manifest line %d: missing ':'", lineNo)
		}
		m.attrs = append(m.attrs, Attribute{Name: name, Value: strings.TrimPrefix(value, " ")})
		current = &m.attrs[len(m.attrs)-1]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

package jar

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// EntryTime is the fixed modification time of every written entry.
var EntryTime = time.Date(1980, time.February, 1, 0, 0, 0, 0, time.UTC)

// Write encodes a as a zip archive: manifest first, then every other entry
// sorted by path, all with EntryTime. Equal artifacts produce equal bytes.
func (a *Artifact) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, e := range a.writeOrder() {
		hdr := &zip.FileHeader{
			Name:     e.Path,
			Method:   zip.Deflate,
			Modified: EntryTime,
		}
		hdr.SetMode(0o644)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if _, err := fw.Write(e.Data); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (a *Artifact) writeOrder() []Entry {
	entries := slices.Clone(a.entries)
	slices.SortFunc(entries, func(x, y Entry) int {
		switch {
		case x.Path == y.Path:
			return 0
		case x.Path == ManifestPath:
			return -1
		case y.Path == ManifestPath:
			return 1
		case x.Path < y.Path:
			return -1
		default:
			return 1
		}
	})
	return entries
}

// Bytes encodes a into memory.
func (a *Artifact) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes a to path through a temporary file in the same directory.
func (a *Artifact) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create artifact directory").
			WithContext(errors.ContextPath, dir).
			Build()
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create temporary artifact").
			WithContext(errors.ContextPath, dir).
			Build()
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := a.Write(tmp); err != nil {
		_ = tmp.Close()
		return errors.WrapError(err, errors.CategoryFileSystem, "write artifact").
			WithContext(errors.ContextPath, path).
			Build()
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "close artifact").
			WithContext(errors.ContextPath, path).
			Build()
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "rename artifact").
			WithContext(errors.ContextPath, path).
			Build()
	}
	return nil
}

// Read loads an artifact from a zip file. Directory entries are skipped.
func Read(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read artifact").
			WithContext(errors.ContextPath, path).
			Build()
	}
	a, err := ReadBytes(data, filepath.Base(path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "decode artifact").
			WithContext(errors.ContextPath, path).
			Build()
	}
	return a, nil
}

// ReadBytes decodes an in-memory zip archive, tagging entries with origin.
func ReadBytes(data []byte, origin string) (*Artifact, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	a := New()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		a.Replace(Entry{Path: f.Name, Data: body, Origin: origin})
	}
	return a, nil
}

// Digest hashes the artifact's content with volatile manifest attributes
// removed, so two assemblies of the same inputs digest equally.
func Digest(a *Artifact) string {
	h := sha256.New()
	for _, e := range a.writeOrder() {
		data := e.Data
		if e.Path == ManifestPath {
			if m, err := ParseManifest(data); err == nil {
				data = m.Without(VolatileAttributes...).Bytes()
			}
		}
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(data)))
		_, _ = io.WriteString(h, e.Path)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(size[:])
		_, _ = h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

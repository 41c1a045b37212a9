package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/logfields"
)

// Scratch is a directory that lives for one run.
type Scratch struct {
	dir string
	now func() time.Time
}

// New creates a unique directory named after purpose below base, or below
// the system temp directory when base is empty. Concurrent runs sharing a
// base never collide.
func New(base, purpose string) (*Scratch, error) {
	s := &Scratch{now: time.Now}
	return s, s.create(base, purpose)
}

func (s *Scratch) create(base, purpose string) error {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create scratch base").
			WithContext(errors.ContextPath, base).
			Build()
	}
	pattern := "modjar-"
	if purpose != "" {
		pattern += purpose + "-"
	}
	pattern += s.now().Format("20060102-150405") + "-*"
	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create scratch directory").
			WithContext(errors.ContextPath, base).
			Build()
	}
	s.dir = dir
	slog.Debug("Created scratch directory", logfields.Path(dir))
	return nil
}

// Path is empty after Remove.
func (s *Scratch) Path() string {
	return s.dir
}

// Dir creates name inside the scratch directory and returns its path.
func (s *Scratch) Dir(name string) (string, error) {
	if s.dir == "" {
		return "", errors.InternalError("scratch directory already removed").Build()
	}
	sub := filepath.Join(s.dir, name)
	if err := os.MkdirAll(sub, 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "create scratch subdirectory").
			WithContext(errors.ContextPath, sub).
			Build()
	}
	return sub, nil
}

// Remove deletes the directory and everything below it. It is safe to call
// more than once.
func (s *Scratch) Remove() error {
	if s.dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "remove scratch directory").
			WithContext(errors.ContextPath, s.dir).
			Build()
	}
	slog.Debug("Removed scratch directory", logfields.Path(s.dir))
	s.dir = ""
	return nil
}

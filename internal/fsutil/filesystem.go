// Package fsutil abstracts where report artifacts and incident files are
// read from and written to, so writers can be tested in memory.
package fsutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileSystem is the subset of file operations the report writers and the
// incident loader need. Use OSFileSystem for production and
// MemoryFileSystem for tests.
type FileSystem interface {
	// Open opens the named file for reading.
	Open(name string) (io.ReadCloser, error)

	// Create creates or truncates the named file.
	Create(name string) (io.WriteCloser, error)

	// ReadFile reads the named file and returns its contents.
	ReadFile(name string) ([]byte, error)

	// MkdirAll creates a directory and all necessary parents.
	MkdirAll(path string, perm os.FileMode) error

	// Exists checks if a file or directory exists.
	Exists(name string) bool
}

// WriteArtifact creates dir/name (making dir first) and streams write into
// it. name is passed through SanitizeName so it cannot leave dir. The file
// is closed even when write fails; the first error wins.
func WriteArtifact(fsys FileSystem, dir, name string, write func(io.Writer) error) (path string, err error) {
	name = SanitizeName(name)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	path = filepath.Join(dir, name)
	f, err := fsys.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (io.ReadCloser, error)    { return os.Open(name) }
func (OSFileSystem) Create(name string) (io.WriteCloser, error) { return os.Create(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Exists reports whether name can be stat'ed.
func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem keeps files in a map. Directories are implicit: any
// MkdirAll succeeds and is remembered for Exists.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemoryFileSystem returns an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: make(map[string][]byte), dirs: make(map[string]bool)}
}

// Open returns a reader over a snapshot of the file.
func (m *MemoryFileSystem) Open(name string) (io.ReadCloser, error) {
	data, err := m.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create truncates name; the content becomes visible on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	m.files[filepath.Clean(name)] = nil
	m.mu.Unlock()
	return &memWriter{fs: m, name: filepath.Clean(name)}, nil
}

// ReadFile returns a copy of the file contents.
func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[filepath.Clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return bytes.Clone(data), nil
}

// WriteFile stores data under name.
func (m *MemoryFileSystem) WriteFile(name string, data []byte) {
	m.mu.Lock()
	m.files[filepath.Clean(name)] = bytes.Clone(data)
	m.mu.Unlock()
}

func (m *MemoryFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	m.dirs[filepath.Clean(path)] = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clean := filepath.Clean(name)
	_, isFile := m.files[clean]
	return isFile || m.dirs[clean]
}

// Files lists stored file paths in lexical order.
func (m *MemoryFileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for name := range m.files {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

type memWriter struct {
	fs   *MemoryFileSystem
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.fs.WriteFile(w.name, w.buf.Bytes())
	return nil
}

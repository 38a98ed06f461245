// Package store keeps named monitor layouts as JSON files in one directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/frudas24/displayctl/internal/monitor"
)

const ext = ".json"

var (
	// ErrNotFound means no layout is stored under the name.
	ErrNotFound = errors.New("configuration not found")
	// ErrCorrupt means the stored file cannot be read back as a layout.
	ErrCorrupt = errors.New("configuration corrupt")
	// ErrInvalidName rejects names that are not a plain file stem.
	ErrInvalidName = errors.New("invalid configuration name")
)

// Store reads and writes <dir>/<name>.json. There is no locking; concurrent
// writers to one name race and the last rename wins.
type Store struct {
	dir string
}

// Entry is one stored layout as seen by List.
type Entry struct {
	Name     string
	Path     string
	Snapshot monitor.Snapshot
	// Err is set when the file could not be decoded.
	Err error
}

// New returns a store rooted at dir, creating it as needed.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file backing name.
func (s *Store) Path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+ext), nil
}

// Save writes the layout under name, replacing any previous one.
func (s *Store) Save(name string, snap monitor.Snapshot) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the layout stored under name.
func (s *Store) Load(name string) (monitor.Snapshot, error) {
	path, err := s.Path(name)
	if err != nil {
		return monitor.Snapshot{}, err
	}
	return readSnapshot(name, path)
}

// List returns every stored layout sorted by name. Files that fail to decode
// are still listed with Err set.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, de := range dirEntries {
		fileName := de.Name()
		if de.IsDir() || !strings.HasSuffix(fileName, ext) || strings.HasPrefix(fileName, ".") {
			continue
		}
		name := strings.TrimSuffix(fileName, ext)
		path := filepath.Join(s.dir, fileName)
		snap, err := readSnapshot(name, path)
		out = append(out, Entry{Name: name, Path: path, Snapshot: snap, Err: err})
	}
	return out, nil
}

// Delete removes the layout stored under name.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return err
	}
	return nil
}

func readSnapshot(name, path string) (monitor.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return monitor.Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return monitor.Snapshot{}, fmt.Errorf("%w: %q: %w", ErrCorrupt, name, err)
	}
	var snap monitor.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return monitor.Snapshot{}, fmt.Errorf("%w: %q: %w", ErrCorrupt, name, err)
	}
	if err := snap.Validate(); err != nil {
		return monitor.Snapshot{}, fmt.Errorf("%w: %q: %w", ErrCorrupt, name, err)
	}
	return snap, nil
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, os.PathSeparator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	}
	return nil
}

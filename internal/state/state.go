// Package state persists the sketch map between runs.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sketchsync/sketchsync/pkg/models"
)

// FileName is the sketch map file kept in the sketch folder.
const FileName = "sketchesMap.json"

// ErrMalformed is returned when a stored sketch map cannot be parsed.
var ErrMalformed = errors.New("malformed sketch map")

// Store loads and saves the sketch map. A store with nothing saved yet
// loads an empty map.
type Store interface {
	Load(ctx context.Context) (models.SketchMap, error)
	Save(ctx context.Context, m models.SketchMap) error
	String() string
}

// Encode renders a sketch map as a JSON array indented by two spaces.
func Encode(m models.SketchMap) ([]byte, error) {
	if m == nil {
		m = models.SketchMap{}
	}
	return json.MarshalIndent(m, "", "  ")
}

// Decode parses a sketch map. Empty input and JSON null give an empty map.
func Decode(data []byte) (models.SketchMap, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.SketchMap{}, nil
	}
	var m models.SketchMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m == nil {
		m = models.SketchMap{}
	}
	return m, nil
}

// FileStore keeps the sketch map in a file.
type FileStore struct {
	fs   billy.Filesystem
	path string
}

// NewFileStore returns a store for dir/sketchesMap.json.
func NewFileStore(fs billy.Filesystem, dir string) *FileStore {
	return &FileStore{fs: fs, path: fs.Join(dir, FileName)}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) String() string {
	return s.path
}

// Load reads the map; a missing file is an empty map.
func (s *FileStore) Load(_ context.Context) (models.SketchMap, error) {
	data, err := util.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.SketchMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return m, nil
}

// Save overwrites the file with m.
func (s *FileStore) Save(_ context.Context, m models.SketchMap) error {
	data, err := Encode(m)
	if err != nil {
		return fmt.Errorf("encode sketch map: %w", err)
	}
	if err := util.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Mirror reads from Primary and writes to both Primary and Secondary.
// A secondary write failure does not undo the primary write.
type Mirror struct {
	Primary   Store
	Secondary Store
}

func (m *Mirror) String() string {
	return m.Primary.String() + " + " + m.Secondary.String()
}

// Load reads the primary store.
func (m *Mirror) Load(ctx context.Context) (models.SketchMap, error) {
	return m.Primary.Load(ctx)
}

// Save writes the primary store, then the secondary.
func (m *Mirror) Save(ctx context.Context, sm models.SketchMap) error {
	if err := m.Primary.Save(ctx, sm); err != nil {
		return err
	}
	if err := m.Secondary.Save(ctx, sm); err != nil {
		return fmt.Errorf("mirror to %s: %w", m.Secondary, err)
	}
	return nil
}

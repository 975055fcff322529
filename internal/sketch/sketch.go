// Package sketch turns a local sketch directory into an editor file tree.
package sketch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/sketchsync/sketchsync/internal/scanner"
	"github.com/sketchsync/sketchsync/pkg/models"
)

// IDFunc returns a fresh node id.
type IDFunc func() string

// NewObjectID returns a new BSON ObjectID in hex, the id format the editor
// stores file nodes under.
func NewObjectID() string {
	return bson.NewObjectID().Hex()
}

var extensions = map[string]bool{
	".html": true,
	".css":  true,
	".js":   true,
	".json": true,
}

// Eligible reports whether a file name has an uploadable extension.
// The check is case-insensitive.
func Eligible(name string) bool {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// Name derives the sketch name from its directory.
func Name(dir string) string {
	return filepath.Base(dir)
}

// Build reads the eligible files directly inside dir and returns the file
// tree to upload: a root folder followed by one node per file, in listing
// order. Only sketch.js is marked as the selected file. Content is read as
// text without size limits. Subdirectories are not included.
func Build(fs billy.Filesystem, dir string, ids IDFunc) ([]models.FileNode, error) {
	if ids == nil {
		ids = NewObjectID
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sketch dir %s: %w", dir, err)
	}

	files := []models.FileNode{{}}
	children := []string{}
	for _, entry := range entries {
		if !Eligible(entry.Name()) {
			continue
		}

		path := fs.Join(dir, entry.Name())
		info, err := scanner.Resolve(fs, path, entry)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}

		content, err := util.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		id := ids()
		children = append(children, id)
		files = append(files, models.FileNode{
			ID:             id,
			LegacyID:       id,
			Name:           entry.Name(),
			Content:        string(content),
			FileType:       models.KindFile,
			Children:       []string{},
			IsSelectedFile: entry.Name() == models.SelectedFileName,
		})
	}

	rootID := ids()
	files[0] = models.FileNode{
		ID:       rootID,
		LegacyID: rootID,
		Name:     models.RootName,
		FileType: models.KindFolder,
		Children: children,
	}
	return files, nil
}

// Package scanner finds sketch directories below a root folder.
package scanner

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
)

// IndexFile marks a directory as a sketch root.
const IndexFile = "index.html"

// Find walks root recursively and returns every directory that directly
// contains an index.html, root included. Entries are visited in directory
// listing order; a subdirectory is descended into when it is reached, and a
// directory is recorded when its index.html is reached, so a nested sketch
// can be listed before its parent.
//
// Symlinks are followed and there is no cycle detection. Any unreadable
// directory or dangling link aborts the walk.
func Find(fs billy.Filesystem, root string) ([]string, error) {
	var sketches []string
	if err := walk(fs, root, &sketches); err != nil {
		return nil, err
	}
	return sketches, nil
}

func walk(fs billy.Filesystem, dir string, sketches *[]string) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := fs.Join(dir, entry.Name())
		info, err := Resolve(fs, path, entry)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if err := walk(fs, path, sketches); err != nil {
				return err
			}
			continue
		}
		if entry.Name() == IndexFile {
			*sketches = append(*sketches, dir)
		}
	}
	return nil
}

// Resolve returns the info of the entry a symlink points to, or entry itself.
func Resolve(fs billy.Filesystem, path string, entry os.FileInfo) (os.FileInfo, error) {
	if entry.Mode()&os.ModeSymlink == 0 {
		return entry, nil
	}
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return info, nil
}

// Package tree provides utilities for working with editor file trees.
//
// The editor keeps a project's files as a flat list in which folders refer
// to their children by id. The first entry is the root folder.
package tree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sketchsync/sketchsync/pkg/models"
)

// ErrNoRoot is returned when a file list does not start with a root folder.
var ErrNoRoot = errors.New("file tree has no root folder")

// Root returns the first node if it is the root folder.
func Root(files []models.FileNode) (*models.FileNode, error) {
	if len(files) == 0 || !files[0].IsFolder() || files[0].Name != models.RootName {
		return nil, ErrNoRoot
	}
	return &files[0], nil
}

// FindByID finds a node by its id.
func FindByID(files []models.FileNode, id string) *models.FileNode {
	for i := range files {
		if files[i].ID == id {
			return &files[i]
		}
	}
	return nil
}

// SelectedFile returns the node flagged as the default-selected file.
func SelectedFile(files []models.FileNode) *models.FileNode {
	for i := range files {
		if files[i].IsSelectedFile {
			return &files[i]
		}
	}
	return nil
}

// CountFiles counts the non-folder nodes.
func CountFiles(files []models.FileNode) int {
	count := 0
	for _, f := range files {
		if !f.IsFolder() {
			count++
		}
	}
	return count
}

// ContentSize sums the content length of all nodes.
func ContentSize(files []models.FileNode) int64 {
	var size int64
	for _, f := range files {
		size += int64(len(f.Content))
	}
	return size
}

// Validate checks the structural rules the editor relies on: a root folder
// first, unique ids, id and _id equal, and every child id resolving to a
// node in the list.
func Validate(files []models.FileNode) error {
	if _, err := Root(files); err != nil {
		return err
	}

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if f.ID == "" {
			return fmt.Errorf("node %q has no id", f.Name)
		}
		if f.ID != f.LegacyID {
			return fmt.Errorf("node %q: id %s and _id %s differ", f.Name, f.ID, f.LegacyID)
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate id %s", f.ID)
		}
		seen[f.ID] = true
	}

	for _, f := range files {
		for _, child := range f.Children {
			if !seen[child] {
				return fmt.Errorf("node %q references unknown child %s", f.Name, child)
			}
		}
	}
	return nil
}

// Print writes an indented listing of the tree starting at the root.
func Print(w io.Writer, files []models.FileNode) error {
	root, err := Root(files)
	if err != nil {
		return err
	}
	return printNode(w, files, root, 0)
}

func printNode(w io.Writer, files []models.FileNode, node *models.FileNode, depth int) error {
	indent := strings.Repeat("  ", depth)
	if node.IsFolder() {
		if _, err := fmt.Fprintf(w, "%s%s/\n", indent, node.Name); err != nil {
			return err
		}
		for _, id := range node.Children {
			child := FindByID(files, id)
			if child == nil {
				continue
			}
			if err := printNode(w, files, child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	marker := ""
	if node.IsSelectedFile {
		marker = " *"
	}
	_, err := fmt.Fprintf(w, "%s%s (%d bytes)%s\n", indent, node.Name, len(node.Content), marker)
	return err
}

// Package models contains the data types exchanged with the editor API
// and persisted between runs.
package models

import "encoding/json"

// File node kinds.
const (
	KindFile   = "file"
	KindFolder = "folder"
)

// RootName is the name of the synthetic folder node that heads every
// project file tree.
const RootName = "root"

// SelectedFileName is the file the editor opens by default.
const SelectedFileName = "sketch.js"

// FileNode represents a file or the root folder of a project in the editor.
// Children holds ids, not nested nodes: the editor stores the tree flat.
type FileNode struct {
	ID             string   `json:"id"`
	LegacyID       string   `json:"_id"`
	Name           string   `json:"name"`
	Content        string   `json:"content"`
	FileType       string   `json:"fileType"`
	Children       []string `json:"children"`
	IsSelectedFile bool     `json:"isSelectedFile"`
}

// MarshalJSON writes isSelectedFile on file nodes only; folders omit it.
func (n FileNode) MarshalJSON() ([]byte, error) {
	type node FileNode
	if !n.IsFolder() {
		return json.Marshal(node(n))
	}
	return json.Marshal(struct {
		node
		IsSelectedFile bool `json:"isSelectedFile,omitempty"`
	}{node: node(n)})
}

// IsFolder reports whether the node is a folder.
func (n *FileNode) IsFolder() bool {
	return n.FileType == KindFolder
}

// Project is a remote sketch as returned by the editor.
type Project struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Files []FileNode `json:"files,omitempty"`
}

// Collection is a named group of projects.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

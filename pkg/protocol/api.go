// Package protocol defines the editor API request/response types.
package protocol

import (
	"github.com/sketchsync/sketchsync/pkg/models"
)

// API paths, relative to the editor base URL.
const (
	PathLogin       = "/editor/login"
	PathCollections = "/editor/collections"
	PathProjects    = "/editor/projects"
)

// LoginRequest is the body for POST /editor/login.
// The editor accepts either an email or a username in the email field.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CollectionRequest is the body for POST /editor/collections.
type CollectionRequest struct {
	Name string `json:"name"`
}

// ProjectRequest is the body for POST /editor/projects and PUT /editor/projects/{id}.
type ProjectRequest struct {
	Name  string            `json:"name"`
	Files []models.FileNode `json:"files"`
}

// ErrorResponse is returned on API errors. The editor is not consistent
// about which field it fills.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Text returns whichever message field is set.
func (e ErrorResponse) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

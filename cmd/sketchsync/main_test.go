package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchsync/sketchsync/internal/config"
	"github.com/sketchsync/sketchsync/internal/syncer"
	"github.com/sketchsync/sketchsync/pkg/models"
	"github.com/sketchsync/sketchsync/pkg/protocol"
)

// fakeEditor is a minimal in-memory editor API.
type fakeEditor struct {
	mu       sync.Mutex
	requests []string
	projects map[string]protocol.ProjectRequest
}

func (e *fakeEditor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, r.Method+" "+r.URL.Path)

	switch {
	case r.URL.Path == protocol.PathLogin:
		http.SetCookie(w, &http.Cookie{Name: "sessionId", Value: "s1", Path: "/"})
		json.NewEncoder(w).Encode(map[string]string{"email": "ada@example.com"})
	case r.URL.Path == protocol.PathCollections && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode([]models.Collection{{ID: "col1", Name: "My Sketches"}})
	case r.URL.Path == protocol.PathProjects && r.Method == http.MethodPost:
		var req protocol.ProjectRequest
		json.NewDecoder(r.Body).Decode(&req)
		id := "p-" + req.Name
		e.projects[id] = req
		json.NewEncoder(w).Encode(models.Project{ID: id, Name: req.Name})
	case strings.HasPrefix(r.URL.Path, protocol.PathProjects+"/") && r.Method == http.MethodPut:
		var req protocol.ProjectRequest
		json.NewDecoder(r.Body).Decode(&req)
		id := strings.TrimPrefix(r.URL.Path, protocol.PathProjects+"/")
		e.projects[id] = req
		json.NewEncoder(w).Encode(models.Project{ID: id, Name: req.Name})
	case strings.HasPrefix(r.URL.Path, protocol.PathCollections+"/"):
		json.NewEncoder(w).Encode(models.Collection{ID: "col1", Name: "My Sketches"})
	default:
		http.NotFound(w, r)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"P5_USERNAME", "P5_PASSWORD", "P5_PASSWORD_SECRET_ID", "SKETCHES_FOLDER",
		"COLLECTION_NAME", "P5_BASE_URL", "STATE_BACKEND", "METRICS_FILE", "DRY_RUN", "ENV_FILE",
	} {
		t.Setenv(key, "")
	}
}

func writeSketch(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sketch.js"), []byte("function setup() {}"), 0o644))
}

func execute(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "error"}, args...))
	return cmd.Execute()
}

func TestRun_EndToEnd(t *testing.T) {
	clearEnv(t)
	editor := &fakeEditor{projects: map[string]protocol.ProjectRequest{}}
	srv := httptest.NewServer(editor)
	defer srv.Close()

	root := filepath.Join(t.TempDir(), "sketches")
	writeSketch(t, filepath.Join(root, "bounce"))
	writeSketch(t, filepath.Join(root, "orbit"))
	metricsFile := filepath.Join(t.TempDir(), "sketchsync.prom")

	args := []string{
		"--p5-username", "ada", "--p5-password", "pw",
		"--sketch-folder", root, "--base-url", srv.URL, "--metrics-file", metricsFile,
	}
	require.NoError(t, execute(args...))

	data, err := os.ReadFile(filepath.Join(root, "sketchesMap.json"))
	require.NoError(t, err)
	var m models.SketchMap
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, models.SketchMap{{ID: "p-bounce", Name: "bounce"}, {ID: "p-orbit", Name: "orbit"}}, m)
	assert.Contains(t, editor.requests, "POST /editor/collections/col1/p-bounce")
	require.Len(t, editor.projects["p-bounce"].Files, 3)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "sketchsync_api_requests_total")

	// The second run updates both sketches.
	editor.requests = nil
	require.NoError(t, execute(args...))
	assert.Contains(t, editor.requests, "PUT /editor/projects/p-bounce")
	assert.Contains(t, editor.requests, "PUT /editor/projects/p-orbit")
	assert.NotContains(t, editor.requests, "POST /editor/projects")
}

func TestRun_Preconditions(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	err := execute("--sketch-folder", root)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)

	err = execute("--p5-username", "ada", "--p5-password", "pw", "--sketch-folder", filepath.Join(root, "nope"))
	assert.ErrorIs(t, err, syncer.ErrFolderNotFound)
}

func TestRun_LoginFailureIsFatal(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid email or password"})
	}))
	defer srv.Close()

	root := t.TempDir()
	writeSketch(t, filepath.Join(root, "a"))

	err := execute("--p5-username", "ada", "--p5-password", "wrong", "--sketch-folder", root, "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")

	_, statErr := os.Stat(filepath.Join(root, "sketchesMap.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_DryRunMakesNoRequests(t *testing.T) {
	clearEnv(t)
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()

	root := t.TempDir()
	writeSketch(t, filepath.Join(root, "a"))

	require.NoError(t, execute("--p5-username", "ada", "--p5-password", "pw",
		"--sketch-folder", root, "--base-url", srv.URL, "--dry-run"))
	assert.Zero(t, hits)
}
